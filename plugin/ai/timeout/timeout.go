// Package timeout defines centralized timeout constants for AI operations.
// Package timeout 定义 AI 操作的集中式超时常量。
package timeout

import (
	"context"
	"time"
)

// AI operation timeout constants.
// AI 操作超时常量。
const (
	// BackendCallTimeout bounds a single chat or image call to a backend.
	// BackendCallTimeout 是单次后端对话或图像调用的超时时间。
	BackendCallTimeout = 2 * time.Minute

	// EmbeddingTimeout is the timeout for query embedding generation.
	// EmbeddingTimeout 是查询向量生成的超时时间。
	EmbeddingTimeout = 30 * time.Second

	// ValidationTimeout bounds a credential validation probe.
	// ValidationTimeout 是凭证校验探测的超时时间。
	ValidationTimeout = 15 * time.Second

	// SourceReadTimeout bounds each read of a user's content collection.
	// SourceReadTimeout 是单个内容集合读取的超时时间。
	SourceReadTimeout = 10 * time.Second

	// MaxTruncateLength is the maximum length for truncating strings in logs.
	// MaxTruncateLength 是日志中字符串截断的最大长度。
	MaxTruncateLength = 200
)

// WithDefault returns ctx unchanged when it already carries a deadline that
// expires sooner than d, otherwise a child context bounded by d.
// WithDefault 仅在调用方未设置更早截止时间时附加超时。
func WithDefault(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) <= d {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}
