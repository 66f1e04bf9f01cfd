// Package observability provides per-request structured logging.
package observability

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const (
	// LogFieldRequestID is the field name for request ID.
	LogFieldRequestID = "request_id"
	// LogFieldUserID is the field name for user ID.
	LogFieldUserID = "user_id"
	// LogFieldTaskType is the field name for the classified task type.
	LogFieldTaskType = "task_type"
	// LogFieldBackend is the field name for the selected backend.
	LogFieldBackend = "backend"
	// LogFieldDuration is the field name for duration in milliseconds.
	LogFieldDuration = "duration_ms"
	// LogFieldErrorKind is the field name for the error kind of a failed execution.
	LogFieldErrorKind = "error_kind"
)

// RequestContext carries the identity of one orchestrated request.
type RequestContext struct {
	RequestID string
	UserID    int32
	TaskType  string
	StartTime time.Time
	Logger    *slog.Logger
}

// NewRequestContext creates a request context with a generated request ID.
// A nil logger uses slog.Default.
func NewRequestContext(logger *slog.Logger, userID int32) *RequestContext {
	return NewRequestContextWithID(logger, uuid.New().String(), userID)
}

// NewRequestContextWithID creates a request context with a caller supplied ID.
func NewRequestContextWithID(logger *slog.Logger, requestID string, userID int32) *RequestContext {
	if logger == nil {
		logger = slog.Default()
	}
	return &RequestContext{
		RequestID: requestID,
		UserID:    userID,
		StartTime: time.Now(),
		Logger:    logger,
	}
}

// SetTaskType records the task type once the request is classified.
func (r *RequestContext) SetTaskType(taskType string) {
	r.TaskType = taskType
}

// With returns a logger carrying the request fields and attrs.
func (r *RequestContext) With(attrs ...slog.Attr) *slog.Logger {
	all := r.attrs(attrs...)
	args := make([]any, 0, len(all))
	for _, attr := range all {
		args = append(args, attr)
	}
	return r.Logger.With(args...)
}

func (r *RequestContext) Info(ctx context.Context, msg string, attrs ...slog.Attr) {
	r.Logger.LogAttrs(ctx, slog.LevelInfo, msg, r.attrs(attrs...)...)
}

func (r *RequestContext) Debug(ctx context.Context, msg string, attrs ...slog.Attr) {
	r.Logger.LogAttrs(ctx, slog.LevelDebug, msg, r.attrs(attrs...)...)
}

func (r *RequestContext) Warn(ctx context.Context, msg string, attrs ...slog.Attr) {
	r.Logger.LogAttrs(ctx, slog.LevelWarn, msg, r.attrs(attrs...)...)
}

// Error logs msg with err attached.
func (r *RequestContext) Error(ctx context.Context, msg string, err error, attrs ...slog.Attr) {
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	r.Logger.LogAttrs(ctx, slog.LevelError, msg, r.attrs(attrs...)...)
}

// Duration returns the elapsed time since the request started.
func (r *RequestContext) Duration() time.Duration {
	return time.Since(r.StartTime)
}

// DurationMs returns the elapsed time in milliseconds.
func (r *RequestContext) DurationMs() int64 {
	return r.Duration().Milliseconds()
}

func (r *RequestContext) attrs(extra ...slog.Attr) []slog.Attr {
	base := []slog.Attr{
		slog.String(LogFieldRequestID, r.RequestID),
		slog.Int64(LogFieldUserID, int64(r.UserID)),
	}
	if r.TaskType != "" {
		base = append(base, slog.String(LogFieldTaskType, r.TaskType))
	}
	return append(base, extra...)
}

type ctxKey struct{}

// WithRequestContext adds the request context to ctx.
func WithRequestContext(ctx context.Context, reqCtx *RequestContext) context.Context {
	return context.WithValue(ctx, ctxKey{}, reqCtx)
}

// FromContext extracts the request context from ctx.
func FromContext(ctx context.Context) (*RequestContext, bool) {
	reqCtx, ok := ctx.Value(ctxKey{}).(*RequestContext)
	return reqCtx, ok
}
