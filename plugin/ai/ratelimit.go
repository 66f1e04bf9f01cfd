package ai

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiter bounds outbound calls per backend.
type RateLimiter struct {
	mu     sync.Mutex
	limit  rate.Limit
	burst  int
	limits map[string]*rate.Limiter
}

// NewRateLimiter creates a rate limiter from cfg.
// It returns nil when cfg disables limiting.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	if cfg.RequestsPerSecond <= 0 {
		return nil
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		limit:  rate.Limit(cfg.RequestsPerSecond),
		burst:  burst,
		limits: make(map[string]*rate.Limiter),
	}
}

// getLimiter gets or creates a limiter for the given backend.
func (rl *RateLimiter) getLimiter(backendID string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if limiter, ok := rl.limits[backendID]; ok {
		return limiter
	}

	limiter := rate.NewLimiter(rl.limit, rl.burst)
	rl.limits[backendID] = limiter
	return limiter
}

// Wait blocks until a call to backendID is allowed or ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context, backendID string) error {
	if rl == nil {
		return nil
	}
	if err := rl.getLimiter(backendID).Wait(ctx); err != nil {
		return fmt.Errorf("rate limit %s: %w", backendID, err)
	}
	return nil
}

// rateLimitedBackend gates the network-bound methods of a Backend.
type rateLimitedBackend struct {
	Backend
	limiter *RateLimiter
}

func withRateLimit(b Backend, rl *RateLimiter) Backend {
	if rl == nil {
		return b
	}
	return &rateLimitedBackend{Backend: b, limiter: rl}
}

func (b *rateLimitedBackend) Chat(ctx context.Context, messages []Message, cfg *ChatConfig) (*ChatResponse, error) {
	if err := b.limiter.Wait(ctx, b.ID()); err != nil {
		return nil, err
	}
	return b.Backend.Chat(ctx, messages, cfg)
}

func (b *rateLimitedBackend) Embed(ctx context.Context, text string, cfg *EmbedConfig) (*EmbeddingResponse, error) {
	if err := b.limiter.Wait(ctx, b.ID()); err != nil {
		return nil, err
	}
	return b.Backend.Embed(ctx, text, cfg)
}

func (b *rateLimitedBackend) GenerateImage(ctx context.Context, prompt string, cfg *ImageConfig) (string, error) {
	if err := b.limiter.Wait(ctx, b.ID()); err != nil {
		return "", err
	}
	return b.Backend.GenerateImage(ctx, prompt, cfg)
}
