package ai

import (
	"errors"
	"fmt"

	"github.com/salmanmunirmalik/Digital-Research-Manager-sub009/internal/profile"
)

// Config represents AI configuration.
type Config struct {
	// Backends holds per-backend endpoint and model overrides, keyed by backend ID.
	Backends map[string]BackendConfig

	// EmbeddingBackend is used for query embeddings when the user has no preference.
	EmbeddingBackend string

	RateLimit RateLimitConfig

	// CapabilitiesFile optionally extends the capability registry at startup.
	CapabilitiesFile string

	EmbeddingCacheSize int
	ContextCandidates  int
}

// BackendConfig represents endpoint and model overrides for a single backend.
type BackendConfig struct {
	BaseURL        string
	ChatModel      string // empty: backend default
	EmbeddingModel string // empty: backend default
}

// RateLimitConfig bounds outbound calls per backend. Zero RequestsPerSecond disables limiting.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// NewConfigFromProfile creates AI config from profile.
func NewConfigFromProfile(p *profile.Profile) *Config {
	cfg := &Config{
		Backends: map[string]BackendConfig{
			BackendOpenAI:     {BaseURL: p.AIOpenAIBaseURL},
			BackendGemini:     {BaseURL: p.AIGeminiBaseURL},
			BackendClaude:     {BaseURL: p.AIClaudeBaseURL},
			BackendPerplexity: {BaseURL: p.AIPerplexityBaseURL},
		},
		EmbeddingBackend: p.AIEmbeddingBackend,
		RateLimit: RateLimitConfig{
			RequestsPerSecond: p.AIRequestsPerSecond,
			Burst:             p.AIRequestBurst,
		},
		CapabilitiesFile:   p.AICapabilitiesFile,
		EmbeddingCacheSize: p.AIEmbeddingCacheSize,
		ContextCandidates:  p.AIContextCandidateCap,
	}

	if cfg.EmbeddingBackend == "" {
		cfg.EmbeddingBackend = BackendGemini
	}
	if cfg.RateLimit.RequestsPerSecond > 0 && cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = 1
	}

	return cfg
}

// Backend returns the overrides for backendID (zero value when absent).
func (c *Config) Backend(backendID string) BackendConfig {
	if c == nil || c.Backends == nil {
		return BackendConfig{}
	}
	return c.Backends[backendID]
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.EmbeddingBackend == "" {
		return errors.New("embedding backend is required")
	}

	if c.RateLimit.RequestsPerSecond < 0 {
		return errors.New("rate limit must not be negative")
	}

	if c.RateLimit.RequestsPerSecond > 0 && c.RateLimit.Burst <= 0 {
		return fmt.Errorf("rate limit burst must be positive, got %d", c.RateLimit.Burst)
	}

	return nil
}
