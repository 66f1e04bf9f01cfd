package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/salmanmunirmalik/Digital-Research-Manager-sub009/plugin/ai/timeout"
)

// Feature names an optional backend operation.
type Feature string

const (
	FeatureChat            Feature = "chat"
	FeatureEmbeddings      Feature = "embeddings"
	FeatureImageGeneration Feature = "image_generation"
)

// Constructor builds a backend from a credential and endpoint overrides.
type Constructor func(credential string, opts BackendOptions) (Backend, error)

// CredentialProvider resolves the credential a caller holds for a backend.
// The core never stores or decrypts secrets itself.
type CredentialProvider interface {
	Credential(ctx context.Context, backendID string) (string, bool)
}

// CredentialProviderFunc adapts a function to CredentialProvider.
type CredentialProviderFunc func(ctx context.Context, backendID string) (string, bool)

// Credential implements CredentialProvider.
func (f CredentialProviderFunc) Credential(ctx context.Context, backendID string) (string, bool) {
	return f(ctx, backendID)
}

// Selection is the outcome of SelectBackend.
type Selection struct {
	BackendID string
	Backend   Backend
}

type constructorEntry struct {
	construct Constructor
	features  []Feature
}

// BackendFactory creates backends by identifier and picks the best one for a task type.
type BackendFactory struct {
	registry *CapabilityRegistry
	config   *Config
	limiter  *RateLimiter

	mu           sync.RWMutex
	constructors map[string]constructorEntry
	aliases      map[string]string
}

// NewBackendFactory creates a factory with the built-in backends registered.
// A nil registry selects the default capability table; cfg may be nil.
func NewBackendFactory(registry *CapabilityRegistry, cfg *Config) *BackendFactory {
	if registry == nil {
		registry = NewDefaultCapabilityRegistry()
	}
	f := &BackendFactory{
		registry:     registry,
		config:       cfg,
		constructors: make(map[string]constructorEntry),
		aliases: map[string]string{
			"gemini": BackendGemini,
			"claude": BackendClaude,
		},
	}
	if cfg != nil {
		f.limiter = NewRateLimiter(cfg.RateLimit)
	}

	_ = f.Register(BackendOpenAI, NewOpenAIBackend, FeatureChat, FeatureEmbeddings, FeatureImageGeneration)
	_ = f.Register(BackendGemini, NewGeminiBackend, FeatureChat, FeatureEmbeddings)
	_ = f.Register(BackendClaude, NewClaudeBackend, FeatureChat)
	_ = f.Register(BackendPerplexity, NewPerplexityBackend, FeatureChat)
	return f
}

// Registry returns the capability registry backing the factory.
func (f *BackendFactory) Registry() *CapabilityRegistry {
	return f.registry
}

// Register adds a constructor for backendID. Existing identifiers are never replaced.
func (f *BackendFactory) Register(backendID string, construct Constructor, features ...Feature) error {
	if backendID == "" || construct == nil {
		return errors.New("backend id and constructor are required")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.constructors[backendID]; ok {
		return fmt.Errorf("backend %q already registered", backendID)
	}
	f.constructors[backendID] = constructorEntry{
		construct: construct,
		features:  slices.Clone(features),
	}
	return nil
}

// Resolve maps aliases to canonical identifiers.
func (f *BackendFactory) Resolve(backendID string) string {
	id := strings.ToLower(strings.TrimSpace(backendID))
	if canonical, ok := f.aliases[id]; ok {
		return canonical
	}
	return id
}

// Capabilities returns the registered capability for backendID, or nil.
func (f *BackendFactory) Capabilities(backendID string) *Capability {
	return f.registry.Get(f.Resolve(backendID))
}

// CreateBackend constructs the backend for backendID with the given credential.
func (f *BackendFactory) CreateBackend(backendID, credential string) (Backend, error) {
	id := f.Resolve(backendID)

	f.mu.RLock()
	entry, ok := f.constructors[id]
	f.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, backendID)
	}
	if credential == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoCredential, id)
	}

	opts := BackendOptions{}
	if f.config != nil {
		bc := f.config.Backend(id)
		opts.BaseURL = bc.BaseURL
		opts.ChatModel = bc.ChatModel
		opts.EmbeddingModel = bc.EmbeddingModel
	}

	b, err := entry.construct(credential, opts)
	if err != nil {
		return nil, err
	}
	return withRateLimit(b, f.limiter), nil
}

// ValidateCredential reports whether credential is accepted by backendID.
// Unknown backends and construction failures report false.
func (f *BackendFactory) ValidateCredential(ctx context.Context, backendID, credential string) bool {
	if credential == "" {
		return false
	}

	b, err := f.CreateBackend(backendID, credential)
	if err != nil {
		slog.Debug("credential validation skipped",
			slog.String("backend", backendID),
			slog.String("error", err.Error()),
		)
		return false
	}

	ctx, cancel := timeout.WithDefault(ctx, timeout.ValidationTimeout)
	defer cancel()
	return b.ValidateCredential(ctx, credential)
}

// BestBackendForTaskType picks the best candidate for taskType.
//
// Without candidates it returns the registry recommendation. Otherwise every
// candidate listing taskType is scored quality(3/2/1) + cost(2/1/0); the first
// highest score wins. When no candidate lists taskType, the first candidate is used.
func (f *BackendFactory) BestBackendForTaskType(taskType string, candidates []string) string {
	if len(candidates) == 0 {
		return f.registry.Recommend(taskType)
	}

	best := ""
	bestScore := -1
	for _, candidate := range candidates {
		c := f.Capabilities(candidate)
		if c == nil || !c.IsBestFor(taskType) {
			continue
		}
		score := qualityScore(c.Quality) + costScore(c.Cost)
		if score > bestScore {
			best = candidate
			bestScore = score
		}
	}

	if best == "" {
		return candidates[0]
	}
	return best
}

// SelectBackend resolves and constructs the backend that should serve taskType.
//
// A non-empty preferred identifier is used as-is. Otherwise the candidates are
// the registered backends for which creds holds a credential, ranked by
// BestBackendForTaskType. Missing credentials yield an error wrapping ErrNoCredential.
func (f *BackendFactory) SelectBackend(ctx context.Context, taskType, preferred string, creds CredentialProvider) (*Selection, error) {
	if creds == nil {
		return nil, fmt.Errorf("%w: no credential provider", ErrNoCredential)
	}

	if preferred != "" {
		id := f.Resolve(preferred)
		credential, ok := creds.Credential(ctx, id)
		if !ok || credential == "" {
			return nil, fmt.Errorf("%w: %s", ErrNoCredential, id)
		}
		b, err := f.CreateBackend(id, credential)
		if err != nil {
			return nil, err
		}
		return &Selection{BackendID: id, Backend: b}, nil
	}

	credentials := make(map[string]string)
	var candidates []string
	for _, id := range f.SupportedBackends() {
		credential, ok := creds.Credential(ctx, id)
		if !ok || credential == "" {
			continue
		}
		credentials[id] = credential
		candidates = append(candidates, id)
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: task type %s", ErrNoCredential, taskType)
	}

	id := f.BestBackendForTaskType(taskType, candidates)
	b, err := f.CreateBackend(id, credentials[id])
	if err != nil {
		return nil, err
	}

	slog.Debug("backend selected",
		slog.String("task_type", taskType),
		slog.String("backend", id),
		slog.Int("candidates", len(candidates)),
	)
	return &Selection{BackendID: id, Backend: b}, nil
}

// Supports reports whether backendID offers feature.
func (f *BackendFactory) Supports(backendID string, feature Feature) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()

	entry, ok := f.constructors[f.Resolve(backendID)]
	return ok && slices.Contains(entry.features, feature)
}

// SupportedBackends returns constructible identifiers. Backends present in the
// capability registry come first in registry order, the rest sorted.
func (f *BackendFactory) SupportedBackends() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	ids := make([]string, 0, len(f.constructors))
	seen := make(map[string]bool, len(f.constructors))
	for _, id := range f.registry.IDs() {
		if _, ok := f.constructors[id]; ok {
			ids = append(ids, id)
			seen[id] = true
		}
	}

	var rest []string
	for id := range f.constructors {
		if !seen[id] {
			rest = append(rest, id)
		}
	}
	slices.Sort(rest)
	return append(ids, rest...)
}
