package ai

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"
)

// Tier is a coarse low/medium/high rating. Speed uses fast/medium/slow.
type Tier string

const (
	TierLow    Tier = "low"
	TierMedium Tier = "medium"
	TierHigh   Tier = "high"

	SpeedFast   Tier = "fast"
	SpeedMedium Tier = "medium"
	SpeedSlow   Tier = "slow"
)

// DefaultBackendID is recommended when no registered backend lists a task type.
const DefaultBackendID = BackendOpenAI

// ErrCapabilityExists is returned when registering an identifier twice.
var ErrCapabilityExists = errors.New("capability already registered")

// Capability describes what a backend is good at.
type Capability struct {
	BackendID     string   `yaml:"backend_id"`
	Strengths     []string `yaml:"strengths"`
	BestFor       []string `yaml:"best_for"`
	ContextWindow int      `yaml:"context_window"`
	Speed         Tier     `yaml:"speed"`
	Cost          Tier     `yaml:"cost"`
	Quality       Tier     `yaml:"quality"`
}

// IsBestFor reports whether taskType is listed in BestFor.
func (c *Capability) IsBestFor(taskType string) bool {
	return slices.Contains(c.BestFor, taskType)
}

// CapabilityRegistry is an ordered, append-only table of backend capabilities.
// Registration order is significant: Recommend returns the first match.
type CapabilityRegistry struct {
	mu      sync.RWMutex
	order   []string
	entries map[string]*Capability
}

// DefaultCapabilities returns the built-in capability table.
func DefaultCapabilities() []Capability {
	return []Capability{
		{
			BackendID:     BackendOpenAI,
			Strengths:     []string{"writing", "code", "analysis"},
			BestFor:       []string{"content_writing", "abstract_writing", "code_generation"},
			ContextWindow: 128000,
			Speed:         SpeedMedium,
			Cost:          TierHigh,
			Quality:       TierHigh,
		},
		{
			BackendID:     BackendGemini,
			Strengths:     []string{"reasoning", "multimodal", "research"},
			BestFor:       []string{"paper_finding", "data_analysis", "idea_generation"},
			ContextWindow: 1000000,
			Speed:         SpeedFast,
			Cost:          TierMedium,
			Quality:       TierHigh,
		},
		{
			BackendID:     BackendClaude,
			Strengths:     []string{"reasoning", "analysis", "long_context"},
			BestFor:       []string{"proposal_writing", "data_analysis", "paper_generation"},
			ContextWindow: 200000,
			Speed:         SpeedMedium,
			Cost:          TierHigh,
			Quality:       TierHigh,
		},
		{
			BackendID:     BackendPerplexity,
			Strengths:     []string{"search", "real_time", "research"},
			BestFor:       []string{"paper_finding", "research", "summarization"},
			ContextWindow: 100000,
			Speed:         SpeedFast,
			Cost:          TierMedium,
			Quality:       TierHigh,
		},
	}
}

// NewCapabilityRegistry creates a registry seeded with the given capabilities.
func NewCapabilityRegistry(caps ...Capability) *CapabilityRegistry {
	r := &CapabilityRegistry{
		entries: make(map[string]*Capability),
	}
	for _, c := range caps {
		// Seed lists are trusted; later duplicates are ignored.
		_ = r.Register(c)
	}
	return r
}

// NewDefaultCapabilityRegistry creates a registry with the built-in table.
func NewDefaultCapabilityRegistry() *CapabilityRegistry {
	return NewCapabilityRegistry(DefaultCapabilities()...)
}

// Register adds a capability. Existing identifiers are never overwritten.
func (r *CapabilityRegistry) Register(c Capability) error {
	if c.BackendID == "" {
		return errors.New("capability backend_id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[c.BackendID]; ok {
		return fmt.Errorf("%w: %s", ErrCapabilityExists, c.BackendID)
	}
	stored := c
	stored.Strengths = slices.Clone(c.Strengths)
	stored.BestFor = slices.Clone(c.BestFor)
	r.entries[c.BackendID] = &stored
	r.order = append(r.order, c.BackendID)
	return nil
}

// Get returns a copy of the capability for backendID, or nil.
func (r *CapabilityRegistry) Get(backendID string) *Capability {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.entries[backendID]
	if !ok {
		return nil
	}
	cp := *c
	return &cp
}

// IDs returns backend identifiers in registration order.
func (r *CapabilityRegistry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}

// Recommend returns the first registered backend whose BestFor contains taskType,
// or DefaultBackendID when none does.
func (r *CapabilityRegistry) Recommend(taskType string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, id := range r.order {
		if r.entries[id].IsBestFor(taskType) {
			return id
		}
	}
	return DefaultBackendID
}

// capabilityFile is the YAML layout accepted by LoadYAML.
type capabilityFile struct {
	Backends []Capability `yaml:"backends"`
}

// LoadYAML registers every capability listed under "backends" in r.
// It stops at the first invalid or duplicate entry.
func (r *CapabilityRegistry) LoadYAML(src io.Reader) (int, error) {
	var file capabilityFile
	if err := yaml.NewDecoder(src).Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return 0, nil
		}
		return 0, fmt.Errorf("decode capabilities: %w", err)
	}

	for i, c := range file.Backends {
		if err := validTiers(c); err != nil {
			return i, fmt.Errorf("backend %q: %w", c.BackendID, err)
		}
		if err := r.Register(c); err != nil {
			return i, err
		}
	}
	return len(file.Backends), nil
}

func validTiers(c Capability) error {
	switch c.Quality {
	case TierLow, TierMedium, TierHigh:
	default:
		return fmt.Errorf("invalid quality tier %q", c.Quality)
	}
	switch c.Cost {
	case TierLow, TierMedium, TierHigh:
	default:
		return fmt.Errorf("invalid cost tier %q", c.Cost)
	}
	switch c.Speed {
	case SpeedFast, SpeedMedium, SpeedSlow:
	default:
		return fmt.Errorf("invalid speed tier %q", c.Speed)
	}
	return nil
}

// qualityScore maps high/medium/low to 3/2/1.
func qualityScore(t Tier) int {
	switch t {
	case TierHigh:
		return 3
	case TierMedium:
		return 2
	default:
		return 1
	}
}

// costScore maps low/medium/high to 2/1/0.
func costScore(t Tier) int {
	switch t {
	case TierLow:
		return 2
	case TierMedium:
		return 1
	default:
		return 0
	}
}
