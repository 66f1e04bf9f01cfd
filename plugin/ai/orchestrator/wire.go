package orchestrator

import (
	"log/slog"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/salmanmunirmalik/Digital-Research-Manager-sub009/plugin/ai"
	"github.com/salmanmunirmalik/Digital-Research-Manager-sub009/plugin/ai/agent"
	"github.com/salmanmunirmalik/Digital-Research-Manager-sub009/plugin/ai/cache"
	"github.com/salmanmunirmalik/Digital-Research-Manager-sub009/plugin/ai/rag"
	"github.com/salmanmunirmalik/Digital-Research-Manager-sub009/store"
)

// EmbeddingCacheTTL bounds how long a query embedding is reused.
const EmbeddingCacheTTL = 30 * time.Minute

// Options configure NewFromStore.
type Options struct {
	// Backends replaces the factory built from the config.
	Backends *ai.BackendFactory
	// Registerer receives the execution metrics; nil disables export.
	Registerer prometheus.Registerer
	Logger     *slog.Logger
}

// NewFromStore assembles the full pipeline over a store.
func NewFromStore(st *store.Store, cfg *ai.Config, creds rag.UserCredentials, opts Options) (*Orchestrator, error) {
	if cfg == nil {
		return nil, errors.New("ai config is required")
	}

	backends := opts.Backends
	if backends == nil {
		registry := ai.NewDefaultCapabilityRegistry()
		if cfg.CapabilitiesFile != "" {
			if _, err := LoadCapabilities(registry, cfg.CapabilitiesFile); err != nil {
				return nil, err
			}
		}
		backends = ai.NewBackendFactory(registry, cfg)
	}

	retriever := rag.NewRetriever(st, backends, creds, rag.RetrieverConfig{
		EmbeddingBackend: cfg.EmbeddingBackend,
		CandidateLimit:   cfg.ContextCandidates,
		Cache:            cache.NewEmbeddingCache(cfg.EmbeddingCacheSize, EmbeddingCacheTTL),
	})
	aggregator := rag.NewAggregator(retriever, st)

	var metrics *agent.Metrics
	if opts.Registerer != nil {
		metrics = agent.NewMetrics(opts.Registerer)
	}

	return New(Dependencies{
		Backends:    backends,
		Aggregator:  aggregator,
		Credentials: creds,
		Metrics:     metrics,
		Logger:      opts.Logger,
	}), nil
}

// LoadCapabilities registers the capabilities listed in the YAML file at path.
func LoadCapabilities(registry *ai.CapabilityRegistry, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to open capabilities file %s", path)
	}
	defer f.Close()

	n, err := registry.LoadYAML(f)
	if err != nil {
		return n, errors.Wrapf(err, "failed to load capabilities file %s", path)
	}
	slog.Info("capabilities loaded", slog.String("file", path), slog.Int("count", n))
	return n, nil
}
