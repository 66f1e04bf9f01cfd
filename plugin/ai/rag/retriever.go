// Package rag retrieves a user's own research content and ranks it as
// context for AI execution units.
package rag

import (
	"context"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/salmanmunirmalik/Digital-Research-Manager-sub009/plugin/ai"
	"github.com/salmanmunirmalik/Digital-Research-Manager-sub009/plugin/ai/cache"
	"github.com/salmanmunirmalik/Digital-Research-Manager-sub009/plugin/ai/timeout"
	"github.com/salmanmunirmalik/Digital-Research-Manager-sub009/store"
)

const (
	// DefaultRetrieveLimit caps relevant content when the caller passes no limit.
	DefaultRetrieveLimit = 10
	// DefaultCandidateLimit caps pre-embedded items scored per query.
	DefaultCandidateLimit = 100
	// SimilarityThreshold is the exclusive lower bound for embedding matches.
	SimilarityThreshold = 0.3
	// KeywordSimilarity is assigned to every keyword-fallback match.
	KeywordSimilarity = 0.5
	// MaxContentLength bounds the body of a retrieved item, in runes.
	MaxContentLength = 500
)

// RetrievalMethod reports how relevant content was found.
type RetrievalMethod string

const (
	MethodEmbedding RetrievalMethod = "embedding"
	MethodKeyword   RetrievalMethod = "keyword"
)

// ContentStore is the read side of the store used for retrieval.
type ContentStore interface {
	GetUserProfile(ctx context.Context, userID int32) (*store.UserProfile, error)
	ListPapers(ctx context.Context, find *store.FindContent) ([]*store.Paper, error)
	ListNotebookEntries(ctx context.Context, find *store.FindContent) ([]*store.NotebookEntry, error)
	ListProtocols(ctx context.Context, find *store.FindContent) ([]*store.Protocol, error)
	ListExperiments(ctx context.Context, find *store.FindContent) ([]*store.Experiment, error)
	ListProcessedContent(ctx context.Context, find *store.FindProcessedContent) ([]*store.ProcessedContent, error)
	GetAIPreferences(ctx context.Context, userID int32) (*store.AIPreferences, error)
}

// BackendCreator constructs backends; *ai.BackendFactory implements it.
type BackendCreator interface {
	CreateBackend(backendID, credential string) (ai.Backend, error)
}

// UserCredentials resolves the credential a user holds for a backend.
type UserCredentials interface {
	Credential(ctx context.Context, userID int32, backendID string) (string, bool)
}

// UserCredentialsFunc adapts a function to UserCredentials.
type UserCredentialsFunc func(ctx context.Context, userID int32, backendID string) (string, bool)

// Credential implements UserCredentials.
func (f UserCredentialsFunc) Credential(ctx context.Context, userID int32, backendID string) (string, bool) {
	return f(ctx, userID, backendID)
}

// RelevantContent is a processed item matched against the query.
type RelevantContent struct {
	ID         string           `json:"id"`
	SourceType store.SourceType `json:"source_type"`
	SourceID   string           `json:"source_id"`
	Title      string           `json:"title"`
	Content    string           `json:"content"`
	Similarity float64          `json:"similarity"`
}

// UserContext is everything retrieved for one user and query.
type UserContext struct {
	Profile         *store.UserProfile     `json:"profile,omitempty"`
	Papers          []*store.Paper         `json:"papers"`
	NotebookEntries []*store.NotebookEntry `json:"notebook_entries"`
	Protocols       []*store.Protocol      `json:"protocols"`
	Experiments     []*store.Experiment    `json:"experiments"`
	RelevantContent []RelevantContent      `json:"relevant_content"`
	Method          RetrievalMethod        `json:"method"`
}

// RetrieverConfig configures a Retriever. Zero values select defaults.
type RetrieverConfig struct {
	// EmbeddingBackend is used when the user has no stored preference.
	EmbeddingBackend string
	// CandidateLimit caps pre-embedded items scored per query.
	CandidateLimit int
	// SourceLimit caps each per-source listing.
	SourceLimit int
	// Cache memoizes query embeddings; nil disables caching.
	Cache *cache.EmbeddingCache
}

// Retriever gathers a user's profile, recent content and query-relevant content.
type Retriever struct {
	store       ContentStore
	backends    BackendCreator
	credentials UserCredentials
	config      RetrieverConfig
}

// NewRetriever creates a retriever. backends and credentials may be nil, in
// which case retrieval always uses the keyword path.
func NewRetriever(st ContentStore, backends BackendCreator, credentials UserCredentials, cfg RetrieverConfig) *Retriever {
	if cfg.EmbeddingBackend == "" {
		cfg.EmbeddingBackend = ai.BackendGemini
	}
	if cfg.CandidateLimit <= 0 {
		cfg.CandidateLimit = DefaultCandidateLimit
	}
	if cfg.SourceLimit <= 0 {
		cfg.SourceLimit = store.DefaultListLimit
	}
	return &Retriever{
		store:       st,
		backends:    backends,
		credentials: credentials,
		config:      cfg,
	}
}

// Retrieve reads all collections concurrently. It never fails: a collection
// that cannot be read is logged and left empty.
func (r *Retriever) Retrieve(ctx context.Context, userID int32, query string, limit int) *UserContext {
	if limit <= 0 {
		limit = DefaultRetrieveLimit
	}

	result := &UserContext{
		Papers:          []*store.Paper{},
		NotebookEntries: []*store.NotebookEntry{},
		Protocols:       []*store.Protocol{},
		Experiments:     []*store.Experiment{},
		RelevantContent: []RelevantContent{},
		Method:          MethodKeyword,
	}
	find := &store.FindContent{UserID: userID, Limit: r.config.SourceLimit}

	var g errgroup.Group
	g.Go(func() error {
		profile, err := readSource(ctx, func(ctx context.Context) (*store.UserProfile, error) {
			return r.store.GetUserProfile(ctx, userID)
		})
		if logDegraded(userID, "profile", err) {
			result.Profile = profile
		}
		return nil
	})
	g.Go(func() error {
		papers, err := readSource(ctx, func(ctx context.Context) ([]*store.Paper, error) {
			return r.store.ListPapers(ctx, find)
		})
		if logDegraded(userID, string(store.SourcePaper), err) && papers != nil {
			result.Papers = papers
		}
		return nil
	})
	g.Go(func() error {
		entries, err := readSource(ctx, func(ctx context.Context) ([]*store.NotebookEntry, error) {
			return r.store.ListNotebookEntries(ctx, find)
		})
		if logDegraded(userID, string(store.SourceNotebookEntry), err) && entries != nil {
			result.NotebookEntries = entries
		}
		return nil
	})
	g.Go(func() error {
		protocols, err := readSource(ctx, func(ctx context.Context) ([]*store.Protocol, error) {
			return r.store.ListProtocols(ctx, find)
		})
		if logDegraded(userID, string(store.SourceProtocol), err) && protocols != nil {
			result.Protocols = protocols
		}
		return nil
	})
	g.Go(func() error {
		experiments, err := readSource(ctx, func(ctx context.Context) ([]*store.Experiment, error) {
			return r.store.ListExperiments(ctx, find)
		})
		if logDegraded(userID, string(store.SourceExperiment), err) && experiments != nil {
			result.Experiments = experiments
		}
		return nil
	})
	g.Go(func() error {
		result.RelevantContent, result.Method = r.relevantContent(ctx, userID, query, limit)
		return nil
	})
	_ = g.Wait()

	return result
}

// relevantContent prefers the embedding path and falls back to keywords when
// no query vector can be produced or the user has no embedded content.
func (r *Retriever) relevantContent(ctx context.Context, userID int32, query string, limit int) ([]RelevantContent, RetrievalMethod) {
	if vector := r.queryEmbedding(ctx, userID, query); vector != nil {
		items, err := readSource(ctx, func(ctx context.Context) ([]*store.ProcessedContent, error) {
			return r.store.ListProcessedContent(ctx, &store.FindProcessedContent{
				UserID:        userID,
				WithEmbedding: true,
				Limit:         r.config.CandidateLimit,
			})
		})
		if !logDegraded(userID, string(store.SourceProcessedContent), err) {
			return []RelevantContent{}, MethodEmbedding
		}
		if len(items) > 0 {
			return rankBySimilarity(vector, items, limit), MethodEmbedding
		}
	}
	return r.keywordSearch(ctx, userID, query, limit), MethodKeyword
}

// queryEmbedding returns nil whenever the embedding path is unavailable.
func (r *Retriever) queryEmbedding(ctx context.Context, userID int32, query string) []float32 {
	if r.backends == nil || r.credentials == nil || query == "" {
		return nil
	}

	backendID := r.config.EmbeddingBackend
	prefs, err := r.store.GetAIPreferences(ctx, userID)
	if err != nil {
		slog.Warn("failed to read embedding preference, using default",
			slog.Int("user_id", int(userID)),
			slog.String("error", err.Error()),
		)
	} else if prefs.EmbeddingBackend != "" {
		backendID = prefs.EmbeddingBackend
	}

	credential, ok := r.credentials.Credential(ctx, userID, backendID)
	if !ok || credential == "" {
		return nil
	}
	backend, err := r.backends.CreateBackend(backendID, credential)
	if err != nil {
		slog.Warn("embedding backend unavailable",
			slog.String("backend", backendID),
			slog.String("error", err.Error()),
		)
		return nil
	}
	if !backend.SupportsEmbeddings() {
		return nil
	}

	model := backend.DefaultEmbeddingModel()
	if vector, ok := r.config.Cache.Get(backend.ID(), model, query); ok {
		return vector
	}

	ctx, cancel := timeout.WithDefault(ctx, timeout.EmbeddingTimeout)
	defer cancel()

	resp, err := backend.Embed(ctx, query, &ai.EmbedConfig{Model: model})
	if err != nil {
		slog.Warn("query embedding failed, falling back to keywords",
			slog.String("backend", backend.ID()),
			slog.String("error", err.Error()),
		)
		return nil
	}
	if len(resp.Embedding) == 0 {
		return nil
	}
	r.config.Cache.Set(backend.ID(), model, query, resp.Embedding)
	return resp.Embedding
}

// rankBySimilarity keeps items above SimilarityThreshold, most similar first.
// Vectors of a different dimension score 0 and are dropped.
func rankBySimilarity(query []float32, items []*store.ProcessedContent, limit int) []RelevantContent {
	results := make([]RelevantContent, 0, len(items))
	for _, item := range items {
		similarity := ai.CosineSimilarity(query, item.Embedding)
		if similarity <= SimilarityThreshold {
			continue
		}
		results = append(results, newRelevantContent(item, similarity))
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

func newRelevantContent(item *store.ProcessedContent, similarity float64) RelevantContent {
	title := item.Title
	if title == "" {
		title = "Untitled"
	}
	return RelevantContent{
		ID:         item.ID,
		SourceType: item.SourceType,
		SourceID:   item.SourceID,
		Title:      title,
		Content:    truncate(item.Content, MaxContentLength),
		Similarity: similarity,
	}
}

// readSource bounds a single collection read by timeout.SourceReadTimeout.
func readSource[T any](ctx context.Context, read func(context.Context) (T, error)) (T, error) {
	ctx, cancel := timeout.WithDefault(ctx, timeout.SourceReadTimeout)
	defer cancel()
	return read(ctx)
}

// logDegraded logs a failed read and reports whether the read succeeded.
func logDegraded(userID int32, source string, err error) bool {
	if err == nil {
		return true
	}
	slog.Warn("context source degraded to empty",
		slog.Int("user_id", int(userID)),
		slog.String("source", source),
		slog.String("error", err.Error()),
	)
	return false
}

func truncate(s string, maxRunes int) string {
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return string(runes[:maxRunes])
}
