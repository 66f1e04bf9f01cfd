package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/salmanmunirmalik/Digital-Research-Manager-sub009/plugin/ai"
	"github.com/salmanmunirmalik/Digital-Research-Manager-sub009/plugin/ai/cache"
	"github.com/salmanmunirmalik/Digital-Research-Manager-sub009/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func embeddedStore() *memStore {
	return &memStore{
		profile: &store.UserProfile{ID: 1, FirstName: "Ada", ResearchInterests: []string{"microscopy"}},
		papers: []*store.Paper{
			{ID: "p1", UserID: 1, Title: "Confocal microscopy", Abstract: "Imaging neurons"},
			{ID: "p2", UserID: 2, Title: "Someone else's paper"},
		},
		entries:   []*store.NotebookEntry{{ID: "n1", UserID: 1, Title: "Day 1", Content: "PCR run"}},
		protocols: []*store.Protocol{{ID: "pr1", UserID: 1, Title: "Fixation"}},
		exps:      []*store.Experiment{{ID: "e1", UserID: 1, Title: "PCR optimization"}},
		processed: []*store.ProcessedContent{
			{ID: "c1", UserID: 1, SourceType: store.SourcePaper, SourceID: "p1", Title: "Confocal microscopy", Content: strings.Repeat("x", 600), Embedding: []float32{1, 0, 0}},
			{ID: "c2", UserID: 1, SourceType: store.SourceExperiment, SourceID: "e1", Title: "PCR optimization", Content: "gradient", Embedding: []float32{0.6, 0.8, 0}},
			{ID: "c3", UserID: 1, SourceType: store.SourceProtocol, SourceID: "pr1", Title: "Fixation", Embedding: []float32{0, 1, 0}},
			{ID: "c4", UserID: 1, SourceType: store.SourceNotebookEntry, SourceID: "n1", Title: "Malformed", Embedding: []float32{1, 0}},
			{ID: "c5", UserID: 1, SourceType: store.SourceNotebookEntry, SourceID: "n2", Title: "Unembedded microscopy notes", Keywords: []string{"microscopy"}},
		},
	}
}

func newTestRetriever(st *memStore, backends *fakeBackends, creds UserCredentials, c *cache.EmbeddingCache) *Retriever {
	var creator BackendCreator
	if backends != nil {
		creator = backends
	}
	return NewRetriever(st, creator, creds, RetrieverConfig{Cache: c})
}

func geminiBackends(vector []float32) *fakeBackends {
	return &fakeBackends{embedders: map[string]*fakeEmbedder{
		ai.BackendGemini: {id: ai.BackendGemini, vector: vector},
		ai.BackendOpenAI: {id: ai.BackendOpenAI, vector: vector},
		ai.BackendClaude: {id: ai.BackendClaude},
	}}
}

func TestRetriever_EmbeddingPath(t *testing.T) {
	ctx := context.Background()
	r := newTestRetriever(embeddedStore(), geminiBackends([]float32{1, 0, 0}), credentialsFor(ai.BackendGemini), nil)

	uc := r.Retrieve(ctx, 1, "confocal imaging", 10)

	assert.Equal(t, MethodEmbedding, uc.Method)
	require.Len(t, uc.RelevantContent, 2, "orthogonal and malformed vectors are dropped")
	assert.Equal(t, "c1", uc.RelevantContent[0].ID)
	assert.InDelta(t, 1.0, uc.RelevantContent[0].Similarity, 1e-9)
	assert.Len(t, []rune(uc.RelevantContent[0].Content), MaxContentLength)
	assert.Equal(t, "c2", uc.RelevantContent[1].ID)
	assert.InDelta(t, 0.6, uc.RelevantContent[1].Similarity, 1e-6)

	for _, item := range uc.RelevantContent {
		assert.Greater(t, item.Similarity, SimilarityThreshold)
	}

	require.NotNil(t, uc.Profile)
	assert.Equal(t, "Ada", uc.Profile.FirstName)
	assert.Len(t, uc.Papers, 1)
	assert.Len(t, uc.NotebookEntries, 1)
	assert.Len(t, uc.Protocols, 1)
	assert.Len(t, uc.Experiments, 1)
}

func TestRetriever_EmbeddingLimit(t *testing.T) {
	r := newTestRetriever(embeddedStore(), geminiBackends([]float32{1, 0, 0}), credentialsFor(ai.BackendGemini), nil)

	uc := r.Retrieve(context.Background(), 1, "confocal", 1)
	require.Len(t, uc.RelevantContent, 1)
	assert.Equal(t, "c1", uc.RelevantContent[0].ID)
}

func TestRetriever_KeywordFallback(t *testing.T) {
	ctx := context.Background()

	t.Run("no credential", func(t *testing.T) {
		backends := geminiBackends([]float32{1, 0, 0})
		r := newTestRetriever(embeddedStore(), backends, credentialsFor(), nil)

		uc := r.Retrieve(ctx, 1, "microscopy", 10)
		assert.Equal(t, MethodKeyword, uc.Method)
		require.Len(t, uc.RelevantContent, 2)
		for _, item := range uc.RelevantContent {
			assert.Equal(t, KeywordSimilarity, item.Similarity)
			assert.True(t, strings.Contains(strings.ToLower(item.Title), "microscopy"))
		}
		assert.Empty(t, backends.created, "no backend is built without a credential")
	})

	t.Run("no stored embeddings", func(t *testing.T) {
		st := embeddedStore()
		for _, c := range st.processed {
			c.Embedding = nil
		}
		r := newTestRetriever(st, geminiBackends([]float32{1, 0, 0}), credentialsFor(ai.BackendGemini), nil)

		uc := r.Retrieve(ctx, 1, "microscopy", 10)
		assert.Equal(t, MethodKeyword, uc.Method)
		ids := []string{}
		for _, item := range uc.RelevantContent {
			ids = append(ids, item.ID)
		}
		assert.Equal(t, []string{"c1", "c5"}, ids)
	})

	t.Run("backend without embeddings", func(t *testing.T) {
		st := embeddedStore()
		st.prefs = map[int32]*store.AIPreferences{1: {EmbeddingBackend: ai.BackendClaude}}
		r := newTestRetriever(st, geminiBackends([]float32{1, 0, 0}), credentialsFor(ai.BackendClaude), nil)

		uc := r.Retrieve(ctx, 1, "microscopy", 10)
		assert.Equal(t, MethodKeyword, uc.Method)
	})

	t.Run("embedding failure", func(t *testing.T) {
		backends := geminiBackends(nil)
		backends.embedders[ai.BackendGemini].err = errors.New("503 unavailable")
		r := newTestRetriever(embeddedStore(), backends, credentialsFor(ai.BackendGemini), nil)

		uc := r.Retrieve(ctx, 1, "microscopy", 10)
		assert.Equal(t, MethodKeyword, uc.Method)
		assert.Len(t, uc.RelevantContent, 2)
	})

	t.Run("short words only", func(t *testing.T) {
		r := newTestRetriever(embeddedStore(), nil, nil, nil)

		uc := r.Retrieve(ctx, 1, "a of", 10)
		assert.Empty(t, uc.RelevantContent)
		assert.NotNil(t, uc.RelevantContent)
	})
}

func TestRetriever_UsesPreferredEmbeddingBackend(t *testing.T) {
	st := embeddedStore()
	st.prefs = map[int32]*store.AIPreferences{1: {EmbeddingBackend: ai.BackendOpenAI}}
	backends := geminiBackends([]float32{1, 0, 0})
	r := newTestRetriever(st, backends, credentialsFor(ai.BackendOpenAI, ai.BackendGemini), nil)

	uc := r.Retrieve(context.Background(), 1, "confocal", 10)
	assert.Equal(t, MethodEmbedding, uc.Method)
	assert.Equal(t, []string{ai.BackendOpenAI}, backends.created)
}

func TestRetriever_PreferenceReadFailureUsesDefault(t *testing.T) {
	st := embeddedStore()
	st.failSources = map[string]error{"preferences": errors.New("db down")}
	backends := geminiBackends([]float32{1, 0, 0})
	r := newTestRetriever(st, backends, credentialsFor(ai.BackendGemini), nil)

	uc := r.Retrieve(context.Background(), 1, "confocal", 10)
	assert.Equal(t, MethodEmbedding, uc.Method)
	assert.Equal(t, []string{ai.BackendGemini}, backends.created)
}

func TestRetriever_DegradesFailedSources(t *testing.T) {
	st := embeddedStore()
	st.failSources = map[string]error{
		"paper":             errors.New("timeout"),
		"profile":           errors.New("timeout"),
		"processed_content": errors.New("malformed vector"),
	}
	r := newTestRetriever(st, geminiBackends([]float32{1, 0, 0}), credentialsFor(ai.BackendGemini), nil)

	uc := r.Retrieve(context.Background(), 1, "confocal microscopy", 10)

	assert.Nil(t, uc.Profile)
	assert.NotNil(t, uc.Papers)
	assert.Empty(t, uc.Papers)
	assert.NotNil(t, uc.RelevantContent)
	assert.Empty(t, uc.RelevantContent)
	assert.Len(t, uc.NotebookEntries, 1)
	assert.Len(t, uc.Experiments, 1)
}

func TestRetriever_CachesQueryEmbedding(t *testing.T) {
	backends := geminiBackends([]float32{1, 0, 0})
	c := cache.NewEmbeddingCache(8, 0)
	r := newTestRetriever(embeddedStore(), backends, credentialsFor(ai.BackendGemini), c)

	first := r.Retrieve(context.Background(), 1, "confocal", 10)
	second := r.Retrieve(context.Background(), 1, "confocal", 10)

	assert.Equal(t, int32(1), backends.embedders[ai.BackendGemini].calls.Load())
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("cached retrieval differs (-first +second):\n%s", diff)
	}
}

func TestRetriever_Idempotent(t *testing.T) {
	for _, tc := range []struct {
		name  string
		creds UserCredentials
	}{
		{name: "embedding", creds: credentialsFor(ai.BackendGemini)},
		{name: "keyword", creds: credentialsFor()},
	} {
		t.Run(tc.name, func(t *testing.T) {
			r := newTestRetriever(embeddedStore(), geminiBackends([]float32{0.9, 0.1, 0}), tc.creds, nil)

			first := r.Retrieve(context.Background(), 1, "confocal microscopy", 5)
			second := r.Retrieve(context.Background(), 1, "confocal microscopy", 5)
			if diff := cmp.Diff(first, second); diff != "" {
				t.Errorf("retrieval is not deterministic (-first +second):\n%s", diff)
			}
		})
	}
}

func TestRankBySimilarity_ZeroVectors(t *testing.T) {
	items := []*store.ProcessedContent{
		{ID: "zero", Embedding: []float32{0, 0, 0}},
		{ID: "ok", Embedding: []float32{1, 1, 0}},
	}

	results := rankBySimilarity([]float32{1, 0, 0}, items, 10)
	require.Len(t, results, 1)
	assert.Equal(t, "ok", results[0].ID)

	assert.Empty(t, rankBySimilarity([]float32{0, 0, 0}, items, 10))
}
