package rag

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salmanmunirmalik/Digital-Research-Manager-sub009/plugin/ai"
	"github.com/salmanmunirmalik/Digital-Research-Manager-sub009/store"
)

// staticRetriever returns a fixed context and records the requested limit.
type staticRetriever struct {
	uc        *UserContext
	lastLimit int
}

func (s *staticRetriever) Retrieve(_ context.Context, _ int32, _ string, limit int) *UserContext {
	s.lastLimit = limit
	return s.uc
}

func TestAggregator_DefaultWeightsRanking(t *testing.T) {
	// Two query words, each record matches one of them: raw relevance 0.5.
	r := &staticRetriever{uc: &UserContext{
		Method: MethodKeyword,
		NotebookEntries: []*store.NotebookEntry{
			{ID: "n1", Title: "Bench notes", Content: "imaging session went well"},
		},
		Papers: []*store.Paper{
			{ID: "p1", Title: "Cryo-EM", Abstract: "imaging of ribosomes", Journal: "Science", PublicationYear: 2020},
		},
	}}
	a := NewAggregator(r, nil)

	got := a.Aggregate(context.Background(), 1, "imaging zebrafish", nil, 10)

	require.Len(t, got.WeightedResults, 2)
	assert.Equal(t, store.SourcePaper, got.WeightedResults[0].Source)
	assert.InDelta(t, 0.45, got.WeightedResults[0].WeightedScore, 1e-9)
	assert.Equal(t, store.SourceNotebookEntry, got.WeightedResults[1].Source)
	assert.InDelta(t, 0.40, got.WeightedResults[1].WeightedScore, 1e-9)
	assert.InDelta(t, 0.425, got.TotalRelevance, 1e-9)
	assert.Equal(t, []store.SourceType{store.SourcePaper, store.SourceNotebookEntry}, got.SourcesUsed)
	assert.Equal(t, "Science", got.WeightedResults[0].Metadata["journal"])
	assert.Equal(t, 20, r.lastLimit, "retriever is asked for twice the limit")
}

func TestAggregator_ThresholdsApplyBeforeRanking(t *testing.T) {
	r := &staticRetriever{uc: &UserContext{
		Method: MethodKeyword,
		Papers: []*store.Paper{
			// Matches 1 of 3 words: 0.33 is below the paper minimum of 0.4.
			{ID: "p1", Title: "Microscopy"},
		},
		Protocols: []*store.Protocol{
			{ID: "pr1", Title: "Microscopy", Description: "confocal setup"},
		},
	}}
	a := NewAggregator(r, nil)

	got := a.Aggregate(context.Background(), 1, "microscopy confocal zebrafish", nil, 10)

	require.Len(t, got.WeightedResults, 1)
	assert.Equal(t, store.SourceProtocol, got.WeightedResults[0].Source)
	assert.InDelta(t, 2.0/3.0, got.WeightedResults[0].RelevanceScore, 1e-9)
}

func TestAggregator_EmbeddingCounterpartsAndDedupe(t *testing.T) {
	r := &staticRetriever{uc: &UserContext{
		Method: MethodEmbedding,
		RelevantContent: []RelevantContent{
			{ID: "c1", SourceType: store.SourcePaper, SourceID: "p1", Title: "Cryo-EM", Content: "processed", Similarity: 0.8},
			{ID: "c2", SourceType: store.SourceExperiment, SourceID: "e9", Title: "Old run", Content: "x", Similarity: 0.35},
		},
		Papers: []*store.Paper{
			{ID: "p1", Title: "Cryo-EM", Abstract: "unrelated words"},
		},
	}}
	a := NewAggregator(r, nil)

	got := a.Aggregate(context.Background(), 1, "ribosome structure", nil, 10)

	// p1 appears as processed content (0.8 × 1.0) and as a paper (0.8 × 0.9);
	// only the better one survives.
	require.Len(t, got.WeightedResults, 2)
	assert.Equal(t, store.SourceProcessedContent, got.WeightedResults[0].Source)
	assert.Equal(t, store.SourcePaper, got.WeightedResults[0].Origin)
	assert.InDelta(t, 0.8, got.WeightedResults[0].WeightedScore, 1e-9)
	assert.Equal(t, "e9", got.WeightedResults[1].SourceID)
	assert.Equal(t, MethodEmbedding, got.Method)
}

func TestAggregator_LimitAndEmpty(t *testing.T) {
	papers := []*store.Paper{}
	for _, id := range []string{"a", "b", "c", "d"} {
		papers = append(papers, &store.Paper{ID: id, Title: "gene editing " + id})
	}
	a := NewAggregator(&staticRetriever{uc: &UserContext{Method: MethodKeyword, Papers: papers}}, nil)

	got := a.Aggregate(context.Background(), 1, "gene editing", nil, 3)
	require.Len(t, got.WeightedResults, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{
		got.WeightedResults[0].SourceID, got.WeightedResults[1].SourceID, got.WeightedResults[2].SourceID,
	}, "ties keep retrieval order")

	empty := a.Aggregate(context.Background(), 1, "unrelated", nil, 3)
	assert.True(t, empty.IsEmpty())
	assert.Equal(t, 0.0, empty.TotalRelevance)
	assert.Empty(t, empty.SourcesUsed)
}

func TestAggregator_Properties(t *testing.T) {
	st := embeddedStore()
	st.papers = append(st.papers, &store.Paper{ID: "p3", UserID: 1, Title: "PCR artifacts", Abstract: "confocal PCR"})
	retriever := NewRetriever(st, geminiBackends([]float32{0.7, 0.7, 0}), credentialsFor(ai.BackendGemini), RetrieverConfig{})

	custom := []SourceWeight{{SourceType: store.SourceNotebookEntry, Weight: 0.2, MinRelevance: 0.9}}
	for _, weights := range [][]SourceWeight{nil, custom} {
		got := NewAggregator(retriever, st).Aggregate(context.Background(), 1, "confocal PCR optimization", weights, 20)

		table := newWeightTable(weights)
		for _, r := range got.WeightedResults {
			assert.GreaterOrEqual(t, r.RelevanceScore, table[r.Source].MinRelevance, r.SourceID)
			assert.InDelta(t, r.RelevanceScore*r.Weight, r.WeightedScore, 1e-9)
		}
		assert.True(t, sort.SliceIsSorted(got.WeightedResults, func(i, j int) bool {
			return got.WeightedResults[i].WeightedScore > got.WeightedResults[j].WeightedScore
		}))
	}
}

func TestAggregator_SourceWeights(t *testing.T) {
	ctx := context.Background()
	st := &memStore{}
	a := NewAggregator(&staticRetriever{uc: &UserContext{}}, st)

	if diff := cmp.Diff(DefaultSourceWeights(), a.SourceWeights(ctx, 1)); diff != "" {
		t.Errorf("defaults mismatch (-want +got):\n%s", diff)
	}

	override := []SourceWeight{{SourceType: store.SourcePaper, Weight: 0.5, MinRelevance: 0.1}}
	require.NoError(t, a.SaveSourceWeights(ctx, 1, override))

	weights := a.SourceWeights(ctx, 1)
	require.Len(t, weights, len(DefaultSourceWeights()))
	assert.Equal(t, override[0], weights[1])
	assert.Equal(t, DefaultSourceWeights()[0], weights[0])

	assert.Error(t, a.SaveSourceWeights(ctx, 1, []SourceWeight{{SourceType: store.SourcePaper, Weight: 1.5}}))
	assert.Error(t, a.SaveSourceWeights(ctx, 1, []SourceWeight{{Weight: 0.5}}))

	st.failSources = map[string]error{"preferences": errors.New("db down")}
	assert.Equal(t, DefaultSourceWeights(), a.SourceWeights(ctx, 1))

	assert.Error(t, NewAggregator(&staticRetriever{}, nil).SaveSourceWeights(ctx, 1, override))
}

func TestAggregator_StoredWeightsApply(t *testing.T) {
	ctx := context.Background()
	st := &memStore{}
	r := &staticRetriever{uc: &UserContext{
		Method: MethodKeyword,
		Papers: []*store.Paper{{ID: "p1", Title: "imaging", Abstract: "imaging"}},
	}}
	a := NewAggregator(r, st)
	require.NoError(t, a.SaveSourceWeights(ctx, 1, []SourceWeight{{SourceType: store.SourcePaper, Weight: 0.5, MinRelevance: 0.4}}))

	got := a.Aggregate(ctx, 1, "imaging", nil, 5)
	require.Len(t, got.WeightedResults, 1)
	assert.Equal(t, 0.5, got.WeightedResults[0].Weight)
	assert.InDelta(t, 0.5, got.WeightedResults[0].WeightedScore, 1e-9)
}

func TestMergeSourceWeights(t *testing.T) {
	merged := MergeSourceWeights([]SourceWeight{
		{SourceType: "dataset", Weight: 0.6, MinRelevance: 0.2},
		{SourceType: store.SourceProtocol, Weight: 0.1, MinRelevance: 0.1},
		{SourceType: store.SourceProtocol, Weight: 0.2, MinRelevance: 0.2},
	})

	require.Len(t, merged, 6)
	assert.Equal(t, 0.2, merged[4].Weight, "last override wins")
	assert.Equal(t, store.SourceType("dataset"), merged[5].SourceType)
}

func TestKeywordRelevance(t *testing.T) {
	words := ai.Keywords("gene editing in zebrafish")

	assert.Equal(t, 0.0, keywordRelevance(nil, "anything"))
	assert.Equal(t, 0.0, keywordRelevance(words, ""))
	assert.InDelta(t, 2.0/3.0, keywordRelevance(words, "Gene EDITING protocols"), 1e-9)
	assert.Equal(t, 1.0, keywordRelevance(words, "zebrafish gene editing"))
}
