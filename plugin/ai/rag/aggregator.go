package rag

import (
	"context"
	"sort"
	"strings"

	"github.com/salmanmunirmalik/Digital-Research-Manager-sub009/plugin/ai"
	"github.com/salmanmunirmalik/Digital-Research-Manager-sub009/store"
)

// DefaultAggregateLimit caps weighted results when the caller passes no limit.
const DefaultAggregateLimit = 20

// ContextRetriever is implemented by *Retriever.
type ContextRetriever interface {
	Retrieve(ctx context.Context, userID int32, query string, limit int) *UserContext
}

// WeightedResult is one ranked context item.
type WeightedResult struct {
	// Source selects the weight and minimum relevance that were applied.
	Source store.SourceType `json:"source"`
	// Origin is the type of the underlying record. It differs from Source
	// only for processed content.
	Origin         store.SourceType `json:"origin"`
	SourceID       string           `json:"source_id"`
	Title          string           `json:"title"`
	Content        string           `json:"content"`
	RelevanceScore float64          `json:"relevance_score"`
	Weight         float64          `json:"weight"`
	WeightedScore  float64          `json:"weighted_score"`
	Metadata       map[string]any   `json:"metadata,omitempty"`
}

// AggregatedContext is the ranked, multi-source context for one request.
type AggregatedContext struct {
	Profile         *store.UserProfile `json:"profile,omitempty"`
	WeightedResults []WeightedResult   `json:"weighted_results"`
	// TotalRelevance is the mean weighted score of WeightedResults.
	TotalRelevance float64            `json:"total_relevance"`
	SourcesUsed    []store.SourceType `json:"sources_used"`
	Method         RetrievalMethod    `json:"method"`
}

// IsEmpty reports whether no context survived ranking.
func (c *AggregatedContext) IsEmpty() bool {
	return c == nil || len(c.WeightedResults) == 0
}

// Aggregator merges retrieved collections into one weighted ranking.
type Aggregator struct {
	retriever   ContextRetriever
	preferences PreferenceStore
}

// NewAggregator creates an aggregator. preferences may be nil, in which case
// the default weights always apply.
func NewAggregator(retriever ContextRetriever, preferences PreferenceStore) *Aggregator {
	return &Aggregator{
		retriever:   retriever,
		preferences: preferences,
	}
}

// Aggregate retrieves the user's content for query and ranks it. Nil weights
// load the user's stored overrides; missing source types use the defaults.
// It never fails: unavailable sources simply contribute nothing.
func (a *Aggregator) Aggregate(ctx context.Context, userID int32, query string, weights []SourceWeight, limit int) *AggregatedContext {
	if limit <= 0 {
		limit = DefaultAggregateLimit
	}
	if weights == nil {
		weights = a.SourceWeights(ctx, userID)
	}

	base := a.retriever.Retrieve(ctx, userID, query, limit*2)
	results := rank(base, query, newWeightTable(weights))
	if len(results) > limit {
		results = results[:limit]
	}

	return &AggregatedContext{
		Profile:         base.Profile,
		WeightedResults: results,
		TotalRelevance:  meanWeightedScore(results),
		SourcesUsed:     sourcesUsed(results),
		Method:          base.Method,
	}
}

// candidate is an unweighted item before thresholds are applied.
type candidate struct {
	source    store.SourceType
	origin    store.SourceType
	id        string
	title     string
	content   string
	relevance float64
	metadata  map[string]any
}

func rank(base *UserContext, query string, weights weightTable) []WeightedResult {
	words := ai.Keywords(query)

	// Embedding similarity of records that have a processed counterpart.
	similarity := map[string]float64{}
	if base.Method == MethodEmbedding {
		for _, item := range base.RelevantContent {
			key := dedupeKey(item.SourceType, item.SourceID)
			if item.Similarity > similarity[key] {
				similarity[key] = item.Similarity
			}
		}
	}
	relevance := func(origin store.SourceType, id, text string) float64 {
		if s, ok := similarity[dedupeKey(origin, id)]; ok {
			return s
		}
		return keywordRelevance(words, text)
	}

	var candidates []candidate
	for _, item := range base.RelevantContent {
		candidates = append(candidates, candidate{
			source:    store.SourceProcessedContent,
			origin:    item.SourceType,
			id:        item.SourceID,
			title:     item.Title,
			content:   item.Content,
			relevance: item.Similarity,
			metadata:  map[string]any{"id": item.ID, "title": item.Title, "type": string(item.SourceType)},
		})
	}
	for _, paper := range base.Papers {
		body := paper.Abstract
		if body == "" {
			body = paper.Title
		}
		candidates = append(candidates, candidate{
			source:    store.SourcePaper,
			origin:    store.SourcePaper,
			id:        paper.ID,
			title:     paper.Title,
			content:   body,
			relevance: relevance(store.SourcePaper, paper.ID, joinNonEmpty(paper.Title, paper.Abstract, strings.Join(paper.Keywords, " "))),
			metadata:  map[string]any{"id": paper.ID, "title": paper.Title, "journal": paper.Journal, "year": paper.PublicationYear},
		})
	}
	for _, entry := range base.NotebookEntries {
		body := joinNonEmpty(entry.Title, entry.Content)
		candidates = append(candidates, candidate{
			source:    store.SourceNotebookEntry,
			origin:    store.SourceNotebookEntry,
			id:        entry.ID,
			title:     entry.Title,
			content:   entry.Content,
			relevance: relevance(store.SourceNotebookEntry, entry.ID, joinNonEmpty(body, strings.Join(entry.Tags, " "))),
			metadata:  map[string]any{"id": entry.ID, "title": entry.Title, "entry_type": entry.EntryType},
		})
	}
	for _, experiment := range base.Experiments {
		body := joinNonEmpty(experiment.Description, experiment.Hypothesis, experiment.Results)
		candidates = append(candidates, candidate{
			source:    store.SourceExperiment,
			origin:    store.SourceExperiment,
			id:        experiment.ID,
			title:     experiment.Title,
			content:   body,
			relevance: relevance(store.SourceExperiment, experiment.ID, joinNonEmpty(experiment.Title, body)),
			metadata:  map[string]any{"id": experiment.ID, "title": experiment.Title, "status": experiment.Status},
		})
	}
	for _, protocol := range base.Protocols {
		body := joinNonEmpty(protocol.Description, protocol.Steps)
		candidates = append(candidates, candidate{
			source:    store.SourceProtocol,
			origin:    store.SourceProtocol,
			id:        protocol.ID,
			title:     protocol.Title,
			content:   body,
			relevance: relevance(store.SourceProtocol, protocol.ID, joinNonEmpty(protocol.Title, body)),
			metadata:  map[string]any{"id": protocol.ID, "title": protocol.Title, "category": protocol.Category},
		})
	}

	// Thresholds apply before ranking; duplicates keep the best weighted score.
	results := make([]WeightedResult, 0, len(candidates))
	position := map[string]int{}
	for _, c := range candidates {
		w, ok := weights[c.source]
		if !ok || c.relevance < w.MinRelevance {
			continue
		}
		result := WeightedResult{
			Source:         c.source,
			Origin:         c.origin,
			SourceID:       c.id,
			Title:          c.title,
			Content:        truncate(c.content, MaxContentLength),
			RelevanceScore: c.relevance,
			Weight:         w.Weight,
			WeightedScore:  c.relevance * w.Weight,
			Metadata:       c.metadata,
		}

		key := dedupeKey(c.origin, c.id)
		if i, seen := position[key]; seen {
			if result.WeightedScore > results[i].WeightedScore {
				results[i] = result
			}
			continue
		}
		position[key] = len(results)
		results = append(results, result)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].WeightedScore > results[j].WeightedScore
	})
	return results
}

func meanWeightedScore(results []WeightedResult) float64 {
	if len(results) == 0 {
		return 0
	}
	var sum float64
	for _, r := range results {
		sum += r.WeightedScore
	}
	return sum / float64(len(results))
}

func sourcesUsed(results []WeightedResult) []store.SourceType {
	used := []store.SourceType{}
	seen := map[store.SourceType]bool{}
	for _, r := range results {
		if !seen[r.Source] {
			seen[r.Source] = true
			used = append(used, r.Source)
		}
	}
	return used
}

func dedupeKey(origin store.SourceType, id string) string {
	return string(origin) + "/" + id
}

func joinNonEmpty(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n\n")
}
