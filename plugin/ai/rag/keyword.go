package rag

import (
	"context"
	"strings"

	"github.com/salmanmunirmalik/Digital-Research-Manager-sub009/plugin/ai"
	"github.com/salmanmunirmalik/Digital-Research-Manager-sub009/store"
)

// keywordSearch matches significant query words against processed titles and
// keyword sets. Every match gets the flat KeywordSimilarity.
func (r *Retriever) keywordSearch(ctx context.Context, userID int32, query string, limit int) []RelevantContent {
	words := ai.Keywords(query)
	if len(words) == 0 {
		return []RelevantContent{}
	}

	items, err := readSource(ctx, func(ctx context.Context) ([]*store.ProcessedContent, error) {
		return r.store.ListProcessedContent(ctx, &store.FindProcessedContent{
			UserID:          userID,
			TitleOrKeywords: words,
			Limit:           limit,
		})
	})
	if !logDegraded(userID, string(store.SourceProcessedContent), err) {
		return []RelevantContent{}
	}

	results := make([]RelevantContent, 0, len(items))
	for _, item := range items {
		results = append(results, newRelevantContent(item, KeywordSimilarity))
	}
	return results
}

// keywordRelevance is the share of significant query words found in text,
// clamped to 1. An empty query or text scores 0.
func keywordRelevance(words []string, text string) float64 {
	if len(words) == 0 || text == "" {
		return 0
	}

	lower := strings.ToLower(text)
	matched := 0
	for _, word := range words {
		if strings.Contains(lower, word) {
			matched++
		}
	}
	return min(float64(matched)/float64(len(words)), 1.0)
}
