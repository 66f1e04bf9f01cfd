package rag

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/salmanmunirmalik/Digital-Research-Manager-sub009/store"
)

// SourceWeight is the trust weight and minimum relevance of one source type.
type SourceWeight = store.SourceWeight

// PreferenceStore persists the AI section of user preferences.
type PreferenceStore interface {
	GetAIPreferences(ctx context.Context, userID int32) (*store.AIPreferences, error)
	SaveAIPreferences(ctx context.Context, userID int32, prefs *store.AIPreferences) error
}

// DefaultSourceWeights returns the built-in weights, one per source type.
func DefaultSourceWeights() []SourceWeight {
	return []SourceWeight{
		{SourceType: store.SourceProcessedContent, Weight: 1.0, MinRelevance: 0.3},
		{SourceType: store.SourcePaper, Weight: 0.9, MinRelevance: 0.4},
		{SourceType: store.SourceNotebookEntry, Weight: 0.8, MinRelevance: 0.3},
		{SourceType: store.SourceExperiment, Weight: 0.8, MinRelevance: 0.3},
		{SourceType: store.SourceProtocol, Weight: 0.7, MinRelevance: 0.3},
	}
}

// MergeSourceWeights overlays overrides onto the defaults. Defaults keep their
// order; overrides for other source types are appended. The last override
// for a type wins.
func MergeSourceWeights(overrides []SourceWeight) []SourceWeight {
	merged := DefaultSourceWeights()
	index := make(map[store.SourceType]int, len(merged))
	for i, w := range merged {
		index[w.SourceType] = i
	}

	for _, o := range overrides {
		if i, ok := index[o.SourceType]; ok {
			merged[i] = o
			continue
		}
		index[o.SourceType] = len(merged)
		merged = append(merged, o)
	}
	return merged
}

// ValidateSourceWeights checks that weights and minimums lie within [0, 1].
func ValidateSourceWeights(weights []SourceWeight) error {
	for _, w := range weights {
		if w.SourceType == "" {
			return fmt.Errorf("source weight without source type")
		}
		if w.Weight < 0 || w.Weight > 1 {
			return fmt.Errorf("weight for %s must be within [0, 1], got %v", w.SourceType, w.Weight)
		}
		if w.MinRelevance < 0 || w.MinRelevance > 1 {
			return fmt.Errorf("min relevance for %s must be within [0, 1], got %v", w.SourceType, w.MinRelevance)
		}
	}
	return nil
}

// SourceWeights returns the user's weights merged over the defaults.
// Read failures fall back to the defaults.
func (a *Aggregator) SourceWeights(ctx context.Context, userID int32) []SourceWeight {
	if a.preferences == nil {
		return DefaultSourceWeights()
	}

	prefs, err := a.preferences.GetAIPreferences(ctx, userID)
	if err != nil {
		slog.Warn("failed to read source weights, using defaults",
			slog.Int("user_id", int(userID)),
			slog.String("error", err.Error()),
		)
		return DefaultSourceWeights()
	}
	return MergeSourceWeights(prefs.SourceWeights)
}

// SaveSourceWeights stores per-user overrides, keeping the rest of the AI preferences.
func (a *Aggregator) SaveSourceWeights(ctx context.Context, userID int32, weights []SourceWeight) error {
	if a.preferences == nil {
		return fmt.Errorf("no preference store configured")
	}
	if err := ValidateSourceWeights(weights); err != nil {
		return err
	}

	prefs, err := a.preferences.GetAIPreferences(ctx, userID)
	if err != nil {
		return fmt.Errorf("read preferences: %w", err)
	}
	prefs.SourceWeights = append([]SourceWeight(nil), weights...)
	if err := a.preferences.SaveAIPreferences(ctx, userID, prefs); err != nil {
		return fmt.Errorf("save source weights: %w", err)
	}
	return nil
}

type weightTable map[store.SourceType]SourceWeight

func newWeightTable(weights []SourceWeight) weightTable {
	table := make(weightTable, len(weights))
	for _, w := range MergeSourceWeights(weights) {
		table[w.SourceType] = w
	}
	return table
}
