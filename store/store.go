package store

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/salmanmunirmalik/Digital-Research-Manager-sub009/internal/profile"
)

// Store provides database access to all raw objects.
type Store struct {
	profile *profile.Profile
	driver  Driver
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	return s.driver.Close()
}

func (s *Store) GetUserProfile(ctx context.Context, userID int32) (*UserProfile, error) {
	return s.driver.GetUserProfile(ctx, userID)
}

func (s *Store) ListPapers(ctx context.Context, find *FindContent) ([]*Paper, error) {
	return s.driver.ListPapers(ctx, find)
}

func (s *Store) ListNotebookEntries(ctx context.Context, find *FindContent) ([]*NotebookEntry, error) {
	return s.driver.ListNotebookEntries(ctx, find)
}

func (s *Store) ListProtocols(ctx context.Context, find *FindContent) ([]*Protocol, error) {
	return s.driver.ListProtocols(ctx, find)
}

func (s *Store) ListExperiments(ctx context.Context, find *FindContent) ([]*Experiment, error) {
	return s.driver.ListExperiments(ctx, find)
}

func (s *Store) ListProcessedContent(ctx context.Context, find *FindProcessedContent) ([]*ProcessedContent, error) {
	return s.driver.ListProcessedContent(ctx, find)
}

func (s *Store) GetUserPreferences(ctx context.Context, find *FindUserPreferences) (*UserPreferences, error) {
	return s.driver.GetUserPreferences(ctx, find)
}

func (s *Store) UpsertUserPreferences(ctx context.Context, upsert *UpsertUserPreferences) (*UserPreferences, error) {
	return s.driver.UpsertUserPreferences(ctx, upsert)
}

// GetAIPreferences decodes the AI section of the user's preferences.
// Users without a preferences row get an empty value.
func (s *Store) GetAIPreferences(ctx context.Context, userID int32) (*AIPreferences, error) {
	prefs, err := s.driver.GetUserPreferences(ctx, &FindUserPreferences{UserID: &userID})
	if err != nil {
		return nil, err
	}
	result := &AIPreferences{}
	if prefs == nil || prefs.Preferences == "" {
		return result, nil
	}
	if err := json.Unmarshal([]byte(prefs.Preferences), result); err != nil {
		return nil, errors.Wrapf(err, "failed to decode preferences of user %d", userID)
	}
	return result, nil
}

// SaveAIPreferences writes the AI section of the user's preferences.
// Other keys already present in the document are preserved.
func (s *Store) SaveAIPreferences(ctx context.Context, userID int32, ai *AIPreferences) error {
	doc := map[string]json.RawMessage{}

	existing, err := s.driver.GetUserPreferences(ctx, &FindUserPreferences{UserID: &userID})
	if err != nil {
		return err
	}
	if existing != nil && existing.Preferences != "" {
		if err := json.Unmarshal([]byte(existing.Preferences), &doc); err != nil {
			return errors.Wrapf(err, "failed to decode preferences of user %d", userID)
		}
	}

	set := func(key string, value any, empty bool) error {
		if empty {
			delete(doc, key)
			return nil
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return errors.Wrapf(err, "failed to encode %s", key)
		}
		doc[key] = raw
		return nil
	}
	if err := set("embedding_backend", ai.EmbeddingBackend, ai.EmbeddingBackend == ""); err != nil {
		return err
	}
	if err := set("source_weights", ai.SourceWeights, len(ai.SourceWeights) == 0); err != nil {
		return err
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "failed to encode preferences")
	}
	_, err = s.driver.UpsertUserPreferences(ctx, &UpsertUserPreferences{
		UserID:      userID,
		Preferences: string(raw),
	})
	return err
}
