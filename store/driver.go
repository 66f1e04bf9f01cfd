package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
// Content methods are read-only: the AI core never writes user content.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	IsInitialized(ctx context.Context) (bool, error)

	// GetUserProfile returns nil without error when the user does not exist.
	GetUserProfile(ctx context.Context, userID int32) (*UserProfile, error)

	// Source content listings, newest first.
	ListPapers(ctx context.Context, find *FindContent) ([]*Paper, error)
	ListNotebookEntries(ctx context.Context, find *FindContent) ([]*NotebookEntry, error)
	ListProtocols(ctx context.Context, find *FindContent) ([]*Protocol, error)
	ListExperiments(ctx context.Context, find *FindContent) ([]*Experiment, error)

	// ListProcessedContent lists content prepared for retrieval.
	ListProcessedContent(ctx context.Context, find *FindProcessedContent) ([]*ProcessedContent, error)

	// UserPreferences model related methods.
	GetUserPreferences(ctx context.Context, find *FindUserPreferences) (*UserPreferences, error)
	UpsertUserPreferences(ctx context.Context, upsert *UpsertUserPreferences) (*UserPreferences, error)
}
