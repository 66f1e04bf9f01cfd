package store

// UserPreferences represents user preferences for AI personalization.
type UserPreferences struct {
	UserID      int32
	Preferences string // JSON string
	CreatedTs   int64
	UpdatedTs   int64
}

// FindUserPreferences specifies the conditions for finding user preferences.
type FindUserPreferences struct {
	UserID *int32
}

// UpsertUserPreferences specifies the data for upserting user preferences.
type UpsertUserPreferences struct {
	UserID      int32
	Preferences string // JSON string
}

// SourceWeight is the trust weight and minimum relevance applied to one source type
// when ranking retrieved context.
type SourceWeight struct {
	SourceType   SourceType `json:"source_type"`
	Weight       float64    `json:"weight"`
	MinRelevance float64    `json:"min_relevance"`
}

// AIPreferences is the AI section of a user's preferences document.
type AIPreferences struct {
	// EmbeddingBackend selects the backend used for query embeddings.
	EmbeddingBackend string `json:"embedding_backend,omitempty"`
	// SourceWeights overrides the default per-source weights.
	SourceWeights []SourceWeight `json:"source_weights,omitempty"`
}
