package sqlite_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salmanmunirmalik/Digital-Research-Manager-sub009/internal/profile"
	"github.com/salmanmunirmalik/Digital-Research-Manager-sub009/store"
	"github.com/salmanmunirmalik/Digital-Research-Manager-sub009/store/db/sqlite"
)

func newTestStore(t *testing.T, mode string) *store.Store {
	t.Helper()
	prof := &profile.Profile{Mode: mode, Driver: "sqlite", DSN: ":memory:"}
	driver, err := sqlite.NewDB(prof)
	require.NoError(t, err)

	s := store.New(driver, prof)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func insertProcessed(t *testing.T, s *store.Store, id, sourceType, title, keywords string, embedding any, createdTs int64) {
	t.Helper()
	_, err := s.GetDriver().GetDB().Exec(
		`INSERT INTO processed_content (id, user_id, source_type, source_id, title, content, summary, keywords, embedding, created_ts)
		VALUES (?, 1, ?, ?, ?, ?, '', ?, ?, ?)`,
		id, sourceType, "src-"+id, title, "content of "+title, keywords, embedding, createdTs,
	)
	require.NoError(t, err)
}

func TestMigrate_Idempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, "dev")

	ok, err := s.GetDriver().IsInitialized(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	// Second run sees the schema and does nothing.
	require.NoError(t, s.Migrate(ctx))
}

func TestDemoSeed(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, "demo")

	user, err := s.GetUserProfile(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "Ada", user.FirstName)
	assert.Equal(t, []string{"microscopy", "gene editing"}, user.ResearchInterests)

	papers, err := s.ListPapers(ctx, &store.FindContent{UserID: 1})
	require.NoError(t, err)
	require.Len(t, papers, 1)
	assert.Equal(t, []string{"microscopy", "neurons"}, papers[0].Keywords)

	entries, err := s.ListNotebookEntries(ctx, &store.FindContent{UserID: 1})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, []string{"pcr"}, entries[0].Tags)

	protocols, err := s.ListProtocols(ctx, &store.FindContent{UserID: 1})
	require.NoError(t, err)
	assert.Len(t, protocols, 1)

	experiments, err := s.ListExperiments(ctx, &store.FindContent{UserID: 1})
	require.NoError(t, err)
	require.Len(t, experiments, 1)
	assert.Equal(t, "completed", experiments[0].Status)

	other, err := s.ListPapers(ctx, &store.FindContent{UserID: 2})
	require.NoError(t, err)
	assert.Empty(t, other)

	missing, err := s.GetUserProfile(ctx, 42)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestListProcessedContent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, "dev")

	insertProcessed(t, s, "a", "paper", "CRISPR screens in yeast", `["crispr","yeast"]`, "[1,0,0]", 30)
	insertProcessed(t, s, "b", "experiment", "PCR optimization", `["pcr"]`, nil, 20)
	insertProcessed(t, s, "c", "protocol", "Western blot", `["Antibody"]`, "[0,1,0]", 10)

	t.Run("embedding only", func(t *testing.T) {
		list, err := s.ListProcessedContent(ctx, &store.FindProcessedContent{UserID: 1, WithEmbedding: true, Limit: 100})
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "a", list[0].ID)
		assert.Equal(t, []float32{1, 0, 0}, list[0].Embedding)
		assert.Equal(t, store.SourceProtocol, list[1].SourceType)
	})

	t.Run("title or keyword match", func(t *testing.T) {
		list, err := s.ListProcessedContent(ctx, &store.FindProcessedContent{UserID: 1, TitleOrKeywords: []string{"pcr", "antibody"}})
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "b", list[0].ID)
		assert.Equal(t, "c", list[1].ID)
		assert.False(t, list[0].HasEmbedding())
	})

	t.Run("limit", func(t *testing.T) {
		list, err := s.ListProcessedContent(ctx, &store.FindProcessedContent{UserID: 1, Limit: 1})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "a", list[0].ID)
	})
}

func TestListProcessedContent_EqualTimestamps(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, "dev")

	for _, id := range []string{"z", "m", "a"} {
		insertProcessed(t, s, id, "paper", "Title "+id, `[]`, nil, 50)
	}

	for range 3 {
		list, err := s.ListProcessedContent(ctx, &store.FindProcessedContent{UserID: 1})
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, []string{"a", "m", "z"}, []string{list[0].ID, list[1].ID, list[2].ID})
	}
}

func TestAIPreferences(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, "dev")

	empty, err := s.GetAIPreferences(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, empty.SourceWeights)
	assert.Empty(t, empty.EmbeddingBackend)

	// Keys outside the AI section survive a save.
	_, err = s.UpsertUserPreferences(ctx, &store.UpsertUserPreferences{UserID: 1, Preferences: `{"theme":"dark"}`})
	require.NoError(t, err)

	want := &store.AIPreferences{
		EmbeddingBackend: "openai",
		SourceWeights: []store.SourceWeight{
			{SourceType: store.SourcePaper, Weight: 1.2, MinRelevance: 0.4},
		},
	}
	require.NoError(t, s.SaveAIPreferences(ctx, 1, want))

	got, err := s.GetAIPreferences(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	userID := int32(1)
	raw, err := s.GetUserPreferences(ctx, &store.FindUserPreferences{UserID: &userID})
	require.NoError(t, err)
	assert.Contains(t, raw.Preferences, `"theme":"dark"`)

	// Clearing the AI section drops its keys.
	require.NoError(t, s.SaveAIPreferences(ctx, 1, &store.AIPreferences{}))
	raw, err = s.GetUserPreferences(ctx, &store.FindUserPreferences{UserID: &userID})
	require.NoError(t, err)
	assert.JSONEq(t, `{"theme":"dark"}`, raw.Preferences)
}
