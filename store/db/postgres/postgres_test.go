package postgres

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salmanmunirmalik/Digital-Research-Manager-sub009/store"
)

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &DB{db: db}, mock
}

func TestIsInitialized(t *testing.T) {
	d, mock := newMockDB(t)
	mock.ExpectQuery(`table_name = 'processed_content'`).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := d.IsInitialized(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUserProfile(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		d, mock := newMockDB(t)
		mock.ExpectQuery(`FROM users WHERE id = \$1`).
			WithArgs(int32(7)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "first_name", "last_name", "email", "role", "research_interests", "expertise"}).
				AddRow(7, "Rosalind", "F", "rf@lab.org", "pi", "{crystallography,DNA}", "{x-ray}"))

		user, err := d.GetUserProfile(ctx, 7)
		require.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, "Rosalind", user.FirstName)
		assert.Equal(t, []string{"crystallography", "DNA"}, user.ResearchInterests)
		assert.Equal(t, []string{"x-ray"}, user.Expertise)
	})

	t.Run("missing", func(t *testing.T) {
		d, mock := newMockDB(t)
		mock.ExpectQuery(`FROM users`).
			WithArgs(int32(8)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		user, err := d.GetUserProfile(ctx, 8)
		require.NoError(t, err)
		assert.Nil(t, user)
	})
}

func TestListPapers_DefaultLimit(t *testing.T) {
	d, mock := newMockDB(t)
	mock.ExpectQuery(`FROM papers\s+WHERE user_id = \$1\s+ORDER BY created_ts DESC, id\s+LIMIT \$2`).
		WithArgs(int32(1), store.DefaultListLimit).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "title", "abstract", "authors", "journal", "publication_year", "keywords", "created_ts"}).
			AddRow("p1", 1, "Title", "Abstract", `{"A. Author","B. Author"}`, "Cell", 2021, "{biology}", int64(100)))

	papers, err := d.ListPapers(context.Background(), &store.FindContent{UserID: 1})
	require.NoError(t, err)
	require.Len(t, papers, 1)
	assert.Equal(t, []string{"A. Author", "B. Author"}, papers[0].Authors)
	assert.Equal(t, 2021, papers[0].PublicationYear)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListProcessedContent(t *testing.T) {
	columns := []string{"id", "user_id", "source_type", "source_id", "title", "content", "summary", "keywords", "embedding", "created_ts"}

	t.Run("with embedding", func(t *testing.T) {
		d, mock := newMockDB(t)
		mock.ExpectQuery(`embedding IS NOT NULL`).
			WithArgs(int32(1), 100).
			WillReturnRows(sqlmock.NewRows(columns).
				AddRow("c1", 1, "paper", "p1", "T", "C", "S", "{pcr}", []byte("[0.5,0.25,1]"), int64(10)).
				AddRow("c2", 1, "experiment", "e1", "T2", "C2", "", "{}", nil, int64(9)))

		list, err := d.ListProcessedContent(context.Background(), &store.FindProcessedContent{UserID: 1, WithEmbedding: true, Limit: 100})
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, store.SourcePaper, list[0].SourceType)
		assert.Equal(t, []float32{0.5, 0.25, 1}, list[0].Embedding)
		assert.True(t, list[0].HasEmbedding())
		assert.False(t, list[1].HasEmbedding())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("title or keywords", func(t *testing.T) {
		d, mock := newMockDB(t)
		mock.ExpectQuery(`title ILIKE ANY\(\$2\) OR keywords && \$3`).
			WithArgs(int32(1), sqlmock.AnyArg(), sqlmock.AnyArg(), store.DefaultListLimit).
			WillReturnRows(sqlmock.NewRows(columns))

		list, err := d.ListProcessedContent(context.Background(), &store.FindProcessedContent{UserID: 1, TitleOrKeywords: []string{"PCR", "primer"}})
		require.NoError(t, err)
		assert.Empty(t, list)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUserPreferences(t *testing.T) {
	ctx := context.Background()
	d, mock := newMockDB(t)

	mock.ExpectQuery(`INSERT INTO user_preferences`).
		WithArgs(int32(3), `{"embedding_backend":"openai"}`, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "preferences", "created_ts", "updated_ts"}).
			AddRow(3, `{"embedding_backend":"openai"}`, 1, 1))

	prefs, err := d.UpsertUserPreferences(ctx, &store.UpsertUserPreferences{UserID: 3, Preferences: `{"embedding_backend":"openai"}`})
	require.NoError(t, err)
	assert.Equal(t, int32(3), prefs.UserID)

	mock.ExpectQuery(`FROM user_preferences WHERE user_id = \$1`).
		WithArgs(int32(4)).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "preferences", "created_ts", "updated_ts"}))

	userID := int32(4)
	missing, err := d.GetUserPreferences(ctx, &store.FindUserPreferences{UserID: &userID})
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = d.GetUserPreferences(ctx, &store.FindUserPreferences{})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "$1, $2, $3", placeholders(3))
	assert.Equal(t, "$4", placeholder(4))
}
