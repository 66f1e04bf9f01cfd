package postgres

import (
	"context"
	"database/sql"
	"strings"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	"github.com/salmanmunirmalik/Digital-Research-Manager-sub009/store"
)

func (d *DB) GetUserProfile(ctx context.Context, userID int32) (*store.UserProfile, error) {
	query := `SELECT id, first_name, last_name, email, role, research_interests, expertise
		FROM users WHERE id = ` + placeholder(1)

	user := &store.UserProfile{}
	err := d.db.QueryRowContext(ctx, query, userID).Scan(
		&user.ID,
		&user.FirstName,
		&user.LastName,
		&user.Email,
		&user.Role,
		pq.Array(&user.ResearchInterests),
		pq.Array(&user.Expertise),
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get user profile")
	}
	return user, nil
}

func (d *DB) ListPapers(ctx context.Context, find *store.FindContent) ([]*store.Paper, error) {
	query := `SELECT id, user_id, title, abstract, authors, journal, publication_year, keywords, created_ts
		FROM papers
		WHERE user_id = ` + placeholder(1) + `
		ORDER BY created_ts DESC, id
		LIMIT ` + placeholder(2)

	rows, err := d.db.QueryContext(ctx, query, find.UserID, listLimit(find.Limit))
	if err != nil {
		return nil, errors.Wrap(err, "failed to list papers")
	}
	defer rows.Close()

	list := []*store.Paper{}
	for rows.Next() {
		var paper store.Paper
		if err := rows.Scan(
			&paper.ID,
			&paper.UserID,
			&paper.Title,
			&paper.Abstract,
			pq.Array(&paper.Authors),
			&paper.Journal,
			&paper.PublicationYear,
			pq.Array(&paper.Keywords),
			&paper.CreatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan paper")
		}
		list = append(list, &paper)
	}
	return list, rows.Err()
}

func (d *DB) ListNotebookEntries(ctx context.Context, find *store.FindContent) ([]*store.NotebookEntry, error) {
	query := `SELECT id, user_id, title, content, entry_type, tags, created_ts
		FROM notebook_entries
		WHERE user_id = ` + placeholder(1) + `
		ORDER BY created_ts DESC, id
		LIMIT ` + placeholder(2)

	rows, err := d.db.QueryContext(ctx, query, find.UserID, listLimit(find.Limit))
	if err != nil {
		return nil, errors.Wrap(err, "failed to list notebook entries")
	}
	defer rows.Close()

	list := []*store.NotebookEntry{}
	for rows.Next() {
		var entry store.NotebookEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.UserID,
			&entry.Title,
			&entry.Content,
			&entry.EntryType,
			pq.Array(&entry.Tags),
			&entry.CreatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan notebook entry")
		}
		list = append(list, &entry)
	}
	return list, rows.Err()
}

func (d *DB) ListProtocols(ctx context.Context, find *store.FindContent) ([]*store.Protocol, error) {
	query := `SELECT id, user_id, title, description, category, steps, created_ts
		FROM protocols
		WHERE user_id = ` + placeholder(1) + `
		ORDER BY created_ts DESC, id
		LIMIT ` + placeholder(2)

	rows, err := d.db.QueryContext(ctx, query, find.UserID, listLimit(find.Limit))
	if err != nil {
		return nil, errors.Wrap(err, "failed to list protocols")
	}
	defer rows.Close()

	list := []*store.Protocol{}
	for rows.Next() {
		var protocol store.Protocol
		if err := rows.Scan(
			&protocol.ID,
			&protocol.UserID,
			&protocol.Title,
			&protocol.Description,
			&protocol.Category,
			&protocol.Steps,
			&protocol.CreatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan protocol")
		}
		list = append(list, &protocol)
	}
	return list, rows.Err()
}

func (d *DB) ListExperiments(ctx context.Context, find *store.FindContent) ([]*store.Experiment, error) {
	query := `SELECT id, user_id, title, description, hypothesis, status, results, created_ts
		FROM experiments
		WHERE user_id = ` + placeholder(1) + `
		ORDER BY created_ts DESC, id
		LIMIT ` + placeholder(2)

	rows, err := d.db.QueryContext(ctx, query, find.UserID, listLimit(find.Limit))
	if err != nil {
		return nil, errors.Wrap(err, "failed to list experiments")
	}
	defer rows.Close()

	list := []*store.Experiment{}
	for rows.Next() {
		var experiment store.Experiment
		if err := rows.Scan(
			&experiment.ID,
			&experiment.UserID,
			&experiment.Title,
			&experiment.Description,
			&experiment.Hypothesis,
			&experiment.Status,
			&experiment.Results,
			&experiment.CreatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan experiment")
		}
		list = append(list, &experiment)
	}
	return list, rows.Err()
}

func (d *DB) ListProcessedContent(ctx context.Context, find *store.FindProcessedContent) ([]*store.ProcessedContent, error) {
	where, args := []string{"user_id = " + placeholder(1)}, []any{find.UserID}

	if find.WithEmbedding {
		where = append(where, "embedding IS NOT NULL")
	}
	if len(find.TitleOrKeywords) > 0 {
		patterns := make([]string, 0, len(find.TitleOrKeywords))
		words := make([]string, 0, len(find.TitleOrKeywords))
		for _, word := range find.TitleOrKeywords {
			patterns = append(patterns, "%"+word+"%")
			words = append(words, strings.ToLower(word))
		}
		args = append(args, pq.Array(patterns))
		titleArg := placeholder(len(args))
		args = append(args, pq.Array(words))
		keywordsArg := placeholder(len(args))
		where = append(where, "(title ILIKE ANY("+titleArg+") OR keywords && "+keywordsArg+")")
	}

	args = append(args, listLimit(find.Limit))
	query := `SELECT id, user_id, source_type, source_id, title, content, summary, keywords, embedding, created_ts
		FROM processed_content
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts DESC, id
		LIMIT ` + placeholder(len(args))

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list processed content")
	}
	defer rows.Close()

	list := []*store.ProcessedContent{}
	for rows.Next() {
		var content store.ProcessedContent
		var vector *pgvector.Vector
		if err := rows.Scan(
			&content.ID,
			&content.UserID,
			&content.SourceType,
			&content.SourceID,
			&content.Title,
			&content.Content,
			&content.Summary,
			pq.Array(&content.Keywords),
			&vector,
			&content.CreatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan processed content")
		}
		if vector != nil {
			content.Embedding = vector.Slice()
		}
		list = append(list, &content)
	}
	return list, rows.Err()
}
