package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"

	"github.com/salmanmunirmalik/Digital-Research-Manager-sub009/store"
)

func (d *DB) GetUserProfile(ctx context.Context, userID int32) (*store.UserProfile, error) {
	query := `SELECT id, first_name, last_name, email, role, research_interests, expertise
		FROM users WHERE id = ?`

	user := &store.UserProfile{}
	var interests, expertise string
	err := d.db.QueryRowContext(ctx, query, userID).Scan(
		&user.ID,
		&user.FirstName,
		&user.LastName,
		&user.Email,
		&user.Role,
		&interests,
		&expertise,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get user profile")
	}
	if user.ResearchInterests, err = decodeStrings(interests); err != nil {
		return nil, err
	}
	if user.Expertise, err = decodeStrings(expertise); err != nil {
		return nil, err
	}
	return user, nil
}

func (d *DB) ListPapers(ctx context.Context, find *store.FindContent) ([]*store.Paper, error) {
	query := `SELECT id, user_id, title, abstract, authors, journal, publication_year, keywords, created_ts
		FROM papers
		WHERE user_id = ?
		ORDER BY created_ts DESC, id
		LIMIT ?`

	rows, err := d.db.QueryContext(ctx, query, find.UserID, listLimit(find.Limit))
	if err != nil {
		return nil, errors.Wrap(err, "failed to list papers")
	}
	defer rows.Close()

	list := []*store.Paper{}
	for rows.Next() {
		var paper store.Paper
		var authors, keywords string
		if err := rows.Scan(
			&paper.ID,
			&paper.UserID,
			&paper.Title,
			&paper.Abstract,
			&authors,
			&paper.Journal,
			&paper.PublicationYear,
			&keywords,
			&paper.CreatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan paper")
		}
		if paper.Authors, err = decodeStrings(authors); err != nil {
			return nil, err
		}
		if paper.Keywords, err = decodeStrings(keywords); err != nil {
			return nil, err
		}
		list = append(list, &paper)
	}
	return list, rows.Err()
}

func (d *DB) ListNotebookEntries(ctx context.Context, find *store.FindContent) ([]*store.NotebookEntry, error) {
	query := `SELECT id, user_id, title, content, entry_type, tags, created_ts
		FROM notebook_entries
		WHERE user_id = ?
		ORDER BY created_ts DESC, id
		LIMIT ?`

	rows, err := d.db.QueryContext(ctx, query, find.UserID, listLimit(find.Limit))
	if err != nil {
		return nil, errors.Wrap(err, "failed to list notebook entries")
	}
	defer rows.Close()

	list := []*store.NotebookEntry{}
	for rows.Next() {
		var entry store.NotebookEntry
		var tags string
		if err := rows.Scan(
			&entry.ID,
			&entry.UserID,
			&entry.Title,
			&entry.Content,
			&entry.EntryType,
			&tags,
			&entry.CreatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan notebook entry")
		}
		if entry.Tags, err = decodeStrings(tags); err != nil {
			return nil, err
		}
		list = append(list, &entry)
	}
	return list, rows.Err()
}

func (d *DB) ListProtocols(ctx context.Context, find *store.FindContent) ([]*store.Protocol, error) {
	query := `SELECT id, user_id, title, description, category, steps, created_ts
		FROM protocols
		WHERE user_id = ?
		ORDER BY created_ts DESC, id
		LIMIT ?`

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
		WHERE user_id = ?
		ORDER BY created_ts DESC, id
		LIMIT ?`

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
	where, args := []string{"user_id = ?"}, []any{find.UserID}

	if find.WithEmbedding {
		where = append(where, "embedding IS NOT NULL AND embedding != ''")
	}
	if len(find.TitleOrKeywords) > 0 {
		conditions := make([]string, 0, len(find.TitleOrKeywords))
		words := make([]any, 0, len(find.TitleOrKeywords))
		for _, word := range find.TitleOrKeywords {
			conditions = append(conditions, "LOWER(title) LIKE ?")
			args = append(args, "%"+strings.ToLower(word)+"%")
			words = append(words, strings.ToLower(word))
		}
		conditions = append(conditions,
			"EXISTS (SELECT 1 FROM json_each(processed_content.keywords) WHERE LOWER(json_each.value) IN ("+placeholders(len(words))+"))")
		args = append(args, words...)
		where = append(where, "("+strings.Join(conditions, " OR ")+")")
	}

	args = append(args, listLimit(find.Limit))
	query := `SELECT id, user_id, source_type, source_id, title, content, summary, keywords, embedding, created_ts
		FROM processed_content
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts DESC, id
		LIMIT ?`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list processed content")
	}
	defer rows.Close()

	list := []*store.ProcessedContent{}
	for rows.Next() {
		var content store.ProcessedContent
		var keywords string
		var embedding *string
		if err := rows.Scan(
			&content.ID,
			&content.UserID,
			&content.SourceType,
			&content.SourceID,
			&content.Title,
			&content.Content,
			&content.Summary,
			&keywords,
			&embedding,
			&content.CreatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan processed content")
		}
		if content.Keywords, err = decodeStrings(keywords); err != nil {
			return nil, err
		}
		if content.Embedding, err = decodeVector(embedding); err != nil {
			return nil, err
		}
		list = append(list, &content)
	}
	return list, rows.Err()
}
