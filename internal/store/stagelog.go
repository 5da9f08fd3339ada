package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const stageLogColumns = "id, document_id, article_id, stage, provider, model, outcome, detail, latency_ms, correlation_id, created_at"

// AppendStageLog records one stage execution or provider attempt.
func (s *Store) AppendStageLog(ctx context.Context, entry *StageLogEntry) error {
	if entry == nil {
		return errors.New("stage log entry is nil")
	}
	if entry.Stage == "" {
		return errors.New("stage log entry stage is empty")
	}
	_, err := s.execWithRetry(
		ctx,
		`INSERT INTO stage_log (
            document_id, article_id, stage, provider, model,
            outcome, detail, latency_ms, correlation_id, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nullableInt64(entry.DocumentID),
		nullableInt64(entry.ArticleID),
		entry.Stage,
		nullableString(entry.Provider),
		nullableString(entry.Model),
		entry.Outcome,
		nullableString(entry.Detail),
		entry.LatencyMS,
		nullableString(entry.CorrelationID),
		nowStamp(),
	)
	if err != nil {
		return fmt.Errorf("append stage log: %w", err)
	}
	return nil
}

// StageLogForArticle returns the audit trail for an article, oldest first.
func (s *Store) StageLogForArticle(ctx context.Context, articleID int64) ([]*StageLogEntry, error) {
	return s.queryStageLog(
		ctx,
		`SELECT `+stageLogColumns+` FROM stage_log WHERE article_id = ? ORDER BY id`,
		articleID,
	)
}

// StageLogForDocument returns the audit trail for a document, oldest first.
func (s *Store) StageLogForDocument(ctx context.Context, documentID int64) ([]*StageLogEntry, error) {
	return s.queryStageLog(
		ctx,
		`SELECT `+stageLogColumns+` FROM stage_log WHERE document_id = ? ORDER BY id`,
		documentID,
	)
}

// RecentStageLog returns the newest entries across all rows.
func (s *Store) RecentStageLog(ctx context.Context, limit int) ([]*StageLogEntry, error) {
	return s.queryStageLog(
		ctx,
		`SELECT `+stageLogColumns+` FROM stage_log ORDER BY id DESC LIMIT ?`,
		limit,
	)
}

func (s *Store) queryStageLog(ctx context.Context, query string, args ...any) ([]*StageLogEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query stage log: %w", err)
	}
	defer rows.Close()

	var entries []*StageLogEntry
	for rows.Next() {
		entry, err := scanStageLog(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func scanStageLog(scanner interface{ Scan(dest ...any) error }) (*StageLogEntry, error) {
	var (
		id            int64
		documentID    sql.NullInt64
		articleID     sql.NullInt64
		stage         string
		provider      sql.NullString
		model         sql.NullString
		outcome       string
		detail        sql.NullString
		latencyMS     int64
		correlationID sql.NullString
		createdRaw    sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&documentID,
		&articleID,
		&stage,
		&provider,
		&model,
		&outcome,
		&detail,
		&latencyMS,
		&correlationID,
		&createdRaw,
	); err != nil {
		return nil, err
	}

	entry := &StageLogEntry{
		ID:            id,
		DocumentID:    documentID.Int64,
		ArticleID:     articleID.Int64,
		Stage:         stage,
		Provider:      provider.String,
		Model:         model.String,
		Outcome:       outcome,
		Detail:        detail.String,
		LatencyMS:     latencyMS,
		CorrelationID: correlationID.String,
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		entry.CreatedAt = created
	}
	return entry, nil
}
