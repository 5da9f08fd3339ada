package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const documentColumns = "id, source, url, url_hash, title, summary, content, published_at, fetched_at, created_at, updated_at"

// InsertDocument stores a source document unless its URL hash is already
// known. Returns the stored document and whether a new row was created.
// Replays never modify the existing row.
func (s *Store) InsertDocument(ctx context.Context, doc *SourceDocument) (*SourceDocument, bool, error) {
	if doc == nil {
		return nil, false, errors.New("document is nil")
	}
	if doc.URLHash == "" {
		return nil, false, errors.New("document url_hash is empty")
	}
	timestamp := nowStamp()

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO source_documents (
            source, url, url_hash, title, summary, content,
            published_at, fetched_at, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(url_hash) DO NOTHING`,
		doc.Source,
		doc.URL,
		doc.URLHash,
		doc.Title,
		nullableString(doc.Summary),
		nullableString(doc.Content),
		nullableTime(doc.PublishedAt),
		timestamp,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, false, fmt.Errorf("insert document: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("rows affected: %w", err)
	}

	stored, err := s.DocumentByURLHash(ctx, doc.URLHash)
	if err != nil {
		return nil, false, err
	}
	if stored == nil {
		return nil, false, fmt.Errorf("document %s vanished after insert", doc.URLHash)
	}
	return stored, affected > 0, nil
}

// GetDocument fetches a source document by identifier.
func (s *Store) GetDocument(ctx context.Context, id int64) (*SourceDocument, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM source_documents WHERE id = ?`, id)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

// DocumentByURLHash fetches a source document by dedup key.
func (s *Store) DocumentByURLHash(ctx context.Context, hash string) (*SourceDocument, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM source_documents WHERE url_hash = ?`, hash)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("document by url hash: %w", err)
	}
	return doc, nil
}

// DocumentsForJudging returns documents with no article row, oldest first.
func (s *Store) DocumentsForJudging(ctx context.Context, limit int) ([]*SourceDocument, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+documentColumns+` FROM source_documents d
         WHERE NOT EXISTS (SELECT 1 FROM articles a WHERE a.document_id = d.id)
         ORDER BY COALESCE(d.published_at, d.fetched_at), d.id
         LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("documents for judging: %w", err)
	}
	defer rows.Close()

	var docs []*SourceDocument
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// CountDocuments returns the total number of ingested documents.
func (s *Store) CountDocuments(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM source_documents`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return count, nil
}

func scanDocument(scanner interface{ Scan(dest ...any) error }) (*SourceDocument, error) {
	var (
		id           int64
		source       string
		url          string
		urlHash      string
		title        string
		summary      sql.NullString
		content      sql.NullString
		publishedRaw sql.NullString
		fetchedRaw   sql.NullString
		createdRaw   sql.NullString
		updatedRaw   sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&source,
		&url,
		&urlHash,
		&title,
		&summary,
		&content,
		&publishedRaw,
		&fetchedRaw,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	doc := &SourceDocument{
		ID:      id,
		Source:  source,
		URL:     url,
		URLHash: urlHash,
		Title:   title,
		Summary: summary.String,
		Content: content.String,
	}
	if publishedRaw.Valid {
		if published, err := parseTimeString(publishedRaw.String); err == nil {
			doc.PublishedAt = &published
		}
	}
	if fetched, err := parseTimeString(fetchedRaw.String); err == nil {
		doc.FetchedAt = fetched
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		doc.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		doc.UpdatedAt = updated
	}
	return doc, nil
}
