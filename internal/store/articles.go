package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const articleColumns = "id, document_id, review_status, decision, final_score, editorial_score, scores_json, justification, judged_by, judged_at, category, subcategory, title, title_key, body, excerpt, tags_json, generated_by, checklist_json, review_comments, revised_by, publishing_status, external_post_id, published_at, highlight_type, audio_path, needs_review, review_reason, error_message, created_at, updated_at"

// CreateJudged inserts the judge's verdict for a document. Exactly one
// article may exist per document; a second verdict for the same document is
// rejected by the unique constraint.
func (s *Store) CreateJudged(ctx context.Context, article *Article) (*Article, error) {
	if article == nil {
		return nil, errors.New("article is nil")
	}
	if article.DocumentID == 0 {
		return nil, errors.New("article document_id is zero")
	}
	timestamp := nowStamp()

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO articles (
            document_id, review_status, decision, final_score, editorial_score,
            scores_json, justification, judged_by, judged_at, category,
            subcategory, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		article.DocumentID,
		ReviewJudged,
		article.Decision,
		article.FinalScore,
		article.EditorialScore,
		nullableString(article.ScoresJSON),
		nullableString(article.Justification),
		nullableString(article.JudgedBy),
		nullableTime(article.JudgedAt),
		nullableString(article.Category),
		nullableString(article.Subcategory),
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert judged article: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetArticle(ctx, id)
}

// GetArticle fetches an article by identifier.
func (s *Store) GetArticle(ctx context.Context, id int64) (*Article, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+articleColumns+` FROM articles WHERE id = ?`, id)
	article, err := scanArticle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get article: %w", err)
	}
	return article, nil
}

// ArticleByDocument fetches the article created for a document, if any.
func (s *Store) ArticleByDocument(ctx context.Context, documentID int64) (*Article, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+articleColumns+` FROM articles WHERE document_id = ?`, documentID)
	article, err := scanArticle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("article by document: %w", err)
	}
	return article, nil
}

// ForGeneration returns judged WRITE articles at or above the significance
// threshold that have no body yet, best editorial score first.
func (s *Store) ForGeneration(ctx context.Context, threshold float64, limit int) ([]*Article, error) {
	return s.queryArticles(
		ctx,
		`SELECT `+articleColumns+` FROM articles
         WHERE decision = ? AND review_status = ? AND final_score >= ?
           AND (body IS NULL OR body = '')
         ORDER BY editorial_score DESC, id
         LIMIT ?`,
		DecisionWrite, ReviewJudged, threshold, limit,
	)
}

// ForRevision returns generated articles awaiting editorial review.
func (s *Store) ForRevision(ctx context.Context, limit int) ([]*Article, error) {
	return s.queryArticles(
		ctx,
		`SELECT `+articleColumns+` FROM articles
         WHERE review_status = ?
         ORDER BY editorial_score DESC, id
         LIMIT ?`,
		ReviewGenerated, limit,
	)
}

// ForPublishing returns revision-approved articles with a pending-or-absent
// publishing status. Failed publishes are excluded until RetryFailed returns
// them to pending.
func (s *Store) ForPublishing(ctx context.Context, limit int) ([]*Article, error) {
	return s.queryArticles(
		ctx,
		`SELECT `+articleColumns+` FROM articles
         WHERE review_status = ?
           AND COALESCE(publishing_status, 'pending') = ?
           AND title IS NOT NULL AND title != ''
         ORDER BY editorial_score DESC, id
         LIMIT ?`,
		ReviewSucceeded, PublishingPending, limit,
	)
}

// ForCuration returns published articles inside the recency window, highest
// final score first.
func (s *Store) ForCuration(ctx context.Context, since time.Time) ([]*Article, error) {
	return s.queryArticles(
		ctx,
		`SELECT `+articleColumns+` FROM articles
         WHERE publishing_status = ?
           AND external_post_id IS NOT NULL
           AND published_at IS NOT NULL AND published_at >= ?
         ORDER BY final_score DESC, published_at DESC`,
		PublishingSucceeded, since.UTC().Format(time.RFC3339Nano),
	)
}

// ForAudio returns published highlighted articles without a derived audio
// reference.
func (s *Store) ForAudio(ctx context.Context, highlights []Highlight, limit int) ([]*Article, error) {
	if len(highlights) == 0 {
		return nil, nil
	}
	placeholders := makePlaceholders(len(highlights))
	args := make([]any, 0, len(highlights)+2)
	args = append(args, PublishingSucceeded)
	for _, h := range highlights {
		args = append(args, h)
	}
	args = append(args, limit)
	return s.queryArticles(
		ctx,
		`SELECT `+articleColumns+` FROM articles
         WHERE publishing_status = ?
           AND highlight_type IN (`+placeholders+`)
           AND (audio_path IS NULL OR audio_path = '')
         ORDER BY final_score DESC, id
         LIMIT ?`,
		args...,
	)
}

// MarkGenerated records a draft and advances judged -> generated. Returns
// false when the row was not in the expected status.
func (s *Store) MarkGenerated(ctx context.Context, article *Article) (bool, error) {
	if article == nil {
		return false, errors.New("article is nil")
	}
	res, err := s.execWithRetry(
		ctx,
		`UPDATE articles
         SET review_status = ?, title = ?, title_key = ?, body = ?, excerpt = ?,
             tags_json = ?, category = ?, subcategory = ?, generated_by = ?,
             error_message = NULL, updated_at = ?
         WHERE id = ? AND review_status = ?`,
		ReviewGenerated,
		article.Title,
		nullableString(article.TitleKey),
		article.Body,
		nullableString(article.Excerpt),
		nullableString(article.TagsJSON),
		nullableString(article.Category),
		nullableString(article.Subcategory),
		nullableString(article.GeneratedBy),
		nowStamp(),
		article.ID,
		ReviewJudged,
	)
	if err != nil {
		return false, fmt.Errorf("mark generated: %w", err)
	}
	return rowApplied(res)
}

// MarkRevised records the reviser's output. When approved the article
// advances generated -> succeeded; otherwise it stops at revised awaiting
// operator intervention.
func (s *Store) MarkRevised(ctx context.Context, article *Article, approved bool) (bool, error) {
	if article == nil {
		return false, errors.New("article is nil")
	}
	next := ReviewSucceeded
	if !approved {
		next = ReviewRevised
	}
	res, err := s.execWithRetry(
		ctx,
		`UPDATE articles
         SET review_status = ?, body = ?, checklist_json = ?, review_comments = ?,
             category = ?, subcategory = ?, revised_by = ?, error_message = NULL,
             updated_at = ?
         WHERE id = ? AND review_status = ?`,
		next,
		article.Body,
		nullableString(article.ChecklistJSON),
		nullableString(article.ReviewComments),
		nullableString(article.Category),
		nullableString(article.Subcategory),
		nullableString(article.RevisedBy),
		nowStamp(),
		article.ID,
		ReviewGenerated,
	)
	if err != nil {
		return false, fmt.Errorf("mark revised: %w", err)
	}
	return rowApplied(res)
}

// MarkReviewFailed moves an article to the failed terminal status, guarded by
// the status the stage observed at claim time.
func (s *Store) MarkReviewFailed(ctx context.Context, id int64, expected ReviewStatus, message string) (bool, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE articles
         SET review_status = ?, error_message = ?, updated_at = ?
         WHERE id = ? AND review_status = ?`,
		ReviewFailed,
		nullableString(message),
		nowStamp(),
		id,
		expected,
	)
	if err != nil {
		return false, fmt.Errorf("mark review failed: %w", err)
	}
	return rowApplied(res)
}

// MarkPublished records a successful upsert against the remote backend.
func (s *Store) MarkPublished(ctx context.Context, id int64, postID int64, publishedAt time.Time) (bool, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE articles
         SET publishing_status = ?, external_post_id = ?, published_at = ?,
             error_message = NULL, updated_at = ?
         WHERE id = ? AND review_status = ?`,
		PublishingSucceeded,
		postID,
		publishedAt.UTC().Format(time.RFC3339Nano),
		nowStamp(),
		id,
		ReviewSucceeded,
	)
	if err != nil {
		return false, fmt.Errorf("mark published: %w", err)
	}
	return rowApplied(res)
}

// MarkPublishFailed records a publishing failure without touching the
// editorial chain. The stored post ID is kept so a retry still updates
// rather than duplicates.
func (s *Store) MarkPublishFailed(ctx context.Context, id int64, message string) error {
	_, err := s.execWithRetry(
		ctx,
		`UPDATE articles
         SET publishing_status = ?, error_message = ?, updated_at = ?
         WHERE id = ?`,
		PublishingFailed,
		nullableString(message),
		nowStamp(),
		id,
	)
	if err != nil {
		return fmt.Errorf("mark publish failed: %w", err)
	}
	return nil
}

// SetHighlight assigns a curation tier to an article.
func (s *Store) SetHighlight(ctx context.Context, id int64, highlight Highlight) error {
	_, err := s.execWithRetry(
		ctx,
		`UPDATE articles SET highlight_type = ?, updated_at = ? WHERE id = ?`,
		nullableString(string(highlight)),
		nowStamp(),
		id,
	)
	if err != nil {
		return fmt.Errorf("set highlight: %w", err)
	}
	return nil
}

// ClearHighlights removes every highlight flag so the curation pass can
// recompute them from scratch. Returns the number of cleared rows.
func (s *Store) ClearHighlights(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE articles SET highlight_type = NULL, updated_at = ? WHERE highlight_type IS NOT NULL`,
		nowStamp(),
	)
	if err != nil {
		return 0, fmt.Errorf("clear highlights: %w", err)
	}
	return res.RowsAffected()
}

// SetAudioPath records the derived audio reference for an article.
func (s *Store) SetAudioPath(ctx context.Context, id int64, path string) error {
	_, err := s.execWithRetry(
		ctx,
		`UPDATE articles SET audio_path = ?, updated_at = ? WHERE id = ?`,
		nullableString(path),
		nowStamp(),
		id,
	)
	if err != nil {
		return fmt.Errorf("set audio path: %w", err)
	}
	return nil
}

// ClearStaleAudio drops audio references from articles that lost their
// highlight. Returns the number of cleared rows.
func (s *Store) ClearStaleAudio(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE articles SET audio_path = NULL, updated_at = ?
         WHERE audio_path IS NOT NULL AND audio_path != '' AND highlight_type IS NULL`,
		nowStamp(),
	)
	if err != nil {
		return 0, fmt.Errorf("clear stale audio: %w", err)
	}
	return res.RowsAffected()
}

// FlagNeedsReview marks an article for manual attention without changing its
// lifecycle status.
func (s *Store) FlagNeedsReview(ctx context.Context, id int64, reason string) error {
	_, err := s.execWithRetry(
		ctx,
		`UPDATE articles SET needs_review = 1, review_reason = ?, updated_at = ? WHERE id = ?`,
		nullableString(reason),
		nowStamp(),
		id,
	)
	if err != nil {
		return fmt.Errorf("flag needs review: %w", err)
	}
	return nil
}

// FindByTitleKey returns the oldest article sharing a normalized title key,
// excluding the given article.
func (s *Store) FindByTitleKey(ctx context.Context, titleKey string, excludeID int64) (*Article, error) {
	if titleKey == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+articleColumns+` FROM articles
         WHERE title_key = ? AND id != ?
         ORDER BY id LIMIT 1`,
		titleKey, excludeID,
	)
	article, err := scanArticle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find by title key: %w", err)
	}
	return article, nil
}

// RecentDrafts returns the newest articles that already carry a body,
// excluding the given article. Candidates for the near-duplicate check.
func (s *Store) RecentDrafts(ctx context.Context, excludeID int64, limit int) ([]*Article, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.queryArticles(
		ctx,
		`SELECT `+articleColumns+` FROM articles
         WHERE id != ? AND body IS NOT NULL AND body != ''
         ORDER BY id DESC LIMIT ?`,
		excludeID, limit,
	)
}

// RetryFailed returns failed rows to their stage-entry status so the next
// pass picks them up again: editorial failures drop back to judged (no body)
// or generated (draft exists); publishing failures return to pending. With
// no ids every failed row is retried.
func (s *Store) RetryFailed(ctx context.Context, ids ...int64) (int64, error) {
	timestamp := nowStamp()
	var total int64

	reviewQuery := `UPDATE articles
        SET review_status = CASE WHEN body IS NULL OR body = '' THEN ? ELSE ? END,
            error_message = NULL, updated_at = ?
        WHERE review_status = ?`
	publishQuery := `UPDATE articles
        SET publishing_status = ?, error_message = NULL, updated_at = ?
        WHERE publishing_status = ?`

	reviewArgs := []any{ReviewJudged, ReviewGenerated, timestamp, ReviewFailed}
	publishArgs := []any{PublishingPending, timestamp, PublishingFailed}

	if len(ids) > 0 {
		placeholders := makePlaceholders(len(ids))
		reviewQuery += ` AND id IN (` + placeholders + `)`
		publishQuery += ` AND id IN (` + placeholders + `)`
		for _, id := range ids {
			reviewArgs = append(reviewArgs, id)
			publishArgs = append(publishArgs, id)
		}
	}

	res, err := s.execWithRetry(ctx, reviewQuery, reviewArgs...)
	if err != nil {
		return 0, fmt.Errorf("retry failed articles: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	total += affected

	res, err = s.execWithRetry(ctx, publishQuery, publishArgs...)
	if err != nil {
		return 0, fmt.Errorf("retry failed publishing: %w", err)
	}
	affected, err = res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	total += affected

	return total, nil
}

// Stats aggregates row counts for operator status output.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{ReviewCounts: make(map[ReviewStatus]int)}

	documents, err := s.CountDocuments(ctx)
	if err != nil {
		return stats, err
	}
	stats.Documents = documents

	rows, err := s.db.QueryContext(ctx, `SELECT review_status, COUNT(1) FROM articles GROUP BY review_status`)
	if err != nil {
		return stats, fmt.Errorf("article stats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status ReviewStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return stats, err
		}
		stats.ReviewCounts[status] = count
	}
	if err := rows.Err(); err != nil {
		return stats, err
	}

	counts := []struct {
		dest  *int
		query string
		args  []any
	}{
		{&stats.Published, `SELECT COUNT(1) FROM articles WHERE publishing_status = ?`, []any{PublishingSucceeded}},
		{&stats.PublishFailed, `SELECT COUNT(1) FROM articles WHERE publishing_status = ?`, []any{PublishingFailed}},
		{&stats.Breaking, `SELECT COUNT(1) FROM articles WHERE highlight_type = ?`, []any{HighlightBreaking}},
		{&stats.Featured, `SELECT COUNT(1) FROM articles WHERE highlight_type = ?`, []any{HighlightFeatured}},
		{&stats.NeedsReview, `SELECT COUNT(1) FROM articles WHERE needs_review = 1`, nil},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query, c.args...).Scan(c.dest); err != nil {
			return stats, fmt.Errorf("stats count: %w", err)
		}
	}

	return stats, nil
}

func (s *Store) queryArticles(ctx context.Context, query string, args ...any) ([]*Article, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}
	defer rows.Close()

	var articles []*Article
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, article)
	}
	return articles, rows.Err()
}

func rowApplied(res sql.Result) (bool, error) {
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

func scanArticle(scanner interface{ Scan(dest ...any) error }) (*Article, error) {
	var (
		id             int64
		documentID     int64
		reviewStatus   string
		decision       string
		finalScore     float64
		editorialScore float64
		scoresJSON     sql.NullString
		justification  sql.NullString
		judgedBy       sql.NullString
		judgedAtRaw    sql.NullString
		category       sql.NullString
		subcategory    sql.NullString
		title          sql.NullString
		titleKey       sql.NullString
		body           sql.NullString
		excerpt        sql.NullString
		tagsJSON       sql.NullString
		generatedBy    sql.NullString
		checklistJSON  sql.NullString
		reviewComments sql.NullString
		revisedBy      sql.NullString
		publishing     sql.NullString
		externalPostID sql.NullInt64
		publishedRaw   sql.NullString
		highlight      sql.NullString
		audioPath      sql.NullString
		needsReview    sql.NullInt64
		reviewReason   sql.NullString
		errorMessage   sql.NullString
		createdRaw     sql.NullString
		updatedRaw     sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&documentID,
		&reviewStatus,
		&decision,
		&finalScore,
		&editorialScore,
		&scoresJSON,
		&justification,
		&judgedBy,
		&judgedAtRaw,
		&category,
		&subcategory,
		&title,
		&titleKey,
		&body,
		&excerpt,
		&tagsJSON,
		&generatedBy,
		&checklistJSON,
		&reviewComments,
		&revisedBy,
		&publishing,
		&externalPostID,
		&publishedRaw,
		&highlight,
		&audioPath,
		&needsReview,
		&reviewReason,
		&errorMessage,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	article := &Article{
		ID:             id,
		DocumentID:     documentID,
		ReviewStatus:   ReviewStatus(reviewStatus),
		Decision:       Decision(decision),
		FinalScore:     finalScore,
		EditorialScore: editorialScore,
		ScoresJSON:     scoresJSON.String,
		Justification:  justification.String,
		JudgedBy:       judgedBy.String,
		Category:       category.String,
		Subcategory:    subcategory.String,
		Title:          title.String,
		TitleKey:       titleKey.String,
		Body:           body.String,
		Excerpt:        excerpt.String,
		TagsJSON:       tagsJSON.String,
		GeneratedBy:    generatedBy.String,
		ChecklistJSON:  checklistJSON.String,
		ReviewComments: reviewComments.String,
		RevisedBy:      revisedBy.String,
		Highlight:      Highlight(highlight.String),
		AudioPath:      audioPath.String,
		ReviewReason:   reviewReason.String,
		ErrorMessage:   errorMessage.String,
	}
	if publishing.Valid {
		article.PublishingStatus = PublishingStatus(publishing.String)
	} else {
		article.PublishingStatus = PublishingPending
	}
	if externalPostID.Valid {
		article.ExternalPostID = externalPostID.Int64
	}
	if needsReview.Valid {
		article.NeedsReview = needsReview.Int64 != 0
	}
	if judgedAtRaw.Valid {
		if judged, err := parseTimeString(judgedAtRaw.String); err == nil {
			article.JudgedAt = &judged
		}
	}
	if publishedRaw.Valid {
		if published, err := parseTimeString(publishedRaw.String); err == nil {
			article.PublishedAt = &published
		}
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		article.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		article.UpdatedAt = updated
	}
	return article, nil
}
