package store_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"newswire/internal/store"
)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.OpenPath(filepath.Join(t.TempDir(), "newswire.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedDocument(t *testing.T, s *store.Store, hash, title string) *store.SourceDocument {
	t.Helper()
	doc, created, err := s.InsertDocument(context.Background(), &store.SourceDocument{
		Source:  "rss-test",
		URL:     "https://example.com/" + hash,
		URLHash: hash,
		Title:   title,
		Content: "corpo do artigo de teste com detalhe suficiente",
	})
	if err != nil {
		t.Fatalf("insert document: %v", err)
	}
	if !created {
		t.Fatalf("expected new document for hash %s", hash)
	}
	return doc
}

func seedJudged(t *testing.T, s *store.Store, doc *store.SourceDocument, decision store.Decision, final, editorial float64) *store.Article {
	t.Helper()
	judgedAt := time.Now().UTC()
	article, err := s.CreateJudged(context.Background(), &store.Article{
		DocumentID:     doc.ID,
		Decision:       decision,
		FinalScore:     final,
		EditorialScore: editorial,
		Justification:  "test verdict",
		JudgedBy:       "groq:llama",
		JudgedAt:       &judgedAt,
	})
	if err != nil {
		t.Fatalf("create judged: %v", err)
	}
	return article
}

func TestInsertDocumentDeduplicates(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	first, created, err := s.InsertDocument(ctx, &store.SourceDocument{
		Source:  "rss-test",
		URL:     "https://example.com/story",
		URLHash: "hash-1",
		Title:   "Original title",
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if !created {
		t.Fatal("first insert should create")
	}

	second, created, err := s.InsertDocument(ctx, &store.SourceDocument{
		Source:  "rss-test",
		URL:     "https://example.com/story?utm_source=x",
		URLHash: "hash-1",
		Title:   "Replayed title",
	})
	if err != nil {
		t.Fatalf("replay insert: %v", err)
	}
	if created {
		t.Fatal("replay must not create a second row")
	}
	if second.ID != first.ID {
		t.Fatalf("replay returned different row: %d vs %d", second.ID, first.ID)
	}
	if second.Title != "Original title" {
		t.Fatalf("replay modified stored row: %q", second.Title)
	}
}

func TestDocumentsForJudgingExcludesJudged(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	docA := seedDocument(t, s, "hash-a", "Story A")
	docB := seedDocument(t, s, "hash-b", "Story B")
	seedJudged(t, s, docA, store.DecisionWrite, 7, 6)

	pending, err := s.DocumentsForJudging(ctx, 10)
	if err != nil {
		t.Fatalf("documents for judging: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != docB.ID {
		t.Fatalf("expected only unjudged document B, got %+v", pending)
	}
}

func TestGenerationEligibilityAndOrdering(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	low := seedJudged(t, s, seedDocument(t, s, "h1", "Low score"), store.DecisionWrite, 4, 9)
	mid := seedJudged(t, s, seedDocument(t, s, "h2", "Mid"), store.DecisionWrite, 7, 5)
	top := seedJudged(t, s, seedDocument(t, s, "h3", "Top"), store.DecisionWrite, 8, 8)
	seedJudged(t, s, seedDocument(t, s, "h4", "Skipped"), store.DecisionSkip, 9, 9)

	eligible, err := s.ForGeneration(ctx, 6.0, 10)
	if err != nil {
		t.Fatalf("for generation: %v", err)
	}
	if len(eligible) != 2 {
		t.Fatalf("expected 2 eligible, got %d", len(eligible))
	}
	if eligible[0].ID != top.ID || eligible[1].ID != mid.ID {
		t.Fatalf("wrong order: got %d then %d", eligible[0].ID, eligible[1].ID)
	}
	_ = low
}

func TestMarkGeneratedIsGuarded(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	article := seedJudged(t, s, seedDocument(t, s, "h1", "Story"), store.DecisionWrite, 7, 7)
	article.Title = "Generated headline"
	article.TitleKey = "generated headline"
	article.Body = "draft body"
	article.GeneratedBy = "openrouter:deepseek"

	applied, err := s.MarkGenerated(ctx, article)
	if err != nil {
		t.Fatalf("mark generated: %v", err)
	}
	if !applied {
		t.Fatal("first transition should apply")
	}

	applied, err = s.MarkGenerated(ctx, article)
	if err != nil {
		t.Fatalf("second mark generated: %v", err)
	}
	if applied {
		t.Fatal("transition must not apply twice")
	}

	stored, err := s.GetArticle(ctx, article.ID)
	if err != nil {
		t.Fatalf("get article: %v", err)
	}
	if stored.ReviewStatus != store.ReviewGenerated {
		t.Fatalf("status = %s, want generated", stored.ReviewStatus)
	}
}

func TestRevisionAndPublishingChain(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	article := seedJudged(t, s, seedDocument(t, s, "h1", "Story"), store.DecisionWrite, 8, 8)
	article.Title = "Headline"
	article.TitleKey = "headline"
	article.Body = "draft"
	if _, err := s.MarkGenerated(ctx, article); err != nil {
		t.Fatalf("mark generated: %v", err)
	}

	article.Body = "revised body"
	article.ChecklistJSON = `{"facts_verified":true,"tone_ok":false}`
	article.ReviewComments = "tightened the lede"
	applied, err := s.MarkRevised(ctx, article, true)
	if err != nil {
		t.Fatalf("mark revised: %v", err)
	}
	if !applied {
		t.Fatal("revision transition should apply")
	}

	ready, err := s.ForPublishing(ctx, 10)
	if err != nil {
		t.Fatalf("for publishing: %v", err)
	}
	if len(ready) != 1 || ready[0].ID != article.ID {
		t.Fatalf("expected article ready for publishing, got %+v", ready)
	}

	publishedAt := time.Now().UTC()
	applied, err = s.MarkPublished(ctx, article.ID, 321, publishedAt)
	if err != nil {
		t.Fatalf("mark published: %v", err)
	}
	if !applied {
		t.Fatal("publish transition should apply")
	}

	ready, err = s.ForPublishing(ctx, 10)
	if err != nil {
		t.Fatalf("for publishing after publish: %v", err)
	}
	if len(ready) != 0 {
		t.Fatalf("published article still eligible: %+v", ready)
	}

	stored, err := s.GetArticle(ctx, article.ID)
	if err != nil {
		t.Fatalf("get article: %v", err)
	}
	if !stored.IsPublished() || stored.ExternalPostID != 321 {
		t.Fatalf("unexpected publish state: %+v", stored)
	}
	if stored.Checklist()["facts_verified"] != true {
		t.Fatal("checklist lost in round trip")
	}
}

func TestStrictRevisionStopsBeforePublishing(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	article := seedJudged(t, s, seedDocument(t, s, "h1", "Story"), store.DecisionWrite, 8, 8)
	article.Title = "Headline"
	article.Body = "draft"
	if _, err := s.MarkGenerated(ctx, article); err != nil {
		t.Fatalf("mark generated: %v", err)
	}

	if _, err := s.MarkRevised(ctx, article, false); err != nil {
		t.Fatalf("mark revised: %v", err)
	}

	ready, err := s.ForPublishing(ctx, 10)
	if err != nil {
		t.Fatalf("for publishing: %v", err)
	}
	if len(ready) != 0 {
		t.Fatalf("unapproved article must not publish: %+v", ready)
	}

	stored, _ := s.GetArticle(ctx, article.ID)
	if stored.ReviewStatus != store.ReviewRevised {
		t.Fatalf("status = %s, want revised", stored.ReviewStatus)
	}
}

func TestRetryFailedRestoresStageEntry(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	noBody := seedJudged(t, s, seedDocument(t, s, "h1", "A"), store.DecisionWrite, 8, 8)
	if _, err := s.MarkReviewFailed(ctx, noBody.ID, store.ReviewJudged, "provider exhausted"); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	withBody := seedJudged(t, s, seedDocument(t, s, "h2", "B"), store.DecisionWrite, 8, 8)
	withBody.Title = "B headline"
	withBody.Body = "draft"
	if _, err := s.MarkGenerated(ctx, withBody); err != nil {
		t.Fatalf("mark generated: %v", err)
	}
	if _, err := s.MarkReviewFailed(ctx, withBody.ID, store.ReviewGenerated, "revise exhausted"); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	affected, err := s.RetryFailed(ctx)
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if affected != 2 {
		t.Fatalf("affected = %d, want 2", affected)
	}

	a, _ := s.GetArticle(ctx, noBody.ID)
	if a.ReviewStatus != store.ReviewJudged {
		t.Fatalf("no-body article status = %s, want judged", a.ReviewStatus)
	}
	b, _ := s.GetArticle(ctx, withBody.ID)
	if b.ReviewStatus != store.ReviewGenerated {
		t.Fatalf("drafted article status = %s, want generated", b.ReviewStatus)
	}
	if a.ErrorMessage != "" || b.ErrorMessage != "" {
		t.Fatal("retry should clear error messages")
	}
}

func TestCurationQueriesAndHighlights(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	article := seedJudged(t, s, seedDocument(t, s, "h1", "Story"), store.DecisionWrite, 9, 9)
	article.Title = "Headline"
	article.Body = "draft"
	if _, err := s.MarkGenerated(ctx, article); err != nil {
		t.Fatalf("mark generated: %v", err)
	}
	if _, err := s.MarkRevised(ctx, article, true); err != nil {
		t.Fatalf("mark revised: %v", err)
	}
	if _, err := s.MarkPublished(ctx, article.ID, 11, time.Now().UTC()); err != nil {
		t.Fatalf("mark published: %v", err)
	}

	window, err := s.ForCuration(ctx, time.Now().UTC().Add(-time.Hour))
	if err != nil {
		t.Fatalf("for curation: %v", err)
	}
	if len(window) != 1 {
		t.Fatalf("expected 1 article in window, got %d", len(window))
	}

	old, err := s.ForCuration(ctx, time.Now().UTC().Add(time.Hour))
	if err != nil {
		t.Fatalf("for curation future cutoff: %v", err)
	}
	if len(old) != 0 {
		t.Fatal("article outside window should be excluded")
	}

	if err := s.SetHighlight(ctx, article.ID, store.HighlightBreaking); err != nil {
		t.Fatalf("set highlight: %v", err)
	}
	forAudio, err := s.ForAudio(ctx, []store.Highlight{store.HighlightBreaking, store.HighlightFeatured}, 10)
	if err != nil {
		t.Fatalf("for audio: %v", err)
	}
	if len(forAudio) != 1 {
		t.Fatalf("expected highlighted article eligible for audio, got %d", len(forAudio))
	}

	if err := s.SetAudioPath(ctx, article.ID, "/media/story.mp3"); err != nil {
		t.Fatalf("set audio path: %v", err)
	}
	forAudio, _ = s.ForAudio(ctx, []store.Highlight{store.HighlightBreaking}, 10)
	if len(forAudio) != 0 {
		t.Fatal("article with audio must not be re-synthesized")
	}

	cleared, err := s.ClearHighlights(ctx)
	if err != nil {
		t.Fatalf("clear highlights: %v", err)
	}
	if cleared != 1 {
		t.Fatalf("cleared = %d, want 1", cleared)
	}
	stale, err := s.ClearStaleAudio(ctx)
	if err != nil {
		t.Fatalf("clear stale audio: %v", err)
	}
	if stale != 1 {
		t.Fatalf("stale audio cleared = %d, want 1", stale)
	}
}

func TestFindByTitleKeyFlagsCollisions(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	first := seedJudged(t, s, seedDocument(t, s, "h1", "Story A"), store.DecisionWrite, 8, 8)
	first.Title = "Governo anuncia plano"
	first.TitleKey = "governo anuncia plano"
	first.Body = "body"
	if _, err := s.MarkGenerated(ctx, first); err != nil {
		t.Fatalf("mark generated: %v", err)
	}

	second := seedJudged(t, s, seedDocument(t, s, "h2", "Story B"), store.DecisionWrite, 8, 8)
	match, err := s.FindByTitleKey(ctx, "governo anuncia plano", second.ID)
	if err != nil {
		t.Fatalf("find by title key: %v", err)
	}
	if match == nil || match.ID != first.ID {
		t.Fatalf("expected collision with first article, got %+v", match)
	}

	if err := s.FlagNeedsReview(ctx, second.ID, "title collision"); err != nil {
		t.Fatalf("flag needs review: %v", err)
	}
	flagged, _ := s.GetArticle(ctx, second.ID)
	if !flagged.NeedsReview || flagged.ReviewReason != "title collision" {
		t.Fatalf("needs_review not set: %+v", flagged)
	}
}

func TestStageLogRoundTrip(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	doc := seedDocument(t, s, "h1", "Story")
	article := seedJudged(t, s, doc, store.DecisionWrite, 7, 7)

	entries := []*store.StageLogEntry{
		{DocumentID: doc.ID, ArticleID: article.ID, Stage: "judging", Provider: "groq", Model: "llama", Outcome: store.OutcomeFailure, Detail: "rate limited", LatencyMS: 900, CorrelationID: "req-1"},
		{DocumentID: doc.ID, ArticleID: article.ID, Stage: "judging", Provider: "openrouter", Model: "deepseek", Outcome: store.OutcomeSuccess, LatencyMS: 1200, CorrelationID: "req-1"},
	}
	for _, entry := range entries {
		if err := s.AppendStageLog(ctx, entry); err != nil {
			t.Fatalf("append stage log: %v", err)
		}
	}

	trail, err := s.StageLogForArticle(ctx, article.ID)
	if err != nil {
		t.Fatalf("stage log for article: %v", err)
	}
	if len(trail) != 2 {
		t.Fatalf("trail length = %d, want 2", len(trail))
	}
	if trail[0].Outcome != store.OutcomeFailure || trail[1].Outcome != store.OutcomeSuccess {
		t.Fatalf("trail order wrong: %+v", trail)
	}
	if trail[0].Provider != "groq" || trail[1].Provider != "openrouter" {
		t.Fatalf("providers not recorded: %+v", trail)
	}
}

func TestStatsAndReset(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	seedJudged(t, s, seedDocument(t, s, "h1", "A"), store.DecisionWrite, 7, 7)
	seedJudged(t, s, seedDocument(t, s, "h2", "B"), store.DecisionSkip, 2, 2)

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Documents != 2 {
		t.Fatalf("documents = %d, want 2", stats.Documents)
	}
	if stats.ReviewCounts[store.ReviewJudged] != 2 {
		t.Fatalf("judged = %d, want 2", stats.ReviewCounts[store.ReviewJudged])
	}

	if err := s.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	stats, err = s.Stats(ctx)
	if err != nil {
		t.Fatalf("stats after reset: %v", err)
	}
	if stats.Documents != 0 {
		t.Fatalf("documents after reset = %d, want 0", stats.Documents)
	}
}
