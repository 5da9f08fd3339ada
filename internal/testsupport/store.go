package testsupport

import (
	"context"
	"testing"
	"time"

	"newswire/internal/config"
	"newswire/internal/store"
)

// MustOpenStore opens a store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// SeedDocument inserts a fresh source document.
func SeedDocument(t testing.TB, st *store.Store, source, url string) *store.SourceDocument {
	t.Helper()

	published := time.Now().UTC().Add(-2 * time.Hour)
	doc, created, err := st.InsertDocument(context.Background(), &store.SourceDocument{
		Source:      source,
		URL:         url,
		URLHash:     url,
		Title:       "Titulo original",
		Content:     "Governo anuncia investimento de dois bilhoes em infraestrutura de transporte urbano nas capitais do nordeste a partir do proximo trimestre.",
		PublishedAt: &published,
		FetchedAt:   time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("seed document: %v", err)
	}
	if !created {
		t.Fatalf("seed document: url %q already present", url)
	}
	return doc
}

// SeedJudged creates a judged article for the document with the given
// decision and scores.
func SeedJudged(t testing.TB, st *store.Store, doc *store.SourceDocument, decision store.Decision, finalScore, editorialScore float64) *store.Article {
	t.Helper()

	now := time.Now().UTC()
	article := &store.Article{
		DocumentID:     doc.ID,
		Decision:       decision,
		FinalScore:     finalScore,
		EditorialScore: editorialScore,
		Justification:  "seed",
		JudgedBy:       "seed:model",
		JudgedAt:       &now,
	}
	if err := article.SetScores(store.Scores{Relevance: finalScore, Impact: editorialScore}); err != nil {
		t.Fatalf("seed scores: %v", err)
	}
	created, err := st.CreateJudged(context.Background(), article)
	if err != nil {
		t.Fatalf("seed judged: %v", err)
	}
	return created
}

// AdvanceGenerated moves a judged article to generated with a stock draft.
func AdvanceGenerated(t testing.TB, st *store.Store, article *store.Article) *store.Article {
	t.Helper()

	article.Title = "Investimento bilionario em transporte"
	article.TitleKey = "investimento bilionario em transporte"
	article.Body = "Governo anuncia investimento de dois bilhoes em infraestrutura de transporte urbano."
	article.Excerpt = "Investimento em transporte urbano."
	article.GeneratedBy = "seed:model"
	applied, err := st.MarkGenerated(context.Background(), article)
	if err != nil || !applied {
		t.Fatalf("advance generated: applied=%v err=%v", applied, err)
	}
	return mustGet(t, st, article.ID)
}

// AdvanceRevised moves a generated article through revision.
func AdvanceRevised(t testing.TB, st *store.Store, article *store.Article, approved bool) *store.Article {
	t.Helper()

	article.ChecklistJSON = `{"fact_check":true,"tone":true}`
	article.ReviewComments = "ajustes menores"
	article.RevisedBy = "seed:model"
	applied, err := st.MarkRevised(context.Background(), article, approved)
	if err != nil || !applied {
		t.Fatalf("advance revised: applied=%v err=%v", applied, err)
	}
	return mustGet(t, st, article.ID)
}

// AdvancePublished records a successful publish for the article.
func AdvancePublished(t testing.TB, st *store.Store, article *store.Article, postID int64) *store.Article {
	t.Helper()

	applied, err := st.MarkPublished(context.Background(), article.ID, postID, time.Now().UTC())
	if err != nil || !applied {
		t.Fatalf("advance published: applied=%v err=%v", applied, err)
	}
	return mustGet(t, st, article.ID)
}

func mustGet(t testing.TB, st *store.Store, id int64) *store.Article {
	t.Helper()

	article, err := st.GetArticle(context.Background(), id)
	if err != nil || article == nil {
		t.Fatalf("get article %d: %v", id, err)
	}
	return article
}
