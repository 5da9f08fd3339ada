package revision

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"newswire/internal/config"
	"newswire/internal/llm"
	"newswire/internal/store"
	"newswire/internal/testsupport"
)

func reviewServer(t *testing.T, payload string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"choices":[{"message":{"content":%q},"finish_reason":"stop"}]}`, payload)
	}))
	t.Cleanup(server.Close)
	return server
}

func newRouter(t *testing.T, baseURL string) *llm.Router {
	t.Helper()
	t.Setenv("TEST_REVISE_KEY", "k")
	cfg := config.Default()
	cfg.Providers.Revise = []config.Provider{{
		Name: "fake", BaseURL: baseURL, Model: "fake-model",
		APIKeyEnv: "TEST_REVISE_KEY", MaxAttempts: 1,
	}}
	return llm.NewRouter(&cfg, nil, llm.WithSleeper(func(time.Duration) {}))
}

func seedGenerated(t *testing.T, st *store.Store, url string) *store.Article {
	t.Helper()
	doc := testsupport.SeedDocument(t, st, "portal", url)
	article := testsupport.SeedJudged(t, st, doc, store.DecisionWrite, 8, 7)
	return testsupport.AdvanceGenerated(t, st, article)
}

func TestProcessApprovesCleanReview(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	article := seedGenerated(t, st, "https://portal.example/a")

	payload := `{"body":"Texto revisado do artigo.","checklist":{"fact_consistency":true,"tone":true},"comments":"Ajustei a concordancia no segundo paragrafo.","category":"economia","subcategory":"infraestrutura"}`
	handler := NewHandler(st, newRouter(t, reviewServer(t, payload).URL), config.Revision{}, nil)

	eligible, err := handler.Eligible(context.Background(), 10)
	if err != nil || len(eligible) != 1 {
		t.Fatalf("eligible = %d err = %v", len(eligible), err)
	}
	if err := handler.Process(context.Background(), eligible[0]); err != nil {
		t.Fatalf("Process: %v", err)
	}

	updated, _ := st.GetArticle(context.Background(), article.ID)
	if updated.ReviewStatus != store.ReviewSucceeded {
		t.Fatalf("review_status = %s, want succeeded", updated.ReviewStatus)
	}
	if updated.Body != "Texto revisado do artigo." {
		t.Fatalf("body = %q", updated.Body)
	}
	if updated.Subcategory != "infraestrutura" {
		t.Fatalf("subcategory = %q", updated.Subcategory)
	}
	if checklist := updated.Checklist(); !checklist["fact_consistency"] {
		t.Fatalf("checklist = %v", checklist)
	}
	if updated.NeedsReview {
		t.Fatal("commented review must not be flagged")
	}
}

func TestProcessStrictModeHoldsViolations(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStrictRevision())
	st := testsupport.MustOpenStore(t, cfg)
	article := seedGenerated(t, st, "https://portal.example/b")

	payload := `{"body":"","checklist":{"fact_consistency":false,"tone":true},"comments":"Numeros nao batem com a fonte.","category":"","subcategory":""}`
	handler := NewHandler(st, newRouter(t, reviewServer(t, payload).URL), cfg.Revision, nil)

	if err := handler.Process(context.Background(), article); err != nil {
		t.Fatalf("Process: %v", err)
	}
	updated, _ := st.GetArticle(context.Background(), article.ID)
	if updated.ReviewStatus != store.ReviewRevised {
		t.Fatalf("review_status = %s, want revised (held)", updated.ReviewStatus)
	}
	// The held article must not reach the publishing set.
	pending, err := st.ForPublishing(context.Background(), 10)
	if err != nil || len(pending) != 0 {
		t.Fatalf("publishing set = %d err = %v", len(pending), err)
	}
}

func TestProcessLenientModeRecordsViolationsAndProceeds(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	article := seedGenerated(t, st, "https://portal.example/c")

	payload := `{"body":"Texto.","checklist":{"fact_consistency":false},"comments":"Problema registrado.","category":"","subcategory":""}`
	handler := NewHandler(st, newRouter(t, reviewServer(t, payload).URL), config.Revision{Strict: false}, nil)

	if err := handler.Process(context.Background(), article); err != nil {
		t.Fatalf("Process: %v", err)
	}
	updated, _ := st.GetArticle(context.Background(), article.ID)
	if updated.ReviewStatus != store.ReviewSucceeded {
		t.Fatalf("review_status = %s, want succeeded", updated.ReviewStatus)
	}
	if checklist := updated.Checklist(); checklist["fact_consistency"] {
		t.Fatal("violation must stay recorded")
	}
}

func TestProcessFlagsRubberStampReview(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	article := seedGenerated(t, st, "https://portal.example/d")

	payload := `{"body":"Texto.","checklist":{"fact_consistency":true,"tone":true,"structure":true},"comments":"","category":"","subcategory":""}`
	handler := NewHandler(st, newRouter(t, reviewServer(t, payload).URL), config.Revision{}, nil)

	if err := handler.Process(context.Background(), article); err != nil {
		t.Fatalf("Process: %v", err)
	}
	updated, _ := st.GetArticle(context.Background(), article.ID)
	if !updated.NeedsReview {
		t.Fatal("all-true checklist without comments must be flagged")
	}
	if updated.ReviewStatus != store.ReviewSucceeded {
		t.Fatalf("flag must not block: review_status = %s", updated.ReviewStatus)
	}
}

func TestProcessMissingChecklistFailsRow(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	article := seedGenerated(t, st, "https://portal.example/e")

	payload := `{"body":"Texto.","comments":"sem checklist","category":"","subcategory":""}`
	handler := NewHandler(st, newRouter(t, reviewServer(t, payload).URL), config.Revision{}, nil)

	if err := handler.Process(context.Background(), article); err == nil {
		t.Fatal("expected row failure for missing checklist")
	}
	updated, _ := st.GetArticle(context.Background(), article.ID)
	if updated.ReviewStatus != store.ReviewFailed {
		t.Fatalf("review_status = %s, want failed", updated.ReviewStatus)
	}
}
