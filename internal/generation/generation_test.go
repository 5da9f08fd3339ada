package generation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"newswire/internal/config"
	"newswire/internal/llm"
	"newswire/internal/services"
	"newswire/internal/store"
	"newswire/internal/testsupport"
)

func looseGates() config.Generation {
	return config.Generation{MinSourceChars: 50, MinOverlapCount: 3, MinOverlapRatio: 0.1}
}

func draftServer(t *testing.T, payload string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"choices":[{"message":{"content":%q},"finish_reason":"stop"}]}`, payload)
	}))
	t.Cleanup(server.Close)
	return server
}

func newRouter(t *testing.T, baseURL string) *llm.Router {
	t.Helper()
	t.Setenv("TEST_GENERATE_KEY", "k")
	cfg := config.Default()
	cfg.Providers.Generate = []config.Provider{{
		Name: "fake", BaseURL: baseURL, Model: "fake-model",
		APIKeyEnv: "TEST_GENERATE_KEY", MaxAttempts: 1,
	}}
	return llm.NewRouter(&cfg, nil, llm.WithSleeper(func(time.Duration) {}))
}

const faithfulDraft = `{"title":"Investimento bilionario em transporte","body":"Governo anuncia investimento de dois bilhoes em infraestrutura de transporte urbano nas capitais do nordeste.","excerpt":"Investimento em transporte.","tags":["economia","transporte"],"category":"economia"}`

func TestProcessGeneratesDraft(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	doc := testsupport.SeedDocument(t, st, "portal", "https://portal.example/a")
	article := testsupport.SeedJudged(t, st, doc, store.DecisionWrite, 8, 7)

	server := draftServer(t, faithfulDraft)
	handler := NewHandler(st, newRouter(t, server.URL), looseGates(), 3.0, nil)

	eligible, err := handler.Eligible(context.Background(), 10)
	if err != nil || len(eligible) != 1 {
		t.Fatalf("eligible = %d err = %v", len(eligible), err)
	}
	if err := handler.Process(context.Background(), eligible[0]); err != nil {
		t.Fatalf("Process: %v", err)
	}

	updated, err := st.GetArticle(context.Background(), article.ID)
	if err != nil || updated == nil {
		t.Fatalf("get article: %v", err)
	}
	if updated.ReviewStatus != store.ReviewGenerated {
		t.Fatalf("review_status = %s", updated.ReviewStatus)
	}
	if updated.Title == "" || updated.Body == "" {
		t.Fatalf("draft not persisted: %+v", updated)
	}
	if updated.TitleKey != "investimento bilionario em transporte" {
		t.Fatalf("title_key = %q", updated.TitleKey)
	}
	if tags := updated.Tags(); len(tags) != 2 || tags[0] != "economia" {
		t.Fatalf("tags = %v", tags)
	}
	if updated.GeneratedBy != "fake:fake-model" {
		t.Fatalf("generated_by = %q", updated.GeneratedBy)
	}

	eligible, err = handler.Eligible(context.Background(), 10)
	if err != nil || len(eligible) != 0 {
		t.Fatalf("eligible after generation = %d err = %v", len(eligible), err)
	}
}

func TestProcessShortSourceIsContentQualityFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	doc := testsupport.SeedDocument(t, st, "portal", "https://portal.example/b")
	article := testsupport.SeedJudged(t, st, doc, store.DecisionWrite, 8, 7)

	gates := looseGates()
	gates.MinSourceChars = 10000
	server := draftServer(t, faithfulDraft)
	handler := NewHandler(st, newRouter(t, server.URL), gates, 3.0, nil)

	err := handler.Process(context.Background(), article)
	if !errors.Is(err, services.ErrContentQuality) {
		t.Fatalf("expected content quality failure, got %v", err)
	}
	updated, _ := st.GetArticle(context.Background(), article.ID)
	if updated.ReviewStatus != store.ReviewFailed {
		t.Fatalf("review_status = %s, want failed", updated.ReviewStatus)
	}
	if !strings.Contains(updated.ErrorMessage, "short_source") {
		t.Fatalf("error_message = %q", updated.ErrorMessage)
	}
}

func TestProcessLowFidelityIsContentQualityFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	doc := testsupport.SeedDocument(t, st, "portal", "https://portal.example/c")
	article := testsupport.SeedJudged(t, st, doc, store.DecisionWrite, 8, 7)

	unrelated := `{"title":"Receita de bolo","body":"Misture farinha acucar ovos e manteiga ate obter massa homogenea entao asse por quarenta minutos.","excerpt":"Receita.","tags":[],"category":"culinaria"}`
	server := draftServer(t, unrelated)
	handler := NewHandler(st, newRouter(t, server.URL), looseGates(), 3.0, nil)

	err := handler.Process(context.Background(), article)
	if !errors.Is(err, services.ErrContentQuality) {
		t.Fatalf("expected content quality failure, got %v", err)
	}
	updated, _ := st.GetArticle(context.Background(), article.ID)
	if !strings.Contains(updated.ErrorMessage, "low_fidelity") {
		t.Fatalf("error_message = %q", updated.ErrorMessage)
	}
}

func TestProcessFlagsTitleCollision(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	first := testsupport.SeedJudged(t, st,
		testsupport.SeedDocument(t, st, "portal", "https://portal.example/d1"),
		store.DecisionWrite, 8, 7)
	testsupport.AdvanceGenerated(t, st, first)

	doc := testsupport.SeedDocument(t, st, "outro", "https://outro.example/d2")
	second := testsupport.SeedJudged(t, st, doc, store.DecisionWrite, 8, 7)

	server := draftServer(t, faithfulDraft)
	handler := NewHandler(st, newRouter(t, server.URL), looseGates(), 3.0, nil)
	if err := handler.Process(context.Background(), second); err != nil {
		t.Fatalf("Process: %v", err)
	}

	updated, _ := st.GetArticle(context.Background(), second.ID)
	if !updated.NeedsReview {
		t.Fatal("expected needs_review flag for colliding title")
	}
	if updated.ReviewStatus != store.ReviewGenerated {
		t.Fatalf("collision must flag, not block: review_status = %s", updated.ReviewStatus)
	}
	firstAgain, _ := st.GetArticle(context.Background(), first.ID)
	if firstAgain.NeedsReview {
		t.Fatal("earlier article must stay unflagged")
	}
}

func TestProcessFlagsNearDuplicateBody(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	gates := looseGates()
	gates.DuplicateSimilarity = 0.9

	first := testsupport.SeedDocument(t, st, "portal", "https://portal.example/dup-a")
	testsupport.SeedJudged(t, st, first, store.DecisionWrite, 8, 7)
	server := draftServer(t, faithfulDraft)
	handler := NewHandler(st, newRouter(t, server.URL), gates, 3.0, nil)

	eligible, err := handler.Eligible(context.Background(), 10)
	if err != nil || len(eligible) != 1 {
		t.Fatalf("eligible = %d err = %v", len(eligible), err)
	}
	if err := handler.Process(context.Background(), eligible[0]); err != nil {
		t.Fatalf("first draft: %v", err)
	}

	// Same body under a different title from another document.
	second := testsupport.SeedDocument(t, st, "portal", "https://portal.example/dup-b")
	article := testsupport.SeedJudged(t, st, second, store.DecisionWrite, 8, 7)
	reworded := strings.Replace(faithfulDraft, "Investimento bilionario em transporte", "Capitais do nordeste recebem aporte", 1)
	rewordedServer := draftServer(t, reworded)
	rewordedHandler := NewHandler(st, newRouter(t, rewordedServer.URL), gates, 3.0, nil)
	if err := rewordedHandler.Process(context.Background(), article); err != nil {
		t.Fatalf("second draft: %v", err)
	}

	flagged, err := st.GetArticle(context.Background(), article.ID)
	if err != nil || flagged == nil {
		t.Fatalf("get article: %v", err)
	}
	if !flagged.NeedsReview || !strings.Contains(flagged.ReviewReason, "similar to article") {
		t.Fatalf("near duplicate not flagged: needs_review=%v reason=%q", flagged.NeedsReview, flagged.ReviewReason)
	}
	// Advancing still happened; the flag is advisory.
	if flagged.ReviewStatus != store.ReviewGenerated {
		t.Fatalf("review_status = %s", flagged.ReviewStatus)
	}
}
