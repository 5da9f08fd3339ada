package media

import (
	"context"
	"errors"
	"os"
	"testing"

	"newswire/internal/config"
	"newswire/internal/store"
	"newswire/internal/testsupport"
)

type fakeTTS struct {
	audio []byte
	fail  error
	calls int
}

func (f *fakeTTS) Synthesize(context.Context, string) ([]byte, error) {
	f.calls++
	if f.fail != nil {
		return nil, f.fail
	}
	return f.audio, nil
}

func audioConfig() config.Audio {
	return config.Audio{Enabled: true, Highlights: []string{"BREAKING", "FEATURED"}}
}

func seedHighlighted(t *testing.T, st *store.Store, url string, postID int64, tier store.Highlight) *store.Article {
	t.Helper()
	doc := testsupport.SeedDocument(t, st, "portal", url)
	article := testsupport.SeedJudged(t, st, doc, store.DecisionWrite, 8, 7)
	article = testsupport.AdvanceGenerated(t, st, article)
	article = testsupport.AdvanceRevised(t, st, article, true)
	article = testsupport.AdvancePublished(t, st, article, postID)
	if err := st.SetHighlight(context.Background(), article.ID, tier); err != nil {
		t.Fatalf("seed highlight: %v", err)
	}
	return article
}

func TestProcessWritesAudioFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	article := seedHighlighted(t, st, "https://portal.example/a", 101, store.HighlightBreaking)

	tts := &fakeTTS{audio: []byte("mp3-bytes")}
	handler := NewHandler(st, tts, audioConfig(), cfg.Paths.MediaDir, nil)

	eligible, err := handler.Eligible(context.Background(), 10)
	if err != nil || len(eligible) != 1 {
		t.Fatalf("eligible = %d err = %v", len(eligible), err)
	}
	if err := handler.Process(context.Background(), eligible[0]); err != nil {
		t.Fatalf("Process: %v", err)
	}

	updated, _ := st.GetArticle(context.Background(), article.ID)
	if updated.AudioPath == "" {
		t.Fatal("audio path not recorded")
	}
	data, err := os.ReadFile(updated.AudioPath)
	if err != nil || string(data) != "mp3-bytes" {
		t.Fatalf("audio file = %q err = %v", data, err)
	}

	// The article leaves the eligibility set once audio exists.
	eligible, _ = handler.Eligible(context.Background(), 10)
	if len(eligible) != 0 {
		t.Fatalf("eligible after synthesis = %d", len(eligible))
	}
}

func TestEligibleClearsStaleAudio(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	article := seedHighlighted(t, st, "https://portal.example/b", 102, store.HighlightFeatured)
	if err := st.SetAudioPath(context.Background(), article.ID, "/tmp/old.mp3"); err != nil {
		t.Fatalf("seed audio path: %v", err)
	}
	if _, err := st.ClearHighlights(context.Background()); err != nil {
		t.Fatalf("clear highlights: %v", err)
	}

	handler := NewHandler(st, &fakeTTS{}, audioConfig(), cfg.Paths.MediaDir, nil)
	if _, err := handler.Eligible(context.Background(), 10); err != nil {
		t.Fatalf("Eligible: %v", err)
	}

	updated, _ := st.GetArticle(context.Background(), article.ID)
	if updated.AudioPath != "" {
		t.Fatalf("stale audio path kept: %q", updated.AudioPath)
	}
}

func TestEligibleRespectsConfiguredTiers(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	seedHighlighted(t, st, "https://portal.example/c", 103, store.HighlightFeatured)

	audio := audioConfig()
	audio.Highlights = []string{"breaking"}
	handler := NewHandler(st, &fakeTTS{}, audio, cfg.Paths.MediaDir, nil)

	eligible, err := handler.Eligible(context.Background(), 10)
	if err != nil || len(eligible) != 0 {
		t.Fatalf("featured article must not be eligible: %d err = %v", len(eligible), err)
	}
}

func TestProcessSynthesisFailureIsRowFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	article := seedHighlighted(t, st, "https://portal.example/d", 104, store.HighlightBreaking)

	sentinel := errors.New("tts unreachable")
	handler := NewHandler(st, &fakeTTS{fail: sentinel}, audioConfig(), cfg.Paths.MediaDir, nil)

	if err := handler.Process(context.Background(), article); !errors.Is(err, sentinel) {
		t.Fatalf("expected synthesis error, got %v", err)
	}
	updated, _ := st.GetArticle(context.Background(), article.ID)
	if updated.AudioPath != "" {
		t.Fatalf("audio path set on failure: %q", updated.AudioPath)
	}
	// The row stays eligible for the next pass.
	eligible, _ := handler.Eligible(context.Background(), 10)
	if len(eligible) != 1 {
		t.Fatalf("eligible after failure = %d", len(eligible))
	}
}
