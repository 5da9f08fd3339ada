package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"newswire/internal/services"
)

func TestPrettyHandlerRendersComponentAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.LevelInfo)
	logger := slog.New(newPrettyHandler(&buf, levelVar, false))

	logger = NewComponentLogger(logger, "judging")
	logger.Info("scored article", Int64(FieldItemID, 42), Float64("final_score", 7.25))

	line := buf.String()
	if !strings.Contains(line, "judging: scored article") {
		t.Fatalf("expected component prefix, got %q", line)
	}
	if !strings.Contains(line, "item_id=42") {
		t.Fatalf("expected item_id attr, got %q", line)
	}
	if !strings.Contains(line, "final_score=7.25") {
		t.Fatalf("expected final_score attr, got %q", line)
	}
}

func TestPrettyHandlerQuotesValuesWithSpaces(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.LevelInfo)
	logger := slog.New(newPrettyHandler(&buf, levelVar, false))

	logger.Warn("provider failed", String("detail", "rate limit hit"))

	line := buf.String()
	if !strings.Contains(line, `detail="rate limit hit"`) {
		t.Fatalf("expected quoted value, got %q", line)
	}
	if !strings.Contains(line, "WARN") {
		t.Fatalf("expected WARN level label, got %q", line)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"unknown": slog.LevelInfo,
	}
	for input, want := range cases {
		if got := parseLevel(input); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestWithContextAddsFields(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.LevelInfo)
	logger := slog.New(newPrettyHandler(&buf, levelVar, false))

	ctx := services.WithItemID(context.Background(), 7)
	ctx = services.WithStage(ctx, "generation")
	ctx = services.WithRequestID(ctx, "req-123")

	WithContext(ctx, logger).Info("drafting")

	line := buf.String()
	for _, fragment := range []string{"item_id=7", "stage=generation", "correlation_id=req-123"} {
		if !strings.Contains(line, fragment) {
			t.Fatalf("expected %q in %q", fragment, line)
		}
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}
