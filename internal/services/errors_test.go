package services_test

import (
	"errors"
	"strings"
	"testing"

	"newswire/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrTransport, "judging", "judge call", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrTransport) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"judging", "judge call", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestClassification(t *testing.T) {
	rowErr := services.Wrap(services.ErrContentQuality, "generation", "draft", "source too short", nil)
	if !services.IsRowFailure(rowErr) {
		t.Fatalf("content quality should be a row failure: %v", rowErr)
	}
	if services.IsAbort(rowErr) {
		t.Fatalf("content quality must not abort the batch: %v", rowErr)
	}

	abortErr := services.Wrap(services.ErrInfrastructure, "store", "open", "database locked", nil)
	if !services.IsAbort(abortErr) {
		t.Fatalf("infrastructure must abort: %v", abortErr)
	}
	if services.IsRowFailure(abortErr) {
		t.Fatalf("infrastructure is not a row failure: %v", abortErr)
	}

	if services.IsRowFailure(nil) {
		t.Fatal("nil error is not a failure")
	}
}

func TestReasonCode(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{services.Wrap(services.ErrTransport, "", "", "timeout", nil), "transport"},
		{services.Wrap(services.ErrContentQuality, "", "", "low fidelity", nil), "content_quality"},
		{services.Wrap(services.ErrConfiguration, "", "", "bad provider", nil), "configuration"},
		{errors.New("plain"), "unclassified"},
		{nil, ""},
	}
	for _, tc := range cases {
		if got := services.ReasonCode(tc.err); got != tc.want {
			t.Fatalf("ReasonCode(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestDetailsStripsMarker(t *testing.T) {
	err := services.Wrap(services.ErrContentQuality, "generation", "fidelity", "overlap below minimum", nil)
	details := services.Details(err)
	if strings.Contains(details.Message, "content quality failure") {
		t.Fatalf("marker prefix should be stripped: %q", details.Message)
	}
	if !strings.Contains(details.Message, "overlap below minimum") {
		t.Fatalf("message lost detail: %q", details.Message)
	}
	if details.Reason != "content_quality" {
		t.Fatalf("unexpected reason %q", details.Reason)
	}
}
