package stage_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"newswire/internal/services"
	"newswire/internal/stage"
)

type fakeHandler struct {
	mu        sync.Mutex
	items     []int
	processed []int
	fail      map[int]error
	limitSeen int
}

func (h *fakeHandler) Name() string { return "fake" }

func (h *fakeHandler) Eligible(_ context.Context, limit int) ([]int, error) {
	h.limitSeen = limit
	return h.items, nil
}

func (h *fakeHandler) Process(_ context.Context, item int) error {
	h.mu.Lock()
	h.processed = append(h.processed, item)
	h.mu.Unlock()
	if err, ok := h.fail[item]; ok {
		return err
	}
	return nil
}

func TestRunCountsRowFailuresWithoutError(t *testing.T) {
	handler := &fakeHandler{
		items: []int{1, 2, 3, 4},
		fail: map[int]error{
			2: services.Wrap(services.ErrContentQuality, "fake", "process", "too short", nil),
			4: services.Wrap(services.ErrTransport, "fake", "process", "timeout", nil),
		},
	}
	result, err := stage.Run(context.Background(), handler, stage.Options{Workers: 2, Limit: 10})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Stage != "fake" {
		t.Fatalf("stage = %q", result.Stage)
	}
	if result.Attempted != 4 || result.Succeeded != 2 || result.Failed != 2 {
		t.Fatalf("counts = %+v", result)
	}
	if handler.limitSeen != 10 {
		t.Fatalf("limit passed through = %d", handler.limitSeen)
	}
}

func TestRunAbortsOnInfrastructureError(t *testing.T) {
	abort := services.Wrap(services.ErrInfrastructure, "fake", "process", "database locked", nil)
	handler := &fakeHandler{
		items: []int{1, 2, 3, 4, 5, 6, 7, 8},
		fail:  map[int]error{1: abort},
	}
	result, err := stage.Run(context.Background(), handler, stage.Options{Workers: 1})
	if err == nil {
		t.Fatal("expected abort error")
	}
	if !errors.Is(err, services.ErrInfrastructure) {
		t.Fatalf("expected infrastructure classification, got %v", err)
	}
	if result.Attempted >= len(handler.items) {
		t.Fatalf("abort should stop the batch early, attempted %d", result.Attempted)
	}
}

func TestRunEmptyBatchIsQuiet(t *testing.T) {
	handler := &fakeHandler{}
	result, err := stage.Run(context.Background(), handler, stage.Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Attempted != 0 || result.Succeeded != 0 || result.Failed != 0 {
		t.Fatalf("counts = %+v", result)
	}
}

func TestResultMerge(t *testing.T) {
	total := stage.Result{Stage: "all"}
	total.Merge(stage.Result{Attempted: 3, Succeeded: 2, Failed: 1})
	total.Merge(stage.Result{Attempted: 1, Succeeded: 1})
	if total.Attempted != 4 || total.Succeeded != 3 || total.Failed != 1 {
		t.Fatalf("counts = %+v", total)
	}
}
