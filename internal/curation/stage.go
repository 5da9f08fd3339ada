package curation

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"newswire/internal/config"
	"newswire/internal/logging"
	"newswire/internal/services"
	"newswire/internal/stage"
	"newswire/internal/store"
)

// Categories is the slice of the WordPress client the curation pass needs
// for remote tier sync. A nil backend disables the sync.
type Categories interface {
	PostCategories(ctx context.Context, postID int64) ([]int, error)
	SetPostCategories(ctx context.Context, postID int64, categories []int) error
}

// Assignment is one article's recomputed tier. Previous carries the tier the
// article held before the pass so a demoted article still gets its remote
// categories cleaned up.
type Assignment struct {
	Article  *store.Article
	Tier     store.Highlight
	Previous store.Highlight
}

// Handler recomputes highlight tiers for recently published articles.
// Classification is derived from scratch every pass: editorial score against
// two ascending thresholds, bounded per-tier, breaking wins.
type Handler struct {
	store   *store.Store
	backend Categories
	cfg     config.Curation
	wp      config.WordPress
	now     func() time.Time
	logger  *slog.Logger
}

// NewHandler builds the curation stage.
func NewHandler(st *store.Store, backend Categories, cfg config.Curation, wp config.WordPress, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handler{
		store:   st,
		backend: backend,
		cfg:     cfg,
		wp:      wp,
		now:     time.Now,
		logger:  logging.NewComponentLogger(logger, "curation"),
	}
}

func (h *Handler) Name() string { return "curation" }

// Eligible classifies the published window and returns the assignments that
// need applying. Existing flags are cleared first so the pass is a pure
// function of the current scores and window. The row limit is ignored: the
// tier caps bound the work, and applying only part of a recompute after the
// clear would drop the remaining highlights.
func (h *Handler) Eligible(ctx context.Context, _ int) ([]*Assignment, error) {
	since := h.now().UTC().Add(-time.Duration(h.cfg.WindowHours) * time.Hour)
	window, err := h.store.ForCuration(ctx, since)
	if err != nil {
		return nil, services.Wrap(services.ErrInfrastructure, h.Name(), "query window", "", err)
	}

	assignments := h.classify(window)
	cleared, err := h.store.ClearHighlights(ctx)
	if err != nil {
		return nil, services.Wrap(services.ErrInfrastructure, h.Name(), "clear highlights", "", err)
	}
	if cleared > 0 {
		h.logger.Debug("highlights cleared for recompute", logging.Int64("count", cleared))
	}
	return assignments, nil
}

// classify walks the window in final-score order and fills the tiers. An
// article over the breaking threshold that misses the breaking cap still
// competes for a featured slot.
func (h *Handler) classify(window []*store.Article) []*Assignment {
	var breaking, featured int
	assignments := make([]*Assignment, 0, len(window))
	for _, article := range window {
		tier := store.Highlight("")
		switch {
		case article.EditorialScore >= h.cfg.BreakingThreshold && breaking < h.cfg.BreakingLimit:
			tier = store.HighlightBreaking
			breaking++
		case article.EditorialScore >= h.cfg.FeaturedThreshold && featured < h.cfg.FeaturedLimit:
			tier = store.HighlightFeatured
			featured++
		}
		if tier == "" && article.Highlight == "" {
			continue
		}
		assignments = append(assignments, &Assignment{
			Article:  article,
			Tier:     tier,
			Previous: article.Highlight,
		})
	}
	return assignments
}

// Process applies one assignment locally and then syncs the remote category
// collections. Sync failure is logged but never reverts the local flag.
func (h *Handler) Process(ctx context.Context, a *Assignment) error {
	ctx = services.WithItemID(ctx, a.Article.ID)

	if a.Tier != "" {
		if err := h.store.SetHighlight(ctx, a.Article.ID, a.Tier); err != nil {
			return services.Wrap(services.ErrInfrastructure, h.Name(), "set highlight", "", err)
		}
	}

	detail := "highlight cleared"
	if a.Tier != "" {
		detail = fmt.Sprintf("highlight=%s editorial=%.2f", a.Tier, a.Article.EditorialScore)
	}
	if h.cfg.SyncCategories && h.backend != nil {
		if err := h.syncRemote(ctx, a.Article, a.Tier); err != nil {
			h.logger.Warn("remote category sync failed",
				logging.Int64(logging.FieldItemID, a.Article.ID),
				logging.Error(err),
			)
			detail += " (remote sync failed)"
		}
	}
	stage.LogOutcome(ctx, h.store, h.logger, h.Name(), a.Article.DocumentID, a.Article.ID, nil, detail)
	return nil
}

// syncRemote reconciles the two tier categories on the remote post: the
// current tier's category is added, the other tier's removed.
func (h *Handler) syncRemote(ctx context.Context, article *store.Article, tier store.Highlight) error {
	if article.ExternalPostID == 0 {
		return nil
	}
	current, err := h.backend.PostCategories(ctx, article.ExternalPostID)
	if err != nil {
		return err
	}

	desired := make([]int, 0, len(current)+1)
	for _, id := range current {
		if id == h.wp.BreakingCategoryID || id == h.wp.FeaturedCategoryID {
			continue
		}
		desired = append(desired, id)
	}
	switch tier {
	case store.HighlightBreaking:
		if h.wp.BreakingCategoryID > 0 {
			desired = append(desired, h.wp.BreakingCategoryID)
		}
	case store.HighlightFeatured:
		if h.wp.FeaturedCategoryID > 0 {
			desired = append(desired, h.wp.FeaturedCategoryID)
		}
	}
	if slices.Equal(current, desired) {
		return nil
	}
	return h.backend.SetPostCategories(ctx, article.ExternalPostID, desired)
}
