package publishing

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"newswire/internal/config"
	"newswire/internal/logging"
	"newswire/internal/services"
	"newswire/internal/stage"
	"newswire/internal/store"
	"newswire/internal/wordpress"
)

// Backend is the slice of the WordPress client this stage needs.
type Backend interface {
	UpsertPost(ctx context.Context, post wordpress.Post) (wordpress.PostResult, error)
	EnsureTags(ctx context.Context, names []string) ([]int, error)
}

// Handler runs publishing: revision-approved articles are upserted to the
// remote site. An article that already carries an external post ID is
// updated in place, never duplicated.
type Handler struct {
	store   *store.Store
	backend Backend
	cfg     config.WordPress
	logger  *slog.Logger
}

// NewHandler builds the publishing stage.
func NewHandler(st *store.Store, backend Backend, cfg config.WordPress, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handler{
		store:   st,
		backend: backend,
		cfg:     cfg,
		logger:  logging.NewComponentLogger(logger, "publishing"),
	}
}

func (h *Handler) Name() string { return "publishing" }

// Eligible returns approved articles whose publishing status is not yet
// succeeded.
func (h *Handler) Eligible(ctx context.Context, limit int) ([]*store.Article, error) {
	return h.store.ForPublishing(ctx, limit)
}

// Process upserts one article. Remote failure marks publishing_status failed
// while keeping the stored post ID, so the retry still updates in place.
func (h *Handler) Process(ctx context.Context, article *store.Article) error {
	ctx = services.WithItemID(ctx, article.ID)
	started := time.Now()

	tags, err := h.backend.EnsureTags(ctx, article.Tags())
	if err != nil {
		return h.failRow(ctx, article, err)
	}

	result, err := h.backend.UpsertPost(ctx, wordpress.Post{
		RemoteID:   article.ExternalPostID,
		Title:      article.Title,
		Content:    article.Body,
		Excerpt:    article.Excerpt,
		Categories: []int{h.categoryFor(article.Category)},
		Tags:       tags,
	})
	if err != nil {
		return h.failRow(ctx, article, err)
	}

	applied, err := h.store.MarkPublished(ctx, article.ID, result.ID, time.Now().UTC())
	if err != nil {
		return services.Wrap(services.ErrInfrastructure, h.Name(), "persist publish", "", err)
	}
	if !applied {
		h.logger.Debug("claim lost, skipping", logging.Int64(logging.FieldItemID, article.ID))
		return nil
	}

	action := "created"
	if article.ExternalPostID > 0 {
		action = "updated"
	}
	stage.LogOutcome(ctx, h.store, h.logger, h.Name(), article.DocumentID, article.ID, nil,
		fmt.Sprintf("%s post_id=%d in %dms", action, result.ID, time.Since(started).Milliseconds()))
	h.logger.Info("article published",
		logging.Int64(logging.FieldItemID, article.ID),
		logging.Int64("post_id", result.ID),
		logging.String("action", action),
	)
	return nil
}

// categoryFor maps the editorial category to a site category term, falling
// back to the default bucket.
func (h *Handler) categoryFor(category string) int {
	category = strings.ToLower(strings.TrimSpace(category))
	for name, id := range h.cfg.CategoryMap {
		if strings.ToLower(strings.TrimSpace(name)) == category {
			return id
		}
	}
	return h.cfg.DefaultCategoryID
}

func (h *Handler) failRow(ctx context.Context, article *store.Article, rowErr error) error {
	if services.IsAbort(rowErr) {
		return rowErr
	}
	message := services.Details(rowErr).Message
	if err := h.store.MarkPublishFailed(ctx, article.ID, message); err != nil {
		h.logger.Warn("failed-status persist failed", logging.Error(err))
	}
	stage.LogOutcome(ctx, h.store, h.logger, h.Name(), article.DocumentID, article.ID, rowErr, "")
	return rowErr
}
