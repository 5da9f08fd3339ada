package media

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"newswire/internal/config"
	"newswire/internal/logging"
	"newswire/internal/services"
	"newswire/internal/stage"
	"newswire/internal/store"
	"newswire/internal/textutil"
)

// Synthesizer is the slice of the TTS client this stage needs.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Handler produces derived audio for highlighted published articles. Audio is
// strictly downstream of curation: an article that loses its highlight also
// loses its audio reference on the next pass.
type Handler struct {
	store    *store.Store
	tts      Synthesizer
	cfg      config.Audio
	mediaDir string
	logger   *slog.Logger
}

// NewHandler builds the derived-media stage.
func NewHandler(st *store.Store, tts Synthesizer, cfg config.Audio, mediaDir string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handler{
		store:    st,
		tts:      tts,
		cfg:      cfg,
		mediaDir: mediaDir,
		logger:   logging.NewComponentLogger(logger, "media"),
	}
}

func (h *Handler) Name() string { return "media" }

// Eligible drops audio references orphaned by the last curation pass, then
// returns highlighted articles still missing audio.
func (h *Handler) Eligible(ctx context.Context, limit int) ([]*store.Article, error) {
	cleared, err := h.store.ClearStaleAudio(ctx)
	if err != nil {
		return nil, services.Wrap(services.ErrInfrastructure, h.Name(), "clear stale audio", "", err)
	}
	if cleared > 0 {
		h.logger.Info("stale audio references cleared", logging.Int64("count", cleared))
	}
	return h.store.ForAudio(ctx, h.tiers(), limit)
}

// tiers maps the configured highlight names to known tiers, skipping
// anything unrecognized.
func (h *Handler) tiers() []store.Highlight {
	tiers := make([]store.Highlight, 0, len(h.cfg.Highlights))
	for _, name := range h.cfg.Highlights {
		tier, ok := store.ParseHighlight(name)
		if !ok {
			h.logger.Warn("unknown highlight tier in audio config", logging.String("tier", name))
			continue
		}
		tiers = append(tiers, tier)
	}
	return tiers
}

// Process synthesizes one article's audio and records the file reference.
// Synthesis failure is a row failure; it never blocks the rest of the batch.
func (h *Handler) Process(ctx context.Context, article *store.Article) error {
	ctx = services.WithItemID(ctx, article.ID)
	started := time.Now()

	audio, err := h.tts.Synthesize(ctx, article.Body)
	if err != nil {
		stage.LogOutcome(ctx, h.store, h.logger, h.Name(), article.DocumentID, article.ID, err, "")
		return err
	}

	path := filepath.Join(h.mediaDir, fmt.Sprintf("%d-%s.mp3", article.ID, textutil.SanitizeFileName(article.Title)))
	if err := os.WriteFile(path, audio, 0o644); err != nil {
		wrapped := services.Wrap(services.ErrInfrastructure, h.Name(), "write audio file", "", err)
		stage.LogOutcome(ctx, h.store, h.logger, h.Name(), article.DocumentID, article.ID, wrapped, "")
		return wrapped
	}
	if err := h.store.SetAudioPath(ctx, article.ID, path); err != nil {
		return services.Wrap(services.ErrInfrastructure, h.Name(), "persist audio path", "", err)
	}

	stage.LogOutcome(ctx, h.store, h.logger, h.Name(), article.DocumentID, article.ID, nil,
		fmt.Sprintf("audio %d bytes in %dms", len(audio), time.Since(started).Milliseconds()))
	h.logger.Info("audio synthesized",
		logging.Int64(logging.FieldItemID, article.ID),
		logging.String("path", path),
	)
	return nil
}
