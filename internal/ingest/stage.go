package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"newswire/internal/logging"
	"newswire/internal/services"
	"newswire/internal/store"
	"newswire/internal/textutil"
)

// Handler runs ingestion: each eligible "row" is one configured source. A
// failing source is a row failure; the rest of the sources still run.
type Handler struct {
	store   *store.Store
	fetcher *Fetcher
	sources []Source
	site    string
	logger  *slog.Logger
}

// NewHandler builds the ingestion stage. Site narrows the run to one source.
func NewHandler(st *store.Store, sources []Source, site string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handler{
		store:   st,
		fetcher: NewFetcher(),
		sources: sources,
		site:    site,
		logger:  logging.NewComponentLogger(logger, "ingestion"),
	}
}

func (h *Handler) Name() string { return "ingestion" }

// Eligible returns the configured sources. The limit caps sources, not
// documents; feeds are small and dedup makes over-fetching harmless.
func (h *Handler) Eligible(_ context.Context, limit int) ([]Source, error) {
	matched := FilterSources(h.sources, h.site)
	if h.site != "" && len(matched) == 0 {
		return nil, services.Wrap(services.ErrConfiguration, "ingestion", "select sources",
			fmt.Sprintf("unknown source %q", h.site), nil)
	}
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

// Process fetches one source and inserts the documents it does not know yet.
// A URL whose hash already exists is skipped silently.
func (h *Handler) Process(ctx context.Context, src Source) error {
	started := time.Now()
	docs, err := h.fetcher.Fetch(ctx, src)
	if err != nil {
		h.logFailure(ctx, src, started, err)
		return err
	}

	var created, skipped int
	for _, doc := range docs {
		canonical := textutil.CanonicalURL(doc.URL)
		if canonical == "" {
			skipped++
			continue
		}
		record := &store.SourceDocument{
			Source:      src.Name,
			URL:         canonical,
			URLHash:     textutil.HashURL(doc.URL),
			Title:       doc.Title,
			Content:     doc.Text,
			PublishedAt: doc.PublishedAt,
			FetchedAt:   time.Now().UTC(),
		}
		_, inserted, err := h.store.InsertDocument(ctx, record)
		if err != nil {
			h.logFailure(ctx, src, started, err)
			return services.Wrap(services.ErrInfrastructure, "ingestion", "insert document", src.Name, err)
		}
		if inserted {
			created++
		} else {
			skipped++
		}
	}

	detail := fmt.Sprintf("fetched=%d created=%d deduplicated=%d", len(docs), created, skipped)
	if err := h.store.AppendStageLog(ctx, &store.StageLogEntry{
		Stage:     h.Name(),
		Outcome:   store.OutcomeSuccess,
		Detail:    src.Name + ": " + detail,
		LatencyMS: time.Since(started).Milliseconds(),
	}); err != nil {
		h.logger.Warn("stage log append failed", logging.Error(err))
	}
	h.logger.Info("source ingested",
		logging.String(logging.FieldSource, src.Name),
		logging.Int("fetched", len(docs)),
		logging.Int("created", created),
		logging.Int("deduplicated", skipped),
	)
	return nil
}

func (h *Handler) logFailure(ctx context.Context, src Source, started time.Time, err error) {
	entry := &store.StageLogEntry{
		Stage:     h.Name(),
		Outcome:   store.OutcomeFailure,
		Detail:    src.Name + ": " + services.Details(err).Message,
		LatencyMS: time.Since(started).Milliseconds(),
	}
	if logErr := h.store.AppendStageLog(ctx, entry); logErr != nil {
		h.logger.Warn("stage log append failed", logging.Error(logErr))
	}
}
