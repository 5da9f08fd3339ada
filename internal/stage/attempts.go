package stage

import (
	"context"
	"errors"
	"log/slog"

	"newswire/internal/llm"
	"newswire/internal/logging"
	"newswire/internal/services"
	"newswire/internal/store"
)

// LogAttempts persists one stage log entry per provider attempt so the audit
// trail shows the failed providers alongside the one that answered. Append
// failures are logged, never propagated; losing an audit row must not fail
// the stage.
func LogAttempts(ctx context.Context, st *store.Store, logger *slog.Logger, stageName string, documentID, articleID int64, attempts []llm.Attempt) {
	for _, attempt := range attempts {
		entry := &store.StageLogEntry{
			DocumentID:    documentID,
			ArticleID:     articleID,
			Stage:         stageName,
			Provider:      attempt.Provider,
			Model:         attempt.Model,
			Outcome:       store.OutcomeSuccess,
			LatencyMS:     attempt.Latency.Milliseconds(),
			CorrelationID: attempt.CorrelationID,
		}
		if attempt.Err != nil {
			entry.Outcome = store.OutcomeFailure
			entry.Detail = truncateDetail(attempt.Err.Error())
		}
		if err := st.AppendStageLog(ctx, entry); err != nil && logger != nil {
			logger.Warn("stage log append failed", logging.Error(err))
		}
	}
}

// LogFailure persists the row-level failure plus any provider attempts the
// error carries. When a provider chain is exhausted the per-provider entries
// keep identity and latency in the audit trail even though no provider
// answered.
func LogFailure(ctx context.Context, st *store.Store, logger *slog.Logger, stageName string, documentID, articleID int64, err error) {
	var exhausted *llm.ExhaustedError
	if errors.As(err, &exhausted) {
		LogAttempts(ctx, st, logger, stageName, documentID, articleID, exhausted.Attempts)
	}
	LogOutcome(ctx, st, logger, stageName, documentID, articleID, err, "")
}

// LogOutcome persists the row-level outcome of one stage execution.
func LogOutcome(ctx context.Context, st *store.Store, logger *slog.Logger, stageName string, documentID, articleID int64, err error, detail string) {
	entry := &store.StageLogEntry{
		DocumentID: documentID,
		ArticleID:  articleID,
		Stage:      stageName,
		Outcome:    store.OutcomeSuccess,
		Detail:     truncateDetail(detail),
	}
	if err != nil {
		entry.Outcome = store.OutcomeFailure
		entry.Detail = truncateDetail(services.Details(err).Message)
	}
	if appendErr := st.AppendStageLog(ctx, entry); appendErr != nil && logger != nil {
		logger.Warn("stage log append failed", logging.Error(appendErr))
	}
}

const detailLimit = 500

func truncateDetail(detail string) string {
	if len(detail) <= detailLimit {
		return detail
	}
	return detail[:detailLimit] + "..."
}
