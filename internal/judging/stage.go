package judging

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"newswire/internal/config"
	"newswire/internal/llm"
	"newswire/internal/logging"
	"newswire/internal/services"
	"newswire/internal/stage"
	"newswire/internal/store"
)

const judgeSystemPrompt = `You are a senior news editor scoring a source document.
Score each dimension from 0 to 10 and answer with a single JSON object:
{"relevance":N,"scale":N,"impact":N,"novelty":N,"potential":N,"legacy":N,"credibility":N,"positivity":N,"category":"...","justification":"one short paragraph"}
Do not include any text outside the JSON object.`

// sourceTextLimit bounds how much raw text goes into the judge prompt.
const sourceTextLimit = 6000

type verdict struct {
	store.Scores
	Category      string `json:"category"`
	Justification string `json:"justification"`
}

// Handler runs judging: each unjudged source document gets an eight-score
// verdict from the judge capability, and an article row is created with the
// WRITE/SKIP decision.
type Handler struct {
	store     *store.Store
	router    *llm.Router
	scoring   config.Scoring
	threshold float64
	logger    *slog.Logger
}

// NewHandler builds the judging stage. Threshold is the significance score an
// item must clear to get decision WRITE.
func NewHandler(st *store.Store, router *llm.Router, scoring config.Scoring, threshold float64, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handler{
		store:     st,
		router:    router,
		scoring:   scoring,
		threshold: threshold,
		logger:    logging.NewComponentLogger(logger, "judging"),
	}
}

func (h *Handler) Name() string { return "judging" }

// Eligible returns source documents with no article row, oldest first.
func (h *Handler) Eligible(ctx context.Context, limit int) ([]*store.SourceDocument, error) {
	return h.store.DocumentsForJudging(ctx, limit)
}

// Process judges one document. On success an article row exists afterward;
// on failure the document stays eligible for the next run.
func (h *Handler) Process(ctx context.Context, doc *store.SourceDocument) error {
	ctx = services.WithItemID(ctx, doc.ID)

	result, err := h.router.Complete(ctx, llm.CapabilityJudge, judgeSystemPrompt, buildJudgePrompt(doc))
	if err != nil {
		stage.LogFailure(ctx, h.store, h.logger, h.Name(), doc.ID, 0, err)
		return err
	}
	stage.LogAttempts(ctx, h.store, h.logger, h.Name(), doc.ID, 0, result.Attempts)

	var v verdict
	if err := llm.DecodeJSON(result.Content, &v); err != nil {
		wrapped := services.Wrap(services.ErrContentQuality, h.Name(), "decode verdict", "", err)
		stage.LogOutcome(ctx, h.store, h.logger, h.Name(), doc.ID, 0, wrapped, "")
		return wrapped
	}

	finalScore := FinalScore(v.Scores, h.scoring)
	editorialScore := EditorialScore(v.Scores, h.scoring)
	decision := store.DecisionSkip
	if finalScore >= h.threshold {
		decision = store.DecisionWrite
	}

	now := time.Now().UTC()
	article := &store.Article{
		DocumentID:     doc.ID,
		Decision:       decision,
		FinalScore:     finalScore,
		EditorialScore: editorialScore,
		Justification:  strings.TrimSpace(v.Justification),
		Category:       strings.TrimSpace(v.Category),
		JudgedBy:       result.Provider + ":" + result.Model,
		JudgedAt:       &now,
	}
	if err := article.SetScores(v.Scores); err != nil {
		return services.Wrap(services.ErrInfrastructure, h.Name(), "encode scores", "", err)
	}

	created, err := h.store.CreateJudged(ctx, article)
	if err != nil {
		wrapped := services.Wrap(services.ErrInfrastructure, h.Name(), "persist verdict", "", err)
		stage.LogOutcome(ctx, h.store, h.logger, h.Name(), doc.ID, 0, wrapped, "")
		return wrapped
	}

	detail := fmt.Sprintf("decision=%s final=%.2f editorial=%.2f", decision, finalScore, editorialScore)
	stage.LogOutcome(ctx, h.store, h.logger, h.Name(), doc.ID, created.ID, nil, detail)
	h.logger.Info("document judged",
		logging.Int64(logging.FieldDocumentID, doc.ID),
		logging.Int64(logging.FieldItemID, created.ID),
		logging.String("decision", string(decision)),
		logging.Float64("final_score", finalScore),
		logging.Float64("editorial_score", editorialScore),
		logging.String(logging.FieldProvider, result.Provider),
	)
	return nil
}

func buildJudgePrompt(doc *store.SourceDocument) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Source: %s\n", doc.Source)
	fmt.Fprintf(&b, "Title: %s\n", doc.Title)
	if doc.PublishedAt != nil {
		fmt.Fprintf(&b, "Published: %s\n", doc.PublishedAt.Format(time.RFC3339))
	}
	text := strings.TrimSpace(doc.Content)
	if len(text) > sourceTextLimit {
		text = text[:sourceTextLimit]
	}
	fmt.Fprintf(&b, "\n%s\n", text)
	return b.String()
}
