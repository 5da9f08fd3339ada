package revision

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"newswire/internal/config"
	"newswire/internal/llm"
	"newswire/internal/logging"
	"newswire/internal/services"
	"newswire/internal/stage"
	"newswire/internal/store"
)

const reviseSystemPrompt = `You are a copy editor reviewing a drafted news article.
Check the draft against the editorial constraints and answer with a single JSON object:
{"body":"the revised markdown text","checklist":{"fact_consistency":bool,"no_opinion":bool,"tone":bool,"structure":bool,"attribution":bool},"comments":"findings and corrections made","category":"...","subcategory":"..."}
Be honest in the checklist: mark a constraint false when it is violated and explain in comments.
Do not include any text outside the JSON object.`

type review struct {
	Body        string          `json:"body"`
	Checklist   map[string]bool `json:"checklist"`
	Comments    string          `json:"comments"`
	Category    string          `json:"category"`
	Subcategory string          `json:"subcategory"`
}

// Handler runs revision: generated drafts get a checklist review from the
// revise capability. Violations are recorded; they only stop the article
// short of publishing when strict mode is on.
type Handler struct {
	store  *store.Store
	router *llm.Router
	strict bool
	logger *slog.Logger
}

// NewHandler builds the revision stage.
func NewHandler(st *store.Store, router *llm.Router, cfg config.Revision, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handler{
		store:  st,
		router: router,
		strict: cfg.Strict,
		logger: logging.NewComponentLogger(logger, "revision"),
	}
}

func (h *Handler) Name() string { return "revision" }

// Eligible returns generated articles awaiting review.
func (h *Handler) Eligible(ctx context.Context, limit int) ([]*store.Article, error) {
	return h.store.ForRevision(ctx, limit)
}

// Process reviews one draft. Approved articles advance to succeeded; in
// strict mode a violated checklist stops at revised for operator attention.
func (h *Handler) Process(ctx context.Context, article *store.Article) error {
	ctx = services.WithItemID(ctx, article.ID)

	result, err := h.router.Complete(ctx, llm.CapabilityRevise, reviseSystemPrompt, buildRevisePrompt(article))
	if err != nil {
		return h.failRow(ctx, article, err)
	}
	stage.LogAttempts(ctx, h.store, h.logger, h.Name(), article.DocumentID, article.ID, result.Attempts)

	var r review
	if err := llm.DecodeJSON(result.Content, &r); err != nil {
		return h.failRow(ctx, article, services.Wrap(services.ErrContentQuality, h.Name(), "decode review", "", err))
	}
	if len(r.Checklist) == 0 {
		return h.failRow(ctx, article, services.Wrap(
			services.ErrContentQuality, h.Name(), "decode review", "review missing checklist", nil,
		))
	}

	if body := strings.TrimSpace(r.Body); body != "" {
		article.Body = body
	}
	if category := strings.TrimSpace(r.Category); category != "" {
		article.Category = category
	}
	if subcategory := strings.TrimSpace(r.Subcategory); subcategory != "" {
		article.Subcategory = subcategory
	}
	article.ReviewComments = strings.TrimSpace(r.Comments)
	article.RevisedBy = result.Provider + ":" + result.Model
	if err := encodeChecklist(article, r.Checklist); err != nil {
		return services.Wrap(services.ErrInfrastructure, h.Name(), "encode checklist", "", err)
	}

	violated := violatedConstraints(r.Checklist)
	approved := len(violated) == 0 || !h.strict

	applied, err := h.store.MarkRevised(ctx, article, approved)
	if err != nil {
		return services.Wrap(services.ErrInfrastructure, h.Name(), "persist review", "", err)
	}
	if !applied {
		h.logger.Debug("claim lost, skipping", logging.Int64(logging.FieldItemID, article.ID))
		return nil
	}

	// An all-clear checklist with nothing to say reads like a rubber stamp.
	if len(violated) == 0 && article.ReviewComments == "" {
		if err := h.store.FlagNeedsReview(ctx, article.ID, "review approved everything without comments"); err != nil {
			h.logger.Warn("needs-review flag failed", logging.Error(err))
		}
	}

	detail := "approved"
	if len(violated) > 0 {
		detail = "violated: " + strings.Join(violated, ", ")
		if h.strict {
			detail += " (held for operator)"
		}
	}
	stage.LogOutcome(ctx, h.store, h.logger, h.Name(), article.DocumentID, article.ID, nil, detail)
	h.logger.Info("article reviewed",
		logging.Int64(logging.FieldItemID, article.ID),
		logging.String(logging.FieldProvider, result.Provider),
		logging.Bool("approved", approved),
		logging.Int("violations", len(violated)),
	)
	return nil
}

func (h *Handler) failRow(ctx context.Context, article *store.Article, rowErr error) error {
	if services.IsAbort(rowErr) {
		return rowErr
	}
	message := services.Details(rowErr).Message
	if _, err := h.store.MarkReviewFailed(ctx, article.ID, store.ReviewGenerated, message); err != nil {
		h.logger.Warn("failed-status persist failed", logging.Error(err))
	}
	stage.LogFailure(ctx, h.store, h.logger, h.Name(), article.DocumentID, article.ID, rowErr)
	return rowErr
}

func violatedConstraints(checklist map[string]bool) []string {
	var violated []string
	for name, passed := range checklist {
		if !passed {
			violated = append(violated, name)
		}
	}
	sort.Strings(violated)
	return violated
}

func encodeChecklist(article *store.Article, checklist map[string]bool) error {
	encoded, err := json.Marshal(checklist)
	if err != nil {
		return err
	}
	article.ChecklistJSON = string(encoded)
	return nil
}

func buildRevisePrompt(article *store.Article) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", article.Title)
	fmt.Fprintf(&b, "Category: %s\n", article.Category)
	if article.Subcategory != "" {
		fmt.Fprintf(&b, "Subcategory: %s\n", article.Subcategory)
	}
	fmt.Fprintf(&b, "\nDraft:\n%s\n", strings.TrimSpace(article.Body))
	return b.String()
}
