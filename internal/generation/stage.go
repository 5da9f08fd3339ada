package generation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"newswire/internal/config"
	"newswire/internal/llm"
	"newswire/internal/logging"
	"newswire/internal/services"
	"newswire/internal/stage"
	"newswire/internal/store"
	"newswire/internal/textutil"
)

const generateSystemPrompt = `You are a news writer. Write an original article in Portuguese based strictly on the source text.
Answer with a single JSON object:
{"title":"...","body":"markdown article text","excerpt":"one-sentence summary","tags":["..."],"category":"...","subcategory":"..."}
Stay faithful to the source facts. Do not include any text outside the JSON object.`

// Reason codes recorded for fidelity failures so operators can tune the
// thresholds instead of chasing bugs.
const (
	reasonShortSource = "short_source"
	reasonLowFidelity = "low_fidelity"
)

type draft struct {
	Title       string   `json:"title"`
	Body        string   `json:"body"`
	Excerpt     string   `json:"excerpt"`
	Tags        []string `json:"tags"`
	Category    string   `json:"category"`
	Subcategory string   `json:"subcategory"`
}

// Handler runs generation: judged WRITE articles above the significance
// threshold get a draft from the generate capability, gated by source
// fidelity checks.
type Handler struct {
	store     *store.Store
	router    *llm.Router
	gates     config.Generation
	threshold float64
	logger    *slog.Logger
}

// NewHandler builds the generation stage.
func NewHandler(st *store.Store, router *llm.Router, gates config.Generation, threshold float64, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handler{
		store:     st,
		router:    router,
		gates:     gates,
		threshold: threshold,
		logger:    logging.NewComponentLogger(logger, "generation"),
	}
}

func (h *Handler) Name() string { return "generation" }

// Eligible returns judged WRITE articles at or above the threshold without a
// body, best editorial score first.
func (h *Handler) Eligible(ctx context.Context, limit int) ([]*store.Article, error) {
	return h.store.ForGeneration(ctx, h.threshold, limit)
}

// Process drafts one article. Fidelity violations are content-quality row
// failures recorded on the article; a lost status guard is a silent no-op.
func (h *Handler) Process(ctx context.Context, article *store.Article) error {
	ctx = services.WithItemID(ctx, article.ID)

	doc, err := h.store.GetDocument(ctx, article.DocumentID)
	if err != nil || doc == nil {
		wrapped := services.Wrap(services.ErrInfrastructure, h.Name(), "load document", "", err)
		stage.LogOutcome(ctx, h.store, h.logger, h.Name(), article.DocumentID, article.ID, wrapped, "")
		return wrapped
	}

	sourceText := strings.TrimSpace(doc.Content)
	if len(sourceText) < h.gates.MinSourceChars {
		return h.failRow(ctx, article, services.Wrap(
			services.ErrContentQuality, h.Name(), reasonShortSource,
			fmt.Sprintf("source has %d chars, need %d", len(sourceText), h.gates.MinSourceChars), nil,
		))
	}

	result, err := h.router.Complete(ctx, llm.CapabilityGenerate, generateSystemPrompt, buildGeneratePrompt(doc))
	if err != nil {
		return h.failRow(ctx, article, err)
	}
	stage.LogAttempts(ctx, h.store, h.logger, h.Name(), doc.ID, article.ID, result.Attempts)

	var d draft
	if err := llm.DecodeJSON(result.Content, &d); err != nil {
		return h.failRow(ctx, article, services.Wrap(services.ErrContentQuality, h.Name(), "decode draft", "", err))
	}
	d.Title = strings.TrimSpace(d.Title)
	d.Body = strings.TrimSpace(d.Body)
	if d.Title == "" || d.Body == "" {
		return h.failRow(ctx, article, services.Wrap(
			services.ErrContentQuality, h.Name(), "decode draft", "draft missing title or body", nil,
		))
	}

	overlap := textutil.Overlap(sourceText, d.Body)
	if overlap.Shared < h.gates.MinOverlapCount || overlap.Ratio < h.gates.MinOverlapRatio {
		return h.failRow(ctx, article, services.Wrap(
			services.ErrContentQuality, h.Name(), reasonLowFidelity,
			fmt.Sprintf("overlap %d tokens (%.2f), need %d (%.2f)",
				overlap.Shared, overlap.Ratio, h.gates.MinOverlapCount, h.gates.MinOverlapRatio), nil,
		))
	}

	article.Title = d.Title
	article.TitleKey = textutil.TitleKey(d.Title)
	article.Body = d.Body
	article.Excerpt = strings.TrimSpace(d.Excerpt)
	if category := strings.TrimSpace(d.Category); category != "" {
		article.Category = category
	}
	if subcategory := strings.TrimSpace(d.Subcategory); subcategory != "" {
		article.Subcategory = subcategory
	}
	article.GeneratedBy = result.Provider + ":" + result.Model
	if err := article.SetTags(d.Tags); err != nil {
		return services.Wrap(services.ErrInfrastructure, h.Name(), "encode tags", "", err)
	}

	applied, err := h.store.MarkGenerated(ctx, article)
	if err != nil {
		return services.Wrap(services.ErrInfrastructure, h.Name(), "persist draft", "", err)
	}
	if !applied {
		h.logger.Debug("claim lost, skipping", logging.Int64(logging.FieldItemID, article.ID))
		return nil
	}

	h.flagTitleCollision(ctx, article)
	h.flagNearDuplicate(ctx, article)

	stage.LogOutcome(ctx, h.store, h.logger, h.Name(), doc.ID, article.ID, nil,
		fmt.Sprintf("generated %d chars", len(d.Body)))
	h.logger.Info("article generated",
		logging.Int64(logging.FieldItemID, article.ID),
		logging.String(logging.FieldProvider, result.Provider),
		logging.Int("body_chars", len(d.Body)),
	)
	return nil
}

// flagTitleCollision marks the later article for manual review when another
// document already produced the same normalized title. Collisions are
// flagged, never merged or dropped.
func (h *Handler) flagTitleCollision(ctx context.Context, article *store.Article) {
	if article.TitleKey == "" {
		return
	}
	other, err := h.store.FindByTitleKey(ctx, article.TitleKey, article.ID)
	if err != nil {
		h.logger.Warn("title collision lookup failed", logging.Error(err))
		return
	}
	if other == nil {
		return
	}
	reason := fmt.Sprintf("title collides with article %d", other.ID)
	if err := h.store.FlagNeedsReview(ctx, article.ID, reason); err != nil {
		h.logger.Warn("needs-review flag failed", logging.Error(err))
		return
	}
	h.logger.Warn("title collision flagged",
		logging.Int64(logging.FieldItemID, article.ID),
		logging.Int64("other_id", other.ID),
	)
}

// duplicateScanLimit bounds how many recent drafts each new body is compared
// against.
const duplicateScanLimit = 50

// minDuplicateTokens is the smallest fingerprint worth comparing; shorter
// bodies produce noisy similarity scores.
const minDuplicateTokens = 8

// flagNearDuplicate marks the article for manual review when its body is
// cosine-similar to a recent draft. Catches reworded duplicates the exact
// title-key check misses; like the collision flag, never merged or dropped.
func (h *Handler) flagNearDuplicate(ctx context.Context, article *store.Article) {
	if h.gates.DuplicateSimilarity <= 0 {
		return
	}
	fingerprint := textutil.NewFingerprint(article.Body)
	if fingerprint.TokenCount() < minDuplicateTokens {
		return
	}
	recent, err := h.store.RecentDrafts(ctx, article.ID, duplicateScanLimit)
	if err != nil {
		h.logger.Warn("duplicate scan failed", logging.Error(err))
		return
	}
	for _, other := range recent {
		similarity := textutil.CosineSimilarity(fingerprint, textutil.NewFingerprint(other.Body))
		if similarity < h.gates.DuplicateSimilarity {
			continue
		}
		reason := fmt.Sprintf("body %.2f similar to article %d", similarity, other.ID)
		if err := h.store.FlagNeedsReview(ctx, article.ID, reason); err != nil {
			h.logger.Warn("needs-review flag failed", logging.Error(err))
			return
		}
		h.logger.Warn("near-duplicate body flagged",
			logging.Int64(logging.FieldItemID, article.ID),
			logging.Int64("other_id", other.ID),
			logging.Float64("similarity", similarity),
		)
		return
	}
}

func (h *Handler) failRow(ctx context.Context, article *store.Article, rowErr error) error {
	if services.IsAbort(rowErr) {
		return rowErr
	}
	message := services.Details(rowErr).Message
	if _, err := h.store.MarkReviewFailed(ctx, article.ID, store.ReviewJudged, message); err != nil {
		h.logger.Warn("failed-status persist failed", logging.Error(err))
	}
	stage.LogFailure(ctx, h.store, h.logger, h.Name(), article.DocumentID, article.ID, rowErr)
	return rowErr
}

func buildGeneratePrompt(doc *store.SourceDocument) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Source: %s\n", doc.Source)
	fmt.Fprintf(&b, "Original title: %s\n", doc.Title)
	fmt.Fprintf(&b, "\nSource text:\n%s\n", strings.TrimSpace(doc.Content))
	return b.String()
}
