package judging

import (
	"math"

	"newswire/internal/config"
	"newswire/internal/store"
)

// Relevance gates. Below these the item is scored on relevance alone so
// off-topic content cannot ride high sub-scores past the threshold.
const (
	finalRelevanceGate     = 2.0
	editorialRelevanceGate = 1.5
)

// FinalScore computes the significance score that drives the WRITE/SKIP
// decision. Weighted sub-scores, a legacy dampener, a potential bonus, then
// power normalization. Monotonic in every sub-score as long as the configured
// weights are non-negative.
func FinalScore(scores store.Scores, cfg config.Scoring) float64 {
	if scores.Relevance < finalRelevanceGate {
		return clampScore(scores.Relevance * 0.5)
	}
	raw := cfg.RelevanceWeight*scores.Relevance +
		cfg.ScaleWeight*scores.Scale +
		cfg.ImpactWeight*scores.Impact +
		cfg.NoveltyWeight*scores.Novelty +
		cfg.CredibilityWeight*scores.Credibility
	raw *= 0.7 + 0.3*scores.Legacy/10
	raw *= 1 + 0.1*scores.Potential/10
	return normalize(raw, cfg.FinalPower)
}

// EditorialScore ranks WRITE articles for generation order and curation
// tiers. Weighted differently from the significance score: editorial appeal
// over raw importance.
func EditorialScore(scores store.Scores, cfg config.Scoring) float64 {
	if scores.Relevance < editorialRelevanceGate {
		penalty := math.Max(0.1, scores.Relevance/15)
		return clampScore(scores.Relevance * 0.5 * penalty)
	}
	raw := cfg.EditorialImpactWeight*scores.Impact +
		cfg.EditorialNoveltyWeight*scores.Novelty +
		cfg.EditorialCredibilityWeight*scores.Credibility +
		cfg.EditorialPotentialWeight*scores.Potential +
		cfg.EditorialPositivityWeight*scores.Positivity
	return normalize(raw, cfg.EditorialPower)
}

// normalize spreads the mid-range apart: 10 * (x/10)^p, clamped to [0, 10].
// Powers above 1 compress low scores and stretch high ones.
func normalize(raw, power float64) float64 {
	if power <= 0 {
		power = 1
	}
	raw = clampScore(raw)
	return clampScore(10 * math.Pow(raw/10, power))
}

func clampScore(value float64) float64 {
	switch {
	case value < 0:
		return 0
	case value > 10:
		return 10
	default:
		return value
	}
}
