package store

import (
	"encoding/json"
	"strings"
	"time"
)

// ReviewStatus represents the forward-only editorial lifecycle of an article.
type ReviewStatus string

const (
	ReviewJudged    ReviewStatus = "judged"
	ReviewGenerated ReviewStatus = "generated"
	ReviewRevised   ReviewStatus = "revised"
	ReviewSucceeded ReviewStatus = "succeeded"
	ReviewFailed    ReviewStatus = "failed"
)

var allReviewStatuses = []ReviewStatus{
	ReviewJudged,
	ReviewGenerated,
	ReviewRevised,
	ReviewSucceeded,
	ReviewFailed,
}

var reviewStatusSet = func() map[ReviewStatus]struct{} {
	set := make(map[ReviewStatus]struct{}, len(allReviewStatuses))
	for _, status := range allReviewStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllReviewStatuses returns the ordered list of known review statuses.
func AllReviewStatuses() []ReviewStatus {
	cp := make([]ReviewStatus, len(allReviewStatuses))
	copy(cp, allReviewStatuses)
	return cp
}

// ParseReviewStatus converts a string into a known ReviewStatus.
func ParseReviewStatus(value string) (ReviewStatus, bool) {
	normalized := ReviewStatus(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := reviewStatusSet[normalized]
	return normalized, ok
}

// PublishingStatus tracks the remote publication lifecycle, independent of
// the editorial chain.
type PublishingStatus string

const (
	PublishingPending   PublishingStatus = "pending"
	PublishingSucceeded PublishingStatus = "succeeded"
	PublishingFailed    PublishingStatus = "failed"
)

// Decision is the judge's verdict on whether a document deserves an article.
type Decision string

const (
	DecisionWrite Decision = "WRITE"
	DecisionSkip  Decision = "SKIP"
)

// ParseDecision converts a string into a known Decision.
func ParseDecision(value string) (Decision, bool) {
	normalized := Decision(strings.ToUpper(strings.TrimSpace(value)))
	switch normalized {
	case DecisionWrite, DecisionSkip:
		return normalized, true
	default:
		return "", false
	}
}

// Highlight marks curated articles by tier. An empty value means unhighlighted.
type Highlight string

const (
	HighlightBreaking Highlight = "BREAKING"
	HighlightFeatured Highlight = "FEATURED"
)

// ParseHighlight converts a string into a known Highlight.
func ParseHighlight(value string) (Highlight, bool) {
	normalized := Highlight(strings.ToUpper(strings.TrimSpace(value)))
	switch normalized {
	case HighlightBreaking, HighlightFeatured:
		return normalized, true
	default:
		return "", false
	}
}

// SourceDocument is a deduplicated ingested item, immutable after insert.
type SourceDocument struct {
	ID          int64
	Source      string
	URL         string
	URLHash     string
	Title       string
	Summary     string
	Content     string
	PublishedAt *time.Time
	FetchedAt   time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Scores holds the judge's eight sub-scores, each on a 0-10 scale.
type Scores struct {
	Relevance   float64 `json:"relevance"`
	Scale       float64 `json:"scale"`
	Impact      float64 `json:"impact"`
	Novelty     float64 `json:"novelty"`
	Potential   float64 `json:"potential"`
	Legacy      float64 `json:"legacy"`
	Credibility float64 `json:"credibility"`
	Positivity  float64 `json:"positivity"`
}

// Article carries a document through judging, generation, revision,
// publishing, and curation. One article per source document.
type Article struct {
	ID             int64
	DocumentID     int64
	ReviewStatus   ReviewStatus
	Decision       Decision
	FinalScore     float64
	EditorialScore float64
	ScoresJSON     string
	Justification  string
	JudgedBy       string
	JudgedAt       *time.Time

	Category    string
	Subcategory string
	Title       string
	TitleKey    string
	Body        string
	Excerpt     string
	TagsJSON    string
	GeneratedBy string

	ChecklistJSON  string
	ReviewComments string
	RevisedBy      string

	PublishingStatus PublishingStatus
	ExternalPostID   int64
	PublishedAt      *time.Time

	Highlight Highlight
	AudioPath string

	NeedsReview  bool
	ReviewReason string
	ErrorMessage string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Scores decodes the persisted sub-score vector. Returns zero scores when
// none were recorded.
func (a *Article) Scores() Scores {
	var scores Scores
	if strings.TrimSpace(a.ScoresJSON) == "" {
		return scores
	}
	_ = json.Unmarshal([]byte(a.ScoresJSON), &scores)
	return scores
}

// SetScores encodes the sub-score vector for persistence.
func (a *Article) SetScores(scores Scores) error {
	data, err := json.Marshal(scores)
	if err != nil {
		return err
	}
	a.ScoresJSON = string(data)
	return nil
}

// Tags decodes the persisted tag list.
func (a *Article) Tags() []string {
	if strings.TrimSpace(a.TagsJSON) == "" {
		return nil
	}
	var tags []string
	if err := json.Unmarshal([]byte(a.TagsJSON), &tags); err != nil {
		return nil
	}
	return tags
}

// SetTags encodes the tag list for persistence.
func (a *Article) SetTags(tags []string) error {
	if len(tags) == 0 {
		a.TagsJSON = ""
		return nil
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return err
	}
	a.TagsJSON = string(data)
	return nil
}

// Checklist decodes the reviser's persisted checklist map.
func (a *Article) Checklist() map[string]bool {
	if strings.TrimSpace(a.ChecklistJSON) == "" {
		return nil
	}
	var checklist map[string]bool
	if err := json.Unmarshal([]byte(a.ChecklistJSON), &checklist); err != nil {
		return nil
	}
	return checklist
}

// IsPublished reports whether the article reached the remote backend.
func (a *Article) IsPublished() bool {
	return a.PublishingStatus == PublishingSucceeded && a.ExternalPostID > 0
}

// StageLogEntry records one stage execution or provider attempt for audit.
type StageLogEntry struct {
	ID            int64
	DocumentID    int64
	ArticleID     int64
	Stage         string
	Provider      string
	Model         string
	Outcome       string
	Detail        string
	LatencyMS     int64
	CorrelationID string
	CreatedAt     time.Time
}

// Stage log outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeSkipped = "skipped"
)

// Stats aggregates row counts for operator status output.
type Stats struct {
	Documents     int
	ReviewCounts  map[ReviewStatus]int
	Published     int
	PublishFailed int
	Breaking      int
	Featured      int
	NeedsReview   int
}
