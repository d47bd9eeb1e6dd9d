package fraud

import (
	"time"

	id "worktrust/pkg/domain"
)

// Severity grades a detected anomaly. Earnings use low/medium/high, reviews
// use info/warning/critical.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"

	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// DiscrepancyType classifies a data-level problem in earnings records.
type DiscrepancyType string

const (
	DiscrepancyMismatch   DiscrepancyType = "mismatch"
	DiscrepancyMissing    DiscrepancyType = "missing"
	DiscrepancyDuplicate  DiscrepancyType = "duplicate"
	DiscrepancySuspicious DiscrepancyType = "suspicious"
)

// Indicator types.
const (
	IndicatorHighHourlyRate        = "high_hourly_rate"
	IndicatorIncomeConcentration   = "income_concentration"
	IndicatorRoundNumbers          = "round_number_pattern"
	IndicatorZeroHoursHighEarnings = "zero_hours_high_earnings"
	IndicatorPlatformTotalMismatch = "platform_total_mismatch"
)

// Discrepancy is a data problem with one earnings record.
type Discrepancy struct {
	Type        DiscrepancyType `json:"type"`
	RecordID    id.RecordID     `json:"record_id"`
	Description string          `json:"description"`
}

// Indicator is a pattern-level anomaly. RecordID is nil for set-wide
// indicators such as concentration.
type Indicator struct {
	Type     string       `json:"type"`
	Severity Severity     `json:"severity"`
	Evidence string       `json:"evidence"`
	RecordID *id.RecordID `json:"record_id,omitempty"`
}

// EarningsResult is the outcome of an earnings verification. Amounts are
// normalized to USD.
type EarningsResult struct {
	UserID           id.UserID     `json:"user_id"`
	Verified         bool          `json:"verified"`
	TotalEarnings    float64       `json:"total_earnings"`
	VerifiedEarnings float64       `json:"verified_earnings"`
	Discrepancies    []Discrepancy `json:"discrepancies"`
	FraudIndicators  []Indicator   `json:"fraud_indicators"`
	RiskScore        int           `json:"risk_score"`
	RulesVersion     string        `json:"rules_version"`
	CheckedAt        time.Time     `json:"checked_at"`
}

// Review is a client review of a freelancer, imported from a platform or
// entered directly.
type Review struct {
	ID       id.ReviewID `json:"id"`
	UserID   id.UserID   `json:"user_id"`
	Platform string      `json:"platform"`
	// PlatformVerified is set when the review was fetched from the platform
	// over a verified connection.
	PlatformVerified bool   `json:"platform_verified"`
	Rating           int    `json:"rating"`
	Content          string `json:"content"`

	ReviewerName       string `json:"reviewer_name,omitempty"`
	ReviewerExternalID string `json:"reviewer_external_id,omitempty"`
	ReviewerVerified   bool   `json:"reviewer_verified"`

	// ProjectID links the review to a work-history record.
	ProjectID          *id.RecordID `json:"project_id,omitempty"`
	ProjectVerified    bool         `json:"project_verified"`
	ProjectCompletedAt *time.Time   `json:"project_completed_at,omitempty"`

	ReviewedAt time.Time `json:"reviewed_at"`
}

// StripPlatformEvidence clears the flags only a platform sync or a linked
// record lookup may set.
func (r *Review) StripPlatformEvidence() {
	r.PlatformVerified = false
	r.ReviewerVerified = false
	r.ProjectVerified = false
}

// Review check names.
const (
	ReviewCheckPlatformVerified = "platform_verified"
	ReviewCheckProjectLink      = "project_link"
	ReviewCheckReviewerIdentity = "reviewer_identity"
	ReviewCheckContent          = "content_authenticity"
	ReviewCheckTimeline         = "timeline_plausibility"
)

// Review flag types.
const (
	FlagGenericContent          = "generic_content"
	FlagShortContent            = "short_content"
	FlagLowVariety              = "low_variety"
	FlagFutureDated             = "future_dated"
	FlagBeforeProjectCompletion = "before_project_completion"
	FlagExtremeRatingNoDetail   = "extreme_rating_no_detail"
	FlagUnverifiedReviewer      = "unverified_reviewer"
)

// ReviewCheck is one weighted authenticity check.
type ReviewCheck struct {
	Name     string  `json:"name"`
	Weight   float64 `json:"weight"`
	Passed   bool    `json:"passed"`
	Score    int     `json:"score"`
	Evidence string  `json:"evidence"`
}

// ReviewFlag is a detected anomaly on a review.
type ReviewFlag struct {
	Type     string   `json:"type"`
	Severity Severity `json:"severity"`
	Evidence string   `json:"evidence"`
}

// ReviewResult is the authenticity verdict for one review.
type ReviewResult struct {
	ReviewID          id.ReviewID   `json:"review_id"`
	Verified          bool          `json:"verified"`
	AuthenticityScore float64       `json:"authenticity_score"`
	Checks            []ReviewCheck `json:"checks"`
	Flags             []ReviewFlag  `json:"flags"`
	RulesVersion      string        `json:"rules_version"`
}
