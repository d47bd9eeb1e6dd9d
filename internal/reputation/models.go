package reputation

import (
	"time"

	id "worktrust/pkg/domain"
)

// Polarity of a theme or sentiment bucket.
type Polarity string

const (
	PolarityPositive Polarity = "positive"
	PolarityNegative Polarity = "negative"
)

// PlatformSummary aggregates one source platform's reviews.
type PlatformSummary struct {
	Platform      string  `json:"platform"`
	ReviewCount   int     `json:"review_count"`
	VerifiedCount int     `json:"verified_count"`
	AverageRating float64 `json:"average_rating"`
	// RecentRating covers the trailing six months; zero when RecentCount is 0.
	RecentRating float64 `json:"recent_rating"`
	RecentCount  int     `json:"recent_count"`
}

// Sentiment buckets ratings: 4-5 positive, 3 neutral, 1-2 negative. Score
// runs from -1 (all negative) to 1 (all positive).
type Sentiment struct {
	Positive int     `json:"positive"`
	Neutral  int     `json:"neutral"`
	Negative int     `json:"negative"`
	Score    float64 `json:"score"`
}

// Theme is a recurring topic in review text.
type Theme struct {
	Name     string   `json:"name"`
	Polarity Polarity `json:"polarity"`
	Mentions int      `json:"mentions"`
}

// TrendPoint is the average rating for one calendar quarter, e.g. "2024-Q3".
type TrendPoint struct {
	Period        string  `json:"period"`
	AverageRating float64 `json:"average_rating"`
	Count         int     `json:"count"`
}

// Score is the cross-platform reputation surface for one user. With no
// reviews every numeric field is zero and every slice is empty.
type Score struct {
	UserID          id.UserID         `json:"user_id"`
	TotalReviews    int               `json:"total_reviews"`
	VerifiedReviews int               `json:"verified_reviews"`
	OverallRating   float64           `json:"overall_rating"`
	Platforms       []PlatformSummary `json:"platforms"`
	Sentiment       Sentiment         `json:"sentiment"`
	Themes          []Theme           `json:"themes"`
	Trend           []TrendPoint      `json:"trend"`
	ComputedAt      time.Time         `json:"computed_at"`
}
