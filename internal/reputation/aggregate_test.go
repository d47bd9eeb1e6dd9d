package reputation

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worktrust/internal/fraud"
	id "worktrust/pkg/domain"
)

var aggNow = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func review(platform string, rating int, at time.Time, content string) *fraud.Review {
	return &fraud.Review{
		ID:         id.ReviewID(uuid.New()),
		Platform:   platform,
		Rating:     rating,
		Content:    content,
		ReviewedAt: at,
	}
}

func TestAggregate_Empty(t *testing.T) {
	userID := id.UserID(uuid.New())
	score := Aggregate(userID, nil, nil, aggNow)

	assert.Equal(t, userID, score.UserID)
	assert.Zero(t, score.TotalReviews)
	assert.Zero(t, score.OverallRating)
	assert.NotNil(t, score.Platforms)
	assert.NotNil(t, score.Themes)
	assert.NotNil(t, score.Trend)
	assert.Empty(t, score.Platforms)
	assert.Equal(t, Sentiment{}, score.Sentiment)
}

func TestAggregate_VerifiedReviewsWeighMore(t *testing.T) {
	verified := review("upwork", 5, aggNow.AddDate(0, -1, 0), "")
	unverified := review("fiverr", 2, aggNow.AddDate(0, -1, 0), "")
	results := map[id.ReviewID]*fraud.ReviewResult{
		verified.ID:   {Verified: true},
		unverified.ID: {Verified: false},
	}

	score := Aggregate(id.UserID(uuid.New()), []*fraud.Review{verified, unverified}, results, aggNow)
	// (1.5*5 + 1*2) / 2.5 = 3.8
	assert.Equal(t, 3.8, score.OverallRating)
	assert.Equal(t, 2, score.TotalReviews)
	assert.Equal(t, 1, score.VerifiedReviews)
}

func TestAggregate_PlatformSummaries(t *testing.T) {
	reviews := []*fraud.Review{
		review("Upwork", 5, aggNow.AddDate(0, -1, 0), ""),
		review("upwork", 3, aggNow.AddDate(-1, 0, 0), ""),
		review("fiverr", 4, aggNow.AddDate(0, -2, 0), ""),
	}
	score := Aggregate(id.UserID(uuid.New()), reviews, nil, aggNow)
	require.Len(t, score.Platforms, 2)

	fiverr, upwork := score.Platforms[0], score.Platforms[1]
	assert.Equal(t, "fiverr", fiverr.Platform)
	assert.Equal(t, "upwork", upwork.Platform)
	assert.Equal(t, 2, upwork.ReviewCount)
	assert.Equal(t, 4.0, upwork.AverageRating)
	assert.Equal(t, 1, upwork.RecentCount)
	assert.Equal(t, 5.0, upwork.RecentRating)
}

func TestAggregate_SentimentAndThemes(t *testing.T) {
	reviews := []*fraud.Review{
		review("upwork", 5, aggNow.AddDate(0, -1, 0), "Great communication and delivered on time."),
		review("upwork", 4, aggNow.AddDate(0, -2, 0), "Clean code, very professional and responsive."),
		review("upwork", 3, aggNow.AddDate(0, -3, 0), "Okay work."),
		review("upwork", 1, aggNow.AddDate(0, -4, 0), "Project was delayed and he was hard to reach."),
	}
	score := Aggregate(id.UserID(uuid.New()), reviews, nil, aggNow)

	assert.Equal(t, Sentiment{Positive: 2, Neutral: 1, Negative: 1, Score: 0.25}, score.Sentiment)

	byName := make(map[string]Theme)
	for _, th := range score.Themes {
		byName[th.Name] = th
	}
	assert.Equal(t, 2, byName["communication"].Mentions)
	assert.Equal(t, PolarityPositive, byName["communication"].Polarity)
	assert.Equal(t, 1, byName["timeliness"].Mentions)
	assert.Equal(t, 1, byName["quality"].Mentions)
	assert.Equal(t, 1, byName["skills"].Mentions)
	assert.Equal(t, PolarityNegative, byName["delays"].Polarity)
	assert.Equal(t, PolarityNegative, byName["unresponsive"].Polarity)
	assert.Equal(t, "communication", score.Themes[0].Name)
}

func TestAggregate_QuarterlyTrend(t *testing.T) {
	reviews := []*fraud.Review{
		review("upwork", 4, time.Date(2024, 8, 10, 0, 0, 0, 0, time.UTC), ""),
		review("upwork", 2, time.Date(2024, 9, 30, 0, 0, 0, 0, time.UTC), ""),
		review("upwork", 5, time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC), ""),
	}
	score := Aggregate(id.UserID(uuid.New()), reviews, nil, aggNow)
	require.Len(t, score.Trend, 2)
	assert.Equal(t, TrendPoint{Period: "2024-Q3", AverageRating: 3, Count: 2}, score.Trend[0])
	assert.Equal(t, TrendPoint{Period: "2025-Q1", AverageRating: 5, Count: 1}, score.Trend[1])
}
