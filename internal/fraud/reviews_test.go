package fraud

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "worktrust/pkg/domain"
)

var reviewNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func trustedReview() *Review {
	project := id.RecordID(uuid.New())
	completed := reviewNow.AddDate(0, -1, 0)
	return &Review{
		ID:                 id.ReviewID(uuid.New()),
		UserID:             id.UserID(uuid.New()),
		Platform:           "upwork",
		PlatformVerified:   true,
		Rating:             4,
		Content:            "Migrated our billing service to Go, documented each step and handled the cutover on a weekend.",
		ReviewerName:       "Dana",
		ReviewerExternalID: "client-77",
		ReviewerVerified:   true,
		ProjectID:          &project,
		ProjectVerified:    true,
		ProjectCompletedAt: &completed,
		ReviewedAt:         reviewNow.AddDate(0, 0, -20),
	}
}

func flagTypes(r ReviewResult) []string {
	out := make([]string, 0, len(r.Flags))
	for _, f := range r.Flags {
		out = append(out, f.Type)
	}
	return out
}

func TestAnalyzeReview_TrustedReviewVerifies(t *testing.T) {
	result := AnalyzeReview(DefaultReviewRules(), trustedReview(), reviewNow)
	assert.True(t, result.Verified)
	assert.Equal(t, 100.0, result.AuthenticityScore)
	assert.Empty(t, result.Flags)
	require.Len(t, result.Checks, 5)
}

func TestAnalyzeReview_ShortFiveStarWithoutProject(t *testing.T) {
	r := trustedReview()
	r.ProjectID = nil
	r.ProjectVerified = false
	r.ProjectCompletedAt = nil
	r.Rating = 5
	r.Content = "Solid delivery."
	require.Len(t, r.Content, 15)

	result := AnalyzeReview(DefaultReviewRules(), r, reviewNow)
	assert.False(t, result.Verified)
	assert.Less(t, result.AuthenticityScore, 70.0)
	assert.Contains(t, flagTypes(result), FlagShortContent)
	assert.Contains(t, flagTypes(result), FlagExtremeRatingNoDetail)
}

func TestAnalyzeReview_Flags(t *testing.T) {
	rules := DefaultReviewRules()

	tests := []struct {
		name     string
		mutate   func(*Review)
		flag     string
		severity Severity
	}{
		{
			name:     "future dated",
			mutate:   func(r *Review) { r.ReviewedAt = reviewNow.Add(48 * time.Hour) },
			flag:     FlagFutureDated,
			severity: SeverityCritical,
		},
		{
			name:     "before project completion",
			mutate:   func(r *Review) { r.ReviewedAt = r.ProjectCompletedAt.AddDate(0, 0, -3) },
			flag:     FlagBeforeProjectCompletion,
			severity: SeverityWarning,
		},
		{
			name:     "generic superlatives",
			mutate:   func(r *Review) { r.Content = "Great job! Highly recommend this freelancer, would hire again, 10/10." },
			flag:     FlagGenericContent,
			severity: SeverityInfo,
		},
		{
			name:     "low lexical variety",
			mutate:   func(r *Review) { r.Content = "good good good good good good good good work work" },
			flag:     FlagLowVariety,
			severity: SeverityInfo,
		},
		{
			name: "unverified reviewer",
			mutate: func(r *Review) {
				r.ReviewerVerified = false
				r.ReviewerExternalID = ""
			},
			flag:     FlagUnverifiedReviewer,
			severity: SeverityInfo,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := trustedReview()
			tt.mutate(r)
			result := AnalyzeReview(rules, r, reviewNow)
			require.Contains(t, flagTypes(result), tt.flag)
			for _, f := range result.Flags {
				if f.Type == tt.flag {
					assert.Equal(t, tt.severity, f.Severity)
				}
			}
			assert.Less(t, result.AuthenticityScore, 100.0)
		})
	}
}

func TestAnalyzeReview_ScoreIsClamped(t *testing.T) {
	r := &Review{
		ID:         id.ReviewID(uuid.New()),
		Rating:     1,
		Content:    "bad",
		ReviewedAt: reviewNow.Add(time.Hour),
	}
	result := AnalyzeReview(DefaultReviewRules(), r, reviewNow)
	assert.GreaterOrEqual(t, result.AuthenticityScore, 0.0)
	assert.False(t, result.Verified)
}

func TestContentCheck_Bonuses(t *testing.T) {
	rules := DefaultReviewRules()
	noop := func(string, Severity, string) {}

	moderate := &Review{Content: "Rebuilt the onboarding flow in React and cut signup drop-off noticeably."}
	c := contentCheck(rules, moderate, noop)
	assert.Equal(t, 100, c.Score)
	assert.True(t, c.Passed)

	short := &Review{Content: "ok ok"}
	c = contentCheck(rules, short, noop)
	assert.Equal(t, 80, c.Score)
}
