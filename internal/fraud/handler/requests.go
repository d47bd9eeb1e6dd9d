package handler

import (
	"strings"
	"time"

	"worktrust/internal/fraud"
	id "worktrust/pkg/domain"
	dErrors "worktrust/pkg/domain-errors"
)

const maxReviewLength = 10000

// VerifyEarningsRequest is the body of POST /earnings/verify. Without
// record_ids every income-bearing record of the user is analyzed.
type VerifyEarningsRequest struct {
	RecordIDs     []string `json:"record_ids"`
	PlatformTotal *float64 `json:"platform_total"`

	parsedIDs []id.RecordID
}

func (r *VerifyEarningsRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.PlatformTotal != nil && *r.PlatformTotal < 0 {
		return dErrors.New(dErrors.CodeValidation, "platform_total must not be negative")
	}
	r.parsedIDs = make([]id.RecordID, 0, len(r.RecordIDs))
	for _, raw := range r.RecordIDs {
		recordID, err := id.ParseRecordID(strings.TrimSpace(raw))
		if err != nil {
			return err
		}
		r.parsedIDs = append(r.parsedIDs, recordID)
	}
	return nil
}

func (r *VerifyEarningsRequest) ParsedRecordIDs() []id.RecordID {
	return r.parsedIDs
}

// VerifyReviewRequest is the body of POST /reviews/verify.
type VerifyReviewRequest struct {
	ReviewID           string     `json:"review_id"`
	Platform           string     `json:"platform"`
	PlatformVerified   bool       `json:"platform_verified"`
	Rating             int        `json:"rating"`
	Content            string     `json:"content"`
	ReviewerName       string     `json:"reviewer_name"`
	ReviewerExternalID string     `json:"reviewer_external_id"`
	ReviewerVerified   bool       `json:"reviewer_verified"`
	ProjectID          string     `json:"project_id"`
	ProjectVerified    bool       `json:"project_verified"`
	ProjectCompletedAt *time.Time `json:"project_completed_at"`
	ReviewedAt         time.Time  `json:"reviewed_at"`

	review fraud.Review
}

func (r *VerifyReviewRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.Content) > maxReviewLength {
		return dErrors.New(dErrors.CodeValidation, "content is too long")
	}
	if r.Rating < 1 || r.Rating > 5 {
		return dErrors.New(dErrors.CodeValidation, "rating must be between 1 and 5")
	}

	r.review = fraud.Review{
		Platform:           strings.TrimSpace(r.Platform),
		PlatformVerified:   r.PlatformVerified,
		Rating:             r.Rating,
		Content:            r.Content,
		ReviewerName:       strings.TrimSpace(r.ReviewerName),
		ReviewerExternalID: strings.TrimSpace(r.ReviewerExternalID),
		ReviewerVerified:   r.ReviewerVerified,
		ProjectVerified:    r.ProjectVerified,
		ProjectCompletedAt: r.ProjectCompletedAt,
		ReviewedAt:         r.ReviewedAt,
	}
	if r.ReviewID != "" {
		reviewID, err := id.ParseReviewID(r.ReviewID)
		if err != nil {
			return err
		}
		r.review.ID = reviewID
	}
	if r.ProjectID != "" {
		projectID, err := id.ParseRecordID(r.ProjectID)
		if err != nil {
			return err
		}
		r.review.ProjectID = &projectID
	}
	return nil
}

// Review returns the parsed review. The caller sets ownership.
func (r *VerifyReviewRequest) Review() fraud.Review {
	return r.review
}
