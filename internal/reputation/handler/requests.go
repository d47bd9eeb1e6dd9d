package handler

import (
	"strings"
	"time"

	"worktrust/internal/fraud"
	id "worktrust/pkg/domain"
	dErrors "worktrust/pkg/domain-errors"
)

const maxReviewLength = 10000

// ImportReviewRequest is the body of POST /reviews. Verification flags are
// not accepted; the project link is resolved against the caller's records.
type ImportReviewRequest struct {
	Platform           string     `json:"platform"`
	Rating             int        `json:"rating"`
	Content            string     `json:"content"`
	ReviewerName       string     `json:"reviewer_name"`
	ReviewerExternalID string     `json:"reviewer_external_id"`
	ProjectID          string     `json:"project_id"`
	ProjectCompletedAt *time.Time `json:"project_completed_at"`
	ReviewedAt         time.Time  `json:"reviewed_at"`

	projectID *id.RecordID
}

func (r *ImportReviewRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Platform = strings.TrimSpace(r.Platform)
	if r.Platform == "" {
		return dErrors.New(dErrors.CodeValidation, "platform is required")
	}
	if r.Rating < 1 || r.Rating > 5 {
		return dErrors.New(dErrors.CodeValidation, "rating must be between 1 and 5")
	}
	if len(r.Content) > maxReviewLength {
		return dErrors.New(dErrors.CodeValidation, "content is too long")
	}
	if r.ProjectID != "" {
		projectID, err := id.ParseRecordID(r.ProjectID)
		if err != nil {
			return err
		}
		r.projectID = &projectID
	}
	return nil
}

// Review builds the review owned by userID.
func (r *ImportReviewRequest) Review(userID id.UserID) *fraud.Review {
	return &fraud.Review{
		UserID:             userID,
		Platform:           r.Platform,
		Rating:             r.Rating,
		Content:            r.Content,
		ReviewerName:       strings.TrimSpace(r.ReviewerName),
		ReviewerExternalID: strings.TrimSpace(r.ReviewerExternalID),
		ProjectID:          r.projectID,
		ProjectCompletedAt: r.ProjectCompletedAt,
		ReviewedAt:         r.ReviewedAt,
	}
}
