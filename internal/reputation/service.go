package reputation

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"worktrust/internal/fraud"
	"worktrust/internal/verification"
	id "worktrust/pkg/domain"
	dErrors "worktrust/pkg/domain-errors"
	"worktrust/pkg/requestcontext"
)

// ReviewStore loads and saves a user's imported reviews.
type ReviewStore interface {
	ListByUser(ctx context.Context, userID id.UserID) ([]*fraud.Review, error)
	Save(ctx context.Context, review *fraud.Review) error
}

// ReviewVerifier scores one review's authenticity.
type ReviewVerifier interface {
	VerifyReview(ctx context.Context, review *fraud.Review) (*fraud.ReviewResult, error)
}

// ProjectLookup resolves the work-history record a review links to. It
// fails for records that do not exist or belong to another user.
type ProjectLookup interface {
	Record(ctx context.Context, userID id.UserID, recordID id.RecordID) (*verification.Record, error)
}

// ReviewBatch is the outcome of verifying a set of reviews. A review appears
// in exactly one of the two maps.
type ReviewBatch struct {
	Results map[id.ReviewID]*fraud.ReviewResult `json:"results"`
	Errors  map[id.ReviewID]string              `json:"errors"`
}

// Service combines review verification with cross-platform aggregation. It
// makes no trust decisions of its own.
type Service struct {
	reviews  ReviewStore
	verifier ReviewVerifier
	projects ProjectLookup
	logger   *slog.Logger
	tracer   trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithProjectLookup lets imported reviews link to the reviewer's records.
// Without it a review's project link is never treated as verified.
func WithProjectLookup(p ProjectLookup) Option {
	return func(s *Service) {
		s.projects = p
	}
}

func NewService(reviews ReviewStore, verifier ReviewVerifier, opts ...Option) (*Service, error) {
	if reviews == nil || verifier == nil {
		return nil, errors.New("reputation service requires a review store and verifier")
	}
	s := &Service{
		reviews:  reviews,
		verifier: verifier,
		logger:   slog.Default(),
		tracer:   otel.Tracer("worktrust/reputation"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// VerifyAllReviews verifies reviews one at a time. A failing review is
// logged and reported in Errors; the rest still run.
func (s *Service) VerifyAllReviews(ctx context.Context, reviews []*fraud.Review) *ReviewBatch {
	batch := &ReviewBatch{
		Results: make(map[id.ReviewID]*fraud.ReviewResult, len(reviews)),
		Errors:  make(map[id.ReviewID]string),
	}
	for _, r := range reviews {
		if r == nil {
			continue
		}
		result, err := s.verifier.VerifyReview(ctx, r)
		if err != nil {
			s.logger.WarnContext(ctx, "review verification failed",
				"review_id", r.ID,
				"user_id", r.UserID,
				"error", err,
			)
			batch.Errors[r.ID] = err.Error()
			continue
		}
		batch.Results[r.ID] = result
	}
	return batch
}

// AggregateReviews loads, verifies and aggregates every review of userID.
// A user without reviews gets a zero-valued score, not an error.
func (s *Service) AggregateReviews(ctx context.Context, userID id.UserID) (*Score, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "user is required")
	}
	ctx, span := s.tracer.Start(ctx, "reputation.AggregateReviews")
	defer span.End()

	reviews, err := s.reviews.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load reviews")
	}
	batch := s.VerifyAllReviews(ctx, reviews)
	score := Aggregate(userID, reviews, batch.Results, requestcontext.Now(ctx))

	span.SetAttributes(
		attribute.Int("reviews", score.TotalReviews),
		attribute.Int("verified", score.VerifiedReviews),
		attribute.Int("failed", len(batch.Errors)),
	)
	s.logger.InfoContext(ctx, "reviews aggregated",
		"user_id", userID,
		"reviews", score.TotalReviews,
		"verified", score.VerifiedReviews,
		"overall_rating", score.OverallRating,
	)
	return score, nil
}

// ImportReview stores a holder-supplied review for later aggregation.
// Verification flags in the input are discarded. A project link must name
// one of the holder's records, and counts as verified only when that record
// has reached PLATFORM_VERIFIED.
func (s *Service) ImportReview(ctx context.Context, review *fraud.Review) error {
	if review == nil || review.UserID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "review with user is required")
	}
	if review.Rating < 1 || review.Rating > 5 {
		return dErrors.New(dErrors.CodeInvalidInput, "rating must be between 1 and 5")
	}
	review.StripPlatformEvidence()
	if err := s.resolveProject(ctx, review); err != nil {
		return err
	}
	if review.ID.IsNil() {
		review.ID = id.ReviewID(uuid.New())
	}
	if review.ReviewedAt.IsZero() {
		review.ReviewedAt = requestcontext.Now(ctx)
	}
	if err := s.reviews.Save(ctx, review); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save review")
	}
	return nil
}

func (s *Service) resolveProject(ctx context.Context, review *fraud.Review) error {
	if review.ProjectID == nil || s.projects == nil {
		return nil
	}
	record, err := s.projects.Record(ctx, review.UserID, *review.ProjectID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) || dErrors.HasCode(err, dErrors.CodeUnauthorized) {
			return dErrors.New(dErrors.CodeInvalidInput, "project_id does not name one of your records")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve project")
	}
	review.ProjectVerified = record.Level.AtLeast(verification.LevelPlatformVerified)
	if record.EndDate != nil {
		completed := *record.EndDate
		review.ProjectCompletedAt = &completed
	}
	return nil
}
