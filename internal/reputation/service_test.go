package reputation_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"worktrust/internal/fraud"
	"worktrust/internal/verification"
	"worktrust/internal/reputation"
	"worktrust/internal/reputation/store"
	id "worktrust/pkg/domain"
	dErrors "worktrust/pkg/domain-errors"
	"worktrust/pkg/requestcontext"
)

type failingVerifier struct {
	inner  reputation.ReviewVerifier
	failOn id.ReviewID
}

func (f failingVerifier) VerifyReview(ctx context.Context, r *fraud.Review) (*fraud.ReviewResult, error) {
	if r.ID == f.failOn {
		return nil, errors.New("scoring exploded")
	}
	return f.inner.VerifyReview(ctx, r)
}

type stubProjects map[id.RecordID]*verification.Record

func (p stubProjects) Record(_ context.Context, userID id.UserID, recordID id.RecordID) (*verification.Record, error) {
	r, ok := p[recordID]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "record not found")
	}
	if r.UserID != userID {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "record belongs to another user")
	}
	return r, nil
}

type ServiceSuite struct {
	suite.Suite
	reviews *store.InMemoryReviewStore
	service *reputation.Service
	ctx     context.Context
	userID  id.UserID
	now     time.Time
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.reviews = store.NewInMemoryReviewStore()
	var err error
	s.service, err = reputation.NewService(s.reviews, fraud.NewService(),
		reputation.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	s.Require().NoError(err)
	s.now = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.userID = id.UserID(uuid.New())
}

// addReview stores a review. Platform-verified reviews go straight to the
// store the way a platform sync writes them; the rest go through ImportReview.
func (s *ServiceSuite) addReview(rating int, content string, verifiedSource bool) *fraud.Review {
	project := id.RecordID(uuid.New())
	r := &fraud.Review{
		ID:               id.ReviewID(uuid.New()),
		UserID:           s.userID,
		Platform:         "upwork",
		PlatformVerified: verifiedSource,
		Rating:           rating,
		Content:          content,
		ReviewerVerified: verifiedSource,
		ReviewedAt:       s.now.AddDate(0, -1, 0),
	}
	if verifiedSource {
		r.ProjectID = &project
		r.ProjectVerified = true
		s.Require().NoError(s.reviews.Save(s.ctx, r))
		return r
	}
	s.Require().NoError(s.service.ImportReview(s.ctx, r))
	return r
}

func (s *ServiceSuite) TestAggregateReviews() {
	s.Run("no reviews yields an empty score", func() {
		score, err := s.service.AggregateReviews(s.ctx, id.UserID(uuid.New()))
		s.Require().NoError(err)
		s.Zero(score.TotalReviews)
		s.NotNil(score.Themes)
	})

	s.Run("verified reviews are counted", func() {
		s.addReview(5, "Rebuilt our data pipeline, communicated daily and delivered on time.", true)
		s.addReview(4, "Solid delivery.", false)

		score, err := s.service.AggregateReviews(s.ctx, s.userID)
		s.Require().NoError(err)
		s.Equal(2, score.TotalReviews)
		s.Equal(1, score.VerifiedReviews)
		// (1.5*5 + 4) / 2.5 = 4.6
		s.Equal(4.6, score.OverallRating)
		s.Equal(s.now, score.ComputedAt)
	})

	s.Run("nil user is invalid", func() {
		_, err := s.service.AggregateReviews(s.ctx, id.UserID{})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func (s *ServiceSuite) TestVerifyAllReviews_IsolatesFailures() {
	good := s.addReview(5, "Rebuilt our data pipeline, communicated daily and delivered on time.", true)
	bad := s.addReview(4, "Fine.", false)

	svc, err := reputation.NewService(s.reviews, failingVerifier{inner: fraud.NewService(), failOn: bad.ID})
	s.Require().NoError(err)

	batch := svc.VerifyAllReviews(s.ctx, []*fraud.Review{good, bad})
	s.Len(batch.Results, 1)
	s.Contains(batch.Results, good.ID)
	s.Contains(batch.Errors, bad.ID)
}

func (s *ServiceSuite) TestImportReview_Validates() {
	err := s.service.ImportReview(s.ctx, &fraud.Review{ID: id.ReviewID(uuid.New()), UserID: s.userID, Rating: 9})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *ServiceSuite) TestImportReview_DiscardsSelfAssertedFlags() {
	completed := s.now.AddDate(0, -2, 0)
	verified := &verification.Record{ID: id.RecordID(uuid.New()), UserID: s.userID, Level: verification.LevelPlatformVerified, EndDate: &completed}
	selfReported := &verification.Record{ID: id.RecordID(uuid.New()), UserID: s.userID, Level: verification.LevelSelfReported}
	foreign := &verification.Record{ID: id.RecordID(uuid.New()), UserID: id.UserID(uuid.New()), Level: verification.LevelPlatformVerified}
	projects := stubProjects{verified.ID: verified, selfReported.ID: selfReported, foreign.ID: foreign}

	svc, err := reputation.NewService(s.reviews, fraud.NewService(), reputation.WithProjectLookup(projects))
	s.Require().NoError(err)

	review := func(project *id.RecordID) *fraud.Review {
		return &fraud.Review{
			UserID:           s.userID,
			Platform:         "upwork",
			PlatformVerified: true,
			ReviewerVerified: true,
			ProjectVerified:  true,
			ProjectID:        project,
			Rating:           5,
			Content:          "Great work.",
		}
	}

	s.Run("flags are cleared without a project", func() {
		r := review(nil)
		s.Require().NoError(svc.ImportReview(s.ctx, r))
		s.False(r.PlatformVerified)
		s.False(r.ReviewerVerified)
		s.False(r.ProjectVerified)
	})

	s.Run("project verification follows the linked record", func() {
		r := review(&verified.ID)
		s.Require().NoError(svc.ImportReview(s.ctx, r))
		s.True(r.ProjectVerified)
		s.Require().NotNil(r.ProjectCompletedAt)
		s.Equal(completed, *r.ProjectCompletedAt)

		r = review(&selfReported.ID)
		s.Require().NoError(svc.ImportReview(s.ctx, r))
		s.False(r.ProjectVerified)
	})

	s.Run("unknown or foreign projects are rejected", func() {
		missing := id.RecordID(uuid.New())
		s.True(dErrors.HasCode(svc.ImportReview(s.ctx, review(&missing)), dErrors.CodeInvalidInput))
		s.True(dErrors.HasCode(svc.ImportReview(s.ctx, review(&foreign.ID)), dErrors.CodeInvalidInput))
	})

	s.Run("no lookup means no verified link", func() {
		r := review(&verified.ID)
		s.Require().NoError(s.service.ImportReview(s.ctx, r))
		s.False(r.ProjectVerified)
	})

	s.Run("imported reviews do not count as verified", func() {
		owner := id.UserID(uuid.New())
		r := review(nil)
		r.UserID = owner
		s.Require().NoError(svc.ImportReview(s.ctx, r))
		score, err := svc.AggregateReviews(s.ctx, owner)
		s.Require().NoError(err)
		s.Equal(1, score.TotalReviews)
		s.Zero(score.VerifiedReviews)
	})
}
