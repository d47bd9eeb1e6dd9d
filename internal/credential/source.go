package credential

import (
	"context"
	"errors"

	"worktrust/internal/fraud"
	"worktrust/internal/reputation"
	"worktrust/internal/verification"
	id "worktrust/pkg/domain"
	dErrors "worktrust/pkg/domain-errors"
	"worktrust/pkg/platform/sentinel"
)

type ProfileStore interface {
	FindByUser(ctx context.Context, userID id.UserID) (*Profile, error)
}

type RecordLister interface {
	ListRecords(ctx context.Context, userID id.UserID) ([]*verification.Record, error)
}

type EarningsVerifier interface {
	VerifyEarnings(ctx context.Context, userID id.UserID, records []*verification.Record, platformTotal *float64) (*fraud.EarningsResult, error)
}

type ReviewLister interface {
	ListByUser(ctx context.Context, userID id.UserID) ([]*fraud.Review, error)
}

type ReviewBatchVerifier interface {
	VerifyAllReviews(ctx context.Context, reviews []*fraud.Review) *reputation.ReviewBatch
}

// DataSource assembles subject data from the verification, fraud and
// reputation services.
type DataSource struct {
	profiles ProfileStore
	records  RecordLister
	earnings EarningsVerifier
	reviews  ReviewLister
	verifier ReviewBatchVerifier
}

func NewDataSource(profiles ProfileStore, records RecordLister, earnings EarningsVerifier, reviews ReviewLister, verifier ReviewBatchVerifier) *DataSource {
	return &DataSource{
		profiles: profiles,
		records:  records,
		earnings: earnings,
		reviews:  reviews,
		verifier: verifier,
	}
}

// Profile returns nil without error for a user who never filled one in.
func (d *DataSource) Profile(ctx context.Context, userID id.UserID) (*Profile, error) {
	p, err := d.profiles.FindByUser(ctx, userID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load profile")
	}
	return p, nil
}

func (d *DataSource) WorkHistory(ctx context.Context, userID id.UserID) ([]*verification.Record, error) {
	return d.records.ListRecords(ctx, userID)
}

func (d *DataSource) Earnings(ctx context.Context, userID id.UserID) (*fraud.EarningsResult, error) {
	records, err := d.records.ListRecords(ctx, userID)
	if err != nil {
		return nil, err
	}
	return d.earnings.VerifyEarnings(ctx, userID, currentRecords(records, ""), nil)
}

// Reviews whose verification failed have no result and count as unverified.
func (d *DataSource) Reviews(ctx context.Context, userID id.UserID) ([]*fraud.Review, map[id.ReviewID]*fraud.ReviewResult, error) {
	reviews, err := d.reviews.ListByUser(ctx, userID)
	if err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load reviews")
	}
	batch := d.verifier.VerifyAllReviews(ctx, reviews)
	return reviews, batch.Results, nil
}
