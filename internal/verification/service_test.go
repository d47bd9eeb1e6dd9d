package verification_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"worktrust/internal/proof"
	"worktrust/internal/verification"
	"worktrust/internal/verification/metrics"
	"worktrust/internal/verification/mocks"
	"worktrust/internal/verification/store"
	id "worktrust/pkg/domain"
	dErrors "worktrust/pkg/domain-errors"
	"worktrust/pkg/platform/audit"
	"worktrust/pkg/platform/sentinel"
	"worktrust/pkg/requestcontext"
)

// =============================================================================
// Verification Service Test Suite
// =============================================================================
// Unit tests cover ownership, error translation, signing and anchoring
// degradation with mocked stores. The scenario tests at the bottom run the
// service against the in-memory stores and a real HMAC proof service.

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type ServiceSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	records  *mocks.MockRecordStore
	statuses *mocks.MockStatusStore
	signer   *mocks.MockProofSigner
	auditor  *mocks.MockAuditPublisher
	service  *verification.Service
	ctx      context.Context
	userID   id.UserID
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.records = mocks.NewMockRecordStore(s.ctrl)
	s.statuses = mocks.NewMockStatusStore(s.ctrl)
	s.signer = mocks.NewMockProofSigner(s.ctrl)
	s.auditor = mocks.NewMockAuditPublisher(s.ctrl)

	var err error
	s.service, err = verification.NewService(s.records, s.statuses, s.signer, verification.NewEngine(confirmAll(), time.Second),
		verification.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		verification.WithMetrics(metrics.New(prometheus.NewRegistry())),
		verification.WithAuditPublisher(s.auditor),
	)
	s.Require().NoError(err)
	s.ctx = requestcontext.WithTime(context.Background(), now)
	s.userID = id.UserID(uuid.New())
}

func (s *ServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func confirmAll() *verification.ReconfirmerRegistry {
	reg := verification.NewReconfirmerRegistry()
	reg.Register("upwork", verification.ReconfirmerFunc(func(context.Context, *verification.Record) (verification.Reconfirmation, error) {
		return verification.Reconfirmation{Confirmed: true, Evidence: "job found"}, nil
	}))
	return reg
}

func connectedRecord(userID id.UserID) *verification.Record {
	return &verification.Record{
		ID:               id.RecordID(uuid.New()),
		UserID:           userID,
		Kind:             verification.KindWorkHistory,
		Platform:         "upwork",
		ExternalID:       "job-42",
		Source:           verification.SourceOAuth,
		ConnectionActive: true,
		Title:            "Checkout rewrite",
		Client:           &verification.Client{Name: "Acme", Verified: true},
		StartDate:        now.AddDate(0, -3, 0),
		Earnings:         &verification.Earnings{Amount: 10000, Currency: "USD", PaymentConfirmed: true},
		Level:            verification.LevelSelfReported,
	}
}

func selfRecord(userID id.UserID) *verification.Record {
	return &verification.Record{
		ID:        id.RecordID(uuid.New()),
		UserID:    userID,
		Kind:      verification.KindWorkHistory,
		Platform:  "direct",
		Source:    verification.SourceSelf,
		Title:     "Brochure site",
		Client:    &verification.Client{Name: "Corner shop"},
		StartDate: now.AddDate(-1, 0, 0),
		Earnings:  &verification.Earnings{Amount: 10000, Currency: "USD"},
		Level:     verification.LevelSelfReported,
	}
}

func testProof() *proof.Proof {
	return &proof.Proof{Type: proof.TypeHMAC, ProofPurpose: proof.PurposeAssertion, ProofValue: "sig"}
}

func (s *ServiceSuite) TestNewService() {
	s.Run("nil stores are rejected", func() {
		_, err := verification.NewService(nil, s.statuses, s.signer, nil)
		s.Error(err)
	})

	s.Run("nil signer is unavailable", func() {
		_, err := verification.NewService(s.records, s.statuses, nil, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
		s.ErrorIs(err, proof.ErrProofServiceUnavailable)
	})
}

func (s *ServiceSuite) TestVerify() {
	s.Run("connected record is signed, persisted and audited", func() {
		record := connectedRecord(s.userID)
		s.records.EXPECT().FindByID(gomock.Any(), record.ID).Return(record, nil)
		s.signer.EXPECT().Sign(gomock.Any(), proof.PurposeAssertion).Return(testProof(), nil)
		s.statuses.EXPECT().Append(gomock.Any(), gomock.Any()).Return(nil)
		s.records.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, r *verification.Record) error {
			s.Equal(verification.LevelPlatformVerified, r.Level)
			s.Require().NotNil(r.LastVerifiedAt)
			s.Equal(now, *r.LastVerifiedAt)
			return nil
		})
		s.auditor.EXPECT().Emit(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, e audit.Event) error {
			s.Equal(string(audit.EventVerificationCompleted), e.Action)
			s.Equal(record.ID.String(), e.Subject)
			return nil
		})

		status, err := s.service.Verify(s.ctx, s.userID, record.ID, verification.LevelPlatformVerified)
		s.Require().NoError(err)
		s.Equal(verification.LevelPlatformVerified, status.Level)
		s.GreaterOrEqual(status.Score, 70)
		s.NotNil(status.Signature)
		s.Equal(now.Add(verification.DefaultResultTTL), status.ExpiresAt)
		s.False(status.Degraded)
	})

	s.Run("nil user is unauthorized", func() {
		_, err := s.service.Verify(s.ctx, id.UserID{}, id.RecordID(uuid.New()), verification.LevelPlatformVerified)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("unknown record is not found", func() {
		recordID := id.RecordID(uuid.New())
		s.records.EXPECT().FindByID(gomock.Any(), recordID).Return(nil, sentinel.ErrNotFound)
		_, err := s.service.Verify(s.ctx, s.userID, recordID, verification.LevelPlatformVerified)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("another user's record is unauthorized", func() {
		record := connectedRecord(id.UserID(uuid.New()))
		s.records.EXPECT().FindByID(gomock.Any(), record.ID).Return(record, nil)
		_, err := s.service.Verify(s.ctx, s.userID, record.ID, verification.LevelPlatformVerified)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("superseded record conflicts", func() {
		record := connectedRecord(s.userID)
		next := id.RecordID(uuid.New())
		record.SupersededBy = &next
		s.records.EXPECT().FindByID(gomock.Any(), record.ID).Return(record, nil)
		_, err := s.service.Verify(s.ctx, s.userID, record.ID, verification.LevelPlatformVerified)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("invalid level is rejected before any write", func() {
		record := connectedRecord(s.userID)
		s.records.EXPECT().FindByID(gomock.Any(), record.ID).Return(record, nil)
		_, err := s.service.Verify(s.ctx, s.userID, record.ID, verification.Level("GOLD"))
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("signing failure is unavailable and persists nothing", func() {
		record := connectedRecord(s.userID)
		s.records.EXPECT().FindByID(gomock.Any(), record.ID).Return(record, nil)
		s.signer.EXPECT().Sign(gomock.Any(), gomock.Any()).Return(nil, proof.ErrProofServiceUnavailable)
		_, err := s.service.Verify(s.ctx, s.userID, record.ID, verification.LevelPlatformVerified)
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	})

	s.Run("audit failure does not fail the run", func() {
		record := connectedRecord(s.userID)
		s.records.EXPECT().FindByID(gomock.Any(), record.ID).Return(record, nil)
		s.signer.EXPECT().Sign(gomock.Any(), gomock.Any()).Return(testProof(), nil)
		s.statuses.EXPECT().Append(gomock.Any(), gomock.Any()).Return(nil)
		s.records.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil)
		s.auditor.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(errors.New("broker down"))
		_, err := s.service.Verify(s.ctx, s.userID, record.ID, verification.LevelPlatformVerified)
		s.NoError(err)
	})

	s.Run("status store failure is internal", func() {
		record := connectedRecord(s.userID)
		s.records.EXPECT().FindByID(gomock.Any(), record.ID).Return(record, nil)
		s.signer.EXPECT().Sign(gomock.Any(), gomock.Any()).Return(testProof(), nil)
		s.statuses.EXPECT().Append(gomock.Any(), gomock.Any()).Return(errors.New("disk full"))
		_, err := s.service.Verify(s.ctx, s.userID, record.ID, verification.LevelPlatformVerified)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})
}

type unitOfWorkKey struct{}

// recordingRunner tags the context it hands to fn so the test can see which
// store calls ran inside the unit of work.
type recordingRunner struct{ calls int }

func (r *recordingRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	r.calls++
	return fn(context.WithValue(ctx, unitOfWorkKey{}, r.calls))
}

func (s *ServiceSuite) TestVerify_WritesShareOneUnitOfWork() {
	runner := &recordingRunner{}
	service, err := verification.NewService(s.records, s.statuses, s.signer, verification.NewEngine(confirmAll(), time.Second),
		verification.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		verification.WithTxRunner(runner),
	)
	s.Require().NoError(err)

	inTx := func(ctx context.Context) bool { return ctx.Value(unitOfWorkKey{}) == 1 }
	record := connectedRecord(s.userID)
	s.records.EXPECT().FindByID(gomock.Any(), record.ID).DoAndReturn(func(ctx context.Context, _ id.RecordID) (*verification.Record, error) {
		s.False(inTx(ctx), "reads happen before the unit of work")
		return record, nil
	})
	s.signer.EXPECT().Sign(gomock.Any(), gomock.Any()).Return(testProof(), nil)
	s.statuses.EXPECT().Append(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, _ *verification.Status) error {
		s.True(inTx(ctx))
		return nil
	})
	s.records.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, _ *verification.Record) error {
		s.True(inTx(ctx))
		return errors.New("constraint violated")
	})

	_, err = service.Verify(s.ctx, s.userID, record.ID, verification.LevelPlatformVerified)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	s.Equal(1, runner.calls)
}

func (s *ServiceSuite) TestScoreRecord() {
	s.Run("sealed request without anchoring degrades to verified", func() {
		s.signer.EXPECT().Sign(gomock.Any(), gomock.Any()).Return(testProof(), nil)
		status, err := s.service.ScoreRecord(s.ctx, connectedRecord(s.userID), verification.LevelCryptographicallySealed)
		s.Require().NoError(err)
		s.Equal(verification.LevelPlatformVerified, status.Level)
		s.Equal(verification.LevelCryptographicallySealed, status.RequestedLevel)
		s.True(status.Degraded)
		s.Nil(status.Anchor)
		s.NotNil(status.Signature)
		s.NotEmpty(status.Notes)
	})

	s.Run("working anchorer seals", func() {
		anchored, err := verification.NewService(s.records, s.statuses, s.signer, verification.NewEngine(confirmAll(), time.Second),
			verification.WithAnchorer(anchorFunc(func(context.Context, string) (*verification.Anchor, error) {
				return &verification.Anchor{Network: "testnet", TransactionID: "0xabc", AnchoredAt: now}, nil
			})),
		)
		s.Require().NoError(err)
		s.signer.EXPECT().Sign(gomock.Any(), gomock.Any()).Return(testProof(), nil)
		status, err := anchored.ScoreRecord(s.ctx, connectedRecord(s.userID), verification.LevelCryptographicallySealed)
		s.Require().NoError(err)
		s.Equal(verification.LevelCryptographicallySealed, status.Level)
		s.False(status.Degraded)
		s.Equal("0xabc", status.Anchor.TransactionID)
	})

	s.Run("unsigned below verified", func() {
		status, err := s.service.ScoreRecord(s.ctx, selfRecord(s.userID), verification.LevelPlatformVerified)
		s.Require().NoError(err)
		s.Equal(verification.LevelSelfReported, status.Level)
		s.Nil(status.Signature)
	})

	s.Run("each run gets a new run id", func() {
		record := selfRecord(s.userID)
		a, err := s.service.ScoreRecord(s.ctx, record, verification.LevelPlatformVerified)
		s.Require().NoError(err)
		b, err := s.service.ScoreRecord(s.ctx, record, verification.LevelPlatformVerified)
		s.Require().NoError(err)
		s.NotEqual(a.RunID, b.RunID)
		s.Equal(a.ContentHash, b.ContentHash)
	})

	s.Run("nil record is invalid", func() {
		_, err := s.service.ScoreRecord(s.ctx, nil, verification.LevelPlatformVerified)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func (s *ServiceSuite) TestVerifyBatch() {
	s.Run("one failing record does not abort the batch", func() {
		good := selfRecord(s.userID)
		missing := id.RecordID(uuid.New())

		s.records.EXPECT().FindByID(gomock.Any(), good.ID).Return(good, nil)
		s.records.EXPECT().FindByID(gomock.Any(), missing).Return(nil, sentinel.ErrNotFound)
		s.statuses.EXPECT().Append(gomock.Any(), gomock.Any()).Return(nil)
		s.records.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil)
		s.auditor.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil)

		result := s.service.VerifyBatch(s.ctx, s.userID, []id.RecordID{missing, good.ID}, verification.LevelPlatformVerified)
		s.Len(result.Statuses, 1)
		s.Contains(result.Statuses, good.ID)
		s.Len(result.Errors, 1)
		s.Contains(result.Errors, missing)
	})
}

type anchorFunc func(ctx context.Context, hash string) (*verification.Anchor, error)

func (f anchorFunc) Anchor(ctx context.Context, hash string) (*verification.Anchor, error) {
	return f(ctx, hash)
}

// =============================================================================
// Scenarios against in-memory stores
// =============================================================================

type ScenarioSuite struct {
	suite.Suite
	records  *store.InMemoryRecordStore
	statuses *store.InMemoryStatusStore
	proofs   *proof.Service
	service  *verification.Service
	ctx      context.Context
	userID   id.UserID
}

func TestScenarioSuite(t *testing.T) {
	suite.Run(t, new(ScenarioSuite))
}

func (s *ScenarioSuite) SetupTest() {
	s.records = store.NewInMemoryRecordStore()
	s.statuses = store.NewInMemoryStatusStore()

	hmac, err := proof.NewHMACSigner([]byte("scenario-secret"))
	s.Require().NoError(err)
	s.proofs, err = proof.NewService(hmac, "did:web:worktrust.test",
		proof.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	s.Require().NoError(err)

	s.service, err = verification.NewService(s.records, s.statuses, s.proofs, verification.NewEngine(confirmAll(), time.Second),
		verification.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		verification.WithResultTTL(30*24*time.Hour),
	)
	s.Require().NoError(err)
	s.ctx = requestcontext.WithTime(context.Background(), now)
	s.userID = id.UserID(uuid.New())
}

func (s *ScenarioSuite) TestThreeRecordsOneConnected() {
	connected := connectedRecord(s.userID)
	selfA := selfRecord(s.userID)
	selfB := selfRecord(s.userID)
	for _, r := range []*verification.Record{connected, selfA, selfB} {
		s.Require().NoError(s.records.Save(s.ctx, r))
	}

	result := s.service.VerifyBatch(s.ctx, s.userID,
		[]id.RecordID{connected.ID, selfA.ID, selfB.ID}, verification.LevelPlatformVerified)
	s.Require().Empty(result.Errors)

	got := result.Statuses[connected.ID]
	s.GreaterOrEqual(got.Score, 70)
	s.Equal(verification.LevelPlatformVerified, got.Level)
	s.True(s.proofs.VerifyHash(got.ContentHash, got.Signature))

	for _, rid := range []id.RecordID{selfA.ID, selfB.ID} {
		st := result.Statuses[rid]
		s.Equal(verification.LevelSelfReported, st.Level)
		s.Less(st.Score, 50)
		s.Nil(st.Signature)
	}

	stored, err := s.records.FindByID(s.ctx, connected.ID)
	s.Require().NoError(err)
	s.Equal(verification.LevelPlatformVerified, stored.Level)
	s.Equal(got.Score, stored.Score)
}

func (s *ScenarioSuite) TestHistoryIsAppendOnly() {
	record := connectedRecord(s.userID)
	s.Require().NoError(s.records.Save(s.ctx, record))

	first, err := s.service.Verify(s.ctx, s.userID, record.ID, verification.LevelPlatformVerified)
	s.Require().NoError(err)
	later := requestcontext.WithTime(s.ctx, now.Add(time.Hour))
	second, err := s.service.Verify(later, s.userID, record.ID, verification.LevelPlatformVerified)
	s.Require().NoError(err)

	history, err := s.service.History(s.ctx, s.userID, record.ID)
	s.Require().NoError(err)
	s.Require().Len(history, 2)
	s.Equal(second.RunID, history[0].RunID)
	s.Equal(first.RunID, history[1].RunID)

	_, err = s.service.History(s.ctx, id.UserID(uuid.New()), record.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *ScenarioSuite) TestReVerifyExpired() {
	fresh := connectedRecord(s.userID)
	stale := connectedRecord(s.userID)
	s.Require().NoError(s.records.Save(s.ctx, fresh))
	s.Require().NoError(s.records.Save(s.ctx, stale))

	old := requestcontext.WithTime(s.ctx, now.AddDate(0, -2, 0))
	_, err := s.service.Verify(old, s.userID, stale.ID, verification.LevelCryptographicallySealed)
	s.Require().NoError(err)
	_, err = s.service.Verify(s.ctx, s.userID, fresh.ID, verification.LevelPlatformVerified)
	s.Require().NoError(err)

	result, err := s.service.ReVerifyExpired(context.Background(), now)
	s.Require().NoError(err)
	s.Equal(1, result.Examined)
	s.Equal(1, result.Reverified)
	s.Empty(result.Errors)

	history, err := s.service.History(s.ctx, s.userID, stale.ID)
	s.Require().NoError(err)
	s.Require().Len(history, 2)
	s.Equal(verification.LevelCryptographicallySealed, history[0].RequestedLevel)
	s.Equal(now, history[0].VerifiedAt)

	again, err := s.service.ReVerifyExpired(context.Background(), now)
	s.Require().NoError(err)
	s.Zero(again.Examined)
}

func (s *ScenarioSuite) TestImportRecord() {
	imported, err := s.service.ImportRecord(s.ctx, s.userID, &verification.Record{
		Platform:  "upwork",
		Title:     "Checkout service",
		StartDate: now.AddDate(0, -3, 0),
		Level:     verification.LevelCryptographicallySealed,
		Score:     99,
	})
	s.Require().NoError(err)
	s.False(imported.ID.IsNil())
	s.Equal(verification.LevelSelfReported, imported.Level)
	s.Zero(imported.Score)
	s.Equal(verification.KindWorkHistory, imported.Kind)

	hash, err := imported.ContentHash()
	s.Require().NoError(err)
	s.Equal(hash, imported.OriginalHash)

	records, err := s.service.ListRecords(s.ctx, s.userID)
	s.Require().NoError(err)
	s.Len(records, 1)

	end := now.AddDate(0, -6, 0)
	_, err = s.service.ImportRecord(s.ctx, s.userID, &verification.Record{
		Platform:  "upwork",
		Title:     "Backwards",
		StartDate: now.AddDate(0, -3, 0),
		EndDate:   &end,
	})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *ScenarioSuite) TestImportedRecordCannotClaimPlatformEvidence() {
	platformAmount := 1200.0
	imported, err := s.service.ImportRecord(s.ctx, s.userID, &verification.Record{
		Platform:         "upwork",
		ExternalID:       "job-123",
		Source:           verification.SourceOAuth,
		ConnectionActive: true,
		Title:            "Checkout service",
		Client:           &verification.Client{Name: "Acme", ExternalID: "client-9", Verified: true},
		StartDate:        now.AddDate(0, -3, 0),
		Earnings: &verification.Earnings{
			Amount: 1200, Currency: "USD", PaymentConfirmed: true, PlatformAmount: &platformAmount,
		},
	})
	s.Require().NoError(err)
	s.Equal(verification.SourceManualImport, imported.Source)
	s.False(imported.ConnectionActive)
	s.False(imported.Client.Verified)
	s.False(imported.Earnings.PaymentConfirmed)
	s.Nil(imported.Earnings.PlatformAmount)

	status, err := s.service.Verify(s.ctx, s.userID, imported.ID, verification.LevelCryptographicallySealed)
	s.Require().NoError(err)
	s.Equal(verification.LevelSelfReported, status.Level)
	for _, c := range status.Checks {
		switch c.Name {
		case verification.CheckOAuthConnection, verification.CheckPaymentConfirmed:
			s.False(c.Passed, c.Name)
		}
	}

	s.Run("self-entered source is kept", func() {
		self, err := s.service.ImportRecord(s.ctx, s.userID, &verification.Record{
			Platform:  "upwork",
			Source:    verification.SourceSelf,
			Title:     "Side project",
			StartDate: now.AddDate(0, -1, 0),
		})
		s.Require().NoError(err)
		s.Equal(verification.SourceSelf, self.Source)
	})
}

func (s *ScenarioSuite) TestSyncRecordKeepsPlatformEvidence() {
	synced, err := s.service.SyncRecord(s.ctx, s.userID, connectedRecord(s.userID))
	s.Require().NoError(err)
	s.Equal(verification.SourceOAuth, synced.Source)
	s.True(synced.ConnectionActive)

	status, err := s.service.Verify(s.ctx, s.userID, synced.ID, verification.LevelPlatformVerified)
	s.Require().NoError(err)
	s.True(status.Level.AtLeast(verification.LevelPlatformConnected))

	_, err = s.service.SyncRecord(s.ctx, s.userID, selfRecord(s.userID))
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *ScenarioSuite) TestImportHashSurvivesMicrosecondStorage() {
	start := time.Date(2025, 1, 2, 3, 4, 5, 123456789, time.UTC)
	end := start.Add(48*time.Hour + 999*time.Nanosecond)
	imported, err := s.service.ImportRecord(s.ctx, s.userID, &verification.Record{
		Platform:  "upwork",
		Title:     "Nanosecond dates",
		StartDate: start,
		EndDate:   &end,
	})
	s.Require().NoError(err)
	s.Equal(start.Truncate(time.Microsecond), imported.StartDate)

	// What a TIMESTAMPTZ column hands back.
	reloaded := *imported
	reloaded.StartDate = start.Truncate(time.Microsecond).In(time.FixedZone("CET", 3600))
	reloadedEnd := end.Truncate(time.Microsecond)
	reloaded.EndDate = &reloadedEnd
	hash, err := reloaded.ContentHash()
	s.Require().NoError(err)
	s.Equal(imported.OriginalHash, hash)
}
