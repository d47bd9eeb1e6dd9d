package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"worktrust/internal/proof"
	"worktrust/internal/verification/metrics"
	id "worktrust/pkg/domain"
	dErrors "worktrust/pkg/domain-errors"
	"worktrust/pkg/platform/audit"
	"worktrust/pkg/platform/sentinel"
	txcontext "worktrust/pkg/platform/tx"
	"worktrust/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks RecordStore,StatusStore,ProofSigner,AuditPublisher

// DefaultResultTTL is how long a verification result stays current.
const DefaultResultTTL = 365 * 24 * time.Hour

// RecordStore loads and saves records. Implementations return
// sentinel.ErrNotFound for unknown IDs.
type RecordStore interface {
	FindByID(ctx context.Context, recordID id.RecordID) (*Record, error)
	ListByUser(ctx context.Context, userID id.UserID) ([]*Record, error)
	Save(ctx context.Context, record *Record) error
}

// StatusStore keeps the append-only trail of verification runs.
type StatusStore interface {
	Append(ctx context.Context, status *Status) error
	ListByRecord(ctx context.Context, recordID id.RecordID) ([]*Status, error)
	// ListExpired returns the latest status of each record whose latest
	// status expired before the given time.
	ListExpired(ctx context.Context, before time.Time) ([]*Status, error)
}

// ProofSigner signs a content hash.
type ProofSigner interface {
	Sign(hash, purpose string) (*proof.Proof, error)
}

// AuditPublisher emits lifecycle events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service orchestrates verification runs: ownership checks, scoring,
// signing, anchoring and persistence.
type Service struct {
	records  RecordStore
	statuses StatusStore
	signer   ProofSigner
	engine   *Engine

	anchorer  Anchorer
	resultTTL time.Duration
	logger    *slog.Logger
	metrics   *metrics.Metrics
	auditor   AuditPublisher
	tracer    trace.Tracer
	tx        txcontext.Runner
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) {
		s.auditor = p
	}
}

// WithAnchorer replaces DisabledAnchorer.
func WithAnchorer(a Anchorer) Option {
	return func(s *Service) {
		s.anchorer = a
	}
}

// WithTxRunner makes the status append and record update of a run atomic.
func WithTxRunner(r txcontext.Runner) Option {
	return func(s *Service) {
		s.tx = r
	}
}

func WithResultTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.resultTTL = ttl
		}
	}
}

func NewService(records RecordStore, statuses StatusStore, signer ProofSigner, engine *Engine, opts ...Option) (*Service, error) {
	if records == nil || statuses == nil {
		return nil, errors.New("verification service requires record and status stores")
	}
	if signer == nil {
		return nil, dErrors.Wrap(proof.ErrProofServiceUnavailable, dErrors.CodeUnavailable, "verification service requires a proof signer")
	}
	if engine == nil {
		engine = NewEngine(nil, 0)
	}
	s := &Service{
		records:   records,
		statuses:  statuses,
		signer:    signer,
		engine:    engine,
		anchorer:  DisabledAnchorer{},
		resultTTL: DefaultResultTTL,
		logger:    slog.Default(),
		tracer:    otel.Tracer("worktrust/verification"),
		tx:        txcontext.NopRunner{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ScoreRecord runs the engine against record without loading or persisting
// anything. Every call yields a new RunID.
func (s *Service) ScoreRecord(ctx context.Context, record *Record, requested Level) (*Status, error) {
	if record == nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "record is required")
	}
	ctx, span := s.tracer.Start(ctx, "verification.ScoreRecord", trace.WithAttributes(
		attribute.String("record_id", record.ID.String()),
		attribute.String("requested_level", string(requested)),
	))
	defer span.End()

	if !requested.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid requested level: "+string(requested))
	}

	start := time.Now()
	now := requestcontext.Now(ctx)

	hash, err := record.ContentHash()
	if err != nil {
		span.SetStatus(codes.Error, "hash record")
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash record")
	}

	checks := s.engine.Run(ctx, record, hash, now)
	score := Score(checks)
	level := DetermineLevel(requested, score, checks)

	status := &Status{
		RunID:          id.NewRunID(),
		RecordID:       record.ID,
		UserID:         record.UserID,
		Level:          level,
		RequestedLevel: requested,
		Score:          score,
		Checks:         checks,
		ContentHash:    hash,
		VerifiedAt:     now,
		ExpiresAt:      now.Add(s.resultTTL),
	}

	if level.AtLeast(LevelPlatformVerified) {
		sig, err := s.signer.Sign(hash, proof.PurposeAssertion)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "sign")
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to sign verification result")
		}
		status.Signature = sig
	}

	if level == LevelCryptographicallySealed {
		s.anchor(ctx, status)
	}

	for _, c := range checks {
		s.metrics.IncrementCheck(c.Name, c.Passed)
	}
	s.metrics.ObserveRun(string(status.Level), string(requested), score, time.Since(start))
	span.SetAttributes(
		attribute.String("level", string(status.Level)),
		attribute.Int("score", score),
	)
	return status, nil
}

// anchor requests a ledger anchor. A failure keeps the signed result valid at
// PLATFORM_VERIFIED and marks it degraded.
func (s *Service) anchor(ctx context.Context, status *Status) {
	anchor, err := s.anchorer.Anchor(ctx, status.ContentHash)
	if err == nil && anchor != nil {
		status.Anchor = anchor
		return
	}
	if err == nil {
		err = errors.New("anchorer returned no anchor")
	}
	status.Level = LevelPlatformVerified
	status.Degraded = true
	status.Notes = append(status.Notes, fmt.Sprintf("anchoring failed: %v", err))
	s.metrics.IncrementAnchorFailure()
	s.logger.WarnContext(ctx, "anchoring failed; result kept at platform verified",
		"record_id", status.RecordID,
		"run_id", status.RunID,
		"error", err,
	)
}

// Verify loads a record owned by userID, runs verification, appends the new
// status to the audit trail and applies its level to the record.
func (s *Service) Verify(ctx context.Context, userID id.UserID, recordID id.RecordID, requested Level) (*Status, error) {
	record, err := s.loadOwned(ctx, userID, recordID)
	if err != nil {
		return nil, err
	}
	if record.IsSuperseded() {
		return nil, dErrors.New(dErrors.CodeConflict, "record has been superseded")
	}

	status, err := s.ScoreRecord(ctx, record, requested)
	if err != nil {
		return nil, err
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.statuses.Append(ctx, status); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist verification status")
		}
		record.ApplyStatus(status)
		if err := s.records.Save(ctx, record); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update record")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, audit.Event{
		UserID:    userID,
		Subject:   recordID.String(),
		Action:    string(audit.EventVerificationCompleted),
		Decision:  string(status.Level),
		Reason:    fmt.Sprintf("score=%d run=%s", status.Score, status.RunID),
		RequestID: requestcontext.RequestID(ctx),
	})
	s.logger.InfoContext(ctx, "record verified",
		"user_id", userID,
		"record_id", recordID,
		"run_id", status.RunID,
		"level", status.Level,
		"score", status.Score,
		"degraded", status.Degraded,
	)
	return status, nil
}

// VerifyBatch verifies records one at a time. A failing record is logged and
// reported in Errors; it never aborts the batch.
func (s *Service) VerifyBatch(ctx context.Context, userID id.UserID, recordIDs []id.RecordID, requested Level) *BatchResult {
	ctx, span := s.tracer.Start(ctx, "verification.VerifyBatch", trace.WithAttributes(
		attribute.Int("records", len(recordIDs)),
	))
	defer span.End()

	result := &BatchResult{
		Statuses: make(map[id.RecordID]*Status, len(recordIDs)),
		Errors:   make(map[id.RecordID]string),
	}
	for _, recordID := range recordIDs {
		status, err := s.Verify(ctx, userID, recordID, requested)
		if err != nil {
			s.metrics.IncrementBatchFailure()
			s.logger.WarnContext(ctx, "batch verification item failed",
				"user_id", userID,
				"record_id", recordID,
				"error", err,
			)
			result.Errors[recordID] = err.Error()
			continue
		}
		result.Statuses[recordID] = status
	}
	span.SetAttributes(attribute.Int("failures", len(result.Errors)))
	return result
}

// ReVerifyExpired is the single-pass entry point for the periodic sweep. Each
// expired record is re-run at the level its last run requested.
func (s *Service) ReVerifyExpired(ctx context.Context, now time.Time) (*SweepResult, error) {
	expired, err := s.statuses.ListExpired(ctx, now)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list expired verifications")
	}

	ctx = requestcontext.WithTime(ctx, now)
	result := &SweepResult{Errors: make(map[id.RecordID]string)}
	for _, prev := range expired {
		result.Examined++
		if _, err := s.Verify(ctx, prev.UserID, prev.RecordID, prev.RequestedLevel); err != nil {
			s.metrics.IncrementBatchFailure()
			s.logger.WarnContext(ctx, "re-verification failed",
				"record_id", prev.RecordID,
				"previous_run_id", prev.RunID,
				"error", err,
			)
			result.Errors[prev.RecordID] = err.Error()
			continue
		}
		result.Reverified++
	}
	s.logger.InfoContext(ctx, "re-verification sweep finished",
		"examined", result.Examined,
		"reverified", result.Reverified,
		"failed", len(result.Errors),
	)
	return result, nil
}

// History returns the verification runs of a record, newest first.
func (s *Service) History(ctx context.Context, userID id.UserID, recordID id.RecordID) ([]*Status, error) {
	if _, err := s.loadOwned(ctx, userID, recordID); err != nil {
		return nil, err
	}
	statuses, err := s.statuses.ListByRecord(ctx, recordID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load verification history")
	}
	return statuses, nil
}

// ListRecords returns every record the user owns.
func (s *Service) ListRecords(ctx context.Context, userID id.UserID) ([]*Record, error) {
	records, err := s.records.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list records")
	}
	return records, nil
}

// ImportRecord stores a holder-supplied record at SELF_REPORTED. Fields only
// a platform can vouch for are cleared first, so the record scores as
// self-reported until a platform sync replaces it.
func (s *Service) ImportRecord(ctx context.Context, userID id.UserID, record *Record) (*Record, error) {
	if record != nil {
		record.StripPlatformEvidence()
	}
	return s.saveNew(ctx, userID, record, "record imported")
}

// SyncRecord stores a record fetched by a platform connector. Unlike
// ImportRecord it keeps the platform evidence, and it must name an OAuth or
// API source.
func (s *Service) SyncRecord(ctx context.Context, userID id.UserID, record *Record) (*Record, error) {
	if record != nil && record.Source != SourceOAuth && record.Source != SourceAPI {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "synced records must come from oauth or api")
	}
	return s.saveNew(ctx, userID, record, "record synced")
}

// Record returns one of userID's records.
func (s *Service) Record(ctx context.Context, userID id.UserID, recordID id.RecordID) (*Record, error) {
	return s.loadOwned(ctx, userID, recordID)
}

func (s *Service) saveNew(ctx context.Context, userID id.UserID, record *Record, msg string) (*Record, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "user is required")
	}
	if record == nil || record.Platform == "" || record.Title == "" || record.StartDate.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "platform, title and start_date are required")
	}
	record.StartDate = storedTime(record.StartDate)
	record.EndDate = storedTimePtr(record.EndDate)
	if record.EndDate != nil && record.EndDate.Before(record.StartDate) {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "end_date precedes start_date")
	}
	if record.Kind == "" {
		record.Kind = KindWorkHistory
	}
	if record.Source == "" {
		record.Source = SourceManualImport
	}

	now := requestcontext.Now(ctx)
	record.ID = id.RecordID(uuid.New())
	record.UserID = userID
	record.Level = LevelSelfReported
	record.Score = 0
	record.LastVerifiedAt = nil
	record.SupersededBy = nil
	record.CreatedAt = now
	record.UpdatedAt = now
	hash, err := record.ContentHash()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash record")
	}
	record.OriginalHash = hash

	if err := s.records.Save(ctx, record); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save record")
	}
	s.logger.InfoContext(ctx, msg,
		"user_id", userID,
		"record_id", record.ID,
		"platform", record.Platform,
		"source", record.Source,
		"kind", record.Kind,
	)
	return record, nil
}

func (s *Service) loadOwned(ctx context.Context, userID id.UserID, recordID id.RecordID) (*Record, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "user is required")
	}
	record, err := s.records.FindByID(ctx, recordID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "record not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load record")
	}
	if record.UserID != userID {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "record belongs to another user")
	}
	return record, nil
}

// emit publishes an audit event. Verification events are operational, so a
// failed emit is logged rather than failing the run.
func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event",
			"action", event.Action,
			"user_id", event.UserID,
			"error", err,
		)
	}
}
