package credential

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"worktrust/internal/credential/metrics"
	"worktrust/internal/credential/revocation"
	"worktrust/internal/fraud"
	"worktrust/internal/proof"
	"worktrust/internal/verification"
	"worktrust/pkg/canonical"
	id "worktrust/pkg/domain"
	dErrors "worktrust/pkg/domain-errors"
	"worktrust/pkg/platform/audit"
	"worktrust/pkg/platform/sentinel"
	"worktrust/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store,RevocationList,ProofService,SubjectDataSource,AuditPublisher

const (
	bundleIDPrefix = "urn:worktrust:bundle:"
	bundleIDLength = 32

	defaultRevocationReason = "unspecified"
)

// Store persists issued credentials. MarkRevoked returns
// sentinel.ErrInvalidState for a credential that is already revoked.
type Store interface {
	Save(ctx context.Context, record *Record) error
	FindByID(ctx context.Context, credentialID string) (*Record, error)
	ListBySubject(ctx context.Context, subjectID id.UserID) ([]*Record, error)
	MarkRevoked(ctx context.Context, credentialID, reason string, at time.Time) error
	ListRevokedIDs(ctx context.Context) ([]string, error)
}

// RevocationList is the fast lookup consulted on every verification.
type RevocationList interface {
	Revoke(ctx context.Context, credentialID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, credentialID string) (bool, error)
	Seed(ctx context.Context, credentialIDs []string) error
}

// ProofService signs and checks canonical hashes of proof-bearing objects.
type ProofService interface {
	SignObject(v any, purpose string) (*proof.Proof, string, error)
	Verify(v any, p *proof.Proof) bool
	ReducedAssurance() bool
}

// SubjectDataSource supplies the inputs of the claim builders. A user with
// no data of a kind yields an empty result, not an error.
type SubjectDataSource interface {
	Profile(ctx context.Context, userID id.UserID) (*Profile, error)
	WorkHistory(ctx context.Context, userID id.UserID) ([]*verification.Record, error)
	Earnings(ctx context.Context, userID id.UserID) (*fraud.EarningsResult, error)
	Reviews(ctx context.Context, userID id.UserID) ([]*fraud.Review, map[id.ReviewID]*fraud.ReviewResult, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// IssueRequest describes one credential to issue. TTLDays of zero uses the
// service default; a zero default issues credentials without expiry.
type IssueRequest struct {
	Type      Type
	SubjectID id.UserID
	Data      *SubjectData
	Level     verification.Level
	TTLDays   int
}

// Service issues, verifies and revokes credentials.
type Service struct {
	store       Store
	proofs      ProofService
	revocations RevocationList
	source      SubjectDataSource

	issuer         Issuer
	statusListURL  string
	defaultTTLDays int
	logger         *slog.Logger
	metrics        *metrics.Metrics
	auditor        AuditPublisher
	tracer         trace.Tracer
}

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

// WithRevocationList replaces the process-local list, e.g. with Redis.
func WithRevocationList(l RevocationList) Option {
	return func(s *Service) {
		if l != nil {
			s.revocations = l
		}
	}
}

// WithSubjectDataSource enables IssueForUser and IssueBundle.
func WithSubjectDataSource(src SubjectDataSource) Option {
	return func(s *Service) {
		s.source = src
	}
}

func WithIssuerProfile(name, url string) Option {
	return func(s *Service) {
		s.issuer.Name = name
		s.issuer.URL = url
	}
}

// WithStatusListURL attaches a credentialStatus entry to every credential.
func WithStatusListURL(url string) Option {
	return func(s *Service) {
		s.statusListURL = strings.TrimRight(url, "#")
	}
}

func WithDefaultTTLDays(days int) Option {
	return func(s *Service) {
		if days >= 0 {
			s.defaultTTLDays = days
		}
	}
}

func NewService(store Store, proofs ProofService, issuerID string, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("credential service requires a store")
	}
	if proofs == nil {
		return nil, dErrors.Wrap(proof.ErrProofServiceUnavailable, dErrors.CodeUnavailable, "credential service requires a proof service")
	}
	if issuerID == "" {
		return nil, errors.New("credential service requires an issuer ID")
	}
	s := &Service{
		store:       store,
		proofs:      proofs,
		revocations: revocation.NewInMemoryList(),
		issuer:      Issuer{ID: issuerID},
		logger:      slog.Default(),
		tracer:      otel.Tracer("worktrust/credential"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Issue builds, signs and stores one credential.
func (s *Service) Issue(ctx context.Context, req IssueRequest) (*VerifiableCredential, error) {
	ctx, span := s.tracer.Start(ctx, "credential.Issue", trace.WithAttributes(
		attribute.String("type", string(req.Type)),
		attribute.String("level", string(req.Level)),
	))
	defer span.End()

	if req.SubjectID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "subject is required")
	}
	if !req.Type.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unknown credential type: "+string(req.Type))
	}
	if !req.Level.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid verification level: "+string(req.Level))
	}
	if req.TTLDays < 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "ttl days must not be negative")
	}

	now := requestcontext.Now(ctx).UTC().Truncate(time.Second)
	claim, err := BuildClaim(req.Type, req.SubjectID, req.Data, now)
	if err != nil {
		return nil, err
	}

	vc := s.newCredential(req, claim, now)
	p, hash, err := s.proofs.SignObject(vc, proof.PurposeAssertion)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "sign")
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to sign credential")
	}
	vc.Proof = p

	record := &Record{
		ID:          vc.ID,
		Type:        req.Type,
		SubjectID:   req.SubjectID,
		Level:       req.Level,
		Status:      RecordActive,
		ContentHash: hash,
		Credential:  vc,
		IssuedAt:    now,
		ExpiresAt:   vc.ExpirationDate,
	}
	if err := s.store.Save(ctx, record); err != nil {
		span.SetStatus(codes.Error, "persist")
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist credential")
	}

	s.metrics.IncrementIssued(string(req.Type), p.Type)
	if c, ok := claim.(*CompleteProfileClaim); ok {
		s.metrics.ObserveCompleteness(c.ProfileCompleteness)
	}
	s.emit(ctx, audit.Event{
		UserID:    req.SubjectID,
		Subject:   vc.ID,
		Action:    string(audit.EventCredentialIssued),
		Decision:  string(req.Level),
		Reason:    string(req.Type),
		RequestID: requestcontext.RequestID(ctx),
	})
	s.logger.InfoContext(ctx, "credential issued",
		"credential_id", vc.ID,
		"user_id", req.SubjectID,
		"type", req.Type,
		"level", req.Level,
		"proof_type", p.Type,
	)
	return vc, nil
}

func (s *Service) newCredential(req IssueRequest, claim Claim, now time.Time) *VerifiableCredential {
	vc := &VerifiableCredential{
		Context:      []string{ContextW3C, ContextWorkTrust},
		ID:           "urn:uuid:" + uuid.NewString(),
		Type:         []string{typeVerifiableCredential, string(req.Type)},
		Issuer:       s.issuer,
		IssuanceDate: now,
		CredentialSubject: CredentialSubject{
			ID:    SubjectDID(req.SubjectID),
			Type:  req.Type,
			Level: req.Level,
			Claim: claim,
		},
	}
	ttl := req.TTLDays
	if ttl == 0 {
		ttl = s.defaultTTLDays
	}
	if ttl > 0 {
		exp := now.AddDate(0, 0, ttl)
		vc.ExpirationDate = &exp
	}
	if s.statusListURL != "" {
		vc.CredentialStatus = &Status{
			ID:   s.statusListURL + "#" + vc.ID,
			Type: statusTypeRevocationList,
		}
	}
	return vc
}

// IssueForUser gathers the user's data and issues one credential.
func (s *Service) IssueForUser(ctx context.Context, userID id.UserID, t Type, level verification.Level, ttlDays int) (*VerifiableCredential, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "user is required")
	}
	if !t.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unknown credential type: "+string(t))
	}
	data, err := s.gather(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.Issue(ctx, IssueRequest{Type: t, SubjectID: userID, Data: data, Level: level, TTLDays: ttlDays})
}

// IssueBundle issues every requested type from one snapshot of the user's
// data. More than one credential is wrapped in a signed presentation.
func (s *Service) IssueBundle(ctx context.Context, userID id.UserID, types []Type, level verification.Level) (*Bundle, error) {
	ctx, span := s.tracer.Start(ctx, "credential.IssueBundle", trace.WithAttributes(
		attribute.Int("types", len(types)),
	))
	defer span.End()

	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "user is required")
	}
	types, err := dedupeTypes(types)
	if err != nil {
		return nil, err
	}
	data, err := s.gather(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx).UTC().Truncate(time.Second)
	creds := make([]*VerifiableCredential, 0, len(types))
	var proofValues strings.Builder
	for _, t := range types {
		vc, err := s.Issue(ctx, IssueRequest{Type: t, SubjectID: userID, Data: data, Level: level})
		if err != nil {
			return nil, err
		}
		creds = append(creds, vc)
		proofValues.WriteString(vc.Proof.ProofValue)
	}

	hash := canonical.Sum([]byte(proofValues.String()))
	bundle := &Bundle{
		ID:          bundleIDPrefix + hash[:bundleIDLength],
		Credentials: creds,
		Metadata:    bundleMetadata(hash, creds, data.Records, s.proofs.ReducedAssurance(), now),
	}

	if len(creds) > 1 {
		pres := &Presentation{
			Context:              []string{ContextW3C},
			ID:                   "urn:uuid:" + uuid.NewString(),
			Type:                 []string{typeVerifiablePresentation},
			Holder:               SubjectDID(userID),
			VerifiableCredential: creds,
		}
		p, _, err := s.proofs.SignObject(pres, proof.PurposeAuthentication)
		if err != nil {
			span.RecordError(err)
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to sign presentation")
		}
		pres.Proof = p
		bundle.Presentation = pres
	}

	s.metrics.IncrementBundle()
	s.emit(ctx, audit.Event{
		UserID:    userID,
		Subject:   bundle.ID,
		Action:    string(audit.EventBundleIssued),
		Decision:  string(level),
		Reason:    fmt.Sprintf("credentials=%d", len(creds)),
		RequestID: requestcontext.RequestID(ctx),
	})
	s.logger.InfoContext(ctx, "credential bundle issued",
		"bundle_id", bundle.ID,
		"user_id", userID,
		"credentials", len(creds),
	)
	return bundle, nil
}

func dedupeTypes(types []Type) ([]Type, error) {
	if len(types) == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "at least one credential type is required")
	}
	seen := make(map[Type]bool, len(types))
	out := make([]Type, 0, len(types))
	for _, t := range types {
		if !t.IsValid() {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "unknown credential type: "+string(t))
		}
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out, nil
}

func bundleMetadata(hash string, creds []*VerifiableCredential, records []*verification.Record, reduced bool, now time.Time) BundleMetadata {
	meta := BundleMetadata{
		Hash:             hash,
		CredentialCount:  len(creds),
		PlatformCounts:   map[string]int{},
		LevelCounts:      map[string]int{},
		ReducedAssurance: reduced,
		CreatedAt:        now,
	}
	for _, r := range currentRecords(records, "") {
		meta.PlatformCounts[strings.ToLower(r.Platform)]++
		meta.LevelCounts[string(r.Level)]++
	}
	return meta
}

// gather loads all subject data concurrently.
func (s *Service) gather(ctx context.Context, userID id.UserID) (*SubjectData, error) {
	if s.source == nil {
		return nil, dErrors.New(dErrors.CodeUnavailable, "no subject data source configured")
	}
	data := &SubjectData{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := s.source.Profile(gctx, userID)
		data.Profile = p
		return err
	})
	g.Go(func() error {
		records, err := s.source.WorkHistory(gctx, userID)
		data.Records = records
		return err
	})
	g.Go(func() error {
		result, err := s.source.Earnings(gctx, userID)
		data.Earnings = result
		return err
	})
	g.Go(func() error {
		reviews, results, err := s.source.Reviews(gctx, userID)
		data.Reviews, data.ReviewResults = reviews, results
		return err
	})
	if err := g.Wait(); err != nil {
		var coded *dErrors.Error
		if dErrors.As(err, &coded) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to gather subject data")
	}
	return data, nil
}

// Verify runs every check and reports all failures together. Revocation is
// judged from both the revocation list and the stored record.
func (s *Service) Verify(ctx context.Context, vc *VerifiableCredential) (*VerifyResult, error) {
	if vc == nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "credential is required")
	}
	ctx, span := s.tracer.Start(ctx, "credential.Verify", trace.WithAttributes(
		attribute.String("credential_id", vc.ID),
	))
	defer span.End()

	errs := make([]string, 0)
	revoked, err := s.isRevoked(ctx, vc.ID)
	switch {
	case err != nil:
		s.logger.WarnContext(ctx, "revocation check failed",
			"credential_id", vc.ID,
			"error", err,
		)
		errs = append(errs, ErrRevocationCheckFailed)
	case revoked:
		errs = append(errs, ErrRevoked)
	}
	if vc.IsExpired(requestcontext.Now(ctx)) {
		errs = append(errs, ErrExpired)
	}
	if vc.Issuer.ID != s.issuer.ID {
		errs = append(errs, ErrIssuerMismatch)
	}
	switch {
	case vc.Proof == nil || vc.Proof.ProofValue == "":
		errs = append(errs, ErrMissingSignature)
	case !s.proofs.Verify(vc, vc.Proof):
		errs = append(errs, ErrInvalidSignature)
	}

	result := &VerifyResult{Valid: len(errs) == 0, Errors: errs}
	s.metrics.ObserveVerification(result.Valid, errs)
	span.SetAttributes(
		attribute.Bool("valid", result.Valid),
		attribute.StringSlice("errors", errs),
	)
	return result, nil
}

func (s *Service) isRevoked(ctx context.Context, credentialID string) (bool, error) {
	listed, err := s.revocations.IsRevoked(ctx, credentialID)
	if err != nil {
		return false, err
	}
	if listed {
		return true, nil
	}
	record, err := s.store.FindByID(ctx, credentialID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return record.IsRevoked(), nil
}

// Revoke permanently revokes a credential. Revoking twice is a no-op that
// keeps the first reason.
func (s *Service) Revoke(ctx context.Context, credentialID, reason string) error {
	if credentialID == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "credential ID is required")
	}
	if strings.TrimSpace(reason) == "" {
		reason = defaultRevocationReason
	}
	record, err := s.Get(ctx, credentialID)
	if err != nil {
		return err
	}

	now := requestcontext.Now(ctx)
	alreadyRevoked := false
	if err := s.store.MarkRevoked(ctx, credentialID, reason, now); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrInvalidState):
			alreadyRevoked = true
		case errors.Is(err, sentinel.ErrNotFound):
			return dErrors.New(dErrors.CodeNotFound, "credential not found")
		default:
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke credential")
		}
	}

	var ttl time.Duration
	if record.ExpiresAt != nil {
		ttl = record.ExpiresAt.Sub(now)
		if ttl <= 0 {
			ttl = time.Minute
		}
	}
	if err := s.revocations.Revoke(ctx, credentialID, ttl); err != nil {
		s.logger.ErrorContext(ctx, "failed to mirror revocation; store remains authoritative",
			"credential_id", credentialID,
			"error", err,
		)
	}
	if alreadyRevoked {
		return nil
	}

	s.metrics.IncrementRevocation()
	event := audit.Event{
		UserID:    record.SubjectID,
		Subject:   credentialID,
		Action:    string(audit.EventCredentialRevoked),
		Reason:    reason,
		RequestID: requestcontext.RequestID(ctx),
	}
	if actor := requestcontext.UserID(ctx); !actor.IsNil() && actor != record.SubjectID {
		event.ActorID = actor.String()
	}
	s.emit(ctx, event)
	s.logger.InfoContext(ctx, "credential revoked",
		"credential_id", credentialID,
		"user_id", record.SubjectID,
		"reason", reason,
	)
	return nil
}

func (s *Service) Get(ctx context.Context, credentialID string) (*Record, error) {
	record, err := s.store.FindByID(ctx, credentialID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "credential not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load credential")
	}
	return record, nil
}

func (s *Service) ListBySubject(ctx context.Context, subjectID id.UserID) ([]*Record, error) {
	if subjectID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "subject is required")
	}
	records, err := s.store.ListBySubject(ctx, subjectID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list credentials")
	}
	return records, nil
}

// SyncRevocations copies every stored revocation into the revocation list.
func (s *Service) SyncRevocations(ctx context.Context) (int, error) {
	ids, err := s.store.ListRevokedIDs(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list revoked credentials")
	}
	if err := s.revocations.Seed(ctx, ids); err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to seed revocation list")
	}
	return len(ids), nil
}

// emit publishes an audit event; failures are logged.
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
