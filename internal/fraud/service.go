package fraud

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"worktrust/internal/fraud/metrics"
	"worktrust/internal/verification"
	id "worktrust/pkg/domain"
	dErrors "worktrust/pkg/domain-errors"
	"worktrust/pkg/platform/audit"
	"worktrust/pkg/requestcontext"
)

// AuditPublisher emits lifecycle events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service applies the earnings and review heuristics. Detected fraud is
// reported in results, never as an error.
type Service struct {
	earningsRules EarningsRules
	reviewRules   ReviewRules
	logger        *slog.Logger
	metrics       *metrics.Metrics
	auditor       AuditPublisher
	tracer        trace.Tracer
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

// WithEarningsRules replaces the default v1 earnings rule set.
func WithEarningsRules(r EarningsRules) Option {
	return func(s *Service) {
		s.earningsRules = r
	}
}

// WithReviewRules replaces the default v1 review rule set.
func WithReviewRules(r ReviewRules) Option {
	return func(s *Service) {
		s.reviewRules = r
	}
}

func NewService(opts ...Option) *Service {
	s := &Service{
		earningsRules: DefaultEarningsRules(),
		reviewRules:   DefaultReviewRules(),
		logger:        slog.Default(),
		tracer:        otel.Tracer("worktrust/fraud"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// VerifyEarnings analyzes the user's income-bearing records. Every record
// must belong to userID.
func (s *Service) VerifyEarnings(ctx context.Context, userID id.UserID, records []*verification.Record, platformTotal *float64) (*EarningsResult, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "user is required")
	}
	for _, r := range records {
		if r != nil && r.UserID != userID {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "record belongs to another user")
		}
	}
	ctx, span := s.tracer.Start(ctx, "fraud.VerifyEarnings", trace.WithAttributes(
		attribute.Int("records", len(records)),
	))
	defer span.End()

	result := AnalyzeEarnings(s.earningsRules, records, platformTotal)
	result.UserID = userID
	result.CheckedAt = requestcontext.Now(ctx)

	s.metrics.ObserveEarnings(result.RiskScore, result.Verified)
	for _, ind := range result.FraudIndicators {
		s.metrics.IncrementIndicator(ind.Type, string(ind.Severity))
	}
	span.SetAttributes(
		attribute.Int("risk_score", result.RiskScore),
		attribute.Bool("verified", result.Verified),
	)

	if len(result.FraudIndicators) > 0 || len(result.Discrepancies) > 0 {
		s.logger.WarnContext(ctx, "earnings anomalies detected",
			"user_id", userID,
			"risk_score", result.RiskScore,
			"discrepancies", len(result.Discrepancies),
			"indicators", len(result.FraudIndicators),
			"rules_version", result.RulesVersion,
		)
	}
	s.emit(ctx, audit.Event{
		UserID:    userID,
		Subject:   userID.String(),
		Action:    string(audit.EventEarningsVerified),
		Decision:  fmt.Sprintf("verified=%t", result.Verified),
		Reason:    fmt.Sprintf("risk=%d rules=%s", result.RiskScore, result.RulesVersion),
		RequestID: requestcontext.RequestID(ctx),
	})
	return &result, nil
}

// VerifyReview scores a single review's authenticity.
func (s *Service) VerifyReview(ctx context.Context, review *Review) (*ReviewResult, error) {
	if review == nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "review is required")
	}
	if review.Rating < 1 || review.Rating > 5 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "rating must be between 1 and 5")
	}

	result := AnalyzeReview(s.reviewRules, review, requestcontext.Now(ctx))
	s.metrics.ObserveReview(result.AuthenticityScore, result.Verified)
	for _, f := range result.Flags {
		s.metrics.IncrementReviewFlag(f.Type, string(f.Severity))
	}
	s.logger.DebugContext(ctx, "review verified",
		"review_id", review.ID,
		"score", result.AuthenticityScore,
		"verified", result.Verified,
		"flags", len(result.Flags),
	)
	if !review.UserID.IsNil() {
		s.emit(ctx, audit.Event{
			UserID:    review.UserID,
			Subject:   review.ID.String(),
			Action:    string(audit.EventReviewVerified),
			Decision:  fmt.Sprintf("verified=%t", result.Verified),
			Reason:    fmt.Sprintf("score=%.1f", result.AuthenticityScore),
			RequestID: requestcontext.RequestID(ctx),
		})
	}
	return &result, nil
}

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
