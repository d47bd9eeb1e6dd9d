package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for credential issuance and verification.
type Metrics struct {
	Issued              *prometheus.CounterVec
	Bundles             prometheus.Counter
	Verifications       *prometheus.CounterVec
	VerificationErrors  *prometheus.CounterVec
	Revocations         prometheus.Counter
	ProfileCompleteness prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Issued: f.NewCounterVec(prometheus.CounterOpts{
			Name: "worktrust_credentials_issued_total",
			Help: "Credentials issued by type and proof type",
		}, []string{"type", "proof_type"}),

		Bundles: f.NewCounter(prometheus.CounterOpts{
			Name: "worktrust_credential_bundles_total",
			Help: "Credential bundles assembled",
		}),

		Verifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "worktrust_credential_verifications_total",
			Help: "Credential verifications by outcome",
		}, []string{"valid"}),

		VerificationErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "worktrust_credential_verification_errors_total",
			Help: "Named credential verification failures",
		}, []string{"error"}),

		Revocations: f.NewCounter(prometheus.CounterOpts{
			Name: "worktrust_credential_revocations_total",
			Help: "Credentials revoked",
		}),

		ProfileCompleteness: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "worktrust_credential_profile_completeness",
			Help:    "Profile completeness of issued CompleteProfile credentials",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		}),
	}
}

func (m *Metrics) IncrementIssued(credentialType, proofType string) {
	if m != nil {
		m.Issued.WithLabelValues(credentialType, proofType).Inc()
	}
}

func (m *Metrics) IncrementBundle() {
	if m != nil {
		m.Bundles.Inc()
	}
}

// ObserveVerification counts one verification and each of its errors.
func (m *Metrics) ObserveVerification(valid bool, errs []string) {
	if m == nil {
		return
	}
	label := "false"
	if valid {
		label = "true"
	}
	m.Verifications.WithLabelValues(label).Inc()
	for _, e := range errs {
		m.VerificationErrors.WithLabelValues(e).Inc()
	}
}

func (m *Metrics) IncrementRevocation() {
	if m != nil {
		m.Revocations.Inc()
	}
}

func (m *Metrics) ObserveCompleteness(score int) {
	if m != nil {
		m.ProfileCompleteness.Observe(float64(score))
	}
}
