package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the fraud heuristics.
type Metrics struct {
	EarningsRisk     prometheus.Histogram
	Indicators       *prometheus.CounterVec
	ReviewScore      prometheus.Histogram
	ReviewFlags      *prometheus.CounterVec
	EarningsVerified *prometheus.CounterVec
	ReviewsVerified  *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		EarningsRisk: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "worktrust_fraud_earnings_risk_score",
			Help:    "Distribution of earnings risk scores",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		}),
		Indicators: f.NewCounterVec(prometheus.CounterOpts{
			Name: "worktrust_fraud_indicators_total",
			Help: "Earnings fraud indicators by type and severity",
		}, []string{"type", "severity"}),
		ReviewScore: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "worktrust_fraud_review_authenticity_score",
			Help:    "Distribution of review authenticity scores",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		}),
		ReviewFlags: f.NewCounterVec(prometheus.CounterOpts{
			Name: "worktrust_fraud_review_flags_total",
			Help: "Review flags by type and severity",
		}, []string{"type", "severity"}),
		EarningsVerified: f.NewCounterVec(prometheus.CounterOpts{
			Name: "worktrust_fraud_earnings_checks_total",
			Help: "Earnings verifications by outcome",
		}, []string{"verified"}),
		ReviewsVerified: f.NewCounterVec(prometheus.CounterOpts{
			Name: "worktrust_fraud_review_checks_total",
			Help: "Review verifications by outcome",
		}, []string{"verified"}),
	}
}

func (m *Metrics) ObserveEarnings(risk int, verified bool) {
	if m != nil {
		m.EarningsRisk.Observe(float64(risk))
		m.EarningsVerified.WithLabelValues(boolLabel(verified)).Inc()
	}
}

func (m *Metrics) IncrementIndicator(kind, severity string) {
	if m != nil {
		m.Indicators.WithLabelValues(kind, severity).Inc()
	}
}

func (m *Metrics) ObserveReview(score float64, verified bool) {
	if m != nil {
		m.ReviewScore.Observe(score)
		m.ReviewsVerified.WithLabelValues(boolLabel(verified)).Inc()
	}
}

func (m *Metrics) IncrementReviewFlag(kind, severity string) {
	if m != nil {
		m.ReviewFlags.WithLabelValues(kind, severity).Inc()
	}
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
