package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the verification module.
type Metrics struct {
	RunsByLevel    *prometheus.CounterVec
	Score          prometheus.Histogram
	CheckOutcomes  *prometheus.CounterVec
	BatchFailures  prometheus.Counter
	AnchorFailures prometheus.Counter
	RunLatency     prometheus.Histogram
}

// New registers the verification metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RunsByLevel: f.NewCounterVec(prometheus.CounterOpts{
			Name: "worktrust_verification_runs_total",
			Help: "Verification runs by achieved and requested level",
		}, []string{"level", "requested"}),

		Score: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "worktrust_verification_score",
			Help:    "Distribution of weighted verification scores",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		}),

		CheckOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "worktrust_verification_check_outcomes_total",
			Help: "Individual check outcomes by check name",
		}, []string{"check", "passed"}),

		BatchFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "worktrust_verification_batch_item_failures_total",
			Help: "Records that failed inside a batch or sweep and were skipped",
		}),

		AnchorFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "worktrust_verification_anchor_failures_total",
			Help: "Sealed requests degraded because anchoring failed",
		}),

		RunLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "worktrust_verification_run_duration_seconds",
			Help:    "Duration of a single verification run including re-confirmation",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
	}
}

// ObserveRun records the outcome of one run.
func (m *Metrics) ObserveRun(level, requested string, score int, d time.Duration) {
	if m != nil {
		m.RunsByLevel.WithLabelValues(level, requested).Inc()
		m.Score.Observe(float64(score))
		m.RunLatency.Observe(d.Seconds())
	}
}

func (m *Metrics) IncrementCheck(name string, passed bool) {
	if m != nil {
		label := "false"
		if passed {
			label = "true"
		}
		m.CheckOutcomes.WithLabelValues(name, label).Inc()
	}
}

func (m *Metrics) IncrementBatchFailure() {
	if m != nil {
		m.BatchFailures.Inc()
	}
}

func (m *Metrics) IncrementAnchorFailure() {
	if m != nil {
		m.AnchorFailures.Inc()
	}
}
