package verification

import (
	"context"
	"math"
	"time"
)

// Level thresholds.
const (
	sealedMinScore    = 80
	verifiedMinScore  = 70
	connectedMinScore = 50
)

// Engine runs the fixed check set against a record. It holds only read-only
// collaborators and is safe for concurrent use.
type Engine struct {
	reconfirmers     *ReconfirmerRegistry
	reconfirmTimeout time.Duration
}

func NewEngine(reconfirmers *ReconfirmerRegistry, reconfirmTimeout time.Duration) *Engine {
	return &Engine{reconfirmers: reconfirmers, reconfirmTimeout: reconfirmTimeout}
}

// Run evaluates every applicable check in a fixed order.
func (e *Engine) Run(ctx context.Context, r *Record, contentHash string, now time.Time) []Check {
	checks := make([]Check, 0, 7)
	checks = append(checks,
		checkOAuthConnection(r),
		checkDirectAPISource(r),
		checkProjectExists(ctx, r, e.reconfirmers, e.reconfirmTimeout),
	)
	if c, ok := checkPaymentConfirmed(r); ok {
		checks = append(checks, c)
	}
	checks = append(checks,
		checkClientIdentity(r),
		checkTimeline(r, now),
		checkDataIntegrity(r, contentHash),
	)
	return checks
}

// Score is the weight-averaged sub-score over the checks that ran, rounded
// to the nearest integer.
func Score(checks []Check) int {
	var num, den int
	for _, c := range checks {
		num += c.Score * c.Weight
		den += c.Weight
	}
	if den == 0 {
		return 0
	}
	return int(math.Round(float64(num) / float64(den)))
}

// DetermineLevel maps a score and check outcomes to a level. Rules are
// evaluated strongest first and the first match wins.
func DetermineLevel(requested Level, score int, checks []Check) Level {
	oauth := checkPassed(checks, CheckOAuthConnection)
	project := checkPassed(checks, CheckProjectExists)

	switch {
	case requested == LevelCryptographicallySealed && score >= sealedMinScore && oauth && project:
		return LevelCryptographicallySealed
	case score >= verifiedMinScore && oauth && project:
		return LevelPlatformVerified
	case score >= connectedMinScore && oauth:
		return LevelPlatformConnected
	default:
		return LevelSelfReported
	}
}
