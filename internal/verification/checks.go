package verification

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Check weights. They sum to 100 across the full check set; inapplicable
// checks drop out of the denominator.
const (
	weightOAuthConnection  = 20
	weightDirectAPISource  = 15
	weightProjectExists    = 15
	weightPaymentConfirmed = 20
	weightClientIdentity   = 10
	weightTimeline         = 10
	weightDataIntegrity    = 10
)

const (
	maxPlausibleDuration = 10 * 365 * 24 * time.Hour
	// inconclusiveIntegrityScore is awarded when no original import hash exists.
	inconclusiveIntegrityScore = 50
	// paymentToleranceRatio bounds the gap between reported and platform amounts.
	paymentToleranceRatio = 0.01
)

// checkOAuthConnection passes only for records pulled over a live OAuth link.
func checkOAuthConnection(r *Record) Check {
	c := Check{Name: CheckOAuthConnection, Category: CategorySource, Weight: weightOAuthConnection}
	switch {
	case r.Source == SourceOAuth && r.ConnectionActive:
		c.Passed, c.Score = true, 100
		c.Evidence = fmt.Sprintf("record synced from %s over an active OAuth connection", r.Platform)
	case r.Source == SourceOAuth:
		c.Score = 40
		c.Evidence = "record came from OAuth but the connection is no longer active"
	default:
		c.Evidence = fmt.Sprintf("record source is %s, not an OAuth connection", r.Source)
	}
	return c
}

func checkDirectAPISource(r *Record) Check {
	c := Check{Name: CheckDirectAPISource, Category: CategorySource, Weight: weightDirectAPISource}
	switch r.Source {
	case SourceOAuth, SourceAPI:
		c.Passed, c.Score = true, 100
		c.Evidence = "record fetched directly from the platform API"
	case SourceManualImport:
		c.Score = 30
		c.Evidence = "record imported from an uploaded export"
	default:
		c.Evidence = "record entered by the user"
	}
	return c
}

// checkProjectExists asks the platform's Reconfirmer whether the record still
// exists. Any failure degrades the check, never the run.
func checkProjectExists(ctx context.Context, r *Record, registry *ReconfirmerRegistry, timeout time.Duration) Check {
	c := Check{Name: CheckProjectExists, Category: CategoryData, Weight: weightProjectExists}
	if r.ExternalID == "" {
		c.Evidence = "record has no external identifier to re-confirm"
		return c
	}
	rc, ok := registry.Lookup(r.Platform)
	if !ok {
		c.Evidence = fmt.Sprintf("no re-confirmation available for platform %q", r.Platform)
		return c
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	res, err := rc.Reconfirm(ctx, r)
	if err != nil {
		c.Evidence = fmt.Sprintf("re-confirmation failed: %v", err)
		return c
	}
	c.Evidence = res.Evidence
	if res.Confirmed {
		c.Passed, c.Score = true, 100
		if c.Evidence == "" {
			c.Evidence = "project confirmed by platform"
		}
	} else if c.Evidence == "" {
		c.Evidence = "platform could not confirm the project"
	}
	return c
}

// checkPaymentConfirmed is applicable only to records with financial data.
func checkPaymentConfirmed(r *Record) (Check, bool) {
	if r.Earnings == nil {
		return Check{}, false
	}
	c := Check{Name: CheckPaymentConfirmed, Category: CategoryFinancial, Weight: weightPaymentConfirmed}
	e := r.Earnings
	switch {
	case e.PaymentConfirmed:
		c.Passed, c.Score = true, 100
		c.Evidence = "payment confirmed by platform"
	case e.PlatformAmount != nil && withinTolerance(e.Amount, *e.PlatformAmount, paymentToleranceRatio):
		c.Passed, c.Score = true, 75
		c.Evidence = "reported amount matches platform amount"
	case e.PlatformAmount != nil:
		c.Evidence = fmt.Sprintf("reported amount %.2f differs from platform amount %.2f", e.Amount, *e.PlatformAmount)
	default:
		c.Evidence = "no payment confirmation available"
	}
	return c, true
}

func checkClientIdentity(r *Record) Check {
	c := Check{Name: CheckClientIdentity, Category: CategoryIdentity, Weight: weightClientIdentity}
	switch {
	case r.Client == nil || (r.Client.Name == "" && r.Client.ExternalID == ""):
		c.Evidence = "no client information"
	case r.Client.Verified:
		c.Passed, c.Score = true, 100
		c.Evidence = "client identity verified by platform"
	case r.Client.ExternalID != "":
		c.Passed, c.Score = true, 60
		c.Evidence = "client has a platform identifier"
	default:
		c.Score = 30
		c.Evidence = "client known by name only"
	}
	return c
}

// checkTimeline fails on future starts and inverted ranges; a duration over
// ten years alone earns partial credit.
func checkTimeline(r *Record, now time.Time) Check {
	c := Check{Name: CheckTimeline, Category: CategoryTimeline, Weight: weightTimeline}
	if r.StartDate.IsZero() {
		c.Evidence = "start date missing"
		return c
	}
	if r.StartDate.After(now) {
		c.Evidence = "start date is in the future"
		return c
	}
	end := now
	if r.EndDate != nil {
		if r.EndDate.Before(r.StartDate) {
			c.Evidence = "end date precedes start date"
			return c
		}
		end = *r.EndDate
	}
	if end.Sub(r.StartDate) > maxPlausibleDuration {
		c.Score = 50
		c.Evidence = "duration exceeds ten years"
		return c
	}
	c.Passed, c.Score = true, 100
	c.Evidence = "timeline is plausible"
	return c
}

// checkDataIntegrity compares the current content hash with the one captured
// at import. A missing original hash is inconclusive, not a failure.
func checkDataIntegrity(r *Record, currentHash string) Check {
	c := Check{Name: CheckDataIntegrity, Category: CategoryData, Weight: weightDataIntegrity}
	switch {
	case r.OriginalHash == "":
		c.Score = inconclusiveIntegrityScore
		c.Evidence = "no original import hash; integrity inconclusive"
	case r.OriginalHash == currentHash:
		c.Passed, c.Score = true, 100
		c.Evidence = "content matches original import"
	default:
		c.Evidence = "content changed since original import"
	}
	return c
}

func withinTolerance(reported, platform, ratio float64) bool {
	if platform == 0 {
		return reported == 0
	}
	return math.Abs(reported-platform) <= ratio*math.Abs(platform)
}

func findCheck(checks []Check, name string) (Check, bool) {
	for _, c := range checks {
		if c.Name == name {
			return c, true
		}
	}
	return Check{}, false
}

func checkPassed(checks []Check, name string) bool {
	c, ok := findCheck(checks, name)
	return ok && c.Passed
}
