package fraud

import (
	"fmt"
	"math"
	"strings"
	"time"

	"worktrust/internal/verification"
	id "worktrust/pkg/domain"
)

// AnalyzeEarnings runs the earnings heuristics over every income-bearing
// record. Records without earnings data are ignored. platformTotal, when
// present, is an independently fetched USD total for the same records.
func AnalyzeEarnings(rules EarningsRules, records []*verification.Record, platformTotal *float64) EarningsResult {
	result := EarningsResult{
		Discrepancies:   make([]Discrepancy, 0),
		FraudIndicators: make([]Indicator, 0),
		RulesVersion:    rules.Version,
	}

	income := make([]*verification.Record, 0, len(records))
	for _, r := range records {
		if r != nil && r.Earnings != nil {
			income = append(income, r)
		}
	}
	if len(income) == 0 {
		result.Verified = result.RiskScore < rules.VerifiedRiskCeiling
		return result
	}

	normalized := make([]float64, len(income))
	for i, r := range income {
		normalized[i], _ = rules.Normalize(r.Earnings.Amount, r.Earnings.Currency)
		result.TotalEarnings += normalized[i]
	}

	result.Discrepancies = append(result.Discrepancies, findDiscrepancies(rules, income)...)
	flagged := make(map[id.RecordID]bool, len(result.Discrepancies))
	for _, d := range result.Discrepancies {
		flagged[d.RecordID] = true
	}
	for i, r := range income {
		if !flagged[r.ID] && paymentCorroborated(rules, r.Earnings) {
			result.VerifiedEarnings += normalized[i]
		}
	}

	result.FraudIndicators = append(result.FraudIndicators, perRecordIndicators(rules, income, normalized)...)
	if ind, ok := concentrationIndicator(rules, income, normalized, result.TotalEarnings); ok {
		result.FraudIndicators = append(result.FraudIndicators, ind)
	}
	if ind, ok := roundNumberIndicator(rules, income); ok {
		result.FraudIndicators = append(result.FraudIndicators, ind)
	}
	if ind, ok := platformTotalIndicator(rules, result.TotalEarnings, platformTotal); ok {
		result.FraudIndicators = append(result.FraudIndicators, ind)
	}

	result.RiskScore = earningsRisk(rules, result.Discrepancies, result.FraudIndicators)
	result.Verified = len(result.Discrepancies) == 0 && result.RiskScore < rules.VerifiedRiskCeiling
	result.TotalEarnings = roundCents(result.TotalEarnings)
	result.VerifiedEarnings = roundCents(result.VerifiedEarnings)
	return result
}

func findDiscrepancies(rules EarningsRules, income []*verification.Record) []Discrepancy {
	out := make([]Discrepancy, 0)
	byExternalID := make(map[string]id.RecordID)
	byAmountPeriod := make(map[string]id.RecordID)

	for _, r := range income {
		e := r.Earnings
		platform := strings.ToLower(strings.TrimSpace(r.Platform))

		if e.Amount <= 0 {
			out = append(out, Discrepancy{
				Type:        DiscrepancySuspicious,
				RecordID:    r.ID,
				Description: fmt.Sprintf("non-positive amount %.2f", e.Amount),
			})
		}
		if r.EndDate != nil && r.EndDate.Before(r.StartDate) {
			out = append(out, Discrepancy{
				Type:        DiscrepancySuspicious,
				RecordID:    r.ID,
				Description: "period ends before it starts",
			})
		}

		if (r.Source == verification.SourceOAuth || r.Source == verification.SourceAPI) && r.ExternalID == "" {
			out = append(out, Discrepancy{
				Type:        DiscrepancyMissing,
				RecordID:    r.ID,
				Description: fmt.Sprintf("record from %s has no platform identifier", r.Platform),
			})
		}

		if e.PlatformAmount != nil && !withinRatio(e.Amount, *e.PlatformAmount, rules.ItemTolerance) {
			out = append(out, Discrepancy{
				Type:     DiscrepancyMismatch,
				RecordID: r.ID,
				Description: fmt.Sprintf("reported %.2f %s but platform reports %.2f",
					e.Amount, e.Currency, *e.PlatformAmount),
			})
		}

		if r.ExternalID != "" {
			key := platform + "|" + r.ExternalID
			if first, dup := byExternalID[key]; dup {
				out = append(out, Discrepancy{
					Type:        DiscrepancyDuplicate,
					RecordID:    r.ID,
					Description: fmt.Sprintf("same platform identifier as record %s", first),
				})
				continue
			}
			byExternalID[key] = r.ID
		}
		key := fmt.Sprintf("%s|%.2f|%s|%s", platform, e.Amount, dateKey(&r.StartDate), dateKey(r.EndDate))
		if first, dup := byAmountPeriod[key]; dup {
			out = append(out, Discrepancy{
				Type:        DiscrepancyDuplicate,
				RecordID:    r.ID,
				Description: fmt.Sprintf("same amount and period as record %s", first),
			})
			continue
		}
		byAmountPeriod[key] = r.ID
	}
	return out
}

func perRecordIndicators(rules EarningsRules, income []*verification.Record, normalized []float64) []Indicator {
	out := make([]Indicator, 0)
	for i, r := range income {
		recordID := r.ID
		hours := r.Earnings.Hours
		if hours > 0 {
			if rate := normalized[i] / hours; rate > rules.MaxHourlyRate {
				out = append(out, Indicator{
					Type:     IndicatorHighHourlyRate,
					Severity: SeverityMedium,
					Evidence: fmt.Sprintf("effective rate %.2f/h exceeds %.0f/h", rate, rules.MaxHourlyRate),
					RecordID: &recordID,
				})
			}
		} else if normalized[i] > rules.ZeroHoursThreshold {
			out = append(out, Indicator{
				Type:     IndicatorZeroHoursHighEarnings,
				Severity: SeverityHigh,
				Evidence: fmt.Sprintf("%.2f earned with no logged hours", normalized[i]),
				RecordID: &recordID,
			})
		}
	}
	return out
}

func concentrationIndicator(rules EarningsRules, income []*verification.Record, normalized []float64, total float64) (Indicator, bool) {
	if len(income) < 2 || total <= 0 {
		return Indicator{}, false
	}
	for i, amount := range normalized {
		if share := amount / total; share > rules.ConcentrationRatio {
			recordID := income[i].ID
			return Indicator{
				Type:     IndicatorIncomeConcentration,
				Severity: SeverityLow,
				Evidence: fmt.Sprintf("one record holds %.0f%% of reported earnings", share*100),
				RecordID: &recordID,
			}, true
		}
	}
	return Indicator{}, false
}

func roundNumberIndicator(rules EarningsRules, income []*verification.Record) (Indicator, bool) {
	if len(income) < rules.RoundNumberMinRecords {
		return Indicator{}, false
	}
	round := 0
	for _, r := range income {
		a := r.Earnings.Amount
		if a != 0 && math.Mod(a, rules.RoundNumberDivisor) == 0 {
			round++
		}
	}
	ratio := float64(round) / float64(len(income))
	if ratio <= rules.RoundNumberRatio {
		return Indicator{}, false
	}
	return Indicator{
		Type:     IndicatorRoundNumbers,
		Severity: SeverityLow,
		Evidence: fmt.Sprintf("%d of %d amounts are multiples of %.0f", round, len(income), rules.RoundNumberDivisor),
	}, true
}

func platformTotalIndicator(rules EarningsRules, reported float64, platformTotal *float64) (Indicator, bool) {
	if platformTotal == nil {
		return Indicator{}, false
	}
	pt := *platformTotal
	if math.Abs(reported-pt) <= rules.PlatformTotalTolerance*math.Abs(pt) {
		return Indicator{}, false
	}
	return Indicator{
		Type:     IndicatorPlatformTotalMismatch,
		Severity: SeverityMedium,
		Evidence: fmt.Sprintf("reported total %.2f differs from platform total %.2f", reported, pt),
	}, true
}

// earningsRisk sums discrepancy and severity penalties, capped at MaxRiskScore.
func earningsRisk(rules EarningsRules, discrepancies []Discrepancy, indicators []Indicator) int {
	risk := 0
	for _, d := range discrepancies {
		risk += rules.DiscrepancyPenalties[d.Type]
	}
	for _, ind := range indicators {
		risk += rules.SeverityPenalties[ind.Severity]
	}
	return min(risk, rules.MaxRiskScore)
}

// paymentCorroborated reports whether the platform confirmed the payment or
// reported a matching amount.
func paymentCorroborated(rules EarningsRules, e *verification.Earnings) bool {
	if e.PaymentConfirmed {
		return true
	}
	return e.PlatformAmount != nil && withinRatio(e.Amount, *e.PlatformAmount, rules.ItemTolerance)
}

func withinRatio(reported, reference, ratio float64) bool {
	if reference == 0 {
		return reported == 0
	}
	return math.Abs(reported-reference) <= ratio*math.Abs(reference)
}

func dateKey(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.DateOnly)
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
