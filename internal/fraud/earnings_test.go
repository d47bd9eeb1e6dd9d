package fraud

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worktrust/internal/verification"
	id "worktrust/pkg/domain"
)

var (
	testUser  = id.UserID(uuid.New())
	periodDay = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
)

func earning(amount, hours float64, opts ...func(*verification.Record)) *verification.Record {
	end := periodDay.AddDate(0, 1, 0)
	r := &verification.Record{
		ID:         id.RecordID(uuid.New()),
		UserID:     testUser,
		Kind:       verification.KindEarnings,
		Platform:   "upwork",
		ExternalID: uuid.NewString(),
		Source:     verification.SourceOAuth,
		StartDate:  periodDay,
		EndDate:    &end,
		Earnings:   &verification.Earnings{Amount: amount, Currency: "USD", Hours: hours, PaymentConfirmed: true},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func indicatorTypes(r EarningsResult) []string {
	out := make([]string, 0, len(r.FraudIndicators))
	for _, ind := range r.FraudIndicators {
		out = append(out, ind.Type)
	}
	return out
}

func discrepancyTypes(r EarningsResult) []DiscrepancyType {
	out := make([]DiscrepancyType, 0, len(r.Discrepancies))
	for _, d := range r.Discrepancies {
		out = append(out, d.Type)
	}
	return out
}

func TestAnalyzeEarnings_CleanSetVerifies(t *testing.T) {
	rules := DefaultEarningsRules()
	records := []*verification.Record{
		earning(1234.50, 30),
		earning(2210.75, 45),
		earning(987.20, 20),
	}
	total := 4432.45
	result := AnalyzeEarnings(rules, records, &total)

	assert.True(t, result.Verified)
	assert.Zero(t, result.RiskScore)
	assert.Empty(t, result.Discrepancies)
	assert.Empty(t, result.FraudIndicators)
	assert.InDelta(t, 4432.45, result.TotalEarnings, 0.001)
	assert.InDelta(t, 4432.45, result.VerifiedEarnings, 0.001)
	assert.Equal(t, RulesVersion, result.RulesVersion)
}

func TestAnalyzeEarnings_Indicators(t *testing.T) {
	rules := DefaultEarningsRules()

	tests := []struct {
		name     string
		records  []*verification.Record
		total    *float64
		want     string
		severity Severity
	}{
		{
			name:     "hourly rate above 500",
			records:  []*verification.Record{earning(5050, 10)},
			want:     IndicatorHighHourlyRate,
			severity: SeverityMedium,
		},
		{
			name: "hourly rate is currency normalized",
			records: []*verification.Record{earning(5500, 10, func(r *verification.Record) {
				r.Earnings.Currency = "GBP"
			})},
			want:     IndicatorHighHourlyRate,
			severity: SeverityMedium,
		},
		{
			name:     "zero hours with high earnings",
			records:  []*verification.Record{earning(1500.5, 0)},
			want:     IndicatorZeroHoursHighEarnings,
			severity: SeverityHigh,
		},
		{
			name:     "one record dominates",
			records:  []*verification.Record{earning(9500.5, 100), earning(310.3, 10)},
			want:     IndicatorIncomeConcentration,
			severity: SeverityLow,
		},
		{
			name: "round numbers",
			records: []*verification.Record{
				earning(500, 10), earning(700, 10), earning(900, 10), earning(800, 10), earning(600, 10),
			},
			want:     IndicatorRoundNumbers,
			severity: SeverityLow,
		},
		{
			name:     "platform total mismatch",
			records:  []*verification.Record{earning(1234.5, 10), earning(987.6, 10)},
			total:    ptr(1500.0),
			want:     IndicatorPlatformTotalMismatch,
			severity: SeverityMedium,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := AnalyzeEarnings(rules, tt.records, tt.total)
			require.Contains(t, indicatorTypes(result), tt.want)
			for _, ind := range result.FraudIndicators {
				if ind.Type == tt.want {
					assert.Equal(t, tt.severity, ind.Severity)
				}
			}
		})
	}
}

func TestAnalyzeEarnings_NoFalsePositives(t *testing.T) {
	rules := DefaultEarningsRules()

	t.Run("single record is never concentrated", func(t *testing.T) {
		result := AnalyzeEarnings(rules, []*verification.Record{earning(950.5, 10)}, nil)
		assert.NotContains(t, indicatorTypes(result), IndicatorIncomeConcentration)
	})

	t.Run("three round records are below the minimum", func(t *testing.T) {
		result := AnalyzeEarnings(rules, []*verification.Record{
			earning(500, 10), earning(700, 10), earning(900, 10),
		}, nil)
		assert.NotContains(t, indicatorTypes(result), IndicatorRoundNumbers)
	})

	t.Run("platform total within ten percent", func(t *testing.T) {
		result := AnalyzeEarnings(rules, []*verification.Record{earning(1050.5, 10)}, ptr(1000.0))
		assert.NotContains(t, indicatorTypes(result), IndicatorPlatformTotalMismatch)
	})

	t.Run("records without earnings are ignored", func(t *testing.T) {
		r := earning(100, 1)
		r.Earnings = nil
		result := AnalyzeEarnings(rules, []*verification.Record{r}, nil)
		assert.True(t, result.Verified)
		assert.Zero(t, result.TotalEarnings)
	})
}

func TestAnalyzeEarnings_Discrepancies(t *testing.T) {
	rules := DefaultEarningsRules()

	t.Run("duplicate platform identifier", func(t *testing.T) {
		a := earning(1234.5, 10)
		b := earning(1234.5, 10, func(r *verification.Record) { r.ExternalID = a.ExternalID })
		result := AnalyzeEarnings(rules, []*verification.Record{a, b}, nil)
		assert.Equal(t, []DiscrepancyType{DiscrepancyDuplicate}, discrepancyTypes(result))
		assert.Equal(t, b.ID, result.Discrepancies[0].RecordID)
		assert.False(t, result.Verified)
	})

	t.Run("duplicate amount and period", func(t *testing.T) {
		a := earning(812.4, 10, manualImport)
		b := earning(812.4, 10, manualImport)
		result := AnalyzeEarnings(rules, []*verification.Record{a, b}, nil)
		assert.Contains(t, discrepancyTypes(result), DiscrepancyDuplicate)
	})

	t.Run("platform sourced without identifier is missing", func(t *testing.T) {
		r := earning(812.4, 10, func(r *verification.Record) { r.ExternalID = "" })
		result := AnalyzeEarnings(rules, []*verification.Record{r}, nil)
		assert.Equal(t, []DiscrepancyType{DiscrepancyMissing}, discrepancyTypes(result))
		assert.Equal(t, 10, result.RiskScore)
		assert.False(t, result.Verified)
	})

	t.Run("item amount differs from platform amount", func(t *testing.T) {
		r := earning(1000.5, 10, func(r *verification.Record) {
			r.Earnings.PaymentConfirmed = false
			r.Earnings.PlatformAmount = ptr(900.0)
		})
		result := AnalyzeEarnings(rules, []*verification.Record{r}, nil)
		assert.Equal(t, []DiscrepancyType{DiscrepancyMismatch}, discrepancyTypes(result))
		assert.Zero(t, result.VerifiedEarnings)
	})

	t.Run("non-positive amount is suspicious", func(t *testing.T) {
		result := AnalyzeEarnings(rules, []*verification.Record{earning(-5, 1)}, nil)
		assert.Contains(t, discrepancyTypes(result), DiscrepancySuspicious)
	})
}

func TestAnalyzeEarnings_RiskIsCapped(t *testing.T) {
	rules := DefaultEarningsRules()
	records := make([]*verification.Record, 0, 5)
	for i := 0; i < 5; i++ {
		records = append(records, earning(2000.5+float64(i), 0))
	}
	result := AnalyzeEarnings(rules, records, nil)

	highs := 0
	for _, ind := range result.FraudIndicators {
		if ind.Severity == SeverityHigh {
			highs++
		}
	}
	require.Equal(t, 5, highs)
	assert.Equal(t, 100, result.RiskScore)
	assert.False(t, result.Verified)
}

func TestAnalyzeEarnings_VerifiedNeedsLowRisk(t *testing.T) {
	rules := DefaultEarningsRules()
	// One medium indicator (15) and one low (5) stay under the ceiling.
	records := []*verification.Record{earning(9500.5, 10), earning(310.3, 10)}
	result := AnalyzeEarnings(rules, records, nil)
	assert.Equal(t, 20, result.RiskScore)
	assert.True(t, result.Verified)

	// A third, high-severity indicator pushes it over.
	records = append(records, earning(1500.5, 0))
	result = AnalyzeEarnings(rules, records, nil)
	assert.GreaterOrEqual(t, result.RiskScore, 30)
	assert.False(t, result.Verified)
}

func TestNormalize(t *testing.T) {
	rules := DefaultEarningsRules()
	v, ok := rules.Normalize(100, "eur")
	assert.True(t, ok)
	assert.InDelta(t, 108, v, 0.0001)

	v, ok = rules.Normalize(100, "XYZ")
	assert.False(t, ok)
	assert.Equal(t, 100.0, v)
}

func manualImport(r *verification.Record) {
	r.ExternalID = ""
	r.Source = verification.SourceManualImport
}

func ptr[T any](v T) *T { return &v }
