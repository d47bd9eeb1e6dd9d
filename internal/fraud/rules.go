package fraud

import "strings"

// RulesVersion identifies the default rule sets. Bump it whenever a
// threshold or penalty below changes so stored results can be traced to the
// rules that produced them.
const RulesVersion = "v1"

// EarningsRules holds every threshold and penalty used by the earnings
// heuristics.
type EarningsRules struct {
	Version string

	// MaxHourlyRate is in normalized (USD) units.
	MaxHourlyRate float64
	// ConcentrationRatio is the share of total earnings one record may hold
	// before it is flagged.
	ConcentrationRatio float64
	// RoundNumberRatio is the share of records with amounts divisible by
	// RoundNumberDivisor above which the set is flagged.
	RoundNumberRatio      float64
	RoundNumberMinRecords int
	RoundNumberDivisor    float64
	// ZeroHoursThreshold is the amount above which zero logged hours is flagged.
	ZeroHoursThreshold float64
	// PlatformTotalTolerance bounds |reported - platform| relative to platform.
	PlatformTotalTolerance float64
	// ItemTolerance bounds a single record against its platform amount.
	ItemTolerance float64

	DiscrepancyPenalties map[DiscrepancyType]int
	SeverityPenalties    map[Severity]int
	MaxRiskScore         int
	// VerifiedRiskCeiling is exclusive: a result is verified only below it.
	VerifiedRiskCeiling int

	// CurrencyRates converts an amount in the keyed currency to USD.
	CurrencyRates map[string]float64
}

// DefaultEarningsRules returns the v1 earnings rule set.
func DefaultEarningsRules() EarningsRules {
	return EarningsRules{
		Version:                RulesVersion,
		MaxHourlyRate:          500,
		ConcentrationRatio:     0.9,
		RoundNumberRatio:       0.8,
		RoundNumberMinRecords:  4,
		RoundNumberDivisor:     100,
		ZeroHoursThreshold:     1000,
		PlatformTotalTolerance: 0.10,
		ItemTolerance:          0.01,
		DiscrepancyPenalties: map[DiscrepancyType]int{
			DiscrepancyMismatch:   15,
			DiscrepancyMissing:    10,
			DiscrepancyDuplicate:  25,
			DiscrepancySuspicious: 20,
		},
		SeverityPenalties: map[Severity]int{
			SeverityLow:    5,
			SeverityMedium: 15,
			SeverityHigh:   30,
		},
		MaxRiskScore:        100,
		VerifiedRiskCeiling: 30,
		CurrencyRates: map[string]float64{
			"USD": 1,
			"EUR": 1.08,
			"GBP": 1.27,
			"CAD": 0.74,
			"AUD": 0.66,
			"NZD": 0.61,
			"CHF": 1.13,
			"INR": 0.012,
			"JPY": 0.0067,
			"BRL": 0.18,
			"MXN": 0.058,
			"PHP": 0.018,
			"PKR": 0.0036,
			"NGN": 0.00066,
			"UAH": 0.024,
		},
	}
}

// Normalize converts amount to USD. Unknown or empty currencies are taken
// at face value and reported as not normalized.
func (r EarningsRules) Normalize(amount float64, currency string) (float64, bool) {
	rate, ok := r.CurrencyRates[strings.ToUpper(strings.TrimSpace(currency))]
	if !ok {
		return amount, false
	}
	return amount * rate, true
}

// ReviewRules holds the weights, content rules and penalties of the review
// authenticity heuristics. Weights are fractions summing to 1.
type ReviewRules struct {
	Version string

	WeightPlatformVerified float64
	WeightProjectLink      float64
	WeightReviewerIdentity float64
	WeightContent          float64
	WeightTimeline         float64

	ShortContentLength   int
	ShortContentPenalty  int
	LowVarietyRatio      float64
	LowVarietyMinWords   int
	LowVarietyPenalty    int
	GenericPhrasePenalty int
	MaxGenericPenalty    int
	ModerateLengthMin    int
	ModerateLengthMax    int
	ModerateLengthBonus  int
	HighVarietyRatio     float64
	HighVarietyBonus     int
	// DetailLength is the content length below which an extreme rating is
	// considered unexplained.
	DetailLength int

	FlagPenalties map[Severity]float64
	// VerifiedThreshold is inclusive.
	VerifiedThreshold float64
}

// DefaultReviewRules returns the v1 review rule set.
func DefaultReviewRules() ReviewRules {
	return ReviewRules{
		Version:                RulesVersion,
		WeightPlatformVerified: 0.30,
		WeightProjectLink:      0.25,
		WeightReviewerIdentity: 0.15,
		WeightContent:          0.15,
		WeightTimeline:         0.15,
		ShortContentLength:     20,
		ShortContentPenalty:    20,
		LowVarietyRatio:        0.4,
		LowVarietyMinWords:     5,
		LowVarietyPenalty:      15,
		GenericPhrasePenalty:   10,
		MaxGenericPenalty:      30,
		ModerateLengthMin:      50,
		ModerateLengthMax:      200,
		ModerateLengthBonus:    5,
		HighVarietyRatio:       0.7,
		HighVarietyBonus:       10,
		DetailLength:           50,
		FlagPenalties: map[Severity]float64{
			SeverityInfo:     2,
			SeverityWarning:  10,
			SeverityCritical: 25,
		},
		VerifiedThreshold: 70,
	}
}
