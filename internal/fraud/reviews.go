package fraud

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"
	"unicode"
)

// genericPhrases match superlative filler that says nothing specific about
// the work.
var genericPhrases = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(great|good|awesome|amazing|excellent|perfect|best)\s+(job|work|freelancer|developer|designer|guy|person)\b`),
	regexp.MustCompile(`(?i)\bhighly\s+recommend(ed)?\b`),
	regexp.MustCompile(`(?i)\b(would|will)\s+(definitely\s+)?hire\s+again\b`),
	regexp.MustCompile(`(?i)\b(a\+\+|10/10|5\s+stars?|five\s+stars?)`),
	regexp.MustCompile(`(?i)\bthe\s+best\s+(ever|on\s+\w+)\b`),
	regexp.MustCompile(`(?i)\b(thank\s+you|thanks)\s+(so\s+much|a\s+lot)\b`),
}

// AnalyzeReview scores a single review's authenticity at time now.
func AnalyzeReview(rules ReviewRules, review *Review, now time.Time) ReviewResult {
	flags := make([]ReviewFlag, 0)
	addFlag := func(kind string, severity Severity, evidence string) {
		flags = append(flags, ReviewFlag{Type: kind, Severity: severity, Evidence: evidence})
	}

	checks := []ReviewCheck{
		platformVerifiedCheck(rules, review),
		projectLinkCheck(rules, review),
		reviewerIdentityCheck(rules, review, addFlag),
		contentCheck(rules, review, addFlag),
		reviewTimelineCheck(rules, review, now, addFlag),
	}

	content := strings.TrimSpace(review.Content)
	if (review.Rating >= 5 || review.Rating <= 1) && len([]rune(content)) < rules.DetailLength {
		addFlag(FlagExtremeRatingNoDetail, SeverityInfo,
			fmt.Sprintf("%d-star rating with %d characters of explanation", review.Rating, len([]rune(content))))
	}

	var weighted, weights float64
	for _, c := range checks {
		weighted += float64(c.Score) * c.Weight
		weights += c.Weight
	}
	score := 0.0
	if weights > 0 {
		score = weighted / weights
	}
	for _, f := range flags {
		score -= rules.FlagPenalties[f.Severity]
	}
	score = math.Round(clamp(score, 0, 100)*10) / 10

	return ReviewResult{
		ReviewID:          review.ID,
		Verified:          score >= rules.VerifiedThreshold,
		AuthenticityScore: score,
		Checks:            checks,
		Flags:             flags,
		RulesVersion:      rules.Version,
	}
}

func platformVerifiedCheck(rules ReviewRules, r *Review) ReviewCheck {
	c := ReviewCheck{Name: ReviewCheckPlatformVerified, Weight: rules.WeightPlatformVerified}
	if r.PlatformVerified {
		c.Passed, c.Score = true, 100
		c.Evidence = fmt.Sprintf("review fetched from %s over a verified connection", r.Platform)
	} else {
		c.Evidence = "review was not fetched from the platform"
	}
	return c
}

func projectLinkCheck(rules ReviewRules, r *Review) ReviewCheck {
	c := ReviewCheck{Name: ReviewCheckProjectLink, Weight: rules.WeightProjectLink}
	switch {
	case r.ProjectID != nil && r.ProjectVerified:
		c.Passed, c.Score = true, 100
		c.Evidence = "linked to a verified project"
	case r.ProjectID != nil:
		c.Score = 50
		c.Evidence = "linked to an unverified project"
	default:
		c.Evidence = "no linked project"
	}
	return c
}

func reviewerIdentityCheck(rules ReviewRules, r *Review, flag func(string, Severity, string)) ReviewCheck {
	c := ReviewCheck{Name: ReviewCheckReviewerIdentity, Weight: rules.WeightReviewerIdentity}
	switch {
	case r.ReviewerVerified:
		c.Passed, c.Score = true, 100
		c.Evidence = "reviewer identity verified by platform"
		return c
	case r.ReviewerExternalID != "":
		c.Passed, c.Score = true, 60
		c.Evidence = "reviewer has a platform identifier"
	case r.ReviewerName != "":
		c.Score = 30
		c.Evidence = "reviewer known by name only"
	default:
		c.Evidence = "anonymous reviewer"
	}
	flag(FlagUnverifiedReviewer, SeverityInfo, c.Evidence)
	return c
}

func contentCheck(rules ReviewRules, r *Review, flag func(string, Severity, string)) ReviewCheck {
	c := ReviewCheck{Name: ReviewCheckContent, Weight: rules.WeightContent}
	content := strings.TrimSpace(r.Content)
	length := len([]rune(content))
	score := 100
	notes := make([]string, 0, 4)

	generic := 0
	for _, re := range genericPhrases {
		if re.MatchString(content) {
			generic++
		}
	}
	if generic > 0 {
		score -= min(generic*rules.GenericPhrasePenalty, rules.MaxGenericPenalty)
		notes = append(notes, fmt.Sprintf("%d generic phrases", generic))
		flag(FlagGenericContent, SeverityInfo, "content relies on generic superlatives")
	}

	if length < rules.ShortContentLength {
		score -= rules.ShortContentPenalty
		notes = append(notes, fmt.Sprintf("only %d characters", length))
		flag(FlagShortContent, SeverityWarning, fmt.Sprintf("review is %d characters long", length))
	} else if length >= rules.ModerateLengthMin && length <= rules.ModerateLengthMax {
		score += rules.ModerateLengthBonus
	}

	words := tokenize(content)
	if len(words) > 0 {
		ratio := uniqueRatio(words)
		switch {
		case ratio < rules.LowVarietyRatio && len(words) >= rules.LowVarietyMinWords:
			score -= rules.LowVarietyPenalty
			notes = append(notes, fmt.Sprintf("unique word ratio %.2f", ratio))
			flag(FlagLowVariety, SeverityInfo, fmt.Sprintf("unique word ratio %.2f", ratio))
		case ratio > rules.HighVarietyRatio:
			score += rules.HighVarietyBonus
		}
	}

	c.Score = int(clamp(float64(score), 0, 100))
	c.Passed = c.Score >= 70
	if len(notes) == 0 {
		c.Evidence = "content reads as specific"
	} else {
		c.Evidence = strings.Join(notes, "; ")
	}
	return c
}

func reviewTimelineCheck(rules ReviewRules, r *Review, now time.Time, flag func(string, Severity, string)) ReviewCheck {
	c := ReviewCheck{Name: ReviewCheckTimeline, Weight: rules.WeightTimeline}
	switch {
	case r.ReviewedAt.IsZero():
		c.Score = 50
		c.Evidence = "review date unknown"
	case r.ReviewedAt.After(now):
		c.Evidence = "review is dated in the future"
		flag(FlagFutureDated, SeverityCritical, c.Evidence)
	case r.ProjectCompletedAt != nil && r.ReviewedAt.Before(*r.ProjectCompletedAt):
		c.Score = 30
		c.Evidence = "review predates project completion"
		flag(FlagBeforeProjectCompletion, SeverityWarning, c.Evidence)
	default:
		c.Passed, c.Score = true, 100
		c.Evidence = "review date is plausible"
	}
	return c
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}

func uniqueRatio(words []string) float64 {
	seen := make(map[string]struct{}, len(words))
	for _, w := range words {
		seen[w] = struct{}{}
	}
	return float64(len(seen)) / float64(len(words))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
