package reputation

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	"worktrust/internal/fraud"
	id "worktrust/pkg/domain"
)

const (
	verifiedWeight   = 1.5
	unverifiedWeight = 1.0
	recentMonths     = 6
)

type themeBucket struct {
	name     string
	polarity Polarity
	pattern  *regexp.Regexp
}

// themeBuckets are matched against lower-cased review text. A review counts
// at most once per bucket.
var themeBuckets = []themeBucket{
	{"communication", PolarityPositive, regexp.MustCompile(`\b(communicat\w*|responsive|kept (me|us) (updated|informed)|clear updates)\b`)},
	{"quality", PolarityPositive, regexp.MustCompile(`\b(quality|clean code|well[- ]written|polished|attention to detail|thorough)\b`)},
	{"timeliness", PolarityPositive, regexp.MustCompile(`\b(on time|ahead of schedule|deadline[s]? met|met (the|every|all) deadlines?|fast delivery|quick(ly)?|prompt(ly)?)\b`)},
	{"skills", PolarityPositive, regexp.MustCompile(`\b(skill(ed|s)?|expert(ise)?|knowledgeable|experienced|talented|professional)\b`)},
	{"reliability", PolarityPositive, regexp.MustCompile(`\b(reliable|dependable|trustworthy|consistent|delivered as promised)\b`)},
	{"delays", PolarityNegative, regexp.MustCompile(`\b(late|delay(ed|s)?|missed (the )?deadlines?|behind schedule|took too long)\b`)},
	{"unresponsive", PolarityNegative, regexp.MustCompile(`\b(unresponsive|never (replied|responded)|hard to reach|ghost(ed)?|no response|slow to respond)\b`)},
}

// Aggregate composes per-review results into a cross-platform score. A
// review counts as verified when results holds a verified entry for it.
func Aggregate(userID id.UserID, reviews []*fraud.Review, results map[id.ReviewID]*fraud.ReviewResult, now time.Time) *Score {
	score := &Score{
		UserID:     userID,
		Platforms:  make([]PlatformSummary, 0),
		Themes:     make([]Theme, 0),
		Trend:      make([]TrendPoint, 0),
		ComputedAt: now,
	}

	valid := make([]*fraud.Review, 0, len(reviews))
	for _, r := range reviews {
		if r != nil && r.Rating >= 1 && r.Rating <= 5 {
			valid = append(valid, r)
		}
	}
	if len(valid) == 0 {
		return score
	}

	isVerified := func(r *fraud.Review) bool {
		res, ok := results[r.ID]
		return ok && res != nil && res.Verified
	}

	var weighted, weights float64
	for _, r := range valid {
		w := unverifiedWeight
		if isVerified(r) {
			w = verifiedWeight
			score.VerifiedReviews++
		}
		weighted += w * float64(r.Rating)
		weights += w
	}
	score.TotalReviews = len(valid)
	score.OverallRating = round2(weighted / weights)

	score.Platforms = platformSummaries(valid, isVerified, now)
	score.Sentiment = sentiment(valid)
	score.Themes = themes(valid)
	score.Trend = quarterlyTrend(valid)
	return score
}

func platformSummaries(reviews []*fraud.Review, isVerified func(*fraud.Review) bool, now time.Time) []PlatformSummary {
	type acc struct {
		summary        PlatformSummary
		sum, recentSum float64
	}
	recentCutoff := now.AddDate(0, -recentMonths, 0)
	byPlatform := make(map[string]*acc)
	for _, r := range reviews {
		name := strings.ToLower(strings.TrimSpace(r.Platform))
		if name == "" {
			name = "unknown"
		}
		a, ok := byPlatform[name]
		if !ok {
			a = &acc{summary: PlatformSummary{Platform: name}}
			byPlatform[name] = a
		}
		a.summary.ReviewCount++
		a.sum += float64(r.Rating)
		if isVerified(r) {
			a.summary.VerifiedCount++
		}
		if !r.ReviewedAt.Before(recentCutoff) && !r.ReviewedAt.After(now) {
			a.summary.RecentCount++
			a.recentSum += float64(r.Rating)
		}
	}

	out := make([]PlatformSummary, 0, len(byPlatform))
	for _, a := range byPlatform {
		a.summary.AverageRating = round2(a.sum / float64(a.summary.ReviewCount))
		if a.summary.RecentCount > 0 {
			a.summary.RecentRating = round2(a.recentSum / float64(a.summary.RecentCount))
		}
		out = append(out, a.summary)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Platform < out[j].Platform })
	return out
}

func sentiment(reviews []*fraud.Review) Sentiment {
	var s Sentiment
	for _, r := range reviews {
		switch {
		case r.Rating >= 4:
			s.Positive++
		case r.Rating == 3:
			s.Neutral++
		default:
			s.Negative++
		}
	}
	s.Score = round2(float64(s.Positive-s.Negative) / float64(len(reviews)))
	return s
}

// themes returns matched buckets ordered by mentions, then name.
func themes(reviews []*fraud.Review) []Theme {
	counts := make([]int, len(themeBuckets))
	for _, r := range reviews {
		text := strings.ToLower(r.Content)
		for i, b := range themeBuckets {
			if b.pattern.MatchString(text) {
				counts[i]++
			}
		}
	}
	out := make([]Theme, 0, len(themeBuckets))
	for i, b := range themeBuckets {
		if counts[i] > 0 {
			out = append(out, Theme{Name: b.name, Polarity: b.polarity, Mentions: counts[i]})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Mentions != out[j].Mentions {
			return out[i].Mentions > out[j].Mentions
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func quarterlyTrend(reviews []*fraud.Review) []TrendPoint {
	type acc struct {
		sum   float64
		count int
	}
	byQuarter := make(map[string]*acc)
	for _, r := range reviews {
		if r.ReviewedAt.IsZero() {
			continue
		}
		q := quarter(r.ReviewedAt)
		a, ok := byQuarter[q]
		if !ok {
			a = &acc{}
			byQuarter[q] = a
		}
		a.sum += float64(r.Rating)
		a.count++
	}
	out := make([]TrendPoint, 0, len(byQuarter))
	for period, a := range byQuarter {
		out = append(out, TrendPoint{Period: period, AverageRating: round2(a.sum / float64(a.count)), Count: a.count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period < out[j].Period })
	return out
}

func quarter(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("%d-Q%d", t.Year(), (int(t.Month())-1)/3+1)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
