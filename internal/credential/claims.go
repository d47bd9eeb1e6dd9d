package credential

import (
	"math"
	"sort"
	"strings"
	"time"

	"worktrust/internal/fraud"
	"worktrust/internal/reputation"
	"worktrust/internal/verification"
	id "worktrust/pkg/domain"
	dErrors "worktrust/pkg/domain-errors"
)

// Claim is the type-specific payload of a credential subject. Each credential
// type has exactly one claim shape.
type Claim interface {
	CredentialType() Type
}

func newClaim(t Type) (Claim, error) {
	switch t {
	case TypeWorkHistory:
		return &WorkHistoryClaim{}, nil
	case TypeEarnings:
		return &EarningsClaim{}, nil
	case TypeSkills:
		return &SkillsClaim{}, nil
	case TypeReviews:
		return &ReviewsClaim{}, nil
	case TypeCompleteProfile:
		return &CompleteProfileClaim{}, nil
	default:
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unknown credential type: "+string(t))
	}
}

// ProjectSummary is one work-history record as disclosed in a credential.
type ProjectSummary struct {
	RecordID  id.RecordID        `json:"recordId"`
	Platform  string             `json:"platform"`
	Title     string             `json:"title"`
	Client    string             `json:"client,omitempty"`
	StartDate time.Time          `json:"startDate"`
	EndDate   *time.Time         `json:"endDate,omitempty"`
	Level     verification.Level `json:"level"`
	Score     int                `json:"score"`
}

type WorkHistoryClaim struct {
	TotalProjects    int              `json:"totalProjects"`
	VerifiedProjects int              `json:"verifiedProjects"`
	Platforms        []string         `json:"platforms"`
	Projects         []ProjectSummary `json:"projects"`
}

func (*WorkHistoryClaim) CredentialType() Type { return TypeWorkHistory }

// EarningsClaim discloses verified totals only, never per-item amounts.
type EarningsClaim struct {
	VerifiedTotal          float64 `json:"verifiedTotal"`
	Currency               string  `json:"currency"`
	VerificationPercentage float64 `json:"verificationPercentage"`
	PlatformCount          int     `json:"platformCount"`
	EarningsVerified       bool    `json:"earningsVerified"`
}

func (*EarningsClaim) CredentialType() Type { return TypeEarnings }

type SkillSummary struct {
	Name                 string  `json:"name"`
	ProjectCount         int     `json:"projectCount"`
	VerifiedProjectCount int     `json:"verifiedProjectCount"`
	VerifiedPercentage   float64 `json:"verifiedPercentage"`
}

type SkillsClaim struct {
	TotalSkills int            `json:"totalSkills"`
	Skills      []SkillSummary `json:"skills"`
}

func (*SkillsClaim) CredentialType() Type { return TypeSkills }

type ReviewPlatform struct {
	Platform      string  `json:"platform"`
	ReviewCount   int     `json:"reviewCount"`
	AverageRating float64 `json:"averageRating"`
}

type ReviewsClaim struct {
	TotalReviews    int              `json:"totalReviews"`
	VerifiedReviews int              `json:"verifiedReviews"`
	OverallRating   float64          `json:"overallRating"`
	SentimentScore  float64          `json:"sentimentScore"`
	Platforms       []ReviewPlatform `json:"platforms"`
	TopThemes       []string         `json:"topThemes"`
}

func (*ReviewsClaim) CredentialType() Type { return TypeReviews }

type CompleteProfileClaim struct {
	Name                string            `json:"name,omitempty"`
	Headline            string            `json:"headline,omitempty"`
	Location            string            `json:"location,omitempty"`
	ProfileCompleteness int               `json:"profileCompleteness"`
	WorkHistory         *WorkHistoryClaim `json:"workHistory"`
	Earnings            *EarningsClaim    `json:"earnings"`
	Skills              *SkillsClaim      `json:"skills"`
	Reviews             *ReviewsClaim     `json:"reviews"`
}

func (*CompleteProfileClaim) CredentialType() Type { return TypeCompleteProfile }

// Profile is the self-described part of a freelancer's profile.
type Profile struct {
	UserID   id.UserID `json:"user_id"`
	Name     string    `json:"name"`
	Headline string    `json:"headline,omitempty"`
	Bio      string    `json:"bio,omitempty"`
	PhotoURL string    `json:"photo_url,omitempty"`
	Location string    `json:"location,omitempty"`
	Skills   []string  `json:"skills,omitempty"`
}

// SubjectData is everything the claim builders read. Nil fields are treated
// as empty.
type SubjectData struct {
	Profile       *Profile
	Records       []*verification.Record
	Earnings      *fraud.EarningsResult
	Reviews       []*fraud.Review
	ReviewResults map[id.ReviewID]*fraud.ReviewResult
}

const maxThemes = 3

// BuildClaim derives the claim for t from data.
func BuildClaim(t Type, userID id.UserID, data *SubjectData, now time.Time) (Claim, error) {
	if data == nil {
		data = &SubjectData{}
	}
	switch t {
	case TypeWorkHistory:
		return buildWorkHistory(data.Records), nil
	case TypeEarnings:
		return buildEarnings(data.Records, data.Earnings), nil
	case TypeSkills:
		return buildSkills(data.Profile, data.Records), nil
	case TypeReviews:
		return buildReviews(userID, data.Reviews, data.ReviewResults, now), nil
	case TypeCompleteProfile:
		return buildCompleteProfile(userID, data, now), nil
	default:
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unknown credential type: "+string(t))
	}
}

func currentRecords(records []*verification.Record, kind verification.Kind) []*verification.Record {
	out := make([]*verification.Record, 0, len(records))
	for _, r := range records {
		if r == nil || r.IsSuperseded() {
			continue
		}
		if kind != "" && r.Kind != kind {
			continue
		}
		out = append(out, r)
	}
	return out
}

func isVerified(r *verification.Record) bool {
	return r.Level.AtLeast(verification.LevelPlatformVerified)
}

func buildWorkHistory(records []*verification.Record) *WorkHistoryClaim {
	projects := currentRecords(records, verification.KindWorkHistory)
	sort.SliceStable(projects, func(i, j int) bool {
		return projects[i].StartDate.Before(projects[j].StartDate)
	})

	claim := &WorkHistoryClaim{
		TotalProjects: len(projects),
		Platforms:     []string{},
		Projects:      make([]ProjectSummary, 0, len(projects)),
	}
	seen := map[string]bool{}
	for _, r := range projects {
		if isVerified(r) {
			claim.VerifiedProjects++
		}
		p := strings.ToLower(r.Platform)
		if !seen[p] {
			seen[p] = true
			claim.Platforms = append(claim.Platforms, p)
		}
		summary := ProjectSummary{
			RecordID:  r.ID,
			Platform:  p,
			Title:     r.Title,
			StartDate: r.StartDate.UTC(),
			Level:     r.Level,
			Score:     r.Score,
		}
		if r.Client != nil {
			summary.Client = r.Client.Name
		}
		if r.EndDate != nil {
			end := r.EndDate.UTC()
			summary.EndDate = &end
		}
		claim.Projects = append(claim.Projects, summary)
	}
	sort.Strings(claim.Platforms)
	return claim
}

// buildEarnings uses the supplied analysis or runs the default rules over
// the records.
func buildEarnings(records []*verification.Record, result *fraud.EarningsResult) *EarningsClaim {
	current := currentRecords(records, "")
	if result == nil {
		r := fraud.AnalyzeEarnings(fraud.DefaultEarningsRules(), current, nil)
		result = &r
	}
	platforms := map[string]bool{}
	for _, r := range current {
		if r.Earnings != nil {
			platforms[strings.ToLower(r.Platform)] = true
		}
	}
	claim := &EarningsClaim{
		VerifiedTotal:    round2(result.VerifiedEarnings),
		Currency:         "USD",
		PlatformCount:    len(platforms),
		EarningsVerified: result.Verified,
	}
	if result.TotalEarnings > 0 {
		claim.VerificationPercentage = round2(result.VerifiedEarnings / result.TotalEarnings * 100)
	}
	return claim
}

// buildSkills counts, per skill, the work-history records that list it and
// how many of those reached PLATFORM_VERIFIED. Profile-only skills appear
// with zero projects.
func buildSkills(profile *Profile, records []*verification.Record) *SkillsClaim {
	type tally struct {
		name     string
		projects int
		verified int
	}
	byKey := map[string]*tally{}
	var order []string
	add := func(name string) *tally {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil
		}
		key := strings.ToLower(name)
		t, ok := byKey[key]
		if !ok {
			t = &tally{name: name}
			byKey[key] = t
			order = append(order, key)
		}
		return t
	}

	for _, r := range currentRecords(records, verification.KindWorkHistory) {
		counted := map[string]bool{}
		for _, skill := range r.Skills {
			t := add(skill)
			if t == nil || counted[strings.ToLower(t.name)] {
				continue
			}
			counted[strings.ToLower(t.name)] = true
			t.projects++
			if isVerified(r) {
				t.verified++
			}
		}
	}
	if profile != nil {
		for _, skill := range profile.Skills {
			add(skill)
		}
	}

	claim := &SkillsClaim{TotalSkills: len(order), Skills: make([]SkillSummary, 0, len(order))}
	for _, key := range order {
		t := byKey[key]
		s := SkillSummary{Name: t.name, ProjectCount: t.projects, VerifiedProjectCount: t.verified}
		if t.projects > 0 {
			s.VerifiedPercentage = round2(float64(t.verified) / float64(t.projects) * 100)
		}
		claim.Skills = append(claim.Skills, s)
	}
	sort.SliceStable(claim.Skills, func(i, j int) bool {
		a, b := claim.Skills[i], claim.Skills[j]
		if a.ProjectCount != b.ProjectCount {
			return a.ProjectCount > b.ProjectCount
		}
		return strings.ToLower(a.Name) < strings.ToLower(b.Name)
	})
	return claim
}

func buildReviews(userID id.UserID, reviews []*fraud.Review, results map[id.ReviewID]*fraud.ReviewResult, now time.Time) *ReviewsClaim {
	score := reputation.Aggregate(userID, reviews, results, now)
	claim := &ReviewsClaim{
		TotalReviews:    score.TotalReviews,
		VerifiedReviews: score.VerifiedReviews,
		OverallRating:   score.OverallRating,
		SentimentScore:  score.Sentiment.Score,
		Platforms:       make([]ReviewPlatform, 0, len(score.Platforms)),
		TopThemes:       []string{},
	}
	for _, p := range score.Platforms {
		claim.Platforms = append(claim.Platforms, ReviewPlatform{
			Platform:      p.Platform,
			ReviewCount:   p.ReviewCount,
			AverageRating: p.AverageRating,
		})
	}
	for _, t := range score.Themes {
		if t.Polarity != reputation.PolarityPositive {
			continue
		}
		claim.TopThemes = append(claim.TopThemes, t.Name)
		if len(claim.TopThemes) == maxThemes {
			break
		}
	}
	return claim
}

func buildCompleteProfile(userID id.UserID, data *SubjectData, now time.Time) *CompleteProfileClaim {
	claim := &CompleteProfileClaim{
		WorkHistory: buildWorkHistory(data.Records),
		Earnings:    buildEarnings(data.Records, data.Earnings),
		Skills:      buildSkills(data.Profile, data.Records),
		Reviews:     buildReviews(userID, data.Reviews, data.ReviewResults, now),
	}
	if p := data.Profile; p != nil {
		claim.Name, claim.Headline, claim.Location = p.Name, p.Headline, p.Location
	}
	claim.ProfileCompleteness = Completeness(data.Profile, claim)
	return claim
}

// Completeness weights.
const (
	completenessName            = 10
	completenessHeadline        = 10
	completenessBio             = 10
	completenessPhoto           = 10
	completenessLocation        = 5
	completenessSkills          = 15
	completenessProject         = 15
	completenessVerifiedProject = 10
	completenessEarnings        = 5
	completenessReview          = 10

	minSkillsForCompleteness = 3
)

// Completeness scores profile presence from 0 to 100.
func Completeness(p *Profile, claim *CompleteProfileClaim) int {
	score := 0
	if p != nil {
		score += present(p.Name, completenessName)
		score += present(p.Headline, completenessHeadline)
		score += present(p.Bio, completenessBio)
		score += present(p.PhotoURL, completenessPhoto)
		score += present(p.Location, completenessLocation)
	}
	if claim.Skills != nil && claim.Skills.TotalSkills >= minSkillsForCompleteness {
		score += completenessSkills
	}
	if claim.WorkHistory != nil && claim.WorkHistory.TotalProjects > 0 {
		score += completenessProject
		if claim.WorkHistory.VerifiedProjects > 0 {
			score += completenessVerifiedProject
		}
	}
	if claim.Earnings != nil && claim.Earnings.PlatformCount > 0 {
		score += completenessEarnings
	}
	if claim.Reviews != nil && claim.Reviews.TotalReviews > 0 {
		score += completenessReview
	}
	return score
}

func present(s string, weight int) int {
	if strings.TrimSpace(s) == "" {
		return 0
	}
	return weight
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
