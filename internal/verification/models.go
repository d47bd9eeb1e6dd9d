package verification

import (
	"time"

	"worktrust/internal/proof"
	"worktrust/pkg/canonical"
	id "worktrust/pkg/domain"
)

// Kind distinguishes the record shapes the engine scores.
type Kind string

const (
	KindWorkHistory Kind = "work_history"
	KindEarnings    Kind = "earnings"
	KindReview      Kind = "review"
)

// Source describes how a record entered the system.
type Source string

const (
	SourceOAuth        Source = "oauth"
	SourceAPI          Source = "api"
	SourceManualImport Source = "manual_import"
	SourceSelf         Source = "self"
)

// Client is the counterparty of a work-history item or the author of a review.
type Client struct {
	Name       string `json:"name,omitempty"`
	ExternalID string `json:"external_id,omitempty"`
	Verified   bool   `json:"verified"`
}

// Earnings carries the financial fields of a record. A record without
// earnings skips the payment check entirely.
type Earnings struct {
	Amount           float64  `json:"amount"`
	Currency         string   `json:"currency"`
	Hours            float64  `json:"hours,omitempty"`
	PaymentConfirmed bool     `json:"payment_confirmed"`
	PlatformAmount   *float64 `json:"platform_amount,omitempty"`
}

// Record is a single work-history, earnings or review item owned by a user.
// Content fields are written by sync/import; Level, Score and LastVerifiedAt
// are written only from verification runs.
type Record struct {
	ID               id.RecordID `json:"id"`
	UserID           id.UserID   `json:"user_id"`
	Kind             Kind        `json:"kind"`
	Platform         string      `json:"platform"`
	ExternalID       string      `json:"external_id,omitempty"`
	Source           Source      `json:"source"`
	ConnectionActive bool        `json:"connection_active"`
	Title            string      `json:"title"`
	Description      string      `json:"description,omitempty"`
	Client           *Client     `json:"client,omitempty"`
	Skills           []string    `json:"skills,omitempty"`
	StartDate        time.Time   `json:"start_date"`
	EndDate          *time.Time  `json:"end_date,omitempty"`
	Earnings         *Earnings   `json:"earnings,omitempty"`
	// OriginalHash is the content hash captured at first import.
	OriginalHash string `json:"original_hash,omitempty"`

	Level          Level        `json:"level"`
	Score          int          `json:"score"`
	LastVerifiedAt *time.Time   `json:"last_verified_at,omitempty"`
	SupersededBy   *id.RecordID `json:"superseded_by,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// recordContent is the hashed projection of a record. Verification fields are
// excluded so re-running verification never changes the content hash.
type recordContent struct {
	Kind        Kind       `json:"kind"`
	Platform    string     `json:"platform"`
	ExternalID  string     `json:"external_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Client      *Client    `json:"client"`
	Skills      []string   `json:"skills"`
	StartDate   time.Time  `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
	Earnings    *Earnings  `json:"earnings"`
}

// ContentHash returns the canonical hash of the record's content fields.
func (r *Record) ContentHash() (string, error) {
	return canonical.Hash(recordContent{
		Kind:        r.Kind,
		Platform:    r.Platform,
		ExternalID:  r.ExternalID,
		Title:       r.Title,
		Description: r.Description,
		Client:      r.Client,
		Skills:      r.Skills,
		StartDate:   storedTime(r.StartDate),
		EndDate:     storedTimePtr(r.EndDate),
		Earnings:    r.Earnings,
	})
}

func (r *Record) IsSuperseded() bool { return r.SupersededBy != nil }

// StripPlatformEvidence clears every field only a platform sync may assert.
// Holder-supplied records keep their content but lose any claim of platform
// corroboration.
func (r *Record) StripPlatformEvidence() {
	if r.Source != SourceSelf {
		r.Source = SourceManualImport
	}
	r.ConnectionActive = false
	if r.Client != nil {
		c := *r.Client
		c.Verified = false
		r.Client = &c
	}
	if r.Earnings != nil {
		e := *r.Earnings
		e.PaymentConfirmed = false
		e.PlatformAmount = nil
		r.Earnings = &e
	}
}

// ApplyStatus copies the outcome of a verification run onto the record.
func (r *Record) ApplyStatus(s *Status) {
	r.Level = s.Level
	r.Score = s.Score
	at := s.VerifiedAt
	r.LastVerifiedAt = &at
	r.UpdatedAt = s.VerifiedAt
}

// storedTime matches the precision postgres keeps for TIMESTAMPTZ.
func storedTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

func storedTimePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := storedTime(*t)
	return &u
}

// Category groups checks by the kind of evidence they examine.
type Category string

const (
	CategorySource    Category = "source"
	CategoryData      Category = "data"
	CategoryTimeline  Category = "timeline"
	CategoryFinancial Category = "financial"
	CategoryIdentity  Category = "identity"
)

// Check names.
const (
	CheckOAuthConnection  = "oauth_connection"
	CheckDirectAPISource  = "direct_api_source"
	CheckProjectExists    = "project_exists"
	CheckPaymentConfirmed = "payment_confirmed"
	CheckClientIdentity   = "client_identity"
	CheckTimeline         = "timeline"
	CheckDataIntegrity    = "data_integrity"
)

// Check is one evaluated rule of a verification run.
type Check struct {
	Name     string   `json:"name"`
	Category Category `json:"category"`
	Weight   int      `json:"weight"`
	Passed   bool     `json:"passed"`
	Score    int      `json:"score"`
	Evidence string   `json:"evidence"`
}

// Anchor is a reference to an external timestamping transaction.
type Anchor struct {
	Network       string    `json:"network"`
	TransactionID string    `json:"transaction_id"`
	AnchoredAt    time.Time `json:"anchored_at"`
}

// Status is the immutable result of one verification run. A later run
// produces a new Status under a new RunID; statuses are never edited.
type Status struct {
	RunID          id.RunID     `json:"run_id"`
	RecordID       id.RecordID  `json:"record_id"`
	UserID         id.UserID    `json:"user_id"`
	Level          Level        `json:"level"`
	RequestedLevel Level        `json:"requested_level"`
	Score          int          `json:"score"`
	Checks         []Check      `json:"checks"`
	ContentHash    string       `json:"content_hash"`
	Signature      *proof.Proof `json:"signature,omitempty"`
	Anchor         *Anchor      `json:"anchor,omitempty"`
	// Degraded marks a result that fell short of the requested level because
	// of an infrastructure failure rather than the evidence.
	Degraded   bool      `json:"degraded"`
	Notes      []string  `json:"notes,omitempty"`
	VerifiedAt time.Time `json:"verified_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Check returns the named check, if it ran.
func (s *Status) Check(name string) (Check, bool) {
	return findCheck(s.Checks, name)
}

// IsExpired reports whether the result is past its advisory expiry.
func (s *Status) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// BatchResult reports partial success for a batch run. A record appears in
// exactly one of the two maps.
type BatchResult struct {
	Statuses map[id.RecordID]*Status `json:"statuses"`
	Errors   map[id.RecordID]string  `json:"errors"`
}

// SweepResult summarizes one re-verification sweep.
type SweepResult struct {
	Examined   int                    `json:"examined"`
	Reverified int                    `json:"reverified"`
	Errors     map[id.RecordID]string `json:"errors"`
}
