package handler

import (
	"strings"
	"time"

	"worktrust/internal/verification"
	id "worktrust/pkg/domain"
	dErrors "worktrust/pkg/domain-errors"
)

// maxBatchSize bounds a single verify-batch request.
const maxBatchSize = 100

// VerifyRequest is the body of POST /records/{recordID}/verify. An empty
// level requests PLATFORM_VERIFIED.
type VerifyRequest struct {
	Level string `json:"level"`

	parsedLevel verification.Level
}

func (r *VerifyRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	level, err := parseRequestedLevel(r.Level)
	if err != nil {
		return err
	}
	r.parsedLevel = level
	return nil
}

func (r *VerifyRequest) ParsedLevel() verification.Level {
	return r.parsedLevel
}

// VerifyBatchRequest is the body of POST /records/verify-batch.
type VerifyBatchRequest struct {
	RecordIDs []string `json:"record_ids"`
	Level     string   `json:"level"`

	parsedIDs   []id.RecordID
	parsedLevel verification.Level
}

func (r *VerifyBatchRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.RecordIDs) == 0 {
		return dErrors.New(dErrors.CodeValidation, "record_ids is required")
	}
	if len(r.RecordIDs) > maxBatchSize {
		return dErrors.New(dErrors.CodeValidation, "too many record_ids")
	}

	seen := make(map[id.RecordID]struct{}, len(r.RecordIDs))
	r.parsedIDs = make([]id.RecordID, 0, len(r.RecordIDs))
	for _, raw := range r.RecordIDs {
		recordID, err := id.ParseRecordID(strings.TrimSpace(raw))
		if err != nil {
			return err
		}
		if _, dup := seen[recordID]; dup {
			continue
		}
		seen[recordID] = struct{}{}
		r.parsedIDs = append(r.parsedIDs, recordID)
	}

	level, err := parseRequestedLevel(r.Level)
	if err != nil {
		return err
	}
	r.parsedLevel = level
	return nil
}

func (r *VerifyBatchRequest) ParsedRecordIDs() []id.RecordID {
	return r.parsedIDs
}

func (r *VerifyBatchRequest) ParsedLevel() verification.Level {
	return r.parsedLevel
}

func parseRequestedLevel(raw string) (verification.Level, error) {
	if strings.TrimSpace(raw) == "" {
		return verification.LevelPlatformVerified, nil
	}
	return verification.ParseLevel(raw)
}

// ImportRecordRequest is the body of POST /records. Holders may only
// import as manual_import or self; connection state and platform
// confirmations are never taken from the body.
type ImportRecordRequest struct {
	Kind        string                 `json:"kind"`
	Platform    string                 `json:"platform"`
	ExternalID  string                 `json:"external_id"`
	Source      string                 `json:"source"`
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	Client      *verification.Client   `json:"client"`
	Skills      []string               `json:"skills"`
	StartDate   time.Time              `json:"start_date"`
	EndDate     *time.Time             `json:"end_date"`
	Earnings    *verification.Earnings `json:"earnings"`

	kind   verification.Kind
	source verification.Source
}

func (r *ImportRecordRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Platform = strings.TrimSpace(r.Platform)
	r.Title = strings.TrimSpace(r.Title)
	if r.Platform == "" {
		return dErrors.New(dErrors.CodeValidation, "platform is required")
	}
	if r.Title == "" {
		return dErrors.New(dErrors.CodeValidation, "title is required")
	}
	if r.StartDate.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "start_date is required")
	}

	switch k := verification.Kind(r.Kind); k {
	case "":
		r.kind = verification.KindWorkHistory
	case verification.KindWorkHistory, verification.KindEarnings, verification.KindReview:
		r.kind = k
	default:
		return dErrors.New(dErrors.CodeValidation, "unknown kind: "+r.Kind)
	}
	switch src := verification.Source(r.Source); src {
	case "":
		r.source = verification.SourceManualImport
	case verification.SourceManualImport, verification.SourceSelf:
		r.source = src
	case verification.SourceOAuth, verification.SourceAPI:
		return dErrors.New(dErrors.CodeValidation, "source "+r.Source+" is set by platform sync only")
	default:
		return dErrors.New(dErrors.CodeValidation, "unknown source: "+r.Source)
	}
	if r.Earnings != nil && r.Earnings.Currency == "" {
		return dErrors.New(dErrors.CodeValidation, "earnings.currency is required")
	}
	return nil
}

// Record maps the request onto a new record without platform evidence.
func (r *ImportRecordRequest) Record() *verification.Record {
	record := &verification.Record{
		Kind:        r.kind,
		Platform:    r.Platform,
		ExternalID:  r.ExternalID,
		Source:      r.source,
		Title:       r.Title,
		Description: r.Description,
		Client:      r.Client,
		Skills:      r.Skills,
		StartDate:   r.StartDate,
		EndDate:     r.EndDate,
		Earnings:    r.Earnings,
	}
	record.StripPlatformEvidence()
	return record
}
