package credential

import (
	"encoding/json"
	"fmt"
	"time"

	"worktrust/internal/proof"
	"worktrust/internal/verification"
	id "worktrust/pkg/domain"
	dErrors "worktrust/pkg/domain-errors"
)

// Type names one of the five credential shapes.
type Type string

const (
	TypeWorkHistory     Type = "WorkHistoryCredential"
	TypeEarnings        Type = "EarningsCredential"
	TypeSkills          Type = "SkillsCredential"
	TypeReviews         Type = "ReviewsCredential"
	TypeCompleteProfile Type = "CompleteProfileCredential"
)

var knownTypes = map[Type]struct{}{
	TypeWorkHistory:     {},
	TypeEarnings:        {},
	TypeSkills:          {},
	TypeReviews:         {},
	TypeCompleteProfile: {},
}

// AllTypes lists the credential types in bundle order.
func AllTypes() []Type {
	return []Type{TypeWorkHistory, TypeEarnings, TypeSkills, TypeReviews, TypeCompleteProfile}
}

// ParseType accepts the full type name or its short form ("Skills").
func ParseType(s string) (Type, error) {
	t := Type(s)
	if _, ok := knownTypes[t]; ok {
		return t, nil
	}
	t = Type(s + "Credential")
	if _, ok := knownTypes[t]; ok {
		return t, nil
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, "unknown credential type: "+s)
}

func (t Type) IsValid() bool {
	_, ok := knownTypes[t]
	return ok
}

const (
	ContextW3C       = "https://www.w3.org/2018/credentials/v1"
	ContextWorkTrust = "https://worktrust.dev/contexts/v1"

	typeVerifiableCredential   = "VerifiableCredential"
	typeVerifiablePresentation = "VerifiablePresentation"
	statusTypeRevocationList   = "RevocationList2020Status"
)

// Issuer describes the issuing party.
type Issuer struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	URL  string `json:"url,omitempty"`
}

// Status points at the status list entry a verifier can consult.
type Status struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// VerifiableCredential is immutable once its proof is attached.
type VerifiableCredential struct {
	Context           []string          `json:"@context"`
	ID                string            `json:"id"`
	Type              []string          `json:"type"`
	Issuer            Issuer            `json:"issuer"`
	IssuanceDate      time.Time         `json:"issuanceDate"`
	ExpirationDate    *time.Time        `json:"expirationDate,omitempty"`
	CredentialSubject CredentialSubject `json:"credentialSubject"`
	CredentialStatus  *Status           `json:"credentialStatus,omitempty"`
	Proof             *proof.Proof      `json:"proof,omitempty"`
}

// CredentialType returns the specific type tag, skipping the generic one.
func (vc *VerifiableCredential) CredentialType() Type {
	for _, t := range vc.Type {
		if t != typeVerifiableCredential {
			return Type(t)
		}
	}
	return ""
}

// IsExpired reports whether the credential's expiration date is before now.
func (vc *VerifiableCredential) IsExpired(now time.Time) bool {
	return vc.ExpirationDate != nil && vc.ExpirationDate.Before(now)
}

// Presentation wraps several credentials under one holder proof.
type Presentation struct {
	Context              []string                `json:"@context"`
	ID                   string                  `json:"id"`
	Type                 []string                `json:"type"`
	Holder               string                  `json:"holder"`
	VerifiableCredential []*VerifiableCredential `json:"verifiableCredential"`
	Proof                *proof.Proof            `json:"proof,omitempty"`
}

// BundleMetadata summarizes the evidence behind a bundle.
type BundleMetadata struct {
	Hash             string         `json:"hash"`
	CredentialCount  int            `json:"credential_count"`
	PlatformCounts   map[string]int `json:"platform_counts"`
	LevelCounts      map[string]int `json:"level_counts"`
	ReducedAssurance bool           `json:"reduced_assurance"`
	CreatedAt        time.Time      `json:"created_at"`
}

// Bundle is built on demand and identified by its hash.
type Bundle struct {
	ID           string                  `json:"id"`
	Credentials  []*VerifiableCredential `json:"credentials"`
	Presentation *Presentation           `json:"presentation,omitempty"`
	Metadata     BundleMetadata          `json:"metadata"`
}

// Verification failure reasons.
const (
	ErrRevoked               = "revoked"
	ErrRevocationCheckFailed = "revocation_check_failed"
	ErrExpired               = "expired"
	ErrIssuerMismatch        = "issuer_mismatch"
	ErrMissingSignature      = "missing_signature"
	ErrInvalidSignature      = "invalid_signature"
)

// VerifyResult lists every reason a credential failed; Errors is empty
// (never nil) when Valid.
type VerifyResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// RecordStatus is the stored lifecycle state. Expiry is derived from the
// credential's dates, never stored.
type RecordStatus string

const (
	RecordActive  RecordStatus = "active"
	RecordRevoked RecordStatus = "revoked"
)

// Record is the issuer-side copy of an issued credential.
type Record struct {
	ID               string                `json:"id"`
	Type             Type                  `json:"type"`
	SubjectID        id.UserID             `json:"subject_id"`
	Level            verification.Level    `json:"level"`
	Status           RecordStatus          `json:"status"`
	ContentHash      string                `json:"content_hash"`
	Credential       *VerifiableCredential `json:"credential"`
	IssuedAt         time.Time             `json:"issued_at"`
	ExpiresAt        *time.Time            `json:"expires_at,omitempty"`
	RevokedAt        *time.Time            `json:"revoked_at,omitempty"`
	RevocationReason string                `json:"revocation_reason,omitempty"`
}

func (r *Record) IsRevoked() bool { return r.Status == RecordRevoked }

// CredentialSubject serializes as a flat object: id, type and level sit
// beside the claim's own fields.
type CredentialSubject struct {
	ID    string
	Type  Type
	Level verification.Level
	Claim Claim
}

type subjectHeader struct {
	ID    string             `json:"id"`
	Type  Type               `json:"type"`
	Level verification.Level `json:"verificationLevel"`
}

func (s CredentialSubject) MarshalJSON() ([]byte, error) {
	fields := map[string]json.RawMessage{}
	if s.Claim != nil {
		raw, err := json.Marshal(s.Claim)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, fmt.Errorf("claim %T is not an object: %w", s.Claim, err)
		}
	}
	header, err := json.Marshal(subjectHeader{ID: s.ID, Type: s.Type, Level: s.Level})
	if err != nil {
		return nil, err
	}
	var hf map[string]json.RawMessage
	if err := json.Unmarshal(header, &hf); err != nil {
		return nil, err
	}
	for k, v := range hf {
		fields[k] = v
	}
	return json.Marshal(fields)
}

func (s *CredentialSubject) UnmarshalJSON(data []byte) error {
	var header subjectHeader
	if err := json.Unmarshal(data, &header); err != nil {
		return err
	}
	claim, err := newClaim(header.Type)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, claim); err != nil {
		return fmt.Errorf("decode %s claim: %w", header.Type, err)
	}
	s.ID, s.Type, s.Level, s.Claim = header.ID, header.Type, header.Level, claim
	return nil
}

// SubjectDID returns the subject identifier embedded in credentials.
func SubjectDID(userID id.UserID) string {
	return "did:worktrust:user:" + userID.String()
}
