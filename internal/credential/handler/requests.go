package handler

import (
	"strings"

	"worktrust/internal/credential"
	"worktrust/internal/verification"
	dErrors "worktrust/pkg/domain-errors"
)

const maxReasonLength = 500

// IssueRequest is the body of POST /credentials.
type IssueRequest struct {
	Type    string `json:"type"`
	Level   string `json:"level"`
	TTLDays int    `json:"ttl_days"`

	parsedType  credential.Type
	parsedLevel verification.Level
}

func (r *IssueRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if strings.TrimSpace(r.Type) == "" {
		return dErrors.New(dErrors.CodeValidation, "type is required")
	}
	t, err := credential.ParseType(strings.TrimSpace(r.Type))
	if err != nil {
		return err
	}
	if r.TTLDays < 0 {
		return dErrors.New(dErrors.CodeValidation, "ttl_days must not be negative")
	}
	level, err := parseLevel(r.Level)
	if err != nil {
		return err
	}
	r.parsedType, r.parsedLevel = t, level
	return nil
}

func (r *IssueRequest) ParsedType() credential.Type { return r.parsedType }

func (r *IssueRequest) ParsedLevel() verification.Level { return r.parsedLevel }

// BundleRequest is the body of POST /credentials/bundle. No types means all.
type BundleRequest struct {
	Types []string `json:"types"`
	Level string   `json:"level"`

	parsedTypes []credential.Type
	parsedLevel verification.Level
}

func (r *BundleRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.Types) == 0 {
		r.parsedTypes = credential.AllTypes()
	} else {
		r.parsedTypes = make([]credential.Type, 0, len(r.Types))
		for _, raw := range r.Types {
			t, err := credential.ParseType(strings.TrimSpace(raw))
			if err != nil {
				return err
			}
			r.parsedTypes = append(r.parsedTypes, t)
		}
	}
	level, err := parseLevel(r.Level)
	if err != nil {
		return err
	}
	r.parsedLevel = level
	return nil
}

func (r *BundleRequest) ParsedTypes() []credential.Type { return r.parsedTypes }

func (r *BundleRequest) ParsedLevel() verification.Level { return r.parsedLevel }

// VerifyRequest is the body of POST /credentials/verify.
type VerifyRequest struct {
	Credential *credential.VerifiableCredential `json:"credential"`
}

func (r *VerifyRequest) Validate() error {
	if r == nil || r.Credential == nil {
		return dErrors.New(dErrors.CodeValidation, "credential is required")
	}
	return nil
}

// RevokeRequest is the body of POST /credentials/{credentialID}/revoke.
type RevokeRequest struct {
	Reason string `json:"reason"`
}

func (r *RevokeRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Reason = strings.TrimSpace(r.Reason)
	if len(r.Reason) > maxReasonLength {
		return dErrors.New(dErrors.CodeValidation, "reason is too long")
	}
	return nil
}

func parseLevel(raw string) (verification.Level, error) {
	if strings.TrimSpace(raw) == "" {
		return verification.LevelPlatformVerified, nil
	}
	return verification.ParseLevel(raw)
}
