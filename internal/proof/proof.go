// Package proof signs content hashes and verifies proofs attached to
// credentials and presentations.
//
// Two Signer strategies exist. RSASigner produces RSA-SHA256 signatures and
// is the only mode fit for production. HMACSigner produces an HMAC-SHA256
// digest over a shared secret; it is a development placeholder with no
// third-party verifiability, and proofs created with it carry a distinct type
// tag so verifiers never confuse the two.
package proof

import (
	"errors"
	"fmt"

	"worktrust/pkg/platform/sentinel"
)

// Proof type tags.
const (
	TypeRSA  = "RsaSignature2018"
	TypeHMAC = "HmacSha256DevSignature"
)

// Proof purposes.
const (
	PurposeAssertion      = "assertionMethod"
	PurposeAuthentication = "authentication"
)

// Proof is the signature envelope attached to a signed object.
type Proof struct {
	Type               string `json:"type"`
	Created            string `json:"created"`
	VerificationMethod string `json:"verificationMethod"`
	ProofPurpose       string `json:"proofPurpose"`
	ProofValue         string `json:"proofValue"`
}

var (
	// ErrProofServiceUnavailable is returned when no usable key material is
	// configured for the selected signing mode.
	ErrProofServiceUnavailable = fmt.Errorf("proof service unavailable: %w", sentinel.ErrUnavailable)

	// ErrReducedAssuranceRefused is returned when HMAC signing is requested
	// where reduced assurance is not allowed.
	ErrReducedAssuranceRefused = errors.New("hmac signing refused: reduced assurance not allowed")

	// ErrSignatureMismatch is returned by Signer.Verify for a bad signature.
	ErrSignatureMismatch = errors.New("signature mismatch")
)
