package proof

import (
	"crypto/rsa"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Signer is a signing strategy over hex content hashes.
type Signer interface {
	// ProofType is written to Proof.Type so verifiers pick the matching check.
	ProofType() string
	// KeyID identifies the key; it becomes the verification method fragment.
	KeyID() string
	Sign(hash string) (string, error)
	// Verify returns nil when value is a valid signature over hash.
	Verify(hash, value string) error
}

// RSASigner signs with RSASSA-PKCS1-v1_5 over SHA-256.
type RSASigner struct {
	private *rsa.PrivateKey
	public  *rsa.PublicKey
	keyID   string
}

// NewRSASigner builds a signer that can both sign and verify.
func NewRSASigner(key *rsa.PrivateKey) (*RSASigner, error) {
	if key == nil {
		return nil, ErrProofServiceUnavailable
	}
	kid, err := Thumbprint(&key.PublicKey)
	if err != nil {
		return nil, err
	}
	return &RSASigner{private: key, public: &key.PublicKey, keyID: kid}, nil
}

// NewRSAVerifier builds a verify-only signer from a public key.
func NewRSAVerifier(pub *rsa.PublicKey) (*RSASigner, error) {
	if pub == nil {
		return nil, ErrProofServiceUnavailable
	}
	kid, err := Thumbprint(pub)
	if err != nil {
		return nil, err
	}
	return &RSASigner{public: pub, keyID: kid}, nil
}

func (s *RSASigner) ProofType() string { return TypeRSA }

func (s *RSASigner) KeyID() string { return s.keyID }

// PublicKey returns the verification key.
func (s *RSASigner) PublicKey() *rsa.PublicKey { return s.public }

func (s *RSASigner) Sign(hash string) (string, error) {
	if s.private == nil {
		return "", ErrProofServiceUnavailable
	}
	sig, err := jwt.SigningMethodRS256.Sign(hash, s.private)
	if err != nil {
		return "", fmt.Errorf("rsa sign: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(sig), nil
}

func (s *RSASigner) Verify(hash, value string) error {
	sig, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return fmt.Errorf("%w: malformed signature", ErrSignatureMismatch)
	}
	if err := jwt.SigningMethodRS256.Verify(hash, sig, s.public); err != nil {
		return fmt.Errorf("%w: %v", ErrSignatureMismatch, err)
	}
	return nil
}

// hmacKeyID is the fixed key identifier for the development HMAC key.
const hmacKeyID = "hmac-dev"

// HMACSigner computes HMAC-SHA256 over the hash with a shared secret.
type HMACSigner struct {
	secret []byte
}

// NewHMACSigner builds the reduced-assurance signer. An empty secret is refused.
func NewHMACSigner(secret []byte) (*HMACSigner, error) {
	if len(secret) == 0 {
		return nil, ErrProofServiceUnavailable
	}
	return &HMACSigner{secret: append([]byte(nil), secret...)}, nil
}

func (s *HMACSigner) ProofType() string { return TypeHMAC }

func (s *HMACSigner) KeyID() string { return hmacKeyID }

func (s *HMACSigner) Sign(hash string) (string, error) {
	sig, err := jwt.SigningMethodHS256.Sign(hash, s.secret)
	if err != nil {
		return "", fmt.Errorf("hmac sign: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(sig), nil
}

func (s *HMACSigner) Verify(hash, value string) error {
	sig, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return fmt.Errorf("%w: malformed signature", ErrSignatureMismatch)
	}
	if err := jwt.SigningMethodHS256.Verify(hash, sig, s.secret); err != nil {
		if errors.Is(err, jwt.ErrSignatureInvalid) {
			return ErrSignatureMismatch
		}
		return fmt.Errorf("%w: %v", ErrSignatureMismatch, err)
	}
	return nil
}
