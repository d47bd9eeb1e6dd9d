package proof

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"
)

// Mode selects the signing strategy. There is no implicit fallback between
// modes: callers choose one and construction fails loudly when its key
// material is missing.
type Mode string

const (
	ModeRSA  Mode = "rsa"
	ModeHMAC Mode = "hmac"
)

// ParseMode validates a configured mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeRSA:
		return ModeRSA, nil
	case ModeHMAC:
		return ModeHMAC, nil
	default:
		return "", fmt.Errorf("unknown signing mode %q", s)
	}
}

// KeyProvider returns the active signing key or shared secret.
type KeyProvider interface {
	SigningKey(ctx context.Context) (*rsa.PrivateKey, error)
	SharedSecret(ctx context.Context) ([]byte, error)
}

// StaticKeyProvider serves key material loaded once at process start.
type StaticKeyProvider struct {
	key    *rsa.PrivateKey
	secret []byte
}

func NewStaticKeyProvider(key *rsa.PrivateKey, secret []byte) *StaticKeyProvider {
	return &StaticKeyProvider{key: key, secret: secret}
}

func (p *StaticKeyProvider) SigningKey(_ context.Context) (*rsa.PrivateKey, error) {
	if p.key == nil {
		return nil, ErrProofServiceUnavailable
	}
	return p.key, nil
}

func (p *StaticKeyProvider) SharedSecret(_ context.Context) ([]byte, error) {
	if len(p.secret) == 0 {
		return nil, ErrProofServiceUnavailable
	}
	return p.secret, nil
}

// SignerConfig is the explicit signing choice made at startup.
type SignerConfig struct {
	Mode Mode
	// AllowReducedAssurance must be true for ModeHMAC; it is false in production.
	AllowReducedAssurance bool
}

// NewSigner resolves key material for the configured mode.
func NewSigner(ctx context.Context, cfg SignerConfig, keys KeyProvider) (Signer, error) {
	if keys == nil {
		return nil, ErrProofServiceUnavailable
	}
	switch cfg.Mode {
	case ModeRSA:
		key, err := keys.SigningKey(ctx)
		if err != nil {
			return nil, err
		}
		return NewRSASigner(key)
	case ModeHMAC:
		if !cfg.AllowReducedAssurance {
			return nil, ErrReducedAssuranceRefused
		}
		secret, err := keys.SharedSecret(ctx)
		if err != nil {
			return nil, err
		}
		return NewHMACSigner(secret)
	default:
		return nil, fmt.Errorf("%w: no signing mode selected", ErrProofServiceUnavailable)
	}
}

// ParsePrivateKeyPEM decodes a PKCS#1 or PKCS#8 RSA private key.
func ParsePrivateKeyPEM(data []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("no PEM block found")
	}
	switch block.Type {
	case "RSA PRIVATE KEY":
		return x509.ParsePKCS1PrivateKey(block.Bytes)
	case "PRIVATE KEY":
		parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		key, ok := parsed.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("PKCS#8 key is %T, want RSA", parsed)
		}
		return key, nil
	default:
		return nil, fmt.Errorf("unsupported PEM block %q", block.Type)
	}
}

// ParsePublicKeyPEM decodes a PKIX RSA public key.
func ParsePublicKeyPEM(data []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("no PEM block found")
	}
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	pub, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("public key is %T, want RSA", parsed)
	}
	return pub, nil
}

// EncodePrivateKeyPEM serializes key as PKCS#8.
func EncodePrivateKeyPEM(key *rsa.PrivateKey) ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
}

// EncodePublicKeyPEM serializes pub as PKIX.
func EncodePublicKeyPEM(pub *rsa.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}
