package proof

import (
	"crypto"
	"crypto/rsa"
	"encoding/base64"
	"fmt"

	"github.com/go-jose/go-jose/v4"
)

// Thumbprint returns the RFC 7638 SHA-256 thumbprint of pub, base64url encoded.
// It is used as the key ID and as the fragment of the verification method.
func Thumbprint(pub *rsa.PublicKey) (string, error) {
	jwk := jose.JSONWebKey{Key: pub}
	tp, err := jwk.Thumbprint(crypto.SHA256)
	if err != nil {
		return "", fmt.Errorf("jwk thumbprint: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(tp), nil
}

// PublicJWK renders the verification key of an RSA signer.
func PublicJWK(s *RSASigner) jose.JSONWebKey {
	return jose.JSONWebKey{
		Key:       s.PublicKey(),
		KeyID:     s.KeyID(),
		Algorithm: string(jose.RS256),
		Use:       "sig",
	}
}

// KeySet publishes the verification keys for signer. HMAC signers publish
// nothing: their secret cannot be shared.
func KeySet(signer Signer) jose.JSONWebKeySet {
	set := jose.JSONWebKeySet{Keys: []jose.JSONWebKey{}}
	if rs, ok := signer.(*RSASigner); ok {
		set.Keys = append(set.Keys, PublicJWK(rs))
	}
	return set
}
