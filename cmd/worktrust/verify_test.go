package main

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-jose/go-jose/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worktrust/internal/credential"
	credentialstore "worktrust/internal/credential/store"
	"worktrust/internal/proof"
	"worktrust/internal/verification"
	id "worktrust/pkg/domain"
)

const testIssuer = "did:web:issuer.test"

func issueTestCredential(t *testing.T, signer proof.Signer) *credential.VerifiableCredential {
	t.Helper()
	proofs, err := proof.NewService(signer, testIssuer)
	require.NoError(t, err)
	svc, err := credential.NewService(credentialstore.NewInMemoryCredentialStore(), proofs, testIssuer)
	require.NoError(t, err)

	vc, err := svc.Issue(context.Background(), credential.IssueRequest{
		Type:      credential.TypeReviews,
		SubjectID: id.UserID(uuid.New()),
		Level:     verification.LevelSelfReported,
		TTLDays:   30,
	})
	require.NoError(t, err)

	// Round-trip through JSON the way a holder would hand it over.
	raw, err := json.Marshal(vc)
	require.NoError(t, err)
	var decoded credential.VerifiableCredential
	require.NoError(t, json.Unmarshal(raw, &decoded))
	return &decoded
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestVerifyCredential_PublicKey(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	signer, err := proof.NewRSASigner(key)
	require.NoError(t, err)
	vc := issueTestCredential(t, signer)

	pubPEM, err := proof.EncodePublicKeyPEM(&key.PublicKey)
	require.NoError(t, err)
	opts := verifyOptions{PublicKeyFile: writeFile(t, "pub.pem", pubPEM)}

	result, err := verifyCredential(context.Background(), vc, opts)
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)

	t.Run("revoked id", func(t *testing.T) {
		revokedOpts := opts
		revokedOpts.Revoked = []string{vc.ID}
		result, err := verifyCredential(context.Background(), vc, revokedOpts)
		require.NoError(t, err)
		assert.False(t, result.Valid)
		assert.Contains(t, result.Errors, credential.ErrRevoked)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		wrongIssuer := opts
		wrongIssuer.Issuer = "did:web:someone-else.test"
		result, err := verifyCredential(context.Background(), vc, wrongIssuer)
		require.NoError(t, err)
		assert.Contains(t, result.Errors, credential.ErrIssuerMismatch)
	})

	t.Run("tampered subject", func(t *testing.T) {
		tampered := *vc
		tampered.CredentialSubject.ID = "did:worktrust:user:someone-else"
		result, err := verifyCredential(context.Background(), &tampered, opts)
		require.NoError(t, err)
		assert.Contains(t, result.Errors, credential.ErrInvalidSignature)
	})
}

func TestVerifyCredential_JWKSMatchesKeyID(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	other, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	signer, err := proof.NewRSASigner(key)
	require.NoError(t, err)
	otherSigner, err := proof.NewRSASigner(other)
	require.NoError(t, err)
	vc := issueTestCredential(t, signer)

	set := jose.JSONWebKeySet{Keys: []jose.JSONWebKey{proof.PublicJWK(otherSigner), proof.PublicJWK(signer)}}
	raw, err := json.Marshal(set)
	require.NoError(t, err)

	result, err := verifyCredential(context.Background(), vc, verifyOptions{JWKSFile: writeFile(t, "jwks.json", raw)})
	require.NoError(t, err)
	assert.True(t, result.Valid, result.Errors)
}

func TestVerifyCredential_HMACSecret(t *testing.T) {
	signer, err := proof.NewHMACSigner([]byte("dev-secret-with-enough-entropy"))
	require.NoError(t, err)
	vc := issueTestCredential(t, signer)

	result, err := verifyCredential(context.Background(), vc, verifyOptions{Secret: "dev-secret-with-enough-entropy"})
	require.NoError(t, err)
	assert.True(t, result.Valid)

	result, err = verifyCredential(context.Background(), vc, verifyOptions{Secret: "another-secret-entirely"})
	require.NoError(t, err)
	assert.Contains(t, result.Errors, credential.ErrInvalidSignature)
}

func TestVerifierFor_RequiresExactlyOneKeySource(t *testing.T) {
	vc := &credential.VerifiableCredential{}
	_, err := verifierFor(vc, verifyOptions{})
	require.Error(t, err)
	_, err = verifierFor(vc, verifyOptions{Secret: "s", PublicKeyFile: "pub.pem"})
	require.Error(t, err)
}

func TestKeyFromJWKS_UnknownKeyID(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	signer, err := proof.NewRSASigner(key)
	require.NoError(t, err)
	raw, err := json.Marshal(jose.JSONWebKeySet{Keys: []jose.JSONWebKey{proof.PublicJWK(signer)}})
	require.NoError(t, err)

	_, err = keyFromJWKS(writeFile(t, "jwks.json", raw), "missing-kid")
	require.Error(t, err)
}
