package main

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-jose/go-jose/v4"
	"github.com/spf13/cobra"

	"worktrust/internal/credential"
	"worktrust/internal/credential/revocation"
	credentialstore "worktrust/internal/credential/store"
	"worktrust/internal/proof"
)

var errCredentialInvalid = errors.New("credential is not valid")

// verifyOptions selects the verification key. Exactly one of PublicKeyFile,
// JWKSFile or Secret must be set.
type verifyOptions struct {
	PublicKeyFile string
	JWKSFile      string
	Secret        string
	Issuer        string
	Revoked       []string
}

var verifyOpts verifyOptions

var verifyCmd = &cobra.Command{
	Use:   "verify-credential <file|->",
	Short: "Verify a credential offline",
	Long: `Check a credential's signature, issuer, expiry and the supplied revocation
IDs without contacting the issuer. The issuer defaults to the one named in
the credential.`,
	Example: `  worktrust verify-credential vc.json --public-key signing-key.pub.pem
  worktrust verify-credential vc.json --jwks jwks.json --issuer did:web:worktrust.dev
  cat vc.json | worktrust verify-credential - --secret "$DEV_SECRET"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		vc, err := readCredential(cmd.InOrStdin(), args[0])
		if err != nil {
			return err
		}
		result, err := verifyCredential(cmd.Context(), vc, verifyOpts)
		if err != nil {
			return err
		}
		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		cmd.Println(string(out))
		if !result.Valid {
			return errCredentialInvalid
		}
		return nil
	},
}

func readCredential(stdin io.Reader, path string) (*credential.VerifiableCredential, error) {
	var (
		raw []byte
		err error
	)
	if path == "-" {
		raw, err = io.ReadAll(stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read credential: %w", err)
	}
	var vc credential.VerifiableCredential
	if err := json.Unmarshal(raw, &vc); err != nil {
		return nil, fmt.Errorf("decode credential: %w", err)
	}
	return &vc, nil
}

// verifyCredential runs the same checks as POST /credentials/verify against
// a throwaway in-memory issuer that only holds the verification key.
func verifyCredential(ctx context.Context, vc *credential.VerifiableCredential, opts verifyOptions) (*credential.VerifyResult, error) {
	signer, err := verifierFor(vc, opts)
	if err != nil {
		return nil, err
	}
	issuer := opts.Issuer
	if issuer == "" {
		issuer = vc.Issuer.ID
	}
	proofs, err := proof.NewService(signer, issuer)
	if err != nil {
		return nil, err
	}

	revoked := revocation.NewInMemoryList()
	if err := revoked.Seed(ctx, opts.Revoked); err != nil {
		return nil, err
	}
	svc, err := credential.NewService(credentialstore.NewInMemoryCredentialStore(), proofs, issuer,
		credential.WithRevocationList(revoked),
	)
	if err != nil {
		return nil, err
	}
	return svc.Verify(ctx, vc)
}

func verifierFor(vc *credential.VerifiableCredential, opts verifyOptions) (proof.Signer, error) {
	set := 0
	for _, v := range []string{opts.PublicKeyFile, opts.JWKSFile, opts.Secret} {
		if v != "" {
			set++
		}
	}
	if set != 1 {
		return nil, errors.New("exactly one of --public-key, --jwks or --secret is required")
	}

	switch {
	case opts.Secret != "":
		return proof.NewHMACSigner([]byte(opts.Secret))
	case opts.PublicKeyFile != "":
		data, err := os.ReadFile(opts.PublicKeyFile)
		if err != nil {
			return nil, fmt.Errorf("read public key: %w", err)
		}
		pub, err := proof.ParsePublicKeyPEM(data)
		if err != nil {
			return nil, fmt.Errorf("parse public key: %w", err)
		}
		return proof.NewRSAVerifier(pub)
	default:
		pub, err := keyFromJWKS(opts.JWKSFile, keyIDOf(vc))
		if err != nil {
			return nil, err
		}
		return proof.NewRSAVerifier(pub)
	}
}

// keyIDOf returns the fragment of the proof's verification method.
func keyIDOf(vc *credential.VerifiableCredential) string {
	if vc.Proof == nil {
		return ""
	}
	_, kid, _ := strings.Cut(vc.Proof.VerificationMethod, "#")
	return kid
}

// keyFromJWKS picks the key matching kid, or the only key when kid is empty.
func keyFromJWKS(path, kid string) (*rsa.PublicKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read jwks: %w", err)
	}
	var set jose.JSONWebKeySet
	if err := json.Unmarshal(raw, &set); err != nil {
		return nil, fmt.Errorf("decode jwks: %w", err)
	}

	var jwk *jose.JSONWebKey
	switch {
	case kid != "":
		if keys := set.Key(kid); len(keys) > 0 {
			jwk = &keys[0]
		}
	case len(set.Keys) == 1:
		jwk = &set.Keys[0]
	}
	if jwk == nil {
		return nil, fmt.Errorf("no key %q in %s", kid, path)
	}
	pub, ok := jwk.Key.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("key %q is %T, want RSA public key", jwk.KeyID, jwk.Key)
	}
	return pub, nil
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().StringVar(&verifyOpts.PublicKeyFile, "public-key", "", "Issuer public key (PEM)")
	verifyCmd.Flags().StringVar(&verifyOpts.JWKSFile, "jwks", "", "Issuer JWK set (as served at /.well-known/jwks.json)")
	verifyCmd.Flags().StringVar(&verifyOpts.Secret, "secret", "", "Shared secret for HMAC development proofs")
	verifyCmd.Flags().StringVar(&verifyOpts.Issuer, "issuer", "", "Expected issuer ID (defaults to the credential's issuer)")
	verifyCmd.Flags().StringSliceVar(&verifyOpts.Revoked, "revoked", nil, "Credential IDs to treat as revoked")
}
