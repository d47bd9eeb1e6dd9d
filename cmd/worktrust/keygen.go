package main

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-jose/go-jose/v4"
	"github.com/spf13/cobra"

	"worktrust/internal/proof"
)

const minKeyBits = 2048

var (
	keygenBits    int
	keygenOutPriv string
	keygenOutPub  string
	keygenOutJWKS string
	keygenIssuer  string
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate an RSA signing key pair",
	Long: `Generate an RSA key pair for credential proofs.

Outputs:
  - PKCS#8 private key (set WORKTRUST_SIGNING_PRIVATE_KEY_FILE to it)
  - PKIX public key, for verify-credential --public-key
  - JWK set with the public key, as served at /.well-known/jwks.json`,
	Example: `  worktrust keygen
  worktrust keygen --bits 4096 --out-priv issuer.pem --issuer did:web:example.com`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if keygenBits < minKeyBits {
			return fmt.Errorf("key size must be at least %d bits", minKeyBits)
		}
		key, err := rsa.GenerateKey(rand.Reader, keygenBits)
		if err != nil {
			return fmt.Errorf("generate key: %w", err)
		}
		signer, err := proof.NewRSASigner(key)
		if err != nil {
			return err
		}

		privPEM, err := proof.EncodePrivateKeyPEM(key)
		if err != nil {
			return err
		}
		if err := os.WriteFile(keygenOutPriv, privPEM, 0o600); err != nil {
			return fmt.Errorf("write private key: %w", err)
		}

		pubPEM, err := proof.EncodePublicKeyPEM(&key.PublicKey)
		if err != nil {
			return err
		}
		if err := os.WriteFile(keygenOutPub, pubPEM, 0o644); err != nil {
			return fmt.Errorf("write public key: %w", err)
		}

		set := jose.JSONWebKeySet{Keys: []jose.JSONWebKey{proof.PublicJWK(signer)}}
		raw, err := json.MarshalIndent(set, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(keygenOutJWKS, raw, 0o644); err != nil {
			return fmt.Errorf("write jwks: %w", err)
		}

		cmd.Printf("private key: %s\npublic key:  %s\njwks:        %s\n", keygenOutPriv, keygenOutPub, keygenOutJWKS)
		cmd.Printf("key id:      %s\n", signer.KeyID())
		if keygenIssuer != "" {
			cmd.Printf("verification method: %s#%s\n", keygenIssuer, signer.KeyID())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(keygenCmd)

	keygenCmd.Flags().IntVar(&keygenBits, "bits", 3072, "RSA modulus size in bits")
	keygenCmd.Flags().StringVar(&keygenOutPriv, "out-priv", "signing-key.pem", "Output path for the private key (PEM)")
	keygenCmd.Flags().StringVar(&keygenOutPub, "out-pub", "signing-key.pub.pem", "Output path for the public key (PEM)")
	keygenCmd.Flags().StringVar(&keygenOutJWKS, "out-jwks", "jwks.json", "Output path for the public JWK set")
	keygenCmd.Flags().StringVar(&keygenIssuer, "issuer", "", "Issuer ID, used to print the verification method")
}
