package proof

import (
	"log/slog"
	"time"

	"worktrust/pkg/canonical"
)

// proofField is stripped from a parent object before hashing it.
const proofField = "proof"

// Service creates and checks proofs with a single configured Signer.
type Service struct {
	signer             Signer
	verificationMethod string
	logger             *slog.Logger
	now                func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger used for reduced-assurance warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithClock overrides the proof creation clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService binds signer to the issuer identifier. The verification method
// is "<issuerID>#<keyID>".
func NewService(signer Signer, issuerID string, opts ...Option) (*Service, error) {
	if signer == nil {
		return nil, ErrProofServiceUnavailable
	}
	s := &Service{
		signer:             signer,
		verificationMethod: issuerID + "#" + signer.KeyID(),
		now:                time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.ReducedAssurance() && s.logger != nil {
		s.logger.Warn("proof service running in reduced-assurance mode",
			"proof_type", signer.ProofType(),
			"verification_method", s.verificationMethod,
		)
	}
	return s, nil
}

// ReducedAssurance reports whether proofs lack third-party verifiability.
func (s *Service) ReducedAssurance() bool {
	return s.signer.ProofType() != TypeRSA
}

func (s *Service) VerificationMethod() string { return s.verificationMethod }

func (s *Service) Signer() Signer { return s.signer }

// Sign produces a proof over a precomputed content hash.
func (s *Service) Sign(hash, purpose string) (*Proof, error) {
	value, err := s.signer.Sign(hash)
	if err != nil {
		return nil, err
	}
	return &Proof{
		Type:               s.signer.ProofType(),
		Created:            s.now().UTC().Format(time.RFC3339),
		VerificationMethod: s.verificationMethod,
		ProofPurpose:       purpose,
		ProofValue:         value,
	}, nil
}

// SignObject hashes v without its proof field and signs the result.
func (s *Service) SignObject(v any, purpose string) (*Proof, string, error) {
	hash, err := canonical.HashWithout(v, proofField)
	if err != nil {
		return nil, "", err
	}
	p, err := s.Sign(hash, purpose)
	if err != nil {
		return nil, "", err
	}
	return p, hash, nil
}

// VerifyHash checks p against hash. Malformed or foreign proofs return false.
func (s *Service) VerifyHash(hash string, p *Proof) bool {
	if p == nil || p.ProofValue == "" {
		return false
	}
	if p.Type != s.signer.ProofType() {
		return false
	}
	return s.signer.Verify(hash, p.ProofValue) == nil
}

// Verify recomputes the canonical hash of v with its proof removed and checks p.
func (s *Service) Verify(v any, p *Proof) bool {
	hash, err := canonical.HashWithout(v, proofField)
	if err != nil {
		return false
	}
	return s.VerifyHash(hash, p)
}
