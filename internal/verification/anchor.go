package verification

import (
	"context"
	"errors"
)

// ErrAnchoringDisabled is returned by DisabledAnchorer. No transaction data
// is ever fabricated in its place.
var ErrAnchoringDisabled = errors.New("blockchain anchoring is not enabled")

// Anchorer timestamps a content hash on an external ledger.
type Anchorer interface {
	Anchor(ctx context.Context, contentHash string) (*Anchor, error)
}

// DisabledAnchorer is the default Anchorer. Sealed requests against it are
// returned at PLATFORM_VERIFIED and marked degraded.
type DisabledAnchorer struct{}

func (DisabledAnchorer) Anchor(context.Context, string) (*Anchor, error) {
	return nil, ErrAnchoringDisabled
}
