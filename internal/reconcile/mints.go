// Package reconcile derives directional token transfers from the pre/post
// token balance snapshots attached to a transaction.
//
// This is an exact-magnitude pairing heuristic, not a full ledger
// reconstruction: a balance decrease is paired with the first increase of
// identical magnitude within the same mint. Multi-party transfers, amounts
// changed in flight by fees, and two unrelated equal-magnitude transfers in
// one transaction are unhandled or misattributed.
package reconcile

// USDC mint addresses for different networks.
const (
	USDCMainnet = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	USDCDevnet  = "4zMMC9srt5Ri5X14GAgXhaHii3GnPAEERYPJgZJDncDU" // for testing
)

// MintSet is the fixed allow-list of tracked token mints. Balance entries
// referencing any other mint are invisible to the reconciler.
type MintSet map[string]struct{}

// NewMintSet creates a MintSet from mint addresses.
func NewMintSet(mints ...string) MintSet {
	s := make(MintSet, len(mints))
	for _, m := range mints {
		s[m] = struct{}{}
	}
	return s
}

// USDCMints returns the production and test-network USDC mints.
func USDCMints() MintSet {
	return NewMintSet(USDCMainnet, USDCDevnet)
}

// Contains reports whether mint is tracked.
func (s MintSet) Contains(mint string) bool {
	_, ok := s[mint]
	return ok
}
