package solana

import (
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// PubkeyLen is the byte length of a Solana public key.
const PubkeyLen = 32

// ValidatePubkey checks that s is a well-formed base58 Solana public key.
func ValidatePubkey(s string) error {
	decoded, err := base58.Decode(s)
	if err != nil {
		return fmt.Errorf("decode pubkey %q: %w", s, err)
	}
	if len(decoded) != PubkeyLen {
		return fmt.Errorf("pubkey %q: expected %d bytes, got %d", s, PubkeyLen, len(decoded))
	}
	return nil
}

// IsOnCurve reports whether a base58 pubkey is a valid ed25519 curve point.
// Wallet (system) accounts are on-curve; program derived addresses are not.
func IsOnCurve(s string) bool {
	decoded, err := base58.Decode(s)
	if err != nil || len(decoded) != PubkeyLen {
		return false
	}
	_, err = new(edwards25519.Point).SetBytes(decoded)
	return err == nil
}
