package domain

import (
	"fmt"
	"time"
)

// TransferDirection classifies a transfer relative to the tracked wallet.
type TransferDirection string

const (
	// DirectionSent means the tracked wallet is the debited side.
	DirectionSent TransferDirection = "Sent"
	// DirectionReceived means the tracked wallet is the credited side.
	DirectionReceived TransferDirection = "Received"
)

// TransferEvent is one reconstructed token transfer touching the tracked wallet.
type TransferEvent struct {
	Signature string            `json:"signature"` // source transaction signature
	Timestamp time.Time         `json:"timestamp"` // block time, UTC
	Amount    uint64            `json:"amount"`    // raw amount, smallest token unit
	Direction TransferDirection `json:"direction"`
	From      string            `json:"from"` // owner of the debited token account
	To        string            `json:"to"`   // owner of the credited token account
}

// Validate checks the TransferEvent invariants: positive amount and exactly
// one side equal to the tracked wallet.
func (e *TransferEvent) Validate(wallet string) error {
	if e.Amount == 0 {
		return fmt.Errorf("transfer %s: amount must be positive", e.Signature)
	}
	fromWallet := e.From == wallet
	toWallet := e.To == wallet
	if fromWallet == toWallet {
		return fmt.Errorf("transfer %s: exactly one side must be the tracked wallet", e.Signature)
	}
	return nil
}

// TransferCandidate is a reconciled transfer before it is stamped with its
// transaction signature and block time. Produced per transaction by the
// reconciler, consumed by the backfiller.
type TransferCandidate struct {
	Mint      string // token mint address
	Amount    uint64 // raw amount, smallest token unit
	FromOwner string // owner of the decreasing token account
	ToOwner   string // owner of the increasing token account
}
