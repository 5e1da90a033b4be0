package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"solana-wallet-ledger/internal/domain"
	"solana-wallet-ledger/internal/storage"
)

// transferKey is the composite key for transfer event deduplication.
type transferKey struct {
	Wallet    string
	Signature string
	Direction domain.TransferDirection
}

// TransferStore is an in-memory implementation of storage.TransferStore.
type TransferStore struct {
	mu   sync.RWMutex
	data map[string][]*domain.TransferEvent // wallet -> events
	keys map[transferKey]bool
}

// NewTransferStore creates a new in-memory transfer store.
func NewTransferStore() *TransferStore {
	return &TransferStore{
		data: make(map[string][]*domain.TransferEvent),
		keys: make(map[transferKey]bool),
	}
}

// Compile-time interface check.
var _ storage.TransferStore = (*TransferStore)(nil)

// Insert adds a new transfer event. Returns ErrDuplicateKey if
// (wallet, signature, direction) exists.
func (s *TransferStore) Insert(_ context.Context, wallet string, e *domain.TransferEvent) error {
	if e == nil || wallet == "" {
		return storage.ErrInvalidInput
	}
	if err := e.Validate(wallet); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	}

	key := transferKey{Wallet: wallet, Signature: e.Signature, Direction: e.Direction}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.keys[key] {
		return storage.ErrDuplicateKey
	}

	// Store a copy
	copied := *e
	s.data[wallet] = append(s.data[wallet], &copied)
	s.keys[key] = true

	return nil
}

// InsertBulk adds multiple transfer events atomically. Fails entire batch on
// any duplicate, existing or intra-batch.
func (s *TransferStore) InsertBulk(_ context.Context, wallet string, events []*domain.TransferEvent) error {
	if wallet == "" {
		return storage.ErrInvalidInput
	}
	if len(events) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[transferKey]bool)
	for _, e := range events {
		if e == nil {
			return storage.ErrInvalidInput
		}
		if err := e.Validate(wallet); err != nil {
			return fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
		}
		key := transferKey{Wallet: wallet, Signature: e.Signature, Direction: e.Direction}
		if s.keys[key] || batchKeys[key] {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = true
	}

	for _, e := range events {
		copied := *e
		s.data[wallet] = append(s.data[wallet], &copied)
		s.keys[transferKey{Wallet: wallet, Signature: e.Signature, Direction: e.Direction}] = true
	}

	return nil
}

// GetByWallet retrieves all transfers for a wallet, newest first.
func (s *TransferStore) GetByWallet(_ context.Context, wallet string) ([]*domain.TransferEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TransferEvent
	for _, e := range s.data[wallet] {
		copied := *e
		result = append(result, &copied)
	}

	sortTransfersNewestFirst(result)
	return result, nil
}

// GetByTimeRange retrieves transfers for a wallet within [start, end]
// (inclusive), newest first.
func (s *TransferStore) GetByTimeRange(_ context.Context, wallet string, start, end time.Time) ([]*domain.TransferEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TransferEvent
	for _, e := range s.data[wallet] {
		if e.Timestamp.Before(start) || e.Timestamp.After(end) {
			continue
		}
		copied := *e
		result = append(result, &copied)
	}

	sortTransfersNewestFirst(result)
	return result, nil
}

// sortTransfersNewestFirst orders by (timestamp DESC, signature, direction)
// for deterministic output.
func sortTransfersNewestFirst(events []*domain.TransferEvent) {
	sort.Slice(events, func(i, j int) bool {
		if !events[i].Timestamp.Equal(events[j].Timestamp) {
			return events[i].Timestamp.After(events[j].Timestamp)
		}
		if events[i].Signature != events[j].Signature {
			return events[i].Signature < events[j].Signature
		}
		return events[i].Direction < events[j].Direction
	})
}
