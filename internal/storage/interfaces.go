package storage

import (
	"context"
	"time"

	"solana-wallet-ledger/internal/domain"
)

// TransferStore provides access to reconstructed transfer_events storage.
// Keyed by (wallet, signature, direction): one transaction can both debit
// and credit the same wallet via two distinct events.
type TransferStore interface {
	// Insert adds a new transfer event for a wallet.
	// Returns ErrDuplicateKey if the event already exists.
	Insert(ctx context.Context, wallet string, e *domain.TransferEvent) error

	// InsertBulk adds multiple transfer events atomically.
	// Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, wallet string, events []*domain.TransferEvent) error

	// GetByWallet retrieves all transfers for a wallet, newest first.
	GetByWallet(ctx context.Context, wallet string) ([]*domain.TransferEvent, error)

	// GetByTimeRange retrieves transfers for a wallet within [start, end]
	// (inclusive), newest first.
	GetByTimeRange(ctx context.Context, wallet string, start, end time.Time) ([]*domain.TransferEvent, error)
}

// VolumeTimeseriesStore provides access to transfer_volume rollup storage.
type VolumeTimeseriesStore interface {
	// InsertBulk adds multiple points. Fails entire batch on duplicate
	// (wallet, timestamp_ms, interval_seconds).
	InsertBulk(ctx context.Context, points []*domain.TransferVolumePoint) error

	// GetByWallet retrieves all points for a wallet, ordered by timestamp ASC.
	GetByWallet(ctx context.Context, wallet string) ([]*domain.TransferVolumePoint, error)

	// GetByTimeRange retrieves points for a wallet within [start, end] ms (inclusive).
	GetByTimeRange(ctx context.Context, wallet string, start, end int64) ([]*domain.TransferVolumePoint, error)
}
