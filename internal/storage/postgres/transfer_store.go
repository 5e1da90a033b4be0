package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"solana-wallet-ledger/internal/domain"
	"solana-wallet-ledger/internal/storage"
)

// TransferStore implements storage.TransferStore using PostgreSQL.
type TransferStore struct {
	pool *Pool
}

// NewTransferStore creates a new TransferStore.
func NewTransferStore(pool *Pool) *TransferStore {
	return &TransferStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TransferStore = (*TransferStore)(nil)

const insertTransferQuery = `
	INSERT INTO transfer_events (
		wallet, signature, ts, amount, direction, from_owner, to_owner
	) VALUES ($1, $2, $3, $4, $5, $6, $7)
`

// Insert adds a new transfer event. Returns ErrDuplicateKey if
// (wallet, signature, direction) exists.
func (s *TransferStore) Insert(ctx context.Context, wallet string, e *domain.TransferEvent) error {
	if e == nil || wallet == "" {
		return storage.ErrInvalidInput
	}
	if err := e.Validate(wallet); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	}

	_, err := s.pool.Exec(ctx, insertTransferQuery,
		wallet,
		e.Signature,
		e.Timestamp.UTC(),
		int64(e.Amount),
		string(e.Direction),
		e.From,
		e.To,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert transfer event: %w", err)
	}
	return nil
}

// InsertBulk adds multiple transfer events atomically. Fails entire batch on
// any duplicate.
func (s *TransferStore) InsertBulk(ctx context.Context, wallet string, events []*domain.TransferEvent) error {
	if wallet == "" {
		return storage.ErrInvalidInput
	}
	if len(events) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, e := range events {
		if e == nil {
			return storage.ErrInvalidInput
		}
		if err := e.Validate(wallet); err != nil {
			return fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
		}
		_, err := tx.Exec(ctx, insertTransferQuery,
			wallet,
			e.Signature,
			e.Timestamp.UTC(),
			int64(e.Amount),
			string(e.Direction),
			e.From,
			e.To,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert transfer event in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

const selectTransferColumns = `signature, ts, amount, direction, from_owner, to_owner`

// GetByWallet retrieves all transfers for a wallet, newest first.
func (s *TransferStore) GetByWallet(ctx context.Context, wallet string) ([]*domain.TransferEvent, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM transfer_events
		WHERE wallet = $1
		ORDER BY ts DESC, signature ASC, direction ASC
	`, selectTransferColumns)

	rows, err := s.pool.Query(ctx, query, wallet)
	if err != nil {
		return nil, fmt.Errorf("query transfers by wallet: %w", err)
	}
	defer rows.Close()

	return scanTransfers(rows)
}

// GetByTimeRange retrieves transfers for a wallet within [start, end]
// (inclusive), newest first.
func (s *TransferStore) GetByTimeRange(ctx context.Context, wallet string, start, end time.Time) ([]*domain.TransferEvent, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM transfer_events
		WHERE wallet = $1 AND ts >= $2 AND ts <= $3
		ORDER BY ts DESC, signature ASC, direction ASC
	`, selectTransferColumns)

	rows, err := s.pool.Query(ctx, query, wallet, start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("query transfers by time range: %w", err)
	}
	defer rows.Close()

	return scanTransfers(rows)
}

// scanTransfers collects rows into TransferEvent values.
func scanTransfers(rows pgx.Rows) ([]*domain.TransferEvent, error) {
	var result []*domain.TransferEvent
	for rows.Next() {
		var (
			e         domain.TransferEvent
			ts        time.Time
			amount    int64
			direction string
		)
		if err := rows.Scan(&e.Signature, &ts, &amount, &direction, &e.From, &e.To); err != nil {
			return nil, fmt.Errorf("scan transfer event: %w", err)
		}
		e.Timestamp = ts.UTC()
		e.Amount = uint64(amount)
		e.Direction = domain.TransferDirection(direction)
		result = append(result, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transfer events: %w", err)
	}
	return result, nil
}
