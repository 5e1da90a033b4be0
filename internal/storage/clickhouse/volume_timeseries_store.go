package clickhouse

import (
	"context"
	"fmt"

	"solana-wallet-ledger/internal/domain"
	"solana-wallet-ledger/internal/storage"
)

// VolumeTimeseriesStore implements storage.VolumeTimeseriesStore using ClickHouse.
type VolumeTimeseriesStore struct {
	conn *Conn
}

// NewVolumeTimeseriesStore creates a new VolumeTimeseriesStore.
func NewVolumeTimeseriesStore(conn *Conn) *VolumeTimeseriesStore {
	return &VolumeTimeseriesStore{conn: conn}
}

// Compile-time interface check.
var _ storage.VolumeTimeseriesStore = (*VolumeTimeseriesStore)(nil)

// InsertBulk adds multiple points. Fails entire batch on duplicate.
func (s *VolumeTimeseriesStore) InsertBulk(ctx context.Context, points []*domain.TransferVolumePoint) error {
	if len(points) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	type key struct {
		wallet          string
		timestampMs     int64
		intervalSeconds int
	}
	seen := make(map[key]struct{})
	for _, p := range points {
		k := key{p.Wallet, p.TimestampMs, p.IntervalSeconds}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	// Check for duplicates against existing DB rows. MergeTree does not
	// enforce uniqueness, so the check happens here.
	for _, p := range points {
		exists, err := s.exists(ctx, p.Wallet, p.TimestampMs, p.IntervalSeconds)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO transfer_volume (
			wallet, timestamp_ms, interval_seconds, sent_volume, received_volume, transfer_count
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		err = batch.Append(
			p.Wallet, uint64(p.TimestampMs), uint32(p.IntervalSeconds),
			p.SentVolume, p.ReceivedVolume, uint32(p.TransferCount),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByWallet retrieves all points for a wallet, ordered by timestamp ASC.
func (s *VolumeTimeseriesStore) GetByWallet(ctx context.Context, wallet string) ([]*domain.TransferVolumePoint, error) {
	query := `
		SELECT wallet, timestamp_ms, interval_seconds, sent_volume, received_volume, transfer_count
		FROM transfer_volume
		WHERE wallet = ?
		ORDER BY interval_seconds ASC, timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, wallet)
	if err != nil {
		return nil, fmt.Errorf("query by wallet: %w", err)
	}
	defer rows.Close()

	return scanTransferVolume(rows)
}

// GetByTimeRange retrieves points for a wallet within [start, end] (inclusive, ms).
func (s *VolumeTimeseriesStore) GetByTimeRange(ctx context.Context, wallet string, start, end int64) ([]*domain.TransferVolumePoint, error) {
	query := `
		SELECT wallet, timestamp_ms, interval_seconds, sent_volume, received_volume, transfer_count
		FROM transfer_volume
		WHERE wallet = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY interval_seconds ASC, timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, wallet, uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanTransferVolume(rows)
}

// exists checks if a point with the given key exists.
func (s *VolumeTimeseriesStore) exists(ctx context.Context, wallet string, timestampMs int64, intervalSeconds int) (bool, error) {
	query := `
		SELECT count(*) FROM transfer_volume
		WHERE wallet = ? AND timestamp_ms = ? AND interval_seconds = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, wallet, uint64(timestampMs), uint32(intervalSeconds)).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Rows interface for scanning
type chRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

// scanTransferVolume scans multiple rows.
func scanTransferVolume(rows chRows) ([]*domain.TransferVolumePoint, error) {
	var points []*domain.TransferVolumePoint

	for rows.Next() {
		var p domain.TransferVolumePoint
		var timestampMs uint64
		var intervalSeconds, transferCount uint32

		err := rows.Scan(
			&p.Wallet, &timestampMs, &intervalSeconds,
			&p.SentVolume, &p.ReceivedVolume, &transferCount,
		)
		if err != nil {
			return nil, fmt.Errorf("scan transfer volume row: %w", err)
		}

		p.TimestampMs = int64(timestampMs)
		p.IntervalSeconds = int(intervalSeconds)
		p.TransferCount = int(transferCount)
		points = append(points, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transfer volume rows: %w", err)
	}

	return points, nil
}
