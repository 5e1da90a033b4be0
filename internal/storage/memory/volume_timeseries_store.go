package memory

import (
	"context"
	"sort"
	"sync"

	"solana-wallet-ledger/internal/domain"
	"solana-wallet-ledger/internal/storage"
)

// volumeKey is the composite key for volume point deduplication.
type volumeKey struct {
	Wallet          string
	TimestampMs     int64
	IntervalSeconds int
}

// VolumeTimeseriesStore is an in-memory implementation of storage.VolumeTimeseriesStore.
type VolumeTimeseriesStore struct {
	mu   sync.RWMutex
	data []*domain.TransferVolumePoint
	keys map[volumeKey]bool
}

// NewVolumeTimeseriesStore creates a new in-memory volume timeseries store.
func NewVolumeTimeseriesStore() *VolumeTimeseriesStore {
	return &VolumeTimeseriesStore{
		keys: make(map[volumeKey]bool),
	}
}

// Compile-time interface check.
var _ storage.VolumeTimeseriesStore = (*VolumeTimeseriesStore)(nil)

// InsertBulk adds multiple points. Fails entire batch on any duplicate.
func (s *VolumeTimeseriesStore) InsertBulk(_ context.Context, points []*domain.TransferVolumePoint) error {
	if len(points) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[volumeKey]bool)
	for _, p := range points {
		if p == nil {
			return storage.ErrInvalidInput
		}
		key := volumeKey{p.Wallet, p.TimestampMs, p.IntervalSeconds}
		if s.keys[key] || batchKeys[key] {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = true
	}

	for _, p := range points {
		copied := *p
		s.data = append(s.data, &copied)
		s.keys[volumeKey{p.Wallet, p.TimestampMs, p.IntervalSeconds}] = true
	}

	return nil
}

// GetByWallet retrieves all points for a wallet, ordered by timestamp ASC.
func (s *VolumeTimeseriesStore) GetByWallet(_ context.Context, wallet string) ([]*domain.TransferVolumePoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TransferVolumePoint
	for _, p := range s.data {
		if p.Wallet == wallet {
			copied := *p
			result = append(result, &copied)
		}
	}

	sortVolumePoints(result)
	return result, nil
}

// GetByTimeRange retrieves points for a wallet within [start, end] ms (inclusive).
func (s *VolumeTimeseriesStore) GetByTimeRange(_ context.Context, wallet string, start, end int64) ([]*domain.TransferVolumePoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TransferVolumePoint
	for _, p := range s.data {
		if p.Wallet == wallet && p.TimestampMs >= start && p.TimestampMs <= end {
			copied := *p
			result = append(result, &copied)
		}
	}

	sortVolumePoints(result)
	return result, nil
}

func sortVolumePoints(points []*domain.TransferVolumePoint) {
	sort.Slice(points, func(i, j int) bool {
		if points[i].IntervalSeconds != points[j].IntervalSeconds {
			return points[i].IntervalSeconds < points[j].IntervalSeconds
		}
		return points[i].TimestampMs < points[j].TimestampMs
	})
}
