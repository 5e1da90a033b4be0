package indexer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"solana-wallet-ledger/internal/domain"
	"solana-wallet-ledger/internal/export"
	"solana-wallet-ledger/internal/observability"
	"solana-wallet-ledger/internal/storage"
)

// Service reinvokes a full backfill on a fixed interval. Each cycle is
// stateless and idempotent in its external effects except for the output
// file it rewrites; no state is carried between cycles.
type Service struct {
	backfiller    *Backfiller
	wallet        string
	lookback      time.Duration
	interval      time.Duration
	outPath       string
	transferStore storage.TransferStore         // optional
	volumeStore   storage.VolumeTimeseriesStore // optional
	onCycle       func(*BackfillResult)
	logger        *log.Logger
}

// ServiceOptions contains configuration for creating a Service.
type ServiceOptions struct {
	Backfiller    *Backfiller
	Wallet        string
	Lookback      time.Duration                 // defaults to 24h
	Interval      time.Duration                 // defaults to 1h
	OutPath       string                        // defaults to export.DefaultFilename
	TransferStore storage.TransferStore         // optional, persists each cycle's events
	VolumeStore   storage.VolumeTimeseriesStore // optional, persists hourly rollups
	OnCycle       func(*BackfillResult)         // optional, called after each successful cycle
	Logger        *log.Logger
}

// NewService creates a new Service.
func NewService(opts ServiceOptions) *Service {
	lookback := opts.Lookback
	if lookback == 0 {
		lookback = 24 * time.Hour
	}

	interval := opts.Interval
	if interval == 0 {
		interval = time.Hour
	}

	outPath := opts.OutPath
	if outPath == "" {
		outPath = export.DefaultFilename
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Service{
		backfiller:    opts.Backfiller,
		wallet:        opts.Wallet,
		lookback:      lookback,
		interval:      interval,
		outPath:       outPath,
		transferStore: opts.TransferStore,
		volumeStore:   opts.VolumeStore,
		onCycle:       opts.OnCycle,
		logger:        logger,
	}
}

// RunOnce executes a single cycle: backfill, persist, export.
func (s *Service) RunOnce(ctx context.Context) (*BackfillResult, error) {
	result, err := s.backfiller.Backfill(ctx, s.wallet, s.lookback)
	if err != nil {
		observability.RecordBackfillRun("error", 0)
		return nil, err
	}

	s.persistTransfers(ctx, result.Transfers)
	s.persistVolume(ctx, result.Transfers)

	if err := export.WriteJSON(s.outPath, result.Transfers); err != nil {
		observability.RecordBackfillRun("error", result.Duration.Seconds())
		return result, fmt.Errorf("export: %w", err)
	}
	s.logger.Printf("Wrote %d transfers to %s", len(result.Transfers), s.outPath)

	observability.RecordBackfillRun("ok", result.Duration.Seconds())
	observability.DefaultMetrics.LastSuccessfulRun.SetToCurrentTime()

	if s.onCycle != nil {
		s.onCycle(result)
	}
	return result, nil
}

// Run executes one cycle immediately, then one per interval until the
// context is cancelled. A failed cycle is logged and the schedule continues.
func (s *Service) Run(ctx context.Context) error {
	s.logger.Printf("Service started, interval %v, lookback %v", s.interval, s.lookback)

	if _, err := s.RunOnce(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.logger.Printf("Cycle failed: %v", err)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Println("Service stopping...")
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				s.logger.Printf("Cycle failed: %v", err)
			}
		}
	}
}

// persistTransfers stores a cycle's events, tolerating duplicates from
// overlapping windows of earlier cycles.
func (s *Service) persistTransfers(ctx context.Context, events []*domain.TransferEvent) {
	if s.transferStore == nil || len(events) == 0 {
		return
	}

	err := s.transferStore.InsertBulk(ctx, s.wallet, events)
	if err == nil {
		observability.DefaultMetrics.TransfersStored.Add(float64(len(events)))
		return
	}
	if !errors.Is(err, storage.ErrDuplicateKey) {
		observability.RecordStoreError("transfer")
		s.logger.Printf("Error storing transfers: %v", err)
		return
	}

	// Insert one by one to keep the non-duplicates
	stored, dupes := 0, 0
	for _, e := range events {
		if err := s.transferStore.Insert(ctx, s.wallet, e); err != nil {
			if errors.Is(err, storage.ErrDuplicateKey) {
				dupes++
			} else {
				observability.RecordStoreError("transfer")
				s.logger.Printf("Error storing transfer %s: %v", e.Signature, err)
			}
		} else {
			stored++
		}
	}
	observability.DefaultMetrics.TransfersStored.Add(float64(stored))
	s.logger.Printf("Stored %d transfers, %d duplicates skipped", stored, dupes)
}

// persistVolume rolls the cycle's events into hourly buckets and stores
// them, skipping buckets already written by earlier cycles.
func (s *Service) persistVolume(ctx context.Context, events []*domain.TransferEvent) {
	if s.volumeStore == nil || len(events) == 0 {
		return
	}

	points := BuildVolumeTimeseries(s.wallet, events, domain.VolumeInterval1Hour)

	err := s.volumeStore.InsertBulk(ctx, points)
	if err == nil {
		observability.DefaultMetrics.VolumePointsStored.Add(float64(len(points)))
		return
	}
	if !errors.Is(err, storage.ErrDuplicateKey) {
		observability.RecordStoreError("volume")
		s.logger.Printf("Error storing volume points: %v", err)
		return
	}

	stored := 0
	for _, p := range points {
		if err := s.volumeStore.InsertBulk(ctx, []*domain.TransferVolumePoint{p}); err != nil {
			if !errors.Is(err, storage.ErrDuplicateKey) {
				observability.RecordStoreError("volume")
				s.logger.Printf("Error storing volume point %d: %v", p.TimestampMs, err)
			}
		} else {
			stored++
		}
	}
	observability.DefaultMetrics.VolumePointsStored.Add(float64(stored))
}
