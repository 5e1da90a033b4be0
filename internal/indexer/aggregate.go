package indexer

import (
	"sort"

	"solana-wallet-ledger/internal/domain"
)

// BuildVolumeTimeseries aggregates transfer events into volume buckets for
// one wallet.
//
// Interval alignment: floor(timestamp_ms / interval_ms) * interval_ms
// Aggregation per interval start:
//   - sent_volume = SUM(amount) WHERE direction = Sent
//   - received_volume = SUM(amount) WHERE direction = Received
//   - transfer_count = COUNT(*)
func BuildVolumeTimeseries(wallet string, events []*domain.TransferEvent, intervalSeconds int) []*domain.TransferVolumePoint {
	if len(events) == 0 || intervalSeconds <= 0 {
		return nil
	}

	intervalMs := int64(intervalSeconds) * 1000

	buckets := make(map[int64]*domain.TransferVolumePoint)

	for _, e := range events {
		intervalStart := (e.Timestamp.UnixMilli() / intervalMs) * intervalMs

		point, ok := buckets[intervalStart]
		if !ok {
			point = &domain.TransferVolumePoint{
				Wallet:          wallet,
				TimestampMs:     intervalStart,
				IntervalSeconds: intervalSeconds,
			}
			buckets[intervalStart] = point
		}

		switch e.Direction {
		case domain.DirectionSent:
			point.SentVolume += e.Amount
		case domain.DirectionReceived:
			point.ReceivedVolume += e.Amount
		}
		point.TransferCount++
	}

	result := make([]*domain.TransferVolumePoint, 0, len(buckets))
	for _, point := range buckets {
		result = append(result, point)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TimestampMs < result[j].TimestampMs
	})

	return result
}
