package domain

// Volume rollup intervals in seconds.
const (
	VolumeInterval1Hour = 3600
	VolumeInterval1Day  = 86400
)

// TransferVolumePoint is an aggregated transfer volume bucket for one wallet.
type TransferVolumePoint struct {
	Wallet          string // tracked wallet address
	TimestampMs     int64  // bucket start, Unix milliseconds, floor-aligned
	IntervalSeconds int    // bucket width
	SentVolume      uint64 // raw units debited from the wallet
	ReceivedVolume  uint64 // raw units credited to the wallet
	TransferCount   int    // transfers in the bucket
}
