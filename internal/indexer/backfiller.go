// Package indexer reconstructs a wallet's USDC transfer ledger from
// transaction history reachable over RPC.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"solana-wallet-ledger/internal/domain"
	"solana-wallet-ledger/internal/observability"
	"solana-wallet-ledger/internal/reconcile"
	"solana-wallet-ledger/internal/solana"
)

// ErrInvalidWallet indicates a malformed wallet address. Surfaced before any
// network activity.
var ErrInvalidWallet = errors.New("invalid wallet address")

// defaultPageDelay paces consecutive page fetches to stay under public RPC
// rate limits. Not a correctness requirement.
const defaultPageDelay = 100 * time.Millisecond

// Backfiller walks a wallet's signature history backward in time and
// reconciles each transaction into directional transfer events.
type Backfiller struct {
	rpc       solana.RPCClient
	mints     reconcile.MintSet
	pageSize  int
	pageDelay time.Duration
	logger    *log.Logger
	now       func() time.Time
}

// BackfillOptions contains configuration for creating a Backfiller.
type BackfillOptions struct {
	RPC       solana.RPCClient
	Mints     reconcile.MintSet // defaults to the USDC allow-list
	PageSize  int               // defaults to solana.MaxSignaturePageSize
	PageDelay time.Duration     // inter-page pacing, defaults to 100ms
	Logger    *log.Logger
	Now       func() time.Time // clock override for tests
}

// NewBackfiller creates a new Backfiller.
func NewBackfiller(opts BackfillOptions) *Backfiller {
	pageSize := opts.PageSize
	if pageSize == 0 {
		pageSize = solana.MaxSignaturePageSize
	}

	pageDelay := opts.PageDelay
	if pageDelay == 0 {
		pageDelay = defaultPageDelay
	}

	mints := opts.Mints
	if mints == nil {
		mints = reconcile.USDCMints()
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Backfiller{
		rpc:       opts.RPC,
		mints:     mints,
		pageSize:  pageSize,
		pageDelay: pageDelay,
		logger:    logger,
		now:       now,
	}
}

// BackfillResult contains statistics from a backfill run.
type BackfillResult struct {
	Transfers      []*domain.TransferEvent
	PagesFetched   int
	SignaturesSeen int
	FailedSkipped  int // transactions that failed on chain
	FetchesSkipped int // detail fetches that errored and were skipped
	Duration       time.Duration
}

// Backfill reconstructs all transfers touching wallet within the lookback
// window, newest first. The wallet address is validated before any network
// call; a malformed address fails with ErrInvalidWallet. Per-transaction
// fetch failures are logged and skipped, so a partial result is still
// returned when individual records are unavailable.
func (b *Backfiller) Backfill(ctx context.Context, wallet string, lookback time.Duration) (*BackfillResult, error) {
	if err := solana.ValidatePubkey(wallet); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidWallet, wallet, err)
	}

	start := time.Now()
	// One "now" for the whole run keeps every time-window decision consistent.
	now := b.now().UTC()
	target := now.Add(-lookback)
	result := &BackfillResult{}

	b.logger.Printf("Starting backfill for %s, window %s back to %s", wallet, lookback, target.Format(time.RFC3339))

	var accumulated []*domain.TransferEvent
	cursor := ""

	for {
		opts := &solana.SignaturesOpts{Limit: b.pageSize}
		if cursor != "" {
			opts.Before = cursor
		}

		sigs, err := b.rpc.GetSignaturesForAddress(ctx, wallet, opts)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			// Without this page's signatures there is no cursor to advance,
			// so the run ends here with whatever was already reconciled.
			b.logger.Printf("Signature page fetch failed, returning partial results: %v", err)
			break
		}
		result.PagesFetched++

		if len(sigs) == 0 {
			break // history exhausted
		}

		oldestSeen := now
		for _, sig := range sigs {
			result.SignaturesSeen++

			if sig.BlockTime != nil {
				ts := time.Unix(*sig.BlockTime, 0).UTC()
				if ts.Before(oldestSeen) {
					oldestSeen = ts
				}
				// Pages are newest first, so the rest of the page is older too.
				if ts.Before(target) {
					break
				}
			}

			if sig.Err != nil {
				result.FailedSkipped++
				observability.RecordFailedTxSkipped()
				continue
			}

			events, err := b.processTransaction(ctx, wallet, sig.Signature)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				result.FetchesSkipped++
				observability.RecordFetchErrorSkipped()
				b.logger.Printf("Skipping %s: %v", sig.Signature, err)
				continue
			}
			accumulated = append(accumulated, events...)
		}

		observability.RecordPageFetched()
		observability.RecordSignaturesProcessed(len(sigs))

		if oldestSeen.Before(target) {
			break // crossed the time boundary
		}
		if len(sigs) < b.pageSize {
			break // history exhausted
		}

		cursor = sigs[len(sigs)-1].Signature

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(b.pageDelay):
		}
	}

	// The per-entry break above can admit events from a page whose tail is
	// already out of window, so re-filter against the boundary.
	transfers := accumulated[:0]
	for _, e := range accumulated {
		if !e.Timestamp.Before(target) {
			transfers = append(transfers, e)
		}
	}
	result.Transfers = transfers
	result.Duration = time.Since(start)

	b.logger.Printf("Backfill complete: %d transfers from %d signatures across %d pages (%d failed, %d skipped) in %v",
		len(result.Transfers), result.SignaturesSeen, result.PagesFetched,
		result.FailedSkipped, result.FetchesSkipped, result.Duration)

	return result, nil
}

// processTransaction fetches one transaction and reconciles its balance
// snapshots into transfer events touching wallet.
func (b *Backfiller) processTransaction(ctx context.Context, wallet, signature string) ([]*domain.TransferEvent, error) {
	return reconcileTransaction(ctx, b.rpc, b.mints, wallet, signature)
}

// reconcileTransaction fetches one transaction and turns its balance
// snapshots into directional transfer events for wallet. Shared by the
// backfiller and the live watcher.
func reconcileTransaction(ctx context.Context, rpc solana.RPCClient, mints reconcile.MintSet, wallet, signature string) ([]*domain.TransferEvent, error) {
	tx, err := rpc.GetTransaction(ctx, signature)
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	if tx == nil || tx.Meta == nil {
		return nil, nil // pruned by the node or no metadata
	}
	if tx.BlockTime == 0 {
		// Without a block time the event cannot be placed in the window.
		return nil, nil
	}
	ts := time.Unix(tx.BlockTime, 0).UTC()

	candidates := reconcile.Reconcile(tx.Meta.PreTokenBalances, tx.Meta.PostTokenBalances, mints)

	var events []*domain.TransferEvent
	for _, c := range candidates {
		if c.FromOwner == c.ToOwner {
			// A move between two token accounts of the same owner is not
			// a transfer in or out of the wallet.
			continue
		}
		var dir domain.TransferDirection
		switch wallet {
		case c.FromOwner:
			dir = domain.DirectionSent
		case c.ToOwner:
			dir = domain.DirectionReceived
		default:
			// A transfer between two unrelated holders of the tracked
			// token, irrelevant to this wallet's ledger.
			continue
		}

		events = append(events, &domain.TransferEvent{
			Signature: signature,
			Timestamp: ts,
			Amount:    c.Amount,
			Direction: dir,
			From:      c.FromOwner,
			To:        c.ToOwner,
		})
		observability.RecordTransferReconciled(string(dir))
	}

	return events, nil
}
