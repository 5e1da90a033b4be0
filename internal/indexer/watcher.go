package indexer

import (
	"context"
	"errors"
	"fmt"
	"log"

	"solana-wallet-ledger/internal/domain"
	"solana-wallet-ledger/internal/observability"
	"solana-wallet-ledger/internal/reconcile"
	"solana-wallet-ledger/internal/solana"
	"solana-wallet-ledger/internal/storage"
)

// Watcher tails a wallet's live transactions over a logs subscription and
// reconciles each into transfer events as it lands.
type Watcher struct {
	ws      solana.WSClient
	rpc     solana.RPCClient
	mints   reconcile.MintSet
	store   storage.TransferStore // optional
	handler func(*domain.TransferEvent)
	logger  *log.Logger
}

// WatcherOptions contains configuration for creating a Watcher.
type WatcherOptions struct {
	WS      solana.WSClient
	RPC     solana.RPCClient
	Mints   reconcile.MintSet           // defaults to the USDC allow-list
	Store   storage.TransferStore       // optional, persists events as they arrive
	Handler func(*domain.TransferEvent) // optional, called per event
	Logger  *log.Logger
}

// NewWatcher creates a new Watcher.
func NewWatcher(opts WatcherOptions) *Watcher {
	mints := opts.Mints
	if mints == nil {
		mints = reconcile.USDCMints()
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Watcher{
		ws:      opts.WS,
		rpc:     opts.RPC,
		mints:   mints,
		store:   opts.Store,
		handler: opts.Handler,
		logger:  logger,
	}
}

// Run subscribes to logs mentioning wallet and processes notifications until
// the context is cancelled.
func (w *Watcher) Run(ctx context.Context, wallet string) error {
	if err := solana.ValidatePubkey(wallet); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidWallet, wallet, err)
	}

	ch, err := w.ws.SubscribeLogs(ctx, solana.LogsFilter{Mentions: []string{wallet}})
	if err != nil {
		return fmt.Errorf("subscribe logs: %w", err)
	}

	w.logger.Printf("Watching %s for live transfers", wallet)

	for {
		select {
		case <-ctx.Done():
			w.logger.Println("Watcher stopping...")
			return ctx.Err()

		case n, ok := <-ch:
			if !ok {
				return errors.New("log subscription closed")
			}
			w.handleNotification(ctx, wallet, n)
		}
	}
}

// handleNotification reconciles one notified transaction. Failures are
// logged and absorbed so one bad transaction never stops the watch.
func (w *Watcher) handleNotification(ctx context.Context, wallet string, n solana.LogNotification) {
	observability.RecordWatchNotification()

	if n.Err != nil {
		return // failed on chain, nothing to reconcile
	}

	events, err := reconcileTransaction(ctx, w.rpc, w.mints, wallet, n.Signature)
	if err != nil {
		w.logger.Printf("Skipping %s: %v", n.Signature, err)
		return
	}

	for _, e := range events {
		w.logger.Printf("Live transfer %s: %s %d (%s -> %s)", e.Signature, e.Direction, e.Amount, e.From, e.To)

		if w.store != nil {
			if err := w.store.Insert(ctx, wallet, e); err != nil {
				// Duplicates are expected when a backfill already covered
				// this transaction.
				if !errors.Is(err, storage.ErrDuplicateKey) {
					observability.RecordStoreError("transfer")
					w.logger.Printf("Error storing transfer %s: %v", e.Signature, err)
				}
			}
		}

		if w.handler != nil {
			w.handler(e)
		}
	}
}
