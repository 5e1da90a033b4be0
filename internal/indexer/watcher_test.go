package indexer

import (
	"context"
	"errors"
	"testing"
	"time"

	"solana-wallet-ledger/internal/domain"
	"solana-wallet-ledger/internal/solana"
	"solana-wallet-ledger/internal/solana/stub"
	"solana-wallet-ledger/internal/storage/memory"
)

type stubWS struct {
	ch     chan solana.LogNotification
	filter solana.LogsFilter
}

func newStubWS() *stubWS {
	return &stubWS{ch: make(chan solana.LogNotification, 16)}
}

func (s *stubWS) SubscribeLogs(_ context.Context, filter solana.LogsFilter) (<-chan solana.LogNotification, error) {
	s.filter = filter
	return s.ch, nil
}

func (s *stubWS) Close() error { return nil }

func TestWatcher_ReconcilesNotifications(t *testing.T) {
	rpc := stub.NewRPCClient()
	ws := newStubWS()
	store := memory.NewTransferStore()

	bt := blockTime(time.Minute)
	rpc.AddTransaction(usdcTx("sig1", bt, 750000, testWallet, testCounterparty))

	received := make(chan *domain.TransferEvent, 1)
	w := NewWatcher(WatcherOptions{
		WS:      ws,
		RPC:     rpc,
		Store:   store,
		Handler: func(e *domain.TransferEvent) { received <- e },
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, testWallet) }()

	ws.ch <- solana.LogNotification{Signature: "sig1", Slot: 100}

	select {
	case e := <-received:
		if e.Direction != domain.DirectionSent {
			t.Errorf("Direction mismatch: got %s", e.Direction)
		}
		if e.Amount != 750000 {
			t.Errorf("Amount mismatch: got %d", e.Amount)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for transfer event")
	}

	// Subscription must mention the watched wallet
	if len(ws.filter.Mentions) != 1 || ws.filter.Mentions[0] != testWallet {
		t.Errorf("Filter mismatch: %v", ws.filter.Mentions)
	}

	// Event persisted
	stored, err := store.GetByWallet(ctx, testWallet)
	if err != nil {
		t.Fatalf("GetByWallet failed: %v", err)
	}
	if len(stored) != 1 {
		t.Errorf("Expected 1 stored transfer, got %d", len(stored))
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestWatcher_SkipsFailedTransactions(t *testing.T) {
	rpc := stub.NewRPCClient()
	ws := newStubWS()

	bt := blockTime(time.Minute)
	rpc.AddTransaction(usdcTx("sig1", bt, 750000, testWallet, testCounterparty))
	rpc.AddTransaction(usdcTx("sig2", bt, 250000, testWallet, testCounterparty))

	received := make(chan *domain.TransferEvent, 2)
	w := NewWatcher(WatcherOptions{
		WS:      ws,
		RPC:     rpc,
		Handler: func(e *domain.TransferEvent) { received <- e },
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx, testWallet)

	// Failed notification first, then a good one. Only the good one may
	// produce an event.
	ws.ch <- solana.LogNotification{Signature: "sig1", Slot: 100, Err: map[string]interface{}{"InstructionError": nil}}
	ws.ch <- solana.LogNotification{Signature: "sig2", Slot: 101}

	select {
	case e := <-received:
		if e.Signature != "sig2" {
			t.Errorf("Expected sig2, got %s", e.Signature)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for transfer event")
	}

	select {
	case e := <-received:
		t.Errorf("Unexpected extra event: %+v", e)
	default:
	}
}

func TestWatcher_InvalidWallet(t *testing.T) {
	w := NewWatcher(WatcherOptions{WS: newStubWS(), RPC: stub.NewRPCClient()})

	err := w.Run(context.Background(), "bad wallet")
	if !errors.Is(err, ErrInvalidWallet) {
		t.Fatalf("Expected ErrInvalidWallet, got %v", err)
	}
}

func TestWatcher_FetchFailureAbsorbed(t *testing.T) {
	rpc := stub.NewRPCClient()
	ws := newStubWS()

	rpc.FailTransactions["sig1"] = errors.New("rpc timeout")
	bt := blockTime(time.Minute)
	rpc.AddTransaction(usdcTx("sig2", bt, 100000, testCounterparty, testWallet))

	received := make(chan *domain.TransferEvent, 1)
	w := NewWatcher(WatcherOptions{
		WS:      ws,
		RPC:     rpc,
		Handler: func(e *domain.TransferEvent) { received <- e },
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx, testWallet)

	ws.ch <- solana.LogNotification{Signature: "sig1", Slot: 100}
	ws.ch <- solana.LogNotification{Signature: "sig2", Slot: 101}

	select {
	case e := <-received:
		if e.Signature != "sig2" || e.Direction != domain.DirectionReceived {
			t.Errorf("Unexpected event: %+v", e)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for transfer event")
	}
}
