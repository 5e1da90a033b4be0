package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-wallet-ledger/internal/domain"
	"solana-wallet-ledger/internal/storage"
)

const testWallet = "7cMEhpt9y3inBNVv8fNnuaEbx7hKHZnLvR1KWKKxuDDU"

func testTransfer(sig string, ts time.Time, dir domain.TransferDirection) *domain.TransferEvent {
	e := &domain.TransferEvent{
		Signature: sig,
		Timestamp: ts,
		Amount:    1000000,
		Direction: dir,
		From:      testWallet,
		To:        "counterparty",
	}
	if dir == domain.DirectionReceived {
		e.From, e.To = e.To, e.From
	}
	return e
}

func TestTransferStore_InsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTransferStore(pool)
	ctx := context.Background()

	ts := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	err := store.Insert(ctx, testWallet, testTransfer("sig1", ts, domain.DirectionSent))
	require.NoError(t, err)

	got, err := store.GetByWallet(ctx, testWallet)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "sig1", got[0].Signature)
	assert.Equal(t, uint64(1000000), got[0].Amount)
	assert.Equal(t, domain.DirectionSent, got[0].Direction)
	assert.Equal(t, testWallet, got[0].From)
	assert.True(t, got[0].Timestamp.Equal(ts))
}

func TestTransferStore_InsertInvalidInput(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTransferStore(pool)
	ctx := context.Background()

	err := store.Insert(ctx, "", testTransfer("sig1", time.Now(), domain.DirectionSent))
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	err = store.Insert(ctx, testWallet, nil)
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestTransferStore_DuplicateKey(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTransferStore(pool)
	ctx := context.Background()

	ts := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	e := testTransfer("sig1", ts, domain.DirectionSent)

	require.NoError(t, store.Insert(ctx, testWallet, e))

	err := store.Insert(ctx, testWallet, e)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestTransferStore_SameSignatureBothDirections(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTransferStore(pool)
	ctx := context.Background()

	// A self-transfer between two accounts of the same wallet produces a
	// Sent and a Received event under one signature.
	ts := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.Insert(ctx, testWallet, testTransfer("sig1", ts, domain.DirectionSent)))
	require.NoError(t, store.Insert(ctx, testWallet, testTransfer("sig1", ts, domain.DirectionReceived)))

	got, err := store.GetByWallet(ctx, testWallet)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestTransferStore_InsertBulk_AtomicOnDuplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTransferStore(pool)
	ctx := context.Background()

	ts := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.Insert(ctx, testWallet, testTransfer("sig1", ts, domain.DirectionSent)))

	batch := []*domain.TransferEvent{
		testTransfer("sig2", ts.Add(time.Minute), domain.DirectionSent),
		testTransfer("sig1", ts, domain.DirectionSent), // duplicate
	}
	err := store.InsertBulk(ctx, testWallet, batch)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	// Nothing from the failed batch persisted
	got, err := store.GetByWallet(ctx, testWallet)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestTransferStore_GetByWallet_NewestFirst(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTransferStore(pool)
	ctx := context.Background()

	base := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	events := []*domain.TransferEvent{
		testTransfer("sig1", base, domain.DirectionSent),
		testTransfer("sig2", base.Add(2*time.Hour), domain.DirectionReceived),
		testTransfer("sig3", base.Add(time.Hour), domain.DirectionSent),
	}
	require.NoError(t, store.InsertBulk(ctx, testWallet, events))

	got, err := store.GetByWallet(ctx, testWallet)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "sig2", got[0].Signature)
	assert.Equal(t, "sig3", got[1].Signature)
	assert.Equal(t, "sig1", got[2].Signature)
}

func TestTransferStore_GetByTimeRange(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTransferStore(pool)
	ctx := context.Background()

	base := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	events := []*domain.TransferEvent{
		testTransfer("sig1", base, domain.DirectionSent),
		testTransfer("sig2", base.Add(time.Hour), domain.DirectionSent),
		testTransfer("sig3", base.Add(2*time.Hour), domain.DirectionSent),
	}
	require.NoError(t, store.InsertBulk(ctx, testWallet, events))

	// Inclusive bounds
	got, err := store.GetByTimeRange(ctx, testWallet, base, base.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "sig2", got[0].Signature)
	assert.Equal(t, "sig1", got[1].Signature)

	// Empty range
	got, err = store.GetByTimeRange(ctx, testWallet, base.Add(3*time.Hour), base.Add(4*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestTransferStore_GetByWallet_Unknown(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTransferStore(pool)
	ctx := context.Background()

	got, err := store.GetByWallet(ctx, "unknown-wallet")
	require.NoError(t, err)
	assert.Empty(t, got)
}
