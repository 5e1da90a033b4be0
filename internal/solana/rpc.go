package solana

import "context"

// RPCClient defines the Solana RPC surface the indexer depends on.
type RPCClient interface {
	// GetSignaturesForAddress retrieves signatures for an address,
	// newest first, with cursor pagination.
	GetSignaturesForAddress(ctx context.Context, address string, opts *SignaturesOpts) ([]SignatureInfo, error)

	// GetTransaction retrieves a confirmed transaction by signature.
	// Returns nil if the node has pruned the record.
	GetTransaction(ctx context.Context, signature string) (*Transaction, error)
}

// Transaction represents a confirmed Solana transaction.
type Transaction struct {
	Slot      int64
	Signature string
	BlockTime int64 // Unix timestamp (seconds), 0 if unavailable
	Meta      *TransactionMeta
}

// TransactionMeta contains the transaction metadata the indexer consumes.
type TransactionMeta struct {
	Err               interface{}
	PreTokenBalances  []TokenBalance
	PostTokenBalances []TokenBalance
}

// TokenBalance is a per-account token balance snapshot attached to a
// transaction, taken before or after execution.
type TokenBalance struct {
	AccountIndex int    // index into the transaction's account keys
	Mint         string // token mint address
	Owner        string // owning wallet, may be empty
	Amount       string // raw amount as decimal string (64-bit safe)
	Decimals     uint8
}
