// Package stub provides an in-memory solana.RPCClient for testing.
package stub

import (
	"context"
	"errors"
	"sync"

	"solana-wallet-ledger/internal/solana"
)

// ErrNotFound is returned when a transaction is not registered.
var ErrNotFound = errors.New("not found")

// RPCClient implements solana.RPCClient for testing. Registered signatures
// are served newest first with real Before/Limit cursor pagination, so
// pagination termination behavior can be exercised.
type RPCClient struct {
	mu           sync.Mutex
	transactions map[string]*solana.Transaction
	signatures   map[string][]solana.SignatureInfo

	// FailTransactions holds signatures whose GetTransaction call fails.
	FailTransactions map[string]error

	// PageRequests counts GetSignaturesForAddress calls per address.
	PageRequests map[string]int
}

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		transactions:     make(map[string]*solana.Transaction),
		signatures:       make(map[string][]solana.SignatureInfo),
		FailTransactions: make(map[string]error),
		PageRequests:     make(map[string]int),
	}
}

// GetTransaction retrieves a transaction by signature from the stub store.
func (c *RPCClient) GetTransaction(_ context.Context, signature string) (*solana.Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err, ok := c.FailTransactions[signature]; ok {
		return nil, err
	}

	tx, ok := c.transactions[signature]
	if !ok {
		return nil, ErrNotFound
	}
	return tx, nil
}

// GetSignaturesForAddress serves the registered signature list newest first,
// honoring Before and Limit the way getSignaturesForAddress does.
func (c *RPCClient) GetSignaturesForAddress(_ context.Context, address string, opts *solana.SignaturesOpts) ([]solana.SignatureInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.PageRequests[address]++

	sigs := c.signatures[address]

	if opts != nil && opts.Before != "" {
		start := len(sigs)
		for i, s := range sigs {
			if s.Signature == opts.Before {
				start = i + 1
				break
			}
		}
		sigs = sigs[start:]
	}

	if opts != nil && opts.Limit > 0 && opts.Limit < len(sigs) {
		sigs = sigs[:opts.Limit]
	}

	out := make([]solana.SignatureInfo, len(sigs))
	copy(out, sigs)
	return out, nil
}

// AddTransaction adds a transaction to the stub store.
func (c *RPCClient) AddTransaction(tx *solana.Transaction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transactions[tx.Signature] = tx
}

// AddSignatures appends signatures for an address. Callers register them
// newest first, matching the RPC contract.
func (c *RPCClient) AddSignatures(address string, sigs []solana.SignatureInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.signatures[address] = append(c.signatures[address], sigs...)
}
