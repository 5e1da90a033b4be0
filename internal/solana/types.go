package solana

// SignatureInfo from getSignaturesForAddress.
type SignatureInfo struct {
	Signature string
	Slot      int64
	BlockTime *int64      // Unix timestamp (seconds), nil if not recorded
	Err       interface{} // non-nil if the transaction failed on chain
}

// SignaturesOpts defines optional pagination parameters for getSignaturesForAddress.
type SignaturesOpts struct {
	Before string // Start searching backwards from this signature
	Until  string // Search until this signature
	Limit  int    // Maximum number of signatures to return
}

// MaxSignaturePageSize is the largest page getSignaturesForAddress accepts.
const MaxSignaturePageSize = 1000
