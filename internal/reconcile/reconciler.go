package reconcile

import (
	"sort"
	"strconv"

	"solana-wallet-ledger/internal/domain"
	"solana-wallet-ledger/internal/solana"
)

// balanceChange is the net balance movement of one token account within a
// single transaction. Values never escape a Reconcile call.
type balanceChange struct {
	accountIndex int
	delta        int64 // post - pre
	owner        string
}

// Reconcile computes per-account balance deltas from pre/post snapshots and
// pairs decreases with increases of identical magnitude into transfer
// candidates. Only mints in tracked survive. An empty result means no
// transfers, not an error.
//
// The pairing tie-break is implementation-defined: decreases are consumed
// last-in first-out and matched to the first increase of equal magnitude.
func Reconcile(pre, post []solana.TokenBalance, tracked MintSet) []domain.TransferCandidate {
	if len(pre) == 0 && len(post) == 0 {
		return nil
	}

	preByIndex := make(map[int]*solana.TokenBalance, len(pre))
	for i := range pre {
		preByIndex[pre[i].AccountIndex] = &pre[i]
	}
	postByIndex := make(map[int]*solana.TokenBalance, len(post))
	for i := range post {
		postByIndex[post[i].AccountIndex] = &post[i]
	}

	// Union of account indices; an account created or closed during the
	// transaction appears in only one snapshot set.
	indexSet := make(map[int]struct{}, len(preByIndex)+len(postByIndex))
	for idx := range preByIndex {
		indexSet[idx] = struct{}{}
	}
	for idx := range postByIndex {
		indexSet[idx] = struct{}{}
	}

	// Group tracked indices by mint. Mint resolution prefers the pre
	// snapshot; untracked mints are filtered here and nowhere else.
	byMint := make(map[string][]int)
	for idx := range indexSet {
		var mint string
		if b, ok := preByIndex[idx]; ok {
			mint = b.Mint
		} else if b, ok := postByIndex[idx]; ok {
			mint = b.Mint
		}
		if !tracked.Contains(mint) {
			continue
		}
		byMint[mint] = append(byMint[mint], idx)
	}

	mints := make([]string, 0, len(byMint))
	for mint := range byMint {
		mints = append(mints, mint)
	}
	sort.Strings(mints)

	var candidates []domain.TransferCandidate
	for _, mint := range mints {
		indices := byMint[mint]
		sort.Ints(indices)

		changes := make([]balanceChange, 0, len(indices))
		for _, idx := range indices {
			preAmount := snapshotAmount(preByIndex[idx])
			postAmount := snapshotAmount(postByIndex[idx])
			delta := int64(postAmount) - int64(preAmount)
			if delta == 0 {
				continue
			}

			owner := ""
			if b, ok := postByIndex[idx]; ok && b.Owner != "" {
				owner = b.Owner
			} else if b, ok := preByIndex[idx]; ok {
				owner = b.Owner
			}

			changes = append(changes, balanceChange{
				accountIndex: idx,
				delta:        delta,
				owner:        owner,
			})
		}

		candidates = append(candidates, pairChanges(mint, changes)...)
	}

	return candidates
}

// pairChanges matches decreases against increases of equal magnitude.
// Unmatched decreases are dropped silently; they are a known limitation of
// the heuristic, not an error.
func pairChanges(mint string, changes []balanceChange) []domain.TransferCandidate {
	var decreases, increases []balanceChange
	for _, c := range changes {
		if c.delta < 0 {
			decreases = append(decreases, c)
		} else {
			increases = append(increases, c)
		}
	}

	var candidates []domain.TransferCandidate
	for len(decreases) > 0 {
		decrease := decreases[len(decreases)-1]
		decreases = decreases[:len(decreases)-1]

		amount := uint64(-decrease.delta)

		matched := -1
		for i, inc := range increases {
			if uint64(inc.delta) == amount {
				matched = i
				break
			}
		}
		if matched < 0 {
			continue
		}

		increase := increases[matched]
		increases = append(increases[:matched], increases[matched+1:]...)

		candidates = append(candidates, domain.TransferCandidate{
			Mint:      mint,
			Amount:    amount,
			FromOwner: decrease.owner,
			ToOwner:   increase.owner,
		})
	}

	return candidates
}

// snapshotAmount parses the raw amount of a snapshot entry. Absent entries
// and unparseable amounts count as zero, matching the node's string-encoded
// u64 representation.
func snapshotAmount(b *solana.TokenBalance) uint64 {
	if b == nil {
		return 0
	}
	amount, err := strconv.ParseUint(b.Amount, 10, 64)
	if err != nil {
		return 0
	}
	return amount
}
