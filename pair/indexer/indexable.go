// Package indexer builds read-only lookup structures over a pair-state
// snapshot. An index never mutates the snapshot it was built from; rebuild
// it when a new snapshot arrives.
package indexer

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/Tianlin0725/coralswap-sdk/pair"
)

// Indexer turns raw pair slices into indexed snapshots.
type Indexer struct{}

// New creates a new Indexer.
func New() *Indexer {
	return &Indexer{}
}

// Index creates an indexed snapshot from a raw slice of pairs.
func (i *Indexer) Index(pairs []pair.Pair) IndexedPairs {
	return NewIndexablePairs(pairs)
}

type tokenKey struct {
	token0 common.Address
	token1 common.Address
}

// IndexablePairs provides O(1) access to a pair snapshot by ID or by
// canonically ordered token pair.
type IndexablePairs struct {
	byID     map[uint64]pair.Pair
	byTokens map[tokenKey]uint64
	all      []pair.Pair
}

// NewIndexablePairs builds the indexes for a snapshot.
func NewIndexablePairs(pairs []pair.Pair) *IndexablePairs {
	byID := make(map[uint64]pair.Pair, len(pairs))
	byTokens := make(map[tokenKey]uint64, len(pairs))
	for _, p := range pairs {
		byID[p.ID] = p
		byTokens[tokenKey{p.Token0, p.Token1}] = p.ID
	}
	return &IndexablePairs{
		byID:     byID,
		byTokens: byTokens,
		all:      pairs,
	}
}

// GetByID retrieves a pair by its unique ID.
func (ip *IndexablePairs) GetByID(id uint64) (pair.Pair, bool) {
	p, ok := ip.byID[id]
	return p, ok
}

// GetByTokens retrieves a pair by its token addresses in either order.
func (ip *IndexablePairs) GetByTokens(tokenA, tokenB common.Address) (pair.Pair, bool) {
	token0, token1, err := pair.SortTokens(tokenA, tokenB)
	if err != nil {
		return pair.Pair{}, false
	}
	id, ok := ip.byTokens[tokenKey{token0, token1}]
	if !ok {
		return pair.Pair{}, false
	}
	return ip.byID[id], true
}

// All returns a defensive copy of the slice of all pairs.
func (ip *IndexablePairs) All() []pair.Pair {
	allCopy := make([]pair.Pair, len(ip.all))
	copy(allCopy, ip.all)
	return allCopy
}
