package indexer

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/Tianlin0725/coralswap-sdk/pair"
)

// IndexedPairs defines the methods for accessing an indexed pair-state snapshot.
type IndexedPairs interface {
	GetByID(id uint64) (pair.Pair, bool)
	GetByTokens(tokenA, tokenB common.Address) (pair.Pair, bool)
	All() []pair.Pair
}
