package engine

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Logger defines a standard interface for structured, leveled logging.
// *slog.Logger satisfies it directly.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Directory maps a token pair to its pair identifier. The factory owns this
// mapping; the engine consumes it as an injected lookup and never caches it.
type Directory interface {
	PairFor(tokenA, tokenB common.Address) (uint64, bool)
}

// ShareBalanceSource reports LP share balances per holder. Share balance
// bookkeeping is an external ledger; the engine only reads it to gate
// withdrawals.
type ShareBalanceSource interface {
	BalanceOf(pairID uint64, holder common.Address) (*big.Int, error)
}

// Clock supplies the wall time (unix seconds) used for quote deadlines.
// Settlement timestamps are NOT read from this clock; they arrive with each
// Execute call from the settlement collaborator.
type Clock func() uint64

// SwapResult reports the realized amounts of a settled swap.
type SwapResult struct {
	PairID    uint64         `json:"pairId"`
	TokenIn   common.Address `json:"tokenIn"`
	AmountIn  *big.Int       `json:"amountIn"`
	AmountOut *big.Int       `json:"amountOut"`
	FeeBps    uint16         `json:"feeBps"`
}

// AddLiquidityResult reports the realized amounts of a settled deposit, in
// canonical token order.
type AddLiquidityResult struct {
	PairID   uint64   `json:"pairId"`
	Amount0  *big.Int `json:"amount0"`
	Amount1  *big.Int `json:"amount1"`
	LPMinted *big.Int `json:"lpMinted"`
}

// RemoveLiquidityResult reports the amounts released by a settled burn.
type RemoveLiquidityResult struct {
	PairID   uint64   `json:"pairId"`
	Amount0  *big.Int `json:"amount0"`
	Amount1  *big.Int `json:"amount1"`
	LPBurned *big.Int `json:"lpBurned"`
}

// FlashLoanResult reports the fee collected by a settled flash borrow.
type FlashLoanResult struct {
	PairID uint64   `json:"pairId"`
	Amount *big.Int `json:"amount"`
	Fee    *big.Int `json:"fee"`
}
