package calculator

import (
	"fmt"
	"math/big"

	"github.com/Tianlin0725/coralswap-sdk/fixedpoint"
	"github.com/Tianlin0725/coralswap-sdk/pair"
)

// LiquidityQuote is an ephemeral paired-deposit quote in canonical token
// order. Like a SwapQuote it is advisory: the engine re-derives the binding
// amounts inside the critical section and enforces the caller's minimums
// there.
type LiquidityQuote struct {
	PairID  uint64   `json:"pairId"`
	Amount0 *big.Int `json:"amount0"`
	Amount1 *big.Int `json:"amount1"`

	// EstimatedLPTokens floors toward existing holders; ShareBps is the
	// depositor's resulting share of the enlarged supply.
	EstimatedLPTokens *big.Int `json:"estimatedLpTokens"`
	ShareBps          uint16   `json:"shareOfPoolBps"`
}

// QuoteAddLiquidity computes the optimal paired deposit for the desired
// amounts against the snapshot p.
//
// On an uninitialized pair both desired amounts pass through unchanged and
// the share estimate is floor(sqrt(amount0*amount1)), subject to the
// MinimumLiquidityShares bootstrap floor. On an initialized pair the pool
// ratio picks the binding side: amount1Optimal = MulDiv(amount0Desired,
// reserve1, reserve0) when it fits under amount1Desired, otherwise the
// mirrored amount0Optimal. A nil amount1Desired leaves side one
// unconstrained.
func QuoteAddLiquidity(p pair.Pair, amount0Desired, amount1Desired *big.Int) (*LiquidityQuote, error) {
	if amount0Desired == nil || amount0Desired.Sign() <= 0 {
		return nil, pair.ErrInsufficientInputAmount
	}

	if !p.Initialized() {
		if amount1Desired == nil || amount1Desired.Sign() <= 0 {
			return nil, pair.ErrInsufficientInputAmount
		}
		product := new(big.Int).Mul(amount0Desired, amount1Desired)
		lp, err := fixedpoint.Sqrt(product)
		if err != nil {
			return nil, err
		}
		if lp.Cmp(big.NewInt(pair.MinimumLiquidityShares)) < 0 {
			return nil, fmt.Errorf("%w: %s shares below floor %d", pair.ErrInsufficientInitialLiquidity, lp, pair.MinimumLiquidityShares)
		}
		return &LiquidityQuote{
			PairID:            p.ID,
			Amount0:           new(big.Int).Set(amount0Desired),
			Amount1:           new(big.Int).Set(amount1Desired),
			EstimatedLPTokens: lp,
			ShareBps:          pair.BpsDivisor,
		}, nil
	}

	amount0, amount1, err := matchPoolRatio(p, amount0Desired, amount1Desired)
	if err != nil {
		return nil, err
	}

	minted0, err := fixedpoint.MulDiv(amount0, p.TotalSupply, p.Reserve0)
	if err != nil {
		return nil, err
	}
	minted1, err := fixedpoint.MulDiv(amount1, p.TotalSupply, p.Reserve1)
	if err != nil {
		return nil, err
	}
	lp := fixedpoint.Min(minted0, minted1)
	if lp.Sign() == 0 {
		return nil, fmt.Errorf("%w: deposit too small to mint a share", pair.ErrInsufficientLiquidity)
	}

	enlarged := new(big.Int).Add(p.TotalSupply, lp)
	shareBps, err := fixedpoint.MulDiv(lp, basisPointDivisor, enlarged)
	if err != nil {
		return nil, err
	}

	return &LiquidityQuote{
		PairID:            p.ID,
		Amount0:           amount0,
		Amount1:           amount1,
		EstimatedLPTokens: lp,
		ShareBps:          uint16(shareBps.Uint64()),
	}, nil
}

// matchPoolRatio selects the binding deposit amounts: the side that does not
// exceed its desired counterpart once scaled to the pool ratio.
func matchPoolRatio(p pair.Pair, amount0Desired, amount1Desired *big.Int) (*big.Int, *big.Int, error) {
	amount1Optimal, err := fixedpoint.MulDiv(amount0Desired, p.Reserve1, p.Reserve0)
	if err != nil {
		return nil, nil, err
	}
	if amount1Desired == nil || amount1Optimal.Cmp(amount1Desired) <= 0 {
		return new(big.Int).Set(amount0Desired), amount1Optimal, nil
	}
	amount0Optimal, err := fixedpoint.MulDiv(amount1Desired, p.Reserve0, p.Reserve1)
	if err != nil {
		return nil, nil, err
	}
	// amount0Optimal <= amount0Desired by construction of the two ratios
	return amount0Optimal, new(big.Int).Set(amount1Desired), nil
}

// QuoteRemoveLiquidity computes the pro-rata amounts released by burning
// lpAmount shares, flooring toward the remaining holders.
func QuoteRemoveLiquidity(p pair.Pair, lpAmount *big.Int) (amount0, amount1 *big.Int, err error) {
	if lpAmount == nil || lpAmount.Sign() <= 0 {
		return nil, nil, pair.ErrInsufficientInputAmount
	}
	if !p.Initialized() {
		return nil, nil, fmt.Errorf("%w: pair %d holds no liquidity", pair.ErrPairNotFound, p.ID)
	}
	if lpAmount.Cmp(p.TotalSupply) > 0 {
		return nil, nil, fmt.Errorf("%w: %s shares exceeds supply %s", pair.ErrInsufficientBalance, lpAmount, p.TotalSupply)
	}

	amount0, err = fixedpoint.MulDiv(lpAmount, p.Reserve0, p.TotalSupply)
	if err != nil {
		return nil, nil, err
	}
	amount1, err = fixedpoint.MulDiv(lpAmount, p.Reserve1, p.TotalSupply)
	if err != nil {
		return nil, nil, err
	}
	if amount0.Sign() == 0 || amount1.Sign() == 0 {
		return nil, nil, fmt.Errorf("%w: burn too small to release both sides", pair.ErrInsufficientLiquidity)
	}
	return amount0, amount1, nil
}

// PositionValue derives a holder's claim on the reserves from an LP balance:
// share = balance/totalSupply applied to each reserve with MulDiv flooring.
// The core does not persist positions; balances come from an external share
// ledger.
func PositionValue(p pair.Pair, balance *big.Int) (amount0, amount1 *big.Int, shareBps uint16, err error) {
	if balance == nil || balance.Sign() < 0 {
		return nil, nil, 0, pair.ErrInsufficientInputAmount
	}
	if !p.Initialized() {
		return nil, nil, 0, fmt.Errorf("%w: pair %d holds no liquidity", pair.ErrPairNotFound, p.ID)
	}
	if balance.Cmp(p.TotalSupply) > 0 {
		return nil, nil, 0, fmt.Errorf("%w: balance %s exceeds supply %s", pair.ErrInsufficientBalance, balance, p.TotalSupply)
	}

	amount0, err = fixedpoint.MulDiv(balance, p.Reserve0, p.TotalSupply)
	if err != nil {
		return nil, nil, 0, err
	}
	amount1, err = fixedpoint.MulDiv(balance, p.Reserve1, p.TotalSupply)
	if err != nil {
		return nil, nil, 0, err
	}
	share, err := fixedpoint.MulDiv(balance, basisPointDivisor, p.TotalSupply)
	if err != nil {
		return nil, nil, 0, err
	}
	return amount0, amount1, uint16(share.Uint64()), nil
}
