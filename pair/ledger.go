package pair

import (
	"fmt"
	"math/big"

	"github.com/Tianlin0725/coralswap-sdk/fixedpoint"
)

// MinimumLiquidityShares is the bootstrap floor: a first deposit that would
// mint fewer LP shares is rejected, so the share count can never degenerate
// into a grieving vector. The exact value is a protocol configuration
// constant, not a derived quantity.
const MinimumLiquidityShares = 1000

var (
	bpsDivisor       = big.NewInt(BpsDivisor)
	minimumLiquidity = big.NewInt(MinimumLiquidityShares)
)

// The Apply* methods below are the reserve ledger: each one runs the full
// atomic transition (oracle accumulation on pre-mutation reserves, then the
// reserve/supply mutation, then the fee update) against the receiver. They
// mutate in place, so a caller that needs all-or-nothing semantics applies
// them to a DeepCopy and commits the copy only on success; the engine's
// critical sections do exactly that. A nil feeSignal decays the fee toward
// its baseline.

// ApplySwap settles an exact-in swap of amountIn on side in, returning the
// output amount on the opposite side. The output is computed with the fee
// deducted from the input leg:
//
//	amountInWithFee = amountIn * (10000 - feeBps)
//	amountOut       = amountInWithFee*reserveOut / (reserveIn*10000 + amountInWithFee)
//
// flooring toward the pool, so reserve0*reserve1 never decreases.
func (p *Pair) ApplySwap(in Side, amountIn *big.Int, timestamp uint64, feeSignal *uint16) (*big.Int, error) {
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, ErrInsufficientInputAmount
	}
	reserveIn := p.Reserve(in)
	reserveOut := p.Reserve(in.Opposite())
	if reserveIn.Sign() == 0 || reserveOut.Sign() == 0 {
		return nil, fmt.Errorf("%w: pair %d has an empty reserve", ErrInsufficientLiquidity, p.ID)
	}

	if err := p.accumulatePrices(timestamp); err != nil {
		return nil, err
	}

	feeMultiplier := big.NewInt(int64(BpsDivisor - p.Fee.CurrentFeeBps))
	amountInWithFee := new(big.Int).Mul(amountIn, feeMultiplier)
	numerator := new(big.Int).Mul(amountInWithFee, reserveOut)
	denominator := new(big.Int).Mul(reserveIn, bpsDivisor)
	denominator.Add(denominator, amountInWithFee)
	amountOut := numerator.Quo(numerator, denominator)
	if amountOut.Sign() == 0 {
		return nil, fmt.Errorf("%w: input too small for any output", ErrInsufficientLiquidity)
	}

	newReserveIn := new(big.Int).Add(reserveIn, amountIn)
	newReserveOut := new(big.Int).Sub(reserveOut, amountOut)
	if newReserveIn.Cmp(fixedpoint.MaxUint112) > 0 {
		return nil, fmt.Errorf("%w: reserve exceeds uint112", ErrArithmeticOverflow)
	}
	p.setReserve(in, newReserveIn)
	p.setReserve(in.Opposite(), newReserveOut)
	p.Fee.advance(feeSignal)
	return amountOut, nil
}

// ApplyDeposit settles a paired deposit and returns the LP shares minted.
// The first deposit bootstraps the pair: shares are the floor square root of
// the deposited product and must clear MinimumLiquidityShares. Subsequent
// deposits mint the smaller pro-rata side, flooring toward existing holders.
func (p *Pair) ApplyDeposit(amount0, amount1 *big.Int, timestamp uint64, feeSignal *uint16) (*big.Int, error) {
	if amount0 == nil || amount1 == nil || amount0.Sign() <= 0 || amount1.Sign() <= 0 {
		return nil, ErrInsufficientInputAmount
	}
	if err := p.accumulatePrices(timestamp); err != nil {
		return nil, err
	}

	var minted *big.Int
	if !p.Initialized() {
		product := new(big.Int).Mul(amount0, amount1)
		lp, err := fixedpoint.Sqrt(product)
		if err != nil {
			return nil, err
		}
		if lp.Cmp(minimumLiquidity) < 0 {
			return nil, fmt.Errorf("%w: %s shares below floor %d", ErrInsufficientInitialLiquidity, lp, MinimumLiquidityShares)
		}
		minted = lp
	} else {
		minted0, err := fixedpoint.MulDiv(amount0, p.TotalSupply, p.Reserve0)
		if err != nil {
			return nil, err
		}
		minted1, err := fixedpoint.MulDiv(amount1, p.TotalSupply, p.Reserve1)
		if err != nil {
			return nil, err
		}
		minted = fixedpoint.Min(minted0, minted1)
		if minted.Sign() == 0 {
			return nil, fmt.Errorf("%w: deposit too small to mint a share", ErrInsufficientLiquidity)
		}
	}

	newReserve0 := new(big.Int).Add(p.Reserve0, amount0)
	newReserve1 := new(big.Int).Add(p.Reserve1, amount1)
	if newReserve0.Cmp(fixedpoint.MaxUint112) > 0 || newReserve1.Cmp(fixedpoint.MaxUint112) > 0 {
		return nil, fmt.Errorf("%w: reserve exceeds uint112", ErrArithmeticOverflow)
	}
	p.Reserve0 = newReserve0
	p.Reserve1 = newReserve1
	p.TotalSupply = new(big.Int).Add(p.TotalSupply, minted)
	p.Fee.advance(feeSignal)
	return minted, nil
}

// ApplyWithdraw burns lpAmount shares and returns the pro-rata reserve
// amounts, flooring toward the remaining holders. Burning the entire supply
// reverts the pair to its uninitialized state.
func (p *Pair) ApplyWithdraw(lpAmount *big.Int, timestamp uint64, feeSignal *uint16) (*big.Int, *big.Int, error) {
	if lpAmount == nil || lpAmount.Sign() <= 0 {
		return nil, nil, ErrInsufficientInputAmount
	}
	if !p.Initialized() {
		return nil, nil, fmt.Errorf("%w: pair %d holds no liquidity", ErrPairNotFound, p.ID)
	}
	if lpAmount.Cmp(p.TotalSupply) > 0 {
		return nil, nil, fmt.Errorf("%w: %s shares exceeds supply %s", ErrInsufficientBalance, lpAmount, p.TotalSupply)
	}
	if err := p.accumulatePrices(timestamp); err != nil {
		return nil, nil, err
	}

	amount0, err := fixedpoint.MulDiv(lpAmount, p.Reserve0, p.TotalSupply)
	if err != nil {
		return nil, nil, err
	}
	amount1, err := fixedpoint.MulDiv(lpAmount, p.Reserve1, p.TotalSupply)
	if err != nil {
		return nil, nil, err
	}
	if amount0.Sign() == 0 || amount1.Sign() == 0 {
		return nil, nil, fmt.Errorf("%w: burn too small to release both sides", ErrInsufficientLiquidity)
	}

	p.Reserve0 = new(big.Int).Sub(p.Reserve0, amount0)
	p.Reserve1 = new(big.Int).Sub(p.Reserve1, amount1)
	p.TotalSupply = new(big.Int).Sub(p.TotalSupply, lpAmount)
	p.Fee.advance(feeSignal)
	return amount0, amount1, nil
}

// ApplyFlashRepay settles a completed flash borrow: the borrow and its
// repayment cancel out within one atomic settlement, leaving only the fee
// in the borrowed side's reserve. The whole borrow is rejected when the
// pair is locked or when the principal would drain the reserve.
func (p *Pair) ApplyFlashRepay(in Side, amount *big.Int, timestamp uint64, feeSignal *uint16) (*big.Int, error) {
	if p.Flash.Locked {
		return nil, fmt.Errorf("%w: pair %d", ErrFlashLoansDisabled, p.ID)
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInsufficientInputAmount
	}
	if amount.Cmp(p.Reserve(in)) >= 0 {
		return nil, fmt.Errorf("%w: borrow %s >= reserve %s", ErrInsufficientLiquidity, amount, p.Reserve(in))
	}
	fee, err := p.Flash.FeeOn(amount)
	if err != nil {
		return nil, err
	}
	if err := p.accumulatePrices(timestamp); err != nil {
		return nil, err
	}

	newReserve := new(big.Int).Add(p.Reserve(in), fee)
	if newReserve.Cmp(fixedpoint.MaxUint112) > 0 {
		return nil, fmt.Errorf("%w: reserve exceeds uint112", ErrArithmeticOverflow)
	}
	p.setReserve(in, newReserve)
	p.Fee.advance(feeSignal)
	return fee, nil
}
