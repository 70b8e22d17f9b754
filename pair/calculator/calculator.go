// Package calculator computes swap and liquidity quotes against a pair-state
// snapshot. Everything here is read-only and advisory: a quote is valid only
// for the snapshot it was computed from and only until its deadline, which is
// why every quote carries minimum-amount guards instead of exact promises.
package calculator

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/Tianlin0725/coralswap-sdk/pair"
)

var (
	// basisPointDivisor is a constant representing 100% in basis points (10000).
	basisPointDivisor = big.NewInt(pair.BpsDivisor)

	one = big.NewInt(1)
)

// Calculator holds reusable big.Int objects to avoid memory allocations
// during calculations. Instances are NOT safe for concurrent use by
// themselves; they are managed by the pool below.
type Calculator struct {
	// Reusable objects for getAmountOut
	feeMultiplier   *big.Int
	amountInWithFee *big.Int
	numerator       *big.Int
	denominator     *big.Int

	// Reusable objects for getAmountIn
	numeratorIn   *big.Int
	denominatorIn *big.Int
}

// calculatorPool manages a pool of Calculator objects, allowing safe
// concurrent use while keeping the hot quoting path allocation-free.
var calculatorPool = sync.Pool{
	New: func() any {
		return &Calculator{
			feeMultiplier:   new(big.Int),
			amountInWithFee: new(big.Int),
			numerator:       new(big.Int),
			denominator:     new(big.Int),
			numeratorIn:     new(big.Int),
			denominatorIn:   new(big.Int),
		}
	},
}

// GetAmountOut calculates the exact-in output amount for a swap entering on
// side in, using the pair's current dynamic fee. The result is bit-identical
// to what pair.ApplySwap would realize against the same snapshot.
func GetAmountOut(amountIn *big.Int, in pair.Side, p pair.Pair) (*big.Int, error) {
	calc := calculatorPool.Get().(*Calculator)
	defer calculatorPool.Put(calc)
	return calc.getAmountOut(amountIn, in, p)
}

// GetAmountIn calculates the exact-out required input amount for a desired
// output on the side opposite to in. The +1 rounds the requirement up: the
// trader covers the truncation dust, never the pool.
func GetAmountIn(amountOut *big.Int, in pair.Side, p pair.Pair) (*big.Int, error) {
	calc := calculatorPool.Get().(*Calculator)
	defer calculatorPool.Put(calc)
	return calc.getAmountIn(amountOut, in, p)
}

func (c *Calculator) getAmountOut(amountIn *big.Int, in pair.Side, p pair.Pair) (*big.Int, error) {
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, pair.ErrInsufficientInputAmount
	}

	reserveIn := p.Reserve(in)
	reserveOut := p.Reserve(in.Opposite())
	if reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return nil, fmt.Errorf("%w: pair %d has an empty reserve", pair.ErrInsufficientLiquidity, p.ID)
	}

	c.feeMultiplier.SetInt64(int64(pair.BpsDivisor - p.Fee.CurrentFeeBps))
	c.amountInWithFee.Mul(amountIn, c.feeMultiplier)
	c.numerator.Mul(c.amountInWithFee, reserveOut)
	c.denominator.Mul(reserveIn, basisPointDivisor)
	c.denominator.Add(c.denominator, c.amountInWithFee)

	amountOut := new(big.Int).Quo(c.numerator, c.denominator)
	if amountOut.Sign() == 0 {
		return nil, fmt.Errorf("%w: input too small for any output", pair.ErrInsufficientLiquidity)
	}
	return amountOut, nil
}

func (c *Calculator) getAmountIn(amountOut *big.Int, in pair.Side, p pair.Pair) (*big.Int, error) {
	if amountOut == nil || amountOut.Sign() <= 0 {
		return nil, pair.ErrInsufficientInputAmount
	}

	reserveIn := p.Reserve(in)
	reserveOut := p.Reserve(in.Opposite())
	if reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 || amountOut.Cmp(reserveOut) >= 0 {
		return nil, fmt.Errorf("%w: requested amountOut (%s) is >= reserveOut (%s)", pair.ErrInsufficientLiquidity, amountOut, reserveOut)
	}

	// amountIn = reserveIn*amountOut*10000 / ((reserveOut-amountOut)*(10000-fee)) + 1
	c.numeratorIn.Mul(reserveIn, amountOut)
	c.numeratorIn.Mul(c.numeratorIn, basisPointDivisor)
	c.feeMultiplier.SetInt64(int64(pair.BpsDivisor - p.Fee.CurrentFeeBps))
	c.denominatorIn.Sub(reserveOut, amountOut)
	c.denominatorIn.Mul(c.denominatorIn, c.feeMultiplier)

	amountIn := new(big.Int).Quo(c.numeratorIn, c.denominatorIn)
	return amountIn.Add(amountIn, one), nil
}
