package pair

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/Tianlin0725/coralswap-sdk/fixedpoint"
)

// accumulatePrices folds the elapsed time since the last update into the
// cumulative price counters, using the reserves as they stood BEFORE the
// pending mutation. Called exactly once at the head of every mutating
// transition.
//
// The accumulators are UQ112x112 price fractions times seconds, held in a
// 256-bit word that wraps on overflow. Wrapping is safe for consumers
// because the TWAP contract is a wrapping difference of two samples.
//
// A second mutation within the same timestamp accumulates nothing, and a
// timestamp can never move the clock backwards.
func (p *Pair) accumulatePrices(timestamp uint64) error {
	if timestamp < p.BlockTimestampLast {
		return fmt.Errorf("%w: timestamp %d precedes last update %d", ErrStaleTimestamp, timestamp, p.BlockTimestampLast)
	}
	elapsed := timestamp - p.BlockTimestampLast
	if elapsed > 0 && p.Reserve0.Sign() > 0 && p.Reserve1.Sign() > 0 {
		price0, err := fixedpoint.EncodeQ112(p.Reserve1, p.Reserve0)
		if err != nil {
			return err
		}
		price1, err := fixedpoint.EncodeQ112(p.Reserve0, p.Reserve1)
		if err != nil {
			return err
		}
		dt := uint256.NewInt(elapsed)
		// Mul and Add wrap mod 2^256 by design.
		p.Price0CumulativeLast.Add(p.Price0CumulativeLast, price0.Mul(price0, dt))
		p.Price1CumulativeLast.Add(p.Price1CumulativeLast, price1.Mul(price1, dt))
	}
	p.BlockTimestampLast = timestamp
	return nil
}

// TWAP derives a time-weighted average price from two cumulative samples
// taken elapsed seconds apart. This differencing is the oracle's primary
// consumption pattern; the subtraction wraps, so the result stays correct
// across a single accumulator overflow. The returned value is a UQ112x112
// fraction.
func TWAP(earlier, later *uint256.Int, elapsed uint64) (*uint256.Int, error) {
	if elapsed == 0 {
		return nil, ErrDivisionByZero
	}
	delta := new(uint256.Int).Sub(later, earlier)
	return delta.Div(delta, uint256.NewInt(elapsed)), nil
}
