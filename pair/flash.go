package pair

import (
	"math/big"

	"github.com/Tianlin0725/coralswap-sdk/fixedpoint"
)

// FlashLoanConfig is the read-only flash-borrow policy of a pair. The floor
// is a rate floor: whatever the dynamic-fee machinery suggests, a borrow is
// never charged below FlashFeeFloorBps.
type FlashLoanConfig struct {
	FlashFeeBps      uint16 `json:"flashFeeBps"`
	FlashFeeFloorBps uint16 `json:"flashFeeFloor"`
	Locked           bool   `json:"locked"`
}

// EffectiveFeeBps returns the borrow rate after applying the floor.
func (c FlashLoanConfig) EffectiveFeeBps() uint16 {
	if c.FlashFeeBps < c.FlashFeeFloorBps {
		return c.FlashFeeFloorBps
	}
	return c.FlashFeeBps
}

// FeeOn returns the fee owed on a borrowed amount. The division rounds up:
// a fee is charged TO the borrower, so truncation dust goes to the pool.
func (c FlashLoanConfig) FeeOn(amount *big.Int) (*big.Int, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInsufficientInputAmount
	}
	return fixedpoint.MulDivUp(amount, big.NewInt(int64(c.EffectiveFeeBps())), big.NewInt(BpsDivisor))
}
