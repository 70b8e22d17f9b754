package pair

import "fmt"

// EmaAlphaScale is the fixed-point scale of FeeState.EmaAlpha. An alpha of
// EmaAlphaScale means the fee tracks the signal instantly; smaller values
// smooth harder.
const EmaAlphaScale = 10000

// FeeState is the dynamic-fee state machine. It is pure given (previous fee,
// signal, alpha, bounds): Next derives everything from its receiver and
// argument, so the blend is independently testable and replays identically
// on every node.
type FeeState struct {
	CurrentFeeBps  uint16 `json:"currentFeeBps"`
	FeeMin         uint16 `json:"feeMin"`
	FeeMax         uint16 `json:"feeMax"`
	BaselineFeeBps uint16 `json:"baselineFee"`
	EmaAlpha       uint16 `json:"emaAlpha"`
}

// Validate checks the configuration invariants at configuration time.
func (f FeeState) Validate() error {
	if f.FeeMin > f.FeeMax {
		return fmt.Errorf("%w: feeMin %d > feeMax %d", ErrInvalidFeeConfig, f.FeeMin, f.FeeMax)
	}
	if f.FeeMax >= BpsDivisor {
		return fmt.Errorf("%w: feeMax %d must be below %d bps", ErrInvalidFeeConfig, f.FeeMax, BpsDivisor)
	}
	if f.EmaAlpha == 0 || f.EmaAlpha > EmaAlphaScale {
		return fmt.Errorf("%w: emaAlpha %d outside (0,%d]", ErrInvalidFeeConfig, f.EmaAlpha, EmaAlphaScale)
	}
	if f.BaselineFeeBps < f.FeeMin || f.BaselineFeeBps > f.FeeMax {
		return fmt.Errorf("%w: baseline %d outside [%d,%d]", ErrInvalidFeeConfig, f.BaselineFeeBps, f.FeeMin, f.FeeMax)
	}
	if f.CurrentFeeBps < f.FeeMin || f.CurrentFeeBps > f.FeeMax {
		return fmt.Errorf("%w: currentFee %d outside [%d,%d]", ErrInvalidFeeConfig, f.CurrentFeeBps, f.FeeMin, f.FeeMax)
	}
	return nil
}

// Next returns the fee after blending the externally metered signal into the
// EMA:
//
//	next = clamp((alpha*signal + (scale-alpha)*prev) / scale, feeMin, feeMax)
//
// The division floors, matching the uniform rounding rule of the core. The
// signal's derivation (volume, volatility, or both) is the meter's business;
// only the blend and the clamp are this engine's contract.
func (f FeeState) Next(signalBps uint16) uint16 {
	alpha := uint32(f.EmaAlpha)
	blended := (alpha*uint32(signalBps) + (EmaAlphaScale-alpha)*uint32(f.CurrentFeeBps)) / EmaAlphaScale
	if blended < uint32(f.FeeMin) {
		return f.FeeMin
	}
	if blended > uint32(f.FeeMax) {
		return f.FeeMax
	}
	return uint16(blended)
}

// advance applies one fee update in place. A nil signal means the meter
// produced nothing for this mutation, in which case the fee decays toward
// the baseline.
func (f *FeeState) advance(signal *uint16) {
	target := f.BaselineFeeBps
	if signal != nil {
		target = *signal
	}
	f.CurrentFeeBps = f.Next(target)
}
