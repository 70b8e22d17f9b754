// Package fixedpoint provides the overflow-checked integer primitives that
// every downstream pricing formula routes through. Keeping a single MulDiv
// with a fixed rounding direction (floor, toward the pool) guarantees that
// off-chain quotes and the settlement layer truncate dust identically.
package fixedpoint

import (
	"errors"
	"math/big"

	"github.com/holiman/uint256"
)

const (
	// WordBits is the ledger word size. Any intermediate result is allowed to
	// widen past it, but a final result that cannot be represented in a
	// 256-bit word is an overflow.
	WordBits = 256

	// Q112Resolution is the number of fractional bits in the UQ112x112
	// price format used by the cumulative-price oracle.
	Q112Resolution = 112
)

var (
	// ErrDivisionByZero is returned when a denominator is zero.
	ErrDivisionByZero = errors.New("division by zero")
	// ErrArithmeticOverflow is returned when a result exceeds the 256-bit ledger word.
	ErrArithmeticOverflow = errors.New("arithmetic overflow")
	// ErrNegativeInput is returned when an operand is nil or negative.
	ErrNegativeInput = errors.New("operand must be non-nil and non-negative")

	// Q112 is 2^112, the UQ112x112 scaling factor.
	Q112 = new(big.Int).Lsh(big.NewInt(1), Q112Resolution)

	// MaxUint112 bounds each reserve, matching the packed uint112 storage of
	// comparable ledger-side pair contracts.
	MaxUint112 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 112), big.NewInt(1))

	one = big.NewInt(1)
)

// checkOperands validates the common MulDiv preconditions.
func checkOperands(a, b, denominator *big.Int) error {
	if a == nil || b == nil || denominator == nil || a.Sign() < 0 || b.Sign() < 0 || denominator.Sign() < 0 {
		return ErrNegativeInput
	}
	if denominator.Sign() == 0 {
		return ErrDivisionByZero
	}
	return nil
}

// MulDiv computes floor(a*b/denominator) with a widened intermediate product.
// The floor direction is a contract, not a convenience: truncation dust always
// stays with the existing reserves.
func MulDiv(a, b, denominator *big.Int) (*big.Int, error) {
	if err := checkOperands(a, b, denominator); err != nil {
		return nil, err
	}
	result := new(big.Int).Mul(a, b)
	result.Quo(result, denominator)
	if result.BitLen() > WordBits {
		return nil, ErrArithmeticOverflow
	}
	return result, nil
}

// MulDivUp computes ceil(a*b/denominator). Used only on amounts charged TO a
// caller (flash fees, exact-out input requirements) so the pool never
// under-collects.
func MulDivUp(a, b, denominator *big.Int) (*big.Int, error) {
	if err := checkOperands(a, b, denominator); err != nil {
		return nil, err
	}
	product := new(big.Int).Mul(a, b)
	result, rem := new(big.Int).QuoRem(product, denominator, new(big.Int))
	if rem.Sign() > 0 {
		result.Add(result, one)
	}
	if result.BitLen() > WordBits {
		return nil, ErrArithmeticOverflow
	}
	return result, nil
}

// Sqrt returns floor(sqrt(x)).
func Sqrt(x *big.Int) (*big.Int, error) {
	if x == nil || x.Sign() < 0 {
		return nil, ErrNegativeInput
	}
	return new(big.Int).Sqrt(x), nil
}

// Min returns the smaller of a and b. The result aliases one of the inputs.
func Min(a, b *big.Int) *big.Int {
	if a.Cmp(b) <= 0 {
		return a
	}
	return b
}

// EncodeQ112 returns (numerator << 112) / denominator as a UQ112x112
// fraction in a 256-bit word. With both operands bounded by MaxUint112 the
// shifted numerator stays under 2^224, so the division cannot overflow.
func EncodeQ112(numerator, denominator *big.Int) (*uint256.Int, error) {
	if numerator == nil || denominator == nil || numerator.Sign() < 0 || denominator.Sign() < 0 {
		return nil, ErrNegativeInput
	}
	if denominator.Sign() == 0 {
		return nil, ErrDivisionByZero
	}
	fraction := new(big.Int).Lsh(numerator, Q112Resolution)
	fraction.Quo(fraction, denominator)
	encoded, overflow := uint256.FromBig(fraction)
	if overflow {
		return nil, ErrArithmeticOverflow
	}
	return encoded, nil
}

// FitsWord reports whether x is representable in a 256-bit ledger word.
func FitsWord(x *big.Int) bool {
	return x != nil && x.Sign() >= 0 && x.BitLen() <= WordBits
}
