// Package pair models the replicated state of one constant-product trading
// pair: reserves, LP share supply, the cumulative-price oracle, the dynamic
// fee state and the flash-loan policy. The package holds no locks and owns no
// registry; serialization and directory lookups belong to the engine layer.
package pair

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// BpsDivisor is 100% in basis points.
const BpsDivisor = 10000

// Side tags swap and reserve directionality against the canonical token
// ordering. Resolving a token to a Side once at the boundary replaces the
// repeated identifier comparisons that direction bugs grow from.
type Side uint8

const (
	SideZero Side = iota
	SideOne
)

// Opposite returns the other side of the pair.
func (s Side) Opposite() Side {
	if s == SideZero {
		return SideOne
	}
	return SideZero
}

func (s Side) String() string {
	if s == SideZero {
		return "token0"
	}
	return "token1"
}

// Pair is the full replicated state of one pair. Reserve and supply fields
// are pointers; use DeepCopy before handing a Pair across a mutation
// boundary.
type Pair struct {
	ID     uint64         `json:"id"`
	Token0 common.Address `json:"token0"`
	Token1 common.Address `json:"token1"`

	Reserve0    *big.Int `json:"reserve0"`
	Reserve1    *big.Int `json:"reserve1"`
	TotalSupply *big.Int `json:"totalSupply"`

	// Cumulative prices wrap mod 2^256. Consumers derive a TWAP by
	// differencing two samples; a single read is not a price.
	Price0CumulativeLast *uint256.Int `json:"price0CumulativeLast"`
	Price1CumulativeLast *uint256.Int `json:"price1CumulativeLast"`
	BlockTimestampLast   uint64       `json:"blockTimestampLast"`

	Fee   FeeState        `json:"feeState"`
	Flash FlashLoanConfig `json:"flashLoanConfig"`
}

// SortTokens returns the two addresses in canonical order (token0 < token1
// by byte comparison). Canonicalization normally happens in the factory; it
// is re-checked here because every downstream Side resolution depends on it.
func SortTokens(a, b common.Address) (common.Address, common.Address, error) {
	switch bytes.Compare(a.Bytes(), b.Bytes()) {
	case -1:
		return a, b, nil
	case 1:
		return b, a, nil
	default:
		return common.Address{}, common.Address{}, fmt.Errorf("%w: %s", ErrIdenticalTokens, a.Hex())
	}
}

// New creates an uninitialized pair (zero reserves, zero supply) with a
// validated fee configuration and canonically ordered tokens.
func New(id uint64, tokenA, tokenB common.Address, fee FeeState, flash FlashLoanConfig) (*Pair, error) {
	token0, token1, err := SortTokens(tokenA, tokenB)
	if err != nil {
		return nil, err
	}
	if err := fee.Validate(); err != nil {
		return nil, err
	}
	return &Pair{
		ID:                   id,
		Token0:               token0,
		Token1:               token1,
		Reserve0:             new(big.Int),
		Reserve1:             new(big.Int),
		TotalSupply:          new(big.Int),
		Price0CumulativeLast: new(uint256.Int),
		Price1CumulativeLast: new(uint256.Int),
		Fee:                  fee,
		Flash:                flash,
	}, nil
}

// SideOf resolves a token address to its side of the pair.
func (p *Pair) SideOf(token common.Address) (Side, error) {
	switch token {
	case p.Token0:
		return SideZero, nil
	case p.Token1:
		return SideOne, nil
	default:
		return 0, fmt.Errorf("%w: pair %d does not contain token %s", ErrTokenMismatch, p.ID, token.Hex())
	}
}

// TokenOf returns the token address on the given side.
func (p *Pair) TokenOf(s Side) common.Address {
	if s == SideZero {
		return p.Token0
	}
	return p.Token1
}

// Reserve returns the reserve on the given side. The caller must not mutate
// the returned value.
func (p *Pair) Reserve(s Side) *big.Int {
	if s == SideZero {
		return p.Reserve0
	}
	return p.Reserve1
}

func (p *Pair) setReserve(s Side, v *big.Int) {
	if s == SideZero {
		p.Reserve0 = v
	} else {
		p.Reserve1 = v
	}
}

// Initialized reports whether the pair has ever received a deposit.
// TotalSupply == 0 and zero reserves are equivalent by invariant.
func (p *Pair) Initialized() bool {
	return p.TotalSupply != nil && p.TotalSupply.Sign() > 0
}

// K returns the constant-product invariant reserve0*reserve1.
func (p *Pair) K() *big.Int {
	return new(big.Int).Mul(p.Reserve0, p.Reserve1)
}

// DeepCopy creates a Pair with its own memory for every pointer field, so
// the copy can be mutated without the source observing a half-applied state.
func (p Pair) DeepCopy() Pair {
	cp := p
	if p.Reserve0 != nil {
		cp.Reserve0 = new(big.Int).Set(p.Reserve0)
	}
	if p.Reserve1 != nil {
		cp.Reserve1 = new(big.Int).Set(p.Reserve1)
	}
	if p.TotalSupply != nil {
		cp.TotalSupply = new(big.Int).Set(p.TotalSupply)
	}
	if p.Price0CumulativeLast != nil {
		cp.Price0CumulativeLast = new(uint256.Int).Set(p.Price0CumulativeLast)
	}
	if p.Price1CumulativeLast != nil {
		cp.Price1CumulativeLast = new(uint256.Int).Set(p.Price1CumulativeLast)
	}
	return cp
}
