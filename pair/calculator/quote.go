package calculator

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Tianlin0725/coralswap-sdk/fixedpoint"
	"github.com/Tianlin0725/coralswap-sdk/pair"
)

// SwapQuote is an ephemeral exact-in quote. It is valid only against the
// snapshot it was computed from and only until Deadline; settlement must
// reject anything later with pair.ErrDeadlineExceeded.
type SwapQuote struct {
	PairID  uint64         `json:"pairId"`
	TokenIn common.Address `json:"tokenIn"`
	In      pair.Side      `json:"side"`

	AmountIn     *big.Int `json:"amountIn"`
	AmountOut    *big.Int `json:"amountOut"`
	AmountOutMin *big.Int `json:"amountOutMin"`

	FeeBps         uint16 `json:"feeBps"`
	PriceImpactBps uint16 `json:"priceImpactBps"`
	Deadline       uint64 `json:"deadline"`
}

// QuoteSwap produces an exact-in quote for selling amountIn of tokenIn
// against the snapshot p.
//
// AmountOutMin applies the caller's slippage tolerance:
// MulDiv(amountOut, 10000-slippageBps, 10000), equal to AmountOut only for a
// zero tolerance. PriceImpactBps measures the quote against the no-slippage
// reference idealOut = MulDiv(amountIn, reserveOut, reserveIn). Deadline is
// now + ttl in seconds.
func QuoteSwap(p pair.Pair, tokenIn common.Address, amountIn *big.Int, slippageBps uint16, ttl, now uint64) (*SwapQuote, error) {
	if !p.Initialized() {
		return nil, fmt.Errorf("%w: pair %d holds no reserves", pair.ErrPairNotFound, p.ID)
	}
	if slippageBps > pair.BpsDivisor {
		return nil, fmt.Errorf("%w: slippage tolerance %d bps above 100%%", pair.ErrSlippageExceeded, slippageBps)
	}
	in, err := p.SideOf(tokenIn)
	if err != nil {
		return nil, err
	}

	amountOut, err := GetAmountOut(amountIn, in, p)
	if err != nil {
		return nil, err
	}

	amountOutMin, err := fixedpoint.MulDiv(amountOut, big.NewInt(int64(pair.BpsDivisor-slippageBps)), basisPointDivisor)
	if err != nil {
		return nil, err
	}

	impact, err := priceImpactBps(amountIn, amountOut, p.Reserve(in), p.Reserve(in.Opposite()))
	if err != nil {
		return nil, err
	}

	return &SwapQuote{
		PairID:         p.ID,
		TokenIn:        tokenIn,
		In:             in,
		AmountIn:       new(big.Int).Set(amountIn),
		AmountOut:      amountOut,
		AmountOutMin:   amountOutMin,
		FeeBps:         p.Fee.CurrentFeeBps,
		PriceImpactBps: impact,
		Deadline:       now + ttl,
	}, nil
}

// priceImpactBps returns ((idealOut - amountOut) * 10000) / idealOut, the
// divergence of the quote from the marginal spot price. Zero when either
// reserve is zero.
func priceImpactBps(amountIn, amountOut, reserveIn, reserveOut *big.Int) (uint16, error) {
	if reserveIn.Sign() == 0 || reserveOut.Sign() == 0 {
		return 0, nil
	}
	idealOut, err := fixedpoint.MulDiv(amountIn, reserveOut, reserveIn)
	if err != nil {
		return 0, err
	}
	if idealOut.Sign() == 0 {
		return 0, nil
	}
	shortfall := new(big.Int).Sub(idealOut, amountOut)
	if shortfall.Sign() <= 0 {
		return 0, nil
	}
	impact, err := fixedpoint.MulDiv(shortfall, basisPointDivisor, idealOut)
	if err != nil {
		return 0, err
	}
	// bounded by 10000 since amountOut >= 0
	return uint16(impact.Uint64()), nil
}

// QuoteFlashLoan prices a flash borrow of amount from side in. It fails with
// pair.ErrFlashLoansDisabled while the pair is locked and with
// pair.ErrInsufficientLiquidity when the principal would drain the reserve.
func QuoteFlashLoan(p pair.Pair, in pair.Side, amount *big.Int) (*big.Int, error) {
	if p.Flash.Locked {
		return nil, fmt.Errorf("%w: pair %d", pair.ErrFlashLoansDisabled, p.ID)
	}
	if !p.Initialized() {
		return nil, fmt.Errorf("%w: pair %d holds no reserves", pair.ErrPairNotFound, p.ID)
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, pair.ErrInsufficientInputAmount
	}
	if amount.Cmp(p.Reserve(in)) >= 0 {
		return nil, fmt.Errorf("%w: borrow %s >= reserve %s", pair.ErrInsufficientLiquidity, amount, p.Reserve(in))
	}
	return p.Flash.FeeOn(amount)
}
