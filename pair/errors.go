package pair

import (
	"errors"

	"github.com/Tianlin0725/coralswap-sdk/fixedpoint"
)

// Every failure a caller can observe is distinguishable by kind so it can
// decide whether to re-quote (ErrSlippageExceeded, ErrDeadlineExceeded) or
// abandon (ErrPairNotFound, ErrFlashLoansDisabled). All of them are terminal
// for the operation that raised them; the core never retries internally.
var (
	// ErrArithmeticOverflow is returned when a result exceeds the 256-bit ledger word.
	ErrArithmeticOverflow = fixedpoint.ErrArithmeticOverflow
	// ErrDivisionByZero is returned when a denominator is zero.
	ErrDivisionByZero = fixedpoint.ErrDivisionByZero
	// ErrPairNotFound is returned when no reserves exist for the requested pair.
	ErrPairNotFound = errors.New("pair not found")
	// ErrInsufficientLiquidity is returned when the reserves cannot satisfy any positive output.
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
	// ErrInsufficientInputAmount is returned when a swap input is zero or negative.
	ErrInsufficientInputAmount = errors.New("insufficient input amount")
	// ErrInsufficientInitialLiquidity is returned when a bootstrap deposit mints fewer shares than MinimumLiquidity.
	ErrInsufficientInitialLiquidity = errors.New("insufficient initial liquidity")
	// ErrSlippageExceeded is returned when a realized amount falls outside a caller-supplied bound.
	ErrSlippageExceeded = errors.New("slippage exceeded")
	// ErrInvalidFeeConfig is returned when fee bounds or the EMA weight are inconsistent.
	ErrInvalidFeeConfig = errors.New("invalid fee config")
	// ErrFlashLoansDisabled is returned when a flash borrow is attempted against a locked pair.
	ErrFlashLoansDisabled = errors.New("flash loans disabled")
	// ErrInsufficientBalance is returned when a withdrawal exceeds the holder's recorded LP balance.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrDeadlineExceeded is returned when a quote is executed past its deadline.
	ErrDeadlineExceeded = errors.New("deadline exceeded")
	// ErrStaleTimestamp is returned when a settlement timestamp precedes the pair's last update.
	ErrStaleTimestamp = errors.New("stale timestamp")
	// ErrTokenMismatch is returned when a token does not belong to the pair.
	ErrTokenMismatch = errors.New("token mismatch")
	// ErrIdenticalTokens is returned when a pair is created from a single token.
	ErrIdenticalTokens = errors.New("identical tokens")
)
