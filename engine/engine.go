// Package engine serializes mutations against replicated pair state. Each
// pair is one linearizable resource: a mutation takes the pair's lock,
// replays the full transition (oracle, reserves, fee) on a private deep copy
// and commits the copy atomically, so readers can never observe a
// partially-updated pair. Distinct pairs mutate fully in parallel.
//
// Reads serve from an atomically published snapshot and are advisory by
// construction: between a quote and its settlement, concurrent mutations may
// move the reserves, which is why quotes carry minimum-amount guards and a
// deadline instead of exact promises.
package engine

import (
	"errors"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Tianlin0725/coralswap-sdk/pair"
	"github.com/Tianlin0725/coralswap-sdk/pair/calculator"
)

// Config holds the engine's collaborators.
type Config struct {
	Directory Directory
	Balances  ShareBalanceSource
	Logger    Logger
	Registry  prometheus.Registerer

	// Clock is optional; it defaults to the wall clock and only feeds quote
	// deadlines.
	Clock Clock
}

func (c *Config) validate() error {
	if c.Directory == nil {
		return errors.New("config: Directory is required")
	}
	if c.Balances == nil {
		return errors.New("config: Balances is required")
	}
	if c.Logger == nil {
		return errors.New("config: Logger is required")
	}
	if c.Registry == nil {
		return errors.New("config: Registry is required")
	}
	return nil
}

// pairSlot is the unit of serialization: mu guards mutations, view holds the
// immutable snapshot served to readers.
type pairSlot struct {
	mu   sync.Mutex
	view atomic.Pointer[pair.Pair]
}

func (s *pairSlot) snapshot() pair.Pair {
	return s.view.Load().DeepCopy()
}

// commit publishes a mutated copy. Must be called with s.mu held.
func (s *pairSlot) commit(p *pair.Pair) {
	s.view.Store(p)
}

// PairEngine is the synchronous interface through which the quoting and
// settlement collaborators consume the core.
type PairEngine struct {
	directory Directory
	balances  ShareBalanceSource
	logger    Logger
	metrics   *Metrics
	clock     Clock

	mu    sync.RWMutex
	pairs map[uint64]*pairSlot
}

// New creates a PairEngine with no registered pairs.
func New(cfg Config) (*PairEngine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	clock := cfg.Clock
	if clock == nil {
		clock = func() uint64 { return uint64(time.Now().Unix()) }
	}
	return &PairEngine{
		directory: cfg.Directory,
		balances:  cfg.Balances,
		logger:    cfg.Logger,
		metrics:   NewMetrics(cfg.Registry),
		clock:     clock,
		pairs:     make(map[uint64]*pairSlot),
	}, nil
}

// RegisterPair admits an uninitialized pair under the identifier the factory
// assigned to it. The engine trusts but re-checks the canonical token order.
func (e *PairEngine) RegisterPair(id uint64, tokenA, tokenB common.Address, fee pair.FeeState, flash pair.FlashLoanConfig) error {
	p, err := pair.New(id, tokenA, tokenB, fee, flash)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.pairs[id]; exists {
		return fmt.Errorf("pair %d already registered", id)
	}
	slot := &pairSlot{}
	slot.view.Store(p)
	e.pairs[id] = slot
	e.logger.Info("pair registered", "pair_id", id, "token0", p.Token0.Hex(), "token1", p.Token1.Hex())
	return nil
}

func (e *PairEngine) slot(pairID uint64) (*pairSlot, error) {
	e.mu.RLock()
	slot, ok := e.pairs[pairID]
	e.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: id %d", pair.ErrPairNotFound, pairID)
	}
	return slot, nil
}

// Snapshot returns a deep copy of the pair's current state.
func (e *PairEngine) Snapshot(pairID uint64) (pair.Pair, error) {
	slot, err := e.slot(pairID)
	if err != nil {
		return pair.Pair{}, err
	}
	return slot.snapshot(), nil
}

// Pairs returns a deep-copied snapshot of every registered pair.
func (e *PairEngine) Pairs() []pair.Pair {
	e.mu.RLock()
	defer e.mu.RUnlock()
	all := make([]pair.Pair, 0, len(e.pairs))
	for _, slot := range e.pairs {
		all = append(all, slot.snapshot())
	}
	return all
}

// Lookup resolves a token pair through the injected directory.
func (e *PairEngine) Lookup(tokenA, tokenB common.Address) (uint64, error) {
	id, ok := e.directory.PairFor(tokenA, tokenB)
	if !ok {
		return 0, fmt.Errorf("%w: no pair for %s/%s", pair.ErrPairNotFound, tokenA.Hex(), tokenB.Hex())
	}
	return id, nil
}

// --- Read interface ---

// GetReserves returns the current reserves in canonical order.
func (e *PairEngine) GetReserves(pairID uint64) (reserve0, reserve1 *big.Int, err error) {
	p, err := e.Snapshot(pairID)
	if err != nil {
		return nil, nil, err
	}
	return p.Reserve0, p.Reserve1, nil
}

// GetFeeState returns the pair's dynamic fee state.
func (e *PairEngine) GetFeeState(pairID uint64) (pair.FeeState, error) {
	p, err := e.Snapshot(pairID)
	if err != nil {
		return pair.FeeState{}, err
	}
	return p.Fee, nil
}

// GetFlashLoanConfig returns the pair's flash-borrow policy.
func (e *PairEngine) GetFlashLoanConfig(pairID uint64) (pair.FlashLoanConfig, error) {
	p, err := e.Snapshot(pairID)
	if err != nil {
		return pair.FlashLoanConfig{}, err
	}
	return p.Flash, nil
}

// GetCumulativePrices returns the oracle accumulators and their update time.
// A single sample is not a price: difference two samples and divide by the
// elapsed time (pair.TWAP) to obtain one.
func (e *PairEngine) GetCumulativePrices(pairID uint64) (price0, price1 *uint256.Int, blockTimestampLast uint64, err error) {
	p, err := e.Snapshot(pairID)
	if err != nil {
		return nil, nil, 0, err
	}
	return p.Price0CumulativeLast, p.Price1CumulativeLast, p.BlockTimestampLast, nil
}

// QuoteSwap produces an advisory exact-in quote with a deadline of ttl
// seconds from now.
func (e *PairEngine) QuoteSwap(pairID uint64, tokenIn common.Address, amountIn *big.Int, slippageBps uint16, ttl uint64) (*calculator.SwapQuote, error) {
	p, err := e.Snapshot(pairID)
	if err != nil {
		return nil, err
	}
	return calculator.QuoteSwap(p, tokenIn, amountIn, slippageBps, ttl, e.clock())
}

// QuoteAddLiquidity produces an advisory paired-deposit quote in canonical
// token order. A nil amount1Desired leaves side one unconstrained.
func (e *PairEngine) QuoteAddLiquidity(pairID uint64, amount0Desired, amount1Desired *big.Int) (*calculator.LiquidityQuote, error) {
	p, err := e.Snapshot(pairID)
	if err != nil {
		return nil, err
	}
	return calculator.QuoteAddLiquidity(p, amount0Desired, amount1Desired)
}

// Position derives a holder's claim on the reserves from the external share
// ledger.
func (e *PairEngine) Position(pairID uint64, holder common.Address) (amount0, amount1 *big.Int, shareBps uint16, err error) {
	balance, err := e.balances.BalanceOf(pairID, holder)
	if err != nil {
		return nil, nil, 0, err
	}
	p, err := e.Snapshot(pairID)
	if err != nil {
		return nil, nil, 0, err
	}
	return calculator.PositionValue(p, balance)
}

// --- Mutation interface ---
//
// The settlement collaborator supplies the commit timestamp and, when its
// metering produced one, a fee signal. A zero deadline means none was
// quoted.

func checkDeadline(deadline, timestamp uint64) error {
	if deadline != 0 && timestamp > deadline {
		return fmt.Errorf("%w: deadline %d, settled at %d", pair.ErrDeadlineExceeded, deadline, timestamp)
	}
	return nil
}

// ExecuteSwap settles an exact-in swap. The quote's AmountOutMin and
// Deadline guard the execution: a realized output under the minimum fails
// with ErrSlippageExceeded, a late settlement with ErrDeadlineExceeded, and
// in both cases the pair state is untouched.
func (e *PairEngine) ExecuteSwap(pairID uint64, tokenIn common.Address, amountIn, amountOutMin *big.Int, deadline, timestamp uint64, feeSignal *uint16) (result *SwapResult, err error) {
	defer func() { e.metrics.observe("swap", err) }()
	slot, err := e.slot(pairID)
	if err != nil {
		return nil, err
	}

	slot.mu.Lock()
	defer slot.mu.Unlock()
	timer := prometheus.NewTimer(e.metrics.mutationDuration.WithLabelValues("swap"))
	defer timer.ObserveDuration()

	if err = checkDeadline(deadline, timestamp); err != nil {
		return nil, err
	}

	next := slot.snapshot()
	in, err := next.SideOf(tokenIn)
	if err != nil {
		return nil, err
	}
	feeBps := next.Fee.CurrentFeeBps
	amountOut, err := next.ApplySwap(in, amountIn, timestamp, feeSignal)
	if err != nil {
		return nil, err
	}
	if amountOutMin != nil && amountOut.Cmp(amountOutMin) < 0 {
		return nil, fmt.Errorf("%w: out %s under minimum %s", pair.ErrSlippageExceeded, amountOut, amountOutMin)
	}

	slot.commit(&next)
	e.logger.Debug("swap settled",
		"pair_id", pairID, "side", in.String(),
		"amount_in", amountIn.String(), "amount_out", amountOut.String(),
		"fee_bps", feeBps, "timestamp", timestamp,
	)
	return &SwapResult{
		PairID:    pairID,
		TokenIn:   tokenIn,
		AmountIn:  new(big.Int).Set(amountIn),
		AmountOut: amountOut,
		FeeBps:    feeBps,
	}, nil
}

// ExecuteAddLiquidity settles a paired deposit. The binding amounts are
// re-derived from the pool ratio inside the critical section; amounts under
// the caller's minimums fail with ErrSlippageExceeded before anything
// mutates.
func (e *PairEngine) ExecuteAddLiquidity(pairID uint64, amount0Desired, amount1Desired, amount0Min, amount1Min *big.Int, deadline, timestamp uint64, feeSignal *uint16) (result *AddLiquidityResult, err error) {
	defer func() { e.metrics.observe("add_liquidity", err) }()
	slot, err := e.slot(pairID)
	if err != nil {
		return nil, err
	}

	slot.mu.Lock()
	defer slot.mu.Unlock()
	timer := prometheus.NewTimer(e.metrics.mutationDuration.WithLabelValues("add_liquidity"))
	defer timer.ObserveDuration()

	if err = checkDeadline(deadline, timestamp); err != nil {
		return nil, err
	}

	next := slot.snapshot()
	quote, err := calculator.QuoteAddLiquidity(next, amount0Desired, amount1Desired)
	if err != nil {
		return nil, err
	}
	if amount0Min != nil && quote.Amount0.Cmp(amount0Min) < 0 {
		return nil, fmt.Errorf("%w: amount0 %s under minimum %s", pair.ErrSlippageExceeded, quote.Amount0, amount0Min)
	}
	if amount1Min != nil && quote.Amount1.Cmp(amount1Min) < 0 {
		return nil, fmt.Errorf("%w: amount1 %s under minimum %s", pair.ErrSlippageExceeded, quote.Amount1, amount1Min)
	}

	minted, err := next.ApplyDeposit(quote.Amount0, quote.Amount1, timestamp, feeSignal)
	if err != nil {
		return nil, err
	}

	slot.commit(&next)
	e.logger.Debug("deposit settled",
		"pair_id", pairID,
		"amount0", quote.Amount0.String(), "amount1", quote.Amount1.String(),
		"lp_minted", minted.String(), "timestamp", timestamp,
	)
	return &AddLiquidityResult{
		PairID:   pairID,
		Amount0:  quote.Amount0,
		Amount1:  quote.Amount1,
		LPMinted: minted,
	}, nil
}

// ExecuteRemoveLiquidity settles a burn of lpAmount shares held by holder.
// The holder's balance is read from the external share ledger; burning more
// than the recorded balance fails with ErrInsufficientBalance.
func (e *PairEngine) ExecuteRemoveLiquidity(pairID uint64, holder common.Address, lpAmount, amount0Min, amount1Min *big.Int, deadline, timestamp uint64, feeSignal *uint16) (result *RemoveLiquidityResult, err error) {
	defer func() { e.metrics.observe("remove_liquidity", err) }()
	slot, err := e.slot(pairID)
	if err != nil {
		return nil, err
	}

	slot.mu.Lock()
	defer slot.mu.Unlock()
	timer := prometheus.NewTimer(e.metrics.mutationDuration.WithLabelValues("remove_liquidity"))
	defer timer.ObserveDuration()

	if err = checkDeadline(deadline, timestamp); err != nil {
		return nil, err
	}
	if lpAmount == nil || lpAmount.Sign() <= 0 {
		return nil, pair.ErrInsufficientInputAmount
	}

	balance, err := e.balances.BalanceOf(pairID, holder)
	if err != nil {
		return nil, err
	}
	if balance == nil || lpAmount.Cmp(balance) > 0 {
		return nil, fmt.Errorf("%w: burn %s exceeds balance", pair.ErrInsufficientBalance, lpAmount)
	}

	next := slot.snapshot()
	amount0, amount1, err := next.ApplyWithdraw(lpAmount, timestamp, feeSignal)
	if err != nil {
		return nil, err
	}
	if amount0Min != nil && amount0.Cmp(amount0Min) < 0 {
		return nil, fmt.Errorf("%w: amount0 %s under minimum %s", pair.ErrSlippageExceeded, amount0, amount0Min)
	}
	if amount1Min != nil && amount1.Cmp(amount1Min) < 0 {
		return nil, fmt.Errorf("%w: amount1 %s under minimum %s", pair.ErrSlippageExceeded, amount1, amount1Min)
	}

	slot.commit(&next)
	e.logger.Debug("burn settled",
		"pair_id", pairID, "holder", holder.Hex(),
		"amount0", amount0.String(), "amount1", amount1.String(),
		"lp_burned", lpAmount.String(), "timestamp", timestamp,
	)
	return &RemoveLiquidityResult{
		PairID:   pairID,
		Amount0:  amount0,
		Amount1:  amount1,
		LPBurned: new(big.Int).Set(lpAmount),
	}, nil
}

// ExecuteFlashLoan settles a completed flash borrow: principal out and back
// plus fee within one atomic settlement, leaving the fee in the reserves.
func (e *PairEngine) ExecuteFlashLoan(pairID uint64, tokenBorrowed common.Address, amount *big.Int, timestamp uint64, feeSignal *uint16) (result *FlashLoanResult, err error) {
	defer func() { e.metrics.observe("flash_loan", err) }()
	slot, err := e.slot(pairID)
	if err != nil {
		return nil, err
	}

	slot.mu.Lock()
	defer slot.mu.Unlock()
	timer := prometheus.NewTimer(e.metrics.mutationDuration.WithLabelValues("flash_loan"))
	defer timer.ObserveDuration()

	next := slot.snapshot()
	in, err := next.SideOf(tokenBorrowed)
	if err != nil {
		return nil, err
	}
	fee, err := next.ApplyFlashRepay(in, amount, timestamp, feeSignal)
	if err != nil {
		return nil, err
	}

	slot.commit(&next)
	e.logger.Debug("flash loan settled",
		"pair_id", pairID, "side", in.String(),
		"amount", amount.String(), "fee", fee.String(), "timestamp", timestamp,
	)
	return &FlashLoanResult{
		PairID: pairID,
		Amount: new(big.Int).Set(amount),
		Fee:    fee,
	}, nil
}
