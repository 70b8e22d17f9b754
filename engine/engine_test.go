package engine

import (
	"io"
	"log/slog"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tianlin0725/coralswap-sdk/pair"
)

var (
	tokenA = common.HexToAddress("0x1111111111111111111111111111111111111111")
	tokenB = common.HexToAddress("0x2222222222222222222222222222222222222222")
	lpHold = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
)

// mockDirectory resolves token pairs from a fixed map keyed by canonical
// order.
type mockDirectory struct {
	pairs map[[2]common.Address]uint64
}

func (d *mockDirectory) PairFor(tokenA, tokenB common.Address) (uint64, bool) {
	t0, t1, err := pair.SortTokens(tokenA, tokenB)
	if err != nil {
		return 0, false
	}
	id, ok := d.pairs[[2]common.Address{t0, t1}]
	return id, ok
}

// mockBalances serves LP share balances from a fixed map.
type mockBalances struct {
	balances map[common.Address]*big.Int
}

func (b *mockBalances) BalanceOf(pairID uint64, holder common.Address) (*big.Int, error) {
	if bal, ok := b.balances[holder]; ok {
		return bal, nil
	}
	return big.NewInt(0), nil
}

func testFee() pair.FeeState {
	return pair.FeeState{CurrentFeeBps: 30, FeeMin: 5, FeeMax: 100, BaselineFeeBps: 30, EmaAlpha: 2000}
}

func testEngine(t *testing.T, balances map[common.Address]*big.Int) *PairEngine {
	t.Helper()
	directory := &mockDirectory{pairs: map[[2]common.Address]uint64{
		{tokenA, tokenB}: 1,
	}}
	eng, err := New(Config{
		Directory: directory,
		Balances:  &mockBalances{balances: balances},
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Registry:  prometheus.NewRegistry(),
		Clock:     func() uint64 { return 1_700_000_000 },
	})
	require.NoError(t, err)
	require.NoError(t, eng.RegisterPair(1, tokenA, tokenB, testFee(), pair.FlashLoanConfig{FlashFeeBps: 9, FlashFeeFloorBps: 5}))
	return eng
}

// seedLiquidity bootstraps pair 1 with 10e9/10e9 reserves.
func seedLiquidity(t *testing.T, eng *PairEngine) *big.Int {
	t.Helper()
	result, err := eng.ExecuteAddLiquidity(1, big.NewInt(10_000_000_000), big.NewInt(10_000_000_000), nil, nil, 0, 50, nil)
	require.NoError(t, err)
	return result.LPMinted
}

func TestNewValidatesConfig(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)

	_, err = New(Config{Directory: &mockDirectory{}, Balances: &mockBalances{}, Logger: slog.Default()})
	require.Error(t, err, "missing registry must be rejected")
}

func TestRegisterPair(t *testing.T) {
	eng := testEngine(t, nil)

	t.Run("duplicate id rejected", func(t *testing.T) {
		err := eng.RegisterPair(1, tokenA, tokenB, testFee(), pair.FlashLoanConfig{})
		require.Error(t, err)
	})

	t.Run("invalid fee rejected", func(t *testing.T) {
		fee := testFee()
		fee.EmaAlpha = 0
		err := eng.RegisterPair(2, tokenA, tokenB, fee, pair.FlashLoanConfig{})
		require.Error(t, err)
		assert.ErrorIs(t, err, pair.ErrInvalidFeeConfig)
	})

	t.Run("lookup through the directory", func(t *testing.T) {
		id, err := eng.Lookup(tokenB, tokenA)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), id)

		_, err = eng.Lookup(tokenA, lpHold)
		require.Error(t, err)
		assert.ErrorIs(t, err, pair.ErrPairNotFound)
	})
}

func TestExecuteSwap(t *testing.T) {
	t.Run("settles and moves the reserves", func(t *testing.T) {
		eng := testEngine(t, nil)
		seedLiquidity(t, eng)

		result, err := eng.ExecuteSwap(1, tokenA, big.NewInt(1_000_000), big.NewInt(996_900), 0, 100, nil)
		require.NoError(t, err)
		assert.Zero(t, result.AmountOut.Cmp(big.NewInt(996_900)))
		assert.Equal(t, uint16(30), result.FeeBps)

		reserve0, reserve1, err := eng.GetReserves(1)
		require.NoError(t, err)
		assert.Zero(t, reserve0.Cmp(big.NewInt(10_001_000_000)))
		assert.Zero(t, reserve1.Cmp(big.NewInt(9_999_003_100)))
	})

	t.Run("slippage guard rolls back", func(t *testing.T) {
		eng := testEngine(t, nil)
		seedLiquidity(t, eng)

		_, err := eng.ExecuteSwap(1, tokenA, big.NewInt(1_000_000), big.NewInt(996_901), 0, 100, nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, pair.ErrSlippageExceeded)

		// A failed settlement must not leak any partial state, the oracle
		// clock included.
		p, err := eng.Snapshot(1)
		require.NoError(t, err)
		assert.Zero(t, p.Reserve0.Cmp(big.NewInt(10_000_000_000)))
		assert.Equal(t, uint64(50), p.BlockTimestampLast)
	})

	t.Run("deadline guard", func(t *testing.T) {
		eng := testEngine(t, nil)
		seedLiquidity(t, eng)

		_, err := eng.ExecuteSwap(1, tokenA, big.NewInt(1_000_000), nil, 99, 100, nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, pair.ErrDeadlineExceeded)
	})

	t.Run("fee signal advances the dynamic fee", func(t *testing.T) {
		eng := testEngine(t, nil)
		seedLiquidity(t, eng)

		signal := uint16(100)
		_, err := eng.ExecuteSwap(1, tokenA, big.NewInt(1_000_000), nil, 0, 100, &signal)
		require.NoError(t, err)

		fee, err := eng.GetFeeState(1)
		require.NoError(t, err)
		assert.Equal(t, uint16(44), fee.CurrentFeeBps)
	})

	t.Run("unknown pair", func(t *testing.T) {
		eng := testEngine(t, nil)

		_, err := eng.ExecuteSwap(42, tokenA, big.NewInt(1), nil, 0, 100, nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, pair.ErrPairNotFound)
	})
}

func TestExecuteAddLiquidity(t *testing.T) {
	t.Run("bootstrap then ratio-matched deposit", func(t *testing.T) {
		eng := testEngine(t, nil)
		minted := seedLiquidity(t, eng)
		assert.Zero(t, minted.Cmp(big.NewInt(10_000_000_000)))

		// Desired side one exceeds the ratio; the engine trims it.
		result, err := eng.ExecuteAddLiquidity(1, big.NewInt(1_000_000), big.NewInt(5_000_000), nil, nil, 0, 100, nil)
		require.NoError(t, err)
		assert.Zero(t, result.Amount0.Cmp(big.NewInt(1_000_000)))
		assert.Zero(t, result.Amount1.Cmp(big.NewInt(1_000_000)))
		assert.Zero(t, result.LPMinted.Cmp(big.NewInt(1_000_000)))
	})

	t.Run("minimum guard rolls back", func(t *testing.T) {
		eng := testEngine(t, nil)
		seedLiquidity(t, eng)

		// Side one will be trimmed to 1_000_000, under the 2_000_000 minimum.
		_, err := eng.ExecuteAddLiquidity(1, big.NewInt(1_000_000), big.NewInt(5_000_000), nil, big.NewInt(2_000_000), 0, 100, nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, pair.ErrSlippageExceeded)

		p, err := eng.Snapshot(1)
		require.NoError(t, err)
		assert.Zero(t, p.TotalSupply.Cmp(big.NewInt(10_000_000_000)))
	})

	t.Run("bootstrap under the share floor rejected", func(t *testing.T) {
		eng := testEngine(t, nil)

		_, err := eng.ExecuteAddLiquidity(1, big.NewInt(999), big.NewInt(999), nil, nil, 0, 100, nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, pair.ErrInsufficientInitialLiquidity)
	})
}

func TestExecuteRemoveLiquidity(t *testing.T) {
	t.Run("burn gated by the share ledger", func(t *testing.T) {
		eng := testEngine(t, map[common.Address]*big.Int{
			lpHold: big.NewInt(2_000_000_000),
		})
		seedLiquidity(t, eng)

		result, err := eng.ExecuteRemoveLiquidity(1, lpHold, big.NewInt(2_000_000_000), nil, nil, 0, 100, nil)
		require.NoError(t, err)
		assert.Zero(t, result.Amount0.Cmp(big.NewInt(2_000_000_000)))
		assert.Zero(t, result.Amount1.Cmp(big.NewInt(2_000_000_000)))

		p, err := eng.Snapshot(1)
		require.NoError(t, err)
		assert.Zero(t, p.TotalSupply.Cmp(big.NewInt(8_000_000_000)))
	})

	t.Run("burn above recorded balance rejected", func(t *testing.T) {
		eng := testEngine(t, map[common.Address]*big.Int{
			lpHold: big.NewInt(1_000),
		})
		seedLiquidity(t, eng)

		_, err := eng.ExecuteRemoveLiquidity(1, lpHold, big.NewInt(2_000), nil, nil, 0, 100, nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, pair.ErrInsufficientBalance)
	})

	t.Run("holder with no balance rejected", func(t *testing.T) {
		eng := testEngine(t, nil)
		seedLiquidity(t, eng)

		_, err := eng.ExecuteRemoveLiquidity(1, lpHold, big.NewInt(1_000), nil, nil, 0, 100, nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, pair.ErrInsufficientBalance)
	})
}

func TestExecuteFlashLoan(t *testing.T) {
	t.Run("fee stays in the borrowed reserve", func(t *testing.T) {
		eng := testEngine(t, nil)
		seedLiquidity(t, eng)

		result, err := eng.ExecuteFlashLoan(1, tokenA, big.NewInt(1_000_000), 100, nil)
		require.NoError(t, err)
		assert.Zero(t, result.Fee.Cmp(big.NewInt(900)))

		reserve0, _, err := eng.GetReserves(1)
		require.NoError(t, err)
		assert.Zero(t, reserve0.Cmp(big.NewInt(10_000_000_900)))
	})

	t.Run("locked pair rejected", func(t *testing.T) {
		eng := testEngine(t, nil)
		require.NoError(t, eng.RegisterPair(2, tokenA, tokenB, testFee(), pair.FlashLoanConfig{FlashFeeBps: 9, Locked: true}))

		_, err := eng.ExecuteFlashLoan(2, tokenA, big.NewInt(1), 100, nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, pair.ErrFlashLoansDisabled)
	})
}

func TestQuoteSwapUsesClock(t *testing.T) {
	eng := testEngine(t, nil)
	seedLiquidity(t, eng)

	quote, err := eng.QuoteSwap(1, tokenA, big.NewInt(1_000_000), 50, 30)
	require.NoError(t, err)
	assert.Zero(t, quote.AmountOut.Cmp(big.NewInt(996_900)))
	assert.Zero(t, quote.AmountOutMin.Cmp(big.NewInt(991_915)))
	assert.Equal(t, uint64(1_700_000_030), quote.Deadline)
}

func TestGetCumulativePrices(t *testing.T) {
	eng := testEngine(t, nil)
	seedLiquidity(t, eng) // timestamp 50

	// First mutation after the bootstrap folds 50 seconds of the 1:1 price
	// into the accumulators.
	_, err := eng.ExecuteSwap(1, tokenA, big.NewInt(1_000_000), nil, 0, 100, nil)
	require.NoError(t, err)

	price0, price1, last, err := eng.GetCumulativePrices(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), last)
	assert.True(t, price0.Eq(price1), "1:1 reserves must accumulate symmetrically")
	assert.False(t, price0.IsZero())

	earlier := price0.Clone()
	_, err = eng.ExecuteSwap(1, tokenA, big.NewInt(1_000_000), nil, 0, 160, nil)
	require.NoError(t, err)

	later, _, _, err := eng.GetCumulativePrices(1)
	require.NoError(t, err)

	twap, err := pair.TWAP(earlier, later, 60)
	require.NoError(t, err)
	assert.False(t, twap.IsZero())
}

// TestSnapshotIsolation verifies a read taken before a settlement never
// observes the settlement's effects.
func TestSnapshotIsolation(t *testing.T) {
	eng := testEngine(t, nil)
	seedLiquidity(t, eng)

	before, err := eng.Snapshot(1)
	require.NoError(t, err)

	_, err = eng.ExecuteSwap(1, tokenA, big.NewInt(1_000_000), nil, 0, 100, nil)
	require.NoError(t, err)

	assert.Zero(t, before.Reserve0.Cmp(big.NewInt(10_000_000_000)), "pre-settlement snapshot mutated")
}

// TestConcurrentSwaps hammers one pair from many goroutines and checks the
// serialized outcome: every settlement admitted, constant product never
// decreased, reserve deltas sum exactly.
func TestConcurrentSwaps(t *testing.T) {
	eng := testEngine(t, nil)
	seedLiquidity(t, eng)

	const workers = 16
	const swapsPerWorker = 25

	totalIn := new(big.Int)
	totalOut := new(big.Int)
	var tally sync.Mutex

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < swapsPerWorker; i++ {
				result, err := eng.ExecuteSwap(1, tokenA, big.NewInt(10_000), nil, 0, 1_000, nil)
				if err != nil {
					t.Error(err)
					return
				}
				tally.Lock()
				totalIn.Add(totalIn, result.AmountIn)
				totalOut.Add(totalOut, result.AmountOut)
				tally.Unlock()
			}
		}()
	}
	wg.Wait()

	reserve0, reserve1, err := eng.GetReserves(1)
	require.NoError(t, err)
	assert.Zero(t, reserve0.Cmp(new(big.Int).Add(big.NewInt(10_000_000_000), totalIn)))
	assert.Zero(t, reserve1.Cmp(new(big.Int).Sub(big.NewInt(10_000_000_000), totalOut)))

	k := new(big.Int).Mul(reserve0, reserve1)
	k0 := new(big.Int).Mul(big.NewInt(10_000_000_000), big.NewInt(10_000_000_000))
	assert.True(t, k.Cmp(k0) >= 0, "constant product decreased under concurrency")
}
