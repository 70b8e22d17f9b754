package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/big"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Tianlin0725/coralswap-sdk/engine"
	"github.com/Tianlin0725/coralswap-sdk/pair"
)

// --- VISUAL CONSTANTS ---
const (
	Reset  = "\033[0m"
	Bold   = "\033[1m"
	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Cyan   = "\033[36m"
	Gray   = "\033[37m"
)

// header prints a styled section header
func header(title string) {
	fmt.Println("\n" + Bold + Cyan + ":: " + title + " ::" + Reset)
}

// trader is the single local account the console settles everything against.
var trader = common.HexToAddress("0x00000000000000000000000000000000c0ffee01")

// localDirectory is an in-memory pair directory keyed by canonical order.
type localDirectory struct {
	mu    sync.RWMutex
	pairs map[[2]common.Address]uint64
}

func (d *localDirectory) PairFor(tokenA, tokenB common.Address) (uint64, bool) {
	token0, token1, err := pair.SortTokens(tokenA, tokenB)
	if err != nil {
		return 0, false
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	id, ok := d.pairs[[2]common.Address{token0, token1}]
	return id, ok
}

func (d *localDirectory) add(id uint64, tokenA, tokenB common.Address) {
	token0, token1, err := pair.SortTokens(tokenA, tokenB)
	if err != nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pairs[[2]common.Address{token0, token1}] = id
}

// localBalances is an in-memory LP share ledger. The engine only reads it;
// the console credits and debits it as settlements succeed.
type localBalances struct {
	mu       sync.RWMutex
	balances map[uint64]map[common.Address]*big.Int
}

func (b *localBalances) BalanceOf(pairID uint64, holder common.Address) (*big.Int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if holders, ok := b.balances[pairID]; ok {
		if bal, ok := holders[holder]; ok {
			return new(big.Int).Set(bal), nil
		}
	}
	return new(big.Int), nil
}

func (b *localBalances) credit(pairID uint64, holder common.Address, amount *big.Int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.balances[pairID] == nil {
		b.balances[pairID] = make(map[common.Address]*big.Int)
	}
	bal := b.balances[pairID][holder]
	if bal == nil {
		bal = new(big.Int)
	}
	b.balances[pairID][holder] = new(big.Int).Add(bal, amount)
}

func (b *localBalances) debit(pairID uint64, holder common.Address, amount *big.Int) {
	b.credit(pairID, holder, new(big.Int).Neg(amount))
}

// demo tokens
var (
	tokenCORAL = common.HexToAddress("0x1111111111111111111111111111111111111111")
	tokenUSD   = common.HexToAddress("0x2222222222222222222222222222222222222222")
	tokenWETH  = common.HexToAddress("0x3333333333333333333333333333333333333333")

	tokenNames = map[common.Address]string{
		tokenCORAL: "CORAL",
		tokenUSD:   "USD",
		tokenWETH:  "WETH",
	}
)

func tokenName(addr common.Address) string {
	if name, ok := tokenNames[addr]; ok {
		return name
	}
	return addr.Hex()[:10]
}

func main() {
	logPath := flag.String("log", "console.log", "Path to the log file.")
	flag.Parse()

	logFile, err := os.OpenFile(*logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		panic(fmt.Sprintf("Failed to open log file: %v", err))
	}
	defer logFile.Close()

	rootLogger := slog.New(slog.NewJSONHandler(logFile, nil))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	directory := &localDirectory{pairs: make(map[[2]common.Address]uint64)}
	balances := &localBalances{balances: make(map[uint64]map[common.Address]*big.Int)}

	eng, err := engine.New(engine.Config{
		Directory: directory,
		Balances:  balances,
		Logger:    rootLogger.With("component", "engine"),
		Registry:  prometheus.DefaultRegisterer,
	})
	if err != nil {
		fmt.Println(Red + "Failed to initialize engine: " + err.Error() + Reset)
		os.Exit(1)
	}

	if err := seedDemoPairs(eng, directory, balances); err != nil {
		fmt.Println(Red + "Failed to seed demo pairs: " + err.Error() + Reset)
		os.Exit(1)
	}

	fmt.Println(Green + "Starting CoralSwap Console..." + Reset)
	fmt.Printf("Logs are being written to %q\n", *logPath)
	runConsole(ctx, eng, balances)
}

// seedDemoPairs registers two pairs and bootstraps their liquidity so every
// menu action has something to act on.
func seedDemoPairs(eng *engine.PairEngine, directory *localDirectory, balances *localBalances) error {
	fee := pair.FeeState{CurrentFeeBps: 30, FeeMin: 5, FeeMax: 100, BaselineFeeBps: 30, EmaAlpha: 2000}
	flash := pair.FlashLoanConfig{FlashFeeBps: 9, FlashFeeFloorBps: 5}
	now := uint64(time.Now().Unix())

	seeds := []struct {
		id               uint64
		tokenA, tokenB   common.Address
		amountA, amountB *big.Int
	}{
		{1, tokenCORAL, tokenUSD, big.NewInt(10_000_000_000), big.NewInt(10_000_000_000)},
		{2, tokenWETH, tokenUSD, big.NewInt(1_000_000_000), big.NewInt(3_000_000_000_000)},
	}

	for _, s := range seeds {
		if err := eng.RegisterPair(s.id, s.tokenA, s.tokenB, fee, flash); err != nil {
			return err
		}
		directory.add(s.id, s.tokenA, s.tokenB)

		result, err := eng.ExecuteAddLiquidity(s.id, s.amountA, s.amountB, nil, nil, 0, now, nil)
		if err != nil {
			return err
		}
		balances.credit(s.id, trader, result.LPMinted)
	}
	return nil
}

// runConsole handles user input and display.
func runConsole(ctx context.Context, eng *engine.PairEngine, balances *localBalances) {
	reader := bufio.NewReader(os.Stdin)

	for {
		if ctx.Err() != nil {
			fmt.Println("\n" + Yellow + "Shutting down..." + Reset)
			return
		}

		printMenu()

		fmt.Print(Bold + "Enter selection: " + Reset)
		input, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		handleCommand(strings.TrimSpace(input), eng, balances, reader)

		fmt.Println("\n" + Gray + "[Press Enter to continue]" + Reset)
		reader.ReadString('\n')
	}
}

func printMenu() {
	fmt.Print("\033[H\033[2J") // Clear screen
	fmt.Println(Bold + "CORALSWAP CONSOLE" + Reset + Gray + " | v0.1.0" + Reset)
	fmt.Println(Gray + "-----------------------------------" + Reset)
	fmt.Printf(" %s1.%s Pair Summary\n", Cyan, Reset)
	fmt.Printf(" %s2.%s Pair Detail %s(oracle, fee, flash)%s\n", Cyan, Reset, Gray, Reset)
	fmt.Printf(" %s3.%s Quote Swap\n", Cyan, Reset)
	fmt.Printf(" %s4.%s Execute Swap\n", Cyan, Reset)
	fmt.Printf(" %s5.%s Add Liquidity\n", Cyan, Reset)
	fmt.Printf(" %s6.%s Remove Liquidity\n", Cyan, Reset)
	fmt.Printf(" %s7.%s Flash Loan\n", Cyan, Reset)
	fmt.Println(Gray + "-----------------------------------" + Reset)
	fmt.Printf(" %sq.%s Quit\n", Red, Reset)
	fmt.Println("")
}

func handleCommand(input string, eng *engine.PairEngine, balances *localBalances, reader *bufio.Reader) {
	switch input {
	case "1":
		printPairSummary(eng, balances)
	case "2":
		printPairDetail(eng, reader)
	case "3":
		quoteSwap(eng, reader)
	case "4":
		executeSwap(eng, reader)
	case "5":
		addLiquidity(eng, balances, reader)
	case "6":
		removeLiquidity(eng, balances, reader)
	case "7":
		flashLoan(eng, reader)
	case "q":
		fmt.Println(Yellow + "Exiting..." + Reset)
		os.Exit(0)
	default:
		fmt.Println(Red + "Unknown command." + Reset)
	}
}

// --- COMMAND HANDLERS ---

func printPairSummary(eng *engine.PairEngine, balances *localBalances) {
	header("PAIR SUMMARY")

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 4, ' ', 0)
	fmt.Fprintln(w, "ID\tPAIR\tRESERVE0\tRESERVE1\tSUPPLY\tFEE(BPS)\tMY SHARES\t")
	fmt.Fprintln(w, "--\t----\t--------\t--------\t------\t--------\t---------\t")

	for _, p := range eng.Pairs() {
		mine, _ := balances.BalanceOf(p.ID, trader)
		fmt.Fprintf(w, "%d\t%s/%s\t%s\t%s\t%s\t%d\t%s\t\n",
			p.ID, tokenName(p.Token0), tokenName(p.Token1),
			p.Reserve0, p.Reserve1, p.TotalSupply, p.Fee.CurrentFeeBps, mine,
		)
	}
	w.Flush()
}

func printPairDetail(eng *engine.PairEngine, reader *bufio.Reader) {
	id, ok := readPairID(reader)
	if !ok {
		return
	}
	p, err := eng.Snapshot(id)
	if err != nil {
		fmt.Println(Red + err.Error() + Reset)
		return
	}

	header(fmt.Sprintf("PAIR %d :: %s/%s", p.ID, tokenName(p.Token0), tokenName(p.Token1)))
	printField := func(key string, value any) {
		fmt.Printf("  %s%-22s%s %v\n", Gray, key+":", Reset, value)
	}
	printField("Reserve0", p.Reserve0)
	printField("Reserve1", p.Reserve1)
	printField("TotalSupply", p.TotalSupply)
	printField("Fee (bps)", p.Fee.CurrentFeeBps)
	printField("Fee bounds", fmt.Sprintf("[%d, %d] baseline %d alpha %d", p.Fee.FeeMin, p.Fee.FeeMax, p.Fee.BaselineFeeBps, p.Fee.EmaAlpha))
	printField("Flash fee (bps)", fmt.Sprintf("%d (floor %d, locked %v)", p.Flash.FlashFeeBps, p.Flash.FlashFeeFloorBps, p.Flash.Locked))
	printField("Price0CumulativeLast", p.Price0CumulativeLast)
	printField("Price1CumulativeLast", p.Price1CumulativeLast)
	printField("BlockTimestampLast", p.BlockTimestampLast)
}

func quoteSwap(eng *engine.PairEngine, reader *bufio.Reader) {
	id, ok := readPairID(reader)
	if !ok {
		return
	}
	tokenIn, ok := readToken(eng, id, reader)
	if !ok {
		return
	}
	amountIn, ok := readAmount(reader, "Amount in")
	if !ok {
		return
	}

	quote, err := eng.QuoteSwap(id, tokenIn, amountIn, 50, 30)
	if err != nil {
		fmt.Println(Red + err.Error() + Reset)
		return
	}

	header("SWAP QUOTE")
	fmt.Printf("  Amount out:      %s%s%s\n", Green, quote.AmountOut, Reset)
	fmt.Printf("  Minimum (50bps): %s\n", quote.AmountOutMin)
	fmt.Printf("  Fee:             %d bps\n", quote.FeeBps)
	fmt.Printf("  Price impact:    %s%d bps%s\n", Yellow, quote.PriceImpactBps, Reset)
	fmt.Printf("  Valid until:     %s\n", time.Unix(int64(quote.Deadline), 0).Format("15:04:05"))
}

func executeSwap(eng *engine.PairEngine, reader *bufio.Reader) {
	id, ok := readPairID(reader)
	if !ok {
		return
	}
	tokenIn, ok := readToken(eng, id, reader)
	if !ok {
		return
	}
	amountIn, ok := readAmount(reader, "Amount in")
	if !ok {
		return
	}

	quote, err := eng.QuoteSwap(id, tokenIn, amountIn, 50, 30)
	if err != nil {
		fmt.Println(Red + err.Error() + Reset)
		return
	}

	now := uint64(time.Now().Unix())
	result, err := eng.ExecuteSwap(id, tokenIn, amountIn, quote.AmountOutMin, quote.Deadline, now, nil)
	if err != nil {
		fmt.Println(Red + err.Error() + Reset)
		return
	}

	header("SWAP SETTLED")
	fmt.Printf("  In:  %s %s\n", result.AmountIn, tokenName(tokenIn))
	fmt.Printf("  Out: %s%s%s (fee %d bps)\n", Green, result.AmountOut, Reset, result.FeeBps)
}

func addLiquidity(eng *engine.PairEngine, balances *localBalances, reader *bufio.Reader) {
	id, ok := readPairID(reader)
	if !ok {
		return
	}
	amount0, ok := readAmount(reader, "Amount of token0")
	if !ok {
		return
	}
	amount1, ok := readAmount(reader, "Amount of token1 (ceiling)")
	if !ok {
		return
	}

	now := uint64(time.Now().Unix())
	result, err := eng.ExecuteAddLiquidity(id, amount0, amount1, nil, nil, 0, now, nil)
	if err != nil {
		fmt.Println(Red + err.Error() + Reset)
		return
	}
	balances.credit(id, trader, result.LPMinted)

	header("DEPOSIT SETTLED")
	fmt.Printf("  Deposited: %s / %s\n", result.Amount0, result.Amount1)
	fmt.Printf("  Minted:    %s%s shares%s\n", Green, result.LPMinted, Reset)
}

func removeLiquidity(eng *engine.PairEngine, balances *localBalances, reader *bufio.Reader) {
	id, ok := readPairID(reader)
	if !ok {
		return
	}
	lpAmount, ok := readAmount(reader, "Shares to burn")
	if !ok {
		return
	}

	now := uint64(time.Now().Unix())
	result, err := eng.ExecuteRemoveLiquidity(id, trader, lpAmount, nil, nil, 0, now, nil)
	if err != nil {
		fmt.Println(Red + err.Error() + Reset)
		return
	}
	balances.debit(id, trader, result.LPBurned)

	header("BURN SETTLED")
	fmt.Printf("  Released: %s%s / %s%s\n", Green, result.Amount0, result.Amount1, Reset)
}

func flashLoan(eng *engine.PairEngine, reader *bufio.Reader) {
	id, ok := readPairID(reader)
	if !ok {
		return
	}
	tokenBorrowed, ok := readToken(eng, id, reader)
	if !ok {
		return
	}
	amount, ok := readAmount(reader, "Amount to borrow")
	if !ok {
		return
	}

	now := uint64(time.Now().Unix())
	result, err := eng.ExecuteFlashLoan(id, tokenBorrowed, amount, now, nil)
	if err != nil {
		fmt.Println(Red + err.Error() + Reset)
		return
	}

	header("FLASH LOAN SETTLED")
	fmt.Printf("  Borrowed: %s %s\n", result.Amount, tokenName(tokenBorrowed))
	fmt.Printf("  Fee paid: %s%s%s (stays in the pool)\n", Green, result.Fee, Reset)
}

// --- HELPERS ---

func readPairID(reader *bufio.Reader) (uint64, bool) {
	fmt.Print(Bold + "Pair ID: " + Reset)
	input, _ := reader.ReadString('\n')
	id, err := strconv.ParseUint(strings.TrimSpace(input), 10, 64)
	if err != nil {
		fmt.Println(Red + "Invalid pair ID." + Reset)
		return 0, false
	}
	return id, true
}

func readToken(eng *engine.PairEngine, pairID uint64, reader *bufio.Reader) (common.Address, bool) {
	p, err := eng.Snapshot(pairID)
	if err != nil {
		fmt.Println(Red + err.Error() + Reset)
		return common.Address{}, false
	}

	fmt.Printf(Bold+"Token (0=%s, 1=%s): "+Reset, tokenName(p.Token0), tokenName(p.Token1))
	input, _ := reader.ReadString('\n')
	switch strings.TrimSpace(input) {
	case "0":
		return p.Token0, true
	case "1":
		return p.Token1, true
	default:
		fmt.Println(Red + "Invalid token selection." + Reset)
		return common.Address{}, false
	}
}

func readAmount(reader *bufio.Reader, prompt string) (*big.Int, bool) {
	fmt.Print(Bold + prompt + ": " + Reset)
	input, _ := reader.ReadString('\n')
	amount, ok := new(big.Int).SetString(strings.TrimSpace(input), 10)
	if !ok || amount.Sign() <= 0 {
		fmt.Println(Red + "Invalid amount." + Reset)
		return nil, false
	}
	return amount, true
}
