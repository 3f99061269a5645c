// Package main quotes or executes a single swap from the command line.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"solana-swap-bot/internal/config"
	"solana-swap-bot/internal/domain"
	"solana-swap-bot/internal/engine"
	"solana-swap-bot/internal/logging"
	"solana-swap-bot/internal/solana"
	"solana-swap-bot/internal/storage"
	"solana-swap-bot/internal/storage/memory"
	"solana-swap-bot/internal/storage/migrations"
	pgstore "solana-swap-bot/internal/storage/postgres"
	"solana-swap-bot/internal/venue"
	"solana-swap-bot/internal/wallet"
)

func main() {
	configPath := flag.String("config", os.Getenv("SWAPBOT_CONFIG"), "Path to YAML config file")
	venueName := flag.String("venue", "jupiter", "Venue: jupiter, raydium or pumpfun")
	walletID := flag.String("wallet", "", "Wallet id (default: main wallet)")
	mint := flag.String("mint", "", "Token mint")
	direction := flag.String("direction", "buy", "buy or sell")
	amount := flag.String("amount", "", "SOL to spend for buys, raw token units for sells")
	slippage := flag.Int("slippage-bps", 300, "Slippage tolerance in basis points")
	execute := flag.Bool("execute", false, "Execute the swap (default: quote only)")
	flag.Parse()

	if *mint == "" || *amount == "" {
		fmt.Fprintln(os.Stderr, "Error: --mint and --amount are required")
		flag.Usage()
		os.Exit(2)
	}
	dir := domain.Direction(*direction)
	if dir != domain.DirectionBuy && dir != domain.DirectionSell {
		fmt.Fprintf(os.Stderr, "Error: unknown direction %q\n", *direction)
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if _, err := logging.Configure(logrus.StandardLogger(), logging.Options{
		Level:  cfg.Logging.Level,
		Format: "text",
		Output: "stderr",
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Error configuring logging: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *venueName, *walletID, *mint, dir, *amount, *slippage, *execute); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, venueName, walletID, mint string, dir domain.Direction, amountArg string, slippageBps int, execute bool) error {
	keystore, err := wallet.LoadFileKeystore(cfg.Wallets.Dir, cfg.Wallets.MainID, nil)
	if err != nil {
		return err
	}
	w, err := pickWallet(ctx, keystore, walletID)
	if err != nil {
		return err
	}

	rpc := solana.NewHTTPClient(cfg.Solana.RPCEndpoint,
		solana.WithTimeout(cfg.Solana.Timeout),
		solana.WithMaxRetries(cfg.Solana.MaxRetries),
		solana.WithRateLimit(cfg.Solana.RateLimit, cfg.Solana.Burst),
		solana.WithCommitment(cfg.Solana.Commitment),
	)
	adapter, err := newAdapter(cfg, rpc, venueName)
	if err != nil {
		return err
	}

	task, err := buildTask(w, mint, dir, amountArg, slippageBps)
	if err != nil {
		return err
	}

	if !execute {
		quote, err := adapter.Quote(ctx, task.Params)
		if err != nil {
			return err
		}
		return printJSON(map[string]interface{}{
			"venue":          quote.Venue,
			"inputMint":      quote.InputMint,
			"outputMint":     quote.OutputMint,
			"inputAmount":    strconv.FormatUint(quote.InputAmount, 10),
			"outputAmount":   strconv.FormatUint(quote.OutputAmount, 10),
			"priceImpactPct": quote.PriceImpactPct,
		})
	}

	transactions, cleanup, err := transactionStore(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer cleanup()

	eng := engine.New(engine.Config{
		MaxRetries:        cfg.Engine.MaxRetries,
		BaseDelay:         cfg.Engine.BaseDelay,
		PlatformFeeBps:    cfg.Engine.PlatformFeeBps,
		PlatformFeeWallet: cfg.Engine.PlatformFeeWallet,
		ConfirmTimeout:    cfg.Engine.ConfirmTimeout,
	}, engine.Options{
		Transactions: transactions,
		Keys:         keystore,
		RPC:          rpc,
	})

	rec := eng.ExecuteWithRetry(ctx, adapter, task)
	if err := printJSON(rec); err != nil {
		return err
	}
	if rec.Status != domain.TxStatusConfirmed {
		return fmt.Errorf("swap %s", rec.Status)
	}
	return nil
}

func pickWallet(ctx context.Context, registry wallet.Registry, id string) (domain.Wallet, error) {
	wallets, err := registry.ListWallets(ctx)
	if err != nil {
		return domain.Wallet{}, err
	}
	for _, w := range wallets {
		if (id == "" && w.IsMain) || (id != "" && w.ID == id) {
			return w, nil
		}
	}
	if id == "" {
		return domain.Wallet{}, fmt.Errorf("no main wallet in %d loaded wallets", len(wallets))
	}
	return domain.Wallet{}, fmt.Errorf("wallet %q not found", id)
}

// buildTask parses amountArg as SOL for buys and raw token units for sells.
func buildTask(w domain.Wallet, mint string, dir domain.Direction, amountArg string, slippageBps int) (domain.SwapTask, error) {
	if slippageBps < domain.MinSlippageBps || slippageBps > domain.MaxSlippageBps {
		return domain.SwapTask{}, fmt.Errorf("slippage %d bps out of range [%d, %d]", slippageBps, domain.MinSlippageBps, domain.MaxSlippageBps)
	}
	if dir == domain.DirectionSell {
		raw, err := strconv.ParseUint(amountArg, 10, 64)
		if err != nil || raw == 0 {
			return domain.SwapTask{}, fmt.Errorf("sell amount must be a positive integer of raw token units")
		}
		return domain.NewSwapTask(w.ID, w.PublicKey, mint, dir, raw, 0, slippageBps, domain.BotModeManual, 0), nil
	}

	sol, err := decimal.NewFromString(amountArg)
	if err != nil || !sol.IsPositive() {
		return domain.SwapTask{}, fmt.Errorf("buy amount must be a positive SOL value")
	}
	amountSOL := sol.InexactFloat64()
	return domain.NewSwapTask(w.ID, w.PublicKey, mint, dir, domain.SOLToLamports(amountSOL), amountSOL, slippageBps, domain.BotModeManual, 0), nil
}

func newAdapter(cfg *config.Config, rpc solana.RPCClient, name string) (venue.Adapter, error) {
	kind, err := venue.ParseKind(name)
	if err != nil {
		return nil, err
	}
	base := venue.Options{RPC: rpc}
	switch kind {
	case venue.KindJupiter:
		return venue.NewJupiter(venue.AggregatorOptions{Options: base, BaseURL: cfg.Venues.JupiterURL, RateLimit: cfg.Venues.RateLimit}), nil
	case venue.KindRaydium:
		return venue.NewRaydium(venue.AggregatorOptions{Options: base, BaseURL: cfg.Venues.RaydiumURL, RateLimit: cfg.Venues.RateLimit}), nil
	default:
		return venue.NewPumpFun(venue.PumpFunOptions{Options: base, PriorityFeeMicroLamports: cfg.Venues.PriorityFeeMicroLamports}), nil
	}
}

// transactionStore records manual swaps in Postgres when configured.
func transactionStore(ctx context.Context, cfg config.StorageConfig) (storage.TransactionStore, func(), error) {
	if cfg.Backend != config.BackendPostgres {
		return memory.NewTransactionStore(), func() {}, nil
	}
	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN, cfg.MaxConns)
	if err != nil {
		return nil, nil, err
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}
	return pgstore.NewTransactionStore(pool), pool.Close, nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
