// Package main runs the swap bot service:
// - HTTP API and WebSocket event stream
// - copy-trade monitor (optionally started from config)
// - bundle and volume bots controlled through the API
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"solana-swap-bot/internal/api"
	"solana-swap-bot/internal/bot"
	"solana-swap-bot/internal/config"
	"solana-swap-bot/internal/copytrade"
	"solana-swap-bot/internal/engine"
	"solana-swap-bot/internal/events"
	"solana-swap-bot/internal/logging"
	"solana-swap-bot/internal/notify"
	"solana-swap-bot/internal/solana"
	"solana-swap-bot/internal/storage"
	chstore "solana-swap-bot/internal/storage/clickhouse"
	"solana-swap-bot/internal/storage/memory"
	"solana-swap-bot/internal/storage/migrations"
	pgstore "solana-swap-bot/internal/storage/postgres"
	"solana-swap-bot/internal/storage/redisstore"
	"solana-swap-bot/internal/venue"
	"solana-swap-bot/internal/wallet"
)

// allStores holds all storage implementations.
type allStores struct {
	transactions storage.TransactionStore
	trades       storage.DetectedTradeStore
	cursors      storage.CursorStore
	snapshots    storage.PipelineSnapshotStore
}

func main() {
	configPath := flag.String("config", os.Getenv("SWAPBOT_CONFIG"), "Path to YAML config file")
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage regardless of config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *useMemory {
		cfg.Storage.Backend = config.BackendMemory
	}

	logCloser, err := logging.Configure(logrus.StandardLogger(), logging.Options{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
	})
	if err != nil {
		logrus.Fatalf("Failed to configure logging: %v", err)
	}
	defer logCloser.Close()
	log := logging.Component("server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stores, cleanup, err := createStores(ctx, cfg.Storage, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to create stores")
	}
	defer cleanup()

	keystore, err := wallet.LoadFileKeystore(cfg.Wallets.Dir, cfg.Wallets.MainID, nil)
	if err != nil {
		log.WithError(err).Fatal("Failed to load wallets")
	}

	rpc := solana.NewHTTPClient(cfg.Solana.RPCEndpoint,
		solana.WithTimeout(cfg.Solana.Timeout),
		solana.WithMaxRetries(cfg.Solana.MaxRetries),
		solana.WithRateLimit(cfg.Solana.RateLimit, cfg.Solana.Burst),
		solana.WithCommitment(cfg.Solana.Commitment),
	)
	venues := buildVenues(cfg, rpc)

	var logs solana.LogSubscriber
	if cfg.Solana.WSEndpoint != "" {
		wsCfg := solana.DefaultWSConfig()
		wsCfg.Commitment = cfg.Solana.Commitment
		wsClient, err := solana.NewWSClient(ctx, cfg.Solana.WSEndpoint, &wsCfg)
		if err != nil {
			log.WithError(err).Warn("WebSocket dial failed, copy-trade will poll only")
		} else {
			defer wsClient.Close()
			logs = wsClient
		}
	}

	dispatcher := notify.NewDispatcher(notify.DispatcherOptions{
		Workers:   cfg.Dispatch.Workers,
		QueueSize: cfg.Dispatch.QueueSize,
		Timeout:   cfg.Dispatch.Timeout,
	})
	defer dispatcher.Close()

	var notifier notify.Notifier = notify.Nop{}
	if cfg.Telegram.Enabled() {
		notifier = notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID, notify.TelegramOptions{
			Rate: rate.Limit(cfg.Telegram.Rate),
		})
		log.Info("Telegram notifications enabled")
	}

	bus := events.NewBus(events.BusOptions{Buffer: cfg.Events.Buffer})
	defer bus.Close()

	hub := events.NewHub(events.DefaultHubConfig(), nil)
	hubEvents, unsubscribeHub := bus.Subscribe()
	defer unsubscribeHub()
	go hub.Run(ctx, hubEvents)

	if len(cfg.Events.KafkaBrokers) > 0 {
		sink, err := events.NewKafkaSink(events.KafkaOptions{
			Brokers: cfg.Events.KafkaBrokers,
			Topic:   cfg.Events.KafkaTopic,
		})
		if err != nil {
			log.WithError(err).Fatal("Failed to create kafka sink")
		}
		defer sink.Close()
		kafkaEvents, unsubscribeKafka := bus.Subscribe()
		defer unsubscribeKafka()
		go sink.Run(ctx, kafkaEvents)
	}

	eng := engine.New(engine.Config{
		MaxRetries:        cfg.Engine.MaxRetries,
		BaseDelay:         cfg.Engine.BaseDelay,
		PlatformFeeBps:    cfg.Engine.PlatformFeeBps,
		PlatformFeeWallet: cfg.Engine.PlatformFeeWallet,
		ConfirmTimeout:    cfg.Engine.ConfirmTimeout,
	}, engine.Options{
		Transactions: stores.transactions,
		Keys:         keystore,
		RPC:          rpc,
		Events:       bus,
		Notifier:     notifier,
		Dispatcher:   dispatcher,
	})

	monitor := copytrade.New(copytrade.Options{
		RPC:        rpc,
		Logs:       logs,
		Executor:   eng,
		Venues:     venues,
		Wallets:    keystore,
		Trades:     stores.trades,
		Cursors:    stores.cursors,
		Snapshots:  stores.snapshots,
		Events:     bus,
		Notifier:   notifier,
		Dispatcher: dispatcher,
	})

	bots := bot.NewController(bot.Options{
		Executor:   eng,
		Venues:     venues,
		Wallets:    keystore,
		RPC:        rpc,
		Events:     bus,
		Notifier:   notifier,
		Dispatcher: dispatcher,
	})

	httpServer := &http.Server{
		Addr: cfg.Server.Addr,
		Handler: api.NewServer(api.Options{
			CopyTrade:    monitor,
			Bots:         bots,
			Venues:       venues,
			Wallets:      keystore,
			Transactions: stores.transactions,
			Trades:       stores.trades,
			Snapshots:    stores.snapshots,
			Events:       hub,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.Server.Addr).Info("Starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	if cfg.CopyTrade.AutoStart {
		if err := monitor.Start(ctx, cfg.CopyTrade.Session); err != nil {
			log.WithError(err).Error("Failed to auto-start copy-trade monitor")
		}
	}

	select {
	case sig := <-sigCh:
		log.Infof("Received signal %v, initiating graceful shutdown...", sig)
	case err := <-serveErr:
		log.WithError(err).Error("HTTP server error")
	}

	// Wait for second signal for immediate shutdown
	go func() {
		sig := <-sigCh
		log.Warnf("Received second signal %v, forcing immediate shutdown", sig)
		os.Exit(1)
	}()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := monitor.Stop(); err == nil {
		if err := monitor.Wait(shutdownCtx); err != nil {
			log.WithError(err).Warn("Copy-trade monitor did not stop in time")
		}
	}
	if err := bots.Stop(); err == nil {
		if err := bots.Wait(shutdownCtx); err != nil {
			log.WithError(err).Warn("Bot did not stop in time")
		}
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("HTTP server shutdown")
	}
	cancel()

	log.Info("Shutdown complete")
}

// buildVenues registers every supported venue against rpc.
func buildVenues(cfg *config.Config, rpc solana.RPCClient) *venue.Registry {
	base := venue.Options{RPC: rpc}
	registry := venue.NewRegistry()
	registry.Register(venue.KindJupiter, venue.NewJupiter(venue.AggregatorOptions{
		Options:   base,
		BaseURL:   cfg.Venues.JupiterURL,
		RateLimit: cfg.Venues.RateLimit,
	}))
	registry.Register(venue.KindRaydium, venue.NewRaydium(venue.AggregatorOptions{
		Options:   base,
		BaseURL:   cfg.Venues.RaydiumURL,
		RateLimit: cfg.Venues.RateLimit,
	}))
	registry.Register(venue.KindPumpFun, venue.NewPumpFun(venue.PumpFunOptions{
		Options:                  base,
		PriorityFeeMicroLamports: cfg.Venues.PriorityFeeMicroLamports,
	}))
	return registry
}

// createStores creates stores for the configured backend. The Postgres backend
// applies migrations, keeps snapshots in ClickHouse when configured and
// cursors in Redis when configured.
func createStores(ctx context.Context, cfg config.StorageConfig, log *logrus.Entry) (*allStores, func(), error) {
	stores := &allStores{
		transactions: memory.NewTransactionStore(),
		trades:       memory.NewDetectedTradeStore(),
		cursors:      memory.NewCursorStore(),
		snapshots:    memory.NewPipelineSnapshotStore(),
	}
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.Backend == config.BackendPostgres {
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN, cfg.MaxConns)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		closers = append(closers, pool.Close)

		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("postgres migrations: %w", err)
		}
		stores.transactions = pgstore.NewTransactionStore(pool)
		stores.trades = pgstore.NewDetectedTradeStore(pool)
		stores.cursors = pgstore.NewCursorStore(pool)

		if cfg.ClickhouseDSN != "" {
			chConn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
			if err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
			}
			closers = append(closers, func() { chConn.Close() })
			stores.snapshots = chstore.NewPipelineSnapshotStore(chConn)
		}
	}

	if cfg.RedisAddr != "" {
		client, err := redisstore.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("connect to redis: %w", err)
		}
		closers = append(closers, func() { client.Close() })
		stores.cursors = redisstore.NewCursorStore(client, "")
	}

	log.WithFields(logrus.Fields{
		"backend":    cfg.Backend,
		"clickhouse": cfg.ClickhouseDSN != "",
		"redis":      cfg.RedisAddr != "",
	}).Info("Stores ready")
	return stores, cleanup, nil
}
