// Package copytrade watches a target wallet and replicates its swaps across
// the managed wallet fleet.
package copytrade

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"solana-swap-bot/internal/domain"
	"solana-swap-bot/internal/events"
	"solana-swap-bot/internal/idhash"
	"solana-swap-bot/internal/notify"
	"solana-swap-bot/internal/observability"
	"solana-swap-bot/internal/solana"
	"solana-swap-bot/internal/storage"
	"solana-swap-bot/internal/venue"
	"solana-swap-bot/internal/wallet"
)

// ErrAlreadyRunning is returned by Start while a session is active.
var ErrAlreadyRunning = errors.New("copy-trade monitor already running")

// ErrNotRunning is returned by Stop when no session is active.
var ErrNotRunning = errors.New("copy-trade monitor not running")

// FatalMonitorError halts the monitor in the error state.
type FatalMonitorError struct {
	Err error
}

func (e *FatalMonitorError) Error() string {
	return fmt.Sprintf("Failed to fetch initial signatures: %v", e.Err)
}

func (e *FatalMonitorError) Unwrap() error { return e.Err }

// Executor runs swap tasks concurrently. Implemented by *engine.Engine.
type Executor interface {
	ExecuteParallel(ctx context.Context, adapter venue.Adapter, tasks []domain.SwapTask) []domain.TransactionRecord
}

// Options holds the monitor collaborators. Logs, Cursors, Snapshots, Events,
// Notifier and Dispatcher are optional.
type Options struct {
	RPC        solana.RPCClient
	Logs       solana.LogSubscriber
	Executor   Executor
	Venues     *venue.Registry
	Wallets    wallet.Registry
	Trades     storage.DetectedTradeStore
	Cursors    storage.CursorStore
	Snapshots  storage.PipelineSnapshotStore
	Events     events.Publisher
	Notifier   notify.Notifier
	Dispatcher *notify.Dispatcher
	Logger     *logrus.Entry

	Sleep func(ctx context.Context, d time.Duration) error
	Now   func() time.Time
}

// session is the state of one Start..Stop run, owned by the loop goroutine.
type session struct {
	cfg    Config
	cursor string
	log    *logrus.Entry
}

// Monitor polls a target wallet and replicates detected swaps.
// A Monitor runs at most one session at a time.
type Monitor struct {
	opts  Options
	stats Stats

	mu        sync.Mutex
	status    domain.BotStatus
	cfg       Config
	startedAt *int64
	lastErr   *string
	cancel    context.CancelFunc
	done      chan struct{}
}

// New creates an idle Monitor.
func New(opts Options) *Monitor {
	if opts.Events == nil {
		opts.Events = events.NopPublisher{}
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Nop{}
	}
	if opts.Logger == nil {
		opts.Logger = logrus.WithField("component", "copytrade")
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepCtx
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Monitor{opts: opts, status: domain.BotStatusIdle}
}

// Stats returns the live funnel counters.
func (m *Monitor) Stats() *Stats {
	return &m.stats
}

// Config returns the configuration of the current or last session.
func (m *Monitor) Config() Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg
}

// State returns a snapshot of the monitor state.
func (m *Monitor) State() domain.BotState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stateLocked()
}

func (m *Monitor) stateLocked() domain.BotState {
	snap := m.stats.Snapshot("")
	return domain.BotState{
		Status:          m.status,
		Mode:            domain.BotModeCopyTrade,
		CurrentRound:    int(snap.TradesDetected),
		TradesCompleted: int(snap.TradesReplicated),
		TradesFailed:    int(snap.TradesFailed),
		StartedAt:       m.startedAt,
		Error:           m.lastErr,
	}
}

// Start validates cfg, establishes the initial cursor and starts polling in
// the background. The session outlives ctx; use Stop to end it.
func (m *Monitor) Start(ctx context.Context, cfg Config) error {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	if m.status == domain.BotStatusRunning || m.status == domain.BotStatusStopping {
		m.mu.Unlock()
		return ErrAlreadyRunning
	}
	now := m.opts.Now().UnixMilli()
	m.status = domain.BotStatusRunning
	m.cfg = cfg
	m.startedAt = &now
	m.lastErr = nil
	m.stats.Reset()
	m.mu.Unlock()

	log := m.opts.Logger.WithField("target", cfg.TargetWallet)

	cursor, err := m.initialCursor(ctx, cfg)
	if err != nil {
		fatal := &FatalMonitorError{Err: err}
		msg := fatal.Error()
		m.mu.Lock()
		m.status = domain.BotStatusError
		m.lastErr = &msg
		state := m.stateLocked()
		m.mu.Unlock()

		log.WithError(err).Error("copy-trade monitor failed to start")
		m.opts.Events.Publish(events.BotStateChanged(state))
		m.notify(notify.Event{Kind: notify.KindBotError, Mode: domain.BotModeCopyTrade, Error: msg})
		return fatal
	}
	m.saveCursor(ctx, cfg.TargetWallet, cursor, log)

	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	m.mu.Lock()
	m.cancel = cancel
	m.done = done
	state := m.stateLocked()
	m.mu.Unlock()

	observability.SetMonitorRunning(true)
	m.opts.Events.Publish(events.BotStateChanged(state))
	m.notify(notify.Event{Kind: notify.KindBotStarted, Mode: domain.BotModeCopyTrade, TargetWallet: cfg.TargetWallet})
	log.WithFields(logrus.Fields{
		"cursor":   cursor,
		"wallets":  len(cfg.WalletIDs),
		"interval": cfg.PollInterval,
	}).Info("copy-trade monitor started")

	go m.run(runCtx, &session{cfg: cfg, cursor: cursor, log: log}, done)
	return nil
}

// Stop requests the running session to end. It does not wait; use Wait.
// A swap already submitted runs to completion.
func (m *Monitor) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status != domain.BotStatusRunning || m.cancel == nil {
		return ErrNotRunning
	}
	m.status = domain.BotStatusStopping
	m.cancel()
	m.opts.Events.Publish(events.BotStateChanged(m.stateLocked()))
	return nil
}

// Wait blocks until the current session ends or ctx is done.
func (m *Monitor) Wait(ctx context.Context) error {
	m.mu.Lock()
	done := m.done
	m.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Monitor) initialCursor(ctx context.Context, cfg Config) (string, error) {
	if cfg.ResumeFromCursor && m.opts.Cursors != nil {
		cursor, err := m.opts.Cursors.GetCursor(ctx, cfg.TargetWallet)
		if err == nil {
			return cursor, nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return "", fmt.Errorf("load cursor: %w", err)
		}
	}

	sigs, err := m.opts.RPC.GetSignaturesForAddress(ctx, cfg.TargetWallet, &solana.SignaturesOpts{Limit: 1})
	if err != nil {
		return "", err
	}
	if len(sigs) == 0 {
		return "", nil
	}
	return sigs[0].Signature, nil
}

func (m *Monitor) run(ctx context.Context, s *session, done chan struct{}) {
	defer close(done)
	defer m.finish(s)

	wake := m.subscribeWake(ctx, s)
	for {
		if err := m.wait(ctx, s, wake); err != nil {
			return
		}
		if ctx.Err() != nil {
			return
		}
		if err := m.poll(ctx, s); err != nil {
			s.log.WithError(err).Warn("poll cycle failed")
		}
	}
}

// subscribeWake returns logsSubscribe notifications for the target, or nil
// when no subscriber is configured. Polling stays authoritative either way.
func (m *Monitor) subscribeWake(ctx context.Context, s *session) <-chan solana.LogNotification {
	if m.opts.Logs == nil {
		return nil
	}
	ch, err := m.opts.Logs.SubscribeLogs(ctx, s.cfg.TargetWallet)
	if err != nil {
		s.log.WithError(err).Warn("log subscription failed, polling only")
		return nil
	}
	return ch
}

// wait sleeps for one poll interval, returning early when the target
// appears in a log notification.
func (m *Monitor) wait(ctx context.Context, s *session, wake <-chan solana.LogNotification) error {
	if wake == nil {
		return m.opts.Sleep(ctx, s.cfg.PollInterval)
	}

	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stopWatch := make(chan struct{})
	defer close(stopWatch)
	go func() {
		select {
		case n, ok := <-wake:
			if ok {
				s.log.WithField("signature", n.Signature).Debug("log notification, polling early")
				cancel()
			}
		case <-stopWatch:
		}
	}()

	_ = m.opts.Sleep(waitCtx, s.cfg.PollInterval)
	return ctx.Err()
}

func (m *Monitor) finish(s *session) {
	m.mu.Lock()
	m.status = domain.BotStatusIdle
	m.cancel = nil
	state := m.stateLocked()
	m.mu.Unlock()

	observability.SetMonitorRunning(false)
	m.opts.Events.Publish(events.BotStateChanged(state))
	m.notify(notify.Event{Kind: notify.KindBotStopped, Mode: domain.BotModeCopyTrade, TargetWallet: s.cfg.TargetWallet})
	s.log.WithFields(logrus.Fields{
		"detected":   state.CurrentRound,
		"replicated": state.TradesCompleted,
		"failed":     state.TradesFailed,
	}).Info("copy-trade monitor stopped")
}

// poll runs one cycle: fetch signatures newer than the cursor, advance the
// cursor, then process the batch oldest first.
func (m *Monitor) poll(ctx context.Context, s *session) error {
	sigs, err := m.opts.RPC.GetSignaturesForAddress(ctx, s.cfg.TargetWallet, &solana.SignaturesOpts{
		Until: s.cursor,
		Limit: s.cfg.PageSize,
	})
	if err != nil {
		return fmt.Errorf("fetch signatures: %w", err)
	}
	m.stats.Incr(StagePoll)
	m.stats.MarkCycle(m.opts.Now())
	defer m.storeSnapshot(s)

	if len(sigs) == 0 {
		return nil
	}
	m.stats.Add(StageSignatureFetched, len(sigs))

	s.cursor = sigs[0].Signature
	m.saveCursor(ctx, s.cfg.TargetWallet, s.cursor, s.log)

	for i := len(sigs) - 1; i >= 0; i-- {
		if ctx.Err() != nil {
			return nil
		}
		m.processSignature(ctx, s, sigs[i])
	}
	return nil
}

func (m *Monitor) processSignature(ctx context.Context, s *session, sig solana.SignatureInfo) {
	log := s.log.WithField("signature", sig.Signature)

	if sig.Err != nil {
		m.stats.Incr(StageFailedTx)
		return
	}

	tx, err := m.opts.RPC.GetTransaction(ctx, sig.Signature)
	if err != nil || tx == nil {
		log.WithError(err).Debug("transaction detail unavailable")
		m.stats.Incr(StageParseError)
		return
	}
	if tx.Signature == "" {
		tx.Signature = sig.Signature
	}

	swap, err := ParseSwap(tx, s.cfg.TargetWallet)
	switch {
	case errors.Is(err, ErrTxFailed):
		m.stats.Incr(StageFailedTx)
		return
	case errors.Is(err, ErrUnknownVenue):
		m.stats.Incr(StageUnknownDex)
		return
	case errors.Is(err, ErrNoSwap):
		m.stats.Incr(StageNoSwap)
		return
	case err != nil:
		log.WithError(err).Debug("failed to parse transaction")
		m.stats.Incr(StageParseError)
		return
	}

	if !s.cfg.copies(swap.Direction) {
		m.stats.Incr(StageDirectionSkipped)
		return
	}

	trade := domain.DetectedTrade{
		ID:           idhash.ComputeDetectedTradeID(s.cfg.TargetWallet, sig.Signature),
		Signature:    sig.Signature,
		TargetWallet: s.cfg.TargetWallet,
		TokenMint:    swap.TokenMint,
		Direction:    swap.Direction,
		AmountSOL:    swap.AmountSOL,
		Venue:        string(swap.Venue),
		DetectedAt:   m.opts.Now().UnixMilli(),
	}
	if err := m.opts.Trades.Insert(ctx, &trade); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			log.Debug("trade already recorded, skipping replication")
			return
		}
		log.WithError(err).Error("failed to record detected trade")
	}

	m.stats.Incr(StageTradeDetected)
	m.opts.Events.Publish(events.TradeDetected(trade))
	m.notify(notify.TradeDetected(trade))
	log.WithFields(logrus.Fields{
		"mint":   trade.TokenMint,
		"dir":    trade.Direction,
		"amount": trade.AmountSOL,
		"venue":  trade.Venue,
	}).Info("trade detected")

	if s.cfg.CopyDelay > 0 {
		if err := m.opts.Sleep(ctx, s.cfg.CopyDelay); err != nil {
			return
		}
	}
	if ctx.Err() != nil {
		return
	}

	m.replicate(ctx, s, trade, swap)
}

func (m *Monitor) replicate(ctx context.Context, s *session, trade domain.DetectedTrade, swap *Swap) {
	log := s.log.WithField("signature", trade.Signature)

	kind := swap.Venue
	if s.cfg.Venue != "" {
		kind, _ = venue.ParseKind(s.cfg.Venue)
	}
	adapter, err := m.opts.Venues.Get(kind)
	if err != nil {
		log.WithError(err).Error("no adapter for replication")
		return
	}

	tasks, err := m.BuildTasks(ctx, s.cfg, swap)
	if err != nil {
		log.WithError(err).Error("failed to build replication tasks")
		return
	}
	if len(tasks) == 0 {
		log.Warn("no wallet can replicate trade")
		return
	}

	results := m.opts.Executor.ExecuteParallel(ctx, adapter, tasks)

	var succeeded, failed int
	for _, r := range results {
		if r.Status == domain.TxStatusConfirmed {
			succeeded++
		} else {
			failed++
		}
	}
	m.stats.Add(StageTradeReplicated, succeeded)
	m.stats.Add(StageTradeFailed, failed)

	if succeeded > 0 {
		if err := m.opts.Trades.SetReplicated(context.Background(), trade.ID, true); err != nil {
			log.WithError(err).Error("failed to mark trade replicated")
		}
	}
	log.WithFields(logrus.Fields{"succeeded": succeeded, "failed": failed}).Info("trade replicated")
}

// BuildTasks returns one task per configured wallet that has a public key.
// Buys spend the per-wallet SOL amount. Sells sell the share of the wallet's
// balance the target sold (SellMirror) or all of it (SellFull); wallets left
// with nothing to sell are skipped.
func (m *Monitor) BuildTasks(ctx context.Context, cfg Config, swap *Swap) ([]domain.SwapTask, error) {
	pubkeys, err := wallet.PublicKeys(ctx, m.opts.Wallets, cfg.WalletIDs)
	if err != nil {
		return nil, fmt.Errorf("list wallets: %w", err)
	}
	perWallet := cfg.PerWalletSOL(swap.AmountSOL)

	tasks := make([]domain.SwapTask, 0, len(cfg.WalletIDs))
	for _, id := range cfg.WalletIDs {
		payer, ok := pubkeys[id]
		if !ok {
			m.opts.Logger.WithField("wallet", id).Warn("wallet not in registry, skipping")
			continue
		}

		var amount uint64
		if swap.Direction == domain.DirectionBuy {
			amount = domain.SOLToLamports(perWallet)
		} else {
			amount, err = m.tokenBalance(ctx, payer, swap.TokenMint)
			if err != nil {
				m.opts.Logger.WithError(err).WithField("wallet", id).Warn("cannot read token balance, skipping")
				continue
			}
			if cfg.SellMode != SellFull {
				amount = sellAmount(amount, swap.SellFraction)
			}
		}
		if amount == 0 {
			continue
		}

		tasks = append(tasks, domain.NewSwapTask(id, payer, swap.TokenMint, swap.Direction, amount, perWallet, cfg.SlippageBps, domain.BotModeCopyTrade, 0))
	}
	return tasks, nil
}

// sellAmount returns floor(balance * fraction). A fraction outside (0, 1)
// sells the whole balance.
func sellAmount(balance uint64, fraction decimal.Decimal) uint64 {
	if !fraction.IsPositive() || !fraction.LessThan(decimal.NewFromInt(1)) {
		return balance
	}
	bal := decimal.NewFromBigInt(new(big.Int).SetUint64(balance), 0)
	return bal.Mul(fraction).Floor().BigInt().Uint64()
}

func (m *Monitor) tokenBalance(ctx context.Context, owner, mint string) (uint64, error) {
	ata, err := solana.AssociatedTokenAddress(owner, mint)
	if err != nil {
		return 0, err
	}
	bal, err := m.opts.RPC.GetTokenAccountBalance(ctx, ata)
	if err != nil {
		return 0, err
	}
	return strconv.ParseUint(bal.Amount, 10, 64)
}

func (m *Monitor) saveCursor(ctx context.Context, target, cursor string, log *logrus.Entry) {
	if m.opts.Cursors == nil || cursor == "" {
		return
	}
	if err := m.opts.Cursors.SetCursor(ctx, target, cursor); err != nil {
		log.WithError(err).Warn("failed to persist cursor")
	}
}

func (m *Monitor) storeSnapshot(s *session) {
	if m.opts.Snapshots == nil {
		return
	}
	snap := m.stats.Snapshot(s.cfg.TargetWallet)
	err := m.opts.Snapshots.InsertSnapshot(context.Background(), &snap)
	switch {
	case err == nil:
		observability.RecordSnapshotStored()
	case errors.Is(err, storage.ErrDuplicateKey):
	default:
		s.log.WithError(err).Warn("failed to store pipeline snapshot")
	}
}

func (m *Monitor) notify(e notify.Event) {
	if m.opts.Dispatcher == nil {
		return
	}
	m.opts.Dispatcher.Notify(m.opts.Notifier, e)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
