// Package bot runs the bundle and volume trading modes.
package bot

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"math/rand/v2"
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
	"solana-swap-bot/internal/venue"
	"solana-swap-bot/internal/wallet"
)

// ErrAlreadyRunning is returned when a bot is started while another one runs.
var ErrAlreadyRunning = errors.New("bot is already running")

// ErrNotRunning is returned by Stop when no bot runs.
var ErrNotRunning = errors.New("bot is not running")

// Executor runs swap tasks. Implemented by *engine.Engine.
type Executor interface {
	ExecuteParallel(ctx context.Context, adapter venue.Adapter, tasks []domain.SwapTask) []domain.TransactionRecord
	ExecuteSequential(ctx context.Context, adapter venue.Adapter, tasks []domain.SwapTask, delay time.Duration) []domain.TransactionRecord
}

// Options holds the controller collaborators.
type Options struct {
	Executor   Executor
	Venues     *venue.Registry
	Wallets    wallet.Registry
	RPC        solana.RPCClient // token balances for sells
	Events     events.Publisher
	Notifier   notify.Notifier
	Dispatcher *notify.Dispatcher
	Logger     *logrus.Entry

	Sleep func(ctx context.Context, d time.Duration) error
	Now   func() time.Time
	// RandDuration returns a duration in [min, max]. Defaults to a uniform draw.
	RandDuration func(min, max time.Duration) time.Duration
}

// Controller runs at most one bot (bundle or volume) at a time.
type Controller struct {
	opts Options

	mu     sync.Mutex
	state  domain.BotState
	cancel context.CancelFunc
	done   chan struct{}
}

// NewController creates an idle controller.
func NewController(opts Options) *Controller {
	if opts.Events == nil {
		opts.Events = events.NopPublisher{}
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Nop{}
	}
	if opts.Logger == nil {
		opts.Logger = logrus.WithField("component", "bot")
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepCtx
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.RandDuration == nil {
		opts.RandDuration = randDuration
	}
	return &Controller{
		opts:  opts,
		state: domain.BotState{Status: domain.BotStatusIdle},
	}
}

// State returns a snapshot of the bot state.
func (c *Controller) State() domain.BotState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Stop asks the running bot to finish. Swaps already submitted complete.
func (c *Controller) Stop() error {
	c.mu.Lock()
	if c.state.Status != domain.BotStatusRunning || c.cancel == nil {
		c.mu.Unlock()
		return ErrNotRunning
	}
	c.cancel()
	c.state.Status = domain.BotStatusStopping
	state := c.state
	c.mu.Unlock()

	c.opts.Events.Publish(events.BotStateChanged(state))
	return nil
}

// Wait blocks until the current run ends or ctx is done.
func (c *Controller) Wait(ctx context.Context) error {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
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

// run holds one bot session.
type run struct {
	ctx     context.Context
	mode    domain.BotMode
	adapter venue.Adapter
	log     *logrus.Entry
}

// begin reserves the controller for mode and starts body in the background.
func (c *Controller) begin(mode domain.BotMode, tokenMint string, totalRounds int, adapter venue.Adapter, body func(r *run) error) error {
	c.mu.Lock()
	if c.state.Status == domain.BotStatusRunning || c.state.Status == domain.BotStatusStopping {
		c.mu.Unlock()
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	now := c.opts.Now().UnixMilli()
	c.state = domain.BotState{
		Status:      domain.BotStatusRunning,
		Mode:        mode,
		TotalRounds: totalRounds,
		StartedAt:   &now,
	}
	c.cancel = cancel
	c.done = done
	state := c.state
	c.mu.Unlock()

	log := c.opts.Logger.WithFields(logrus.Fields{
		"mode":    mode,
		"mint":    tokenMint,
		"venue":   adapter.Name(),
		"session": idhash.ComputeSessionID(string(mode), tokenMint, now)[:16],
	})

	observability.SetBotRunning(string(mode), true)
	c.opts.Events.Publish(events.BotStateChanged(state))
	c.notify(notify.Event{Kind: notify.KindBotStarted, Mode: mode, TokenMint: tokenMint})
	log.WithField("rounds", totalRounds).Info("bot started")

	go func() {
		defer close(done)
		defer cancel()
		err := body(&run{ctx: ctx, mode: mode, adapter: adapter, log: log})
		c.end(mode, err, log)
	}()
	return nil
}

func (c *Controller) end(mode domain.BotMode, err error, log *logrus.Entry) {
	c.mu.Lock()
	c.cancel = nil
	if err != nil {
		msg := err.Error()
		c.state.Status = domain.BotStatusError
		c.state.Error = &msg
	} else {
		c.state.Status = domain.BotStatusIdle
	}
	state := c.state
	c.mu.Unlock()

	observability.SetBotRunning(string(mode), false)
	c.opts.Events.Publish(events.BotStateChanged(state))

	fields := logrus.Fields{
		"round":     state.CurrentRound,
		"completed": state.TradesCompleted,
		"failed":    state.TradesFailed,
	}
	if err != nil {
		log.WithError(err).WithFields(fields).Error("bot stopped with error")
		c.notify(notify.Event{Kind: notify.KindBotError, Mode: mode, Error: err.Error()})
		return
	}
	log.WithFields(fields).Info("bot stopped")
	c.notify(notify.Event{Kind: notify.KindBotStopped, Mode: mode})
}

func (c *Controller) update(fn func(s *domain.BotState)) {
	c.mu.Lock()
	fn(&c.state)
	state := c.state
	c.mu.Unlock()
	c.opts.Events.Publish(events.BotStateChanged(state))
}

func (c *Controller) tally(results []domain.TransactionRecord) {
	var ok, failed int
	for _, r := range results {
		if r.Status == domain.TxStatusConfirmed {
			ok++
		} else {
			failed++
		}
	}
	c.update(func(s *domain.BotState) {
		s.TradesCompleted += ok
		s.TradesFailed += failed
	})
}

func (c *Controller) notify(e notify.Event) {
	if c.opts.Dispatcher == nil {
		return
	}
	c.opts.Dispatcher.Notify(c.opts.Notifier, e)
}

// resolveWallets returns the configured wallets that exist in the registry, in config order.
func (c *Controller) resolveWallets(ctx context.Context, ids []string) ([]domain.Wallet, []string, error) {
	pubkeys, err := wallet.PublicKeys(ctx, c.opts.Wallets, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("list wallets: %w", err)
	}
	var found []domain.Wallet
	var missing []string
	for _, id := range ids {
		pk, ok := pubkeys[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		found = append(found, domain.Wallet{ID: id, PublicKey: pk})
	}
	return found, missing, nil
}

// sellAmount returns pct percent of owner's raw balance of mint.
func (c *Controller) sellAmount(ctx context.Context, owner, mint string, pct int) (uint64, error) {
	if c.opts.RPC == nil {
		return 0, errors.New("no RPC client for token balances")
	}
	ata, err := solana.AssociatedTokenAddress(owner, mint)
	if err != nil {
		return 0, err
	}
	bal, err := c.opts.RPC.GetTokenAccountBalance(ctx, ata)
	if err != nil {
		return 0, fmt.Errorf("token balance of %s: %w", ata, err)
	}
	raw, err := strconv.ParseUint(bal.Amount, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("token balance of %s: %w", ata, err)
	}
	amount := decimal.NewFromBigInt(new(big.Int).SetUint64(raw), 0).
		Mul(decimal.NewFromInt(int64(pct))).
		Div(decimal.NewFromInt(100)).
		Floor()
	return amount.BigInt().Uint64(), nil
}

func randDuration(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + rand.N(max-min+1)
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
