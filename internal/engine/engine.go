// Package engine executes swap tasks with retry and records every attempt
// sequence in the transaction audit log.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"solana-swap-bot/internal/domain"
	"solana-swap-bot/internal/events"
	"solana-swap-bot/internal/notify"
	"solana-swap-bot/internal/observability"
	"solana-swap-bot/internal/solana"
	"solana-swap-bot/internal/storage"
	"solana-swap-bot/internal/venue"
	"solana-swap-bot/internal/wallet"
)

// Config holds retry and fee settings.
type Config struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	// BaseDelay is the delay after the first failed attempt; it doubles each retry.
	BaseDelay time.Duration
	// PlatformFeeBps is charged on AmountSOL after each confirmed swap.
	PlatformFeeBps int
	// PlatformFeeWallet receives the fee. Empty disables fee collection.
	PlatformFeeWallet string
	// ConfirmTimeout bounds confirmation of the fee transfer.
	ConfirmTimeout time.Duration
}

// DefaultConfig returns default engine configuration.
func DefaultConfig() Config {
	return Config{
		MaxRetries:     3,
		BaseDelay:      time.Second,
		PlatformFeeBps: 150,
		ConfirmTimeout: solana.DefaultConfirmTimeout,
	}
}

// Options holds the engine collaborators.
type Options struct {
	Transactions storage.TransactionStore
	Keys         wallet.KeyCustody
	RPC          solana.RPCClient // used for the platform fee transfer
	Events       events.Publisher
	Notifier     notify.Notifier
	Dispatcher   *notify.Dispatcher
	Logger       *logrus.Entry

	// Sleep waits between attempts. Defaults to a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
	// Now is the clock for CreatedAt. Defaults to time.Now.
	Now func() time.Time
}

// Engine executes SwapTasks through venue adapters.
// Results are always terminal records, never errors.
type Engine struct {
	cfg          Config
	transactions storage.TransactionStore
	keys         wallet.KeyCustody
	rpc          solana.RPCClient
	events       events.Publisher
	notifier     notify.Notifier
	dispatcher   *notify.Dispatcher
	logger       *logrus.Entry
	sleep        func(ctx context.Context, d time.Duration) error
	now          func() time.Time
}

// New creates an Engine.
func New(cfg Config, opts Options) *Engine {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = solana.DefaultConfirmTimeout
	}
	if opts.Events == nil {
		opts.Events = events.NopPublisher{}
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Nop{}
	}
	if opts.Logger == nil {
		opts.Logger = logrus.WithField("component", "engine")
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepCtx
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{
		cfg:          cfg,
		transactions: opts.Transactions,
		keys:         opts.Keys,
		rpc:          opts.RPC,
		events:       opts.Events,
		notifier:     opts.Notifier,
		dispatcher:   opts.Dispatcher,
		logger:       opts.Logger,
		sleep:        opts.Sleep,
		now:          opts.Now,
	}
}

// RetryDelay returns the wait after failed attempt number attempt (0-based).
func (e *Engine) RetryDelay(attempt int) time.Duration {
	return e.cfg.BaseDelay * time.Duration(1<<uint(attempt))
}

// ExecuteWithRetry runs one task to a terminal record.
//
// A pending record is stored before any network call. ExecuteSwap is tried up
// to MaxRetries+1 times; a SafetyError stops retrying. Cancellation is checked
// only between attempts. A panic after the pending record is stored fails
// that same record.
func (e *Engine) ExecuteWithRetry(ctx context.Context, adapter venue.Adapter, task domain.SwapTask) (out domain.TransactionRecord) {
	start := time.Now()
	rec := e.newRecord(adapter.Name(), task)
	log := e.logger.WithFields(logrus.Fields{
		"tx_id":  rec.ID,
		"wallet": task.WalletID,
		"venue":  rec.Venue,
		"dir":    task.Direction,
		"mode":   task.BotMode,
	})

	if err := e.transactions.Insert(ctx, &rec); err != nil {
		log.WithError(err).Error("failed to record pending transaction, not executing")
		rec.Status = domain.TxStatusFailed
		msg := fmt.Sprintf("record pending transaction: %v", err)
		rec.Error = &msg
		return rec
	}
	e.events.Publish(events.TxNew(rec))

	defer func() {
		if r := recover(); r != nil {
			log.Errorf("swap task panicked: %v", r)
			out = e.finishFailed(rec, fmt.Errorf("panic: %v", r), log, start)
		}
	}()

	key, err := e.keys.SigningKey(ctx, task.WalletID)
	if err != nil {
		return e.finishFailed(rec, fmt.Errorf("resolve signing key: %w", err), log, start)
	}

	var lastErr error
	for attempt := 0; attempt <= e.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := e.RetryDelay(attempt - 1)
			log.WithError(lastErr).WithFields(logrus.Fields{"attempt": attempt, "delay": delay}).Warn("swap attempt failed, retrying")
			if err := e.sleep(ctx, delay); err != nil {
				lastErr = fmt.Errorf("%w (last error: %v)", err, lastErr)
				break
			}
		}
		if err := ctx.Err(); err != nil {
			if lastErr == nil {
				lastErr = err
			} else {
				lastErr = fmt.Errorf("%w (last error: %v)", err, lastErr)
			}
			break
		}

		observability.RecordSwapAttempt(rec.Venue)
		res, err := adapter.ExecuteSwap(ctx, task.Params, key)
		if err == nil {
			return e.finishConfirmed(rec, res, key, task, log, start)
		}
		lastErr = err

		if venue.IsSafetyError(err) {
			log.WithError(err).Error("swap rejected by safety validator, not retrying")
			break
		}
	}

	return e.finishFailed(rec, lastErr, log, start)
}

// ExecuteParallel runs all tasks concurrently. Results are in input order.
// A panic before the pending record is stored yields a synthesized failed
// record that was never persisted.
func (e *Engine) ExecuteParallel(ctx context.Context, adapter venue.Adapter, tasks []domain.SwapTask) []domain.TransactionRecord {
	results := make([]domain.TransactionRecord, len(tasks))

	var wg sync.WaitGroup
	for i, task := range tasks {
		wg.Add(1)
		go func(i int, task domain.SwapTask) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					e.logger.WithField("wallet", task.WalletID).Errorf("swap task panicked: %v", r)
					results[i] = e.synthesizeFailed(adapter.Name(), task, fmt.Sprintf("panic: %v", r))
				}
			}()
			results[i] = e.ExecuteWithRetry(ctx, adapter, task)
		}(i, task)
	}
	wg.Wait()

	return results
}

// ExecuteSequential runs tasks one at a time with delay between them.
// Tasks not yet started when ctx is cancelled are skipped.
func (e *Engine) ExecuteSequential(ctx context.Context, adapter venue.Adapter, tasks []domain.SwapTask, delay time.Duration) []domain.TransactionRecord {
	results := make([]domain.TransactionRecord, 0, len(tasks))

	for i, task := range tasks {
		if i > 0 && delay > 0 {
			if err := e.sleep(ctx, delay); err != nil {
				break
			}
		}
		if ctx.Err() != nil {
			break
		}
		results = append(results, e.ExecuteWithRetry(ctx, adapter, task))
	}

	return results
}

func (e *Engine) newRecord(venueName string, task domain.SwapTask) domain.TransactionRecord {
	return domain.TransactionRecord{
		ID:              uuid.NewString(),
		WalletID:        task.WalletID,
		WalletPublicKey: task.Params.Payer,
		TokenMint:       task.TokenMint,
		Direction:       task.Direction,
		AmountSOL:       task.AmountSOL,
		Venue:           venueName,
		Status:          domain.TxStatusPending,
		BotMode:         task.BotMode,
		Round:           task.Round,
		CreatedAt:       e.now().UnixMilli(),
	}
}

func (e *Engine) synthesizeFailed(venueName string, task domain.SwapTask, msg string) domain.TransactionRecord {
	rec := e.newRecord(venueName, task)
	rec.Status = domain.TxStatusFailed
	rec.Error = &msg
	observability.RecordSwapOutcome(venueName, string(task.BotMode), string(domain.TxStatusFailed), 0)
	return rec
}

func (e *Engine) finishConfirmed(rec domain.TransactionRecord, res *domain.SwapResult, key solanago.PrivateKey, task domain.SwapTask, log *logrus.Entry, start time.Time) domain.TransactionRecord {
	out := res.OutputAmount
	final := e.applyTerminal(rec, domain.TxStatusUpdate{
		Status:      domain.TxStatusConfirmed,
		Signature:   res.Signature,
		AmountToken: &out,
	}, log)

	observability.RecordSwapOutcome(rec.Venue, string(rec.BotMode), string(domain.TxStatusConfirmed), time.Since(start).Seconds())
	log.WithFields(logrus.Fields{"signature": res.Signature, "output": out}).Info("swap confirmed")

	e.collectPlatformFee(key, task.AmountSOL)
	e.notifyDetached(notify.TxOutcome(final))
	return final
}

func (e *Engine) finishFailed(rec domain.TransactionRecord, cause error, log *logrus.Entry, start time.Time) domain.TransactionRecord {
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}
	final := e.applyTerminal(rec, domain.TxStatusUpdate{
		Status: domain.TxStatusFailed,
		Error:  &msg,
	}, log)

	observability.RecordSwapOutcome(rec.Venue, string(rec.BotMode), string(domain.TxStatusFailed), time.Since(start).Seconds())
	log.WithError(cause).Error("swap failed")

	e.notifyDetached(notify.TxOutcome(final))
	return final
}

// applyTerminal persists u. The returned record is terminal even when the store update fails.
func (e *Engine) applyTerminal(rec domain.TransactionRecord, u domain.TxStatusUpdate, log *logrus.Entry) domain.TransactionRecord {
	// the pending row must reach its terminal state even if the caller was cancelled
	ctx := context.Background()

	final := u.Apply(rec)
	if stored, err := e.transactions.UpdateStatus(ctx, rec.ID, u); err != nil {
		log.WithError(err).Error("failed to record terminal status")
	} else {
		final = *stored
	}
	e.events.Publish(events.TxUpdate(final))
	return final
}

func (e *Engine) notifyDetached(ev notify.Event) {
	if e.dispatcher == nil {
		return
	}
	e.dispatcher.Notify(e.notifier, ev)
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
