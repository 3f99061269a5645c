package notify

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"solana-swap-bot/internal/observability"
)

// DispatcherOptions configures the detached side-effect queue.
type DispatcherOptions struct {
	Workers   int           // default 4
	QueueSize int           // default 256
	Timeout   time.Duration // per job, default 30s
	Logger    *logrus.Entry
}

type job struct {
	kind string
	fn   func(ctx context.Context) error
}

// Dispatcher runs fire-and-forget jobs on a bounded worker pool.
// Job failures are logged and counted, never returned to the caller.
type Dispatcher struct {
	jobs    chan job
	timeout time.Duration
	logger  *logrus.Entry

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher starts the worker goroutines.
func NewDispatcher(opts DispatcherOptions) *Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = logrus.WithField("component", "dispatcher")
	}

	d := &Dispatcher{
		jobs:    make(chan job, opts.QueueSize),
		timeout: opts.Timeout,
		logger:  opts.Logger,
	}
	for i := 0; i < opts.Workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

// Go enqueues fn without blocking. Returns false when the queue is full or closed.
func (d *Dispatcher) Go(kind string, fn func(ctx context.Context) error) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		observability.RecordDispatchDropped()
		return false
	}

	select {
	case d.jobs <- job{kind: kind, fn: fn}:
		return true
	default:
		observability.RecordDispatchDropped()
		d.logger.WithField("kind", kind).Warn("dispatch queue full, dropping job")
		return false
	}
}

// Notify enqueues n.Notify(e). A nil notifier is a no-op.
func (d *Dispatcher) Notify(n Notifier, e Event) bool {
	if n == nil {
		return false
	}
	return d.Go(string(e.Kind), func(ctx context.Context) error {
		return n.Notify(ctx, e)
	})
}

// Close stops accepting jobs and waits for queued ones to finish.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.jobs)
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for j := range d.jobs {
		d.run(j)
	}
}

func (d *Dispatcher) run(j job) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			observability.RecordNotificationError(j.kind)
			d.logger.WithField("kind", j.kind).Errorf("detached job panicked: %v", r)
		}
	}()

	if err := j.fn(ctx); err != nil {
		observability.RecordNotificationError(j.kind)
		d.logger.WithError(err).WithField("kind", j.kind).Warn("detached job failed")
	}
}
