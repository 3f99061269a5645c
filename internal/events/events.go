// Package events fans out state changes to the UI WebSocket and to Kafka.
package events

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"solana-swap-bot/internal/domain"
	"solana-swap-bot/internal/observability"
)

// Type is the event name sent on the wire.
type Type string

// Event types
const (
	TypeBotState      Type = "bot:state"
	TypeTxNew         Type = "tx:new"
	TypeTxUpdate      Type = "tx:update"
	TypeTradeDetected Type = "trade:detected"
)

// Event is one pushed message.
type Event struct {
	Type      Type  `json:"type"`
	Data      any   `json:"data"`
	Timestamp int64 `json:"timestamp"` // Unix ms
}

// Publisher accepts events without blocking.
type Publisher interface {
	Publish(e Event)
}

// NopPublisher discards events.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(Event) {}

// TxNew wraps a freshly inserted record.
func TxNew(r domain.TransactionRecord) Event {
	return Event{Type: TypeTxNew, Data: r}
}

// TxUpdate wraps a record after its terminal update.
func TxUpdate(r domain.TransactionRecord) Event {
	return Event{Type: TypeTxUpdate, Data: r}
}

// TradeDetected wraps a detected copy-trade.
func TradeDetected(t domain.DetectedTrade) Event {
	return Event{Type: TypeTradeDetected, Data: t}
}

// BotStateChanged wraps a bot or monitor state snapshot.
func BotStateChanged(s domain.BotState) Event {
	return Event{Type: TypeBotState, Data: s}
}

// BusOptions configures a Bus.
type BusOptions struct {
	Buffer int // per-subscriber channel size, default 64
	Logger *logrus.Entry
	Now    func() time.Time
}

// Bus is an in-process Publisher with any number of subscribers.
// A slow subscriber loses events instead of blocking publishers.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]chan Event
	nextID int
	closed bool

	buffer int
	logger *logrus.Entry
	now    func() time.Time
}

// NewBus creates an empty bus.
func NewBus(opts BusOptions) *Bus {
	if opts.Buffer <= 0 {
		opts.Buffer = 64
	}
	if opts.Logger == nil {
		opts.Logger = logrus.WithField("component", "event_bus")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Bus{
		subs:   make(map[int]chan Event),
		buffer: opts.Buffer,
		logger: opts.Logger,
		now:    opts.Now,
	}
}

// Publish delivers e to every subscriber that has room.
func (b *Bus) Publish(e Event) {
	if e.Timestamp == 0 {
		e.Timestamp = b.now().UnixMilli()
	}
	observability.RecordEventPublished(string(e.Type))

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}
	for id, ch := range b.subs {
		select {
		case ch <- e:
		default:
			b.logger.WithFields(logrus.Fields{"subscriber": id, "type": e.Type}).Debug("subscriber full, event dropped")
		}
	}
}

// Subscribe registers a new subscriber. The returned func unsubscribes and closes the channel.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, b.buffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := b.nextID
	b.nextID++
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if c, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(c)
			}
		})
	}
}

// Close closes every subscriber channel. Later publishes are ignored.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		close(ch)
		delete(b.subs, id)
	}
}
