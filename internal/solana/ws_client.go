package solana

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// ErrWSClosed is returned by a closed WSClient.
var ErrWSClosed = errors.New("websocket client closed")

// WSConfig configures WebSocket client behavior.
type WSConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt; it doubles up to MaxReconnectDelay.
	ReconnectDelay    time.Duration
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is how long the connection may stay silent, pongs included.
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	SubscribeTimeout time.Duration
	Commitment       string
	// Buffer is the per-subscription channel size. Notifications beyond it are dropped.
	Buffer int
	Logger *logrus.Entry
}

// DefaultWSConfig returns default WebSocket configuration.
func DefaultWSConfig() WSConfig {
	return WSConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		SubscribeTimeout:  30 * time.Second,
		Commitment:        CommitmentConfirmed,
		Buffer:            64,
	}
}

type logSub struct {
	account  string
	ch       chan LogNotification
	serverID int64 // 0 until confirmed on the current connection
}

type pendingSub struct {
	sub     *logSub
	confirm chan error
}

// WSClient implements LogSubscriber over one WebSocket connection.
// After a dropped connection it reconnects and resubscribes every live subscription.
type WSClient struct {
	endpoint string
	cfg      WSConfig
	logger   *logrus.Entry

	writeMu sync.Mutex
	conn    *websocket.Conn

	mu       sync.Mutex
	nextID   uint64
	subs     map[*logSub]struct{}
	pending  map[uint64]pendingSub
	byServer map[int64]*logSub

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

var _ LogSubscriber = (*WSClient)(nil)

// NewWSClient connects to endpoint. A nil config uses DefaultWSConfig.
func NewWSClient(ctx context.Context, endpoint string, config *WSConfig) (*WSClient, error) {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = 64
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.WithField("component", "solana_ws")
	}

	c := &WSClient{
		endpoint: endpoint,
		cfg:      cfg,
		logger:   cfg.Logger,
		subs:     make(map[*logSub]struct{}),
		pending:  make(map[uint64]pendingSub),
		byServer: make(map[int64]*logSub),
		done:     make(chan struct{}),
	}

	conn, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}
	c.conn = conn

	c.wg.Add(1)
	go c.run(conn)
	return c, nil
}

func (c *WSClient) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}
	return conn, nil
}

// SubscribeLogs implements LogSubscriber.
func (c *WSClient) SubscribeLogs(ctx context.Context, account string) (<-chan LogNotification, error) {
	sub := &logSub{account: account, ch: make(chan LogNotification, c.cfg.Buffer)}

	c.mu.Lock()
	select {
	case <-c.done:
		c.mu.Unlock()
		return nil, ErrWSClosed
	default:
	}
	c.subs[sub] = struct{}{}
	c.mu.Unlock()

	confirm, err := c.subscribe(sub)
	if err != nil {
		c.remove(sub)
		return nil, err
	}

	timer := time.NewTimer(c.cfg.SubscribeTimeout)
	defer timer.Stop()
	select {
	case err := <-confirm:
		if err != nil {
			c.remove(sub)
			return nil, fmt.Errorf("logsSubscribe: %w", err)
		}
	case <-timer.C:
		c.remove(sub)
		return nil, fmt.Errorf("logsSubscribe: no confirmation after %s", c.cfg.SubscribeTimeout)
	case <-ctx.Done():
		c.remove(sub)
		return nil, ctx.Err()
	case <-c.done:
		return nil, ErrWSClosed
	}

	go func() {
		select {
		case <-ctx.Done():
			c.remove(sub)
		case <-c.done:
		}
	}()
	return sub.ch, nil
}

// subscribe sends logsSubscribe for sub on the current connection.
func (c *WSClient) subscribe(sub *logSub) (<-chan error, error) {
	confirm := make(chan error, 1)

	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.pending[id] = pendingSub{sub: sub, confirm: confirm}
	c.mu.Unlock()

	err := c.write(wsRequest{
		JSONRPC: "2.0",
		ID:      id,
		Method:  "logsSubscribe",
		Params: []interface{}{
			map[string][]string{"mentions": {sub.account}},
			map[string]string{"commitment": c.cfg.Commitment},
		},
	})
	if err != nil {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, err
	}
	return confirm, nil
}

// remove drops sub, closes its channel and unsubscribes on the server.
func (c *WSClient) remove(sub *logSub) {
	c.mu.Lock()
	if _, ok := c.subs[sub]; !ok {
		c.mu.Unlock()
		return
	}
	delete(c.subs, sub)
	serverID := sub.serverID
	if serverID != 0 {
		delete(c.byServer, serverID)
	}
	close(sub.ch)
	c.nextID++
	id := c.nextID
	c.mu.Unlock()

	if serverID != 0 {
		err := c.write(wsRequest{JSONRPC: "2.0", ID: id, Method: "logsUnsubscribe", Params: []interface{}{serverID}})
		if err != nil {
			c.logger.WithError(err).Debug("logsUnsubscribe failed")
		}
	}
}

func (c *WSClient) write(req wsRequest) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.conn == nil {
		return errors.New("websocket not connected")
	}
	c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	if err := c.conn.WriteJSON(req); err != nil {
		return fmt.Errorf("websocket write: %w", err)
	}
	return nil
}

// run reads conn until it fails, then reconnects until Close.
func (c *WSClient) run(conn *websocket.Conn) {
	defer c.wg.Done()

	for {
		err := c.serve(conn)
		select {
		case <-c.done:
			return
		default:
		}
		c.logger.WithError(err).Warn("websocket connection lost, reconnecting")

		conn = c.redial()
		if conn == nil {
			return
		}
		c.resubscribe()
	}
}

func (c *WSClient) serve(conn *websocket.Conn) error {
	extend := func() { conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout)) }
	extend()
	conn.SetPongHandler(func(string) error {
		extend()
		return nil
	})

	stop := make(chan struct{})
	defer close(stop)
	go c.ping(conn, stop)

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		extend()
		c.handle(msg)
	}
}

func (c *WSClient) ping(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			// a failed ping surfaces as a read error
			conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.cfg.WriteTimeout))
		}
	}
}

// redial replaces the connection, backing off between attempts.
// Returns nil once the client is closed.
func (c *WSClient) redial() *websocket.Conn {
	c.writeMu.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.writeMu.Unlock()

	delay := c.cfg.ReconnectDelay
	for {
		select {
		case <-c.done:
			return nil
		case <-time.After(delay):
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		conn, err := c.dial(ctx)
		cancel()
		if err == nil {
			c.writeMu.Lock()
			select {
			case <-c.done:
				c.writeMu.Unlock()
				conn.Close()
				return nil
			default:
			}
			c.conn = conn
			c.writeMu.Unlock()
			return conn
		}

		c.logger.WithError(err).WithField("retry_in", delay).Debug("websocket reconnect failed")
		delay *= 2
		if delay > c.cfg.MaxReconnectDelay {
			delay = c.cfg.MaxReconnectDelay
		}
	}
}

// resubscribe re-sends logsSubscribe for every live subscription.
// Confirmations are applied by handle.
func (c *WSClient) resubscribe() {
	c.mu.Lock()
	c.byServer = make(map[int64]*logSub)
	c.pending = make(map[uint64]pendingSub)
	subs := make([]*logSub, 0, len(c.subs))
	for sub := range c.subs {
		sub.serverID = 0
		subs = append(subs, sub)
	}
	c.mu.Unlock()

	for _, sub := range subs {
		if _, err := c.subscribe(sub); err != nil {
			c.logger.WithError(err).WithField("account", sub.account).Warn("resubscribe failed")
		}
	}
}

func (c *WSClient) handle(msg []byte) {
	var m wsMessage
	if err := json.Unmarshal(msg, &m); err != nil {
		c.logger.WithError(err).Debug("unparseable websocket message")
		return
	}

	if m.Method == "logsNotification" && m.Params != nil {
		c.deliver(m.Params)
		return
	}
	if m.ID == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.pending[*m.ID]
	if !ok {
		return
	}
	delete(c.pending, *m.ID)

	if m.Error != nil {
		p.confirm <- m.Error
		return
	}
	var serverID int64
	if err := json.Unmarshal(m.Result, &serverID); err != nil {
		p.confirm <- fmt.Errorf("decode subscription id: %w", err)
		return
	}
	if _, live := c.subs[p.sub]; !live {
		return
	}
	p.sub.serverID = serverID
	c.byServer[serverID] = p.sub
	p.confirm <- nil
}

func (c *WSClient) deliver(params *wsNotificationParams) {
	n := LogNotification{
		Signature: params.Result.Value.Signature,
		Slot:      params.Result.Context.Slot,
		Failed:    len(params.Result.Value.Err) > 0 && string(params.Result.Value.Err) != "null",
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	sub, ok := c.byServer[params.Subscription]
	if !ok {
		return
	}
	select {
	case sub.ch <- n:
	default:
		c.logger.WithField("account", sub.account).Debug("log notification dropped, subscriber is slow")
	}
}

// Close closes the connection and every subscription channel.
func (c *WSClient) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		close(c.done)
		c.mu.Unlock()

		c.writeMu.Lock()
		if c.conn != nil {
			c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(c.cfg.WriteTimeout))
			c.conn.Close()
		}
		c.writeMu.Unlock()
		c.wg.Wait()

		c.mu.Lock()
		for sub := range c.subs {
			close(sub.ch)
		}
		c.subs = make(map[*logSub]struct{})
		c.mu.Unlock()
	})
	return nil
}

// WebSocket message types

type wsRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

// wsMessage is either a response to a request or a notification.
type wsMessage struct {
	ID     *uint64               `json:"id"`
	Result json.RawMessage       `json:"result"`
	Error  *rpcError             `json:"error"`
	Method string                `json:"method"`
	Params *wsNotificationParams `json:"params"`
}

type wsNotificationParams struct {
	Subscription int64 `json:"subscription"`
	Result       struct {
		Context struct {
			Slot int64 `json:"slot"`
		} `json:"context"`
		Value struct {
			Signature string          `json:"signature"`
			Err       json.RawMessage `json:"err"`
		} `json:"value"`
	} `json:"result"`
}
