package solana

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// fakeWSNode confirms logsSubscribe requests and forwards every request to the test.
type fakeWSNode struct {
	mu       sync.Mutex
	conns    []*websocket.Conn
	nextSub  int64
	requests chan wsRequest
}

func newFakeWSNode(t *testing.T) (*fakeWSNode, string) {
	n := &fakeWSNode{nextSub: 100, requests: make(chan wsRequest, 16)}
	srv := httptest.NewServer(http.HandlerFunc(n.serve))
	t.Cleanup(srv.Close)
	return n, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func (n *fakeWSNode) serve(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	n.mu.Lock()
	n.conns = append(n.conns, conn)
	n.mu.Unlock()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var req wsRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			continue
		}
		if req.Method == "logsSubscribe" {
			n.mu.Lock()
			n.nextSub++
			sub := n.nextSub
			n.mu.Unlock()
			n.write(conn, map[string]interface{}{"jsonrpc": "2.0", "id": req.ID, "result": sub})
		}
		n.requests <- req
	}
}

func (n *fakeWSNode) write(conn *websocket.Conn, v interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	conn.WriteJSON(v)
}

func (n *fakeWSNode) conn(i int) *websocket.Conn {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.conns[i]
}

func (n *fakeWSNode) notify(conn *websocket.Conn, sub int64, sig string, failed bool) {
	errVal := interface{}(nil)
	if failed {
		errVal = map[string]interface{}{"InstructionError": []interface{}{0, "Custom"}}
	}
	n.write(conn, map[string]interface{}{
		"jsonrpc": "2.0",
		"method":  "logsNotification",
		"params": map[string]interface{}{
			"subscription": sub,
			"result": map[string]interface{}{
				"context": map[string]interface{}{"slot": 42},
				"value":   map[string]interface{}{"signature": sig, "err": errVal, "logs": []string{"Program log: x"}},
			},
		},
	})
}

func (n *fakeWSNode) nextRequest(t *testing.T) wsRequest {
	t.Helper()
	select {
	case req := <-n.requests:
		return req
	case <-time.After(5 * time.Second):
		t.Fatal("no request received")
		return wsRequest{}
	}
}

func receive(t *testing.T, ch <-chan LogNotification) LogNotification {
	t.Helper()
	select {
	case n, ok := <-ch:
		require.True(t, ok, "channel closed")
		return n
	case <-time.After(5 * time.Second):
		t.Fatal("no notification received")
		return LogNotification{}
	}
}

func testWSConfig() *WSConfig {
	cfg := DefaultWSConfig()
	cfg.ReconnectDelay = 10 * time.Millisecond
	cfg.MaxReconnectDelay = 50 * time.Millisecond
	cfg.SubscribeTimeout = 2 * time.Second
	return &cfg
}

func TestWSClient_SubscribeLogs(t *testing.T) {
	node, url := newFakeWSNode(t)
	client, err := NewWSClient(context.Background(), url, testWSConfig())
	require.NoError(t, err)
	defer client.Close()

	ch, err := client.SubscribeLogs(context.Background(), "TargetWallet111")
	require.NoError(t, err)

	req := node.nextRequest(t)
	assert.Equal(t, "logsSubscribe", req.Method)
	raw, _ := json.Marshal(req.Params)
	assert.JSONEq(t, `[{"mentions":["TargetWallet111"]},{"commitment":"confirmed"}]`, string(raw))

	node.notify(node.conn(0), 101, "sig-ok", false)
	node.notify(node.conn(0), 101, "sig-failed", true)
	node.notify(node.conn(0), 999, "other-sub", false)

	got := receive(t, ch)
	assert.Equal(t, "sig-ok", got.Signature)
	assert.Equal(t, int64(42), got.Slot)
	assert.False(t, got.Failed)

	got = receive(t, ch)
	assert.Equal(t, "sig-failed", got.Signature)
	assert.True(t, got.Failed)
}

func TestWSClient_ContextCancelUnsubscribes(t *testing.T) {
	node, url := newFakeWSNode(t)
	client, err := NewWSClient(context.Background(), url, testWSConfig())
	require.NoError(t, err)
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := client.SubscribeLogs(ctx, "TargetWallet111")
	require.NoError(t, err)
	node.nextRequest(t)

	cancel()
	req := node.nextRequest(t)
	assert.Equal(t, "logsUnsubscribe", req.Method)
	assert.Equal(t, []interface{}{float64(101)}, req.Params)

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("channel not closed")
	}
}

func TestWSClient_ResubscribesAfterReconnect(t *testing.T) {
	node, url := newFakeWSNode(t)
	client, err := NewWSClient(context.Background(), url, testWSConfig())
	require.NoError(t, err)
	defer client.Close()

	ch, err := client.SubscribeLogs(context.Background(), "TargetWallet111")
	require.NoError(t, err)
	node.nextRequest(t)

	node.conn(0).Close()

	req := node.nextRequest(t)
	assert.Equal(t, "logsSubscribe", req.Method)

	// the confirmation for the new subscription id is processed before the notification
	node.notify(node.conn(1), 102, "after-reconnect", false)
	assert.Equal(t, "after-reconnect", receive(t, ch).Signature)
}

func TestWSClient_Close(t *testing.T) {
	_, url := newFakeWSNode(t)
	client, err := NewWSClient(context.Background(), url, testWSConfig())
	require.NoError(t, err)

	ch, err := client.SubscribeLogs(context.Background(), "TargetWallet111")
	require.NoError(t, err)

	require.NoError(t, client.Close())
	require.NoError(t, client.Close())

	_, ok := <-ch
	assert.False(t, ok)

	_, err = client.SubscribeLogs(context.Background(), "TargetWallet111")
	assert.ErrorIs(t, err, ErrWSClosed)
}

func TestWSClient_DialError(t *testing.T) {
	_, err := NewWSClient(context.Background(), "ws://127.0.0.1:1", testWSConfig())
	assert.Error(t, err)
}
