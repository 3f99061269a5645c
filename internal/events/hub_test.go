package events

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-swap-bot/internal/domain"
)

func TestHub_PushesEvents(t *testing.T) {
	bus := NewBus(BusOptions{})
	src, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	hub := NewHub(DefaultHubConfig(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx, src)

	server := httptest.NewServer(hub)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	bus.Publish(TradeDetected(domain.DetectedTrade{Signature: "sig1", Direction: domain.DirectionBuy}))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var got struct {
		Type Type `json:"type"`
		Data struct {
			Signature string `json:"signature"`
			Direction string `json:"direction"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(msg, &got))
	assert.Equal(t, TypeTradeDetected, got.Type)
	assert.Equal(t, "sig1", got.Data.Signature)
	assert.Equal(t, "buy", got.Data.Direction)
}

func TestHub_UnregistersOnDisconnect(t *testing.T) {
	hub := NewHub(DefaultHubConfig(), nil)
	server := httptest.NewServer(hub)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}
