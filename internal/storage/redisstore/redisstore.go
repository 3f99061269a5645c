// Package redisstore keeps the copy-trade cursor in Redis so several
// processes, or a restarted one, resume from the same signature.
package redisstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"solana-swap-bot/internal/storage"
)

const defaultKeyPrefix = "swapbot:cursor:"

// Client wraps redis.Client for dependency injection.
type Client struct {
	*redis.Client
}

// NewClient connects to addr and verifies the connection.
func NewClient(ctx context.Context, addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Client{Client: rdb}, nil
}

// CursorStore is a Redis implementation of storage.CursorStore.
// One string key per monitored wallet.
type CursorStore struct {
	client *Client
	prefix string
}

// NewCursorStore creates a cursor store. An empty prefix uses "swapbot:cursor:".
func NewCursorStore(client *Client, prefix string) *CursorStore {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &CursorStore{client: client, prefix: prefix}
}

// Compile-time interface check.
var _ storage.CursorStore = (*CursorStore)(nil)

// GetCursor returns the last processed signature for wallet.
func (s *CursorStore) GetCursor(ctx context.Context, wallet string) (string, error) {
	sig, err := s.client.Get(ctx, s.prefix+wallet).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", storage.ErrNotFound
		}
		return "", fmt.Errorf("get cursor: %w", err)
	}
	return sig, nil
}

// SetCursor saves the last processed signature for wallet. Keys never expire.
func (s *CursorStore) SetCursor(ctx context.Context, wallet, signature string) error {
	if wallet == "" || signature == "" {
		return storage.ErrInvalidInput
	}
	if err := s.client.Set(ctx, s.prefix+wallet, signature, 0).Err(); err != nil {
		return fmt.Errorf("set cursor: %w", err)
	}
	return nil
}
