package solana

import "context"

// LogSubscriber streams logsSubscribe notifications.
type LogSubscriber interface {
	// SubscribeLogs delivers notifications for transactions mentioning account.
	// The channel is closed when ctx is done or the subscriber is closed.
	SubscribeLogs(ctx context.Context, account string) (<-chan LogNotification, error)

	// Close closes the WebSocket connection.
	Close() error
}

// LogNotification is one logsNotification value.
type LogNotification struct {
	Signature string
	Slot      int64
	Failed    bool
}
