package solana

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Confirmation defaults.
const (
	DefaultConfirmTimeout  = 60 * time.Second
	DefaultConfirmInterval = 2 * time.Second
)

// ErrConfirmTimeout is returned when a signature is not confirmed in time.
var ErrConfirmTimeout = errors.New("confirmation timeout")

// TransactionFailedError reports an on-chain execution error.
type TransactionFailedError struct {
	Signature string
	Err       interface{}
}

func (e *TransactionFailedError) Error() string {
	return fmt.Sprintf("transaction %s failed: %v", e.Signature, e.Err)
}

// ConfirmTransaction polls signature status until it reaches confirmed or
// finalized commitment, fails on chain, or the timeout elapses.
func ConfirmTransaction(ctx context.Context, client RPCClient, signature string, timeout, interval time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultConfirmTimeout
	}
	if interval <= 0 {
		interval = DefaultConfirmInterval
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		statuses, err := client.GetSignatureStatuses(ctx, []string{signature})
		if err == nil && len(statuses) > 0 && statuses[0] != nil {
			st := statuses[0]
			if st.Err != nil {
				return &TransactionFailedError{Signature: signature, Err: st.Err}
			}
			if st.ConfirmationStatus == CommitmentConfirmed || st.ConfirmationStatus == CommitmentFinalized {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("%w: %s", ErrConfirmTimeout, signature)
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
