package solana

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type statusClient struct {
	RPCClient
	calls    atomic.Int32
	statuses func(call int32) *SignatureStatus
}

func (c *statusClient) GetSignatureStatuses(_ context.Context, sigs []string) ([]*SignatureStatus, error) {
	n := c.calls.Add(1)
	return []*SignatureStatus{c.statuses(n)}, nil
}

func TestConfirmTransaction_Confirmed(t *testing.T) {
	client := &statusClient{statuses: func(call int32) *SignatureStatus {
		if call < 3 {
			return &SignatureStatus{ConfirmationStatus: CommitmentProcessed}
		}
		return &SignatureStatus{ConfirmationStatus: CommitmentConfirmed}
	}}

	err := ConfirmTransaction(context.Background(), client, "sig", time.Second, 5*time.Millisecond)
	if err != nil {
		t.Fatalf("ConfirmTransaction: %v", err)
	}
	if client.calls.Load() != 3 {
		t.Errorf("expected 3 polls, got %d", client.calls.Load())
	}
}

func TestConfirmTransaction_OnChainError(t *testing.T) {
	client := &statusClient{statuses: func(int32) *SignatureStatus {
		return &SignatureStatus{Err: map[string]interface{}{"InstructionError": []interface{}{0, "Custom"}}}
	}}

	err := ConfirmTransaction(context.Background(), client, "sig", time.Second, 5*time.Millisecond)
	var failed *TransactionFailedError
	if !errors.As(err, &failed) {
		t.Fatalf("expected TransactionFailedError, got %v", err)
	}
	if failed.Signature != "sig" {
		t.Errorf("expected signature sig, got %s", failed.Signature)
	}
}

func TestConfirmTransaction_Timeout(t *testing.T) {
	client := &statusClient{statuses: func(int32) *SignatureStatus { return nil }}

	err := ConfirmTransaction(context.Background(), client, "sig", 30*time.Millisecond, 5*time.Millisecond)
	if !errors.Is(err, ErrConfirmTimeout) {
		t.Fatalf("expected ErrConfirmTimeout, got %v", err)
	}
}
