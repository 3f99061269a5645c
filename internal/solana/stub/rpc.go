package stub

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"solana-swap-bot/internal/solana"
)

// ErrNotFound is returned when a requested entry is not present.
var ErrNotFound = errors.New("not found")

// RPCClient implements solana.RPCClient for testing.
// Transactions are served from memory; sent transactions are recorded and
// confirmed immediately unless SendErr or StatusErr is set.
type RPCClient struct {
	mu sync.Mutex

	Transactions  map[string]*solana.Transaction
	Signatures    map[string][]solana.SignatureInfo
	Accounts      map[string]*solana.AccountInfo
	Balances      map[string]uint64
	TokenBalances map[string]*solana.TokenAmount
	Statuses      map[string]*solana.SignatureStatus

	Blockhash string

	// Error injection.
	SignaturesErr  error
	TransactionErr error
	SendErr        error
	StatusErr      interface{}

	Sent      [][]byte
	sendCount int
}

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		Transactions:  make(map[string]*solana.Transaction),
		Signatures:    make(map[string][]solana.SignatureInfo),
		Accounts:      make(map[string]*solana.AccountInfo),
		Balances:      make(map[string]uint64),
		TokenBalances: make(map[string]*solana.TokenAmount),
		Statuses:      make(map[string]*solana.SignatureStatus),
		Blockhash:     "EkSnNWid2cvwEVnVx9aBqawnmiCNiDgp3gUdkDPTKN1N",
	}
}

// GetTransaction retrieves a transaction by signature from the stub store.
func (c *RPCClient) GetTransaction(_ context.Context, signature string) (*solana.Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.TransactionErr != nil {
		return nil, c.TransactionErr
	}
	return c.Transactions[signature], nil
}

// GetSignaturesForAddress returns signatures newer than opts.Until, newest first.
func (c *RPCClient) GetSignaturesForAddress(_ context.Context, address string, opts *solana.SignaturesOpts) ([]solana.SignatureInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.SignaturesErr != nil {
		return nil, c.SignaturesErr
	}

	sigs := c.Signatures[address]
	if opts != nil && opts.Until != "" {
		for i, s := range sigs {
			if s.Signature == opts.Until {
				sigs = sigs[:i]
				break
			}
		}
	}
	if opts != nil && opts.Limit > 0 && opts.Limit < len(sigs) {
		sigs = sigs[:opts.Limit]
	}

	out := make([]solana.SignatureInfo, len(sigs))
	copy(out, sigs)
	return out, nil
}

// GetAccountInfo returns stored account data or nil.
func (c *RPCClient) GetAccountInfo(_ context.Context, pubkey string) (*solana.AccountInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Accounts[pubkey], nil
}

// GetLatestBlockhash returns the configured blockhash.
func (c *RPCClient) GetLatestBlockhash(_ context.Context) (*solana.Blockhash, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return &solana.Blockhash{Blockhash: c.Blockhash, LastValidBlockHeight: 1000}, nil
}

// SendTransaction records the raw transaction and returns a synthetic signature.
func (c *RPCClient) SendTransaction(_ context.Context, rawTx []byte, _ *solana.SendOpts) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.SendErr != nil {
		return "", c.SendErr
	}
	c.Sent = append(c.Sent, rawTx)
	c.sendCount++
	sig := fmt.Sprintf("stubsig%d", c.sendCount)
	c.Statuses[sig] = &solana.SignatureStatus{
		Slot:               int64(c.sendCount),
		Err:                c.StatusErr,
		ConfirmationStatus: solana.CommitmentConfirmed,
	}
	return sig, nil
}

// GetSignatureStatuses returns stored statuses; unknown signatures map to nil.
func (c *RPCClient) GetSignatureStatuses(_ context.Context, signatures []string) ([]*solana.SignatureStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*solana.SignatureStatus, len(signatures))
	for i, s := range signatures {
		out[i] = c.Statuses[s]
	}
	return out, nil
}

// GetBalance returns the stored lamport balance.
func (c *RPCClient) GetBalance(_ context.Context, pubkey string) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Balances[pubkey], nil
}

// GetTokenAccountBalance returns the stored token balance.
func (c *RPCClient) GetTokenAccountBalance(_ context.Context, account string) (*solana.TokenAmount, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	bal, ok := c.TokenBalances[account]
	if !ok {
		return nil, ErrNotFound
	}
	return bal, nil
}

// AddTransaction adds a transaction to the stub store.
func (c *RPCClient) AddTransaction(tx *solana.Transaction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Transactions[tx.Signature] = tx
}

// AddSignatures sets signatures for an address, newest first.
func (c *RPCClient) AddSignatures(address string, sigs []solana.SignatureInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Signatures[address] = sigs
}

// PrependSignatures pushes newer signatures in front of existing ones.
func (c *RPCClient) PrependSignatures(address string, sigs ...solana.SignatureInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Signatures[address] = append(append([]solana.SignatureInfo(nil), sigs...), c.Signatures[address]...)
}

// SetTokenBalance sets the balance of a token account.
func (c *RPCClient) SetTokenBalance(account, amount string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.TokenBalances[account] = &solana.TokenAmount{Amount: amount, Decimals: 6}
}

// SetAccount stores raw account data.
func (c *RPCClient) SetAccount(pubkey string, info *solana.AccountInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Accounts[pubkey] = info
}

// SentCount returns how many transactions were sent.
func (c *RPCClient) SentCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Sent)
}
