package solana

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"solana-swap-bot/internal/observability"
)

// Default configuration values.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0
)

// HTTPClient implements RPCClient using HTTP JSON-RPC 2.0.
type HTTPClient struct {
	endpoint    string
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
	commitment  string
	limiter     *rate.Limiter
	requestID   atomic.Uint64
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *HTTPClient) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.retryDelay = d
	}
}

// WithMaxDelay sets maximum retry delay.
func WithMaxDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.maxDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// WithRateLimit caps outgoing requests per second. Zero disables limiting.
func WithRateLimit(rps float64, burst int) ClientOption {
	return func(c *HTTPClient) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithCommitment sets the commitment used for reads.
func WithCommitment(commitment string) ClientOption {
	return func(c *HTTPClient) {
		c.commitment = commitment
	}
}

// NewHTTPClient creates a new Solana RPC HTTP client.
func NewHTTPClient(endpoint string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		endpoint:    endpoint,
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
		commitment:  CommitmentConfirmed,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// rpcRequest represents a JSON-RPC 2.0 request.
type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

// rpcResponse represents a JSON-RPC 2.0 response.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// rpcError represents a JSON-RPC 2.0 error.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// call performs a JSON-RPC call with retries and exponential backoff.
func (c *HTTPClient) call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	reqID := c.requestID.Add(1)
	reqBody := rpcRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  method,
		Params:  params,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	start := time.Now()
	defer func() {
		observability.RecordRPCLatency(method, time.Since(start).Seconds())
	}()

	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			// Exponential backoff
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return fmt.Errorf("rate limiter: %w", err)
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		// Handle rate limiting
		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limited (429)")
			continue
		}

		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
			continue
		}

		var rpcResp rpcResponse
		if err := json.Unmarshal(respBody, &rpcResp); err != nil {
			lastErr = fmt.Errorf("unmarshal response: %w", err)
			continue
		}

		if rpcResp.Error != nil {
			// RPC errors are not retried
			return rpcResp.Error
		}

		if result != nil && rpcResp.Result != nil {
			if err := json.Unmarshal(rpcResp.Result, result); err != nil {
				return fmt.Errorf("unmarshal result: %w", err)
			}
		}

		return nil
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// GetTransaction retrieves a transaction by signature.
func (c *HTTPClient) GetTransaction(ctx context.Context, signature string) (*Transaction, error) {
	params := []interface{}{
		signature,
		map[string]interface{}{
			"encoding":                       "json",
			"commitment":                     c.commitment,
			"maxSupportedTransactionVersion": 0,
		},
	}

	var result *getTransactionResult
	if err := c.call(ctx, "getTransaction", params, &result); err != nil {
		return nil, err
	}

	if result == nil || (result.Slot == 0 && result.BlockTime == nil) {
		// Transaction not found
		return nil, nil
	}

	tx := &Transaction{
		Slot:      result.Slot,
		Signature: signature,
	}

	if result.BlockTime != nil {
		tx.BlockTime = *result.BlockTime
	}

	var loaded *loadedAddresses
	if result.Meta != nil {
		tx.Meta = &TransactionMeta{
			Err:               result.Meta.Err,
			LogMessages:       result.Meta.LogMessages,
			PreBalances:       result.Meta.PreBalances,
			PostBalances:      result.Meta.PostBalances,
			PreTokenBalances:  convertTokenBalances(result.Meta.PreTokenBalances),
			PostTokenBalances: convertTokenBalances(result.Meta.PostTokenBalances),
		}
		loaded = result.Meta.LoadedAddresses
	}

	if result.Transaction != nil && result.Transaction.Message != nil {
		keys := append([]string(nil), result.Transaction.Message.AccountKeys...)
		if loaded != nil {
			keys = append(keys, loaded.Writable...)
			keys = append(keys, loaded.Readonly...)
		}
		tx.Message = &TransactionMessage{AccountKeys: keys}
	}

	return tx, nil
}

// getTransactionResult is the raw RPC response for getTransaction.
type getTransactionResult struct {
	Slot        int64               `json:"slot"`
	BlockTime   *int64              `json:"blockTime"`
	Meta        *getTransactionMeta `json:"meta"`
	Transaction *getTransactionTx   `json:"transaction"`
}

type getTransactionMeta struct {
	Err               interface{}       `json:"err"`
	LogMessages       []string          `json:"logMessages"`
	PreBalances       []uint64          `json:"preBalances"`
	PostBalances      []uint64          `json:"postBalances"`
	PreTokenBalances  []rawTokenBalance `json:"preTokenBalances"`
	PostTokenBalances []rawTokenBalance `json:"postTokenBalances"`
	LoadedAddresses   *loadedAddresses  `json:"loadedAddresses"`
}

type loadedAddresses struct {
	Writable []string `json:"writable"`
	Readonly []string `json:"readonly"`
}

type rawTokenBalance struct {
	AccountIndex  int            `json:"accountIndex"`
	Mint          string         `json:"mint"`
	Owner         string         `json:"owner"`
	UITokenAmount rawTokenAmount `json:"uiTokenAmount"`
}

type rawTokenAmount struct {
	Amount   string   `json:"amount"`
	Decimals uint8    `json:"decimals"`
	UIAmount *float64 `json:"uiAmount"`
}

type getTransactionTx struct {
	Message *getTransactionMessage `json:"message"`
}

type getTransactionMessage struct {
	AccountKeys []string `json:"accountKeys"`
}

func convertTokenBalances(raw []rawTokenBalance) []TokenBalance {
	if len(raw) == 0 {
		return nil
	}
	out := make([]TokenBalance, len(raw))
	for i, r := range raw {
		out[i] = TokenBalance{
			AccountIndex: r.AccountIndex,
			Mint:         r.Mint,
			Owner:        r.Owner,
			Amount:       r.UITokenAmount.Amount,
			Decimals:     r.UITokenAmount.Decimals,
		}
	}
	return out
}

// GetSignaturesForAddress retrieves signatures for an address with pagination.
func (c *HTTPClient) GetSignaturesForAddress(ctx context.Context, address string, opts *SignaturesOpts) ([]SignatureInfo, error) {
	config := map[string]interface{}{
		"commitment": c.commitment,
	}
	if opts != nil {
		if opts.Before != "" {
			config["before"] = opts.Before
		}
		if opts.Until != "" {
			config["until"] = opts.Until
		}
		if opts.Limit > 0 {
			config["limit"] = opts.Limit
		}
	}

	params := []interface{}{address, config}

	var result []getSignaturesResult
	if err := c.call(ctx, "getSignaturesForAddress", params, &result); err != nil {
		return nil, err
	}

	sigs := make([]SignatureInfo, len(result))
	for i, r := range result {
		sigs[i] = SignatureInfo{
			Signature: r.Signature,
			Slot:      r.Slot,
			BlockTime: r.BlockTime,
			Err:       r.Err,
		}
	}

	return sigs, nil
}

// getSignaturesResult is the raw RPC response item for getSignaturesForAddress.
type getSignaturesResult struct {
	Signature string      `json:"signature"`
	Slot      int64       `json:"slot"`
	BlockTime *int64      `json:"blockTime"`
	Err       interface{} `json:"err"`
}

// GetAccountInfo retrieves account info by public key.
// Returns nil if account not found.
func (c *HTTPClient) GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error) {
	params := []interface{}{
		pubkey,
		map[string]interface{}{
			"encoding":   "base64",
			"commitment": c.commitment,
		},
	}

	var result getAccountInfoResult
	if err := c.call(ctx, "getAccountInfo", params, &result); err != nil {
		return nil, err
	}

	if result.Value == nil {
		return nil, nil
	}

	info := &AccountInfo{
		Lamports:   result.Value.Lamports,
		Owner:      result.Value.Owner,
		Executable: result.Value.Executable,
		RentEpoch:  result.Value.RentEpoch,
	}

	if len(result.Value.Data) >= 1 {
		info.Data = result.Value.Data[0]
	}

	return info, nil
}

// AccountInfo represents Solana account information.
type AccountInfo struct {
	Lamports   uint64 `json:"lamports"`
	Owner      string `json:"owner"`
	Data       string `json:"data"` // base64 encoded
	Executable bool   `json:"executable"`
	RentEpoch  uint64 `json:"rentEpoch"`
}

// DecodeData returns the decoded account data.
func (a *AccountInfo) DecodeData() ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(a.Data)
	if err != nil {
		return nil, fmt.Errorf("decode account data: %w", err)
	}
	return data, nil
}

type getAccountInfoResult struct {
	Value *getAccountInfoValue `json:"value"`
}

type getAccountInfoValue struct {
	Lamports   uint64   `json:"lamports"`
	Owner      string   `json:"owner"`
	Data       []string `json:"data"` // [base64_data, encoding]
	Executable bool     `json:"executable"`
	RentEpoch  uint64   `json:"rentEpoch"`
}

// GetLatestBlockhash returns a recent blockhash.
func (c *HTTPClient) GetLatestBlockhash(ctx context.Context) (*Blockhash, error) {
	params := []interface{}{
		map[string]interface{}{"commitment": c.commitment},
	}

	var result struct {
		Value struct {
			Blockhash            string `json:"blockhash"`
			LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
		} `json:"value"`
	}
	if err := c.call(ctx, "getLatestBlockhash", params, &result); err != nil {
		return nil, err
	}
	if result.Value.Blockhash == "" {
		return nil, fmt.Errorf("empty blockhash in response")
	}

	return &Blockhash{
		Blockhash:            result.Value.Blockhash,
		LastValidBlockHeight: result.Value.LastValidBlockHeight,
	}, nil
}

// SendTransaction broadcasts a signed transaction encoded as base64.
func (c *HTTPClient) SendTransaction(ctx context.Context, rawTx []byte, opts *SendOpts) (string, error) {
	config := map[string]interface{}{
		"encoding": "base64",
	}
	if opts != nil {
		config["skipPreflight"] = opts.SkipPreflight
		if opts.PreflightCommitment != "" {
			config["preflightCommitment"] = opts.PreflightCommitment
		}
		if opts.MaxRetries != nil {
			config["maxRetries"] = *opts.MaxRetries
		}
	}

	params := []interface{}{
		base64.StdEncoding.EncodeToString(rawTx),
		config,
	}

	var signature string
	if err := c.call(ctx, "sendTransaction", params, &signature); err != nil {
		return "", err
	}
	return signature, nil
}

// GetSignatureStatuses returns statuses for the given signatures.
func (c *HTTPClient) GetSignatureStatuses(ctx context.Context, signatures []string) ([]*SignatureStatus, error) {
	params := []interface{}{
		signatures,
		map[string]interface{}{"searchTransactionHistory": true},
	}

	var result struct {
		Value []*struct {
			Slot               int64       `json:"slot"`
			Confirmations      *int64      `json:"confirmations"`
			Err                interface{} `json:"err"`
			ConfirmationStatus string      `json:"confirmationStatus"`
		} `json:"value"`
	}
	if err := c.call(ctx, "getSignatureStatuses", params, &result); err != nil {
		return nil, err
	}

	statuses := make([]*SignatureStatus, len(result.Value))
	for i, v := range result.Value {
		if v == nil {
			continue
		}
		statuses[i] = &SignatureStatus{
			Slot:               v.Slot,
			Confirmations:      v.Confirmations,
			Err:                v.Err,
			ConfirmationStatus: v.ConfirmationStatus,
		}
	}
	return statuses, nil
}

// GetBalance returns the lamport balance of an account.
func (c *HTTPClient) GetBalance(ctx context.Context, pubkey string) (uint64, error) {
	params := []interface{}{
		pubkey,
		map[string]interface{}{"commitment": c.commitment},
	}

	var result struct {
		Value uint64 `json:"value"`
	}
	if err := c.call(ctx, "getBalance", params, &result); err != nil {
		return 0, err
	}
	return result.Value, nil
}

// GetTokenAccountBalance returns the balance of an SPL token account.
func (c *HTTPClient) GetTokenAccountBalance(ctx context.Context, account string) (*TokenAmount, error) {
	params := []interface{}{
		account,
		map[string]interface{}{"commitment": c.commitment},
	}

	var result struct {
		Value rawTokenAmount `json:"value"`
	}
	if err := c.call(ctx, "getTokenAccountBalance", params, &result); err != nil {
		return nil, err
	}

	return &TokenAmount{
		Amount:   result.Value.Amount,
		Decimals: result.Value.Decimals,
		UIAmount: result.Value.UIAmount,
	}, nil
}
