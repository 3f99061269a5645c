package solana

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestHTTPClient_GetTransaction(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}

		if req.Method != "getTransaction" {
			t.Errorf("expected method getTransaction, got %s", req.Method)
		}

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result": map[string]interface{}{
				"slot":      int64(123456),
				"blockTime": int64(1700000000),
				"meta": map[string]interface{}{
					"err":          nil,
					"logMessages":  []string{"Program log: Hello", "Program log: World"},
					"preBalances":  []uint64{5_000_000_000, 0, 0},
					"postBalances": []uint64{4_000_000_000, 0, 0},
					"preTokenBalances": []map[string]interface{}{},
					"postTokenBalances": []map[string]interface{}{
						{
							"accountIndex": 2,
							"mint":         "mintA",
							"owner":        "addr1",
							"uiTokenAmount": map[string]interface{}{
								"amount":   "1500",
								"decimals": 6,
							},
						},
					},
					"loadedAddresses": map[string]interface{}{
						"writable": []string{"addr3"},
						"readonly": []string{},
					},
				},
				"transaction": map[string]interface{}{
					"message": map[string]interface{}{
						"accountKeys": []string{"addr1", "addr2"},
					},
				},
			},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	ctx := context.Background()

	tx, err := client.GetTransaction(ctx, "testsig123")
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}

	if tx == nil {
		t.Fatal("expected transaction, got nil")
	}

	if tx.Slot != 123456 {
		t.Errorf("expected slot 123456, got %d", tx.Slot)
	}

	if tx.BlockTime != 1700000000 {
		t.Errorf("expected blockTime 1700000000, got %d", tx.BlockTime)
	}

	if tx.Meta == nil {
		t.Fatal("expected meta, got nil")
	}

	if len(tx.Meta.LogMessages) != 2 {
		t.Errorf("expected 2 log messages, got %d", len(tx.Meta.LogMessages))
	}

	if tx.Message == nil {
		t.Fatal("expected message, got nil")
	}

	if len(tx.Message.AccountKeys) != 3 {
		t.Errorf("expected 3 account keys (static + loaded), got %d", len(tx.Message.AccountKeys))
	}

	if tx.Meta.PreBalances[0] != 5_000_000_000 || tx.Meta.PostBalances[0] != 4_000_000_000 {
		t.Errorf("unexpected lamport balances: %v -> %v", tx.Meta.PreBalances, tx.Meta.PostBalances)
	}

	if len(tx.Meta.PostTokenBalances) != 1 {
		t.Fatalf("expected 1 post token balance, got %d", len(tx.Meta.PostTokenBalances))
	}

	tb := tx.Meta.PostTokenBalances[0]
	if tb.AccountIndex != 2 || tb.Mint != "mintA" || tb.Owner != "addr1" || tb.Amount != "1500" || tb.Decimals != 6 {
		t.Errorf("unexpected token balance: %+v", tb)
	}
}

func TestHTTPClient_GetTransaction_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  nil,
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	ctx := context.Background()

	tx, err := client.GetTransaction(ctx, "nonexistent")
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}

	if tx != nil {
		t.Errorf("expected nil for not found, got %+v", tx)
	}
}

func TestHTTPClient_GetSignaturesForAddress(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		if req.Method != "getSignaturesForAddress" {
			t.Errorf("expected method getSignaturesForAddress, got %s", req.Method)
		}

		blockTime := int64(1700000000)
		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result": []map[string]interface{}{
				{"signature": "sig1", "slot": int64(100), "blockTime": blockTime, "err": nil},
				{"signature": "sig2", "slot": int64(101), "blockTime": blockTime, "err": nil},
			},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	ctx := context.Background()

	sigs, err := client.GetSignaturesForAddress(ctx, "testaddr", &SignaturesOpts{Limit: 10})
	if err != nil {
		t.Fatalf("GetSignaturesForAddress: %v", err)
	}

	if len(sigs) != 2 {
		t.Fatalf("expected 2 signatures, got %d", len(sigs))
	}

	if sigs[0].Signature != "sig1" {
		t.Errorf("expected sig1, got %s", sigs[0].Signature)
	}

	if sigs[1].Slot != 101 {
		t.Errorf("expected slot 101, got %d", sigs[1].Slot)
	}
}

func TestHTTPClient_Retry(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count := attempts.Add(1)
		if count < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}

		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  map[string]interface{}{"value": 999},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL,
		WithMaxRetries(3),
		WithRetryDelay(10*time.Millisecond),
	)
	ctx := context.Background()

	lamports, err := client.GetBalance(ctx, "wallet")
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}

	if lamports != 999 {
		t.Errorf("expected 999 lamports, got %d", lamports)
	}

	if attempts.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts.Load())
	}
}

func TestHTTPClient_RPCError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"error": map[string]interface{}{
				"code":    -32600,
				"message": "Invalid Request",
			},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	ctx := context.Background()

	_, err := client.GetBalance(ctx, "wallet")
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	rpcErr, ok := err.(*rpcError)
	if !ok {
		t.Fatalf("expected rpcError, got %T", err)
	}

	if rpcErr.Code != -32600 {
		t.Errorf("expected code -32600, got %d", rpcErr.Code)
	}
}

func TestHTTPClient_GetAccountInfo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		if req.Method != "getAccountInfo" {
			t.Errorf("expected method getAccountInfo, got %s", req.Method)
		}

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result": map[string]interface{}{
				"value": map[string]interface{}{
					"lamports":   uint64(1000000),
					"owner":      "11111111111111111111111111111111",
					"data":       []string{"SGVsbG8gV29ybGQ=", "base64"},
					"executable": false,
					"rentEpoch":  uint64(100),
				},
			},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	ctx := context.Background()

	info, err := client.GetAccountInfo(ctx, "testpubkey")
	if err != nil {
		t.Fatalf("GetAccountInfo: %v", err)
	}

	if info == nil {
		t.Fatal("expected account info, got nil")
	}

	if info.Lamports != 1000000 {
		t.Errorf("expected lamports 1000000, got %d", info.Lamports)
	}

	if info.Owner != "11111111111111111111111111111111" {
		t.Errorf("unexpected owner: %s", info.Owner)
	}

	if info.Data != "SGVsbG8gV29ybGQ=" {
		t.Errorf("unexpected data: %s", info.Data)
	}
}

func TestHTTPClient_GetAccountInfo_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result": map[string]interface{}{
				"value": nil,
			},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	ctx := context.Background()

	info, err := client.GetAccountInfo(ctx, "nonexistent")
	if err != nil {
		t.Fatalf("GetAccountInfo: %v", err)
	}

	if info != nil {
		t.Errorf("expected nil for not found, got %+v", info)
	}
}

func TestHTTPClient_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately

	_, err := client.GetBalance(ctx, "wallet")
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
}

func rpcServer(t *testing.T, method string, result interface{}, inspect func(req rpcRequest)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}
		if req.Method != method {
			t.Errorf("expected method %s, got %s", method, req.Method)
		}
		if inspect != nil {
			inspect(req)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  result,
		})
	}))
}

func TestHTTPClient_SendTransaction(t *testing.T) {
	var gotParams []interface{}
	server := rpcServer(t, "sendTransaction", "5sig", func(req rpcRequest) {
		gotParams = req.Params
	})
	defer server.Close()

	client := NewHTTPClient(server.URL)
	maxRetries := uint(2)
	sig, err := client.SendTransaction(context.Background(), []byte("hello"), &SendOpts{
		SkipPreflight:       true,
		PreflightCommitment: CommitmentConfirmed,
		MaxRetries:          &maxRetries,
	})
	if err != nil {
		t.Fatalf("SendTransaction: %v", err)
	}
	if sig != "5sig" {
		t.Errorf("expected signature 5sig, got %s", sig)
	}

	if len(gotParams) != 2 {
		t.Fatalf("expected 2 params, got %d", len(gotParams))
	}
	if gotParams[0] != "aGVsbG8=" {
		t.Errorf("expected base64 payload, got %v", gotParams[0])
	}
	cfg, ok := gotParams[1].(map[string]interface{})
	if !ok {
		t.Fatalf("expected config object, got %T", gotParams[1])
	}
	if cfg["encoding"] != "base64" || cfg["skipPreflight"] != true {
		t.Errorf("unexpected config: %v", cfg)
	}
	if cfg["maxRetries"] != float64(2) {
		t.Errorf("expected maxRetries 2, got %v", cfg["maxRetries"])
	}
}

func TestHTTPClient_GetSignatureStatuses(t *testing.T) {
	server := rpcServer(t, "getSignatureStatuses", map[string]interface{}{
		"value": []interface{}{
			map[string]interface{}{"slot": 10, "confirmations": nil, "err": nil, "confirmationStatus": "finalized"},
			nil,
		},
	}, nil)
	defer server.Close()

	client := NewHTTPClient(server.URL)
	statuses, err := client.GetSignatureStatuses(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("GetSignatureStatuses: %v", err)
	}
	if len(statuses) != 2 {
		t.Fatalf("expected 2 statuses, got %d", len(statuses))
	}
	if statuses[0] == nil || statuses[0].ConfirmationStatus != CommitmentFinalized {
		t.Errorf("unexpected first status: %+v", statuses[0])
	}
	if statuses[1] != nil {
		t.Errorf("expected nil status for unknown signature, got %+v", statuses[1])
	}
}

func TestHTTPClient_GetLatestBlockhash(t *testing.T) {
	server := rpcServer(t, "getLatestBlockhash", map[string]interface{}{
		"context": map[string]interface{}{"slot": 1},
		"value":   map[string]interface{}{"blockhash": "hash1", "lastValidBlockHeight": 42},
	}, nil)
	defer server.Close()

	client := NewHTTPClient(server.URL)
	bh, err := client.GetLatestBlockhash(context.Background())
	if err != nil {
		t.Fatalf("GetLatestBlockhash: %v", err)
	}
	if bh.Blockhash != "hash1" || bh.LastValidBlockHeight != 42 {
		t.Errorf("unexpected blockhash: %+v", bh)
	}
}

func TestHTTPClient_GetBalances(t *testing.T) {
	balServer := rpcServer(t, "getBalance", map[string]interface{}{"value": 2_500_000_000}, nil)
	defer balServer.Close()

	lamports, err := NewHTTPClient(balServer.URL).GetBalance(context.Background(), "owner")
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if lamports != 2_500_000_000 {
		t.Errorf("expected 2500000000 lamports, got %d", lamports)
	}

	tokServer := rpcServer(t, "getTokenAccountBalance", map[string]interface{}{
		"value": map[string]interface{}{"amount": "123456", "decimals": 6, "uiAmount": 0.123456},
	}, nil)
	defer tokServer.Close()

	amount, err := NewHTTPClient(tokServer.URL).GetTokenAccountBalance(context.Background(), "ata")
	if err != nil {
		t.Fatalf("GetTokenAccountBalance: %v", err)
	}
	if amount.Amount != "123456" || amount.Decimals != 6 {
		t.Errorf("unexpected token amount: %+v", amount)
	}
}

func TestHTTPClient_RateLimit(t *testing.T) {
	server := rpcServer(t, "getBalance", map[string]interface{}{"value": 7}, nil)
	defer server.Close()

	client := NewHTTPClient(server.URL, WithRateLimit(1000, 1))
	for i := 0; i < 3; i++ {
		lamports, err := client.GetBalance(context.Background(), "wallet")
		if err != nil {
			t.Fatalf("GetBalance: %v", err)
		}
		if lamports != 7 {
			t.Errorf("expected 7 lamports, got %d", lamports)
		}
	}
}
