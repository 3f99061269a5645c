package venue

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-swap-bot/internal/domain"
	"solana-swap-bot/internal/solana/stub"
)

const testTokenMint = "7GCihgDB8fe6KNjn2MYtkzZcRjQy3t9GHdC8uHYmW2hr"

// encodeUnsigned serializes tx with placeholder signatures, as aggregators return it.
func encodeUnsigned(t *testing.T, tx *solanago.Transaction) string {
	t.Helper()
	tx.Signatures = make([]solanago.Signature, tx.Message.Header.NumRequiredSignatures)
	raw, err := tx.MarshalBinary()
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(raw)
}

func buyParams(payer solanago.PublicKey) domain.SwapParams {
	return domain.SwapParams{
		InputMint:   domain.SOLMint,
		OutputMint:  testTokenMint,
		Amount:      100_000_000,
		SlippageBps: 100,
		Payer:       payer.String(),
	}
}

func jupiterServer(t *testing.T, swapTx func() string, quotes *atomic.Int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/quote", func(w http.ResponseWriter, r *http.Request) {
		quotes.Add(1)
		q := r.URL.Query()
		assert.Equal(t, domain.SOLMint, q.Get("inputMint"))
		assert.Equal(t, "100000000", q.Get("amount"))
		assert.Equal(t, "100", q.Get("slippageBps"))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"inAmount":       "100000000",
			"outAmount":      "3500000000",
			"priceImpactPct": "0.12",
			"routePlan":      []interface{}{},
		})
	})
	mux.HandleFunc("/swap", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, true, req["wrapAndUnwrapSol"])
		assert.Equal(t, true, req["dynamicComputeUnitLimit"])
		assert.Equal(t, "auto", req["prioritizationFeeLamports"])
		quote, ok := req["quoteResponse"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "3500000000", quote["outAmount"], "quote response is forwarded verbatim")
		json.NewEncoder(w).Encode(map[string]string{"swapTransaction": swapTx()})
	})
	return httptest.NewServer(mux)
}

func TestJupiter_Quote(t *testing.T) {
	var quotes atomic.Int32
	server := jupiterServer(t, func() string { return "" }, &quotes)
	defer server.Close()

	jup := NewJupiter(AggregatorOptions{BaseURL: server.URL, RateLimit: -1})
	q, err := jup.Quote(context.Background(), buyParams(newTestKey(t).PublicKey()))
	require.NoError(t, err)

	assert.Equal(t, uint64(100_000_000), q.InputAmount)
	assert.Equal(t, uint64(3_500_000_000), q.OutputAmount)
	assert.InDelta(t, 0.12, q.PriceImpactPct, 1e-9)
	assert.Equal(t, "jupiter", q.Venue)
}

func TestJupiter_QuoteHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no route", http.StatusBadRequest)
	}))
	defer server.Close()

	jup := NewJupiter(AggregatorOptions{BaseURL: server.URL, RateLimit: -1})
	_, err := jup.Quote(context.Background(), buyParams(newTestKey(t).PublicKey()))

	var qe *QuoteError
	require.True(t, errors.As(err, &qe))
	assert.Equal(t, "jupiter", qe.Venue)
	assert.Contains(t, err.Error(), "400")
}

func TestJupiter_ExecuteSwap(t *testing.T) {
	key := newTestKey(t)
	payer := key.PublicKey()
	other := newTestKey(t).PublicKey()

	var quotes atomic.Int32
	server := jupiterServer(t, func() string {
		return encodeUnsigned(t, buildTx(t, payer, transferIx(1_000, payer, other)))
	}, &quotes)
	defer server.Close()

	rpc := stub.NewRPCClient()
	jup := NewJupiter(AggregatorOptions{Options: Options{RPC: rpc}, BaseURL: server.URL, RateLimit: -1})

	res, err := jup.ExecuteSwap(context.Background(), buyParams(payer), key)
	require.NoError(t, err)

	assert.Equal(t, "stubsig1", res.Signature)
	assert.Equal(t, uint64(3_500_000_000), res.OutputAmount)
	assert.Equal(t, int32(2), quotes.Load(), "build re-quotes")
	require.Equal(t, 1, rpc.SentCount())

	sent, err := solanago.TransactionFromBytes(rpc.Sent[0])
	require.NoError(t, err)
	require.Len(t, sent.Signatures, 1)
	assert.NoError(t, sent.VerifySignatures())
}

func TestJupiter_ExecuteSwap_SafetyError(t *testing.T) {
	key := newTestKey(t)
	attacker := newTestKey(t).PublicKey()

	var quotes atomic.Int32
	server := jupiterServer(t, func() string {
		return encodeUnsigned(t, buildTx(t, attacker, transferIx(1, attacker, key.PublicKey())))
	}, &quotes)
	defer server.Close()

	rpc := stub.NewRPCClient()
	jup := NewJupiter(AggregatorOptions{Options: Options{RPC: rpc}, BaseURL: server.URL, RateLimit: -1})

	_, err := jup.ExecuteSwap(context.Background(), buyParams(key.PublicKey()), key)

	var se *SafetyError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, UnexpectedFeePayer, se.Code)
	var ee *ExecutionError
	assert.False(t, errors.As(err, &ee), "safety errors are not wrapped")
	assert.Equal(t, 0, rpc.SentCount())
}

func TestJupiter_ExecuteSwap_OnChainFailure(t *testing.T) {
	key := newTestKey(t)
	payer := key.PublicKey()

	var quotes atomic.Int32
	server := jupiterServer(t, func() string {
		return encodeUnsigned(t, buildTx(t, payer, transferIx(1, payer, newTestKey(t).PublicKey())))
	}, &quotes)
	defer server.Close()

	rpc := stub.NewRPCClient()
	rpc.StatusErr = map[string]interface{}{"InstructionError": []interface{}{0, "Custom"}}
	jup := NewJupiter(AggregatorOptions{Options: Options{RPC: rpc}, BaseURL: server.URL, RateLimit: -1})

	_, err := jup.ExecuteSwap(context.Background(), buyParams(payer), key)

	var ee *ExecutionError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, "confirm", ee.Op)
	assert.Equal(t, "stubsig1", ee.Signature)
}

func TestRaydium_QuoteAndBuild(t *testing.T) {
	key := newTestKey(t)
	payer := key.PublicKey()

	mux := http.NewServeMux()
	mux.HandleFunc("/main/swap/compute", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":      "x",
			"success": true,
			"data": map[string]interface{}{
				"inputAmount":  "100000000",
				"outputAmount": "42000",
				"priceImpact":  0.5,
			},
		})
	})
	mux.HandleFunc("/main/swap/transaction", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, payer.String(), req["wallet"])
		assert.Equal(t, true, req["wrapSol"])
		assert.Equal(t, true, req["unwrapSol"])
		compute, ok := req["computeResponse"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "42000", compute["outputAmount"])

		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data": []map[string]interface{}{
				{"transaction": encodeUnsigned(t, buildTx(t, payer, transferIx(1, payer, newTestKey(t).PublicKey())))},
			},
		})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	ray := NewRaydium(AggregatorOptions{BaseURL: server.URL, RateLimit: -1})
	params := buyParams(payer)

	q, err := ray.Quote(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, uint64(42_000), q.OutputAmount)
	assert.InDelta(t, 0.5, q.PriceImpactPct, 1e-9)

	tx, err := ray.BuildSwapTransaction(context.Background(), params, q)
	require.NoError(t, err)
	assert.True(t, tx.Message.AccountKeys[0].Equals(payer))
}

func TestRaydium_UnsuccessfulResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "msg": "ROUTE_NOT_FOUND"})
	}))
	defer server.Close()

	ray := NewRaydium(AggregatorOptions{BaseURL: server.URL, RateLimit: -1})
	params := buyParams(newTestKey(t).PublicKey())

	_, err := ray.Quote(context.Background(), params)
	var qe *QuoteError
	require.True(t, errors.As(err, &qe))
	assert.Contains(t, err.Error(), "ROUTE_NOT_FOUND")

	_, err = ray.BuildSwapTransaction(context.Background(), params, nil)
	var be *BuildError
	require.True(t, errors.As(err, &be))
}
