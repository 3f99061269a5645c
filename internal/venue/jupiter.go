package venue

import (
	"context"
	"encoding/json"
	"fmt"

	"solana-swap-bot/internal/domain"
)

// JupiterBaseURL is the public Jupiter v6 API.
const JupiterBaseURL = "https://quote-api.jup.ag/v6"

type jupiterProtocol struct{}

// NewJupiter creates a Jupiter aggregator adapter.
func NewJupiter(opts AggregatorOptions) *Aggregator {
	return newAggregator(jupiterProtocol{}, opts, JupiterBaseURL)
}

func (jupiterProtocol) name() string { return string(KindJupiter) }

type jupiterQuote struct {
	InAmount       string `json:"inAmount"`
	OutAmount      string `json:"outAmount"`
	PriceImpactPct string `json:"priceImpactPct"`
}

func (jupiterProtocol) quote(ctx context.Context, c *aggregatorClient, params domain.SwapParams) (*domain.SwapQuote, json.RawMessage, error) {
	body, err := c.get(ctx, "/quote", swapQuery(params))
	if err != nil {
		return nil, nil, err
	}

	var q jupiterQuote
	if err := json.Unmarshal(body, &q); err != nil {
		return nil, nil, fmt.Errorf("decode quote: %w", err)
	}
	in, err := parseAmount("inAmount", q.InAmount)
	if err != nil {
		return nil, nil, err
	}
	out, err := parseAmount("outAmount", q.OutAmount)
	if err != nil {
		return nil, nil, err
	}

	return &domain.SwapQuote{
		InputMint:      params.InputMint,
		OutputMint:     params.OutputMint,
		InputAmount:    in,
		OutputAmount:   out,
		PriceImpactPct: parseImpact(q.PriceImpactPct),
		Venue:          string(KindJupiter),
	}, json.RawMessage(body), nil
}

type jupiterSwapRequest struct {
	QuoteResponse             json.RawMessage `json:"quoteResponse"`
	UserPublicKey             string          `json:"userPublicKey"`
	WrapAndUnwrapSol          bool            `json:"wrapAndUnwrapSol"`
	DynamicComputeUnitLimit   bool            `json:"dynamicComputeUnitLimit"`
	PrioritizationFeeLamports string          `json:"prioritizationFeeLamports"`
}

type jupiterSwapResponse struct {
	SwapTransaction string `json:"swapTransaction"`
}

func (jupiterProtocol) swapTransaction(ctx context.Context, c *aggregatorClient, params domain.SwapParams, raw json.RawMessage) (string, error) {
	body, err := c.post(ctx, "/swap", jupiterSwapRequest{
		QuoteResponse:             raw,
		UserPublicKey:             params.Payer,
		WrapAndUnwrapSol:          true,
		DynamicComputeUnitLimit:   true,
		PrioritizationFeeLamports: "auto",
	})
	if err != nil {
		return "", err
	}

	var resp jupiterSwapResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode swap response: %w", err)
	}
	if resp.SwapTransaction == "" {
		return "", fmt.Errorf("empty swapTransaction in response")
	}
	return resp.SwapTransaction, nil
}
