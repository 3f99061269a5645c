package venue

import (
	"context"
	"encoding/json"
	"fmt"

	"solana-swap-bot/internal/domain"
)

// RaydiumBaseURL is the public Raydium trade API.
const RaydiumBaseURL = "https://transaction-v1.raydium.io/v2"

type raydiumProtocol struct{}

// NewRaydium creates a Raydium aggregator adapter.
func NewRaydium(opts AggregatorOptions) *Aggregator {
	return newAggregator(raydiumProtocol{}, opts, RaydiumBaseURL)
}

func (raydiumProtocol) name() string { return string(KindRaydium) }

type raydiumEnvelope struct {
	Success bool            `json:"success"`
	Msg     string          `json:"msg"`
	Data    json.RawMessage `json:"data"`
}

type raydiumCompute struct {
	InputAmount  json.Number `json:"inputAmount"`
	OutputAmount json.Number `json:"outputAmount"`
	PriceImpact  json.Number `json:"priceImpact"`
}

func decodeRaydium(body []byte) (json.RawMessage, error) {
	var env raydiumEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if !env.Success {
		msg := env.Msg
		if msg == "" {
			msg = "unknown"
		}
		return nil, fmt.Errorf("raydium error: %s", msg)
	}
	return env.Data, nil
}

func (raydiumProtocol) quote(ctx context.Context, c *aggregatorClient, params domain.SwapParams) (*domain.SwapQuote, json.RawMessage, error) {
	body, err := c.get(ctx, "/main/swap/compute", swapQuery(params))
	if err != nil {
		return nil, nil, err
	}
	data, err := decodeRaydium(body)
	if err != nil {
		return nil, nil, err
	}

	var comp raydiumCompute
	if err := json.Unmarshal(data, &comp); err != nil {
		return nil, nil, fmt.Errorf("decode compute: %w", err)
	}
	in, err := parseAmount("inputAmount", comp.InputAmount.String())
	if err != nil {
		return nil, nil, err
	}
	out, err := parseAmount("outputAmount", comp.OutputAmount.String())
	if err != nil {
		return nil, nil, err
	}

	return &domain.SwapQuote{
		InputMint:      params.InputMint,
		OutputMint:     params.OutputMint,
		InputAmount:    in,
		OutputAmount:   out,
		PriceImpactPct: parseImpact(comp.PriceImpact.String()),
		Venue:          string(KindRaydium),
	}, data, nil
}

type raydiumSwapRequest struct {
	ComputeResponse json.RawMessage `json:"computeResponse"`
	Wallet          string          `json:"wallet"`
	WrapSol         bool            `json:"wrapSol"`
	UnwrapSol       bool            `json:"unwrapSol"`
}

type raydiumSwapData struct {
	Transaction string `json:"transaction"`
}

func (raydiumProtocol) swapTransaction(ctx context.Context, c *aggregatorClient, params domain.SwapParams, raw json.RawMessage) (string, error) {
	body, err := c.post(ctx, "/main/swap/transaction", raydiumSwapRequest{
		ComputeResponse: raw,
		Wallet:          params.Payer,
		WrapSol:         true,
		UnwrapSol:       true,
	})
	if err != nil {
		return "", err
	}
	data, err := decodeRaydium(body)
	if err != nil {
		return "", err
	}

	// data is either one object or a list with one entry per transaction.
	var tx raydiumSwapData
	if err := json.Unmarshal(data, &tx); err != nil {
		var list []raydiumSwapData
		if listErr := json.Unmarshal(data, &list); listErr != nil {
			return "", fmt.Errorf("decode transaction data: %w", err)
		}
		if len(list) > 0 {
			tx = list[0]
		}
	}
	if tx.Transaction == "" {
		return "", fmt.Errorf("empty transaction in response")
	}
	return tx.Transaction, nil
}
