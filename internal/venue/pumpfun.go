package venue

import (
	"context"
	"fmt"

	solanago "github.com/gagliardetto/solana-go"

	"solana-swap-bot/internal/domain"
	"solana-swap-bot/internal/solana"
)

// PumpFunOptions configures the bonding curve adapter.
type PumpFunOptions struct {
	Options
	FeeBps int // default PumpFunFeeBps

	// PriorityFeeMicroLamports prepends a compute unit price instruction when > 0.
	PriorityFeeMicroLamports uint64
}

// PumpFun trades directly against pump.fun bonding curves.
type PumpFun struct {
	rpc         solana.RPCClient
	feeBps      int
	priorityFee uint64
	submitter
}

// NewPumpFun creates a bonding curve adapter.
func NewPumpFun(opts PumpFunOptions) *PumpFun {
	feeBps := opts.FeeBps
	if feeBps <= 0 {
		feeBps = PumpFunFeeBps
	}
	return &PumpFun{
		rpc:         opts.RPC,
		feeBps:      feeBps,
		priorityFee: opts.PriorityFeeMicroLamports,
		submitter:   newSubmitter(opts.Options, string(KindPumpFun)),
	}
}

// Name implements Adapter.
func (p *PumpFun) Name() string { return string(KindPumpFun) }

// FetchCurve reads the current bonding curve state of mint.
func (p *PumpFun) FetchCurve(ctx context.Context, mint solanago.PublicKey) (domain.BondingCurveState, error) {
	curve, err := BondingCurveAddress(mint)
	if err != nil {
		return domain.BondingCurveState{}, fmt.Errorf("derive bonding curve: %w", err)
	}

	info, err := p.rpc.GetAccountInfo(ctx, curve.String())
	if err != nil {
		return domain.BondingCurveState{}, fmt.Errorf("get bonding curve: %w", err)
	}
	if info == nil {
		return domain.BondingCurveState{}, fmt.Errorf("%w: %s (token may have graduated)", ErrCurveNotFound, mint)
	}

	data, err := info.DecodeData()
	if err != nil {
		return domain.BondingCurveState{}, err
	}
	return DecodeBondingCurve(data)
}

// Quote implements Adapter.
func (p *PumpFun) Quote(ctx context.Context, params domain.SwapParams) (*domain.SwapQuote, error) {
	q, _, err := p.quote(ctx, params)
	if err != nil {
		return nil, &QuoteError{Venue: p.Name(), Err: err}
	}
	return q, nil
}

func (p *PumpFun) quote(ctx context.Context, params domain.SwapParams) (*domain.SwapQuote, solanago.PublicKey, error) {
	mint, err := solanago.PublicKeyFromBase58(params.TokenMint())
	if err != nil {
		return nil, solanago.PublicKey{}, fmt.Errorf("token mint: %w", err)
	}

	state, err := p.FetchCurve(ctx, mint)
	if err != nil {
		return nil, mint, err
	}
	if state.Complete {
		return nil, mint, fmt.Errorf("%w: %s graduated, use an aggregator venue", ErrCurveComplete, mint)
	}

	isBuy := params.IsBuy()
	var out uint64
	if isBuy {
		out = CurveBuyOutput(state, params.Amount, p.feeBps)
	} else {
		out = CurveSellOutput(state, params.Amount, p.feeBps)
	}

	return &domain.SwapQuote{
		InputMint:      params.InputMint,
		OutputMint:     params.OutputMint,
		InputAmount:    params.Amount,
		OutputAmount:   out,
		PriceImpactPct: CurvePriceImpact(state, params.Amount, isBuy),
		Venue:          p.Name(),
	}, mint, nil
}

// BuildSwapTransaction implements Adapter. The curve is re-read so a curve
// that graduated after quoting fails here.
func (p *PumpFun) BuildSwapTransaction(ctx context.Context, params domain.SwapParams, quote *domain.SwapQuote) (*solanago.Transaction, error) {
	tx, err := p.build(ctx, params, quote)
	if err != nil {
		return nil, &BuildError{Venue: p.Name(), Err: err}
	}
	return tx, nil
}

func (p *PumpFun) build(ctx context.Context, params domain.SwapParams, quote *domain.SwapQuote) (*solanago.Transaction, error) {
	if quote == nil {
		return nil, fmt.Errorf("nil quote")
	}
	user, err := solanago.PublicKeyFromBase58(params.Payer)
	if err != nil {
		return nil, fmt.Errorf("payer: %w", err)
	}

	_, mint, err := p.quote(ctx, params)
	if err != nil {
		return nil, err
	}

	acc, err := deriveCurveAccounts(mint, user)
	if err != nil {
		return nil, fmt.Errorf("derive accounts: %w", err)
	}

	minOut := MinOutput(quote.OutputAmount, params.SlippageBps)

	var ixs []solanago.Instruction
	if p.priorityFee > 0 {
		ixs = append(ixs, setComputeUnitPriceInstruction(p.priorityFee))
	}
	if params.IsBuy() {
		ixs = append(ixs,
			createATAIdempotentInstruction(user, acc.userATA, user, mint),
			pumpBuyInstruction(acc, minOut, params.Amount),
		)
	} else {
		ixs = append(ixs, pumpSellInstruction(acc, params.Amount, minOut))
	}

	bh, err := p.rpc.GetLatestBlockhash(ctx)
	if err != nil {
		return nil, fmt.Errorf("get blockhash: %w", err)
	}
	hash, err := solanago.HashFromBase58(bh.Blockhash)
	if err != nil {
		return nil, fmt.Errorf("parse blockhash: %w", err)
	}

	tx, err := solanago.NewTransaction(ixs, hash, solanago.TransactionPayer(user))
	if err != nil {
		return nil, fmt.Errorf("new transaction: %w", err)
	}
	return tx, nil
}

// ExecuteSwap implements Adapter.
func (p *PumpFun) ExecuteSwap(ctx context.Context, params domain.SwapParams, signer solanago.PrivateKey) (*domain.SwapResult, error) {
	return p.execute(ctx, p, params, signer)
}
