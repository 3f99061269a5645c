package copytrade

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"solana-swap-bot/internal/domain"
	"solana-swap-bot/internal/solana"
	"solana-swap-bot/internal/venue"
)

// Parse outcomes. Each maps to one funnel stage.
var (
	// ErrParse marks a transaction whose detail is missing or malformed.
	ErrParse = errors.New("unparseable transaction")
	// ErrTxFailed marks a transaction that errored on-chain.
	ErrTxFailed = errors.New("transaction failed on-chain")
	// ErrUnknownVenue marks a transaction that touches no known venue program.
	ErrUnknownVenue = errors.New("no known venue program")
	// ErrNoSwap marks a transaction without a non-SOL token balance change for the target.
	ErrNoSwap = errors.New("no swap detected")
)

// MinNotionalSOL is the floor applied to the detected SOL amount.
const MinNotionalSOL = 0.001

var minNotional = decimal.NewFromFloat(MinNotionalSOL)

// Swap is the swap intent extracted from a target wallet transaction.
type Swap struct {
	Signature  string
	Venue      venue.Kind
	TokenMint  string
	Direction  domain.Direction
	TokenDelta decimal.Decimal // absolute change in UI units
	AmountSOL  float64         // absolute native balance change of the target, floored at MinNotionalSOL
	// signed native balance change of the target
	LamportDiff int64

	// SellFraction is the share of its prior balance the target sold, in
	// (0, 1]. Zero for buys.
	SellFraction decimal.Decimal
}

// ParseSwap extracts the swap performed by target in tx.
func ParseSwap(tx *solana.Transaction, target string) (*Swap, error) {
	if tx == nil || tx.Meta == nil || tx.Message == nil {
		return nil, ErrParse
	}
	if tx.Meta.Err != nil {
		return nil, ErrTxFailed
	}

	kind, ok := venue.IdentifyProgram(tx.Message.AccountKeys)
	if !ok {
		return nil, ErrUnknownVenue
	}

	mint, delta, preAmt, decimals, err := tokenDelta(tx.Meta, target)
	if err != nil {
		return nil, err
	}
	if mint == "" {
		return nil, ErrNoSwap
	}

	dir := domain.DirectionBuy
	var fraction decimal.Decimal
	if delta.Sign() < 0 {
		dir = domain.DirectionSell
		fraction = decimal.NewFromInt(1)
		if preAmt.IsPositive() {
			if f := delta.Abs().Div(preAmt); f.LessThan(fraction) {
				fraction = f
			}
		}
	}

	lamports := nativeDelta(tx, target)
	sol := decimal.NewFromInt(lamports).Abs().Shift(-9)
	if sol.LessThan(minNotional) {
		sol = minNotional
	}
	amountSOL, _ := sol.Float64()

	return &Swap{
		Signature:    tx.Signature,
		Venue:        kind,
		TokenMint:    mint,
		Direction:    dir,
		TokenDelta:   delta.Abs().Shift(-int32(decimals)),
		SellFraction: fraction,
		AmountSOL:    amountSOL,
		LamportDiff:  lamports,
	}, nil
}

type balanceKey struct {
	mint  string
	index int
}

// tokenDelta returns the first non-SOL mint whose balance owned by target
// changed, with the raw change and the raw pre balance. Post entries are
// considered first, then pre entries that have no post entry.
func tokenDelta(meta *solana.TransactionMeta, target string) (string, decimal.Decimal, decimal.Decimal, uint8, error) {
	pre := make(map[balanceKey]solana.TokenBalance)
	for _, b := range meta.PreTokenBalances {
		if b.Owner == target {
			pre[balanceKey{b.Mint, b.AccountIndex}] = b
		}
	}

	seen := make(map[balanceKey]bool)
	for _, post := range meta.PostTokenBalances {
		if post.Owner != target {
			continue
		}
		key := balanceKey{post.Mint, post.AccountIndex}
		seen[key] = true

		postAmt, err := rawAmount(post.Amount)
		if err != nil {
			return "", decimal.Zero, decimal.Zero, 0, err
		}
		preAmt := decimal.Zero
		if p, ok := pre[key]; ok {
			if preAmt, err = rawAmount(p.Amount); err != nil {
				return "", decimal.Zero, decimal.Zero, 0, err
			}
		}
		if d := postAmt.Sub(preAmt); post.Mint != domain.SOLMint && !d.IsZero() {
			return post.Mint, d, preAmt, post.Decimals, nil
		}
	}

	for _, p := range meta.PreTokenBalances {
		key := balanceKey{p.Mint, p.AccountIndex}
		if p.Owner != target || seen[key] || p.Mint == domain.SOLMint {
			continue
		}
		preAmt, err := rawAmount(p.Amount)
		if err != nil {
			return "", decimal.Zero, decimal.Zero, 0, err
		}
		if !preAmt.IsZero() {
			return p.Mint, preAmt.Neg(), preAmt, p.Decimals, nil
		}
	}

	return "", decimal.Zero, decimal.Zero, 0, nil
}

func rawAmount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: token amount %q: %v", ErrParse, s, err)
	}
	return d, nil
}

// nativeDelta returns post - pre lamports of target, or 0 if target is not an account of tx.
func nativeDelta(tx *solana.Transaction, target string) int64 {
	for i, key := range tx.Message.AccountKeys {
		if key != target {
			continue
		}
		if i >= len(tx.Meta.PreBalances) || i >= len(tx.Meta.PostBalances) {
			return 0
		}
		pre := new(big.Int).SetUint64(tx.Meta.PreBalances[i])
		post := new(big.Int).SetUint64(tx.Meta.PostBalances[i])
		return post.Sub(post, pre).Int64()
	}
	return 0
}
