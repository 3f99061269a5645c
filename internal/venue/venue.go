// Package venue implements swap venue adapters: aggregator REST venues
// (Jupiter, Raydium) and the pump.fun bonding curve.
package venue

import (
	"context"
	"fmt"
	"strings"

	solanago "github.com/gagliardetto/solana-go"

	"solana-swap-bot/internal/domain"
)

// Adapter quotes, builds and executes swaps on one venue.
type Adapter interface {
	// Name returns the venue name recorded on transactions.
	Name() string

	// Quote returns the expected output for params. Errors are *QuoteError.
	Quote(ctx context.Context, params domain.SwapParams) (*domain.SwapQuote, error)

	// BuildSwapTransaction returns an unsigned transaction paid by params.Payer.
	// Errors are *BuildError.
	BuildSwapTransaction(ctx context.Context, params domain.SwapParams, quote *domain.SwapQuote) (*solanago.Transaction, error)

	// ExecuteSwap quotes, builds, validates, signs, sends and confirms a swap.
	// Errors are *ExecutionError, or *SafetyError when validation rejects the transaction.
	ExecuteSwap(ctx context.Context, params domain.SwapParams, signer solanago.PrivateKey) (*domain.SwapResult, error)
}

// Kind identifies a supported venue.
type Kind string

// Supported venues.
const (
	KindJupiter Kind = "jupiter"
	KindRaydium Kind = "raydium"
	KindPumpFun Kind = "pumpfun"
)

// Program ids used to identify the venue of an observed transaction.
const (
	JupiterProgramID = "JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4"
	RaydiumAMMV4     = "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8"
	PumpFunProgramID = "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P"
)

// Kinds lists every supported venue.
var Kinds = []Kind{KindJupiter, KindRaydium, KindPumpFun}

// ParseKind maps a configured venue name to a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindJupiter:
		return KindJupiter, nil
	case KindRaydium:
		return KindRaydium, nil
	case KindPumpFun, "pump.fun", "pump":
		return KindPumpFun, nil
	default:
		return "", fmt.Errorf("unknown venue %q", s)
	}
}

// IdentifyProgram returns the venue whose program appears in accountKeys.
// Jupiter wins over the venues it routes through.
func IdentifyProgram(accountKeys []string) (Kind, bool) {
	var found Kind
	for _, key := range accountKeys {
		switch key {
		case JupiterProgramID:
			return KindJupiter, true
		case RaydiumAMMV4:
			if found == "" {
				found = KindRaydium
			}
		case PumpFunProgramID:
			if found == "" {
				found = KindPumpFun
			}
		}
	}
	return found, found != ""
}

// Registry is a dispatch table from Kind to Adapter.
type Registry struct {
	adapters map[Kind]Adapter
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[Kind]Adapter)}
}

// Register adds or replaces the adapter for kind.
func (r *Registry) Register(kind Kind, a Adapter) {
	r.adapters[kind] = a
}

// Get returns the adapter for kind.
func (r *Registry) Get(kind Kind) (Adapter, error) {
	a, ok := r.adapters[kind]
	if !ok {
		return nil, fmt.Errorf("venue %q not registered", kind)
	}
	return a, nil
}

// Lookup parses name and returns its adapter.
func (r *Registry) Lookup(name string) (Adapter, error) {
	kind, err := ParseKind(name)
	if err != nil {
		return nil, err
	}
	return r.Get(kind)
}

// Kinds returns the registered kinds in declaration order.
func (r *Registry) Kinds() []Kind {
	out := make([]Kind, 0, len(r.adapters))
	for _, k := range Kinds {
		if _, ok := r.adapters[k]; ok {
			out = append(out, k)
		}
	}
	return out
}
