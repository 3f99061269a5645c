package domain

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// LamportsPerSOL is the number of lamports in one SOL.
const LamportsPerSOL = 1_000_000_000

var lamportsPerSOL = decimal.NewFromInt(LamportsPerSOL)

// SOLToLamports converts a SOL amount to lamports, truncating fractions of a lamport.
// Negative amounts convert to zero.
func SOLToLamports(sol float64) uint64 {
	d := decimal.NewFromFloat(sol).Mul(lamportsPerSOL).Truncate(0)
	if d.Sign() <= 0 {
		return 0
	}
	return d.BigInt().Uint64()
}

// LamportsToSOL converts lamports to SOL.
func LamportsToSOL(lamports uint64) float64 {
	f, _ := decimal.NewFromBigInt(new(big.Int).SetUint64(lamports), 0).Div(lamportsPerSOL).Float64()
	return f
}
