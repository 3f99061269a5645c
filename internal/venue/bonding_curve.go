package venue

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"solana-swap-bot/internal/domain"
)

// Bonding curve parameters.
const (
	PumpFunFeeBps                      = 100
	PumpFunInitialVirtualSolReserves   = 30_000_000_000
	PumpFunInitialVirtualTokenReserves = 1_073_000_000_000_000

	bondingCurveMinLen = 49
	bpsDenominator     = 10_000
)

// DecodeBondingCurve parses a bonding curve account.
// Layout: 8-byte discriminator, five u64 LE reserves/supply fields, complete flag.
func DecodeBondingCurve(data []byte) (domain.BondingCurveState, error) {
	if len(data) < bondingCurveMinLen {
		return domain.BondingCurveState{}, fmt.Errorf("bonding curve data too short: %d bytes", len(data))
	}
	return domain.BondingCurveState{
		VirtualTokenReserves: binary.LittleEndian.Uint64(data[8:16]),
		VirtualSolReserves:   binary.LittleEndian.Uint64(data[16:24]),
		RealTokenReserves:    binary.LittleEndian.Uint64(data[24:32]),
		RealSolReserves:      binary.LittleEndian.Uint64(data[32:40]),
		TokenTotalSupply:     binary.LittleEndian.Uint64(data[40:48]),
		Complete:             data[48] == 1,
	}, nil
}

// EncodeBondingCurve is the inverse of DecodeBondingCurve with a zero discriminator.
func EncodeBondingCurve(s domain.BondingCurveState) []byte {
	data := make([]byte, bondingCurveMinLen)
	binary.LittleEndian.PutUint64(data[8:], s.VirtualTokenReserves)
	binary.LittleEndian.PutUint64(data[16:], s.VirtualSolReserves)
	binary.LittleEndian.PutUint64(data[24:], s.RealTokenReserves)
	binary.LittleEndian.PutUint64(data[32:], s.RealSolReserves)
	binary.LittleEndian.PutUint64(data[40:], s.TokenTotalSupply)
	if s.Complete {
		data[48] = 1
	}
	return data
}

// CurveBuyOutput returns the tokens received for lamportsIn after the fee.
func CurveBuyOutput(s domain.BondingCurveState, lamportsIn uint64, feeBps int) uint64 {
	in := u128(lamportsIn)
	fee := new(big.Int).Div(new(big.Int).Mul(in, big.NewInt(int64(feeBps))), big.NewInt(bpsDenominator))
	net := new(big.Int).Sub(in, fee)

	vSol := u128(s.VirtualSolReserves)
	vTok := u128(s.VirtualTokenReserves)
	k := new(big.Int).Mul(vSol, vTok)

	newSol := new(big.Int).Add(vSol, net)
	if newSol.Sign() == 0 {
		return 0
	}
	newTok := new(big.Int).Div(k, newSol)
	return clampU64(new(big.Int).Sub(vTok, newTok))
}

// CurveSellOutput returns the lamports received for tokensIn after the fee.
func CurveSellOutput(s domain.BondingCurveState, tokensIn uint64, feeBps int) uint64 {
	vSol := u128(s.VirtualSolReserves)
	vTok := u128(s.VirtualTokenReserves)
	k := new(big.Int).Mul(vSol, vTok)

	newTok := new(big.Int).Add(vTok, u128(tokensIn))
	if newTok.Sign() == 0 {
		return 0
	}
	newSol := new(big.Int).Div(k, newTok)
	gross := new(big.Int).Sub(vSol, newSol)
	fee := new(big.Int).Div(new(big.Int).Mul(gross, big.NewInt(int64(feeBps))), big.NewInt(bpsDenominator))
	return clampU64(new(big.Int).Sub(gross, fee))
}

// MinOutput applies slippage tolerance to a quoted amount.
func MinOutput(quoted uint64, slippageBps int) uint64 {
	if slippageBps >= bpsDenominator {
		return 0
	}
	v := new(big.Int).Mul(u128(quoted), big.NewInt(int64(bpsDenominator-slippageBps)))
	return clampU64(v.Div(v, big.NewInt(bpsDenominator)))
}

// CurvePriceImpact returns the input size relative to the virtual reserve
// on the input side, in percent with two decimals of precision.
func CurvePriceImpact(s domain.BondingCurveState, amount uint64, isBuy bool) float64 {
	reserve := s.VirtualTokenReserves
	if isBuy {
		reserve = s.VirtualSolReserves
	}
	if reserve == 0 {
		return 0
	}
	v := new(big.Int).Mul(u128(amount), big.NewInt(bpsDenominator))
	v.Div(v, u128(reserve))
	f, _ := new(big.Float).SetInt(v).Float64()
	return f / 100
}

func u128(v uint64) *big.Int {
	return new(big.Int).SetUint64(v)
}

func clampU64(v *big.Int) uint64 {
	if v.Sign() <= 0 {
		return 0
	}
	if !v.IsUint64() {
		return ^uint64(0)
	}
	return v.Uint64()
}
