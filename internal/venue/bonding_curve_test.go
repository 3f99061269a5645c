package venue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-swap-bot/internal/domain"
)

func initialCurve() domain.BondingCurveState {
	return domain.BondingCurveState{
		VirtualTokenReserves: PumpFunInitialVirtualTokenReserves,
		VirtualSolReserves:   PumpFunInitialVirtualSolReserves,
		RealTokenReserves:    793_100_000_000_000,
		RealSolReserves:      0,
		TokenTotalSupply:     1_000_000_000_000_000,
	}
}

func TestCurveBuyOutput_ReferenceScenario(t *testing.T) {
	s := initialCurve()

	out := CurveBuyOutput(s, 1_000_000_000, PumpFunFeeBps)
	assert.Equal(t, uint64(34_277_831_558_568), out)

	assert.Equal(t, uint64(33_935_053_242_982), MinOutput(out, 100))
	assert.InDelta(t, 3.33, CurvePriceImpact(s, 1_000_000_000, true), 1e-9)
}

func TestCurveBuyThenSell_NeverGains(t *testing.T) {
	s := initialCurve()
	for _, in := range []uint64{1, 1_000, 10_000_000, 1_000_000_000, 25_000_000_000} {
		tokens := CurveBuyOutput(s, in, PumpFunFeeBps)
		back := CurveSellOutput(s, tokens, PumpFunFeeBps)
		assert.LessOrEqual(t, back, in, "input %d", in)
	}

	assert.Equal(t, uint64(919_418_387), CurveSellOutput(s, 34_277_831_558_568, PumpFunFeeBps))
}

func TestCurveOutput_ZeroFee(t *testing.T) {
	s := initialCurve()
	withFee := CurveBuyOutput(s, 1_000_000_000, PumpFunFeeBps)
	noFee := CurveBuyOutput(s, 1_000_000_000, 0)
	assert.Greater(t, noFee, withFee)
}

func TestMinOutput(t *testing.T) {
	assert.Equal(t, uint64(990), MinOutput(1000, 100))
	assert.Equal(t, uint64(500), MinOutput(1000, 5000))
	assert.Equal(t, uint64(0), MinOutput(1000, 10_000))
	assert.Equal(t, uint64(9), MinOutput(10, 1))
}

func TestCurvePriceImpact_Sell(t *testing.T) {
	s := initialCurve()
	impact := CurvePriceImpact(s, s.VirtualTokenReserves/100, false)
	assert.InDelta(t, 1.0, impact, 1e-9)
	assert.Equal(t, 0.0, CurvePriceImpact(domain.BondingCurveState{}, 10, true))
}

func TestDecodeBondingCurve(t *testing.T) {
	s := initialCurve()
	s.Complete = true

	decoded, err := DecodeBondingCurve(EncodeBondingCurve(s))
	require.NoError(t, err)
	assert.Equal(t, s, decoded)

	_, err = DecodeBondingCurve(make([]byte, 48))
	assert.Error(t, err)
}
