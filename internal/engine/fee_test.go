package engine

import (
	"encoding/binary"
	"testing"
)

func transferLamports(t *testing.T, data []byte) uint64 {
	t.Helper()
	if len(data) != 12 || binary.LittleEndian.Uint32(data[:4]) != 2 {
		t.Fatalf("not a system transfer: %x", data)
	}
	return binary.LittleEndian.Uint64(data[4:])
}

func TestFeeLamports(t *testing.T) {
	tests := []struct {
		name      string
		amountSOL float64
		bps       int
		want      uint64
	}{
		{"one sol", 1, 150, 15_000_000},
		{"half sol", 0.5, 150, 7_500_000},
		{"floors fractions", 0.000001, 150, 15},
		{"tiny rounds to zero", 0.0000001, 1, 0},
		{"zero bps", 1, 0, 0},
		{"negative amount", -1, 150, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FeeLamports(tt.amountSOL, tt.bps); got != tt.want {
				t.Errorf("FeeLamports(%v, %d) = %d, want %d", tt.amountSOL, tt.bps, got, tt.want)
			}
		})
	}
}
