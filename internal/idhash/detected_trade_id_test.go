package idhash

import (
	"testing"
)

func TestComputeDetectedTradeID(t *testing.T) {
	tests := []struct {
		name      string
		target    string
		signature string
		wantLen   int // hash length should be 64
	}{
		{
			name:      "basic signature",
			target:    "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM",
			signature: "5VERv8NMvzbJMEkV8xnrLkEaWRtSz9CosKDYjCJjBRnbJLgp8uirBgmQpjKhoR4tjF3ZpRzrFmBV6UjKdiSZkQUW",
			wantLen:   64,
		},
		{
			name:      "empty target",
			target:    "",
			signature: "sig",
			wantLen:   64,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeDetectedTradeID(tt.target, tt.signature)

			if len(got) != tt.wantLen {
				t.Errorf("ComputeDetectedTradeID() length = %d, want %d", len(got), tt.wantLen)
			}

			// Verify determinism: same inputs should produce same output
			got2 := ComputeDetectedTradeID(tt.target, tt.signature)
			if got != got2 {
				t.Errorf("ComputeDetectedTradeID() not deterministic: %s != %s", got, got2)
			}
		})
	}
}

func TestComputeDetectedTradeID_DifferentInputs(t *testing.T) {
	a := ComputeDetectedTradeID("walletA", "sig1")
	b := ComputeDetectedTradeID("walletA", "sig2")
	c := ComputeDetectedTradeID("walletB", "sig1")

	if a == b || a == c || b == c {
		t.Errorf("expected distinct ids, got %s %s %s", a, b, c)
	}

	// Separator prevents ambiguous concatenation.
	if ComputeDetectedTradeID("ab", "c") == ComputeDetectedTradeID("a", "bc") {
		t.Error("expected separator to disambiguate inputs")
	}
}

func TestComputeSessionID(t *testing.T) {
	a := ComputeSessionID("bundle", "mint", 1704067234567)
	b := ComputeSessionID("volume", "mint", 1704067234567)

	if len(a) != 64 {
		t.Errorf("expected 64 chars, got %d", len(a))
	}
	if a == b {
		t.Error("expected different modes to give different ids")
	}
}
