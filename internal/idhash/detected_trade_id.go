package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeDetectedTradeID computes a deterministic detected trade id using SHA256.
// Formula: SHA256(target_wallet|tx_signature)
// Returns hex-encoded hash (64 characters).
func ComputeDetectedTradeID(targetWallet, txSignature string) string {
	data := fmt.Sprintf("%s|%s", targetWallet, txSignature)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ComputeSessionID computes a deterministic id for a bot run.
// Formula: SHA256(mode|token_mint|started_at_ms)
func ComputeSessionID(mode, tokenMint string, startedAt int64) string {
	data := fmt.Sprintf("%s|%s|%d", mode, tokenMint, startedAt)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
