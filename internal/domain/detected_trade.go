package domain

// DetectedTrade is a swap observed on the copy-trade target wallet.
// Corresponds to detected_trades table in PostgreSQL.
type DetectedTrade struct {
	ID           string    `json:"id"`           // deterministic hash of target wallet and signature
	Signature    string    `json:"signature"`    // source transaction signature (unique)
	TargetWallet string    `json:"targetWallet"` // monitored wallet
	TokenMint    string    `json:"tokenMint"`    // traded token
	Direction    Direction `json:"direction"`    // buy | sell
	AmountSOL    float64   `json:"amountSol"`    // notional SOL from the target's native balance delta
	Venue        string    `json:"venue"`        // venue identified from program ids
	Replicated   bool      `json:"replicated"`   // true when at least one wallet copied the trade
	DetectedAt   int64     `json:"detectedAt"`   // Unix timestamp in milliseconds
}
