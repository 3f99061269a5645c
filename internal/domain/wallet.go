package domain

// Wallet is a managed wallet as listed by the registry.
type Wallet struct {
	ID        string `json:"id"`
	PublicKey string `json:"publicKey"`
	Label     string `json:"label"`
	IsMain    bool   `json:"isMain"`
}
