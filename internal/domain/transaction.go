package domain

// TxStatus is the lifecycle state of a TransactionRecord.
type TxStatus string

// Transaction status constants
const (
	TxStatusPending   TxStatus = "pending"
	TxStatusConfirmed TxStatus = "confirmed"
	TxStatusFailed    TxStatus = "failed"
)

// IsTerminal reports whether the status is final.
func (s TxStatus) IsTerminal() bool {
	return s == TxStatusConfirmed || s == TxStatusFailed
}

// TransactionRecord is one swap attempt sequence in the audit log.
// Corresponds to transactions table in PostgreSQL.
type TransactionRecord struct {
	ID              string    `json:"id"`              // uuid
	Signature       string    `json:"signature"`       // empty until broadcast
	WalletID        string    `json:"walletId"`        // managed wallet id
	WalletPublicKey string    `json:"walletPublicKey"` // base58
	TokenMint       string    `json:"tokenMint"`       // traded token
	Direction       Direction `json:"direction"`       // buy | sell
	AmountSOL       float64   `json:"amountSol"`       // nominal SOL amount
	AmountToken     *uint64   `json:"amountToken"`     // received amount, nil until confirmed
	Venue           string    `json:"venue"`           // venue name
	Status          TxStatus  `json:"status"`          // pending -> confirmed | failed
	Error           *string   `json:"error"`           // last error message (nullable)
	BotMode         BotMode   `json:"botMode"`         // originating mode
	Round           int       `json:"round"`           // bot round (0 for copy trades)
	CreatedAt       int64     `json:"createdAt"`       // Unix timestamp in milliseconds
}

// TxStatusUpdate is the terminal update applied to a pending record.
type TxStatusUpdate struct {
	Status      TxStatus
	Error       *string
	Signature   string  // applied when non-empty
	AmountToken *uint64 // applied when non-nil
}

// Apply returns a copy of r with the update applied.
func (u TxStatusUpdate) Apply(r TransactionRecord) TransactionRecord {
	r.Status = u.Status
	r.Error = u.Error
	if u.Signature != "" {
		r.Signature = u.Signature
	}
	if u.AmountToken != nil {
		v := *u.AmountToken
		r.AmountToken = &v
	}
	return r
}
