package solana

// SignatureInfo from getSignaturesForAddress.
type SignatureInfo struct {
	Signature string
	Slot      int64
	BlockTime *int64
	Err       interface{}
}

// SignaturesOpts defines optional pagination parameters for getSignaturesForAddress.
type SignaturesOpts struct {
	Before string // Start searching backwards from this signature
	Until  string // Search until this signature
	Limit  int    // Maximum number of signatures to return
}

// TokenBalance is a pre/post token balance entry of a transaction.
type TokenBalance struct {
	AccountIndex int
	Mint         string
	Owner        string
	Amount       string // raw integer amount as decimal string
	Decimals     uint8
}

// TokenAmount is the result of getTokenAccountBalance.
type TokenAmount struct {
	Amount   string // raw integer amount as decimal string
	Decimals uint8
	UIAmount *float64
}

// Blockhash is a recent blockhash with its expiry height.
type Blockhash struct {
	Blockhash            string
	LastValidBlockHeight uint64
}

// SendOpts configures sendTransaction.
type SendOpts struct {
	SkipPreflight       bool
	PreflightCommitment string
	MaxRetries          *uint
}

// SignatureStatus is one entry of getSignatureStatuses.
type SignatureStatus struct {
	Slot               int64
	Confirmations      *int64
	Err                interface{}
	ConfirmationStatus string // processed | confirmed | finalized
}

// Commitment levels.
const (
	CommitmentProcessed = "processed"
	CommitmentConfirmed = "confirmed"
	CommitmentFinalized = "finalized"
)
