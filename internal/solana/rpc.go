package solana

import "context"

// RPCClient defines the Solana JSON-RPC surface used by venues, the execution
// engine and the copy-trade monitor.
type RPCClient interface {
	// GetTransaction retrieves a confirmed transaction with balance metadata.
	// Returns nil, nil if the transaction is not (yet) available.
	GetTransaction(ctx context.Context, signature string) (*Transaction, error)

	// GetSignaturesForAddress retrieves signatures for an address, newest first.
	GetSignaturesForAddress(ctx context.Context, address string, opts *SignaturesOpts) ([]SignatureInfo, error)

	// GetAccountInfo retrieves raw account data. Returns nil, nil if the account does not exist.
	GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error)

	// GetLatestBlockhash returns a recent blockhash for transaction building.
	GetLatestBlockhash(ctx context.Context) (*Blockhash, error)

	// SendTransaction broadcasts a signed, serialized transaction and returns its signature.
	SendTransaction(ctx context.Context, rawTx []byte, opts *SendOpts) (string, error)

	// GetSignatureStatuses returns the status of each signature (nil entries are unknown).
	GetSignatureStatuses(ctx context.Context, signatures []string) ([]*SignatureStatus, error)

	// GetBalance returns the lamport balance of an account.
	GetBalance(ctx context.Context, pubkey string) (uint64, error)

	// GetTokenAccountBalance returns the balance of an SPL token account.
	GetTokenAccountBalance(ctx context.Context, account string) (*TokenAmount, error)
}

// Transaction represents a Solana transaction.
type Transaction struct {
	Slot      int64
	Signature string
	BlockTime int64 // Unix timestamp (seconds)
	Meta      *TransactionMeta
	Message   *TransactionMessage
}

// TransactionMeta contains transaction metadata.
type TransactionMeta struct {
	Err               interface{}
	LogMessages       []string
	PreBalances       []uint64 // lamports, indexed like AccountKeys
	PostBalances      []uint64
	PreTokenBalances  []TokenBalance
	PostTokenBalances []TokenBalance
}

// TransactionMessage contains parsed transaction message.
// AccountKeys holds static keys followed by writable and readonly keys
// loaded from address lookup tables, matching balance indexes.
type TransactionMessage struct {
	AccountKeys []string
}
