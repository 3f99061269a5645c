package domain

// Direction of a swap relative to the traded token.
type Direction string

// Direction constants
const (
	DirectionBuy  Direction = "buy"
	DirectionSell Direction = "sell"
)

// BotMode identifies which component originated a swap task.
type BotMode string

// Bot mode constants
const (
	BotModeBundle    BotMode = "bundle"
	BotModeVolume    BotMode = "volume"
	BotModeCopyTrade BotMode = "copytrade"
	BotModeManual    BotMode = "manual"
)

// SOLMint is the wrapped SOL mint used by venues to denote native SOL.
const SOLMint = "So11111111111111111111111111111111111111112"

// Slippage bounds in basis points.
const (
	MinSlippageBps = 1
	MaxSlippageBps = 5000
)

// SwapParams is the input to quoting and building.
// The same value must be used for the quote and the build of one attempt.
type SwapParams struct {
	InputMint   string // mint being sold
	OutputMint  string // mint being bought
	Amount      uint64 // input amount in smallest units
	SlippageBps int    // 1..5000
	Payer       string // base58 public key paying fees and signing
}

// IsBuy reports whether the swap spends SOL.
func (p SwapParams) IsBuy() bool {
	return p.InputMint == SOLMint
}

// TokenMint returns the non-SOL side of the swap.
func (p SwapParams) TokenMint() string {
	if p.IsBuy() {
		return p.OutputMint
	}
	return p.InputMint
}

// SwapQuote is an immutable snapshot of one quote request.
type SwapQuote struct {
	InputMint      string
	OutputMint     string
	InputAmount    uint64  // smallest units
	OutputAmount   uint64  // estimated output, smallest units
	PriceImpactPct float64 // percent
	Venue          string
}

// SwapResult is returned by a venue after a confirmed swap.
type SwapResult struct {
	Signature    string
	InputAmount  uint64
	OutputAmount uint64
}

// SwapTask is one wallet's swap for one trade opportunity.
// Tasks are passed by value and consumed once by the execution engine.
type SwapTask struct {
	WalletID  string
	Params    SwapParams
	TokenMint string
	Direction Direction
	AmountSOL float64 // nominal SOL amount (informational for sells)
	BotMode   BotMode
	Round     int
}

// NewSwapTask builds a task for a SOL <-> token swap.
// For buys amount is lamports, for sells it is raw token units.
func NewSwapTask(walletID, payer, tokenMint string, dir Direction, amount uint64, amountSOL float64, slippageBps int, mode BotMode, round int) SwapTask {
	params := SwapParams{
		InputMint:   SOLMint,
		OutputMint:  tokenMint,
		Amount:      amount,
		SlippageBps: slippageBps,
		Payer:       payer,
	}
	if dir == DirectionSell {
		params.InputMint, params.OutputMint = tokenMint, SOLMint
	}
	return SwapTask{
		WalletID:  walletID,
		Params:    params,
		TokenMint: tokenMint,
		Direction: dir,
		AmountSOL: amountSOL,
		BotMode:   mode,
		Round:     round,
	}
}
