package copytrade

import (
	"errors"
	"fmt"
	"time"

	solanago "github.com/gagliardetto/solana-go"

	"solana-swap-bot/internal/domain"
	"solana-swap-bot/internal/venue"
)

// AmountMode selects how much SOL each wallet spends on a copied buy.
type AmountMode string

// Amount modes
const (
	AmountFixed        AmountMode = "fixed"
	AmountProportional AmountMode = "proportional"
)

// SellMode selects how much of its balance each wallet sells on a copied sell.
type SellMode string

// Sell modes
const (
	// SellMirror sells the same share of the balance the target sold.
	SellMirror SellMode = "mirror"
	// SellFull sells the whole balance on any target sell.
	SellFull SellMode = "full"
)

// Defaults
const (
	DefaultPollInterval = 3 * time.Second
	DefaultPageSize     = 10
	MinPollInterval     = 500 * time.Millisecond
	maxPageSize         = 1000
)

// Config configures one monitoring session.
type Config struct {
	TargetWallet string   `json:"targetWallet" yaml:"target_wallet"`
	Venue        string   `json:"venue" yaml:"venue"` // empty uses the venue the trade was detected on
	WalletIDs    []string `json:"walletIds" yaml:"wallet_ids"`

	AmountMode     AmountMode `json:"amountMode" yaml:"amount_mode"`
	FixedAmountSOL float64    `json:"fixedAmountSol" yaml:"fixed_amount_sol"`
	SlippageBps    int        `json:"slippageBps" yaml:"slippage_bps"`
	SellMode       SellMode   `json:"sellMode" yaml:"sell_mode"`

	CopyBuys  bool `json:"copyBuys" yaml:"copy_buys"`
	CopySells bool `json:"copySells" yaml:"copy_sells"`

	CopyDelay    time.Duration `json:"copyDelay" yaml:"copy_delay"`
	PollInterval time.Duration `json:"pollInterval" yaml:"poll_interval"`
	PageSize     int           `json:"pageSize" yaml:"page_size"`

	// ResumeFromCursor continues from the stored cursor instead of the newest signature.
	ResumeFromCursor bool `json:"resumeFromCursor" yaml:"resume_from_cursor"`
}

// WithDefaults fills zero values.
func (c Config) WithDefaults() Config {
	if c.PollInterval == 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.PageSize == 0 {
		c.PageSize = DefaultPageSize
	}
	if c.AmountMode == "" {
		c.AmountMode = AmountFixed
	}
	if c.SellMode == "" {
		c.SellMode = SellMirror
	}
	return c
}

// Validate checks the session configuration.
func (c Config) Validate() error {
	if _, err := solanago.PublicKeyFromBase58(c.TargetWallet); err != nil {
		return fmt.Errorf("invalid target wallet %q: %w", c.TargetWallet, err)
	}
	if len(c.WalletIDs) == 0 {
		return errors.New("at least one wallet is required")
	}
	if c.Venue != "" {
		if _, err := venue.ParseKind(c.Venue); err != nil {
			return err
		}
	}
	switch c.AmountMode {
	case AmountFixed:
		if c.FixedAmountSOL <= 0 {
			return errors.New("fixed amount must be positive")
		}
	case AmountProportional:
	default:
		return fmt.Errorf("unknown amount mode %q", c.AmountMode)
	}
	if c.SellMode != SellMirror && c.SellMode != SellFull {
		return fmt.Errorf("unknown sell mode %q", c.SellMode)
	}
	if c.SlippageBps < domain.MinSlippageBps || c.SlippageBps > domain.MaxSlippageBps {
		return fmt.Errorf("slippage %d bps out of range [%d, %d]", c.SlippageBps, domain.MinSlippageBps, domain.MaxSlippageBps)
	}
	if !c.CopyBuys && !c.CopySells {
		return errors.New("neither buys nor sells are copied")
	}
	if c.PollInterval < MinPollInterval {
		return fmt.Errorf("poll interval %s below minimum %s", c.PollInterval, MinPollInterval)
	}
	if c.CopyDelay < 0 {
		return errors.New("copy delay must not be negative")
	}
	if c.PageSize < 1 || c.PageSize > maxPageSize {
		return fmt.Errorf("page size %d out of range [1, %d]", c.PageSize, maxPageSize)
	}
	return nil
}

// PerWalletSOL returns the SOL amount each wallet spends for a detected trade of detectedSOL.
func (c Config) PerWalletSOL(detectedSOL float64) float64 {
	if c.AmountMode == AmountProportional {
		if len(c.WalletIDs) == 0 {
			return 0
		}
		return detectedSOL / float64(len(c.WalletIDs))
	}
	return c.FixedAmountSOL
}

// copies reports whether trades in dir should be replicated.
func (c Config) copies(dir domain.Direction) bool {
	if dir == domain.DirectionBuy {
		return c.CopyBuys
	}
	return c.CopySells
}
