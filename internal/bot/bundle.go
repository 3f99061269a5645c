package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"

	"solana-swap-bot/internal/domain"
)

// Bounds for bot configuration.
const (
	MinRounds         = 1
	MaxRounds         = 1000
	MinSellPercentage = 50
	MaxSellPercentage = 100
)

// BundleConfig configures a bundle run: every round all wallets swap the same
// token in the same direction at once.
type BundleConfig struct {
	Venue              string           `json:"venue"`
	TokenMint          string           `json:"tokenMint"`
	Direction          domain.Direction `json:"direction"`
	AmountSOL          float64          `json:"amountSol"`
	SlippageBps        int              `json:"slippageBps"`
	WalletIDs          []string         `json:"walletIds"`
	Rounds             int              `json:"rounds"`
	DelayBetweenRounds time.Duration    `json:"delayBetweenRounds"`
	// SellPercentage of each wallet's balance sold in sell rounds. Defaults to 100.
	SellPercentage int `json:"sellPercentage"`
}

// Validate checks the bundle configuration.
func (c BundleConfig) Validate() error {
	if err := validateCommon(c.TokenMint, c.SlippageBps, c.WalletIDs); err != nil {
		return err
	}
	switch c.Direction {
	case domain.DirectionBuy:
		if c.AmountSOL <= 0 {
			return errors.New("amount must be positive")
		}
	case domain.DirectionSell:
		if c.SellPercentage != 0 && (c.SellPercentage < MinSellPercentage || c.SellPercentage > MaxSellPercentage) {
			return fmt.Errorf("sell percentage %d out of range [%d, %d]", c.SellPercentage, MinSellPercentage, MaxSellPercentage)
		}
	default:
		return fmt.Errorf("unknown direction %q", c.Direction)
	}
	if c.Rounds < MinRounds || c.Rounds > MaxRounds {
		return fmt.Errorf("rounds %d out of range [%d, %d]", c.Rounds, MinRounds, MaxRounds)
	}
	if c.DelayBetweenRounds < 0 {
		return errors.New("delay between rounds must not be negative")
	}
	return nil
}

func validateCommon(mint string, slippageBps int, walletIDs []string) error {
	if _, err := solanago.PublicKeyFromBase58(mint); err != nil {
		return fmt.Errorf("invalid token mint %q: %w", mint, err)
	}
	if slippageBps < domain.MinSlippageBps || slippageBps > domain.MaxSlippageBps {
		return fmt.Errorf("slippage %d bps out of range [%d, %d]", slippageBps, domain.MinSlippageBps, domain.MaxSlippageBps)
	}
	if len(walletIDs) == 0 {
		return errors.New("no wallets selected")
	}
	return nil
}

// StartBundle validates cfg and runs the bundle in the background.
func (c *Controller) StartBundle(ctx context.Context, cfg BundleConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.SellPercentage == 0 {
		cfg.SellPercentage = MaxSellPercentage
	}
	adapter, err := c.opts.Venues.Lookup(cfg.Venue)
	if err != nil {
		return err
	}
	wallets, missing, err := c.resolveWallets(ctx, cfg.WalletIDs)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return fmt.Errorf("wallets not found: %s", strings.Join(missing, ", "))
	}

	return c.begin(domain.BotModeBundle, cfg.TokenMint, cfg.Rounds, adapter, func(r *run) error {
		return c.runBundle(r, cfg, wallets)
	})
}

func (c *Controller) runBundle(r *run, cfg BundleConfig, wallets []domain.Wallet) error {
	for round := 1; round <= cfg.Rounds; round++ {
		if r.ctx.Err() != nil {
			return nil
		}
		c.update(func(s *domain.BotState) { s.CurrentRound = round })

		tasks := c.bundleTasks(r, cfg, wallets, round)
		if len(tasks) > 0 {
			results := c.opts.Executor.ExecuteParallel(r.ctx, r.adapter, tasks)
			c.tally(results)
		}
		r.log.WithFields(logrus.Fields{"round": round, "tasks": len(tasks)}).Debug("bundle round finished")

		if round < cfg.Rounds && cfg.DelayBetweenRounds > 0 {
			if err := c.opts.Sleep(r.ctx, cfg.DelayBetweenRounds); err != nil {
				return nil
			}
		}
	}
	return nil
}

func (c *Controller) bundleTasks(r *run, cfg BundleConfig, wallets []domain.Wallet, round int) []domain.SwapTask {
	tasks := make([]domain.SwapTask, 0, len(wallets))
	for _, w := range wallets {
		amount := domain.SOLToLamports(cfg.AmountSOL)
		if cfg.Direction == domain.DirectionSell {
			var err error
			amount, err = c.sellAmount(r.ctx, w.PublicKey, cfg.TokenMint, cfg.SellPercentage)
			if err != nil {
				r.log.WithError(err).WithField("wallet", w.ID).Warn("cannot size sell, skipping wallet")
				c.update(func(s *domain.BotState) { s.TradesFailed++ })
				continue
			}
		}
		if amount == 0 {
			continue
		}
		tasks = append(tasks, domain.NewSwapTask(w.ID, w.PublicKey, cfg.TokenMint, cfg.Direction, amount, cfg.AmountSOL, cfg.SlippageBps, domain.BotModeBundle, round))
	}
	return tasks
}
