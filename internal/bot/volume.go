package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"solana-swap-bot/internal/domain"
)

// VolumeConfig configures a volume run: wallets take turns buying and then
// selling part of what they bought.
type VolumeConfig struct {
	Venue          string        `json:"venue"`
	TokenMint      string        `json:"tokenMint"`
	BuyAmountSOL   float64       `json:"buyAmountSol"`
	SlippageBps    int           `json:"slippageBps"`
	WalletIDs      []string      `json:"walletIds"`
	MinDelay       time.Duration `json:"minDelay"`
	MaxDelay       time.Duration `json:"maxDelay"`
	SellPercentage int           `json:"sellPercentage"`
	MaxRounds      int           `json:"maxRounds"` // 0 runs until stopped
}

// Validate checks the volume configuration.
func (c VolumeConfig) Validate() error {
	if err := validateCommon(c.TokenMint, c.SlippageBps, c.WalletIDs); err != nil {
		return err
	}
	if c.BuyAmountSOL <= 0 {
		return errors.New("buy amount must be positive")
	}
	if c.MinDelay < 0 || c.MaxDelay < c.MinDelay {
		return fmt.Errorf("invalid delay range [%s, %s]", c.MinDelay, c.MaxDelay)
	}
	if c.SellPercentage < MinSellPercentage || c.SellPercentage > MaxSellPercentage {
		return fmt.Errorf("sell percentage %d out of range [%d, %d]", c.SellPercentage, MinSellPercentage, MaxSellPercentage)
	}
	if c.MaxRounds < 0 || c.MaxRounds > MaxRounds {
		return fmt.Errorf("max rounds %d out of range [0, %d]", c.MaxRounds, MaxRounds)
	}
	return nil
}

// StartVolume validates cfg and runs the volume bot in the background.
// Wallets missing from the registry are left out of the rotation.
func (c *Controller) StartVolume(ctx context.Context, cfg VolumeConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	adapter, err := c.opts.Venues.Lookup(cfg.Venue)
	if err != nil {
		return err
	}
	wallets, missing, err := c.resolveWallets(ctx, cfg.WalletIDs)
	if err != nil {
		return err
	}
	if len(wallets) == 0 {
		return errors.New("no wallets selected")
	}
	if len(missing) > 0 {
		c.opts.Logger.WithField("missing", missing).Warn("some volume wallets are not in the registry")
	}

	return c.begin(domain.BotModeVolume, cfg.TokenMint, cfg.MaxRounds, adapter, func(r *run) error {
		return c.runVolume(r, cfg, wallets)
	})
}

func (c *Controller) runVolume(r *run, cfg VolumeConfig, wallets []domain.Wallet) error {
	pause := func() bool {
		return c.opts.Sleep(r.ctx, c.opts.RandDuration(cfg.MinDelay, cfg.MaxDelay)) == nil
	}

	for round := 1; cfg.MaxRounds == 0 || round <= cfg.MaxRounds; round++ {
		if r.ctx.Err() != nil {
			return nil
		}
		c.update(func(s *domain.BotState) { s.CurrentRound = round })

		w := wallets[(round-1)%len(wallets)]
		log := r.log.WithFields(logrus.Fields{"round": round, "wallet": w.ID})

		buy := domain.NewSwapTask(w.ID, w.PublicKey, cfg.TokenMint, domain.DirectionBuy,
			domain.SOLToLamports(cfg.BuyAmountSOL), cfg.BuyAmountSOL, cfg.SlippageBps, domain.BotModeVolume, round)
		results := c.opts.Executor.ExecuteSequential(r.ctx, r.adapter, []domain.SwapTask{buy}, 0)
		if len(results) == 0 {
			return nil
		}
		c.tally(results)
		if results[0].Status != domain.TxStatusConfirmed {
			log.Warn("volume buy failed")
			if !pause() {
				return nil
			}
			continue
		}

		if !pause() {
			return nil
		}

		amount, err := c.sellAmount(r.ctx, w.PublicKey, cfg.TokenMint, cfg.SellPercentage)
		switch {
		case err != nil:
			log.WithError(err).Warn("cannot size volume sell")
			c.update(func(s *domain.BotState) { s.TradesFailed++ })
		case amount == 0:
			log.Debug("nothing to sell")
		default:
			sell := domain.NewSwapTask(w.ID, w.PublicKey, cfg.TokenMint, domain.DirectionSell,
				amount, 0, cfg.SlippageBps, domain.BotModeVolume, round)
			if results := c.opts.Executor.ExecuteSequential(r.ctx, r.adapter, []domain.SwapTask{sell}, 0); len(results) > 0 {
				c.tally(results)
			}
		}

		if !pause() {
			return nil
		}
	}
	return nil
}
