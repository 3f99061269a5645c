package engine

import (
	"context"
	"fmt"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"solana-swap-bot/internal/domain"
	"solana-swap-bot/internal/observability"
	"solana-swap-bot/internal/solana"
)

// FeeLamports returns floor(amountSOL * 1e9 * feeBps / 10000).
func FeeLamports(amountSOL float64, feeBps int) uint64 {
	if amountSOL <= 0 || feeBps <= 0 {
		return 0
	}
	d := decimal.NewFromFloat(amountSOL).
		Mul(decimal.NewFromInt(domain.LamportsPerSOL)).
		Mul(decimal.NewFromInt(int64(feeBps))).
		Div(decimal.NewFromInt(10_000)).
		Floor()
	if d.Sign() <= 0 {
		return 0
	}
	return d.BigInt().Uint64()
}

// collectPlatformFee schedules the fee transfer on the dispatcher.
// Failures never affect the swap result.
func (e *Engine) collectPlatformFee(signer solanago.PrivateKey, amountSOL float64) {
	if e.cfg.PlatformFeeWallet == "" || e.rpc == nil || e.dispatcher == nil {
		return
	}
	lamports := FeeLamports(amountSOL, e.cfg.PlatformFeeBps)
	if lamports == 0 {
		observability.RecordPlatformFee("skipped")
		return
	}

	e.dispatcher.Go("platform_fee", func(ctx context.Context) error {
		sig, err := e.sendFee(ctx, signer, lamports)
		if err != nil {
			observability.RecordPlatformFee("failed")
			return err
		}
		observability.RecordPlatformFee("sent")
		e.logger.WithFields(logrus.Fields{"signature": sig, "lamports": lamports}).Debug("platform fee sent")
		return nil
	})
}

func (e *Engine) sendFee(ctx context.Context, signer solanago.PrivateKey, lamports uint64) (string, error) {
	to, err := solanago.PublicKeyFromBase58(e.cfg.PlatformFeeWallet)
	if err != nil {
		return "", fmt.Errorf("fee wallet: %w", err)
	}
	from := signer.PublicKey()

	bh, err := e.rpc.GetLatestBlockhash(ctx)
	if err != nil {
		return "", fmt.Errorf("fee blockhash: %w", err)
	}
	blockhash, err := solanago.HashFromBase58(bh.Blockhash)
	if err != nil {
		return "", fmt.Errorf("fee blockhash: %w", err)
	}

	tx, err := solanago.NewTransaction(
		[]solanago.Instruction{system.NewTransferInstruction(lamports, from, to).Build()},
		blockhash,
		solanago.TransactionPayer(from),
	)
	if err != nil {
		return "", fmt.Errorf("build fee transfer: %w", err)
	}
	if _, err := tx.Sign(func(pub solanago.PublicKey) *solanago.PrivateKey {
		if pub.Equals(from) {
			return &signer
		}
		return nil
	}); err != nil {
		return "", fmt.Errorf("sign fee transfer: %w", err)
	}

	raw, err := tx.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("serialize fee transfer: %w", err)
	}
	sig, err := e.rpc.SendTransaction(ctx, raw, &solana.SendOpts{PreflightCommitment: solana.CommitmentConfirmed})
	if err != nil {
		return "", fmt.Errorf("send fee transfer: %w", err)
	}
	if err := solana.ConfirmTransaction(ctx, e.rpc, sig, e.cfg.ConfirmTimeout, 0); err != nil {
		return sig, fmt.Errorf("confirm fee transfer: %w", err)
	}
	return sig, nil
}
