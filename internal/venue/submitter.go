package venue

import (
	"context"
	"errors"
	"fmt"
	"time"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"

	"solana-swap-bot/internal/domain"
	"solana-swap-bot/internal/observability"
	"solana-swap-bot/internal/solana"
)

// Options configures the execution side shared by all adapters.
type Options struct {
	RPC             solana.RPCClient
	ConfirmTimeout  time.Duration // default solana.DefaultConfirmTimeout
	ConfirmInterval time.Duration // default solana.DefaultConfirmInterval
	Logger          *logrus.Entry
}

// quoteBuilder is the venue-specific half of an Adapter.
type quoteBuilder interface {
	Name() string
	Quote(ctx context.Context, params domain.SwapParams) (*domain.SwapQuote, error)
	BuildSwapTransaction(ctx context.Context, params domain.SwapParams, quote *domain.SwapQuote) (*solanago.Transaction, error)
}

// submitter runs the quote, build, validate, sign, send and confirm sequence.
type submitter struct {
	rpc             solana.RPCClient
	confirmTimeout  time.Duration
	confirmInterval time.Duration
	log             *logrus.Entry
}

func newSubmitter(opts Options, venue string) submitter {
	log := opts.Logger
	if log == nil {
		log = logrus.WithField("component", "venue")
	}
	timeout := opts.ConfirmTimeout
	if timeout <= 0 {
		timeout = solana.DefaultConfirmTimeout
	}
	return submitter{
		rpc:             opts.RPC,
		confirmTimeout:  timeout,
		confirmInterval: opts.ConfirmInterval,
		log:             log.WithField("venue", venue),
	}
}

func (s submitter) execute(ctx context.Context, b quoteBuilder, params domain.SwapParams, signer solanago.PrivateKey) (*domain.SwapResult, error) {
	venue := b.Name()
	fail := func(op, sig string, err error) error {
		return &ExecutionError{Venue: venue, Op: op, Signature: sig, Err: err}
	}

	if s.rpc == nil {
		return nil, fail("send", "", errors.New("no rpc client configured"))
	}

	payer, err := solanago.PublicKeyFromBase58(params.Payer)
	if err != nil {
		return nil, fail("build", "", fmt.Errorf("payer: %w", err))
	}

	quote, err := b.Quote(ctx, params)
	if err != nil {
		return nil, fail("quote", "", err)
	}

	tx, err := b.BuildSwapTransaction(ctx, params, quote)
	if err != nil {
		return nil, fail("build", "", err)
	}

	if err := Validate(tx, payer, venue); err != nil {
		var se *SafetyError
		if errors.As(err, &se) {
			observability.RecordSafetyRejection(venue, string(se.Code))
		}
		s.log.WithError(err).Warn("transaction rejected by validator")
		return nil, err
	}

	signerPub := signer.PublicKey()
	if _, err := tx.Sign(func(pub solanago.PublicKey) *solanago.PrivateKey {
		if pub.Equals(signerPub) {
			return &signer
		}
		return nil
	}); err != nil {
		return nil, fail("sign", "", err)
	}

	raw, err := tx.MarshalBinary()
	if err != nil {
		return nil, fail("sign", "", fmt.Errorf("serialize: %w", err))
	}

	// Once broadcast starts the swap runs to a result even if the caller gives up.
	sendCtx := context.WithoutCancel(ctx)

	maxRetries := uint(3)
	sig, err := s.rpc.SendTransaction(sendCtx, raw, &solana.SendOpts{
		SkipPreflight:       false,
		PreflightCommitment: solana.CommitmentConfirmed,
		MaxRetries:          &maxRetries,
	})
	if err != nil {
		return nil, fail("send", "", err)
	}

	s.log.WithFields(logrus.Fields{
		"signature": sig,
		"input":     params.InputMint,
		"output":    params.OutputMint,
		"amount":    params.Amount,
	}).Info("transaction sent")

	if err := solana.ConfirmTransaction(sendCtx, s.rpc, sig, s.confirmTimeout, s.confirmInterval); err != nil {
		return nil, fail("confirm", sig, err)
	}

	return &domain.SwapResult{
		Signature:    sig,
		InputAmount:  quote.InputAmount,
		OutputAmount: quote.OutputAmount,
	}, nil
}
