package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-swap-bot/internal/domain"
)

const mint = "7GCihgDB8fe6KNjn2MYtkzZcRjQy3t9GHdC8uHYmW2hr"

type wallets []domain.Wallet

func (w wallets) ListWallets(context.Context) ([]domain.Wallet, error) { return w, nil }

func TestBuildTask(t *testing.T) {
	w := domain.Wallet{ID: "main", PublicKey: "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"}

	buy, err := buildTask(w, mint, domain.DirectionBuy, "0.25", 300)
	require.NoError(t, err)
	assert.Equal(t, uint64(250_000_000), buy.Params.Amount)
	assert.Equal(t, domain.SOLMint, buy.Params.InputMint)
	assert.Equal(t, domain.BotModeManual, buy.BotMode)

	sell, err := buildTask(w, mint, domain.DirectionSell, "1500", 300)
	require.NoError(t, err)
	assert.Equal(t, uint64(1500), sell.Params.Amount)
	assert.Equal(t, mint, sell.Params.InputMint)

	_, err = buildTask(w, mint, domain.DirectionSell, "1.5", 300)
	assert.Error(t, err)
	_, err = buildTask(w, mint, domain.DirectionBuy, "-1", 300)
	assert.Error(t, err)
	_, err = buildTask(w, mint, domain.DirectionBuy, "1", 0)
	assert.Error(t, err)
}

func TestPickWallet(t *testing.T) {
	reg := wallets{{ID: "a"}, {ID: "b", IsMain: true}}

	w, err := pickWallet(context.Background(), reg, "")
	require.NoError(t, err)
	assert.Equal(t, "b", w.ID)

	w, err = pickWallet(context.Background(), reg, "a")
	require.NoError(t, err)
	assert.Equal(t, "a", w.ID)

	_, err = pickWallet(context.Background(), reg, "z")
	assert.Error(t, err)
}
