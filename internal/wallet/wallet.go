// Package wallet provides the wallet registry and signing key custody.
package wallet

import (
	"context"
	"errors"

	solanago "github.com/gagliardetto/solana-go"

	"solana-swap-bot/internal/domain"
)

// ErrWalletNotFound is returned for an unknown wallet id.
var ErrWalletNotFound = errors.New("wallet not found")

// Registry lists managed wallets.
type Registry interface {
	ListWallets(ctx context.Context) ([]domain.Wallet, error)
}

// KeyCustody resolves a wallet id to its signing key.
type KeyCustody interface {
	SigningKey(ctx context.Context, walletID string) (solanago.PrivateKey, error)
}

// PublicKeys maps wallet ids to base58 public keys for the given ids.
// Ids missing from the registry are omitted.
func PublicKeys(ctx context.Context, r Registry, ids []string) (map[string]string, error) {
	wallets, err := r.ListWallets(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]string, len(wallets))
	for _, w := range wallets {
		byID[w.ID] = w.PublicKey
	}

	out := make(map[string]string, len(ids))
	for _, id := range ids {
		if pk, ok := byID[id]; ok {
			out[id] = pk
		}
	}
	return out, nil
}
