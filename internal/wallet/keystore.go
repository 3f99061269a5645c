package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"

	"solana-swap-bot/internal/domain"
)

// FileKeystore loads unencrypted keypairs from a directory.
// Each *.json file holds a Solana CLI keypair (a JSON array of 64 bytes);
// each *.key file holds a base58 private key. The file name without
// extension is the wallet id.
type FileKeystore struct {
	mu     sync.RWMutex
	keys   map[string]solanago.PrivateKey
	order  []string
	mainID string
}

// LoadFileKeystore reads every key file in dir. mainID marks the main wallet;
// when empty the first id in lexical order is main.
func LoadFileKeystore(dir, mainID string, logger *logrus.Entry) (*FileKeystore, error) {
	if logger == nil {
		logger = logrus.WithField("component", "keystore")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read keystore dir: %w", err)
	}

	ks := &FileKeystore{keys: make(map[string]solanago.PrivateKey)}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if ext != ".json" && ext != ".key" {
			continue
		}
		id := strings.TrimSuffix(e.Name(), ext)

		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read key %s: %w", e.Name(), err)
		}
		key, err := ParseKey(data)
		if err != nil {
			return nil, fmt.Errorf("parse key %s: %w", e.Name(), err)
		}
		if _, dup := ks.keys[id]; dup {
			return nil, fmt.Errorf("duplicate wallet id %q", id)
		}
		ks.keys[id] = key
		ks.order = append(ks.order, id)
	}
	sort.Strings(ks.order)

	if len(ks.order) > 0 {
		ks.mainID = ks.order[0]
	}
	if mainID != "" {
		if _, ok := ks.keys[mainID]; !ok {
			return nil, fmt.Errorf("main wallet %q: %w", mainID, ErrWalletNotFound)
		}
		ks.mainID = mainID
	}

	logger.WithFields(logrus.Fields{"dir": dir, "wallets": len(ks.order)}).Info("keystore loaded")
	return ks, nil
}

// NewMemoryKeystore builds a keystore from keys already in memory, keyed by wallet id.
func NewMemoryKeystore(keys map[string]solanago.PrivateKey, mainID string) *FileKeystore {
	ks := &FileKeystore{keys: make(map[string]solanago.PrivateKey, len(keys)), mainID: mainID}
	for id, k := range keys {
		ks.keys[id] = k
		ks.order = append(ks.order, id)
	}
	sort.Strings(ks.order)
	if ks.mainID == "" && len(ks.order) > 0 {
		ks.mainID = ks.order[0]
	}
	return ks
}

// ParseKey decodes a keypair JSON array or a base58 private key.
func ParseKey(data []byte) (solanago.PrivateKey, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("empty key")
	}

	if data[0] == '[' {
		var raw []int
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("decode keypair json: %w", err)
		}
		if len(raw) != 64 {
			return nil, fmt.Errorf("keypair has %d bytes, want 64", len(raw))
		}
		key := make([]byte, 64)
		for i, v := range raw {
			if v < 0 || v > 255 {
				return nil, fmt.Errorf("keypair byte %d out of range", i)
			}
			key[i] = byte(v)
		}
		return solanago.PrivateKey(key), nil
	}

	key, err := solanago.PrivateKeyFromBase58(string(data))
	if err != nil {
		return nil, fmt.Errorf("decode base58 key: %w", err)
	}
	return key, nil
}

// ListWallets implements Registry.
func (k *FileKeystore) ListWallets(_ context.Context) ([]domain.Wallet, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	out := make([]domain.Wallet, 0, len(k.order))
	for _, id := range k.order {
		out = append(out, domain.Wallet{
			ID:        id,
			PublicKey: k.keys[id].PublicKey().String(),
			Label:     id,
			IsMain:    id == k.mainID,
		})
	}
	return out, nil
}

// SigningKey implements KeyCustody.
func (k *FileKeystore) SigningKey(_ context.Context, walletID string) (solanago.PrivateKey, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	key, ok := k.keys[walletID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", walletID, ErrWalletNotFound)
	}
	return key, nil
}

// Compile-time interface checks
var (
	_ Registry   = (*FileKeystore)(nil)
	_ KeyCustody = (*FileKeystore)(nil)
)
