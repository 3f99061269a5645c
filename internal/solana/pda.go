package solana

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// Well-known program addresses.
const (
	SystemProgramID          = "11111111111111111111111111111111"
	TokenProgramID           = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	AssociatedTokenProgramID = "ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL"
	ComputeBudgetProgramID   = "ComputeBudget111111111111111111111111111111"
	RentSysvarID             = "SysvarRent111111111111111111111111111111111"
)

const maxSeedLen = 32

// ErrNoViableBump is returned when every bump seed lands on the curve.
var ErrNoViableBump = errors.New("no viable bump seed")

// FindProgramAddress derives a program derived address and its bump seed.
func FindProgramAddress(seeds [][]byte, programID string) (string, uint8, error) {
	programBytes, err := decodePubkey(programID)
	if err != nil {
		return "", 0, fmt.Errorf("program id: %w", err)
	}
	for _, seed := range seeds {
		if len(seed) > maxSeedLen {
			return "", 0, fmt.Errorf("seed longer than %d bytes", maxSeedLen)
		}
	}

	for bump := 255; bump >= 0; bump-- {
		data := make([]byte, 0, 128)
		for _, seed := range seeds {
			data = append(data, seed...)
		}
		data = append(data, byte(bump))
		data = append(data, programBytes...)
		data = append(data, []byte("ProgramDerivedAddress")...)

		hash := sha256.Sum256(data)
		if !isOnCurve(hash[:]) {
			return base58.Encode(hash[:]), uint8(bump), nil
		}
	}

	return "", 0, ErrNoViableBump
}

// AssociatedTokenAddress returns the associated token account of owner for mint.
func AssociatedTokenAddress(owner, mint string) (string, error) {
	ownerBytes, err := decodePubkey(owner)
	if err != nil {
		return "", fmt.Errorf("owner: %w", err)
	}
	mintBytes, err := decodePubkey(mint)
	if err != nil {
		return "", fmt.Errorf("mint: %w", err)
	}
	tokenProgram, err := decodePubkey(TokenProgramID)
	if err != nil {
		return "", err
	}

	addr, _, err := FindProgramAddress([][]byte{ownerBytes, tokenProgram, mintBytes}, AssociatedTokenProgramID)
	return addr, err
}

func decodePubkey(s string) ([]byte, error) {
	b, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("decode %q: %w", s, err)
	}
	if len(b) != 32 {
		return nil, fmt.Errorf("decode %q: expected 32 bytes, got %d", s, len(b))
	}
	return b, nil
}

func isOnCurve(point []byte) bool {
	if len(point) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}
