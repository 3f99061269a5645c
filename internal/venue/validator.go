package venue

import (
	"encoding/binary"
	"fmt"

	solanago "github.com/gagliardetto/solana-go"

	"solana-swap-bot/internal/domain"
)

// MaxPayerTransferLamports is the largest system transfer out of the payer a
// built swap transaction may contain.
const MaxPayerTransferLamports = 10 * domain.LamportsPerSOL

const systemTransferType = 2

// Validate checks a built transaction before it is signed.
// The fee payer must be expectedPayer and no System Program transfer may move
// more than MaxPayerTransferLamports out of it.
func Validate(tx *solanago.Transaction, expectedPayer solanago.PublicKey, venue string) error {
	keys := tx.Message.AccountKeys
	if len(keys) == 0 || !keys[0].Equals(expectedPayer) {
		got := "<none>"
		if len(keys) > 0 {
			got = keys[0].String()
		}
		return &SafetyError{
			Code:    UnexpectedFeePayer,
			Venue:   venue,
			Message: fmt.Sprintf("fee payer %s, expected %s", got, expectedPayer),
		}
	}

	for i, ix := range tx.Message.Instructions {
		if int(ix.ProgramIDIndex) >= len(keys) || !keys[ix.ProgramIDIndex].Equals(solanago.SystemProgramID) {
			continue
		}
		data := ix.Data
		if len(data) < 4 || binary.LittleEndian.Uint32(data[:4]) != systemTransferType {
			continue
		}
		if len(ix.Accounts) < 2 || len(data) < 12 {
			continue
		}
		if int(ix.Accounts[0]) >= len(keys) || !keys[ix.Accounts[0]].Equals(expectedPayer) {
			continue
		}
		lamports := binary.LittleEndian.Uint64(data[4:12])
		if lamports > MaxPayerTransferLamports {
			return &SafetyError{
				Code:    SuspiciousTransfer,
				Venue:   venue,
				Message: fmt.Sprintf("instruction %d transfers %d lamports from payer", i, lamports),
			}
		}
	}

	return nil
}
