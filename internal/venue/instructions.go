package venue

import (
	"crypto/sha256"
	"encoding/binary"

	solanago "github.com/gagliardetto/solana-go"

	"solana-swap-bot/internal/solana"
)

// pump.fun accounts.
var (
	PumpFunProgram        = solanago.MustPublicKeyFromBase58(PumpFunProgramID)
	PumpFunGlobal         = solanago.MustPublicKeyFromBase58("4wTV1YmiEkRvAtNtsSGPtUrqRYQMe5SKy2uB4Jjaxnjf")
	PumpFunFeeRecipient   = solanago.MustPublicKeyFromBase58("CebN5WGQ4jvEPvsVU4EoHEpgzq1VV7AbCJ2kUKYhDLby")
	PumpFunEventAuthority = solanago.MustPublicKeyFromBase58("Ce6TQqeHC9p8KetsN6JsjHK7UTZk7nasjjnr7XxXp9F1")

	tokenProgram           = solanago.MustPublicKeyFromBase58(solana.TokenProgramID)
	associatedTokenProgram = solanago.MustPublicKeyFromBase58(solana.AssociatedTokenProgramID)
	computeBudgetProgram   = solanago.MustPublicKeyFromBase58(solana.ComputeBudgetProgramID)
	rentSysvar             = solanago.MustPublicKeyFromBase58(solana.RentSysvarID)
)

// Anchor instruction discriminators: sha256("global:<name>")[:8].
var (
	buyDiscriminator  = anchorDiscriminator("global:buy")
	sellDiscriminator = anchorDiscriminator("global:sell")
)

func anchorDiscriminator(name string) [8]byte {
	sum := sha256.Sum256([]byte(name))
	var d [8]byte
	copy(d[:], sum[:8])
	return d
}

// curveAccounts are the derived addresses a pump.fun trade touches.
type curveAccounts struct {
	mint            solanago.PublicKey
	user            solanago.PublicKey
	bondingCurve    solanago.PublicKey
	bondingCurveATA solanago.PublicKey
	userATA         solanago.PublicKey
}

// BondingCurveAddress derives the bonding curve PDA of mint.
func BondingCurveAddress(mint solanago.PublicKey) (solanago.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{[]byte("bonding-curve"), mint.Bytes()}, PumpFunProgramID)
	if err != nil {
		return solanago.PublicKey{}, err
	}
	return solanago.PublicKeyFromBase58(addr)
}

func deriveCurveAccounts(mint, user solanago.PublicKey) (*curveAccounts, error) {
	curve, err := BondingCurveAddress(mint)
	if err != nil {
		return nil, err
	}
	curveATA, err := ataOf(curve, mint)
	if err != nil {
		return nil, err
	}
	userATA, err := ataOf(user, mint)
	if err != nil {
		return nil, err
	}
	return &curveAccounts{
		mint:            mint,
		user:            user,
		bondingCurve:    curve,
		bondingCurveATA: curveATA,
		userATA:         userATA,
	}, nil
}

func ataOf(owner, mint solanago.PublicKey) (solanago.PublicKey, error) {
	addr, err := solana.AssociatedTokenAddress(owner.String(), mint.String())
	if err != nil {
		return solanago.PublicKey{}, err
	}
	return solanago.PublicKeyFromBase58(addr)
}

func tradeData(disc [8]byte, a, b uint64) []byte {
	data := make([]byte, 24)
	copy(data[:8], disc[:])
	binary.LittleEndian.PutUint64(data[8:], a)
	binary.LittleEndian.PutUint64(data[16:], b)
	return data
}

// pumpBuyInstruction buys at least minTokensOut spending at most maxSolCost lamports.
func pumpBuyInstruction(acc *curveAccounts, minTokensOut, maxSolCost uint64) solanago.Instruction {
	return solanago.NewInstruction(PumpFunProgram, solanago.AccountMetaSlice{
		solanago.NewAccountMeta(PumpFunGlobal, false, false),
		solanago.NewAccountMeta(PumpFunFeeRecipient, true, false),
		solanago.NewAccountMeta(acc.mint, false, false),
		solanago.NewAccountMeta(acc.bondingCurve, true, false),
		solanago.NewAccountMeta(acc.bondingCurveATA, true, false),
		solanago.NewAccountMeta(acc.userATA, true, false),
		solanago.NewAccountMeta(acc.user, true, true),
		solanago.NewAccountMeta(solanago.SystemProgramID, false, false),
		solanago.NewAccountMeta(tokenProgram, false, false),
		solanago.NewAccountMeta(rentSysvar, false, false),
		solanago.NewAccountMeta(PumpFunEventAuthority, false, false),
		solanago.NewAccountMeta(PumpFunProgram, false, false),
	}, tradeData(buyDiscriminator, minTokensOut, maxSolCost))
}

// pumpSellInstruction sells tokenAmount for at least minSolOut lamports.
func pumpSellInstruction(acc *curveAccounts, tokenAmount, minSolOut uint64) solanago.Instruction {
	return solanago.NewInstruction(PumpFunProgram, solanago.AccountMetaSlice{
		solanago.NewAccountMeta(PumpFunGlobal, false, false),
		solanago.NewAccountMeta(PumpFunFeeRecipient, true, false),
		solanago.NewAccountMeta(acc.mint, false, false),
		solanago.NewAccountMeta(acc.bondingCurve, true, false),
		solanago.NewAccountMeta(acc.bondingCurveATA, true, false),
		solanago.NewAccountMeta(acc.userATA, true, false),
		solanago.NewAccountMeta(acc.user, true, true),
		solanago.NewAccountMeta(solanago.SystemProgramID, false, false),
		solanago.NewAccountMeta(associatedTokenProgram, false, false),
		solanago.NewAccountMeta(tokenProgram, false, false),
		solanago.NewAccountMeta(PumpFunEventAuthority, false, false),
		solanago.NewAccountMeta(PumpFunProgram, false, false),
	}, tradeData(sellDiscriminator, tokenAmount, minSolOut))
}

// createATAIdempotentInstruction creates owner's token account for mint if missing.
func createATAIdempotentInstruction(payer, ata, owner, mint solanago.PublicKey) solanago.Instruction {
	return solanago.NewInstruction(associatedTokenProgram, solanago.AccountMetaSlice{
		solanago.NewAccountMeta(payer, true, true),
		solanago.NewAccountMeta(ata, true, false),
		solanago.NewAccountMeta(owner, false, false),
		solanago.NewAccountMeta(mint, false, false),
		solanago.NewAccountMeta(solanago.SystemProgramID, false, false),
		solanago.NewAccountMeta(tokenProgram, false, false),
	}, []byte{1})
}

// setComputeUnitPriceInstruction sets the priority fee in micro-lamports per compute unit.
func setComputeUnitPriceInstruction(microLamports uint64) solanago.Instruction {
	data := make([]byte, 9)
	data[0] = 3
	binary.LittleEndian.PutUint64(data[1:], microLamports)
	return solanago.NewInstruction(computeBudgetProgram, solanago.AccountMetaSlice{}, data)
}
