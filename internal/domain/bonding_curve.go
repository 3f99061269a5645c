package domain

// BondingCurveState is the decoded state of a pump.fun bonding curve account.
// It is fetched fresh for every quote and build.
type BondingCurveState struct {
	VirtualTokenReserves uint64
	VirtualSolReserves   uint64
	RealTokenReserves    uint64
	RealSolReserves      uint64
	TokenTotalSupply     uint64
	Complete             bool // graduated; the curve no longer trades
}
