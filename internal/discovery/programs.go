package discovery

// Known Solana program and mint addresses.
const (
	// SystemProgram is the native system program.
	SystemProgram = "11111111111111111111111111111111"
	// ComputeBudgetProgram sets compute unit limits.
	ComputeBudgetProgram = "ComputeBudget111111111111111111111111111111"
	// TokenProgram is the SPL Token program (InitializeMint lives here).
	TokenProgram = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	// Token2022Program is the SPL Token-2022 program.
	Token2022Program = "TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb"
	// AssociatedTokenProgram creates associated token accounts.
	AssociatedTokenProgram = "ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL"
	// MemoProgram is the SPL memo program.
	MemoProgram = "MemoSq4gqABAXKb96qnH8TysNcWxMyWCqXgDLGmfcHr"
	// VoteProgram is the native vote program.
	VoteProgram = "Vote111111111111111111111111111111111111111"
	// SysvarRent is the rent sysvar account.
	SysvarRent = "SysvarRent111111111111111111111111111111111"
	// SysvarClock is the clock sysvar account.
	SysvarClock = "SysvarC1ock11111111111111111111111111111111"
	// MetaplexMetadataProgram owns token metadata PDAs.
	MetaplexMetadataProgram = "metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s"

	// RaydiumAMMV4 is the Raydium AMM v4 program ID.
	RaydiumAMMV4 = "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8"
	// RaydiumCLMM is the Raydium concentrated liquidity program ID.
	RaydiumCLMM = "CAMMCzo5YL8w4VFF8KVHrK22GGUsp5VTaW7grrKgrWqK"
	// OrcaWhirlpool is the Orca Whirlpools program ID.
	OrcaWhirlpool = "whirLbMiicVdio4qvUfM5KAg6Ct8VwpYzGff3uctyCc"
	// PumpFun is the pump.fun bonding curve program ID.
	PumpFun = "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P"
	// JupiterV6 is the Jupiter aggregator v6 program ID.
	JupiterV6 = "JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4"

	// WSOL is the wrapped SOL mint.
	WSOL = "So11111111111111111111111111111111111111112"
	// USDC is the Circle USD mint.
	USDC = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	// USDT is the Tether USD mint.
	USDT = "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB"
)

// denyList holds addresses that can never be a fresh candidate mint:
// programs, sysvars, and bluechip mints that show up in almost every
// transaction's account keys.
var denyList = map[string]struct{}{
	SystemProgram:           {},
	ComputeBudgetProgram:    {},
	TokenProgram:            {},
	Token2022Program:        {},
	AssociatedTokenProgram:  {},
	MemoProgram:             {},
	VoteProgram:             {},
	SysvarRent:              {},
	SysvarClock:             {},
	MetaplexMetadataProgram: {},
	RaydiumAMMV4:            {},
	RaydiumCLMM:             {},
	OrcaWhirlpool:           {},
	PumpFun:                 {},
	JupiterV6:               {},
	WSOL:                    {},
	USDC:                    {},
	USDT:                    {},
}

// IsDenied reports whether the address is a known system/program/bluechip
// address that cannot be a candidate mint.
func IsDenied(addr string) bool {
	_, ok := denyList[addr]
	return ok
}

// DefaultQuoteMints is the quote-side allowlist for new pools.
func DefaultQuoteMints() []string {
	return []string{USDC, USDT, WSOL}
}
