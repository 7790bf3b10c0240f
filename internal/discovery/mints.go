package discovery

import (
	"strings"

	"github.com/mr-tron/base58"
)

// Mint initialization markers emitted by the SPL Token program.
// "InitializeMint" also matches the InitializeMint2 variant.
const initializeMintMarker = "InitializeMint"

// HasMintInitialization reports whether the log lines contain an SPL
// InitializeMint or InitializeMint2 instruction.
func HasMintInitialization(logs []string) bool {
	for _, line := range logs {
		if strings.Contains(line, initializeMintMarker) {
			return true
		}
	}
	return false
}

// IsLikelyMint applies the base58 heuristic for a Solana public key:
// plausible encoded length and an exact 32-byte decode. Known program,
// sysvar, and bluechip addresses are rejected.
func IsLikelyMint(addr string) bool {
	return isAddressToken(addr) && !IsDenied(addr)
}

// isAddressToken checks only the base58 shape: length 32..44 and a
// 32-byte decode. It accepts denied addresses, which the pool watcher
// needs to spot quote mints.
func isAddressToken(addr string) bool {
	if len(addr) < 32 || len(addr) > 44 {
		return false
	}
	raw, err := base58.Decode(addr)
	if err != nil {
		return false
	}
	return len(raw) == 32
}

// ExtractMintFromLogs scans log lines around a mint initialization for
// the first token that passes the mint heuristic. Helius log payloads
// interleave program invocations with instruction data, so every
// whitespace-separated token is considered. Returns "" when nothing
// plausible is found, in which case the caller falls back to the
// transaction fetch.
func ExtractMintFromLogs(logs []string) string {
	for _, line := range logs {
		if !strings.Contains(line, initializeMintMarker) {
			continue
		}
		if mint := firstMintToken(line); mint != "" {
			return mint
		}
	}
	// The mint often rides on an adjacent line rather than the marker
	// line itself.
	seen := false
	for _, line := range logs {
		if strings.Contains(line, initializeMintMarker) {
			seen = true
			continue
		}
		if !seen {
			continue
		}
		if mint := firstMintToken(line); mint != "" {
			return mint
		}
	}
	return ""
}

// tokenCutset strips the punctuation log lines wrap addresses in.
const tokenCutset = ",:;()[]{}\"'"

func firstMintToken(line string) string {
	for _, tok := range strings.Fields(line) {
		tok = strings.Trim(tok, tokenCutset)
		if IsLikelyMint(tok) {
			return tok
		}
	}
	return ""
}
