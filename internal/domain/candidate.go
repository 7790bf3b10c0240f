package domain

import "time"

// Candidate is a queue item: a mint observed by one of the producers,
// waiting for one qualification pass.
type Candidate struct {
	Mint       string // base58 mint address, primary key
	Signature  string // discovery transaction signature (optional)
	SymbolHint string // symbol reported by the producer (optional)
	Source     Source
	ReceivedAt time.Time // producer-local monotonic receive time
}

// PlaceholderSymbol builds the synthetic symbol used before an
// authoritative one is resolved: TOKEN_<first 6 of mint>.
func PlaceholderSymbol(mint string) string {
	if len(mint) < 6 {
		return "TOKEN_" + mint
	}
	return "TOKEN_" + mint[:6]
}

// IsPlaceholderSymbol reports whether sym looks like a synthetic
// placeholder rather than a resolved ticker.
func IsPlaceholderSymbol(sym string) bool {
	if sym == "" {
		return true
	}
	if len(sym) >= 6 && sym[:6] == "TOKEN_" {
		return true
	}
	return false
}
