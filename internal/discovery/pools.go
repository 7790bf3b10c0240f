package discovery

import (
	"strconv"
	"strings"
)

// poolEventMarkers are the lowercase instruction fragments that mark a
// pool creation or liquidity add. Matching runs against log text with
// underscores removed, so snake_case program logs match too.
var poolEventMarkers = []string{"initializepool", "createpool", "addliquidity", "deposit"}

// MatchPoolEvent reports whether the log burst looks like a pool
// creation or liquidity event, and which marker matched first.
func MatchPoolEvent(logs []string) (string, bool) {
	text := strings.ToLower(strings.Join(logs, "\n"))
	text = strings.ReplaceAll(text, "_", "")
	for _, marker := range poolEventMarkers {
		if strings.Contains(text, marker) {
			return marker, true
		}
	}
	return "", false
}

// ExtractBaseQuote partitions the address-shaped tokens in the logs
// into a base candidate and a quote mint. Quote mints come from the
// allowlist; every other denied address (programs, sysvars) is skipped.
// The first hit on each side wins.
func ExtractBaseQuote(logs []string, quotes map[string]struct{}) (base, quote string, ok bool) {
	seen := make(map[string]struct{})
	for _, line := range logs {
		for _, tok := range strings.Fields(line) {
			tok = strings.Trim(tok, tokenCutset)
			if !isAddressToken(tok) {
				continue
			}
			if _, dup := seen[tok]; dup {
				continue
			}
			seen[tok] = struct{}{}
			if _, isQuote := quotes[tok]; isQuote {
				if quote == "" {
					quote = tok
				}
				continue
			}
			if IsDenied(tok) {
				continue
			}
			if base == "" {
				base = tok
			}
		}
	}
	return base, quote, base != "" && quote != ""
}

// EstimateFromReserves derives a rough price and liquidity hint from a
// "reserve" log line carrying two numeric tokens: base reserve first,
// quote reserve second. Price is quote/base and liquidity assumes a
// balanced pool (twice the quote side). Best effort only; qualification
// always re-fetches real market data.
func EstimateFromReserves(logs []string) (price, liquidity float64, ok bool) {
	for _, line := range logs {
		if !strings.Contains(strings.ToLower(line), "reserve") {
			continue
		}
		nums := numericTokens(line, 2)
		if len(nums) < 2 {
			continue
		}
		baseRes, quoteRes := nums[0], nums[1]
		if baseRes <= 0 || quoteRes <= 0 {
			continue
		}
		return quoteRes / baseRes, 2 * quoteRes, true
	}
	return 0, 0, false
}

// numericTokens collects up to max whole-token numbers from a line.
// Whole tokens only, so digits inside base58 addresses never count.
func numericTokens(line string, max int) []float64 {
	out := make([]float64, 0, max)
	for _, tok := range strings.Fields(line) {
		tok = strings.Trim(tok, tokenCutset)
		tok = strings.ReplaceAll(tok, ",", "")
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			continue
		}
		out = append(out, v)
		if len(out) == max {
			break
		}
	}
	return out
}

// QuoteSet builds the lookup table the pool watcher partitions with.
func QuoteSet(mints []string) map[string]struct{} {
	set := make(map[string]struct{}, len(mints))
	for _, m := range mints {
		set[m] = struct{}{}
	}
	return set
}
