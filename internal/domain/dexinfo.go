package domain

import (
	"strconv"
	"strings"
)

// Status is the outcome class of a provider fetch.
type Status string

const (
	StatusOK       Status = "ok"
	StatusPending  Status = "pending"
	StatusNotFound Status = "not_found"
	StatusError    Status = "error"
)

// IsTerminal reports whether the status ends the fallback chain.
// Only ok is terminal; pending, not_found and error all fall through.
func (s Status) IsTerminal() bool {
	return s == StatusOK
}

// Standardized metadata keys. Every provider normalizes its own schema
// into this namespace; consumers never touch provider-specific fields.
const (
	KeyPriceUSD        = "price_usd"
	KeyLiquidityUSD    = "liquidity_usd"
	KeyVolume24hUSD    = "volume_24h_usd"
	KeyFDV             = "fdv"
	KeyMarketCap       = "market_cap"
	KeyHolders         = "holders"
	KeyBuyers30m       = "buyers_30m"
	KeyTrades24h       = "trades_24h"
	KeyLastTradeMin    = "last_trade_minutes"
	KeyPairCreatedAt   = "pair_created_at" // epoch milliseconds
	KeyPriceChange     = "price_change"    // submap m5/h1/h6/h24
	KeySupply          = "supply"
	KeyDecimals        = "decimals"
	KeyBaseSymbol      = "base_symbol"
	KeyResolvedSymbol  = "resolved_symbol"
	KeyTokenName       = "token_name"
	KeyLogoURI         = "logo_uri"
	KeySocialLinks     = "social_links"
	KeyATHUSD          = "ath_usd"
	KeyATHChangePct    = "ath_change_pct"
	KeyTop5HolderPct   = "top5_holder_pct"
	KeyFreshHolderPct  = "fresh_holder_pct"
	KeyCoingeckoScore  = "coingecko_score"
	KeyCoingeckoSymbol = "coingecko_symbol"
	KeyJupiterRoute    = "jupiter_route"
	KeySourcesOK       = "sources_ok" // []string of providers that answered ok
)

// DexInfo is the producer-agnostic result of one provider fetch, or of
// the merged fallback chain.
type DexInfo struct {
	Status      Status
	DexName     string
	PairAddress string
	AltPairs    []string
	Reason      string
	Metadata    map[string]any
}

// NewDexInfo returns a DexInfo with an allocated metadata map.
func NewDexInfo(status Status) *DexInfo {
	return &DexInfo{Status: status, Metadata: make(map[string]any)}
}

// Set stores a metadata value, allocating the map when needed.
func (d *DexInfo) Set(key string, value any) {
	if d.Metadata == nil {
		d.Metadata = make(map[string]any)
	}
	d.Metadata[key] = value
}

// Float returns the metadata value under key coerced to float64.
// The second return is false when the key is absent or not numeric.
func (d *DexInfo) Float(key string) (float64, bool) {
	if d == nil || d.Metadata == nil {
		return 0, false
	}
	return CoerceFloat(d.Metadata[key])
}

// Int returns the metadata value under key coerced to int64.
func (d *DexInfo) Int(key string) (int64, bool) {
	f, ok := d.Float(key)
	if !ok {
		return 0, false
	}
	return int64(f), true
}

// String returns the metadata value under key when it is a non-empty string.
func (d *DexInfo) String(key string) (string, bool) {
	if d == nil || d.Metadata == nil {
		return "", false
	}
	s, ok := d.Metadata[key].(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// PriceChange returns the price_change submap with float values.
// Accepts both map[string]float64 and map[string]any encodings.
func (d *DexInfo) PriceChange() map[string]float64 {
	out := make(map[string]float64)
	if d == nil || d.Metadata == nil {
		return out
	}
	switch m := d.Metadata[KeyPriceChange].(type) {
	case map[string]float64:
		for k, v := range m {
			out[k] = v
		}
	case map[string]any:
		for k, v := range m {
			if f, ok := CoerceFloat(v); ok {
				out[k] = f
			}
		}
	}
	return out
}

// HasLiquiditySignal reports whether the result carries at least one of
// the key market metrics. An ok result without either is insufficient
// and the fallback chain keeps going.
func (d *DexInfo) HasLiquiditySignal() bool {
	if _, ok := d.Float(KeyLiquidityUSD); ok {
		return true
	}
	_, ok := d.Float(KeyVolume24hUSD)
	return ok
}

// Merge copies metadata entries from other that are absent locally.
// Existing values always win; enrichment is strictly additive.
func (d *DexInfo) Merge(other *DexInfo) {
	if other == nil || other.Metadata == nil {
		return
	}
	if d.Metadata == nil {
		d.Metadata = make(map[string]any)
	}
	for k, v := range other.Metadata {
		if _, exists := d.Metadata[k]; !exists {
			d.Metadata[k] = v
		}
	}
}

// CoerceFloat converts heterogeneous provider payload values to float64.
// Numeric strings are parsed after stripping separators; anything else
// reports absent. Failure is deterministic: (0, false), never a panic.
func CoerceFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case string:
		s := strings.TrimSpace(strings.ReplaceAll(n, ",", ""))
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
