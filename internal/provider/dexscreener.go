package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/dexlab-run/mintscan/internal/domain"
)

const (
	dexscreenerName           = "dexscreener"
	defaultDexScreenerBaseURL = "https://api.dexscreener.com"
	dexscreenerChainID        = "solana"
)

// DexScreenerOptions configures the DexScreener port.
type DexScreenerOptions struct {
	// BaseURL overrides the public API host, mainly for tests.
	BaseURL string
	// HTTPClient defaults to a 10 s timeout client.
	HTTPClient *http.Client
	// Limiter defaults to the documented 60 requests/minute.
	Limiter *rate.Limiter
}

// DexScreener serves pair-level market data. No API key required.
type DexScreener struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

// NewDexScreener builds the DexScreener port.
func NewDexScreener(opts DexScreenerOptions) *DexScreener {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultDexScreenerBaseURL
	}
	client := opts.HTTPClient
	if client == nil {
		client = newHTTPClient(10 * time.Second)
	}
	limiter := opts.Limiter
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Every(time.Minute/60), 1)
	}
	return &DexScreener{baseURL: baseURL, client: client, limiter: limiter}
}

// Name implements Port.
func (d *DexScreener) Name() string { return dexscreenerName }

type dexscreenerResponse struct {
	Pairs []dexscreenerPair `json:"pairs"`
}

type dexscreenerToken struct {
	Address string `json:"address"`
	Symbol  string `json:"symbol"`
	Name    string `json:"name"`
}

type dexscreenerTxns struct {
	Buys  int `json:"buys"`
	Sells int `json:"sells"`
}

type dexscreenerLiquidity struct {
	USD float64 `json:"usd"`
}

type dexscreenerPair struct {
	ChainID       string                     `json:"chainId"`
	DexID         string                     `json:"dexId"`
	PairAddress   string                     `json:"pairAddress"`
	BaseToken     dexscreenerToken           `json:"baseToken"`
	PriceUSD      string                     `json:"priceUsd"`
	Txns          map[string]dexscreenerTxns `json:"txns"`
	Volume        map[string]float64         `json:"volume"`
	PriceChange   map[string]float64         `json:"priceChange"`
	Liquidity     dexscreenerLiquidity       `json:"liquidity"`
	FDV           float64                    `json:"fdv"`
	MarketCap     float64                    `json:"marketCap"`
	PairCreatedAt int64                      `json:"pairCreatedAt"` // epoch ms
}

// Fetch implements Port. Tries /tokens/{mint} first, then /search, and
// keeps the Solana pair with the deepest liquidity. Pairs with no
// five-minute trading signs are reported as not_found so the fallback
// chain moves on.
func (d *DexScreener) Fetch(ctx context.Context, mint string) (*domain.DexInfo, error) {
	pairs, err := d.tokenPairs(ctx, mint)
	if err != nil {
		return nil, err
	}
	if len(pairs) == 0 {
		pairs, err = d.searchPairs(ctx, mint)
		if err != nil {
			return nil, err
		}
	}
	matches := filterSolanaPairs(pairs, mint)
	if len(matches) == 0 {
		info := domain.NewDexInfo(domain.StatusNotFound)
		info.Reason = "dexscreener_no_pairs"
		return info, nil
	}

	best := matches[0]
	for _, p := range matches[1:] {
		if p.Liquidity.USD > best.Liquidity.USD {
			best = p
		}
	}

	m5 := best.Txns["m5"]
	if m5.Buys+m5.Sells <= 0 || m5.Buys <= 0 {
		info := domain.NewDexInfo(domain.StatusNotFound)
		info.Reason = "dexscreener_low_activity"
		return info, nil
	}

	info := domain.NewDexInfo(domain.StatusOK)
	info.DexName = best.DexID
	info.PairAddress = best.PairAddress
	for _, p := range matches {
		if p.PairAddress != best.PairAddress {
			info.AltPairs = append(info.AltPairs, p.PairAddress)
		}
	}

	if price, err := strconv.ParseFloat(best.PriceUSD, 64); err == nil && price > 0 {
		info.Set(domain.KeyPriceUSD, price)
	}
	info.Set(domain.KeyLiquidityUSD, best.Liquidity.USD)
	info.Set(domain.KeyVolume24hUSD, best.Volume["h24"])
	if best.FDV > 0 {
		info.Set(domain.KeyFDV, best.FDV)
	}
	if best.MarketCap > 0 {
		info.Set(domain.KeyMarketCap, best.MarketCap)
	}
	h24 := best.Txns["h24"]
	if trades := h24.Buys + h24.Sells; trades > 0 {
		info.Set(domain.KeyTrades24h, trades)
	}
	if best.BaseToken.Symbol != "" {
		info.Set(domain.KeyBaseSymbol, best.BaseToken.Symbol)
	}
	if best.BaseToken.Name != "" {
		info.Set(domain.KeyTokenName, best.BaseToken.Name)
	}
	if best.PairCreatedAt > 0 {
		info.Set(domain.KeyPairCreatedAt, best.PairCreatedAt)
	}
	if len(best.PriceChange) > 0 {
		info.Set(domain.KeyPriceChange, best.PriceChange)
	}
	return info, nil
}

func (d *DexScreener) tokenPairs(ctx context.Context, mint string) ([]dexscreenerPair, error) {
	var resp dexscreenerResponse
	endpoint := fmt.Sprintf("%s/latest/dex/tokens/%s", d.baseURL, url.PathEscape(mint))
	if err := getJSON(ctx, d.client, d.limiter, endpoint, nil, &resp); err != nil {
		if isNotFoundStatus(err) {
			return nil, nil
		}
		return nil, err
	}
	return resp.Pairs, nil
}

func (d *DexScreener) searchPairs(ctx context.Context, mint string) ([]dexscreenerPair, error) {
	var resp dexscreenerResponse
	endpoint := fmt.Sprintf("%s/latest/dex/search?q=%s", d.baseURL, url.QueryEscape(mint))
	if err := getJSON(ctx, d.client, d.limiter, endpoint, nil, &resp); err != nil {
		if isNotFoundStatus(err) {
			return nil, nil
		}
		return nil, err
	}
	return resp.Pairs, nil
}

func filterSolanaPairs(pairs []dexscreenerPair, mint string) []dexscreenerPair {
	var out []dexscreenerPair
	for _, p := range pairs {
		if p.ChainID != dexscreenerChainID {
			continue
		}
		if p.BaseToken.Address != mint {
			continue
		}
		out = append(out, p)
	}
	return out
}

// ResolveSymbol implements SymbolSource from the deepest pair's base
// token.
func (d *DexScreener) ResolveSymbol(ctx context.Context, mint string) (string, float64, error) {
	pairs, err := d.tokenPairs(ctx, mint)
	if err != nil {
		return "", 0, err
	}
	matches := filterSolanaPairs(pairs, mint)
	if len(matches) == 0 {
		return "", 0, nil
	}
	best := matches[0]
	for _, p := range matches[1:] {
		if p.Liquidity.USD > best.Liquidity.USD {
			best = p
		}
	}
	if best.BaseToken.Symbol == "" {
		return "", 0, nil
	}
	return best.BaseToken.Symbol, 0.8, nil
}

var (
	_ Port         = (*DexScreener)(nil)
	_ SymbolSource = (*DexScreener)(nil)
)
