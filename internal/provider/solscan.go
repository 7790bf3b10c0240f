package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/dexlab-run/mintscan/internal/domain"
)

const (
	solscanName           = "solscan"
	defaultSolscanBaseURL = "https://pro-api.solscan.io"
)

// SolscanOptions configures the Solscan port.
type SolscanOptions struct {
	// APIKey is sent as the token header.
	APIKey string
	// BaseURL overrides the API host, mainly for tests.
	BaseURL string
	// HTTPClient defaults to a 10 s timeout client.
	HTTPClient *http.Client
	// Limiter defaults to 2 requests/second.
	Limiter *rate.Limiter
}

// Solscan is the last resort of the chain: it only confirms that basic
// mint metadata exists on chain explorers.
type Solscan struct {
	apiKey  string
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

// NewSolscan builds the Solscan port.
func NewSolscan(opts SolscanOptions) *Solscan {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultSolscanBaseURL
	}
	client := opts.HTTPClient
	if client == nil {
		client = newHTTPClient(10 * time.Second)
	}
	limiter := opts.Limiter
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Every(500*time.Millisecond), 2)
	}
	return &Solscan{
		apiKey:  opts.APIKey,
		baseURL: baseURL,
		client:  client,
		limiter: limiter,
	}
}

// Name implements Port.
func (s *Solscan) Name() string { return solscanName }

type solscanMetaResponse struct {
	Success bool         `json:"success"`
	Data    *solscanMeta `json:"data"`
}

type solscanMeta struct {
	Address   string  `json:"address"`
	Symbol    string  `json:"symbol"`
	Name      string  `json:"name"`
	Icon      string  `json:"icon"`
	Decimals  int     `json:"decimals"`
	Holder    int     `json:"holder"`
	Supply    string  `json:"supply"`
	Price     float64 `json:"price"`
	MarketCap float64 `json:"market_cap"`
}

// Fetch implements Port via the token meta endpoint.
func (s *Solscan) Fetch(ctx context.Context, mint string) (*domain.DexInfo, error) {
	var resp solscanMetaResponse
	endpoint := fmt.Sprintf("%s/v2.0/token/meta?address=%s", s.baseURL, url.QueryEscape(mint))
	if err := getJSON(ctx, s.client, s.limiter, endpoint, s.headers(), &resp); err != nil {
		if isNotFoundStatus(err) {
			info := domain.NewDexInfo(domain.StatusNotFound)
			info.Reason = "solscan_no_token"
			return info, nil
		}
		return nil, err
	}
	if !resp.Success || resp.Data == nil || resp.Data.Address == "" {
		info := domain.NewDexInfo(domain.StatusNotFound)
		info.Reason = "solscan_no_token"
		return info, nil
	}

	meta := resp.Data
	info := domain.NewDexInfo(domain.StatusOK)
	info.DexName = solscanName
	if meta.Symbol != "" {
		info.Set(domain.KeyBaseSymbol, meta.Symbol)
	}
	if meta.Name != "" {
		info.Set(domain.KeyTokenName, meta.Name)
	}
	if meta.Icon != "" {
		info.Set(domain.KeyLogoURI, meta.Icon)
	}
	if meta.Decimals > 0 {
		info.Set(domain.KeyDecimals, meta.Decimals)
	}
	if meta.Holder > 0 {
		info.Set(domain.KeyHolders, meta.Holder)
	}
	if supply, ok := domain.CoerceFloat(meta.Supply); ok && supply > 0 {
		info.Set(domain.KeySupply, supply)
	}
	if meta.Price > 0 {
		info.Set(domain.KeyPriceUSD, meta.Price)
	}
	if meta.MarketCap > 0 {
		info.Set(domain.KeyMarketCap, meta.MarketCap)
	}
	return info, nil
}

func (s *Solscan) headers() map[string]string {
	if s.apiKey == "" {
		return nil
	}
	return map[string]string{"token": s.apiKey}
}

var _ Port = (*Solscan)(nil)
