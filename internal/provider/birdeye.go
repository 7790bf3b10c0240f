package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/dexlab-run/mintscan/internal/discovery"
	"github.com/dexlab-run/mintscan/internal/domain"
)

const (
	birdeyeName           = "birdeye"
	defaultBirdeyeBaseURL = "https://public-api.birdeye.so"
)

// BirdeyeOptions configures the Birdeye port.
type BirdeyeOptions struct {
	// APIKey is sent as X-API-KEY. Required by the API.
	APIKey string
	// BaseURL overrides the public API host, mainly for tests.
	BaseURL string
	// HTTPClient defaults to a 10 s timeout client.
	HTTPClient *http.Client
	// Limiter defaults to 1 request/second.
	Limiter *rate.Limiter
}

// Birdeye serves token overviews, market listings and the lookback
// sweep lists. Primary provider in the fallback order.
type Birdeye struct {
	apiKey  string
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

// NewBirdeye builds the Birdeye port.
func NewBirdeye(opts BirdeyeOptions) *Birdeye {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultBirdeyeBaseURL
	}
	client := opts.HTTPClient
	if client == nil {
		client = newHTTPClient(10 * time.Second)
	}
	limiter := opts.Limiter
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Every(time.Second), 2)
	}
	return &Birdeye{
		apiKey:  opts.APIKey,
		baseURL: baseURL,
		client:  client,
		limiter: limiter,
	}
}

// Name implements Port.
func (b *Birdeye) Name() string { return birdeyeName }

type birdeyeOverviewResponse struct {
	Success bool             `json:"success"`
	Data    *birdeyeOverview `json:"data"`
}

type birdeyeOverview struct {
	Symbol                string  `json:"symbol"`
	Name                  string  `json:"name"`
	Decimals              int     `json:"decimals"`
	Price                 float64 `json:"price"`
	Liquidity             float64 `json:"liquidity"`
	Volume24hUSD          float64 `json:"v24hUSD"`
	MarketCap             float64 `json:"mc"`
	FDV                   float64 `json:"fdv"`
	Supply                float64 `json:"supply"`
	Holder                int     `json:"holder"`
	Trade24h              int     `json:"trade24h"`
	UniqueWallet30m       int     `json:"uniqueWallet30m"`
	LastTradeUnixTime     int64   `json:"lastTradeUnixTime"`
	PriceChange1hPercent  float64 `json:"priceChange1hPercent"`
	PriceChange6hPercent  float64 `json:"priceChange6hPercent"`
	PriceChange24hPercent float64 `json:"priceChange24hPercent"`
	LogoURI               string  `json:"logoURI"`
}

type birdeyeMarketsResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Items []birdeyeMarket `json:"items"`
	} `json:"data"`
}

type birdeyeMarket struct {
	Address   string  `json:"address"`
	Source    string  `json:"source"`
	Liquidity float64 `json:"liquidity"`
	CreatedAt string  `json:"createdAt"`
}

// Fetch implements Port using the token_overview endpoint, picking the
// highest-liquidity market for the pair address.
func (b *Birdeye) Fetch(ctx context.Context, mint string) (*domain.DexInfo, error) {
	var resp birdeyeOverviewResponse
	endpoint := fmt.Sprintf("%s/defi/token_overview?address=%s", b.baseURL, url.QueryEscape(mint))
	if err := getJSON(ctx, b.client, b.limiter, endpoint, b.headers(), &resp); err != nil {
		if isNotFoundStatus(err) {
			info := domain.NewDexInfo(domain.StatusNotFound)
			info.Reason = "birdeye_no_token"
			return info, nil
		}
		return nil, err
	}
	if !resp.Success || resp.Data == nil {
		info := domain.NewDexInfo(domain.StatusNotFound)
		info.Reason = "birdeye_no_token"
		return info, nil
	}

	ov := resp.Data
	info := domain.NewDexInfo(domain.StatusOK)
	info.DexName = birdeyeName
	info.Set(domain.KeyPriceUSD, ov.Price)
	info.Set(domain.KeyLiquidityUSD, ov.Liquidity)
	info.Set(domain.KeyVolume24hUSD, ov.Volume24hUSD)
	if ov.FDV > 0 {
		info.Set(domain.KeyFDV, ov.FDV)
	}
	if ov.MarketCap > 0 {
		info.Set(domain.KeyMarketCap, ov.MarketCap)
	}
	if ov.Supply > 0 {
		info.Set(domain.KeySupply, ov.Supply)
	}
	if ov.Holder > 0 {
		info.Set(domain.KeyHolders, ov.Holder)
	}
	if ov.Trade24h > 0 {
		info.Set(domain.KeyTrades24h, ov.Trade24h)
	}
	if ov.UniqueWallet30m > 0 {
		info.Set(domain.KeyBuyers30m, ov.UniqueWallet30m)
	}
	if ov.Symbol != "" {
		info.Set(domain.KeyBaseSymbol, ov.Symbol)
	}
	if ov.Name != "" {
		info.Set(domain.KeyTokenName, ov.Name)
	}
	if ov.Decimals > 0 {
		info.Set(domain.KeyDecimals, ov.Decimals)
	}
	if ov.LogoURI != "" {
		info.Set(domain.KeyLogoURI, ov.LogoURI)
	}
	if ov.LastTradeUnixTime > 0 {
		mins := time.Since(time.Unix(ov.LastTradeUnixTime, 0)).Minutes()
		if mins < 0 {
			mins = 0
		}
		info.Set(domain.KeyLastTradeMin, mins)
	}
	info.Set(domain.KeyPriceChange, map[string]float64{
		"h1":  ov.PriceChange1hPercent,
		"h6":  ov.PriceChange6hPercent,
		"h24": ov.PriceChange24hPercent,
	})

	b.attachMarkets(ctx, mint, info)
	return info, nil
}

// attachMarkets is best effort: overview data stands on its own when
// the markets endpoint misbehaves.
func (b *Birdeye) attachMarkets(ctx context.Context, mint string, info *domain.DexInfo) {
	var resp birdeyeMarketsResponse
	endpoint := fmt.Sprintf("%s/defi/v2/markets?address=%s&sort_by=liquidity&sort_type=desc&offset=0&limit=10",
		b.baseURL, url.QueryEscape(mint))
	if err := getJSON(ctx, b.client, b.limiter, endpoint, b.headers(), &resp); err != nil {
		return
	}
	if !resp.Success || len(resp.Data.Items) == 0 {
		return
	}
	top := resp.Data.Items[0]
	info.PairAddress = top.Address
	if top.Source != "" {
		info.DexName = top.Source
	}
	for _, it := range resp.Data.Items[1:] {
		info.AltPairs = append(info.AltPairs, it.Address)
	}
	if top.CreatedAt != "" {
		if ts, err := time.Parse(time.RFC3339, top.CreatedAt); err == nil {
			info.Set(domain.KeyPairCreatedAt, ts.UnixMilli())
		}
	}
}

type birdeyeListResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Items  []birdeyeListItem `json:"items"`
		Tokens []birdeyeListItem `json:"tokens"`
	} `json:"data"`
}

type birdeyeListItem struct {
	Address          string `json:"address"`
	Symbol           string `json:"symbol"`
	Name             string `json:"name"`
	LiquidityAddedAt string `json:"liquidityAddedAt"`
}

// NewListings implements discovery.ListingSource via the new_listing
// endpoint.
func (b *Birdeye) NewListings(ctx context.Context, limit int) ([]discovery.Listing, error) {
	var resp birdeyeListResponse
	endpoint := fmt.Sprintf("%s/defi/v2/tokens/new_listing?limit=%d", b.baseURL, limit)
	if err := getJSON(ctx, b.client, b.limiter, endpoint, b.headers(), &resp); err != nil {
		return nil, fmt.Errorf("birdeye new listings: %w", err)
	}
	return birdeyeListings(resp), nil
}

// Trending implements discovery.ListingSource via the token_trending
// endpoint. Trending rows carry no creation time.
func (b *Birdeye) Trending(ctx context.Context, limit int) ([]discovery.Listing, error) {
	var resp birdeyeListResponse
	endpoint := fmt.Sprintf("%s/defi/token_trending?sort_by=rank&sort_type=asc&offset=0&limit=%d", b.baseURL, limit)
	if err := getJSON(ctx, b.client, b.limiter, endpoint, b.headers(), &resp); err != nil {
		return nil, fmt.Errorf("birdeye trending: %w", err)
	}
	return birdeyeListings(resp), nil
}

func birdeyeListings(resp birdeyeListResponse) []discovery.Listing {
	items := resp.Data.Items
	if len(items) == 0 {
		items = resp.Data.Tokens
	}
	out := make([]discovery.Listing, 0, len(items))
	for _, it := range items {
		if it.Address == "" {
			continue
		}
		l := discovery.Listing{Mint: it.Address, Symbol: it.Symbol}
		if it.LiquidityAddedAt != "" {
			if ts, err := time.Parse(time.RFC3339, it.LiquidityAddedAt); err == nil {
				l.CreatedAt = ts
			}
		}
		out = append(out, l)
	}
	return out
}

// Buyers30m implements BuyersSource from the overview wallet counter.
func (b *Birdeye) Buyers30m(ctx context.Context, mint string) (int, error) {
	var resp birdeyeOverviewResponse
	endpoint := fmt.Sprintf("%s/defi/token_overview?address=%s", b.baseURL, url.QueryEscape(mint))
	if err := getJSON(ctx, b.client, b.limiter, endpoint, b.headers(), &resp); err != nil {
		return 0, err
	}
	if !resp.Success || resp.Data == nil {
		return 0, fmt.Errorf("birdeye: no overview for %s", mint)
	}
	return resp.Data.UniqueWallet30m, nil
}

// ResolveSymbol implements SymbolSource with the lowest confidence in
// the resolver chain.
func (b *Birdeye) ResolveSymbol(ctx context.Context, mint string) (string, float64, error) {
	var resp birdeyeOverviewResponse
	endpoint := fmt.Sprintf("%s/defi/token_overview?address=%s", b.baseURL, url.QueryEscape(mint))
	if err := getJSON(ctx, b.client, b.limiter, endpoint, b.headers(), &resp); err != nil {
		return "", 0, err
	}
	if !resp.Success || resp.Data == nil || resp.Data.Symbol == "" {
		return "", 0, nil
	}
	return resp.Data.Symbol, 0.7, nil
}

func (b *Birdeye) headers() map[string]string {
	h := map[string]string{"x-chain": "solana"}
	if b.apiKey != "" {
		h["X-API-KEY"] = b.apiKey
	}
	return h
}

var (
	_ Port                    = (*Birdeye)(nil)
	_ SymbolSource            = (*Birdeye)(nil)
	_ BuyersSource            = (*Birdeye)(nil)
	_ discovery.ListingSource = (*Birdeye)(nil)
)
