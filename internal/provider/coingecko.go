package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/dexlab-run/mintscan/internal/domain"
)

const (
	coingeckoName           = "coingecko"
	defaultCoinGeckoBaseURL = "https://api.coingecko.com"
	coingeckoPlatform       = "solana"

	// coingeckoListTTL bounds how often the full coin list is refetched
	// for list-based symbol lookups.
	coingeckoListTTL = time.Hour
)

// CoinGeckoOptions configures the CoinGecko port.
type CoinGeckoOptions struct {
	// APIKey is sent as x-cg-demo-api-key when set.
	APIKey string
	// BaseURL overrides the public API host, mainly for tests.
	BaseURL string
	// HTTPClient defaults to a 10 s timeout client.
	HTTPClient *http.Client
	// Limiter defaults to 30 requests/minute.
	Limiter *rate.Limiter
}

// CoinGecko looks tokens up by contract address on the Solana platform.
// Late in the fallback order, but also the enrichment source that marks
// a candidate CG_verified.
type CoinGecko struct {
	apiKey  string
	baseURL string
	client  *http.Client
	limiter *rate.Limiter

	listMu        sync.Mutex
	listFetchedAt time.Time
	listByMint    map[string]coingeckoListEntry
}

// NewCoinGecko builds the CoinGecko port.
func NewCoinGecko(opts CoinGeckoOptions) *CoinGecko {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultCoinGeckoBaseURL
	}
	client := opts.HTTPClient
	if client == nil {
		client = newHTTPClient(10 * time.Second)
	}
	limiter := opts.Limiter
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Every(2*time.Second), 2)
	}
	return &CoinGecko{
		apiKey:  opts.APIKey,
		baseURL: baseURL,
		client:  client,
		limiter: limiter,
	}
}

// Name implements Port.
func (c *CoinGecko) Name() string { return coingeckoName }

type coingeckoImage struct {
	Small string `json:"small"`
}

type coingeckoLinks struct {
	Homepage                  []string `json:"homepage"`
	TwitterScreenName         string   `json:"twitter_screen_name"`
	TelegramChannelIdentifier string   `json:"telegram_channel_identifier"`
}

type coingeckoMarketData struct {
	CurrentPrice          map[string]float64 `json:"current_price"`
	MarketCap             map[string]float64 `json:"market_cap"`
	FullyDilutedValuation map[string]float64 `json:"fully_diluted_valuation"`
	TotalVolume           map[string]float64 `json:"total_volume"`
	ATH                   map[string]float64 `json:"ath"`
	ATHChangePercentage   map[string]float64 `json:"ath_change_percentage"`
}

type coingeckoCoin struct {
	ID                  string               `json:"id"`
	Symbol              string               `json:"symbol"`
	Name                string               `json:"name"`
	Image               coingeckoImage       `json:"image"`
	Links               *coingeckoLinks      `json:"links"`
	MarketData          *coingeckoMarketData `json:"market_data"`
	CommunityScore      float64              `json:"community_score"`
	LiquidityScore      float64              `json:"liquidity_score"`
	PublicInterestScore float64              `json:"public_interest_score"`
}

// Fetch implements Port via the contract lookup. CoinGecko knows no
// pool liquidity, so an ok here usually reads as partial data.
func (c *CoinGecko) Fetch(ctx context.Context, mint string) (*domain.DexInfo, error) {
	coin, err := c.contract(ctx, mint)
	if err != nil {
		return nil, err
	}
	if coin == nil {
		info := domain.NewDexInfo(domain.StatusNotFound)
		info.Reason = "coingecko_no_contract"
		return info, nil
	}

	info := domain.NewDexInfo(domain.StatusOK)
	info.DexName = coingeckoName
	applyCoinGeckoFields(info, coin)
	return info, nil
}

// Enrich merges CoinGecko fields into an existing result. Returns true
// when CoinGecko confirms an official symbol for the mint.
func (c *CoinGecko) Enrich(ctx context.Context, mint string, info *domain.DexInfo) (bool, error) {
	coin, err := c.contract(ctx, mint)
	if err != nil {
		return false, err
	}
	if coin == nil {
		return false, nil
	}
	applyCoinGeckoFields(info, coin)
	return coin.Symbol != "", nil
}

func applyCoinGeckoFields(info *domain.DexInfo, coin *coingeckoCoin) {
	if coin.Symbol != "" {
		info.Set(domain.KeyCoingeckoSymbol, strings.ToUpper(coin.Symbol))
	}
	if coin.Name != "" {
		info.Set(domain.KeyTokenName, coin.Name)
	}
	if coin.Image.Small != "" {
		info.Set(domain.KeyLogoURI, coin.Image.Small)
	}
	if links := socialLinks(coin.Links); len(links) > 0 {
		info.Set(domain.KeySocialLinks, links)
	}
	if md := coin.MarketData; md != nil {
		if v := md.CurrentPrice["usd"]; v > 0 {
			info.Set(domain.KeyPriceUSD, v)
		}
		if v := md.MarketCap["usd"]; v > 0 {
			info.Set(domain.KeyMarketCap, v)
		}
		if v := md.FullyDilutedValuation["usd"]; v > 0 {
			info.Set(domain.KeyFDV, v)
		}
		if v := md.TotalVolume["usd"]; v > 0 {
			info.Set(domain.KeyVolume24hUSD, v)
		}
		if v := md.ATH["usd"]; v > 0 {
			info.Set(domain.KeyATHUSD, v)
		}
		if v, ok := md.ATHChangePercentage["usd"]; ok && v != 0 {
			info.Set(domain.KeyATHChangePct, v)
		}
	}
	if score := coingeckoComposite(coin); score > 0 {
		info.Set(domain.KeyCoingeckoScore, score)
	}
}

// coingeckoComposite folds the per-axis scores into one 0..100 figure.
func coingeckoComposite(coin *coingeckoCoin) float64 {
	return (coin.LiquidityScore + coin.CommunityScore + coin.PublicInterestScore) / 3
}

func socialLinks(links *coingeckoLinks) map[string]string {
	if links == nil {
		return nil
	}
	out := make(map[string]string)
	for _, h := range links.Homepage {
		if h != "" {
			out["homepage"] = h
			break
		}
	}
	if links.TwitterScreenName != "" {
		out["twitter"] = "https://twitter.com/" + links.TwitterScreenName
	}
	if links.TelegramChannelIdentifier != "" {
		out["telegram"] = "https://t.me/" + links.TelegramChannelIdentifier
	}
	return out
}

// contract returns (nil, nil) when CoinGecko does not know the mint.
func (c *CoinGecko) contract(ctx context.Context, mint string) (*coingeckoCoin, error) {
	var coin coingeckoCoin
	endpoint := fmt.Sprintf("%s/api/v3/coins/%s/contract/%s", c.baseURL, coingeckoPlatform, url.PathEscape(mint))
	if err := getJSON(ctx, c.client, c.limiter, endpoint, c.headers(), &coin); err != nil {
		if isNotFoundStatus(err) {
			return nil, nil
		}
		return nil, err
	}
	if coin.ID == "" {
		return nil, nil
	}
	return &coin, nil
}

type coingeckoListEntry struct {
	ID     string            `json:"id"`
	Symbol string            `json:"symbol"`
	Name   string            `json:"name"`
	Plat   map[string]string `json:"platforms"`
}

// ResolveSymbol implements SymbolSource. A contract hit is the highest
// confidence in the chain; a coin-list hit ranks slightly below it.
func (c *CoinGecko) ResolveSymbol(ctx context.Context, mint string) (string, float64, error) {
	coin, err := c.contract(ctx, mint)
	if err == nil && coin != nil && coin.Symbol != "" {
		return strings.ToUpper(coin.Symbol), 0.95, nil
	}
	if err != nil {
		return "", 0, err
	}

	entry, err := c.listLookup(ctx, mint)
	if err != nil {
		return "", 0, err
	}
	if entry == nil || entry.Symbol == "" {
		return "", 0, nil
	}
	return strings.ToUpper(entry.Symbol), 0.9, nil
}

// listLookup serves mint lookups from a cached copy of the full coin
// list, refreshed at most once per TTL.
func (c *CoinGecko) listLookup(ctx context.Context, mint string) (*coingeckoListEntry, error) {
	c.listMu.Lock()
	defer c.listMu.Unlock()

	if c.listByMint == nil || time.Since(c.listFetchedAt) > coingeckoListTTL {
		var entries []coingeckoListEntry
		endpoint := fmt.Sprintf("%s/api/v3/coins/list?include_platform=true", c.baseURL)
		if err := getJSON(ctx, c.client, c.limiter, endpoint, c.headers(), &entries); err != nil {
			return nil, err
		}
		byMint := make(map[string]coingeckoListEntry, len(entries))
		for _, e := range entries {
			if addr := e.Plat[coingeckoPlatform]; addr != "" {
				byMint[addr] = e
			}
		}
		c.listByMint = byMint
		c.listFetchedAt = time.Now()
	}

	if e, ok := c.listByMint[mint]; ok {
		return &e, nil
	}
	return nil, nil
}

func (c *CoinGecko) headers() map[string]string {
	if c.apiKey == "" {
		return nil
	}
	return map[string]string{"x-cg-demo-api-key": c.apiKey}
}

var (
	_ Port         = (*CoinGecko)(nil)
	_ SymbolSource = (*CoinGecko)(nil)
)
