package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/dexlab-run/mintscan/internal/discovery"
	"github.com/dexlab-run/mintscan/internal/domain"
)

const (
	jupiterName            = "jupiter"
	defaultJupiterQuoteURL = "https://quote-api.jup.ag"
	defaultJupiterTokenURL = "https://tokens.jup.ag"

	// jupiterQuoteAmount is the raw exact-in amount quoted against
	// wSOL. Small enough to route on thin pools.
	jupiterQuoteAmount = 1_000_000
)

// JupiterOptions configures the Jupiter port.
type JupiterOptions struct {
	// QuoteBaseURL overrides the quote API host, mainly for tests.
	QuoteBaseURL string
	// TokenBaseURL overrides the token list host, mainly for tests.
	TokenBaseURL string
	// HTTPClient defaults to a 10 s timeout client.
	HTTPClient *http.Client
	// Limiter defaults to 10 requests/second.
	Limiter *rate.Limiter
}

// Jupiter answers one question: does the aggregator route this mint?
// A routable mint is a strong tradability signal but carries no
// liquidity or volume figures, so the fallback chain keeps going after
// a Jupiter hit.
type Jupiter struct {
	quoteBaseURL string
	tokenBaseURL string
	client       *http.Client
	limiter      *rate.Limiter
}

// NewJupiter builds the Jupiter port.
func NewJupiter(opts JupiterOptions) *Jupiter {
	quoteURL := opts.QuoteBaseURL
	if quoteURL == "" {
		quoteURL = defaultJupiterQuoteURL
	}
	tokenURL := opts.TokenBaseURL
	if tokenURL == "" {
		tokenURL = defaultJupiterTokenURL
	}
	client := opts.HTTPClient
	if client == nil {
		client = newHTTPClient(10 * time.Second)
	}
	limiter := opts.Limiter
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Every(100*time.Millisecond), 2)
	}
	return &Jupiter{
		quoteBaseURL: quoteURL,
		tokenBaseURL: tokenURL,
		client:       client,
		limiter:      limiter,
	}
}

// Name implements Port.
func (j *Jupiter) Name() string { return jupiterName }

type jupiterSwapInfo struct {
	AmmKey string `json:"ammKey"`
	Label  string `json:"label"`
}

type jupiterRouteStep struct {
	SwapInfo jupiterSwapInfo `json:"swapInfo"`
	Percent  int             `json:"percent"`
}

type jupiterQuoteResponse struct {
	InputMint      string             `json:"inputMint"`
	OutAmount      string             `json:"outAmount"`
	PriceImpactPct string             `json:"priceImpactPct"`
	RoutePlan      []jupiterRouteStep `json:"routePlan"`
}

// Fetch implements Port with an exact-in quote to wSOL. No route or a
// TOKEN_NOT_TRADABLE error means not_found.
func (j *Jupiter) Fetch(ctx context.Context, mint string) (*domain.DexInfo, error) {
	var quote jupiterQuoteResponse
	endpoint := fmt.Sprintf("%s/v6/quote?inputMint=%s&outputMint=%s&amount=%d&swapMode=ExactIn&slippageBps=50",
		j.quoteBaseURL, url.QueryEscape(mint), discovery.WSOL, jupiterQuoteAmount)
	if err := getJSON(ctx, j.client, j.limiter, endpoint, nil, &quote); err != nil {
		if strings.Contains(statusBody(err), "TOKEN_NOT_TRADABLE") {
			info := domain.NewDexInfo(domain.StatusNotFound)
			info.Reason = "jupiter_not_tradable"
			return info, nil
		}
		if isNotFoundStatus(err) {
			info := domain.NewDexInfo(domain.StatusNotFound)
			info.Reason = "jupiter_no_route"
			return info, nil
		}
		return nil, err
	}
	if len(quote.RoutePlan) == 0 {
		info := domain.NewDexInfo(domain.StatusNotFound)
		info.Reason = "jupiter_no_route"
		return info, nil
	}

	info := domain.NewDexInfo(domain.StatusOK)
	info.DexName = jupiterName
	first := quote.RoutePlan[0].SwapInfo
	if first.AmmKey != "" {
		info.PairAddress = first.AmmKey
	}
	if first.Label != "" {
		info.DexName = strings.ToLower(first.Label)
	}
	info.Set(domain.KeyJupiterRoute, true)
	return info, nil
}

type jupiterToken struct {
	Address string   `json:"address"`
	Symbol  string   `json:"symbol"`
	Name    string   `json:"name"`
	Tags    []string `json:"tags"`
}

// ResolveSymbol implements SymbolSource from the token list. Verified
// list entries resolve at 0.85, unverified at 0.6.
func (j *Jupiter) ResolveSymbol(ctx context.Context, mint string) (string, float64, error) {
	var tok jupiterToken
	endpoint := fmt.Sprintf("%s/token/%s", j.tokenBaseURL, url.PathEscape(mint))
	if err := getJSON(ctx, j.client, j.limiter, endpoint, nil, &tok); err != nil {
		if isNotFoundStatus(err) {
			return "", 0, nil
		}
		return "", 0, err
	}
	if tok.Symbol == "" {
		return "", 0, nil
	}
	for _, tag := range tok.Tags {
		switch strings.ToLower(tag) {
		case "verified", "strict", "community":
			return tok.Symbol, 0.85, nil
		}
	}
	return tok.Symbol, 0.6, nil
}

var (
	_ Port         = (*Jupiter)(nil)
	_ SymbolSource = (*Jupiter)(nil)
)
