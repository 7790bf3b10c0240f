package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/dexlab-run/mintscan/internal/domain"
)

const birdeyeOverviewBody = `{
	"success": true,
	"data": {
		"symbol": "AAA",
		"name": "Alpha",
		"decimals": 9,
		"price": 0.8,
		"liquidity": 2500,
		"v24hUSD": 1500,
		"fdv": 800000,
		"supply": 1000000,
		"holder": 150,
		"trade24h": 30,
		"uniqueWallet30m": 12,
		"lastTradeUnixTime": %LAST_TRADE%,
		"priceChange1hPercent": 15
	}
}`

const birdeyeMarketsBody = `{
	"success": true,
	"data": {
		"items": [
			{"address": "PairDeep", "source": "raydium", "liquidity": 2500, "createdAt": "2026-08-25T11:50:00Z"},
			{"address": "PairShallow", "source": "orca", "liquidity": 100}
		]
	}
}`

func newBirdeyeServer(t *testing.T, overview, markets string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-API-KEY"); got != "test-key" {
			t.Errorf("api key header = %q", got)
		}
		if got := r.Header.Get("x-chain"); got != "solana" {
			t.Errorf("chain header = %q", got)
		}
		switch {
		case strings.HasPrefix(r.URL.Path, "/defi/token_overview"):
			w.Write([]byte(overview))
		case strings.HasPrefix(r.URL.Path, "/defi/v2/markets"):
			w.Write([]byte(markets))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testBirdeye(srv *httptest.Server) *Birdeye {
	return NewBirdeye(BirdeyeOptions{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		Limiter: rate.NewLimiter(rate.Inf, 1),
	})
}

func TestBirdeye_FetchMapsOverviewAndMarkets(t *testing.T) {
	lastTrade := time.Now().Add(-5 * time.Minute).Unix()
	overview := strings.Replace(birdeyeOverviewBody, "%LAST_TRADE%",
		strconv.FormatInt(lastTrade, 10), 1)
	srv := newBirdeyeServer(t, overview, birdeyeMarketsBody)

	info, err := testBirdeye(srv).Fetch(context.Background(), testMint)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if info.Status != domain.StatusOK {
		t.Fatalf("status = %s", info.Status)
	}
	if p, _ := info.Float(domain.KeyPriceUSD); p != 0.8 {
		t.Errorf("price = %v", p)
	}
	if liq, _ := info.Float(domain.KeyLiquidityUSD); liq != 2500 {
		t.Errorf("liquidity = %v", liq)
	}
	if b, _ := info.Int(domain.KeyBuyers30m); b != 12 {
		t.Errorf("buyers = %d", b)
	}
	if sym, _ := info.String(domain.KeyBaseSymbol); sym != "AAA" {
		t.Errorf("base symbol = %q", sym)
	}
	if last, ok := info.Float(domain.KeyLastTradeMin); !ok || last < 4.9 || last > 5.1 {
		t.Errorf("last trade = %v, want ~5 min", last)
	}
	if pc := info.PriceChange(); pc["h1"] != 15 {
		t.Errorf("price change = %v", pc)
	}

	// Markets attach the deepest pair and alternates.
	if info.PairAddress != "PairDeep" || info.DexName != "raydium" {
		t.Errorf("pair = %q dex = %q", info.PairAddress, info.DexName)
	}
	if len(info.AltPairs) != 1 || info.AltPairs[0] != "PairShallow" {
		t.Errorf("alt pairs = %v", info.AltPairs)
	}
	if _, ok := info.Float(domain.KeyPairCreatedAt); !ok {
		t.Error("pair creation time should come from the top market")
	}
}

func TestBirdeye_UnknownTokenIsNotFound(t *testing.T) {
	srv := newBirdeyeServer(t, `{"success": false}`, birdeyeMarketsBody)

	info, err := testBirdeye(srv).Fetch(context.Background(), testMint)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if info.Status != domain.StatusNotFound || info.Reason != "birdeye_no_token" {
		t.Errorf("info = %+v", info)
	}
}

func TestBirdeye_MarketsFailureKeepsOverview(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/defi/token_overview") {
			w.Write([]byte(strings.Replace(birdeyeOverviewBody, "%LAST_TRADE%", "0", 1)))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	info, err := testBirdeye(srv).Fetch(context.Background(), testMint)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if info.Status != domain.StatusOK || info.PairAddress != "" {
		t.Errorf("info = %+v, overview must survive a markets failure", info)
	}
}

func TestBirdeye_NewListings(t *testing.T) {
	body := `{
		"success": true,
		"data": {
			"items": [
				{"address": "` + testMint + `", "symbol": "AAA", "liquidityAddedAt": "2026-08-25T11:30:00Z"},
				{"address": "", "symbol": "skipped"},
				{"address": "MintNoTime", "symbol": "BBB"}
			]
		}
	}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/defi/v2/tokens/new_listing") {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	listings, err := testBirdeye(srv).NewListings(context.Background(), 50)
	if err != nil {
		t.Fatalf("NewListings: %v", err)
	}
	if len(listings) != 2 {
		t.Fatalf("listings = %+v, want empty addresses skipped", listings)
	}
	if listings[0].Mint != testMint || listings[0].Symbol != "AAA" || listings[0].CreatedAt.IsZero() {
		t.Errorf("first listing = %+v", listings[0])
	}
	if !listings[1].CreatedAt.IsZero() {
		t.Errorf("second listing = %+v, want zero creation time", listings[1])
	}
}

func TestBirdeye_TrendingUsesTokensField(t *testing.T) {
	body := `{"success": true, "data": {"tokens": [{"address": "` + testMint + `", "symbol": "AAA"}]}}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/defi/token_trending") {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	listings, err := testBirdeye(srv).Trending(context.Background(), 10)
	if err != nil {
		t.Fatalf("Trending: %v", err)
	}
	if len(listings) != 1 || listings[0].Mint != testMint {
		t.Errorf("listings = %+v", listings)
	}
}

func TestBirdeye_Buyers30m(t *testing.T) {
	srv := newBirdeyeServer(t, strings.Replace(birdeyeOverviewBody, "%LAST_TRADE%", "0", 1), birdeyeMarketsBody)

	buyers, err := testBirdeye(srv).Buyers30m(context.Background(), testMint)
	if err != nil {
		t.Fatalf("Buyers30m: %v", err)
	}
	if buyers != 12 {
		t.Errorf("buyers = %d", buyers)
	}
}
