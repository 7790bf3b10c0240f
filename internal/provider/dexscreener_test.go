package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/time/rate"

	"github.com/dexlab-run/mintscan/internal/domain"
)

const testMint = "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU"

func newDexScreenerServer(t *testing.T, tokensBody, searchBody string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/latest/dex/tokens/"+testMint:
			w.Write([]byte(tokensBody))
		case r.URL.Path == "/latest/dex/search":
			w.Write([]byte(searchBody))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testDexScreener(srv *httptest.Server) *DexScreener {
	return NewDexScreener(DexScreenerOptions{
		BaseURL: srv.URL,
		Limiter: rate.NewLimiter(rate.Inf, 1),
	})
}

func TestDexScreener_FetchPicksDeepestPair(t *testing.T) {
	body := `{"pairs":[
		{"chainId":"solana","dexId":"orca","pairAddress":"shallow",
		 "baseToken":{"address":"` + testMint + `","symbol":"AAA","name":"Token A"},
		 "priceUsd":"0.8","liquidity":{"usd":500},
		 "txns":{"m5":{"buys":3,"sells":1},"h24":{"buys":20,"sells":10}},
		 "volume":{"h24":1500},"pairCreatedAt":1756100000000},
		{"chainId":"solana","dexId":"raydium","pairAddress":"deep",
		 "baseToken":{"address":"` + testMint + `","symbol":"AAA","name":"Token A"},
		 "priceUsd":"0.8","liquidity":{"usd":2500},
		 "txns":{"m5":{"buys":5,"sells":2},"h24":{"buys":20,"sells":10}},
		 "volume":{"h24":1500},"priceChange":{"m5":6,"h1":15},"pairCreatedAt":1756100000000},
		{"chainId":"ethereum","dexId":"uniswap","pairAddress":"wrongchain",
		 "baseToken":{"address":"` + testMint + `","symbol":"AAA"},
		 "liquidity":{"usd":99999},"txns":{"m5":{"buys":9,"sells":9}}}
	]}`
	d := testDexScreener(newDexScreenerServer(t, body, `{"pairs":[]}`))

	info, err := d.Fetch(context.Background(), testMint)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if info.Status != domain.StatusOK {
		t.Fatalf("status = %s, want ok (%s)", info.Status, info.Reason)
	}
	if info.PairAddress != "deep" || info.DexName != "raydium" {
		t.Errorf("pair = %s/%s, want raydium/deep", info.DexName, info.PairAddress)
	}
	if len(info.AltPairs) != 1 || info.AltPairs[0] != "shallow" {
		t.Errorf("alt pairs = %v, want [shallow]", info.AltPairs)
	}
	if liq, _ := info.Float(domain.KeyLiquidityUSD); liq != 2500 {
		t.Errorf("liquidity = %v, want 2500", liq)
	}
	if price, _ := info.Float(domain.KeyPriceUSD); price != 0.8 {
		t.Errorf("price = %v, want 0.8", price)
	}
	if trades, _ := info.Int(domain.KeyTrades24h); trades != 30 {
		t.Errorf("trades = %d, want 30", trades)
	}
	if sym, _ := info.String(domain.KeyBaseSymbol); sym != "AAA" {
		t.Errorf("base symbol = %q, want AAA", sym)
	}
	pc := info.PriceChange()
	if pc["m5"] != 6 || pc["h1"] != 15 {
		t.Errorf("price change = %v", pc)
	}
	if created, _ := info.Float(domain.KeyPairCreatedAt); created != 1756100000000 {
		t.Errorf("pair_created_at = %v", created)
	}
}

func TestDexScreener_LowActivityIsNotFound(t *testing.T) {
	body := `{"pairs":[
		{"chainId":"solana","dexId":"raydium","pairAddress":"p",
		 "baseToken":{"address":"` + testMint + `","symbol":"ZZZ"},
		 "liquidity":{"usd":4000},
		 "txns":{"m5":{"buys":0,"sells":2},"h24":{"buys":5,"sells":5}}}
	]}`
	d := testDexScreener(newDexScreenerServer(t, body, `{"pairs":[]}`))

	info, err := d.Fetch(context.Background(), testMint)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if info.Status != domain.StatusNotFound || info.Reason != "dexscreener_low_activity" {
		t.Errorf("status=%s reason=%q, want not_found/dexscreener_low_activity", info.Status, info.Reason)
	}
}

func TestDexScreener_NoPairsFallsToSearchThenNotFound(t *testing.T) {
	d := testDexScreener(newDexScreenerServer(t, `{"pairs":[]}`, `{"pairs":[]}`))

	info, err := d.Fetch(context.Background(), testMint)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if info.Status != domain.StatusNotFound || info.Reason != "dexscreener_no_pairs" {
		t.Errorf("status=%s reason=%q, want not_found/dexscreener_no_pairs", info.Status, info.Reason)
	}
}

func TestDexScreener_SearchBackfillsEmptyTokenLookup(t *testing.T) {
	searchBody := `{"pairs":[
		{"chainId":"solana","dexId":"raydium","pairAddress":"viaSearch",
		 "baseToken":{"address":"` + testMint + `","symbol":"BBB"},
		 "liquidity":{"usd":3000},
		 "txns":{"m5":{"buys":4,"sells":1}},"volume":{"h24":900}}
	]}`
	d := testDexScreener(newDexScreenerServer(t, `{"pairs":[]}`, searchBody))

	info, err := d.Fetch(context.Background(), testMint)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if info.Status != domain.StatusOK || info.PairAddress != "viaSearch" {
		t.Errorf("status=%s pair=%s, want ok/viaSearch", info.Status, info.PairAddress)
	}
}

func TestDexScreener_ServerErrorPropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream broken", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)
	d := testDexScreener(srv)

	if _, err := d.Fetch(context.Background(), testMint); err == nil {
		t.Error("5xx should surface as an error for the breaker")
	}
}

func TestDexScreener_ResolveSymbol(t *testing.T) {
	body := `{"pairs":[
		{"chainId":"solana","dexId":"raydium","pairAddress":"p",
		 "baseToken":{"address":"` + testMint + `","symbol":"AAA"},
		 "liquidity":{"usd":2500},"txns":{"m5":{"buys":5,"sells":2}}}
	]}`
	d := testDexScreener(newDexScreenerServer(t, body, `{"pairs":[]}`))

	sym, conf, err := d.ResolveSymbol(context.Background(), testMint)
	if err != nil {
		t.Fatalf("ResolveSymbol: %v", err)
	}
	if sym != "AAA" || conf != 0.8 {
		t.Errorf("resolved %q @ %v, want AAA @ 0.8", sym, conf)
	}
}
