package publish

import (
	"strings"
	"testing"
	"time"

	"github.com/dexlab-run/mintscan/internal/domain"
)

func TestFormatAlert_NewToken(t *testing.T) {
	info := domain.NewDexInfo(domain.StatusOK)
	info.PairAddress = "PairAddr111"
	info.Set(domain.KeyPriceUSD, 0.00012345)
	info.Set(domain.KeyFDV, 2_500_000.0)
	info.Set(domain.KeyVolume24hUSD, 1500.0)
	info.Set(domain.KeyLiquidityUSD, 2500.0)
	info.Set(domain.KeyBuyers30m, 12)
	info.Set(domain.KeyPairCreatedAt, time.Now().Add(-10*time.Minute).UnixMilli())
	info.Set(domain.KeySourcesOK, []string{"dexscreener", "coingecko"})

	sum := &domain.Summary{
		Mint:     "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU",
		Symbol:   "AAA",
		Source:   domain.SourceHeliusLogs,
		Market:   info,
		Decision: domain.DecisionPublish,
		Score:    69,
	}

	msg := FormatAlert(sum, false)

	for _, want := range []string{
		"🆕 *New token*",
		"*AAA*",
		"7xKXtg2C...uJosgAsU",
		"$0.000123",
		"FDV: $2.50M",
		"Vol 24h: $1.5K",
		"LP: $2.5K",
		"Buyers 30m: 12",
		"Confluence: dexscreener, coingecko",
		"Score: 69",
		"dexscreener.com/solana/PairAddr111",
		"solscan.io/token/7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("alert missing %q:\n%s", want, msg)
		}
	}
}

func TestFormatAlert_UpdateHeader(t *testing.T) {
	sum := &domain.Summary{Mint: "MintX", Symbol: "BBB", Source: domain.SourceRaydium, Score: 42}
	msg := FormatAlert(sum, true)
	if !strings.Contains(msg, "🔄 *Token update*") {
		t.Errorf("alert should use the update header:\n%s", msg)
	}
}

func TestFormatAlert_PlaceholderFallsBackToMintSymbol(t *testing.T) {
	sum := &domain.Summary{Mint: "MintABCDEF", Source: domain.SourcePumpFun, Score: 30}
	msg := FormatAlert(sum, false)
	if !strings.Contains(msg, "TOKEN\\_MintAB") {
		t.Errorf("alert should show the escaped placeholder symbol:\n%s", msg)
	}
}

func TestFormatSymbolUpdate(t *testing.T) {
	msg := FormatSymbolUpdate("7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU",
		domain.ResolvedSymbol{Symbol: "FOO", Confidence: 0.95})
	for _, want := range []string{"Symbol resolved", "*FOO*", "95%", "7xKXtg2C...uJosgAsU"} {
		if !strings.Contains(msg, want) {
			t.Errorf("update missing %q:\n%s", want, msg)
		}
	}
}

func TestFormatConfluenceUpdate(t *testing.T) {
	msg := FormatConfluenceUpdate("7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU",
		[]string{"birdeye", "coingecko"})
	for _, want := range []string{"Confluence update", "birdeye, coingecko", "7xKXtg2C...uJosgAsU"} {
		if !strings.Contains(msg, want) {
			t.Errorf("notice missing %q:\n%s", want, msg)
		}
	}
}

func TestFormatPrice(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{12.3456, "12.35"},
		{0.5, "0.5000"},
		{0.004, "0.004000"},
		{0.00001234, "0.00001234"},
	}
	for _, tc := range cases {
		if got := formatPrice(tc.in); got != tc.want {
			t.Errorf("formatPrice(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFormatCompact(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{999, "999"},
		{2_500, "2.5K"},
		{2_500_000, "2.50M"},
		{3_200_000_000, "3.20B"},
	}
	for _, tc := range cases {
		if got := formatCompact(tc.in); got != tc.want {
			t.Errorf("formatCompact(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestShortMint(t *testing.T) {
	if got := shortMint("short"); got != "short" {
		t.Errorf("short mints pass through, got %q", got)
	}
	long := "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU"
	if got := shortMint(long); got != "7xKXtg2C...uJosgAsU" {
		t.Errorf("shortMint = %q", got)
	}
}

func TestEscapeMarkdown(t *testing.T) {
	if got := escapeMarkdown("a_b*c[d`e"); got != "a\\_b\\*c\\[d\\`e" {
		t.Errorf("escapeMarkdown = %q", got)
	}
}
