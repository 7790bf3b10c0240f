package discovery

import "testing"

func TestMatchPoolEvent(t *testing.T) {
	cases := []struct {
		name   string
		logs   []string
		marker string
		want   bool
	}{
		{"initialize_pool", []string{"Program log: Instruction: InitializePool"}, "initializepool", true},
		{"snake_case_add_liquidity", []string{"Program log: instruction: add_liquidity"}, "addliquidity", true},
		{"create_pool", []string{"Program log: CreatePool v4"}, "createpool", true},
		{"deposit", []string{"Program log: Instruction: Deposit"}, "deposit", true},
		{"swap_only", []string{"Program log: Instruction: Swap"}, "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			marker, ok := MatchPoolEvent(tc.logs)
			if ok != tc.want || marker != tc.marker {
				t.Errorf("got (%q, %v), want (%q, %v)", marker, ok, tc.marker, tc.want)
			}
		})
	}
}

func TestExtractBaseQuote(t *testing.T) {
	quotes := QuoteSet(DefaultQuoteMints())

	logs := []string{
		"Program " + RaydiumAMMV4 + " invoke [1]",
		"Program log: init pool " + freshMint + " " + WSOL,
	}
	base, quote, ok := ExtractBaseQuote(logs, quotes)
	if !ok {
		t.Fatal("expected a base/quote pair")
	}
	if base != freshMint || quote != WSOL {
		t.Errorf("pair = %s / %s, want %s / %s", base, quote, freshMint, WSOL)
	}
}

func TestExtractBaseQuote_MissingQuote(t *testing.T) {
	quotes := QuoteSet(DefaultQuoteMints())
	_, _, ok := ExtractBaseQuote([]string{"Program log: " + freshMint}, quotes)
	if ok {
		t.Error("base without a quote mint should not match")
	}
}

func TestExtractBaseQuote_ProgramsNeverBase(t *testing.T) {
	quotes := QuoteSet(DefaultQuoteMints())
	logs := []string{"Program log: " + RaydiumAMMV4 + " " + USDC}
	if _, _, ok := ExtractBaseQuote(logs, quotes); ok {
		t.Error("a denied program address must not become the base")
	}
}

func TestEstimateFromReserves(t *testing.T) {
	price, liq, ok := EstimateFromReserves([]string{
		"Program log: pool reserves: 1000 2000",
	})
	if !ok {
		t.Fatal("expected an estimate")
	}
	if price != 2 || liq != 4000 {
		t.Errorf("price=%v liq=%v, want 2 / 4000", price, liq)
	}
}

func TestEstimateFromReserves_NoSignal(t *testing.T) {
	cases := []struct {
		name string
		logs []string
	}{
		{"no_reserve_line", []string{"Program log: swap 1000 2000"}},
		{"single_number", []string{"Program log: reserve: 1000"}},
		{"zero_reserve", []string{"Program log: reserves: 0 2000"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, _, ok := EstimateFromReserves(tc.logs); ok {
				t.Error("expected no estimate")
			}
		})
	}
}
