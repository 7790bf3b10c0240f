package domain

import (
	"testing"
	"time"
)

func TestNewEventRecord_FlattensMarket(t *testing.T) {
	at := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	info := NewDexInfo(StatusOK)
	info.DexName = "raydium"
	info.PairAddress = "Pair111"
	info.Set(KeyPriceUSD, 0.8)
	info.Set(KeyLiquidityUSD, 2500.0)
	info.Set(KeyVolume24hUSD, 1500.0)
	info.Set(KeyFDV, 800000.0)
	info.Set(KeyDecimals, 9)
	info.Set(KeyBuyers30m, 12)
	info.Set(KeyPairCreatedAt, float64(at.Add(-10*time.Minute).UnixMilli()))
	info.Set(KeyPriceChange, map[string]float64{"m5": 6, "h1": 15})

	s := &Summary{
		Mint:        "Mint111",
		Symbol:      "AAA",
		Source:      SourceRaydium,
		Market:      info,
		Decision:    DecisionPublish,
		Score:       69,
		DexStatus:   StatusOK,
		Notes:       []string{"dex_ok"},
		EvaluatedAt: at,
	}

	rec := NewEventRecord(s)
	if rec.TS != at || rec.Mint != "Mint111" || rec.Symbol != "AAA" {
		t.Errorf("record header = %+v", rec)
	}
	if rec.Program != SourceRaydium.String() {
		t.Errorf("program = %q", rec.Program)
	}
	if rec.Decimals == nil || *rec.Decimals != 9 {
		t.Errorf("decimals = %v", rec.Decimals)
	}
	if rec.Dex.PrimaryPairID != "Pair111" || rec.Dex.DexID != "raydium" {
		t.Errorf("dex block = %+v", rec.Dex)
	}
	if rec.Dex.Util == nil || *rec.Dex.Util != 1500.0/2500.0 {
		t.Errorf("util = %v, want vol/liq", rec.Dex.Util)
	}
	if rec.Dex.AgeMin == nil || *rec.Dex.AgeMin < 9.99 || *rec.Dex.AgeMin > 10.01 {
		t.Errorf("age = %v, want ~10 min", rec.Dex.AgeMin)
	}
	if rec.Dex.Buyers30m == nil || *rec.Dex.Buyers30m != 12 {
		t.Errorf("buyers = %v", rec.Dex.Buyers30m)
	}
	if rec.Dex.PriceChange["m5"] != 6 {
		t.Errorf("price change = %v", rec.Dex.PriceChange)
	}
	if rec.DexReason != "" {
		t.Errorf("dex reason = %q, only drops carry it", rec.DexReason)
	}
}

func TestNewEventRecord_DropCarriesReason(t *testing.T) {
	s := &Summary{
		Mint:        "Mint222",
		Decision:    DecisionDrop,
		DexReason:   "stale_pool",
		EvaluatedAt: time.Now(),
	}
	rec := NewEventRecord(s)
	if rec.DexReason != "stale_pool" {
		t.Errorf("dex reason = %q", rec.DexReason)
	}
	if rec.Dex.LiquidityUSD != nil {
		t.Error("no market data, dex block should stay empty")
	}
}

func TestNewEventRecord_UtilNeedsPositiveLiquidity(t *testing.T) {
	info := NewDexInfo(StatusOK)
	info.Set(KeyLiquidityUSD, 0.0)
	info.Set(KeyVolume24hUSD, 500.0)
	rec := NewEventRecord(&Summary{Mint: "m", Market: info, EvaluatedAt: time.Now()})
	if rec.Dex.Util != nil {
		t.Errorf("util = %v, want nil for zero liquidity", rec.Dex.Util)
	}
}

func TestSummaryNotes(t *testing.T) {
	s := &Summary{}
	s.AddNote("dex_ok")
	s.AddNote("dex_ok")
	s.AddNote("")
	s.AddNote("buyers_ok")

	if len(s.Notes) != 2 {
		t.Fatalf("notes = %v, want dedup and empty-tag skip", s.Notes)
	}
	if !s.HasNote("dex_ok") || !s.HasNote("buyers_ok") || s.HasNote("missing") {
		t.Errorf("notes lookup over %v misbehaved", s.Notes)
	}
}
