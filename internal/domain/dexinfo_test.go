package domain

import "testing"

func TestCoerceFloat(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want float64
		ok   bool
	}{
		{"float64", 1.5, 1.5, true},
		{"int", 42, 42, true},
		{"int64", int64(7), 7, true},
		{"numeric_string", "123.45", 123.45, true},
		{"string_with_separators", " 1,234,567 ", 1234567, true},
		{"empty_string", "", 0, false},
		{"garbage_string", "n/a", 0, false},
		{"nil", nil, 0, false},
		{"bool", true, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := CoerceFloat(tc.in)
			if got != tc.want || ok != tc.ok {
				t.Errorf("CoerceFloat(%v) = (%v, %v), want (%v, %v)", tc.in, got, ok, tc.want, tc.ok)
			}
		})
	}
}

func TestDexInfo_MergeIsAdditive(t *testing.T) {
	dst := NewDexInfo(StatusOK)
	dst.Set(KeyPriceUSD, 0.8)
	dst.Set(KeyBaseSymbol, "AAA")

	src := NewDexInfo(StatusOK)
	src.Set(KeyPriceUSD, 99.0)
	src.Set(KeyLiquidityUSD, 2500.0)

	dst.Merge(src)

	if p, _ := dst.Float(KeyPriceUSD); p != 0.8 {
		t.Errorf("price = %v, existing value must win", p)
	}
	if liq, ok := dst.Float(KeyLiquidityUSD); !ok || liq != 2500 {
		t.Errorf("liquidity = %v (%v), want the missing key filled in", liq, ok)
	}
	if s, _ := dst.String(KeyBaseSymbol); s != "AAA" {
		t.Errorf("base symbol = %q", s)
	}
}

func TestDexInfo_MergeNil(t *testing.T) {
	d := &DexInfo{Status: StatusOK}
	d.Merge(nil)
	d.Merge(&DexInfo{})

	other := NewDexInfo(StatusOK)
	other.Set(KeyFDV, 1000.0)
	d.Merge(other)
	if f, ok := d.Float(KeyFDV); !ok || f != 1000 {
		t.Errorf("fdv = %v (%v), merge into a nil map should allocate", f, ok)
	}
}

func TestDexInfo_HasLiquiditySignal(t *testing.T) {
	d := NewDexInfo(StatusOK)
	if d.HasLiquiditySignal() {
		t.Error("empty metadata should not count as a signal")
	}
	d.Set(KeyVolume24hUSD, 100.0)
	if !d.HasLiquiditySignal() {
		t.Error("volume alone is a signal")
	}

	d2 := NewDexInfo(StatusOK)
	d2.Set(KeyLiquidityUSD, "2,500")
	if !d2.HasLiquiditySignal() {
		t.Error("liquidity as a numeric string is a signal")
	}
}

func TestDexInfo_PriceChangeEncodings(t *testing.T) {
	d := NewDexInfo(StatusOK)
	d.Set(KeyPriceChange, map[string]any{"m5": 6.0, "h1": "15", "h6": "n/a"})

	pc := d.PriceChange()
	if pc["m5"] != 6 || pc["h1"] != 15 {
		t.Errorf("price change = %v", pc)
	}
	if _, ok := pc["h6"]; ok {
		t.Error("non-numeric window should be dropped")
	}

	d.Set(KeyPriceChange, map[string]float64{"h24": -3.5})
	if pc := d.PriceChange(); pc["h24"] != -3.5 {
		t.Errorf("price change = %v, want the typed map copied", pc)
	}
}

func TestStatusIsTerminal(t *testing.T) {
	if !StatusOK.IsTerminal() {
		t.Error("ok is terminal")
	}
	for _, s := range []Status{StatusPending, StatusNotFound, StatusError} {
		if s.IsTerminal() {
			t.Errorf("%s must fall through the chain", s)
		}
	}
}
