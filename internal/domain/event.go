package domain

import "time"

// DexSnapshot is the flattened market block of an event record.
type DexSnapshot struct {
	PrimaryPairID string             `json:"primaryPairId,omitempty"`
	DexID         string             `json:"dexId,omitempty"`
	LiquidityUSD  *float64           `json:"liq_usd,omitempty"`
	VolumeH24     *float64           `json:"vol_h24,omitempty"`
	Util          *float64           `json:"util,omitempty"`
	PriceUSD      *float64           `json:"price_usd,omitempty"`
	FDV           *float64           `json:"fdv,omitempty"`
	AgeMin        *float64           `json:"age_min,omitempty"`
	PriceChange   map[string]float64 `json:"priceChange,omitempty"`
	Buyers30m     *int64             `json:"buyers30m,omitempty"`
}

// EventRecord is one line of the append-only event and reject files,
// and one row of the relational archive.
type EventRecord struct {
	TS        time.Time   `json:"ts"`
	Mint      string      `json:"mint"`
	Program   string      `json:"program"`
	Symbol    string      `json:"symbol"`
	Decimals  *int64      `json:"decimals,omitempty"`
	Dex       DexSnapshot `json:"dex"`
	Score     float64     `json:"score"`
	Decision  Decision    `json:"decision"`
	Notes     []string    `json:"notes,omitempty"`
	DexReason string      `json:"dex_reason,omitempty"`
	Retry     bool        `json:"retry,omitempty"`
}

// NewEventRecord flattens a summary into the archival shape.
func NewEventRecord(s *Summary) EventRecord {
	rec := EventRecord{
		TS:       s.EvaluatedAt,
		Mint:     s.Mint,
		Program:  s.Source.String(),
		Symbol:   s.Symbol,
		Score:    s.Score,
		Decision: s.Decision,
		Notes:    s.Notes,
		Retry:    s.Retry,
	}
	if rec.TS.IsZero() {
		rec.TS = time.Now()
	}
	if s.Decision == DecisionDrop {
		rec.DexReason = s.DexReason
	}

	info := s.Market
	if info == nil {
		return rec
	}
	if d, ok := info.Int(KeyDecimals); ok {
		rec.Decimals = &d
	}
	rec.Dex = DexSnapshot{
		PrimaryPairID: info.PairAddress,
		DexID:         info.DexName,
		LiquidityUSD:  floatPtr(info, KeyLiquidityUSD),
		VolumeH24:     floatPtr(info, KeyVolume24hUSD),
		PriceUSD:      floatPtr(info, KeyPriceUSD),
		FDV:           floatPtr(info, KeyFDV),
	}
	if liq := rec.Dex.LiquidityUSD; liq != nil && *liq > 0 {
		if vol := rec.Dex.VolumeH24; vol != nil {
			util := *vol / *liq
			rec.Dex.Util = &util
		}
	}
	if createdMs, ok := info.Float(KeyPairCreatedAt); ok && createdMs > 0 {
		age := rec.TS.Sub(time.UnixMilli(int64(createdMs))).Minutes()
		if age < 0 {
			age = 0
		}
		rec.Dex.AgeMin = &age
	}
	if pc := info.PriceChange(); len(pc) > 0 {
		rec.Dex.PriceChange = pc
	}
	if b, ok := info.Int(KeyBuyers30m); ok {
		rec.Dex.Buyers30m = &b
	}
	return rec
}

func floatPtr(info *DexInfo, key string) *float64 {
	f, ok := info.Float(key)
	if !ok {
		return nil
	}
	return &f
}
