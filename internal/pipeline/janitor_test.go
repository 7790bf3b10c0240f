package pipeline

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/dexlab-run/mintscan/internal/config"
	"github.com/dexlab-run/mintscan/internal/domain"
)

func TestJanitor_SweepEvictsEverything(t *testing.T) {
	rug, now := newTestDetector(t)
	rug.Check("stale", 5_000)
	rug.Check("rugged", 10_000)
	*now = now.Add(time.Second)
	rug.Check("rugged", 1_000) // blacklists

	symbols := NewSymbolResolver(config.Symbols{Schedule: []time.Duration{time.Hour}, MinConfidence: 0.7}, nil, nil, zerolog.Nop())
	defer symbols.Stop()
	symbols.mu.Lock()
	symbols.resolved["old"] = domain.ResolvedSymbol{Symbol: "OLD", ResolvedAt: time.Now().Add(-25 * time.Hour)}
	symbols.resolved["new"] = domain.ResolvedSymbol{Symbol: "NEW", ResolvedAt: time.Now()}
	symbols.mu.Unlock()

	var gotHistory, gotBlacklisted, gotResolved int
	j := NewJanitor(config.Janitor{
		Interval:            time.Hour,
		LiquidityHistoryTTL: time.Hour,
	}, rug, symbols, func(history, blacklisted, resolved int) {
		gotHistory, gotBlacklisted, gotResolved = history, blacklisted, resolved
	}, zerolog.Nop())

	// Age everything past the history TTL and the blacklist expiry.
	*now = now.Add(26 * time.Hour)
	j.Sweep()

	if gotHistory != 0 {
		t.Errorf("history size after sweep = %d, want 0", gotHistory)
	}
	if gotBlacklisted != 0 {
		t.Errorf("blacklist size after sweep = %d, want 0", gotBlacklisted)
	}
	if gotResolved != 1 {
		t.Errorf("resolved size after sweep = %d, want 1", gotResolved)
	}
}

func TestJanitor_SweepWithoutResolver(t *testing.T) {
	rug, _ := newTestDetector(t)
	called := false
	j := NewJanitor(config.Janitor{
		Interval:            time.Hour,
		LiquidityHistoryTTL: time.Hour,
	}, rug, nil, func(_, _, _ int) { called = true }, zerolog.Nop())

	j.Sweep()
	if !called {
		t.Error("onSweep should fire even with no resolver attached")
	}
}
