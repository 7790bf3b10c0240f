package pipeline

import (
	"testing"
	"time"
)

func newTestDetector(t *testing.T) (*RugDetector, *time.Time) {
	t.Helper()
	d := NewRugDetector(RugConfig{
		Window:       300 * time.Second,
		DropRatio:    0.4,
		BlacklistTTL: 24 * time.Hour,
	})
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return now }
	return d, &now
}

func TestRugDetector_LiquidityCollapseTripsAlert(t *testing.T) {
	d, now := newTestDetector(t)
	mint := "rug-mint"

	if d.Check(mint, 10_000) {
		t.Fatal("first observation should not trip")
	}
	*now = now.Add(60 * time.Second)
	if d.Check(mint, 9_500) {
		t.Fatal("mild decline should not trip")
	}

	// 10k -> 3.5k inside the window is below 40% surviving.
	*now = now.Add(60 * time.Second)
	if !d.Check(mint, 3_500) {
		t.Fatal("collapse to 35% should trip the alert")
	}
	if !d.IsBlacklisted(mint) {
		t.Error("rugged mint should be blacklisted")
	}
	until := d.BlacklistedUntil(mint)
	if until == nil {
		t.Fatal("BlacklistedUntil should be set")
	}
	if got, want := *until, now.Add(24*time.Hour); !got.Equal(want) {
		t.Errorf("blacklist expiry = %v, want %v", got, want)
	}
}

func TestRugDetector_BoundaryIsInclusive(t *testing.T) {
	d, now := newTestDetector(t)
	mint := "edge-mint"

	d.Check(mint, 10_000)
	*now = now.Add(30 * time.Second)

	// Exactly 40% surviving liquidity counts as a rug.
	if !d.Check(mint, 4_000) {
		t.Error("exactly dropRatio*max should trip the alert")
	}
}

func TestRugDetector_JustAboveBoundaryPasses(t *testing.T) {
	d, now := newTestDetector(t)
	mint := "ok-mint"

	d.Check(mint, 10_000)
	*now = now.Add(30 * time.Second)

	if d.Check(mint, 4_001) {
		t.Error("just above the boundary should not trip")
	}
}

func TestRugDetector_OldPointsLeaveTheWindow(t *testing.T) {
	d, now := newTestDetector(t)
	mint := "slow-mint"

	d.Check(mint, 10_000)

	// The peak ages out of the 300 s window, so the later low reading
	// is compared against recent history only.
	*now = now.Add(301 * time.Second)
	d.Check(mint, 3_000)
	*now = now.Add(10 * time.Second)
	if d.Check(mint, 2_900) {
		t.Error("gradual decline across windows should not trip")
	}
}

func TestRugDetector_ZeroAndEmptyInputsIgnored(t *testing.T) {
	d, _ := newTestDetector(t)
	if d.Check("", 100) {
		t.Error("empty mint should be ignored")
	}
	if d.Check("m", 0) {
		t.Error("zero liquidity without history should be ignored")
	}
	if d.Check("m", -5) {
		t.Error("negative liquidity should be ignored")
	}
	history, _ := d.Sizes()
	if history != 0 {
		t.Errorf("history size = %d, ignored inputs should not be recorded", history)
	}
}

func TestRugDetector_DrainToZeroTrips(t *testing.T) {
	d, now := newTestDetector(t)
	mint := "drained-mint"

	if d.Check(mint, 10_000) {
		t.Fatal("first observation should not trip")
	}

	// A reported 0 after real history is a full withdrawal, the most
	// extreme case of the inclusive boundary.
	*now = now.Add(60 * time.Second)
	if !d.Check(mint, 0) {
		t.Fatal("drain to zero should trip the alert")
	}
	if !d.IsBlacklisted(mint) {
		t.Error("drained mint should be blacklisted")
	}
}

func TestRugDetector_EvictHistory(t *testing.T) {
	d, now := newTestDetector(t)
	d.Check("stale", 5_000)
	*now = now.Add(2 * time.Hour)
	d.Check("fresh", 5_000)

	evicted := d.EvictHistory(time.Hour)
	if evicted != 1 {
		t.Errorf("evicted = %d, want 1", evicted)
	}
	history, _ := d.Sizes()
	if history != 1 {
		t.Errorf("history size = %d, want 1", history)
	}
}

func TestRugDetector_EvictBlacklist(t *testing.T) {
	d, now := newTestDetector(t)
	d.Check("m", 10_000)
	*now = now.Add(time.Second)
	d.Check("m", 1_000) // trips, blacklists for 24 h

	if n := d.EvictBlacklist(); n != 0 {
		t.Errorf("evicted before expiry = %d, want 0", n)
	}

	*now = now.Add(25 * time.Hour)
	if n := d.EvictBlacklist(); n != 1 {
		t.Errorf("evicted after expiry = %d, want 1", n)
	}
	if d.IsBlacklisted("m") {
		t.Error("mint should no longer be blacklisted")
	}
}
