package pipeline

import (
	"sync"
	"time"

	"github.com/dexlab-run/mintscan/internal/domain"
)

// RugConfig tunes the liquidity-drop detector.
type RugConfig struct {
	// Window is the rolling history span. Defaults to 300 s.
	Window time.Duration
	// DropRatio is the surviving-liquidity fraction at or below which a
	// rug is flagged. Defaults to 0.4.
	DropRatio float64
	// BlacklistTTL is how long a rugged mint stays undeliverable.
	// Defaults to 24 h.
	BlacklistTTL time.Duration
}

// RugDetector keeps a rolling liquidity history per mint and blacklists
// mints whose liquidity collapses inside the window. It is the sole
// owner of both structures; everything else reads through accessors.
type RugDetector struct {
	window       time.Duration
	dropRatio    float64
	blacklistTTL time.Duration
	now          func() time.Time

	mu        sync.Mutex
	history   map[string][]domain.LiquidityPoint
	blacklist map[string]time.Time
}

// NewRugDetector builds the detector with defaults for zero fields.
func NewRugDetector(cfg RugConfig) *RugDetector {
	if cfg.Window <= 0 {
		cfg.Window = 300 * time.Second
	}
	if cfg.DropRatio <= 0 || cfg.DropRatio >= 1 {
		cfg.DropRatio = 0.4
	}
	if cfg.BlacklistTTL <= 0 {
		cfg.BlacklistTTL = 24 * time.Hour
	}
	return &RugDetector{
		window:       cfg.Window,
		dropRatio:    cfg.DropRatio,
		blacklistTTL: cfg.BlacklistTTL,
		now:          time.Now,
		history:      make(map[string][]domain.LiquidityPoint),
		blacklist:    make(map[string]time.Time),
	}
}

// Check records one liquidity observation and reports whether the mint
// just tripped the rug alert. Liquidity at or below dropRatio of the
// window maximum counts as a rug (boundary inclusive); the mint is
// blacklisted on first trip. A reported value of exactly 0 counts as a
// full drain when the mint already has history; with no prior
// observations a 0 is indistinguishable from missing provider data and
// is ignored.
func (d *RugDetector) Check(mint string, liquidityUSD float64) bool {
	if mint == "" || liquidityUSD < 0 {
		return false
	}
	now := d.now()

	d.mu.Lock()
	defer d.mu.Unlock()

	points := d.history[mint]
	if liquidityUSD == 0 && len(points) == 0 {
		return false
	}
	cutoff := now.Add(-d.window)
	kept := points[:0]
	for _, p := range points {
		if p.Timestamp.After(cutoff) {
			kept = append(kept, p)
		}
	}
	kept = append(kept, domain.LiquidityPoint{Timestamp: now, LiquidityUSD: liquidityUSD})
	d.history[mint] = kept

	maxLiq := 0.0
	for _, p := range kept {
		if p.LiquidityUSD > maxLiq {
			maxLiq = p.LiquidityUSD
		}
	}
	if maxLiq <= 0 || liquidityUSD > d.dropRatio*maxLiq {
		return false
	}

	if expiry, ok := d.blacklist[mint]; !ok || now.After(expiry) {
		d.blacklist[mint] = now.Add(d.blacklistTTL)
	}
	return true
}

// IsBlacklisted reports whether the mint is inside its blacklist
// window.
func (d *RugDetector) IsBlacklisted(mint string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	expiry, ok := d.blacklist[mint]
	return ok && d.now().Before(expiry)
}

// BlacklistedUntil returns the expiry for a blacklisted mint, or nil.
func (d *RugDetector) BlacklistedUntil(mint string) *time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	expiry, ok := d.blacklist[mint]
	if !ok || !d.now().Before(expiry) {
		return nil
	}
	return &expiry
}

// EvictHistory removes mints whose newest observation is older than
// ttl. Returns the number of mints evicted.
func (d *RugDetector) EvictHistory(ttl time.Duration) int {
	cutoff := d.now().Add(-ttl)

	d.mu.Lock()
	defer d.mu.Unlock()

	evicted := 0
	for mint, points := range d.history {
		if len(points) == 0 || points[len(points)-1].Timestamp.Before(cutoff) {
			delete(d.history, mint)
			evicted++
		}
	}
	return evicted
}

// EvictBlacklist removes expired blacklist entries. Returns the number
// removed.
func (d *RugDetector) EvictBlacklist() int {
	now := d.now()

	d.mu.Lock()
	defer d.mu.Unlock()

	evicted := 0
	for mint, expiry := range d.blacklist {
		if !now.Before(expiry) {
			delete(d.blacklist, mint)
			evicted++
		}
	}
	return evicted
}

// Sizes reports structure sizes for the janitor gauges and the health
// endpoint.
func (d *RugDetector) Sizes() (history, blacklisted int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.history), len(d.blacklist)
}
