package pipeline

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/dexlab-run/mintscan/internal/config"
)

// Janitor periodically evicts stale liquidity history, expired
// blacklist entries and old resolved symbols so long-running processes
// stay flat on memory.
type Janitor struct {
	cfg         config.Janitor
	rug         *RugDetector
	symbols     *SymbolResolver
	log         zerolog.Logger
	onSweep     func(history, blacklisted, resolved int)
	resolvedTTL time.Duration
}

// NewJanitor builds the janitor. onSweep receives post-sweep structure
// sizes and may be nil.
func NewJanitor(cfg config.Janitor, rug *RugDetector, symbols *SymbolResolver, onSweep func(history, blacklisted, resolved int), logger zerolog.Logger) *Janitor {
	return &Janitor{
		cfg:         cfg,
		rug:         rug,
		symbols:     symbols,
		log:         logger.With().Str("component", "memory_janitor").Logger(),
		onSweep:     onSweep,
		resolvedTTL: 24 * time.Hour,
	}
}

// Run sweeps on the configured interval until the context is cancelled.
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.Sweep()
		}
	}
}

// Sweep runs one eviction pass and logs what was removed.
func (j *Janitor) Sweep() {
	historyEvicted := j.rug.EvictHistory(j.cfg.LiquidityHistoryTTL)
	blacklistEvicted := j.rug.EvictBlacklist()
	resolvedEvicted := 0
	if j.symbols != nil {
		resolvedEvicted = j.symbols.EvictResolved(j.resolvedTTL)
	}

	history, blacklisted := j.rug.Sizes()
	resolved := 0
	if j.symbols != nil {
		resolved, _ = j.symbols.Sizes()
	}

	if historyEvicted > 0 || blacklistEvicted > 0 || resolvedEvicted > 0 {
		j.log.Info().
			Int("history_evicted", historyEvicted).
			Int("blacklist_evicted", blacklistEvicted).
			Int("resolved_evicted", resolvedEvicted).
			Int("history_size", history).
			Int("blacklist_size", blacklisted).
			Msg("memory sweep")
	}

	if j.onSweep != nil {
		j.onSweep(history, blacklisted, resolved)
	}
}
