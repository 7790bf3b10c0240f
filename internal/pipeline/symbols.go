package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dexlab-run/mintscan/internal/config"
	"github.com/dexlab-run/mintscan/internal/domain"
	"github.com/dexlab-run/mintscan/internal/provider"
)

// NamedSymbolSource pairs a resolver capability with the provider name
// used in logs and confidence accounting.
type NamedSymbolSource struct {
	Name   string
	Source provider.SymbolSource
}

// SymbolResolver upgrades placeholder symbols in the background. Each
// enqueued mint gets a fixed attempt schedule; the first source whose
// answer clears the confidence floor wins and later attempts are
// cancelled.
type SymbolResolver struct {
	cfg     config.Symbols
	sources []NamedSymbolSource
	log     zerolog.Logger

	// OnResolved fires once per mint after a successful resolution.
	// Optional; used for updated publish messages.
	onResolved func(ctx context.Context, mint string, rs domain.ResolvedSymbol)

	mu       sync.Mutex
	resolved map[string]domain.ResolvedSymbol
	pending  map[string]*symbolTask
	closed   bool

	wg sync.WaitGroup
}

type symbolTask struct {
	step  int
	timer *time.Timer
}

// NewSymbolResolver builds the resolver. Sources are probed in order,
// so callers list them by descending confidence.
func NewSymbolResolver(cfg config.Symbols, sources []NamedSymbolSource, onResolved func(context.Context, string, domain.ResolvedSymbol), logger zerolog.Logger) *SymbolResolver {
	return &SymbolResolver{
		cfg:        cfg,
		sources:    sources,
		onResolved: onResolved,
		log:        logger.With().Str("component", "symbol_resolver").Logger(),
		resolved:   make(map[string]domain.ResolvedSymbol),
		pending:    make(map[string]*symbolTask),
	}
}

// Enqueue registers a mint for background resolution. Mints already
// resolved or already pending are skipped.
func (r *SymbolResolver) Enqueue(ctx context.Context, mint string) bool {
	if mint == "" || len(r.cfg.Schedule) == 0 {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}
	if _, ok := r.resolved[mint]; ok {
		return false
	}
	if _, ok := r.pending[mint]; ok {
		return false
	}

	task := &symbolTask{}
	task.timer = time.AfterFunc(r.cfg.Schedule[0], func() { r.fire(ctx, mint, 0) })
	r.pending[mint] = task
	return true
}

// Lookup returns the resolved symbol for a mint, if any.
func (r *SymbolResolver) Lookup(mint string) (domain.ResolvedSymbol, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rs, ok := r.resolved[mint]
	return rs, ok
}

func (r *SymbolResolver) fire(ctx context.Context, mint string, step int) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.wg.Add(1)
	r.mu.Unlock()
	defer r.wg.Done()

	if ctx.Err() != nil {
		r.drop(mint)
		return
	}

	if rs, ok := r.tryResolve(ctx, mint); ok {
		r.mu.Lock()
		r.resolved[mint] = rs
		delete(r.pending, mint)
		closed := r.closed
		r.mu.Unlock()

		r.log.Info().Str("mint", mint).Str("symbol", rs.Symbol).
			Float64("confidence", rs.Confidence).Msg("symbol resolved")
		if r.onResolved != nil && !closed {
			r.onResolved(ctx, mint, rs)
		}
		return
	}

	next := step + 1
	if next >= len(r.cfg.Schedule) {
		r.log.Debug().Str("mint", mint).Msg("symbol resolution schedule exhausted")
		r.drop(mint)
		return
	}

	delay := r.cfg.Schedule[next] - r.cfg.Schedule[step]
	if delay <= 0 {
		delay = r.cfg.Schedule[next]
	}
	r.mu.Lock()
	if !r.closed {
		if task, ok := r.pending[mint]; ok {
			task.step = next
			task.timer = time.AfterFunc(delay, func() { r.fire(ctx, mint, next) })
		}
	}
	r.mu.Unlock()
}

// tryResolve probes the sources in order and returns the first answer
// that clears the confidence floor and is not itself a placeholder.
func (r *SymbolResolver) tryResolve(ctx context.Context, mint string) (domain.ResolvedSymbol, bool) {
	for _, s := range r.sources {
		symbol, confidence, err := s.Source.ResolveSymbol(ctx, mint)
		if err != nil {
			r.log.Debug().Err(err).Str("source", s.Name).Str("mint", mint).Msg("symbol source failed")
			continue
		}
		if symbol == "" || domain.IsPlaceholderSymbol(symbol) {
			continue
		}
		if confidence < r.cfg.MinConfidence {
			continue
		}
		return domain.ResolvedSymbol{
			Symbol:     symbol,
			Confidence: confidence,
			Source:     s.Name,
			ResolvedAt: time.Now(),
		}, true
	}
	return domain.ResolvedSymbol{}, false
}

func (r *SymbolResolver) drop(mint string) {
	r.mu.Lock()
	delete(r.pending, mint)
	r.mu.Unlock()
}

// EvictResolved removes resolved entries older than ttl. Returns the
// number removed.
func (r *SymbolResolver) EvictResolved(ttl time.Duration) int {
	cutoff := time.Now().Add(-ttl)

	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for mint, rs := range r.resolved {
		if rs.ResolvedAt.Before(cutoff) {
			delete(r.resolved, mint)
			evicted++
		}
	}
	return evicted
}

// Sizes reports table sizes for the janitor gauges and the health
// endpoint.
func (r *SymbolResolver) Sizes() (resolved, pending int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.resolved), len(r.pending)
}

// Stop cancels pending timers and waits for in-flight resolutions.
func (r *SymbolResolver) Stop() {
	r.mu.Lock()
	r.closed = true
	for mint, task := range r.pending {
		task.timer.Stop()
		delete(r.pending, mint)
	}
	r.mu.Unlock()
	r.wg.Wait()
}
