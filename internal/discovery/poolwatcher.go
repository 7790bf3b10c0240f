package discovery

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/dexlab-run/mintscan/internal/domain"
	"github.com/dexlab-run/mintscan/internal/solana"
)

// PoolWatcherOptions configures the AMM pool-event producer.
type PoolWatcherOptions struct {
	// Client is the log subscription transport. Required.
	Client solana.WSClient
	// Sink receives discovered candidates. Required.
	Sink Sink
	// Programs to subscribe to. Defaults to Raydium AMM v4, Raydium
	// CLMM, Orca Whirlpool and Pump.fun.
	Programs []string
	// QuoteMints is the allowed quote side of a new pool. Defaults to
	// USDC, USDT and wSOL.
	QuoteMints []string
	// Logger defaults to a no-op logger.
	Logger *zerolog.Logger
}

// PoolWatcher subscribes to AMM program logs and emits the base mint of
// freshly created or funded pools, pair-first. Each mint is emitted at
// most once per watcher lifetime.
type PoolWatcher struct {
	client   solana.WSClient
	sink     Sink
	programs []string
	quotes   map[string]struct{}
	log      zerolog.Logger

	seenMu sync.RWMutex
	seen   map[string]bool

	emitted atomic.Uint64
	dropped atomic.Uint64
}

// NewPoolWatcher validates options and builds the watcher.
func NewPoolWatcher(opts PoolWatcherOptions) (*PoolWatcher, error) {
	if opts.Client == nil {
		return nil, fmt.Errorf("ws client is required")
	}
	if opts.Sink == nil {
		return nil, fmt.Errorf("sink is required")
	}
	programs := opts.Programs
	if len(programs) == 0 {
		programs = []string{RaydiumAMMV4, RaydiumCLMM, OrcaWhirlpool, PumpFun}
	}
	quotes := opts.QuoteMints
	if len(quotes) == 0 {
		quotes = DefaultQuoteMints()
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &PoolWatcher{
		client:   opts.Client,
		sink:     opts.Sink,
		programs: programs,
		quotes:   QuoteSet(quotes),
		log:      logger.With().Str("component", "pool_watcher").Logger(),
		seen:     make(map[string]bool),
	}, nil
}

// Run subscribes once per AMM program and processes notifications until
// the context is cancelled or all subscription channels close.
func (w *PoolWatcher) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for _, program := range w.programs {
		ch, err := w.client.SubscribeLogs(ctx, solana.LogsFilter{Mentions: []string{program}})
		if err != nil {
			return fmt.Errorf("subscribe logs for %s: %w", program, err)
		}
		source := sourceForProgram(program)
		w.log.Info().Str("program", program).Str("source", source.String()).Msg("watching pool events")

		wg.Add(1)
		go func(ch <-chan solana.LogNotification, source domain.Source) {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case notif, ok := <-ch:
					if !ok {
						return
					}
					w.handle(notif, source)
				}
			}
		}(ch, source)
	}
	wg.Wait()
	return ctx.Err()
}

func (w *PoolWatcher) handle(notif solana.LogNotification, source domain.Source) {
	if notif.Err != nil {
		return
	}
	marker, ok := MatchPoolEvent(notif.Logs)
	if !ok {
		return
	}
	base, quote, ok := ExtractBaseQuote(notif.Logs, w.quotes)
	if !ok {
		return
	}

	w.seenMu.Lock()
	if w.seen[base] {
		w.seenMu.Unlock()
		return
	}
	w.seen[base] = true
	w.seenMu.Unlock()

	evt := w.log.Info().
		Str("mint", base).
		Str("quote", quote).
		Str("marker", marker).
		Str("source", source.String())
	if price, liq, ok := EstimateFromReserves(notif.Logs); ok {
		evt = evt.Float64("price_est", price).Float64("liquidity_est", liq)
	}

	cand := domain.Candidate{
		Mint:       base,
		Signature:  notif.Signature,
		Source:     source,
		ReceivedAt: time.Now(),
	}
	if !w.sink.Offer(cand) {
		w.dropped.Add(1)
		evt.Msg("pool candidate dropped, queue full")
		return
	}
	w.emitted.Add(1)
	evt.Msg("pool candidate discovered")
}

// SeenCount reports the size of the dedup set.
func (w *PoolWatcher) SeenCount() int {
	w.seenMu.RLock()
	defer w.seenMu.RUnlock()
	return len(w.seen)
}

// Emitted reports candidates accepted by the sink.
func (w *PoolWatcher) Emitted() uint64 { return w.emitted.Load() }

// Dropped reports candidates rejected by a full sink.
func (w *PoolWatcher) Dropped() uint64 { return w.dropped.Load() }

func sourceForProgram(program string) domain.Source {
	switch program {
	case RaydiumAMMV4, RaydiumCLMM:
		return domain.SourceRaydium
	case OrcaWhirlpool:
		return domain.SourceOrca
	case PumpFun:
		return domain.SourcePumpFun
	default:
		return domain.SourceExternal
	}
}
