package discovery

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/dexlab-run/mintscan/internal/domain"
)

// Listing is one row from a recent-listings or trending poll.
type Listing struct {
	Mint      string
	Symbol    string
	CreatedAt time.Time // zero when the endpoint does not report it
}

// ListingSource serves the lookback sweep endpoints.
type ListingSource interface {
	NewListings(ctx context.Context, limit int) ([]Listing, error)
	Trending(ctx context.Context, limit int) ([]Listing, error)
}

// LookbackSweeperOptions configures the periodic list poller.
type LookbackSweeperOptions struct {
	// Source serves the new-listing and trending lists. Required.
	Source ListingSource
	// Sink receives discovered candidates. Required.
	Sink Sink
	// Interval between sweeps. Defaults to 60 s.
	Interval time.Duration
	// Window is the inclusive max age of a listing. Defaults to 90 min.
	Window time.Duration
	// Limit caps rows requested per endpoint. Defaults to 50.
	Limit int
	// Logger defaults to a no-op logger.
	Logger *zerolog.Logger
}

// LookbackSweeper polls recent-listing and trending lists on a fixed
// interval, catching mints the websocket producers missed. Each mint is
// emitted at most once per process.
type LookbackSweeper struct {
	source   ListingSource
	sink     Sink
	interval time.Duration
	window   time.Duration
	limit    int
	log      zerolog.Logger
	now      func() time.Time

	seenMu sync.Mutex
	seen   map[string]bool

	emitted atomic.Uint64
	dropped atomic.Uint64
}

// NewLookbackSweeper validates options and builds the sweeper.
func NewLookbackSweeper(opts LookbackSweeperOptions) (*LookbackSweeper, error) {
	if opts.Source == nil {
		return nil, fmt.Errorf("listing source is required")
	}
	if opts.Sink == nil {
		return nil, fmt.Errorf("sink is required")
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = 60 * time.Second
	}
	window := opts.Window
	if window <= 0 {
		window = 90 * time.Minute
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &LookbackSweeper{
		source:   opts.Source,
		sink:     opts.Sink,
		interval: interval,
		window:   window,
		limit:    limit,
		log:      logger.With().Str("component", "lookback_sweeper").Logger(),
		now:      time.Now,
		seen:     make(map[string]bool),
	}, nil
}

// Run sweeps immediately, then on every interval tick until the context
// is cancelled.
func (s *LookbackSweeper) Run(ctx context.Context) error {
	s.Sweep(ctx)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep polls both endpoints once and emits fresh candidates.
func (s *LookbackSweeper) Sweep(ctx context.Context) {
	listings, err := s.source.NewListings(ctx, s.limit)
	if err != nil {
		s.log.Warn().Err(err).Msg("new listings poll failed")
	} else {
		s.emit(listings, domain.SourceLookbackNewListing)
	}

	trending, err := s.source.Trending(ctx, s.limit)
	if err != nil {
		s.log.Warn().Err(err).Msg("trending poll failed")
	} else {
		s.emit(trending, domain.SourceLookbackTrending)
	}
}

func (s *LookbackSweeper) emit(listings []Listing, source domain.Source) {
	now := s.now()
	for _, l := range listings {
		if !IsLikelyMint(l.Mint) {
			continue
		}
		// Inclusive age window. Rows without a creation time cannot be
		// age-filtered and pass through.
		if !l.CreatedAt.IsZero() && now.Sub(l.CreatedAt) > s.window {
			continue
		}

		s.seenMu.Lock()
		dup := s.seen[l.Mint]
		if !dup {
			s.seen[l.Mint] = true
		}
		s.seenMu.Unlock()
		if dup {
			continue
		}

		cand := domain.Candidate{
			Mint:       l.Mint,
			SymbolHint: l.Symbol,
			Source:     source,
			ReceivedAt: now,
		}
		if !s.sink.Offer(cand) {
			s.dropped.Add(1)
			s.log.Warn().Str("mint", l.Mint).Str("source", source.String()).Msg("lookback candidate dropped, queue full")
			continue
		}
		s.emitted.Add(1)
		s.log.Info().
			Str("mint", l.Mint).
			Str("symbol", l.Symbol).
			Str("source", source.String()).
			Msg("lookback candidate discovered")
	}
}

// SeenCount reports the size of the dedup set.
func (s *LookbackSweeper) SeenCount() int {
	s.seenMu.Lock()
	defer s.seenMu.Unlock()
	return len(s.seen)
}

// Emitted reports candidates accepted by the sink.
func (s *LookbackSweeper) Emitted() uint64 { return s.emitted.Load() }

// Dropped reports candidates rejected by a full sink.
func (s *LookbackSweeper) Dropped() uint64 { return s.dropped.Load() }
