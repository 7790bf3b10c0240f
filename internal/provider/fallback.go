package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dexlab-run/mintscan/internal/domain"
)

// Enricher merges extra fields into an already-successful result.
// CoinGecko implements it; the pass is strictly additive and can never
// turn a success into a failure.
type Enricher interface {
	Enrich(ctx context.Context, mint string, info *domain.DexInfo) (verified bool, err error)
}

// FallbackOptions configures the fallback fetcher.
type FallbackOptions struct {
	// Ports in call order. Required, at least one.
	Ports []Port
	// Breaker tuning shared by all per-provider breakers.
	Breaker BreakerConfig
	// Enricher runs after the first success. Optional.
	Enricher Enricher
	// Buyers backfills buyers_30m when the winning provider lacks it.
	// Optional.
	Buyers BuyersSource
	// OnOutcome observes each provider call result: ok, not_found,
	// insufficient, circuit_open, timeout, error, parse_error. Optional,
	// used for metrics.
	OnOutcome func(provider, outcome string)
	// Logger defaults to a no-op logger.
	Logger *zerolog.Logger
}

// Fallback walks the provider chain in order, guarded by one circuit
// breaker per provider, and returns the first acceptable success. When
// nobody answers, the result is pending with the full reason chain so
// the caller can schedule a retry.
type Fallback struct {
	ports     []Port
	breakers  map[string]*CircuitBreaker
	enricher  Enricher
	buyers    BuyersSource
	onOutcome func(provider, outcome string)
	log       zerolog.Logger
}

// NewFallback validates options and builds the fetcher.
func NewFallback(opts FallbackOptions) (*Fallback, error) {
	if len(opts.Ports) == 0 {
		return nil, fmt.Errorf("at least one provider port is required")
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	breakers := make(map[string]*CircuitBreaker, len(opts.Ports))
	for _, p := range opts.Ports {
		breakers[p.Name()] = NewCircuitBreaker(p.Name(), opts.Breaker)
	}
	return &Fallback{
		ports:     opts.Ports,
		breakers:  breakers,
		enricher:  opts.Enricher,
		buyers:    opts.Buyers,
		onOutcome: opts.OnOutcome,
		log:       logger.With().Str("component", "fallback_fetcher").Logger(),
	}, nil
}

// Fetch walks the chain and always returns a non-nil result. Transport
// errors and data absence both travel through DexInfo.Status; the
// reason field carries the per-provider chain for diagnostics.
func (f *Fallback) Fetch(ctx context.Context, mint string) *domain.DexInfo {
	var (
		success     *domain.DexInfo
		reasonChain []string
	)

	for _, port := range f.ports {
		name := port.Name()
		breaker := f.breakers[name]

		if !breaker.AllowRequest() {
			reasonChain = append(reasonChain, name+"=circuit_open")
			f.note(name, "circuit_open")
			continue
		}

		info, err := port.Fetch(ctx, mint)
		if err != nil {
			breaker.RecordFailure()
			switch {
			case errors.Is(err, context.DeadlineExceeded):
				reasonChain = append(reasonChain, name+"=timeout")
				f.note(name, "timeout")
			case isParseError(err):
				reasonChain = append(reasonChain, fmt.Sprintf("%s_parse:%s", name, errText(err)))
				f.note(name, "parse_error")
			default:
				reasonChain = append(reasonChain, fmt.Sprintf("%s=error:%s", name, errText(err)))
				f.note(name, "error")
			}
			f.log.Debug().Err(err).Str("provider", name).Str("mint", mint).Msg("provider call failed")
			continue
		}

		// Data absence is not a breaker failure.
		if info.Status != domain.StatusOK {
			breaker.RecordSuccess()
			reason := info.Reason
			if reason == "" {
				reason = string(info.Status)
			}
			reasonChain = append(reasonChain, name+"="+reason)
			f.note(name, string(info.Status))
			continue
		}

		breaker.RecordSuccess()

		// An ok result without any market signal is not terminal; keep
		// walking but remember the partial data for merging.
		if !info.HasLiquiditySignal() {
			reasonChain = append(reasonChain, name+"=insufficient_data")
			f.note(name, "insufficient")
			if success == nil {
				success = info
				success.Reason = "insufficient_data"
			} else {
				success.Merge(info)
			}
			f.markSource(success, name)
			continue
		}

		f.note(name, "ok")
		if success != nil {
			// Partial data from earlier providers backfills gaps.
			info.Merge(success)
		}
		success = info
		// Keep the earlier chain entries so a success after skips or
		// failures still shows the whole walk.
		reasonChain = append(reasonChain, name+"_ok")
		success.Reason = strings.Join(reasonChain, "; ")
		f.markSource(success, name)
		break
	}

	// Partial data alone does not end the chain: a result built only
	// from insufficient providers stays pending and gets retried.
	if success == nil || success.Reason == "insufficient_data" {
		if success == nil {
			success = domain.NewDexInfo(domain.StatusPending)
		} else {
			success.Status = domain.StatusPending
		}
		if len(reasonChain) > 0 {
			success.Reason = strings.Join(reasonChain, "; ")
		} else {
			success.Reason = "all_failed"
		}
		return success
	}

	f.enrich(ctx, mint, success)
	f.backfillBuyers(ctx, mint, success)
	return success
}

// enrich runs the additive CoinGecko pass. Failures only log; the
// primary result stands regardless.
func (f *Fallback) enrich(ctx context.Context, mint string, info *domain.DexInfo) {
	if f.enricher == nil {
		return
	}
	verified, err := f.enricher.Enrich(ctx, mint, info)
	if err != nil {
		f.log.Debug().Err(err).Str("mint", mint).Msg("coingecko enrichment failed")
		return
	}
	if verified {
		info.Reason += "+CG_verified"
		f.markSource(info, coingeckoName)
	}
}

// backfillBuyers fills buyers_30m from the alternative source when the
// winning provider did not report it.
func (f *Fallback) backfillBuyers(ctx context.Context, mint string, info *domain.DexInfo) {
	if f.buyers == nil {
		return
	}
	if _, ok := info.Int(domain.KeyBuyers30m); ok {
		return
	}
	n, err := f.buyers.Buyers30m(ctx, mint)
	if err != nil || n <= 0 {
		return
	}
	info.Set(domain.KeyBuyers30m, n)
}

// markSource appends a provider to the sources_ok list, once.
func (f *Fallback) markSource(info *domain.DexInfo, name string) {
	sources, _ := info.Metadata[domain.KeySourcesOK].([]string)
	for _, s := range sources {
		if s == name {
			return
		}
	}
	info.Set(domain.KeySourcesOK, append(sources, name))
}

func (f *Fallback) note(provider, outcome string) {
	if f.onOutcome != nil {
		f.onOutcome(provider, outcome)
	}
}

// BreakerStats snapshots every provider breaker, in chain order.
func (f *Fallback) BreakerStats() []Stats {
	out := make([]Stats, 0, len(f.ports))
	for _, p := range f.ports {
		out = append(out, f.breakers[p.Name()].Snapshot())
	}
	return out
}

// errText flattens an error to a compact single-token diagnostic.
func errText(err error) string {
	s := err.Error()
	s = strings.ReplaceAll(s, " ", "_")
	if len(s) > 80 {
		s = s[:80]
	}
	return s
}

// FetchWithTimeout bounds a fetch with an explicit deadline, matching
// the retry worker's fetch budget.
func (f *Fallback) FetchWithTimeout(ctx context.Context, mint string, timeout time.Duration) *domain.DexInfo {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return f.Fetch(ctx, mint)
}
