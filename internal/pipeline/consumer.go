package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dexlab-run/mintscan/internal/domain"
)

// Fetcher walks the provider chain for one mint. The result is never
// nil; outcomes travel through DexInfo.Status.
type Fetcher interface {
	Fetch(ctx context.Context, mint string) *domain.DexInfo
	FetchWithTimeout(ctx context.Context, mint string, timeout time.Duration) *domain.DexInfo
}

// Dispatcher receives every summary exactly once per evaluation pass.
type Dispatcher interface {
	Dispatch(ctx context.Context, s *domain.Summary)
}

// ConsumerOptions wires the single pipeline consumer.
type ConsumerOptions struct {
	Queue     *Queue
	Fetcher   Fetcher
	Rug       *RugDetector
	Qualifier *Qualifier
	Sink      Dispatcher
	Symbols   *SymbolResolver

	// RetryFetchTimeout bounds provider calls on retry passes.
	RetryFetchTimeout time.Duration
	// RetryMaxAttempts mirrors the retry worker's budget so the tracked
	// candidate is released once the last attempt ran.
	RetryMaxAttempts int

	// ObserveLiquidity receives every liquidity observation, for the
	// time-series archive. Optional.
	ObserveLiquidity func(mint string, liquidityUSD float64, source string)
	// OnPass observes each completed summary, for metrics. Optional.
	OnPass func(s *domain.Summary)
	// OnFetchLatency observes provider chain latency. Optional.
	OnFetchLatency func(d time.Duration)

	Logger *zerolog.Logger
}

// Consumer drains the queue and runs one evaluation pass per
// candidate: fetch, rug check, qualify, dispatch. It is the only
// goroutine that mutates pipeline state, which keeps the pass free of
// cross-candidate races.
type Consumer struct {
	queue     *Queue
	fetcher   Fetcher
	rug       *RugDetector
	qualifier *Qualifier
	sink      Dispatcher
	symbols   *SymbolResolver
	retry     *RetryWorker

	retryFetchTimeout time.Duration
	retryMaxAttempts  int
	observeLiquidity  func(string, float64, string)
	onPass            func(*domain.Summary)
	onFetchLatency    func(time.Duration)
	log               zerolog.Logger

	mu       sync.Mutex
	retrying map[string]domain.Candidate
}

// NewConsumer builds the consumer. The retry worker is attached
// separately because its pass function closes over the consumer.
func NewConsumer(opts ConsumerOptions) *Consumer {
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Consumer{
		queue:             opts.Queue,
		fetcher:           opts.Fetcher,
		rug:               opts.Rug,
		qualifier:         opts.Qualifier,
		sink:              opts.Sink,
		symbols:           opts.Symbols,
		retryFetchTimeout: opts.RetryFetchTimeout,
		retryMaxAttempts:  opts.RetryMaxAttempts,
		observeLiquidity:  opts.ObserveLiquidity,
		onPass:            opts.OnPass,
		onFetchLatency:    opts.OnFetchLatency,
		log:               logger.With().Str("component", "consumer").Logger(),
		retrying:          make(map[string]domain.Candidate),
	}
}

// AttachRetry hands the consumer its retry worker.
func (c *Consumer) AttachRetry(w *RetryWorker) { c.retry = w }

// Run drains the queue until it closes or the context is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		cand, err := c.queue.Pop(ctx)
		if err != nil {
			if errors.Is(err, ErrQueueClosed) || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		c.livePass(ctx, cand)
	}
}

// livePass runs one evaluation for a freshly discovered candidate and
// schedules a retry when the data was still pending.
func (c *Consumer) livePass(ctx context.Context, cand domain.Candidate) {
	sum := c.evaluate(ctx, cand, false, 0)

	if sum.DexStatus == domain.StatusPending && !sum.RugAlert && c.retry != nil {
		c.mu.Lock()
		c.retrying[cand.Mint] = cand
		c.mu.Unlock()
		if !c.retry.Schedule(ctx, cand.Mint) {
			c.mu.Lock()
			delete(c.retrying, cand.Mint)
			c.mu.Unlock()
		}
	}
}

// RetryPass re-evaluates a mint from the retry worker. Returns true
// when the pass reached a terminal outcome.
func (c *Consumer) RetryPass(ctx context.Context, mint string, attempt int) bool {
	c.mu.Lock()
	cand, ok := c.retrying[mint]
	c.mu.Unlock()
	if !ok {
		return true
	}

	sum := c.evaluate(ctx, cand, true, attempt)
	done := sum.DexStatus != domain.StatusPending || sum.RugAlert
	if done || (c.retryMaxAttempts > 0 && attempt >= c.retryMaxAttempts) {
		c.mu.Lock()
		delete(c.retrying, mint)
		c.mu.Unlock()
	}
	return done
}

// evaluate is the single-candidate pass shared by live and retry
// evaluation.
func (c *Consumer) evaluate(ctx context.Context, cand domain.Candidate, retryPass bool, attempt int) *domain.Summary {
	start := time.Now()

	var info *domain.DexInfo
	if retryPass && c.retryFetchTimeout > 0 {
		info = c.fetcher.FetchWithTimeout(ctx, cand.Mint, c.retryFetchTimeout)
	} else {
		info = c.fetcher.Fetch(ctx, cand.Mint)
	}
	if c.onFetchLatency != nil {
		c.onFetchLatency(time.Since(start))
	}

	symbol := c.pickSymbol(cand, info)

	blacklistedBefore := c.rug.IsBlacklisted(cand.Mint)
	rugAlert := false
	if liq, ok := info.Float(domain.KeyLiquidityUSD); ok && liq >= 0 {
		if liq > 0 && c.observeLiquidity != nil {
			c.observeLiquidity(cand.Mint, liq, cand.Source.String())
		}
		rugAlert = c.rug.Check(cand.Mint, liq)
	}

	verdict := c.qualifier.Decide(cand, info, symbol, rugAlert, blacklistedBefore)

	sum := &domain.Summary{
		Mint:             cand.Mint,
		Symbol:           symbol,
		Source:           cand.Source,
		Market:           info,
		Decision:         verdict.Decision,
		Score:            verdict.Score,
		DexStatus:        info.Status,
		DexReason:        info.Reason,
		Notes:            verdict.Notes,
		RugAlert:         rugAlert,
		BlacklistedUntil: c.rug.BlacklistedUntil(cand.Mint),
		Retry:            retryPass,
		EvaluatedAt:      time.Now(),
	}

	evt := "summary"
	if retryPass {
		evt = "summary_retry"
	}
	c.log.Info().
		Str("evt", evt).
		Str("mint", sum.Mint).
		Str("symbol", sum.Symbol).
		Str("source", sum.Source.String()).
		Str("decision", string(sum.Decision)).
		Float64("score", sum.Score).
		Str("dex_status", string(sum.DexStatus)).
		Str("dex_reason", sum.DexReason).
		Strs("notes", sum.Notes).
		Bool("rug_alert", sum.RugAlert).
		Int("attempt", attempt).
		Msg("candidate evaluated")

	c.sink.Dispatch(ctx, sum)

	if c.symbols != nil && domain.IsPlaceholderSymbol(symbol) && sum.Decision == domain.DecisionPublish {
		c.symbols.Enqueue(ctx, cand.Mint)
	}

	if c.onPass != nil {
		c.onPass(sum)
	}
	return sum
}

// pickSymbol chooses the display symbol: resolver table first, then
// provider metadata, then the producer's hint, then the placeholder.
func (c *Consumer) pickSymbol(cand domain.Candidate, info *domain.DexInfo) string {
	if c.symbols != nil {
		if rs, ok := c.symbols.Lookup(cand.Mint); ok {
			return rs.Symbol
		}
	}
	if s, ok := info.String(domain.KeyResolvedSymbol); ok && !domain.IsPlaceholderSymbol(s) {
		return s
	}
	if s, ok := info.String(domain.KeyBaseSymbol); ok && !domain.IsPlaceholderSymbol(s) {
		return s
	}
	if cand.SymbolHint != "" && !domain.IsPlaceholderSymbol(cand.SymbolHint) {
		return cand.SymbolHint
	}
	return domain.PlaceholderSymbol(cand.Mint)
}

// ActiveRetries reports mints awaiting a retry pass.
func (c *Consumer) ActiveRetries() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.retrying)
}
