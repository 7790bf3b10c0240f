package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dexlab-run/mintscan/internal/archive"
	archch "github.com/dexlab-run/mintscan/internal/archive/clickhouse"
	"github.com/dexlab-run/mintscan/internal/archive/migrations"
	archpg "github.com/dexlab-run/mintscan/internal/archive/postgres"
	"github.com/dexlab-run/mintscan/internal/config"
	"github.com/dexlab-run/mintscan/internal/discovery"
	"github.com/dexlab-run/mintscan/internal/domain"
	"github.com/dexlab-run/mintscan/internal/observability"
	"github.com/dexlab-run/mintscan/internal/provider"
	"github.com/dexlab-run/mintscan/internal/publish"
	"github.com/dexlab-run/mintscan/internal/solana"
)

// App wires the full scanner: producers, queue, consumer, retry and
// symbol workers, publish sink, optional archives.
type App struct {
	cfg     *config.Config
	log     zerolog.Logger
	metrics *observability.Metrics

	queue     *Queue
	rug       *RugDetector
	qualifier *Qualifier
	consumer  *Consumer
	retry     *RetryWorker
	symbols   *SymbolResolver
	janitor   *Janitor

	fallback *provider.Fallback
	sink     *publish.Sink
	book     *publish.PositionBook

	ws  solana.WSClient
	rpc solana.RPCClient

	helius        *discovery.HeliusProducer
	pools         *discovery.PoolWatcher
	sweeper       *discovery.LookbackSweeper
	sweeperSource discovery.ListingSource

	eventArchive *archive.AsyncEventWriter
	liqArchive   *archive.AsyncLiquidityWriter
	pgPool       *archpg.Pool
	chConn       *archch.Conn

	startedAt time.Time

	lastWSReconnects uint64
	lastEventDrops   uint64
	lastLiqDrops     uint64
}

// NewApp builds and wires the scanner from configuration. Archives are
// attached only when their DSNs are set; everything else is mandatory.
func NewApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger, metrics *observability.Metrics) (*App, error) {
	a := &App{
		cfg:       cfg,
		log:       logger.With().Str("component", "scanner").Logger(),
		metrics:   metrics,
		startedAt: time.Now(),
	}

	a.queue = NewQueue(cfg.QueueCapacity)
	a.rug = NewRugDetector(RugConfig{
		Window:       cfg.Rug.Window,
		DropRatio:    cfg.Rug.DropRatio,
		BlacklistTTL: cfg.Rug.BlacklistTTL,
	})
	a.qualifier = NewQualifier(cfg.Gates)

	if err := a.wireTransport(ctx, logger); err != nil {
		return nil, err
	}
	if err := a.wireProviders(logger); err != nil {
		return nil, err
	}
	if err := a.wireArchives(ctx, logger); err != nil {
		return nil, err
	}
	if err := a.wireSink(logger); err != nil {
		return nil, err
	}
	a.wirePipeline(logger)
	if err := a.wireProducers(logger); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *App) wireTransport(ctx context.Context, logger zerolog.Logger) error {
	wsCfg := solana.DefaultWSConfig()
	wsCfg.Logger = logger
	ws, err := solana.NewWSClient(ctx, a.cfg.WSURL, &wsCfg)
	if err != nil {
		return fmt.Errorf("connect websocket: %w", err)
	}
	a.ws = ws
	a.rpc = solana.NewHTTPClient(a.cfg.RPCURL)
	return nil
}

func (a *App) wireProviders(logger zerolog.Logger) error {
	birdeye := provider.NewBirdeye(provider.BirdeyeOptions{APIKey: a.cfg.Providers.BirdeyeAPIKey})
	dexscreener := provider.NewDexScreener(provider.DexScreenerOptions{})
	jupiter := provider.NewJupiter(provider.JupiterOptions{})
	coingecko := provider.NewCoinGecko(provider.CoinGeckoOptions{APIKey: a.cfg.Providers.CoingeckoAPIKey})
	solscan := provider.NewSolscan(provider.SolscanOptions{APIKey: a.cfg.Providers.SolscanAPIKey})
	onchain := provider.NewOnChain(a.rpc)

	fallback, err := provider.NewFallback(provider.FallbackOptions{
		Ports: []provider.Port{birdeye, dexscreener, jupiter, coingecko, solscan},
		Breaker: provider.BreakerConfig{
			FailureThreshold: a.cfg.Breaker.FailureThreshold,
			OpenTimeout:      a.cfg.Breaker.OpenTimeout,
		},
		Enricher: coingecko,
		Buyers:   birdeye,
		OnOutcome: func(prov, outcome string) {
			if a.metrics != nil {
				a.metrics.ProviderOutcomes.WithLabelValues(prov, outcome).Inc()
			}
		},
		Logger: &logger,
	})
	if err != nil {
		return fmt.Errorf("build fallback fetcher: %w", err)
	}
	a.fallback = fallback

	// Symbol sources in descending confidence order.
	a.symbols = NewSymbolResolver(a.cfg.Symbols, []NamedSymbolSource{
		{Name: "coingecko", Source: coingecko},
		{Name: "jupiter", Source: jupiter},
		{Name: "dexscreener", Source: dexscreener},
		{Name: "onchain", Source: onchain},
		{Name: "birdeye", Source: birdeye},
	}, nil, logger)

	// The sweeper reuses Birdeye's lookback endpoints.
	a.sweeperSource = birdeye
	return nil
}

func (a *App) wireArchives(ctx context.Context, logger zerolog.Logger) error {
	if dsn := a.cfg.Archive.PostgresDSN; dsn != "" {
		pool, err := archpg.NewPool(ctx, dsn)
		if err != nil {
			return fmt.Errorf("connect event archive: %w", err)
		}
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return fmt.Errorf("migrate event archive: %w", err)
		}
		a.pgPool = pool
		a.eventArchive = archive.NewAsyncEventWriter(archpg.NewEventStore(pool), 256, logger)
		a.log.Info().Msg("event archive enabled")
	}

	if dsn := a.cfg.Archive.ClickhouseDSN; dsn != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, dsn)
		if err != nil {
			return fmt.Errorf("migrate liquidity archive: %w", err)
		}
		a.chConn = conn
		a.liqArchive = archive.NewAsyncLiquidityWriter(archch.NewLiquidityStore(conn), 500, 5*time.Second, logger)
		a.log.Info().Msg("liquidity archive enabled")
	}
	return nil
}

func (a *App) wireSink(logger zerolog.Logger) error {
	events, err := publish.OpenLineWriter(a.cfg.Files.EventsPath)
	if err != nil {
		return fmt.Errorf("open events file: %w", err)
	}
	rejects, err := publish.OpenLineWriter(a.cfg.Files.RejectsPath)
	if err != nil {
		return fmt.Errorf("open rejects file: %w", err)
	}
	book, err := publish.OpenPositionBook(a.cfg.Files.PositionsPath)
	if err != nil {
		return fmt.Errorf("open position book: %w", err)
	}
	a.book = book

	var notifier publish.Notifier
	if a.cfg.Notifier.BotToken != "" && a.cfg.Notifier.ChatID != "" {
		tg, err := publish.NewTelegramNotifier(publish.TelegramOptions{
			BotToken: a.cfg.Notifier.BotToken,
			ChatID:   a.cfg.Notifier.ChatID,
			Logger:   &logger,
		})
		if err != nil {
			return fmt.Errorf("build telegram notifier: %w", err)
		}
		notifier = tg
	} else {
		a.log.Warn().Msg("telegram credentials not set, chat alerts disabled")
	}

	var eventArchiver publish.EventArchiver
	if a.eventArchive != nil {
		eventArchiver = a.eventArchive
	}

	a.sink = publish.NewSink(publish.SinkOptions{
		Notifier: notifier,
		Events:   events,
		Rejects:  rejects,
		Book:     book,
		Archive:  eventArchiver,
		Cooldown: a.cfg.CooldownDuration,
		OnOutcome: func(outcome string) {
			if a.metrics != nil {
				a.metrics.PublishOutcomes.WithLabelValues(outcome).Inc()
			}
		},
		Logger: &logger,
	})
	return nil
}

func (a *App) wirePipeline(logger zerolog.Logger) {
	// Symbol resolutions feed back into chat updates.
	a.symbols.onResolved = func(ctx context.Context, mint string, rs domain.ResolvedSymbol) {
		a.sink.NotifySymbolUpdate(ctx, mint, rs)
	}

	a.consumer = NewConsumer(ConsumerOptions{
		Queue:             a.queue,
		Fetcher:           a.fallback,
		Rug:               a.rug,
		Qualifier:         a.qualifier,
		Sink:              a.sink,
		Symbols:           a.symbols,
		RetryFetchTimeout: a.cfg.Retry.FetchTimeout,
		RetryMaxAttempts:  a.cfg.Retry.MaxAttempts,
		ObserveLiquidity: func(mint string, liq float64, source string) {
			if a.liqArchive != nil {
				a.liqArchive.Observe(mint, liq, source)
			}
		},
		OnPass: func(s *domain.Summary) {
			if a.metrics == nil {
				return
			}
			a.metrics.TokensProcessed.Inc()
			a.metrics.Decisions.WithLabelValues(string(s.Decision)).Inc()
			if s.RugAlert {
				a.metrics.RugAlerts.Inc()
			}
			a.metrics.QueueDepth.Set(float64(a.queue.Depth()))
			a.metrics.RetriesActive.Set(float64(a.consumer.ActiveRetries()))
			a.metrics.OpenPositions.Set(float64(a.book.Len()))
		},
		OnFetchLatency: func(d time.Duration) {
			if a.metrics != nil {
				a.metrics.FetchLatency.Observe(d.Seconds())
			}
		},
		Logger: &logger,
	})

	a.retry = NewRetryWorker(a.cfg.Retry, a.consumer.RetryPass, logger)
	a.consumer.AttachRetry(a.retry)

	a.janitor = NewJanitor(a.cfg.Janitor, a.rug, a.symbols, func(history, blacklisted, resolved int) {
		if a.metrics == nil {
			return
		}
		a.metrics.LiquidityHistorySize.Set(float64(history))
		a.metrics.BlacklistSize.Set(float64(blacklisted))
		a.metrics.ResolvedSymbolsSize.Set(float64(resolved))
	}, logger)
}

func (a *App) wireProducers(logger zerolog.Logger) error {
	helius, err := discovery.NewHeliusProducer(discovery.HeliusProducerOptions{
		Client:   a.ws,
		Sink:     a,
		RPC:      a.rpc,
		Programs: a.cfg.Programs,
		Logger:   &logger,
	})
	if err != nil {
		return fmt.Errorf("build helius producer: %w", err)
	}
	a.helius = helius

	pools, err := discovery.NewPoolWatcher(discovery.PoolWatcherOptions{
		Client:     a.ws,
		Sink:       a,
		Programs:   a.cfg.PoolPrograms,
		QuoteMints: a.cfg.QuoteMints,
		Logger:     &logger,
	})
	if err != nil {
		return fmt.Errorf("build pool watcher: %w", err)
	}
	a.pools = pools

	sweeper, err := discovery.NewLookbackSweeper(discovery.LookbackSweeperOptions{
		Source:   a.sweeperSource,
		Sink:     a,
		Interval: a.cfg.Lookback.Interval,
		Window:   a.cfg.Lookback.Window,
		Logger:   &logger,
	})
	if err != nil {
		return fmt.Errorf("build lookback sweeper: %w", err)
	}
	a.sweeper = sweeper
	return nil
}

// Offer implements discovery.Sink: producers feed the shared queue.
func (a *App) Offer(c domain.Candidate) bool {
	ok := a.queue.Offer(c)
	if a.metrics != nil {
		a.metrics.CandidatesDiscovered.WithLabelValues(c.Source.String()).Inc()
		if !ok {
			a.metrics.QueueDrops.Inc()
		}
		a.metrics.QueueDepth.Set(float64(a.queue.Depth()))
	}
	return ok
}

// Run starts all workers and blocks until the context is cancelled,
// then shuts the pipeline down in dependency order.
func (a *App) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	start := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(runCtx); err != nil && runCtx.Err() == nil {
				a.log.Error().Err(err).Str("worker", name).Msg("worker exited")
				cancel()
			}
		}()
	}

	start("consumer", a.consumer.Run)
	start("helius_producer", a.helius.Run)
	start("pool_watcher", a.pools.Run)
	start("lookback_sweeper", a.sweeper.Run)
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.janitor.Run(runCtx)
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.tickUptime(runCtx)
	}()

	a.log.Info().
		Int("queue_capacity", a.queue.Capacity()).
		Float64("min_publish_score", a.cfg.Gates.MinPublishScore).
		Msg("scanner started")

	<-runCtx.Done()
	a.shutdown()
	wg.Wait()
	return ctx.Err()
}

// shutdown stops intake first, then drains the workers that hold
// buffered state.
func (a *App) shutdown() {
	a.log.Info().Msg("shutting down")

	if err := a.ws.Close(); err != nil {
		a.log.Debug().Err(err).Msg("websocket close failed")
	}
	a.queue.Close()
	a.retry.Stop()
	a.symbols.Stop()

	if a.eventArchive != nil {
		a.eventArchive.Close()
	}
	if a.liqArchive != nil {
		a.liqArchive.Close()
	}
	if a.pgPool != nil {
		a.pgPool.Close()
	}
	if a.chConn != nil {
		a.chConn.Close()
	}
	if err := a.sink.Close(); err != nil {
		a.log.Debug().Err(err).Msg("sink close failed")
	}
	a.log.Info().Msg("shutdown complete")
}

func (a *App) tickUptime(ctx context.Context) {
	if a.metrics == nil {
		return
	}
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.metrics.UptimeSeconds.Add(15)
			a.publishCounterDeltas()
		}
	}
}

// publishCounterDeltas mirrors component-held monotonic counters into
// the Prometheus counters.
func (a *App) publishCounterDeltas() {
	if rc, ok := a.ws.(interface{ Reconnects() uint64 }); ok {
		if n := rc.Reconnects(); n > a.lastWSReconnects {
			a.metrics.WSReconnects.Add(float64(n - a.lastWSReconnects))
			a.lastWSReconnects = n
		}
	}
	if a.eventArchive != nil {
		if n := a.eventArchive.Dropped(); n > a.lastEventDrops {
			a.metrics.ArchiveDrops.WithLabelValues("events").Add(float64(n - a.lastEventDrops))
			a.lastEventDrops = n
		}
	}
	if a.liqArchive != nil {
		if n := a.liqArchive.Dropped(); n > a.lastLiqDrops {
			a.metrics.ArchiveDrops.WithLabelValues("liquidity").Add(float64(n - a.lastLiqDrops))
			a.lastLiqDrops = n
		}
	}
}

// Health reports the snapshot served by the /health endpoint.
func (a *App) Health() observability.HealthStatus {
	history, blacklisted := a.rug.Sizes()
	resolved, pendingSymbols := a.symbols.Sizes()
	return observability.HealthStatus{
		Status:        "ok",
		QueueSize:     a.queue.Depth(),
		ActiveRetries: a.consumer.ActiveRetries(),
		MemoryUsage: map[string]int{
			"liquidity_history": history,
			"blacklist":         blacklisted,
			"resolved_symbols":  resolved,
			"pending_symbols":   pendingSymbols,
			"cooldowns":         a.sink.CooldownSize(),
		},
		UptimeSeconds: time.Since(a.startedAt).Seconds(),
	}
}

// Trader exposes the open-position view for the /trading endpoint.
func (a *App) Trader() publish.TraderView { return a.book }
