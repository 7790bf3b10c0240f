// Package config loads scanner configuration from the environment.
// Every threshold has a documented default; unset or unparsable values
// fall back to it. Duration keys accept either a bare number of seconds
// or a Go duration string.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Public Solana program addresses watched by the producers.
const (
	TokenProgramID      = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	RaydiumAMMV4        = "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8"
	RaydiumCLMM         = "CAMMCzo5YL8w4VFF8KVHrK22GGUsp5VTaW7grrKgrWqK"
	OrcaWhirlpool       = "whirLbMiicVdio4qvUfM5KAg6Ct8VwpYzGff3uctyCc"
	PumpFunProgram      = "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P"
	JupiterV6Program    = "JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4"
	WSOLMint            = "So11111111111111111111111111111111111111112"
	USDCMint            = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	USDTMint            = "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB"
	mainnetRPCURL       = "https://mainnet.helius-rpc.com/?api-key=%s"
	mainnetWSURL        = "wss://mainnet.helius-rpc.com/?api-key=%s"
	publicMainnetRPCURL = "https://api.mainnet-beta.solana.com"
)

// Retry controls the transient-failure retry worker.
type Retry struct {
	MaxAttempts  int
	InitialDelay time.Duration
	Backoff      float64
	MaxDelay     time.Duration
	FetchTimeout time.Duration
}

// Breaker controls the per-provider circuit breakers.
type Breaker struct {
	FailureThreshold int
	OpenTimeout      time.Duration
}

// Gates holds the qualifier hard-gate thresholds.
type Gates struct {
	MinLiquidityUSD     float64
	MinVolume24hUSD     float64
	MinBuyers30m        int
	Buyers30mSoftMode   bool
	MinAgeMin           float64
	UtilMin             float64
	UtilMax             float64
	PoolMinTrades24h    int
	PoolMaxLastTradeMin float64
	EnableFDVSanity     bool
	FDVSanityTolerance  float64
	StrictPlaceholder   bool
	PlaceholderPenalty  float64
	MinPublishScore     float64
	MinSymbolLen        int
	MaxSymbolLen        int
}

// Rug controls the liquidity-drop detector.
type Rug struct {
	Window       time.Duration
	DropRatio    float64
	BlacklistTTL time.Duration
}

// Symbols controls the placeholder-symbol resolver.
type Symbols struct {
	Schedule      []time.Duration
	MinConfidence float64
}

// Janitor controls periodic memory cleanup.
type Janitor struct {
	Interval            time.Duration
	LiquidityHistoryTTL time.Duration
}

// Lookback controls the periodic new-listing/trending sweeper.
type Lookback struct {
	Interval time.Duration
	Window   time.Duration
}

// HTTPEndpoint is a host/port pair for one of the inspection servers.
type HTTPEndpoint struct {
	Host string
	Port int
}

// Addr renders the listen address.
func (e HTTPEndpoint) Addr() string {
	return fmt.Sprintf("%s:%d", e.Host, e.Port)
}

// Providers holds external API credentials and endpoints.
type Providers struct {
	BirdeyeAPIKey   string
	CoingeckoAPIKey string
	SolscanAPIKey   string
	HeliusAPIKey    string
}

// Notifier holds the chat notifier credentials.
type Notifier struct {
	BotToken string
	ChatID   string
}

// Files holds the append-only sink paths.
type Files struct {
	EventsPath    string
	RejectsPath   string
	PositionsPath string
}

// Archive holds the optional write-only archive DSNs. Empty means off.
type Archive struct {
	PostgresDSN   string
	ClickhouseDSN string
}

// Config is the full scanner configuration.
type Config struct {
	WSURL  string
	RPCURL string

	// Programs watched by the Helius log producer (mint creations).
	Programs []string
	// PoolPrograms watched by the AMM pool watcher.
	PoolPrograms []string
	// QuoteMints accepted as the quote side of a new pool.
	QuoteMints []string

	QueueCapacity    int
	CooldownDuration time.Duration

	Retry     Retry
	Breaker   Breaker
	Gates     Gates
	Rug       Rug
	Symbols   Symbols
	Janitor   Janitor
	Lookback  Lookback
	Health    HTTPEndpoint
	Metrics   HTTPEndpoint
	Providers Providers
	Notifier  Notifier
	Files     Files
	Archive   Archive

	LogLevel  string
	LogPretty bool
}

// Implicit qualifier floors carried over from the original deployment.
// Configuring a minimum above these narrows the target set; Load reports
// a warning so the operator notices.
const (
	impliedMinLiquidityUSD = 1000
	impliedMinVolume24hUSD = 100
)

// Default returns the documented defaults.
func Default() *Config {
	return &Config{
		Programs:     []string{TokenProgramID},
		PoolPrograms: []string{RaydiumAMMV4, RaydiumCLMM, OrcaWhirlpool, PumpFunProgram},
		QuoteMints:   []string{USDCMint, USDTMint, WSOLMint},

		QueueCapacity:    1000,
		CooldownDuration: 180 * time.Second,

		Retry: Retry{
			MaxAttempts:  4,
			InitialDelay: 5 * time.Second,
			Backoff:      2.0,
			MaxDelay:     60 * time.Second,
			FetchTimeout: 12 * time.Second,
		},
		Breaker: Breaker{
			FailureThreshold: 5,
			OpenTimeout:      60 * time.Second,
		},
		Gates: Gates{
			MinLiquidityUSD:     impliedMinLiquidityUSD,
			MinVolume24hUSD:     impliedMinVolume24hUSD,
			MinBuyers30m:        5,
			Buyers30mSoftMode:   true,
			MinAgeMin:           3,
			UtilMin:             0.3,
			UtilMax:             8.0,
			PoolMinTrades24h:    10,
			PoolMaxLastTradeMin: 10,
			EnableFDVSanity:     true,
			FDVSanityTolerance:  0.30,
			StrictPlaceholder:   false,
			PlaceholderPenalty:  10,
			MinPublishScore:     25,
			MinSymbolLen:        2,
			MaxSymbolLen:        12,
		},
		Rug: Rug{
			Window:       300 * time.Second,
			DropRatio:    0.4,
			BlacklistTTL: 86400 * time.Second,
		},
		Symbols: Symbols{
			Schedule: []time.Duration{
				30 * time.Second,
				120 * time.Second,
				300 * time.Second,
				900 * time.Second,
				1800 * time.Second,
			},
			MinConfidence: 0.7,
		},
		Janitor: Janitor{
			Interval:            300 * time.Second,
			LiquidityHistoryTTL: 3600 * time.Second,
		},
		Lookback: Lookback{
			Interval: 60 * time.Second,
			Window:   90 * time.Minute,
		},
		Health:  HTTPEndpoint{Host: "0.0.0.0", Port: 8080},
		Metrics: HTTPEndpoint{Host: "0.0.0.0", Port: 9090},
		Files: Files{
			EventsPath:    "token_events.jsonl",
			RejectsPath:   "dex_rejects.jsonl",
			PositionsPath: "open_positions.json",
		},
		LogLevel: "info",
	}
}

// Load builds the configuration from defaults plus environment
// overrides. It returns the config, a list of non-fatal warnings, and
// an error for unrecoverable problems (no websocket endpoint).
func Load() (*Config, []string, error) {
	cfg := Default()
	applyEnv(cfg)

	var warnings []string
	if cfg.Gates.MinLiquidityUSD > impliedMinLiquidityUSD {
		warnings = append(warnings, fmt.Sprintf(
			"SCANNER_MIN_LIQUIDITY_USD=%.0f exceeds the implied floor %.0f; candidates below it never publish",
			cfg.Gates.MinLiquidityUSD, float64(impliedMinLiquidityUSD)))
	}
	if cfg.Gates.MinVolume24hUSD > impliedMinVolume24hUSD {
		warnings = append(warnings, fmt.Sprintf(
			"SCANNER_MIN_VOLUME24H_USD=%.0f exceeds the implied floor %.0f; candidates below it never publish",
			cfg.Gates.MinVolume24hUSD, float64(impliedMinVolume24hUSD)))
	}

	if err := cfg.Validate(); err != nil {
		return nil, warnings, err
	}
	return cfg, warnings, nil
}

// Validate checks mandatory settings.
func (c *Config) Validate() error {
	if c.WSURL == "" {
		return fmt.Errorf("no websocket endpoint: set SCANNER_WS_URL or HELIUS_API_KEY")
	}
	if c.RPCURL == "" {
		return fmt.Errorf("no rpc endpoint: set SCANNER_RPC_URL")
	}
	if c.QueueCapacity <= 0 {
		return fmt.Errorf("queue capacity must be positive, got %d", c.QueueCapacity)
	}
	if c.Retry.Backoff < 1.0 {
		return fmt.Errorf("retry backoff must be >= 1.0, got %v", c.Retry.Backoff)
	}
	if c.Gates.UtilMin > c.Gates.UtilMax {
		return fmt.Errorf("util bounds inverted: min %v > max %v", c.Gates.UtilMin, c.Gates.UtilMax)
	}
	if c.Rug.DropRatio <= 0 || c.Rug.DropRatio >= 1 {
		return fmt.Errorf("rug drop ratio must be in (0,1), got %v", c.Rug.DropRatio)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Providers.HeliusAPIKey = envString("HELIUS_API_KEY", cfg.Providers.HeliusAPIKey)
	cfg.Providers.BirdeyeAPIKey = envString("BIRDEYE_API_KEY", cfg.Providers.BirdeyeAPIKey)
	cfg.Providers.CoingeckoAPIKey = envString("COINGECKO_API_KEY", cfg.Providers.CoingeckoAPIKey)
	cfg.Providers.SolscanAPIKey = envString("SOLSCAN_API_KEY", cfg.Providers.SolscanAPIKey)

	// Endpoints: explicit URLs win; otherwise derive from the Helius key.
	cfg.WSURL = envString("SCANNER_WS_URL", cfg.WSURL)
	cfg.RPCURL = envString("SCANNER_RPC_URL", cfg.RPCURL)
	if cfg.WSURL == "" && cfg.Providers.HeliusAPIKey != "" {
		cfg.WSURL = fmt.Sprintf(mainnetWSURL, cfg.Providers.HeliusAPIKey)
	}
	if cfg.RPCURL == "" {
		if cfg.Providers.HeliusAPIKey != "" {
			cfg.RPCURL = fmt.Sprintf(mainnetRPCURL, cfg.Providers.HeliusAPIKey)
		} else {
			cfg.RPCURL = publicMainnetRPCURL
		}
	}

	cfg.Programs = envList("SCANNER_PROGRAMS", cfg.Programs)
	cfg.PoolPrograms = envList("SCANNER_POOL_PROGRAMS", cfg.PoolPrograms)
	cfg.QuoteMints = envList("SCANNER_QUOTE_MINTS", cfg.QuoteMints)

	cfg.QueueCapacity = envInt("SCANNER_QUEUE_CAPACITY", cfg.QueueCapacity)
	cfg.CooldownDuration = envSeconds("SCANNER_COOLDOWN_DURATION", cfg.CooldownDuration)

	cfg.Retry.MaxAttempts = envInt("SCANNER_MAX_RETRY_ATTEMPTS", cfg.Retry.MaxAttempts)
	cfg.Retry.InitialDelay = envSeconds("SCANNER_RETRY_INITIAL_DELAY", cfg.Retry.InitialDelay)
	cfg.Retry.Backoff = envFloat("SCANNER_RETRY_BACKOFF", cfg.Retry.Backoff)
	cfg.Retry.MaxDelay = envSeconds("SCANNER_RETRY_MAX_DELAY", cfg.Retry.MaxDelay)
	cfg.Retry.FetchTimeout = envSeconds("SCANNER_RETRY_FETCH_TIMEOUT", cfg.Retry.FetchTimeout)

	cfg.Breaker.FailureThreshold = envInt("SCANNER_BREAKER_THRESHOLD", cfg.Breaker.FailureThreshold)
	cfg.Breaker.OpenTimeout = envSeconds("SCANNER_BREAKER_TIMEOUT", cfg.Breaker.OpenTimeout)

	cfg.Gates.MinLiquidityUSD = envFloat("SCANNER_MIN_LIQUIDITY_USD", cfg.Gates.MinLiquidityUSD)
	cfg.Gates.MinVolume24hUSD = envFloat("SCANNER_MIN_VOLUME24H_USD", cfg.Gates.MinVolume24hUSD)
	cfg.Gates.MinBuyers30m = envInt("SCANNER_MIN_BUYERS_30M", cfg.Gates.MinBuyers30m)
	cfg.Gates.Buyers30mSoftMode = envBool("SCANNER_BUYERS30M_SOFT_MODE", cfg.Gates.Buyers30mSoftMode)
	cfg.Gates.MinAgeMin = envFloat("SCANNER_MIN_AGE_MIN", cfg.Gates.MinAgeMin)
	cfg.Gates.UtilMin = envFloat("SCANNER_UTIL_MIN", cfg.Gates.UtilMin)
	cfg.Gates.UtilMax = envFloat("SCANNER_UTIL_MAX", cfg.Gates.UtilMax)
	cfg.Gates.PoolMinTrades24h = envInt("SCANNER_POOL_MIN_TRADES24H", cfg.Gates.PoolMinTrades24h)
	cfg.Gates.PoolMaxLastTradeMin = envFloat("SCANNER_POOL_MAX_LAST_TRADE_MIN", cfg.Gates.PoolMaxLastTradeMin)
	cfg.Gates.EnableFDVSanity = envBool("SCANNER_ENABLE_FDV_SANITY", cfg.Gates.EnableFDVSanity)
	cfg.Gates.FDVSanityTolerance = envFloat("SCANNER_FDV_SANITY_TOLERANCE", cfg.Gates.FDVSanityTolerance)
	cfg.Gates.StrictPlaceholder = envBool("SCANNER_STRICT_PLACEHOLDER", cfg.Gates.StrictPlaceholder)
	cfg.Gates.PlaceholderPenalty = envFloat("SCANNER_PLACEHOLDER_PENALTY", cfg.Gates.PlaceholderPenalty)
	cfg.Gates.MinPublishScore = envFloat("SCANNER_MIN_PUBLISH_SCORE", cfg.Gates.MinPublishScore)
	cfg.Gates.MinSymbolLen = envInt("SCANNER_MIN_SYMBOL_LEN", cfg.Gates.MinSymbolLen)
	cfg.Gates.MaxSymbolLen = envInt("SCANNER_MAX_SYMBOL_LEN", cfg.Gates.MaxSymbolLen)

	cfg.Rug.Window = envSeconds("SCANNER_RUG_WINDOW", cfg.Rug.Window)
	cfg.Rug.DropRatio = envFloat("SCANNER_RUG_DROP_RATIO", cfg.Rug.DropRatio)
	cfg.Rug.BlacklistTTL = envSeconds("SCANNER_BLACKLIST_TTL", cfg.Rug.BlacklistTTL)

	cfg.Symbols.MinConfidence = envFloat("SCANNER_MIN_SYMBOL_CONFIDENCE", cfg.Symbols.MinConfidence)

	cfg.Janitor.Interval = envSeconds("SCANNER_MEMORY_CLEANUP_INTERVAL", cfg.Janitor.Interval)
	cfg.Janitor.LiquidityHistoryTTL = envSeconds("SCANNER_LIQUIDITY_HISTORY_TTL", cfg.Janitor.LiquidityHistoryTTL)

	cfg.Lookback.Interval = envSeconds("LOOKBACK_INTERVAL_SEC", cfg.Lookback.Interval)
	cfg.Lookback.Window = envSeconds("LOOKBACK_WINDOW_SEC", cfg.Lookback.Window)

	cfg.Health.Host = envString("SCANNER_HEALTH_HOST", cfg.Health.Host)
	cfg.Health.Port = envInt("SCANNER_HEALTH_PORT", cfg.Health.Port)
	cfg.Metrics.Host = envString("SCANNER_METRICS_HOST", cfg.Metrics.Host)
	cfg.Metrics.Port = envInt("SCANNER_METRICS_PORT", cfg.Metrics.Port)

	cfg.Notifier.BotToken = envString("TELEGRAM_BOT_TOKEN", cfg.Notifier.BotToken)
	cfg.Notifier.ChatID = envString("TELEGRAM_CHAT_ID", cfg.Notifier.ChatID)

	cfg.Files.EventsPath = envString("SCANNER_EVENTS_PATH", cfg.Files.EventsPath)
	cfg.Files.RejectsPath = envString("SCANNER_REJECTS_PATH", cfg.Files.RejectsPath)
	cfg.Files.PositionsPath = envString("SCANNER_POSITIONS_PATH", cfg.Files.PositionsPath)

	cfg.Archive.PostgresDSN = envString("SCANNER_ARCHIVE_PG_DSN", cfg.Archive.PostgresDSN)
	cfg.Archive.ClickhouseDSN = envString("SCANNER_ARCHIVE_CH_DSN", cfg.Archive.ClickhouseDSN)

	cfg.LogLevel = envString("SCANNER_LOG_LEVEL", cfg.LogLevel)
	cfg.LogPretty = envBool("SCANNER_LOG_PRETTY", cfg.LogPretty)
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// envSeconds parses either a bare number of seconds or a duration string.
func envSeconds(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if n, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(n * float64(time.Second))
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
