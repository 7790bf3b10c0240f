package observability

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/dexlab-run/mintscan/internal/publish"
)

// HealthStatus is the /health response body.
type HealthStatus struct {
	Status        string         `json:"status"`
	QueueSize     int            `json:"queue_size"`
	ActiveRetries int            `json:"active_retries"`
	MemoryUsage   map[string]int `json:"memory_usage"`
	UptimeSeconds float64        `json:"uptime_seconds"`
}

// HealthSource produces the current health snapshot.
type HealthSource func() HealthStatus

// NewHealthHandler serves GET /health and GET /trading. trader may be
// nil, in which case /trading reports an empty list.
func NewHealthHandler(source HealthSource, trader publish.TraderView, logger zerolog.Logger) http.Handler {
	log := logger.With().Str("component", "health_server").Logger()
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, source(), log)
	})

	mux.HandleFunc("/trading", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		positions := []publish.Position{}
		if trader != nil {
			positions = trader.Snapshot()
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"count":     len(positions),
			"positions": positions,
		}, log)
	})

	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any, log zerolog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("encode response failed")
	}
}

// Serve runs an HTTP server until ctx-free shutdown is requested via
// the returned stop function.
func Serve(addr string, handler http.Handler, logger zerolog.Logger) (*http.Server, func()) {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	log := logger.With().Str("component", "http_server").Str("addr", addr).Logger()

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("http server failed")
		}
	}()

	stop := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("http server shutdown failed")
		}
	}
	return srv, stop
}
