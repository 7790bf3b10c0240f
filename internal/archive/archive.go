// Package archive provides optional write-only long-term storage for
// event records (Postgres) and liquidity observations (ClickHouse).
// Both archives are best-effort: the live pipeline never blocks on or
// fails because of them.
package archive

import (
	"context"
	"errors"
	"time"

	"github.com/dexlab-run/mintscan/internal/domain"
)

// Archive errors.
var (
	// ErrDuplicateKey means the record already exists; archives are
	// append-only and duplicates are silently skipped upstream.
	ErrDuplicateKey = errors.New("duplicate key: archive is append-only")

	// ErrInvalidInput is returned when record validation fails.
	ErrInvalidInput = errors.New("invalid input")
)

// EventStore persists one event record per evaluation pass.
type EventStore interface {
	InsertEvent(ctx context.Context, rec domain.EventRecord) error
}

// LiquidityRow is one archived liquidity observation.
type LiquidityRow struct {
	Mint         string
	Timestamp    time.Time
	LiquidityUSD float64
	Source       string
}

// LiquidityStore persists liquidity observations in batches.
type LiquidityStore interface {
	InsertRows(ctx context.Context, rows []LiquidityRow) error
}
