package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dexlab-run/mintscan/internal/archive"
	"github.com/dexlab-run/mintscan/internal/domain"
)

// EventStore implements archive.EventStore on Postgres.
type EventStore struct {
	pool *Pool
}

// NewEventStore creates the store.
func NewEventStore(pool *Pool) *EventStore {
	return &EventStore{pool: pool}
}

// Compile-time interface check.
var _ archive.EventStore = (*EventStore)(nil)

// InsertEvent appends one evaluation record. (mint, ts) is unique;
// replays report ErrDuplicateKey.
func (s *EventStore) InsertEvent(ctx context.Context, rec domain.EventRecord) error {
	if rec.Mint == "" {
		return fmt.Errorf("%w: mint is required", archive.ErrInvalidInput)
	}

	dexJSON, err := json.Marshal(rec.Dex)
	if err != nil {
		return fmt.Errorf("marshal dex snapshot: %w", err)
	}
	notesJSON, err := json.Marshal(rec.Notes)
	if err != nil {
		return fmt.Errorf("marshal notes: %w", err)
	}

	query := `
		INSERT INTO token_events (
			ts, mint, program, symbol, decimals,
			dex, score, decision, notes, dex_reason, retry
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err = s.pool.Exec(ctx, query,
		rec.TS, rec.Mint, rec.Program, rec.Symbol, rec.Decimals,
		dexJSON, rec.Score, string(rec.Decision), notesJSON, rec.DexReason, rec.Retry,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return archive.ErrDuplicateKey
		}
		return fmt.Errorf("insert token event: %w", err)
	}
	return nil
}

// CountByDecision reports archived event counts per decision, for
// operational spot checks.
func (s *EventStore) CountByDecision(ctx context.Context) (map[string]int64, error) {
	rows, err := s.pool.Query(ctx, `SELECT decision, count(*) FROM token_events GROUP BY decision`)
	if err != nil {
		return nil, fmt.Errorf("count by decision: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var decision string
		var n int64
		if err := rows.Scan(&decision, &n); err != nil {
			return nil, fmt.Errorf("scan count row: %w", err)
		}
		out[decision] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate count rows: %w", err)
	}
	return out, nil
}
