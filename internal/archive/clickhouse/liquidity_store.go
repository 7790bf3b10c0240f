package clickhouse

import (
	"context"
	"fmt"

	"github.com/dexlab-run/mintscan/internal/archive"
)

// LiquidityStore implements archive.LiquidityStore on ClickHouse.
// The table is a MergeTree; dedup is left to the engine and the query
// side, which suits a pure append workload.
type LiquidityStore struct {
	conn *Conn
}

// NewLiquidityStore creates the store.
func NewLiquidityStore(conn *Conn) *LiquidityStore {
	return &LiquidityStore{conn: conn}
}

// Compile-time interface check.
var _ archive.LiquidityStore = (*LiquidityStore)(nil)

// InsertRows appends a batch of liquidity observations.
func (s *LiquidityStore) InsertRows(ctx context.Context, rows []archive.LiquidityRow) error {
	if len(rows) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO liquidity_points (mint, ts, liquidity_usd, source)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range rows {
		if r.Mint == "" {
			return fmt.Errorf("%w: mint is required", archive.ErrInvalidInput)
		}
		if err := batch.Append(r.Mint, r.Timestamp, r.LiquidityUSD, r.Source); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// RowCount reports the archived observation count for one mint.
func (s *LiquidityStore) RowCount(ctx context.Context, mint string) (uint64, error) {
	var count uint64
	err := s.conn.QueryRow(ctx,
		`SELECT count(*) FROM liquidity_points WHERE mint = ?`, mint).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count liquidity points: %w", err)
	}
	return count, nil
}
