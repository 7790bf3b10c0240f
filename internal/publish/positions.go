package publish

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/dexlab-run/mintscan/internal/domain"
)

// Position is one published token the downstream trader may act on.
type Position struct {
	Mint         string    `json:"mint"`
	Symbol       string    `json:"symbol"`
	Source       string    `json:"source"`
	Score        float64   `json:"score"`
	PriceUSD     *float64  `json:"price_usd,omitempty"`
	LiquidityUSD *float64  `json:"liq_usd,omitempty"`
	// Sources are the providers that answered OK on the last pass.
	Sources     []string  `json:"sources,omitempty"`
	PublishedAt time.Time `json:"published_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PositionBook maintains open_positions.json: the full set of currently
// published tokens, rewritten atomically on every change.
type PositionBook struct {
	path string

	mu        sync.Mutex
	positions map[string]Position
}

// OpenPositionBook loads the existing file when present and returns the
// book. A corrupt file starts the book empty rather than failing.
func OpenPositionBook(path string) (*PositionBook, error) {
	if path == "" {
		return nil, fmt.Errorf("positions path is required")
	}
	b := &PositionBook{path: path, positions: make(map[string]Position)}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return b, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var existing []Position
	if err := json.Unmarshal(data, &existing); err == nil {
		for _, p := range existing {
			b.positions[p.Mint] = p
		}
	}
	return b, nil
}

// Upsert records (or refreshes) a published token and rewrites the file.
func (b *PositionBook) Upsert(s *domain.Summary) error {
	now := s.EvaluatedAt
	if now.IsZero() {
		now = time.Now()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	pos, exists := b.positions[s.Mint]
	if !exists {
		pos = Position{Mint: s.Mint, PublishedAt: now}
	}
	pos.Symbol = s.Symbol
	pos.Source = s.Source.String()
	pos.Score = s.Score
	pos.UpdatedAt = now
	if s.Market != nil {
		if price, ok := s.Market.Float(domain.KeyPriceUSD); ok {
			pos.PriceUSD = &price
		}
		if liq, ok := s.Market.Float(domain.KeyLiquidityUSD); ok {
			pos.LiquidityUSD = &liq
		}
		if sources, ok := s.Market.Metadata[domain.KeySourcesOK].([]string); ok && len(sources) > 0 {
			pos.Sources = append([]string(nil), sources...)
		}
	}
	b.positions[s.Mint] = pos

	return b.persistLocked()
}

// Remove drops a mint (rug alert or blacklist) and rewrites the file.
func (b *PositionBook) Remove(mint string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.positions[mint]; !ok {
		return nil
	}
	delete(b.positions, mint)
	return b.persistLocked()
}

// Snapshot returns the open positions sorted by publish time.
func (b *PositionBook) Snapshot() []Position {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sortedLocked()
}

// Get returns the position for a mint, if open.
func (b *PositionBook) Get(mint string) (Position, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.positions[mint]
	return p, ok
}

// Has reports whether the mint is currently published.
func (b *PositionBook) Has(mint string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.positions[mint]
	return ok
}

// Len reports the number of open positions.
func (b *PositionBook) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.positions)
}

func (b *PositionBook) sortedLocked() []Position {
	out := make([]Position, 0, len(b.positions))
	for _, p := range b.positions {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PublishedAt.Equal(out[j].PublishedAt) {
			return out[i].Mint < out[j].Mint
		}
		return out[i].PublishedAt.Before(out[j].PublishedAt)
	})
	return out
}

// persistLocked rewrites the file via temp-and-rename so readers never
// observe a partial write.
func (b *PositionBook) persistLocked() error {
	data, err := json.MarshalIndent(b.sortedLocked(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal positions: %w", err)
	}

	dir := filepath.Dir(b.path)
	tmp, err := os.CreateTemp(dir, ".positions-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, b.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}
