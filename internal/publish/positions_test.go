package publish

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dexlab-run/mintscan/internal/domain"
)

func bookSummary(mint, symbol string, score float64, at time.Time) *domain.Summary {
	info := domain.NewDexInfo(domain.StatusOK)
	info.Set(domain.KeyPriceUSD, 0.8)
	info.Set(domain.KeyLiquidityUSD, 2500.0)
	return &domain.Summary{
		Mint:        mint,
		Symbol:      symbol,
		Source:      domain.SourceHeliusLogs,
		Market:      info,
		Decision:    domain.DecisionPublish,
		Score:       score,
		EvaluatedAt: at,
	}
}

func TestPositionBook_UpsertAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "open_positions.json")
	book, err := OpenPositionBook(path)
	if err != nil {
		t.Fatalf("OpenPositionBook: %v", err)
	}

	t0 := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	if err := book.Upsert(bookSummary("MintA", "AAA", 60, t0)); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := book.Upsert(bookSummary("MintB", "BBB", 45, t0.Add(time.Minute))); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	// Refresh keeps PublishedAt, moves UpdatedAt.
	if err := book.Upsert(bookSummary("MintA", "AAA", 72, t0.Add(2*time.Minute))); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	reloaded, err := OpenPositionBook(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Len() != 2 {
		t.Fatalf("len = %d, want 2", reloaded.Len())
	}

	snap := reloaded.Snapshot()
	if snap[0].Mint != "MintA" || snap[1].Mint != "MintB" {
		t.Errorf("order = %s, %s, want publish-time order MintA, MintB", snap[0].Mint, snap[1].Mint)
	}
	a := snap[0]
	if a.Score != 72 {
		t.Errorf("score = %v, want refreshed 72", a.Score)
	}
	if !a.PublishedAt.Equal(t0) {
		t.Errorf("published_at = %v, want original %v", a.PublishedAt, t0)
	}
	if !a.UpdatedAt.Equal(t0.Add(2 * time.Minute)) {
		t.Errorf("updated_at = %v, want refreshed", a.UpdatedAt)
	}
	if a.PriceUSD == nil || *a.PriceUSD != 0.8 {
		t.Errorf("price = %v, want 0.8", a.PriceUSD)
	}
}

func TestPositionBook_CarriesSources(t *testing.T) {
	path := filepath.Join(t.TempDir(), "open_positions.json")
	book, err := OpenPositionBook(path)
	if err != nil {
		t.Fatalf("OpenPositionBook: %v", err)
	}

	sum := bookSummary("MintSrc", "AAA", 60, time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC))
	sum.Market.Set(domain.KeySourcesOK, []string{"birdeye", "dexscreener"})
	if err := book.Upsert(sum); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	pos, ok := book.Get("MintSrc")
	if !ok {
		t.Fatal("position should be open")
	}
	if len(pos.Sources) != 2 || pos.Sources[0] != "birdeye" || pos.Sources[1] != "dexscreener" {
		t.Errorf("sources = %v", pos.Sources)
	}

	reloaded, err := OpenPositionBook(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	pos, _ = reloaded.Get("MintSrc")
	if len(pos.Sources) != 2 {
		t.Errorf("reloaded sources = %v, want them persisted", pos.Sources)
	}

	if _, ok := book.Get("NeverPublished"); ok {
		t.Error("Get should miss unknown mints")
	}
}

func TestPositionBook_Remove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "open_positions.json")
	book, _ := OpenPositionBook(path)

	book.Upsert(bookSummary("MintA", "AAA", 60, time.Now()))
	if err := book.Remove("MintA"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if book.Has("MintA") {
		t.Error("mint should be gone")
	}
	if err := book.Remove("MintA"); err != nil {
		t.Errorf("removing a missing mint should be a no-op, got %v", err)
	}

	reloaded, _ := OpenPositionBook(path)
	if reloaded.Len() != 0 {
		t.Errorf("reloaded len = %d, want 0", reloaded.Len())
	}
}

func TestPositionBook_CorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "open_positions.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	book, err := OpenPositionBook(path)
	if err != nil {
		t.Fatalf("OpenPositionBook: %v", err)
	}
	if book.Len() != 0 {
		t.Errorf("len = %d, want 0 for a corrupt file", book.Len())
	}
}

func TestPositionBook_RequiresPath(t *testing.T) {
	if _, err := OpenPositionBook(""); err == nil {
		t.Error("empty path should fail")
	}
}
