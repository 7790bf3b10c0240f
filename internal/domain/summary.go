package domain

import "time"

// Decision is the outcome of one qualification pass.
type Decision string

const (
	DecisionPublish Decision = "publish"
	DecisionDrop    Decision = "drop"
)

// Summary is emitted exactly once per candidate pulled from the queue.
// Retry passes emit additional summaries tagged as retries.
type Summary struct {
	Mint   string
	Symbol string
	Source Source

	// Market holds the merged provider metadata for the pass.
	Market *DexInfo

	Decision  Decision
	Score     float64
	DexStatus Status
	DexReason string
	Notes     []string

	RugAlert         bool
	BlacklistedUntil *time.Time

	Retry       bool // true on summary_retry passes
	EvaluatedAt time.Time
}

// HasNote reports whether the note tag was recorded during the pass.
func (s *Summary) HasNote(tag string) bool {
	for _, n := range s.Notes {
		if n == tag {
			return true
		}
	}
	return false
}

// AddNote appends a diagnostic tag, skipping duplicates.
func (s *Summary) AddNote(tag string) {
	if tag == "" || s.HasNote(tag) {
		return
	}
	s.Notes = append(s.Notes, tag)
}

// ResolvedSymbol is one entry of the resolved-symbol table.
type ResolvedSymbol struct {
	Symbol     string
	Confidence float64
	// Source names the provider that supplied the symbol.
	Source     string
	ResolvedAt time.Time
}

// LiquidityPoint is one observation of a mint's pool liquidity.
type LiquidityPoint struct {
	Timestamp    time.Time
	LiquidityUSD float64
}
