package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/dexlab-run/mintscan/internal/config"
	"github.com/dexlab-run/mintscan/internal/domain"
)

// scriptedSymbolSource answers each ResolveSymbol call from a script;
// the last entry repeats.
type scriptedSymbolSource struct {
	mu     sync.Mutex
	script []symbolAnswer
	calls  int
}

type symbolAnswer struct {
	symbol     string
	confidence float64
	err        error
}

func (s *scriptedSymbolSource) ResolveSymbol(context.Context, string) (string, float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.calls
	if idx >= len(s.script) {
		idx = len(s.script) - 1
	}
	s.calls++
	a := s.script[idx]
	return a.symbol, a.confidence, a.err
}

func (s *scriptedSymbolSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func shortSchedule(steps ...time.Duration) config.Symbols {
	return config.Symbols{Schedule: steps, MinConfidence: 0.7}
}

func TestSymbolResolver_ResolvesAndNotifies(t *testing.T) {
	src := &scriptedSymbolSource{script: []symbolAnswer{{"FOO", 0.95, nil}}}

	var mu sync.Mutex
	var notified []domain.ResolvedSymbol
	r := NewSymbolResolver(
		shortSchedule(5*time.Millisecond),
		[]NamedSymbolSource{{Name: "coingecko", Source: src}},
		func(_ context.Context, mint string, rs domain.ResolvedSymbol) {
			mu.Lock()
			notified = append(notified, rs)
			mu.Unlock()
		},
		zerolog.Nop(),
	)
	defer r.Stop()

	if !r.Enqueue(context.Background(), "MintABC") {
		t.Fatal("enqueue should succeed")
	}

	waitFor(t, time.Second, func() bool {
		_, ok := r.Lookup("MintABC")
		return ok
	})

	rs, _ := r.Lookup("MintABC")
	if rs.Symbol != "FOO" || rs.Confidence != 0.95 {
		t.Errorf("resolved = %+v, want FOO @ 0.95", rs)
	}
	if rs.Source != "coingecko" {
		t.Errorf("source = %q, want the answering provider", rs.Source)
	}
	if rs.ResolvedAt.IsZero() {
		t.Error("ResolvedAt should be set")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(notified) != 1 || notified[0].Symbol != "FOO" {
		t.Errorf("notified = %+v, want one FOO callback", notified)
	}
}

func TestSymbolResolver_ConfidenceFloor(t *testing.T) {
	// First answer is below the floor, second clears it.
	src := &scriptedSymbolSource{script: []symbolAnswer{
		{"BAR", 0.5, nil},
		{"BAR", 0.9, nil},
	}}
	r := NewSymbolResolver(
		shortSchedule(5*time.Millisecond, 15*time.Millisecond),
		[]NamedSymbolSource{{Name: "jupiter", Source: src}},
		nil, zerolog.Nop(),
	)
	defer r.Stop()

	r.Enqueue(context.Background(), "m")
	waitFor(t, time.Second, func() bool {
		_, ok := r.Lookup("m")
		return ok
	})

	rs, _ := r.Lookup("m")
	if rs.Confidence != 0.9 {
		t.Errorf("confidence = %v, want the second attempt's 0.9", rs.Confidence)
	}
	if src.callCount() != 2 {
		t.Errorf("source calls = %d, want 2", src.callCount())
	}
}

func TestSymbolResolver_PlaceholderAnswersSkipped(t *testing.T) {
	placeholder := &scriptedSymbolSource{script: []symbolAnswer{{"TOKEN_ABC123", 0.99, nil}}}
	authoritative := &scriptedSymbolSource{script: []symbolAnswer{{"REAL", 0.8, nil}}}
	r := NewSymbolResolver(
		shortSchedule(5*time.Millisecond),
		[]NamedSymbolSource{
			{Name: "first", Source: placeholder},
			{Name: "second", Source: authoritative},
		},
		nil, zerolog.Nop(),
	)
	defer r.Stop()

	r.Enqueue(context.Background(), "m")
	waitFor(t, time.Second, func() bool {
		_, ok := r.Lookup("m")
		return ok
	})

	rs, _ := r.Lookup("m")
	if rs.Symbol != "REAL" {
		t.Errorf("symbol = %q, want REAL from the second source", rs.Symbol)
	}
}

func TestSymbolResolver_SourceErrorFallsThrough(t *testing.T) {
	failing := &scriptedSymbolSource{script: []symbolAnswer{{"", 0, errors.New("rate limited")}}}
	working := &scriptedSymbolSource{script: []symbolAnswer{{"OK", 0.8, nil}}}
	r := NewSymbolResolver(
		shortSchedule(5*time.Millisecond),
		[]NamedSymbolSource{
			{Name: "failing", Source: failing},
			{Name: "working", Source: working},
		},
		nil, zerolog.Nop(),
	)
	defer r.Stop()

	r.Enqueue(context.Background(), "m")
	waitFor(t, time.Second, func() bool {
		_, ok := r.Lookup("m")
		return ok
	})
}

func TestSymbolResolver_ScheduleExhausts(t *testing.T) {
	src := &scriptedSymbolSource{script: []symbolAnswer{{"", 0, nil}}}
	r := NewSymbolResolver(
		shortSchedule(5*time.Millisecond, 10*time.Millisecond, 15*time.Millisecond),
		[]NamedSymbolSource{{Name: "empty", Source: src}},
		nil, zerolog.Nop(),
	)
	defer r.Stop()

	r.Enqueue(context.Background(), "m")
	waitFor(t, time.Second, func() bool {
		_, pending := r.Sizes()
		return pending == 0
	})

	if src.callCount() != 3 {
		t.Errorf("source calls = %d, want one per schedule step", src.callCount())
	}
	if _, ok := r.Lookup("m"); ok {
		t.Error("mint should not be resolved after exhaustion")
	}
}

func TestSymbolResolver_EnqueueDedup(t *testing.T) {
	src := &scriptedSymbolSource{script: []symbolAnswer{{"FOO", 0.9, nil}}}
	r := NewSymbolResolver(
		shortSchedule(50*time.Millisecond),
		[]NamedSymbolSource{{Name: "s", Source: src}},
		nil, zerolog.Nop(),
	)
	defer r.Stop()

	if !r.Enqueue(context.Background(), "m") {
		t.Fatal("first enqueue should succeed")
	}
	if r.Enqueue(context.Background(), "m") {
		t.Error("pending mint should not be enqueued twice")
	}

	waitFor(t, time.Second, func() bool {
		_, ok := r.Lookup("m")
		return ok
	})
	if r.Enqueue(context.Background(), "m") {
		t.Error("resolved mint should not be enqueued again")
	}
}

func TestSymbolResolver_EvictResolved(t *testing.T) {
	r := NewSymbolResolver(shortSchedule(time.Hour), nil, nil, zerolog.Nop())
	defer r.Stop()

	r.mu.Lock()
	r.resolved["old"] = domain.ResolvedSymbol{Symbol: "OLD", ResolvedAt: time.Now().Add(-25 * time.Hour)}
	r.resolved["new"] = domain.ResolvedSymbol{Symbol: "NEW", ResolvedAt: time.Now()}
	r.mu.Unlock()

	if n := r.EvictResolved(24 * time.Hour); n != 1 {
		t.Errorf("evicted = %d, want 1", n)
	}
	if _, ok := r.Lookup("old"); ok {
		t.Error("old entry should be gone")
	}
	if _, ok := r.Lookup("new"); !ok {
		t.Error("fresh entry should survive")
	}
}
