package archive

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/dexlab-run/mintscan/internal/domain"
)

// AsyncEventWriter decouples the dispatch path from the event store: a
// bounded buffer absorbs bursts and overflow drops the record rather
// than stalling the pipeline.
type AsyncEventWriter struct {
	store   EventStore
	ch      chan domain.EventRecord
	dropped atomic.Uint64
	log     zerolog.Logger

	stopOnce sync.Once
	done     chan struct{}
}

// NewAsyncEventWriter starts the background writer. capacity defaults
// to 256.
func NewAsyncEventWriter(store EventStore, capacity int, logger zerolog.Logger) *AsyncEventWriter {
	if capacity <= 0 {
		capacity = 256
	}
	w := &AsyncEventWriter{
		store: store,
		ch:    make(chan domain.EventRecord, capacity),
		log:   logger.With().Str("component", "event_archive").Logger(),
		done:  make(chan struct{}),
	}
	go w.run()
	return w
}

// ArchiveEvent enqueues one record without blocking.
func (w *AsyncEventWriter) ArchiveEvent(_ context.Context, rec domain.EventRecord) {
	select {
	case w.ch <- rec:
	default:
		w.dropped.Add(1)
	}
}

// Dropped reports records lost to buffer overflow.
func (w *AsyncEventWriter) Dropped() uint64 { return w.dropped.Load() }

func (w *AsyncEventWriter) run() {
	defer close(w.done)
	for rec := range w.ch {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := w.store.InsertEvent(ctx, rec)
		cancel()
		if err != nil && !errors.Is(err, ErrDuplicateKey) {
			w.log.Warn().Err(err).Str("mint", rec.Mint).Msg("event archive insert failed")
		}
	}
}

// Close drains the buffer and stops the writer.
func (w *AsyncEventWriter) Close() {
	w.stopOnce.Do(func() { close(w.ch) })
	<-w.done
}

// AsyncLiquidityWriter batches liquidity observations and flushes them
// on a timer or when the batch fills.
type AsyncLiquidityWriter struct {
	store     LiquidityStore
	flushSize int
	interval  time.Duration
	log       zerolog.Logger

	mu   sync.Mutex
	rows []LiquidityRow

	dropped atomic.Uint64

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// maxPendingRows bounds buffered observations when the store is down.
const maxPendingRows = 10_000

// NewAsyncLiquidityWriter starts the background flusher. flushSize
// defaults to 500, interval to 5 s.
func NewAsyncLiquidityWriter(store LiquidityStore, flushSize int, interval time.Duration, logger zerolog.Logger) *AsyncLiquidityWriter {
	if flushSize <= 0 {
		flushSize = 500
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}
	w := &AsyncLiquidityWriter{
		store:     store,
		flushSize: flushSize,
		interval:  interval,
		log:       logger.With().Str("component", "liquidity_archive").Logger(),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	go w.run()
	return w
}

// Observe buffers one liquidity observation.
func (w *AsyncLiquidityWriter) Observe(mint string, liquidityUSD float64, source string) {
	row := LiquidityRow{
		Mint:         mint,
		Timestamp:    time.Now(),
		LiquidityUSD: liquidityUSD,
		Source:       source,
	}

	w.mu.Lock()
	if len(w.rows) >= maxPendingRows {
		w.mu.Unlock()
		w.dropped.Add(1)
		return
	}
	w.rows = append(w.rows, row)
	full := len(w.rows) >= w.flushSize
	w.mu.Unlock()

	if full {
		w.flush()
	}
}

// Dropped reports observations lost to buffer overflow.
func (w *AsyncLiquidityWriter) Dropped() uint64 { return w.dropped.Load() }

func (w *AsyncLiquidityWriter) run() {
	defer close(w.done)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.flush()
		case <-w.stop:
			w.flush()
			return
		}
	}
}

func (w *AsyncLiquidityWriter) flush() {
	w.mu.Lock()
	if len(w.rows) == 0 {
		w.mu.Unlock()
		return
	}
	batch := w.rows
	w.rows = nil
	w.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := w.store.InsertRows(ctx, batch); err != nil {
		w.log.Warn().Err(err).Int("rows", len(batch)).Msg("liquidity archive flush failed")
	}
}

// Close flushes pending rows and stops the writer.
func (w *AsyncLiquidityWriter) Close() {
	w.stopOnce.Do(func() { close(w.stop) })
	<-w.done
}
