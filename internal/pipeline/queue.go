// Package pipeline drives candidates from discovery through
// enrichment, qualification and publishing.
package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/dexlab-run/mintscan/internal/domain"
)

// Queue errors.
var (
	// ErrQueueFull is reported (as a false Offer) when the mailbox is at
	// capacity; the producer drops the candidate.
	ErrQueueFull = errors.New("event queue full")
	// ErrQueueClosed means the pipeline is shutting down.
	ErrQueueClosed = errors.New("event queue closed")
)

// Queue is the bounded candidate mailbox between producers and the
// single consumer. Enqueue never blocks: a full queue drops the newest
// candidate and counts it. The candidate channel itself is never
// closed, so producers racing Close cannot panic; shutdown travels
// through a separate done channel.
type Queue struct {
	ch      chan domain.Candidate
	done    chan struct{}
	dropped atomic.Uint64

	closeOnce sync.Once
	closed    atomic.Bool
}

// NewQueue creates a queue with the given capacity (minimum 1).
func NewQueue(capacity int) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{
		ch:   make(chan domain.Candidate, capacity),
		done: make(chan struct{}),
	}
}

// Offer enqueues without blocking. Returns false when the queue is full
// or closed; full-queue drops are counted.
func (q *Queue) Offer(c domain.Candidate) bool {
	if q.closed.Load() {
		return false
	}
	select {
	case q.ch <- c:
		return true
	case <-q.done:
		return false
	default:
		q.dropped.Add(1)
		return false
	}
}

// Pop blocks until a candidate is available, the queue closes, or the
// context is cancelled. Candidates buffered before Close are drained
// before the closed state is reported.
func (q *Queue) Pop(ctx context.Context) (domain.Candidate, error) {
	select {
	case c := <-q.ch:
		return c, nil
	default:
	}
	select {
	case c := <-q.ch:
		return c, nil
	case <-q.done:
		return domain.Candidate{}, ErrQueueClosed
	case <-ctx.Done():
		return domain.Candidate{}, ctx.Err()
	}
}

// Close stops the queue. The consumer drains buffered candidates and
// then observes the done signal as its shutdown sentinel.
func (q *Queue) Close() {
	q.closeOnce.Do(func() {
		q.closed.Store(true)
		close(q.done)
	})
}

// Depth reports the number of buffered candidates.
func (q *Queue) Depth() int { return len(q.ch) }

// Capacity reports the configured bound.
func (q *Queue) Capacity() int { return cap(q.ch) }

// Dropped reports candidates rejected because the queue was full.
func (q *Queue) Dropped() uint64 { return q.dropped.Load() }
