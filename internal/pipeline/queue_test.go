package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dexlab-run/mintscan/internal/domain"
)

func TestQueue_OfferAndPop(t *testing.T) {
	q := NewQueue(4)

	if !q.Offer(domain.Candidate{Mint: "mint-a"}) {
		t.Fatal("offer should succeed on empty queue")
	}
	if q.Depth() != 1 {
		t.Errorf("depth = %d, want 1", q.Depth())
	}

	c, err := q.Pop(context.Background())
	if err != nil {
		t.Fatalf("Pop: %v", err)
	}
	if c.Mint != "mint-a" {
		t.Errorf("mint = %q, want mint-a", c.Mint)
	}
}

func TestQueue_DropsWhenFull(t *testing.T) {
	q := NewQueue(2)

	q.Offer(domain.Candidate{Mint: "a"})
	q.Offer(domain.Candidate{Mint: "b"})

	if q.Offer(domain.Candidate{Mint: "c"}) {
		t.Error("offer should fail on full queue")
	}
	if q.Dropped() != 1 {
		t.Errorf("dropped = %d, want 1", q.Dropped())
	}

	// FIFO order preserved; the newest candidate was the one dropped.
	first, _ := q.Pop(context.Background())
	if first.Mint != "a" {
		t.Errorf("first = %q, want a", first.Mint)
	}
}

func TestQueue_PopBlocksUntilOffer(t *testing.T) {
	q := NewQueue(1)

	go func() {
		time.Sleep(20 * time.Millisecond)
		q.Offer(domain.Candidate{Mint: "late"})
	}()

	c, err := q.Pop(context.Background())
	if err != nil {
		t.Fatalf("Pop: %v", err)
	}
	if c.Mint != "late" {
		t.Errorf("mint = %q, want late", c.Mint)
	}
}

func TestQueue_PopRespectsContext(t *testing.T) {
	q := NewQueue(1)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := q.Pop(ctx)
	if err != context.DeadlineExceeded {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
}

func TestQueue_CloseDrainsBuffered(t *testing.T) {
	q := NewQueue(2)
	q.Offer(domain.Candidate{Mint: "a"})
	q.Close()

	if q.Offer(domain.Candidate{Mint: "b"}) {
		t.Error("offer should fail after close")
	}

	// Buffered candidate still comes out.
	c, err := q.Pop(context.Background())
	if err != nil {
		t.Fatalf("Pop: %v", err)
	}
	if c.Mint != "a" {
		t.Errorf("mint = %q, want a", c.Mint)
	}

	if _, err := q.Pop(context.Background()); err != ErrQueueClosed {
		t.Errorf("err = %v, want ErrQueueClosed", err)
	}
}

func TestQueue_CloseIsIdempotent(t *testing.T) {
	q := NewQueue(1)
	q.Close()
	q.Close()
}

func TestQueue_ConcurrentOfferDuringClose(t *testing.T) {
	q := NewQueue(8)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					q.Offer(domain.Candidate{Mint: "racer"})
				}
			}
		}()
	}

	time.Sleep(5 * time.Millisecond)
	q.Close()
	close(stop)
	wg.Wait()

	if q.Offer(domain.Candidate{Mint: "late"}) {
		t.Error("offer should fail after close")
	}

	// Anything buffered before the close still drains, then the closed
	// state is reported.
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	for {
		_, err := q.Pop(ctx)
		if err == ErrQueueClosed {
			break
		}
		if err != nil {
			t.Fatalf("Pop: %v", err)
		}
	}
}
