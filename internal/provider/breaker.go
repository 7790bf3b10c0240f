package provider

import (
	"errors"
	"sync"
	"time"
)

// ErrBreakerOpen is returned when a provider call is short-circuited.
var ErrBreakerOpen = errors.New("circuit breaker open")

// CircuitState is the breaker state machine position.
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// BreakerConfig tunes a circuit breaker.
type BreakerConfig struct {
	// FailureThreshold is the consecutive-failure count that opens the
	// circuit. Defaults to 5.
	FailureThreshold int
	// OpenTimeout is how long the circuit stays open before allowing a
	// single half-open probe. Defaults to 60 s.
	OpenTimeout time.Duration
}

// DefaultBreakerConfig returns the standard breaker tuning.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		OpenTimeout:      60 * time.Second,
	}
}

// CircuitBreaker tracks consecutive failures for one provider. While
// open it rejects requests; after the open timeout it admits exactly
// one probe, closing on success and re-opening on failure.
type CircuitBreaker struct {
	name        string
	threshold   int
	openTimeout time.Duration

	mu            sync.Mutex
	state         CircuitState
	failures      int
	lastFailure   time.Time
	probeInFlight bool
}

// NewCircuitBreaker creates a closed breaker for the named provider.
func NewCircuitBreaker(name string, cfg BreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 60 * time.Second
	}
	return &CircuitBreaker{
		name:        name,
		threshold:   cfg.FailureThreshold,
		openTimeout: cfg.OpenTimeout,
		state:       CircuitClosed,
	}
}

// AllowRequest reports whether a call may proceed right now. The
// open-to-half-open transition happens here, and only one half-open
// probe is admitted until its result is recorded.
func (b *CircuitBreaker) AllowRequest() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case CircuitClosed:
		return true
	case CircuitOpen:
		if time.Since(b.lastFailure) >= b.openTimeout {
			b.state = CircuitHalfOpen
			b.probeInFlight = true
			return true
		}
		return false
	case CircuitHalfOpen:
		if b.probeInFlight {
			return false
		}
		b.probeInFlight = true
		return true
	default:
		return false
	}
}

// RecordSuccess closes the circuit and resets the failure count.
func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	b.probeInFlight = false
	b.state = CircuitClosed
}

// RecordFailure increments the failure count, opening the circuit when
// the threshold is reached. A half-open probe failure re-opens
// immediately with a refreshed timestamp.
func (b *CircuitBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.lastFailure = time.Now()
	b.probeInFlight = false

	if b.state == CircuitHalfOpen || b.failures >= b.threshold {
		b.state = CircuitOpen
	}
}

// State returns the current position of the state machine.
func (b *CircuitBreaker) State() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Stats is a snapshot of one breaker for health inspection.
type Stats struct {
	Name        string    `json:"name"`
	State       string    `json:"state"`
	Failures    int       `json:"failures"`
	LastFailure time.Time `json:"last_failure,omitempty"`
}

// Snapshot returns the breaker's current stats.
func (b *CircuitBreaker) Snapshot() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Stats{
		Name:        b.name,
		State:       b.state.String(),
		Failures:    b.failures,
		LastFailure: b.lastFailure,
	}
}
