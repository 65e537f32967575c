package orchestrator

import (
	"sync"
	"time"
)

type breakerState string

const (
	stateClosed   breakerState = "closed"
	stateOpen     breakerState = "open"
	stateHalfOpen breakerState = "half_open"
)

// CircuitBreaker guards one external-call category (dns, whois, ssl, http)
// so a run of failures stops hammering a dead dependency. Grounded on the
// reference service's analyzer/threat_analyzer.go CircuitBreaker: a
// failure counter that opens the breaker past a threshold and half-opens
// it again after a cooldown.
type CircuitBreaker struct {
	mu           sync.Mutex
	failures     int
	maxFailures  int
	lastFailure  time.Time
	resetTimeout time.Duration
	state        breakerState
}

// NewCircuitBreaker builds a closed breaker that opens after maxFailures
// consecutive failures and attempts recovery after resetTimeout.
func NewCircuitBreaker(maxFailures int, resetTimeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
		state:        stateClosed,
	}
}

// Allow reports whether a call in this category may proceed, transitioning
// an open breaker to half-open once the cooldown has elapsed.
func (b *CircuitBreaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == stateOpen {
		if time.Since(b.lastFailure) > b.resetTimeout {
			b.state = stateHalfOpen
			return true
		}
		return false
	}
	return true
}

// RecordSuccess closes the breaker and resets its failure count.
func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	b.state = stateClosed
}

// RecordFailure increments the failure count and opens the breaker once
// maxFailures is reached.
func (b *CircuitBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.lastFailure = time.Now()
	if b.failures >= b.maxFailures {
		b.state = stateOpen
	}
}

// StateCode maps the breaker's state onto the metrics gauge convention:
// 0=closed 1=half_open 2=open.
func (b *CircuitBreaker) StateCode() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case stateHalfOpen:
		return 1
	case stateOpen:
		return 2
	default:
		return 0
	}
}
