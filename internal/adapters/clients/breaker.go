// Package clients provides the resilient HTTP client used to reach remote
// services such as the quote server.
package clients

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jsamuelsen/quotesync/internal/platform/config"
)

var (
	// ErrCircuitOpen is matched by every *OpenError.
	ErrCircuitOpen = errors.New("circuit breaker open")

	// ErrMaxRetriesExceeded wraps the last transport error once every
	// attempt has failed.
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
)

// State is a Breaker position. The numeric value is what the
// remote_circuit_state gauge reports.
type State int32

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// OpenError is returned while the breaker rejects calls.
type OpenError struct {
	Service string
	RetryIn time.Duration
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("circuit breaker open for %s, next probe in %s", e.Service, e.RetryIn.Round(time.Millisecond))
}

func (e *OpenError) Unwrap() error {
	return ErrCircuitOpen
}

// Breaker guards one remote service.
//
//	closed    -> open       after MaxFailures consecutive failures
//	open      -> half-open  once Timeout has passed since opening
//	half-open -> closed     after HalfOpenLimit successful probes
//	half-open -> open       on any failed probe
//
// At most HalfOpenLimit probes are in flight while half-open.
type Breaker struct {
	service string
	cfg     config.CircuitBreakerConfig
	now     func() time.Time

	mu        sync.Mutex
	state     State
	failures  int
	successes int
	probes    int
	openedAt  time.Time
	listeners []func(from, to State)
}

// NewBreaker creates a closed Breaker for service.
func NewBreaker(service string, cfg config.CircuitBreakerConfig) *Breaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = config.DefaultClientCircuitMaxFailures
	}

	if cfg.HalfOpenLimit <= 0 {
		cfg.HalfOpenLimit = config.DefaultClientCircuitHalfOpenLimit
	}

	return &Breaker{service: service, cfg: cfg, now: time.Now}
}

// OnTransition registers fn to run after every state change. Listeners run
// synchronously on the goroutine that caused the change, outside the lock.
func (b *Breaker) OnTransition(fn func(from, to State)) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.listeners = append(b.listeners, fn)
}

// Acquire asks to make one call. A nil error must be paired with exactly one
// Done.
func (b *Breaker) Acquire() error {
	b.mu.Lock()

	switch b.state {
	case StateClosed:
		b.mu.Unlock()
		return nil

	case StateOpen:
		wait := b.cfg.Timeout - b.now().Sub(b.openedAt)
		if wait > 0 {
			b.mu.Unlock()
			return &OpenError{Service: b.service, RetryIn: wait}
		}

		fire := b.moveTo(StateHalfOpen)
		b.probes = 1
		b.mu.Unlock()
		fire()

		return nil

	default:
		if b.probes >= b.cfg.HalfOpenLimit {
			b.mu.Unlock()
			return &OpenError{Service: b.service}
		}

		b.probes++
		b.mu.Unlock()

		return nil
	}
}

// Done reports how an acquired call ended. A nil err counts as a success and
// a context cancellation counts as neither success nor failure.
func (b *Breaker) Done(err error) {
	b.mu.Lock()

	if b.state == StateHalfOpen {
		b.probes--
	}

	fire := func() {}

	switch {
	case errors.Is(err, context.Canceled):
	case err == nil:
		fire = b.succeeded()
	default:
		fire = b.failed()
	}

	b.mu.Unlock()
	fire()
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.state
}

func (b *Breaker) succeeded() func() {
	switch b.state {
	case StateClosed:
		b.failures = 0
	case StateHalfOpen:
		b.successes++
		if b.successes >= b.cfg.HalfOpenLimit {
			return b.moveTo(StateClosed)
		}
	}

	return func() {}
}

func (b *Breaker) failed() func() {
	switch b.state {
	case StateClosed:
		b.failures++
		if b.failures >= b.cfg.MaxFailures {
			return b.moveTo(StateOpen)
		}
	case StateHalfOpen:
		return b.moveTo(StateOpen)
	}

	return func() {}
}

// moveTo changes state under b.mu and returns the listener calls to make
// once the lock is released.
func (b *Breaker) moveTo(to State) func() {
	from := b.state
	if from == to {
		return func() {}
	}

	b.state = to
	b.failures = 0
	b.successes = 0

	if to == StateOpen {
		b.openedAt = b.now()
		b.probes = 0
	}

	listeners := append([]func(from, to State){}, b.listeners...)

	return func() {
		for _, fn := range listeners {
			fn(from, to)
		}
	}
}
