package clients

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quotesync/internal/platform/config"
)

var errBoom = errors.New("boom")

// newTestBreaker returns a breaker on a hand-driven clock.
func newTestBreaker(maxFailures, halfOpenLimit int, timeout time.Duration) (*Breaker, *time.Time) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	b := NewBreaker("quote-server", config.CircuitBreakerConfig{
		MaxFailures:   maxFailures,
		Timeout:       timeout,
		HalfOpenLimit: halfOpenLimit,
	})
	b.now = func() time.Time { return now }

	return b, &now
}

func fail(t *testing.T, b *Breaker, n int) {
	t.Helper()

	for range n {
		require.NoError(t, b.Acquire())
		b.Done(errBoom)
	}
}

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	b, _ := newTestBreaker(3, 1, time.Minute)

	fail(t, b, 2)
	assert.Equal(t, StateClosed, b.State())

	fail(t, b, 1)
	assert.Equal(t, StateOpen, b.State())

	err := b.Acquire()

	var open *OpenError
	require.ErrorAs(t, err, &open)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, "quote-server", open.Service)
	assert.Equal(t, time.Minute, open.RetryIn)
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	b, _ := newTestBreaker(3, 1, time.Minute)

	fail(t, b, 2)

	require.NoError(t, b.Acquire())
	b.Done(nil)

	fail(t, b, 2)
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_CancellationIsNeutral(t *testing.T) {
	b, _ := newTestBreaker(1, 1, time.Minute)

	require.NoError(t, b.Acquire())
	b.Done(context.Canceled)

	assert.Equal(t, StateClosed, b.State())

	require.NoError(t, b.Acquire())
	b.Done(context.DeadlineExceeded)

	assert.Equal(t, StateOpen, b.State())
}

func TestBreaker_HalfOpenProbes(t *testing.T) {
	tests := []struct {
		name      string
		outcomes  []error
		wantState State
	}{
		{name: "enough successes close", outcomes: []error{nil, nil}, wantState: StateClosed},
		{name: "one success stays half-open", outcomes: []error{nil}, wantState: StateHalfOpen},
		{name: "failure reopens", outcomes: []error{nil, errBoom}, wantState: StateOpen},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, now := newTestBreaker(1, 2, time.Second)

			fail(t, b, 1)
			require.Error(t, b.Acquire())

			*now = now.Add(time.Second)

			for _, outcome := range tt.outcomes {
				require.NoError(t, b.Acquire())
				b.Done(outcome)
			}

			assert.Equal(t, tt.wantState, b.State())
		})
	}
}

func TestBreaker_HalfOpenLimitsConcurrentProbes(t *testing.T) {
	b, now := newTestBreaker(1, 2, time.Second)

	fail(t, b, 1)
	*now = now.Add(time.Second)

	require.NoError(t, b.Acquire())
	require.NoError(t, b.Acquire())
	assert.ErrorIs(t, b.Acquire(), ErrCircuitOpen)

	b.Done(nil)
	require.NoError(t, b.Acquire(), "a finished probe frees its slot")
}

func TestBreaker_ReopenRestartsTimeout(t *testing.T) {
	b, now := newTestBreaker(1, 1, 10*time.Second)

	fail(t, b, 1)
	*now = now.Add(10 * time.Second)

	require.NoError(t, b.Acquire())
	b.Done(errBoom)

	*now = now.Add(4 * time.Second)

	var open *OpenError
	require.ErrorAs(t, b.Acquire(), &open)
	assert.Equal(t, 6*time.Second, open.RetryIn)
}

func TestBreaker_OnTransition(t *testing.T) {
	b, now := newTestBreaker(1, 1, time.Second)

	var transitions []string
	b.OnTransition(func(from, to State) {
		transitions = append(transitions, from.String()+"->"+to.String())
	})

	fail(t, b, 1)
	*now = now.Add(time.Second)
	require.NoError(t, b.Acquire())
	b.Done(nil)

	assert.Equal(t, []string{"closed->open", "open->half-open", "half-open->closed"}, transitions)
}

func TestBreaker_ListenerMayReadState(t *testing.T) {
	b, _ := newTestBreaker(1, 1, time.Second)

	var seen State
	b.OnTransition(func(_, _ State) { seen = b.State() })

	fail(t, b, 1)

	assert.Equal(t, StateOpen, seen)
}

func TestBreaker_Concurrent(t *testing.T) {
	b := NewBreaker("quote-server", config.CircuitBreakerConfig{MaxFailures: 10000, Timeout: time.Second, HalfOpenLimit: 1})

	var wg sync.WaitGroup

	for i := range 50 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for range 100 {
				if b.Acquire() != nil {
					continue
				}

				if i%2 == 0 {
					b.Done(nil)
				} else {
					b.Done(errBoom)
				}
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, StateClosed, b.State())
}

func TestNewBreaker_Defaults(t *testing.T) {
	b := NewBreaker("quote-server", config.CircuitBreakerConfig{Timeout: time.Second})

	assert.Equal(t, config.DefaultClientCircuitMaxFailures, b.cfg.MaxFailures)
	assert.Equal(t, config.DefaultClientCircuitHalfOpenLimit, b.cfg.HalfOpenLimit)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "unknown", State(9).String())
}
