package clients

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/jsamuelsen/quotesync/internal/platform/config"
)

// backoff computes the wait before retry n (1 for the first retry):
// Initial * Multiplier^(n-1), capped at Max, then spread by ±Jitter.
type backoff struct {
	initial    time.Duration
	max        time.Duration
	multiplier float64
	jitter     float64
	rand       func() float64
}

func newBackoff(cfg config.RetryConfig) backoff {
	b := backoff{
		initial:    cfg.InitialInterval,
		max:        cfg.MaxInterval,
		multiplier: cfg.Multiplier,
		jitter:     cfg.JitterFactor,
		rand:       rand.Float64,
	}

	if b.multiplier < 1 {
		b.multiplier = 1
	}

	if b.max < b.initial {
		b.max = b.initial
	}

	return b
}

func (b backoff) delay(retry int) time.Duration {
	d := float64(b.initial) * math.Pow(b.multiplier, float64(max(retry-1, 0)))
	d = math.Min(d, float64(b.max))

	if b.jitter > 0 {
		d += d * b.jitter * (b.rand()*2 - 1)
	}

	return time.Duration(d)
}

// retryAfter reads a Retry-After header in either delta-seconds or HTTP-date
// form.
func retryAfter(resp *http.Response, now time.Time) (time.Duration, bool) {
	value := resp.Header.Get("Retry-After")
	if value == "" {
		return 0, false
	}

	if secs, err := strconv.Atoi(value); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second, true
	}

	if at, err := http.ParseTime(value); err == nil {
		return max(at.Sub(now), 0), true
	}

	return 0, false
}

// retryableStatus reports statuses worth another attempt. They also count
// as failures for the breaker.
func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

// isRetryableError reports transport errors worth another attempt:
// per-attempt timeouts and connection-level failures. The caller's own
// context is checked separately.
func isRetryableError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var opErr *net.OpError

	return errors.As(err, &opErr)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
