package runtime

import (
	"context"
	"errors"
	"math"
	"net"
	"syscall"
	"time"

	errspkg "github.com/portabus/portabus/internal/runtime/errors"
)

// RetryPolicy tunes the retry decorator around an adapter's publish call.
// Zero values are replaced with defaults by withDefaults.
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	// AttemptTimeout bounds a single transport send, independent of the
	// backoff budget, so one hung call cannot starve remaining attempts.
	AttemptTimeout time.Duration
	// RetryIf overrides the default transient-error classifier.
	RetryIf func(error) bool
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.InitialInterval <= 0 {
		p.InitialInterval = time.Second
	}
	if p.Multiplier <= 0 {
		p.Multiplier = 2.0
	}
	if p.MaxInterval <= 0 {
		p.MaxInterval = 30 * time.Second
	}
	if p.AttemptTimeout <= 0 {
		p.AttemptTimeout = 30 * time.Second
	}
	return p
}

// Backoff returns the sleep before the given retry, 1-based:
// min(initial * multiplier^(attempt-1), cap).
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := float64(p.InitialInterval) * math.Pow(p.Multiplier, float64(attempt-1))
	if d > float64(p.MaxInterval) {
		return p.MaxInterval
	}
	return time.Duration(d)
}

func (p RetryPolicy) shouldRetry(err error) bool {
	if p.RetryIf != nil {
		return p.RetryIf(err)
	}
	return Retryable(err)
}

// RetryableError lets transports mark their own error types as transient,
// extending the allow-list without adapter-specific knowledge in the core.
type RetryableError interface {
	Retryable() bool
}

// Retryable classifies an error against the fixed allow-list of transient
// categories: I/O timeouts, connection refused/reset, deadline expiry,
// broker-reported throttling or retriable conditions, and any error marking
// itself retryable. Everything else is permanent.
func Retryable(err error) bool {
	if err == nil {
		return false
	}

	var marked RetryableError
	if errors.As(err, &marked) {
		return marked.Retryable()
	}

	if errors.Is(err, errspkg.ErrThrottled) || errors.Is(err, errspkg.ErrRetriable) {
		return true
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET)
}

// sleep waits for d on a timer, bailing out when ctx ends. It runs on the
// publish goroutine, never on a caller thread.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
