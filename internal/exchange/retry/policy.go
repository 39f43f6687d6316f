// Package retry holds the retry budget and the delay between attempts
// used by the exchange REST client.
package retry

import (
	"context"
	"errors"
	"time"
)

const (
	DefaultMaxRetries  = 3
	DefaultBackoffBase = 200 * time.Millisecond
	DefaultBackoffMax  = 2 * time.Second
)

// Policy is immutable once handed to a client. MaxRetries counts
// attempts beyond the first one.
type Policy struct {
	MaxRetries  int
	BackoffBase time.Duration
	BackoffMax  time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:  DefaultMaxRetries,
		BackoffBase: DefaultBackoffBase,
		BackoffMax:  DefaultBackoffMax,
	}
}

func (p Policy) Validate() error {
	if p.MaxRetries < 0 {
		return errors.New("retry: max_retries не может быть отрицательным")
	}
	if p.BackoffBase < 0 {
		return errors.New("retry: backoff_base не может быть отрицательным")
	}
	if p.BackoffMax < p.BackoffBase {
		return errors.New("retry: backoff_max меньше backoff_base")
	}
	return nil
}

// Backoff returns min(base * 2^attempt, max).
func (p Policy) Backoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 62 {
		return p.BackoffMax
	}

	exp := int64(1) << attempt
	ceil := int64(p.BackoffBase) * exp
	if ceil < int64(p.BackoffBase) || ceil/exp != int64(p.BackoffBase) || ceil > int64(p.BackoffMax) {
		ceil = int64(p.BackoffMax)
	}
	return time.Duration(ceil)
}

// Wait prefers a server-provided hint over the exponential backoff.
func (p Policy) Wait(attempt int, hint *time.Duration) time.Duration {
	if hint != nil && *hint >= 0 {
		return *hint
	}
	return p.Backoff(attempt)
}

// A Sleeper blocks between attempts. It is the only place where a
// retrying call observes cancellation of its context.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type SleeperFunc func(ctx context.Context, d time.Duration) error

func (f SleeperFunc) Sleep(ctx context.Context, d time.Duration) error {
	return f(ctx, d)
}

// DefaultSleeper waits on a timer or until ctx is done.
var DefaultSleeper Sleeper = SleeperFunc(sleep)

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
