// Package supervisor generalizes the teacher's DB health monitor into a
// domain-agnostic restart/backoff loop: any long-running background task
// that returns an error gets restarted with exponential backoff, up to a
// bounded number of consecutive failures before the supervisor gives up
// permanently.
package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Config bounds a supervised task's restart behavior.
type Config struct {
	MinBackoff          time.Duration // default 1s
	MaxBackoff          time.Duration // default 300s
	MaxConsecutiveFails int           // default 5, also applied when 0 or negative
	ResetAfter          time.Duration // a run lasting this long resets the failure counter
	Logger              *slog.Logger
}

func (c *Config) setDefaults() {
	if c.MinBackoff <= 0 {
		c.MinBackoff = time.Second
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 300 * time.Second
	}
	if c.MaxConsecutiveFails <= 0 {
		c.MaxConsecutiveFails = 5
	}
	if c.ResetAfter <= 0 {
		c.ResetAfter = time.Minute
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// ErrPermanentlyStopped is returned by Run when a task has exceeded its
// consecutive-failure budget and will not be restarted again.
var ErrPermanentlyStopped = errors.New("supervisor: task stopped permanently after repeated failures")

// Run supervises fn: a single task function taking a context it must
// honor for cancellation. If fn returns a non-nil error (or panics), Run
// restarts it after an exponentially growing backoff (capped at
// cfg.MaxBackoff). If a run lasts at least cfg.ResetAfter, the failure
// counter resets to zero on the next failure. After cfg.MaxConsecutiveFails
// failures in a row without an intervening long-enough run, Run returns
// ErrPermanentlyStopped rather than restarting again. Run returns nil if
// ctx is cancelled while fn is healthy.
func Run(ctx context.Context, name string, cfg Config, fn func(context.Context) error) error {
	cfg.setDefaults()

	failures := 0
	backoff := cfg.MinBackoff

	for {
		if ctx.Err() != nil {
			return nil
		}

		started := time.Now()
		err := runOnce(ctx, fn)
		ran := time.Since(started)

		if ctx.Err() != nil {
			return nil
		}

		if err == nil {
			cfg.Logger.Warn("supervised task exited without error, restarting",
				"task", name, "ran_for", ran)
		} else {
			cfg.Logger.Error("supervised task failed",
				"task", name, "error", err, "ran_for", ran, "consecutive_failures", failures+1)
		}

		if ran >= cfg.ResetAfter {
			failures = 0
			backoff = cfg.MinBackoff
		}

		failures++
		if failures >= cfg.MaxConsecutiveFails {
			cfg.Logger.Error("supervised task exceeded consecutive failure budget, stopping permanently",
				"task", name, "consecutive_failures", failures)
			return ErrPermanentlyStopped
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > cfg.MaxBackoff {
			backoff = cfg.MaxBackoff
		}
	}
}

// runOnce invokes fn, converting a panic into an error so a single bad
// task iteration cannot bring down the supervisor goroutine.
func runOnce(ctx context.Context, fn func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.New("panic in supervised task")
		}
	}()
	return fn(ctx)
}

// RetryInit runs fn up to attempts times with cfg's backoff, returning
// nil on the first success. Used for one-shot bounded-retry initialization
// (for example, acquiring the database pool at startup) rather than a
// long-running supervised loop.
func RetryInit(ctx context.Context, attempts int, cfg Config, fn func(context.Context) error) error {
	cfg.setDefaults()
	if attempts <= 0 {
		attempts = 3
	}

	backoff := cfg.MinBackoff
	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		cfg.Logger.Warn("init attempt failed", "attempt", i+1, "attempts", attempts, "error", lastErr)
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > cfg.MaxBackoff {
			backoff = cfg.MaxBackoff
		}
	}
	return lastErr
}
