// Package llm provides the provider-agnostic LLM invocation contract used
// throughout the analysis workflow: a single Complete call per provider,
// wrapped in a per-call timeout, retry with exponential backoff, and a
// circuit breaker so a failing provider fails fast instead of queuing
// retries against a dead endpoint.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"github.com/logtrail/logtrail/internal/config"
)

// Error is the typed error every LLM failure is normalized into; no raw
// provider exception crosses into the workflow nodes.
type Error struct {
	Message string
	Cause   error
	Timeout bool
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Client is the provider-agnostic surface the workflow nodes call.
type Client interface {
	// Complete sends prompt to the model and returns its raw text response.
	Complete(ctx context.Context, prompt string) (string, error)
}

// retryableError reports whether err should trigger a retry. Only timeouts
// are retried (a per-call timeout or a context deadline); rate-limit and
// connection errors are not told apart from other failures and are
// returned without a retry.
func retryableError(err error) bool {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Timeout
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// Supervised wraps an underlying Client with the §4.6.9 contract: a
// per-call timeout, retry with exponential backoff bounded by
// cfg.MaxRetries/RetryMinWait/RetryMaxWait, and a circuit breaker that
// opens after sustained failures.
type Supervised struct {
	inner   Client
	cfg     config.LLMConfig
	breaker *gobreaker.CircuitBreaker
}

func NewSupervised(inner Client, cfg config.LLMConfig) *Supervised {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "llm",
		MaxRequests: 1,
		Interval:    0,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	return &Supervised{inner: inner, cfg: cfg, breaker: breaker}
}

// Complete runs the call through the circuit breaker, retry, and timeout
// layers, always returning either a response or a typed *Error.
func (s *Supervised) Complete(ctx context.Context, prompt string) (string, error) {
	maxRetries := s.cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	backoff := s.cfg.RetryMinWait
	if backoff <= 0 {
		backoff = 2 * time.Second
	}
	maxWait := s.cfg.RetryMaxWait
	if maxWait <= 0 {
		maxWait = 30 * time.Second
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		result, err := s.breaker.Execute(func() (any, error) {
			return s.completeOnce(ctx, prompt)
		})
		if err == nil {
			return result.(string), nil
		}

		lastErr = err
		if errors.Is(err, gobreaker.ErrOpenState) {
			return "", &Error{Message: "llm circuit breaker open", Cause: err}
		}
		if !retryableError(err) {
			return "", normalizeError(err)
		}
		if attempt == maxRetries-1 {
			break
		}

		select {
		case <-ctx.Done():
			return "", &Error{Message: "llm call cancelled", Cause: ctx.Err()}
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxWait {
			backoff = maxWait
		}
	}
	return "", normalizeError(lastErr)
}

func (s *Supervised) completeOnce(ctx context.Context, prompt string) (string, error) {
	timeout := s.cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resultCh := make(chan struct {
		text string
		err  error
	}, 1)

	go func() {
		text, err := s.inner.Complete(callCtx, prompt)
		resultCh <- struct {
			text string
			err  error
		}{text, err}
	}()

	select {
	case <-callCtx.Done():
		return "", &Error{Message: "llm call timed out", Cause: callCtx.Err(), Timeout: true}
	case r := <-resultCh:
		if r.err != nil {
			return "", normalizeError(r.err)
		}
		return r.text, nil
	}
}

// normalizeError wraps any non-*Error into one, matching the original's
// "every other exception is wrapped into a typed LLM error" guarantee.
func normalizeError(err error) error {
	if err == nil {
		return nil
	}
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr
	}
	return &Error{Message: "llm call failed", Cause: err}
}
