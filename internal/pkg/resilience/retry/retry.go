// Package retry provides a configurable retry mechanism for transient RPC
// failures. It wraps the retry-go package from Avast and exposes a simple
// interface with functional options for customizing retry behavior.
//
// The defaults match the engine's failure budget: one initial attempt plus
// two retries with exponential backoff starting at 200ms and capped at 800ms.
package retry

import (
	"context"
	"time"

	retry "github.com/avast/retry-go/v4"
)

// Retry defines the interface for retry operations.
type Retry interface {
	// Execute runs the given function with configured retry logic. The
	// operation should be idempotent. Execute returns nil if the operation
	// succeeds within the configured number of attempts, the last error if
	// all attempts fail, or the context error if ctx ends first.
	Execute(ctx context.Context, operation func() error) error
}

// config holds internal settings for the retry mechanism.
type config struct {
	attempts  uint          // maximum number of attempts, including the first
	delay     time.Duration // base delay between retry attempts
	maxDelay  time.Duration // maximum delay between retry attempts
	retryIf   func(error) bool
}

// Option defines a functional option for configuring the retry mechanism.
type Option func(*config)

// retrier implements the Retry interface using the retry-go package.
type retrier struct {
	cfg config
}

// Compile-time assertion that retrier implements Retry interface
var _ Retry = (*retrier)(nil)

// New creates and returns a Retry implementation configured with the provided
// options. Defaults: 3 attempts, 200ms base delay, 800ms max delay,
// exponential backoff, every error retryable.
func New(opts ...Option) Retry {
	cfg := config{
		attempts: 3,
		delay:    200 * time.Millisecond,
		maxDelay: 800 * time.Millisecond,
		retryIf:  func(error) bool { return true },
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &retrier{
		cfg: cfg,
	}
}

// Execute implements the Retry interface.
func (r *retrier) Execute(ctx context.Context, operation func() error) error {
	options := []retry.Option{
		retry.Attempts(r.cfg.attempts),
		retry.Delay(r.cfg.delay),
		retry.MaxDelay(r.cfg.maxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(r.cfg.retryIf),
		retry.Context(ctx),
	}

	return retry.Do(operation, options...)
}

// WithAttempts sets the maximum number of attempts (including the initial attempt).
func WithAttempts(n uint) Option {
	return func(c *config) {
		c.attempts = n
	}
}

// WithDelay sets the base delay between retry attempts.
func WithDelay(d time.Duration) Option {
	return func(c *config) {
		c.delay = d
	}
}

// WithMaxDelay sets the maximum delay between retry attempts, capping the
// exponential growth.
func WithMaxDelay(d time.Duration) Option {
	return func(c *config) {
		c.maxDelay = d
	}
}

// WithRetryIf restricts which errors are considered transient. Errors the
// predicate rejects abort the loop immediately.
func WithRetryIf(pred func(error) bool) Option {
	return func(c *config) {
		c.retryIf = pred
	}
}
