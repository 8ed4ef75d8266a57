package retry

import (
	"context"
	"errors"
	"net"
	"net/http"
	"syscall"
	"time"

	"github.com/modeldriven/crm-e2e/test/framework/webapi"
)

// Defaults applied when no option overrides them
const (
	DefaultMaxAttempts  = 3
	DefaultInitialDelay = 1 * time.Second
	DefaultMaxDelay     = 30 * time.Second
)

// Config controls how Do repeats a failing call
type Config struct {
	// MaxAttempts counts the first call
	MaxAttempts int

	// InitialDelay is the wait after the first failure. It doubles after
	// every further failure, up to MaxDelay.
	InitialDelay time.Duration
	MaxDelay     time.Duration

	// RetryIf selects the errors worth another attempt; nil retries every error
	RetryIf func(error) bool

	// OnRetry runs before each wait
	OnRetry func(attempt int, err error, delay time.Duration)
}

// Option modifies a Config
type Option func(*Config)

// WithMaxAttempts sets the number of calls, the first one included
func WithMaxAttempts(n int) Option {
	return func(c *Config) {
		c.MaxAttempts = n
	}
}

// WithInitialDelay sets the wait after the first failure
func WithInitialDelay(d time.Duration) Option {
	return func(c *Config) {
		c.InitialDelay = d
	}
}

// WithRetryIf sets the predicate deciding which errors are retried
func WithRetryIf(fn func(error) bool) Option {
	return func(c *Config) {
		c.RetryIf = fn
	}
}

// WithOnRetry sets a callback run before each wait
func WithOnRetry(fn func(attempt int, err error, delay time.Duration)) Option {
	return func(c *Config) {
		c.OnRetry = fn
	}
}

func newConfig(opts []Option) *Config {
	cfg := &Config{
		MaxAttempts:  DefaultMaxAttempts,
		InitialDelay: DefaultInitialDelay,
		MaxDelay:     DefaultMaxDelay,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.MaxDelay < cfg.InitialDelay {
		cfg.MaxDelay = cfg.InitialDelay
	}
	return cfg
}

// next returns the wait that follows d
func (c *Config) next(d time.Duration) time.Duration {
	return min(2*d, c.MaxDelay)
}

// PermanentError stops Do from retrying the error it wraps
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return e.Err.Error()
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// Permanent marks err as not worth retrying. Permanent(nil) is nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err was marked with Permanent
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}

// Do calls fn until it succeeds, returns an error that is permanent or
// rejected by RetryIf, or runs out of attempts. The last error is returned
// unwrapped from any PermanentError; a cancelled ctx returns ctx.Err().
func Do(ctx context.Context, fn func(ctx context.Context) error, opts ...Option) error {
	cfg := newConfig(opts)
	delay := cfg.InitialDelay

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}

		var pe *PermanentError
		if errors.As(err, &pe) {
			return pe.Err
		}
		if attempt >= cfg.MaxAttempts || (cfg.RetryIf != nil && !cfg.RetryIf(err)) {
			return err
		}

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay = cfg.next(delay)
	}
}

// DoWithData is Do for calls that return a value
func DoWithData[T any](ctx context.Context, fn func(ctx context.Context) (T, error), opts ...Option) (T, error) {
	var result T
	err := Do(ctx, func(ctx context.Context) error {
		var err error
		result, err = fn(ctx)
		return err
	}, opts...)
	return result, err
}

// IsTransient reports whether err is worth another attempt against the Web API:
// the request never got a response, or the service answered with a throttling
// or gateway status. Use it for reads, deletes and other idempotent calls.
func IsTransient(err error) bool {
	if err == nil || IsPermanent(err) {
		return false
	}
	if errors.Is(err, webapi.ErrTransport) {
		return true
	}
	switch webapi.StatusCode(err) {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// IsUnprocessed reports whether err shows the Web API cannot have acted on the
// request: it was throttled (429), refused as unavailable (503), or the
// connection failed before anything was sent. Timeouts and gateway errors are
// excluded because the server may have committed the write. Use it for creates.
func IsUnprocessed(err error) bool {
	if err == nil || IsPermanent(err) {
		return false
	}
	switch webapi.StatusCode(err) {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return true
	}
	if !errors.Is(err, webapi.ErrTransport) {
		return false
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	return errors.Is(err, syscall.ECONNREFUSED)
}
