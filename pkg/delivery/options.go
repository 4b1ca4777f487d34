package delivery

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/quartz"
)

const (
	DefaultTimeout           = 10 * time.Second
	DefaultMaxRetries        = 3
	DefaultInitialRetryDelay = 500 * time.Millisecond
)

// HeaderFunc resolves a header value when a request is built.
// Returning false omits the header from that attempt.
type HeaderFunc func(ctx context.Context) (string, bool)

// Attempt describes a single HTTP attempt.
type Attempt struct {
	Number     int
	StatusCode int
	Duration   time.Duration
	Err        error
}

// AttemptHook is called after every attempt, successful or not.
type AttemptHook func(Attempt)

type header struct {
	key     string
	resolve HeaderFunc
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout bounds each attempt. Default is 10 seconds.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMaxRetries sets the number of retries after the first attempt.
// Zero disables retries.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// WithInitialRetryDelay sets the delay before the first retry of the
// default backoff strategy.
func WithInitialRetryDelay(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.initialDelay = d
		}
	}
}

// WithBackoff replaces the default doubling backoff.
func WithBackoff(b BackoffStrategy) Option {
	return func(c *Client) {
		if b != nil {
			c.backoff = b
		}
	}
}

// WithHeader adds a static header to every request.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		if key == "" || value == "" {
			return
		}
		c.headers = append(c.headers, header{key: key, resolve: func(context.Context) (string, bool) {
			return value, true
		}})
	}
}

// WithHeaderFunc adds a header whose value is resolved per attempt.
func WithHeaderFunc(key string, fn HeaderFunc) Option {
	return func(c *Client) {
		if key != "" && fn != nil {
			c.headers = append(c.headers, header{key: key, resolve: fn})
		}
	}
}

// WithClock sets the clock used for backoff waits and timing.
func WithClock(clock quartz.Clock) Option {
	return func(c *Client) {
		if clock != nil {
			c.clock = clock
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics records attempt outcomes and durations.
func WithMetrics(m *Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithCircuitBreaker protects the endpoint. Share one breaker per endpoint.
func WithCircuitBreaker(cb *CircuitBreaker) Option {
	return func(c *Client) {
		c.breaker = cb
	}
}

// WithOnAttempt registers a hook called after every attempt.
func WithOnAttempt(hook AttemptHook) Option {
	return func(c *Client) {
		c.onAttempt = hook
	}
}
