package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/coder/quartz"

	"github.com/dmitrymomot/alytica/pkg/logger"
)

const (
	userAgent       = "alytica-go/1"
	maxResponseBody = 1 << 20
	maxErrorSnippet = 200
)

// Client posts JSON payloads to the collector with retries.
// Safe for concurrent use; share one Client across trackers.
type Client struct {
	baseURL string
	http    *http.Client

	timeout      time.Duration
	maxRetries   int
	initialDelay time.Duration
	backoff      BackoffStrategy
	headers      []header

	clock     quartz.Clock
	logger    *slog.Logger
	metrics   *Metrics
	breaker   *CircuitBreaker
	onAttempt AttemptHook
}

// New creates a Client for the collector at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		timeout:      DefaultTimeout,
		maxRetries:   DefaultMaxRetries,
		initialDelay: DefaultInitialRetryDelay,
		clock:        quartz.NewReal(),
		logger:       logger.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.backoff == nil {
		c.backoff = DefaultBackoffStrategy(c.initialDelay, c.maxRetries)
	}
	c.logger = c.logger.With(logger.Component("delivery"))
	return c
}

// Fetch posts payload as JSON to baseURL+endpoint.
//
// Any 2xx response succeeds; its body is returned if non-empty and must be
// valid JSON. A 401 returns ErrUnauthorized after a single attempt. Every
// other failure is retried up to maxRetries times and then reported as
// ErrDeliveryFailed wrapping the last cause. Cancelling ctx while waiting
// for a retry returns ctx.Err().
func (c *Client) Fetch(ctx context.Context, endpoint string, payload any) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Join(ErrInvalidPayload, err)
	}

	if c.breaker != nil && !c.breaker.Allow() {
		c.logger.WarnContext(ctx, "delivery skipped, circuit open", slog.String("endpoint", endpoint))
		return nil, ErrCircuitOpen
	}

	target := c.baseURL + endpoint
	var lastErr error

	for attempt := range c.maxRetries + 1 {
		if attempt > 0 {
			if err := c.wait(ctx, c.backoff.NextInterval(attempt)); err != nil {
				return nil, err
			}
		}

		result, res := c.attempt(ctx, target, body)
		res.Number = attempt + 1
		if c.onAttempt != nil {
			c.onAttempt(res)
		}

		switch {
		case res.Err == nil:
			c.metrics.observe(OutcomeSuccess, res.Duration)
			if c.breaker != nil {
				c.breaker.RecordSuccess()
			}
			return result, nil

		case errors.Is(res.Err, ErrUnauthorized):
			c.metrics.observe(OutcomeUnauthorized, res.Duration)
			c.logger.WarnContext(ctx, "collector rejected credentials",
				slog.String("endpoint", endpoint),
				logger.StatusCode(res.StatusCode),
			)
			return nil, ErrUnauthorized
		}

		c.metrics.observe(OutcomeFailure, res.Duration)
		lastErr = res.Err
		c.logger.DebugContext(ctx, "delivery attempt failed",
			slog.String("endpoint", endpoint),
			logger.Attempt(res.Number),
			logger.StatusCode(res.StatusCode),
			logger.Duration(res.Duration),
			logger.Error(res.Err),
		)
	}

	if c.breaker != nil {
		c.breaker.RecordFailure()
	}

	attempts := c.maxRetries + 1
	c.logger.ErrorContext(ctx, "delivery failed",
		slog.String("endpoint", endpoint),
		logger.Attempt(attempts),
		logger.Error(lastErr),
	)
	return nil, fmt.Errorf("%w: %d attempts: %w", ErrDeliveryFailed, attempts, lastErr)
}

func (c *Client) wait(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}

	timer := c.clock.NewTimer(d, "delivery", "backoff")
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Client) attempt(ctx context.Context, target string, body []byte) (json.RawMessage, Attempt) {
	start := c.clock.Now()
	var res Attempt
	finish := func(err error) (json.RawMessage, Attempt) {
		res.Duration = c.clock.Since(start)
		res.Err = err
		return nil, res
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return finish(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	for _, h := range c.headers {
		if v, ok := h.resolve(ctx); ok {
			req.Header.Set(h.key, v)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return finish(err)
	}
	defer func() { _ = resp.Body.Close() }()

	res.StatusCode = resp.StatusCode
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return finish(fmt.Errorf("read response: %w", err))
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return finish(ErrUnauthorized)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return finish(fmt.Errorf("%w: %d%s", ErrUnexpectedStatus, resp.StatusCode, snippet(data)))
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		res.Duration = c.clock.Since(start)
		return nil, res
	}
	if !json.Valid(data) {
		return finish(fmt.Errorf("%w%s", ErrInvalidResponse, snippet(data)))
	}

	res.Duration = c.clock.Since(start)
	return json.RawMessage(data), res
}

// snippet renders a single-line prefix of a response body for error text.
func snippet(data []byte) string {
	s := strings.TrimSpace(strings.ReplaceAll(string(data), "\n", " "))
	if s == "" {
		return ""
	}
	if len(s) > maxErrorSnippet {
		s = s[:maxErrorSnippet] + "..."
	}
	return ": " + s
}
