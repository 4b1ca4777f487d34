// Package delivery posts analytics envelopes to the collector.
//
// A Client sends one JSON payload per Fetch call and retries transient
// failures with a configurable backoff. The collector's answer decides what
// happens next:
//
//   - any 2xx status is a success; a non-empty body must be valid JSON and
//     is returned to the caller, an empty body yields nil
//   - 401 means the client credentials were rejected; Fetch returns
//     ErrUnauthorized after that single attempt
//   - everything else (transport errors, other statuses, undecodable
//     bodies) is retried, up to the configured number of retries
//
// # Usage
//
//	client := delivery.New("https://collector.example.com",
//	    delivery.WithHeader("alytica-client-id", clientID),
//	    delivery.WithMaxRetries(3),
//	    delivery.WithInitialRetryDelay(500*time.Millisecond),
//	)
//
//	result, err := client.Fetch(ctx, "/api/track", envelope)
//
// With the default backoff, retry n waits initialDelay * 2^(n-1), so three
// retries wait 500ms, 1s and 2s.
//
// # Headers
//
// Static headers are added with WithHeader. WithHeaderFunc resolves a value
// per attempt and can omit the header by returning false, which is how an
// optional client secret is attached only when configured.
//
// # Protection and observability
//
// A CircuitBreaker shared per collector endpoint rejects calls with
// ErrCircuitOpen after repeated exhausted deliveries. Metrics exposes
// alytica_delivery_attempts_total{outcome} and
// alytica_delivery_attempt_duration_seconds. WithOnAttempt receives every
// individual attempt.
//
// Waits go through a quartz.Clock so tests can drive retries with a mock
// clock instead of sleeping.
package delivery
