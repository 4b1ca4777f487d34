package delivery_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/alytica/pkg/delivery"
)

type envelope struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

func newServer(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_Fetch_Success(t *testing.T) {
	t.Parallel()

	payload := envelope{Type: "track", Payload: map[string]any{"name": "signup"}}

	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/track", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "alytica-go/1", r.Header.Get("User-Agent"))
		assert.Equal(t, "client-1", r.Header.Get("alytica-client-id"))
		assert.Equal(t, "s3cret", r.Header.Get("alytica-client-secret"))
		_, present := r.Header["Omitted"]
		assert.False(t, present)

		body, err := io.ReadAll(r.Body)
		if assert.NoError(t, err) {
			assert.JSONEq(t, `{"type":"track","payload":{"name":"signup"}}`, string(body))
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	client := delivery.New(srv.URL+"/",
		delivery.WithHTTPClient(srv.Client()),
		delivery.WithHeader("alytica-client-id", "client-1"),
		delivery.WithHeaderFunc("alytica-client-secret", func(context.Context) (string, bool) { return "s3cret", true }),
		delivery.WithHeaderFunc("Omitted", func(context.Context) (string, bool) { return "", false }),
	)

	result, err := client.Fetch(context.Background(), "/api/track", payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(result))
}

func TestClient_Fetch_AnySuccessStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		body   string
		want   json.RawMessage
	}{
		{"ok with body", http.StatusOK, `{"id":1}`, json.RawMessage(`{"id":1}`)},
		{"created", http.StatusCreated, `{"id":2}`, json.RawMessage(`{"id":2}`)},
		{"accepted empty", http.StatusAccepted, "", nil},
		{"no content", http.StatusNoContent, "", nil},
		{"whitespace body", http.StatusOK, "  \n", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var calls atomic.Int32
			srv := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			client := delivery.New(srv.URL, delivery.WithHTTPClient(srv.Client()))
			result, err := client.Fetch(context.Background(), "/api/track", map[string]string{"k": "v"})
			require.NoError(t, err)
			assert.Equal(t, tt.want, result)
			assert.EqualValues(t, 1, calls.Load())
		})
	}
}

func TestClient_Fetch_Unauthorized(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	})

	// A mock clock without advances would block forever on any backoff wait.
	client := delivery.New(srv.URL,
		delivery.WithHTTPClient(srv.Client()),
		delivery.WithMaxRetries(3),
		delivery.WithClock(quartz.NewMock(t)),
	)

	result, err := client.Fetch(context.Background(), "/api/track", map[string]string{})
	require.ErrorIs(t, err, delivery.ErrUnauthorized)
	assert.Nil(t, result)
	assert.EqualValues(t, 1, calls.Load())
}

func TestClient_Fetch_RetrySchedule(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var calls atomic.Int32
	srv := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	mClock := quartz.NewMock(t)
	trap := mClock.Trap().NewTimer("delivery", "backoff")
	defer trap.Close()

	client := delivery.New(srv.URL,
		delivery.WithHTTPClient(srv.Client()),
		delivery.WithClock(mClock),
		delivery.WithMaxRetries(2),
		delivery.WithInitialRetryDelay(100*time.Millisecond),
	)

	type outcome struct {
		result json.RawMessage
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := client.Fetch(ctx, "/api/track", map[string]string{"k": "v"})
		done <- outcome{result, err}
	}()

	for _, want := range []time.Duration{100 * time.Millisecond, 200 * time.Millisecond} {
		call := trap.MustWait(ctx)
		assert.Equal(t, want, call.Duration)
		call.MustRelease(ctx)
		mClock.Advance(want).MustWait(ctx)
	}

	select {
	case got := <-done:
		require.ErrorIs(t, got.err, delivery.ErrDeliveryFailed)
		require.ErrorIs(t, got.err, delivery.ErrUnexpectedStatus)
		assert.Nil(t, got.result)
	case <-ctx.Done():
		t.Fatal("fetch did not return")
	}
	assert.EqualValues(t, 3, calls.Load())
}

func TestClient_Fetch_RetriesInvalidJSON(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			_, _ = io.WriteString(w, "definitely not json")
			return
		}
		_, _ = io.WriteString(w, `{"ok":true}`)
	})

	var attempts []delivery.Attempt
	client := delivery.New(srv.URL,
		delivery.WithHTTPClient(srv.Client()),
		delivery.WithBackoff(delivery.FixedBackoff{}),
		delivery.WithOnAttempt(func(a delivery.Attempt) { attempts = append(attempts, a) }),
	)

	result, err := client.Fetch(context.Background(), "/api/track", map[string]string{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(result))

	require.Len(t, attempts, 2)
	assert.Equal(t, 1, attempts[0].Number)
	assert.ErrorIs(t, attempts[0].Err, delivery.ErrInvalidResponse)
	assert.Equal(t, http.StatusOK, attempts[0].StatusCode)
	assert.Equal(t, 2, attempts[1].Number)
	assert.NoError(t, attempts[1].Err)
}

func TestClient_Fetch_TransportErrorRetried(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	var attempts atomic.Int32
	client := delivery.New(url,
		delivery.WithMaxRetries(2),
		delivery.WithBackoff(delivery.FixedBackoff{}),
		delivery.WithOnAttempt(func(delivery.Attempt) { attempts.Add(1) }),
	)

	_, err := client.Fetch(context.Background(), "/api/track", map[string]string{})
	require.ErrorIs(t, err, delivery.ErrDeliveryFailed)
	assert.EqualValues(t, 3, attempts.Load())
}

func TestClient_Fetch_ContextCancelledDuringBackoff(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	srv := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	mClock := quartz.NewMock(t)
	trap := mClock.Trap().NewTimer("delivery", "backoff")
	defer trap.Close()

	client := delivery.New(srv.URL, delivery.WithHTTPClient(srv.Client()), delivery.WithClock(mClock))

	fetchCtx, cancelFetch := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() {
		_, err := client.Fetch(fetchCtx, "/api/track", map[string]string{})
		done <- err
	}()

	call := trap.MustWait(ctx)
	assert.Equal(t, delivery.DefaultInitialRetryDelay, call.Duration)
	call.MustRelease(ctx)
	cancelFetch()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
		assert.NotErrorIs(t, err, delivery.ErrDeliveryFailed)
	case <-ctx.Done():
		t.Fatal("fetch did not return")
	}
}

func TestClient_Fetch_InvalidPayload(t *testing.T) {
	t.Parallel()

	client := delivery.New("http://127.0.0.1:1")
	_, err := client.Fetch(context.Background(), "/api/track", map[string]any{"bad": make(chan int)})
	assert.ErrorIs(t, err, delivery.ErrInvalidPayload)
}

func TestClient_Fetch_CircuitBreaker(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	mClock := quartz.NewMock(t)
	breaker := delivery.NewCircuitBreaker(1, 1, time.Minute, delivery.WithCircuitClock(mClock))
	client := delivery.New(srv.URL,
		delivery.WithHTTPClient(srv.Client()),
		delivery.WithMaxRetries(0),
		delivery.WithCircuitBreaker(breaker),
	)
	ctx := context.Background()

	_, err := client.Fetch(ctx, "/api/track", map[string]string{})
	require.ErrorIs(t, err, delivery.ErrDeliveryFailed)
	assert.Equal(t, delivery.CircuitOpen, breaker.State())

	_, err = client.Fetch(ctx, "/api/track", map[string]string{})
	require.ErrorIs(t, err, delivery.ErrCircuitOpen)
	assert.True(t, delivery.IsCircuitOpen(err))
	assert.EqualValues(t, 1, calls.Load(), "open circuit must not reach the collector")

	mClock.Advance(time.Minute)
	_, err = client.Fetch(ctx, "/api/track", map[string]string{})
	require.ErrorIs(t, err, delivery.ErrDeliveryFailed)
	assert.EqualValues(t, 2, calls.Load())
}

func TestClient_Fetch_Metrics(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		switch calls.Add(1) {
		case 1:
			w.WriteHeader(http.StatusInternalServerError)
		case 2:
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	})

	reg := prometheus.NewRegistry()
	metrics := delivery.NewMetrics(reg)
	client := delivery.New(srv.URL,
		delivery.WithHTTPClient(srv.Client()),
		delivery.WithBackoff(delivery.FixedBackoff{}),
		delivery.WithMetrics(metrics),
	)

	_, err := client.Fetch(context.Background(), "/api/track", map[string]string{})
	require.NoError(t, err)
	_, err = client.Fetch(context.Background(), "/api/track", map[string]string{})
	require.ErrorIs(t, err, delivery.ErrUnauthorized)

	assert.InDelta(t, 1, testutil.ToFloat64(metrics.Attempts(delivery.OutcomeFailure)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.Attempts(delivery.OutcomeSuccess)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.Attempts(delivery.OutcomeUnauthorized)), 0)

	count, err := testutil.GatherAndCount(reg, "alytica_delivery_attempt_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
