package delivery

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/dmitrymomot/alytica/pkg/logger"
)

const (
	DefaultDispatchWorkers   = 4
	DefaultDispatchQueueSize = 1024
)

// Fetcher posts a payload to the collector. *Client implements it.
type Fetcher interface {
	Fetch(ctx context.Context, endpoint string, payload any) (json.RawMessage, error)
}

type job struct {
	ctx      context.Context
	endpoint string
	payload  any
}

// Dispatcher hands payloads to a Fetcher on background workers, so callers
// never wait for the collector or its retries. The queue is bounded: when
// it is full, payloads are dropped with a warning.
//
// Payloads are delivered in queue order with a single worker; with more
// workers only their start order is kept. A payload must not be modified
// after it was handed over.
//
// Safe for concurrent use.
type Dispatcher struct {
	next   Fetcher
	logger *slog.Logger
	jobs   chan job
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

type dispatcherConfig struct {
	workers   int
	queueSize int
	logger    *slog.Logger
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*dispatcherConfig)

// WithWorkers sets the number of concurrent deliveries.
func WithWorkers(n int) DispatcherOption {
	return func(c *dispatcherConfig) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithQueueSize sets how many payloads may wait for a worker.
func WithQueueSize(n int) DispatcherOption {
	return func(c *dispatcherConfig) {
		if n >= 0 {
			c.queueSize = n
		}
	}
}

func WithDispatchLogger(l *slog.Logger) DispatcherOption {
	return func(c *dispatcherConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewDispatcher starts the workers. Call Close to stop them.
func NewDispatcher(next Fetcher, opts ...DispatcherOption) *Dispatcher {
	cfg := dispatcherConfig{
		workers:   DefaultDispatchWorkers,
		queueSize: DefaultDispatchQueueSize,
		logger:    logger.Discard(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	d := &Dispatcher{
		next:   next,
		logger: cfg.logger.With(logger.Component("dispatcher")),
		jobs:   make(chan job, cfg.queueSize),
	}
	d.wg.Add(cfg.workers)
	for range cfg.workers {
		go d.work()
	}
	return d
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for j := range d.jobs {
		// The wrapped fetcher logs its own failures.
		_, _ = d.next.Fetch(j.ctx, j.endpoint, j.payload)
	}
}

// Fetch queues payload and returns immediately with a nil result. The
// delivery keeps the values of ctx but not its cancellation, so it outlives
// the request that produced it.
func (d *Dispatcher) Fetch(ctx context.Context, endpoint string, payload any) (json.RawMessage, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return nil, ErrDispatcherClosed
	}

	select {
	case d.jobs <- job{ctx: context.WithoutCancel(ctx), endpoint: endpoint, payload: payload}:
		return nil, nil
	default:
		d.logger.WarnContext(ctx, "dispatch queue full, payload dropped", slog.String("endpoint", endpoint))
		return nil, ErrQueueFull
	}
}

// Pending returns the number of payloads waiting for a worker.
func (d *Dispatcher) Pending() int {
	return len(d.jobs)
}

// Close stops accepting payloads and waits until the queued ones are
// delivered or ctx is done.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.jobs)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
