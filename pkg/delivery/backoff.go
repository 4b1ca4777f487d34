package delivery

import (
	"math"
	"math/bits"
	"math/rand"
	"time"
)

// BackoffStrategy computes the wait before a retry.
// Retry numbers start at 1; implementations must be safe for concurrent use.
type BackoffStrategy interface {
	NextInterval(retry int) time.Duration
}

// ExponentialBackoff waits InitialInterval * Multiplier^(retry-1), optionally
// spread by ±JitterFactor and capped at MaxInterval.
// Zero fields fall back to 1s initial, 30s cap and a multiplier of 2.
type ExponentialBackoff struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	JitterFactor    float64
}

func (e ExponentialBackoff) NextInterval(retry int) time.Duration {
	if retry <= 0 {
		return 0
	}

	initial := e.InitialInterval
	if initial == 0 {
		initial = time.Second
	}
	ceiling := e.MaxInterval
	if ceiling == 0 {
		ceiling = 30 * time.Second
	}
	multiplier := e.Multiplier
	if multiplier == 0 {
		multiplier = 2
	}

	interval := float64(initial) * math.Pow(multiplier, float64(retry-1))
	if e.JitterFactor > 0 {
		interval *= 1 + (rand.Float64()*2-1)*e.JitterFactor
	}

	if interval >= float64(ceiling) {
		return ceiling
	}
	return time.Duration(interval)
}

// LinearBackoff waits Interval * retry, capped at MaxInterval.
type LinearBackoff struct {
	Interval    time.Duration
	MaxInterval time.Duration
}

func (l LinearBackoff) NextInterval(retry int) time.Duration {
	if retry <= 0 {
		return 0
	}

	interval := l.Interval
	if interval == 0 {
		interval = time.Second
	}
	ceiling := l.MaxInterval
	if ceiling == 0 {
		ceiling = 30 * time.Second
	}

	return min(interval*time.Duration(retry), ceiling)
}

// FixedBackoff waits the same Interval before every retry.
type FixedBackoff struct {
	Interval time.Duration
}

func (f FixedBackoff) NextInterval(retry int) time.Duration {
	if retry <= 0 {
		return 0
	}
	return f.Interval
}

// DefaultBackoffStrategy doubles the wait on every retry without jitter:
// retry n waits initial * 2^(n-1). The cap never applies within maxRetries.
func DefaultBackoffStrategy(initial time.Duration, maxRetries int) BackoffStrategy {
	if initial <= 0 {
		initial = DefaultInitialRetryDelay
	}
	// Saturate instead of shifting bits out of the duration.
	ceiling := time.Duration(math.MaxInt64)
	if shift := max(maxRetries-1, 0); shift < bits.LeadingZeros64(uint64(initial))-1 {
		ceiling = initial << shift
	}
	return ExponentialBackoff{
		InitialInterval: initial,
		MaxInterval:     ceiling,
		Multiplier:      2,
	}
}
