package delivery

import "errors"

// Sentinel errors returned by Fetch. Details are wrapped on top with
// fmt.Errorf so callers can still match them with errors.Is.
var (
	ErrUnauthorized     = errors.New("delivery: unauthorized")
	ErrDeliveryFailed   = errors.New("delivery: failed after retries")
	ErrUnexpectedStatus = errors.New("delivery: unexpected status")
	ErrInvalidResponse  = errors.New("delivery: invalid response body")
	ErrInvalidPayload   = errors.New("delivery: invalid payload")
	ErrCircuitOpen      = errors.New("delivery: circuit breaker is open")
)

// IsCircuitOpen reports whether err was caused by an open circuit breaker.
func IsCircuitOpen(err error) bool {
	return errors.Is(err, ErrCircuitOpen)
}

// Errors returned by Dispatcher.Fetch when a payload is not queued.
var (
	ErrQueueFull        = errors.New("delivery: dispatch queue is full")
	ErrDispatcherClosed = errors.New("delivery: dispatcher is closed")
)
