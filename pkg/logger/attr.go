package logger

import (
	"log/slog"
	"time"
)

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Event records the event name under the key "event".
func Event(name string) slog.Attr {
	return slog.String("event", name)
}

// EventType records the envelope type ("track", "identify", "alias") under the key "event_type".
func EventType(eventType string) slog.Attr {
	return slog.String("event_type", eventType)
}

// DistinctID records the visitor identifier under the key "distinct_id".
// Empty identifiers produce an empty Attr.
func DistinctID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("distinct_id", id)
}

// SessionID records the session identifier under the key "session_id".
// Empty identifiers produce an empty Attr.
func SessionID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("session_id", id)
}

// Key records a storage key under the key "key".
func Key(key string) slog.Attr {
	return slog.String("key", key)
}

// Attempt records the 1-based delivery attempt under the key "attempt".
func Attempt(n int) slog.Attr {
	return slog.Int("attempt", n)
}

// StatusCode records an HTTP status code under the key "status_code".
// Zero means no response was received and produces an empty Attr.
func StatusCode(code int) slog.Attr {
	if code == 0 {
		return slog.Attr{}
	}
	return slog.Int("status_code", code)
}

// Duration records a duration under the key "duration".
func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

// Size records a byte length under the key "size".
func Size(n int) slog.Attr {
	return slog.Int("size", n)
}
