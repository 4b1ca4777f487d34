package autotrack

import (
	"context"
	"encoding/json"

	"github.com/dmitrymomot/alytica/pkg/tracking"
)

// Tracker is the tracking surface the observers feed. *tracking.Tracker
// implements it.
type Tracker interface {
	Track(ctx context.Context, name string, props tracking.Properties) json.RawMessage
}
