package autotrack

import (
	"context"
	"encoding/json"

	"github.com/dmitrymomot/alytica/pkg/tracking"
)

// Metric ratings.
const (
	RatingGood             = "good"
	RatingNeedsImprovement = "needs-improvement"
	RatingPoor             = "poor"
)

// Metric is one web performance measurement.
type Metric struct {
	Name   string // CLS, FCP, INP, LCP or TTFB
	Value  float64
	Delta  float64
	Rating string // computed from Value when empty
}

// thresholds holds the good and poor boundaries per metric. Values are in
// milliseconds except CLS, which is unitless.
var thresholds = map[string][2]float64{
	"CLS":  {0.1, 0.25},
	"FCP":  {1800, 3000},
	"INP":  {200, 500},
	"LCP":  {2500, 4000},
	"TTFB": {800, 1800},
}

// Rate rates value for the named metric. Unknown metrics rate as "".
func Rate(name string, value float64) string {
	t, ok := thresholds[name]
	switch {
	case !ok:
		return ""
	case value <= t[0]:
		return RatingGood
	case value <= t[1]:
		return RatingNeedsImprovement
	default:
		return RatingPoor
	}
}

// WebVitals records metrics as $web_vitals events.
type WebVitals struct {
	tracker Tracker
}

func NewWebVitals(tr Tracker) *WebVitals {
	return &WebVitals{tracker: tr}
}

// Report tracks m and returns the delivery result.
func (w *WebVitals) Report(ctx context.Context, m Metric) json.RawMessage {
	rating := m.Rating
	if rating == "" {
		rating = Rate(m.Name, m.Value)
	}

	return w.tracker.Track(ctx, tracking.EventWebVitals, tracking.Properties{
		"$metric_name":   m.Name,
		"$metric_value":  m.Value,
		"$metric_rating": rating,
		"$metric_delta":  m.Delta,
	})
}
