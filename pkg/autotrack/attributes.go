package autotrack

import (
	"context"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/dmitrymomot/alytica/pkg/tracking"
)

const (
	dataPrefix    = "data-"
	dataTrackAttr = "data-track"
)

// Element is the attribute set of a clicked element.
type Element map[string]string

// Attributes records events declared in markup:
//
//	<button data-track="add_to_cart" data-product-id="42">
//
// tracks "add_to_cart" with {"productId": "42"}.
type Attributes struct {
	tracker Tracker
}

func NewAttributes(tr Tracker) *Attributes {
	return &Attributes{tracker: tr}
}

// Click tracks the first candidate carrying a data-track attribute. Pass
// the closest button before the closest link, matching how the click
// bubbled. It reports whether an event was tracked.
func (a *Attributes) Click(ctx context.Context, candidates ...Element) bool {
	for _, el := range candidates {
		name := el[dataTrackAttr]
		if name == "" {
			continue
		}

		// Casers are stateful and must not be shared between goroutines.
		caser := cases.Title(language.Und, cases.NoLower)
		props := tracking.Properties{}
		for attr, value := range el {
			if attr == dataTrackAttr || !strings.HasPrefix(attr, dataPrefix) {
				continue
			}
			props[camel(caser, strings.TrimPrefix(attr, dataPrefix))] = value
		}

		a.tracker.Track(ctx, name, props)
		return true
	}
	return false
}

// camel converts "product-id" and "product_id" to "productId".
func camel(caser cases.Caser, s string) string {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == '-' || r == '_' })
	if len(parts) == 0 {
		return s
	}

	var b strings.Builder
	b.WriteString(parts[0])
	for _, p := range parts[1:] {
		b.WriteString(caser.String(p))
	}
	return b.String()
}
