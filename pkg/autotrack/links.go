package autotrack

import (
	"context"
	"strings"

	"github.com/dmitrymomot/alytica/pkg/tracking"
)

// Link describes a clicked anchor and the element that received the click.
type Link struct {
	Href        string
	Text        string // rendered text of the anchor
	Title       string // anchor title attribute
	TargetAlt   string // alt attribute of the clicked element, e.g. an image
	TargetTitle string // title attribute of the clicked element
}

// label returns the first non-empty description of the link.
func (l Link) label() string {
	for _, s := range []string{l.Text, l.Title, l.TargetAlt, l.TargetTitle} {
		if s != "" {
			return s
		}
	}
	return ""
}

// OutgoingLinks records clicks on absolute links as $linkOut.
type OutgoingLinks struct {
	tracker Tracker
}

func NewOutgoingLinks(tr Tracker) *OutgoingLinks {
	return &OutgoingLinks{tracker: tr}
}

// Click tracks the link if its href starts with "http". Relative links
// stay inside the site and are ignored.
func (o *OutgoingLinks) Click(ctx context.Context, link Link) bool {
	if !strings.HasPrefix(link.Href, "http") {
		return false
	}

	o.tracker.Track(ctx, tracking.EventLinkOut, tracking.Properties{
		"href": link.Href,
		"text": link.label(),
	})
	return true
}
