package autotrack

import (
	"context"
	"maps"
	"net/url"
	"sync"
	"time"

	"github.com/coder/quartz"

	"github.com/dmitrymomot/alytica/pkg/tracking"
)

// DefaultDebounce is how long LocationChanged waits for navigation to settle.
const DefaultDebounce = 200 * time.Millisecond

// PageViews records a $pageview whenever the visitor lands on a new
// location. Safe for concurrent use.
type PageViews struct {
	tracker     Tracker
	clock       quartz.Clock
	debounce    time.Duration
	hashChanges bool

	mu           sync.Mutex
	lastPath     string
	lastLocation string
	timer        *quartz.Timer
	stopped      bool
}

// PageViewOption configures PageViews.
type PageViewOption func(*PageViews)

// WithHashChanges makes fragment-only navigation count as a new location.
func WithHashChanges(enabled bool) PageViewOption {
	return func(p *PageViews) { p.hashChanges = enabled }
}

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) PageViewOption {
	return func(p *PageViews) {
		if d >= 0 {
			p.debounce = d
		}
	}
}

// WithClock sets the clock driving the debounce timer.
func WithClock(c quartz.Clock) PageViewOption {
	return func(p *PageViews) {
		if c != nil {
			p.clock = c
		}
	}
}

func NewPageViews(tr Tracker, opts ...PageViewOption) *PageViews {
	p := &PageViews{
		tracker:  tr,
		clock:    quartz.NewReal(),
		debounce: DefaultDebounce,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PageView tracks $pageview for href unless it was the last location
// recorded. It reports whether an event was tracked.
func (p *PageViews) PageView(ctx context.Context, href string, props tracking.Properties) bool {
	p.mu.Lock()
	if p.stopped || href == p.lastPath {
		p.mu.Unlock()
		return false
	}
	p.lastPath = href
	p.lastLocation = href
	p.mu.Unlock()

	p.tracker.Track(ctx, tracking.EventPageView, maps.Clone(props))
	return true
}

// LocationChanged schedules a page view for href once navigation has been
// quiet for the debounce window. Fragment-only changes are ignored unless
// hash tracking is on.
func (p *PageViews) LocationChanged(ctx context.Context, href string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return
	}
	if !p.hashChanges && sameDocument(p.lastLocation, href) && p.lastLocation != href {
		p.lastLocation = href
		return
	}
	p.lastLocation = href

	if p.timer != nil {
		p.timer.Stop()
	}
	ctx = context.WithoutCancel(ctx)
	p.timer = p.clock.AfterFunc(p.debounce, func() {
		p.PageView(ctx, href, nil)
	}, "autotrack", "pageview")
}

// Stop cancels a pending page view and ignores further calls.
func (p *PageViews) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopped = true
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

// sameDocument reports whether a and b differ at most in their fragment.
func sameDocument(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	ua, err := url.Parse(a)
	if err != nil {
		return false
	}
	ub, err := url.Parse(b)
	if err != nil {
		return false
	}
	ua.Fragment, ua.RawFragment = "", ""
	ub.Fragment, ub.RawFragment = "", ""
	return ua.String() == ub.String()
}
