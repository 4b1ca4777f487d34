package alytica

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/coder/quartz"

	"github.com/dmitrymomot/alytica/pkg/autotrack"
	"github.com/dmitrymomot/alytica/pkg/browser"
	"github.com/dmitrymomot/alytica/pkg/cookie"
	"github.com/dmitrymomot/alytica/pkg/delivery"
	"github.com/dmitrymomot/alytica/pkg/logger"
	"github.com/dmitrymomot/alytica/pkg/store"
	"github.com/dmitrymomot/alytica/pkg/tracking"
)

// Alytica is the tracking client handed to application code. It wraps a
// tracking.Tracker and the auto-instrumentation observers enabled in Config.
//
// Every method is safe to call on a client built without an Environment;
// such a client has no visitor and only Alias, Ready and Flush reach the
// collector.
type Alytica struct {
	cfg     Config
	tracker *tracking.Tracker
	env     browser.Environment

	pageViews  *autotrack.PageViews
	links      *autotrack.OutgoingLinks
	attributes *autotrack.Attributes
	vitals     *autotrack.WebVitals
}

type options struct {
	env       browser.Environment
	store     *store.Store
	transport tracking.Transport
	clock     quartz.Clock
	logger    *slog.Logger

	dispatcher *delivery.Dispatcher

	cookies       *cookie.Manager
	signedCookies bool
}

// Option configures New and Middleware.
type Option func(*options)

// WithEnvironment provides the visitor environment. Without one the client
// runs outside a client context and the identity stays unset.
func WithEnvironment(env browser.Environment) Option {
	return func(o *options) { o.env = env }
}

// WithStore sets the durable store for the identity record.
// Middleware replaces it with a per-request cookie store.
func WithStore(s *store.Store) Option {
	return func(o *options) { o.store = s }
}

// WithTransport replaces the delivery client built from Config.
func WithTransport(tr tracking.Transport) Option {
	return func(o *options) { o.transport = tr }
}

func WithClock(c quartz.Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithDispatcher delivers events in the background through d instead of
// waiting for the collector. The caller owns d and closes it on shutdown.
// Middleware creates its own dispatcher when none is given.
func WithDispatcher(d *delivery.Dispatcher) Option {
	return func(o *options) { o.dispatcher = d }
}

// WithCookieManager sets the cookie manager Middleware writes the identity
// cookie with. Defaults to an unsigned manager with Path=/ and SameSite=Lax.
func WithCookieManager(m *cookie.Manager) Option {
	return func(o *options) { o.cookies = m }
}

// WithSignedCookies makes Middleware sign the identity cookie. The cookie
// manager must have secrets.
func WithSignedCookies() Option {
	return func(o *options) { o.signedCookies = true }
}

func buildOptions(cfg Config, opts []Option) options {
	o := options{clock: quartz.NewReal()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		if cfg.Debug {
			o.logger = logger.New(logger.WithDebug(true))
		} else {
			o.logger = logger.Discard()
		}
	}
	if o.dispatcher != nil {
		o.transport = o.dispatcher
	}
	return o
}

// New creates a client. With an Environment it loads or creates the visitor
// identity, registers the environment as global properties, emits a pending
// $session_start and, when page views are tracked, the first $pageview.
//
// The only error is an invalid Config.
func New(ctx context.Context, cfg Config, opts ...Option) (*Alytica, error) {
	return newClient(ctx, cfg, buildOptions(cfg, opts))
}

func newClient(ctx context.Context, cfg Config, o options) (*Alytica, error) {
	tracker, err := tracking.New(ctx, cfg.Config,
		tracking.WithStore(o.store),
		tracking.WithEnvironment(o.env),
		tracking.WithTransport(o.transport),
		tracking.WithClock(o.clock),
		tracking.WithLogger(o.logger),
	)
	if err != nil {
		return nil, err
	}

	a := &Alytica{
		cfg:     cfg,
		tracker: tracker,
		env:     o.env,
	}

	if o.env == nil {
		tracker.Init(ctx)
		return a, nil
	}

	snap := o.env.Snapshot(ctx)
	tracker.SetGlobalProperties(tracking.Properties(snap.Properties()))
	tracker.Init(ctx)

	a.pageViews = autotrack.NewPageViews(tracker,
		autotrack.WithHashChanges(cfg.TrackHashChanges),
		autotrack.WithClock(o.clock),
	)
	if cfg.TrackWebVitals {
		a.vitals = autotrack.NewWebVitals(tracker)
	}
	if cfg.TrackOutgoingLinks {
		a.links = autotrack.NewOutgoingLinks(tracker)
	}
	if cfg.TrackAttributes {
		a.attributes = autotrack.NewAttributes(tracker)
	}
	if cfg.TrackPageViews {
		a.pageViews.PageView(ctx, snap.Location, nil)
	}

	return a, nil
}

// Track records a custom event and returns the collector's response, or nil
// when the event was queued, dropped or not delivered.
func (a *Alytica) Track(ctx context.Context, name string, props tracking.Properties) json.RawMessage {
	return a.tracker.Track(ctx, name, props)
}

// Identify binds the current visitor to userID.
func (a *Alytica) Identify(ctx context.Context, userID string, props tracking.Properties) {
	a.tracker.Identify(ctx, userID, props)
}

// Alias declares aliasID another name for userID.
func (a *Alytica) Alias(ctx context.Context, userID, aliasID string) {
	a.tracker.Alias(ctx, userID, aliasID)
}

// DistinctID returns the current visitor id.
func (a *Alytica) DistinctID() string {
	return a.tracker.DistinctID()
}

// Reset starts a new anonymous visitor and returns its id.
func (a *Alytica) Reset(ctx context.Context) string {
	return a.tracker.Reset(ctx)
}

// SetGlobalProperties merges props into the properties sent with every
// event.
func (a *Alytica) SetGlobalProperties(props tracking.Properties) {
	a.tracker.SetGlobalProperties(props)
}

// Ready releases events held back by Config.WaitForProfile.
func (a *Alytica) Ready(ctx context.Context) {
	a.tracker.Ready(ctx)
}

// Flush delivers queued events without opening the gate.
func (a *Alytica) Flush(ctx context.Context) {
	a.tracker.Flush(ctx)
}

// Tracker exposes the underlying tracker.
func (a *Alytica) Tracker() *tracking.Tracker {
	return a.tracker
}

// PageView tracks a $pageview for href, or for the current location when
// href is empty. Repeated views of the same location are ignored. It works
// whether or not automatic page views are enabled.
func (a *Alytica) PageView(ctx context.Context, href string, props tracking.Properties) bool {
	if a.pageViews == nil {
		return false
	}
	if href == "" {
		href = a.env.Snapshot(ctx).Location
	}
	return a.pageViews.PageView(ctx, href, props)
}

type locationSetter interface {
	SetLocation(href string)
}

// LocationChanged reports client-side navigation to href. The environment
// location is updated and, with page view tracking on, a debounced
// $pageview follows.
func (a *Alytica) LocationChanged(ctx context.Context, href string) {
	if a.pageViews == nil {
		return
	}
	if s, ok := a.env.(locationSetter); ok {
		s.SetLocation(href)
	}
	if a.cfg.TrackPageViews {
		a.pageViews.LocationChanged(ctx, href)
	}
}

// ClickTarget describes a click as seen by the page.
type ClickTarget struct {
	// Link is the closest anchor to the clicked element, if any.
	Link *autotrack.Link
	// Elements are the closest button and the closest link, in that order,
	// checked for a data-track attribute.
	Elements []autotrack.Element
}

// Click feeds a click to the outgoing link and attribute observers that are
// enabled. It reports whether any event was tracked.
func (a *Alytica) Click(ctx context.Context, target ClickTarget) bool {
	var tracked bool
	if a.links != nil && target.Link != nil {
		tracked = a.links.Click(ctx, *target.Link)
	}
	if a.attributes != nil && len(target.Elements) > 0 {
		tracked = a.attributes.Click(ctx, target.Elements...) || tracked
	}
	return tracked
}

// ReportWebVital tracks a web performance metric when web vitals tracking
// is on.
func (a *Alytica) ReportWebVital(ctx context.Context, m autotrack.Metric) json.RawMessage {
	if a.vitals == nil {
		return nil
	}
	return a.vitals.Report(ctx, m)
}

// Close cancels a pending debounced page view and ignores page views from
// then on. Other methods keep working.
func (a *Alytica) Close() {
	if a.pageViews != nil {
		a.pageViews.Stop()
	}
}
