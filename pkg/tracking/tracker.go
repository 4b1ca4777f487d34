package tracking

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"maps"
	"sync"

	"github.com/coder/quartz"

	"github.com/dmitrymomot/alytica/pkg/browser"
	"github.com/dmitrymomot/alytica/pkg/delivery"
	"github.com/dmitrymomot/alytica/pkg/logger"
	"github.com/dmitrymomot/alytica/pkg/store"
)

// Transport delivers an envelope to the collector. *delivery.Client
// implements it.
type Transport interface {
	Fetch(ctx context.Context, endpoint string, payload any) (json.RawMessage, error)
}

// Tracker owns the visitor identity and session record and stamps every
// event with it. Delivery failures are logged and never returned.
//
// A Tracker built without an Environment has no client context: Track,
// Identify and Reset do nothing and the identity stays unset. Alias,
// Ready and Flush still work.
//
// Safe for concurrent use.
type Tracker struct {
	cfg       Config
	key       string
	store     *store.Store
	env       browser.Environment
	transport Transport
	clock     quartz.Clock
	logger    *slog.Logger
	gate      *Gate

	// identifyMu serializes identity transitions so at most one identify
	// is delivered for a record. Acquired before mu.
	identifyMu sync.Mutex

	mu           sync.Mutex
	record       Record
	distinctID   string
	identified   bool
	pendingStart bool
	global       Properties
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithStore sets the durable store. Defaults to an in-memory store.
func WithStore(s *store.Store) Option {
	return func(t *Tracker) {
		if s != nil {
			t.store = s
		}
	}
}

// WithEnvironment provides the visitor environment.
func WithEnvironment(env browser.Environment) Option {
	return func(t *Tracker) {
		t.env = env
	}
}

// WithTransport replaces the delivery client built from Config.
func WithTransport(tr Transport) Option {
	return func(t *Tracker) {
		if tr != nil {
			t.transport = tr
		}
	}
}

// WithClock sets the clock for session timing.
func WithClock(c quartz.Clock) Option {
	return func(t *Tracker) {
		if c != nil {
			t.clock = c
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(t *Tracker) {
		if l != nil {
			t.logger = l
		}
	}
}

// New creates a Tracker and, when an Environment is present, loads or
// bootstraps the identity record.
func New(ctx context.Context, cfg Config, opts ...Option) (*Tracker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	t := &Tracker{
		cfg:    cfg,
		key:    StorageKey(cfg.ClientID),
		clock:  quartz.NewReal(),
		global: Properties{},
		gate:   NewGate(cfg.WaitForProfile),
	}
	for _, opt := range opts {
		opt(t)
	}

	if t.logger == nil {
		if cfg.Debug {
			t.logger = logger.New(logger.WithDebug(true))
		} else {
			t.logger = logger.Discard()
		}
	}
	t.logger = t.logger.With(logger.Component("tracking"), slog.String("client_id", cfg.ClientID))

	if t.store == nil {
		t.store = store.New(
			store.NewMemoryBackend(store.WithMemoryClock(t.clock)),
			store.WithLogger(t.logger),
		)
	}
	if t.transport == nil {
		t.transport = NewTransport(cfg, delivery.WithClock(t.clock), delivery.WithLogger(t.logger))
	}

	if t.env != nil {
		t.bootstrap(ctx)
	}
	return t, nil
}

// NewTransport builds the delivery client described by cfg, authenticated
// with the client id and, if set, the client secret.
func NewTransport(cfg Config, opts ...delivery.Option) *delivery.Client {
	cfg = cfg.withDefaults()
	secret := cfg.ClientSecret

	base := []delivery.Option{
		delivery.WithHeader("alytica-client-id", cfg.ClientID),
		delivery.WithHeaderFunc("alytica-client-secret", func(context.Context) (string, bool) {
			return secret, secret != ""
		}),
		delivery.WithMaxRetries(cfg.MaxRetries),
		delivery.WithInitialRetryDelay(cfg.InitialRetryDelay),
		delivery.WithTimeout(cfg.RequestTimeout),
	}
	return delivery.New(cfg.APIURL, append(base, opts...)...)
}

func (t *Tracker) bootstrap(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	unlock := t.lockRecord(ctx)
	defer unlock()

	snap := t.env.Snapshot(ctx)
	now := t.now()

	var rec Record
	err := t.store.Get(ctx, t.key, &rec)
	switch {
	case err != nil || !rec.usable():
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			t.logger.DebugContext(ctx, "stored record unusable, starting a new identity", logger.Error(err))
		}
		rec = t.freshRecord(snap, now)
		t.pendingStart = true
	case t.stale(rec.Session, now):
		rec.Session = t.newSession(snap, now)
		t.pendingStart = true
	default:
		rec.Session.LastTimestamp = now
	}

	t.adopt(rec)
	t.persist(ctx, rec)
}

// Init emits the pending $session_start, if any. Calling it is optional:
// the first Track emits a pending session start as well.
func (t *Tracker) Init(ctx context.Context) {
	t.logger.DebugContext(ctx, "alytica tracker started",
		logger.DistinctID(t.DistinctID()),
		logger.SessionID(t.SessionID()),
	)

	if t.env == nil {
		return
	}
	snap := t.env.Snapshot(ctx)
	if t.takePendingStart(ctx, snap) {
		t.Track(ctx, EventSessionStart, Properties{"$path": snap.Location})
	}
}

// Track records an event and delivers it. It returns the collector's
// response, or nil when the event was queued, dropped or not delivered.
func (t *Tracker) Track(ctx context.Context, name string, props Properties) json.RawMessage {
	if t.env == nil {
		return nil
	}
	snap := t.env.Snapshot(ctx)

	if name != EventSessionStart && t.takePendingStart(ctx, snap) {
		t.Track(ctx, EventSessionStart, Properties{"$path": snap.Location})
	}

	result, _ := t.send(ctx, t.stamp(ctx, name, props, snap))
	return result
}

// takePendingStart rolls a stale session and reports, at most once per
// session, that a $session_start is owed.
func (t *Tracker) takePendingStart(ctx context.Context, snap browser.Snapshot) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	unlock := t.lockRecord(ctx)
	defer unlock()

	rec := t.load(ctx)
	if t.stale(rec.Session, t.now()) {
		rec = t.rollover(ctx, rec, snap)
		t.persist(ctx, rec)
	}

	pending := t.pendingStart
	t.pendingStart = false
	return pending
}

func (t *Tracker) stamp(ctx context.Context, name string, props Properties, snap browser.Snapshot) Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	unlock := t.lockRecord(ctx)
	defer unlock()

	now := t.now()
	rec := t.load(ctx)
	if t.stale(rec.Session, now) {
		rec = t.rollover(ctx, rec, snap)
	}
	if name == EventSessionStart {
		t.pendingStart = false
	}

	if name != EventSessionStart && name != EventSessionEnd {
		rec.Session.EventCount++
	}
	rec.Session.LastTimestamp = now
	rec.Session.LastPath = snap.Location

	t.record = rec
	t.identified = rec.IsIdentified
	t.persist(ctx, rec)

	properties := Properties{
		"$distinctId":            t.distinctID,
		"$sessionId":             rec.Session.SessionID,
		"$processProfiles":       t.cfg.ProcessProfiles,
		"$isIdentified":          rec.IsIdentified,
		"$initialUserProperties": rec.InitialUserProperties,
	}
	maps.Copy(properties, t.global)
	maps.Copy(properties, props)

	return Event{Type: TypeTrack, Payload: TrackPayload{Name: name, Properties: properties}}
}

// Identify binds the current anonymous id to userID. It does nothing for an
// empty id, an id equal to the current or stored one, or a stored record
// that is already identified. The
// identity is promoted only if delivery did not fail.
func (t *Tracker) Identify(ctx context.Context, userID string, props Properties) {
	if userID == "" || t.env == nil {
		return
	}

	t.identifyMu.Lock()
	defer t.identifyMu.Unlock()

	ev, ok := t.identifyEvent(ctx, userID, props)
	if !ok {
		return
	}

	if _, err := t.send(ctx, ev); err != nil {
		t.logger.WarnContext(ctx, "identify not delivered, identity unchanged",
			logger.DistinctID(t.DistinctID()),
			logger.Error(err),
		)
		return
	}

	t.promote(ctx, userID)
	t.Flush(ctx)
}

func (t *Tracker) identifyEvent(ctx context.Context, userID string, props Properties) (Event, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if userID == t.distinctID {
		return Event{}, false
	}

	unlock := t.lockRecord(ctx)
	defer unlock()

	rec := t.load(ctx)
	if rec.IsIdentified || rec.DistinctID == userID {
		t.identified = rec.IsIdentified
		return Event{}, false
	}

	properties := Properties{"$initialUserProperties": rec.InitialUserProperties}
	maps.Copy(properties, props)

	return Event{
		Type: TypeIdentify,
		Payload: IdentifyPayload{
			UserID:     userID,
			AnonID:     t.distinctID,
			Properties: properties,
		},
	}, true
}

func (t *Tracker) promote(ctx context.Context, userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	unlock := t.lockRecord(ctx)
	defer unlock()

	rec := t.load(ctx)
	rec.DistinctID = userID
	rec.IsIdentified = true
	rec.Session.LastTimestamp = t.now()

	t.adopt(rec)
	t.persist(ctx, rec)
}

// Alias declares aliasID another name for userID and flushes queued events.
// The identity record is not changed.
func (t *Tracker) Alias(ctx context.Context, userID, aliasID string) {
	if userID == "" || userID == aliasID {
		return
	}

	ev := Event{Type: TypeAlias, Payload: AliasPayload{DistinctID: userID, AliasID: aliasID}}
	if _, err := t.send(ctx, ev); err != nil {
		return
	}
	t.Flush(ctx)
}

// Reset abandons the current identity and starts a new anonymous one with
// a fresh session. It returns the new distinct id, or "" without an
// Environment.
func (t *Tracker) Reset(ctx context.Context) string {
	if t.env == nil {
		return ""
	}

	t.identifyMu.Lock()
	defer t.identifyMu.Unlock()
	t.mu.Lock()
	defer t.mu.Unlock()
	unlock := t.lockRecord(ctx)
	defer unlock()

	rec := t.freshRecord(t.env.Snapshot(ctx), t.now())
	t.adopt(rec)
	t.pendingStart = true
	t.persist(ctx, rec)

	t.logger.DebugContext(ctx, "identity reset", logger.DistinctID(rec.DistinctID))
	return rec.DistinctID
}

// DistinctID returns the current visitor id, empty without a client context.
func (t *Tracker) DistinctID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.distinctID
}

// SessionID returns the id of the session last seen by this tracker.
func (t *Tracker) SessionID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.record.Session.SessionID
}

func (t *Tracker) IsIdentified() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.identified
}

// Record returns a copy of the in-memory identity record.
func (t *Tracker) Record() Record {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec := t.record
	if rec.InitialUserProperties != nil {
		initial := *rec.InitialUserProperties
		rec.InitialUserProperties = &initial
	}
	return rec
}

// SetGlobalProperties merges props into the properties attached to every
// subsequent event. Later keys win.
func (t *Tracker) SetGlobalProperties(props Properties) {
	t.mu.Lock()
	maps.Copy(t.global, props)
	t.mu.Unlock()
}

// Ready opens the gate and delivers everything queued so far.
func (t *Tracker) Ready(ctx context.Context) {
	t.gate.Open()
	t.Flush(ctx)
}

// Flush delivers queued events in order, each on its own, regardless of
// the gate. The queue is emptied before delivery starts.
func (t *Tracker) Flush(ctx context.Context) {
	for _, ev := range t.gate.Drain() {
		_, _ = t.deliver(ctx, ev)
	}
}

// Pending returns the number of queued events.
func (t *Tracker) Pending() int {
	return t.gate.Len()
}

// send returns nil, nil for disabled or queued events.
func (t *Tracker) send(ctx context.Context, ev Event) (json.RawMessage, error) {
	if t.cfg.Disabled {
		return nil, nil
	}
	if t.gate.Hold(ev) {
		t.logger.DebugContext(ctx, "event queued", logger.EventType(string(ev.Type)))
		return nil, nil
	}
	return t.deliver(ctx, ev)
}

func (t *Tracker) deliver(ctx context.Context, ev Event) (json.RawMessage, error) {
	if t.cfg.Debug {
		t.logger.DebugContext(ctx, "event data",
			logger.EventType(string(ev.Type)),
			slog.Any("event", ev),
		)
	}

	result, err := t.transport.Fetch(ctx, TrackEndpoint, ev)
	if err != nil {
		t.logger.WarnContext(ctx, "event not delivered",
			logger.EventType(string(ev.Type)),
			logger.Error(err),
		)
		return nil, err
	}
	return result, nil
}

// load re-reads the stored record, falling back to the in-memory one when
// the stored value is missing or unusable. Callers hold mu.
func (t *Tracker) load(ctx context.Context) Record {
	var rec Record
	if err := t.store.Get(ctx, t.key, &rec); err != nil || !rec.usable() {
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			t.logger.DebugContext(ctx, "stored record unreadable, using in-memory copy", logger.Error(err))
		}
		return t.record
	}
	return rec
}

// rollover replaces the session of rec and marks a pending session start.
// Identification survives it. Callers hold mu.
func (t *Tracker) rollover(ctx context.Context, rec Record, snap browser.Snapshot) Record {
	previous := rec.Session.SessionID
	rec.Session = t.newSession(snap, t.now())
	t.record = rec
	t.pendingStart = true

	t.logger.DebugContext(ctx, "session rolled over",
		slog.String("previous_session_id", previous),
		logger.SessionID(rec.Session.SessionID),
	)
	return rec
}

func (t *Tracker) freshRecord(snap browser.Snapshot, now int64) Record {
	return Record{
		DistinctID: t.store.GenerateID(),
		Session:    t.newSession(snap, now),
		InitialUserProperties: &InitialUserProperties{
			InitialReferrer:       browser.NormalizeReferrer(snap.Referrer),
			InitialPath:           snap.Location,
			InitialTimestamp:      now,
			InitialViewportWidth:  snap.ViewportWidth,
			InitialViewportHeight: snap.ViewportHeight,
			InitialUserAgent:      snap.UserAgent,
		},
	}
}

func (t *Tracker) newSession(snap browser.Snapshot, now int64) Session {
	return Session{
		SessionID:      t.store.GenerateID(),
		StartTimestamp: now,
		LastTimestamp:  now,
		LastPath:       snap.Location,
	}
}

// stale uses a strict comparison against the stored last activity.
func (t *Tracker) stale(s Session, now int64) bool {
	return now-s.LastTimestamp > t.cfg.SessionTimeout.Milliseconds()
}

// adopt makes rec the in-memory identity. Callers hold mu.
func (t *Tracker) adopt(rec Record) {
	t.record = rec
	t.distinctID = rec.DistinctID
	t.identified = rec.IsIdentified
}

func (t *Tracker) persist(ctx context.Context, rec Record) {
	if err := t.store.Set(ctx, t.key, rec); err != nil {
		t.logger.WarnContext(ctx, "identity record not persisted", logger.Key(t.key), logger.Error(err))
	}
}

// lockRecord takes the store's advisory lock for the record. Failing to
// lock degrades to last-write-wins rather than blocking the host.
func (t *Tracker) lockRecord(ctx context.Context) func() {
	unlock, err := t.store.Lock(ctx, t.key)
	if err != nil {
		t.logger.WarnContext(ctx, "record lock not acquired", logger.Key(t.key), logger.Error(err))
		return func() {}
	}
	return unlock
}

func (t *Tracker) now() int64 {
	return t.clock.Now().UnixMilli()
}
