package tracking

// TrackEndpoint is the collector path every envelope is posted to.
const TrackEndpoint = "/api/track"

// Reserved event names.
const (
	EventSessionStart = "$session_start"
	EventSessionEnd   = "$session_end"
	EventPageView     = "$pageview"
	EventLinkOut      = "$linkOut"
	EventWebVitals    = "$web_vitals"
)

// EventType is the envelope discriminator.
type EventType string

const (
	TypeTrack    EventType = "track"
	TypeIdentify EventType = "identify"
	TypeAlias    EventType = "alias"
)

// Properties are event properties. Keys starting with "$" are reserved for
// values the tracker fills in; caller properties are merged last and win.
type Properties map[string]any

// InitialUserProperties describe the visitor's first contact. They are
// written once per identity and only replaced by Reset.
type InitialUserProperties struct {
	InitialReferrer       string `json:"initialReferrer"`
	InitialPath           string `json:"initialPath"`
	InitialTimestamp      int64  `json:"initialTimestamp"`
	InitialViewportWidth  int    `json:"initialViewportWidth"`
	InitialViewportHeight int    `json:"initialViewportHeight"`
	InitialUserAgent      string `json:"initialUserAgent"`
}

// Session is the activity window embedded in a Record. Timestamps are Unix
// milliseconds.
type Session struct {
	SessionID      string `json:"$sessionId"`
	StartTimestamp int64  `json:"$startTimestamp"`
	LastTimestamp  int64  `json:"$lastTimestamp"`
	EventCount     int    `json:"$eventCount"`
	LastPath       string `json:"$lastPath"`
}

// Record is the durable identity persisted under StorageKey. The JSON shape
// is shared with the browser SDK so both can read the same cookie.
type Record struct {
	DistinctID            string                 `json:"$distinctId"`
	Session               Session                `json:"$session"`
	InitialUserProperties *InitialUserProperties `json:"$initialUserProperties"`
	IsIdentified          bool                   `json:"$isIdentified"`
}

// usable reports whether a stored record can be continued. Anything else is
// treated as absent and replaced by a fresh identity.
func (r Record) usable() bool {
	return r.InitialUserProperties != nil && r.DistinctID != "" && r.Session.SessionID != ""
}

// Event is the envelope posted to the collector.
type Event struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload"`
}

type TrackPayload struct {
	Name       string     `json:"name"`
	Properties Properties `json:"properties"`
}

// IdentifyPayload binds the anonymous id to a known user id.
type IdentifyPayload struct {
	UserID     string     `json:"$userId"`
	AnonID     string     `json:"$anonId"`
	Properties Properties `json:"properties"`
}

// AliasPayload declares AliasID another name for DistinctID.
type AliasPayload struct {
	DistinctID string `json:"$distinctId"`
	AliasID    string `json:"$aliasId"`
}

// StorageKey returns the storage key for a client id.
func StorageKey(clientID string) string {
	return "alytica_" + clientID
}
