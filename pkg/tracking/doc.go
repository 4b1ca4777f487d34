// Package tracking implements the visitor identity and session state
// machine and the event pipeline in front of the collector.
//
// A Tracker keeps one Record per client id in a store.Store under
// StorageKey(clientID). The record carries the distinct id, whether it has
// been identified, the visitor's first-contact properties and the current
// Session. Every operation that mutates the record re-reads the store
// first, because other trackers (browser tabs, other processes) may share
// the same slot.
//
// # Sessions
//
// A session rolls over when the gap since the stored last activity exceeds
// Config.SessionTimeout (30 minutes by default, strict comparison). The
// check is lazy: it runs when an event is tracked, never on a timer. A new
// session owes a $session_start event, which Init emits, or else the next
// Track emits before its own event. $session_start and $session_end do not
// count towards Session.EventCount.
//
// Identification survives a rollover; only Reset clears it.
//
// # Delivery
//
// Events are wrapped in an Event envelope and handed to a Transport,
// normally a *delivery.Client. With Config.WaitForProfile the Gate buffers
// events until Ready is called. Identify and Alias flush the buffer on
// success without opening the gate. Delivery errors are logged and
// swallowed.
//
//	t, err := tracking.New(ctx, tracking.DefaultConfig("client-id"),
//	    tracking.WithEnvironment(browser.NewStatic(snapshot)),
//	    tracking.WithStore(store.New(store.NewMemoryBackend())),
//	)
//	if err != nil {
//	    return err
//	}
//	t.Init(ctx)
//	t.Track(ctx, "signup", tracking.Properties{"plan": "pro"})
//	t.Identify(ctx, "user-42", nil)
package tracking
