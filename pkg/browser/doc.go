// Package browser describes the visitor environment the tracker reads from:
// referrer, current location, title, language, user agent and layout sizes.
//
// The tracker never reaches for ambient globals. Instead it is handed an
// Environment and takes a Snapshot whenever it needs the current state.
// Three implementations cover the usual hosts:
//
//   - FromRequest / NewRequest derive the snapshot from an HTTP request
//     (Referer, absolute URL, User-Agent, Accept-Language, client hints).
//   - Static holds a mutable snapshot for long-lived clients and tests.
//   - EnvironmentFunc adapts any function.
//
// A nil Environment means there is no visitor context at all; the tracker
// then keeps its identity fields unset.
package browser
