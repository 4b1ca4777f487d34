// Package autotrack turns host-side signals into tracking events.
//
// Each observer wraps a Tracker and is independent of the others:
//
//   - PageViews records $pageview once per distinct location and debounces
//     navigation notifications
//   - OutgoingLinks records $linkOut for clicks on absolute http(s) links
//   - Attributes records events declared with a data-track attribute
//   - WebVitals records $web_vitals for performance metrics
//
// The host decides where the signals come from: a browser bridge posting
// clicks, a desktop webview, or request handlers.
package autotrack
