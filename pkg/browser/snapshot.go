package browser

import (
	"context"
	"sync"
)

// DirectReferrer is reported instead of an empty referrer.
const DirectReferrer = "$direct"

// Snapshot is the visitor environment observed at one point in time.
type Snapshot struct {
	Referrer       string
	Location       string
	Title          string
	Language       string
	UserAgent      string
	ViewportWidth  int
	ViewportHeight int
	ScreenWidth    int
	ScreenHeight   int
}

// Properties renders the snapshot as the "$"-prefixed event properties
// attached to every event as global properties.
func (s Snapshot) Properties() map[string]any {
	return map[string]any{
		"$referrer":       NormalizeReferrer(s.Referrer),
		"$screenWidth":    s.ScreenWidth,
		"$screenHeight":   s.ScreenHeight,
		"$viewportWidth":  s.ViewportWidth,
		"$viewportHeight": s.ViewportHeight,
		"$language":       s.Language,
		"$path":           s.Location,
		"$title":          s.Title,
	}
}

// NormalizeReferrer maps an empty referrer to DirectReferrer.
func NormalizeReferrer(referrer string) string {
	if referrer == "" {
		return DirectReferrer
	}
	return referrer
}

// Environment provides the current visitor environment.
type Environment interface {
	Snapshot(ctx context.Context) Snapshot
}

// EnvironmentFunc adapts a function to Environment.
type EnvironmentFunc func(ctx context.Context) Snapshot

func (f EnvironmentFunc) Snapshot(ctx context.Context) Snapshot { return f(ctx) }

// Static is an Environment backed by a mutable snapshot.
// Use it for long-lived clients (desktop apps, embedded webviews, tests)
// and update the location as the visitor navigates. Safe for concurrent use.
type Static struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewStatic creates a Static environment from an initial snapshot.
func NewStatic(snap Snapshot) *Static {
	return &Static{snap: snap}
}

func (s *Static) Snapshot(context.Context) Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// SetLocation records navigation to href.
func (s *Static) SetLocation(href string) {
	s.mu.Lock()
	s.snap.Location = href
	s.mu.Unlock()
}

// SetTitle records the current document title.
func (s *Static) SetTitle(title string) {
	s.mu.Lock()
	s.snap.Title = title
	s.mu.Unlock()
}

// SetReferrer records the referrer of the current page.
func (s *Static) SetReferrer(referrer string) {
	s.mu.Lock()
	s.snap.Referrer = referrer
	s.mu.Unlock()
}
