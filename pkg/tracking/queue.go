package tracking

import "sync"

// Gate holds events while the host waits for the visitor profile.
// Safe for concurrent use.
type Gate struct {
	mu      sync.Mutex
	waiting bool
	buffer  []Event
}

// NewGate creates a gate, closed when waiting is true.
func NewGate(waiting bool) *Gate {
	return &Gate{waiting: waiting}
}

// Hold buffers ev if the gate is closed and reports whether it did.
func (g *Gate) Hold(ev Event) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.waiting {
		return false
	}
	g.buffer = append(g.buffer, ev)
	return true
}

// Open lets subsequent events through. Buffered events stay until Drain.
func (g *Gate) Open() {
	g.mu.Lock()
	g.waiting = false
	g.mu.Unlock()
}

func (g *Gate) Waiting() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.waiting
}

// Drain removes and returns the buffered events in insertion order.
func (g *Gate) Drain() []Event {
	g.mu.Lock()
	defer g.mu.Unlock()

	events := g.buffer
	g.buffer = nil
	return events
}

// Len returns the number of buffered events.
func (g *Gate) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.buffer)
}
