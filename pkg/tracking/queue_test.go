package tracking_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/alytica/pkg/tracking"
)

func named(name string) tracking.Event {
	return tracking.Event{Type: tracking.TypeTrack, Payload: tracking.TrackPayload{Name: name}}
}

func TestGate(t *testing.T) {
	t.Parallel()

	t.Run("open gate holds nothing", func(t *testing.T) {
		t.Parallel()

		g := tracking.NewGate(false)
		assert.False(t, g.Waiting())
		assert.False(t, g.Hold(named("a")))
		assert.Zero(t, g.Len())
		assert.Empty(t, g.Drain())
	})

	t.Run("closed gate buffers in order", func(t *testing.T) {
		t.Parallel()

		g := tracking.NewGate(true)
		for _, name := range []string{"a", "b", "c"} {
			assert.True(t, g.Hold(named(name)))
		}
		assert.Equal(t, 3, g.Len())

		assert.Equal(t, []tracking.Event{named("a"), named("b"), named("c")}, g.Drain())
		assert.Zero(t, g.Len())
		assert.True(t, g.Waiting(), "draining does not open the gate")
	})

	t.Run("open keeps buffer until drained", func(t *testing.T) {
		t.Parallel()

		g := tracking.NewGate(true)
		g.Hold(named("a"))
		g.Open()

		assert.False(t, g.Hold(named("b")))
		assert.Equal(t, []tracking.Event{named("a")}, g.Drain())
	})

	t.Run("concurrent holds", func(t *testing.T) {
		t.Parallel()

		g := tracking.NewGate(true)
		var wg sync.WaitGroup
		for range 100 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				g.Hold(named("x"))
			}()
		}
		wg.Wait()
		assert.Len(t, g.Drain(), 100)
	})
}
