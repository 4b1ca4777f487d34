package cookie

import (
	"errors"
	"net/http"
	"strings"
	"sync"
)

// Jar binds a Manager to a single request/response pair.
//
// Cookies written through the jar are sent as Set-Cookie headers and also
// remembered, so a later Get in the same request sees the new value instead
// of the stale one the browser sent. Headers must be written before the
// response body; writes after that point are silently lost by net/http.
type Jar struct {
	m *Manager
	w http.ResponseWriter
	r *http.Request

	mu      sync.Mutex
	pending map[string]*http.Cookie
}

// NewJar creates a request-scoped jar.
func NewJar(m *Manager, w http.ResponseWriter, r *http.Request) *Jar {
	return &Jar{
		m:       m,
		w:       w,
		r:       r,
		pending: make(map[string]*http.Cookie),
	}
}

// Manager returns the underlying cookie manager.
func (j *Jar) Manager() *Manager { return j.m }

// Get returns the latest value written in this request, falling back to the
// cookie the client sent. Deleted cookies report ErrCookieNotFound.
func (j *Jar) Get(name string) (string, error) {
	j.mu.Lock()
	c, ok := j.pending[name]
	j.mu.Unlock()

	if ok {
		if c.MaxAge < 0 {
			return "", ErrCookieNotFound
		}
		return c.Value, nil
	}

	return j.m.Get(j.r, name)
}

// Set writes the cookie, replacing any Set-Cookie line this response
// already carries for name.
func (j *Jar) Set(name, value string, opts ...Option) error {
	c := j.m.Build(name, value, opts...)
	if err := c.Valid(); err != nil {
		return errors.Join(ErrInvalidFormat, err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	j.replace(c)
	j.pending[name] = c
	return nil
}

// Delete expires the cookie on the client.
func (j *Jar) Delete(name string) {
	c := j.m.expired(name)

	j.mu.Lock()
	defer j.mu.Unlock()
	j.replace(c)
	j.pending[name] = c
}

// replace keeps one Set-Cookie line per name. Callers hold mu.
func (j *Jar) replace(c *http.Cookie) {
	h := j.w.Header()
	prefix := c.Name + "="

	var kept []string
	for _, line := range h.Values("Set-Cookie") {
		if !strings.HasPrefix(line, prefix) {
			kept = append(kept, line)
		}
	}
	h.Del("Set-Cookie")
	for _, line := range kept {
		h.Add("Set-Cookie", line)
	}
	http.SetCookie(j.w, c)
}
