package browser

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/text/language"
)

// Client hint headers carrying layout information. Browsers only send them
// after the server opts in with Accept-CH.
const (
	HeaderViewportWidth  = "Sec-CH-Viewport-Width"
	HeaderViewportHeight = "Sec-CH-Viewport-Height"
	HeaderScreenWidth    = "Sec-CH-Screen-Width"
	HeaderScreenHeight   = "Sec-CH-Screen-Height"
	HeaderTitle          = "X-Page-Title"
)

// FromRequest derives a snapshot from an incoming HTTP request.
func FromRequest(r *http.Request) Snapshot {
	return Snapshot{
		Referrer:       r.Referer(),
		Location:       absoluteURL(r),
		Title:          r.Header.Get(HeaderTitle),
		Language:       preferredLanguage(r.Header.Get("Accept-Language")),
		UserAgent:      r.UserAgent(),
		ViewportWidth:  headerInt(r, HeaderViewportWidth, "Viewport-Width"),
		ViewportHeight: headerInt(r, HeaderViewportHeight),
		ScreenWidth:    headerInt(r, HeaderScreenWidth),
		ScreenHeight:   headerInt(r, HeaderScreenHeight),
	}
}

// Request is an Environment bound to one HTTP request.
type Request struct {
	snap Snapshot
}

// NewRequest captures r once; every Snapshot call returns the same value.
func NewRequest(r *http.Request) *Request {
	return &Request{snap: FromRequest(r)}
}

func (e *Request) Snapshot(context.Context) Snapshot { return e.snap }

func absoluteURL(r *http.Request) string {
	if r.URL == nil {
		return ""
	}
	if r.URL.IsAbs() {
		return r.URL.String()
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = strings.ToLower(strings.TrimSpace(strings.Split(proto, ",")[0]))
	}

	host := r.Host
	if fwd := r.Header.Get("X-Forwarded-Host"); fwd != "" {
		host = strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	if host == "" {
		return r.URL.RequestURI()
	}

	return scheme + "://" + host + r.URL.RequestURI()
}

func preferredLanguage(header string) string {
	if header == "" {
		return ""
	}
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return ""
	}
	return tags[0].String()
}

func headerInt(r *http.Request, names ...string) int {
	for _, name := range names {
		v := strings.TrimSpace(r.Header.Get(name))
		if v == "" {
			continue
		}
		// Client hints may carry fractional CSS pixels.
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			return int(f)
		}
	}
	return 0
}
