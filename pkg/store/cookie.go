package store

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrymomot/alytica/pkg/cookie"
)

// CookieBackend stores values in HTTP cookies through a request-scoped jar.
// Cookies are written with Path=/, SameSite=Lax and both Max-Age and
// Expires derived from the TTL.
type CookieBackend struct {
	jar    *cookie.Jar
	signed bool
	now    func() time.Time
}

// CookieOption configures a CookieBackend.
type CookieOption func(*CookieBackend)

// WithSignedCookies signs every value with the jar manager's secrets.
// Values with a missing or bad signature read as ErrMalformed, so a
// tampered record is treated like a corrupt one.
func WithSignedCookies() CookieOption {
	return func(b *CookieBackend) { b.signed = true }
}

// WithCookieClock overrides the time source used for Expires.
func WithCookieClock(now func() time.Time) CookieOption {
	return func(b *CookieBackend) {
		if now != nil {
			b.now = now
		}
	}
}

// NewCookieBackend creates a backend over jar.
func NewCookieBackend(jar *cookie.Jar, opts ...CookieOption) *CookieBackend {
	b := &CookieBackend{jar: jar, now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *CookieBackend) Read(_ context.Context, key string) (string, error) {
	raw, err := b.jar.Get(key)
	if err != nil {
		if errors.Is(err, cookie.ErrCookieNotFound) {
			return "", ErrNotFound
		}
		return "", err
	}
	if !b.signed {
		return raw, nil
	}

	value, err := b.jar.Manager().Verify(raw)
	if err != nil {
		return "", errors.Join(ErrMalformed, err)
	}
	return value, nil
}

func (b *CookieBackend) Write(_ context.Context, key, value string, ttl time.Duration) error {
	if b.signed {
		signed, err := b.jar.Manager().Sign(value)
		if err != nil {
			return err
		}
		if len(signed) > cookieSizeCeiling {
			return ErrTooLarge
		}
		value = signed
	}

	return b.jar.Set(key, value,
		cookie.WithMaxAge(int(ttl/time.Second)),
		cookie.WithExpires(b.now().Add(ttl)),
		cookie.WithPath("/"),
	)
}

func (b *CookieBackend) Delete(_ context.Context, key string) error {
	b.jar.Delete(key)
	return nil
}
