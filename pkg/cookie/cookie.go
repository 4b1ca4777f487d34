package cookie

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"
)

const minSecretLength = 32

// Manager writes and reads cookies with shared default attributes.
// Secrets are optional; without them signed cookies are unavailable.
type Manager struct {
	secrets  []string
	defaults Options
}

// New creates a Manager. Empty secrets are dropped; any remaining secret
// must be at least 32 characters. The first secret signs, all verify.
func New(secrets []string, opts ...Option) (*Manager, error) {
	secrets = slices.DeleteFunc(slices.Clone(secrets), func(s string) bool { return s == "" })

	for i, s := range secrets {
		if len(s) < minSecretLength {
			return nil, fmt.Errorf("%w: secret %d has %d chars, need at least %d", ErrSecretTooShort, i, len(s), minSecretLength)
		}
	}

	defaults := Options{
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
	}

	return &Manager{
		secrets:  secrets,
		defaults: applyOptions(defaults, opts),
	}, nil
}

// Build returns the cookie Set would write, without writing it.
func (m *Manager) Build(name, value string, opts ...Option) *http.Cookie {
	options := applyOptions(m.defaults, opts)

	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     options.Path,
		Domain:   options.Domain,
		Expires:  options.Expires,
		MaxAge:   options.MaxAge,
		Secure:   options.Secure,
		HttpOnly: options.HttpOnly,
		SameSite: options.SameSite,
	}
}

func (m *Manager) Set(w http.ResponseWriter, name, value string, opts ...Option) error {
	c := m.Build(name, value, opts...)
	if err := c.Valid(); err != nil {
		return errors.Join(ErrInvalidFormat, err)
	}
	http.SetCookie(w, c)
	return nil
}

func (m *Manager) Get(r *http.Request, name string) (string, error) {
	c, err := r.Cookie(name)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return "", ErrCookieNotFound
		}
		return "", err
	}
	return c.Value, nil
}

func (m *Manager) Delete(w http.ResponseWriter, name string) {
	http.SetCookie(w, m.expired(name))
}

func (m *Manager) SetSigned(w http.ResponseWriter, name, value string, opts ...Option) error {
	signed, err := m.Sign(value)
	if err != nil {
		return err
	}
	return m.Set(w, name, signed, opts...)
}

func (m *Manager) GetSigned(r *http.Request, name string) (string, error) {
	signed, err := m.Get(r, name)
	if err != nil {
		return "", err
	}
	return m.Verify(signed)
}

// Sign returns value with an HMAC-SHA256 signature appended.
func (m *Manager) Sign(value string) (string, error) {
	if len(m.secrets) == 0 {
		return "", ErrNoSecret
	}

	mac := hmac.New(sha256.New, []byte(m.secrets[0]))
	mac.Write([]byte(value))
	signature := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))

	return base64.RawURLEncoding.EncodeToString([]byte(value)) + "." + signature, nil
}

// Verify checks a value produced by Sign against every configured secret.
func (m *Manager) Verify(signed string) (string, error) {
	if len(m.secrets) == 0 {
		return "", ErrNoSecret
	}

	encodedValue, signature, ok := strings.Cut(signed, ".")
	if !ok {
		return "", ErrInvalidFormat
	}

	value, err := base64.RawURLEncoding.DecodeString(encodedValue)
	if err != nil {
		return "", ErrInvalidFormat
	}

	// Older secrets keep verifying during key rotation.
	for _, secret := range m.secrets {
		mac := hmac.New(sha256.New, []byte(secret))
		mac.Write(value)
		expected := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))

		if subtle.ConstantTimeCompare([]byte(signature), []byte(expected)) == 1 {
			return string(value), nil
		}
	}

	return "", ErrInvalidSignature
}

// CanSign reports whether the manager has at least one secret.
func (m *Manager) CanSign() bool {
	return len(m.secrets) > 0
}

func (m *Manager) expired(name string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     m.defaults.Path,
		Domain:   m.defaults.Domain,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: m.defaults.HttpOnly,
		SameSite: m.defaults.SameSite,
		Secure:   m.defaults.Secure,
	}
}
