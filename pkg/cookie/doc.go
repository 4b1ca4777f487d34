// Package cookie writes and reads the HTTP cookies that back the tracker's
// durable store when it runs inside an HTTP server.
//
// Manager carries default attributes (Path "/", SameSite=Lax) and optional
// secrets for HMAC-SHA256 signed values. Multiple secrets enable rotation:
// the first signs, every secret verifies.
//
// Jar binds a Manager to one request/response pair and gives read-your-writes
// semantics, mirroring how document.cookie behaves in a browser:
//
//	jar := cookie.NewJar(man, w, r)
//	_ = jar.Set("alytica_c1", encoded, cookie.WithMaxAge(365*24*60*60))
//	v, _ := jar.Get("alytica_c1") // returns encoded, not the request value
//
// The identity cookie is deliberately not HttpOnly so a browser-side SDK on
// the same site can share it.
//
// Sentinel errors (ErrCookieNotFound, ErrInvalidSignature, ErrInvalidFormat,
// ErrNoSecret, ErrSecretTooShort) work with errors.Is.
package cookie
