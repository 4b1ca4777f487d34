package alytica

import (
	"net/http"

	"github.com/dmitrymomot/alytica/pkg/browser"
	"github.com/dmitrymomot/alytica/pkg/cookie"
	"github.com/dmitrymomot/alytica/pkg/delivery"
	"github.com/dmitrymomot/alytica/pkg/logger"
	"github.com/dmitrymomot/alytica/pkg/store"
	"github.com/dmitrymomot/alytica/pkg/tracking"
)

// Middleware attaches a client to every request. The visitor identity
// lives in a cookie named tracking.StorageKey(cfg.ClientID), so a server
// rendered site and the browser SDK share one visitor. The environment is
// derived from the request; with TrackPageViews a $pageview is recorded
// for GET requests.
//
// The identity record is updated before the wrapped handler runs, so the
// cookie is written ahead of the response body. Events are handed to a
// background Dispatcher shared by all requests and never hold up the
// handler; Track returns nil and Identify promotes the visitor once the
// event is queued. Without WithDispatcher the dispatcher lives as long as
// the process; pass one to drain it on shutdown.
//
// It returns an error only for an invalid Config or cookie setup.
func Middleware(cfg Config, opts ...Option) (func(http.Handler) http.Handler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := buildOptions(cfg, opts)
	if o.cookies == nil {
		m, err := cookie.New(nil)
		if err != nil {
			return nil, err
		}
		o.cookies = m
	}
	if o.signedCookies && !o.cookies.CanSign() {
		return nil, cookie.ErrNoSecret
	}
	if o.dispatcher == nil {
		if o.transport == nil {
			o.transport = tracking.NewTransport(cfg.Config,
				delivery.WithClock(o.clock),
				delivery.WithLogger(o.logger),
			)
		}
		o.dispatcher = delivery.NewDispatcher(o.transport, delivery.WithDispatchLogger(o.logger))
		o.transport = o.dispatcher
	}

	var backendOpts []store.CookieOption
	if o.signedCookies {
		backendOpts = append(backendOpts, store.WithSignedCookies())
	}
	log := o.logger.With(logger.Component("middleware"))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			jar := cookie.NewJar(o.cookies, w, r)

			reqOpts := o
			reqOpts.store = store.New(store.NewCookieBackend(jar, backendOpts...), store.WithLogger(o.logger))
			reqOpts.env = browser.NewRequest(r)

			reqCfg := cfg
			reqCfg.TrackPageViews = cfg.TrackPageViews && r.Method == http.MethodGet

			a, err := newClient(r.Context(), reqCfg, reqOpts)
			if err != nil {
				log.ErrorContext(r.Context(), "tracking client not created", logger.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), a)))
		})
	}, nil
}
