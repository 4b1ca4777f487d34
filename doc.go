// Package alytica is an analytics client that identifies visitors, tracks
// their sessions and delivers behavioral events to an Alytica collector.
//
// The client keeps one identity record per client id in a durable store:
// a stable distinct id, whether the visitor has been identified, the
// properties of their first contact and the current session. Sessions roll
// over after 30 minutes of inactivity. Every event is stamped with the
// identity and session before it is posted to the collector, with retries
// and exponential backoff. Delivery problems are logged, never returned.
//
// # Usage
//
// Long-lived clients (desktop apps, embedded webviews, scripts) provide the
// environment and a store explicitly:
//
//	env := browser.NewStatic(browser.Snapshot{Location: "app://home", UserAgent: "desktop/2.1"})
//	client, err := alytica.New(ctx, alytica.DefaultConfig("client-id"),
//		alytica.WithEnvironment(env),
//		alytica.WithStore(store.New(store.NewRedisBackend(rdb, "analytics:"))),
//	)
//	if err != nil {
//		return err
//	}
//	client.Track(ctx, "signup", tracking.Properties{"plan": "pro"})
//	client.Identify(ctx, "user-42", nil)
//
// Web servers wrap their handlers with Middleware. The identity is kept in
// a cookie shared with the browser SDK, each request gets its own client and
// events are delivered in the background:
//
//	d := delivery.NewDispatcher(tracking.NewTransport(cfg.Config))
//	defer d.Close(ctx)
//	mw, err := alytica.Middleware(cfg, alytica.WithDispatcher(d))
//	if err != nil {
//		return err
//	}
//	http.ListenAndServe(":8080", mw(mux))
//
//	func checkout(w http.ResponseWriter, r *http.Request) {
//		alytica.MustFromContext(r.Context()).Track(r.Context(), "checkout", nil)
//	}
//
// # Configuration
//
// LoadConfig reads Config from ALYTICA_* environment variables and an
// optional .env file. ALYTICA_CLIENT_ID is required.
//
// # Errors
//
// New and Middleware fail only on invalid configuration. MustFromContext
// panics when no client is attached to the context, which means the
// handler is not wrapped by Middleware. Everything else degrades to a
// no-op or a nil result.
package alytica
