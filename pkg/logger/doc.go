// Package logger builds the log/slog loggers used across the SDK.
//
// The SDK is embedded in host applications, so it never writes anywhere on
// its own: components default to Discard and only log when the host passes a
// logger or enables debug mode.
//
//	log := logger.New(
//	    logger.WithDebug(cfg.Debug),
//	    logger.WithAttr(logger.Component("alytica")),
//	)
//	log.Debug("event queued", logger.Event("$pageview"), logger.DistinctID(id))
//
// Attribute helpers (Event, DistinctID, SessionID, Attempt, StatusCode, ...)
// keep key names consistent between packages. Helpers return an empty
// slog.Attr for zero values, which slog omits from the output.
package logger
