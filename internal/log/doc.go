// Package log builds the slog loggers used by brewcrawl.
//
// Every logger wraps a RedactingHandler, which masks values that may
// carry credentials before they reach the output: attributes named like
// cookie, authorization, proxy or token, bearer and basic auth values,
// and the user:password part of URLs. Cookies and headers configured for
// a brewery can therefore be logged safely at debug level.
//
//	logger := log.NewLogger(os.Stderr, verbose)
//	logger.Debug("request", "cookie", "session=abc") // cookie=***REDACTED***
//	slog.SetDefault(logger)
package log
