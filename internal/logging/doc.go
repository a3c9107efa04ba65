// Package logging assembles structured slog loggers and formatting helpers used
// across livecatalog.
//
// It owns the console/JSON handlers, centralizes level and output plumbing,
// and exposes context-aware helpers so recorder and store code can tag log
// lines with session and frame identifiers. The package also provides a no-op
// logger for tests and wiring code that cannot fail.
package logging
