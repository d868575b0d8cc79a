// Package logging builds the slog loggers used across mediabutler.
//
// It provides console and JSON handlers, typed attribute helpers, and
// standardized field names so components emit uniform structured logs.
// Loggers are scoped per component via NewComponentLogger and augmented
// with request/file context via WithContext.
package logging
