// Package logging builds slog loggers for the daemon and CLI and defines the
// standardized attribute keys used across pipeline components.
package logging
