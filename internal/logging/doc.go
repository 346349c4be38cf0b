// Package logging builds the slog loggers used across Paceline.
//
// Console (text) output is the default for interactive use; JSON output suits
// log collection. When a log directory is configured, output is additionally
// appended to paceline.log inside it.
package logging
