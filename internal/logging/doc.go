// Package logging builds the slog loggers used by the CLI and daemon.
//
// Console output is a compact coloured line format; the daemon also keeps a
// JSON copy in LogFileName that the logs package reads back. Field constants
// and WithContext keep job, task and lane attributes consistent.
package logging
