// Package logs reads the daemon's JSON log file for the CLI.
//
// Tail returns the last N records, or everything after a byte offset, and
// can wait for new records in follow mode. Records are parsed into Entry
// values so callers can filter by job, component or level before printing.
package logs
