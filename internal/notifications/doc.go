// Package notifications pushes pipeline events to ntfy.
//
// NewService returns a no-op implementation when no topic is configured, and
// each event family can be switched off in the [notifications] section.
// Callers depend only on the Service interface.
package notifications
