// Package metrics declares the Prometheus collectors exported on /metrics.
// Collectors register with the default registry at init.
package metrics
