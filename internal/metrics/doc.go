// Package metrics defines the Prometheus metrics exposed by the service.
package metrics
