// Package middleware provides HTTP middleware for the photo dedup service.
//
// It includes:
//   - Request logging in W3C Extended Log Format
//   - Prometheus request metrics with path normalization
//   - Configurable filtering for health checks
package middleware
