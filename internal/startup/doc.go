// Package startup handles application initialization, configuration loading,
// and startup/shutdown logging.
//
// This package centralizes all application configuration and provides consistent
// logging throughout the application lifecycle.
//
// # Configuration
//
// All configuration is loaded from environment variables via [LoadConfig].
// The following environment variables are supported:
//
//   - LIBRARY_DIR: Path to the photo library root (default: /photos)
//   - DATA_DIR: Path to the data directory holding the database (default: /data)
//   - FAVORITES_DIR: Fixed favorites folder; derived per library folder when unset
//   - PORT: HTTP server port (default: 8080)
//   - METRICS_PORT: Prometheus metrics server port (default: 9090)
//   - METRICS_ENABLED: Enable or disable metrics server (default: true)
//   - SCAN_BATCH_SIZE: Records committed per scan batch (default: 100)
//   - SCAN_WORKERS: Fingerprint extraction worker count override
//   - SIMILARITY_THRESHOLD: Maximum hash distance for duplicates (default: 10)
//   - LOG_LEVEL: Logging level - debug, info, warn, error (default: info)
//   - LOG_HEALTH_CHECKS: Log health check requests (default: true)
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo].
package startup
