package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"photo-dedup/internal/database"
	"photo-dedup/internal/fingerprint"
	"photo-dedup/internal/handlers"
	"photo-dedup/internal/logging"
	"photo-dedup/internal/middleware"
	"photo-dedup/internal/scanner"
	"photo-dedup/internal/startup"
)

func main() {
	startTime := time.Now()

	// Optional .env file for local development
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logging.Warn("Failed to load .env file: %v", err)
	}

	// Load configuration
	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	ctx := context.Background()

	// Initialize database
	dbStart := time.Now()
	db, err := database.New(ctx, config.DatabasePath)
	if err != nil {
		startup.LogFatal("Failed to initialize database: %v", err)
	}
	defer db.Close()
	startup.LogDatabaseInit(time.Since(dbStart))

	// Refresh connection pool metrics periodically
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		for range ticker.C {
			db.UpdateDBMetrics()
		}
	}()

	// Initialize scanner and recover sessions orphaned by a previous crash
	sc := scanner.New(db, fingerprint.NewExtractor(), config.ScanBatchSize)
	recovered, err := sc.RecoverOrphans(ctx)
	if err != nil {
		startup.LogFatal("Failed to recover scan sessions: %v", err)
	}
	startup.LogScannerInit(recovered)

	// Initialize handlers
	h := handlers.New(db, sc, config)

	// Setup router
	router := setupRouter(h)

	// Log routes dynamically
	startup.LogHTTPRoutes(router, config.LogHealthChecks)

	// Apply logging middleware
	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	loggedHandler := middleware.Logger(loggingConfig)(router)

	// Apply metrics middleware
	handler := middleware.Metrics(middleware.DefaultMetricsConfig())(loggedHandler)

	// Create server
	srv := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Metrics server on its own port
	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", promhttp.Handler())
		metricsSrv = &http.Server{
			Addr:        ":" + config.MetricsPort,
			Handler:     metricsMux,
			ReadTimeout: 15 * time.Second,
		}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != http.ErrServerClosed {
				logging.Error("Metrics server error: %v", err)
			}
		}()
	}

	// Start graceful shutdown handler
	go handleShutdown(srv, metricsSrv, sc)

	// Start server
	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		startup.LogFatal("Server error: %v", err)
	}
}

func setupRouter(h *handlers.Handlers) *mux.Router {
	r := mux.NewRouter()

	// Health check and version routes
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")

	// API routes
	api := r.PathPrefix("/api").Subrouter()

	// Scanning
	api.HandleFunc("/scan", h.StartScan).Methods("POST")
	api.HandleFunc("/scan/status/{id:[0-9]+}", h.GetScanStatus).Methods("GET")
	api.HandleFunc("/scan/sessions", h.ListScanSessions).Methods("GET")
	api.HandleFunc("/scan/cancel/{id:[0-9]+}", h.CancelScan).Methods("POST")

	// Duplicates
	api.HandleFunc("/duplicates", h.GetDuplicates).Methods("GET")
	api.HandleFunc("/duplicates/groups", h.GetDuplicateGroups).Methods("GET")
	api.HandleFunc("/duplicates/action", h.ApplyDuplicateAction).Methods("POST")

	// Media queries
	api.HandleFunc("/media", h.GetMedia).Methods("GET")

	// Organization
	api.HandleFunc("/organize", h.Organize).Methods("POST")
	api.HandleFunc("/organize/preview", h.PreviewOrganize).Methods("GET")

	return r
}

func handleShutdown(srv, metricsSrv *http.Server, sc *scanner.Scanner) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	startup.LogShutdownStep("Stopping running scans")
	sc.Shutdown()
	startup.LogShutdownStepComplete("Scans stopped")

	if metricsSrv != nil {
		startup.LogShutdownStep("Shutting down metrics server")
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Metrics server stopped")
		}
	}

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	startup.LogShutdownComplete()
}
