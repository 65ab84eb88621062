package handlers

import (
	"net/http"
	"runtime"

	"photo-dedup/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusDegraded = "degraded"
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Ready   bool   `json:"ready"`
	Version string `json:"version"`

	// Stats summary
	TotalFiles    int `json:"totalFiles"`
	TotalGroups   int `json:"totalGroups"`
	TotalSessions int `json:"totalSessions"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`
}

// HealthCheck returns the health status of the service
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Ready:        true,
		Status:       statusHealthy,
		Version:      startup.Version,
		GoVersion:    runtime.Version(),
		NumCPU:       runtime.NumCPU(),
		NumGoroutine: runtime.NumGoroutine(),
	}

	stats, err := h.db.GetStats(r.Context())
	if err != nil {
		response.Status = statusDegraded
	} else {
		response.TotalFiles = stats.TotalFiles
		response.TotalGroups = stats.TotalGroups
		response.TotalSessions = stats.TotalSessions
	}

	w.Header().Set("Content-Type", "application/json")
	if response.Status == statusDegraded {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	writeJSON(w, response)
}

// LivenessCheck is a simple liveness probe (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	// For HEAD requests, only send headers (no body)
	if r.Method != http.MethodHead {
		writeJSONStatus(w, "alive")
	}
}

// ReadinessCheck returns 200 only when the database is reachable
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := h.db.Ping(r.Context()); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		writeJSONStatus(w, "not_ready")
		return
	}
	w.WriteHeader(http.StatusOK)
	writeJSONStatus(w, "ready")
}
