package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"photo-dedup/internal/database"
	"photo-dedup/internal/scanner"
)

// ScanRequest starts or restarts a scan over a folder.
type ScanRequest struct {
	FolderPath        string `json:"folderPath"`
	IncludeSubfolders bool   `json:"includeSubfolders"`
	Restart           bool   `json:"restart"`
}

// ScanStatusResponse is a scan session snapshot with derived progress.
type ScanStatusResponse struct {
	SessionID         int64              `json:"sessionId"`
	FolderPath        string             `json:"folderPath"`
	State             database.ScanState `json:"state"`
	TotalFiles        int                `json:"totalFiles"`
	ProcessedFiles    int                `json:"processedFiles"`
	FailedFiles       int                `json:"failedFiles"`
	ProgressPercent   float64            `json:"progressPercent"`
	LastProcessedFile string             `json:"lastProcessedFile,omitempty"`
	ErrorMessage      string             `json:"errorMessage,omitempty"`
	StartedAt         string             `json:"startedAt"`
	CompletedAt       string             `json:"completedAt,omitempty"`
}

func sessionResponse(s *database.ScanSession) ScanStatusResponse {
	resp := ScanStatusResponse{
		SessionID:         s.ID,
		FolderPath:        s.FolderPath,
		State:             s.State,
		TotalFiles:        s.TotalFiles,
		ProcessedFiles:    s.ProcessedFiles,
		FailedFiles:       s.FailedFiles,
		ProgressPercent:   s.ProgressPercent(),
		LastProcessedFile: s.LastProcessedFile,
		ErrorMessage:      s.ErrorMessage,
		StartedAt:         s.StartedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if s.CompletedAt != nil {
		resp.CompletedAt = s.CompletedAt.Format("2006-01-02T15:04:05Z07:00")
	}
	return resp
}

// StartScan starts, resumes, or restarts a scan for a folder
func (h *Handlers) StartScan(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.FolderPath == "" {
		writeJSONError(w, "folderPath is required", http.StatusBadRequest)
		return
	}

	session, err := h.scanner.StartScan(r.Context(), scanner.StartOptions{
		FolderPath: req.FolderPath,
		Recursive:  req.IncludeSubfolders,
		Restart:    req.Restart,
	})
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	writeJSON(w, sessionResponse(session))
}

// GetScanStatus returns the progress of one scan session
func (h *Handlers) GetScanStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeJSONError(w, "invalid session id", http.StatusBadRequest)
		return
	}

	session, err := h.scanner.Status(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrSessionNotFound) {
			writeJSONError(w, "scan session not found", http.StatusNotFound)
			return
		}
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, sessionResponse(session))
}

// ListScanSessions lists recent scan sessions, newest first
func (h *Handlers) ListScanSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.db.ListSessions(r.Context())
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	responses := make([]ScanStatusResponse, 0, len(sessions))
	for i := range sessions {
		responses = append(responses, sessionResponse(&sessions[i]))
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]interface{}{"sessions": responses})
}

// CancelScan requests cancellation of a scan session
func (h *Handlers) CancelScan(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeJSONError(w, "invalid session id", http.StatusBadRequest)
		return
	}

	session, err := h.scanner.Cancel(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrSessionNotFound) {
			writeJSONError(w, "scan session not found", http.StatusNotFound)
			return
		}
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, sessionResponse(session))
}
