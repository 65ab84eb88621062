package handlers

import (
	"encoding/json"
	"net/http"
	"os"
)

// OrganizeRequest moves files under a folder into date subfolders.
type OrganizeRequest struct {
	FolderPath string `json:"folderPath"`
	DryRun     bool   `json:"dryRun"`
}

// Organize moves photos into YEAR/MM-Month folders by capture date
func (h *Handlers) Organize(w http.ResponseWriter, r *http.Request) {
	var req OrganizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.FolderPath == "" {
		writeJSONError(w, "folderPath is required", http.StatusBadRequest)
		return
	}

	result, err := h.organizer.Organize(r.Context(), req.FolderPath, req.DryRun)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, result)
}

// PreviewOrganize returns the moves an organize pass would make
func (h *Handlers) PreviewOrganize(w http.ResponseWriter, r *http.Request) {
	folderPath := r.URL.Query().Get("folderPath")
	if folderPath == "" {
		writeJSONError(w, "folderPath is required", http.StatusBadRequest)
		return
	}
	if info, err := os.Stat(folderPath); err != nil || !info.IsDir() {
		writeJSONError(w, "folder not found: "+folderPath, http.StatusBadRequest)
		return
	}

	items, err := h.organizer.Preview(r.Context(), folderPath)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]interface{}{
		"folderPath": folderPath,
		"totalFiles": len(items),
		"preview":    items,
	})
}
