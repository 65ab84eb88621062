package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"photo-dedup/internal/database"
	"photo-dedup/internal/duplicates"
)

// DuplicatesResponse wraps a set of duplicate groups.
type DuplicatesResponse struct {
	TotalGroups int                `json:"totalGroups"`
	Groups      []duplicates.Group `json:"groups"`
}

// GetDuplicates returns duplicate groups, running a clustering pass when
// requested or when no stored groups exist yet
func (h *Handlers) GetDuplicates(w http.ResponseWriter, r *http.Request) {
	folder := r.URL.Query().Get("folder")
	rescan := r.URL.Query().Get("rescan") == "true"
	status := database.GroupStatus(r.URL.Query().Get("status"))

	threshold := h.threshold
	if v := r.URL.Query().Get("threshold"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 || parsed > 30 {
			writeJSONError(w, "threshold must be between 1 and 30", http.StatusBadRequest)
			return
		}
		threshold = parsed
	}

	var groups []duplicates.Group
	var err error

	if rescan {
		groups, err = h.clusterer.FindDuplicates(r.Context(), folder, threshold)
	} else {
		groups, err = h.clusterer.StoredGroups(r.Context(), folder, status)
		if err == nil && len(groups) == 0 && status == "" {
			// Nothing clustered yet; run an initial pass
			groups, err = h.clusterer.FindDuplicates(r.Context(), folder, threshold)
		}
	}
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, DuplicatesResponse{
		TotalGroups: len(groups),
		Groups:      groups,
	})
}

// GetDuplicateGroups returns stored duplicate groups without reclustering
func (h *Handlers) GetDuplicateGroups(w http.ResponseWriter, r *http.Request) {
	folder := r.URL.Query().Get("folder")
	status := database.GroupStatus(r.URL.Query().Get("status"))

	groups, err := h.clusterer.StoredGroups(r.Context(), folder, status)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, DuplicatesResponse{
		TotalGroups: len(groups),
		Groups:      groups,
	})
}

// ApplyDuplicateAction applies keep/delete/favorite/decide_later to files
func (h *Handlers) ApplyDuplicateAction(w http.ResponseWriter, r *http.Request) {
	var req duplicates.ActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.FileIDs) == 0 {
		writeJSONError(w, "fileIds is required", http.StatusBadRequest)
		return
	}

	result, err := h.actor.Apply(r.Context(), req)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, result)
}
