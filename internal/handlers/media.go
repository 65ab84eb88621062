package handlers

import (
	"net/http"
	"strconv"

	"photo-dedup/internal/database"
)

// GetMedia lists media records filtered by capture date and folder
func (h *Handlers) GetMedia(w http.ResponseWriter, r *http.Request) {
	q := database.MediaQuery{
		FolderPrefix: r.URL.Query().Get("folder"),
	}

	for _, part := range []struct {
		name string
		dest *int
		max  int
	}{
		{"year", &q.Year, 9999},
		{"month", &q.Month, 12},
		{"day", &q.Day, 31},
		{"limit", &q.Limit, 10000},
	} {
		v := r.URL.Query().Get(part.name)
		if v == "" {
			continue
		}
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 || parsed > part.max {
			writeJSONError(w, "invalid "+part.name, http.StatusBadRequest)
			return
		}
		*part.dest = parsed
	}

	records, err := h.db.QueryMedia(r.Context(), q)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]interface{}{
		"totalFiles": len(records),
		"files":      records,
	})
}
