package api

import (
	"net/http"
	"strconv"

	"github.com/constructorfleet/govee-ultimate-sub000/internal/journal"
)

// handleCommandJournal returns command lifecycle history, filtered and
// paginated via query parameters.
func (s *Server) handleCommandJournal(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeInternal, "command journal not configured")
		return
	}

	q := r.URL.Query()
	filter := journal.Filter{
		Event:    q.Get("event"),
		DeviceID: q.Get("device_id"),
		State:    q.Get("state"),
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeBadRequest(w, "limit must be an integer")
			return
		}
		filter.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeBadRequest(w, "offset must be an integer")
			return
		}
		filter.Offset = n
	}

	result, err := s.journal.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("listing command journal", "error", err)
		writeInternalError(w, "journal query failed")
		return
	}

	writeJSON(w, http.StatusOK, result)
}
