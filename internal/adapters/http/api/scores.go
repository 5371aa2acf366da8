package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/level114/warden/internal/adapters/repository"
)

// ScoresHandler serves ranked score listings and single-server lookups.
type ScoresHandler struct {
	store    Store
	maxLimit int
}

// NewScoresHandler creates a scores handler.
func NewScoresHandler(store Store) *ScoresHandler {
	return &ScoresHandler{store: store, maxLimit: defaultMaxLimit}
}

// HandleList handles GET /api/scores?limit=N requests. The limit defaults
// to the configured maximum.
func (h *ScoresHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	n := h.maxLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
			return
		}
		if parsed > h.maxLimit {
			writeError(w, http.StatusBadRequest, "limit_exceeded", ErrBadRequest)
			return
		}
		n = parsed
	}

	entries, err := h.store.TopN(r.Context(), n)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// HandleGet handles GET /api/scores/{server_id} requests.
func (h *ScoresHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	serverID := strings.TrimPrefix(r.URL.Path, "/api/scores/")
	if serverID == "" || strings.Contains(serverID, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}

	entry, err := h.store.Rank(r.Context(), serverID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}
