// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/fragdrop/fragwatch/internal/adapters/repository"
)

const defaultDropsLimit = 25

// DropsDependencies defines the interface for drop history queries.
type DropsDependencies interface {
	RecentDrops(ctx context.Context, n int) ([]repository.DropRecord, error)
}

// DropsHandler handles drop history requests.
type DropsHandler struct {
	deps     DropsDependencies
	maxLimit int
}

// NewDropsHandler creates a new drops handler.
func NewDropsHandler(deps DropsDependencies) *DropsHandler {
	return &DropsHandler{deps: deps, maxLimit: maxHistoryLimit}
}

// HandleGetDrops handles GET /drops?limit=N requests.
func (h *DropsHandler) HandleGetDrops(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	n, err := parseLimit(r, defaultDropsLimit, h.maxLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	drops, err := h.deps.RecentDrops(r.Context(), n)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	if drops == nil {
		drops = []repository.DropRecord{}
	}
	writeJSON(w, http.StatusOK, drops)
}

// parseLimit reads ?limit=N, applying a default and an upper bound.
func parseLimit(r *http.Request, def, max int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, ErrBadLimit
	}
	if n > max {
		return 0, ErrLimitExceeded
	}
	return n, nil
}
