// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"sort"

	"github.com/fragdrop/fragwatch/internal/adapters/repository"
	"github.com/fragdrop/fragwatch/internal/domain/model"
)

const defaultChangesLimit = 50

// StockDependencies defines the interface for stock queries.
type StockDependencies interface {
	RecentChanges(ctx context.Context, n int) ([]repository.ChangeRecord, error)
	Snapshot(ctx context.Context) (model.CatalogSnapshot, bool, error)
}

// StockHandler handles catalog change and product listing requests.
type StockHandler struct {
	deps     StockDependencies
	maxLimit int
}

// NewStockHandler creates a new stock handler.
func NewStockHandler(deps StockDependencies) *StockHandler {
	return &StockHandler{deps: deps, maxLimit: maxHistoryLimit}
}

// HandleGetChanges handles GET /stock/changes?limit=N requests.
func (h *StockHandler) HandleGetChanges(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	n, err := parseLimit(r, defaultChangesLimit, h.maxLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	changes, err := h.deps.RecentChanges(r.Context(), n)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	if changes == nil {
		changes = []repository.ChangeRecord{}
	}
	writeJSON(w, http.StatusOK, changes)
}

// productsResponse is the read shape for GET /stock/products.
type productsResponse struct {
	Baseline bool                  `json:"baseline"`
	Count    int                   `json:"count"`
	Products []model.ProductRecord `json:"products"`
}

// HandleGetProducts handles GET /stock/products requests, listing the
// catalog baseline sorted by slug.
func (h *StockHandler) HandleGetProducts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	snap, ok, err := h.deps.Snapshot(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	products := make([]model.ProductRecord, 0, len(snap))
	for _, rec := range snap {
		products = append(products, rec)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].Slug < products[j].Slug })
	writeJSON(w, http.StatusOK, productsResponse{Baseline: ok, Count: len(products), Products: products})
}
