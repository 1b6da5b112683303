// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/fragdrop/fragwatch/internal/adapters/repository"
	"github.com/fragdrop/fragwatch/internal/domain/model"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the service implementation.
type Dependencies interface {
	// RecentDrops returns up to n detected drops, newest first.
	RecentDrops(ctx context.Context, n int) ([]repository.DropRecord, error)

	// RecentChanges returns up to n catalog change records, newest first.
	RecentChanges(ctx context.Context, n int) ([]repository.ChangeRecord, error)

	// Snapshot returns the current catalog baseline.
	Snapshot(ctx context.Context) (model.CatalogSnapshot, bool, error)
}

// Server wires HTTP routes for the monitoring API.
type Server struct {
	healthHandler  *HealthHandler
	metricsHandler *MetricsHandler
	statusHandler  *StatusHandler
	dropsHandler   *DropsHandler
	stockHandler   *StockHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:  NewHealthHandler(),
		metricsHandler: NewMetricsHandler(),
		statusHandler:  NewStatusHandler(statsProvider),
		dropsHandler:   NewDropsHandler(deps),
		stockHandler:   NewStockHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/metrics", s.metricsHandler.HandleMetrics)
	mux.HandleFunc("/status", MetricsMiddleware(s.statusHandler.HandleStatus, "status"))
	mux.HandleFunc("/drops", MetricsMiddleware(s.dropsHandler.HandleGetDrops, "drops"))
	mux.HandleFunc("/stock/changes", MetricsMiddleware(s.stockHandler.HandleGetChanges, "stock_changes"))
	mux.HandleFunc("/stock/products", MetricsMiddleware(s.stockHandler.HandleGetProducts, "stock_products"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
