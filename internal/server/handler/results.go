package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/dexarb/internal/domain"
)

// ResultStore lists recently recorded evaluations.
type ResultStore interface {
	ListRecent(ctx context.Context, limit int) ([]domain.OpportunityResult, error)
}

// ResultsHandler serves recorded evaluation results. The store is nil when
// Postgres persistence is disabled; requests then get a 501.
type ResultsHandler struct {
	store  ResultStore
	logger *slog.Logger
}

// NewResultsHandler creates a ResultsHandler backed by the given store.
func NewResultsHandler(store ResultStore, logger *slog.Logger) *ResultsHandler {
	return &ResultsHandler{store: store, logger: logger}
}

// listResultsResponse wraps the recent results payload.
type listResultsResponse struct {
	Results []domain.OpportunityResult `json:"results"`
}

// ListRecent returns the most recently recorded evaluation results.
// GET /api/v1/results/recent?limit=50
func (h *ResultsHandler) ListRecent(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusNotImplemented, "result store not configured")
		return
	}

	limit := parseLimit(r, 50, 500)

	rows, err := h.store.ListRecent(r.Context(), limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list results failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list results")
		return
	}

	if rows == nil {
		rows = []domain.OpportunityResult{}
	}

	writeJSON(w, http.StatusOK, listResultsResponse{Results: rows})
}
