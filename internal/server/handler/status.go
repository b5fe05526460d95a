package handler

import (
	"net/http"
	"time"

	"github.com/alanyoungcy/dexarb/internal/domain"
	"github.com/alanyoungcy/dexarb/internal/service"
)

// SummarySource provides the rolling cycle summary.
type SummarySource interface {
	Summary() service.SummarySnapshot
}

// AdmissionView lists pairs currently holding an execution slot.
type AdmissionView interface {
	InFlight() []domain.PairKey
}

// QueueView reports jobs waiting for a settlement worker.
type QueueView interface {
	Pending() int
}

// StatusHandler serves the engine status for operators. The summary,
// admission, and queue sources may each be nil when the corresponding
// component is not running in the current mode.
type StatusHandler struct {
	mode      string
	started   time.Time
	summary   SummarySource
	admission AdmissionView
	queue     QueueView
}

// NewStatusHandler creates a StatusHandler for an engine started at the given
// time.
func NewStatusHandler(mode string, started time.Time, summary SummarySource, admission AdmissionView, queue QueueView) *StatusHandler {
	return &StatusHandler{
		mode:      mode,
		started:   started,
		summary:   summary,
		admission: admission,
		queue:     queue,
	}
}

// statusResponse is the status endpoint payload.
type statusResponse struct {
	Mode          string                  `json:"mode"`
	StartedAt     string                  `json:"started_at"`
	Uptime        string                  `json:"uptime"`
	Summary       service.SummarySnapshot `json:"summary"`
	InFlightPairs []domain.PairKey        `json:"in_flight_pairs"`
	PendingJobs   int                     `json:"pending_jobs"`
}

// GetStatus responds with the current mode, uptime, and cycle summary.
// GET /api/v1/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Mode:          h.mode,
		StartedAt:     h.started.UTC().Format(time.RFC3339),
		Uptime:        time.Since(h.started).Round(time.Second).String(),
		InFlightPairs: []domain.PairKey{},
	}

	if h.summary != nil {
		resp.Summary = h.summary.Summary()
	}
	if h.admission != nil {
		if pairs := h.admission.InFlight(); len(pairs) > 0 {
			resp.InFlightPairs = pairs
		}
	}
	if h.queue != nil {
		resp.PendingJobs = h.queue.Pending()
	}

	writeJSON(w, http.StatusOK, resp)
}
