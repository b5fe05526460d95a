package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/dexarb/internal/domain"
	"github.com/alanyoungcy/dexarb/internal/server/handler"
	"github.com/alanyoungcy/dexarb/internal/service"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubSummary struct {
	snap service.SummarySnapshot
}

func (s stubSummary) Summary() service.SummarySnapshot { return s.snap }

type stubAdmission struct {
	pairs []domain.PairKey
}

func (s stubAdmission) InFlight() []domain.PairKey { return s.pairs }

type stubQueue struct {
	n int
}

func (s stubQueue) Pending() int { return s.n }

type stubResults struct {
	rows     []domain.OpportunityResult
	gotLimit int
	err      error
}

func (s *stubResults) ListRecent(_ context.Context, limit int) ([]domain.OpportunityResult, error) {
	s.gotLimit = limit
	if s.err != nil {
		return nil, s.err
	}
	return s.rows, nil
}

// newTestHandler builds the full middleware chain the way NewServer wires it.
func newTestHandler(apiKey string, store handler.ResultStore) http.Handler {
	snap := service.SummarySnapshot{
		Cycles:        12,
		Opportunities: 3,
		BestPair:      "ETH/USDC",
	}

	handlers := Handlers{
		Health: handler.NewHealthHandler(),
		Status: handler.NewStatusHandler(
			"full",
			time.Now().Add(-90*time.Second),
			stubSummary{snap},
			stubAdmission{[]domain.PairKey{"ETH/USDC"}},
			stubQueue{2},
		),
		Results: handler.NewResultsHandler(store, testLogger()),
	}

	s := NewServer(Config{Port: 0, APIKey: apiKey}, handlers, testLogger())
	return s.httpServer.Handler
}

func getJSON(t *testing.T, srv *httptest.Server, path string, out any) *http.Response {
	t.Helper()
	resp, err := http.Get(srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func TestHealthEndpoint(t *testing.T) {
	srv := httptest.NewServer(newTestHandler("", nil))
	defer srv.Close()

	var body map[string]any
	resp := getJSON(t, srv, "/healthz", &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestStatusEndpoint(t *testing.T) {
	srv := httptest.NewServer(newTestHandler("", nil))
	defer srv.Close()

	var body struct {
		Mode          string   `json:"mode"`
		Uptime        string   `json:"uptime"`
		InFlightPairs []string `json:"in_flight_pairs"`
		PendingJobs   int      `json:"pending_jobs"`
		Summary       struct {
			Cycles        int64  `json:"cycles"`
			Opportunities int64  `json:"opportunities"`
			BestPair      string `json:"best_pair"`
		} `json:"summary"`
	}
	resp := getJSON(t, srv, "/api/v1/status", &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "full", body.Mode)
	assert.NotEmpty(t, body.Uptime)
	assert.Equal(t, []string{"ETH/USDC"}, body.InFlightPairs)
	assert.Equal(t, 2, body.PendingJobs)
	assert.Equal(t, int64(12), body.Summary.Cycles)
	assert.Equal(t, int64(3), body.Summary.Opportunities)
	assert.Equal(t, "ETH/USDC", body.Summary.BestPair)
}

func TestResultsEndpoint(t *testing.T) {
	store := &stubResults{rows: []domain.OpportunityResult{
		{ID: "r1", CEXPair: "ETH/USDC"},
		{ID: "r2", CEXPair: "ETH/USDC"},
	}}
	srv := httptest.NewServer(newTestHandler("", store))
	defer srv.Close()

	var body struct {
		Results []domain.OpportunityResult `json:"results"`
	}
	resp := getJSON(t, srv, "/api/v1/results/recent?limit=2", &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, store.gotLimit)
	require.Len(t, body.Results, 2)
	assert.Equal(t, "r1", body.Results[0].ID)
}

func TestResultsEndpointCapsLimit(t *testing.T) {
	store := &stubResults{}
	srv := httptest.NewServer(newTestHandler("", store))
	defer srv.Close()

	var body struct {
		Results []domain.OpportunityResult `json:"results"`
	}
	resp := getJSON(t, srv, "/api/v1/results/recent?limit=9999", &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 500, store.gotLimit)
	assert.NotNil(t, body.Results)
}

func TestResultsEndpointWithoutStore(t *testing.T) {
	srv := httptest.NewServer(newTestHandler("", nil))
	defer srv.Close()

	resp := getJSON(t, srv, "/api/v1/results/recent", nil)
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)
}

func TestAuthProtectsAPIRoutes(t *testing.T) {
	srv := httptest.NewServer(newTestHandler("sekrit", nil))
	defer srv.Close()

	// No token.
	resp, err := http.Get(srv.URL + "/api/v1/status")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Wrong token.
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/status", nil)
	req.Header.Set("X-API-Key", "wrong")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Correct token via X-API-Key.
	req, _ = http.NewRequest(http.MethodGet, srv.URL+"/api/v1/status", nil)
	req.Header.Set("X-API-Key", "sekrit")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Correct token via Bearer scheme.
	req, _ = http.NewRequest(http.MethodGet, srv.URL+"/api/v1/status", nil)
	req.Header.Set("Authorization", "Bearer sekrit")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Health stays open.
	resp, err = http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServerShutdown(t *testing.T) {
	handlers := Handlers{
		Health:  handler.NewHealthHandler(),
		Status:  handler.NewStatusHandler("evaluate", time.Now(), nil, nil, nil),
		Results: handler.NewResultsHandler(nil, testLogger()),
	}
	s := NewServer(Config{Port: 0}, handlers, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))
}
