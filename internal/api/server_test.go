package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/contact-crawler/internal/app"
	"github.com/JakeFAU/contact-crawler/internal/worker"
)

type staticSource struct {
	status app.RunStatus
}

func (s staticSource) Status() app.RunStatus { return s.status }

func newTestServer(phase app.Phase) *Server {
	return NewServer(staticSource{status: app.RunStatus{
		RunID:          "run-1",
		Phase:          phase,
		StartedAt:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		LinksCollected: 12,
		Processed:      5,
		Outcomes:       map[string]int{worker.OutcomeSuccess: 4, worker.OutcomeNoEmail: 1},
	}}, zap.NewNop())
}

func serve(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	rec := serve(t, newTestServer(app.PhaseResolving), "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestReadyzReflectsRunPhase(t *testing.T) {
	t.Parallel()

	require.Equal(t, http.StatusOK, serve(t, newTestServer(app.PhaseCollecting), "/readyz").Code)
	require.Equal(t, http.StatusServiceUnavailable, serve(t, newTestServer(app.PhaseFailed), "/readyz").Code)
	require.Equal(t, http.StatusServiceUnavailable, serve(t, NewServer(nil, nil), "/readyz").Code)
}

func TestRunStatusReturnsSnapshot(t *testing.T) {
	t.Parallel()

	rec := serve(t, newTestServer(app.PhaseResolving), "/v1/run")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got app.RunStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "run-1", got.RunID)
	require.Equal(t, app.PhaseResolving, got.Phase)
	require.Equal(t, 12, got.LinksCollected)
	require.Equal(t, 4, got.Outcomes[worker.OutcomeSuccess])
}

func TestRunStatusWithoutSource(t *testing.T) {
	t.Parallel()

	rec := serve(t, NewServer(nil, nil), "/v1/run")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsEndpointServesRegistry(t *testing.T) {
	t.Parallel()

	s := newTestServer(app.PhaseDone)
	serve(t, s, "/healthz")
	rec := serve(t, s, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "contactcrawler_")
}

func TestRequestIDMiddlewareSetsHeader(t *testing.T) {
	t.Parallel()

	rec := serve(t, newTestServer(app.PhaseDone), "/healthz")
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc")
	rec = httptest.NewRecorder()
	newTestServer(app.PhaseDone).Handler().ServeHTTP(rec, req)
	require.Equal(t, "abc", rec.Header().Get("X-Request-ID"))
}

func TestRecoverMiddleware(t *testing.T) {
	t.Parallel()

	s := newTestServer(app.PhaseDone)
	r := chi.NewRouter()
	r.Use(s.recoverMiddleware)
	r.Get("/boom", func(http.ResponseWriter, *http.Request) { panic("boom") })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestStartAndShutdown(t *testing.T) {
	t.Parallel()

	s := newTestServer(app.PhaseDone)
	addr, err := s.Start("127.0.0.1:0")
	require.NoError(t, err)

	resp, err := http.Get("http://" + addr + "/healthz")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), "ok")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))
	require.NoError(t, NewServer(nil, nil).Shutdown(ctx))
}
