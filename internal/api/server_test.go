package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/overall-progress/internal/dom"
	"github.com/JakeFAU/overall-progress/internal/indicator"
	"github.com/JakeFAU/overall-progress/internal/poller"
)

func TestServer_Healthz(t *testing.T) {
	t.Parallel()

	server := NewServer(&fakeSource{}, nil, prometheus.NewRegistry(), nil)
	rec := serve(server, "/healthz", "")

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestServer_RequestIDPropagated(t *testing.T) {
	t.Parallel()

	server := NewServer(&fakeSource{}, nil, prometheus.NewRegistry(), nil)
	rec := serve(server, "/healthz", "req-123")
	require.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))
}

func TestServer_ReadyzBeforeAndAfterFirstPoll(t *testing.T) {
	t.Parallel()

	source := &fakeSource{}
	server := NewServer(source, nil, prometheus.NewRegistry(), nil)

	require.Equal(t, http.StatusServiceUnavailable, serve(server, "/readyz", "").Code)

	source.snap, source.ok = poller.Snapshot{Seq: 1}, true
	require.Equal(t, http.StatusOK, serve(server, "/readyz", "").Code)
}

func TestServer_IndicatorNotFoundBeforeFirstPoll(t *testing.T) {
	t.Parallel()

	server := NewServer(&fakeSource{}, nil, prometheus.NewRegistry(), nil)
	rec := serve(server, "/v1/indicator", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "no progress applied yet")
}

func TestServer_IndicatorReturnsSnapshotAndView(t *testing.T) {
	t.Parallel()

	page := dom.NewIndicatorPage()
	indicator.Render(page, 42, true)
	applied := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	source := &fakeSource{
		snap: poller.Snapshot{Seq: 7, Progress: 42, Active: true, Rendered: true, AppliedAt: applied},
		ok:   true,
	}
	server := NewServer(source, page, prometheus.NewRegistry(), nil)

	rec := serve(server, "/v1/indicator", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body indicatorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, uint64(7), body.Snapshot.Seq)
	require.True(t, body.Snapshot.AppliedAt.Equal(applied))
	require.NotNil(t, body.View)
	require.True(t, body.View.ContainerVisible)
	require.Equal(t, "42%", body.View.BarLabel)
}

func TestServer_NilSource(t *testing.T) {
	t.Parallel()

	server := NewServer(nil, nil, prometheus.NewRegistry(), nil)
	require.Equal(t, http.StatusServiceUnavailable, serve(server, "/v1/indicator", "").Code)
	require.Equal(t, http.StatusServiceUnavailable, serve(server, "/readyz", "").Code)
}

func TestServer_Metrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "progress_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	server := NewServer(&fakeSource{}, nil, reg, nil)
	rec := serve(server, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "progress_test_total 1")
}

func TestServer_RecoversPanics(t *testing.T) {
	t.Parallel()

	server := NewServer(panicSource{}, nil, prometheus.NewRegistry(), nil)
	rec := serve(server, "/v1/indicator", "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func serve(s *Server, path, reqID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if reqID != "" {
		req.Header.Set("X-Request-ID", reqID)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

type fakeSource struct {
	snap poller.Snapshot
	ok   bool
}

func (f *fakeSource) Snapshot() (poller.Snapshot, bool) {
	return f.snap, f.ok
}

type panicSource struct{}

func (panicSource) Snapshot() (poller.Snapshot, bool) {
	panic("snapshot exploded")
}
