package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMiddleware(t *testing.T) {
	t.Parallel()

	m, err := NewHTTP(prometheus.NewRegistry())
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/v1/things/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/missing", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, path := range []string{"/v1/things/1", "/v1/things/2", "/missing"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	require.InDelta(t, 2, testutil.ToFloat64(m.requestsTotal.WithLabelValues("GET", "/v1/things/{id}", "200")), 0)
	require.InDelta(t, 1, testutil.ToFloat64(m.requestsTotal.WithLabelValues("GET", "/missing", "404")), 0)
	require.Positive(t, testutil.CollectAndCount(m.requestDurationSeconds))
}

func TestMiddlewareWithoutRouter(t *testing.T) {
	t.Parallel()

	m, err := NewHTTP(prometheus.NewRegistry())
	require.NoError(t, err)

	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.InDelta(t, 1, testutil.ToFloat64(m.requestsTotal.WithLabelValues("GET", "unknown", "418")), 0)
}

func TestRoundTripper(t *testing.T) {
	t.Parallel()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer upstream.Close()

	m, err := NewHTTP(prometheus.NewRegistry())
	require.NoError(t, err)

	c := &http.Client{Transport: m.RoundTripper(nil)}
	resp, err := c.Get(upstream.URL)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	require.InDelta(t, 1, testutil.ToFloat64(m.upstreamRequestsTotal.WithLabelValues("get", "503")), 0)
	require.Equal(t, 1, testutil.CollectAndCount(m.upstreamDurationSeconds))
}

func TestNewHTTPDuplicateRegistration(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	_, err := NewHTTP(reg)
	require.NoError(t, err)
	_, err = NewHTTP(reg)
	require.Error(t, err)
}
