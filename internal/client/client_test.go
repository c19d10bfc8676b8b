package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/overall-progress/internal/status"
)

// TestFetchDecodesBody ensures the client hits the endpoint and decodes the response.
func TestFetchDecodesBody(t *testing.T) {
	t.Parallel()

	var gotPath, gotAccept, gotReqID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAccept = r.Header.Get("Accept")
		gotReqID = r.Header.Get("X-Request-ID")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"progress": 42, "is_active": true}`))
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL}, srv.Client(), nil)
	require.NoError(t, err)

	st, err := c.Fetch(context.Background())
	require.NoError(t, err)
	require.Equal(t, status.ProgressStatus{Progress: 42, Active: true}, st)
	require.Equal(t, DefaultPath, gotPath)
	require.Equal(t, "application/json", gotAccept)
	_, err = uuid.Parse(gotReqID)
	require.NoError(t, err)
}

func TestFetchUsesConfiguredActivityField(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"progress": 10, "is_running_or_pending": true}`))
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL, ActivityField: status.FieldIsRunningOrPending}, srv.Client(), nil)
	require.NoError(t, err)

	st, err := c.Fetch(context.Background())
	require.NoError(t, err)
	require.True(t, st.Active)
}

func TestFetchErrors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		handler http.HandlerFunc
		target  error
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
			target: ErrUnexpectedStatus,
		},
		{
			name: "html body",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte("<html>login</html>"))
			},
			target: status.ErrInvalidDocument,
		},
	}
	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()

			c, err := New(Config{BaseURL: srv.URL}, srv.Client(), nil)
			require.NoError(t, err)
			_, err = c.Fetch(context.Background())
			require.Error(t, err)
			require.True(t, errors.Is(err, tc.target), "got %v", err)
		})
	}
}

// TestFetchNetworkFailure covers a refused connection.
func TestFetchNetworkFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c, err := New(Config{BaseURL: base, Timeout: time.Second}, nil, nil)
	require.NoError(t, err)
	_, err = c.Fetch(context.Background())
	require.Error(t, err)
}

func TestEndpoint(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		base    string
		path    string
		want    string
		wantErr bool
	}{
		{"default path", "http://localhost:8000", "", "http://localhost:8000/overall-progress/", false},
		{"trailing slash", "http://localhost:8000/", "/overall-progress/", "http://localhost:8000/overall-progress/", false},
		{"custom path", "https://tasks.example.com", "/api/progress", "https://tasks.example.com/api/progress", false},
		{"no scheme", "localhost:8000", "", "", true},
		{"no host", "http://", "", "", true},
		{"bad scheme", "ftp://example.com", "", "", true},
	}
	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := Endpoint(tc.base, tc.path)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}
