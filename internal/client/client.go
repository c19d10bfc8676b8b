// Package client fetches the overall progress document over HTTP.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/overall-progress/internal/id/uuid"
	"github.com/JakeFAU/overall-progress/internal/status"
)

// DefaultPath is the well-known progress endpoint.
const DefaultPath = "/overall-progress/"

const maxBodyBytes = 1 << 20

// ErrUnexpectedStatus is returned for non-2xx responses.
var ErrUnexpectedStatus = errors.New("unexpected response status")

// Config controls how the client reaches the endpoint.
type Config struct {
	BaseURL string
	Path    string
	Timeout time.Duration
	// ActivityField selects the activity flag key; see status.NewDecoder.
	ActivityField string
}

// Client issues GET requests against the progress endpoint.
type Client struct {
	endpoint string
	http     *http.Client
	decoder  status.Decoder
	logger   *zap.Logger
}

// New validates cfg and builds a Client. A nil httpClient gets a default one
// using cfg.Timeout.
func New(cfg Config, httpClient *http.Client, logger *zap.Logger) (*Client, error) {
	endpoint, err := Endpoint(cfg.BaseURL, cfg.Path)
	if err != nil {
		return nil, err
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		endpoint: endpoint,
		http:     httpClient,
		decoder:  status.NewDecoder(cfg.ActivityField),
		logger:   logger,
	}, nil
}

// Endpoint joins base and path into an absolute URL.
func Endpoint(base, path string) (string, error) {
	if path == "" {
		path = DefaultPath
	}
	u, err := url.Parse(strings.TrimSpace(base))
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("base url %q must use http or https", base)
	}
	if u.Host == "" {
		return "", fmt.Errorf("base url %q has no host", base)
	}
	ref, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("parse path: %w", err)
	}
	return u.ResolveReference(ref).String(), nil
}

// URL returns the resolved endpoint.
func (c *Client) URL() string {
	return c.endpoint
}

// Fetch performs one GET and decodes the body.
func (c *Client) Fetch(ctx context.Context) (status.ProgressStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return status.ProgressStatus{}, fmt.Errorf("build request: %w", err)
	}
	reqID := uuid.New().NewID()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)

	resp, err := c.http.Do(req)
	if err != nil {
		return status.ProgressStatus{}, fmt.Errorf("get %s: %w", c.endpoint, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Debug("close response body", zap.Error(cerr))
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return status.ProgressStatus{}, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return status.ProgressStatus{}, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	st, err := c.decoder.Decode(body)
	if err != nil {
		return status.ProgressStatus{}, fmt.Errorf("decode response: %w", err)
	}
	c.logger.Debug("progress fetched",
		zap.String("request_id", reqID),
		zap.Float64("progress", st.Progress),
		zap.Bool("active", st.Active),
	)
	return st, nil
}
