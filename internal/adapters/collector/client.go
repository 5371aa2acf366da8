package collector

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/level114/warden/internal/domain/model"
	"github.com/level114/warden/pkg/logger"
	"github.com/level114/warden/pkg/metrics"
)

// maxResponseBytes bounds a single Collector response body.
const maxResponseBytes = 8 << 20

// HTTPClient implements Client against the Collector's JSON API.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	log     logger.Logger
}

// ClientOption applies a configuration option to the HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout bounds a single request.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *HTTPClient) {
		if h != nil {
			c.http = h
		}
	}
}

// NewHTTPClient creates a client for the Collector at baseURL.
func NewHTTPClient(baseURL string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 5 * time.Second},
		log:     logger.Named("collector"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Servers lists registered servers.
func (c *HTTPClient) Servers(ctx context.Context) ([]ServerInfo, error) {
	var out struct {
		Servers []ServerInfo `json:"servers"`
	}
	if _, err := c.getJSON(ctx, "servers", "/api/v1/servers", &out); err != nil {
		return nil, err
	}
	return out.Servers, nil
}

// ServerKey resolves a server's Ed25519 public key.
func (c *HTTPClient) ServerKey(ctx context.Context, serverID string) (ed25519.PublicKey, error) {
	var out struct {
		PublicKey string `json:"public_key"`
	}
	path := "/api/v1/servers/" + url.PathEscape(serverID) + "/key"
	if _, err := c.getJSON(ctx, "server_key", path, &out); err != nil {
		return nil, err
	}

	key, err := base64.StdEncoding.DecodeString(out.PublicKey)
	if err != nil {
		key, err = base64.RawURLEncoding.DecodeString(strings.TrimRight(out.PublicKey, "="))
	}
	if err != nil || len(key) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: public key for %s", ErrBadResponse, serverID)
	}
	return ed25519.PublicKey(key), nil
}

// LatestReport fetches the newest report and the measured round-trip time.
func (c *HTTPClient) LatestReport(ctx context.Context, serverID string) (*model.Report, time.Duration, error) {
	var out model.Report
	path := "/api/v1/servers/" + url.PathEscape(serverID) + "/reports/latest"
	latency, err := c.getJSON(ctx, "latest_report", path, &out)
	if err != nil {
		return nil, latency, err
	}
	return &out, latency, nil
}

// Reports fetches up to n reports, most recent first.
func (c *HTTPClient) Reports(ctx context.Context, serverID string, n int) ([]*model.Report, error) {
	var out struct {
		Reports []*model.Report `json:"reports"`
	}
	path := "/api/v1/servers/" + url.PathEscape(serverID) + "/reports?limit=" + strconv.Itoa(n)
	if _, err := c.getJSON(ctx, "reports", path, &out); err != nil {
		return nil, err
	}
	return out.Reports, nil
}

// getJSON performs one GET, decodes the body into out and returns the
// measured round-trip.
func (c *HTTPClient) getJSON(ctx context.Context, endpoint, path string, out interface{}) (time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	start := time.Now()
	resp, err := c.http.Do(req)
	latency := time.Since(start)
	metrics.RecordCollectorRequest(endpoint, latency.Seconds())

	if err != nil {
		metrics.RecordCollectorError(endpoint)
		return latency, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return latency, ErrNotFound
	case resp.StatusCode != http.StatusOK:
		metrics.RecordCollectorError(endpoint)
		return latency, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		metrics.RecordCollectorError(endpoint)
		return latency, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		metrics.RecordCollectorError(endpoint)
		return latency, fmt.Errorf("%w: %w", ErrBadResponse, err)
	}

	c.log.Debug(ctx, "collector request",
		logger.String("endpoint", endpoint),
		logger.Duration("latency", latency),
	)
	return latency, nil
}
