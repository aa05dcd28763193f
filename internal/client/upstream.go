// Package client provides the outbound HTTP client used to reach relay targets.
package client

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"cors-relay-go/internal/config"
	"cors-relay-go/internal/metrics"
)

// UpstreamClient sends relayed requests to their targets.
type UpstreamClient struct {
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// NewUpstreamClient creates an UpstreamClient with connection pooling and timeouts.
// upstream.timeout_seconds limits how long the target may take to send its
// response headers.
// The metrics parameter is optional; pass nil to disable upstream metrics recording.
func NewUpstreamClient(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *UpstreamClient {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        cfg.Upstream.IdleConnections,
		MaxIdleConnsPerHost: cfg.Upstream.IdleConnections,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: 10 * time.Second,
		// Bounds the wait for the status line only. Bodies are streamed to the
		// client and may run longer than the timeout.
		ResponseHeaderTimeout: time.Duration(cfg.Upstream.TimeoutSeconds) * time.Second,
	}

	return &UpstreamClient{
		httpClient: &http.Client{
			Transport: transport,
		},
		logger:  logger.With("component", "upstream_client"),
		metrics: m,
	}
}

// Do executes req against its target and returns the raw response.
// The caller is responsible for closing the response body.
//
// Accept-Encoding is dropped so the transport negotiates compression itself
// and hands back a decoded body; the relay does not forward Content-Encoding.
func (c *UpstreamClient) Do(req *http.Request) (*http.Response, error) {
	req.Header.Del("Accept-Encoding")

	c.logger.Debug("upstream request",
		"method", req.Method,
		"host", req.URL.Host,
		"path", req.URL.Path,
	)

	start := time.Now()
	resp, err := c.httpClient.Do(req) //nolint:bodyclose // body ownership transfers to caller
	duration := time.Since(start).Seconds()

	method := metrics.NormalizeMethod(req.Method)

	if err != nil {
		if c.metrics != nil {
			c.metrics.UpstreamDuration.WithLabelValues(method).Observe(duration)
		}
		return nil, fmt.Errorf("upstream request: %w", err)
	}

	if c.metrics != nil {
		status := strconv.Itoa(resp.StatusCode)
		c.metrics.UpstreamDuration.WithLabelValues(method).Observe(duration)
		c.metrics.UpstreamResponses.WithLabelValues(method, status).Inc()
	}

	return resp, nil
}
