// Package client provides the HTTP client used to reach service-b.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"service-a/internal/config"
	"service-a/internal/metrics"
	"service-a/internal/model"
)

var (
	// ErrInvalidURL is returned when the downstream URL has no scheme or host.
	ErrInvalidURL = errors.New("invalid downstream url")

	// ErrResponseTooLarge is returned when the downstream body exceeds the configured limit.
	ErrResponseTooLarge = errors.New("downstream response too large")
)

// DownstreamClient is a long-lived client shared by all requests. It is safe
// for concurrent use.
type DownstreamClient struct {
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *metrics.Metrics
	maxBody    int64
}

// NewDownstreamClient creates a DownstreamClient with connection pooling.
// A zero downstream.timeout_seconds leaves calls unbounded except by the
// caller's context. The metrics parameter may be nil.
func NewDownstreamClient(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *DownstreamClient {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        cfg.Downstream.IdleConnections,
		MaxIdleConnsPerHost: cfg.Downstream.IdleConnections,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}

	return &DownstreamClient{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   time.Duration(cfg.Downstream.TimeoutSeconds) * time.Second,
		},
		logger:  logger.With("component", "downstream_client"),
		metrics: m,
		maxBody: cfg.Downstream.MaxResponseBytes,
	}
}

// Get issues a GET to rawURL and returns the fully read response. The body is
// closed before Get returns, on every path.
func (c *DownstreamClient) Get(ctx context.Context, rawURL string) (*model.DownstreamResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if req.URL.Scheme == "" || req.URL.Host == "" {
		return nil, fmt.Errorf("%w: %q has no scheme or host", ErrInvalidURL, rawURL)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("downstream request", "url", rawURL)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(start, 0)
		return nil, fmt.Errorf("downstream request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := c.readBody(resp.Body)
	c.observe(start, resp.StatusCode)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("downstream response",
		"status", resp.StatusCode,
		"bytes", len(body),
	)

	return &model.DownstreamResponse{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

func (c *DownstreamClient) readBody(r io.Reader) ([]byte, error) {
	if c.maxBody <= 0 {
		body, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("read downstream body: %w", err)
		}
		return body, nil
	}

	body, err := io.ReadAll(io.LimitReader(r, c.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("read downstream body: %w", err)
	}
	if int64(len(body)) > c.maxBody {
		return nil, fmt.Errorf("%w: limit %d bytes", ErrResponseTooLarge, c.maxBody)
	}
	return body, nil
}

// observe records call latency, and the status code when a response arrived.
func (c *DownstreamClient) observe(start time.Time, status int) {
	if c.metrics == nil {
		return
	}
	c.metrics.DownstreamDuration.Observe(time.Since(start).Seconds())
	if status != 0 {
		c.metrics.DownstreamResponses.WithLabelValues(strconv.Itoa(status)).Inc()
	}
}

// Close releases idle pooled connections. In-flight calls are unaffected.
func (c *DownstreamClient) Close() {
	c.httpClient.CloseIdleConnections()
}
