// Package service implements the /call-b forwarding logic.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"service-a/internal/client"
	"service-a/internal/config"
	"service-a/internal/metrics"
	"service-a/internal/model"
)

// PingPath is appended verbatim to the downstream base URL.
const PingPath = "/ping"

// ErrInvalidJSON is returned when service-b answers with a body that is not JSON.
var ErrInvalidJSON = errors.New("downstream body is not valid JSON")

// ErrorKind classifies why a forward failed.
type ErrorKind int

// Error kinds reported in ForwardError and the errors_total metric.
const (
	KindConfig ErrorKind = iota + 1
	KindTransport
	KindTimeout
	KindCanceled
	KindProtocol
)

func (k ErrorKind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindTransport:
		return "transport"
	case KindTimeout:
		return "timeout"
	case KindCanceled:
		return "canceled"
	case KindProtocol:
		return "protocol"
	default:
		return "unknown"
	}
}

// ForwardError is the only error type Forward returns.
type ForwardError struct {
	Kind ErrorKind
	Err  error
}

func (e *ForwardError) Error() string {
	return fmt.Sprintf("forward %s: %v", e.Kind, e.Err)
}

func (e *ForwardError) Unwrap() error {
	return e.Err
}

// Downstream is the subset of the client Forwarder needs.
type Downstream interface {
	Get(ctx context.Context, rawURL string) (*model.DownstreamResponse, error)
}

// Forwarder relays a single call to service-b's ping endpoint.
type Forwarder struct {
	downstream Downstream
	url        string
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// NewForwarder creates a Forwarder. The downstream URL is fixed here, from
// configuration resolved at startup. The metrics parameter may be nil.
func NewForwarder(c *client.DownstreamClient, cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *Forwarder {
	return newForwarder(c, cfg.Downstream.BaseURL, logger, m)
}

func newForwarder(d Downstream, baseURL string, logger *slog.Logger, m *metrics.Metrics) *Forwarder {
	return &Forwarder{
		downstream: d,
		url:        baseURL + PingPath,
		logger:     logger.With("component", "forwarder"),
		metrics:    m,
	}
}

// URL returns the downstream URL. It is the base URL and PingPath joined
// without any slash normalization.
func (f *Forwarder) URL() string {
	return f.url
}

// Forward performs one GET against service-b and wraps the JSON body. The
// downstream status code is not inspected: any JSON body is a success.
// Errors are always *ForwardError.
func (f *Forwarder) Forward(ctx context.Context) (*model.ForwardedResponse, error) {
	resp, err := f.downstream.Get(ctx, f.url)
	if err != nil {
		return nil, f.fail(classify(err), err)
	}

	if !json.Valid(resp.Body) {
		return nil, f.fail(KindProtocol, fmt.Errorf("%w (status %d, %d bytes)", ErrInvalidJSON, resp.StatusCode, len(resp.Body)))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		f.logger.Debug("relaying non-success downstream status", "status", resp.StatusCode)
	}

	return &model.ForwardedResponse{FromB: json.RawMessage(resp.Body)}, nil
}

func (f *Forwarder) fail(kind ErrorKind, err error) *ForwardError {
	if f.metrics != nil {
		f.metrics.DownstreamErrors.WithLabelValues(kind.String()).Inc()
	}
	return &ForwardError{Kind: kind, Err: err}
}

func classify(err error) ErrorKind {
	switch {
	case errors.Is(err, client.ErrInvalidURL):
		return KindConfig
	case errors.Is(err, client.ErrResponseTooLarge):
		return KindProtocol
	case errors.Is(err, context.Canceled):
		return KindCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	return KindTransport
}
