// Package model defines shared types for service-a.
package model

import (
	"encoding/json"
	"net/http"
)

// DownstreamResponse is a fully read response from service-b. The underlying
// connection has already been released when a caller sees it.
type DownstreamResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// ForwardedResponse is the /call-b envelope. FromB holds the downstream JSON
// value byte for byte.
type ForwardedResponse struct {
	FromB json.RawMessage `json:"from-b"`
}
