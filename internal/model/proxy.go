// Package model defines shared types for the relay.
package model

import (
	"io"
	"net/http"

	"cors-relay-go/internal/headers"
)

// InboundRequest is the client request as seen by the relay.
// RawURL is the full inbound URL (gateway scheme and host included) whose
// path carries the composite target.
type InboundRequest struct {
	Method string
	RawURL string
	Header http.Header
	Body   io.Reader
}

// ProxyResponse represents the upstream response to be streamed back.
// Passthrough holds the curated upstream headers with lowercased names.
type ProxyResponse struct {
	StatusCode  int
	ContentType string
	Passthrough *headers.Ordered
	Body        io.ReadCloser
}

// ErrorBody is the JSON envelope returned for rejected or failed requests.
type ErrorBody struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}
