// Package transport moves one framed gRPC-Web request to a peer and brings
// back the framed response body.
//
// Two round trippers are provided:
//   - HTTP: a POST to <endpoint>/<package.Service>/<Method>
//   - DataChannel: a request envelope over a WebRTC DataChannel, with replies
//     matched by x-request-id
//
// Round trippers never interpret frames or trailers; that is left to the
// caller (see package unary).
package transport

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
)

// Wire-level header names and values.
const (
	ContentType     = "application/grpc-web+proto"
	HeaderGRPCWeb   = "X-Grpc-Web"
	HeaderUserAgent = "X-User-Agent"
	HeaderRequestID = "x-request-id"

	defaultUserAgent = "grpcweb-bridge-go/1.0"
)

// Request is one framed unary request.
type Request struct {
	Endpoint string            // Base URL, e.g. "https://api.example.com"
	Method   string            // "package.Service/Method"
	Header   map[string]string // Extra request metadata
	Body     []byte            // One gRPC-Web message frame
}

// Path returns the method path with a leading slash.
func (r *Request) Path() string {
	return "/" + strings.TrimLeft(r.Method, "/")
}

// Response is what came back from the peer. Header keys are lower-cased.
type Response struct {
	StatusCode int
	Status     string
	Header     map[string]string
	Body       []byte
}

// OK reports whether the status code is in the 2xx range.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// RoundTripper performs a single request/response exchange.
type RoundTripper interface {
	RoundTrip(ctx context.Context, req *Request) (*Response, error)
}

// Func adapts a function to RoundTripper.
type Func func(ctx context.Context, req *Request) (*Response, error)

// RoundTrip calls f(ctx, req).
func (f Func) RoundTrip(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// JoinURL joins an endpoint base and a method path with exactly one slash.
func JoinURL(endpoint, method string) string {
	return strings.TrimRight(endpoint, "/") + "/" + strings.TrimLeft(method, "/")
}

// Option configures a round tripper.
type Option func(*options)

type options struct {
	client    *http.Client
	logger    zerolog.Logger
	userAgent string
}

func defaultOptions() options {
	return options{
		client:    http.DefaultClient,
		logger:    zerolog.Nop(),
		userAgent: defaultUserAgent,
	}
}

// WithHTTPClient sets the client used by the HTTP round tripper.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		if client != nil {
			o.client = client
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithUserAgent overrides the X-User-Agent value.
func WithUserAgent(userAgent string) Option {
	return func(o *options) {
		o.userAgent = userAgent
	}
}
