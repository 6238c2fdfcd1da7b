package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// HTTP sends gRPC-Web requests as HTTP POSTs.
type HTTP struct {
	client    *http.Client
	logger    zerolog.Logger
	userAgent string
}

// NewHTTP creates an HTTP round tripper.
func NewHTTP(opts ...Option) *HTTP {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &HTTP{
		client:    o.client,
		logger:    o.logger,
		userAgent: o.userAgent,
	}
}

// RoundTrip POSTs req.Body to <req.Endpoint>/<req.Method> and reads the
// whole response body. Non-2xx status codes are returned as a Response,
// not an error; only a failed exchange is an error.
func (t *HTTP) RoundTrip(ctx context.Context, req *Request) (*Response, error) {
	url := JoinURL(req.Endpoint, req.Method)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(req.Body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, value := range req.Header {
		httpReq.Header.Set(key, value)
	}
	httpReq.Header.Set("Content-Type", ContentType)
	httpReq.Header.Set("Accept", ContentType)
	httpReq.Header.Set(HeaderGRPCWeb, "1")
	if t.userAgent != "" {
		httpReq.Header.Set(HeaderUserAgent, t.userAgent)
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	t.logger.Debug().
		Str("url", url).
		Int("status", resp.StatusCode).
		Int("bytes", len(body)).
		Msg("http round trip")

	return &Response{
		StatusCode: resp.StatusCode,
		Status:     statusText(resp),
		Header:     flattenHeader(resp.Header),
		Body:       body,
	}, nil
}

// statusText strips the numeric code from resp.Status ("404 Not Found").
func statusText(resp *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return text
}

func flattenHeader(header http.Header) map[string]string {
	flat := make(map[string]string, len(header))
	for key, values := range header {
		if len(values) > 0 {
			flat[strings.ToLower(key)] = values[0]
		}
	}
	return flat
}
