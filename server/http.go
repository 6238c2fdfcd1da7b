package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/yhonda-ohishi/grpcweb-bridge/codec"
	"github.com/yhonda-ohishi/grpcweb-bridge/transport"
)

// MaxRequestBytes caps the size of an HTTP request body.
const MaxRequestBytes = 4 << 20

const (
	allowHeaders  = "content-type, x-grpc-web, x-user-agent, x-request-id, authorization"
	exposeHeaders = "grpc-status, grpc-message, x-request-id"
)

// ServeHTTP answers gRPC-Web POSTs and CORS preflights. Protocol failures
// are reported in the trailer with HTTP 200, like any gRPC-Web server.
func (m *Mux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", m.origin)
	h.Set("Access-Control-Expose-Headers", exposeHeaders)

	switch r.Method {
	case http.MethodOptions:
		h.Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", allowHeaders)
		h.Set("Access-Control-Max-Age", "86400")
		w.WriteHeader(http.StatusNoContent)
		return
	case http.MethodPost:
	default:
		h.Set("Allow", "POST, OPTIONS")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if !isGRPCWeb(r.Header.Get("Content-Type")) {
		http.Error(w, "unsupported content type", http.StatusUnsupportedMediaType)
		return
	}

	requestID := r.Header.Get(transport.HeaderRequestID)
	h.Set("Content-Type", transport.ContentType)
	if requestID != "" {
		h.Set(transport.HeaderRequestID, requestID)
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxRequestBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			m.writeBody(w, Reply(nil, codec.StatusResourceExhausted, "request body too large"))
			return
		}
		m.logger.Warn().Err(err).Str("path", r.URL.Path).Msg("failed to read request body")
		m.writeBody(w, Reply(nil, codec.StatusInvalidArgument, "failed to read request body"))
		return
	}

	message, grpcErr := requestMessage(body)
	if grpcErr != nil {
		m.writeBody(w, Reply(nil, grpcErr.Code, grpcErr.Message))
		return
	}

	m.writeBody(w, m.Handle(r.Context(), &Request{
		Path:    r.URL.Path,
		Header:  flattenHeader(r.Header),
		Message: message,
	}))
}

func (m *Mux) writeBody(w http.ResponseWriter, body []byte) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		m.logger.Debug().Err(err).Msg("failed to write response")
	}
}

func isGRPCWeb(contentType string) bool {
	ct, _, _ := strings.Cut(contentType, ";")
	ct = strings.TrimSpace(strings.ToLower(ct))
	return ct == "application/grpc-web" || ct == transport.ContentType
}

func flattenHeader(header http.Header) map[string]string {
	out := make(map[string]string, len(header))
	for key, values := range header {
		if len(values) > 0 {
			out[strings.ToLower(key)] = values[0]
		}
	}
	return out
}
