// Package server answers gRPC-Web unary calls.
//
// A Mux routes "/package.Service/Method" paths to handlers. It serves
// plain HTTP (it is an http.Handler) and WebRTC DataChannels carrying the
// request/response envelopes of package codec. Every reply is at most one
// message frame followed by a trailer frame holding grpc-status and a
// percent-encoded grpc-message.
package server

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/yhonda-ohishi/grpcweb-bridge/codec"
)

// Request is one decoded unary request.
type Request struct {
	Path    string            // "/package.Service/Method"
	Header  map[string]string // lower-cased keys
	Message []byte
}

// Handler handles a unary call. It returns the serialized response
// message; a nil message with a nil error produces a trailers-only reply.
type Handler func(ctx context.Context, req *Request) ([]byte, error)

// Observer is told about every answered request.
type Observer interface {
	ObserveHandled(method string, code int, elapsed time.Duration)
}

// DefaultTimeout bounds handler execution unless overridden.
const DefaultTimeout = 30 * time.Second

// Mux is a registry of unary handlers. It is safe for concurrent use.
type Mux struct {
	mu       sync.RWMutex
	handlers map[string]Handler

	logger   zerolog.Logger
	timeout  time.Duration
	observer Observer
	origin   string
}

// Option configures a Mux.
type Option func(*Mux)

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Mux) {
		m.logger = logger
	}
}

// WithTimeout bounds each handler call. Zero disables the bound.
func WithTimeout(timeout time.Duration) Option {
	return func(m *Mux) {
		m.timeout = timeout
	}
}

// WithObserver sets the per-request observer.
func WithObserver(observer Observer) Option {
	return func(m *Mux) {
		m.observer = observer
	}
}

// WithAllowedOrigin sets the Access-Control-Allow-Origin value for HTTP
// replies. The default is "*".
func WithAllowedOrigin(origin string) Option {
	return func(m *Mux) {
		m.origin = origin
	}
}

// NewMux creates an empty Mux.
func NewMux(opts ...Option) *Mux {
	m := &Mux{
		handlers: make(map[string]Handler),
		logger:   zerolog.Nop(),
		timeout:  DefaultTimeout,
		origin:   "*",
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func normalizePath(path string) string {
	return "/" + strings.TrimLeft(path, "/")
}

// RegisterHandler registers a handler for a method path. The path may be
// given with or without its leading slash.
func (m *Mux) RegisterHandler(path string, handler Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[normalizePath(path)] = handler
}

// UnregisterHandler removes a handler
func (m *Mux) UnregisterHandler(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.handlers, normalizePath(path))
}

// GetRegisteredMethods returns all registered method paths, sorted.
func (m *Mux) GetRegisteredMethods() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	methods := make([]string, 0, len(m.handlers))
	for path := range m.handlers {
		methods = append(methods, path)
	}
	sort.Strings(methods)
	return methods
}

// Handle runs the handler for req and returns the framed reply body.
func (m *Mux) Handle(ctx context.Context, req *Request) []byte {
	start := time.Now()
	path := normalizePath(req.Path)

	m.mu.RLock()
	handler, ok := m.handlers[path]
	m.mu.RUnlock()

	if !ok {
		m.logger.Debug().Str("path", path).Msg("no handler registered")
		return m.reply(path, start, nil, codec.NewError(codec.StatusUnimplemented, "Method %s is not implemented", path))
	}

	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	message, err := handler(ctx, req)
	if err != nil {
		grpcErr := toStatus(err)
		m.logger.Warn().
			Err(err).
			Str("path", path).
			Str("code", codec.StatusName(grpcErr.Code)).
			Msg("handler error")
		return m.reply(path, start, nil, grpcErr)
	}
	return m.reply(path, start, message, nil)
}

// reply frames a message and status, and reports the outcome.
func (m *Mux) reply(path string, start time.Time, message []byte, grpcErr *codec.GRPCError) []byte {
	code, text := codec.StatusOK, ""
	if grpcErr != nil {
		code, text = grpcErr.Code, grpcErr.Message
	}

	if m.observer != nil {
		m.observer.ObserveHandled(path, code, time.Since(start))
	}

	return Reply(message, code, text)
}

// Reply builds a reply body: the message frame, when message is non-nil,
// then the status trailer frame.
func Reply(message []byte, code int, text string) []byte {
	trailer := codec.EncodeFrame(codec.CreateTrailerFrame(codec.StatusTrailer(code, text)))
	if message == nil {
		return trailer
	}
	return append(codec.EncodeMessage(message), trailer...)
}

// toStatus maps a handler error to the status sent to the caller.
func toStatus(err error) *codec.GRPCError {
	var grpcErr *codec.GRPCError
	switch {
	case errors.As(err, &grpcErr):
		return grpcErr
	case errors.Is(err, context.DeadlineExceeded):
		return codec.NewError(codec.StatusDeadlineExceeded, "%v", err)
	case errors.Is(err, context.Canceled):
		return codec.NewError(codec.StatusCancelled, "%v", err)
	}
	return codec.ToGRPCError(err)
}

// requestMessage extracts the single message of a request body.
func requestMessage(body []byte) ([]byte, *codec.GRPCError) {
	result := codec.DecodeFrames(body)
	if len(result.Remaining) > 0 {
		return nil, codec.NewError(codec.StatusInvalidArgument, "truncated request frame (%d bytes)", len(result.Remaining))
	}
	if len(result.Frames) != 1 || result.Frames[0].IsTrailer() {
		return nil, codec.NewError(codec.StatusInvalidArgument, "request must carry exactly one message frame, got %d frames", len(result.Frames))
	}
	frame := result.Frames[0]
	if frame.Flags&codec.FlagCompressed != 0 {
		return nil, codec.NewError(codec.StatusUnimplemented, "compressed messages are not supported")
	}
	return frame.Data, nil
}

// MakeHandler creates a Handler from typed serialization functions.
//
// Example:
//
//	handler := server.MakeHandler(
//	    marshal.DecodeJSON[SearchRequest],
//	    marshal.EncodeJSON[SearchResponse],
//	    func(ctx context.Context, req SearchRequest) (SearchResponse, error) {
//	        return store.Search(ctx, req)
//	    },
//	)
//	mux.RegisterHandler("/knowledge.v1.KnowledgeService/Search", handler)
func MakeHandler[Req, Resp any](
	deserialize func([]byte) (Req, error),
	serialize func(Resp) ([]byte, error),
	handle func(ctx context.Context, req Req) (Resp, error),
) Handler {
	return func(ctx context.Context, r *Request) ([]byte, error) {
		req, err := deserialize(r.Message)
		if err != nil {
			return nil, codec.NewError(codec.StatusInvalidArgument, "Failed to deserialize request: %v", err)
		}

		resp, err := handle(ctx, req)
		if err != nil {
			return nil, err
		}

		data, err := serialize(resp)
		if err != nil {
			return nil, &codec.GRPCError{
				Code:    codec.StatusInternal,
				Message: fmt.Sprintf("Failed to serialize response: %v", err),
			}
		}
		if data == nil {
			data = []byte{}
		}
		return data, nil
	}
}
