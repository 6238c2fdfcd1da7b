// Package grpcweb speaks the gRPC-Web wire format over HTTP and WebRTC
// DataChannels.
//
// Proto definitions are the user's responsibility; payloads are opaque
// bytes produced by whatever codec the caller picks (see package marshal).
//
// # Architecture
//
//	Client                                  Server
//	  |                                       |
//	  |  encode → frame (0x00 + length)       |
//	  |-------------------------------------->|
//	  |                                  route by path
//	  |                                  run handler
//	  |                                  message + trailer frame (0x80)
//	  |<--------------------------------------|
//	  |  decode frames → evaluate grpc-status |
//
// # Quick Start
//
// Server side:
//
//	mux := grpcweb.NewMux()
//	mux.RegisterHandler("/mypackage.MyService/MyMethod", grpcweb.MakeHandler(
//	    marshal.DecodeJSON[MyRequest],
//	    marshal.EncodeJSON[MyResponse],
//	    myHandlerFunc,
//	))
//	grpcweb.RegisterReflection(mux)
//	http.ListenAndServe(":8080", mux)   // or mux.ServeDataChannel(dc)
//
// Client side:
//
//	exec := grpcweb.NewExecutor(grpcweb.NewHTTPTransport())
//	resp, err := grpcweb.Call(ctx, exec, "http://localhost:8080", "mypackage.MyService/MyMethod",
//	    req, marshal.EncodeJSON[MyRequest], marshal.DecodeJSON[MyResponse])
//
// # Subpackages
//
//   - codec: frames, trailers, status evaluation and envelopes
//   - transport: HTTP and DataChannel round trippers
//   - unary: the client call executor
//   - server: handler registry served over HTTP and DataChannels
//   - facade: live/simulated switching per call
//   - reflection: service listing and descriptor lookup
//
// For most use cases, use the re-exported names from this package.
package grpcweb

import (
	"context"

	"github.com/yhonda-ohishi/grpcweb-bridge/codec"
	"github.com/yhonda-ohishi/grpcweb-bridge/reflection"
	"github.com/yhonda-ohishi/grpcweb-bridge/server"
	"github.com/yhonda-ohishi/grpcweb-bridge/transport"
	"github.com/yhonda-ohishi/grpcweb-bridge/unary"
)

// Re-export codec types
type (
	// Frame is one gRPC-Web frame
	Frame = codec.Frame
	// Trailer is an ordered set of trailer entries
	Trailer = codec.Trailer
	// GRPCError represents a gRPC error
	GRPCError = codec.GRPCError
	// RequestEnvelope is sent from client to server over a DataChannel
	RequestEnvelope = codec.RequestEnvelope
	// ResponseEnvelope is sent from server to client over a DataChannel
	ResponseEnvelope = codec.ResponseEnvelope
)

// Re-export codec constants
const (
	FlagData       = codec.FlagData
	FlagCompressed = codec.FlagCompressed
	FlagTrailer    = codec.FlagTrailer

	StatusOK                 = codec.StatusOK
	StatusCancelled          = codec.StatusCancelled
	StatusUnknown            = codec.StatusUnknown
	StatusInvalidArgument    = codec.StatusInvalidArgument
	StatusDeadlineExceeded   = codec.StatusDeadlineExceeded
	StatusNotFound           = codec.StatusNotFound
	StatusAlreadyExists      = codec.StatusAlreadyExists
	StatusPermissionDenied   = codec.StatusPermissionDenied
	StatusResourceExhausted  = codec.StatusResourceExhausted
	StatusFailedPrecondition = codec.StatusFailedPrecondition
	StatusAborted            = codec.StatusAborted
	StatusOutOfRange         = codec.StatusOutOfRange
	StatusUnimplemented      = codec.StatusUnimplemented
	StatusInternal           = codec.StatusInternal
	StatusUnavailable        = codec.StatusUnavailable
	StatusDataLoss           = codec.StatusDataLoss
	StatusUnauthenticated    = codec.StatusUnauthenticated
)

// Re-export codec functions
var (
	EncodeFrame        = codec.EncodeFrame
	EncodeMessage      = codec.EncodeMessage
	DecodeFrames       = codec.DecodeFrames
	Decode             = codec.Decode
	ParseTrailers      = codec.ParseTrailers
	Evaluate           = codec.Evaluate
	StatusName         = codec.StatusName
	StatusTrailer      = codec.StatusTrailer
	CreateDataFrame    = codec.CreateDataFrame
	CreateTrailerFrame = codec.CreateTrailerFrame
)

// Mux routes unary calls to handlers.
type Mux = server.Mux

// Handler handles a gRPC method call
type Handler = server.Handler

// Executor performs client-side unary calls.
type Executor = unary.Executor

// NewMux creates an empty Mux.
func NewMux(opts ...server.Option) *Mux {
	return server.NewMux(opts...)
}

// MakeHandler creates a Handler from typed serialization functions.
func MakeHandler[Req, Resp any](
	deserialize func([]byte) (Req, error),
	serialize func(Resp) ([]byte, error),
	handle func(ctx context.Context, req Req) (Resp, error),
) Handler {
	return server.MakeHandler(deserialize, serialize, handle)
}

// NewError returns a *GRPCError for handlers to return.
func NewError(code int, format string, args ...any) *GRPCError {
	return codec.NewError(code, format, args...)
}

// NewHTTPTransport returns the HTTP round tripper.
func NewHTTPTransport(opts ...transport.Option) *transport.HTTP {
	return transport.NewHTTP(opts...)
}

// NewExecutor creates a unary call executor over rt.
func NewExecutor(rt transport.RoundTripper, opts ...unary.Option) *Executor {
	return unary.New(rt, opts...)
}

// Call performs one typed unary call. See unary.Call.
func Call[Req, Resp any](
	ctx context.Context,
	e *Executor,
	endpoint, method string,
	req Req,
	encode unary.EncodeFunc[Req],
	decode unary.DecodeFunc[Resp],
	opts ...unary.CallOption,
) (Resp, error) {
	return unary.Call(ctx, e, endpoint, method, req, encode, decode, opts...)
}

// Reflection types
type (
	// Reflection provides server reflection functionality
	Reflection = reflection.Reflection
	// ServiceInfo contains information about a registered service
	ServiceInfo = reflection.ServiceInfo
)

// ReflectionMethodPath is the path for the ListServices method
const ReflectionMethodPath = reflection.MethodPath

// FileContainingSymbolPath is the path for the FileContainingSymbol method
const FileContainingSymbolPath = reflection.FileContainingSymbolPath

// RegisterReflection creates and registers reflection handlers on mux.
func RegisterReflection(mux *Mux) *Reflection {
	return reflection.Register(mux)
}
