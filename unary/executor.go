// Package unary executes single request/response gRPC-Web calls.
//
// A call serializes the request, frames it, performs one round trip,
// decodes the message and trailer frames and turns the trailer status into
// either the decoded response or an error. Three error kinds can come back:
//
//   - *TransportError: the exchange failed or returned a non-2xx status
//   - ErrEmptyResponse, ErrNoMessage: the reply carried no usable data
//   - *codec.GRPCError: the trailer reported a non-zero grpc-status
//
// Nothing is retried.
package unary

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/yhonda-ohishi/grpcweb-bridge/codec"
	"github.com/yhonda-ohishi/grpcweb-bridge/transport"
)

// EncodeFunc serializes a request value.
type EncodeFunc[Req any] func(Req) ([]byte, error)

// DecodeFunc deserializes a response value.
type DecodeFunc[Resp any] func([]byte) (Resp, error)

// Executor performs unary calls over a RoundTripper. It holds no per-call
// state and is safe for concurrent use.
type Executor struct {
	rt       transport.RoundTripper
	logger   zerolog.Logger
	observer Observer
	timeout  time.Duration
	header   map[string]string
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Executor) {
		e.logger = logger
	}
}

// WithObserver sets the per-call observer.
func WithObserver(observer Observer) Option {
	return func(e *Executor) {
		if observer != nil {
			e.observer = observer
		}
	}
}

// WithTimeout bounds every call. Zero leaves the deadline to the caller's
// context and the transport.
func WithTimeout(timeout time.Duration) Option {
	return func(e *Executor) {
		e.timeout = timeout
	}
}

// WithHeader adds a header sent with every call.
func WithHeader(key, value string) Option {
	return func(e *Executor) {
		e.header[key] = value
	}
}

// New creates an Executor.
func New(rt transport.RoundTripper, opts ...Option) *Executor {
	e := &Executor{
		rt:       rt,
		logger:   zerolog.Nop(),
		observer: nopObserver{},
		header:   make(map[string]string),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CallOption adjusts a single call.
type CallOption func(*callOptions)

type callOptions struct {
	allowEmpty bool
}

// AllowEmpty accepts a successful reply without message data. The
// response decoder is then handed zero bytes instead of the call failing
// with ErrNoMessage.
func AllowEmpty() CallOption {
	return func(o *callOptions) {
		o.allowEmpty = true
	}
}

// Invoke sends an already serialized request and returns the serialized
// response message.
func (e *Executor) Invoke(ctx context.Context, endpoint, method string, payload []byte, opts ...CallOption) ([]byte, error) {
	start := time.Now()
	message, result, err := e.exchange(ctx, endpoint, method, payload, opts)
	e.finish(method, result, start, err)
	return message, err
}

// Call performs one typed unary call against <endpoint>/<method>.
func Call[Req, Resp any](
	ctx context.Context,
	e *Executor,
	endpoint, method string,
	req Req,
	encode EncodeFunc[Req],
	decode DecodeFunc[Resp],
	opts ...CallOption,
) (Resp, error) {
	var zero Resp
	start := time.Now()

	payload, err := encode(req)
	if err != nil {
		err = fmt.Errorf("unary: failed to encode %s request: %w", method, err)
		e.finish(method, ResultEncodeError, start, err)
		return zero, err
	}

	message, result, err := e.exchange(ctx, endpoint, method, payload, opts)
	if err != nil {
		e.finish(method, result, start, err)
		return zero, err
	}

	resp, err := decode(message)
	if err != nil {
		err = fmt.Errorf("unary: failed to decode %s response: %w", method, err)
		e.finish(method, ResultDecodeError, start, err)
		return zero, err
	}

	e.finish(method, ResultOK, start, nil)
	return resp, nil
}

// exchange runs steps frame → transmit → receive → decode → status check.
func (e *Executor) exchange(ctx context.Context, endpoint, method string, payload []byte, opts []CallOption) ([]byte, Result, error) {
	var co callOptions
	for _, opt := range opts {
		opt(&co)
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	header := make(map[string]string, len(e.header)+1)
	for key, value := range e.header {
		header[key] = value
	}
	requestID := uuid.NewString()
	header[transport.HeaderRequestID] = requestID

	e.logger.Debug().
		Str("method", method).
		Str("request_id", requestID).
		Int("bytes", len(payload)).
		Msg("sending unary call")

	resp, err := e.rt.RoundTrip(ctx, &transport.Request{
		Endpoint: endpoint,
		Method:   method,
		Header:   header,
		Body:     codec.EncodeMessage(payload),
	})
	if err != nil {
		return nil, ResultTransportError, &TransportError{Err: err}
	}
	if !resp.OK() {
		return nil, ResultTransportError, &TransportError{StatusCode: resp.StatusCode, Status: resp.Status}
	}
	if len(resp.Body) == 0 {
		return nil, ResultEmptyResponse, fmt.Errorf("%s: %w", method, ErrEmptyResponse)
	}

	message, trailer := codec.Decode(resp.Body)
	if err := codec.Evaluate(trailer).Err(); err != nil {
		return nil, ResultStatusError, err
	}

	if len(message) == 0 {
		if !co.allowEmpty {
			return nil, ResultNoMessage, fmt.Errorf("%s: %w", method, ErrNoMessage)
		}
		message = []byte{}
	}

	return message, ResultOK, nil
}

func (e *Executor) finish(method string, result Result, start time.Time, err error) {
	elapsed := time.Since(start)
	e.observer.ObserveCall(method, result, elapsed)

	if err != nil {
		e.logger.Warn().
			Err(err).
			Str("method", method).
			Str("result", string(result)).
			Dur("elapsed", elapsed).
			Msg("unary call failed")
		return
	}
	e.logger.Debug().
		Str("method", method).
		Dur("elapsed", elapsed).
		Msg("unary call completed")
}
