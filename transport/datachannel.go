package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"

	"github.com/yhonda-ohishi/grpcweb-bridge/codec"
)

// ErrClosed is returned for calls on, or pending when, a closed channel.
var ErrClosed = errors.New("transport: data channel closed")

// DataChannelInterface abstracts webrtc.DataChannel for testability
type DataChannelInterface interface {
	Send(data []byte) error
	Close() error
	OnMessage(f func(msg webrtc.DataChannelMessage))
	OnClose(f func())
	OnError(f func(err error))
}

// dataChannelAdapter adapts *webrtc.DataChannel to DataChannelInterface
type dataChannelAdapter struct {
	dc *webrtc.DataChannel
}

func (a *dataChannelAdapter) Send(data []byte) error {
	return a.dc.Send(data)
}

func (a *dataChannelAdapter) Close() error {
	return a.dc.Close()
}

func (a *dataChannelAdapter) OnMessage(f func(msg webrtc.DataChannelMessage)) {
	a.dc.OnMessage(f)
}

func (a *dataChannelAdapter) OnClose(f func()) {
	a.dc.OnClose(f)
}

func (a *dataChannelAdapter) OnError(f func(err error)) {
	a.dc.OnError(f)
}

// WrapDataChannel adapts a *webrtc.DataChannel to DataChannelInterface.
func WrapDataChannel(dc *webrtc.DataChannel) DataChannelInterface {
	return &dataChannelAdapter{dc: dc}
}

// DataChannel sends gRPC-Web requests as envelopes over a WebRTC
// DataChannel. Many calls may be in flight at once; replies are matched to
// callers by the x-request-id header, which the peer must echo.
type DataChannel struct {
	dc        DataChannelInterface
	logger    zerolog.Logger
	userAgent string

	mu      sync.Mutex
	pending map[string]chan *codec.ResponseEnvelope
	closed  bool
}

// NewDataChannel creates a round tripper over an open DataChannel.
func NewDataChannel(dc *webrtc.DataChannel, opts ...Option) *DataChannel {
	return NewDataChannelFromInterface(WrapDataChannel(dc), opts...)
}

// NewDataChannelFromInterface creates a round tripper over any
// DataChannelInterface, such as an in-process pipe.
func NewDataChannelFromInterface(dc DataChannelInterface, opts ...Option) *DataChannel {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	t := &DataChannel{
		dc:        dc,
		logger:    o.logger,
		userAgent: o.userAgent,
		pending:   make(map[string]chan *codec.ResponseEnvelope),
	}

	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		t.handleMessage(msg.Data)
	})
	dc.OnClose(t.shutdown)
	dc.OnError(func(err error) {
		t.logger.Warn().Err(err).Msg("data channel error")
	})

	return t
}

// RoundTrip sends the request envelope and waits for the matching reply or
// for ctx to end. The endpoint is ignored; the channel is the endpoint.
func (t *DataChannel) RoundTrip(ctx context.Context, req *Request) (*Response, error) {
	headers := make(map[string]string, len(req.Header)+3)
	for key, value := range req.Header {
		headers[key] = value
	}
	requestID := headers[HeaderRequestID]
	if requestID == "" {
		requestID = uuid.NewString()
		headers[HeaderRequestID] = requestID
	}
	headers["content-type"] = ContentType
	if t.userAgent != "" {
		headers["x-user-agent"] = t.userAgent
	}

	data, err := codec.EncodeRequest(codec.RequestEnvelope{
		Path:    req.Path(),
		Headers: headers,
		Body:    req.Body,
	})
	if err != nil {
		return nil, err
	}

	replies := make(chan *codec.ResponseEnvelope, 1)
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, ErrClosed
	}
	if _, dup := t.pending[requestID]; dup {
		t.mu.Unlock()
		return nil, fmt.Errorf("transport: request id %s already in flight", requestID)
	}
	t.pending[requestID] = replies
	t.mu.Unlock()

	if err := t.dc.Send(data); err != nil {
		t.forget(requestID)
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	select {
	case <-ctx.Done():
		t.forget(requestID)
		return nil, ctx.Err()
	case env, ok := <-replies:
		if !ok {
			return nil, ErrClosed
		}
		return &Response{
			StatusCode: http.StatusOK,
			Status:     http.StatusText(http.StatusOK),
			Header:     env.Headers,
			Body:       env.Body,
		}, nil
	}
}

// Pending returns the number of calls awaiting a reply.
func (t *DataChannel) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

// Close closes the data channel and fails every pending call.
func (t *DataChannel) Close() error {
	t.shutdown()
	return t.dc.Close()
}

func (t *DataChannel) handleMessage(data []byte) {
	env, err := codec.DecodeResponse(data)
	if err != nil {
		t.logger.Warn().Err(err).Int("bytes", len(data)).Msg("dropping undecodable response")
		return
	}

	requestID := env.Headers[HeaderRequestID]

	t.mu.Lock()
	replies, ok := t.pending[requestID]
	delete(t.pending, requestID)
	t.mu.Unlock()

	if !ok {
		t.logger.Debug().Str("request_id", requestID).Msg("dropping response for unknown request")
		return
	}
	replies <- env
}

func (t *DataChannel) forget(requestID string) {
	t.mu.Lock()
	delete(t.pending, requestID)
	t.mu.Unlock()
}

func (t *DataChannel) shutdown() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.closed = true
	for id, replies := range t.pending {
		close(replies)
		delete(t.pending, id)
	}
}
