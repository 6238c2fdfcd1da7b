package server

import (
	"context"
	"fmt"
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"

	"github.com/yhonda-ohishi/grpcweb-bridge/codec"
	"github.com/yhonda-ohishi/grpcweb-bridge/transport"
)

// DataChannelServer answers request envelopes arriving on one DataChannel
// with the handlers of a Mux.
type DataChannelServer struct {
	dc     transport.DataChannelInterface
	mux    *Mux
	logger zerolog.Logger

	mu      sync.RWMutex
	closed  bool
	onClose func()
	wg      sync.WaitGroup
}

// ServeDataChannel starts answering requests on dc.
func (m *Mux) ServeDataChannel(dc *webrtc.DataChannel) *DataChannelServer {
	return m.ServeDataChannelInterface(transport.WrapDataChannel(dc))
}

// ServeDataChannelInterface is ServeDataChannel over any
// DataChannelInterface.
func (m *Mux) ServeDataChannelInterface(dc transport.DataChannelInterface) *DataChannelServer {
	s := &DataChannelServer{
		dc:     dc,
		mux:    m,
		logger: m.logger,
	}

	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleMessage(msg.Data)
		}()
	})
	dc.OnClose(func() {
		s.mu.Lock()
		already := s.closed
		s.closed = true
		onClose := s.onClose
		s.mu.Unlock()

		if !already && onClose != nil {
			onClose()
		}
	})
	dc.OnError(func(err error) {
		s.logger.Warn().Err(err).Msg("data channel error")
	})

	return s
}

// OnClose sets a callback to be called when the channel is closed
func (s *DataChannelServer) OnClose(callback func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onClose = callback
}

// Wait blocks until every request received so far has been answered.
func (s *DataChannelServer) Wait() {
	s.wg.Wait()
}

func (s *DataChannelServer) handleMessage(data []byte) {
	req, err := codec.DecodeRequest(data)
	if err != nil {
		s.logger.Warn().Err(err).Int("bytes", len(data)).Msg("failed to decode request")
		s.send(nil, Reply(nil, codec.StatusInvalidArgument, fmt.Sprintf("Failed to decode request: %v", err)))
		return
	}

	message, grpcErr := requestMessage(req.Body)
	var body []byte
	if grpcErr != nil {
		body = Reply(nil, grpcErr.Code, grpcErr.Message)
	} else {
		body = s.mux.Handle(context.Background(), &Request{
			Path:    req.Path,
			Header:  req.Headers,
			Message: message,
		})
	}

	headers := map[string]string{"content-type": transport.ContentType}
	if reqID, ok := req.Headers[transport.HeaderRequestID]; ok {
		headers[transport.HeaderRequestID] = reqID
	}
	s.send(headers, body)
}

func (s *DataChannelServer) send(headers map[string]string, body []byte) {
	if err := s.SendResponse(codec.ResponseEnvelope{Headers: headers, Body: body}); err != nil {
		s.logger.Warn().Err(err).Msg("failed to send response")
	}
}

// SendResponse sends a response envelope.
func (s *DataChannelServer) SendResponse(envelope codec.ResponseEnvelope) error {
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return fmt.Errorf("transport is closed")
	}

	data, err := codec.EncodeResponse(envelope)
	if err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}
	return s.dc.Send(data)
}

// Close closes the data channel.
func (s *DataChannelServer) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	onClose := s.onClose
	s.mu.Unlock()

	if onClose != nil {
		onClose()
	}
	return s.dc.Close()
}
