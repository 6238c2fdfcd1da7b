// Package peer sets up WebRTC peer connections whose DataChannels carry
// gRPC-Web envelopes.
//
// SDP is exchanged as complete descriptions (ICE gathering finished before
// the description is handed out), so any signaling path that can move two
// strings works. Loopback pairs two peers inside one process.
package peer

import (
	"context"
	"fmt"
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
)

// DefaultLabel is the DataChannel label used for gRPC-Web traffic.
const DefaultLabel = "grpc-web"

// Config configuration for peer connection
type Config struct {
	ICEServers []webrtc.ICEServer
	Logger     zerolog.Logger
}

// Peer wraps a pion peer connection.
type Peer struct {
	pc       *webrtc.PeerConnection
	logger   zerolog.Logger
	channels chan *webrtc.DataChannel
}

// New creates a peer connection. No ICE servers means host candidates only.
func New(cfg Config) (*Peer, error) {
	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{ICEServers: cfg.ICEServers})
	if err != nil {
		return nil, fmt.Errorf("failed to create peer connection: %w", err)
	}

	p := &Peer{
		pc:       pc,
		logger:   cfg.Logger,
		channels: make(chan *webrtc.DataChannel, 1),
	}

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		p.logger.Debug().Str("state", state.String()).Msg("peer connection state")
	})

	// Remote-initiated channels are delivered once open.
	pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		dc.OnOpen(func() {
			select {
			case p.channels <- dc:
			default:
				p.logger.Warn().Str("label", dc.Label()).Msg("dropping extra data channel")
			}
		})
	})

	return p, nil
}

// Offer creates a DataChannel and returns the complete SDP offer.
func (p *Peer) Offer(ctx context.Context, label string) (string, *webrtc.DataChannel, error) {
	dc, err := p.pc.CreateDataChannel(label, nil)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create data channel: %w", err)
	}

	offer, err := p.pc.CreateOffer(nil)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create offer: %w", err)
	}
	sdp, err := p.setLocal(ctx, offer)
	if err != nil {
		return "", nil, err
	}
	return sdp, dc, nil
}

// Answer applies a remote offer and returns the complete SDP answer.
func (p *Peer) Answer(ctx context.Context, offer string) (string, error) {
	if err := p.pc.SetRemoteDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: offer}); err != nil {
		return "", fmt.Errorf("failed to set remote description: %w", err)
	}

	answer, err := p.pc.CreateAnswer(nil)
	if err != nil {
		return "", fmt.Errorf("failed to create answer: %w", err)
	}
	return p.setLocal(ctx, answer)
}

// Accept applies the remote answer to an offer made with Offer.
func (p *Peer) Accept(answer string) error {
	if err := p.pc.SetRemoteDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: answer}); err != nil {
		return fmt.Errorf("failed to set remote description: %w", err)
	}
	return nil
}

// setLocal sets desc and waits for ICE gathering to finish.
func (p *Peer) setLocal(ctx context.Context, desc webrtc.SessionDescription) (string, error) {
	gathered := webrtc.GatheringCompletePromise(p.pc)
	if err := p.pc.SetLocalDescription(desc); err != nil {
		return "", fmt.Errorf("failed to set local description: %w", err)
	}

	select {
	case <-gathered:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return p.pc.LocalDescription().SDP, nil
}

// AcceptChannel waits for the remote side's DataChannel to open.
func (p *Peer) AcceptChannel(ctx context.Context) (*webrtc.DataChannel, error) {
	select {
	case dc := <-p.channels:
		return dc, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ConnectionState returns the current connection state
func (p *Peer) ConnectionState() webrtc.PeerConnectionState {
	return p.pc.ConnectionState()
}

// Close closes the peer connection
func (p *Peer) Close() error {
	return p.pc.Close()
}

// WaitOpen blocks until dc is open.
func WaitOpen(ctx context.Context, dc *webrtc.DataChannel) error {
	opened := make(chan struct{})
	var once sync.Once
	dc.OnOpen(func() { once.Do(func() { close(opened) }) })
	if dc.ReadyState() == webrtc.DataChannelStateOpen {
		once.Do(func() { close(opened) })
	}

	select {
	case <-opened:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pair is two connected peers in one process.
type Pair struct {
	Offerer, Answerer *Peer
	// Client is the offerer's DataChannel, Server the answerer's.
	Client, Server *webrtc.DataChannel
}

// Close closes both peers.
func (p *Pair) Close() error {
	err := p.Offerer.Close()
	if aerr := p.Answerer.Close(); err == nil {
		err = aerr
	}
	return err
}

// Loopback connects two new peers through an in-process SDP exchange and
// returns once both ends of the DataChannel are open.
func Loopback(ctx context.Context, cfg Config) (*Pair, error) {
	offerer, err := New(cfg)
	if err != nil {
		return nil, err
	}
	answerer, err := New(cfg)
	if err != nil {
		offerer.Close()
		return nil, err
	}
	pair := &Pair{Offerer: offerer, Answerer: answerer}

	fail := func(err error) (*Pair, error) {
		pair.Close()
		return nil, err
	}

	offer, client, err := offerer.Offer(ctx, DefaultLabel)
	if err != nil {
		return fail(err)
	}
	answer, err := answerer.Answer(ctx, offer)
	if err != nil {
		return fail(err)
	}
	if err := offerer.Accept(answer); err != nil {
		return fail(err)
	}

	if err := WaitOpen(ctx, client); err != nil {
		return fail(fmt.Errorf("client channel: %w", err))
	}
	server, err := answerer.AcceptChannel(ctx)
	if err != nil {
		return fail(fmt.Errorf("server channel: %w", err))
	}

	pair.Client, pair.Server = client, server
	return pair, nil
}
