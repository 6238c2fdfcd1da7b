package facade

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yhonda-ohishi/grpcweb-bridge/codec"
	"github.com/yhonda-ohishi/grpcweb-bridge/marshal"
	"github.com/yhonda-ohishi/grpcweb-bridge/transport"
	"github.com/yhonda-ohishi/grpcweb-bridge/unary"
)

type testSettings struct {
	endpoint  atomic.Value
	simulated atomic.Bool
}

func newTestSettings(endpoint string, simulated bool) *testSettings {
	s := &testSettings{}
	s.endpoint.Store(endpoint)
	s.simulated.Store(simulated)
	return s
}

func (s *testSettings) EndpointBase() string { return s.endpoint.Load().(string) }
func (s *testSettings) Simulated() bool      { return s.simulated.Load() }

type echoRequest struct {
	Text string `json:"text"`
}

type echoResponse struct {
	Text   string `json:"text"`
	Source string `json:"source"`
}

// recorder answers every round trip with reply and remembers the requests.
type recorder struct {
	calls []*transport.Request
	reply func(req *transport.Request) *transport.Response
}

func (r *recorder) RoundTrip(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	r.calls = append(r.calls, req)
	return r.reply(req), nil
}

func liveReply(resp echoResponse) func(*transport.Request) *transport.Response {
	return func(*transport.Request) *transport.Response {
		data, _ := marshal.EncodeJSON(resp)
		body := append(codec.EncodeMessage(data),
			codec.EncodeFrame(codec.CreateTrailerFrame(codec.StatusTrailer(codec.StatusOK, "")))...)
		return &transport.Response{StatusCode: http.StatusOK, Body: body}
	}
}

func echoMethod(simulate Responder[echoRequest, echoResponse]) Method[echoRequest, echoResponse] {
	return Method[echoRequest, echoResponse]{
		Path:     "echo.v1.EchoService/Echo",
		Encode:   marshal.EncodeJSON[echoRequest],
		Decode:   marshal.DecodeJSON[echoResponse],
		Simulate: simulate,
	}
}

func simulatedEcho() Responder[echoRequest, echoResponse] {
	return ResponderFunc[echoRequest, echoResponse](func(ctx context.Context, req echoRequest) (echoResponse, error) {
		return echoResponse{Text: req.Text, Source: "simulated"}, nil
	})
}

func TestOperationLive(t *testing.T) {
	rt := &recorder{reply: liveReply(echoResponse{Text: "hi", Source: "live"})}
	f := New(unary.New(rt), newTestSettings("https://api.example.com", false))
	op := NewOperation(f, echoMethod(simulatedEcho()))

	resp, err := op.Call(context.Background(), echoRequest{Text: "hi"})

	require.NoError(t, err)
	assert.Equal(t, echoResponse{Text: "hi", Source: "live"}, resp)
	require.Len(t, rt.calls, 1)
	assert.Equal(t, "https://api.example.com", rt.calls[0].Endpoint)
	assert.Equal(t, "echo.v1.EchoService/Echo", rt.calls[0].Method)
}

func TestOperationSimulatedSkipsNetwork(t *testing.T) {
	rt := &recorder{reply: liveReply(echoResponse{Source: "live"})}
	f := New(unary.New(rt), newTestSettings("https://api.example.com", true))
	op := NewOperation(f, echoMethod(simulatedEcho()))

	resp, err := op.Call(context.Background(), echoRequest{Text: "hi"})

	require.NoError(t, err)
	assert.Equal(t, echoResponse{Text: "hi", Source: "simulated"}, resp)
	assert.Empty(t, rt.calls)
}

func TestOperationModeReadPerCall(t *testing.T) {
	rt := &recorder{reply: liveReply(echoResponse{Source: "live"})}
	settings := newTestSettings("https://api.example.com", false)
	op := NewOperation(New(unary.New(rt), settings), echoMethod(simulatedEcho()))

	resp, err := op.Call(context.Background(), echoRequest{})
	require.NoError(t, err)
	assert.Equal(t, "live", resp.Source)

	settings.simulated.Store(true)
	resp, err = op.Call(context.Background(), echoRequest{})
	require.NoError(t, err)
	assert.Equal(t, "simulated", resp.Source)

	settings.simulated.Store(false)
	resp, err = op.Call(context.Background(), echoRequest{})
	require.NoError(t, err)
	assert.Equal(t, "live", resp.Source)

	assert.Len(t, rt.calls, 2)
}

func TestOperationEndpointReadPerCall(t *testing.T) {
	rt := &recorder{reply: liveReply(echoResponse{})}
	settings := newTestSettings("http://first", false)
	op := NewOperation(New(unary.New(rt), settings), echoMethod(nil))

	_, err := op.Call(context.Background(), echoRequest{})
	require.NoError(t, err)
	settings.endpoint.Store("http://second")
	_, err = op.Call(context.Background(), echoRequest{})
	require.NoError(t, err)

	require.Len(t, rt.calls, 2)
	assert.Equal(t, "http://first", rt.calls[0].Endpoint)
	assert.Equal(t, "http://second", rt.calls[1].Endpoint)
}

func TestOperationPropagatesErrors(t *testing.T) {
	rt := &recorder{reply: func(*transport.Request) *transport.Response {
		body := codec.EncodeFrame(codec.CreateTrailerFrame(codec.StatusTrailer(codec.StatusPermissionDenied, "no access")))
		return &transport.Response{StatusCode: http.StatusOK, Body: body}
	}}
	op := NewOperation(New(unary.New(rt), newTestSettings("http://api", false)), echoMethod(nil))

	_, err := op.Call(context.Background(), echoRequest{})

	var grpcErr *codec.GRPCError
	require.ErrorAs(t, err, &grpcErr)
	assert.Equal(t, codec.StatusPermissionDenied, grpcErr.Code)
	assert.Equal(t, "no access", grpcErr.Message)
}

func TestOperationSimulatedError(t *testing.T) {
	injected := errors.New("simulated outage")
	fail := ResponderFunc[echoRequest, echoResponse](func(ctx context.Context, req echoRequest) (echoResponse, error) {
		return echoResponse{}, injected
	})
	op := NewOperation(New(unary.New(&recorder{}), newTestSettings("", true)), echoMethod(fail))

	_, err := op.Call(context.Background(), echoRequest{})
	assert.ErrorIs(t, err, injected)
}

func TestOperationWithoutSimulation(t *testing.T) {
	op := NewOperation(New(unary.New(&recorder{}), newTestSettings("", true)), echoMethod(nil))

	_, err := op.Call(context.Background(), echoRequest{})
	assert.ErrorIs(t, err, ErrNoSimulation)
	assert.ErrorContains(t, err, "echo.v1.EchoService/Echo")
}

func TestOperationAllowEmpty(t *testing.T) {
	rt := &recorder{reply: func(*transport.Request) *transport.Response {
		body := codec.EncodeFrame(codec.CreateTrailerFrame(codec.StatusTrailer(codec.StatusOK, "")))
		return &transport.Response{StatusCode: http.StatusOK, Body: body}
	}}
	f := New(unary.New(rt), newTestSettings("http://api", false))

	m := Method[echoRequest, struct{}]{
		Path:   "echo.v1.EchoService/Forget",
		Encode: marshal.EncodeJSON[echoRequest],
		Decode: marshal.DecodeJSON[struct{}],
	}
	_, err := NewOperation(f, m).Call(context.Background(), echoRequest{})
	assert.ErrorIs(t, err, unary.ErrNoMessage)

	m.AllowEmpty = true
	_, err = NewOperation(f, m).Call(context.Background(), echoRequest{})
	assert.NoError(t, err)
}

func TestNewOperationIncompleteMethod(t *testing.T) {
	f := New(unary.New(&recorder{}), newTestSettings("", false))
	assert.Panics(t, func() {
		NewOperation(f, Method[echoRequest, echoResponse]{Path: "a.B/C"})
	})
	assert.Equal(t, "echo.v1.EchoService/Echo", NewOperation(f, echoMethod(nil)).Path())
}
