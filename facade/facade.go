// Package facade exposes remote methods as typed operations that run either
// against the live backend or against a simulated responder.
//
// The mode is taken from Settings on every call, so flipping the
// simulation switch changes the path taken by the very next call on the
// same Operation. Errors from the live path are returned unchanged.
package facade

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/yhonda-ohishi/grpcweb-bridge/unary"
)

// ErrNoSimulation is returned in simulation mode by an operation that was
// built without a simulated responder.
var ErrNoSimulation = errors.New("facade: no simulated responder for method")

// Settings is the source of the endpoint base URL and the simulation
// switch. Implementations must be safe for concurrent reads.
type Settings interface {
	EndpointBase() string
	Simulated() bool
}

// Responder produces a response for a request.
type Responder[Req, Resp any] interface {
	Respond(ctx context.Context, req Req) (Resp, error)
}

// ResponderFunc adapts a function to Responder.
type ResponderFunc[Req, Resp any] func(ctx context.Context, req Req) (Resp, error)

// Respond calls f(ctx, req).
func (f ResponderFunc[Req, Resp]) Respond(ctx context.Context, req Req) (Resp, error) {
	return f(ctx, req)
}

// Method describes one remote method: where it lives, how its values are
// serialized and what to answer in simulation mode.
type Method[Req, Resp any] struct {
	Path       string // "package.Service/Method"
	Encode     unary.EncodeFunc[Req]
	Decode     unary.DecodeFunc[Resp]
	Simulate   Responder[Req, Resp]
	AllowEmpty bool // the response type is intentionally empty
}

// Facade carries what every Operation shares.
type Facade struct {
	exec     *unary.Executor
	settings Settings
	logger   zerolog.Logger
}

// Option configures a Facade.
type Option func(*Facade)

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(f *Facade) {
		f.logger = logger
	}
}

// New creates a Facade. settings is consulted on every call.
func New(exec *unary.Executor, settings Settings, opts ...Option) *Facade {
	f := &Facade{
		exec:     exec,
		settings: settings,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Simulated reports the current mode.
func (f *Facade) Simulated() bool {
	return f.settings.Simulated()
}

// Operation is a typed remote method bound to a Facade.
type Operation[Req, Resp any] struct {
	path      string
	settings  Settings
	logger    zerolog.Logger
	live      Responder[Req, Resp]
	simulated Responder[Req, Resp]
}

// NewOperation binds m to f. It panics if m has no path or codec, which
// is a programming error in the method table.
func NewOperation[Req, Resp any](f *Facade, m Method[Req, Resp]) *Operation[Req, Resp] {
	if m.Path == "" || m.Encode == nil || m.Decode == nil {
		panic(fmt.Sprintf("facade: incomplete method %q", m.Path))
	}

	simulated := m.Simulate
	if simulated == nil {
		simulated = ResponderFunc[Req, Resp](func(ctx context.Context, req Req) (Resp, error) {
			var zero Resp
			return zero, fmt.Errorf("%s: %w", m.Path, ErrNoSimulation)
		})
	}

	return &Operation[Req, Resp]{
		path:      m.Path,
		settings:  f.settings,
		logger:    f.logger,
		live:      &live[Req, Resp]{exec: f.exec, settings: f.settings, method: m},
		simulated: simulated,
	}
}

// Path returns the method path.
func (o *Operation[Req, Resp]) Path() string {
	return o.path
}

// Call runs the operation in the mode currently selected by Settings.
func (o *Operation[Req, Resp]) Call(ctx context.Context, req Req) (Resp, error) {
	if o.settings.Simulated() {
		o.logger.Debug().Str("method", o.path).Msg("simulated call")
		return o.simulated.Respond(ctx, req)
	}
	return o.live.Respond(ctx, req)
}

// live is the network responder.
type live[Req, Resp any] struct {
	exec     *unary.Executor
	settings Settings
	method   Method[Req, Resp]
}

func (l *live[Req, Resp]) Respond(ctx context.Context, req Req) (Resp, error) {
	var opts []unary.CallOption
	if l.method.AllowEmpty {
		opts = append(opts, unary.AllowEmpty())
	}
	return unary.Call(ctx, l.exec, l.settings.EndpointBase(), l.method.Path, req, l.method.Encode, l.method.Decode, opts...)
}
