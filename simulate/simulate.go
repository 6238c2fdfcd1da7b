// Package simulate builds responders that answer facade operations locally,
// without a network or any framing.
//
// Every responder accepts options that add an artificial delay, optionally
// with random jitter, to mimic backend latency. The delay honours context
// cancellation.
package simulate

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/yhonda-ohishi/grpcweb-bridge/facade"
)

// Option configures a responder.
type Option func(*options)

type options struct {
	delay  time.Duration
	jitter time.Duration
	seed   *uint64
}

// WithDelay waits d before answering.
func WithDelay(d time.Duration) Option {
	return func(o *options) {
		o.delay = d
	}
}

// WithJitter adds a uniformly random extra wait in [0, j).
func WithJitter(j time.Duration) Option {
	return func(o *options) {
		o.jitter = j
	}
}

// WithSeed makes the random choices of Random and WithJitter repeatable.
func WithSeed(seed uint64) Option {
	return func(o *options) {
		o.seed = &seed
	}
}

// base holds what every responder shares: its latency and its random source.
type base struct {
	delay  time.Duration
	jitter time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

func newBase(opts []Option) *base {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	seed := rand.Uint64()
	if o.seed != nil {
		seed = *o.seed
	}

	return &base{
		delay:  o.delay,
		jitter: o.jitter,
		rng:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// intN returns a random int in [0, n).
func (b *base) intN(n int) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rng.IntN(n)
}

// wait sleeps for the configured latency or until ctx is done.
func (b *base) wait(ctx context.Context) error {
	d := b.delay
	if b.jitter > 0 {
		b.mu.Lock()
		d += time.Duration(b.rng.Int64N(int64(b.jitter)))
		b.mu.Unlock()
	}
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Static always answers resp.
func Static[Req, Resp any](resp Resp, opts ...Option) facade.Responder[Req, Resp] {
	return Func(func(Req) Resp { return resp }, opts...)
}

// Func answers with fn(req), for canned data that depends on the request.
func Func[Req, Resp any](fn func(Req) Resp, opts ...Option) facade.Responder[Req, Resp] {
	b := newBase(opts)
	return facade.ResponderFunc[Req, Resp](func(ctx context.Context, req Req) (Resp, error) {
		if err := b.wait(ctx); err != nil {
			var zero Resp
			return zero, err
		}
		return fn(req), nil
	})
}

// Sequence answers with resps in order and starts over after the last one.
// It panics if resps is empty.
func Sequence[Req, Resp any](resps []Resp, opts ...Option) facade.Responder[Req, Resp] {
	if len(resps) == 0 {
		panic("simulate: empty sequence")
	}
	b := newBase(opts)
	var next int
	return facade.ResponderFunc[Req, Resp](func(ctx context.Context, req Req) (Resp, error) {
		if err := b.wait(ctx); err != nil {
			var zero Resp
			return zero, err
		}
		b.mu.Lock()
		resp := resps[next]
		next = (next + 1) % len(resps)
		b.mu.Unlock()
		return resp, nil
	})
}

// Random answers with a uniformly chosen element of choices. It panics if
// choices is empty.
func Random[Req, Resp any](choices []Resp, opts ...Option) facade.Responder[Req, Resp] {
	if len(choices) == 0 {
		panic("simulate: no choices")
	}
	b := newBase(opts)
	return facade.ResponderFunc[Req, Resp](func(ctx context.Context, req Req) (Resp, error) {
		if err := b.wait(ctx); err != nil {
			var zero Resp
			return zero, err
		}
		return choices[b.intN(len(choices))], nil
	})
}

// Fail always answers err, after the configured delay.
func Fail[Req, Resp any](err error, opts ...Option) facade.Responder[Req, Resp] {
	b := newBase(opts)
	return facade.ResponderFunc[Req, Resp](func(ctx context.Context, req Req) (Resp, error) {
		var zero Resp
		if werr := b.wait(ctx); werr != nil {
			return zero, werr
		}
		return zero, err
	})
}

// Score returns a pseudo-random float in [0, 1) from a seeded stream, for
// simulated relevance scores and similar values.
type Score struct {
	b *base
}

// NewScore creates a Score. Without WithSeed the stream differs per process.
func NewScore(opts ...Option) *Score {
	return &Score{b: newBase(opts)}
}

// Next returns the next value.
func (s *Score) Next() float64 {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	return s.b.rng.Float64()
}
