package config

import (
	"os"
	"strings"
	"sync/atomic"
)

// Switch holds the endpoint base and the simulation flag for the running
// process. Reads and writes are atomic, so the flag can be flipped while
// calls are in flight; a call sees either the old or the new value.
type Switch struct {
	endpoint  atomic.Pointer[string]
	simulated atomic.Bool
}

// NewSwitch creates a Switch from a resolved configuration.
func NewSwitch(cfg Config) *Switch {
	s := &Switch{}
	s.SetEndpoint(cfg.Endpoint)
	s.SetSimulated(cfg.Simulate)
	return s
}

// EndpointBase returns the current endpoint base URL.
func (s *Switch) EndpointBase() string {
	if p := s.endpoint.Load(); p != nil {
		return *p
	}
	return ""
}

// SetEndpoint replaces the endpoint base URL.
func (s *Switch) SetEndpoint(endpoint string) {
	s.endpoint.Store(&endpoint)
}

// Simulated reports whether simulation mode is on.
func (s *Switch) Simulated() bool {
	return s.simulated.Load()
}

// SetSimulated turns simulation mode on or off.
func (s *Switch) SetSimulated(on bool) {
	s.simulated.Store(on)
}

// Env reads the endpoint and simulation flag from the environment on every
// call, so a change to the process environment applies to the next call.
type Env struct {
	// Lookup defaults to os.LookupEnv.
	Lookup LookupFunc
	// Fallback is used when GRPCWEB_ENDPOINT is not set.
	Fallback string
}

func (e Env) lookup(key string) (string, bool) {
	if e.Lookup != nil {
		return e.Lookup(key)
	}
	return os.LookupEnv(key)
}

// EndpointBase returns GRPCWEB_ENDPOINT or the fallback.
func (e Env) EndpointBase() string {
	if v, ok := e.lookup(EnvEndpoint); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return e.Fallback
}

// Simulated reports GRPCWEB_SIMULATE. Unparseable values count as off.
func (e Env) Simulated() bool {
	v, _ := e.lookup(EnvSimulate)
	on, err := ParseBool(v)
	return err == nil && on
}
