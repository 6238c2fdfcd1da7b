package main

import (
	"github.com/yhonda-ohishi/grpcweb-bridge/facade"
	"github.com/yhonda-ohishi/grpcweb-bridge/metrics"
	"github.com/yhonda-ohishi/grpcweb-bridge/services/entity"
	"github.com/yhonda-ohishi/grpcweb-bridge/services/knowledge"
	"github.com/yhonda-ohishi/grpcweb-bridge/services/llm"
	"github.com/yhonda-ohishi/grpcweb-bridge/transport"
	"github.com/yhonda-ohishi/grpcweb-bridge/unary"
)

// clients groups the service clients behind one facade.
type clients struct {
	entity    *entity.Client
	knowledge *knowledge.Client
	llm       *llm.Client
}

func newClients(rt transport.RoundTripper, observer unary.Observer) *clients {
	exec := unary.New(rt,
		unary.WithLogger(logger),
		unary.WithTimeout(cfg.Timeout),
		unary.WithObserver(observer),
	)
	f := facade.New(exec, settings, facade.WithLogger(logger))
	return &clients{
		entity:    entity.NewClient(f),
		knowledge: knowledge.NewClient(f),
		llm:       llm.NewClient(f),
	}
}

// newHTTPClients builds clients over HTTP, recording calls in m when set.
func newHTTPClients(m *metrics.Prometheus) *clients {
	var observer unary.Observer
	if m != nil {
		observer = m
	}
	return newClients(transport.NewHTTP(transport.WithLogger(logger)), observer)
}
