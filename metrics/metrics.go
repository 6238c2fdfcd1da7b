// Package metrics exports call outcomes and latencies to Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yhonda-ohishi/grpcweb-bridge/unary"
)

const namespace = "grpcweb"

var durationBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10}

// Prometheus records client calls (as a unary.Observer) and server-side
// handled requests.
type Prometheus struct {
	gatherer prometheus.Gatherer

	clientCalls    *prometheus.CounterVec
	clientDuration *prometheus.HistogramVec
	serverHandled  *prometheus.CounterVec
	serverDuration *prometheus.HistogramVec
}

// New registers the collectors with reg. A nil reg gets a fresh registry.
func New(reg *prometheus.Registry) *Prometheus {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Prometheus{
		gatherer: reg,
		clientCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "client",
				Name:      "calls_total",
				Help:      "Total number of unary calls by outcome",
			},
			[]string{"method", "outcome"},
		),
		clientDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "client",
				Name:      "call_duration_seconds",
				Help:      "Unary call duration in seconds",
				Buckets:   durationBuckets,
			},
			[]string{"method"},
		),
		serverHandled: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "server",
				Name:      "handled_total",
				Help:      "Total number of handled requests by grpc-status",
			},
			[]string{"method", "code"},
		),
		serverDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "server",
				Name:      "handling_seconds",
				Help:      "Request handling duration in seconds",
				Buckets:   durationBuckets,
			},
			[]string{"method"},
		),
	}
}

// ObserveCall implements unary.Observer.
func (p *Prometheus) ObserveCall(method string, result unary.Result, elapsed time.Duration) {
	p.clientCalls.WithLabelValues(method, string(result)).Inc()
	p.clientDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// ObserveHandled records one request answered by a server.
func (p *Prometheus) ObserveHandled(method string, code int, elapsed time.Duration) {
	p.serverHandled.WithLabelValues(method, strconv.Itoa(code)).Inc()
	p.serverDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.gatherer, promhttp.HandlerOpts{})
}
