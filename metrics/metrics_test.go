package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yhonda-ohishi/grpcweb-bridge/unary"
)

var _ unary.Observer = (*Prometheus)(nil)

func TestObserveCall(t *testing.T) {
	p := New(prometheus.NewRegistry())

	p.ObserveCall("a.B/C", unary.ResultOK, 10*time.Millisecond)
	p.ObserveCall("a.B/C", unary.ResultOK, 20*time.Millisecond)
	p.ObserveCall("a.B/C", unary.ResultStatusError, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(p.clientCalls.WithLabelValues("a.B/C", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.clientCalls.WithLabelValues("a.B/C", "status_error")))
	assert.Equal(t, 1, testutil.CollectAndCount(p.clientDuration))
}

func TestObserveHandled(t *testing.T) {
	p := New(nil)

	p.ObserveHandled("/a.B/C", 0, time.Millisecond)
	p.ObserveHandled("/a.B/C", 12, time.Millisecond)

	expected := `
# HELP grpcweb_server_handled_total Total number of handled requests by grpc-status
# TYPE grpcweb_server_handled_total counter
grpcweb_server_handled_total{code="0",method="/a.B/C"} 1
grpcweb_server_handled_total{code="12",method="/a.B/C"} 1
`
	require.NoError(t, testutil.CollectAndCompare(p.serverHandled, strings.NewReader(expected)))
}

func TestHandler(t *testing.T) {
	p := New(nil)
	p.ObserveCall("a.B/C", unary.ResultTransportError, time.Millisecond)

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `grpcweb_client_calls_total{method="a.B/C",outcome="transport_error"} 1`)
}
