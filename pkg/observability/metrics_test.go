package observability

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveRequest(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.ObserveRequest("POST", "/orgs", 200, 50*time.Millisecond)
	m.ObserveRequest("POST", "/orgs", 200, 30*time.Millisecond)
	m.ObserveRequest("POST", "/orgs", 400, 10*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("POST", "/orgs", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("POST", "/orgs", "400")))
}

func TestObserveGatewayCall(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.ObserveGatewayCall("createCustomer", nil, 20*time.Millisecond)
	m.ObserveGatewayCall("createCustomer", errors.New("boom"), 20*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.GatewayCallsTotal.WithLabelValues("createCustomer", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GatewayCallsTotal.WithLabelValues("createCustomer", "error")))
}

func TestSetDBConnections(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.SetDBConnections(7, 3)

	assert.Equal(t, 7.0, testutil.ToFloat64(m.DBConnectionsActive))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.DBConnectionsIdle))
}

func TestMetricsHandler(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.ProvisioningTotal.WithLabelValues("success").Inc()

	recorder := httptest.NewRecorder()
	m.Handler().ServeHTTP(recorder, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "rentdesk_provisioning_total")
}
