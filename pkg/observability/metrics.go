package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Provisioning saga metrics
	ProvisioningTotal    *prometheus.CounterVec
	ProvisioningDuration prometheus.Histogram

	// Billing gateway metrics
	GatewayCallsTotal   *prometheus.CounterVec
	GatewayCallDuration *prometheus.HistogramVec

	// Re-billing metrics
	RebillSessionsTotal *prometheus.CounterVec

	// Reconciler metrics
	OrphanedCustomersFound prometheus.Gauge
	ReconcilerRunsTotal    *prometheus.CounterVec

	// Database metrics
	DBConnectionsActive prometheus.Gauge
	DBConnectionsIdle   prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rentdesk_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rentdesk_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		ProvisioningTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rentdesk_provisioning_total",
				Help: "Total number of org provisioning attempts by outcome",
			},
			[]string{"result"},
		),
		ProvisioningDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "rentdesk_provisioning_duration_seconds",
				Help:    "End-to-end provisioning saga duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		GatewayCallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rentdesk_billing_gateway_calls_total",
				Help: "Total number of billing gateway calls",
			},
			[]string{"operation", "status"},
		),
		GatewayCallDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rentdesk_billing_gateway_call_duration_seconds",
				Help:    "Billing gateway call duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		RebillSessionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rentdesk_rebill_sessions_total",
				Help: "Total number of price-update checkout sessions requested",
			},
			[]string{"status"},
		),
		OrphanedCustomersFound: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "rentdesk_orphaned_billing_customers",
				Help: "Remote billing customers with no matching local org, per last sweep",
			},
		),
		ReconcilerRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rentdesk_reconciler_runs_total",
				Help: "Total number of reconciler sweeps by outcome",
			},
			[]string{"status"},
		),
		DBConnectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "rentdesk_db_connections_active",
				Help: "Number of active database connections",
			},
		),
		DBConnectionsIdle: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "rentdesk_db_connections_idle",
				Help: "Number of idle database connections",
			},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.ProvisioningTotal,
		m.ProvisioningDuration,
		m.GatewayCallsTotal,
		m.GatewayCallDuration,
		m.RebillSessionsTotal,
		m.OrphanedCustomersFound,
		m.ReconcilerRunsTotal,
		m.DBConnectionsActive,
		m.DBConnectionsIdle,
	)

	return m
}

// Handler returns the HTTP handler serving the metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRequest records a completed HTTP request
func (m *Metrics) ObserveRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// SetDBConnections records the connection pool state from a db.Stats() sample
func (m *Metrics) SetDBConnections(active, idle int) {
	m.DBConnectionsActive.Set(float64(active))
	m.DBConnectionsIdle.Set(float64(idle))
}

// ObserveGatewayCall records a billing gateway call
func (m *Metrics) ObserveGatewayCall(operation string, err error, duration time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.GatewayCallsTotal.WithLabelValues(operation, status).Inc()
	m.GatewayCallDuration.WithLabelValues(operation).Observe(duration.Seconds())
}
