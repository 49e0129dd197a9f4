// Package observability provides structured JSON logging and Prometheus
// metrics for the back-office service. Loggers are injected into components
// rather than accessed through package-level globals, so saga-step tracing
// and best-effort-failure recording stay testable.
package observability
