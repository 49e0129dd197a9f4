package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/rentdesk/rentdesk/pkg/observability"
	"github.com/rentdesk/rentdesk/pkg/orgs"
	"github.com/rentdesk/rentdesk/pkg/provisioning"
)

// Server represents our API server
type Server struct {
	router  *mux.Router
	logger  *observability.Logger
	metrics *observability.Metrics

	provisionHandlers *ProvisionHandlers
	orgHandlers       *OrgHandlers
}

// Options configures a Server
type Options struct {
	Store            *orgs.Store
	Orchestrator     *provisioning.Orchestrator
	Rebiller         *provisioning.Rebiller
	Logger           *observability.Logger
	Metrics          *observability.Metrics
	ProvisionTimeout time.Duration
}

// NewServer creates a new API server
func NewServer(opts Options) *Server {
	s := &Server{
		router:  mux.NewRouter(),
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}

	s.provisionHandlers = NewProvisionHandlers(opts.Orchestrator, opts.ProvisionTimeout)
	s.orgHandlers = NewOrgHandlers(opts.Store, opts.Rebiller)

	s.setupRoutes()
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.loggingMiddleware)
	if s.metrics != nil {
		s.router.Use(s.metricsMiddleware)
	}

	s.router.HandleFunc("/healthz", s.healthz).Methods("GET")

	s.provisionHandlers.RegisterRoutes(s.router)
	s.orgHandlers.RegisterRoutes(s.router)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// RouteRegistrar is an interface for types that can register routes
type RouteRegistrar interface {
	RegisterRoutes(router *mux.Router)
}

// RegisterRoutes registers routes from a RouteRegistrar
func (s *Server) RegisterRoutes(registrar RouteRegistrar) {
	registrar.RegisterRoutes(s.router)
}

// healthz handles GET /healthz
func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
