// Package api implements the Control-Plane HTTP API (C7): the JSON-over-
// HTTP surface that fronts the catalog, installation coordinator, history
// store, lifecycle engine, and wizard state service — one
// http.ServeMux-based server wiring handler methods to routes, covering
// the full route table: service listing/install/progress/logs, active
// and passive health checks, Raven mount detection, and the wizard
// surface.
package api

import (
	"net/http"
	"time"

	"github.com/noona-project/warden/pkg/catalog"
	"github.com/noona-project/warden/pkg/history"
	"github.com/noona-project/warden/pkg/install"
	"github.com/noona-project/warden/pkg/lifecycle"
	"github.com/noona-project/warden/pkg/metrics"
	"github.com/noona-project/warden/pkg/wizard"
)

// Server is the Control-Plane HTTP API. It holds no state of its own —
// every request is served by reading through to the catalog, history
// store, coordinator, engine, or wizard service it was constructed with.
type Server struct {
	catalog     *catalog.Catalog
	coordinator *install.Coordinator
	history     *history.Store
	engine      *lifecycle.Engine
	wizard      *wizard.Service

	mux *http.ServeMux
}

// NewServer builds the routed handler for every endpoint, plus /metrics,
// /health, /ready, and /live on the same mux.
func NewServer(cat *catalog.Catalog, coordinator *install.Coordinator, hist *history.Store, engine *lifecycle.Engine, wiz *wizard.Service) *Server {
	s := &Server{
		catalog:     cat,
		coordinator: coordinator,
		history:     hist,
		engine:      engine,
		wizard:      wiz,
		mux:         http.NewServeMux(),
	}

	s.mux.Handle("GET /health", metrics.HealthHandler())
	s.mux.Handle("GET /ready", metrics.ReadyHandler())
	s.mux.Handle("GET /live", metrics.LivenessHandler())
	s.mux.Handle("GET /metrics", metrics.Handler())

	s.mux.HandleFunc("GET /api/services", s.listServices)
	s.mux.HandleFunc("POST /api/services/install", s.installServices)
	s.mux.HandleFunc("GET /api/services/install/progress", s.installProgress)
	s.mux.HandleFunc("GET /api/services/installation/logs", s.installationLogs)
	s.mux.HandleFunc("GET /api/services/{name}/logs", s.serviceLogs)
	s.mux.HandleFunc("POST /api/services/{name}/test", s.testService)
	s.mux.HandleFunc("GET /api/services/{name}/health", s.passiveHealth)
	s.mux.HandleFunc("POST /api/services/noona-raven/detect", s.detectRavenMount)

	s.mux.HandleFunc("GET /api/setup/wizard/metadata", s.wizardMetadata)
	s.mux.HandleFunc("GET /api/setup/wizard/state", s.wizardState)
	s.mux.HandleFunc("PUT /api/setup/wizard/state", s.wizardPutState)
	s.mux.HandleFunc("GET /api/setup/wizard/steps/{step}/history", s.stepHistory)
	s.mux.HandleFunc("POST /api/setup/wizard/steps/{step}/reset", s.stepReset)
	s.mux.HandleFunc("POST /api/setup/wizard/steps/{step}/broadcast", s.stepBroadcast)
	s.mux.HandleFunc("POST /api/setup/wizard/complete", s.completeWizard)

	return s
}

// ServeHTTP lets Server itself be used directly as an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Start runs the HTTP server on addr until the process is killed or the
// listener fails.
func (s *Server) Start(addr string) error {
	server := &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return server.ListenAndServe()
}

