// Package api provides the minimal internal HTTP surface for the memory
// store: a liveness probe and a status endpoint delegating to
// pkg/memory.Store. The MCP tool-dispatch transport that exposes
// remember/recall/forget/status to clients is a separate concern handled
// outside this repository; this package exists to demonstrate the facade
// is wired end-to-end and to give an orchestrator something to poll.
package api

import (
	"context"
	"net"
	"net/http"
	"time"

	echo "github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"

	"github.com/hybridmem/memstore/pkg/database"
	"github.com/hybridmem/memstore/pkg/memory"
	"github.com/hybridmem/memstore/pkg/queue"
	"github.com/hybridmem/memstore/pkg/version"
)

// Server is the internal HTTP API server.
type Server struct {
	echo       *echo.Echo
	httpServer *http.Server
	dbClient   *database.Client
	store      *memory.Store
	pool       *queue.WorkerPool // nil if the queue worker pool is not wired
}

// NewServer creates a new API server with Echo v5, registering /healthz
// and /v1/status.
func NewServer(dbClient *database.Client, store *memory.Store, pool *queue.WorkerPool) *Server {
	e := echo.New()

	s := &Server{
		echo:     e,
		dbClient: dbClient,
		store:    store,
		pool:     pool,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.echo.Use(securityHeaders())
	s.echo.Use(middleware.BodyLimit(2 * 1024 * 1024))

	s.echo.GET("/healthz", s.healthzHandler)

	v1 := s.echo.Group("/v1")
	v1.GET("/status", s.statusHandler)
}

// Start starts the HTTP server on the given address (blocking).
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.echo}
	return s.httpServer.ListenAndServe()
}

// StartWithListener starts the HTTP server on a pre-created listener. Used
// by tests to serve on a random OS-assigned port.
func (s *Server) StartWithListener(ln net.Listener) error {
	s.httpServer = &http.Server{Handler: s.echo}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// healthzHandler handles GET /healthz. Only this process's own components
// (database, worker pool) are checked — external dependencies (LLM,
// embedding sidecars) are excluded so an orchestrator does not restart
// this process when a downstream service is merely unhealthy; those are
// surfaced instead through /v1/status.
func (s *Server) healthzHandler(c *echo.Context) error {
	reqCtx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]HealthCheck)
	status := healthStatusHealthy

	if _, err := database.Health(reqCtx, s.dbClient.DB()); err != nil {
		status = healthStatusUnhealthy
		checks["database"] = HealthCheck{Status: healthStatusUnhealthy, Message: err.Error()}
	} else {
		checks["database"] = HealthCheck{Status: healthStatusHealthy}
	}

	if s.pool != nil {
		poolHealth := s.pool.Health()
		if poolHealth != nil && !poolHealth.IsHealthy {
			if status == healthStatusHealthy {
				status = healthStatusDegraded
			}
			msg := healthStatusUnhealthy
			if poolHealth.DBError != "" {
				msg = poolHealth.DBError
			}
			checks["worker_pool"] = HealthCheck{Status: healthStatusDegraded, Message: msg}
		} else {
			checks["worker_pool"] = HealthCheck{Status: healthStatusHealthy}
		}
	}

	httpStatus := http.StatusOK
	if status == healthStatusUnhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	return c.JSON(httpStatus, &HealthResponse{
		Status:  status,
		Version: version.Full(),
		Checks:  checks,
	})
}

// statusHandler handles GET /v1/status, delegating to the status RPC tool.
func (s *Server) statusHandler(c *echo.Context) error {
	resp, err := s.store.Status(c.Request().Context(), memory.StatusRequest{
		ArtifactID: c.QueryParam("artifact_id"),
	})
	if err != nil {
		return mapStoreError(err)
	}
	return c.JSON(http.StatusOK, resp)
}
