package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"visitd/pkg/backend"
	"visitd/pkg/log"
	"visitd/pkg/models"
	"visitd/pkg/recorder"
	"visitd/pkg/stats"
	"visitd/pkg/store"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const (
	shutdownTimeout = 10 * time.Second
	queryTimeout    = 5 * time.Second
)

// Backend bundles one storage backend's name, connection manager and store.
type Backend struct {
	Name    string
	Manager *backend.Manager
	Store   store.VisitStore
}

// Server is the visitd HTTP server: routes, request counters, and the
// visit-recording middleware in front of the dual-write path.
type Server struct {
	echo       *echo.Echo
	version    string
	startTime  time.Time
	document   Backend
	relational Backend
	recorder   *recorder.Recorder
	aggregator *stats.Aggregator

	totalRequests atomic.Int64
	healthChecks  atomic.Int64
	apiCalls      atomic.Int64
}

// New wires the server over the document and relational backends.
func New(version string, document, relational Backend) *Server {
	rec := recorder.New(
		recorder.Target{Name: document.Name, Manager: document.Manager, Store: document.Store},
		recorder.Target{Name: relational.Name, Manager: relational.Manager, Store: relational.Store},
	)
	agg := stats.New(
		stats.Backend{Name: relational.Name, Manager: relational.Manager, Store: relational.Store},
		stats.Backend{Name: document.Name, Manager: document.Manager, Store: document.Store},
	)

	return &Server{
		echo:       echo.New(),
		version:    version,
		startTime:  time.Now().UTC(),
		document:   document,
		relational: relational,
		recorder:   rec,
		aggregator: agg,
	}
}

// Start serves HTTP on addr until SIGINT/SIGTERM. Backend connection
// retries run elsewhere; the listener accepts requests immediately.
func (s *Server) Start(addr string) error {
	s.setupRoutes()

	go func() {
		log.Info().
			Str("addr", addr).
			Str("version", s.version).
			Msg("Starting visitd server")

		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server startup failed")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	return s.Shutdown()
}

// Shutdown stops the listener, drains in-flight visit writes, and
// releases both backend handles.
func (s *Server) Shutdown() error {
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.echo.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
		return err
	}

	// Stop lazy connect attempts, then let in-flight writes finish.
	s.document.Manager.Close()
	s.relational.Manager.Close()
	s.recorder.Wait()

	for _, b := range []Backend{s.document, s.relational} {
		if b.Store == nil {
			continue
		}
		if err := b.Store.Close(ctx); err != nil {
			log.Warn().Str("backend", b.Name).Err(err).Msg("Backend close failed")
		}
	}

	log.Info().Msg("Shutdown complete")
	return nil
}

func (s *Server) setupRoutes() {
	s.echo.HideBanner = true
	s.echo.HidePort = true

	s.echo.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "${time_rfc3339} ${status} ${method} ${uri} (${latency_human})\n",
	}))
	s.echo.Use(middleware.Recover())
	s.echo.Use(s.instrument)

	s.echo.GET("/", s.handleIndex)
	s.echo.GET("/api/health", s.handleHealth)
	s.echo.GET("/api/stats", s.handleStats)
	s.echo.GET("/api/system", s.handleSystemInfo)
	s.echo.GET("/api/mongodb", s.backendInfoHandler(s.document))
	s.echo.GET("/api/postgres", s.backendInfoHandler(s.relational))
}

// instrument counts requests and records page visits. Recording is
// dispatched before the handler runs and never blocks it.
func (s *Server) instrument(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		s.totalRequests.Add(1)

		path := c.Request().URL.Path
		if strings.HasPrefix(path, "/api/") {
			s.apiCalls.Add(1)
			if path == "/api/health" {
				s.healthChecks.Add(1)
			}
		} else {
			s.recorder.Record(models.NewVisitRecord(c.Request(), c.RealIP()))
		}

		return next(c)
	}
}
