// Package server answers dependency queries over HTTP.
//
// The server holds one [snapshot.Snapshot] and the graph rebuilt from it.
// [Server.Reload] swaps both atomically, so a scheduled re-audit or a
// snapshot written by another process (see [Server.Watch]) is picked up
// without a restart.
//
// # Routes
//
//	GET /healthz
//	GET /api/v1/summary
//	GET /api/v1/problems?kind=missing-owner,dependency-cycle
//	GET /api/v1/cycles
//	GET /api/v1/dependents?fmri=library/zlib
//	GET /api/v1/known?fmri=library/zlib
//	GET /api/v1/obsoleted?fmri=library/zlib
//	GET /api/v1/owner?fmri=library/zlib
//	GET /api/v1/render/cycles?format=svg
//	GET /api/v1/render/dependents?fmri=library/zlib&depth=2&format=svg
//	GET /metrics
//
// API routes answer 503 until a snapshot is loaded.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/pkgcheck/pkg/graph"
	"github.com/matzehuels/pkgcheck/pkg/snapshot"
)

// DefaultCacheSize is the number of dependents answers kept in memory.
const DefaultCacheSize = 4096

// DefaultAddr is the listen address used by [Server.ListenAndServe] when
// none is given.
const DefaultAddr = "127.0.0.1:8080"

// ErrNoSnapshot is reported while no snapshot has been loaded.
var ErrNoSnapshot = errors.New("no snapshot loaded")

// Options configures a [Server].
type Options struct {
	// CacheSize bounds the dependents cache. Zero means DefaultCacheSize.
	CacheSize int

	// Registry receives the request metrics and is exposed on /metrics.
	// Nil creates a private registry.
	Registry *prometheus.Registry

	// Logger receives request logs; nil means log.Default().
	Logger *log.Logger
}

type state struct {
	snap  *snapshot.Snapshot
	graph *graph.Graph
}

// Server serves one snapshot at a time.
type Server struct {
	current    atomic.Pointer[state]
	dependents *lru.Cache[string, []graph.DependentRef]
	registry   *prometheus.Registry
	metrics    *metrics
	logger     *log.Logger
	router     chi.Router
}

// New creates a server without a snapshot.
func New(opts Options) (*Server, error) {
	size := opts.CacheSize
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, []graph.DependentRef](size)
	if err != nil {
		return nil, err
	}
	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	s := &Server{
		dependents: cache,
		registry:   reg,
		metrics:    newMetrics(reg),
		logger:     logger,
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.instrument)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.requireSnapshot)
		r.Get("/summary", s.handleSummary)
		r.Get("/problems", s.handleProblems)
		r.Get("/cycles", s.handleCycles)
		r.Get("/dependents", s.handleDependents)
		r.Get("/known", s.handleKnown)
		r.Get("/obsoleted", s.handleObsoleted)
		r.Get("/owner", s.handleOwner)
		r.Get("/render/cycles", s.handleRenderCycles)
		r.Get("/render/dependents", s.handleRenderDependents)
	})
	return r
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler { return s.router }

// Snapshot returns the loaded snapshot, or nil.
func (s *Server) Snapshot() *snapshot.Snapshot {
	if st := s.current.Load(); st != nil {
		return st.snap
	}
	return nil
}

// Reload rebuilds the graph of snap and makes it the served snapshot.
// On error the previous snapshot stays in place.
func (s *Server) Reload(snap *snapshot.Snapshot) error {
	start := time.Now()
	g, err := snap.Graph()
	if err != nil {
		return err
	}
	s.current.Store(&state{snap: snap, graph: g})
	s.dependents.Purge()
	s.metrics.snapshotLoaded.SetToCurrentTime()
	s.logger.Info("loaded snapshot", "id", snap.ID, "packages", len(snap.Packages), "problems", len(snap.Problems), "elapsed", time.Since(start))
	return nil
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("serving", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
