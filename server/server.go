package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/go-pkgz/rest"
	"github.com/go-pkgz/rest/logger"
	"github.com/go-pkgz/routegroup"

	"github.com/tradingzbotem/sparks/pkg/domain"
	"github.com/tradingzbotem/sparks/pkg/service"
)

// Server represents HTTP server instance
type Server struct {
	config     ConfigProvider
	news       NewsStore
	briefs     BriefStore
	jobs       Jobs
	briefCache *briefCache
	version    string
	debug      bool

	lock       sync.Mutex
	httpServer *http.Server
	router     *routegroup.Bundle
}

// NewsStore is the news read path used by the server
type NewsStore interface {
	ListNews(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error)
}

// BriefStore is the brief read path used by the server
type BriefStore interface {
	GetLatestBrief(ctx context.Context, window domain.Window) (*domain.Brief, error)
}

// Jobs are the scheduler-triggered pipeline operations
type Jobs interface {
	Ingest(ctx context.Context) (service.IngestResult, error)
	EnrichPending(ctx context.Context) (service.EnrichResult, error)
	GenerateBriefs(ctx context.Context) (service.BriefsResult, error)
	Run(ctx context.Context) service.RunResult
	SeedDemo(ctx context.Context) (int, error)
	SeedBulk(ctx context.Context, count, days int) (int, error)
	PurgeSeedItems(ctx context.Context) (int64, error)
}

// ConfigProvider provides server configuration
type ConfigProvider interface {
	GetServerConfig() (listen string, timeout time.Duration)
	JobsSecret() string
	IsProduction() bool
	BriefCacheTTL() time.Duration
}

// New initializes a new server instance
func New(cfg ConfigProvider, news NewsStore, briefs BriefStore, jobs Jobs, version string, debug bool) *Server {
	s := &Server{
		config:     cfg,
		news:       news,
		briefs:     briefs,
		jobs:       jobs,
		briefCache: newBriefCache(cfg.BriefCacheTTL()),
		version:    version,
		debug:      debug,
		router:     routegroup.New(http.NewServeMux()),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// Run starts the HTTP server and handles graceful shutdown
func (s *Server) Run(ctx context.Context) error {
	listen, timeout := s.config.GetServerConfig()
	log.Printf("[INFO] starting server on %s", listen)

	s.lock.Lock()
	s.httpServer = &http.Server{
		Addr:         listen,
		Handler:      s.router,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	}
	s.lock.Unlock()

	go func() {
		<-ctx.Done()
		log.Printf("[INFO] shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("[WARN] server shutdown error: %v", err)
		}
	}()

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server error: %w", err)
	}

	return nil
}

// setupMiddleware configures standard middleware for the server
func (s *Server) setupMiddleware() {
	s.router.Use(rest.AppInfo("sparks", "tradingzbotem", s.version))
	s.router.Use(rest.Ping)

	if s.debug {
		s.router.Use(logger.New(logger.Log(lgr.Default()), logger.Prefix("[DEBUG]")).Handler)
	}

	s.router.Use(rest.Recoverer(lgr.Default()))
	s.router.Use(rest.Throttle(100))
	s.router.Use(rest.SizeLimit(1024 * 1024)) // 1MB
}

// setupRoutes configures application routes
func (s *Server) setupRoutes() {
	s.router.Mount("/api/v1").Route(func(r *routegroup.Bundle) {
		r.HandleFunc("GET /status", s.statusHandler)
		r.HandleFunc("GET /news", s.newsHandler)
		r.HandleFunc("GET /brief/{window}", s.briefHandler)

		// scheduler-triggered jobs and admin operations, secret-guarded
		r.Group().Route(func(g *routegroup.Bundle) {
			g.Use(s.secretAuth)
			g.HandleFunc("POST /jobs/ingest", s.ingestHandler)
			g.HandleFunc("POST /jobs/enrich", s.enrichHandler)
			g.HandleFunc("POST /jobs/briefs", s.briefsHandler)
			g.HandleFunc("POST /jobs/pipeline", s.pipelineHandler)
			g.HandleFunc("POST /admin/seed", s.seedDemoHandler)
			g.HandleFunc("POST /admin/seed/bulk", s.seedBulkHandler)
			g.HandleFunc("DELETE /admin/seed", s.purgeSeedHandler)
		})
	})
}

// statusHandler returns server status
func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status":  "ok",
		"version": s.version,
		"time":    time.Now().UTC(),
	}
	renderJSON(w, r, http.StatusOK, status)
}

// renderJSON sends JSON response
func renderJSON(w http.ResponseWriter, _ *http.Request, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Printf("[ERROR] can't encode response to JSON: %v", err)
		}
	}
}

// renderError sends error response as JSON
func renderError(w http.ResponseWriter, r *http.Request, err error, code int) {
	errMsg := "unknown error"
	if err != nil {
		errMsg = err.Error()
	}
	renderJSON(w, r, code, map[string]string{"error": errMsg})
}
