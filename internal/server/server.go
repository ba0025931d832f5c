package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/woodsintl/woodsreport/internal/connector"
	"github.com/woodsintl/woodsreport/internal/handler"
	"github.com/woodsintl/woodsreport/internal/model"
	"github.com/woodsintl/woodsreport/internal/openapi"
	"github.com/woodsintl/woodsreport/internal/report"
	"github.com/woodsintl/woodsreport/internal/server/middleware"
	"github.com/woodsintl/woodsreport/internal/service"
)

// Config holds the HTTP server configuration.
type Config struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	MaxBodySize     int64 // bytes
	RateLimit       int   // requests per minute per IP on the procedure routes, 0 disables
	StaticDir       string
	API             openapi.Info
}

// DefaultConfig returns a Config with the production defaults.
func DefaultConfig() Config {
	return Config{
		Host:            "0.0.0.0",
		Port:            8080,
		ShutdownTimeout: 30 * time.Second,
		CORSOrigins:     []string{"*"},
		MaxBodySize:     1 << 20,
	}
}

// Server is the HTTP front of the proxy. It owns the router and closes the
// pool registry when it stops.
type Server struct {
	cfg        Config
	router     chi.Router
	registry   *connector.Registry
	proxy      *service.Proxy
	catalog    *report.Catalog
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a new Server, wires up all routes and middleware, and returns
// it ready to listen.
func New(cfg Config, registry *connector.Registry, proxy *service.Proxy, catalog *report.Catalog, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if catalog == nil {
		catalog = report.Default()
	}
	s := &Server{
		cfg:      cfg,
		registry: registry,
		proxy:    proxy,
		catalog:  catalog,
		logger:   logger,
	}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// --- Global middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(s.logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Requested-With", middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAge:         300,
	}))

	// --- Health checks ---
	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)

	r.Get("/openapi.json", handler.NewOpenAPIHandler(s.cfg.API, s.catalog).ServeSpec)

	// --- Proxy API ---
	proxyHandler := handler.NewProxyHandler(s.proxy)
	r.Route("/api", func(r chi.Router) {
		if s.cfg.MaxBodySize > 0 {
			r.Use(chimw.RequestSize(s.cfg.MaxBodySize))
		}

		// Store status is polled by the UI and is never limited.
		r.Get("/store", proxyHandler.Store)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(s.cfg.RateLimit))
			r.Post("/exec", proxyHandler.Exec)
			r.Post("/query", proxyHandler.Query)
			r.Get("/dashboard", proxyHandler.Dashboard)
			r.Get("/clients", proxyHandler.Clients)
		})

		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusNotFound, model.ErrorResponse{Error: "Not found"})
		})
	})

	// --- Static frontend ---
	if s.cfg.StaticDir != "" {
		if st, err := os.Stat(s.cfg.StaticDir); err != nil || !st.IsDir() {
			s.logger.Error("static directory not usable, frontend disabled",
				"dir", s.cfg.StaticDir,
				"error", err,
			)
		} else {
			r.Get("/*", spaHandler(os.DirFS(s.cfg.StaticDir)))
		}
	}

	s.router = r
}

func (s *Server) closePools() {
	if err := s.registry.CloseAll(); err != nil {
		s.logger.Error("closing pools", "error", err)
	}
}

// spaHandler serves files from dist and falls back to index.html for any
// path that is not a file, so client-side routes survive a reload.
func spaHandler(dist fs.FS) http.HandlerFunc {
	fileServer := http.FileServer(http.FS(dist))
	return func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
		if name != "" {
			if st, err := fs.Stat(dist, name); err == nil && !st.IsDir() {
				fileServer.ServeHTTP(w, r)
				return
			}
		}

		index, err := fs.ReadFile(dist, "index.html")
		if err != nil {
			http.Error(w, "frontend not available", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		w.WriteHeader(http.StatusOK)
		w.Write(index)
	}
}

// handleHealthz is a liveness probe. Returns 200 if the process is running.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReadyz is a readiness probe. Returns 200 when the pool is present
// and answers a ping, 503 otherwise.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := s.proxy.Status()
	if err := s.proxy.Ping(ctx); err != nil {
		resp := map[string]string{
			"status":   "unavailable",
			"store":    status.Store,
			"database": status.Database,
			"error":    err.Error(),
		}
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "ok",
		"store":    status.Store,
		"database": status.Database,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// ListenAndServe starts the HTTP server and blocks until a SIGINT or SIGTERM
// is received, then shuts down gracefully.
func (s *Server) ListenAndServe() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return s.Run(ctx)
}

// Run listens on the configured address and serves until ctx is done. It
// then drains in-flight requests and closes every pool.
func (s *Server) Run(ctx context.Context) error {
	addr := net.JoinHostPort(s.cfg.Host, fmt.Sprint(s.cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("server listen: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.httpServer = &http.Server{
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		s.closePools()
		if ok {
			return fmt.Errorf("server listen: %w", err)
		}
		return nil
	case <-ctx.Done():
		s.logger.Info("shutdown signal received, draining connections...")
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err := s.httpServer.Shutdown(shutdownCtx)
	s.closePools()
	if err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}

// Router returns the underlying Chi router, useful for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ServeHTTP implements http.Handler, delegating to the router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
