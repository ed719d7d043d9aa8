// Package api exposes the NASA explorer over HTTP. Handlers stay thin:
// parse the request, call an adapter or the correlation engine, map the
// error kind to a status code.
package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Clemente-H/gradio-hackaton-mcp-nasa/internal/apod"
	"github.com/Clemente-H/gradio-hackaton-mcp-nasa/internal/auth"
	"github.com/Clemente-H/gradio-hackaton-mcp-nasa/internal/engine"
	"github.com/Clemente-H/gradio-hackaton-mcp-nasa/internal/health"
	"github.com/Clemente-H/gradio-hackaton-mcp-nasa/internal/httputil"
	"github.com/Clemente-H/gradio-hackaton-mcp-nasa/internal/metrics"
	"github.com/Clemente-H/gradio-hackaton-mcp-nasa/internal/neo"
	"github.com/Clemente-H/gradio-hackaton-mcp-nasa/internal/rover"
)

// Sources bundles everything the handlers serve from.
type Sources struct {
	APOD   *apod.Adapter
	NEO    *neo.Adapter
	Rovers *rover.Adapter
	Engine *engine.Engine
}

// Server holds the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a configured HTTP server.
func NewServer(addr string, logger *slog.Logger, authCfg auth.Config, src Sources) *Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", health.Healthz)
	mux.HandleFunc("GET /readyz", health.Readyz)
	mux.Handle("GET /metrics", metrics.Handler())

	h := &handlers{src: src, logger: logger}

	mux.HandleFunc("GET /api/v1/apod", h.apodByDate)
	mux.HandleFunc("GET /api/v1/apod/range", h.apodRange)

	mux.HandleFunc("GET /api/v1/neo/feed", h.neoFeed)
	mux.HandleFunc("GET /api/v1/neo/hazardous", h.neoHazardous)
	mux.HandleFunc("GET /api/v1/neo/largest", h.neoLargest)
	mux.HandleFunc("GET /api/v1/neo/{id}", h.neoByID)
	mux.HandleFunc("GET /api/v1/neo/{id}/danger", h.neoDanger)

	mux.HandleFunc("GET /api/v1/rovers/compare", h.roversCompare)
	mux.HandleFunc("GET /api/v1/rovers/{rover}", h.roverInfo)
	mux.HandleFunc("GET /api/v1/rovers/{rover}/photos", h.roverPhotos)
	mux.HandleFunc("GET /api/v1/rovers/{rover}/latest", h.roverLatest)
	mux.HandleFunc("GET /api/v1/rovers/{rover}/status", h.roverStatus)

	mux.HandleFunc("GET /api/v1/correlate", h.correlate)
	mux.HandleFunc("GET /api/v1/correlate/range", h.correlateRange)
	mux.HandleFunc("GET /api/v1/compare/scale", h.compareScale)

	// Build middleware chain: metrics -> logging -> auth -> mux.
	var handler http.Handler = mux
	handler = auth.Middleware(authCfg)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = metrics.Middleware(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadTimeout:       10 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		logger: logger,
	}
}

// HTTPServer returns the underlying *http.Server for external control (e.g. shutdown).
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// probePath returns true for health/readiness probe paths that should not log at INFO.
func probePath(path string) bool {
	return path == "/healthz" || path == "/readyz"
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(sr, r)

			duration := time.Since(start)
			level := slog.LevelInfo
			if probePath(r.URL.Path) {
				level = slog.LevelDebug
			}

			logger.Log(r.Context(), level, "request",
				"component", "api",
				"method", r.Method,
				"path", r.URL.Path,
				"status", strconv.Itoa(sr.statusCode),
				"duration_ms", duration.Milliseconds(),
				"remote_ip", httputil.ClientIP(r, false),
			)
		})
	}
}
