package http

import (
	"bufio"
	"context"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"

	"caixamisteriosa/internal/app"
	"caixamisteriosa/internal/clues"
	"caixamisteriosa/internal/config"
	"caixamisteriosa/internal/store"
	"caixamisteriosa/internal/transport/ws"
)

// Server represents the HTTP server
type Server struct {
	server   *http.Server
	hub      *app.GameHub
	catalog  Catalog
	clues    clues.Generator
	profiles *store.ProfileStore
	ws       *ws.Handler
	config   *config.Config
	logger   *slog.Logger
	webFS    fs.FS
}

// Dependencies are the services the HTTP API exposes
type Dependencies struct {
	Hub      *app.GameHub
	Catalog  Catalog
	Clues    clues.Generator
	Profiles *store.ProfileStore
}

// NewServer creates a new HTTP server; webFS holds the client under web/
func NewServer(cfg *config.Config, deps Dependencies, logger *slog.Logger, webFS fs.FS) *Server {
	// Get the web subdirectory from embed FS
	webContent, err := fs.Sub(webFS, "web")
	if err != nil {
		logger.Error("failed to get web subdirectory", "error", err)
	}

	generator := deps.Clues
	if generator == nil {
		generator = clues.Disabled{}
	}

	s := &Server{
		hub:      deps.Hub,
		catalog:  deps.Catalog,
		clues:    generator,
		profiles: deps.Profiles,
		ws:       ws.NewHandler(deps.Hub, deps.Profiles, cfg.Game.OperatorKey, logger),
		config:   cfg,
		logger:   logger,
		webFS:    webContent,
	}

	s.server = &http.Server{
		Addr:         cfg.GetAddr(),
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the routed handler wrapped in middleware
func (s *Server) Handler() http.Handler {
	router := httprouter.New()
	s.setupRoutes(router)
	return s.middleware(router)
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(router *httprouter.Router) {
	// Games
	router.POST("/api/games", s.handleCreateGame)
	router.GET("/api/games/:code", s.handleGetGame)
	router.GET("/api/games/:code/exists", s.handleGameExists)
	router.GET("/api/games/:code/view", s.handleGameView)
	router.GET("/api/games/:code/qr", s.handleGameQR)
	router.GET("/api/history/last-finished", s.handleLastFinished)

	// Catalog
	router.GET("/api/sponsors", s.handleListSponsors)
	router.POST("/api/sponsors", s.requireOperator(s.handleCreateSponsor))
	router.GET("/api/sponsors/:id", s.handleGetSponsor)
	router.POST("/api/sponsors/:id/products", s.requireOperator(s.handleAddProduct))
	router.GET("/api/products/:id", s.handleGetProduct)
	router.PUT("/api/products/:id/clues", s.requireOperator(s.handleUpdateClues))
	router.POST("/api/products/:id/clues/generate", s.requireOperator(s.handleGenerateClues))

	// Form prefill
	router.GET("/api/profiles/:role/:clientId", s.handleGetProfile)
	router.PUT("/api/profiles/:role/:clientId", s.handleSaveProfile)

	router.GET("/api/health", s.handleHealth)
	router.GET("/api/stats", s.handleStats)

	// WebSocket
	router.Handler(http.MethodGet, "/ws", s.ws)

	// Static files, everything else is the SPA (e.g. /join/ABC123)
	router.GET("/static/*filepath", s.handleStatic)
	router.NotFound = http.HandlerFunc(s.handleSPA)
}

// middleware wraps the handler with logging and other middleware
func (s *Server) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Add CORS headers
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Operator-Key")

		// Handle preflight
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		// Wrap response writer to capture status code
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		// Log request (skip static files in production)
		if s.config.IsDevelopment() || !isStaticRequest(r.URL.Path) {
			s.logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", wrapped.statusCode,
				"duration", time.Since(start),
			)
		}
	})
}

// requireOperator guards catalog writes with the shared operator key
func (s *Server) requireOperator(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if !s.ws.OperatorKeyValid(r.Header.Get("X-Operator-Key")) {
			s.sendError(w, http.StatusForbidden, ws.ErrCodeNotOperator, "Operator key required")
			return
		}
		next(w, r, ps)
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("server starting", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server shutting down")
	return s.server.Shutdown(ctx)
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack implements http.Hijacker for WebSocket support
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hijacker, ok := rw.ResponseWriter.(http.Hijacker); ok {
		return hijacker.Hijack()
	}
	return nil, nil, http.ErrNotSupported
}

// Flush implements http.Flusher
func (rw *responseWriter) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// isStaticRequest checks if the request is for a static file
func isStaticRequest(path string) bool {
	return strings.HasPrefix(path, "/static/")
}
