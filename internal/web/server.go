// Package web provides the HTTP API and dashboard for the BIN filter.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/JonMunkholm/binfilter/internal/config"
	"github.com/JonMunkholm/binfilter/internal/core"
	"github.com/JonMunkholm/binfilter/internal/web/middleware"
)

// Server is the HTTP server for the BIN filter.
type Server struct {
	service *core.Service
	cfg     *config.Config
	router  *chi.Mux
	server  *http.Server

	limiters []*rateLimiter
}

// NewServer creates a Server with its routes registered. Call Shutdown to
// release the rate limiter goroutines even if Start was never called.
func NewServer(service *core.Service, cfg *config.Config) *Server {
	s := &Server{
		service: service,
		cfg:     cfg,
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.Security.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "Authorization", "X-API-Key"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))
	s.router.Use(s.securityHeaders)

	if s.cfg.Rate.Enabled {
		s.router.Use(s.newRateLimiter(s.cfg.Rate.RequestsPerMinute, time.Minute).middleware)
	}
	s.router.Use(chimw.Compress(5))
}

func (s *Server) setupRoutes() {
	auth := middleware.APIKeyAuth(&s.cfg.Security)

	s.router.Get("/healthz", s.handleHealth)

	// Reads
	s.router.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))

		r.Get("/", s.handleDashboard)
		r.Get("/meta", s.handleMeta)
		r.Get("/bins", s.handleBins)
		r.Get("/bins/export", s.handleExport)
		r.Get("/stats", s.handleStats)
		r.Get("/history", s.handleHistory)
	})

	// Mapping overrides are cheap; uploads get their own limits and a
	// deadline long enough to wait for the load slot and parse the file.
	s.router.Group(func(r chi.Router) {
		r.Use(auth)
		r.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))

		r.Post("/mapping", s.handleSetMapping)
		r.Post("/dashboard/mapping", s.handleDashboardMapping)
	})
	s.router.Group(func(r chi.Router) {
		r.Use(auth)
		if s.cfg.Rate.Enabled {
			r.Use(s.newRateLimiter(s.cfg.Rate.UploadLimit, time.Minute).middleware)
		}
		r.Use(chimw.Timeout(s.cfg.Upload.MaxWaitTime + s.cfg.Upload.Timeout))

		r.Post("/upload", s.handleUpload)
		r.Post("/dashboard/upload", s.handleDashboardUpload)
	})
}

// Start listens on the configured address until Shutdown is called.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              s.cfg.Server.Addr(),
		Handler:           s.router,
		ReadTimeout:       s.cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.cfg.Server.WriteTimeout,
		IdleTimeout:       s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server and the rate limiters.
func (s *Server) Shutdown(ctx context.Context) error {
	for _, rl := range s.limiters {
		rl.stop()
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

const contentSecurityPolicy = "default-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; form-action 'self'; frame-ancestors 'none'"

func (s *Server) securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		if s.cfg.Security.EnableCSP {
			h.Set("Content-Security-Policy", contentSecurityPolicy)
		}
		next.ServeHTTP(w, r)
	})
}

// writeJSON encodes v as JSON with the given status. Encoding errors are
// logged since the header is already sent.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "path", r.URL.Path, "error", err)
	}
}
