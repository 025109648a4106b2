// Package web serves the monitoring and report pages and the JSON API.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JonMunkholm/welltrack/internal/config"
	"github.com/JonMunkholm/welltrack/internal/core"
	mw "github.com/JonMunkholm/welltrack/internal/web/middleware"
)

//go:embed static
var staticFiles embed.FS

// Server is the HTTP front end of the record service.
type Server struct {
	service  *core.Service
	cfg      *config.Config
	router   *chi.Mux
	server   *http.Server
	validate *validator.Validate
	limiters []*rateLimiter
}

// NewServer wires middleware and routes around service.
func NewServer(service *core.Service, cfg *config.Config) *Server {
	s := &Server{
		service:  service,
		cfg:      cfg,
		router:   chi.NewRouter(),
		validate: validator.New(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(mw.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))
	s.router.Use(securityHeaders(s.cfg.Security.EnableCSP))

	if s.cfg.Rate.Enabled {
		s.router.Use(s.newRateLimiter(s.cfg.Rate.RequestsPerMinute, time.Minute).middleware)
	}
}

func (s *Server) setupRoutes() {
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	s.router.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))

	s.router.Get("/healthz", s.handleHealth)
	s.router.Handle("/metrics", promhttp.Handler())

	uploadLimit := s.uploadRateLimit()

	// Pages
	s.router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/monitoring", http.StatusSeeOther)
	})
	s.router.Route("/monitoring", func(r chi.Router) {
		r.Get("/", s.handleMonitoring)
		r.Post("/records", s.handleCreateRecordForm)
		r.Post("/records/{no}", s.handleUpdateRecordForm)
		r.Post("/records/{no}/delete", s.handleDeleteRecordForm)
		r.With(uploadLimit).Post("/upload", s.handleUploadPreviewForm)
		r.Post("/upload/{uploadID}/commit", s.handleUploadCommitForm)
		r.Get("/export", s.handleExport)
		r.Get("/template", s.handleTemplate)
	})
	s.router.Get("/report", s.handleReportPage)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(mw.APIKeyAuth(&s.cfg.Security))

		r.Get("/records", s.handleListRecords)
		r.Post("/records", s.handleCreateRecord)
		r.Get("/records/{no}", s.handleGetRecord)
		r.Put("/records/{no}", s.handleUpdateRecord)
		r.Delete("/records/{no}", s.handleDeleteRecord)

		r.With(uploadLimit).Post("/upload", s.handleUploadPreview)
		r.Post("/upload/{uploadID}/commit", s.handleUploadCommit)

		r.Get("/report", s.handleReport)
		r.Get("/reminders", s.handleReminders)
		r.Get("/export", s.handleExport)
		r.Get("/template", s.handleTemplate)
		r.Get("/audit-log", s.handleAuditLog)
	})
}

// uploadRateLimit is the tighter per-IP budget for workbook uploads.
func (s *Server) uploadRateLimit() func(http.Handler) http.Handler {
	if !s.cfg.Rate.Enabled {
		return func(next http.Handler) http.Handler { return next }
	}
	return s.newRateLimiter(s.cfg.Rate.UploadLimit, time.Minute).middleware
}

// Start listens on the configured address until Shutdown.
func (s *Server) Start() error {
	srv := s.cfg.Server
	s.server = &http.Server{
		Addr:         srv.Addr(),
		Handler:      s.router,
		ReadTimeout:  srv.ReadTimeout,
		WriteTimeout: srv.WriteTimeout,
		IdleTimeout:  srv.IdleTimeout,
	}

	slog.Info("starting server", "addr", srv.Addr(), "store", s.cfg.Store.Path)
	return s.server.ListenAndServe()
}

// Shutdown stops accepting requests, waits for in-flight ones and stops the
// rate limiter sweepers.
func (s *Server) Shutdown(ctx context.Context) error {
	for _, rl := range s.limiters {
		rl.stop()
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the chi router, for tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}

const contentSecurityPolicy = "default-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; form-action 'self'; frame-ancestors 'none'"

func securityHeaders(csp bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			if csp {
				h.Set("Content-Security-Policy", contentSecurityPolicy)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// rateLimiter is a fixed-window request budget per client IP.
type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     int
	window   time.Duration
	done     chan struct{}
	once     sync.Once
}

type visitor struct {
	tokens    int
	lastReset time.Time
}

func (s *Server) newRateLimiter(rate int, window time.Duration) *rateLimiter {
	rl := &rateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate,
		window:   window,
		done:     make(chan struct{}),
	}
	s.limiters = append(s.limiters, rl)
	go rl.cleanup()
	return rl
}

// cleanup forgets visitors idle for two windows.
func (rl *rateLimiter) cleanup() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()
	for {
		select {
		case <-rl.done:
			return
		case now := <-ticker.C:
			rl.mu.Lock()
			for ip, v := range rl.visitors {
				if now.Sub(v.lastReset) > rl.window*2 {
					delete(rl.visitors, ip)
				}
			}
			rl.mu.Unlock()
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.once.Do(func() { close(rl.done) })
}

func (rl *rateLimiter) allow(ip string, now time.Time) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, ok := rl.visitors[ip]
	if !ok || now.Sub(v.lastReset) > rl.window {
		rl.visitors[ip] = &visitor{tokens: rl.rate - 1, lastReset: now}
		return true
	}
	if v.tokens <= 0 {
		return false
	}
	v.tokens--
	return true
}

func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if parsed := mw.ClientIP(r.RemoteAddr); parsed != nil {
			ip = parsed.String()
		}
		if !rl.allow(ip, time.Now()) {
			w.Header().Set("Retry-After", strconv.Itoa(int(rl.window.Seconds())))
			respondError(w, r, errRateLimited, http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	limiter := s.service.UploadLimiter()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"uploadsActive":  limiter.ActiveCount(),
		"uploadsAllowed": limiter.MaxConcurrent(),
		"uploadsFree":    limiter.Available(),
	})
}

// writeJSON encodes v with status. Encoding errors are only logged since
// the header is already out.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode", "error", err)
	}
}
