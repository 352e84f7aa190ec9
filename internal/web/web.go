package web

import (
	"crypto/subtle"
	"embed"
	"encoding/json"
	"io/fs"
	"net/http"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"coursecal/internal/config"
	appLog "coursecal/internal/log"
	"coursecal/internal/session"
)

// Server exposes the calendar session over HTTP. The session controller is
// single-actor, so every handler touching it holds mu.
type Server struct {
	cfg         *config.Config
	previewPath string
	mux         *http.ServeMux
	validate    *validator.Validate

	mu   sync.Mutex
	ctrl *session.Controller
}

// embeddedStatic holds the calendar page served at / and /calendar.
//
//go:embed all:static
var embeddedStatic embed.FS

// NewServer constructs a new Server around ctrl. previewPath is the PNG
// written by the capture job.
func NewServer(cfg *config.Config, ctrl *session.Controller, previewPath string) *Server {
	s := &Server{
		cfg:         cfg,
		previewPath: previewPath,
		mux:         http.NewServeMux(),
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		ctrl:        ctrl,
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "user", s.cfg.BasicAuth.Username)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	a := s.cfg.BasicAuth
	return a.Username != "" && (a.Password != "" || a.PasswordHash != "")
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	auth := *s.cfg.BasicAuth

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, auth.Username) || !checkPassword(auth, p) {
			w.Header().Set("WWW-Authenticate", `Basic realm="coursecal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkPassword prefers the bcrypt hash when one is configured.
func checkPassword(auth config.BasicAuthConfig, given string) bool {
	if auth.PasswordHash != "" {
		return bcrypt.CompareHashAndPassword([]byte(auth.PasswordHash), []byte(given)) == nil
	}
	return secureCompare(given, auth.Password)
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /preview.png", s.handlePreview)

	s.mux.HandleFunc("GET /api/projection", s.handleProjection)
	s.mux.HandleFunc("GET /api/courses", s.handleCourses)
	s.mux.HandleFunc("POST /api/courses/{name}/select", s.handleSelect)
	s.mux.HandleFunc("POST /api/courses/{name}/deselect", s.handleDeselect)
	s.mux.HandleFunc("POST /api/courses/{name}/color", s.handleCourseColor)
	s.mux.HandleFunc("POST /api/daltonism", s.handleDaltonism)
	s.mux.HandleFunc("POST /api/reset", s.handleReset)

	s.mux.HandleFunc("POST /api/range", s.handleRange)
	s.mux.HandleFunc("POST /api/range/today", s.handleRangeToday)
	s.mux.HandleFunc("POST /api/range/date", s.handleRangeDate)

	s.mux.HandleFunc("GET /api/events/{key}", s.handleEventDetail)
	s.mux.HandleFunc("GET /api/teachers/{name}/events", s.handleTeacherEvents)
	s.mux.HandleFunc("GET /api/export.ics", s.handleExport)

	s.mux.HandleFunc("POST /api/settings", s.handleOpenSettings)
	s.mux.HandleFunc("GET /api/settings/{id}", s.handleGetSettings)
	s.mux.HandleFunc("POST /api/settings/{id}/color", s.handleSettingsColor)
	s.mux.HandleFunc("POST /api/settings/{id}/daltonism", s.handleSettingsDaltonism)
	s.mux.HandleFunc("POST /api/settings/{id}/reset", s.handleSettingsReset)
	s.mux.HandleFunc("POST /api/settings/{id}/save", s.handleSettingsSave)
	s.mux.HandleFunc("POST /api/settings/{id}/cancel", s.handleSettingsCancel)

	// Everything else is the embedded page.
	s.mux.Handle("/", s.staticFileServer())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handlePreview serves the last captured PNG from disk.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	// http.ServeFile answers 404 for a missing file.
	http.ServeFile(w, r, s.previewPath)
}

// staticFileServer serves internal/web/static. /calendar is the same page
// as /; the capture job points at it.
func (s *Server) staticFileServer() http.Handler {
	sub, err := fs.Sub(embeddedStatic, "static")
	if err != nil {
		appLog.Error("failed to initialize embedded static filesystem", err)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "static UI not available", http.StatusServiceUnavailable)
		})
	}

	fileServer := http.FileServer(http.FS(sub))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		// Unknown API paths must not fall through to HTML.
		if path == "/api" || strings.HasPrefix(path, "/api/") {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		if path == "/calendar" || path == "/calendar/" {
			http.ServeFileFS(w, r, sub, "index.html")
			return
		}
		fileServer.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
