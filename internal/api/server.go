// Package api serves the planner dashboard over HTTP.
// /api/v1/login is the single-password gate; every other planning
// endpoint requires the session cookie it issues. Each request runs one
// full synchronous recompute — there is no background work.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/skycargo/targetplanner/internal/config"
	"github.com/skycargo/targetplanner/internal/session"
	"github.com/skycargo/targetplanner/internal/workbook"
)

// Server wires the config, session store and workbook directory into
// the HTTP surface.
type Server struct {
	cfg       *config.Config
	sessions  *session.Store
	loginRate *RateLimiter
	startedAt time.Time
}

// NewServer builds a server around the given config and session store.
func NewServer(cfg *config.Config, sessions *session.Store) *Server {
	return &Server{
		cfg:       cfg,
		sessions:  sessions,
		loginRate: NewRateLimiter(10, 15*time.Minute),
		startedAt: time.Now(),
	}
}

// Handler returns the routed and middleware-wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Public endpoints.
	mux.HandleFunc("GET /api/v1/status", s.handleStatus)
	mux.HandleFunc("POST /api/v1/login", RateLimitMiddleware(s.loginRate, s.handleLogin))
	mux.HandleFunc("POST /api/v1/logout", s.handleLogout)

	// Planning endpoints (session cookie required).
	mux.HandleFunc("GET /api/v1/stations", s.withSession(s.handleStations))
	mux.HandleFunc("POST /api/v1/station", s.withSession(s.handleSelectStation))
	mux.HandleFunc("GET /api/v1/weeks", s.withSession(s.handleWeeks))
	mux.HandleFunc("POST /api/v1/week", s.withSession(s.handleSelectWeek))
	mux.HandleFunc("POST /api/v1/currency", s.withSession(s.handleCurrency))
	mux.HandleFunc("GET /api/v1/plan", s.withSession(s.handlePlan))
	mux.HandleFunc("PUT /api/v1/table", s.withSession(s.handleTableUpdate))

	// Dashboard actions.
	mux.HandleFunc("POST /api/v1/recommend", s.withSession(s.handleRecommend))
	mux.HandleFunc("POST /api/v1/adjust", s.withSession(s.handleAdjust))
	mux.HandleFunc("POST /api/v1/apply", s.withSession(s.handleApply))
	mux.HandleFunc("POST /api/v1/reset", s.withSession(s.handleReset))
	mux.HandleFunc("POST /api/v1/back", s.withSession(s.handleBack))
	mux.HandleFunc("GET /api/v1/export", s.withSession(s.handleExport))

	return corsMiddleware(mux)
}

// corsMiddleware adds CORS headers for allowed dashboard origins. Set
// CORS_ORIGINS to a comma-separated list of extra origins; localhost
// dev servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:4173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.Header().Set("Access-Control-Allow-Credentials", "true")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	stations, err := workbook.ScanStations(s.cfg.DataDir)
	if err != nil {
		slog.Error("station scan failed", "dir", s.cfg.DataDir, "error", err)
	}

	writeJSON(w, map[string]any{
		"name":           "Weekly Target Planner",
		"uptime_seconds": int(time.Since(s.startedAt).Seconds()),
		"stations":       len(stations),
		"sessions":       s.sessions.Len(),
	})
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}

// readJSON decodes a request body into dst, reporting 400 on bad input.
func readJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return false
	}
	return true
}
