package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/skycargo/targetplanner/internal/session"
)

const sessionCookieName = "planner_session"

// sessionHandler is a handler with the caller's session resolved.
type sessionHandler func(w http.ResponseWriter, r *http.Request, sess *session.Session)

// withSession resolves the session cookie, clearing stale cookies and
// rejecting unauthenticated requests.
func (s *Server) withSession(next sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil || cookie.Value == "" {
			http.Error(w, "login required", http.StatusUnauthorized)
			return
		}
		sess, ok := s.sessions.Get(cookie.Value)
		if !ok {
			clearSessionCookie(w)
			http.Error(w, "session expired", http.StatusUnauthorized)
			return
		}
		next(w, r, sess)
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if !readJSON(w, r, &req) {
		return
	}

	if req.Password != s.cfg.Password {
		slog.Warn("login rejected", "ip", clientIP(r))
		http.Error(w, "incorrect password", http.StatusUnauthorized)
		return
	}

	s.loginRate.Forgive(clientIP(r))
	sess := s.sessions.Create()
	setSessionCookie(w, sess.Key, sess.ExpiresAt)
	slog.Info("login", "session", sess.Key)
	writeJSON(w, map[string]any{"ok": true})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		s.sessions.Delete(cookie.Value)
	}
	clearSessionCookie(w)
	writeJSON(w, map[string]any{"ok": true})
}

func setSessionCookie(w http.ResponseWriter, key string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    key,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  expiresAt,
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Unix(0, 0),
	})
}
