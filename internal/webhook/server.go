// internal/webhook/server.go
package webhook

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/user/lector/internal/runner"
	"github.com/user/lector/internal/scheduler"
	"github.com/user/lector/internal/types"
)

// Server is a lightweight HTTP surface for inspecting and triggering
// reading sessions.
type Server struct {
	repo  types.SessionRepository
	run   *runner.Runner
	sched *scheduler.Scheduler
	mux   *http.ServeMux
}

// NewServer creates a webhook Server wired to the repository, runner, and scheduler.
func NewServer(repo types.SessionRepository, run *runner.Runner, sched *scheduler.Scheduler) *Server {
	s := &Server{
		repo:  repo,
		run:   run,
		sched: sched,
		mux:   http.NewServeMux(),
	}
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/status", s.handleStatus)
	s.mux.HandleFunc("GET /api/sessions", s.handleSessions)
	s.mux.HandleFunc("POST /api/sessions/", s.handleSessionAction)
	s.mux.HandleFunc("POST /api/pause", s.handlePause)
	s.mux.HandleFunc("POST /api/resume", s.handleResume)
	return s
}

// ServeHTTP delegates to the internal mux, implementing http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.run.Snapshot())
}

type sessionResponse struct {
	ID       string   `json:"id"`
	Kind     string   `json:"kind"`
	Name     string   `json:"name"`
	Rules    int      `json:"rules"`
	NextFire []string `json:"next_fire,omitempty"`
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessions, err := s.repo.List(ctx)
	if err != nil {
		slog.Error("list sessions failed", "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}

	result := make([]sessionResponse, 0, len(sessions))
	for _, sess := range sessions {
		rules, err := s.repo.RulesFor(ctx, sess.ID)
		if err != nil {
			slog.Warn("list rules failed", "session_id", sess.ID, "error", err)
		}
		resp := sessionResponse{
			ID:    string(sess.ID),
			Kind:  string(sess.Kind),
			Name:  sess.Name,
			Rules: len(rules),
		}
		for _, rule := range rules {
			if at, ok := s.sched.NextFireTime(rule.ID); ok {
				resp.NextFire = append(resp.NextFire, at.Format("2006-01-02T15:04:05Z07:00"))
			}
		}
		result = append(result, resp)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// handleSessionAction serves POST /api/sessions/{id}/start and
// POST /api/sessions/{id}/stop.
func (s *Server) handleSessionAction(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/sessions/")
	parts := strings.SplitN(path, "/", 2)
	if len(parts) < 2 {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return
	}
	id := types.SessionID(parts[0])

	switch parts[1] {
	case "start":
		if err := s.sched.StartNow(r.Context(), id); err != nil {
			slog.Error("start session failed", "session_id", id, "error", err)
			http.Error(w, `{"error":"session not found"}`, http.StatusNotFound)
			return
		}
	case "stop":
		s.run.Stop()
	default:
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.run.Pause()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	s.run.Resume()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
