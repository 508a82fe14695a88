package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/AltioraPro/altiora-bot/internal/metrics"
	"github.com/AltioraPro/altiora-bot/internal/server"
)

// RankSyncer is the slice of the bot the webhook endpoints need
type RankSyncer interface {
	SyncRank(ctx context.Context, discordID, rank string) error
	KnownRank(rank string) bool
}

// HealthReporter provides the bot's health snapshot
type HealthReporter interface {
	Health(ctx context.Context) *server.HealthStatus
}

// Server exposes the HTTP control surface: health, sync webhooks, the
// OAuth callback proxy, and Prometheus metrics.
type Server struct {
	syncer     RankSyncer
	health     HealthReporter
	gatherer   prometheus.Gatherer
	appBaseURL string
	port       int

	server *http.Server
}

// NewServer creates the HTTP API server
func NewServer(syncer RankSyncer, health HealthReporter, gatherer prometheus.Gatherer, appBaseURL string, port int) *Server {
	return &Server{
		syncer:     syncer,
		health:     health,
		gatherer:   gatherer,
		appBaseURL: appBaseURL,
		port:       port,
	}
}

// Routes builds the router
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Post("/webhook/sync-rank", s.handleSyncRank)
	r.Post("/webhook/sync-multiple", s.handleSyncMultiple)
	r.Get("/api/auth/discord/callback", s.handleAuthCallback)
	if s.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(s.gatherer))
	}
	return r
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	fmt.Printf("[API] Starting HTTP server on port %d\n", s.port)
	err := s.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop stops the HTTP server
func (s *Server) Stop() error {
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(ctx)
	}
	return nil
}

// requestID tags every response with a request identifier
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Request-ID", uuid.NewString())
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.health.Health(r.Context()))
}

// syncRankRequest is the sync-rank webhook body
type syncRankRequest struct {
	DiscordID string `json:"discordId"`
	Rank      string `json:"rank"`
}

func (s *Server) handleSyncRank(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req syncRankRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.DiscordID == "" || req.Rank == "" {
		s.writeError(w, http.StatusBadRequest, "discordId and rank are required")
		return
	}
	if !s.syncer.KnownRank(req.Rank) {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("rank %q is not configured", req.Rank))
		return
	}

	if err := s.syncer.SyncRank(r.Context(), req.DiscordID, req.Rank); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"message":   fmt.Sprintf("rank %s applied to %s", req.Rank, req.DiscordID),
		"duration":  time.Since(start).String(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// syncResult is one member's outcome in a bulk webhook sync
type syncResult struct {
	DiscordID string `json:"discordId"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
}

func (s *Server) handleSyncMultiple(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Users []syncRankRequest `json:"users"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.Users) == 0 {
		s.writeError(w, http.StatusBadRequest, "users list is empty")
		return
	}

	results := make([]syncResult, 0, len(req.Users))
	for _, user := range req.Users {
		result := syncResult{DiscordID: user.DiscordID}
		switch {
		case user.DiscordID == "" || user.Rank == "":
			result.Error = "discordId and rank are required"
		case !s.syncer.KnownRank(user.Rank):
			result.Error = fmt.Sprintf("rank %q is not configured", user.Rank)
		default:
			if err := s.syncer.SyncRank(r.Context(), user.DiscordID, user.Rank); err != nil {
				result.Error = err.Error()
			} else {
				result.Success = true
			}
		}
		results = append(results, result)
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"results": results,
	})
}

// handleAuthCallback forwards the OAuth callback to the main application
// with the query string intact.
func (s *Server) handleAuthCallback(w http.ResponseWriter, r *http.Request) {
	target := s.appBaseURL + "/api/auth/discord/callback"
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{
		"error":     msg,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
