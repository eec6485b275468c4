package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/aethermind/synapse/internal/ledger"
	"github.com/aethermind/synapse/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the synapse HTTP API server. It is a thin adapter: requests
// are assumed to be authenticated by the surrounding platform before they
// reach this surface.
type Server struct {
	db      *store.DB
	engine  *ledger.Engine
	router  chi.Router
	version string
	started time.Time

	// assumeEligible supplies the storage-eligibility attestation for
	// requests that omit it. Development convenience only.
	assumeEligible bool
}

// New creates a new Server with the given store, engine, and version string.
func New(db *store.DB, engine *ledger.Engine, version string, assumeEligible bool) *Server {
	s := &Server{
		db:             db,
		engine:         engine,
		version:        version,
		started:        time.Now(),
		assumeEligible: assumeEligible,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/stats", s.handleStats)

		r.Post("/pathways", s.handleCreatePathway)
		r.Get("/pathways", s.handleListPathways)
		r.Get("/pathways/{key}", s.handleGetPathway)
		r.Post("/pathways/{key}/reinforce", s.handleReinforce)
		r.Get("/pathways/{key}/tokens", s.handlePathwayTokens)

		r.Post("/tokens", s.handleIssueToken)
		r.Get("/tokens", s.handleListTokens)
		r.Get("/tokens/{mint}", s.handleGetToken)

		r.Post("/instructions", s.handleInstruction)
	})

	s.router = r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbOK := true
	if err := s.db.Ping(); err != nil {
		dbOK = false
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.started).Seconds(),
		"db":      dbOK,
		"db_path": s.db.Path,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	pathways, err := s.db.CountPathways()
	if err != nil {
		http.Error(w, `{"error":"count pathways failed"}`, http.StatusInternalServerError)
		return
	}
	tokens, err := s.db.CountTokens()
	if err != nil {
		http.Error(w, `{"error":"count tokens failed"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"pathways": pathways,
		"tokens":   tokens,
	})
}
