package api

import (
	"encoding/json"
	"net/http"
	"os"

	"github.com/yangwenmai/studydo/internal/engine"
	"github.com/yangwenmai/studydo/internal/ingest"
	"github.com/yangwenmai/studydo/internal/store"
)

// maxRequestBody is the maximum allowed request body size (1 MB).
const maxRequestBody int64 = 1 << 20

// Server holds the HTTP handlers and dependencies.
type Server struct {
	store  store.Repository
	engine *engine.Engine
	intake *ingest.Intake
	mux    *http.ServeMux
}

// New creates a new API server.
func New(st store.Repository, eng *engine.Engine, intake *ingest.Intake) *Server {
	srv := &Server{store: st, engine: eng, intake: intake, mux: http.NewServeMux()}
	srv.routes()
	return srv
}

// Handler returns the root http.Handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return corsMiddleware(limitBody(jsonContent(s.mux)))
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /api/spaces", s.handleCreateSpace)
	s.mux.HandleFunc("GET /api/spaces", s.handleListSpaces)
	s.mux.HandleFunc("GET /api/spaces/{id}", s.handleGetSpace)
	s.mux.HandleFunc("PATCH /api/spaces/{id}/settings", s.handleUpdateSettings)
	s.mux.HandleFunc("POST /api/spaces/{id}/documents", s.handleAddDocument)
	s.mux.HandleFunc("POST /api/spaces/{id}/generate", s.handleGenerate)
	s.mux.HandleFunc("POST /api/spaces/{id}/reset", s.handleReset)
	s.mux.HandleFunc("POST /api/spaces/{id}/questions", s.handleAskQuestion)
	s.mux.HandleFunc("GET /api/spaces/{id}/questions", s.handleListQuestions)
	s.mux.HandleFunc("POST /api/questions/{id}/answer", s.handleAnswerQuestion)
	s.mux.HandleFunc("POST /api/blocks/{id}/retry", s.handleRetryBlock)
}

// ---------------------------------------------------------------------------
// Middleware
// ---------------------------------------------------------------------------

// corsMiddleware sets CORS headers. The allowed origin is configurable via
// the CORS_ORIGIN environment variable; defaults to "*" for development.
func corsMiddleware(next http.Handler) http.Handler {
	origin := os.Getenv("CORS_ORIGIN")
	if origin == "" {
		origin = "*"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// limitBody restricts the request body to maxRequestBody bytes.
func limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
		next.ServeHTTP(w, r)
	})
}

func jsonContent(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// ---------------------------------------------------------------------------
// Response helpers
// ---------------------------------------------------------------------------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
