// Package http provides the HTTP server infrastructure.
// Clean Architecture: Framework/driver layer - outermost circle.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/0xcro3dile/starbot/internal/domain/entities"
	"github.com/0xcro3dile/starbot/internal/domain/usecases"
	"github.com/0xcro3dile/starbot/internal/infrastructure/metrics"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Answerer answers chat requests. *usecases.ChatUseCase implements it.
type Answerer interface {
	Answer(ctx context.Context, req entities.ChatRequest) entities.ResponseObject
}

// Searcher returns ranked passages. *usecases.SearchUseCase implements it.
type Searcher interface {
	Search(ctx context.Context, query, scope string, limit int) ([]entities.SourceRef, error)
}

// FeedbackSubmitter records feedback. *usecases.FeedbackUseCase implements it.
type FeedbackSubmitter interface {
	Submit(ctx context.Context, fb entities.Feedback) error
}

// Reloader re-ingests documents and reports the new snapshot size.
type Reloader interface {
	Reload(ctx context.Context) (int, error)
}

// ReloadFunc adapts a function to Reloader.
type ReloadFunc func(ctx context.Context) (int, error)

// Reload calls f.
func (f ReloadFunc) Reload(ctx context.Context) (int, error) { return f(ctx) }

// ChunkCounter reports the size of the live snapshot.
type ChunkCounter interface {
	Len() int
}

// Deps bundles the collaborators of the server. Search, Feedback, Reload,
// Chunks and Metrics are optional; their routes answer 503 when unset.
type Deps struct {
	Chat     Answerer
	Search   Searcher
	Feedback FeedbackSubmitter
	Reload   Reloader
	Chunks   ChunkCounter
	Metrics  *metrics.Metrics
	Log      zerolog.Logger
}

// Options configures the listener.
type Options struct {
	Addr           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	AllowedOrigins []string
}

// Server is the HTTP server for the chat API and widget.
type Server struct {
	deps    Deps
	opts    Options
	log     zerolog.Logger
	handler http.Handler
}

// NewServer creates a new HTTP server.
func NewServer(deps Deps, opts Options) *Server {
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 15 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 60 * time.Second
	}
	s := &Server{
		deps: deps,
		opts: opts,
		log:  deps.Log.With().Str("component", "http").Logger(),
	}
	s.handler = s.routes()
	return s
}

// Handler returns the fully wrapped handler, mainly for tests.
func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// UI
	mux.HandleFunc("GET /{$}", s.handleIndex)

	// API
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("GET /api/search", s.handleSearch)
	mux.HandleFunc("POST /api/search", s.handleSearch)
	mux.HandleFunc("POST /api/feedback", s.handleFeedback)
	mux.HandleFunc("POST /api/reload", s.handleReload)
	mux.HandleFunc("GET /api/health", s.handleHealth)

	if s.deps.Metrics != nil {
		mux.Handle("GET /metrics", s.deps.Metrics.Handler())
	}

	return s.corsMiddleware(s.loggingMiddleware(mux))
}

// Start runs the HTTP server until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:         s.opts.Addr,
		Handler:      s.handler,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
	}

	s.log.Info().Str("addr", s.opts.Addr).Msg("starbot HTTP server starting")

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.log.Error().Err(err).Msg("shutdown failed")
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type historyTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Question string        `json:"question"`
	Message  string        `json:"message"` // legacy widget field
	History  []historyTurn `json:"history"`
	School   string        `json:"school"`
	TopK     int           `json:"top_k"`
}

// handleChat answers one question. Well-formed requests always get a 200
// with a ResponseObject; failures are reported inside it.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	question := req.Question
	if strings.TrimSpace(question) == "" {
		question = req.Message
	}
	history := make([]entities.ConversationTurn, 0, len(req.History))
	for _, h := range req.History {
		history = append(history, entities.ConversationTurn{Role: entities.ParseRole(h.Role), Content: h.Content})
	}

	resp := s.deps.Chat.Answer(r.Context(), entities.ChatRequest{
		Query:   question,
		Scope:   strings.TrimSpace(req.School),
		History: history,
	})
	writeJSON(w, http.StatusOK, resp)
}

type searchRequest struct {
	Query  string `json:"query"`
	School string `json:"school"`
	TopK   int    `json:"top_k"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if s.deps.Search == nil {
		writeError(w, http.StatusServiceUnavailable, "search is not configured")
		return
	}

	var req searchRequest
	if r.Method == http.MethodPost {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	} else {
		q := r.URL.Query()
		req.Query = q.Get("query")
		if req.Query == "" {
			req.Query = q.Get("q")
		}
		req.School = q.Get("school")
		req.TopK, _ = strconv.Atoi(q.Get("top_k"))
	}

	results, err := s.deps.Search.Search(r.Context(), req.Query, strings.TrimSpace(req.School), req.TopK)
	if err != nil {
		s.log.Error().Err(err).Msg("search failed")
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"query": req.Query, "results": results})
}

type feedbackRequest struct {
	Question string               `json:"question"`
	Answer   string               `json:"answer"`
	Feedback string               `json:"feedback"`
	Sources  []entities.SourceRef `json:"sources"`
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	if s.deps.Feedback == nil {
		writeError(w, http.StatusServiceUnavailable, "feedback is not configured")
		return
	}

	var req feedbackRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	fb := entities.Feedback{
		Question: req.Question,
		Answer:   req.Answer,
		Verdict:  entities.Verdict(req.Feedback),
		Sources:  req.Sources,
	}
	if err := s.deps.Feedback.Submit(r.Context(), fb); err != nil {
		if errors.Is(err, usecases.ErrInvalidFeedback) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.log.Error().Err(err).Msg("feedback failed")
		writeError(w, http.StatusInternalServerError, "feedback could not be recorded")
		return
	}
	if s.deps.Metrics != nil {
		s.deps.Metrics.RecordFeedback(fb.Verdict)
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success", "message": "Feedback recorded"})
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if s.deps.Reload == nil {
		writeError(w, http.StatusServiceUnavailable, "reload is not configured")
		return
	}

	n, err := s.deps.Reload.Reload(r.Context())
	if s.deps.Metrics != nil {
		s.deps.Metrics.SetChunksLoaded(n)
	}
	if err != nil {
		s.log.Warn().Err(err).Int("chunks", n).Msg("reload finished with errors")
		writeJSON(w, http.StatusOK, map[string]any{"status": "partial", "chunks": n, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "chunks": n})
}

// handleHealth returns server health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{"status": "ok"}
	if s.deps.Chunks != nil {
		body["chunks"] = s.deps.Chunks.Len()
	}
	if s.deps.Metrics != nil {
		body["uptime_seconds"] = int(time.Since(s.deps.Metrics.ServerStartTime).Seconds())
	}
	writeJSON(w, http.StatusOK, body)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"status": "error", "message": msg})
}
