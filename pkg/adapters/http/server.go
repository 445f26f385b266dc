package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/aretw0/stepgraph/internal/dto"
	"github.com/aretw0/stepgraph/internal/logging"
	"github.com/aretw0/stepgraph/internal/presentation/graph"
	"github.com/aretw0/stepgraph/pkg/domain"
	"github.com/aretw0/stepgraph/pkg/registry"
	"github.com/aretw0/stepgraph/pkg/session"
	"github.com/aretw0/stepgraph/pkg/workflows/codereview"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// maxBodyBytes caps request bodies; submitted code is the largest payload.
const maxBodyBytes = 1 << 20

// Engine is the part of *stepgraph.Engine the API needs.
type Engine interface {
	Registry() *registry.Registry
	CreateGraph(ctx context.Context, g *domain.GraphDefinition) error
	GetGraph(ctx context.Context, id string) (*domain.GraphDefinition, error)
	ListGraphs(ctx context.Context) ([]string, error)
	Run(ctx context.Context, graphID string, initial domain.State) (*domain.RunRecord, error)
	GetRun(ctx context.Context, runID string) (*domain.RunRecord, error)
}

// Server serves the graph API over an Engine.
type Server struct {
	Engine   Engine
	Sessions *session.Manager
	Streams  *StreamManager
	Metrics  http.Handler
	logger   *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithSessions enables the review session endpoints.
func WithSessions(m *session.Manager) Option {
	return func(s *Server) {
		s.Sessions = m
	}
}

// WithStreams enables the /events stream. Its Hooks must be passed to the
// engine for events to flow.
func WithStreams(sm *StreamManager) Option {
	return func(s *Server) {
		s.Streams = sm
	}
}

// WithMetrics mounts a Prometheus handler under /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.Metrics = h
	}
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewHandler creates the HTTP handler for engine.
func NewHandler(engine Engine, opts ...Option) http.Handler {
	s := &Server{Engine: engine, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/health", s.GetHealth)
	r.Get("/tools", s.ListTools)

	r.Route("/graph", func(r chi.Router) {
		r.Get("/", s.ListGraphs)
		r.Post("/create", s.CreateGraph)
		r.Post("/run", s.RunGraph)
		r.Get("/state/{run_id}", s.GetRunState)
		r.Get("/state/{run_id}/mermaid", s.GetRunMermaid)
		r.Get("/{graph_id}", s.GetGraph)
		r.Get("/{graph_id}/mermaid", s.GetGraphMermaid)
	})

	if s.Sessions != nil {
		r.Get("/sessions/{session_id}", s.GetSession)
		r.Post("/sessions/{session_id}/review", s.SubmitReview)
		r.Delete("/sessions/{session_id}", s.ResetSession)
	}
	if s.Streams != nil {
		r.Get("/events", s.SubscribeEvents)
	}
	if s.Metrics != nil {
		r.Handle("/metrics", s.Metrics)
	}
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListTools handles GET /tools.
func (s *Server) ListTools(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.Engine.Registry().List())
}

// ListGraphs handles GET /graph.
func (s *Server) ListGraphs(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Engine.ListGraphs(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string][]string{"graphs": ids})
}

// CreateGraph handles POST /graph/create. The body is a graph document in the
// flat node format; an existing graph with the same id is replaced.
func (s *Server) CreateGraph(w http.ResponseWriter, r *http.Request) {
	var raw map[string]any
	if !s.decodeBody(w, r, &raw) {
		return
	}

	g, err := dto.DecodeGraph(raw)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.Engine.CreateGraph(r.Context(), g); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"graph_id": g.ID})
}

// RunRequest is the body of POST /graph/run.
type RunRequest struct {
	GraphID string       `json:"graph_id"`
	State   domain.State `json:"state"`
}

// RunGraph handles POST /graph/run. A run that fails inside the graph still
// answers 200 with a failed record.
func (s *Server) RunGraph(w http.ResponseWriter, r *http.Request) {
	var body RunRequest
	if !s.decodeBody(w, r, &body) {
		return
	}
	if body.GraphID == "" {
		s.writeMessage(w, http.StatusBadRequest, "graph_id is required")
		return
	}

	rec, err := s.Engine.Run(r.Context(), body.GraphID, body.State)
	if rec == nil {
		s.writeError(w, r, err)
		return
	}
	if err != nil {
		s.logger.Warn("run failed", "run_id", rec.RunID, "graph_id", rec.GraphID, "err", err)
	}
	s.writeJSON(w, http.StatusOK, rec)
}

// GetRunState handles GET /graph/state/{run_id}.
func (s *Server) GetRunState(w http.ResponseWriter, r *http.Request) {
	rec, err := s.Engine.GetRun(r.Context(), chi.URLParam(r, "run_id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

// GetRunMermaid handles GET /graph/state/{run_id}/mermaid: the run's graph
// with visited and current nodes highlighted.
func (s *Server) GetRunMermaid(w http.ResponseWriter, r *http.Request) {
	rec, err := s.Engine.GetRun(r.Context(), chi.URLParam(r, "run_id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	g, err := s.Engine.GetGraph(r.Context(), rec.GraphID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeText(w, graph.GenerateMermaid(g, graph.OverlayFromRun(rec)))
}

// GetGraph handles GET /graph/{graph_id}.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	g, err := s.Engine.GetGraph(r.Context(), chi.URLParam(r, "graph_id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, dto.FromDomain(g))
}

// GetGraphMermaid handles GET /graph/{graph_id}/mermaid.
func (s *Server) GetGraphMermaid(w http.ResponseWriter, r *http.Request) {
	g, err := s.Engine.GetGraph(r.Context(), chi.URLParam(r, "graph_id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeText(w, graph.GenerateMermaid(g, nil))
}

// ReviewResponse is the answer to a review submission.
type ReviewResponse struct {
	Accepted     bool               `json:"accepted"`
	Message      string             `json:"message"`
	QualityScore float64            `json:"quality_score"`
	Threshold    float64            `json:"threshold"`
	Iteration    int                `json:"iteration"`
	Issues       []codereview.Issue `json:"issues"`
	Suggestions  []string           `json:"suggestions"`
	Complexity   map[string]int     `json:"complexity"`
	Functions    []string           `json:"functions"`
	Node         string             `json:"node"`
	RunID        string             `json:"run_id"`
	Status       domain.RunStatus   `json:"status"`
	ErrorKind    domain.ErrorKind   `json:"error_kind,omitempty"`
	Error        string             `json:"error,omitempty"`
}

// reviewResponse flattens a submission result. Node is "finished" once the
// run completed, otherwise the node it stopped at.
func reviewResponse(res *session.Result) ReviewResponse {
	review := res.Review
	resp := ReviewResponse{
		Accepted:     res.Accepted,
		Message:      res.Message,
		QualityScore: review.QualityScore,
		Threshold:    review.Threshold,
		Iteration:    review.Iteration,
		Issues:       review.Issues,
		Suggestions:  review.Suggestions,
		Complexity:   review.Complexity,
		Functions:    review.Functions,
		Node:         "finished",
		RunID:        res.Run.RunID,
		Status:       res.Run.Status,
		ErrorKind:    res.Run.ErrorKind,
		Error:        res.Run.Error,
	}
	if !res.Run.Finished {
		resp.Node = res.Run.Current()
	}
	return resp
}

// SubmitReview handles POST /sessions/{session_id}/review with a body of
// {"code": "...", "threshold": 0.8}.
func (s *Server) SubmitReview(w http.ResponseWriter, r *http.Request) {
	var input domain.State
	if !s.decodeBody(w, r, &input) {
		return
	}

	res, err := s.Sessions.Submit(r.Context(), chi.URLParam(r, "session_id"), input)
	if res == nil {
		s.writeError(w, r, err)
		return
	}

	resp := reviewResponse(res)
	if err != nil {
		s.logger.Warn("review run failed", "session_id", res.Session.ID, "run_id", res.Run.RunID, "err", err)
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// GetSession handles GET /sessions/{session_id}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.Sessions.Get(r.Context(), chi.URLParam(r, "session_id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sess)
}

// ResetSession handles DELETE /sessions/{session_id}.
func (s *Server) ResetSession(w http.ResponseWriter, r *http.Request) {
	if err := s.Sessions.Reset(r.Context(), chi.URLParam(r, "session_id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// -- Helpers --

type errorResponse struct {
	Error  string                   `json:"error"`
	Issues []domain.ValidationIssue `json:"issues,omitempty"`
}

// statusOf maps domain errors onto HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrGraphNotFound),
		errors.Is(err, domain.ErrRunNotFound),
		errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrGraphInvalid):
		return http.StatusUnprocessableEntity
	case errors.Is(err, session.ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	resp := errorResponse{Error: err.Error()}

	var invalid *domain.GraphInvalidError
	if errors.As(err, &invalid) {
		resp.Issues = invalid.Issues
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	}
	s.writeJSON(w, status, resp)
}

func (s *Server) writeMessage(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}

func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		s.writeMessage(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		s.logger.Warn("invalid request body", "path", r.URL.Path, "err", err)
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}

func (s *Server) writeText(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, body)
}
