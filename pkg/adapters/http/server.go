package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/stepgraph"
	"github.com/aretw0/stepgraph/internal/presentation/graph"
	"github.com/aretw0/stepgraph/internal/xjson"
	"github.com/aretw0/stepgraph/pkg/domain"
	"github.com/aretw0/stepgraph/pkg/tools/summarize"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 4 << 20

// Engine defines the operations the HTTP adapter exposes.
type Engine interface {
	CreateGraph(ctx context.Context, def domain.GraphDefinition) (string, error)
	Execute(ctx context.Context, graphID string, initial domain.State) (*domain.Run, error)
	GetRun(ctx context.Context, runID string) (*domain.Run, error)
	GetGraph(ctx context.Context, graphID string) (*domain.Graph, error)
	ListGraphs(ctx context.Context) ([]string, error)
	ListRuns(ctx context.Context) ([]string, error)
}

// ToolLister reports registered tool names.
type ToolLister interface {
	Names() []string
}

// Server serves the graph and run endpoints for an Engine.
type Server struct {
	Engine   Engine
	Tools    ToolLister
	Logger   *slog.Logger
	gatherer prometheus.Gatherer
}

// Option configures the handler.
type Option func(*Server)

// WithTools exposes tool names on GET /tools.
func WithTools(tools ToolLister) Option {
	return func(s *Server) {
		s.Tools = tools
	}
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.Logger = logger
	}
}

// WithMetrics serves g on GET /metrics.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// NewHandler creates a new HTTP handler for the engine.
func NewHandler(engine Engine, opts ...Option) http.Handler {
	s := &Server{Engine: engine}
	for _, opt := range opts {
		opt(s)
	}
	if s.Logger == nil {
		s.Logger = slog.New(slog.DiscardHandler)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Post("/graph/create", s.CreateGraph)
	r.Post("/graph/create/sample/summarization", s.CreateSampleGraph)
	r.Post("/graph/run", s.RunGraph)
	r.Get("/graph/state/{run_id}", s.GetRunState)
	r.Get("/graph/runs/{run_id}/log", s.GetRunLog)
	r.Get("/graph/{graph_id}", s.GetGraph)
	r.Get("/graph/{graph_id}/mermaid", s.GetGraphMermaid)
	r.Get("/graphs", s.ListGraphs)
	r.Get("/runs", s.ListRuns)
	r.Get("/tools", s.ListTools)
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(rawSpec)
	})
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(swaggerHTML))
	})
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.Logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

const swaggerHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>stepgraph API Documentation</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui.css" />
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui-bundle.js" crossorigin></script>
<script>
    window.onload = () => {
    window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui',
    });
    };
</script>
</body>
</html>
`

// CreateGraph handles the POST /graph/create request.
func (s *Server) CreateGraph(w http.ResponseWriter, r *http.Request) {
	var def domain.GraphDefinition
	if !s.decode(w, r, &def) {
		return
	}
	if def.StartNodeID == "" || len(def.Nodes) == 0 {
		s.writeError(w, http.StatusBadRequest, errors.New("nodes and start_node_id are required"))
		return
	}
	s.storeGraph(w, r, def)
}

// CreateSampleGraph handles the POST /graph/create/sample/summarization request.
func (s *Server) CreateSampleGraph(w http.ResponseWriter, r *http.Request) {
	s.storeGraph(w, r, summarize.SampleGraph())
}

func (s *Server) storeGraph(w http.ResponseWriter, r *http.Request, def domain.GraphDefinition) {
	id, err := s.Engine.CreateGraph(r.Context(), def)
	if err != nil {
		s.fail(w, "CreateGraph", err)
		return
	}
	s.writeJSON(w, http.StatusCreated, GraphCreated{GraphID: id})
}

// RunGraph handles the POST /graph/run request.
// A run that fails inside a node is still a 200: the failure is part of the result.
func (s *Server) RunGraph(w http.ResponseWriter, r *http.Request) {
	var body RunRequest
	if !s.decode(w, r, &body) {
		return
	}
	if body.GraphID == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("graph_id is required"))
		return
	}

	run, err := s.Engine.Execute(r.Context(), body.GraphID, body.InitialState)
	if err != nil {
		s.fail(w, "RunGraph", err)
		return
	}
	s.writeJSON(w, http.StatusOK, runResultFromDomain(run))
}

// GetRunState handles the GET /graph/state/{run_id} request.
func (s *Server) GetRunState(w http.ResponseWriter, r *http.Request) {
	run, err := s.Engine.GetRun(r.Context(), chi.URLParam(r, "run_id"))
	if err != nil {
		s.fail(w, "GetRunState", err)
		return
	}
	s.writeJSON(w, http.StatusOK, runStateFromDomain(run))
}

// GetRunLog handles the GET /graph/runs/{run_id}/log request.
func (s *Server) GetRunLog(w http.ResponseWriter, r *http.Request) {
	run, err := s.Engine.GetRun(r.Context(), chi.URLParam(r, "run_id"))
	if err != nil {
		s.fail(w, "GetRunLog", err)
		return
	}
	s.writeJSON(w, http.StatusOK, nonNilLog(run.Log))
}

// GetGraph handles the GET /graph/{graph_id} request.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	g, err := s.Engine.GetGraph(r.Context(), chi.URLParam(r, "graph_id"))
	if err != nil {
		s.fail(w, "GetGraph", err)
		return
	}
	s.writeJSON(w, http.StatusOK, graphFromDomain(g))
}

// GetGraphMermaid handles the GET /graph/{graph_id}/mermaid request.
func (s *Server) GetGraphMermaid(w http.ResponseWriter, r *http.Request) {
	g, err := s.Engine.GetGraph(r.Context(), chi.URLParam(r, "graph_id"))
	if err != nil {
		s.fail(w, "GetGraphMermaid", err)
		return
	}

	var overlay *graph.GraphOverlay
	if runID := r.URL.Query().Get("run_id"); runID != "" {
		run, err := s.Engine.GetRun(r.Context(), runID)
		if err != nil {
			s.fail(w, "GetGraphMermaid", err)
			return
		}
		if run.GraphID != g.ID {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("run '%s' belongs to graph '%s'", run.ID, run.GraphID))
			return
		}
		overlay = graph.OverlayFromRun(run)
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, graph.GenerateMermaid(g, overlay))
}

// ListGraphs handles the GET /graphs request.
func (s *Server) ListGraphs(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Engine.ListGraphs(r.Context())
	if err != nil {
		s.fail(w, "ListGraphs", err)
		return
	}
	s.writeJSON(w, http.StatusOK, IDList{IDs: nonNilIDs(ids)})
}

// ListRuns handles the GET /runs request.
func (s *Server) ListRuns(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Engine.ListRuns(r.Context())
	if err != nil {
		s.fail(w, "ListRuns", err)
		return
	}
	s.writeJSON(w, http.StatusOK, IDList{IDs: nonNilIDs(ids)})
}

// ListTools handles the GET /tools request.
func (s *Server) ListTools(w http.ResponseWriter, r *http.Request) {
	var names []string
	if s.Tools != nil {
		names = s.Tools.Names()
	}
	s.writeJSON(w, http.StatusOK, map[string][]string{"tools": nonNilIDs(names)})
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if swagger, err := GetSwagger(); err == nil && swagger.Info != nil {
		apiVersion = swagger.Info.Version
	}

	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":         "stepgraph-http",
		"version":     strings.TrimSpace(stepgraph.Version),
		"api_version": apiVersion,
	})
}

// -- Helpers --

// decode reads a JSON body into v, answering 400 on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	// Unknown fields are ignored.
	dec := xjson.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		s.Logger.Warn("invalid request body", "path", r.URL.Path, "error", err)
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return false
	}
	return true
}

// fail maps engine errors to status codes.
func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrGraphNotFound), errors.Is(err, domain.ErrRunNotFound):
		status = http.StatusNotFound
	default:
		s.Logger.Error(op+" failed", "error", err)
	}
	s.writeError(w, status, err)
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := xjson.NewEncoder(w).Encode(v); err != nil {
		s.Logger.Error("response encode failed", "error", err)
	}
}

func nonNilIDs(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
