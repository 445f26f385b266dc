package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/stepgraph/internal/dto"
	"github.com/aretw0/stepgraph/internal/logging"
	"github.com/aretw0/stepgraph/internal/presentation/graph"
	"github.com/aretw0/stepgraph/pkg/domain"
	"github.com/aretw0/stepgraph/pkg/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// GraphsURI is the resource listing the stored graph ids.
const GraphsURI = "stepgraph://graphs"

// Engine is the part of *stepgraph.Engine the MCP server needs.
type Engine interface {
	GetGraph(ctx context.Context, id string) (*domain.GraphDefinition, error)
	ListGraphs(ctx context.Context) ([]string, error)
	Run(ctx context.Context, graphID string, initial domain.State) (*domain.RunRecord, error)
	GetRun(ctx context.Context, runID string) (*domain.RunRecord, error)
}

// Server exposes an Engine as an MCP server.
type Server struct {
	engine    Engine
	sessions  *session.Manager
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithSessions adds the review_code tool.
func WithSessions(m *session.Manager) Option {
	return func(s *Server) {
		s.sessions = m
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP server named after version.
func NewServer(engine Engine, version string, opts ...Option) *Server {
	s := &Server{
		engine:    engine,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("stepgraph-mcp", version),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer exposes the underlying server, e.g. for in-process clients.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the MCP SSE transport on addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())
	httpServer := &http.Server{Addr: addr, Handler: mux}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("run_graph",
		mcp.WithDescription("Run a stored graph from its start node and return the run record."),
		mcp.WithString("graph_id", mcp.Required(), mcp.Description("ID of the graph to run")),
		mcp.WithString("state", mcp.Description("JSON object with the initial state (optional)")),
	), s.handleRunGraph)

	s.mcpServer.AddTool(mcp.NewTool("get_run",
		mcp.WithDescription("Get the final state and execution log of a previous run."),
		mcp.WithString("run_id", mcp.Required(), mcp.Description("ID returned by run_graph")),
	), s.handleGetRun)

	s.mcpServer.AddTool(mcp.NewTool("list_graphs",
		mcp.WithDescription("List the ids of the stored graphs."),
	), s.handleListGraphs)

	s.mcpServer.AddTool(mcp.NewTool("get_graph",
		mcp.WithDescription("Get a graph definition, as JSON or as a Mermaid flowchart."),
		mcp.WithString("graph_id", mcp.Required(), mcp.Description("ID of the graph")),
		mcp.WithString("format", mcp.Enum("json", "mermaid"), mcp.Description("Output format (default json)")),
	), s.handleGetGraph)

	if s.sessions != nil {
		s.mcpServer.AddTool(mcp.NewTool("review_code",
			mcp.WithDescription("Submit Go code to a review session. Iterations carry over between calls with the same session id."),
			mcp.WithString("session_id", mcp.Required(), mcp.Description("Review session id")),
			mcp.WithString("code", mcp.Required(), mcp.Description("Go source to review")),
			mcp.WithNumber("threshold", mcp.Description("Quality score needed for acceptance (default 0.8)")),
		), s.handleReviewCode)
	}
}

func (s *Server) handleRunGraph(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	graphID := request.GetString("graph_id", "")
	if graphID == "" {
		return mcp.NewToolResultError("graph_id is required"), nil
	}

	state := domain.State{}
	if raw := request.GetString("state", ""); raw != "" {
		if err := json.Unmarshal([]byte(raw), &state); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("state must be a JSON object: %v", err)), nil
		}
	}

	rec, err := s.engine.Run(ctx, graphID, state)
	if rec == nil {
		return mcp.NewToolResultError(fmt.Sprintf("run failed: %v", err)), nil
	}
	if err != nil {
		s.logger.Warn("MCP run failed", "run_id", rec.RunID, "err", err)
	}
	return jsonResult(rec)
}

func (s *Server) handleGetRun(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rec, err := s.engine.GetRun(ctx, request.GetString("run_id", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(rec)
}

func (s *Server) handleListGraphs(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ids, err := s.engine.ListGraphs(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(ids)
}

func (s *Server) handleGetGraph(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	g, err := s.engine.GetGraph(ctx, request.GetString("graph_id", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if request.GetString("format", "json") == "mermaid" {
		return mcp.NewToolResultText(graph.GenerateMermaid(g, nil)), nil
	}
	return jsonResult(dto.FromDomain(g))
}

func (s *Server) handleReviewCode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input := domain.State{"code": request.GetString("code", "")}
	if args := request.GetArguments(); args["threshold"] != nil {
		input["threshold"] = request.GetFloat("threshold", 0)
	}

	res, err := s.sessions.Submit(ctx, request.GetString("session_id", ""), input)
	if res == nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{
		"accepted":      res.Accepted,
		"message":       res.Message,
		"quality_score": res.Review.QualityScore,
		"iteration":     res.Review.Iteration,
		"issues":        res.Review.Issues,
		"suggestions":   res.Review.Suggestions,
		"run_id":        res.Run.RunID,
	})
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(GraphsURI, "Stored graphs",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		ids, err := s.engine.ListGraphs(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list graphs: %w", err)
		}
		data, err := json.Marshal(ids)
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      GraphsURI,
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	})
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Join(errors.New("failed to encode result"), err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
