package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/stepgraph"
	"github.com/aretw0/stepgraph/internal/xjson"
	"github.com/aretw0/stepgraph/pkg/domain"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// ToolsURI is the resource listing registered tool names.
const ToolsURI = "stepgraph://tools"

// Engine defines the operations exposed over MCP.
type Engine interface {
	CreateGraph(ctx context.Context, def domain.GraphDefinition) (string, error)
	Execute(ctx context.Context, graphID string, initial domain.State) (*domain.Run, error)
	GetRun(ctx context.Context, runID string) (*domain.Run, error)
}

// ToolLister reports registered tool names.
type ToolLister interface {
	Names() []string
}

// CreateGraphArgs are the arguments of create_graph.
type CreateGraphArgs struct {
	Nodes       []domain.NodeSpec `json:"nodes"`
	Edges       []domain.Edge     `json:"edges"`
	StartNodeID string            `json:"start_node_id"`
}

// RunGraphArgs are the arguments of run_graph.
type RunGraphArgs struct {
	GraphID      string       `json:"graph_id"`
	InitialState domain.State `json:"initial_state"`
}

// GetRunArgs are the arguments of get_run.
type GetRunArgs struct {
	RunID string `json:"run_id"`
}

// GraphCreated is the result of create_graph.
type GraphCreated struct {
	GraphID string `json:"graph_id" jsonschema_description:"ID of the stored graph"`
}

// RunResponse aligns with the HTTP run result.
type RunResponse struct {
	RunID      string            `json:"run_id"`
	GraphID    string            `json:"graph_id"`
	Status     domain.RunStatus  `json:"status" jsonschema_description:"completed or failed once the run returns"`
	FinalState domain.State      `json:"final_state"`
	LastError  string            `json:"last_error,omitempty"`
	Log        []domain.LogEntry `json:"log" jsonschema_description:"Visited nodes with the state each one received"`
}

// ToolList is the result of list_tools.
type ToolList struct {
	Tools []string `json:"tools"`
}

// Server wraps a stepgraph Engine and exposes it as an MCP Server.
type Server struct {
	engine    Engine
	tools     ToolLister
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP Server instance.
func NewServer(engine Engine, tools ToolLister) *Server {
	s := &Server{
		engine: engine,
		tools:  tools,
		mcpServer: server.NewMCPServer("stepgraph-mcp", strings.TrimSpace(stepgraph.Version),
			server.WithToolCapabilities(false),
			server.WithResourceCapabilities(false, false),
		),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) registerTools() {
	createTool := mcp.NewTool("create_graph",
		mcp.WithDescription("Store a graph of tool-backed nodes and return its ID."),
		mcp.WithArray("nodes", mcp.Required(),
			mcp.Description("Nodes as {id, tool_name} objects"),
			mcp.Items(map[string]any{"type": "object"}),
		),
		mcp.WithArray("edges",
			mcp.Description("Edges as {source, target, condition?} objects, in priority order"),
			mcp.Items(map[string]any{"type": "object"}),
		),
		mcp.WithString("start_node_id", mcp.Required(), mcp.Description("Entry node")),
		mcp.WithOutputSchema[GraphCreated](),
	)
	s.mcpServer.AddTool(createTool, mcp.NewStructuredToolHandler(s.handleCreateGraph))

	runTool := mcp.NewTool("run_graph",
		mcp.WithDescription("Execute a stored graph to completion and return the final run."),
		mcp.WithString("graph_id", mcp.Required(), mcp.Description("Graph to execute")),
		mcp.WithObject("initial_state", mcp.Description("Initial key-value state")),
		mcp.WithOutputSchema[RunResponse](),
	)
	s.mcpServer.AddTool(runTool, mcp.NewStructuredToolHandler(s.handleRunGraph))

	getRunTool := mcp.NewTool("get_run",
		mcp.WithDescription("Fetch a run by ID."),
		mcp.WithString("run_id", mcp.Required(), mcp.Description("Run to fetch")),
		mcp.WithOutputSchema[RunResponse](),
	)
	s.mcpServer.AddTool(getRunTool, mcp.NewStructuredToolHandler(s.handleGetRun))

	listTool := mcp.NewTool("list_tools",
		mcp.WithDescription("List the tool names nodes can reference."),
		mcp.WithOutputSchema[ToolList](),
	)
	s.mcpServer.AddTool(listTool, mcp.NewStructuredToolHandler(s.handleListTools))
}

// Handler methods for structured tools

func (s *Server) handleCreateGraph(ctx context.Context, _ mcp.CallToolRequest, args CreateGraphArgs) (GraphCreated, error) {
	if args.StartNodeID == "" || len(args.Nodes) == 0 {
		return GraphCreated{}, errors.New("nodes and start_node_id are required")
	}
	id, err := s.engine.CreateGraph(ctx, domain.GraphDefinition{
		Nodes:       args.Nodes,
		Edges:       args.Edges,
		StartNodeID: args.StartNodeID,
	})
	if err != nil {
		return GraphCreated{}, fmt.Errorf("create graph failed: %w", err)
	}
	return GraphCreated{GraphID: id}, nil
}

func (s *Server) handleRunGraph(ctx context.Context, _ mcp.CallToolRequest, args RunGraphArgs) (RunResponse, error) {
	if args.GraphID == "" {
		return RunResponse{}, errors.New("graph_id is required")
	}
	run, err := s.engine.Execute(ctx, args.GraphID, args.InitialState)
	if err != nil {
		return RunResponse{}, fmt.Errorf("run failed: %w", err)
	}
	return runResponse(run), nil
}

func (s *Server) handleGetRun(ctx context.Context, _ mcp.CallToolRequest, args GetRunArgs) (RunResponse, error) {
	if args.RunID == "" {
		return RunResponse{}, errors.New("run_id is required")
	}
	run, err := s.engine.GetRun(ctx, args.RunID)
	if err != nil {
		return RunResponse{}, err
	}
	return runResponse(run), nil
}

func (s *Server) handleListTools(_ context.Context, _ mcp.CallToolRequest, _ struct{}) (ToolList, error) {
	return ToolList{Tools: s.toolNames()}, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(ToolsURI, "Registered Tools",
		mcp.WithResourceDescription("Tool names available to graph nodes"),
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		jsonBytes, err := xjson.Marshal(ToolList{Tools: s.toolNames()})
		if err != nil {
			return nil, fmt.Errorf("failed to encode tools: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      ToolsURI,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}

func (s *Server) toolNames() []string {
	if s.tools == nil {
		return []string{}
	}
	names := s.tools.Names()
	if names == nil {
		return []string{}
	}
	return names
}

func runResponse(run *domain.Run) RunResponse {
	resp := RunResponse{
		RunID:      run.ID,
		GraphID:    run.GraphID,
		Status:     run.Status,
		FinalState: run.State,
		LastError:  run.LastError,
		Log:        run.Log,
	}
	if resp.FinalState == nil {
		resp.FinalState = domain.State{}
	}
	if resp.Log == nil {
		resp.Log = []domain.LogEntry{}
	}
	return resp
}
