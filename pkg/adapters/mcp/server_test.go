package mcp

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aretw0/stepgraph"
	"github.com/aretw0/stepgraph/internal/xjson"
	"github.com/aretw0/stepgraph/pkg/domain"
	"github.com/aretw0/stepgraph/pkg/registry"
	"github.com/aretw0/stepgraph/pkg/tools/summarize"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) *Server {
	t.Helper()
	reg := registry.NewRegistry()
	summarize.Register(reg)
	reg.Register("fail", func(context.Context, domain.State) (domain.State, error) {
		return nil, errors.New("boom")
	})
	return NewServer(stepgraph.New(stepgraph.WithRegistry(reg)), reg)
}

func TestCreateRunAndGet(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()
	sample := summarize.SampleGraph()

	created, err := s.handleCreateGraph(ctx, mcp.CallToolRequest{}, CreateGraphArgs{
		Nodes:       sample.Nodes,
		Edges:       sample.Edges,
		StartNodeID: sample.StartNodeID,
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.GraphID)

	run, err := s.handleRunGraph(ctx, mcp.CallToolRequest{}, RunGraphArgs{
		GraphID:      created.GraphID,
		InitialState: domain.State{"text": strings.Repeat("abc ", 100)},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RunCompleted, run.Status)
	assert.Len(t, run.Log, 4)

	got, err := s.handleGetRun(ctx, mcp.CallToolRequest{}, GetRunArgs{RunID: run.RunID})
	require.NoError(t, err)
	assert.Equal(t, run.FinalState["summary"], got.FinalState["summary"])
}

func TestHandlerErrors(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()

	_, err := s.handleCreateGraph(ctx, mcp.CallToolRequest{}, CreateGraphArgs{})
	assert.Error(t, err)

	_, err = s.handleRunGraph(ctx, mcp.CallToolRequest{}, RunGraphArgs{GraphID: "nope"})
	assert.ErrorIs(t, err, domain.ErrGraphNotFound)

	_, err = s.handleGetRun(ctx, mcp.CallToolRequest{}, GetRunArgs{RunID: "nope"})
	assert.ErrorIs(t, err, domain.ErrRunNotFound)
}

func TestRunGraph_FailedRunIsAResult(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()
	created, err := s.handleCreateGraph(ctx, mcp.CallToolRequest{}, CreateGraphArgs{
		Nodes:       []domain.NodeSpec{{ID: "a", ToolName: "fail"}},
		StartNodeID: "a",
	})
	require.NoError(t, err)

	run, err := s.handleRunGraph(ctx, mcp.CallToolRequest{}, RunGraphArgs{GraphID: created.GraphID})
	require.NoError(t, err)
	assert.Equal(t, domain.RunFailed, run.Status)
	assert.Contains(t, run.LastError, "boom")
}

func TestListTools(t *testing.T) {
	s := newServer(t)
	list, err := s.handleListTools(context.Background(), mcp.CallToolRequest{}, struct{}{})
	require.NoError(t, err)
	assert.Contains(t, list.Tools, summarize.RefineSummary)
	assert.Contains(t, list.Tools, "fail")

	empty := NewServer(stepgraph.New(), nil)
	list, err = empty.handleListTools(context.Background(), mcp.CallToolRequest{}, struct{}{})
	require.NoError(t, err)
	assert.Empty(t, list.Tools)
}

// rpc sends one JSON-RPC message through the mcp-go server and decodes the reply.
func rpc(t *testing.T, s *Server, msg string) map[string]any {
	t.Helper()
	resp := s.MCPServer().HandleMessage(context.Background(), []byte(msg))
	data, err := xjson.Marshal(resp)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, xjson.Unmarshal(data, &out))
	return out
}

func TestProtocol(t *testing.T) {
	s := newServer(t)
	rpc(t, s, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26","capabilities":{},"clientInfo":{"name":"test","version":"0"}}}`)

	out := rpc(t, s, `{"jsonrpc":"2.0","id":2,"method":"tools/list"}`)
	result, ok := out["result"].(map[string]any)
	require.True(t, ok, out)
	var names []string
	for _, tool := range result["tools"].([]any) {
		names = append(names, tool.(map[string]any)["name"].(string))
	}
	assert.ElementsMatch(t, []string{"create_graph", "run_graph", "get_run", "list_tools"}, names)

	out = rpc(t, s, `{"jsonrpc":"2.0","id":3,"method":"resources/read","params":{"uri":"stepgraph://tools"}}`)
	result, ok = out["result"].(map[string]any)
	require.True(t, ok, out)
	contents := result["contents"].([]any)
	require.Len(t, contents, 1)
	assert.Contains(t, contents[0].(map[string]any)["text"], summarize.SplitText)

	out = rpc(t, s, `{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"run_graph","arguments":{"graph_id":"nope"}}}`)
	result, ok = out["result"].(map[string]any)
	require.True(t, ok, out)
	assert.Equal(t, true, result["isError"])
}
