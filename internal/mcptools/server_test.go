package mcptools

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/uiforge/internal/config"
	"github.com/dusk-indust/uiforge/internal/runner"
)

// setupServerClient wires an MCP server and client together using in-memory
// transports. Runs are written below a temporary output directory, which is
// returned along with a readable design image.
func setupServerClient(t *testing.T) (*mcp.ClientSession, string) {
	t.Helper()

	dir := t.TempDir()
	cfg, err := config.Load(config.LoadOptions{
		Dir:       dir,
		Overrides: map[string]any{"output_dir": filepath.Join(dir, "runs")},
	})
	require.NoError(t, err)
	image := filepath.Join(dir, "design.png")
	require.NoError(t, os.WriteFile(image, []byte("\x89PNG\r\n\x1a\n"), 0o644))

	ids := []string{"run-1", "run-2", "run-3"}
	next := 0
	r := runner.New(cfg, runner.WithRunID(func() string {
		id := ids[next]
		next++
		return id
	}))
	server := NewMCPServer(NewService(r, nil), "")

	st, ct := mcp.NewInMemoryTransports()
	ctx := context.Background()

	_, err = server.Connect(ctx, st, nil)
	require.NoError(t, err)

	client := mcp.NewClient(&mcp.Implementation{
		Name:    "test-client",
		Version: "1.0.0",
	}, nil)

	session, err := client.Connect(ctx, ct, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		session.Close()
	})

	return session, image
}

// callTool invokes name and decodes its structured output into out.
func callTool(t *testing.T, session *mcp.ClientSession, name string, args any, out any) *mcp.CallToolResult {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	require.NoError(t, err)
	if out != nil && !result.IsError {
		require.NotNil(t, result.StructuredContent, "expected structured content from %s", name)
		raw, err := json.Marshal(result.StructuredContent)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, out))
	}
	return result
}

func TestMCPListTools(t *testing.T) {
	session, _ := setupServerClient(t)

	result, err := session.ListTools(context.Background(), &mcp.ListToolsParams{})
	require.NoError(t, err)

	names := make([]string, len(result.Tools))
	for i, tool := range result.Tools {
		names[i] = tool.Name
	}
	sort.Strings(names)
	assert.Equal(t, []string{"get_run_status", "list_runs", "run_pipeline", "trace_lineage"}, names)
}

func TestMCPRunPipeline_DryRun(t *testing.T) {
	session, image := setupServerClient(t)

	var out RunPipelineOutput
	result := callTool(t, session, "run_pipeline", RunPipelineInput{
		ImagePath: image,
		Project:   "shop_admin",
		DryRun:    true,
	}, &out)
	require.False(t, result.IsError)

	assert.Equal(t, "run-1", out.RunID)
	assert.Equal(t, "succeeded", out.Status)
	require.Len(t, out.Stages, 5)
	for _, st := range out.Stages {
		assert.Equal(t, "accepted", st.State, st.Stage)
		assert.Equal(t, 1, st.Attempts, st.Stage)
	}
	assert.Empty(t, out.Missing)
	assert.DirExists(t, out.Dir)

	var rs GetRunStatusOutput
	result = callTool(t, session, "get_run_status", GetRunStatusInput{RunID: "run-1"}, &rs)
	require.False(t, result.IsError)
	assert.Equal(t, "shop_admin", rs.Project)
	assert.Equal(t, "succeeded", rs.Status)
	assert.NotEmpty(t, rs.StartedAt)
	assert.NotEmpty(t, rs.EndedAt)
	assert.Len(t, rs.Stages, 5)
	assert.Empty(t, rs.NextStage)

	var list ListRunsOutput
	callTool(t, session, "list_runs", ListRunsInput{}, &list)
	require.Len(t, list.Runs, 1)
	assert.Equal(t, "run-1", list.Runs[0].RunID)
	assert.Equal(t, "shop_admin", list.Runs[0].Project)

	var trace TraceLineageOutput
	result = callTool(t, session, "trace_lineage", TraceLineageInput{RunID: "run-1", Stage: "html_to_vue"}, &trace)
	require.False(t, result.IsError)
	var reached []string
	for _, c := range trace.Chains {
		reached = append(reached, c.Nodes[len(c.Nodes)-1])
	}
	assert.ElementsMatch(t, []string{"run-1/wireframe_html", "run-1/html_to_api_doc", "run-1/wireframe_generator"}, reached)
}

func TestMCPRunPipeline_RejectsBadConfig(t *testing.T) {
	session, image := setupServerClient(t)

	var out RunPipelineOutput
	result := callTool(t, session, "run_pipeline", RunPipelineInput{
		ImagePath: image,
		Framework: "react",
		DryRun:    true,
	}, &out)
	require.False(t, result.IsError)
	assert.Equal(t, "rejected", out.Status)
	assert.Contains(t, out.Message, "framework")
	assert.Empty(t, out.RunID)

	var list ListRunsOutput
	callTool(t, session, "list_runs", ListRunsInput{}, &list)
	assert.Empty(t, list.Runs)
}

func TestMCPGetRunStatus_Unknown(t *testing.T) {
	session, _ := setupServerClient(t)

	result := callTool(t, session, "get_run_status", GetRunStatusInput{RunID: "nope"}, nil)
	assert.True(t, result.IsError, "unknown run should set IsError")
}

func TestMCPTraceLineage_BadDirection(t *testing.T) {
	session, _ := setupServerClient(t)

	result := callTool(t, session, "trace_lineage", TraceLineageInput{RunID: "run-1", Stage: "html_to_vue", Direction: "sideways"}, nil)
	assert.True(t, result.IsError)
}

// TestMCPCallUnknownTool verifies that calling a non-existent tool returns an
// error.
func TestMCPCallUnknownTool(t *testing.T) {
	session, _ := setupServerClient(t)

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "nonexistent_tool",
		Arguments: map[string]any{},
	})

	// The SDK may fail at the protocol level or set IsError on the result.
	if err != nil {
		return
	}
	require.NotNil(t, result)
	assert.True(t, result.IsError, "calling an unknown tool should set IsError")
}
