package mcptools

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// version is set by the linker at build time.
var version = "dev"

// NewMCPServer creates an MCP server named name with the run tools
// registered: run_pipeline, get_run_status, list_runs and trace_lineage.
func NewMCPServer(svc *Service, name string) *mcp.Server {
	if name == "" {
		name = "uiforge"
	}
	server := mcp.NewServer(&mcp.Implementation{
		Name:    name,
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "run_pipeline",
		Description: "Generate a wireframe, HTML prototype, API document, Vue frontend and SpringBoot backend from a UI design image. Every stage is quality-gated and retried; returns the run id, final status and a per-stage summary.",
	}, svc.RunPipeline)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_run_status",
		Description: "Get the persisted status of a run: state, attempt count and last reason for each stage, missing outputs and coherence issues.",
	}, svc.GetRunStatus)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_runs",
		Description: "List all runs in the output directory, newest first.",
	}, svc.ListRuns)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "trace_lineage",
		Description: "Trace which artifacts a stage's output was derived from (upstream) or which were derived from it (downstream).",
	}, svc.TraceLineage)

	return server
}

// RunStdio runs server on the stdio transport, blocking until stdin is
// closed or ctx is canceled.
func RunStdio(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP serves server over streamable HTTP on addr until ctx is canceled.
func RunHTTP(ctx context.Context, server *mcp.Server, addr string) error {
	handler := mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Shutdown gracefully when ctx is canceled.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
