package mcptools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dusk-indust/uiforge/internal/artifact"
	"github.com/dusk-indust/uiforge/internal/lineage"
	"github.com/dusk-indust/uiforge/internal/orchestrator"
	"github.com/dusk-indust/uiforge/internal/runner"
	"github.com/dusk-indust/uiforge/internal/runstore"
	"github.com/dusk-indust/uiforge/internal/status"
)

// Service handles MCP tool calls. It starts runs through a runner.Runner and
// reads persisted runs from the runner's output directory.
type Service struct {
	runner *runner.Runner
	logger *slog.Logger
}

// NewService creates a Service for r. A nil logger discards output.
func NewService(r *runner.Runner, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{runner: r, logger: logger}
}

func (s *Service) outputDir() string { return s.runner.Config().OutputDir }

// RunPipeline executes a full run and reports its stage table. Pipeline
// outcomes, including configuration problems, are reported in the output
// rather than as tool errors.
func (s *Service) RunPipeline(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RunPipelineInput,
) (*mcp.CallToolResult, RunPipelineOutput, error) {
	rc := s.runner.Config().RunConfig()
	if input.Project != "" {
		rc.ProjectName = input.Project
	}
	if input.PackagePath != "" {
		rc.PackagePath = input.PackagePath
	}
	if input.Framework != "" {
		rc.Framework = artifact.Framework(input.Framework)
	}
	if input.TypeScript != nil {
		rc.TypeScript = *input.TypeScript
	}
	if input.Description != "" {
		rc.Description = input.Description
	}

	out, err := s.runner.Run(ctx, runner.Request{
		Image:  input.ImagePath,
		Config: rc,
		DryRun: input.DryRun,
	})
	if out == nil {
		var cfgErr *orchestrator.ConfigurationError
		if errors.As(err, &cfgErr) {
			return nil, RunPipelineOutput{Status: "rejected", Message: cfgErr.Error()}, nil
		}
		return nil, RunPipelineOutput{}, err
	}

	res := out.Result
	output := RunPipelineOutput{
		RunID:  res.Run.ID,
		Status: string(res.Run.Status),
		Dir:    out.Dir,
		Stages: stageSummaries(res.Stages),
	}
	if res.Bundle != nil {
		output.Missing = res.Bundle.Missing
	}
	if err != nil {
		output.Message = err.Error()
	}
	s.logger.Info("mcp: run finished", "run_id", output.RunID, "status", output.Status)
	return nil, output, nil
}

// GetRunStatus returns the persisted summary of one run.
func (s *Service) GetRunStatus(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input GetRunStatusInput,
) (*mcp.CallToolResult, GetRunStatusOutput, error) {
	if input.RunID == "" {
		return nil, GetRunStatusOutput{}, fmt.Errorf("run_id is required")
	}
	rs, err := status.GetRunStatus(s.outputDir(), input.RunID)
	if err != nil {
		return nil, GetRunStatusOutput{}, err
	}

	out := GetRunStatusOutput{
		RunID:     rs.ID,
		Project:   rs.Project,
		Framework: rs.Framework,
		Image:     rs.Image,
		Status:    string(rs.Status),
		StartedAt: formatTime(rs.StartedAt),
		EndedAt:   formatTime(rs.EndedAt),
		Missing:   rs.Missing,
		Coherence: rs.Coherence,
		NextStage: string(rs.NextStage),
		Dir:       rs.Dir,
	}
	for _, si := range rs.Stages {
		out.Stages = append(out.Stages, StageSummary{
			Stage:      string(si.Stage),
			State:      string(si.State),
			Attempts:   si.Attempts,
			LastReason: si.LastReason,
		})
	}
	return nil, out, nil
}

// ListRuns lists every persisted run, newest first.
func (s *Service) ListRuns(
	_ context.Context,
	_ *mcp.CallToolRequest,
	_ ListRunsInput,
) (*mcp.CallToolResult, ListRunsOutput, error) {
	sums, err := runstore.ListRuns(s.outputDir())
	if err != nil {
		return nil, ListRunsOutput{}, err
	}
	out := ListRunsOutput{Runs: make([]RunListing, 0, len(sums))}
	for _, sum := range sums {
		out.Runs = append(out.Runs, RunListing{
			RunID:     sum.Run.ID,
			Project:   sum.Run.Config.ProjectName,
			Status:    string(sum.Run.Status),
			StartedAt: formatTime(sum.Run.StartedAt),
		})
	}
	return nil, out, nil
}

// TraceLineage walks the FEEDS edges recorded for a run from one stage's
// artifact.
func (s *Service) TraceLineage(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input TraceLineageInput,
) (*mcp.CallToolResult, TraceLineageOutput, error) {
	if input.RunID == "" || input.Stage == "" {
		return nil, TraceLineageOutput{}, fmt.Errorf("run_id and stage are required")
	}
	dir := lineage.DirectionUpstream
	switch input.Direction {
	case "", string(lineage.DirectionUpstream):
	case string(lineage.DirectionDownstream):
		dir = lineage.DirectionDownstream
	default:
		return nil, TraceLineageOutput{}, fmt.Errorf("direction must be upstream or downstream, got %q", input.Direction)
	}

	runDir := filepath.Join(s.outputDir(), input.RunID)
	if _, err := runstore.Load(runDir); err != nil {
		return nil, TraceLineageOutput{}, err
	}
	snap, err := runstore.ReadLineage(runDir)
	if err != nil {
		return nil, TraceLineageOutput{}, err
	}
	store := lineage.NewMemStore()
	defer store.Close()
	if err := lineage.Load(ctx, store, snap); err != nil {
		return nil, TraceLineageOutput{}, fmt.Errorf("load lineage: %w", err)
	}

	chains, err := store.Trace(ctx, lineage.NodeID(input.RunID, input.Stage), dir, input.MaxDepth)
	if err != nil {
		return nil, TraceLineageOutput{}, fmt.Errorf("trace: %w", err)
	}
	if chains == nil {
		chains = []lineage.Chain{}
	}
	return nil, TraceLineageOutput{Chains: chains}, nil
}

func stageSummaries(reports []orchestrator.StageReport) []StageSummary {
	out := make([]StageSummary, 0, len(reports))
	for _, r := range reports {
		out = append(out, StageSummary{
			Stage:      string(r.Stage),
			State:      string(r.State),
			Attempts:   r.Attempts,
			LastReason: r.LastReason,
		})
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
