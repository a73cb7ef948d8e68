package mcptools

import (
	"github.com/dusk-indust/uiforge/internal/lineage"
	"github.com/dusk-indust/uiforge/internal/orchestrator"
)

// --- MCP Tool Types ---
// The MCP Go SDK generates each tool's JSON schema from these struct tags.
// Timestamps are RFC 3339 strings so the schemas stay plain.

// RunPipelineInput is the input for the run_pipeline MCP tool. Empty fields
// fall back to the project section of uiforge.yml.
type RunPipelineInput struct {
	ImagePath   string `json:"image_path" jsonschema:"path to the UI design image"`
	Project     string `json:"project,omitempty" jsonschema:"project name (default: auto_generated_project)"`
	PackagePath string `json:"package_path,omitempty" jsonschema:"base Java package of the backend, e.g. com.demo"`
	Framework   string `json:"framework,omitempty" jsonschema:"frontend framework: vue2 or vue3"`
	TypeScript  *bool  `json:"typescript,omitempty" jsonschema:"generate the frontend in TypeScript"`
	Description string `json:"description,omitempty" jsonschema:"free-form project description passed to every generator"`
	DryRun      bool   `json:"dry_run,omitempty" jsonschema:"use the built-in template generators instead of the configured agents"`
}

// RunPipelineOutput is the result of the run_pipeline MCP tool.
type RunPipelineOutput struct {
	RunID   string                   `json:"run_id,omitempty"`
	Status  string                   `json:"status"`
	Dir     string                   `json:"dir,omitempty"`
	Stages  []StageSummary           `json:"stages,omitempty"`
	Missing []orchestrator.StageName `json:"missing,omitempty"`
	Message string                   `json:"message,omitempty"`
}

// StageSummary is one row of a run's stage table.
type StageSummary struct {
	Stage      string `json:"stage"`
	State      string `json:"state"`
	Attempts   int    `json:"attempts"`
	LastReason string `json:"last_reason,omitempty"`
}

// GetRunStatusInput is the input for the get_run_status MCP tool.
type GetRunStatusInput struct {
	RunID string `json:"run_id" jsonschema:"run identifier as returned by run_pipeline or list_runs"`
}

// GetRunStatusOutput is the result of the get_run_status MCP tool.
type GetRunStatusOutput struct {
	RunID     string                        `json:"run_id"`
	Project   string                        `json:"project"`
	Framework string                        `json:"framework"`
	Image     string                        `json:"image"`
	Status    string                        `json:"status"`
	StartedAt string                        `json:"started_at"`
	EndedAt   string                        `json:"ended_at,omitempty"`
	Stages    []StageSummary                `json:"stages"`
	Missing   []orchestrator.StageName      `json:"missing,omitempty"`
	Coherence []orchestrator.CoherenceIssue `json:"coherence,omitempty"`
	NextStage string                        `json:"next_stage,omitempty"`
	Dir       string                        `json:"dir"`
}

// ListRunsInput is the input for the list_runs MCP tool.
type ListRunsInput struct{}

// ListRunsOutput is the result of the list_runs MCP tool.
type ListRunsOutput struct {
	Runs []RunListing `json:"runs"`
}

// RunListing is a brief overview of one run.
type RunListing struct {
	RunID     string `json:"run_id"`
	Project   string `json:"project"`
	Status    string `json:"status"`
	StartedAt string `json:"started_at"`
}

// TraceLineageInput is the input for the trace_lineage MCP tool.
type TraceLineageInput struct {
	RunID     string `json:"run_id" jsonschema:"run identifier"`
	Stage     string `json:"stage" jsonschema:"stage whose artifact to trace, e.g. html_to_vue"`
	Direction string `json:"direction,omitempty" jsonschema:"upstream (what it was derived from) or downstream (what was derived from it). Default: upstream"`
	MaxDepth  int    `json:"max_depth,omitempty" jsonschema:"maximum traversal depth (default: 10)"`
}

// TraceLineageOutput is the result of the trace_lineage MCP tool.
type TraceLineageOutput struct {
	Chains []lineage.Chain `json:"chains"`
}
