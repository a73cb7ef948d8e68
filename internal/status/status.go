// Package status summarizes persisted runs stage by stage.
package status

import (
	"path/filepath"
	"time"

	"github.com/dusk-indust/uiforge/internal/generator"
	"github.com/dusk-indust/uiforge/internal/orchestrator"
	"github.com/dusk-indust/uiforge/internal/runstore"
)

// StageInfo describes where a single stage of a run stands.
type StageInfo struct {
	Stage      orchestrator.StageName  `json:"stage"`
	Name       string                  `json:"name"` // human-readable name (e.g. "HTML prototype")
	State      orchestrator.StageState `json:"state"`
	Attempts   int                     `json:"attempts"`
	Artifact   string                  `json:"artifact,omitempty"`
	LastReason string                  `json:"last_reason,omitempty"`
	Path       string                  `json:"path,omitempty"` // output location when accepted
}

// RunStatus holds the status of one run.
type RunStatus struct {
	ID        string                        `json:"id"`
	Project   string                        `json:"project"`
	Framework string                        `json:"framework"`
	Image     string                        `json:"image"`
	Status    orchestrator.RunStatus        `json:"status"`
	StartedAt time.Time                     `json:"started_at"`
	EndedAt   time.Time                     `json:"ended_at,omitzero"`
	Stages    []StageInfo                   `json:"stages"`
	Missing   []orchestrator.StageName      `json:"missing,omitempty"`
	Coherence []orchestrator.CoherenceIssue `json:"coherence,omitempty"`
	Dir       string                        `json:"dir"`

	// NextStage is the first unfinished stage of a running run; empty
	// once the run is terminal.
	NextStage orchestrator.StageName `json:"next_stage,omitempty"`
}

var stageLabels = map[orchestrator.StageName]string{
	orchestrator.StageWireframe: "Wireframe description",
	orchestrator.StagePrototype: "HTML prototype",
	orchestrator.StageAPIDoc:    "API document",
	orchestrator.StageFrontend:  "Vue frontend",
	orchestrator.StageBackend:   "SpringBoot backend",
}

// Label returns the human-readable name of stage.
func Label(stage orchestrator.StageName) string {
	if l, ok := stageLabels[stage]; ok {
		return l
	}
	return string(stage)
}

func outputPath(stage orchestrator.StageName) string {
	switch stage {
	case orchestrator.StageWireframe:
		return runstore.WireframeFile
	case orchestrator.StagePrototype:
		return runstore.PrototypeFile
	case orchestrator.StageAPIDoc:
		return runstore.APIDir + "/"
	case orchestrator.StageFrontend:
		return runstore.FrontendDir + "/"
	case orchestrator.StageBackend:
		return runstore.BackendDir + "/"
	}
	return ""
}

// GetRunStatus returns detailed status for the run id below outputDir.
func GetRunStatus(outputDir, id string) (*RunStatus, error) {
	dir := filepath.Join(outputDir, id)
	sum, err := runstore.Load(dir)
	if err != nil {
		return nil, err
	}
	rs := FromSummary(sum)
	rs.Dir = dir
	return &rs, nil
}

// ListRuns returns the status of every run below outputDir, newest first.
func ListRuns(outputDir string) ([]RunStatus, error) {
	sums, err := runstore.ListRuns(outputDir)
	if err != nil {
		return nil, err
	}
	out := make([]RunStatus, 0, len(sums))
	for i := range sums {
		rs := FromSummary(&sums[i])
		rs.Dir = filepath.Join(outputDir, rs.ID)
		out = append(out, rs)
	}
	return out, nil
}

// FromSummary builds a RunStatus listing every pipeline stage in order,
// including stages the run has not reached yet.
func FromSummary(sum *runstore.Summary) RunStatus {
	rs := RunStatus{
		ID:        sum.Run.ID,
		Project:   sum.Run.Config.ProjectName,
		Framework: string(sum.Run.Config.Framework),
		Image:     sum.Run.Image.Path,
		Status:    sum.Run.Status,
		StartedAt: sum.Run.StartedAt,
		EndedAt:   sum.Run.EndedAt,
		Missing:   sum.Missing,
		Coherence: sum.Coherence,
	}

	reports := make(map[orchestrator.StageName]orchestrator.StageReport, len(sum.Stages))
	for _, r := range sum.Stages {
		reports[r.Stage] = r
	}
	for _, stage := range generator.Stages {
		si := StageInfo{Stage: stage, Name: Label(stage), State: orchestrator.StatePending}
		if r, ok := reports[stage]; ok {
			si.State = r.State
			si.Attempts = r.Attempts
			si.Artifact = string(r.Kind)
			si.LastReason = r.LastReason
		}
		if si.State == orchestrator.StateAccepted {
			si.Path = outputPath(stage)
		}
		if rs.NextStage == "" && !rs.Status.IsTerminal() && si.State == orchestrator.StatePending {
			rs.NextStage = stage
		}
		rs.Stages = append(rs.Stages, si)
	}
	return rs
}

// Counts returns how many stages are accepted and how many exist.
func (rs RunStatus) Counts() (accepted, total int) {
	for _, si := range rs.Stages {
		if si.State == orchestrator.StateAccepted {
			accepted++
		}
	}
	return accepted, len(rs.Stages)
}
