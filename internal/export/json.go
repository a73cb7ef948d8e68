package export

import (
	"time"

	"github.com/dusk-indust/uiforge/internal/orchestrator"
	"github.com/dusk-indust/uiforge/internal/runstore"
	"github.com/dusk-indust/uiforge/internal/status"
)

// RunExport is the top-level JSON export structure.
type RunExport struct {
	ID         string                        `json:"id"`
	ExportedAt string                        `json:"exportedAt"`
	Status     orchestrator.RunStatus        `json:"status"`
	Config     orchestrator.RunConfig        `json:"config"`
	Image      string                        `json:"image"`
	StartedAt  time.Time                     `json:"startedAt"`
	EndedAt    time.Time                     `json:"endedAt,omitzero"`
	Stages     []StageExport                 `json:"stages"`
	Attempts   []AttemptExport               `json:"attempts,omitempty"`
	Coherence  []orchestrator.CoherenceIssue `json:"coherence,omitempty"`
	Files      []string                      `json:"files,omitempty"`
}

// StageExport describes one pipeline stage.
type StageExport struct {
	Stage      string `json:"stage"`
	Name       string `json:"name"`
	Status     string `json:"status"`
	Attempts   int    `json:"attempts"`
	Artifact   string `json:"artifact,omitempty"`
	LastReason string `json:"lastReason,omitempty"`
	Path       string `json:"path,omitempty"`
}

// AttemptExport describes a single attempt.
type AttemptExport struct {
	Stage        string `json:"stage"`
	Attempt      int    `json:"attempt"`
	OuterAttempt int    `json:"outerAttempt,omitempty"`
	Verdict      string `json:"verdict"`
	Failure      string `json:"failure,omitempty"`
	Reason       string `json:"reason,omitempty"`
	DurationMS   int64  `json:"durationMs"`
}

// ExportRun builds a RunExport from the run directory of id.
func ExportRun(outputDir, id string) (*RunExport, error) {
	rs, err := status.GetRunStatus(outputDir, id)
	if err != nil {
		return nil, err
	}
	sum, err := runstore.Load(rs.Dir)
	if err != nil {
		return nil, err
	}
	attempts, err := runstore.ReadAttempts(rs.Dir)
	if err != nil {
		return nil, err
	}

	export := &RunExport{
		ID:         rs.ID,
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Status:     rs.Status,
		Config:     sum.Run.Config,
		Image:      rs.Image,
		StartedAt:  rs.StartedAt,
		EndedAt:    rs.EndedAt,
		Coherence:  rs.Coherence,
		Files:      sum.Files,
	}
	for _, si := range rs.Stages {
		export.Stages = append(export.Stages, StageExport{
			Stage:      string(si.Stage),
			Name:       si.Name,
			Status:     string(si.State),
			Attempts:   si.Attempts,
			Artifact:   si.Artifact,
			LastReason: si.LastReason,
			Path:       si.Path,
		})
	}
	for _, a := range attempts {
		export.Attempts = append(export.Attempts, AttemptExport{
			Stage:        string(a.Stage),
			Attempt:      a.Attempt,
			OuterAttempt: a.OuterAttempt,
			Verdict:      string(a.Verdict),
			Failure:      string(a.Failure),
			Reason:       a.Reason,
			DurationMS:   a.DurationMS,
		})
	}
	return export, nil
}
