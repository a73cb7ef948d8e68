package orchestrator

import (
	"time"

	"github.com/dusk-indust/uiforge/internal/artifact"
)

// RunStatus is the terminal status of a run.
type RunStatus string

const (
	RunRunning            RunStatus = "running"
	RunSucceeded          RunStatus = "succeeded"
	RunPartiallySucceeded RunStatus = "partially-succeeded"
	RunFailed             RunStatus = "failed"
	RunCanceled           RunStatus = "canceled"
)

// IsTerminal reports whether the run has finished.
func (s RunStatus) IsTerminal() bool {
	return s != RunRunning && s != ""
}

// Run is one end-to-end pipeline execution.
type Run struct {
	ID        string    `json:"id" yaml:"id"`
	Image     ImageRef  `json:"image" yaml:"image"`
	Config    RunConfig `json:"config" yaml:"config"`
	StartedAt time.Time `json:"started_at" yaml:"started_at"`
	EndedAt   time.Time `json:"ended_at,omitempty" yaml:"ended_at,omitempty"`
	Status    RunStatus `json:"status" yaml:"status"`
}

// StageState is where a stage ended up within a run.
type StageState string

const (
	StatePending   StageState = "pending"
	StateAccepted  StageState = "accepted"
	StateExhausted StageState = "exhausted"
	StateSkipped   StageState = "skipped"
	StateCanceled  StageState = "canceled"
)

// StageReport summarizes one stage for the final run status.
type StageReport struct {
	Stage      StageName     `json:"stage" yaml:"stage"`
	State      StageState    `json:"state" yaml:"state"`
	Attempts   int           `json:"attempts" yaml:"attempts"`
	Kind       artifact.Kind `json:"artifact,omitempty" yaml:"artifact,omitempty"`
	LastReason string        `json:"last_reason,omitempty" yaml:"last_reason,omitempty"`

	// Err is the typed failure (*StageExhaustedError or
	// *MissingDependencyError) when the stage did not succeed.
	Err error `json:"-" yaml:"-"`
}

// Bundle is the final deliverable. Frontend or Backend is nil when its
// branch failed; Missing names the absent stages.
type Bundle struct {
	APIDocument *artifact.APIDocument     `json:"api_document"`
	Frontend    *artifact.FrontendProject `json:"frontend,omitempty"`
	Backend     *artifact.BackendProject  `json:"backend,omitempty"`
	Missing     []StageName               `json:"missing,omitempty"`
}

// Complete reports whether both project branches are present.
func (b *Bundle) Complete() bool {
	return b != nil && b.Frontend != nil && b.Backend != nil
}

// Result is everything Execute knows about a finished run.
type Result struct {
	Run       Run              `json:"run" yaml:"run"`
	Stages    []StageReport    `json:"stages" yaml:"stages"`
	Bundle    *Bundle          `json:"-" yaml:"-"`
	Coherence []CoherenceIssue `json:"coherence,omitempty" yaml:"coherence,omitempty"`

	// Store holds every attempt and the event log of the run.
	Store *Store `json:"-" yaml:"-"`
}

// Stage returns the report for name, or nil.
func (r *Result) Stage(name StageName) *StageReport {
	for i := range r.Stages {
		if r.Stages[i].Stage == name {
			return &r.Stages[i]
		}
	}
	return nil
}
