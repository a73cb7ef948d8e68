package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dusk-indust/uiforge/internal/artifact"
	"github.com/dusk-indust/uiforge/internal/lineage"
)

// Orchestrator drives a Graph to completion for one run at a time.
type Orchestrator struct {
	graph     *Graph
	logger    *slog.Logger
	lineage   lineage.Store
	progress  *ProgressReporter
	observers []func(Event)
	parallel  bool
	newID     func() string
	now       func() time.Time
	sleep     func(ctx context.Context, d time.Duration) error
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithLineage records accepted artifacts and their inputs in store.
func WithLineage(store lineage.Store) Option {
	return func(o *Orchestrator) { o.lineage = store }
}

// WithProgress forwards stage progress to pr.
func WithProgress(pr *ProgressReporter) Option {
	return func(o *Orchestrator) { o.progress = pr }
}

// WithEventObserver registers fn on the event log of every run.
func WithEventObserver(fn func(Event)) Option {
	return func(o *Orchestrator) { o.observers = append(o.observers, fn) }
}

// WithParallel toggles concurrent execution of independent stages.
func WithParallel(on bool) Option {
	return func(o *Orchestrator) { o.parallel = on }
}

// WithRunID fixes the ID generator, mostly for tests.
func WithRunID(fn func() string) Option {
	return func(o *Orchestrator) { o.newID = fn }
}

// withSleep replaces the backoff sleeper.
func withSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(o *Orchestrator) { o.sleep = fn }
}

// New creates an Orchestrator for graph.
func New(graph *Graph, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		graph:    graph,
		parallel: true,
		newID:    uuid.NewString,
		now:      time.Now,
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}
	return o
}

// Validate checks the graph and every stage policy. It returns a
// *ConfigurationError, *UnknownDependencyError or *CyclicGraphError.
func (o *Orchestrator) Validate() error {
	if _, err := o.graph.Levels(); err != nil {
		return err
	}
	for _, spec := range o.graph.Specs() {
		if spec.Stage == nil {
			return &ConfigurationError{Field: "stages." + string(spec.Name), Reason: "no generator configured"}
		}
		if err := spec.Policy.validate(spec.Name); err != nil {
			return err
		}
		if tv, ok := spec.Gate.(ThresholdValidator); ok {
			if err := tv.ValidateThresholds(spec.Policy.GateThresholds); err != nil {
				return &ConfigurationError{
					Field:  fmt.Sprintf("stages.%s.gates", spec.Name),
					Reason: err.Error(),
				}
			}
		}
		if v, ok := spec.Stage.(interface{ Validate() error }); ok {
			if err := v.Validate(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Execute runs every stage of the graph for image and cfg.
//
// Configuration problems are returned before any stage runs, with a nil
// Result. Otherwise the Result is always non-nil and carries the terminal
// status; stage failures are reported in Result.Stages rather than as an
// error. A canceled ctx yields a Result with status canceled and the
// context error.
func (o *Orchestrator) Execute(ctx context.Context, image ImageRef, cfg RunConfig) (*Result, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if image.Path == "" {
		return nil, &ConfigurationError{Field: "image", Reason: "an input image is required"}
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}
	levels, err := o.graph.Levels()
	if err != nil {
		return nil, err
	}

	run := Run{ID: o.newID(), Image: image, Config: cfg, StartedAt: o.now(), Status: RunRunning}
	log := o.logger.With("run_id", run.ID)

	store := NewStore()
	for _, spec := range o.graph.Specs() {
		store.SetLimit(spec.Name, spec.Policy.MaxRetries)
	}
	for _, fn := range o.observers {
		store.Observe(fn)
	}
	if o.progress != nil {
		store.Observe(o.progress.fromEvent)
	}

	ctl := NewController(store, log)
	ctl.sleep = o.sleep

	reports := make(map[StageName]*StageReport, len(o.graph.specs))
	result := &Result{Run: run, Store: store}
	for _, spec := range o.graph.Specs() {
		result.Stages = append(result.Stages, StageReport{Stage: spec.Name, State: StatePending})
	}
	for i := range result.Stages {
		reports[result.Stages[i].Stage] = &result.Stages[i]
	}

	log.Info("run started",
		"project", cfg.ProjectName,
		"framework", string(cfg.Framework),
		"image", image.Path,
	)
	for _, level := range levels {
		o.runLevel(ctx, &result.Run, ctl, store, level, reports)
	}

	o.finish(ctx, result)
	store.Emit(Event{Type: EventRunFinished, Reason: string(result.Run.Status)})
	log.Info("run finished", "status", string(result.Run.Status), "duration", result.Run.EndedAt.Sub(run.StartedAt))

	if result.Run.Status == RunCanceled {
		return result, fmt.Errorf("orchestrator: run %s canceled: %w", run.ID, ctx.Err())
	}
	return result, nil
}

// runStage resolves a stage's dependencies and hands it to the controller.
// It only writes to report, which belongs to this stage alone.
func (o *Orchestrator) runStage(ctx context.Context, run *Run, ctl *Controller, store *Store, spec StageSpec, report *StageReport) {
	log := o.logger.With("run_id", run.ID, "stage", string(spec.Name))

	if err := ctx.Err(); err != nil {
		report.State = StateCanceled
		report.LastReason = "run canceled before stage started"
		return
	}

	deps := make(map[StageName]artifact.Artifact, len(spec.DependsOn))
	for _, dep := range spec.DependsOn {
		a, err := store.GetAccepted(dep)
		if err != nil {
			mde := &MissingDependencyError{Stage: spec.Name, Dependency: dep}
			report.State = StateSkipped
			report.LastReason = mde.Error()
			report.Err = mde
			store.Emit(Event{Stage: spec.Name, Type: EventStageSkipped, Reason: mde.Error()})
			log.Warn("stage skipped", "dependency", string(dep))
			return
		}
		deps[dep] = a
	}

	store.Emit(Event{Stage: spec.Name, Type: EventStageStarted})
	att, err := ctl.Run(ctx, spec, NewInputs(run.Image, deps), run.Config)
	report.Attempts = len(store.ListAttempts(spec.Name))

	var exhausted *StageExhaustedError
	switch {
	case err == nil:
		report.State = StateAccepted
		report.Kind = acceptedKind(att)
		o.recordLineage(ctx, run.ID, spec, att, log)
	case errors.As(err, &exhausted):
		report.State = StateExhausted
		report.LastReason = exhausted.LastReason
		report.Err = exhausted
	case ctx.Err() != nil:
		report.State = StateCanceled
		report.LastReason = "run canceled: " + ctx.Err().Error()
		if att.Outcome == OutcomeCanceled && att.Reason != "" {
			report.LastReason = att.Reason
		}
	default:
		report.State = StateExhausted
		report.LastReason = err.Error()
		report.Err = err
		log.Error("stage aborted", "error", err)
	}
}

// recordLineage is best effort: lineage failures are logged, never fatal.
func (o *Orchestrator) recordLineage(ctx context.Context, runID string, spec StageSpec, att Attempt, log *slog.Logger) {
	if o.lineage == nil {
		return
	}
	id := lineage.NodeID(runID, string(spec.Name))
	node := lineage.Node{
		ID:      id,
		RunID:   runID,
		Stage:   string(spec.Name),
		Kind:    string(acceptedKind(att)),
		Attempt: att.Index,
	}
	if err := o.lineage.AddArtifact(ctx, node); err != nil {
		log.Warn("lineage: add artifact failed", "error", err)
		return
	}
	for _, dep := range spec.DependsOn {
		edge := lineage.Edge{SourceID: lineage.NodeID(runID, string(dep)), TargetID: id, Kind: lineage.EdgeFeeds}
		if err := o.lineage.AddEdge(ctx, edge); err != nil {
			log.Warn("lineage: add edge failed", "dependency", string(dep), "error", err)
		}
	}
}

// finish assembles the bundle and decides the terminal status.
func (o *Orchestrator) finish(ctx context.Context, result *Result) {
	result.Run.EndedAt = o.now()

	leaves := o.graph.Leaves()
	acceptedLeaves := 0
	for _, leaf := range leaves {
		if r := result.Stage(leaf); r != nil && r.State == StateAccepted {
			acceptedLeaves++
		}
	}

	switch {
	case ctx.Err() != nil && !allAccepted(result.Stages):
		result.Run.Status = RunCanceled
	case allAccepted(result.Stages):
		result.Run.Status = RunSucceeded
	case acceptedLeaves > 0:
		result.Run.Status = RunPartiallySucceeded
	default:
		result.Run.Status = RunFailed
	}

	if acceptedLeaves > 0 {
		result.Bundle = AssembleBundle(result.Store, leaves)
		result.Coherence = CheckCoherence(result.Bundle)
		for _, issue := range result.Coherence {
			o.logger.Warn("coherence", "run_id", result.Run.ID, "source", issue.Source, "issue", issue.Description)
		}
	}
}

func allAccepted(reports []StageReport) bool {
	for _, r := range reports {
		if r.State != StateAccepted {
			return false
		}
	}
	return true
}

// AssembleBundle collects the accepted API document and project artifacts
// from store. Leaves without an accepted artifact are listed as missing.
func AssembleBundle(store *Store, leaves []StageName) *Bundle {
	b := &Bundle{}
	if a, err := store.GetAccepted(StageAPIDoc); err == nil {
		b.APIDocument, _ = a.(*artifact.APIDocument)
	}
	if a, err := store.GetAccepted(StageFrontend); err == nil {
		b.Frontend, _ = a.(*artifact.FrontendProject)
	}
	if a, err := store.GetAccepted(StageBackend); err == nil {
		b.Backend, _ = a.(*artifact.BackendProject)
	}
	for _, leaf := range leaves {
		if _, err := store.GetAccepted(leaf); err != nil {
			b.Missing = append(b.Missing, leaf)
		}
	}
	return b
}
