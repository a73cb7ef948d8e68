// Package runner wires configuration, generators, lineage and the run
// directory around one orchestrator execution. The CLI and the MCP server
// both start runs through it.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/dusk-indust/uiforge/internal/a2a"
	"github.com/dusk-indust/uiforge/internal/config"
	"github.com/dusk-indust/uiforge/internal/generator"
	"github.com/dusk-indust/uiforge/internal/lineage"
	"github.com/dusk-indust/uiforge/internal/orchestrator"
	"github.com/dusk-indust/uiforge/internal/runstore"
)

// Runner starts pipeline runs for one loaded configuration.
type Runner struct {
	cfg    *config.Config
	logger *slog.Logger
	client a2a.Client
	newID  func() string
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithClient replaces the A2A client used for remote generators.
func WithClient(c a2a.Client) Option {
	return func(r *Runner) { r.client = c }
}

// WithRunID fixes the run ID generator.
func WithRunID(fn func() string) Option {
	return func(r *Runner) { r.newID = fn }
}

// New creates a Runner for cfg.
func New(cfg *config.Config, opts ...Option) *Runner {
	r := &Runner{cfg: cfg, newID: uuid.NewString}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.New(slog.DiscardHandler)
	}
	if r.client == nil {
		var copts []a2a.ClientOption
		if cfg.A2A.Timeout > 0 {
			copts = append(copts, a2a.WithTimeout(cfg.A2A.Timeout))
		}
		if cfg.A2A.APIKey != "" {
			copts = append(copts, a2a.WithHeader("Authorization", "Bearer "+cfg.A2A.APIKey))
		}
		r.client = a2a.NewHTTPClient(copts...)
	}
	return r
}

// Config returns the configuration the runner was built with.
func (r *Runner) Config() *config.Config { return r.cfg }

// Client returns the A2A client used for remote generators.
func (r *Runner) Client() a2a.Client { return r.client }

// Request describes one run.
type Request struct {
	Image  string
	Config orchestrator.RunConfig

	// DryRun uses the built-in template generators instead of the
	// configured A2A endpoints.
	DryRun bool

	// Archive uploads the finished run directory; it is implied by
	// archive.enabled in the configuration.
	Archive bool

	Progress  *orchestrator.ProgressReporter
	Observers []func(orchestrator.Event)
}

// Outcome is a finished run and where it was persisted.
type Outcome struct {
	Result  *orchestrator.Result
	Summary *runstore.Summary
	Dir     string

	// Archived is the number of objects uploaded, zero when archiving is
	// off.
	Archived int
}

// Source returns the generator source a run would use.
func (r *Runner) Source(dryRun bool) generator.Source {
	if dryRun {
		return generator.TemplateStages()
	}
	return generator.NewRemote(r.client, r.cfg.Endpoints(), r.logger)
}

// Check validates req against the pipeline without starting a run. It
// returns a *orchestrator.ConfigurationError for bad input.
func (r *Runner) Check(req Request) error {
	rc := req.Config.WithDefaults()
	if err := rc.Validate(); err != nil {
		return err
	}
	if req.Image == "" {
		return &orchestrator.ConfigurationError{Field: "image", Reason: "an input image is required"}
	}
	info, err := os.Stat(req.Image)
	if err != nil {
		return &orchestrator.ConfigurationError{Field: "image", Value: req.Image, Reason: "cannot read input image"}
	}
	if info.IsDir() {
		return &orchestrator.ConfigurationError{Field: "image", Value: req.Image, Reason: "input image is a directory"}
	}
	return r.orchestrator(req, nil, "", nil).Validate()
}

// Run executes req and persists it below the configured output directory.
//
// Configuration problems are returned before a run directory exists. A run
// that started always yields an Outcome, also when the error is non-nil:
// a canceled run is persisted with status canceled.
func (r *Runner) Run(ctx context.Context, req Request) (*Outcome, error) {
	if err := r.Check(req); err != nil {
		return nil, err
	}
	rc := req.Config.WithDefaults()

	lin, err := lineage.Open(r.cfg.Lineage.Backend, r.cfg.Lineage.Path)
	if err != nil {
		return nil, fmt.Errorf("runner: open lineage: %w", err)
	}
	defer lin.Close()
	if err := lin.InitSchema(ctx); err != nil {
		return nil, fmt.Errorf("runner: init lineage: %w", err)
	}

	id := r.newID()
	run := orchestrator.Run{
		ID:        id,
		Image:     orchestrator.ImageRef{Path: req.Image},
		Config:    rc,
		StartedAt: time.Now(),
	}
	w, err := runstore.Create(r.cfg.OutputDir, run, r.logger)
	if err != nil {
		return nil, err
	}

	o := r.orchestrator(req, lin, id, w.Observe)
	res, runErr := o.Execute(ctx, run.Image, rc)
	if res == nil {
		if abortErr := w.Abort(); abortErr != nil {
			r.logger.Warn("runner: remove run dir failed", "run_id", id, "error", abortErr)
		}
		return nil, runErr
	}

	// The run directory is completed even when ctx was canceled.
	sum, err := w.Finish(context.WithoutCancel(ctx), res, lin)
	if err != nil {
		return nil, errors.Join(runErr, err)
	}
	out := &Outcome{Result: res, Summary: sum, Dir: w.Dir()}

	if req.Archive || r.cfg.Archive.Enabled {
		n, err := r.archive(context.WithoutCancel(ctx), id, w.Dir())
		if err != nil {
			return out, errors.Join(runErr, err)
		}
		out.Archived = n
	}
	return out, runErr
}

func (r *Runner) orchestrator(req Request, lin lineage.Store, id string, observe func(orchestrator.Event)) *orchestrator.Orchestrator {
	specs := generator.Specs(generator.Options{
		Source:   r.Source(req.DryRun),
		Policies: r.cfg.Policies(),
		Logger:   r.logger,
	})
	opts := []orchestrator.Option{
		orchestrator.WithLogger(r.logger),
		orchestrator.WithParallel(r.cfg.Parallel),
	}
	if lin != nil {
		opts = append(opts, orchestrator.WithLineage(lin))
	}
	if id != "" {
		opts = append(opts, orchestrator.WithRunID(func() string { return id }))
	}
	if observe != nil {
		opts = append(opts, orchestrator.WithEventObserver(observe))
	}
	for _, fn := range req.Observers {
		opts = append(opts, orchestrator.WithEventObserver(fn))
	}
	if req.Progress != nil {
		opts = append(opts, orchestrator.WithProgress(req.Progress))
	}
	return orchestrator.New(orchestrator.NewGraph(specs...), opts...)
}

func (r *Runner) archive(ctx context.Context, id, dir string) (int, error) {
	ar, err := runstore.NewArchiver(r.cfg.Archive, r.logger)
	if err != nil {
		return 0, err
	}
	return ar.Upload(ctx, id, dir)
}
