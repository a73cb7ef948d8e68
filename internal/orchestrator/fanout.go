package orchestrator

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// runLevel executes one wave of mutually independent stages. With
// parallel enabled every stage of the wave runs in its own goroutine;
// otherwise they run one after another in declaration order. A failing
// stage never cancels its siblings: each branch is reported on its own.
func (o *Orchestrator) runLevel(ctx context.Context, run *Run, ctl *Controller, store *Store, level []StageSpec, reports map[StageName]*StageReport) {
	var g errgroup.Group
	if !o.parallel {
		g.SetLimit(1)
	}
	for _, spec := range level {
		report := reports[spec.Name]
		g.Go(func() error {
			o.runStage(ctx, run, ctl, store, spec, report)
			return nil
		})
	}
	_ = g.Wait()
}
