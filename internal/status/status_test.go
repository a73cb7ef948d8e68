package status

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/uiforge/internal/generator"
	"github.com/dusk-indust/uiforge/internal/lineage"
	"github.com/dusk-indust/uiforge/internal/orchestrator"
	"github.com/dusk-indust/uiforge/internal/runstore"
)

func TestFromSummary_Running(t *testing.T) {
	sum := &runstore.Summary{
		Run: orchestrator.Run{
			ID:     "r1",
			Status: orchestrator.RunRunning,
			Config: orchestrator.RunConfig{ProjectName: "shop"},
		},
		Stages: []orchestrator.StageReport{
			{Stage: orchestrator.StageWireframe, State: orchestrator.StateAccepted, Attempts: 1},
			{Stage: orchestrator.StagePrototype, State: orchestrator.StatePending, Attempts: 2, LastReason: "missing <body>"},
		},
	}

	rs := FromSummary(sum)
	require.Len(t, rs.Stages, len(generator.Stages))
	assert.Equal(t, "shop", rs.Project)
	assert.Equal(t, orchestrator.StateAccepted, rs.Stages[0].State)
	assert.Equal(t, runstore.WireframeFile, rs.Stages[0].Path)
	assert.Equal(t, "HTML prototype", rs.Stages[1].Name)
	assert.Equal(t, 2, rs.Stages[1].Attempts)
	assert.Equal(t, "missing <body>", rs.Stages[1].LastReason)
	assert.Empty(t, rs.Stages[1].Path)
	assert.Equal(t, orchestrator.StatePending, rs.Stages[4].State)
	assert.Equal(t, orchestrator.StagePrototype, rs.NextStage)

	accepted, total := rs.Counts()
	assert.Equal(t, 1, accepted)
	assert.Equal(t, 5, total)
}

func TestFromSummary_TerminalHasNoNextStage(t *testing.T) {
	rs := FromSummary(&runstore.Summary{
		Run: orchestrator.Run{ID: "r2", Status: orchestrator.RunFailed},
		Stages: []orchestrator.StageReport{
			{Stage: orchestrator.StageWireframe, State: orchestrator.StateExhausted, Attempts: 3},
		},
	})
	assert.Empty(t, rs.NextStage)
	assert.Equal(t, orchestrator.StateExhausted, rs.Stages[0].State)
	assert.Equal(t, orchestrator.StatePending, rs.Stages[1].State)
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "Vue frontend", Label(orchestrator.StageFrontend))
	assert.Equal(t, "custom", Label("custom"))
}

func TestGetRunStatus(t *testing.T) {
	root := t.TempDir()
	run := orchestrator.Run{
		ID:        "run-1",
		Image:     orchestrator.ImageRef{Path: "design.png"},
		Config:    orchestrator.RunConfig{ProjectName: "shop_admin"}.WithDefaults(),
		StartedAt: time.Now(),
	}
	w, err := runstore.Create(root, run, nil)
	require.NoError(t, err)

	policies := generator.DefaultPolicies()
	for k, p := range policies {
		p.Backoff = 0
		policies[k] = p
	}
	lin := lineage.NewMemStore()
	o := orchestrator.New(
		orchestrator.NewGraph(generator.Specs(generator.Options{
			Source:   generator.TemplateStages(),
			Policies: policies,
		})...),
		orchestrator.WithRunID(func() string { return run.ID }),
		orchestrator.WithLineage(lin),
		orchestrator.WithEventObserver(w.Observe),
	)
	res, err := o.Execute(context.Background(), run.Image, run.Config)
	require.NoError(t, err)
	_, err = w.Finish(context.Background(), res, lin)
	require.NoError(t, err)

	rs, err := GetRunStatus(root, "run-1")
	require.NoError(t, err)
	assert.Equal(t, orchestrator.RunSucceeded, rs.Status)
	assert.Equal(t, "design.png", rs.Image)
	assert.Equal(t, w.Dir(), rs.Dir)
	assert.Empty(t, rs.NextStage)
	accepted, total := rs.Counts()
	assert.Equal(t, total, accepted)
	assert.Equal(t, "frontend/", rs.Stages[3].Path)

	runs, err := ListRuns(root)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].ID)

	_, err = GetRunStatus(root, "missing")
	require.ErrorIs(t, err, runstore.ErrRunNotFound)
}
