//go:build e2e

package e2e

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/uiforge/internal/a2a"
	"github.com/dusk-indust/uiforge/internal/agent"
	"github.com/dusk-indust/uiforge/internal/config"
	"github.com/dusk-indust/uiforge/internal/generator"
	"github.com/dusk-indust/uiforge/internal/orchestrator"
	"github.com/dusk-indust/uiforge/internal/runner"
	"github.com/dusk-indust/uiforge/internal/runstore"
)

// fixtureImage is the design image every e2e run starts from.
func fixtureImage() string {
	return filepath.Join("..", "..", "testdata", "fixtures", "design.png")
}

// serveTemplates starts an A2A server hosting the template skills of
// stages and returns its URL.
func serveTemplates(t *testing.T, stages ...orchestrator.StageName) string {
	t.Helper()
	g := agent.NewGeneratorAgent("e2e-"+string(stages[0]), "test", generator.TemplateSkills(stages...), nil)
	ts := httptest.NewServer(a2a.NewServer(g.Card(), g, nil).Handler())
	t.Cleanup(ts.Close)
	return ts.URL
}

// loadConfig points every stage at its endpoint and removes backoff.
func loadConfig(t *testing.T, outputDir string, endpoints map[orchestrator.StageName]string) *config.Config {
	t.Helper()
	overrides := map[string]any{"output_dir": outputDir}
	for stage, url := range endpoints {
		overrides["generators."+string(stage)+".endpoint"] = url
	}
	for _, stage := range generator.Stages {
		overrides["stages."+string(stage)+".backoff"] = "0s"
	}
	for _, step := range []orchestrator.StageName{generator.StepStructureAnalysis, generator.StepBasicFiles, generator.StepCompleteProject} {
		overrides["stages."+string(orchestrator.StageBackend)+".steps."+string(step)+".backoff"] = "0s"
	}
	cfg, err := config.Load(config.LoadOptions{Dir: t.TempDir(), Overrides: overrides})
	require.NoError(t, err)
	return cfg
}

func allEndpoints(t *testing.T) map[orchestrator.StageName]string {
	t.Helper()
	endpoints := make(map[orchestrator.StageName]string, len(generator.Stages))
	for _, stage := range generator.Stages {
		endpoints[stage] = serveTemplates(t, stage)
	}
	return endpoints
}

// TestPipeline_E2E_OverA2A runs the full pipeline against one template agent
// per stage and checks the persisted run directory.
func TestPipeline_E2E_OverA2A(t *testing.T) {
	outputDir := t.TempDir()
	cfg := loadConfig(t, outputDir, allEndpoints(t))

	rc := cfg.RunConfig()
	rc.ProjectName = "shop_admin"
	rc.TypeScript = true

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	out, err := runner.New(cfg).Run(ctx, runner.Request{Image: fixtureImage(), Config: rc})
	require.NoError(t, err)
	require.Equal(t, orchestrator.RunSucceeded, out.Result.Run.Status)

	for _, st := range out.Result.Stages {
		assert.Equal(t, orchestrator.StateAccepted, st.State, st.Stage)
		assert.Equal(t, 1, st.Attempts, st.Stage)
	}
	assert.True(t, out.Result.Bundle.Complete())
	assert.Empty(t, out.Result.Coherence)

	analysis, plan, doc := runstore.APIFiles("shop_admin")
	for _, rel := range []string{
		runstore.WireframeFile, runstore.PrototypeFile,
		analysis, plan, doc, runstore.OpenAPIFile,
		"frontend/package.json", runstore.SchemaFile,
	} {
		info, err := os.Stat(filepath.Join(out.Dir, filepath.FromSlash(rel)))
		require.NoError(t, err, rel)
		assert.Positive(t, info.Size(), "%s should not be empty", rel)
	}

	attempts, err := runstore.ReadAttempts(out.Dir)
	require.NoError(t, err)
	assert.Len(t, attempts, 11, "five stages plus six sub-steps")
}

// TestPipeline_E2E_PartialRun serves the backend stage from an agent that
// lacks its skills. The frontend is still delivered.
func TestPipeline_E2E_PartialRun(t *testing.T) {
	endpoints := allEndpoints(t)
	endpoints[orchestrator.StageBackend] = serveTemplates(t, orchestrator.StageFrontend)

	outputDir := t.TempDir()
	cfg := loadConfig(t, outputDir, endpoints)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	out, err := runner.New(cfg).Run(ctx, runner.Request{Image: fixtureImage(), Config: cfg.RunConfig()})
	require.NoError(t, err)
	require.Equal(t, orchestrator.RunPartiallySucceeded, out.Result.Run.Status)

	backend := out.Result.Stage(orchestrator.StageBackend)
	require.NotNil(t, backend)
	assert.Equal(t, orchestrator.StateExhausted, backend.State)
	assert.NotEmpty(t, backend.LastReason)
	assert.Equal(t, orchestrator.StateAccepted, out.Result.Stage(orchestrator.StageFrontend).State)
	assert.Equal(t, []orchestrator.StageName{orchestrator.StageBackend}, out.Summary.Missing)
	assert.DirExists(t, filepath.Join(out.Dir, runstore.FrontendDir))
	assert.NoDirExists(t, filepath.Join(out.Dir, runstore.BackendDir))
}

// TestAgents_E2E_Probe checks agent discovery against live endpoints.
func TestAgents_E2E_Probe(t *testing.T) {
	endpoints := allEndpoints(t)
	endpoints[orchestrator.StageBackend] = serveTemplates(t, orchestrator.StageFrontend)

	var targets []agent.Target
	for _, stage := range generator.Stages {
		targets = append(targets, agent.Target{Name: string(stage), Endpoint: endpoints[stage], Skills: generator.Skills(stage)})
	}
	statuses, err := agent.NewRegistry(a2a.NewHTTPClient(), 2).Probe(context.Background(), targets)
	require.NoError(t, err)
	require.Len(t, statuses, 5)
	for _, st := range statuses {
		assert.True(t, st.Reachable, st.Name)
		if st.Name == string(orchestrator.StageBackend) {
			assert.False(t, st.Ready())
			assert.Len(t, st.Missing, 3)
		} else {
			assert.True(t, st.Ready(), st.Name)
		}
	}
}
