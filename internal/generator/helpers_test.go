package generator

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/uiforge/internal/artifact"
	"github.com/dusk-indust/uiforge/internal/orchestrator"
)

// fastPolicies are the default policies without backoff.
func fastPolicies() map[string]orchestrator.Policy {
	p := DefaultPolicies()
	for k, v := range p {
		v.Backoff = 0
		p[k] = v
	}
	return p
}

func testConfig() orchestrator.RunConfig {
	return orchestrator.RunConfig{
		ProjectName: "shop_admin",
		PackagePath: "com.demo",
		Framework:   artifact.FrameworkVue3,
		TypeScript:  true,
		Description: "Back office for a small shop",
	}.WithDefaults()
}

// writeImage creates a fake PNG and returns its path.
func writeImage(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "design.png")
	require.NoError(t, os.WriteFile(p, []byte("\x89PNG\r\n\x1a\nfake"), 0o644))
	return p
}

// runTemplate runs one template skill directly.
func runTemplate(t *testing.T, skill string, in orchestrator.Inputs, cfg orchestrator.RunConfig) artifact.Artifact {
	t.Helper()
	kind, ok := SkillKind(skill)
	require.True(t, ok, skill)
	st := TemplateStages().Generator(skill, kind)
	require.NotNil(t, st, skill)
	out, err := st.Generate(context.Background(), in, cfg)
	require.NoError(t, err, skill)
	require.Equal(t, kind, out.Kind())
	return out
}

// templateAPIDoc builds the template API document through its sub-steps.
func templateAPIDoc(t *testing.T, cfg orchestrator.RunConfig) *artifact.APIDocument {
	t.Helper()
	base := map[orchestrator.StageName]artifact.Artifact{
		orchestrator.StagePrototype: &artifact.HTMLPrototype{Markup: "<html><body><p>x</p></body></html>"},
	}
	fa := runTemplate(t, Skill(orchestrator.StageAPIDoc, StepFeatureAnalysis), orchestrator.NewInputs(orchestrator.ImageRef{}, base), cfg)
	base[StepFeatureAnalysis] = fa
	plan := runTemplate(t, Skill(orchestrator.StageAPIDoc, StepInterfacePlanning), orchestrator.NewInputs(orchestrator.ImageRef{}, base), cfg)
	base[StepInterfacePlanning] = plan
	doc := runTemplate(t, Skill(orchestrator.StageAPIDoc, StepDocumentRendering), orchestrator.NewInputs(orchestrator.ImageRef{}, base), cfg)

	out, err := ComposeAPIDocument(map[orchestrator.StageName]artifact.Artifact{
		StepFeatureAnalysis:   fa,
		StepInterfacePlanning: plan,
		StepDocumentRendering: doc,
	}, orchestrator.Inputs{}, cfg)
	require.NoError(t, err)
	return out.(*artifact.APIDocument)
}
