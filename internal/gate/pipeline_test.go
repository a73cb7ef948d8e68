package gate

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/uiforge/internal/artifact"
	"github.com/dusk-indust/uiforge/internal/orchestrator"
)

// replay returns its outputs in order, repeating the last one, and keeps
// the inputs of every call.
type replay struct {
	mu      sync.Mutex
	outputs []artifact.Artifact
	inputs  []orchestrator.Inputs
}

func (r *replay) Generate(_ context.Context, in orchestrator.Inputs, _ orchestrator.RunConfig) (artifact.Artifact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := min(len(r.inputs), len(r.outputs)-1)
	r.inputs = append(r.inputs, in)
	return r.outputs[i], nil
}

func (r *replay) LastInputs() orchestrator.Inputs {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inputs[len(r.inputs)-1]
}

func TestPipeline_APIDocRetriedUntilEveryEndpointIsDocumented(t *testing.T) {
	missing := "# Shop API\n\n## POST /api/auth/login\n\n## GET /api/products/{id}\n\n## DELETE /api/products/{id}\n"
	first, second, third := sampleDoc(missing), sampleDoc(missing), sampleDoc(fullMarkdown)

	apidoc := &replay{outputs: []artifact.Artifact{first, second, third}}
	frontend := &replay{outputs: []artifact.Artifact{vue3Project()}}
	backend := &replay{outputs: []artifact.Artifact{backendProject()}}
	stages := map[orchestrator.StageName]orchestrator.Stage{
		orchestrator.StageWireframe: &replay{outputs: []artifact.Artifact{&artifact.WireframeDescription{
			Text: "A product list page with a search form, a header and a paginated table.",
		}}},
		orchestrator.StagePrototype: &replay{outputs: []artifact.Artifact{&artifact.HTMLPrototype{Markup: goodPage}}},
		orchestrator.StageAPIDoc:    apidoc,
		orchestrator.StageFrontend:  frontend,
		orchestrator.StageBackend:   backend,
	}
	deps := map[orchestrator.StageName][]orchestrator.StageName{
		orchestrator.StagePrototype: {orchestrator.StageWireframe},
		orchestrator.StageAPIDoc:    {orchestrator.StagePrototype},
		orchestrator.StageFrontend:  {orchestrator.StagePrototype, orchestrator.StageAPIDoc},
		orchestrator.StageBackend:   {orchestrator.StagePrototype, orchestrator.StageAPIDoc},
	}
	var specs []orchestrator.StageSpec
	for _, name := range []orchestrator.StageName{
		orchestrator.StageWireframe, orchestrator.StagePrototype, orchestrator.StageAPIDoc,
		orchestrator.StageFrontend, orchestrator.StageBackend,
	} {
		g := For(name)
		if name == orchestrator.StageFrontend {
			g = NewFrontend(&fakeChecker{})
		}
		specs = append(specs, orchestrator.StageSpec{
			Name:      name,
			DependsOn: deps[name],
			Policy:    orchestrator.Policy{MaxRetries: 3},
			Gate:      g,
			Stage:     stages[name],
		})
	}

	res, err := orchestrator.New(orchestrator.NewGraph(specs...)).Execute(context.Background(),
		orchestrator.ImageRef{Path: "design.png"}, orchestrator.RunConfig{PackagePath: "com.demo.shop"})
	require.NoError(t, err)

	attempts := res.Store.ListAttempts(orchestrator.StageAPIDoc)
	require.Len(t, attempts, 3)
	for _, a := range attempts[:2] {
		assert.Equal(t, orchestrator.OutcomeRejected, a.Outcome)
		assert.Contains(t, a.Reason, "covers 3 of 4 endpoints")
		assert.Contains(t, a.Reason, "GET /api/products")
	}
	assert.Equal(t, orchestrator.OutcomeAccepted, attempts[2].Outcome)

	accepted, err := res.Store.GetAccepted(orchestrator.StageAPIDoc)
	require.NoError(t, err)
	assert.Same(t, third, accepted)

	for _, r := range []*replay{frontend, backend} {
		doc, err := orchestrator.Input[*artifact.APIDocument](r.LastInputs(), orchestrator.StageAPIDoc)
		require.NoError(t, err)
		assert.Same(t, third, doc)
		assert.NotSame(t, first, doc)
	}
	for _, st := range res.Stages {
		assert.Equal(t, orchestrator.StateAccepted, st.State, st.Stage)
	}
}
