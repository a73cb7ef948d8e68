package generator

import (
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/dusk-indust/uiforge/internal/artifact"
	"github.com/dusk-indust/uiforge/internal/gate"
	"github.com/dusk-indust/uiforge/internal/orchestrator"
)

// PolicyKey names the policy of a stage or of one of its sub-steps, as in
// html_to_api_doc.feature_analysis.
func PolicyKey(stage, step orchestrator.StageName) string { return Skill(stage, step) }

// DefaultPolicies returns the built-in retry policies of every stage and
// sub-step. The composite stages have no attempt timeout of their own:
// each of their sub-steps is bounded by its step policy instead.
func DefaultPolicies() map[string]orchestrator.Policy {
	p := make(map[string]orchestrator.Policy)
	for _, s := range Stages {
		p[string(s)] = orchestrator.DefaultPolicy
	}
	for _, s := range []orchestrator.StageName{orchestrator.StageAPIDoc, orchestrator.StageBackend} {
		composite := orchestrator.DefaultPolicy
		composite.Timeout = 0
		p[string(s)] = composite
	}
	docStep := orchestrator.Policy{MaxRetries: 3, Timeout: 5 * time.Minute, Backoff: time.Second}
	p[PolicyKey(orchestrator.StageAPIDoc, StepFeatureAnalysis)] = docStep
	p[PolicyKey(orchestrator.StageAPIDoc, StepInterfacePlanning)] = docStep
	docStep.MaxRetries = 4
	p[PolicyKey(orchestrator.StageAPIDoc, StepDocumentRendering)] = docStep

	backendStep := orchestrator.Policy{MaxRetries: 3, Timeout: 10 * time.Minute, Backoff: 2 * time.Second}
	for _, step := range []orchestrator.StageName{StepStructureAnalysis, StepBasicFiles, StepCompleteProject} {
		p[PolicyKey(orchestrator.StageBackend, step)] = backendStep
	}
	return p
}

// Options configures Specs.
type Options struct {
	Source Source

	// Policies overrides DefaultPolicies per key; see PolicyKey.
	Policies map[string]orchestrator.Policy

	// Gates overrides the stage gates of package gate.
	Gates map[orchestrator.StageName]orchestrator.Gate

	Logger *slog.Logger
}

func (o Options) policy(key string) orchestrator.Policy {
	if p, ok := o.Policies[key]; ok {
		return p
	}
	return DefaultPolicies()[key]
}

func (o Options) gate(stage orchestrator.StageName) orchestrator.Gate {
	if g, ok := o.Gates[stage]; ok {
		return g
	}
	return gate.For(stage)
}

func (o Options) generator(stage, step orchestrator.StageName) orchestrator.Stage {
	if o.Source == nil {
		return nil
	}
	skill := Skill(stage, step)
	kind, _ := SkillKind(skill)
	return o.Source.Generator(skill, kind)
}

// Specs builds the five-stage pipeline:
//
//	wireframe_generator -> wireframe_html -> html_to_api_doc -> {html_to_vue, html_to_springboot}
//
// The frontend and backend stages read both the prototype and the API
// document. html_to_api_doc and html_to_springboot run their sub-steps as
// Sequences.
func Specs(opts Options) []orchestrator.StageSpec {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	spec := func(stage orchestrator.StageName, st orchestrator.Stage, deps ...orchestrator.StageName) orchestrator.StageSpec {
		return orchestrator.StageSpec{
			Name:      stage,
			DependsOn: deps,
			Policy:    opts.policy(string(stage)),
			Gate:      opts.gate(stage),
			Stage:     st,
		}
	}
	step := func(stage, name orchestrator.StageName, deps ...orchestrator.StageName) orchestrator.StageSpec {
		return orchestrator.StageSpec{
			Name:      name,
			DependsOn: deps,
			Policy:    opts.policy(PolicyKey(stage, name)),
			Stage:     opts.generator(stage, name),
		}
	}

	apiDoc := orchestrator.NewSequence(orchestrator.StageAPIDoc, []orchestrator.StageSpec{
		step(orchestrator.StageAPIDoc, StepFeatureAnalysis),
		step(orchestrator.StageAPIDoc, StepInterfacePlanning, StepFeatureAnalysis),
		step(orchestrator.StageAPIDoc, StepDocumentRendering, StepFeatureAnalysis, StepInterfacePlanning),
	}, ComposeAPIDocument, orchestrator.WithSequenceLogger(logger))

	backend := orchestrator.NewSequence(orchestrator.StageBackend, []orchestrator.StageSpec{
		step(orchestrator.StageBackend, StepStructureAnalysis),
		step(orchestrator.StageBackend, StepBasicFiles, StepStructureAnalysis),
		step(orchestrator.StageBackend, StepCompleteProject, StepStructureAnalysis, StepBasicFiles),
	}, ComposeBackend, orchestrator.WithSequenceLogger(logger))

	return []orchestrator.StageSpec{
		spec(orchestrator.StageWireframe, opts.generator(orchestrator.StageWireframe, "")),
		spec(orchestrator.StagePrototype, opts.generator(orchestrator.StagePrototype, ""), orchestrator.StageWireframe),
		spec(orchestrator.StageAPIDoc, apiDoc, orchestrator.StagePrototype),
		spec(orchestrator.StageFrontend, opts.generator(orchestrator.StageFrontend, ""), orchestrator.StagePrototype, orchestrator.StageAPIDoc),
		spec(orchestrator.StageBackend, backend, orchestrator.StagePrototype, orchestrator.StageAPIDoc),
	}
}

// ComposeAPIDocument bundles the three API-document sub-artifacts. The
// analysis total is recounted from the plan.
func ComposeAPIDocument(outputs map[orchestrator.StageName]artifact.Artifact, _ orchestrator.Inputs, _ orchestrator.RunConfig) (artifact.Artifact, error) {
	analysis, ok1 := outputs[StepFeatureAnalysis].(*artifact.FeatureAnalysis)
	plan, ok2 := outputs[StepInterfacePlanning].(*artifact.InterfacePlan)
	rendered, ok3 := outputs[StepDocumentRendering].(*artifact.RenderedDocument)
	if !ok1 || !ok2 || !ok3 {
		return nil, orchestrator.Rejectf("api document sub-steps produced unexpected artifacts")
	}
	a := *analysis
	a.TotalAPIs = plan.TotalAPIs()
	return &artifact.APIDocument{Analysis: &a, Plan: plan, Rendered: rendered}, nil
}

// ComposeBackend merges the basic and complete file sets, later paths
// winning, and lifts the first SQL file under src/main/resources into the
// schema.
func ComposeBackend(outputs map[orchestrator.StageName]artifact.Artifact, _ orchestrator.Inputs, cfg orchestrator.RunConfig) (artifact.Artifact, error) {
	basic, ok1 := outputs[StepBasicFiles].(*artifact.FileSet)
	complete, ok2 := outputs[StepCompleteProject].(*artifact.FileSet)
	if !ok1 || !ok2 {
		return nil, orchestrator.Rejectf("springboot sub-steps produced unexpected artifacts")
	}
	files := artifact.MergeFiles(basic.Files, complete.Files)
	p := &artifact.BackendProject{PackagePath: cfg.JavaPackage(), Files: files}
	for _, f := range files {
		if strings.HasPrefix(f.Path, "src/main/resources/") && path.Ext(f.Path) == ".sql" {
			p.Schema = f.Content
			break
		}
	}
	return p, nil
}
