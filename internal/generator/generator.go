// Package generator binds pipeline stages to the programs that produce
// their artifacts: remote A2A agents in production and deterministic
// templates for dry runs, local agents and tests.
package generator

import (
	"strings"

	"github.com/dusk-indust/uiforge/internal/artifact"
	"github.com/dusk-indust/uiforge/internal/orchestrator"
)

// Sub-steps of the composite stages.
const (
	StepFeatureAnalysis   orchestrator.StageName = "feature_analysis"
	StepInterfacePlanning orchestrator.StageName = "interface_planning"
	StepDocumentRendering orchestrator.StageName = "document_rendering"

	StepStructureAnalysis orchestrator.StageName = "structure_analysis"
	StepBasicFiles        orchestrator.StageName = "basic_files"
	StepCompleteProject   orchestrator.StageName = "complete_project"
)

// Stages lists the top-level stages in pipeline order.
var Stages = []orchestrator.StageName{
	orchestrator.StageWireframe,
	orchestrator.StagePrototype,
	orchestrator.StageAPIDoc,
	orchestrator.StageFrontend,
	orchestrator.StageBackend,
}

// Source hands out a Stage for each skill. It returns nil when it cannot
// serve the skill, which the orchestrator reports as a configuration error.
type Source interface {
	Generator(skill string, kind artifact.Kind) orchestrator.Stage
}

// Skill names the A2A skill of a stage or of one of its sub-steps.
func Skill(stage, step orchestrator.StageName) string {
	if step == "" {
		return string(stage)
	}
	return string(stage) + "." + string(step)
}

// SkillStage returns the top-level stage a skill belongs to.
func SkillStage(skill string) orchestrator.StageName {
	stage, _, _ := strings.Cut(skill, ".")
	return orchestrator.StageName(stage)
}

// Skills lists the skills a generator endpoint for stage must offer.
func Skills(stage orchestrator.StageName) []string {
	switch stage {
	case orchestrator.StageAPIDoc:
		return []string{
			Skill(stage, StepFeatureAnalysis),
			Skill(stage, StepInterfacePlanning),
			Skill(stage, StepDocumentRendering),
		}
	case orchestrator.StageBackend:
		return []string{
			Skill(stage, StepStructureAnalysis),
			Skill(stage, StepBasicFiles),
			Skill(stage, StepCompleteProject),
		}
	default:
		return []string{string(stage)}
	}
}

// skillKinds maps every skill to the artifact kind its generator returns.
var skillKinds = map[string]artifact.Kind{
	string(orchestrator.StageWireframe):                     artifact.KindWireframe,
	string(orchestrator.StagePrototype):                     artifact.KindPrototype,
	Skill(orchestrator.StageAPIDoc, StepFeatureAnalysis):    artifact.KindFeatureAnalysis,
	Skill(orchestrator.StageAPIDoc, StepInterfacePlanning):  artifact.KindInterfacePlan,
	Skill(orchestrator.StageAPIDoc, StepDocumentRendering):  artifact.KindRenderedDocument,
	string(orchestrator.StageFrontend):                      artifact.KindFrontend,
	Skill(orchestrator.StageBackend, StepStructureAnalysis): artifact.KindBackendStructure,
	Skill(orchestrator.StageBackend, StepBasicFiles):        artifact.KindFileSet,
	Skill(orchestrator.StageBackend, StepCompleteProject):   artifact.KindFileSet,
}

// SkillKind returns the artifact kind produced by skill.
func SkillKind(skill string) (artifact.Kind, bool) {
	k, ok := skillKinds[skill]
	return k, ok
}
