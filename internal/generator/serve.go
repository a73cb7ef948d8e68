package generator

import (
	"context"
	"fmt"
	"sort"

	"github.com/dusk-indust/uiforge/internal/a2a"
	"github.com/dusk-indust/uiforge/internal/agent"
	"github.com/dusk-indust/uiforge/internal/orchestrator"
)

// TemplateSkills returns the template generators as agent skills. With
// stages given, only the skills of those stages are returned.
func TemplateSkills(stages ...orchestrator.StageName) []agent.Skill {
	want := make(map[orchestrator.StageName]bool, len(stages))
	for _, s := range stages {
		want[s] = true
	}
	src := TemplateStages()

	var skills []agent.Skill
	for skill := range templates {
		if len(want) > 0 && !want[SkillStage(skill)] {
			continue
		}
		kind, _ := SkillKind(skill)
		stage := src.Generator(skill, kind)
		skills = append(skills, agent.Skill{
			ID:          skill,
			Description: fmt.Sprintf("template generator producing %s", kind),
			Run:         serveStage(stage),
		})
	}
	sort.Slice(skills, func(i, j int) bool { return skills[i].ID < skills[j].ID })
	return skills
}

// serveStage adapts a Stage to an agent skill speaking the request codec.
func serveStage(stage orchestrator.Stage) agent.SkillFunc {
	return func(ctx context.Context, msg a2a.Message) ([]a2a.Part, error) {
		req, err := DecodeRequest(msg)
		if err != nil {
			return nil, err
		}
		out, err := stage.Generate(ctx, req.Inputs(), req.Config)
		if err != nil {
			return nil, err
		}
		return EncodeResponse(out)
	}
}
