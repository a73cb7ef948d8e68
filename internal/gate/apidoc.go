package gate

import (
	"context"
	"strings"

	"github.com/dusk-indust/uiforge/internal/artifact"
	"github.com/dusk-indust/uiforge/internal/orchestrator"
)

// APIDocument checks that the rendered document covers the interface plan
// and that the plan is a valid OpenAPI description.
type APIDocument struct{}

func (APIDocument) Evaluate(ctx context.Context, out artifact.Artifact, th orchestrator.Thresholds) orchestrator.Verdict {
	d, ok := out.(*artifact.APIDocument)
	if !ok {
		return wrongKind(artifact.KindAPIDocument, out)
	}

	total := d.Plan.TotalAPIs()
	missing := d.MissingEndpoints()
	covered := float64(total-len(missing)) / float64(total)
	if want := th.Get(Coverage, Defaults[orchestrator.StageAPIDoc][Coverage]); covered < want {
		paths := make([]string, 0, len(missing))
		for _, ep := range missing {
			paths = append(paths, strings.ToUpper(ep.Method)+" "+ep.Path)
		}
		return orchestrator.Reject("api document covers %d of %d endpoints (%.0f%%, want %.0f%%); missing %s",
			total-len(missing), total, covered*100, want*100, strings.Join(firstN(paths, 5), ", "))
	}

	if err := ValidateOpenAPI(ctx, d.Plan); err != nil {
		return orchestrator.Reject("interface plan is not a valid OpenAPI document: %v", err)
	}
	return orchestrator.Accept()
}

func (APIDocument) ValidateThresholds(th orchestrator.Thresholds) error {
	return validateKnown(th, nil, Coverage)
}
