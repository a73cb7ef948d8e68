package gate

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/dusk-indust/uiforge/internal/artifact"
	"github.com/dusk-indust/uiforge/internal/orchestrator"
)

// Wireframe requires a description long enough to drive HTML generation.
type Wireframe struct{}

func (Wireframe) Evaluate(_ context.Context, out artifact.Artifact, th orchestrator.Thresholds) orchestrator.Verdict {
	w, ok := out.(*artifact.WireframeDescription)
	if !ok {
		return wrongKind(artifact.KindWireframe, out)
	}
	want := th.Get(MinChars, Defaults[orchestrator.StageWireframe][MinChars])
	if n := utf8.RuneCountInString(strings.TrimSpace(w.Text)); float64(n) < want {
		return orchestrator.Reject("wireframe description has %d characters, want at least %.0f", n, want)
	}
	return orchestrator.Accept()
}

func (Wireframe) ValidateThresholds(th orchestrator.Thresholds) error {
	return validateKnown(th, []string{MinChars})
}
