package gate

import (
	"context"
	"path"
	"strings"

	"github.com/dusk-indust/uiforge/internal/artifact"
	"github.com/dusk-indust/uiforge/internal/orchestrator"
)

// Backend checks the generated SpringBoot project layout.
type Backend struct{}

func (Backend) Evaluate(_ context.Context, out artifact.Artifact, th orchestrator.Thresholds) orchestrator.Verdict {
	p, ok := out.(*artifact.BackendProject)
	if !ok {
		return wrongKind(artifact.KindBackend, out)
	}

	if want := th.Get(MinFiles, Defaults[orchestrator.StageBackend][MinFiles]); float64(len(p.Files)) < want {
		return orchestrator.Reject("backend project has %d files, want at least %.0f", len(p.Files), want)
	}
	if artifact.FindFile(p.Files, "pom.xml") == nil {
		return orchestrator.Reject("backend project has no pom.xml")
	}
	if strings.TrimSpace(p.Schema) == "" {
		return orchestrator.Reject("backend project has an empty schema")
	}
	dir := artifact.PackageDir(p.PackagePath)
	for _, f := range p.Files {
		if path.Dir(path.Clean(f.Path)) == dir && strings.HasSuffix(f.Path, "Application.java") {
			return orchestrator.Accept()
		}
	}
	return orchestrator.Reject("backend project has no *Application.java in %s", dir)
}

func (Backend) ValidateThresholds(th orchestrator.Thresholds) error {
	return validateKnown(th, []string{MinFiles})
}
