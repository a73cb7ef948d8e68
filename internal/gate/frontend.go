package gate

import (
	"context"
	"strings"

	"github.com/dusk-indust/uiforge/internal/artifact"
	"github.com/dusk-indust/uiforge/internal/orchestrator"
)

// Frontend checks that the generated Vue project is for the framework the
// run requested, its layout and, when a syntax checker is available, that
// its scripts parse.
type Frontend struct {
	checker SyntaxChecker
}

// NewFrontend creates a Frontend gate. A nil checker selects the build's
// default, which is tree-sitter in cgo builds and none otherwise.
func NewFrontend(checker SyntaxChecker) *Frontend {
	if checker == nil {
		checker = newSyntaxChecker()
	}
	return &Frontend{checker: checker}
}

func (g *Frontend) Evaluate(ctx context.Context, out artifact.Artifact, th orchestrator.Thresholds) orchestrator.Verdict {
	p, ok := out.(*artifact.FrontendProject)
	if !ok {
		return wrongKind(artifact.KindFrontend, out)
	}
	if cfg, ok := orchestrator.RunConfigFrom(ctx); ok && cfg.Framework != "" && p.Framework != cfg.Framework {
		return orchestrator.Reject("frontend framework %s, run requested %s", p.Framework, cfg.Framework)
	}
	defaults := Defaults[orchestrator.StageFrontend]

	if want := th.Get(MinFiles, defaults[MinFiles]); float64(len(p.Files)) < want {
		return orchestrator.Reject("frontend project has %d files, want at least %.0f", len(p.Files), want)
	}
	if entry := p.Framework.EntryHTML(); artifact.FindFile(p.Files, entry) == nil {
		return orchestrator.Reject("frontend project is missing %s for %s", entry, p.Framework)
	}
	if !hasAny(p.Files, p.Framework.ConfigFiles()) {
		return orchestrator.Reject("frontend project has no build config (%s)", strings.Join(p.Framework.ConfigFiles(), " or "))
	}

	if g.checker == nil {
		return orchestrator.Accept()
	}
	var syntaxErrs []SyntaxError
	for _, s := range Scripts(p.Files) {
		if ctx.Err() != nil {
			return orchestrator.Reject("syntax check interrupted: %v", ctx.Err())
		}
		errs, err := g.checker.Check(s)
		if err != nil {
			return orchestrator.Reject("syntax check of %s failed: %v", s.File, err)
		}
		syntaxErrs = append(syntaxErrs, errs...)
	}
	if maxErrs := th.Get(MaxSyntaxErrors, defaults[MaxSyntaxErrors]); float64(len(syntaxErrs)) > maxErrs {
		locs := make([]string, 0, len(syntaxErrs))
		for _, e := range syntaxErrs {
			locs = append(locs, e.String())
		}
		return orchestrator.Reject("frontend scripts have %d syntax errors, allowed %.0f: %s",
			len(syntaxErrs), maxErrs, strings.Join(firstN(locs, 5), ", "))
	}
	return orchestrator.Accept()
}

func (g *Frontend) ValidateThresholds(th orchestrator.Thresholds) error {
	return validateKnown(th, []string{MinFiles, MaxSyntaxErrors})
}

func hasAny(files []artifact.File, names []string) bool {
	for _, n := range names {
		if artifact.FindFile(files, n) != nil {
			return true
		}
	}
	return false
}
