// Package gate holds the stage-specific quality gates. Every gate is
// registered against one stage and runs after the universal checks of the
// orchestrator package, so it may assume a non-empty, well-shaped artifact
// of the expected kind.
package gate

import (
	"fmt"
	"math"
	"sort"

	"github.com/dusk-indust/uiforge/internal/artifact"
	"github.com/dusk-indust/uiforge/internal/orchestrator"
)

// Threshold names understood by the gates.
const (
	MinChars        = "min_chars"
	MinElements     = "min_elements"
	MaxUnclosed     = "max_unclosed"
	Coverage        = "coverage"
	MinFiles        = "min_files"
	MaxSyntaxErrors = "max_syntax_errors"
)

// Defaults lists the default thresholds of each stage gate.
var Defaults = map[orchestrator.StageName]orchestrator.Thresholds{
	orchestrator.StageWireframe: {MinChars: 40},
	orchestrator.StagePrototype: {MinElements: 5, MaxUnclosed: 0},
	orchestrator.StageAPIDoc:    {Coverage: 1.0},
	orchestrator.StageFrontend:  {MinFiles: 5, MaxSyntaxErrors: 0},
	orchestrator.StageBackend:   {MinFiles: 5},
}

// For returns the gate registered for stage, or nil when the stage has only
// the universal checks.
func For(stage orchestrator.StageName) orchestrator.Gate {
	switch stage {
	case orchestrator.StageWireframe:
		return Wireframe{}
	case orchestrator.StagePrototype:
		return Prototype{}
	case orchestrator.StageAPIDoc:
		return APIDocument{}
	case orchestrator.StageFrontend:
		return NewFrontend(nil)
	case orchestrator.StageBackend:
		return Backend{}
	}
	return nil
}

// WithDefaults returns th layered over the stage's default thresholds.
func WithDefaults(stage orchestrator.StageName, th orchestrator.Thresholds) orchestrator.Thresholds {
	out := make(orchestrator.Thresholds, len(Defaults[stage])+len(th))
	for k, v := range Defaults[stage] {
		out[k] = v
	}
	for k, v := range th {
		out[k] = v
	}
	return out
}

// validateKnown rejects unknown threshold names, non-integral counts and
// fractions outside [0, 1].
func validateKnown(th orchestrator.Thresholds, counts []string, fractions ...string) error {
	kind := make(map[string]string, len(counts)+len(fractions))
	for _, c := range counts {
		kind[c] = "count"
	}
	for _, f := range fractions {
		kind[f] = "fraction"
	}
	var unknown []string
	for name, v := range th {
		switch kind[name] {
		case "count":
			if v != math.Trunc(v) {
				return fmt.Errorf("%s must be a whole number, got %v", name, v)
			}
		case "fraction":
			if v < 0 || v > 1 {
				return fmt.Errorf("%s must be between 0 and 1, got %v", name, v)
			}
		default:
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("unknown thresholds %v", unknown)
	}
	return nil
}

func wrongKind(want artifact.Kind, got artifact.Artifact) orchestrator.Verdict {
	return orchestrator.Reject("expected %s output, got %s", want, got.Kind())
}
