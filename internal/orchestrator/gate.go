package orchestrator

import (
	"context"
	"fmt"
	"reflect"

	"github.com/dusk-indust/uiforge/internal/artifact"
)

// Verdict is a gate's classification of one output.
type Verdict struct {
	Accepted bool
	Reason   string
}

// Accept returns an accepting verdict.
func Accept() Verdict { return Verdict{Accepted: true} }

// Reject returns a rejecting verdict with a formatted reason.
func Reject(format string, args ...any) Verdict {
	return Verdict{Reason: fmt.Sprintf(format, args...)}
}

// Thresholds are the named numeric knobs of a stage's gate.
type Thresholds map[string]float64

// Get returns the threshold called name, or def when unset.
func (t Thresholds) Get(name string, def float64) float64 {
	if v, ok := t[name]; ok {
		return v
	}
	return def
}

// Gate decides whether a stage output is usable. Gates classify; they never
// modify the artifact they are given.
type Gate interface {
	Evaluate(ctx context.Context, out artifact.Artifact, th Thresholds) Verdict
}

// ThresholdValidator is implemented by gates that constrain their
// thresholds beyond non-negativity. It is consulted at run start.
type ThresholdValidator interface {
	ValidateThresholds(th Thresholds) error
}

// GateFunc adapts a function to the Gate interface.
type GateFunc func(ctx context.Context, out artifact.Artifact, th Thresholds) Verdict

// Evaluate calls f.
func (f GateFunc) Evaluate(ctx context.Context, out artifact.Artifact, th Thresholds) Verdict {
	return f(ctx, out, th)
}

// Chain evaluates gates in order and returns the first rejection. Nil gates
// are skipped.
func Chain(gates ...Gate) Gate {
	return GateFunc(func(ctx context.Context, out artifact.Artifact, th Thresholds) Verdict {
		for _, g := range gates {
			if g == nil {
				continue
			}
			if v := g.Evaluate(ctx, out, th); !v.Accepted {
				return v
			}
			if ctx.Err() != nil {
				return Reject("gate evaluation interrupted: %v", ctx.Err())
			}
		}
		return Accept()
	})
}

// Universal holds the checks every stage output must pass: it must exist,
// be non-empty and conform to its artifact's structural shape.
var Universal Gate = GateFunc(func(_ context.Context, out artifact.Artifact, _ Thresholds) Verdict {
	if isNil(out) {
		return Reject("stage produced no output")
	}
	if out.Empty() {
		return Reject("%s output is empty", out.Kind())
	}
	if err := out.Validate(); err != nil {
		return Reject("%s output has invalid shape: %v", out.Kind(), err)
	}
	return Accept()
})

func isNil(a artifact.Artifact) bool {
	if a == nil {
		return true
	}
	v := reflect.ValueOf(a)
	return v.Kind() == reflect.Pointer && v.IsNil()
}
