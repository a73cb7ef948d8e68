package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/dusk-indust/uiforge/internal/artifact"
)

// text wraps s in the simplest artifact kind.
func text(s string) artifact.Artifact {
	return &artifact.WireframeDescription{Text: s}
}

type step func(ctx context.Context, in Inputs) (artifact.Artifact, error)

func emit(s string) step {
	return func(context.Context, Inputs) (artifact.Artifact, error) { return text(s), nil }
}

func fail(err error) step {
	return func(context.Context, Inputs) (artifact.Artifact, error) { return nil, err }
}

func block() step {
	return func(ctx context.Context, _ Inputs) (artifact.Artifact, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
}

// scripted replays its steps in order, repeating the last one.
type scripted struct {
	mu     sync.Mutex
	calls  int
	inputs []Inputs
	steps  []step
}

func script(steps ...step) *scripted { return &scripted{steps: steps} }

func (s *scripted) Generate(ctx context.Context, in Inputs, _ RunConfig) (artifact.Artifact, error) {
	s.mu.Lock()
	i := s.calls
	s.calls++
	s.inputs = append(s.inputs, in)
	s.mu.Unlock()
	if i >= len(s.steps) {
		i = len(s.steps) - 1
	}
	return s.steps[i](ctx, in)
}

func (s *scripted) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *scripted) LastInputs() Inputs {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inputs[len(s.inputs)-1]
}

// minChars rejects text artifacts shorter than the min_chars threshold.
var minChars = GateFunc(func(_ context.Context, out artifact.Artifact, th Thresholds) Verdict {
	w, ok := out.(*artifact.WireframeDescription)
	if !ok {
		return Accept()
	}
	if want := th.Get("min_chars", 5); float64(len(w.Text)) < want {
		return Reject("text has %d chars, want at least %.0f", len(w.Text), want)
	}
	return Accept()
})

func testPolicy() Policy {
	return Policy{MaxRetries: 3, Timeout: time.Second, Backoff: time.Second}
}

// pipelineSpecs wires stages into the five-stage generation graph.
func pipelineSpecs(stages map[StageName]Stage) []StageSpec {
	deps := []struct {
		name StageName
		on   []StageName
	}{
		{StageWireframe, nil},
		{StagePrototype, []StageName{StageWireframe}},
		{StageAPIDoc, []StageName{StagePrototype}},
		{StageFrontend, []StageName{StagePrototype, StageAPIDoc}},
		{StageBackend, []StageName{StagePrototype, StageAPIDoc}},
	}
	specs := make([]StageSpec, 0, len(deps))
	for _, d := range deps {
		st := stages[d.name]
		if st == nil {
			st = script(emit(string(d.name) + " output"))
		}
		specs = append(specs, StageSpec{Name: d.name, DependsOn: d.on, Policy: testPolicy(), Gate: minChars, Stage: st})
	}
	return specs
}

func noSleep(context.Context, time.Duration) error { return nil }

// recordSleep collects requested backoff durations.
type recordSleep struct {
	mu sync.Mutex
	ds []time.Duration
}

func (r *recordSleep) sleep(_ context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ds = append(r.ds, d)
	return nil
}

func testImage() ImageRef { return ImageRef{Path: "design.png"} }

func eventTypes(events []Event, stage StageName) []EventType {
	var out []EventType
	for _, e := range events {
		if e.Stage == stage {
			out = append(out, e.Type)
		}
	}
	return out
}
