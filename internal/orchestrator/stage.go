package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/dusk-indust/uiforge/internal/artifact"
)

// StageName identifies a pipeline stage.
type StageName string

const (
	StageWireframe StageName = "wireframe_generator"
	StagePrototype StageName = "wireframe_html"
	StageAPIDoc    StageName = "html_to_api_doc"
	StageFrontend  StageName = "html_to_vue"
	StageBackend   StageName = "html_to_springboot"
)

func (s StageName) String() string { return string(s) }

// Stage produces one artifact from the accepted outputs of its declared
// dependencies. Implementations delegate to an external generator and must
// honor ctx cancellation.
type Stage interface {
	Generate(ctx context.Context, in Inputs, cfg RunConfig) (artifact.Artifact, error)
}

// StageFunc adapts a function to the Stage interface.
type StageFunc func(ctx context.Context, in Inputs, cfg RunConfig) (artifact.Artifact, error)

// Generate calls f.
func (f StageFunc) Generate(ctx context.Context, in Inputs, cfg RunConfig) (artifact.Artifact, error) {
	return f(ctx, in, cfg)
}

// Policy is the per-stage retry and gate configuration.
type Policy struct {
	MaxRetries     int
	Timeout        time.Duration // per attempt; zero disables
	Backoff        time.Duration // multiplied by the number of attempts already spent
	GateThresholds Thresholds
}

// DefaultPolicy is applied to stages constructed without explicit settings.
var DefaultPolicy = Policy{MaxRetries: 3, Timeout: 10 * time.Minute, Backoff: 2 * time.Second}

func (p Policy) validate(stage StageName) error {
	if p.MaxRetries < 1 {
		return &ConfigurationError{
			Field:  fmt.Sprintf("stages.%s.max_retries", stage),
			Value:  fmt.Sprint(p.MaxRetries),
			Reason: "must be at least 1",
		}
	}
	if p.Timeout < 0 {
		return &ConfigurationError{
			Field:  fmt.Sprintf("stages.%s.timeout", stage),
			Value:  p.Timeout.String(),
			Reason: "must not be negative",
		}
	}
	if p.Backoff < 0 {
		return &ConfigurationError{
			Field:  fmt.Sprintf("stages.%s.backoff", stage),
			Value:  p.Backoff.String(),
			Reason: "must not be negative",
		}
	}
	for name, v := range p.GateThresholds {
		if v < 0 {
			return &ConfigurationError{
				Field:  fmt.Sprintf("stages.%s.gates.%s", stage, name),
				Value:  fmt.Sprint(v),
				Reason: "must not be negative",
			}
		}
	}
	return nil
}

// StageSpec is the static descriptor of a stage in a Graph.
type StageSpec struct {
	Name      StageName
	DependsOn []StageName
	Policy    Policy
	Gate      Gate // stage-specific checks; universal checks always run first
	Stage     Stage
}

// ImageRef points at the design image a run starts from.
type ImageRef struct {
	Path string `json:"path" yaml:"path"`
}

// Inputs carries the read-only accepted artifacts a stage declared as
// dependencies, plus the run image and the current attempt index.
type Inputs struct {
	Image   ImageRef
	Attempt int

	artifacts map[StageName]artifact.Artifact
}

// NewInputs builds Inputs over a copy of arts.
func NewInputs(image ImageRef, arts map[StageName]artifact.Artifact) Inputs {
	cp := make(map[StageName]artifact.Artifact, len(arts))
	for k, v := range arts {
		cp[k] = v
	}
	return Inputs{Image: image, artifacts: cp}
}

// Get returns the accepted artifact of a declared dependency.
func (in Inputs) Get(name StageName) (artifact.Artifact, bool) {
	a, ok := in.artifacts[name]
	return a, ok
}

// Names lists the dependencies present, sorted.
func (in Inputs) Names() []StageName {
	names := make([]StageName, 0, len(in.artifacts))
	for n := range in.artifacts {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// WithAttempt returns a copy of in tagged with the attempt index.
func (in Inputs) WithAttempt(i int) Inputs {
	in.Attempt = i
	return in
}

// with returns a copy of in extended by extra artifacts.
func (in Inputs) with(extra map[StageName]artifact.Artifact) Inputs {
	merged := make(map[StageName]artifact.Artifact, len(in.artifacts)+len(extra))
	for k, v := range in.artifacts {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	in.artifacts = merged
	return in
}

// Input fetches dependency name from in and asserts its concrete type.
func Input[T artifact.Artifact](in Inputs, name StageName) (T, error) {
	var zero T
	a, ok := in.Get(name)
	if !ok {
		return zero, fmt.Errorf("orchestrator: input %s not provided", name)
	}
	t, ok := a.(T)
	if !ok {
		return zero, fmt.Errorf("orchestrator: input %s is %s, not %T", name, a.Kind(), zero)
	}
	return t, nil
}
