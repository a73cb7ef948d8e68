package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dusk-indust/uiforge/internal/artifact"
)

// ComposeFunc builds a Sequence's final artifact from its steps' accepted
// outputs.
type ComposeFunc func(outputs map[StageName]artifact.Artifact, in Inputs, cfg RunConfig) (artifact.Artifact, error)

// Sequence is a Stage made of private sub-stages. Each step runs under its
// own Controller and Gate exactly like a top-level stage, so retry and
// rejection semantics are the same at every level. Steps see the outer
// stage's inputs plus the outputs of the steps they depend on.
type Sequence struct {
	name    StageName
	steps   *Graph
	compose ComposeFunc
	logger  *slog.Logger
	sleep   func(ctx context.Context, d time.Duration) error
}

// SequenceOption configures a Sequence.
type SequenceOption func(*Sequence)

// WithSequenceLogger sets the logger used for step attempts.
func WithSequenceLogger(l *slog.Logger) SequenceOption {
	return func(s *Sequence) { s.logger = l }
}

// NewSequence creates a Sequence named after the stage it implements.
func NewSequence(name StageName, steps []StageSpec, compose ComposeFunc, opts ...SequenceOption) *Sequence {
	s := &Sequence{
		name:    name,
		steps:   NewGraph(steps...),
		compose: compose,
		sleep:   sleepContext,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	return s
}

// Steps returns the step descriptors in declaration order.
func (s *Sequence) Steps() []StageSpec { return s.steps.Specs() }

// Validate checks the step graph and step policies.
func (s *Sequence) Validate() error {
	if _, err := s.steps.Levels(); err != nil {
		return fmt.Errorf("orchestrator: %s steps: %w", s.name, err)
	}
	for _, st := range s.steps.Specs() {
		if st.Stage == nil {
			return &ConfigurationError{Field: fmt.Sprintf("stages.%s.%s", s.name, st.Name), Reason: "no generator configured"}
		}
		if err := st.Policy.validate(s.name + "." + st.Name); err != nil {
			return err
		}
	}
	if s.compose == nil {
		return fmt.Errorf("orchestrator: %s has no compose function", s.name)
	}
	return nil
}

// Generate runs every step in dependency order and composes the result.
// Step events are forwarded to the enclosing run's event log, prefixed with
// the sequence name. An exhausted step fails the whole attempt with the
// step's last reason, classified like that step's last failure.
func (s *Sequence) Generate(ctx context.Context, in Inputs, cfg RunConfig) (artifact.Artifact, error) {
	order, err := s.steps.ResolveOrder()
	if err != nil {
		return nil, err
	}

	store := NewStore()
	for _, st := range order {
		store.SetLimit(st.Name, st.Policy.MaxRetries)
	}
	if parent := parentStore(ctx); parent != nil {
		prefix := string(s.name) + "/"
		store.Observe(func(e Event) {
			e.Stage = StageName(prefix + string(e.Stage))
			e.Seq = 0
			parent.Emit(e)
		})
		defer forwardSteps(parent, store, order, StageName(prefix), in.Attempt)
	}

	ctl := NewController(store, s.logger.With("stage", string(s.name), "outer_attempt", in.Attempt))
	ctl.sleep = s.sleep

	outputs := make(map[StageName]artifact.Artifact, len(order))
	for _, st := range order {
		extra := make(map[StageName]artifact.Artifact, len(st.DependsOn))
		for _, d := range st.DependsOn {
			extra[d] = outputs[d]
		}
		stepIn := in.with(extra)

		att, err := ctl.Run(ctx, st, stepIn, cfg)
		if err == nil {
			outputs[st.Name] = att.Output
			continue
		}
		var exhausted *StageExhaustedError
		if !errors.As(err, &exhausted) {
			return nil, err
		}
		reason := fmt.Sprintf("%s: %s", st.Name, exhausted.LastReason)
		if att.Failure == FailureTransient {
			return nil, &TransientFailure{Reason: reason}
		}
		return nil, &QualityRejection{Reason: reason}
	}
	return s.compose(outputs, in, cfg)
}

// forwardSteps copies the step attempts of one outer attempt into the
// enclosing store, keyed "<sequence>/<step>".
func forwardSteps(parent, store *Store, order []StageSpec, prefix StageName, outer int) {
	record := func(a Attempt) {
		a.Stage = prefix + a.Stage
		if a.OuterAttempt == 0 {
			a.OuterAttempt = outer
		}
		parent.RecordStep(a)
	}
	for _, st := range order {
		for _, a := range store.ListAttempts(st.Name) {
			record(a)
		}
	}
	for _, a := range store.StepAttempts() {
		record(a)
	}
}

type parentKey struct{}

// withParent makes store reachable from stages that run nested attempts.
func withParent(ctx context.Context, store *Store) context.Context {
	return context.WithValue(ctx, parentKey{}, store)
}

func parentStore(ctx context.Context) *Store {
	s, _ := ctx.Value(parentKey{}).(*Store)
	return s
}

type runConfigKey struct{}

func withRunConfig(ctx context.Context, cfg RunConfig) context.Context {
	return context.WithValue(ctx, runConfigKey{}, cfg)
}

// RunConfigFrom returns the configuration of the run an attempt belongs
// to. Gates use it to compare an output with what the run asked for.
func RunConfigFrom(ctx context.Context) (RunConfig, bool) {
	cfg, ok := ctx.Value(runConfigKey{}).(RunConfig)
	return cfg, ok
}
