package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dusk-indust/uiforge/internal/artifact"
)

// Controller runs a stage until its gate accepts an output or the stage's
// retry bound is spent. Attempts of one stage never overlap.
type Controller struct {
	store  *Store
	logger *slog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
	now    func() time.Time
}

// NewController creates a Controller that records attempts in store.
func NewController(store *Store, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Controller{
		store:  store,
		logger: logger,
		sleep:  sleepContext,
		now:    time.Now,
	}
}

// Run invokes spec.Stage up to spec.Policy.MaxRetries times with the same
// inputs. Each attempt, accepted or not, is appended to the store. It
// returns the accepted attempt, a *StageExhaustedError carrying the last
// failure reason, or the context error when ctx is done.
func (c *Controller) Run(ctx context.Context, spec StageSpec, in Inputs, cfg RunConfig) (Attempt, error) {
	policy := spec.Policy
	gate := Chain(Universal, spec.Gate)
	deps := in.Names()
	log := c.logger.With("stage", string(spec.Name))

	var last Attempt
	for i := 1; i <= policy.MaxRetries; i++ {
		if err := ctx.Err(); err != nil {
			return last, err
		}
		if i > 1 && policy.Backoff > 0 {
			if err := c.sleep(ctx, policy.Backoff*time.Duration(i-1)); err != nil {
				return last, err
			}
		}

		c.store.Emit(Event{Stage: spec.Name, Attempt: i, Type: EventAttemptStarted})
		start := c.now()
		att := c.attempt(ctx, spec, gate, in.WithAttempt(i), cfg)
		att.Stage = spec.Name
		att.Index = i
		att.Inputs = deps
		att.StartedAt = start
		att.Duration = c.now().Sub(start)

		if err := c.store.Put(att); err != nil {
			return att, fmt.Errorf("orchestrator: record attempt: %w", err)
		}
		c.store.Emit(Event{Stage: spec.Name, Attempt: i, Type: attemptEvent(att.Outcome), Reason: att.Reason})
		log.Info("attempt finished",
			"attempt", i,
			"max_retries", policy.MaxRetries,
			"verdict", string(att.Outcome),
			"reason", att.Reason,
			"duration", att.Duration,
		)

		switch att.Outcome {
		case OutcomeAccepted:
			return att, nil
		case OutcomeCanceled:
			return att, ctx.Err()
		}
		last = att
	}

	c.store.Emit(Event{Stage: spec.Name, Attempt: last.Index, Type: EventStageExhausted, Reason: last.Reason})
	log.Warn("stage exhausted", "attempts", policy.MaxRetries, "reason", last.Reason)
	return last, &StageExhaustedError{
		Stage:      spec.Name,
		Attempts:   policy.MaxRetries,
		LastReason: last.Reason,
	}
}

// attempt performs one generate-then-evaluate cycle under the per-attempt
// timeout and classifies the result.
func (c *Controller) attempt(ctx context.Context, spec StageSpec, gate Gate, in Inputs, cfg RunConfig) Attempt {
	actx := withParent(withRunConfig(ctx, cfg), c.store)
	if spec.Policy.Timeout > 0 {
		var cancel context.CancelFunc
		actx, cancel = context.WithTimeout(actx, spec.Policy.Timeout)
		defer cancel()
	}

	out, err := spec.Stage.Generate(actx, in, cfg)
	if ctx.Err() != nil {
		return Attempt{Outcome: OutcomeCanceled, Reason: "run canceled: " + ctx.Err().Error()}
	}
	if err != nil {
		return failedAttempt(actx, spec.Policy.Timeout, err)
	}

	v := gate.Evaluate(actx, out, spec.Policy.GateThresholds)
	if ctx.Err() != nil {
		return Attempt{Outcome: OutcomeCanceled, Reason: "run canceled: " + ctx.Err().Error()}
	}
	if !v.Accepted {
		if errors.Is(actx.Err(), context.DeadlineExceeded) {
			return timedOut(spec.Policy.Timeout)
		}
		return Attempt{Outcome: OutcomeRejected, Failure: FailureQuality, Reason: v.Reason, Output: out}
	}
	return Attempt{Outcome: OutcomeAccepted, Output: out}
}

func failedAttempt(actx context.Context, timeout time.Duration, err error) Attempt {
	if errors.Is(actx.Err(), context.DeadlineExceeded) {
		return timedOut(timeout)
	}
	var qr *QualityRejection
	if errors.As(err, &qr) {
		return Attempt{Outcome: OutcomeFailed, Failure: FailureQuality, Reason: qr.Reason}
	}
	return Attempt{Outcome: OutcomeFailed, Failure: FailureTransient, Reason: err.Error()}
}

func timedOut(timeout time.Duration) Attempt {
	return Attempt{
		Outcome: OutcomeFailed,
		Failure: FailureTransient,
		Reason:  fmt.Sprintf("attempt timed out after %s", timeout),
	}
}

func attemptEvent(o Outcome) EventType {
	switch o {
	case OutcomeAccepted:
		return EventAttemptAccepted
	case OutcomeRejected:
		return EventAttemptRejected
	case OutcomeCanceled:
		return EventAttemptCanceled
	default:
		return EventAttemptFailed
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// acceptedKind returns the artifact kind of an accepted attempt.
func acceptedKind(a Attempt) artifact.Kind {
	if isNil(a.Output) {
		return ""
	}
	return a.Output.Kind()
}
