package orchestrator

import (
	"fmt"
	"sync"
	"time"

	"github.com/dusk-indust/uiforge/internal/artifact"
)

// Outcome is the recorded result of one attempt.
type Outcome string

const (
	OutcomeAccepted Outcome = "accepted"
	OutcomeRejected Outcome = "rejected" // output produced, gate said no
	OutcomeFailed   Outcome = "failed"   // generator error, timeout or malformed output
	OutcomeCanceled Outcome = "canceled"
)

// Attempt is one invocation of a stage. It is never modified once stored;
// later attempts supersede it.
type Attempt struct {
	Stage     StageName         `json:"stage" yaml:"stage"`
	Index     int               `json:"attempt" yaml:"attempt"`
	Inputs    []StageName       `json:"inputs,omitempty" yaml:"inputs,omitempty"`
	Output    artifact.Artifact `json:"-" yaml:"-"`
	Outcome   Outcome           `json:"verdict" yaml:"verdict"`
	Failure   FailureClass      `json:"failure,omitempty" yaml:"failure,omitempty"`
	Reason    string            `json:"reason,omitempty" yaml:"reason,omitempty"`
	StartedAt time.Time         `json:"started_at" yaml:"started_at"`
	Duration  time.Duration     `json:"-" yaml:"-"`

	// OuterAttempt is set on sub-step attempts: the attempt of the
	// enclosing stage they ran under.
	OuterAttempt int `json:"outer_attempt,omitempty" yaml:"outer_attempt,omitempty"`
}

// Accepted reports whether the attempt's output passed its gate.
func (a Attempt) Accepted() bool { return a.Outcome == OutcomeAccepted }

// EventType classifies entries of the run event log.
type EventType string

const (
	EventStageStarted    EventType = "stage_started"
	EventAttemptStarted  EventType = "attempt_started"
	EventAttemptAccepted EventType = "attempt_accepted"
	EventAttemptRejected EventType = "attempt_rejected"
	EventAttemptFailed   EventType = "attempt_failed"
	EventAttemptCanceled EventType = "attempt_canceled"
	EventStageExhausted  EventType = "stage_exhausted"
	EventStageSkipped    EventType = "stage_skipped"
	EventRunFinished     EventType = "run_finished"
)

// Event is one entry of the append-only run event log.
type Event struct {
	Seq     int       `json:"seq"`
	Time    time.Time `json:"time"`
	Stage   StageName `json:"stage,omitempty"`
	Attempt int       `json:"attempt,omitempty"`
	Type    EventType `json:"type"`
	Reason  string    `json:"reason,omitempty"`
}

// Store records every attempt of a run and the single accepted artifact per
// stage. Rejected attempts are append-only; the accepted artifact is
// write-once.
type Store struct {
	mu        sync.RWMutex
	limits    map[StageName]int
	attempts  map[StageName][]Attempt
	accepted  map[StageName]artifact.Artifact
	steps     []Attempt
	events    []Event
	observers []func(Event)

	// notifyMu keeps observer calls in event order without holding mu, so
	// observers may read the store.
	notifyMu sync.Mutex
	now      func() time.Time
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		limits:   make(map[StageName]int),
		attempts: make(map[StageName][]Attempt),
		accepted: make(map[StageName]artifact.Artifact),
		now:      time.Now,
	}
}

// SetLimit bounds the number of attempts Put accepts for stage.
func (s *Store) SetLimit(stage StageName, maxAttempts int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.limits[stage] = maxAttempts
}

// Put appends an attempt to its stage's log. Indices must be consecutive
// starting at 1. Once a stage has an accepted attempt every further Put for
// that stage fails with ErrAlreadyAccepted.
func (s *Store) Put(a Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accepted[a.Stage]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyAccepted, a.Stage)
	}
	if want := len(s.attempts[a.Stage]) + 1; a.Index != want {
		return fmt.Errorf("%w: %s got %d, want %d", ErrAttemptOutOfOrder, a.Stage, a.Index, want)
	}
	if limit := s.limits[a.Stage]; limit > 0 && a.Index > limit {
		return fmt.Errorf("%w: %s attempt %d of %d", ErrAttemptLimit, a.Stage, a.Index, limit)
	}
	if a.Accepted() && isNil(a.Output) {
		return fmt.Errorf("orchestrator: accepted attempt %s/%d has no output", a.Stage, a.Index)
	}

	a.Inputs = append([]StageName(nil), a.Inputs...)
	s.attempts[a.Stage] = append(s.attempts[a.Stage], a)
	if a.Accepted() {
		s.accepted[a.Stage] = a.Output
	}
	return nil
}

// RecordStep appends a sub-step attempt of a composite stage. Step attempts
// are a log only: they never count towards the stage's own attempts and are
// never returned by GetAccepted.
func (s *Store) RecordStep(a Attempt) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.Inputs = append([]StageName(nil), a.Inputs...)
	s.steps = append(s.steps, a)
}

// StepAttempts returns the recorded sub-step attempts in record order.
func (s *Store) StepAttempts() []Attempt {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Attempt(nil), s.steps...)
}

// GetAccepted returns the accepted artifact for stage or ErrNotFound.
func (s *Store) GetAccepted(stage StageName) (artifact.Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accepted[stage]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, stage)
	}
	return a, nil
}

// ListAttempts returns the stage's attempts in index order.
func (s *Store) ListAttempts(stage StageName) []Attempt {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Attempt(nil), s.attempts[stage]...)
}

// Emit appends an event to the log, stamping its sequence number and time,
// then notifies observers. Observers must not call Emit.
func (s *Store) Emit(e Event) Event {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	e.Seq = len(s.events) + 1
	if e.Time.IsZero() {
		e.Time = s.now()
	}
	s.events = append(s.events, e)
	observers := s.observers
	s.mu.Unlock()

	for _, fn := range observers {
		fn(e)
	}
	return e
}

// Events returns a copy of the event log.
func (s *Store) Events() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Event(nil), s.events...)
}

// Observe registers fn to receive every event emitted after the call.
func (s *Store) Observe(fn func(Event)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers[:len(s.observers):len(s.observers)], fn)
}
