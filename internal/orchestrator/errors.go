package orchestrator

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned by Store.GetAccepted when a stage has no
	// accepted attempt.
	ErrNotFound = errors.New("orchestrator: no accepted artifact")

	// ErrAlreadyAccepted is returned when writing to a stage whose artifact
	// was already accepted. The stored artifact is left untouched.
	ErrAlreadyAccepted = errors.New("orchestrator: stage already has an accepted artifact")

	// ErrAttemptOutOfOrder is returned when attempt indices skip or repeat.
	ErrAttemptOutOfOrder = errors.New("orchestrator: attempt index out of order")

	// ErrAttemptLimit is returned when an attempt index exceeds the stage's
	// retry bound.
	ErrAttemptLimit = errors.New("orchestrator: attempt exceeds retry limit")
)

// FailureClass tells retryable failure kinds apart in the attempt log.
type FailureClass string

const (
	FailureNone      FailureClass = ""
	FailureTransient FailureClass = "transient"
	FailureQuality   FailureClass = "quality"
)

// TransientFailure is an I/O, timeout or generator-reported failure. It is
// retryable.
type TransientFailure struct {
	Reason string
	Err    error
}

func (e *TransientFailure) Error() string {
	switch {
	case e.Reason != "" && e.Err != nil:
		return e.Reason + ": " + e.Err.Error()
	case e.Reason != "":
		return e.Reason
	case e.Err != nil:
		return e.Err.Error()
	default:
		return "transient failure"
	}
}

func (e *TransientFailure) Unwrap() error { return e.Err }

// QualityRejection marks output that is structurally or semantically
// unusable. It is retryable.
type QualityRejection struct {
	Reason string
}

func (e *QualityRejection) Error() string { return e.Reason }

// Rejectf builds a QualityRejection from a format string.
func Rejectf(format string, args ...any) error {
	return &QualityRejection{Reason: fmt.Sprintf(format, args...)}
}

// StageExhaustedError reports a stage whose every attempt failed.
type StageExhaustedError struct {
	Stage      StageName
	Attempts   int
	LastReason string
}

func (e *StageExhaustedError) Error() string {
	return fmt.Sprintf("stage %s exhausted after %d attempts: %s", e.Stage, e.Attempts, e.LastReason)
}

// MissingDependencyError reports a stage that could not start because an
// upstream stage never produced an accepted artifact.
type MissingDependencyError struct {
	Stage      StageName
	Dependency StageName
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("stage %s skipped: dependency %s has no accepted artifact", e.Stage, e.Dependency)
}

// ConfigurationError rejects a run before any stage executes.
type ConfigurationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s %q: %s", e.Field, e.Value, e.Reason)
}

// CyclicGraphError reports a dependency cycle among the listed stages.
type CyclicGraphError struct {
	Stages []StageName
}

func (e *CyclicGraphError) Error() string {
	names := make([]string, len(e.Stages))
	for i, s := range e.Stages {
		names[i] = string(s)
	}
	return "orchestrator: dependency cycle among stages: " + strings.Join(names, ", ")
}

// UnknownDependencyError reports a stage depending on an undeclared stage.
type UnknownDependencyError struct {
	Stage      StageName
	Dependency StageName
}

func (e *UnknownDependencyError) Error() string {
	return fmt.Sprintf("orchestrator: stage %s depends on undeclared stage %s", e.Stage, e.Dependency)
}
