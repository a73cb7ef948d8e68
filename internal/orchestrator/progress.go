package orchestrator

import (
	"fmt"
	"sync"
)

// ProgressStatus is the display state of a stage or attempt.
type ProgressStatus string

const (
	ProgressPending  ProgressStatus = "pending"
	ProgressWorking  ProgressStatus = "working"
	ProgressRetrying ProgressStatus = "retrying"
	ProgressComplete ProgressStatus = "complete"
	ProgressFailed   ProgressStatus = "failed"
	ProgressSkipped  ProgressStatus = "skipped"
)

// ProgressEvent is emitted to the user during a run.
type ProgressEvent struct {
	Stage   StageName
	Attempt int
	Status  ProgressStatus
	Message string
}

// ProgressReporter emits progress events through a buffered channel.
type ProgressReporter struct {
	mu     sync.Mutex
	closed bool
	ch     chan ProgressEvent
}

// NewProgressReporter creates a ProgressReporter with a buffered channel of size 64.
func NewProgressReporter() *ProgressReporter {
	return &ProgressReporter{
		ch: make(chan ProgressEvent, 64),
	}
}

// Emit sends a progress event in a non-blocking fashion.
// If the channel is full or closed, the event is dropped.
func (pr *ProgressReporter) Emit(event ProgressEvent) {
	pr.mu.Lock()
	defer pr.mu.Unlock()
	if pr.closed {
		return
	}
	select {
	case pr.ch <- event:
	default:
	}
}

// Subscribe returns a read-only channel for consuming progress events.
func (pr *ProgressReporter) Subscribe() <-chan ProgressEvent {
	return pr.ch
}

// Close closes the progress event channel. It is safe to call twice.
func (pr *ProgressReporter) Close() {
	pr.mu.Lock()
	defer pr.mu.Unlock()
	if !pr.closed {
		pr.closed = true
		close(pr.ch)
	}
}

// fromEvent translates run log events into progress events.
func (pr *ProgressReporter) fromEvent(e Event) {
	if pe, ok := ProgressFromEvent(e); ok {
		pr.Emit(pe)
	}
}

// ProgressFromEvent maps a run log event to its progress event. Events
// without a display state, such as run_finished, report false.
func ProgressFromEvent(e Event) (ProgressEvent, bool) {
	var status ProgressStatus
	switch e.Type {
	case EventStageStarted:
		status = ProgressPending
	case EventAttemptStarted:
		status = ProgressWorking
	case EventAttemptRejected, EventAttemptFailed:
		status = ProgressRetrying
	case EventAttemptAccepted:
		status = ProgressComplete
	case EventStageExhausted:
		status = ProgressFailed
	case EventStageSkipped:
		status = ProgressSkipped
	default:
		return ProgressEvent{}, false
	}
	return ProgressEvent{Stage: e.Stage, Attempt: e.Attempt, Status: status, Message: e.Reason}, true
}

// FormatProgress formats a ProgressEvent as a human-readable status line.
func FormatProgress(event ProgressEvent) string {
	switch event.Status {
	case ProgressPending:
		return fmt.Sprintf("  ○ %s (pending)", event.Stage)
	case ProgressWorking:
		return fmt.Sprintf("  ● %s attempt %d...", event.Stage, event.Attempt)
	case ProgressRetrying:
		return fmt.Sprintf("  ↻ %s attempt %d rejected: %s", event.Stage, event.Attempt, event.Message)
	case ProgressComplete:
		return fmt.Sprintf("  ✓ %s accepted (attempt %d)", event.Stage, event.Attempt)
	case ProgressFailed:
		return fmt.Sprintf("  ✗ %s failed: %s", event.Stage, event.Message)
	case ProgressSkipped:
		return fmt.Sprintf("  - %s skipped: %s", event.Stage, event.Message)
	default:
		return fmt.Sprintf("  ? %s (unknown status)", event.Stage)
	}
}
