package orchestrator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressReporter_EmitAndSubscribe(t *testing.T) {
	pr := NewProgressReporter()
	defer pr.Close()

	ch := pr.Subscribe()
	want := ProgressEvent{Stage: StagePrototype, Attempt: 1, Status: ProgressWorking}
	pr.Emit(want)

	select {
	case got := <-ch:
		assert.Equal(t, want, got)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for progress event")
	}
}

func TestProgressReporter_EmitWhenFull_DoesNotBlock(t *testing.T) {
	pr := NewProgressReporter()
	defer pr.Close()

	// The buffer holds 64 events; the rest must be dropped, not block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			pr.Emit(ProgressEvent{Stage: StageWireframe, Status: ProgressWorking})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Emit blocked when the channel was full")
	}
}

func TestProgressReporter_CloseTwiceAndEmitAfterClose(t *testing.T) {
	pr := NewProgressReporter()
	pr.Close()
	pr.Close()
	pr.Emit(ProgressEvent{Stage: StageWireframe, Status: ProgressComplete})

	_, ok := <-pr.Subscribe()
	assert.False(t, ok)
}

func TestProgressReporter_FromEvent(t *testing.T) {
	pr := NewProgressReporter()
	pr.fromEvent(Event{Stage: StageBackend, Attempt: 2, Type: EventAttemptRejected, Reason: "no pom.xml"})
	pr.fromEvent(Event{Type: EventRunFinished})
	pr.Close()

	var got []ProgressEvent
	for ev := range pr.Subscribe() {
		got = append(got, ev)
	}
	require.Len(t, got, 1)
	assert.Equal(t, ProgressEvent{Stage: StageBackend, Attempt: 2, Status: ProgressRetrying, Message: "no pom.xml"}, got[0])
}

func TestFormatProgress(t *testing.T) {
	tests := []struct {
		ev   ProgressEvent
		want string
	}{
		{ProgressEvent{Stage: StageWireframe, Status: ProgressPending}, "  ○ wireframe_generator (pending)"},
		{ProgressEvent{Stage: StageWireframe, Attempt: 1, Status: ProgressWorking}, "  ● wireframe_generator attempt 1..."},
		{ProgressEvent{Stage: StageWireframe, Attempt: 2, Status: ProgressRetrying, Message: "too short"}, "  ↻ wireframe_generator attempt 2 rejected: too short"},
		{ProgressEvent{Stage: StageWireframe, Attempt: 3, Status: ProgressComplete}, "  ✓ wireframe_generator accepted (attempt 3)"},
		{ProgressEvent{Stage: StageFrontend, Status: ProgressFailed, Message: "gate"}, "  ✗ html_to_vue failed: gate"},
		{ProgressEvent{Stage: StageBackend, Status: ProgressSkipped, Message: "dep"}, "  - html_to_springboot skipped: dep"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatProgress(tt.ev))
	}
}
