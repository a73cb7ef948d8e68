package runstore

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dusk-indust/uiforge/internal/lineage"
	"github.com/dusk-indust/uiforge/internal/orchestrator"
)

// Load reads the summary of the run in dir. While the run is still
// executing its stage table is rebuilt from the event log.
func Load(dir string) (*Summary, error) {
	data, err := os.ReadFile(filepath.Join(dir, SummaryFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, filepath.Base(dir))
	}
	if err != nil {
		return nil, fmt.Errorf("runstore: read summary: %w", err)
	}
	var sum Summary
	if err := yaml.Unmarshal(data, &sum); err != nil {
		return nil, fmt.Errorf("runstore: decode summary: %w", err)
	}
	if !sum.Run.Status.IsTerminal() {
		events, err := ReadEvents(dir)
		if err != nil {
			return nil, err
		}
		sum.Stages = StagesFromEvents(events)
	}
	return &sum, nil
}

// ListRuns loads every run below root, newest first. Directories without a
// summary are skipped. A missing root yields no runs.
func ListRuns(root string) ([]Summary, error) {
	entries, err := os.ReadDir(root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("runstore: list runs: %w", err)
	}
	var out []Summary
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		sum, err := Load(filepath.Join(root, e.Name()))
		if errors.Is(err, ErrRunNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *sum)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Run.StartedAt.After(out[j].Run.StartedAt)
	})
	return out, nil
}

// ReadEvents parses events.jsonl. A missing log yields no events; a
// truncated last line, as seen while the run is writing, is ignored.
func ReadEvents(dir string) ([]orchestrator.Event, error) {
	f, err := os.Open(filepath.Join(dir, EventsFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("runstore: read events: %w", err)
	}
	defer f.Close()

	var events []orchestrator.Event
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var e orchestrator.Event
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			continue
		}
		events = append(events, e)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("runstore: read events: %w", err)
	}
	return events, nil
}

// ReadAttempts parses attempts.jsonl.
func ReadAttempts(dir string) ([]AttemptRecord, error) {
	f, err := os.Open(filepath.Join(dir, AttemptsFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("runstore: read attempts: %w", err)
	}
	defer f.Close()

	var out []AttemptRecord
	dec := json.NewDecoder(f)
	for dec.More() {
		var rec AttemptRecord
		if err := dec.Decode(&rec); err != nil {
			return nil, fmt.Errorf("runstore: decode attempts: %w", err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// ReadLineage parses lineage.json. A run without lineage yields an empty
// snapshot.
func ReadLineage(dir string) (*lineage.Snapshot, error) {
	data, err := os.ReadFile(filepath.Join(dir, LineageFile))
	if errors.Is(err, fs.ErrNotExist) {
		return &lineage.Snapshot{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("runstore: read lineage: %w", err)
	}
	var snap lineage.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("runstore: decode lineage: %w", err)
	}
	return &snap, nil
}

// StagesFromEvents rebuilds per-stage reports from an event log, in the
// order stages first appear. Sub-step events (stage/step) are folded out.
func StagesFromEvents(events []orchestrator.Event) []orchestrator.StageReport {
	var order []orchestrator.StageName
	reports := make(map[orchestrator.StageName]*orchestrator.StageReport)
	for _, e := range events {
		if e.Stage == "" || strings.Contains(string(e.Stage), "/") {
			continue
		}
		r, ok := reports[e.Stage]
		if !ok {
			r = &orchestrator.StageReport{Stage: e.Stage, State: orchestrator.StatePending}
			reports[e.Stage] = r
			order = append(order, e.Stage)
		}
		switch e.Type {
		case orchestrator.EventAttemptStarted:
			r.Attempts = e.Attempt
		case orchestrator.EventAttemptAccepted:
			r.State = orchestrator.StateAccepted
			r.LastReason = ""
		case orchestrator.EventAttemptRejected, orchestrator.EventAttemptFailed:
			r.LastReason = e.Reason
		case orchestrator.EventAttemptCanceled:
			r.State = orchestrator.StateCanceled
			r.LastReason = e.Reason
		case orchestrator.EventStageExhausted:
			r.State = orchestrator.StateExhausted
			r.LastReason = e.Reason
		case orchestrator.EventStageSkipped:
			r.State = orchestrator.StateSkipped
			r.LastReason = e.Reason
		}
	}
	out := make([]orchestrator.StageReport, 0, len(order))
	for _, name := range order {
		out = append(out, *reports[name])
	}
	return out
}
