// Package runstore persists runs to disk, one directory per run, and reads
// them back for status, listing and export.
package runstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dusk-indust/uiforge/internal/lineage"
	"github.com/dusk-indust/uiforge/internal/orchestrator"
)

// Files of a run directory.
const (
	SummaryFile  = "run.yaml"
	AttemptsFile = "attempts.jsonl"
	EventsFile   = "events.jsonl"
	LineageFile  = "lineage.json"
)

// ErrRunNotFound is returned when a run directory has no summary.
var ErrRunNotFound = errors.New("runstore: run not found")

// Summary is the persisted form of a run: the Result without artifacts.
type Summary struct {
	Run       orchestrator.Run              `json:"run" yaml:"run"`
	Stages    []orchestrator.StageReport    `json:"stages" yaml:"stages"`
	Coherence []orchestrator.CoherenceIssue `json:"coherence,omitempty" yaml:"coherence,omitempty"`
	Missing   []orchestrator.StageName      `json:"missing,omitempty" yaml:"missing,omitempty"`
	Files     []string                      `json:"files,omitempty" yaml:"files,omitempty"`
}

// AttemptRecord is one line of attempts.jsonl. Sub-step attempts of a
// composite stage carry a "<stage>/<step>" name and the stage attempt they
// ran under.
type AttemptRecord struct {
	Stage        orchestrator.StageName    `json:"stage"`
	Attempt      int                       `json:"attempt"`
	OuterAttempt int                       `json:"outer_attempt,omitempty"`
	Verdict      orchestrator.Outcome      `json:"verdict"`
	Failure      orchestrator.FailureClass `json:"failure,omitempty"`
	Reason       string                    `json:"reason,omitempty"`
	StartedAt    time.Time                 `json:"started_at"`
	DurationMS   int64                     `json:"duration_ms"`
}

func attemptRecord(a orchestrator.Attempt) AttemptRecord {
	return AttemptRecord{
		Stage:        a.Stage,
		Attempt:      a.Index,
		OuterAttempt: a.OuterAttempt,
		Verdict:      a.Outcome,
		Failure:      a.Failure,
		Reason:       a.Reason,
		StartedAt:    a.StartedAt,
		DurationMS:   a.Duration.Milliseconds(),
	}
}

// Writer owns the directory of one run while it executes. Observe appends
// to events.jsonl as events happen; Finish writes everything else.
type Writer struct {
	dir    string
	run    orchestrator.Run
	logger *slog.Logger

	mu     sync.Mutex
	events *os.File
	enc    *json.Encoder
}

// Create makes root/<run.ID>, writes a running summary and opens the event
// log.
func Create(root string, run orchestrator.Run, logger *slog.Logger) (*Writer, error) {
	if run.ID == "" {
		return nil, errors.New("runstore: run has no id")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	dir := filepath.Join(root, run.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("runstore: create run dir: %w", err)
	}
	run.Status = orchestrator.RunRunning
	if err := writeYAML(filepath.Join(dir, SummaryFile), &Summary{Run: run}); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(filepath.Join(dir, EventsFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("runstore: open event log: %w", err)
	}
	return &Writer{
		dir:    dir,
		run:    run,
		logger: logger.With("run_id", run.ID),
		events: f,
		enc:    json.NewEncoder(f),
	}, nil
}

// Dir returns the run directory.
func (w *Writer) Dir() string { return w.dir }

// Observe appends e to events.jsonl. It has the signature of an
// orchestrator event observer; write failures are logged.
func (w *Writer) Observe(e orchestrator.Event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.events == nil {
		return
	}
	if err := w.enc.Encode(e); err != nil {
		w.logger.Warn("runstore: append event failed", "error", err)
	}
}

// Finish persists the artifacts, attempt log, lineage and final summary of
// res. The summary is written last so that a terminal run.yaml implies a
// complete directory. The event log is closed on every path.
func (w *Writer) Finish(ctx context.Context, res *orchestrator.Result, lin lineage.Store) (_ *Summary, err error) {
	defer func() {
		err = errors.Join(err, w.Close())
	}()
	if res == nil {
		return nil, errors.New("runstore: no result")
	}
	files, err := WriteArtifacts(w.dir, res)
	if err != nil {
		return nil, err
	}
	if err := w.writeAttempts(res); err != nil {
		return nil, err
	}
	if lin != nil {
		if err := w.writeLineage(ctx, lin); err != nil {
			return nil, err
		}
	}

	sum := &Summary{
		Run:       res.Run,
		Stages:    res.Stages,
		Coherence: res.Coherence,
		Files:     files,
	}
	if res.Bundle != nil {
		sum.Missing = res.Bundle.Missing
	}
	if err := writeYAML(filepath.Join(w.dir, SummaryFile), sum); err != nil {
		return nil, err
	}
	return sum, nil
}

// Abort closes the writer and removes the run directory. It is used when a
// run is rejected before any stage executes.
func (w *Writer) Abort() error {
	if err := w.Close(); err != nil {
		return err
	}
	if err := os.RemoveAll(w.dir); err != nil {
		return fmt.Errorf("runstore: remove run dir: %w", err)
	}
	return nil
}

// Close closes the event log. It is safe to call more than once.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.events == nil {
		return nil
	}
	err := w.events.Close()
	w.events = nil
	if err != nil {
		return fmt.Errorf("runstore: close event log: %w", err)
	}
	return nil
}

func (w *Writer) writeAttempts(res *orchestrator.Result) error {
	if res.Store == nil {
		return nil
	}
	f, err := os.Create(filepath.Join(w.dir, AttemptsFile))
	if err != nil {
		return fmt.Errorf("runstore: write attempts: %w", err)
	}
	defer f.Close()

	// Each stage attempt follows the sub-step attempts it ran.
	steps := res.Store.StepAttempts()
	enc := json.NewEncoder(f)
	for _, st := range res.Stages {
		prefix := string(st.Stage) + "/"
		for _, a := range res.Store.ListAttempts(st.Stage) {
			for _, sa := range steps {
				if sa.OuterAttempt != a.Index || !strings.HasPrefix(string(sa.Stage), prefix) {
					continue
				}
				if err := enc.Encode(attemptRecord(sa)); err != nil {
					return fmt.Errorf("runstore: write attempts: %w", err)
				}
			}
			if err := enc.Encode(attemptRecord(a)); err != nil {
				return fmt.Errorf("runstore: write attempts: %w", err)
			}
		}
	}
	return f.Close()
}

// writeLineage stores the part of the lineage graph that belongs to this
// run. A file-backed store may hold earlier runs too.
func (w *Writer) writeLineage(ctx context.Context, lin lineage.Store) error {
	snap, err := lin.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("runstore: lineage snapshot: %w", err)
	}
	own := &lineage.Snapshot{Nodes: []lineage.Node{}, Edges: []lineage.Edge{}}
	ids := make(map[string]bool)
	for _, n := range snap.Nodes {
		if n.RunID == w.run.ID {
			own.Nodes = append(own.Nodes, n)
			ids[n.ID] = true
		}
	}
	for _, e := range snap.Edges {
		if ids[e.TargetID] {
			own.Edges = append(own.Edges, e)
		}
	}
	return writeJSON(filepath.Join(w.dir, LineageFile), own)
}

func writeYAML(path string, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("runstore: encode %s: %w", filepath.Base(path), err)
	}
	if err := writeFileAtomic(path, data); err != nil {
		return fmt.Errorf("runstore: write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("runstore: encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("runstore: write %s: %w", filepath.Base(path), err)
	}
	return nil
}

// writeFileAtomic replaces path so readers never see a partial summary.
func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
