package runstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dusk-indust/uiforge/internal/orchestrator"
)

// followPoll backs up fsnotify, which can miss events on some filesystems.
const followPoll = 250 * time.Millisecond

// Follow calls fn for every event of the run in dir, the existing ones
// first, and keeps reading events.jsonl as it grows. It returns nil after
// the run_finished event, or once run.yaml turns terminal for a run whose
// writer died before logging it.
func Follow(ctx context.Context, dir string, fn func(orchestrator.Event)) error {
	if _, err := os.Stat(filepath.Join(dir, SummaryFile)); errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrRunNotFound, filepath.Base(dir))
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("runstore: follow: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("runstore: follow: %w", err)
	}

	t := &eventTail{path: filepath.Join(dir, EventsFile), fn: fn}
	ticker := time.NewTicker(followPoll)
	defer ticker.Stop()

	for {
		done, err := t.read()
		if err != nil || done {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-watcher.Events:
			if !ok {
				return nil
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("runstore: follow: %w", err)
		case <-ticker.C:
			sum, err := Load(dir)
			if err != nil {
				return err
			}
			if sum.Run.Status.IsTerminal() {
				_, err := t.read()
				return err
			}
		}
	}
}

// eventTail reads complete lines appended since the last read.
type eventTail struct {
	path    string
	fn      func(orchestrator.Event)
	offset  int64
	partial []byte
}

// read reports whether run_finished was seen.
func (t *eventTail) read() (bool, error) {
	f, err := os.Open(t.path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("runstore: follow: %w", err)
	}
	defer f.Close()

	if _, err := f.Seek(t.offset, io.SeekStart); err != nil {
		return false, fmt.Errorf("runstore: follow: %w", err)
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return false, fmt.Errorf("runstore: follow: %w", err)
	}
	t.offset += int64(len(data))
	t.partial = append(t.partial, data...)

	for {
		i := bytes.IndexByte(t.partial, '\n')
		if i < 0 {
			return false, nil
		}
		line := bytes.TrimSpace(t.partial[:i])
		t.partial = t.partial[i+1:]
		if len(line) == 0 {
			continue
		}
		var e orchestrator.Event
		if err := json.Unmarshal(line, &e); err != nil {
			continue
		}
		t.fn(e)
		if e.Type == orchestrator.EventRunFinished {
			return true, nil
		}
	}
}
