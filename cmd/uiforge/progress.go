package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/dusk-indust/uiforge/internal/orchestrator"
)

// progressPrinter renders progress events as colored lines. On a terminal a
// spinner shows the stage currently working.
type progressPrinter struct {
	w       io.Writer
	spinner *spinner.Spinner
	done    chan struct{}
}

// isTerminal reports whether w is a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func newProgressPrinter(w io.Writer) *progressPrinter {
	p := &progressPrinter{w: w, done: make(chan struct{})}
	if isTerminal(w) {
		p.spinner = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
	}
	return p
}

// consume prints every event of pr until it is closed.
func (p *progressPrinter) consume(pr *orchestrator.ProgressReporter) {
	go func() {
		defer close(p.done)
		for ev := range pr.Subscribe() {
			p.print(ev)
		}
		if p.spinner != nil {
			p.spinner.Stop()
		}
	}()
}

// wait blocks until the reporter is closed and drained.
func (p *progressPrinter) wait() { <-p.done }

func (p *progressPrinter) print(ev orchestrator.ProgressEvent) {
	if p.spinner != nil {
		p.spinner.Stop()
	}
	fmt.Fprintln(p.w, colorProgress(ev))
	if p.spinner != nil && ev.Status == orchestrator.ProgressWorking {
		p.spinner.Suffix = fmt.Sprintf(" %s attempt %d", ev.Stage, ev.Attempt)
		p.spinner.Start()
	}
}

func colorProgress(ev orchestrator.ProgressEvent) string {
	line := orchestrator.FormatProgress(ev)
	switch ev.Status {
	case orchestrator.ProgressComplete:
		return color.GreenString(line)
	case orchestrator.ProgressRetrying:
		return color.YellowString(line)
	case orchestrator.ProgressFailed:
		return color.RedString(line)
	case orchestrator.ProgressSkipped, orchestrator.ProgressPending:
		return color.New(color.Faint).Sprint(line)
	}
	return line
}

// stateColor colors a stage state for tables.
func stateColor(state orchestrator.StageState) string {
	s := string(state)
	switch state {
	case orchestrator.StateAccepted:
		return color.GreenString(s)
	case orchestrator.StateExhausted:
		return color.RedString(s)
	case orchestrator.StateSkipped, orchestrator.StateCanceled:
		return color.YellowString(s)
	}
	return color.New(color.Faint).Sprint(s)
}

// runStatusColor colors a run status.
func runStatusColor(s orchestrator.RunStatus) string {
	switch s {
	case orchestrator.RunSucceeded:
		return color.New(color.FgGreen, color.Bold).Sprint(string(s))
	case orchestrator.RunPartiallySucceeded, orchestrator.RunCanceled:
		return color.New(color.FgYellow, color.Bold).Sprint(string(s))
	case orchestrator.RunFailed:
		return color.New(color.FgRed, color.Bold).Sprint(string(s))
	}
	return color.CyanString(string(s))
}
