package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/uiforge/internal/orchestrator"
	"github.com/dusk-indust/uiforge/internal/runstore"
)

func (c *cli) newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch RUN_ID",
		Short: "Follow the event log of a run until it finishes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig(nil)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			dir := cfg.RunDir(args[0])
			var last orchestrator.Event
			err = runstore.Follow(ctx, dir, func(e orchestrator.Event) {
				last = e
				if line, ok := eventLine(e); ok {
					fmt.Fprintln(c.stdout, line)
				}
			})
			if err != nil {
				return err
			}
			if last.Type == orchestrator.EventRunFinished {
				fmt.Fprintf(c.stdout, "\nRun %s: %s\n", args[0], runStatusColor(orchestrator.RunStatus(last.Reason)))
			}
			return nil
		},
	}
}

// eventLine renders an event like a live progress line. Sub-step events
// are indented under their stage.
func eventLine(e orchestrator.Event) (string, bool) {
	pe, ok := orchestrator.ProgressFromEvent(e)
	if !ok {
		return "", false
	}
	line := colorProgress(pe)
	if strings.Contains(string(e.Stage), "/") {
		line = "  " + line
	}
	return line, true
}
