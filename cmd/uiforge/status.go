package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/uiforge/internal/status"
)

func (c *cli) newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status [RUN_ID]",
		Short: "Show the per-stage status of a run (default: the latest run)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			cfg, err := c.loadConfig(nil)
			if err != nil {
				return err
			}
			var rs *status.RunStatus
			if len(args) == 1 {
				rs, err = status.GetRunStatus(cfg.OutputDir, args[0])
				if err != nil {
					return err
				}
			} else {
				runs, err := status.ListRuns(cfg.OutputDir)
				if err != nil {
					return err
				}
				if len(runs) == 0 {
					fmt.Fprintln(c.stdout, "No runs found.")
					fmt.Fprintln(c.stdout, "Run 'uiforge run --image <design>' to start one.")
					return nil
				}
				rs = &runs[0]
			}
			printSingleStatus(c.stdout, *rs)
			return nil
		},
	}
}

func (c *cli) newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := c.loadConfig(nil)
			if err != nil {
				return err
			}
			runs, err := status.ListRuns(cfg.OutputDir)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(c.stdout, "No runs found.")
				return nil
			}
			for _, rs := range runs {
				accepted, total := rs.Counts()
				fmt.Fprintf(c.stdout, "%-36s  %-24s  %-20s  %d/%d  %s\n",
					rs.ID, rs.Project, runStatusColor(rs.Status), accepted, total,
					rs.StartedAt.Local().Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
}

func printSingleStatus(w io.Writer, rs status.RunStatus) {
	fmt.Fprintf(w, "Run: %s\n", rs.ID)
	fmt.Fprintf(w, "Project: %s (%s)\n", rs.Project, rs.Framework)
	fmt.Fprintf(w, "Image: %s\n", rs.Image)
	fmt.Fprintf(w, "Status: %s\n\n", runStatusColor(rs.Status))
	printStageTable(w, rs)
}

func printStageTable(w io.Writer, rs status.RunStatus) {
	for _, si := range rs.Stages {
		marker := "  "
		if si.Stage == rs.NextStage {
			marker = "->"
		}
		fmt.Fprintf(w, "  %s %-22s %-10s attempts: %d", marker, si.Name, stateColor(si.State), si.Attempts)
		if si.Path != "" {
			fmt.Fprintf(w, "  %s", si.Path)
		}
		fmt.Fprintln(w)
		if si.LastReason != "" {
			fmt.Fprintf(w, "       last reason: %s\n", si.LastReason)
		}
	}

	accepted, total := rs.Counts()
	if accepted == total {
		fmt.Fprintln(w, "  All stages accepted.")
	}
}
