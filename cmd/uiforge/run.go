package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dusk-indust/uiforge/internal/orchestrator"
	"github.com/dusk-indust/uiforge/internal/runner"
	"github.com/dusk-indust/uiforge/internal/status"
)

type runFlags struct {
	image       string
	project     string
	agent       string
	packagePath string
	framework   string
	typeScript  bool
	description string
	dryRun      bool
	archive     bool
}

func (c *cli) newRunCmd() *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run --image PATH",
		Short: "Run the generation pipeline on a design image",
		Long: `Run every pipeline stage on a UI design image and persist the run
under output_dir/<run id>.

Stage generators are the A2A agents configured under generators.<stage>.
With --dry-run the built-in template generators are used instead.

Exit codes: 0 succeeded, 1 failed, 2 partially succeeded,
3 configuration error, 4 canceled, 5 other errors.

Examples:
  uiforge run --image design.png --project shop_admin --dry-run
  uiforge run --image design.png --framework vue2 --package com.acme --archive`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd, f)
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.image, "image", "i", "", "path to the UI design image (required)")
	fl.StringVarP(&f.project, "project", "p", "", "project name (default auto_generated_project)")
	fl.StringVar(&f.agent, "agent", orchestrator.AgentModePipeline, "agent mode; only pipeline is supported")
	fl.StringVar(&f.packagePath, "package", "", "base Java package of the backend (default com.demo)")
	fl.StringVar(&f.framework, "framework", "", "frontend framework: vue2 or vue3 (default vue3)")
	fl.BoolVar(&f.typeScript, "typescript", true, "generate the frontend in TypeScript; --typescript=false selects JavaScript")
	fl.StringVar(&f.description, "description", "", "project description passed to every generator")
	fl.BoolVar(&f.dryRun, "dry-run", false, "use the built-in template generators")
	fl.BoolVar(&f.archive, "archive", false, "upload the run directory to the configured archive bucket")
	_ = cmd.MarkFlagRequired("image")
	return cmd
}

func (c *cli) run(cmd *cobra.Command, f runFlags) error {
	overrides := make(map[string]any)
	set := func(flag, key string, v any) {
		if cmd.Flags().Changed(flag) {
			overrides[key] = v
		}
	}
	set("project", "project.name", f.project)
	set("package", "project.package_path", f.packagePath)
	set("framework", "project.framework", f.framework)
	set("typescript", "project.typescript", f.typeScript)
	set("description", "project.description", f.description)
	if f.archive {
		overrides["archive.enabled"] = true
	}

	cfg, err := c.loadConfig(overrides)
	if err != nil {
		return err
	}
	logger := c.logger(cfg)
	rc := cfg.RunConfig()
	rc.AgentMode = f.agent

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pr := orchestrator.NewProgressReporter()
	printer := newProgressPrinter(c.stdout)
	printer.consume(pr)

	r := runner.New(cfg, runner.WithLogger(logger))
	out, runErr := r.Run(ctx, runner.Request{
		Image:    f.image,
		Config:   rc,
		DryRun:   f.dryRun,
		Progress: pr,
	})
	pr.Close()
	printer.wait()

	if out == nil {
		return runErr
	}
	c.printOutcome(out, cfg.Archive.Bucket)
	return statusExit(out.Result.Run.Status, runErr)
}

func (c *cli) printOutcome(out *runner.Outcome, bucket string) {
	rs := status.FromSummary(out.Summary)
	fmt.Fprintln(c.stdout)
	fmt.Fprintf(c.stdout, "Run %s: %s\n\n", rs.ID, runStatusColor(rs.Status))
	printStageTable(c.stdout, rs)

	if len(rs.Coherence) > 0 {
		fmt.Fprintln(c.stdout)
		fmt.Fprintln(c.stdout, color.YellowString("Coherence warnings:"))
		for _, issue := range rs.Coherence {
			fmt.Fprintf(c.stdout, "  %s: %s\n", issue.Source, issue.Description)
		}
	}
	fmt.Fprintf(c.stdout, "\nOutput: %s\n", out.Dir)
	if out.Archived > 0 {
		fmt.Fprintf(c.stdout, "Archived %d objects to bucket %s\n", out.Archived, bucket)
	}
}
