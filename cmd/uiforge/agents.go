package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dusk-indust/uiforge/internal/agent"
	"github.com/dusk-indust/uiforge/internal/generator"
	"github.com/dusk-indust/uiforge/internal/orchestrator"
	"github.com/dusk-indust/uiforge/internal/runner"
)

func (c *cli) newAgentsCmd() *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "agents",
		Short: "Probe the configured generator agents",
		Long: `Fetch the agent card of every configured generator endpoint and check
that it offers the skills its stage needs. Exits 1 when any agent is not
ready.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := c.loadConfig(nil)
			if err != nil {
				return err
			}
			endpoints := cfg.Endpoints()
			if len(endpoints) == 0 {
				fmt.Fprintln(c.stdout, "No generator endpoints configured.")
				fmt.Fprintln(c.stdout, "Set generators.<stage>.endpoint in uiforge.yml.")
				return nil
			}

			var targets []agent.Target
			for _, stage := range generator.Stages {
				if ep, ok := endpoints[stage]; ok {
					targets = append(targets, agent.Target{Name: string(stage), Endpoint: ep, Skills: generator.Skills(stage)})
				}
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			r := runner.New(cfg, runner.WithLogger(c.logger(cfg)))
			statuses, err := agent.NewRegistry(r.Client(), 4).Probe(ctx, targets)
			if err != nil {
				return err
			}

			ready := true
			for _, st := range statuses {
				ready = ready && st.Ready()
				mark := color.GreenString("ready")
				switch {
				case !st.Reachable:
					mark = color.RedString("unreachable")
				case len(st.Missing) > 0:
					mark = color.YellowString("incomplete")
				}
				fmt.Fprintf(c.stdout, "  %-20s %-40s %s", st.Name, st.Endpoint, mark)
				if st.Agent != "" {
					fmt.Fprintf(c.stdout, "  %s %s", st.Agent, st.Version)
				}
				fmt.Fprintln(c.stdout)
				if st.Error != "" {
					fmt.Fprintf(c.stdout, "       %s\n", st.Error)
				}
				for _, s := range st.Missing {
					fmt.Fprintf(c.stdout, "       missing skill %s\n", s)
				}
			}
			if !ready {
				return &exitError{code: ExitFailed}
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "overall probe timeout")
	return cmd
}

func (c *cli) newServeAgentCmd() *cobra.Command {
	var (
		stages []string
		addr   string
	)
	cmd := &cobra.Command{
		Use:   "serve-agent",
		Short: "Host the template generators behind an A2A endpoint",
		Long: `Serve the built-in template generators over A2A so that a local
pipeline can be wired against real HTTP endpoints. By default every stage's
skills are offered.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := c.loadConfig(nil)
			if err != nil {
				return err
			}
			logger := c.logger(cfg)

			var names []orchestrator.StageName
			for _, s := range stages {
				name := orchestrator.StageName(s)
				if !knownStage(name) {
					return &exitError{code: ExitConfig, err: &orchestrator.ConfigurationError{
						Field: "stage", Value: s, Reason: "unknown stage",
					}}
				}
				names = append(names, name)
			}

			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("listen %s: %w", addr, err)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			g := agent.NewGeneratorAgent("uiforge-template", version, generator.TemplateSkills(names...), logger)
			fmt.Fprintf(c.stdout, "Serving %d skills on http://%s\n", len(g.Card().Skills), ln.Addr())
			if err := g.Serve(ctx, ln); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&stages, "stage", nil, "stage to serve; repeatable (default: all)")
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	return cmd
}

func knownStage(name orchestrator.StageName) bool {
	for _, s := range generator.Stages {
		if s == name {
			return true
		}
	}
	return false
}
