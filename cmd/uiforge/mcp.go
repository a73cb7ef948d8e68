package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/uiforge/internal/mcptools"
	"github.com/dusk-indust/uiforge/internal/runner"
)

func (c *cli) newMCPCmd() *cobra.Command {
	var httpAddr string
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Run the MCP server (stdio by default)",
		Long: `Expose run_pipeline, get_run_status, list_runs and trace_lineage as MCP
tools. Without --http the server speaks on stdio; logs go to stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := c.loadConfig(nil)
			if err != nil {
				return err
			}
			logger := c.logger(cfg)
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			r := runner.New(cfg, runner.WithLogger(logger))
			server := mcptools.NewMCPServer(mcptools.NewService(r, logger), cfg.MCP.Name)
			if httpAddr != "" {
				logger.Info("mcp: serving streamable HTTP", "addr", httpAddr)
				err = mcptools.RunHTTP(ctx, server, httpAddr)
			} else {
				err = mcptools.RunStdio(ctx, server)
			}
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&httpAddr, "http", "", "serve streamable HTTP on this address instead of stdio")
	return cmd
}
