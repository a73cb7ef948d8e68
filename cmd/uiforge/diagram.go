package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/uiforge/internal/export"
	"github.com/dusk-indust/uiforge/internal/lineage"
	"github.com/dusk-indust/uiforge/internal/runstore"
	"github.com/dusk-indust/uiforge/internal/status"
)

func (c *cli) newDiagramCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diagram RUN_ID",
		Short: "Print the artifact lineage of a run as a Mermaid diagram",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig(nil)
			if err != nil {
				return err
			}
			rs, err := status.GetRunStatus(cfg.OutputDir, args[0])
			if err != nil {
				return err
			}
			snap, err := runstore.ReadLineage(rs.Dir)
			if err != nil {
				return err
			}

			store := lineage.NewMemStore()
			defer store.Close()
			if err := lineage.Load(cmd.Context(), store, snap); err != nil {
				return fmt.Errorf("load lineage: %w", err)
			}

			diagram, err := export.GenerateMermaid(cmd.Context(), store, rs)
			if err != nil {
				return err
			}
			fmt.Fprint(c.stdout, diagram)
			return nil
		},
	}
}
