package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"hls-ingest/internal/orchestrator"
)

type statusView struct {
	Engine         orchestrator.EngineStatus `json:"engine"`
	PublishedRoot  string                    `json:"published_root"`
	CatalogPath    string                    `json:"catalog_path"`
	CatalogRecords int                       `json:"catalog_records"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show encoder availability and catalog size",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.config()
			store := ctx.catalogStore()
			n, err := store.Count()
			if err != nil {
				return err
			}
			view := statusView{
				Engine:         ctx.engine().Status(cmd.Context()),
				PublishedRoot:  cfg.PublishedRoot,
				CatalogPath:    store.Path(),
				CatalogRecords: n,
			}
			if asJSON {
				return writeJSON(cmd, view)
			}

			out := cmd.OutOrStdout()
			engine := "unavailable"
			if view.Engine.Available {
				engine = view.Engine.Version
			}
			fmt.Fprintf(out, "engine:  %s\n", engine)
			if view.Engine.Error != "" {
				fmt.Fprintf(out, "         %s\n", view.Engine.Error)
			}
			fmt.Fprintf(out, "root:    %s\n", view.PublishedRoot)
			fmt.Fprintf(out, "catalog: %s (%d %s)\n", view.CatalogPath, n, plural(n, "record", "records"))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print status as JSON")
	return cmd
}
