package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"hls-ingest/internal/ladder"
	"hls-ingest/internal/orchestrator"
)

func newIngestCommand(ctx *commandContext) *cobra.Command {
	var name string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "ingest <source>",
		Short: "Transcode a source file and publish it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source := args[0]
			info, err := os.Stat(source)
			if err != nil {
				return fmt.Errorf("%w: %w", orchestrator.ErrInvalidSource, err)
			}
			if !info.Mode().IsRegular() {
				return fmt.Errorf("%w: %s is not a regular file", orchestrator.ErrInvalidSource, source)
			}
			if name == "" {
				name = filepath.Base(source)
			}

			cfg := ctx.config()
			engine := ctx.engine()
			orch := orchestrator.New(orchestrator.Options{
				Engine:  engine,
				Prober:  orchestrator.NewFFmpegProber(engine),
				Catalog: ctx.catalogStore(),
				Shape:   ctx.shape(),
				Ladder:  ladder.Default(),
				Logger:  ctx.log(),
			})

			job := orch.Run(cmd.Context(), orchestrator.NewJob(uuid.NewString(), source, name, cfg.PublishedRoot))
			if asJSON {
				if err := writeJSON(cmd, job); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "asset_id: %s\nstate:    %s\n", job.AssetID, job.State)
				if job.URL != "" {
					fmt.Fprintf(out, "url:      %s\n", job.URL)
				}
			}
			if job.Err != nil {
				return job.Err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Original filename to record (defaults to the source basename)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the finished job as JSON")
	return cmd
}
