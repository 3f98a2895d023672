package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newCatalogCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect and maintain the asset catalog",
	}
	cmd.AddCommand(newCatalogListCommand(ctx))
	cmd.AddCommand(newCatalogMigrateCommand(ctx))
	return cmd
}

func newCatalogListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog entries, oldest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := ctx.catalogStore().ReadAll()
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, entries)
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "catalog is empty")
				return nil
			}

			now := time.Now()
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{
					e.ID,
					deref(e.OriginalName),
					formatSize(e.FileSizeMB),
					formatDuration(e.Duration),
					formatUploaded(e.UploadDate, now),
					e.URL,
				})
			}
			return writeTable(cmd.OutOrStdout(),
				[]string{"ID", "Name", "Size", "Duration", "Uploaded", "URL"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignLeft})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print entries as JSON")
	return cmd
}

func newCatalogMigrateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Rewrite legacy catalog lines into structured records",
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := ctx.catalogStore().MigrateLegacy()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrated %d %s\n", n, plural(n, "record", "records"))
			return nil
		},
	}
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

func formatSize(mb *float64) string {
	if mb == nil {
		return "-"
	}
	return humanize.IBytes(uint64(*mb * 1024 * 1024))
}

func formatDuration(sec *float64) string {
	if sec == nil {
		return "-"
	}
	return (time.Duration(*sec * float64(time.Second))).Round(time.Second).String()
}

func formatUploaded(t, now time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
