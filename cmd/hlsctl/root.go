package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var envFlag, rootFlag, catalogFlag, ffmpegFlag, logLevelFlag string

	ctx := newCommandContext(&envFlag, &rootFlag, &catalogFlag, &ffmpegFlag, &logLevelFlag)

	rootCmd := &cobra.Command{
		Use:           "hlsctl",
		Short:         "Operate the HLS ingest pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&envFlag, "env-file", "", "Load environment from this file instead of .env")
	rootCmd.PersistentFlags().StringVar(&rootFlag, "root", "", "Published asset root (overrides PUBLISHED_ROOT)")
	rootCmd.PersistentFlags().StringVar(&catalogFlag, "catalog", "", "Catalog file (overrides CATALOG_PATH)")
	rootCmd.PersistentFlags().StringVar(&ffmpegFlag, "ffmpeg", "", "Encoder binary (overrides FFMPEG_PATH)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(newIngestCommand(ctx))
	rootCmd.AddCommand(newAuditCommand(ctx))
	rootCmd.AddCommand(newCatalogCommand(ctx))
	rootCmd.AddCommand(newStatusCommand(ctx))

	return rootCmd
}
