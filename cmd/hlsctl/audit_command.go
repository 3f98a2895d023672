package main

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"hls-ingest/internal/audit"
)

// errDrift makes the process exit nonzero when an audit leaves assets broken.
var errDrift = errors.New("audit found unhealthy assets")

func newAuditCommand(ctx *commandContext) *cobra.Command {
	var repair, asJSON bool

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Check published assets against manifests and the catalog",
		Long: "Scan every asset directory under the published root. With --repair, " +
			"broken master manifests are rebuilt from the variant manifests or segments present.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := ctx.auditor()
			var (
				rep *audit.Report
				err error
			)
			if repair {
				rep, err = a.Repair(cmd.Context())
			} else {
				rep, err = a.Scan(cmd.Context())
			}
			if err != nil {
				return err
			}

			if asJSON {
				if err := writeJSON(cmd, rep); err != nil {
					return err
				}
			} else if err := printReport(cmd, rep); err != nil {
				return err
			}

			if unhealthy(rep) {
				return errDrift
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&repair, "repair", false, "Rewrite broken master manifests")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")
	return cmd
}

// unhealthy reports whether any asset is left unpublished or has a broken
// tier. Master findings are covered by Published, which reflects repairs.
func unhealthy(rep *audit.Report) bool {
	for _, a := range rep.Assets {
		if !a.Published {
			return true
		}
		for _, f := range a.Findings {
			if f.Severity == audit.SeverityError && f.Kind != audit.KindMissingMaster && f.Kind != audit.KindInvalidMaster {
				return true
			}
		}
	}
	return false
}

func printReport(cmd *cobra.Command, rep *audit.Report) error {
	out := cmd.OutOrStdout()
	findings := rep.Findings()
	if len(findings) > 0 {
		rows := make([][]string, 0, len(findings))
		for _, f := range findings {
			rows = append(rows, []string{f.AssetID, string(f.Severity), string(f.Kind), f.Tier, f.Detail})
		}
		if err := writeTable(out, []string{"Asset", "Severity", "Kind", "Tier", "Detail"}, rows, nil); err != nil {
			return err
		}
	}

	counts := rep.Counts()
	kinds := make([]string, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)

	mode := "scan"
	if rep.Repair {
		mode = "repair"
	}
	fmt.Fprintf(out, "%s: %d assets, %d findings\n", mode, len(rep.Assets), len(findings))
	for _, k := range kinds {
		fmt.Fprintf(out, "  %-20s %d\n", k, counts[audit.Kind(k)])
	}
	return nil
}
