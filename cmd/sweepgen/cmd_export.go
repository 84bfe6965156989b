package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nvandessel/sweepgen/internal/export"
	"github.com/nvandessel/sweepgen/internal/stitch"
)

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <document>...",
		Short: "Export stitched documents to Arrow IPC files",
		Long: `Write each stitched document as an Arrow IPC file next to it (or to
--output for a single document). One row per artifact: step, value (null
unless the artifact is a number), values (numeric arrays) and raw JSON.
The test bed is stored in the schema metadata.

Examples:
  sweepgen export ~/.sweepgen/data/shannon_entropy/shannon_entropy1/*.json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output, _ := cmd.Flags().GetString("output")
			if output != "" && len(args) > 1 {
				return fmt.Errorf("--output needs exactly one document, got %d", len(args))
			}

			results := make([]*export.Result, 0, len(args))
			for _, path := range args {
				doc, err := stitch.ReadDocument(path)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				target := output
				if target == "" {
					target = export.PathFor(path)
				}
				res, err := export.WriteFile(doc, target)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				results = append(results, res)
			}

			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(results)
			}
			for _, r := range results {
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d rows to %s\n", r.Rows, r.Path)
			}
			return nil
		},
	}
	cmd.Flags().StringP("output", "o", "", "Arrow file to write (single document only)")
	return cmd
}
