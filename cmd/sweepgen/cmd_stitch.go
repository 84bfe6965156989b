package main

import (
	"encoding/json"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/nvandessel/sweepgen/internal/stitch"
)

func newStitchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stitch <build-dir> <output>",
		Short: "Re-stitch a kept build directory into a document",
		Long: `Rebuild a stitched document from a build directory kept with --keep-build.
The document is written from the directory's own test_bed.json and step
files and is byte-identical to the one written by the original run.

Examples:
  sweepgen stitch ~/.sweepgen/data/shannon_entropy/build_leak_rate leak_rate.json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := stitch.Restitch(args[0], args[1])
			if err != nil {
				return err
			}

			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(result)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stitched %d steps (%s) to %s\n",
				result.Steps, humanize.Bytes(uint64(result.Bytes)), result.Path)
			return nil
		},
	}
}
