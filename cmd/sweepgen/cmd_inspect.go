package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/nvandessel/sweepgen/internal/stitch"
)

// inspectResult is the --json form of inspect.
type inspectResult struct {
	Path      string            `json:"path"`
	SizeBytes int64             `json:"size_bytes"`
	TestBed   *stitch.TestBed   `json:"test_bed"`
	Swept     []string          `json:"swept"`
	Count     int               `json:"count"`
	Artifacts []json.RawMessage `json:"artifacts,omitempty"`
}

func newInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <document>",
		Short: "Summarize a stitched document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, _ := cmd.Flags().GetInt("artifacts")
			if n < 0 {
				return fmt.Errorf("--artifacts must be non-negative, got %d", n)
			}

			info, err := os.Stat(args[0])
			if err != nil {
				return fmt.Errorf("failed to stat document: %w", err)
			}
			doc, err := stitch.ReadDocument(args[0])
			if err != nil {
				return err
			}
			res := inspectResult{
				Path:      args[0],
				SizeBytes: info.Size(),
				TestBed:   doc.TestBed,
				Swept:     doc.Swept(),
				Count:     len(doc.Artifacts),
			}
			if res.Swept == nil {
				res.Swept = []string{}
			}
			res.Artifacts = doc.Artifacts[:min(n, len(doc.Artifacts))]

			out := cmd.OutOrStdout()
			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				return json.NewEncoder(out).Encode(res)
			}

			printDivider(out, "document")
			fmt.Fprintf(out, "  path:      %s\n", res.Path)
			fmt.Fprintf(out, "  size:      %s\n", humanize.Bytes(uint64(res.SizeBytes)))
			fmt.Fprintf(out, "  artifacts: %s\n", humanize.Comma(int64(res.Count)))
			fmt.Fprintln(out)
			printDivider(out, "test bed")
			for _, key := range doc.TestBed.Keys() {
				v, _ := doc.TestBed.Get(key)
				marker := ""
				for _, s := range res.Swept {
					if s == key {
						marker = "  (swept)"
					}
				}
				fmt.Fprintf(out, "  %-20s %s%s\n", key, formatValue(v), marker)
			}
			if len(res.Artifacts) > 0 {
				fmt.Fprintln(out)
				printDivider(out, "artifacts")
				for i, a := range res.Artifacts {
					fmt.Fprintf(out, "  %4d  %s\n", i, a)
				}
			}
			return nil
		},
	}
	cmd.Flags().Int("artifacts", 0, "Print the first N artifacts")
	return cmd
}

func formatValue(v any) string {
	if raw, ok := v.(json.RawMessage); ok {
		return string(raw)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
