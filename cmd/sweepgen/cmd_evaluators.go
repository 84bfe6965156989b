package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nvandessel/sweepgen/internal/evaluator"
)

func newEvaluatorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "evaluators",
		Short: "List the registered evaluators",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			infos := evaluator.Builtin().List()

			out := cmd.OutOrStdout()
			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				return json.NewEncoder(out).Encode(map[string]any{
					"evaluators": infos,
					"count":      len(infos),
				})
			}

			printDivider(out, "evaluators")
			for _, info := range infos {
				fmt.Fprintf(out, "  %s\n      %s\n", info.Name, info.Description)
				if len(info.Params) > 0 {
					fmt.Fprintf(out, "      params: %s\n", strings.Join(info.Params, ", "))
				}
			}
			return nil
		},
	}
}
