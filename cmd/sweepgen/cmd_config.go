package main

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/nvandessel/sweepgen/internal/config"
	"github.com/nvandessel/sweepgen/internal/pathutil"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show sweepgen configuration",
		Long: `Show the effective configuration: built-in defaults, then
~/.sweepgen/config.yaml (or --config), then SWEEPGEN_* environment variables.

Examples:
  sweepgen config list            # Show all settings
  sweepgen config list --yaml > ~/.sweepgen/config.yaml
  sweepgen config path            # Show the config file location`,
	}

	cmd.AddCommand(
		newConfigListCmd(),
		newConfigPathCmd(),
	)
	return cmd
}

func newConfigListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all configuration settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadSettings(cmd)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				return json.NewEncoder(out).Encode(cfg)
			}
			if yamlOut, _ := cmd.Flags().GetBool("yaml"); yamlOut {
				text, err := marshalYAML(cfg)
				if err != nil {
					return err
				}
				fmt.Fprint(out, text)
				return nil
			}

			fmt.Fprintln(out, "Logging:")
			fmt.Fprintf(out, "  logging.level:           %s\n", valueOrDefault(cfg.Logging.Level, "info"))
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Output:")
			fmt.Fprintf(out, "  output.dir:              %s\n", pathutil.RedactPath(cfg.Output.Dir))
			fmt.Fprintf(out, "  output.keep_build_path:  %v\n", cfg.Output.KeepBuildPath)
			fmt.Fprintf(out, "  output.seed:             %d\n", cfg.Output.Seed)
			fmt.Fprintf(out, "  output.input_policy:     %s\n", cfg.Output.InputPolicy)
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Naming:")
			fmt.Fprintf(out, "  naming.alphabet:         %s\n", cfg.Naming.Alphabet)
			fmt.Fprintf(out, "  naming.width:            %d\n", cfg.Naming.Width)
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Reservoir:")
			fmt.Fprintf(out, "  reservoir.distribution:  %s\n", valueOrDefault(cfg.Reservoir.Distribution, "uniform"))
			fmt.Fprintf(out, "  reservoir.ridge:         %g\n", cfg.Reservoir.Ridge)
			table, err := cfg.DefaultsTable()
			if err != nil {
				return err
			}
			table.Each(func(key string, v float64) {
				fmt.Fprintf(out, "  reservoir.defaults.%-20s %g\n", key+":", v)
			})
			fmt.Fprintln(out)
			fmt.Fprintln(out, "MCP rate limits:")
			tools := make([]string, 0, len(cfg.MCP.RateLimits))
			for tool := range cfg.MCP.RateLimits {
				tools = append(tools, tool)
			}
			sort.Strings(tools)
			for _, tool := range tools {
				l := cfg.MCP.RateLimits[tool]
				fmt.Fprintf(out, "  %-18s %g/min, burst %d\n", tool+":", l.PerMinute, l.Burst)
			}
			return nil
		},
	}
	cmd.Flags().Bool("yaml", false, "Print the settings as a config file")
	return cmd
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			if path == "" {
				var err error
				if path, err = config.Path(); err != nil {
					return err
				}
			}
			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]string{"path": path})
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}

// marshalYAML renders cfg as YAML; used by "config list --yaml".
func marshalYAML(cfg *config.SweepgenConfig) (string, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func valueOrDefault(val, def string) string {
	if val == "" {
		return def
	}
	return val
}
