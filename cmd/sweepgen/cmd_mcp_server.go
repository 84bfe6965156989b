package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nvandessel/sweepgen/internal/mcp"
	"github.com/nvandessel/sweepgen/internal/pathutil"
)

func newMCPServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp-server",
		Short: "Serve the sweep tools over MCP (stdio)",
		Long: `Run an MCP server on stdin/stdout exposing sweep_generate,
sweep_evaluators, sweep_inspect and sweep_export. Every path a tool reads
or writes must lie inside the output directory or a --allow root. Tool
calls are recorded in ~/.sweepgen/audit.jsonl.

Example client configuration:
  {"command": "sweepgen", "args": ["mcp-server"]}`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			outDir, err := cfg.OutputDir()
			if err != nil {
				return err
			}
			if err := pathutil.EnsureDir(outDir); err != nil {
				return err
			}

			roots := []string{outDir}
			extra, _ := cmd.Flags().GetStringArray("allow")
			for _, r := range extra {
				expanded, err := pathutil.ExpandHome(r)
				if err != nil {
					return err
				}
				roots = append(roots, expanded)
			}

			auditDir := ""
			if noAudit, _ := cmd.Flags().GetBool("no-audit"); !noAudit {
				root, err := pathutil.DefaultRoot()
				if err != nil {
					return err
				}
				auditDir = filepath.Dir(root)
			}

			server, err := mcp.NewServer(&mcp.Config{
				Name:     "sweepgen",
				Version:  version,
				Settings: cfg,
				Roots:    roots,
				AuditDir: auditDir,
				Logger:   newLogger(cmd, cfg),
			})
			if err != nil {
				return fmt.Errorf("failed to create MCP server: %w", err)
			}
			return server.Run(cmd.Context())
		},
	}
	cmd.Flags().StringArray("allow", nil, "Additional directory tools may read and write (repeatable)")
	cmd.Flags().Bool("no-audit", false, "Do not write the tool audit log")
	return cmd
}
