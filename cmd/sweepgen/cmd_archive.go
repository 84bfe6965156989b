package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/nvandessel/sweepgen/internal/archive"
	"github.com/nvandessel/sweepgen/internal/pathutil"
)

// ArchiveDir is the archive directory inside the output directory.
const ArchiveDir = "archives"

func newArchiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive <evaluator>",
		Short: "Bundle an evaluator's stitched documents into a checksummed archive",
		Long: `Collect every stitched document under <output>/<evaluator> into one
gzip archive with a SHA-256 checksum. Build directories and the run trace
are not archived.

Default location: <output>/archives/<evaluator>-YYYYMMDD-HHMMSS.sweep.gz

Examples:
  sweepgen archive shannon_entropy
  sweepgen archive shannon_entropy --keep 5   # prune older archives
  sweepgen archive list
  sweepgen archive verify <file>
  sweepgen archive extract <file> <dir>`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			outDir, err := cfg.OutputDir()
			if err != nil {
				return err
			}
			dir, err := archiveDir(cmd, outDir)
			if err != nil {
				return err
			}
			keep, _ := cmd.Flags().GetInt("keep")
			if keep < 0 {
				return fmt.Errorf("--keep must be non-negative, got %d", keep)
			}

			name := args[0]
			evalDir := filepath.Join(outDir, name)
			if err := pathutil.EnsureDir(dir); err != nil {
				return err
			}
			now := time.Now()
			path := archive.Path(dir, name, now)
			header, err := archive.Create(evalDir, path, now)
			if err != nil {
				return fmt.Errorf("archive failed: %w", err)
			}

			var pruned []string
			if keep > 0 {
				pruned, err = archive.Prune(dir, name, keep)
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: failed to prune archives: %v\n", err)
				}
			}

			var size int64
			if info, err := os.Stat(path); err == nil {
				size = info.Size()
			}

			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"path":       path,
					"evaluator":  header.Evaluator,
					"documents":  header.Documents,
					"checksum":   header.Checksum,
					"size_bytes": size,
					"pruned":     pruned,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Archived %d documents (%s, %s compressed)\n",
				header.Documents, humanize.Bytes(uint64(header.Size)), humanize.Bytes(uint64(size)))
			fmt.Fprintf(cmd.OutOrStdout(), "  Path: %s\n", path)
			if len(pruned) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "  Pruned %d older archives\n", len(pruned))
			}
			return nil
		},
	}

	cmd.PersistentFlags().String("dir", "", "Archive directory (default: <output>/archives)")
	cmd.Flags().Int("keep", 0, "Keep only the newest N archives of this evaluator (0 keeps all)")

	cmd.AddCommand(
		newArchiveListCmd(),
		newArchiveVerifyCmd(),
		newArchiveExtractCmd(),
	)
	return cmd
}

// archiveDir resolves --dir, defaulting to <outDir>/archives.
func archiveDir(cmd *cobra.Command, outDir string) (string, error) {
	dir, _ := cmd.Flags().GetString("dir")
	if dir == "" {
		return filepath.Join(outDir, ArchiveDir), nil
	}
	return pathutil.ExpandHome(dir)
}

func newArchiveListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List archives, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			outDir, err := cfg.OutputDir()
			if err != nil {
				return err
			}
			dir, err := archiveDir(cmd, outDir)
			if err != nil {
				return err
			}
			infos, err := archive.List(dir)
			if err != nil {
				return fmt.Errorf("failed to list archives: %w", err)
			}

			out := cmd.OutOrStdout()
			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				return json.NewEncoder(out).Encode(map[string]any{
					"archives":    infos,
					"total_count": len(infos),
					"directory":   dir,
				})
			}
			if len(infos) == 0 {
				fmt.Fprintf(out, "No archives found in %s\n", dir)
				return nil
			}
			printDivider(out, "archives in "+dir)
			var total int64
			for _, a := range infos {
				total += a.Size
				fmt.Fprintf(out, "  %-20s %4d docs  %8s  %s  %s\n",
					a.Evaluator, a.Documents, humanize.Bytes(uint64(a.Size)),
					humanize.Time(a.CreatedAt), filepath.Base(a.Path))
			}
			fmt.Fprintf(out, "\n%d archives, %s total\n", len(infos), humanize.Bytes(uint64(total)))
			return nil
		},
	}
}

func newArchiveVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <file>",
		Short: "Verify an archive's checksum",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			jsonOut, _ := cmd.Flags().GetBool("json")
			out := cmd.OutOrStdout()

			header, err := archive.Verify(path)
			if err != nil {
				if jsonOut {
					msg := "Archive could not be read"
					if errors.Is(err, archive.ErrChecksum) {
						msg = "Checksum verification FAILED"
					}
					json.NewEncoder(out).Encode(map[string]any{
						"file":    path,
						"valid":   false,
						"error":   err.Error(),
						"message": msg,
					})
				} else {
					fmt.Fprintf(out, "FAILED: %v\n", err)
					fmt.Fprintf(out, "  File: %s\n", path)
				}
				return fmt.Errorf("archive verification failed: %w", err)
			}

			if jsonOut {
				return json.NewEncoder(out).Encode(map[string]any{
					"file":      path,
					"version":   header.Version,
					"evaluator": header.Evaluator,
					"documents": header.Documents,
					"valid":     true,
					"message":   "Checksum OK",
				})
			}
			fmt.Fprintf(out, "OK: checksum verified (%d documents)\n", header.Documents)
			fmt.Fprintf(out, "  File: %s\n", path)
			return nil
		},
	}
}

func newArchiveExtractCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "extract <file> <dir>",
		Short: "Restore an archive's documents beneath a directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := pathutil.EnsureDir(args[1]); err != nil {
				return err
			}
			written, err := archive.Extract(args[0], args[1])
			if err != nil {
				return fmt.Errorf("extract failed: %w", err)
			}
			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"files": written,
					"count": len(written),
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Extracted %d documents to %s\n", len(written), args[1])
			return nil
		},
	}
}
