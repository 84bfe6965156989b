// Package archive bundles the stitched documents of one evaluator directory
// into a single checksummed, compressed file and restores them.
package archive

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/nvandessel/sweepgen/internal/pathutil"
	"github.com/nvandessel/sweepgen/internal/runner"
)

// Ext is the archive file extension.
const Ext = ".sweep.gz"

// Path returns <dir>/<evaluator>-<timestamp>.sweep.gz.
func Path(dir, evaluator string, now time.Time) string {
	return filepath.Join(dir, evaluator+"-"+now.UTC().Format("20060102-150405")+Ext)
}

// Collect reads every stitched document under evalDir. Build directories
// and the run trace are skipped.
func Collect(evalDir string) ([]Document, error) {
	var docs []Document
	err := filepath.WalkDir(evalDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != evalDir && strings.HasPrefix(d.Name(), runner.BuildPrefix) {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".json" || filepath.Dir(path) == evalDir {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(evalDir, path)
		if err != nil {
			return err
		}
		docs = append(docs, Document{Path: filepath.ToSlash(rel), Content: data})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("collecting documents: %w", err)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Path < docs[j].Path })
	return docs, nil
}

// Create archives evalDir into path. The evaluator name is the directory's
// base name.
func Create(evalDir, path string, now time.Time) (*Header, error) {
	info, err := os.Stat(evalDir)
	if err != nil {
		return nil, fmt.Errorf("archiving %s: %w", pathutil.RedactPath(evalDir), err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("archiving %s: not a directory", pathutil.RedactPath(evalDir))
	}
	docs, err := Collect(evalDir)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("archiving %s: no stitched documents", pathutil.RedactPath(evalDir))
	}
	return write(path, &Payload{Evaluator: filepath.Base(evalDir), Documents: docs}, now)
}

// Extract restores an archive's documents beneath dir and returns the
// written paths. Entries that would land outside dir are rejected.
func Extract(path, dir string) ([]string, error) {
	_, p, err := Read(path)
	if err != nil {
		return nil, err
	}
	written := make([]string, 0, len(p.Documents))
	for _, d := range p.Documents {
		target := filepath.Join(dir, filepath.FromSlash(d.Path))
		if err := pathutil.Confine(target, []string{dir}); err != nil {
			return written, fmt.Errorf("extracting %s: %w", d.Path, err)
		}
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return written, fmt.Errorf("extracting %s: %w", d.Path, err)
		}
		if err := os.WriteFile(target, d.Content, 0644); err != nil {
			return written, fmt.Errorf("extracting %s: %w", d.Path, err)
		}
		written = append(written, target)
	}
	return written, nil
}
