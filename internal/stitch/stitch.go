// Package stitch assembles a dataset replica's step artifacts and its test
// bed into one ordered JSON document.
package stitch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nvandessel/sweepgen/internal/artifact"
)

// TestBedFile is the name of the test bed record inside a build directory.
const TestBedFile = "test_bed.json"

// Result describes a written document.
type Result struct {
	Path  string `json:"path"`
	Steps int    `json:"steps"`
	Bytes int    `json:"bytes"`
}

// Stitch writes tb into buildDir, then writes the document
// [test bed, step 0, step 1, ...] to outPath. The build directory is removed
// afterwards unless keepBuildPath is set; it is never removed when the
// document could not be written.
func Stitch(buildDir string, tb *TestBed, outPath string, keepBuildPath bool) (*Result, error) {
	header, err := json.Marshal(tb)
	if err != nil {
		return nil, fmt.Errorf("encoding test bed: %w", err)
	}
	if err := os.WriteFile(filepath.Join(buildDir, TestBedFile), header, 0644); err != nil {
		return nil, fmt.Errorf("writing test bed: %w", err)
	}

	res, err := stitchDir(buildDir, header, outPath)
	if err != nil {
		return nil, err
	}

	if !keepBuildPath {
		if err := os.RemoveAll(buildDir); err != nil {
			return nil, fmt.Errorf("removing build directory: %w", err)
		}
	}
	return res, nil
}

// Restitch rebuilds the document of a kept build directory from its own
// test bed. Re-stitching an unmodified directory is byte-identical.
func Restitch(buildDir, outPath string) (*Result, error) {
	data, err := os.ReadFile(filepath.Join(buildDir, TestBedFile))
	if err != nil {
		return nil, fmt.Errorf("reading test bed: %w", err)
	}
	var tb TestBed
	if err := json.Unmarshal(data, &tb); err != nil {
		return nil, fmt.Errorf("parsing test bed: %w", err)
	}
	header, err := json.Marshal(&tb)
	if err != nil {
		return nil, fmt.Errorf("encoding test bed: %w", err)
	}
	return stitchDir(buildDir, header, outPath)
}

func stitchDir(buildDir string, header []byte, outPath string) (*Result, error) {
	steps, err := artifact.ReadAll(buildDir)
	if err != nil {
		return nil, err
	}

	elems := make([][]byte, 0, len(steps)+1)
	elems = append(elems, header)
	for _, s := range steps {
		elems = append(elems, s.Result)
	}
	doc, err := compose(elems)
	if err != nil {
		return nil, err
	}

	if err := writeAtomic(outPath, doc); err != nil {
		return nil, err
	}
	return &Result{Path: outPath, Steps: len(steps), Bytes: len(doc)}, nil
}

// compose renders a JSON array with one compact element per line.
func compose(elems [][]byte) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("[\n")
	for i, e := range elems {
		if i > 0 {
			buf.WriteString(",\n")
		}
		if err := json.Compact(&buf, e); err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
	}
	buf.WriteString("\n]\n")
	return buf.Bytes(), nil
}

// writeAtomic writes data to a temp file beside path and renames it into
// place, so a failed write never leaves a truncated document.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".stitch-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing document: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing document: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("setting document permissions: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("moving document into place: %w", err)
	}
	return nil
}
