// Package pathutil resolves the directories sweepgen writes to and confines
// externally supplied paths to configured roots.
package pathutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrOutsideRoots is returned when a path escapes every allowed root.
var ErrOutsideRoots = errors.New("path is outside the allowed roots")

// DataDir is the default output root, relative to the home directory.
const DataDir = ".sweepgen/data"

// RedactPath shortens a path to .../<parent>/<base> for messages that may
// leave the machine, e.g. MCP tool errors.
func RedactPath(path string) string {
	if path == "" {
		return ""
	}
	cleaned := filepath.Clean(path)
	base := filepath.Base(cleaned)
	parent := filepath.Base(filepath.Dir(cleaned))
	if parent == "." || parent == string(filepath.Separator) {
		return base
	}
	return ".../" + parent + "/" + base
}

// ExpandHome replaces a leading "~" with the user's home directory and
// expands ${VAR} references.
func ExpandHome(path string) (string, error) {
	if strings.Contains(path, "${") {
		path = os.Expand(path, os.Getenv)
	}
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// DefaultRoot returns ~/.sweepgen/data.
func DefaultRoot() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, DataDir), nil
}

// Confine checks that path lies within one of roots after cleaning and
// resolving symlinks. The path itself need not exist yet.
func Confine(path string, roots []string) error {
	if path == "" {
		return errors.New("confining path: path is empty")
	}
	if strings.ContainsRune(path, 0) {
		return errors.New("confining path: path contains a null byte")
	}
	if len(roots) == 0 {
		return errors.New("confining path: no roots configured")
	}

	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("confining path: %w", err)
	}
	resolved, err := resolve(abs)
	if err != nil {
		return fmt.Errorf("confining path: %w", err)
	}

	for _, root := range roots {
		rootAbs, err := filepath.Abs(filepath.Clean(root))
		if err != nil {
			continue
		}
		rootResolved, err := resolve(rootAbs)
		if err != nil {
			continue
		}
		if within(resolved, rootResolved) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrOutsideRoots, RedactPath(abs))
}

// resolve evaluates symlinks on the deepest existing ancestor of path and
// re-appends the missing tail.
func resolve(path string) (string, error) {
	if r, err := filepath.EvalSymlinks(path); err == nil {
		return r, nil
	}
	parent := filepath.Dir(path)
	if parent == path {
		return "", fmt.Errorf("cannot resolve %s", RedactPath(path))
	}
	r, err := resolve(parent)
	if err != nil {
		return "", err
	}
	return filepath.Join(r, filepath.Base(path)), nil
}

// within reports whether path equals base or lies beneath it.
func within(path, base string) bool {
	if path == base {
		return true
	}
	return strings.HasPrefix(path, strings.TrimSuffix(base, string(os.PathSeparator))+string(os.PathSeparator))
}

// EnsureDir creates dir (and parents) when missing and checks that it is a
// directory.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating %s: %w", RedactPath(dir), err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", RedactPath(dir))
	}
	return nil
}
