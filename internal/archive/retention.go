package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Info describes an archive on disk.
type Info struct {
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
	Evaluator string    `json:"evaluator"`
	Documents int       `json:"documents"`
}

// List returns the archives in dir, newest first. Files with unreadable
// headers are skipped.
func List(dir string) ([]Info, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading archive directory: %w", err)
	}

	var infos []Info
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), Ext) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		h, err := ReadHeader(path)
		if err != nil {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		infos = append(infos, Info{
			Path:      path,
			Size:      fi.Size(),
			CreatedAt: h.CreatedAt,
			Evaluator: h.Evaluator,
			Documents: h.Documents,
		})
	}
	sort.SliceStable(infos, func(i, j int) bool { return infos[i].CreatedAt.After(infos[j].CreatedAt) })
	return infos, nil
}

// Prune keeps the newest keep archives of evaluator in dir and deletes the
// rest. An empty evaluator matches every archive.
func Prune(dir, evaluator string, keep int) ([]string, error) {
	if keep < 0 {
		return nil, fmt.Errorf("keep must be non-negative, got %d", keep)
	}
	infos, err := List(dir)
	if err != nil {
		return nil, err
	}
	var deleted []string
	kept := 0
	for _, info := range infos {
		if evaluator != "" && info.Evaluator != evaluator {
			continue
		}
		if kept < keep {
			kept++
			continue
		}
		if err := os.Remove(info.Path); err != nil {
			return deleted, fmt.Errorf("removing %s: %w", filepath.Base(info.Path), err)
		}
		deleted = append(deleted, info.Path)
	}
	return deleted, nil
}
