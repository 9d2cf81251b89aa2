package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"scadd/internal/common/fsutil"
	"scadd/pkg/types"
)

// LoadDir scans a directory for *.scad files and builds a design
// registry from filenames. ID is the full filename (including
// extension); Path is the absolute file path.
func LoadDir(dir string) ([]types.Design, error) {
	base, err := fsutil.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var designs []types.Design
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(strings.ToLower(name), ".scad") {
			continue
		}
		designs = append(designs, types.Design{ID: name, Name: name, Path: filepath.Join(abs, name)})
	}
	return designs, nil
}

// ReadSource returns the program text for a design id, or false when
// the id is not in the registry.
func ReadSource(designs []types.Design, id string) (string, bool, error) {
	for _, d := range designs {
		if d.ID == id {
			if !fsutil.PathExists(d.Path) {
				return "", true, fmt.Errorf("design source missing: %s", d.Path)
			}
			b, err := os.ReadFile(d.Path)
			if err != nil {
				return "", true, err
			}
			return string(b), true, nil
		}
	}
	return "", false, nil
}
