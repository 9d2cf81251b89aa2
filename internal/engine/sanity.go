package engine

import (
	"os"
	"os/exec"
	"strings"

	"scadd/internal/common/fsutil"
)

// SanityReport describes preflight checks for the engine-host binary.
type SanityReport struct {
	BinFound bool   `json:"bin_found"`
	BinPath  string `json:"bin_path,omitempty"`
	Error    string `json:"error,omitempty"`
}

// SanityCheck validates that the configured engine-host binary exists.
// It does not mutate state and is safe to call at any time.
func (s *Session) SanityCheck() SanityReport {
	r := SanityReport{}
	bin := strings.TrimSpace(s.cfg.Bin)
	if bin == "" {
		r.Error = "engine binary not configured"
		return r
	}
	if !strings.ContainsRune(bin, os.PathSeparator) {
		// Bare command name: resolve on PATH.
		path, err := exec.LookPath(bin)
		if err != nil {
			r.BinPath = bin
			r.Error = err.Error()
			return r
		}
		r.BinFound = true
		r.BinPath = path
		return r
	}
	expanded, err := fsutil.ExpandHome(bin)
	if err != nil {
		r.BinPath = bin
		r.Error = err.Error()
		return r
	}
	r.BinPath = expanded
	if fi, err := os.Stat(expanded); err != nil {
		r.Error = err.Error()
	} else if fi.IsDir() {
		r.Error = "engine binary path is a directory"
	} else {
		r.BinFound = true
	}
	return r
}
