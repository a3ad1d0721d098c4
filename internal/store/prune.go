// Package store manages the on-disk artifacts the pipeline leaves behind
// (utterance recordings, monitoring screenshots) and keeps them bounded.
package store

import (
	"os"
	"path/filepath"
	"sort"
)

// PruneOldFiles removes files matching pattern in dir, keeping only the
// newest keep files by modification time. Removal errors are ignored; the
// next prune will retry.
func PruneOldFiles(dir, pattern string, keep int) {
	if keep <= 0 {
		return
	}

	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil || len(matches) <= keep {
		return
	}

	type entry struct {
		path    string
		modTime int64
	}
	entries := make([]entry, 0, len(matches))
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		entries = append(entries, entry{path: path, modTime: info.ModTime().UnixNano()})
	}

	if len(entries) <= keep {
		return
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].modTime > entries[j].modTime
	})

	for _, e := range entries[keep:] {
		_ = os.Remove(e.path)
	}
}
