// Package change implements the Change Detector (C5): given the current
// file set and the loaded state snapshot, it partitions files into added,
// modified, and deleted.
package change

import "github.com/kdevlin/semindex/internal/state"

// Result is the output of Detect: three disjoint path lists.
type Result struct {
	Added    []string
	Modified []string
	Deleted  []string
}

// IsEmpty reports whether nothing changed (P4's "unchanged tree" case).
func (r Result) IsEmpty() bool {
	return len(r.Added) == 0 && len(r.Modified) == 0 && len(r.Deleted) == 0
}

// Detect compares `current` (relative path -> freshly computed record) to
// the state snapshot's file set. Unchanged files are absent from the
// result entirely — no parse, no embed, no upsert follows for them.
func Detect(current map[string]state.Record, snap *state.Snapshot) Result {
	var res Result

	for path, rec := range current {
		prior, existed := snap.GetFileRecord(path)
		switch {
		case !existed:
			res.Added = append(res.Added, path)
		case prior.Hash != rec.Hash:
			res.Modified = append(res.Modified, path)
		}
	}

	for path := range snap.Files {
		if _, stillPresent := current[path]; !stillPresent {
			res.Deleted = append(res.Deleted, path)
		}
	}

	return res
}
