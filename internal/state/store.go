// Package state implements the per-collection on-disk state snapshot (C4):
// a JSON map of relative file path to {sha256, size, mtime}, written
// atomically via a temp-file-then-rename sequence under an advisory file
// lock held for each Save, so a concurrent Save against the same collection
// fails fast instead of interleaving writes (spec §5: single-writer per
// collection). The lock is not held between Saves.
package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

// Record is the per-file entry in the state snapshot.
type Record struct {
	Hash  string  `json:"hash"`
	Size  int64   `json:"size"`
	Mtime float64 `json:"mtime"`
}

// Statistics is the reserved "_statistics" entry written at the end of a run.
type Statistics struct {
	FilesProcessed              int     `json:"files_processed"`
	EntitiesCreated             int     `json:"entities_created"`
	RelationsCreated            int     `json:"relations_created"`
	ImplementationChunksCreated int     `json:"implementation_chunks_created"`
	ProcessingTime              float64 `json:"processing_time"`
	Timestamp                   float64 `json:"timestamp"`
}

const statisticsKey = "_statistics"

// Store is the atomic on-disk state document for one collection.
type Store struct {
	mu   sync.Mutex
	path string
}

// New returns a Store backed by `<root>/.claude-indexer/<collection>.json`.
// It transparently migrates from the legacy global location
// `~/.claude-indexer/<collection>.json` if the per-project file does not yet
// exist but the legacy one does.
func New(root, collection string) (*Store, error) {
	dir := filepath.Join(root, ".claude-indexer")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	path := filepath.Join(dir, collection+".json")

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if home, herr := os.UserHomeDir(); herr == nil {
			legacy := filepath.Join(home, ".claude-indexer", collection+".json")
			if data, rerr := os.ReadFile(legacy); rerr == nil {
				_ = os.WriteFile(path, data, 0644)
			}
		}
	}

	return &Store{path: path}, nil
}

// Snapshot is the in-memory form of the state document.
type Snapshot struct {
	Files      map[string]Record
	Statistics Statistics
}

func emptySnapshot() *Snapshot {
	return &Snapshot{Files: make(map[string]Record)}
}

// Load reads the state document. A missing or malformed file is treated as
// an empty snapshot (StateError recovery policy); callers should log a
// warning in that case and still write a fresh snapshot at the end of the
// run.
func (s *Store) Load() (*Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return emptySnapshot(), nil
		}
		return emptySnapshot(), err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return emptySnapshot(), err
	}

	snap := emptySnapshot()
	for k, v := range raw {
		if k == statisticsKey {
			_ = json.Unmarshal(v, &snap.Statistics)
			continue
		}
		var rec Record
		if err := json.Unmarshal(v, &rec); err != nil {
			continue
		}
		snap.Files[k] = rec
	}

	return snap, nil
}

// Save writes the snapshot atomically: write to a temp file in the same
// directory, fsync, then rename over the target. An advisory lock is held
// for the duration so a concurrent writer against the same collection fails
// fast rather than interleaving writes.
func (s *Store) Save(snap *Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock := flock.New(s.path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return err
	}
	if !locked {
		return errAlreadyLocked(s.path)
	}
	defer lock.Unlock()

	out := make(map[string]any, len(snap.Files)+1)
	for k, v := range snap.Files {
		out[k] = v
	}
	out[statisticsKey] = snap.Statistics

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".state-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}

	return os.Rename(tmpPath, s.path)
}

// GetFileRecord returns a file's record and whether it was present.
func (snap *Snapshot) GetFileRecord(path string) (Record, bool) {
	rec, ok := snap.Files[path]
	return rec, ok
}

// PutFileRecord inserts or replaces a file's record.
func (snap *Snapshot) PutFileRecord(path string, rec Record) {
	snap.Files[path] = rec
}

// DeleteFileRecord removes a file's record, if present.
func (snap *Snapshot) DeleteFileRecord(path string) {
	delete(snap.Files, path)
}

// PutStatistics replaces the reserved statistics entry.
func (snap *Snapshot) PutStatistics(stats Statistics) {
	snap.Statistics = stats
}

// NowMtime is a small helper so callers can stamp a Record's mtime as a Unix
// timestamp with sub-second precision, matching the on-disk float format.
func NowMtime(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

type lockedError string

func (e lockedError) Error() string { return string(e) }

func errAlreadyLocked(path string) error {
	return lockedError("state file " + path + " is locked by another run")
}
