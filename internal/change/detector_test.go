package change

import (
	"testing"

	"github.com/kdevlin/semindex/internal/state"
	"github.com/stretchr/testify/assert"
)

func snapshotWith(files map[string]state.Record) *state.Snapshot {
	snap := &state.Snapshot{Files: make(map[string]state.Record)}
	for k, v := range files {
		snap.Files[k] = v
	}
	return snap
}

func TestDetectAddedModifiedDeleted(t *testing.T) {
	snap := snapshotWith(map[string]state.Record{
		"a.py": {Hash: "h1"},
		"b.py": {Hash: "h2"},
	})

	current := map[string]state.Record{
		"a.py": {Hash: "h1"},       // unchanged
		"b.py": {Hash: "h2-new"},   // modified
		"c.py": {Hash: "h3"},       // added
	}

	res := Detect(current, snap)

	assert.ElementsMatch(t, []string{"c.py"}, res.Added)
	assert.ElementsMatch(t, []string{"b.py"}, res.Modified)
	assert.ElementsMatch(t, []string{}, res.Deleted)
}

func TestDetectDeleted(t *testing.T) {
	snap := snapshotWith(map[string]state.Record{"a.py": {Hash: "h1"}})
	res := Detect(map[string]state.Record{}, snap)

	assert.ElementsMatch(t, []string{"a.py"}, res.Deleted)
	assert.True(t, len(res.Added) == 0 && len(res.Modified) == 0)
}

func TestDetectEmptyWhenUnchanged(t *testing.T) {
	snap := snapshotWith(map[string]state.Record{"a.py": {Hash: "h1"}})
	res := Detect(map[string]state.Record{"a.py": {Hash: "h1"}}, snap)

	assert.True(t, res.IsEmpty())
}
