package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	root := t.TempDir()
	store, err := New(root, "mycol")
	require.NoError(t, err)

	snap := emptySnapshot()
	snap.PutFileRecord("a.py", Record{Hash: "abc", Size: 10, Mtime: 1.5})
	snap.PutStatistics(Statistics{FilesProcessed: 1})

	require.NoError(t, store.Save(snap))

	loaded, err := store.Load()
	require.NoError(t, err)

	rec, ok := loaded.GetFileRecord("a.py")
	require.True(t, ok)
	assert.Equal(t, "abc", rec.Hash)
	assert.Equal(t, int64(10), rec.Size)
	assert.Equal(t, 1, loaded.Statistics.FilesProcessed)
}

func TestLoadMissingFileIsEmptySnapshot(t *testing.T) {
	root := t.TempDir()
	store, err := New(root, "mycol")
	require.NoError(t, err)

	snap, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, snap.Files)
}

func TestDeleteFileRecord(t *testing.T) {
	snap := emptySnapshot()
	snap.PutFileRecord("a.py", Record{Hash: "x"})
	snap.DeleteFileRecord("a.py")

	_, ok := snap.GetFileRecord("a.py")
	assert.False(t, ok)
}
