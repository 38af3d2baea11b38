package cleanup

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kdevlin/semindex/internal/entity"
	"github.com/kdevlin/semindex/internal/store"
)

type fakeVectorStore struct {
	points      []store.Point
	deletedIDs  []uint64
	findResults map[string][]uint64
}

func (f *fakeVectorStore) ScrollPoints(ctx context.Context, collection string, filter map[string]any, iterationCap int) ([]store.Point, error) {
	return f.points, nil
}

func (f *fakeVectorStore) FindEntitiesForFile(ctx context.Context, collection, filePath string, iterationCap int) ([]uint64, error) {
	return f.findResults[filePath], nil
}

func (f *fakeVectorStore) DeletePoints(ctx context.Context, collection string, ids []uint64) error {
	f.deletedIDs = append(f.deletedIDs, ids...)
	return nil
}

type fakeStateRemover struct {
	deleted []string
}

func (f *fakeStateRemover) DeleteFileRecord(path string) { f.deleted = append(f.deleted, path) }

func TestRunOrphanCleanupDeletesRelationsWithMissingSource(t *testing.T) {
	vs := &fakeVectorStore{
		points: []store.Point{
			{ID: 1, Chunk: entity.Chunk{EntityName: "a.py", ChunkKind: entity.ChunkMetadata}},
			{ID: 2, Chunk: entity.Chunk{EntityName: "gone.py", ChunkKind: entity.ChunkRelation, RelationTarget: "a.py"}},
		},
	}

	deleted, err := RunOrphanCleanup(context.Background(), vs, "chunks", 100)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)
	assert.Equal(t, []uint64{2}, vs.deletedIDs)
}

func TestRunOrphanCleanupKeepsExternalFileReference(t *testing.T) {
	vs := &fakeVectorStore{
		points: []store.Point{
			{ID: 1, Chunk: entity.Chunk{EntityName: "a.py", ChunkKind: entity.ChunkMetadata}},
			{ID: 2, Chunk: entity.Chunk{EntityName: "a.py", ChunkKind: entity.ChunkRelation, RelationTarget: "config.json"}},
		},
	}

	deleted, err := RunOrphanCleanup(context.Background(), vs, "chunks", 100)
	require.NoError(t, err)
	assert.Equal(t, 0, deleted)
	assert.Empty(t, vs.deletedIDs)
}

func TestRunOrphanCleanupNoRelationsIsNoop(t *testing.T) {
	vs := &fakeVectorStore{
		points: []store.Point{
			{ID: 1, Chunk: entity.Chunk{EntityName: "a.py", ChunkKind: entity.ChunkMetadata}},
		},
	}

	deleted, err := RunOrphanCleanup(context.Background(), vs, "chunks", 100)
	require.NoError(t, err)
	assert.Equal(t, 0, deleted)
}

func TestDeleteFileRemovesPointsAndStateRecord(t *testing.T) {
	vs := &fakeVectorStore{findResults: map[string][]uint64{"/repo/a.py": {10, 11}}}
	state := &fakeStateRemover{}

	count, err := DeleteFile(context.Background(), vs, state, "chunks", "/repo/a.py", 100)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.ElementsMatch(t, []uint64{10, 11}, vs.deletedIDs)
	assert.Equal(t, []string{"/repo/a.py"}, state.deleted)
}

func TestDeleteFileWithNoPointsStillClearsStateRecord(t *testing.T) {
	vs := &fakeVectorStore{findResults: map[string][]uint64{}}
	state := &fakeStateRemover{}

	count, err := DeleteFile(context.Background(), vs, state, "chunks", "/repo/missing.py", 100)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.Equal(t, []string{"/repo/missing.py"}, state.deleted)
}
