package cleanup

import (
	"context"

	"github.com/kdevlin/semindex/internal/core"
	"github.com/kdevlin/semindex/internal/entity"
	"github.com/kdevlin/semindex/internal/store"
)

// VectorStore is the subset of the Vector Store Adapter (C7) orphan cleanup
// and deletion propagation need.
type VectorStore interface {
	ScrollPoints(ctx context.Context, collection string, filter map[string]any, iterationCap int) ([]store.Point, error)
	FindEntitiesForFile(ctx context.Context, collection, filePath string, iterationCap int) ([]uint64, error)
	DeletePoints(ctx context.Context, collection string, ids []uint64) error
}

// StateRemover is the subset of the State Store (C4) the deletion procedure
// needs to drop a file's record.
type StateRemover interface {
	DeleteFileRecord(path string)
}

// DeleteFile runs the spec §4.7 deletion procedure for one vanished file:
// find every point naming it, delete them, drop its state record, then
// trigger orphan cleanup (the caller is expected to batch orphan cleanup
// once per run rather than once per deleted file; see RunOrphanCleanup).
func DeleteFile(ctx context.Context, vs VectorStore, state StateRemover, collection, absPath string, iterationCap int) (int, error) {
	ids, err := vs.FindEntitiesForFile(ctx, collection, absPath, iterationCap)
	if err != nil {
		return 0, &core.StoreError{Op: "delete_file/find_entities", Err: err}
	}
	if len(ids) == 0 {
		state.DeleteFileRecord(absPath)
		return 0, nil
	}

	if err := vs.DeletePoints(ctx, collection, ids); err != nil {
		return 0, &core.StoreError{Op: "delete_file/delete_points", Err: err}
	}
	state.DeleteFileRecord(absPath)
	return len(ids), nil
}

// RunOrphanCleanup performs spec §4.7's orphan-relation cleanup: a single
// consistent scroll snapshot of the whole collection, partitioned into
// entity names and relation points, followed by one batch delete of every
// relation whose endpoints don't resolve. Returns the number of relation
// points deleted.
func RunOrphanCleanup(ctx context.Context, vs VectorStore, collection string, iterationCap int) (int, error) {
	points, err := vs.ScrollPoints(ctx, collection, nil, iterationCap)
	if err != nil {
		return 0, &core.StoreError{Op: "orphan_cleanup/scroll", Err: err}
	}

	entityNames := map[string]bool{}
	var relations []store.Point

	for _, p := range points {
		if p.Chunk.ChunkKind == entity.ChunkRelation {
			relations = append(relations, p)
			continue
		}
		if p.Chunk.EntityName != "" {
			entityNames[p.Chunk.EntityName] = true
		}
	}

	if len(relations) == 0 {
		return 0, nil
	}

	var orphanIDs []uint64
	for _, rel := range relations {
		from := rel.Chunk.EntityName
		to := rel.Chunk.RelationTarget

		fromMissing := !entityNames[from] && !resolveModuleName(from, entityNames)
		toMissing := !entityNames[to] && !resolveModuleName(to, entityNames)

		switch {
		case fromMissing:
			orphanIDs = append(orphanIDs, rel.ID)
		case toMissing && !entity.IsExternalFileReference(to):
			orphanIDs = append(orphanIDs, rel.ID)
		}
	}

	if len(orphanIDs) == 0 {
		return 0, nil
	}

	if err := vs.DeletePoints(ctx, collection, orphanIDs); err != nil {
		return 0, &core.StoreError{Op: "orphan_cleanup/delete", Err: err}
	}
	return len(orphanIDs), nil
}
