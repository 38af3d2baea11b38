// Package store implements the vector store adapter contract (spec §4.6)
// against Qdrant. Every call that crosses the wire is wrapped in a
// core.StoreError so the orchestrator can apply its error-kind recovery
// policy uniformly. Grounded on the teacher's internal/store/qdrant.go,
// generalized from the single-vector chunk.Chunk model to entity.Chunk's
// three chunk kinds and extended with the scroll/find/delete/exists
// operations the spec requires that the teacher's read-only search path
// never needed.
package store

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"

	"github.com/kdevlin/semindex/internal/core"
	"github.com/kdevlin/semindex/internal/entity"
)

// QdrantStore handles vector storage in Qdrant for the semantic index.
type QdrantStore struct {
	client *qdrant.Client
}

// NewQdrantStore creates a new Qdrant store.
func NewQdrantStore(url string) (*QdrantStore, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: url,
	})
	if err != nil {
		return nil, &core.StoreError{Op: "connect", Err: err}
	}

	return &QdrantStore{client: client}, nil
}

// Close closes the Qdrant connection.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

// EnsureCollection creates the collection if it doesn't already exist
// (spec: ensure_collection(name, vector_size)).
func (s *QdrantStore) EnsureCollection(ctx context.Context, name string, vectorSize int) error {
	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return &core.StoreError{Op: "collection_exists", Err: err}
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(vectorSize),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return &core.StoreError{Op: "create_collection", Err: err}
	}
	return nil
}

// DeleteCollection removes a collection entirely.
func (s *QdrantStore) DeleteCollection(ctx context.Context, name string) error {
	if err := s.client.DeleteCollection(ctx, name); err != nil {
		return &core.StoreError{Op: "delete_collection", Err: err}
	}
	return nil
}

// defaultUpsertBatchSize bounds how many points go in a single Upsert call.
// The content processor may hand us an arbitrarily large slice across a
// whole run; we split it into per-batch, all-or-nothing chunks ourselves
// rather than trust the caller to have pre-batched it (spec §4.6: "the
// adapter internally splits oversized batches").
const defaultUpsertBatchSize = 100

// UpsertChunks inserts or updates chunks, splitting into batches of
// defaultUpsertBatchSize. Each batch is committed atomically: a failure
// partway through leaves earlier batches persisted and aborts the rest,
// returning a StoreError naming the failed batch.
func (s *QdrantStore) UpsertChunks(ctx context.Context, collection string, chunks []entity.Chunk) error {
	for start := 0; start < len(chunks); start += defaultUpsertBatchSize {
		end := start + defaultUpsertBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		if err := s.upsertBatch(ctx, collection, chunks[start:end]); err != nil {
			return &core.StoreError{Op: fmt.Sprintf("upsert_batch[%d:%d]", start, end), Err: err}
		}
	}
	return nil
}

func (s *QdrantStore) upsertBatch(ctx context.Context, collection string, chunks []entity.Chunk) error {
	points := make([]*qdrant.PointStruct, len(chunks))
	for i, c := range chunks {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDNum(entity.PointID(c.ID)),
			Vectors: qdrant.NewVectors(c.Vector...),
			Payload: qdrant.NewValueMap(c.Payload()),
		}
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Points:         points,
	})
	return err
}

// Search performs vector similarity search with an optional score threshold
// and payload filter.
func (s *QdrantStore) Search(ctx context.Context, collection string, vector []float32, limit int, scoreThreshold float32, filter map[string]any) ([]entity.Chunk, error) {
	var qdrantFilter *qdrant.Filter
	if filter != nil {
		qdrantFilter = buildFilter(filter)
	}

	query := &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		Filter:         qdrantFilter,
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if scoreThreshold != 0 {
		query.ScoreThreshold = qdrant.PtrOf(scoreThreshold)
	}

	results, err := s.client.Query(ctx, query)
	if err != nil {
		return nil, &core.StoreError{Op: "search", Err: err}
	}

	chunks := make([]entity.Chunk, len(results))
	for i, r := range results {
		chunks[i] = payloadToChunk(r.Payload)
	}

	return chunks, nil
}

// CheckContentExists reports whether any point carrying content_hash already
// exists in the collection (spec: check_content_exists). Used by the content
// processor to skip re-embedding unchanged chunks.
func (s *QdrantStore) CheckContentExists(ctx context.Context, collection, contentHash string) (bool, error) {
	points, _, err := s.rawScroll(ctx, collection, map[string]any{"content_hash": contentHash}, false, nil, 1)
	if err != nil {
		return false, &core.StoreError{Op: "check_content_exists", Err: err}
	}
	return len(points) > 0, nil
}

// scrollIterationCap is the default mandatory loop-protection bound (P11/S6)
// applied when a caller doesn't supply its own cap.
const scrollIterationCap = 1000

// Scroll performs a full, paginated traversal of a collection (optionally
// filtered), guarding against an infinite loop the way the spec requires: it
// stops after iterationCap pages, and independently stops if the backend
// ever hands back a continuation offset it has already seen. Either
// condition is treated as exhausted, not an error.
func (s *QdrantStore) Scroll(ctx context.Context, collection string, filter map[string]any, withVectors bool, iterationCap int) ([]entity.Chunk, error) {
	if iterationCap <= 0 {
		iterationCap = scrollIterationCap
	}

	raw, _, err := s.rawScroll(ctx, collection, filter, withVectors, nil, iterationCap)
	if err != nil {
		return nil, &core.StoreError{Op: "scroll", Err: err}
	}

	chunks := make([]entity.Chunk, len(raw))
	for i, r := range raw {
		chunks[i] = payloadToChunk(r.GetPayload())
		if withVectors {
			chunks[i].Vector = vectorFromPoint(r)
		}
	}
	return chunks, nil
}

// rawScroll drives scrollPage through scrollAll, translating the
// entity-level filter into a qdrant.Filter exactly once.
func (s *QdrantStore) rawScroll(ctx context.Context, collection string, filter map[string]any, withVectors bool, limit *uint32, iterationCap int) ([]*qdrant.RetrievedPoint, int, error) {
	var qdrantFilter *qdrant.Filter
	if filter != nil {
		qdrantFilter = buildFilter(filter)
	}
	pageLimit := uint32(250)
	if limit != nil {
		pageLimit = *limit
	}

	doScroll := func(offset *qdrant.PointId) ([]*qdrant.RetrievedPoint, *qdrant.PointId, error) {
		resp, err := s.client.GetPointsClient().Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: collection,
			Filter:         qdrantFilter,
			Limit:          qdrant.PtrOf(pageLimit),
			Offset:         offset,
			WithPayload:    qdrant.NewWithPayload(true),
			WithVectors:    qdrant.NewWithVectors(withVectors),
		})
		if err != nil {
			return nil, nil, err
		}
		return resp.GetResult(), resp.GetNextPageOffset(), nil
	}

	return scrollAll(doScroll, iterationCap)
}

// scrollKey renders a continuation offset into a comparable string so
// scrollAll can detect a repeated token without depending on qdrant types
// supporting equality directly.
func scrollKey(id *qdrant.PointId) string {
	if id == nil {
		return ""
	}
	if n, ok := id.GetPointIdOptions().(*qdrant.PointId_Num); ok {
		return fmt.Sprintf("num:%d", n.Num)
	}
	if u, ok := id.GetPointIdOptions().(*qdrant.PointId_Uuid); ok {
		return "uuid:" + u.Uuid
	}
	return ""
}

// scrollPageFunc fetches one page given a continuation offset (nil for the
// first page) and returns the page's points plus the next offset (nil when
// exhausted).
type scrollPageFunc func(offset *qdrant.PointId) (points []*qdrant.RetrievedPoint, next *qdrant.PointId, err error)

// scrollAll drives a scrollPageFunc to completion with mandatory
// loop-protection: it stops after iterationCap pages regardless of what the
// backend reports, and also stops early if the backend repeats a
// continuation token it has already handed out. Factored out of the
// QdrantStore methods so the loop guard itself is unit-testable without a
// live backend.
func scrollAll(fetch scrollPageFunc, iterationCap int) ([]*qdrant.RetrievedPoint, int, error) {
	var all []*qdrant.RetrievedPoint
	seen := map[string]bool{}
	var offset *qdrant.PointId

	iterations := 0
	for iterations < iterationCap {
		iterations++
		points, next, err := fetch(offset)
		if err != nil {
			return nil, iterations, err
		}
		all = append(all, points...)

		if next == nil {
			break
		}
		key := scrollKey(next)
		if key == "" || seen[key] {
			break
		}
		seen[key] = true
		offset = next
	}

	return all, iterations, nil
}

// Point pairs a stored chunk with the numeric point id the backend assigned
// it. Orphan cleanup needs both: the chunk's payload to classify it, and the
// id to issue a DeletePoints call against survivors it rejects.
type Point struct {
	ID    uint64
	Chunk entity.Chunk
}

// ScrollPoints is Scroll plus each point's numeric id, for callers (orphan
// cleanup) that need to delete specific points after classifying them.
func (s *QdrantStore) ScrollPoints(ctx context.Context, collection string, filter map[string]any, iterationCap int) ([]Point, error) {
	if iterationCap <= 0 {
		iterationCap = scrollIterationCap
	}
	raw, _, err := s.rawScroll(ctx, collection, filter, false, nil, iterationCap)
	if err != nil {
		return nil, &core.StoreError{Op: "scroll_points", Err: err}
	}

	points := make([]Point, len(raw))
	for i, r := range raw {
		var id uint64
		if num, ok := r.GetId().GetPointIdOptions().(*qdrant.PointId_Num); ok {
			id = num.Num
		}
		points[i] = Point{ID: id, Chunk: payloadToChunk(r.GetPayload())}
	}
	return points, nil
}

// FindEntitiesForFile returns the point IDs of every chunk whose payload
// names filePath either as its file_path or as its entity_name (spec:
// find_entities_for_file — an OR match, deduplicated by point id).
func (s *QdrantStore) FindEntitiesForFile(ctx context.Context, collection, filePath string, iterationCap int) ([]uint64, error) {
	if iterationCap <= 0 {
		iterationCap = scrollIterationCap
	}

	byPath, _, err := s.rawScroll(ctx, collection, map[string]any{"file_path": filePath}, false, nil, iterationCap)
	if err != nil {
		return nil, &core.StoreError{Op: "find_entities_for_file", Err: err}
	}
	byName, _, err := s.rawScroll(ctx, collection, map[string]any{"entity_name": filePath}, false, nil, iterationCap)
	if err != nil {
		return nil, &core.StoreError{Op: "find_entities_for_file", Err: err}
	}

	seen := map[uint64]bool{}
	var ids []uint64
	for _, r := range append(byPath, byName...) {
		if num, ok := r.GetId().GetPointIdOptions().(*qdrant.PointId_Num); ok {
			if !seen[num.Num] {
				seen[num.Num] = true
				ids = append(ids, num.Num)
			}
		}
	}
	return ids, nil
}

// DeletePoints removes points by numeric ID.
func (s *QdrantStore) DeletePoints(ctx context.Context, collection string, ids []uint64) error {
	if len(ids) == 0 {
		return nil
	}
	pointIDs := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = qdrant.NewIDNum(id)
	}

	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: collection,
		Points:         qdrant.NewPointsSelector(pointIDs...),
	})
	if err != nil {
		return &core.StoreError{Op: "delete_points", Err: err}
	}
	return nil
}

// CollectionInfo contains collection metadata.
type CollectionInfo struct {
	PointsCount int64
	VectorSize  int
	Status      string
}

// CollectionInfo gets collection metadata.
func (s *QdrantStore) CollectionInfo(ctx context.Context, name string) (*CollectionInfo, error) {
	info, err := s.client.GetCollectionInfo(ctx, name)
	if err != nil {
		return nil, &core.StoreError{Op: "collection_info", Err: err}
	}

	vectorSize := 0
	if params := info.Config.GetParams(); params != nil {
		if vecConfig := params.GetVectorsConfig(); vecConfig != nil {
			if vecParams := vecConfig.GetParams(); vecParams != nil {
				vectorSize = int(vecParams.GetSize())
			}
		}
	}

	pointsCount := int64(0)
	if info.PointsCount != nil {
		pointsCount = int64(*info.PointsCount)
	}

	return &CollectionInfo{
		PointsCount: pointsCount,
		VectorSize:  vectorSize,
		Status:      info.Status.String(),
	}, nil
}

func buildFilter(filter map[string]any) *qdrant.Filter {
	var must []*qdrant.Condition

	for key, value := range filter {
		switch v := value.(type) {
		case string:
			must = append(must, &qdrant.Condition{
				ConditionOneOf: &qdrant.Condition_Field{
					Field: &qdrant.FieldCondition{
						Key: key,
						Match: &qdrant.Match{
							MatchValue: &qdrant.Match_Keyword{Keyword: v},
						},
					},
				},
			})
		case bool:
			must = append(must, &qdrant.Condition{
				ConditionOneOf: &qdrant.Condition_Field{
					Field: &qdrant.FieldCondition{
						Key: key,
						Match: &qdrant.Match{
							MatchValue: &qdrant.Match_Boolean{Boolean: v},
						},
					},
				},
			})
		}
	}

	return &qdrant.Filter{Must: must}
}

func vectorFromPoint(r *qdrant.RetrievedPoint) []float32 {
	vectors := r.GetVectors()
	if vectors == nil {
		return nil
	}
	if v := vectors.GetVector(); v != nil {
		return v.GetData()
	}
	return nil
}

func payloadToChunk(payload map[string]*qdrant.Value) entity.Chunk {
	getString := func(key string) string {
		if v, ok := payload[key]; ok {
			return v.GetStringValue()
		}
		return ""
	}
	getInt := func(key string) int {
		if v, ok := payload[key]; ok {
			return int(v.GetIntegerValue())
		}
		return 0
	}
	getBool := func(key string) bool {
		if v, ok := payload[key]; ok {
			return v.GetBoolValue()
		}
		return false
	}
	getFloat := func(key string) float64 {
		if v, ok := payload[key]; ok {
			return v.GetDoubleValue()
		}
		return 0
	}

	return entity.Chunk{
		EntityName:        getString("entity_name"),
		ChunkKind:         entity.ChunkKind(getString("chunk_kind")),
		Content:           getString("content"),
		EntityType:        getString("entity_type"),
		FilePath:          getString("file_path"),
		LineNumber:        getInt("line_number"),
		EndLineNumber:     getInt("end_line_number"),
		StartLine:         getInt("start_line"),
		EndLine:           getInt("end_line"),
		HasImplementation: getBool("has_implementation"),
		RelationTarget:    getString("relation_target"),
		RelationType:      getString("relation_type"),
		ImportType:        getString("import_type"),
		Context:           getString("context"),
		Confidence:        getFloat("confidence"),
	}
}
