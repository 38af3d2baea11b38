// Package process implements the Content Processor (C6): the three-phase
// dedup/embed/point-build flow that turns parser output into vector-store
// points, sharing a single cost accumulator across phases. Grounded on the
// teacher's internal/indexer.Index embedding/storage loop, generalized from
// a single flat chunk list into the spec's three ordered phases, and on
// original_source's processing/unified_processor.py + processors.py for the
// phase boundaries, truncation, and dedup-then-embed ordering.
package process

import (
	"context"
	"fmt"
	"time"

	"github.com/kdevlin/semindex/internal/core"
	"github.com/kdevlin/semindex/internal/entity"
)

// Embedder is the opaque text->vector collaborator the spec treats as an
// external provider with cost telemetry (spec §1's "embedding provider").
type Embedder interface {
	EmbedWithUsage(ctx context.Context, texts []string) (EmbedResult, error)
	MaxTokens() int
	EstimateCost(tokens int) float64
}

// EmbedResult mirrors embedding.EmbedResult without binding this package to
// a concrete provider implementation.
type EmbedResult struct {
	Vectors [][]float32
	Tokens  int
}

// ContentChecker is the subset of the Vector Store Adapter (C7) the
// processor needs for dedup-by-content-hash.
type ContentChecker interface {
	CheckContentExists(ctx context.Context, collection, contentHash string) (bool, error)
}

// ExistenceCache is an optional read-through cache in front of
// ContentChecker (spec's domain-stack wiring for Redis, SPEC_FULL §B). A nil
// cache is valid: the processor falls back to asking the store directly.
type ExistenceCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

const existenceCacheTTL = 24 * time.Hour

// truncationBuffer is subtracted from the embedder's max token budget before
// truncating chunk content (spec §4.5: "embedder.max_tokens − 400").
const truncationBuffer = 400

// charsPerToken is a conservative token-length heuristic; the embedder
// contract doesn't expose its tokenizer, so content length is estimated in
// UTF-8 bytes rather than tokenized exactly.
const charsPerToken = 4

// BatchContext carries the cross-cutting state phases need: the target
// collection, which entity names changed in this run (empty means "no
// filter, keep all relations"), and which entity names got an
// implementation chunk in this batch (spec §4.5's ctx parameter).
type BatchContext struct {
	Collection       string
	ChangedEntities  map[string]bool
	EntitiesWithImpl map[string]bool
}

// FailedItem records a chunk that failed to embed; the batch continues
// around it (spec §4.8: "An embedding failure for a single chunk marks that
// chunk failed; other chunks in the batch still produce points").
type FailedItem struct {
	ChunkID string
	Err     error
}

// Result is the spec's ProcessingResult: points ready for upsert plus the
// shared cost/outcome accounting.
type Result struct {
	Points   []entity.Chunk
	Tokens   int
	Cost     float64
	Requests int
	Skipped  int
	Failed   []FailedItem
}

func (r *Result) merge(other Result) {
	r.Points = append(r.Points, other.Points...)
	r.Tokens += other.Tokens
	r.Cost += other.Cost
	r.Requests += other.Requests
	r.Skipped += other.Skipped
	r.Failed = append(r.Failed, other.Failed...)
}

// Processor is the Content Processor.
type Processor struct {
	embedder Embedder
	store    ContentChecker
	cache    ExistenceCache
}

// New builds a Processor. cache may be nil.
func New(embedder Embedder, store ContentChecker, cache ExistenceCache) *Processor {
	return &Processor{embedder: embedder, store: store, cache: cache}
}

// Process runs the three ordered phases and returns their combined result.
// Per spec §4.5, phases execute in order and a fatal backend error
// short-circuits the remaining phases.
func (p *Processor) Process(ctx context.Context, entities []entity.Entity, relations []entity.Relation, metaChunks, implChunks []entity.Chunk, bctx BatchContext) (Result, error) {
	var result Result

	// Phase 1: entity metadata.
	metaByEntity := make(map[string]entity.Chunk, len(metaChunks))
	for _, c := range metaChunks {
		metaByEntity[c.EntityName] = c
	}
	var phase1 []entity.Chunk
	for _, e := range entities {
		c, ok := metaByEntity[e.Name]
		if !ok {
			continue
		}
		c.HasImplementation = bctx.EntitiesWithImpl[e.Name]
		phase1 = append(phase1, c)
	}
	r1, err := p.processChunks(ctx, phase1, bctx.Collection)
	if err != nil {
		return result, &core.StoreError{Op: "process_entities", Err: err}
	}
	result.merge(r1)

	// Phase 2: relations, filtered to those touching a changed entity.
	var relChunks []entity.Chunk
	for _, rel := range relations {
		if len(bctx.ChangedEntities) > 0 && !bctx.ChangedEntities[rel.From] && !bctx.ChangedEntities[rel.To] {
			continue
		}
		relChunks = append(relChunks, relationToChunk(rel))
	}
	r2, err := p.processChunks(ctx, relChunks, bctx.Collection)
	if err != nil {
		return result, &core.StoreError{Op: "process_relations", Err: err}
	}
	result.merge(r2)

	// Phase 3: implementation chunks.
	r3, err := p.processChunks(ctx, implChunks, bctx.Collection)
	if err != nil {
		return result, &core.StoreError{Op: "process_impl_chunks", Err: err}
	}
	result.merge(r3)

	return result, nil
}

// processChunks is the shared truncate -> dedup -> batch-embed -> point-ify
// flow phases 1-3 all run (spec §4.5: "Same truncation + dedup-by-hash
// flow").
func (p *Processor) processChunks(ctx context.Context, chunks []entity.Chunk, collection string) (Result, error) {
	var result Result
	if len(chunks) == 0 {
		return result, nil
	}

	maxTokens := p.embedder.MaxTokens() - truncationBuffer
	toEmbed := make([]entity.Chunk, 0, len(chunks))

	for _, c := range chunks {
		c.Content = truncateToTokenBudget(c.Content, maxTokens)
		c.Collection = collection
		hash := entity.ContentHash(c.Content)

		exists, err := p.contentExists(ctx, collection, hash)
		if err != nil {
			return result, err
		}
		if exists {
			result.Skipped++
			continue
		}
		toEmbed = append(toEmbed, c)
	}

	if len(toEmbed) == 0 {
		return result, nil
	}

	texts := make([]string, len(toEmbed))
	for i, c := range toEmbed {
		texts[i] = c.Content
	}

	embedded, err := p.embedder.EmbedWithUsage(ctx, texts)
	if err != nil {
		// The whole batch call failed; every pending chunk is marked failed
		// rather than aborting the run (the provider gives no per-item
		// granularity on a batch request).
		for _, c := range toEmbed {
			result.Failed = append(result.Failed, FailedItem{ChunkID: c.ID, Err: err})
		}
		return result, nil
	}

	result.Requests++
	result.Tokens += embedded.Tokens
	result.Cost += p.embedder.EstimateCost(embedded.Tokens)

	for i, c := range toEmbed {
		if i >= len(embedded.Vectors) || embedded.Vectors[i] == nil {
			result.Failed = append(result.Failed, FailedItem{ChunkID: c.ID, Err: fmt.Errorf("no vector returned for chunk %s", c.ID)})
			continue
		}
		c.Vector = embedded.Vectors[i]
		result.Points = append(result.Points, c)
	}

	return result, nil
}

func (p *Processor) contentExists(ctx context.Context, collection, hash string) (bool, error) {
	cacheKey := fmt.Sprintf("content_exists:%s:%s", collection, hash)
	if p.cache != nil {
		if v, err := p.cache.Get(ctx, cacheKey); err == nil && v == "1" {
			return true, nil
		}
	}

	exists, err := p.store.CheckContentExists(ctx, collection, hash)
	if err != nil {
		return false, err
	}
	if exists && p.cache != nil {
		_ = p.cache.Set(ctx, cacheKey, "1", existenceCacheTTL)
	}
	return exists, nil
}

func truncateToTokenBudget(content string, maxTokens int) string {
	if maxTokens <= 0 {
		return content
	}
	maxChars := maxTokens * charsPerToken
	if len(content) <= maxChars {
		return content
	}
	return content[:maxChars]
}

// relationToChunk builds the RelationChunk the spec describes: content is
// the sentence "{from} {kind} {to}", id is deterministic per §3.
func relationToChunk(r entity.Relation) entity.Chunk {
	return entity.Chunk{
		ID:             entity.IDForRelation(r.From, r.Kind, r.To, r.ImportType),
		EntityName:     r.From,
		ChunkKind:      entity.ChunkRelation,
		Content:        fmt.Sprintf("%s %s %s", r.From, r.Kind, r.To),
		RelationTarget: r.To,
		RelationType:   string(r.Kind),
		ImportType:     r.ImportType,
		Context:        r.Context,
		Confidence:     r.Confidence,
	}
}
