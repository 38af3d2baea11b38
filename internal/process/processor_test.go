package process

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kdevlin/semindex/internal/entity"
)

type fakeEmbedder struct {
	maxTokens  int
	costPerTok float64
	err        error
}

func (f *fakeEmbedder) EmbedWithUsage(ctx context.Context, texts []string) (EmbedResult, error) {
	if f.err != nil {
		return EmbedResult{}, f.err
	}
	vecs := make([][]float32, len(texts))
	for i := range texts {
		vecs[i] = []float32{float32(len(texts[i]))}
	}
	return EmbedResult{Vectors: vecs, Tokens: len(texts) * 10}, nil
}
func (f *fakeEmbedder) MaxTokens() int                { return f.maxTokens }
func (f *fakeEmbedder) EstimateCost(tokens int) float64 { return float64(tokens) * f.costPerTok }

type fakeStore struct {
	existing map[string]bool
}

func (s *fakeStore) CheckContentExists(ctx context.Context, collection, hash string) (bool, error) {
	return s.existing[hash], nil
}

func newTestProcessor(maxTokens int) (*Processor, *fakeStore) {
	store := &fakeStore{existing: map[string]bool{}}
	embedder := &fakeEmbedder{maxTokens: maxTokens, costPerTok: 0.0001}
	return New(embedder, store, nil), store
}

func TestProcessEntityMetadataSetsHasImplementationFromContext(t *testing.T) {
	p, _ := newTestProcessor(1000)
	entities := []entity.Entity{{Name: "f", Kind: entity.KindFunction}}
	meta := []entity.Chunk{{ID: "a.py::f::metadata", EntityName: "f", ChunkKind: entity.ChunkMetadata, Content: "def f()"}}

	result, err := p.Process(context.Background(), entities, nil, meta, nil, BatchContext{
		Collection:       "chunks",
		EntitiesWithImpl: map[string]bool{"f": true},
	})
	require.NoError(t, err)
	require.Len(t, result.Points, 1)
	assert.True(t, result.Points[0].HasImplementation)
}

func TestProcessSkipsExistingContentHash(t *testing.T) {
	p, store := newTestProcessor(1000)
	meta := entity.Chunk{ID: "a.py::f::metadata", EntityName: "f", ChunkKind: entity.ChunkMetadata, Content: "def f()"}
	store.existing[entity.ContentHash(meta.Content)] = true

	result, err := p.Process(context.Background(), []entity.Entity{{Name: "f"}}, nil, []entity.Chunk{meta}, nil, BatchContext{Collection: "chunks"})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Skipped)
	assert.Empty(t, result.Points)
}

func TestProcessRelationsFilteredByChangedEntities(t *testing.T) {
	p, _ := newTestProcessor(1000)
	relations := []entity.Relation{
		{From: "a.py", To: "f", Kind: entity.RelContains},
		{From: "b.py", To: "g", Kind: entity.RelContains},
	}

	result, err := p.Process(context.Background(), nil, relations, nil, nil, BatchContext{
		Collection:      "chunks",
		ChangedEntities: map[string]bool{"a.py": true, "f": true},
	})
	require.NoError(t, err)
	require.Len(t, result.Points, 1)
	assert.Equal(t, "a.py", result.Points[0].EntityName)
}

func TestProcessTruncatesOversizedContent(t *testing.T) {
	p, _ := newTestProcessor(1000) // 1000 - 400 buffer => 600 tokens, 2400 chars
	long := strings.Repeat("x", 100000)
	impl := entity.Chunk{ID: "a.py::f::implementation", EntityName: "f", ChunkKind: entity.ChunkImplementation, Content: long}

	result, err := p.Process(context.Background(), nil, nil, nil, []entity.Chunk{impl}, BatchContext{Collection: "chunks"})
	require.NoError(t, err)
	require.Len(t, result.Points, 1)
	assert.Less(t, len(result.Points[0].Content), len(long))
}

func TestProcessEmbedFailureMarksChunksFailedNotFatal(t *testing.T) {
	store := &fakeStore{existing: map[string]bool{}}
	embedder := &fakeEmbedder{maxTokens: 1000, err: errors.New("provider down")}
	p := New(embedder, store, nil)

	impl := entity.Chunk{ID: "a.py::f::implementation", EntityName: "f", ChunkKind: entity.ChunkImplementation, Content: "body"}
	result, err := p.Process(context.Background(), nil, nil, nil, []entity.Chunk{impl}, BatchContext{Collection: "chunks"})
	require.NoError(t, err)
	assert.Empty(t, result.Points)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, impl.ID, result.Failed[0].ChunkID)
}

func TestProcessAccumulatesCostAcrossPhases(t *testing.T) {
	p, _ := newTestProcessor(1000)
	meta := []entity.Chunk{{ID: "a.py::f::metadata", EntityName: "f", ChunkKind: entity.ChunkMetadata, Content: "sig"}}
	impl := []entity.Chunk{{ID: "a.py::f::implementation", EntityName: "f", ChunkKind: entity.ChunkImplementation, Content: "body"}}
	relations := []entity.Relation{{From: "a.py", To: "f", Kind: entity.RelContains}}

	result, err := p.Process(context.Background(), []entity.Entity{{Name: "f"}}, relations, meta, impl, BatchContext{Collection: "chunks"})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Requests)
	assert.Greater(t, result.Cost, 0.0)
	assert.Greater(t, result.Tokens, 0)
}
