package search

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kdevlin/semindex/internal/config"
)

func TestHandlerListTools(t *testing.T) {
	cfg := config.DefaultConfig()
	handler := &Handler{config: cfg}

	tools := handler.ListTools()

	require.Len(t, tools, 2)
	assert.Equal(t, "search_code", tools[0].Name)
	assert.Contains(t, tools[0].InputSchema.Required, "query")
	assert.Contains(t, tools[0].InputSchema.Required, "collection")
	assert.Equal(t, "fetch_implementation", tools[1].Name)
}

func TestHandlerListResourcesIsEmpty(t *testing.T) {
	cfg := config.DefaultConfig()
	handler := &Handler{config: cfg}

	assert.Empty(t, handler.ListResources())
}

func TestHandlerCallToolUnknown(t *testing.T) {
	cfg := config.DefaultConfig()
	handler := &Handler{config: cfg, classifier: NewClassifier(), suggestionGen: NewSuggestionGenerator()}

	_, err := handler.CallTool(context.Background(), "unknown_tool", nil)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown tool")
}

func TestHandlerCallToolMissingQuery(t *testing.T) {
	cfg := config.DefaultConfig()
	handler := &Handler{config: cfg, classifier: NewClassifier(), suggestionGen: NewSuggestionGenerator()}

	result, err := handler.CallTool(context.Background(), "search_code", map[string]interface{}{"collection": "chunks"})

	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, result.Content[0].Text, "query parameter is required")
}

func TestHandlerCallToolMissingCollection(t *testing.T) {
	cfg := config.DefaultConfig()
	handler := &Handler{config: cfg, classifier: NewClassifier(), suggestionGen: NewSuggestionGenerator()}

	result, err := handler.CallTool(context.Background(), "search_code", map[string]interface{}{"query": "hello"})

	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, result.Content[0].Text, "collection parameter is required")
}

func TestKindFilterToPayload(t *testing.T) {
	assert.Equal(t, map[string]any{"chunk_kind": "metadata"}, kindFilterToPayload(KindEntity))
	assert.Equal(t, map[string]any{"chunk_kind": "relation"}, kindFilterToPayload(KindRelation))
	assert.Equal(t, map[string]any{"entity_type": "chat_history"}, kindFilterToPayload(KindChat))
	assert.Nil(t, kindFilterToPayload(KindAll))
}

func TestFormatEmptyResponse(t *testing.T) {
	cfg := config.DefaultConfig()
	handler := &Handler{config: cfg, suggestionGen: NewSuggestionGenerator()}

	response := handler.formatEmptyResponse("test query", "my-collection")

	assert.Contains(t, response, "No direct matches")
	assert.Contains(t, response, "test query")
}

func TestHandlerSearchIntegration(t *testing.T) {
	if os.Getenv("VOYAGE_API_KEY") == "" || os.Getenv("QDRANT_URL") == "" {
		t.Skip("Integration test requires VOYAGE_API_KEY and QDRANT_URL")
	}

	cfg := config.DefaultConfig()
	cfg.Storage.QdrantURL = os.Getenv("QDRANT_URL")

	handler, err := NewHandler(cfg, os.Getenv("VOYAGE_API_KEY"), nil)
	require.NoError(t, err)

	ctx := context.Background()
	result, err := handler.CallTool(ctx, "search_code", map[string]interface{}{
		"query":      "hello world",
		"collection": "chunks",
		"limit":      float64(5),
	})
	require.NoError(t, err)

	assert.False(t, result.IsError)
	assert.NotEmpty(t, result.Content)
}
