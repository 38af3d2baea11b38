// Package search implements the Search Facade (C10): progressive-disclosure
// semantic search over the vector store's dual-chunk model. A search returns
// the chunk kinds its kind filter selects (metadata chunks for "entity",
// relation chunks for "relation"; "all", the default, applies no filter);
// callers fetch an entity's paired implementation chunk on demand with
// FetchImplementation (spec §4.9). Grounded on the teacher's internal/search
// package, generalized from its flat chunk.Chunk model onto entity.Chunk
// and the chunk_kind/entity_type payload the new store adapter writes.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/kdevlin/semindex/internal/cache"
	"github.com/kdevlin/semindex/internal/config"
	"github.com/kdevlin/semindex/internal/embedding"
	"github.com/kdevlin/semindex/internal/entity"
	"github.com/kdevlin/semindex/internal/mcp"
	"github.com/kdevlin/semindex/internal/metrics"
	"github.com/kdevlin/semindex/internal/store"
)

// KindFilter narrows a search to one chunk family (spec §4.9).
type KindFilter string

const (
	KindEntity   KindFilter = "entity"
	KindRelation KindFilter = "relation"
	KindChat     KindFilter = "chat"
	KindAll      KindFilter = "all"
)

// queryCacheTTL bounds how long a cached query response is served before a
// repeated search re-embeds the query.
const queryCacheTTL = 10 * time.Minute

// GraphExpander is the optional auxiliary read replica (graphmirror, C-aux)
// a handler can use to widen relationship-style queries. A nil expander
// just means graph expansion is skipped — search still works from the
// vector store alone.
type GraphExpander interface {
	RelatedEntities(ctx context.Context, name string, depth int) ([]string, error)
}

// Handler implements mcp.Handler for semantic code search.
type Handler struct {
	config        *config.Config
	embedder      *embedding.VoyageClient
	store         *store.QdrantStore
	cache         *cache.RedisCache
	metrics       *metrics.Logger
	graph         GraphExpander
	classifier    *Classifier
	suggestionGen *SuggestionGenerator
	logger        *slog.Logger
}

// NewHandler creates a new search handler.
func NewHandler(cfg *config.Config, voyageKey string, logger *slog.Logger) (*Handler, error) {
	if logger == nil {
		logger = slog.Default()
	}

	embedder := embedding.NewVoyageClient(voyageKey, cfg.Embedding.Model)

	qdrantStore, err := store.NewQdrantStore(cfg.Storage.QdrantURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Qdrant: %w", err)
	}

	var queryCache *cache.RedisCache
	if cfg.Storage.RedisURL != "" {
		queryCache, err = cache.NewRedisCache(cfg.Storage.RedisURL)
		if err != nil {
			logger.Warn("Redis cache unavailable, continuing without cache", "error", err)
		}
	}

	var metricsLogger *metrics.Logger
	if homeDir, herr := os.UserHomeDir(); herr == nil {
		metricsPath := filepath.Join(homeDir, ".local", "share", "semindex", "metrics.jsonl")
		if merr := os.MkdirAll(filepath.Dir(metricsPath), 0755); merr == nil {
			metricsLogger, _ = metrics.NewLogger(metricsPath)
		}
	}

	return &Handler{
		config:        cfg,
		embedder:      embedder,
		store:         qdrantStore,
		cache:         queryCache,
		metrics:       metricsLogger,
		classifier:    NewClassifier(),
		suggestionGen: NewSuggestionGenerator(),
		logger:        logger,
	}, nil
}

// SetGraphExpander attaches an optional auxiliary graph store for
// relationship-style query widening.
func (h *Handler) SetGraphExpander(g GraphExpander) { h.graph = g }

// Close releases resources held by the handler.
func (h *Handler) Close() error {
	if h.cache != nil {
		h.cache.Close()
	}
	if h.store != nil {
		h.store.Close()
	}
	if h.metrics != nil {
		h.metrics.Close()
	}
	return nil
}

// Search is the spec §4.9 facade: embed the query, search the collection,
// and return raw hits — metadata and relation chunks only unless kindFilter
// is "all" or "chat". Implementation bodies are fetched separately via
// FetchImplementation, the progressive-disclosure second step.
func (h *Handler) Search(ctx context.Context, collection, query string, limit int, kindFilter KindFilter) ([]entity.Chunk, error) {
	if limit <= 0 {
		limit = 10
	}

	vectors, err := h.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	filter := kindFilterToPayload(kindFilter)

	return h.store.Search(ctx, collection, vectors[0], limit, 0, filter)
}

// kindFilterToPayload maps the spec's four-value kind_filter onto a payload
// filter: entity/relation map to chunk_kind, chat maps to entity_type
// (chat-history entities carry that entity_type on their metadata chunk),
// "all" (and the zero value) applies no filter.
func kindFilterToPayload(k KindFilter) map[string]any {
	switch k {
	case KindEntity:
		return map[string]any{"chunk_kind": string(entity.ChunkMetadata)}
	case KindRelation:
		return map[string]any{"chunk_kind": string(entity.ChunkRelation)}
	case KindChat:
		return map[string]any{"entity_type": string(entity.KindChatHistory)}
	default:
		return nil
	}
}

// FetchImplementation is progressive disclosure's second step: given an
// entity name found via a metadata-only Search, fetch its paired
// implementation chunk body. Returns "" with no error if the entity has no
// implementation (spec §4.2's has_implementation flag was false).
func (h *Handler) FetchImplementation(ctx context.Context, collection, entityName string) (string, error) {
	filter := map[string]any{
		"entity_name": entityName,
		"chunk_kind":  string(entity.ChunkImplementation),
	}

	chunks, err := h.store.Scroll(ctx, collection, filter, false, h.config.Indexing.ScrollIterCap)
	if err != nil {
		return "", fmt.Errorf("fetch implementation for %s: %w", entityName, err)
	}
	if len(chunks) == 0 {
		return "", nil
	}
	return chunks[0].Content, nil
}

// ListTools returns available tools (implements mcp.Handler).
func (h *Handler) ListTools() []mcp.Tool {
	return []mcp.Tool{
		{
			Name:        "search_code",
			Description: "Find code by concept using semantic search. Use when you don't know exact symbol names but know what you're looking for.",
			InputSchema: mcp.InputSchema{
				Type: "object",
				Properties: map[string]mcp.Property{
					"query": {
						Type:        "string",
						Description: "Describe what you're looking for in natural language",
					},
					"collection": {
						Type:        "string",
						Description: "Vector store collection to search",
					},
					"kind": {
						Type:        "string",
						Description: "Narrow results to entity, relation, chat, or all (default: all)",
						Enum:        []string{"entity", "relation", "chat", "all"},
					},
					"limit": {
						Type:        "number",
						Description: "Maximum results to return (default: 10)",
					},
					"cursor": {
						Type:        "string",
						Description: "Pagination cursor from a previous response",
					},
				},
				Required: []string{"query", "collection"},
			},
		},
		{
			Name:        "fetch_implementation",
			Description: "Fetch the full implementation body for an entity previously returned by search_code.",
			InputSchema: mcp.InputSchema{
				Type: "object",
				Properties: map[string]mcp.Property{
					"collection": {Type: "string", Description: "Vector store collection"},
					"entity":     {Type: "string", Description: "Entity name from a prior search result"},
				},
				Required: []string{"collection", "entity"},
			},
		},
	}
}

// CallTool processes a tool invocation (implements mcp.Handler).
func (h *Handler) CallTool(ctx context.Context, name string, args map[string]interface{}) (*mcp.CallToolResult, error) {
	switch name {
	case "search_code":
		return h.searchCode(ctx, args)
	case "fetch_implementation":
		return h.fetchImplementation(ctx, args)
	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// ListResources returns available resources (implements mcp.Handler). This
// deployment doesn't auto-inject contextual resources, so the list is empty.
func (h *Handler) ListResources() []mcp.Resource { return nil }

// ReadResource processes a resource read (implements mcp.Handler).
func (h *Handler) ReadResource(ctx context.Context, uri string) (*mcp.ReadResourceResult, error) {
	return nil, fmt.Errorf("unknown resource: %s", uri)
}

func (h *Handler) searchCode(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
	startTime := time.Now()

	query, _ := args["query"].(string)
	if query == "" {
		return &mcp.CallToolResult{
			Content: []mcp.Content{{Type: "text", Text: "query parameter is required"}},
			IsError: true,
		}, nil
	}

	collection, _ := args["collection"].(string)
	if collection == "" {
		return &mcp.CallToolResult{
			Content: []mcp.Content{{Type: "text", Text: "collection parameter is required"}},
			IsError: true,
		}, nil
	}

	kind := KindFilter(stringArg(args, "kind", string(KindAll)))

	limit := 10
	if l, ok := args["limit"].(float64); ok && l > 0 {
		limit = int(l)
	}

	var offset int
	if cursorStr, ok := args["cursor"].(string); ok && cursorStr != "" {
		cursor, err := DecodeCursor(cursorStr)
		if err != nil {
			return &mcp.CallToolResult{
				Content: []mcp.Content{{Type: "text", Text: fmt.Sprintf("invalid cursor: %s", err.Error())}},
				IsError: true,
			}, nil
		}
		offset = cursor.Offset
	}

	queryType := h.classifier.Classify(query)

	var cacheKey string
	if h.cache != nil {
		version, _ := h.cache.GetIndexVersion(ctx, collection)
		cacheKey = cache.QueryCacheKey(collection, query, version)
		if cached, err := h.cache.Get(ctx, cacheKey); err == nil && cached != "" {
			if h.metrics != nil {
				h.metrics.LogSearch(query, string(queryType), -1, time.Since(startTime).Milliseconds(), true)
			}
			return &mcp.CallToolResult{Content: []mcp.Content{{Type: "text", Text: cached}}}, nil
		}
	}

	fetchLimit := offset + limit + 1
	hits, err := h.Search(ctx, collection, query, fetchLimit, kind)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	if queryType == QueryTypeRelationship && h.graph != nil {
		hits = h.expandWithGraph(ctx, collection, hits, fetchLimit)
	}

	results := make([]SearchResult, len(hits))
	for i, c := range hits {
		results[i] = SearchResult{
			EntityName:        c.EntityName,
			Kind:              string(c.ChunkKind),
			EntityType:        c.EntityType,
			FilePath:          c.FilePath,
			StartLine:         c.LineNumber,
			EndLine:           c.EndLineNumber,
			Content:           c.Content,
			HasImplementation: c.HasImplementation,
			RelationTarget:    c.RelationTarget,
			RelationType:      c.RelationType,
		}
	}

	queryHash := HashQuery(query, collection, string(kind))
	paginated := Paginate(results, offset, limit, queryHash, string(queryType))

	var response string
	if len(paginated.Results) == 0 && offset == 0 {
		response = h.formatEmptyResponse(query, collection)
	} else {
		data, _ := json.MarshalIndent(paginated, "", "  ")
		response = string(data)
	}

	if h.cache != nil && cacheKey != "" {
		if err := h.cache.Set(ctx, cacheKey, response, queryCacheTTL); err != nil {
			h.logger.Warn("failed to cache search result", "error", err)
		}
	}

	if h.metrics != nil {
		h.metrics.LogSearch(query, string(queryType), len(paginated.Results), time.Since(startTime).Milliseconds(), false)
	}

	return &mcp.CallToolResult{Content: []mcp.Content{{Type: "text", Text: response}}}, nil
}

func (h *Handler) fetchImplementation(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
	collection, _ := args["collection"].(string)
	entityName, _ := args["entity"].(string)
	if collection == "" || entityName == "" {
		return &mcp.CallToolResult{
			Content: []mcp.Content{{Type: "text", Text: "collection and entity parameters are required"}},
			IsError: true,
		}, nil
	}

	content, err := h.FetchImplementation(ctx, collection, entityName)
	if err != nil {
		return nil, err
	}
	if content == "" {
		return &mcp.CallToolResult{
			Content: []mcp.Content{{Type: "text", Text: fmt.Sprintf("no implementation stored for %s", entityName)}},
			IsError: true,
		}, nil
	}

	return &mcp.CallToolResult{Content: []mcp.Content{{Type: "text", Text: content}}}, nil
}

// expandWithGraph widens relationship-style results using the optional
// graphmirror auxiliary store: for each hit it looks up related entity
// names, then fetches a metadata chunk for each new name. Best-effort —
// lookup failures just leave the original hit set untouched.
func (h *Handler) expandWithGraph(ctx context.Context, collection string, hits []entity.Chunk, limit int) []entity.Chunk {
	if h.graph == nil || len(hits) == 0 {
		return hits
	}

	seen := make(map[string]bool, len(hits))
	for _, c := range hits {
		seen[c.EntityName] = true
	}

	for _, c := range hits {
		if c.EntityName == "" {
			continue
		}
		related, err := h.graph.RelatedEntities(ctx, c.EntityName, 1)
		if err != nil {
			h.logger.Warn("graph expansion failed", "entity", c.EntityName, "error", err)
			continue
		}
		for _, name := range related {
			if seen[name] {
				continue
			}
			match, ferr := h.store.Scroll(ctx, collection, map[string]any{
				"entity_name": name,
				"chunk_kind":  string(entity.ChunkMetadata),
			}, false, 1)
			if ferr != nil || len(match) == 0 {
				continue
			}
			hits = append(hits, match[0])
			seen[name] = true
			if len(hits) >= limit {
				return hits
			}
		}
	}

	return hits
}

func (h *Handler) formatEmptyResponse(query, collection string) string {
	suggestions := h.suggestionGen.Generate(query)
	response := h.suggestionGen.FormatEmptyResponse(query, collection, suggestions)

	data, _ := json.MarshalIndent(response, "", "  ")
	return string(data)
}

func stringArg(args map[string]interface{}, key, def string) string {
	if v, ok := args[key].(string); ok && v != "" {
		return v
	}
	return def
}

// SearchResponse is the structured search result (kept for documentation
// parity with PaginatedResponse; callers consume the JSON directly).
type SearchResponse struct {
	QueryType  string         `json:"query_type"`
	Results    []SearchResult `json:"results"`
	TotalCount int            `json:"total_count"`
	HasMore    bool           `json:"has_more"`
	Cursor     string         `json:"cursor,omitempty"`
}

// SearchResult is a single search hit, flattened from entity.Chunk for the
// MCP-facing JSON response.
type SearchResult struct {
	EntityName        string `json:"entity_name"`
	Kind              string `json:"kind"`
	EntityType        string `json:"entity_type,omitempty"`
	FilePath          string `json:"file_path,omitempty"`
	StartLine         int    `json:"start_line,omitempty"`
	EndLine           int    `json:"end_line,omitempty"`
	Content           string `json:"content"`
	HasImplementation bool   `json:"has_implementation,omitempty"`
	RelationTarget    string `json:"relation_target,omitempty"`
	RelationType      string `json:"relation_type,omitempty"`
}
