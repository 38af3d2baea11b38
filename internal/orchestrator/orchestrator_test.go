package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kdevlin/semindex/internal/cache"
	"github.com/kdevlin/semindex/internal/config"
	"github.com/kdevlin/semindex/internal/state"
)

func TestInternalPackageNamesFromDirectoryLayout(t *testing.T) {
	current := map[string]state.Record{
		"chat/parser.py":  {},
		"chat/handler.py": {},
		"main.py":         {},
	}
	repoCfg := &config.RepoConfig{}

	names := internalPackageNames(repoCfg, current)

	assert.True(t, names["chat"])
	assert.True(t, names["main"])
}

func TestInternalPackageNamesIncludesConfiguredModules(t *testing.T) {
	repoCfg := &config.RepoConfig{
		Modules: map[string]config.Module{"pkg": {Description: "core package"}},
	}

	names := internalPackageNames(repoCfg, map[string]state.Record{})

	assert.True(t, names["pkg"])
}

func TestContentHashIsDeterministic(t *testing.T) {
	a := contentHash([]byte("hello"))
	b := contentHash([]byte("hello"))
	c := contentHash([]byte("world"))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

// TestRunAgainstLiveBackends exercises a full Run() against a real Qdrant
// instance and Voyage API key, matching the teacher's store-test pattern of
// skipping when the environment isn't configured for an integration run.
func TestRunAgainstLiveBackends(t *testing.T) {
	qdrantURL := os.Getenv("QDRANT_URL")
	voyageKey := os.Getenv("VOYAGE_API_KEY")
	if qdrantURL == "" || voyageKey == "" {
		t.Skip("QDRANT_URL and VOYAGE_API_KEY not set, skipping integration test")
	}

	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "main.py"), []byte(`
def greet(name):
    """Say hello to name."""
    return f"hello {name}"
`), 0644))

	cfg := config.DefaultConfig()
	cfg.Storage.QdrantURL = qdrantURL

	orch, err := New(cfg, voyageKey, (*cache.RedisCache)(nil))
	require.NoError(t, err)

	repoCfg := &config.RepoConfig{Name: "semindex-orchestrator-test", Collection: "semindex_orchestrator_test"}

	result, err := orch.Run(context.Background(), tmpDir, repoCfg)
	require.NoError(t, err)
	assert.Equal(t, 1, result.FilesProcessed)
	assert.Greater(t, result.ChunksCreated, 0)

	require.NoError(t, orch.store.DeleteCollection(context.Background(), repoCfg.Collection))
}
