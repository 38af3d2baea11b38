package graphmirror

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kdevlin/semindex/internal/entity"
)

func TestRelationLabelKnownKinds(t *testing.T) {
	assert.Equal(t, "CALLS", relationLabel(entity.RelCalls))
	assert.Equal(t, "EXTENDS", relationLabel(entity.RelExtends))
	assert.Equal(t, "RELATES_TO", relationLabel(entity.RelationKind("made_up")))
}

func TestNewConnectionFailure(t *testing.T) {
	_, err := New("bolt://nonexistent:7687", "neo4j", "password")
	assert.Error(t, err)
}

func TestStoreIntegration(t *testing.T) {
	neo4jURL := os.Getenv("NEO4J_URL")
	if neo4jURL == "" {
		t.Skip("NEO4J_URL not set, skipping integration test")
	}
	username := os.Getenv("NEO4J_USER")
	if username == "" {
		username = "neo4j"
	}
	password := os.Getenv("NEO4J_PASSWORD")
	if password == "" {
		password = "password"
	}

	ctx := context.Background()
	store, err := New(neo4jURL, username, password)
	require.NoError(t, err)
	defer store.Close(ctx)

	require.NoError(t, store.EnsureSchema(ctx))

	const collection = "graphmirror-test"
	require.NoError(t, store.UpsertEntity(ctx, collection, entity.Entity{
		Name: "processData", Kind: entity.KindFunction, FilePath: "helpers.py", LineStart: 10, LineEnd: 25,
	}))
	require.NoError(t, store.UpsertEntity(ctx, collection, entity.Entity{
		Name: "validateInput", Kind: entity.KindFunction, FilePath: "helpers.py", LineStart: 30, LineEnd: 45,
	}))
	require.NoError(t, store.UpsertRelation(ctx, collection, entity.Relation{
		From: "processData", To: "validateInput", Kind: entity.RelCalls,
	}))

	related, err := store.RelatedEntities(ctx, "processData", 1)
	require.NoError(t, err)
	assert.Contains(t, related, "validateInput")

	require.NoError(t, store.DeleteEntity(ctx, collection, "processData"))
	require.NoError(t, store.DeleteEntity(ctx, collection, "validateInput"))
}
