// Package graphmirror is the optional auxiliary read replica (C-aux): a
// Neo4j-backed mirror of the entity/relation graph that search.Handler can
// use to widen relationship-style queries a pure vector search would miss.
// It is never the system of record — the vector store remains the only
// source orphan cleanup reads from, so graphmirror can lag or be absent
// entirely without breaking indexing consistency. Grounded on the teacher's
// internal/graph.Neo4jStore, generalized from its repo/module/file/symbol
// node model onto entity.Entity and entity.Relation.
package graphmirror

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/kdevlin/semindex/internal/entity"
)

// Store mirrors indexed entities and relations into Neo4j for graph-shaped
// lookups (callers of X, what extends Y, N-hop neighborhoods).
type Store struct {
	driver neo4j.DriverWithContext
}

// New connects to Neo4j and verifies connectivity before returning.
func New(uri, username, password string) (*Store, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("connect to neo4j: %w", err)
	}

	return &Store{driver: driver}, nil
}

// Close closes the underlying driver.
func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

// EnsureSchema creates the constraints and indexes the mirror relies on.
func (s *Store) EnsureSchema(ctx context.Context) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	statements := []string{
		"CREATE CONSTRAINT entity_collection_name IF NOT EXISTS FOR (e:Entity) REQUIRE (e.collection, e.name) IS UNIQUE",
		"CREATE INDEX entity_kind IF NOT EXISTS FOR (e:Entity) ON (e.kind)",
		"CREATE INDEX entity_file_path IF NOT EXISTS FOR (e:Entity) ON (e.file_path)",
	}
	for _, stmt := range statements {
		if _, err := session.Run(ctx, stmt, nil); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// UpsertEntity creates or updates a node for one indexed entity.
func (s *Store) UpsertEntity(ctx context.Context, collection string, e entity.Entity) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	_, err := session.Run(ctx, `
		MERGE (e:Entity {collection: $collection, name: $name})
		SET e.kind = $kind, e.file_path = $file_path, e.line_start = $line_start, e.line_end = $line_end
	`, map[string]interface{}{
		"collection": collection,
		"name":       e.Name,
		"kind":       string(e.Kind),
		"file_path":  e.FilePath,
		"line_start": e.LineStart,
		"line_end":   e.LineEnd,
	})
	return err
}

// UpsertRelation mirrors one directed edge between two entity names. The
// relation's Kind becomes the Neo4j relationship type; From/To nodes are
// created on demand if a prior UpsertEntity call hasn't seen them yet, since
// a relation can reference an entity the current batch hasn't parsed (e.g. an
// external file reference).
func (s *Store) UpsertRelation(ctx context.Context, collection string, r entity.Relation) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	_, err := session.Run(ctx, fmt.Sprintf(`
		MERGE (from:Entity {collection: $collection, name: $from})
		MERGE (to:Entity {collection: $collection, name: $to})
		MERGE (from)-[:%s {context: $context}]->(to)
	`, relationLabel(r.Kind)), map[string]interface{}{
		"collection": collection,
		"from":       r.From,
		"to":         r.To,
		"context":    r.Context,
	})
	return err
}

// DeleteEntity removes a mirrored entity and any relationships touching it.
func (s *Store) DeleteEntity(ctx context.Context, collection, name string) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	_, err := session.Run(ctx, `
		MATCH (e:Entity {collection: $collection, name: $name})
		DETACH DELETE e
	`, map[string]interface{}{"collection": collection, "name": name})
	return err
}

// RelatedEntities returns entity names within depth hops of name, satisfying
// search.GraphExpander. Tries the APOC-based subgraph expansion first and
// falls back to a plain one-hop traversal when APOC isn't installed on the
// target Neo4j instance, same fallback structure as the teacher's
// ExpandFromSymbols/expandFromSymbolsBasic pair.
func (s *Store) RelatedEntities(ctx context.Context, name string, depth int) ([]string, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	if depth <= 0 {
		depth = 1
	}

	result, err := session.Run(ctx, `
		MATCH (e:Entity {name: $name})
		CALL apoc.path.subgraphNodes(e, {
			relationshipFilter: "CALLS|EXTENDS|IMPORTS|CONTAINS|USES|IMPLEMENTS|REFERENCES",
			minLevel: 1,
			maxLevel: $depth,
			limit: 25
		}) YIELD node
		WHERE node:Entity
		RETURN DISTINCT node.name AS name
	`, map[string]interface{}{"name": name, "depth": depth})
	if err != nil {
		return s.relatedEntitiesBasic(ctx, name)
	}

	var names []string
	for result.Next(ctx) {
		if v, ok := result.Record().Get("name"); ok {
			if s, ok := v.(string); ok && s != "" {
				names = append(names, s)
			}
		}
	}
	return names, nil
}

// relatedEntitiesBasic is the one-hop fallback used when APOC is
// unavailable: direct callers/callees in either direction.
func (s *Store) relatedEntitiesBasic(ctx context.Context, name string) ([]string, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	result, err := session.Run(ctx, `
		MATCH (e:Entity {name: $name})
		OPTIONAL MATCH (e)-[]->(out:Entity)
		OPTIONAL MATCH (in:Entity)-[]->(e)
		WITH COLLECT(DISTINCT out) + COLLECT(DISTINCT in) AS related
		UNWIND related AS r
		WITH DISTINCT r
		WHERE r IS NOT NULL
		RETURN r.name AS name
		LIMIT 25
	`, map[string]interface{}{"name": name})
	if err != nil {
		return nil, fmt.Errorf("related entities fallback: %w", err)
	}

	var names []string
	for result.Next(ctx) {
		if v, ok := result.Record().Get("name"); ok {
			if s, ok := v.(string); ok && s != "" {
				names = append(names, s)
			}
		}
	}
	return names, nil
}

// relationLabel maps entity.RelationKind onto a Cypher relationship type.
// Neo4j relationship types can't be parameterized, so the kind is validated
// against the known set before being interpolated into the query string.
func relationLabel(kind entity.RelationKind) string {
	switch kind {
	case entity.RelContains:
		return "CONTAINS"
	case entity.RelImports:
		return "IMPORTS"
	case entity.RelInherits:
		return "INHERITS"
	case entity.RelCalls:
		return "CALLS"
	case entity.RelUses:
		return "USES"
	case entity.RelImplements:
		return "IMPLEMENTS"
	case entity.RelExtends:
		return "EXTENDS"
	case entity.RelDocuments:
		return "DOCUMENTS"
	case entity.RelTests:
		return "TESTS"
	case entity.RelReferences:
		return "REFERENCES"
	default:
		return "RELATES_TO"
	}
}
