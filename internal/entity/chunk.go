package entity

// ChunkKind distinguishes the three chunk variants the vector store holds.
type ChunkKind string

const (
	ChunkMetadata       ChunkKind = "metadata"
	ChunkImplementation ChunkKind = "implementation"
	ChunkRelation       ChunkKind = "relation"
)

// Chunk is the unit stored in the vector backend. All three variants
// (metadata, implementation, relation) share this shape; fields that don't
// apply to a given ChunkKind are left zero.
type Chunk struct {
	ID         string // deterministic string id, see IDFor*
	EntityName string
	ChunkKind  ChunkKind
	Content    string
	Vector     []float32

	// Collection this chunk belongs to; stamped by the content processor.
	Collection string

	// Metadata / implementation chunk fields.
	EntityType        string
	FilePath          string
	LineNumber        int // metadata: first line of the entity
	EndLineNumber     int
	StartLine         int // implementation: inclusive span
	EndLine           int
	HasImplementation bool

	// Relation chunk fields.
	RelationTarget string
	RelationType   string
	ImportType     string
	Context        string
	Confidence     float64
}

// Payload builds the normative vector-point payload described by the wire
// format contract: a flat map ready for the store adapter to attach to a
// point, plus "type" and "collection".
func (c Chunk) Payload() map[string]any {
	p := map[string]any{
		"type":       "chunk",
		"chunk_kind": string(c.ChunkKind),
		"entity_name": c.EntityName,
		"content":     c.Content,
		"content_hash": ContentHash(c.Content),
		"collection":   c.Collection,
	}
	if c.EntityType != "" {
		p["entity_type"] = c.EntityType
	}

	switch c.ChunkKind {
	case ChunkMetadata:
		p["file_path"] = c.FilePath
		p["line_number"] = c.LineNumber
		p["end_line_number"] = c.EndLineNumber
		p["has_implementation"] = c.HasImplementation
	case ChunkImplementation:
		p["file_path"] = c.FilePath
		p["start_line"] = c.StartLine
		p["end_line"] = c.EndLine
	case ChunkRelation:
		p["relation_target"] = c.RelationTarget
		p["relation_type"] = c.RelationType
		if c.ImportType != "" {
			p["import_type"] = c.ImportType
		}
		if c.Context != "" {
			p["context"] = c.Context
		}
		if c.Confidence != 0 {
			p["confidence"] = c.Confidence
		}
	}

	return p
}
