// Package entity defines the immutable data types that flow through the
// indexing pipeline: entities, relations, and the chunks derived from them.
package entity

// Kind identifies what an Entity represents.
type Kind string

const (
	KindProject       Kind = "project"
	KindDirectory     Kind = "directory"
	KindFile          Kind = "file"
	KindClass         Kind = "class"
	KindFunction      Kind = "function"
	KindMethod        Kind = "method"
	KindVariable      Kind = "variable"
	KindImport        Kind = "import"
	KindModule        Kind = "module"
	KindConstant      Kind = "constant"
	KindDocumentation Kind = "documentation"
	KindTest          Kind = "test"
	KindChatHistory   Kind = "chat_history"
)

// Entity is an indexed unit of code or text. Entities are immutable after
// creation; an "update" produces a new value with the same Name.
type Entity struct {
	Name         string
	Kind         Kind
	Observations []string
	FilePath     string
	LineStart    int
	LineEnd      int
	Docstring    string
	Signature    string
	Metadata     map[string]string
}

// RelationKind identifies the nature of a directed edge between two entities.
type RelationKind string

const (
	RelContains   RelationKind = "contains"
	RelImports    RelationKind = "imports"
	RelInherits   RelationKind = "inherits"
	RelCalls      RelationKind = "calls"
	RelUses       RelationKind = "uses"
	RelImplements RelationKind = "implements"
	RelExtends    RelationKind = "extends"
	RelDocuments  RelationKind = "documents"
	RelTests      RelationKind = "tests"
	RelReferences RelationKind = "references"
)

// Well-known import_type values for file-operation relations. The set is
// fixed but open-ended; callers may supply others.
const (
	ImportTypeFileOpen      = "file_open"
	ImportTypeJSONLoad      = "json_load"
	ImportTypeJSONWrite     = "json_write"
	ImportTypePathReadText  = "path_read_text"
	ImportTypePandasCSVRead = "pandas_csv_read"
	ImportTypeRequestsGet   = "requests_get"
)

// Relation is a directed edge between two entity names.
type Relation struct {
	From       string
	To         string
	Kind       RelationKind
	Context    string
	Confidence float64
	// ImportType disambiguates file-operation relations (e.g. "file_open" vs
	// "json_load") so that `import config.json` and `open("config.json")`
	// don't collide on chunk identity.
	ImportType string
	Metadata   map[string]string
}
