package parser

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/kdevlin/semindex/internal/entity"
	"github.com/kdevlin/semindex/internal/security"
)

// secretDetector redacts literal credentials before implementation content
// is persisted to the vector store. Parsers are pure with respect to the
// file they receive (spec §4.2); redaction happens here, at the boundary
// where chunk content is built, not as a separate pipeline stage.
var secretDetector = security.NewSecretDetector()

// builtinCallTargets are filtered out of `calls` relation emission. The
// exact membership is not part of the contract (spec §9) and may evolve.
var builtinCallTargets = map[string]bool{
	// Python
	"print": true, "len": true, "str": true, "int": true, "float": true,
	"bool": true, "list": true, "dict": true, "set": true, "tuple": true,
	"range": true, "enumerate": true, "zip": true, "map": true, "filter": true,
	"isinstance": true, "super": true, "getattr": true, "setattr": true,
	"hasattr": true, "open": true,
	// JavaScript/TypeScript
	"console.log": true, "console.error": true, "console.warn": true,
	"Array": true, "Object": true, "JSON.parse": true, "JSON.stringify": true,
	"parseInt": true, "parseFloat": true, "require": true,
}

// ParseOutput is what the parser layer hands to the Content Processor: the
// entities/relations/chunks produced from one file, plus the file's hash
// and any soft errors.
type ParseOutput struct {
	Entities []entity.Entity
	Relations []entity.Relation
	ImplChunks []entity.Chunk
	MetaChunks []entity.Chunk
	FileHash string
	Errors   []string
	Warnings []string
}

// ExtractCode parses a source file with a language-specific tree-sitter
// parser and builds the entities, relations, and dual chunks spec §4.2
// describes for code parsers. filePath is the absolute path the caller has
// already resolved; internalPackages is the set of top-level package names
// the orchestrator considers part of this project, used to decide whether
// an absolute dotted import is "internal" (kept) or external (discarded).
func ExtractCode(filePath string, source []byte, lang Language, internalPackages map[string]bool) (ParseOutput, error) {
	out := ParseOutput{FileHash: fileHash(source)}

	p, err := NewParser(lang)
	if err != nil {
		return out, err
	}

	result, err := p.ParseWithRelationships(source, filePath)
	if err != nil {
		out.Errors = append(out.Errors, err.Error())
		// A syntax error still yields the file entity (P10).
		out.Entities = append(out.Entities, fileEntity(filePath))
		return out, nil
	}

	out.Entities = append(out.Entities, fileEntity(filePath))

	parentOf := make(map[string]string) // method name -> class name, for signature context
	for _, sym := range result.Symbols {
		name := qualifiedName(sym)
		ent := entity.Entity{
			Name:      name,
			Kind:      symbolEntityKind(sym.Kind),
			FilePath:  filePath,
			LineStart: sym.StartLine,
			LineEnd:   sym.EndLine,
			Docstring: sym.Docstring,
			Signature: sym.Signature,
		}
		out.Entities = append(out.Entities, ent)

		out.Relations = append(out.Relations, entity.Relation{
			From: filePath,
			To:   name,
			Kind: entity.RelContains,
		})

		if sym.Parent != "" {
			parentOf[name] = sym.Parent
		}

		observations := buildObservations(sym)

		metaContent := buildMetadataContent(sym, observations)
		out.MetaChunks = append(out.MetaChunks, entity.Chunk{
			ID:                entity.IDForMetadata(filePath, name),
			EntityName:        name,
			ChunkKind:         entity.ChunkMetadata,
			Content:           metaContent,
			EntityType:        string(symbolEntityKind(sym.Kind)),
			FilePath:          filePath,
			LineNumber:        sym.StartLine,
			EndLineNumber:     sym.EndLine,
			HasImplementation: true,
		})

		implContent := sym.Content
		if secretDetector.HasSecrets(implContent) {
			implContent = secretDetector.Redact(implContent, secretDetector.Detect(implContent))
		}

		out.ImplChunks = append(out.ImplChunks, entity.Chunk{
			ID:         entity.IDForImplementation(filePath, name),
			EntityName: name,
			ChunkKind:  entity.ChunkImplementation,
			Content:    implContent,
			EntityType: string(symbolEntityKind(sym.Kind)),
			FilePath:   filePath,
			StartLine:  sym.StartLine,
			EndLine:    sym.EndLine,
		})
	}

	for _, rel := range result.Relationships {
		switch rel.Kind {
		case RelationshipExtends:
			out.Relations = append(out.Relations, entity.Relation{
				From: rel.SourceName,
				To:   rel.TargetName,
				Kind: entity.RelInherits,
			})

		case RelationshipCalls:
			if builtinCallTargets[rel.TargetName] {
				continue
			}
			out.Relations = append(out.Relations, entity.Relation{
				From: rel.SourceName,
				To:   rel.TargetName,
				Kind: entity.RelCalls,
			})

		case RelationshipImports:
			if rel.ImportType != "" {
				// File-operation relation: always kept, from the file entity.
				out.Relations = append(out.Relations, entity.Relation{
					From:       filePath,
					To:         rel.TargetPath,
					Kind:       entity.RelImports,
					ImportType: rel.ImportType,
				})
				continue
			}
			if !isInternalOrRelativeImport(rel.TargetPath, internalPackages) {
				continue
			}
			out.Relations = append(out.Relations, entity.Relation{
				From: filePath,
				To:   rel.TargetPath,
				Kind: entity.RelImports,
			})
		}
	}

	return out, nil
}

func fileEntity(filePath string) entity.Entity {
	return entity.Entity{
		Name:     filePath,
		Kind:     entity.KindFile,
		FilePath: filePath,
	}
}

func qualifiedName(sym Symbol) string {
	if sym.Parent != "" {
		return sym.Parent + "." + sym.Name
	}
	return sym.Name
}

func symbolEntityKind(k SymbolKind) entity.Kind {
	switch k {
	case SymbolClass:
		return entity.KindClass
	case SymbolMethod:
		return entity.KindMethod
	case SymbolFunction:
		return entity.KindFunction
	case SymbolVariable:
		return entity.KindVariable
	default:
		return entity.KindFunction
	}
}

func buildObservations(sym Symbol) []string {
	var obs []string
	if sym.Signature != "" {
		obs = append(obs, sym.Signature)
	}
	if sym.Docstring != "" {
		obs = append(obs, sym.Docstring)
	}
	return obs
}

// buildMetadataContent composes the MetadataChunk body: signature first,
// docstring second, then head observations (spec §4.2).
func buildMetadataContent(sym Symbol, observations []string) string {
	var lines []string
	if sym.Signature != "" {
		lines = append(lines, sym.Signature)
	} else {
		lines = append(lines, sym.Name)
	}
	if sym.Docstring != "" {
		lines = append(lines, sym.Docstring)
	}
	for _, o := range observations {
		if o == sym.Signature || o == sym.Docstring {
			continue
		}
		lines = append(lines, o)
	}
	return strings.Join(lines, "\n")
}

// isInternalOrRelativeImport decides whether an import target should
// produce a kept `imports` relation: relative imports (leading dot) are
// always kept; absolute dotted imports are kept only when their first
// segment names a package the caller considers part of this project.
// External package imports are discarded to avoid generating orphan
// targets (spec §4.2).
func isInternalOrRelativeImport(target string, internalPackages map[string]bool) bool {
	if target == "" {
		return false
	}
	if strings.HasPrefix(target, ".") {
		return true
	}
	first := target
	if idx := strings.IndexByte(target, '.'); idx >= 0 {
		first = target[:idx]
	}
	if idx := strings.IndexByte(target, '/'); idx >= 0 && idx < len(first) {
		first = target[:idx]
	}
	return internalPackages[first]
}

func fileHash(source []byte) string {
	sum := sha256.Sum256(source)
	return hex.EncodeToString(sum[:])
}
