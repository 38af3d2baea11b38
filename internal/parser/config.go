// Config/markup parsers (spec §4.2's "Configuration parsers"): JSON, YAML,
// CSS, HTML, INI, CSV, plain text. Each emits a file entity plus
// structure-specific sub-entities, at most one metadata chunk per file
// (preview <= 1000 bytes), and — for small JSON/YAML/CSS/INI/plain-text
// files — one full-content implementation chunk; HTML and CSV files get none. Grounded conceptually on original_source's
// per-format Python analyzers (json_parser.py, yaml_parser.py,
// css_parser.py, html_parser.py), reworked as Go entity/chunk builders
// rather than translated line for line.
package parser

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/kdevlin/semindex/internal/entity"
	"github.com/kdevlin/semindex/internal/security"
	"gopkg.in/yaml.v3"
)

const smallFileImplCutoff = 8 * 1024

var configSecretDetector = security.NewSecretDetector()

func preview(content []byte) string {
	text := content
	if len(text) > previewBytes {
		text = text[:previewBytes]
	}
	return redactText(string(text))
}

func redactText(content string) string {
	if configSecretDetector.HasSecrets(content) {
		return configSecretDetector.Redact(content, configSecretDetector.Detect(content))
	}
	return content
}

func maybeImplChunk(out *ParseOutput, path, entityName, entityType string, content []byte) {
	if len(content) > smallFileImplCutoff {
		return
	}
	out.ImplChunks = append(out.ImplChunks, entity.Chunk{
		ID:         entity.IDForImplementation(path, entityName),
		EntityName: entityName,
		ChunkKind:  entity.ChunkImplementation,
		Content:    redactText(string(content)),
		EntityType: entityType,
		FilePath:   path,
	})
}

func fileMetaChunk(path, entityName, entityType string, content []byte, hasImpl bool) entity.Chunk {
	return entity.Chunk{
		ID:                entity.IDForMetadata(path, entityName),
		EntityName:        entityName,
		ChunkKind:         entity.ChunkMetadata,
		Content:           preview(content),
		EntityType:        entityType,
		FilePath:          path,
		HasImplementation: hasImpl,
	}
}

// ExtractJSON walks a JSON document's keys, emitting one entity per dotted
// key path (spec: "JSON key paths"). package.json/tsconfig.json get richer
// handling via special_files.go.
func ExtractJSON(path string, source []byte) ParseOutput {
	out := ParseOutput{FileHash: fileHash(source)}
	out.Entities = append(out.Entities, minimalEntity(path))

	if special, ok := ExtractSpecialFile(path, source); ok {
		out.Entities = append(out.Entities, special.Entities...)
		out.Relations = append(out.Relations, special.Relations...)
		out.MetaChunks = append(out.MetaChunks, special.MetaChunks...)
		out.ImplChunks = append(out.ImplChunks, special.ImplChunks...)
	}

	var doc any
	if err := json.Unmarshal(source, &doc); err != nil {
		out.Errors = append(out.Errors, fmt.Sprintf("invalid JSON: %v", err))
		out.MetaChunks = append(out.MetaChunks, fileMetaChunk(path, path, string(entity.KindFile), source, false))
		return out
	}

	keyPaths := map[string]bool{}
	collectJSONKeyPaths(doc, "", keyPaths)
	for kp := range keyPaths {
		name := fmt.Sprintf("%s::%s", path, kp)
		out.Entities = append(out.Entities, entity.Entity{
			Name: name, Kind: entity.KindVariable, FilePath: path,
			Metadata: map[string]string{"json_key_path": kp},
		})
		out.Relations = append(out.Relations, entity.Relation{From: path, To: name, Kind: entity.RelContains})
	}

	out.MetaChunks = append(out.MetaChunks, fileMetaChunk(path, path, string(entity.KindFile), source, len(source) <= smallFileImplCutoff))
	maybeImplChunk(&out, path, path, string(entity.KindFile), source)

	return out
}

func collectJSONKeyPaths(v any, prefix string, out map[string]bool) {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			p := k
			if prefix != "" {
				p = prefix + "." + k
			}
			out[p] = true
			collectJSONKeyPaths(val, p, out)
		}
	case []any:
		for _, val := range t {
			collectJSONKeyPaths(val, prefix, out)
		}
	}
}

// ExtractYAML emits one entity per top-level key.
func ExtractYAML(path string, source []byte) ParseOutput {
	out := ParseOutput{FileHash: fileHash(source)}
	out.Entities = append(out.Entities, minimalEntity(path))

	if special, ok := ExtractSpecialFile(path, source); ok {
		out.Entities = append(out.Entities, special.Entities...)
		out.Relations = append(out.Relations, special.Relations...)
		out.MetaChunks = append(out.MetaChunks, special.MetaChunks...)
		out.ImplChunks = append(out.ImplChunks, special.ImplChunks...)
	}

	var doc map[string]any
	if err := yaml.Unmarshal(source, &doc); err != nil {
		out.Errors = append(out.Errors, fmt.Sprintf("invalid YAML: %v", err))
	}
	for k := range doc {
		name := fmt.Sprintf("%s::%s", path, k)
		out.Entities = append(out.Entities, entity.Entity{
			Name: name, Kind: entity.KindVariable, FilePath: path,
			Metadata: map[string]string{"yaml_key": k},
		})
		out.Relations = append(out.Relations, entity.Relation{From: path, To: name, Kind: entity.RelContains})
	}

	out.MetaChunks = append(out.MetaChunks, fileMetaChunk(path, path, string(entity.KindFile), source, len(source) <= smallFileImplCutoff))
	maybeImplChunk(&out, path, path, string(entity.KindFile), source)

	return out
}

var cssSelectorRe = regexp.MustCompile(`(?m)^\s*([.#]?[\w.#,\s>+~:\[\]="'-]+?)\s*\{`)

// ExtractCSS emits one entity per selector.
func ExtractCSS(path string, source []byte) ParseOutput {
	out := ParseOutput{FileHash: fileHash(source)}
	out.Entities = append(out.Entities, minimalEntity(path))

	for _, m := range cssSelectorRe.FindAllStringSubmatch(string(source), -1) {
		selector := strings.TrimSpace(m[1])
		if selector == "" {
			continue
		}
		name := fmt.Sprintf("%s::%s", path, selector)
		out.Entities = append(out.Entities, entity.Entity{
			Name: name, Kind: entity.KindClass, FilePath: path,
			Metadata: map[string]string{"css_selector": selector},
		})
		out.Relations = append(out.Relations, entity.Relation{From: path, To: name, Kind: entity.RelContains})
	}

	out.MetaChunks = append(out.MetaChunks, fileMetaChunk(path, path, string(entity.KindFile), source, len(source) <= smallFileImplCutoff))
	maybeImplChunk(&out, path, path, string(entity.KindFile), source)

	return out
}

var htmlElementWithIDRe = regexp.MustCompile(`<(\w+)[^>]*\bid=["']([^"']+)["']`)

// ExtractHTML emits one entity per element carrying an id attribute.
func ExtractHTML(path string, source []byte) ParseOutput {
	out := ParseOutput{FileHash: fileHash(source)}
	out.Entities = append(out.Entities, minimalEntity(path))

	for _, m := range htmlElementWithIDRe.FindAllStringSubmatch(string(source), -1) {
		tag, id := m[1], m[2]
		name := fmt.Sprintf("%s::#%s", path, id)
		out.Entities = append(out.Entities, entity.Entity{
			Name: name, Kind: entity.KindVariable, FilePath: path,
			Metadata: map[string]string{"html_tag": tag, "html_id": id},
		})
		out.Relations = append(out.Relations, entity.Relation{From: path, To: name, Kind: entity.RelContains})
	}

	out.MetaChunks = append(out.MetaChunks, fileMetaChunk(path, path, string(entity.KindFile), source, false))
	return out
}

var iniSectionRe = regexp.MustCompile(`(?m)^\s*\[([^\]]+)\]`)

// ExtractINI emits one entity per [section].
func ExtractINI(path string, source []byte) ParseOutput {
	out := ParseOutput{FileHash: fileHash(source)}
	out.Entities = append(out.Entities, minimalEntity(path))

	for _, m := range iniSectionRe.FindAllStringSubmatch(string(source), -1) {
		section := strings.TrimSpace(m[1])
		name := fmt.Sprintf("%s::[%s]", path, section)
		out.Entities = append(out.Entities, entity.Entity{
			Name: name, Kind: entity.KindVariable, FilePath: path,
			Metadata: map[string]string{"ini_section": section},
		})
		out.Relations = append(out.Relations, entity.Relation{From: path, To: name, Kind: entity.RelContains})
	}

	out.MetaChunks = append(out.MetaChunks, fileMetaChunk(path, path, string(entity.KindFile), source, len(source) <= smallFileImplCutoff))
	maybeImplChunk(&out, path, path, string(entity.KindFile), source)
	return out
}

// ExtractCSV emits one entity per column, named from the header row.
func ExtractCSV(path string, source []byte) ParseOutput {
	out := ParseOutput{FileHash: fileHash(source)}
	out.Entities = append(out.Entities, minimalEntity(path))

	r := csv.NewReader(strings.NewReader(string(source)))
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err == nil {
		for _, col := range header {
			name := fmt.Sprintf("%s::%s", path, col)
			out.Entities = append(out.Entities, entity.Entity{
				Name: name, Kind: entity.KindVariable, FilePath: path,
				Metadata: map[string]string{"csv_column": col},
			})
			out.Relations = append(out.Relations, entity.Relation{From: path, To: name, Kind: entity.RelContains})
		}
	}

	out.MetaChunks = append(out.MetaChunks, fileMetaChunk(path, path, string(entity.KindFile), source, false))
	return out
}

// ExtractPlainText emits only the file entity and a preview metadata chunk.
func ExtractPlainText(path string, source []byte) ParseOutput {
	out := ParseOutput{FileHash: fileHash(source)}
	out.Entities = append(out.Entities, minimalEntity(path))
	out.MetaChunks = append(out.MetaChunks, fileMetaChunk(path, path, string(entity.KindFile), source, len(source) <= smallFileImplCutoff))
	maybeImplChunk(&out, path, path, string(entity.KindFile), source)
	return out
}
