package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kdevlin/semindex/internal/entity"
)

var (
	headingRe    = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)
	linkRe       = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
	codeBlockRe  = regexp.MustCompile("```([a-zA-Z0-9_+-]*)")
	previewBytes = 1000
)

type docSection struct {
	heading     string
	headingPath string
	level       int
	content     string
	startLine   int
	endLine     int
}

// ExtractDocumentation implements spec §4.2's Documentation parser: one
// entity per header (level recorded in Metadata), link and code-block
// entities, and a metadata+implementation chunk pair per header section
// (the body runs until the next header of any level).
func ExtractDocumentation(path string, source []byte) ParseOutput {
	out := ParseOutput{FileHash: fileHash(source)}
	out.Entities = append(out.Entities, minimalEntity(path))

	text := string(source)
	lines := strings.Split(text, "\n")

	var sections []docSection
	var headingStack []string
	var current *docSection

	for i, line := range lines {
		if m := headingRe.FindStringSubmatch(line); m != nil {
			level := len(m[1])
			heading := strings.TrimSpace(m[2])

			for len(headingStack) >= level {
				headingStack = headingStack[:len(headingStack)-1]
			}
			headingStack = append(headingStack, heading)

			if current != nil {
				current.endLine = i
				sections = append(sections, *current)
			}

			current = &docSection{
				heading:     heading,
				headingPath: strings.Join(headingStack, " > "),
				level:       level,
				startLine:   i + 1,
			}
			continue
		}

		if current != nil {
			current.content += line + "\n"
		}

		for _, link := range linkRe.FindAllStringSubmatch(line, -1) {
			out.Entities = append(out.Entities, entity.Entity{
				Name:      link[2],
				Kind:      entity.KindDocumentation,
				FilePath:  path,
				LineStart: i + 1,
				LineEnd:   i + 1,
				Metadata:  map[string]string{"doc_node": "link", "link_text": link[1]},
			})
			out.Relations = append(out.Relations, entity.Relation{From: path, To: link[2], Kind: entity.RelContains})
		}

		if m := codeBlockRe.FindStringSubmatch(line); m != nil {
			name := fmt.Sprintf("%s:code-block:%d", path, i+1)
			out.Entities = append(out.Entities, entity.Entity{
				Name:      name,
				Kind:      entity.KindDocumentation,
				FilePath:  path,
				LineStart: i + 1,
				Metadata:  map[string]string{"doc_node": "code_block", "language": m[1]},
			})
			out.Relations = append(out.Relations, entity.Relation{From: path, To: name, Kind: entity.RelContains})
		}
	}

	if current != nil {
		current.endLine = len(lines)
		sections = append(sections, *current)
	}

	for _, s := range sections {
		name := fmt.Sprintf("%s#%s", path, s.headingPath)
		out.Entities = append(out.Entities, entity.Entity{
			Name:      name,
			Kind:      entity.KindDocumentation,
			FilePath:  path,
			LineStart: s.startLine,
			LineEnd:   s.endLine,
			Metadata:  map[string]string{"heading": s.heading, "level": fmt.Sprintf("%d", s.level)},
		})
		out.Relations = append(out.Relations, entity.Relation{From: path, To: name, Kind: entity.RelContains})

		preview := s.content
		stats := fmt.Sprintf("(%d lines)", s.endLine-s.startLine+1)
		if len(preview) > previewBytes {
			preview = preview[:previewBytes]
		}

		out.MetaChunks = append(out.MetaChunks, entity.Chunk{
			ID:                entity.IDForMetadata(path, name),
			EntityName:        name,
			ChunkKind:         entity.ChunkMetadata,
			Content:           redactText(s.heading + "\n" + preview + "\n" + stats),
			EntityType:        string(entity.KindDocumentation),
			FilePath:          path,
			LineNumber:        s.startLine,
			EndLineNumber:     s.endLine,
			HasImplementation: true,
		})

		out.ImplChunks = append(out.ImplChunks, entity.Chunk{
			ID:         entity.IDForImplementation(path, name),
			EntityName: name,
			ChunkKind:  entity.ChunkImplementation,
			Content:    redactText(s.content),
			EntityType: string(entity.KindDocumentation),
			FilePath:   path,
			StartLine:  s.startLine,
			EndLine:    s.endLine,
		})
	}

	return out
}
