package parser

import (
	"testing"

	"github.com/kdevlin/semindex/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractDocumentationHeadersAndChunks(t *testing.T) {
	md := "# Title\nintro line\n\n## Sub\nbody line\n"
	out := ExtractDocumentation("b.md", []byte(md))

	var headingNames []string
	for _, e := range out.Entities {
		if e.Kind == entity.KindDocumentation {
			headingNames = append(headingNames, e.Name)
		}
	}
	require.Len(t, headingNames, 2)
	assert.Contains(t, headingNames[0], "Title")

	require.Len(t, out.MetaChunks, 2)
	require.Len(t, out.ImplChunks, 2)
	assert.Contains(t, out.ImplChunks[1].Content, "body line")
}

func TestExtractDocumentationLinksAndCodeBlocks(t *testing.T) {
	md := "# Title\nsee [docs](README.md) and\n```go\ncode\n```\n"
	out := ExtractDocumentation("a.md", []byte(md))

	var sawLink, sawCodeBlock bool
	for _, e := range out.Entities {
		if e.Metadata["doc_node"] == "link" {
			sawLink = true
			assert.Equal(t, "README.md", e.Name)
		}
		if e.Metadata["doc_node"] == "code_block" {
			sawCodeBlock = true
		}
	}
	assert.True(t, sawLink)
	assert.True(t, sawCodeBlock)
}
