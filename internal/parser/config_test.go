package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONKeyPaths(t *testing.T) {
	out := ExtractJSON("data.json", []byte(`{"a": {"b": 1}, "c": 2}`))

	var paths []string
	for _, e := range out.Entities {
		if v, ok := e.Metadata["json_key_path"]; ok {
			paths = append(paths, v)
		}
	}
	assert.Contains(t, paths, "a")
	assert.Contains(t, paths, "a.b")
	assert.Contains(t, paths, "c")
	require.NotEmpty(t, out.MetaChunks)
}

func TestExtractPackageJSONDependencyRelations(t *testing.T) {
	pkg := `{"name": "app", "dependencies": {"lodash": "^4.0.0"}, "scripts": {"build": "tsc"}}`
	out := ExtractJSON("package.json", []byte(pkg))

	var sawDep, sawScript bool
	for _, r := range out.Relations {
		if r.ImportType == "npm_dependency" && r.To == "lodash" {
			sawDep = true
		}
	}
	for _, e := range out.Entities {
		if e.Metadata["npm_script"] == "build" {
			sawScript = true
		}
	}
	assert.True(t, sawDep)
	assert.True(t, sawScript)
}

func TestExtractCSSSelectors(t *testing.T) {
	css := ".button { color: red; }\n#main { width: 100%; }\n"
	out := ExtractCSS("styles.css", []byte(css))

	var selectors []string
	for _, e := range out.Entities {
		if s, ok := e.Metadata["css_selector"]; ok {
			selectors = append(selectors, s)
		}
	}
	assert.Contains(t, selectors, ".button")
	assert.Contains(t, selectors, "#main")
}

func TestRegistryDispatch(t *testing.T) {
	r := NewRegistry()

	assert.NotNil(t, r.ParserFor("main.py"))
	assert.NotNil(t, r.ParserFor("README.md"))
	assert.NotNil(t, r.ParserFor("data.JSON"))
	assert.Nil(t, r.ParserFor("binary.exe"))
}
