package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIDForMetadataAndImplementationDiffer(t *testing.T) {
	meta := IDForMetadata("a.py", "f")
	impl := IDForImplementation("a.py", "f")
	assert.NotEqual(t, meta, impl)
	assert.Equal(t, "a.py::f::metadata", meta)
	assert.Equal(t, "a.py::f::implementation", impl)
}

func TestIDForRelationAppendsImportType(t *testing.T) {
	withoutType := IDForRelation("a.py", RelImports, "config.json", "")
	withType := IDForRelation("a.py", RelImports, "config.json", ImportTypeFileOpen)

	assert.Equal(t, "a.py::imports::config.json", withoutType)
	assert.Equal(t, "a.py::imports::config.json::file_open", withType)
	assert.NotEqual(t, withoutType, withType)
}

func TestPointIDDeterministic(t *testing.T) {
	id := "a.py::f::metadata"
	assert.Equal(t, PointID(id), PointID(id))
	assert.NotEqual(t, PointID(id), PointID("a.py::g::metadata"))
}

func TestContentHashDeterministic(t *testing.T) {
	assert.Equal(t, ContentHash("hello"), ContentHash("hello"))
	assert.NotEqual(t, ContentHash("hello"), ContentHash("world"))
	assert.Len(t, ContentHash("hello"), 64)
}

func TestIsExternalFileReference(t *testing.T) {
	cases := []struct {
		path string
		want bool
	}{
		{"config.json", true},
		{"data/report.csv", true},
		{"pkg.mod.sub", false},
		{".chat.parser", false},
		{"image.PNG", true},
		{"noext", false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, IsExternalFileReference(c.path), c.path)
	}
}
