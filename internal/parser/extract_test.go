package parser

import (
	"testing"

	"github.com/kdevlin/semindex/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractCodeProducesFileEntityAndDualChunks(t *testing.T) {
	src := `
def f():
    """Does a thing."""
    return 1
`
	out, err := ExtractCode("a.py", []byte(src), LanguagePython, nil)
	require.NoError(t, err)

	var fileEnt, funcEnt *entity.Entity
	for i := range out.Entities {
		if out.Entities[i].Kind == entity.KindFile {
			fileEnt = &out.Entities[i]
		}
		if out.Entities[i].Name == "f" {
			funcEnt = &out.Entities[i]
		}
	}
	require.NotNil(t, fileEnt)
	require.NotNil(t, funcEnt)
	assert.Equal(t, "a.py", fileEnt.Name)

	var containsFound bool
	for _, r := range out.Relations {
		if r.Kind == entity.RelContains && r.From == "a.py" && r.To == "f" {
			containsFound = true
		}
	}
	assert.True(t, containsFound)

	require.Len(t, out.MetaChunks, 1)
	require.Len(t, out.ImplChunks, 1)
	assert.True(t, out.MetaChunks[0].HasImplementation)
	assert.Contains(t, out.ImplChunks[0].Content, "return 1")
}

func TestExtractCodeInheritsRelation(t *testing.T) {
	src := `
class Base:
    pass

class Derived(Base):
    pass
`
	out, err := ExtractCode("b.py", []byte(src), LanguagePython, nil)
	require.NoError(t, err)

	var found bool
	for _, r := range out.Relations {
		if r.Kind == entity.RelInherits && r.From == "Derived" && r.To == "Base" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestExtractCodeFiltersBuiltinCalls(t *testing.T) {
	src := `
def f():
    print("hi")
    g()
`
	out, err := ExtractCode("c.py", []byte(src), LanguagePython, nil)
	require.NoError(t, err)

	for _, r := range out.Relations {
		if r.Kind == entity.RelCalls {
			assert.NotEqual(t, "print", r.To)
		}
	}
	var sawG bool
	for _, r := range out.Relations {
		if r.Kind == entity.RelCalls && r.To == "g" {
			sawG = true
		}
	}
	assert.True(t, sawG)
}

func TestExtractCodeImportFiltering(t *testing.T) {
	src := `
import os
import myapp.utils
from . import sibling
`
	internal := map[string]bool{"myapp": true}
	out, err := ExtractCode("d.py", []byte(src), LanguagePython, internal)
	require.NoError(t, err)

	var targets []string
	for _, r := range out.Relations {
		if r.Kind == entity.RelImports {
			targets = append(targets, r.To)
		}
	}
	assert.NotContains(t, targets, "os")
	assert.Contains(t, targets, "myapp.utils")
	assert.Contains(t, targets, ".sibling") // relative import always kept
}

func TestExtractCodeFileOperationRelationAlwaysKept(t *testing.T) {
	src := `
def load():
    return open("config.json")
`
	out, err := ExtractCode("loader.py", []byte(src), LanguagePython, nil)
	require.NoError(t, err)

	var found *entity.Relation
	for i := range out.Relations {
		if out.Relations[i].ImportType == "file_open" {
			found = &out.Relations[i]
		}
	}
	require.NotNil(t, found)
	assert.Equal(t, "loader.py", found.From)
	assert.Equal(t, "config.json", found.To)
}
