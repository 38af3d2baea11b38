package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileOpenRelation(t *testing.T) {
	code := `
def load():
    with open("config.json", "r") as f:
        return f.read()
`
	p, err := NewParser(LanguagePython)
	require.NoError(t, err)

	result, err := p.ParseWithRelationships([]byte(code), "loader.py")
	require.NoError(t, err)

	var found *Relationship
	for i := range result.Relationships {
		if result.Relationships[i].ImportType == "file_open" {
			found = &result.Relationships[i]
		}
	}
	require.NotNil(t, found)
	assert.Equal(t, "config.json", found.TargetPath)
	assert.Equal(t, RelationshipImports, found.Kind)
}

func TestPandasReadCSVRelation(t *testing.T) {
	code := `
def load():
    return pandas.read_csv("data.csv")
`
	p, err := NewParser(LanguagePython)
	require.NoError(t, err)

	result, err := p.ParseWithRelationships([]byte(code), "loader.py")
	require.NoError(t, err)

	var found bool
	for _, r := range result.Relationships {
		if r.ImportType == "pandas_csv_read" && r.TargetPath == "data.csv" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestFileModeStringNotMistakenForPath(t *testing.T) {
	code := `
def load(path):
    return open(path, "rb")
`
	p, err := NewParser(LanguagePython)
	require.NoError(t, err)

	result, err := p.ParseWithRelationships([]byte(code), "loader.py")
	require.NoError(t, err)

	for _, r := range result.Relationships {
		assert.NotEqual(t, "rb", r.TargetPath)
	}
}
