package walk

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
}

func TestWalkRespectsIncludeExclude(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.py", "x")
	writeFile(t, root, "node_modules/dep.js", "x")
	writeFile(t, root, "b.go", "x")

	w := New(nil, nil, 0)
	var seen []string
	_, err := w.Walk(root, func(path string, info os.FileInfo) error {
		rel, _ := filepath.Rel(root, path)
		seen = append(seen, filepath.ToSlash(rel))
		return nil
	})
	require.NoError(t, err)

	assert.Contains(t, seen, "a.py")
	assert.NotContains(t, seen, "node_modules/dep.js")
	assert.NotContains(t, seen, "b.go") // not in default includes
}

func TestWalkSkipsOversizedFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "big.py", string(make([]byte, 200)))
	writeFile(t, root, "small.py", "x")

	w := New(nil, nil, 100)
	var seen []string
	skipped, err := w.Walk(root, func(path string, info os.FileInfo) error {
		rel, _ := filepath.Rel(root, path)
		seen = append(seen, filepath.ToSlash(rel))
		return nil
	})
	require.NoError(t, err)

	assert.Contains(t, seen, "small.py")
	assert.NotContains(t, seen, "big.py")
	require.Len(t, skipped, 1)
	assert.Contains(t, skipped[0].Path, "big.py")
}
