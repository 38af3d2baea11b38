// Package walk traverses a source tree, applying include/exclude glob
// patterns and a maximum file size cutoff ahead of parsing.
package walk

import (
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// Walker traverses directories respecting include/exclude patterns and a
// maximum file size.
type Walker struct {
	includes    []string
	excludes    []string
	maxFileSize int64 // 0 means no cutoff
}

// defaultIncludes covers both the code parsers and the config/doc parsers
// the expanded spec adds.
var defaultIncludes = []string{
	"**/*.py", "**/*.js", "**/*.jsx", "**/*.ts", "**/*.tsx",
	"**/*.md", "**/*.json", "**/*.yaml", "**/*.yml",
	"**/*.css", "**/*.html", "**/*.ini", "**/*.csv",
}

var defaultExcludes = []string{
	"**/.git/**",
	"**/__pycache__/**",
	"**/*.pyc",
	"**/node_modules/**",
	"**/venv/**",
	"**/.venv/**",
	"**/dist/**",
	"**/build/**",
	"**/.idea/**",
	"**/.vscode/**",
	"**/*.min.js",
	"**/*.bundle.js",
	"**/.claude-indexer/**",
}

// New creates a file walker with the given include/exclude patterns and a
// max file size in bytes (0 disables the cutoff). Empty includes fall back
// to defaultIncludes; excludes are always appended to defaultExcludes.
func New(includes, excludes []string, maxFileSize int64) *Walker {
	if len(includes) == 0 {
		includes = defaultIncludes
	}
	all := make([]string, 0, len(defaultExcludes)+len(excludes))
	all = append(all, defaultExcludes...)
	all = append(all, excludes...)

	return &Walker{includes: includes, excludes: all, maxFileSize: maxFileSize}
}

// SkippedFile is a file that matched includes but was skipped because it
// exceeded the max file size (P9): it is intentionally absent from the
// resulting state file.
type SkippedFile struct {
	Path string
	Size int64
}

// Walk traverses root, calling fn for each included, non-excluded file under
// the size cutoff. Files over the cutoff are collected and returned instead
// of being passed to fn.
func (w *Walker) Walk(root string, fn func(path string, info os.FileInfo) error) ([]SkippedFile, error) {
	var skipped []SkippedFile

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		relPath = filepath.ToSlash(relPath)

		if d.IsDir() {
			if w.shouldExcludeDir(relPath) {
				return filepath.SkipDir
			}
			return nil
		}

		if w.isExcluded(relPath) || !w.isIncluded(relPath) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		if w.maxFileSize > 0 && info.Size() > w.maxFileSize {
			skipped = append(skipped, SkippedFile{Path: path, Size: info.Size()})
			return nil
		}

		return fn(path, info)
	})

	return skipped, err
}

func (w *Walker) shouldExcludeDir(relPath string) bool {
	dirPath := relPath + "/"
	for _, pattern := range w.excludes {
		if matched, _ := doublestar.Match(pattern, dirPath); matched {
			return true
		}
		if matched, _ := doublestar.Match(pattern, relPath); matched {
			return true
		}
	}
	return false
}

func (w *Walker) isExcluded(relPath string) bool {
	for _, pattern := range w.excludes {
		if matched, _ := doublestar.Match(pattern, relPath); matched {
			return true
		}
	}
	return false
}

func (w *Walker) isIncluded(relPath string) bool {
	for _, pattern := range w.includes {
		if matched, _ := doublestar.Match(pattern, relPath); matched {
			return true
		}
	}
	return false
}
