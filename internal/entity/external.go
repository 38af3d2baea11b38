package entity

import (
	"path"
	"strings"
)

// ExternalExtensions is the fixed set of extensions recognized as external
// file references for orphan-relation purposes (spec §6). A relation whose
// `to` endpoint's last path segment carries one of these extensions is kept
// by orphan cleanup even when no matching entity exists in the collection.
var ExternalExtensions = map[string]bool{
	"json": true, "csv": true, "txt": true, "xml": true,
	"yaml": true, "yml": true, "xlsx": true, "xls": true,
	"ini": true, "toml": true, "html": true, "css": true,
	"log": true, "md": true, "pdf": true, "doc": true,
	"docx": true, "png": true, "jpg": true, "jpeg": true,
	"gif": true, "svg": true, "bin": true, "dat": true,
}

// IsExternalFileReference reports whether a relation endpoint's last path
// segment has a recognized external extension.
func IsExternalFileReference(to string) bool {
	base := path.Base(to)
	ext := strings.TrimPrefix(path.Ext(base), ".")
	if ext == "" {
		return false
	}
	return ExternalExtensions[strings.ToLower(ext)]
}
