// Package cleanup implements deletion propagation and orphan-relation
// cleanup (C8). Grounded on original_source's
// storage/qdrant.py:_cleanup_orphaned_relations and its nested
// resolve_module_name helper, reworked into exported Go functions operating
// over a single in-memory snapshot instead of a live collection scan.
package cleanup

import "strings"

// resolveModuleName reports whether a dotted or relative module name used
// as a relation endpoint resolves to any entity path already known to the
// collection (spec §4.7's "module-resolution helper"). entityNames holds
// the full set of entity names from the current snapshot.
func resolveModuleName(moduleName string, entityNames map[string]bool) bool {
	if entityNames[moduleName] {
		return true
	}

	switch {
	case strings.HasPrefix(moduleName, "."):
		return resolveRelativeImport(moduleName, entityNames)
	case strings.Contains(moduleName, "."):
		return resolveDottedPackage(moduleName, entityNames)
	default:
		return resolveBarePackage(moduleName, entityNames)
	}
}

// resolveRelativeImport handles leading-dot names like ".chat.parser" or
// "..config": strip the dots, then look for an entity path ending in
// "/<name>.py" (trying both the dotted segment joined with "/" and a plain
// substring match as a last resort).
func resolveRelativeImport(moduleName string, entityNames map[string]bool) bool {
	clean := strings.TrimLeft(moduleName, ".")
	if clean == "" {
		return false
	}

	for name := range entityNames {
		if hasPathSuffix(name, clean+".py") {
			return true
		}
		if strings.Contains(clean, ".") {
			pathVersion := strings.ReplaceAll(clean, ".", "/")
			if hasPathSuffix(name, pathVersion+".py") {
				return true
			}
		}
		if strings.Contains(name, clean) && strings.HasSuffix(name, ".py") {
			return true
		}
	}
	return false
}

// resolveDottedPackage handles absolute dotted paths like "pkg.mod.sub":
// an entity path resolves if it contains every dotted segment and ends in
// ".py" with the final segment present.
func resolveDottedPackage(moduleName string, entityNames map[string]bool) bool {
	parts := strings.Split(moduleName, ".")
	if len(parts) == 0 {
		return false
	}
	last := parts[len(parts)-1]

	for name := range entityNames {
		if !strings.HasSuffix(name, ".py") {
			continue
		}
		if !strings.Contains(name, last) {
			continue
		}
		allPresent := true
		for _, part := range parts {
			if !strings.Contains(name, part) {
				allPresent = false
				break
			}
		}
		if allPresent {
			return true
		}
	}
	return false
}

// resolveBarePackage handles a single package name without dots: an entity
// path resolves if the package name appears as a directory segment.
func resolveBarePackage(moduleName string, entityNames map[string]bool) bool {
	for name := range entityNames {
		if strings.Contains(name, "/"+moduleName+"/") || strings.Contains(name, "\\"+moduleName+"\\") {
			return true
		}
		if strings.HasSuffix(name, "/"+moduleName) || strings.HasSuffix(name, "\\"+moduleName) {
			return true
		}
	}
	return false
}

func hasPathSuffix(name, suffix string) bool {
	return strings.HasSuffix(name, "/"+suffix) || strings.HasSuffix(name, "\\"+suffix)
}
