package cleanup

import "testing"

func TestResolveModuleNameRelativeImport(t *testing.T) {
	entityNames := map[string]bool{
		"/repo/chat/parser.py": true,
	}
	if !resolveModuleName(".chat.parser", entityNames) {
		t.Fatal("expected relative import .chat.parser to resolve")
	}
}

func TestResolveModuleNameDottedPackage(t *testing.T) {
	entityNames := map[string]bool{
		"/repo/claude_indexer/analysis/entities.py": true,
	}
	if !resolveModuleName("claude_indexer.analysis.entities", entityNames) {
		t.Fatal("expected dotted package to resolve")
	}
}

func TestResolveModuleNameBarePackage(t *testing.T) {
	entityNames := map[string]bool{
		"/repo/claude_indexer/__init__.py": true,
	}
	if !resolveModuleName("claude_indexer", entityNames) {
		t.Fatal("expected bare package name to resolve against a directory segment")
	}
}

func TestResolveModuleNameUnresolvable(t *testing.T) {
	entityNames := map[string]bool{
		"/repo/other/file.py": true,
	}
	if resolveModuleName("totally.unrelated", entityNames) {
		t.Fatal("expected unrelated dotted name not to resolve")
	}
}
