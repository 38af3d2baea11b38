package parser

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// fileModeStrings are filtered out when picking the "first string literal"
// argument of an open() call, so `open("r", cfg_path)`-shaped calls (mode
// first) don't mistake the mode for a path.
var fileModeStrings = map[string]bool{
	"r": true, "w": true, "a": true, "x": true,
	"rb": true, "wb": true, "ab": true, "xb": true,
	"r+": true, "w+": true, "a+": true,
	"rt": true, "wt": true, "at": true,
}

// FileOpRelation is a file-operation relation detected from a call
// expression: open("x.json"), json.load(...), pandas.read_csv("y.csv"),
// Path("z").read_text(), requests.get(...). Only the first qualifying
// string literal is used.
type FileOpRelation struct {
	ImportType string
	Target     string
}

// classifyFileOp maps a call's target text to the fixed import_type
// vocabulary (spec §4.2). The exact membership of this set is not part of
// the contract and may evolve without breaking consumers (spec §9).
func classifyFileOp(callTarget string) (importType string, ok bool) {
	switch callTarget {
	case "open":
		return "file_open", true
	case "json.load":
		return "json_load", true
	case "json.dump":
		return "json_write", true
	case "pandas.read_csv", "pd.read_csv":
		return "pandas_csv_read", true
	case "requests.get":
		return "requests_get", true
	}
	if strings.HasSuffix(callTarget, ".read_text") {
		return "path_read_text", true
	}
	return "", false
}

// firstStringLiteral returns the first non-mode string-literal argument of a
// call's argument list, with surrounding quotes and any f/r/b prefix
// stripped.
func firstStringLiteral(callNode *sitter.Node, source []byte) (string, bool) {
	args := findChild(callNode, "argument_list")
	if args == nil {
		return "", false
	}
	for i := 0; i < int(args.ChildCount()); i++ {
		child := args.Child(i)
		if child.Type() != "string" {
			continue
		}
		lit := cleanStringLiteral(nodeContent(child, source))
		if fileModeStrings[lit] {
			continue
		}
		return lit, true
	}
	return "", false
}

func cleanStringLiteral(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimLeft(s, "fFrRbB")
	s = strings.Trim(s, `"'`)
	return s
}

// extractPythonFileOpRelation inspects a "call" node and, if it matches a
// recognized file-operation shape, returns the import_type and literal
// path/URL target. For a chained call like Path("z").read_text(), the
// literal is pulled from the inner Path(...) call since read_text() itself
// takes no arguments.
func extractPythonFileOpRelation(node *sitter.Node, source []byte) (FileOpRelation, bool) {
	target := extractCallTarget(node, source)
	if target == "" {
		return FileOpRelation{}, false
	}

	importType, ok := classifyFileOp(target)
	if !ok {
		return FileOpRelation{}, false
	}

	if lit, found := firstStringLiteral(node, source); found {
		return FileOpRelation{ImportType: importType, Target: lit}, true
	}

	// Chained call: look at the function's object for a nested call that
	// does carry the literal, e.g. Path("z").read_text().
	if node.ChildCount() == 0 {
		return FileOpRelation{}, false
	}
	funcNode := node.Child(0)
	if funcNode.Type() != "attribute" {
		return FileOpRelation{}, false
	}
	objNode := funcNode.Child(0)
	if objNode == nil || objNode.Type() != "call" {
		return FileOpRelation{}, false
	}
	if lit, found := firstStringLiteral(objNode, source); found {
		return FileOpRelation{ImportType: importType, Target: lit}, true
	}

	return FileOpRelation{}, false
}
