package parser

import (
	"strings"

	"github.com/kdevlin/semindex/internal/entity"
)

// ParseFunc is the uniform shape every registered parser exposes: given an
// absolute path and its bytes, produce entities/relations/chunks. Parsers
// are pure with respect to the bytes they receive — internalPackages is the
// only external context threaded in, and it affects only import-relation
// filtering (spec §4.2).
type ParseFunc func(path string, source []byte, internalPackages map[string]bool) (ParseOutput, error)

type registryEntry struct {
	claim func(path string) bool
	parse ParseFunc
}

// Registry dispatches a file path to the parser that claims its extension.
// The registry is ordered; the first claimant wins. A path nothing claims
// is a soft miss — spec §4.1 says the orchestrator records a warning and
// moves on, not an error from the registry itself.
type Registry struct {
	entries []registryEntry
}

// NewRegistry builds the default registry: code parsers (Python/JS/TS),
// the documentation parser, and the configuration parsers, in that order.
// Special-file sniffing (package.json, docker-compose.yml, ...) happens
// inside the JSON/YAML parsers, which add its entities alongside their
// generic key entities.
func NewRegistry() *Registry {
	r := &Registry{}

	r.Register(func(p string) bool {
		_, ok := DetectLanguage(p)
		return ok
	}, func(path string, source []byte, internalPackages map[string]bool) (ParseOutput, error) {
		lang, _ := DetectLanguage(strings.ToLower(path))
		return ExtractCode(path, source, lang, internalPackages)
	})

	r.Register(extMatcher(".md", ".markdown"), func(path string, source []byte, _ map[string]bool) (ParseOutput, error) {
		return ExtractDocumentation(path, source), nil
	})

	r.Register(extMatcher(".json"), func(path string, source []byte, _ map[string]bool) (ParseOutput, error) {
		return ExtractJSON(path, source), nil
	})

	r.Register(extMatcher(".yaml", ".yml"), func(path string, source []byte, _ map[string]bool) (ParseOutput, error) {
		return ExtractYAML(path, source), nil
	})

	r.Register(extMatcher(".css"), func(path string, source []byte, _ map[string]bool) (ParseOutput, error) {
		return ExtractCSS(path, source), nil
	})

	r.Register(extMatcher(".html", ".htm"), func(path string, source []byte, _ map[string]bool) (ParseOutput, error) {
		return ExtractHTML(path, source), nil
	})

	r.Register(extMatcher(".ini", ".cfg"), func(path string, source []byte, _ map[string]bool) (ParseOutput, error) {
		return ExtractINI(path, source), nil
	})

	r.Register(extMatcher(".csv"), func(path string, source []byte, _ map[string]bool) (ParseOutput, error) {
		return ExtractCSV(path, source), nil
	})

	r.Register(extMatcher(".txt"), func(path string, source []byte, _ map[string]bool) (ParseOutput, error) {
		return ExtractPlainText(path, source), nil
	})

	return r
}

// Register appends a claimant/parser pair. Later registrations are only
// reached when earlier ones decline.
func (r *Registry) Register(claim func(path string) bool, parse ParseFunc) {
	r.entries = append(r.entries, registryEntry{claim: claim, parse: parse})
}

// ParserFor returns the first parser that claims path, matching extensions
// case-insensitively, or nil if none does.
func (r *Registry) ParserFor(path string) ParseFunc {
	lower := strings.ToLower(path)
	for _, e := range r.entries {
		if e.claim(lower) {
			return e.parse
		}
	}
	return nil
}

func extMatcher(exts ...string) func(string) bool {
	return func(path string) bool {
		for _, ext := range exts {
			if strings.HasSuffix(path, ext) {
				return true
			}
		}
		return false
	}
}

// minimalEntity is a small helper the config/doc parsers share for the
// mandatory file entity every parser emits.
func minimalEntity(path string) entity.Entity {
	return entity.Entity{Name: path, Kind: entity.KindFile, FilePath: path}
}
