// Package buildcache holds the compiler's two caches (spec §9 Design
// Notes: "the parser cache and similar global tables should be made
// explicit/threaded rather than process-global"): a small bounded cache of
// already-parsed files, and an optional persistent store for emitted C
// keyed by source hash.
package buildcache

import (
	"github.com/tomo-lang/tomo/internal/ast"
)

// maxParsedFiles bounds the in-memory parse cache (spec §4.1 Caching: a
// bounded cache of parsed files, no eviction-order guarantee once full —
// mirrors funxy's loader.LoadedModules map, except capped rather than
// growing unboundedly for the lifetime of one compiler invocation).
const maxParsedFiles = 100

// ParseCache holds parsed files keyed by their resolved absolute path.
// Once it reaches maxParsedFiles, an arbitrary existing entry is dropped to
// make room (range order over a Go map, which is itself unspecified) —
// callers must not depend on which one.
type ParseCache struct {
	entries map[string]*ast.Program
}

func NewParseCache() *ParseCache {
	return &ParseCache{entries: make(map[string]*ast.Program)}
}

func (c *ParseCache) Get(path string) (*ast.Program, bool) {
	p, ok := c.entries[path]
	return p, ok
}

func (c *ParseCache) Put(path string, prog *ast.Program) {
	if _, exists := c.entries[path]; !exists && len(c.entries) >= maxParsedFiles {
		for k := range c.entries {
			delete(c.entries, k)
			break
		}
	}
	c.entries[path] = prog
}

func (c *ParseCache) Len() int { return len(c.entries) }
