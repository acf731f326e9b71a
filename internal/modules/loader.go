package modules

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tomo-lang/tomo/internal/ast"
	"github.com/tomo-lang/tomo/internal/buildcache"
	"github.com/tomo-lang/tomo/internal/config"
	"github.com/tomo-lang/tomo/internal/diagnostics"
	"github.com/tomo-lang/tomo/internal/lexer"
	"github.com/tomo-lang/tomo/internal/parser"
	"github.com/tomo-lang/tomo/internal/span"
)

// Loader resolves `use` statements to Modules, parsing each file at most
// once and detecting import cycles (spec §6.3).
type Loader struct {
	ByDir      map[string]*Module // cache, keyed by absolute directory or file path
	Processing map[string]bool    // cycle detection during a Load chain
	LibRoot    string             // ~/.local/share/tomo/installed, for bare `use foo`
	Sink       diagnostics.Sink

	// parses caches the raw *ast.Program for a file by path, independently
	// of ByDir's *Module cache (which is keyed by module file or directory
	// and never evicts), so a file reached both as a one-file module and as
	// part of a directory module is lexed and parsed once.
	parses *buildcache.ParseCache
}

func NewLoader(sink diagnostics.Sink) *Loader {
	home, _ := os.UserHomeDir()
	return &Loader{
		ByDir:      make(map[string]*Module),
		Processing: make(map[string]bool),
		LibRoot:    filepath.Join(home, config.InstalledLibsDirSuffix),
		Sink:       sink,
		parses:     buildcache.NewParseCache(),
	}
}

// Resolve turns a `use` path into a filesystem location: a file for
// `use ./foo.tm`, a library directory for bare `use foo` (spec §6.3).
func (l *Loader) Resolve(baseDir, importPath string) (string, error) {
	if strings.HasPrefix(importPath, ".") {
		full := filepath.Join(baseDir, importPath)
		if _, err := os.Stat(full); err != nil {
			return "", fmt.Errorf("use %q: %w", importPath, err)
		}
		return full, nil
	}
	dir := filepath.Join(l.LibRoot, importPath)
	if _, err := os.Stat(dir); err != nil {
		return "", fmt.Errorf("use %q: library not found under %s", importPath, l.LibRoot)
	}
	return dir, nil
}

// parseFile lexes and parses one file, returning its *ast.Program. Checked
// against the bounded parse cache first, so a file already parsed by this
// Loader for another module (and not since dropped from the parse cache)
// skips lexing and parsing again.
func (l *Loader) parseFile(path string) (*ast.Program, error) {
	if prog, ok := l.parses.Get(path); ok {
		return prog, nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	file := span.NewFile(path, string(content))
	toks, comments := lexer.Lex(file, l.Sink)
	prog := parser.Parse(file, toks, comments, l.Sink)
	l.parses.Put(path, prog)
	return prog, nil
}

// LoadFile loads a single `.tm` file as its own one-file module (the usual
// case for `use ./foo.tm`).
func (l *Loader) LoadFile(path string) (*Module, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if mod, ok := l.ByDir[absPath]; ok {
		return mod, nil
	}
	if l.Processing[absPath] {
		return nil, fmt.Errorf("circular use detected: %s", absPath)
	}
	l.Processing[absPath] = true
	defer delete(l.Processing, absPath)

	prog, err := l.parseFile(absPath)
	if err != nil {
		return nil, err
	}
	mod := &Module{
		Name:  config.TrimSourceExt(filepath.Base(absPath)),
		Dir:   filepath.Dir(absPath),
		Files: []*ast.Program{prog},
	}
	collectExports(mod)
	l.ByDir[absPath] = mod
	return mod, nil
}

// LoadDir loads every `.tm` file directly inside dir as one module, the way
// a bare `use foo` resolves to a library package (spec §6.3).
func (l *Loader) LoadDir(dir string) (*Module, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if mod, ok := l.ByDir[absPath]; ok {
		return mod, nil
	}
	if l.Processing[absPath] {
		return nil, fmt.Errorf("circular use detected: %s", absPath)
	}
	l.Processing[absPath] = true
	defer delete(l.Processing, absPath)

	entries, err := os.ReadDir(absPath)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), config.SourceFileExt) {
			files = append(files, filepath.Join(absPath, e.Name()))
		}
	}
	sort.Strings(files)
	if len(files) == 0 {
		return nil, fmt.Errorf("no %s files found in %s", config.SourceFileExt, absPath)
	}

	mod := &Module{
		Name: filepath.Base(absPath),
		Dir:  absPath,
	}
	for _, f := range files {
		prog, err := l.parseFile(f)
		if err != nil {
			return nil, err
		}
		mod.Files = append(mod.Files, prog)
	}
	collectExports(mod)
	l.ByDir[absPath] = mod
	return mod, nil
}

// Load resolves and loads importPath relative to baseDir, dispatching to
// LoadFile or LoadDir depending on whether it names a source file.
func (l *Loader) Load(baseDir, importPath string) (*Module, error) {
	resolved, err := l.Resolve(baseDir, importPath)
	if err != nil {
		return nil, err
	}
	if config.HasSourceExt(resolved) {
		return l.LoadFile(resolved)
	}
	return l.LoadDir(resolved)
}
