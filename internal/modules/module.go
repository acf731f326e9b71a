package modules

import (
	"strings"

	"github.com/tomo-lang/tomo/internal/ast"
)

// Module is a loaded compilation unit: either one `.tm` file or a library
// directory whose `.tm` files, loaded in name order, together form the
// module, with no file treated as a main file (spec §6.3: "use foo —
// library module").
type Module struct {
	Name    string
	Dir     string
	Files   []*ast.Program
	Exports map[string]bool // top-level names visible to importers
	Uses    []*Module       // modules this one directly `use`s, in source order
}

// isExported reports whether a top-level name is visible outside its
// defining module. Tomo has no explicit export list: every top-level name
// is visible except ones starting with `_` (spec §3.2 Definitions).
func isExported(name string) bool {
	return name != "" && !strings.HasPrefix(name, "_")
}

// collectExports scans a module's files for top-level definitions and
// records the exported ones by name.
func collectExports(m *Module) {
	m.Exports = make(map[string]bool)
	for _, file := range m.Files {
		for _, stmt := range file.Statements {
			name := topLevelName(stmt)
			if name != "" && isExported(name) {
				m.Exports[name] = true
			}
		}
	}
}

// topLevelName returns the name a top-level statement introduces, or ""
// if the statement introduces no nameable binding (e.g. a bare `use`).
func topLevelName(stmt ast.Stmt) string {
	switch n := stmt.(type) {
	case *ast.FunctionDef:
		return n.Name
	case *ast.StructDef:
		return n.Name
	case *ast.EnumDef:
		return n.Name
	case *ast.LangDef:
		return n.Name
	case *ast.Declare:
		if n.Var != nil {
			return n.Var.Name
		}
	}
	return ""
}
