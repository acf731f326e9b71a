// Package checker implements Tomo's type checker (spec §4.2): a single
// top-down getType(env, ast) -> type_t walk that computes a semantic type
// for every expression, binds names into the environment for every
// statement, and reports structured diagnostics through the same error
// sink the parser uses. Structured the way the teacher's internal/analyzer
// splits concerns across files (declarations_*.go, inference_*.go,
// statements.go) but with one structural getType instead of funxy's
// Hindley-Milner constraint solver, since Tomo has no generics to infer.
package checker

import (
	"github.com/tomo-lang/tomo/internal/ast"
	"github.com/tomo-lang/tomo/internal/diagnostics"
	"github.com/tomo-lang/tomo/internal/env"
	"github.com/tomo-lang/tomo/internal/modules"
	"github.com/tomo-lang/tomo/internal/types"
)

// Checker holds the state shared across one compilation unit's check: the
// error sink, the resolved type of every node the emitter will need again,
// and the loader used to resolve `use` targets (spec §6.3).
type Checker struct {
	sink    diagnostics.Sink
	Types   map[ast.Node]types.Type // populated as getType walks; the emitter reads this back
	Loader  *modules.Loader
}

// New builds a Checker. loader may be nil for callers (tests, ParseExpr
// tooling) that never hit a `use` statement.
func New(sink diagnostics.Sink, loader *modules.Loader) *Checker {
	return &Checker{sink: sink, Types: make(map[ast.Node]types.Type), Loader: loader}
}

func (c *Checker) record(n ast.Node, t types.Type) types.Type {
	c.Types[n] = t
	return t
}

// TypeOf returns the previously computed type for n, or Unknown if n was
// never checked (e.g. a diagnostic aborted the walk before reaching it).
func (c *Checker) TypeOf(n ast.Node) types.Type {
	if t, ok := c.Types[n]; ok {
		return t
	}
	return types.Unknown
}

// CheckModule type-checks every file of m in one shared root environment,
// running the two-pass name resolution spec §4.2 describes: prebind struct/
// enum/lang/extern/function names across all files, then bind each body.
func (c *Checker) CheckModule(m *modules.Module) *env.Env {
	root := env.New()
	c.registerBuiltins(root)

	var allStmts []ast.Stmt
	for _, f := range m.Files {
		allStmts = append(allStmts, f.Statements...)
	}

	c.prebind(root, allStmts)
	c.bindTopLevel(root, allStmts)
	return root
}

// CheckProgram is the single-file convenience entry point used by tests and
// by ParseExpr-style tooling.
func (c *Checker) CheckProgram(p *ast.Program) *env.Env {
	root := env.New()
	c.registerBuiltins(root)
	c.prebind(root, p.Statements)
	c.bindTopLevel(root, p.Statements)
	return root
}
