// Package env implements Tomo's environment/scope tree (spec §3.6): a node
// holds the names visible at one lexical level, and children read through to
// their parent for lookup while writes stay local, following the teacher's
// internal/symbols scope-chain shape (symbol_table_operations.go's
// NewEnclosedSymbolTable/outer chain) generalized from funxy's Hindley-Milner
// symbol table to Tomo's structural type_t and its C-emission bookkeeping.
package env

import (
	"github.com/tomo-lang/tomo/internal/ast"
	"github.com/tomo-lang/tomo/internal/types"
)

// Binding is one bound name: its type plus the emitter's textual reference
// for it (spec §3.6 "locals: name -> binding(type, code)").
type Binding struct {
	Type       types.Type
	Code       string // emitter's textual reference: variable name, closure field, qualified symbol
	IsConstant bool
	Def        ast.Node // declaration site, for duplicate/cycle diagnostics
}

// LoopContext is the nearest-enclosing loop's identity, threaded as a linked
// list so `skip`/`stop` can target an outer loop by name (spec §3.6
// "loopContext... forming a linked list for nested loops").
type LoopContext struct {
	Name         string
	Vars         []*ast.Var
	SkipLabel    string
	StopLabel    string
	DeferDepth   int // length of the deferred stack at loop entry, for unwinding on skip/stop
	Outer        *LoopContext
}

// Deferred is one `defer` block captured with the environment it closes over
// (spec §3.6 "deferred: stack of deferred blocks, each tagged with the
// environment captured at the defer site").
type Deferred struct {
	Body *ast.Block
	Env  *Env
}

// CodeUnit is the shared compilation-unit accumulator threaded through every
// scope in one file (spec §3.6 "code: shared compilation unit accumulator").
// Children share their root's CodeUnit; only the root allocates one.
type CodeUnit struct {
	Lambdas       []string // synthesized closure struct/function definitions
	LocalTypedefs []string
	Statics       []string
	Initializers  []string // top-level variable initializer statements, in dependency order
	FunctionNames map[string]bool
}

func newCodeUnit() *CodeUnit {
	return &CodeUnit{FunctionNames: make(map[string]bool)}
}

// Env is one node in the scope tree (spec §3.6).
type Env struct {
	outer     *Env
	types     map[string]types.Type
	locals    map[string]*Binding
	imports   map[string]*Env // populated lazily on first `use`, keyed by resolved path
	namespace []string        // nested struct/enum/lang/extend path, for name mangling

	deferred []Deferred
	loop     *LoopContext

	fnReturnType types.Type // nil outside a function body

	code *CodeUnit
}

// New creates a root environment for one compilation unit.
func New() *Env {
	return &Env{
		types:   make(map[string]types.Type),
		locals:  make(map[string]*Binding),
		imports: make(map[string]*Env),
		code:    newCodeUnit(),
	}
}

// Child pushes a fresh scope (spec §3.6 "a fresh child scope is pushed for
// each block, lambda body, loop body, each `when` arm, and each `if`-with-
// declaration true-branch"). Children inherit namespace, loop context,
// return type, and the shared CodeUnit; locals/types/deferred start empty.
func (e *Env) Child() *Env {
	return &Env{
		outer:        e,
		types:        make(map[string]types.Type),
		locals:       make(map[string]*Binding),
		imports:      make(map[string]*Env),
		namespace:    e.namespace,
		loop:         e.loop,
		fnReturnType: e.fnReturnType,
		code:         e.code,
	}
}

// ChildNamespace pushes a scope that also extends the namespace path, for
// struct/enum/lang/extend bodies.
func (e *Env) ChildNamespace(name string) *Env {
	c := e.Child()
	c.namespace = append(append([]string{}, e.namespace...), name)
	return c
}

// ChildFunction pushes a function-body scope with a fresh return type and a
// fresh deferred stack (defers do not cross function boundaries).
func (e *Env) ChildFunction(ret types.Type) *Env {
	c := e.Child()
	c.fnReturnType = ret
	return c
}

// ChildLoop pushes a loop-body scope and links a new LoopContext.
func (e *Env) ChildLoop(name, skipLabel, stopLabel string, vars []*ast.Var) *Env {
	c := e.Child()
	c.loop = &LoopContext{
		Name: name, Vars: vars, SkipLabel: skipLabel, StopLabel: stopLabel,
		DeferDepth: len(e.deferred), Outer: e.loop,
	}
	return c
}

// Define binds name in this scope. Returns false if name is already bound in
// this exact scope (shadowing an outer binding is fine; redefining in the
// same scope is a checker error, spec diagnostics.ErrBDuplicate).
func (e *Env) Define(name string, b *Binding) bool {
	if _, exists := e.locals[name]; exists {
		return false
	}
	e.locals[name] = b
	return true
}

// Lookup walks outward through the scope chain for name (spec §3.6
// "Children read-through to parent for name lookup").
func (e *Env) Lookup(name string) (*Binding, bool) {
	for s := e; s != nil; s = s.outer {
		if b, ok := s.locals[name]; ok {
			return b, true
		}
	}
	return nil, false
}

// LookupLocal checks only this exact scope, without walking to outer scopes;
// used to detect same-scope redefinition before calling Define.
func (e *Env) LookupLocal(name string) (*Binding, bool) {
	b, ok := e.locals[name]
	return b, ok
}

func (e *Env) DefineType(name string, t types.Type) bool {
	if _, exists := e.types[name]; exists {
		return false
	}
	e.types[name] = t
	return true
}

func (e *Env) LookupType(name string) (types.Type, bool) {
	for s := e; s != nil; s = s.outer {
		if t, ok := s.types[name]; ok {
			return t, true
		}
	}
	return nil, false
}

// Import records a resolved module's environment under path, so a later
// `use` of the same path reuses it instead of re-binding names.
func (e *Env) Import(path string, child *Env) {
	e.imports[path] = child
}

func (e *Env) LookupImport(path string) (*Env, bool) {
	for s := e; s != nil; s = s.outer {
		if c, ok := s.imports[path]; ok {
			return c, true
		}
	}
	return nil, false
}

// Namespace returns a copy of the nesting path used for name mangling, one
// segment per level, e.g. ["Shape", "Circle"] two levels deep.
func (e *Env) Namespace() []string { return append([]string{}, e.namespace...) }

// PushDefer records a deferred block captured at the current scope.
func (e *Env) PushDefer(body *ast.Block) {
	e.deferred = append(e.deferred, Deferred{Body: body, Env: e})
}

// Deferred returns this scope's deferred blocks in declaration order; the
// emitter runs them LIFO on scope exit (spec §5).
func (e *Env) Deferred() []Deferred { return e.deferred }

// Loop returns the nearest-enclosing loop context, or nil outside any loop.
func (e *Env) Loop() *LoopContext { return e.loop }

// FindLoop walks the loop-context chain for a named loop (for `skip foo` /
// `stop foo`); an empty name returns the innermost loop.
func (e *Env) FindLoop(name string) *LoopContext {
	for l := e.loop; l != nil; l = l.Outer {
		if name == "" || l.Name == name {
			return l
		}
	}
	return nil
}

// ReturnType is the enclosing function's declared return type, or nil
// outside a function body.
func (e *Env) ReturnType() types.Type { return e.fnReturnType }

// Code returns the shared per-compilation-unit accumulator.
func (e *Env) Code() *CodeUnit { return e.code }
