package ast

// Declare is a binding statement: `x := expr`, `x : T := expr`, or (at
// file scope) `x := expr` with TopLevel set so the checker schedules it
// through the dependency-ordered initializer walk (spec §4.2 "Name
// resolution and ordering").
type Declare struct {
	Base
	Var      *Var
	TypeAST  Type // nil if inferred from Value
	Value    Expr // nil only for `extern`-backed forward declarations
	TopLevel bool
}

func (n *Declare) exprNode() {}
func (n *Declare) stmtNode() {}

// Assign is `a, b = x, y`: parallel assignment to one or more lvalues.
type Assign struct {
	Base
	Targets []Expr
	Values  []Expr
}

func (n *Assign) exprNode() {}
func (n *Assign) stmtNode() {}

// CacheSpec captures a function's `; cache` / `; cache_size=N` modifier
// (spec §4.3 "Function caching").
type CacheSpec struct {
	Enabled bool
	Size    int // 0 = unbounded
}

// FunctionDef is a named function declaration.
type FunctionDef struct {
	Base
	Name      string
	Args      []Param
	ReturnAST Type // nil if inferred from Body
	Body      *Block
	Cache     *CacheSpec // nil if not cached
	IsPrivate bool       // name prefixed with `_`
}

func (n *FunctionDef) exprNode() {}
func (n *FunctionDef) stmtNode() {}

// ConvertDef is a user-defined conversion function (`Struct.from(...)`-style
// constructor-like conversion between two types, spec §3.2 Definitions).
type ConvertDef struct {
	Base
	FromArgs  []Param
	ReturnAST Type
	Body      *Block
}

func (n *ConvertDef) exprNode() {}
func (n *ConvertDef) stmtNode() {}

// Lambda is an anonymous function literal; its type is Closure(Function(...))
// (spec §4.2 Lambda).
type Lambda struct {
	Base
	Args      []Param
	ReturnAST Type // nil if inferred from Body
	Body      *Block
}

func (n *Lambda) exprNode() {}
func (n *Lambda) stmtNode() {}

// FieldDef is one struct field: `name: T [= default]`.
type FieldDef struct {
	Name    string
	TypeAST Type
	Default Expr // nil if required
	Secret  bool
}

// StructDef declares a nominal record type.
type StructDef struct {
	Base
	Name     string
	Fields   []FieldDef
	Body     *Block // namespace body: methods and nested definitions
	IsOpaque bool
	IsPacked bool
	IsSecret bool
}

func (n *StructDef) exprNode() {}
func (n *StructDef) stmtNode() {}

// EnumDef declares a tagged union.
type EnumDef struct {
	Base
	Name string
	Tags []*EnumTagDef
	Body *Block // namespace body: methods and nested definitions
}

func (n *EnumDef) exprNode() {}
func (n *EnumDef) stmtNode() {}

// LangDef declares a user-defined textual sublanguage, e.g. `lang Path`.
type LangDef struct {
	Base
	Name string
	Body *Block // namespace body: methods operating on this lang's Text
}

func (n *LangDef) exprNode() {}
func (n *LangDef) stmtNode() {}

// Extend merges Body's declarations into Target's existing namespace
// (spec §9 Design Notes item 8 / SPEC_FULL.md D.8: implemented narrowly —
// only FunctionDef/ConvertDef children are accepted, everything else is a
// checker "not yet implemented" error).
type Extend struct {
	Base
	Target Type
	Body   *Block
}

func (n *Extend) exprNode() {}
func (n *Extend) stmtNode() {}

// Extern declares a symbol defined outside this compilation unit (e.g. in
// a `use`d C header) with a given Tomo-visible type.
type Extern struct {
	Base
	Name string
	Type Type
}

func (n *Extern) exprNode() {}
func (n *Extern) stmtNode() {}

// UseKind classifies a `use` statement's target (spec §6.3).
type UseKind int

const (
	UseLocalFile UseKind = iota // use ./foo.tm
	UseModule                   // use foo
	UseCHeader                  // use <foo.h> / use "foo.h"
	UseCSource                  // use foo.c / use foo.S
	UseLinkerFlag                // use -lfoo
)

// Use is a `use` statement. Var, when non-nil, binds the imported module
// under an explicit alias (`use foo as bar`); otherwise the module's own
// name is used.
type Use struct {
	Base
	Var  *Var // nil if unaliased
	Path string
	Kind UseKind
}

func (n *Use) exprNode() {}
func (n *Use) stmtNode() {}
