package ast

// Type is the surface type-AST interface (spec §3.3): types exactly as
// written by the user, resolved to semantic types.Type later by the
// checker. Kept separate from Expr/Stmt since a Type never appears as a
// standalone statement.
type Type interface {
	Node
	typeNode()
}

type VarTypeAST struct {
	Base
	Name string
}

func (t *VarTypeAST) typeNode() {}

// PointerTypeAST is `@T` (IsStack=false) or `&T` (IsStack=true).
type PointerTypeAST struct {
	Base
	Pointed Type
	IsStack bool
}

func (t *PointerTypeAST) typeNode() {}

type ListTypeAST struct {
	Base
	Item Type
}

func (t *ListTypeAST) typeNode() {}

type SetTypeAST struct {
	Base
	Item Type
}

func (t *SetTypeAST) typeNode() {}

type TableTypeAST struct {
	Base
	Key, Value  Type
	DefaultExpr Expr // nil if absent
}

func (t *TableTypeAST) typeNode() {}

type FunctionTypeAST struct {
	Base
	Args []Type
	Ret  Type
}

func (t *FunctionTypeAST) typeNode() {}

type OptionalTypeAST struct {
	Base
	Inner Type
}

func (t *OptionalTypeAST) typeNode() {}

// EnumTypeAST names an inline enum type reference by its tag list, used
// where an enum is referenced positionally rather than by name.
type EnumTypeAST struct {
	Base
	Name string
	Tags []*EnumTagDef
}

func (t *EnumTypeAST) typeNode() {}

type UnknownTypeAST struct{ Base }

func (t *UnknownTypeAST) typeNode() {}
