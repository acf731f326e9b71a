package ast

import "github.com/tomo-lang/tomo/internal/span"

// ---- Binary operators -------------------------------------------------------
//
// Spec §3.2 requires "one variant per binary operator... plus an in-place
// update mirror for each" and that every such variant "stores exactly
// (lhs, rhs) with identical structural shape so they can be handled
// uniformly". BinOp is that common shape; each operator gets its own named
// type embedding it so the checker/emitter type switch can dispatch on Go
// type while still reaching shared (LHS, RHS, Key) fields via embedding.

// BinOp is the shared payload for every binary operator and its Update
// mirror. Key is only populated for Min/Max (spec §4.1: "Min/Max parse an
// optional key-expression before the RHS").
type BinOp struct {
	Base
	LHS, RHS Expr
	Key      Expr // non-nil only for Min/Max's `_min_ .field` form
}

func (b *BinOp) exprNode() {}
func (b *BinOp) stmtNode() {}

// Operands exposes (LHS, RHS) through one method so the checker/emitter can
// dispatch across all 24 named operator variants without a 24-case switch
// just to reach their shared payload.
func (b *BinOp) Operands() (Expr, Expr) { return b.LHS, b.RHS }

// KeyExpr exposes Min/Max's optional key-expression (nil for every other
// operator).
func (b *BinOp) KeyExpr() Expr { return b.Key }

func mkBinOp(sp span.Span, lhs, rhs Expr) BinOp {
	return BinOp{Base: Base{Sp: sp}, LHS: lhs, RHS: rhs}
}

// One named type per operator, per spec §3.2.
type (
	Plus               struct{ BinOp }
	Minus              struct{ BinOp }
	Multiply           struct{ BinOp }
	Divide             struct{ BinOp }
	Mod                struct{ BinOp }
	Mod1               struct{ BinOp }
	Power              struct{ BinOp }
	Concat             struct{ BinOp }
	LeftShift          struct{ BinOp }
	RightShift         struct{ BinOp }
	UnsignedLeftShift  struct{ BinOp }
	UnsignedRightShift struct{ BinOp }
	Equals             struct{ BinOp }
	NotEquals          struct{ BinOp }
	LessThan           struct{ BinOp }
	LessThanOrEquals   struct{ BinOp }
	GreaterThan        struct{ BinOp }
	GreaterThanOrEquals struct{ BinOp }
	Compare            struct{ BinOp }
	And                struct{ BinOp }
	Or                 struct{ BinOp }
	Xor                struct{ BinOp }
	Min                struct{ BinOp }
	Max                struct{ BinOp }
)

// Update-assignment mirrors (spec §3.2: "an in-place update mirror for
// each"). Target must be an lvalue (Var, FieldAccess, or Index).
type (
	PlusUpdate               struct{ BinOp }
	MinusUpdate              struct{ BinOp }
	MultiplyUpdate           struct{ BinOp }
	DivideUpdate             struct{ BinOp }
	ModUpdate                struct{ BinOp }
	Mod1Update               struct{ BinOp }
	PowerUpdate              struct{ BinOp }
	ConcatUpdate             struct{ BinOp }
	LeftShiftUpdate          struct{ BinOp }
	RightShiftUpdate         struct{ BinOp }
	UnsignedLeftShiftUpdate  struct{ BinOp }
	UnsignedRightShiftUpdate struct{ BinOp }
	AndUpdate                struct{ BinOp }
	OrUpdate                 struct{ BinOp }
	XorUpdate                struct{ BinOp }
	MinUpdate                struct{ BinOp }
	MaxUpdate                struct{ BinOp }
)

// IsUpdateAssignment reports whether n is one of the *Update variants,
// used by the emitter's read-modify-write lowering (spec §4.3).
func IsUpdateAssignment(n Expr) bool {
	switch n.(type) {
	case *PlusUpdate, *MinusUpdate, *MultiplyUpdate, *DivideUpdate, *ModUpdate,
		*Mod1Update, *PowerUpdate, *ConcatUpdate, *LeftShiftUpdate, *RightShiftUpdate,
		*UnsignedLeftShiftUpdate, *UnsignedRightShiftUpdate, *AndUpdate, *OrUpdate,
		*XorUpdate, *MinUpdate, *MaxUpdate:
		return true
	}
	return false
}

// ---- Unary operators --------------------------------------------------------

type UnaryOp struct {
	Base
	Operand Expr
}

type (
	// Not is logical/bitwise negation.
	Not struct{ UnaryOp }
	// Negative is arithmetic negation.
	Negative struct{ UnaryOp }
	// HeapAllocate is `@x`: Pointer(T, isStack=false).
	HeapAllocate struct{ UnaryOp }
	// StackReference is `&x`: Pointer(T, isStack=true) or false per
	// spec §4.2's StackReference rule.
	StackReference struct{ UnaryOp }
	// Optional is `x?` surface sugar wrapping x's type in Optional.
	Optional struct{ UnaryOp }
	// NonOptional is `x!`: assert-non-none and unwrap.
	NonOptional struct{ UnaryOp }
)

func (u *UnaryOp) exprNode() {}
func (u *UnaryOp) stmtNode() {}

// UnaryOperand exposes Operand through one method, the unary counterpart to
// BinOp.Operands.
func (u *UnaryOp) UnaryOperand() Expr { return u.Operand }

// ---- Containers -------------------------------------------------------------

type List struct {
	Base
	Items []Expr
}

func (n *List) exprNode() {}
func (n *List) stmtNode() {}

type Set struct {
	Base
	Items []Expr
}

func (n *Set) exprNode() {}
func (n *Set) stmtNode() {}

// TableEntry is one `key: value` pair inside a Table literal.
type TableEntry struct {
	Base
	Key, Value Expr
}

func (n *TableEntry) exprNode() {}
func (n *TableEntry) stmtNode() {}

type Table struct {
	Base
	Entries  []*TableEntry
	Fallback Expr // another table to fall back to on miss, or nil
	Default  Expr // default value for missing keys, or nil
}

func (n *Table) exprNode() {}
func (n *Table) stmtNode() {}

// Comprehension desugars to a loop over an accumulator at emission time
// (spec §4.3 "Comprehensions"); Expr is the per-iteration value/entry
// expression (a *TableEntry for table comprehensions).
type Comprehension struct {
	Base
	Expr   Expr
	Vars   []*Var
	Iter   Expr
	Filter Expr // nil if no `if` clause
}

func (n *Comprehension) exprNode() {}
func (n *Comprehension) stmtNode() {}

// ---- Access -----------------------------------------------------------------

type FieldAccess struct {
	Base
	Obj  Expr
	Name string
}

func (n *FieldAccess) exprNode() {}
func (n *FieldAccess) stmtNode() {}

// Index is `obj[index]` (index nil for pointer dereference `p[]`).
// Unchecked marks the `; unchecked` suffix that skips runtime bounds
// checks (spec §3.2 Access).
type Index struct {
	Base
	Obj       Expr
	Index     Expr // nil => dereference
	Unchecked bool
}

func (n *Index) exprNode() {}
func (n *Index) stmtNode() {}

// ---- Calls ------------------------------------------------------------------

// Arg is one call-site argument: positional if Name == "".
type Arg struct {
	Name  string
	Value Expr
}

type FunctionCall struct {
	Base
	Fn   Expr
	Args []Arg
}

func (n *FunctionCall) exprNode() {}
func (n *FunctionCall) stmtNode() {}

type MethodCall struct {
	Base
	Self Expr
	Name string
	Args []Arg
}

func (n *MethodCall) exprNode() {}
func (n *MethodCall) stmtNode() {}

// Reduction is `(op: iter)` folding sugar (spec §3.2 Calls, GLOSSARY).
// Op names a binary-operator AST constructor by its type name (e.g. "Plus",
// "Min") since the op itself has no operands yet at parse time.
type Reduction struct {
	Base
	Iter Expr
	Op   string
	Key  Expr // optional key-expression, e.g. `(max: people) _max_ .age`
}

func (n *Reduction) exprNode() {}
func (n *Reduction) stmtNode() {}
