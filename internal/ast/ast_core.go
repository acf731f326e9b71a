// Package ast defines Tomo's abstract syntax tree: a tagged sum of roughly
// seventy node variants (spec §3.2), each carrying a source span. Node
// dispatch uses a type switch (as in go/ast) rather than the teacher's
// per-type double-dispatch Visitor.
package ast

import (
	"math/big"

	"github.com/tomo-lang/tomo/internal/span"
)

// Node is the base interface every AST node implements.
type Node interface {
	Span() span.Span
}

// Expr is a Node that produces a value.
type Expr interface {
	Node
	exprNode()
}

// Stmt is a Node that can appear in a Block's statement list. Most
// expressions double as statements (spec's AST has no separate
// ExpressionStatement wrapper); Stmt is implemented by every Expr plus the
// definition/control-flow forms that are not expressions.
type Stmt interface {
	Node
	stmtNode()
}

// Base is embedded by every node to supply Span() without per-type
// boilerplate beyond the one-line exprNode/stmtNode marker each concrete
// type still declares (matching the teacher's token.Token-accessor
// pattern, adapted to span.Span).
type Base struct {
	Sp span.Span
}

func (b Base) Span() span.Span { return b.Sp }

// Comment table -------------------------------------------------------------

// Comment is one `#`-to-end-of-line comment, kept for source-to-source
// formatting (spec §4.1 "Comments are not discarded").
type Comment struct {
	Span span.Span
	Text string
}

// CommentTable indexes comments by their starting byte offset so the
// emitter/formatter can query a range, matching spec §4.1.
type CommentTable struct {
	byStart map[int]*Comment
	all     []*Comment
}

func NewCommentTable() *CommentTable {
	return &CommentTable{byStart: make(map[int]*Comment)}
}

func (t *CommentTable) Add(c *Comment) {
	t.byStart[c.Span.Start] = c
	t.all = append(t.all, c)
}

// InRange returns every comment whose start lies within [start, end).
func (t *CommentTable) InRange(start, end int) []*Comment {
	var out []*Comment
	for _, c := range t.all {
		if c.Span.Start >= start && c.Span.Start < end {
			out = append(out, c)
		}
	}
	return out
}

// Program is the root node produced by parseFile for one compilation unit.
type Program struct {
	Base
	File       *span.File
	Statements []Stmt
}

// ---- Literals ---------------------------------------------------------------

// None is a `none` literal; TypeHint is required unless inferred from
// surrounding context by the checker (spec §4.2: "None without a type hint
// is an error" unless the checker can supply one).
type None struct {
	Base
	TypeHint Type // surface Type AST, nil if absent in source
}

func (n *None) exprNode() {}
func (n *None) stmtNode() {}

type Bool struct {
	Base
	Value bool
}

func (n *Bool) exprNode() {}
func (n *Bool) stmtNode() {}

// Int is an integer literal as written: raw digits plus NumBase, so the
// checker can decide BigInt vs a narrower Int based on context (spec
// §9 Open Question on narrowing).
type Int struct {
	Base
	Digits  string
	NumBase int // 2, 8, 10, or 16
	Value   *big.Int
}

func (n *Int) exprNode() {}
func (n *Int) stmtNode() {}

// Num is a floating-point literal (including literals reclassified from Int
// via a trailing %, deg, e, or f suffix per spec §4.1 Numbers).
type Num struct {
	Base
	Value float64
}

func (n *Num) exprNode() {}
func (n *Num) stmtNode() {}

// TextLiteral is one cooked, non-interpolated chunk of text, either a
// standalone literal or one chunk alternating inside a TextJoin.
type TextLiteral struct {
	Base
	Cooked string
}

func (n *TextLiteral) exprNode() {}
func (n *TextLiteral) stmtNode() {}

// TextJoin is an interpolated text literal: Chunks alternates TextLiteral
// and arbitrary embedded expressions (spec §4.1 Text literals step 6).
type TextJoin struct {
	Base
	Lang   string // "" = default language
	Chunks []Expr
}

func (n *TextJoin) exprNode() {}
func (n *TextJoin) stmtNode() {}

// Path is a bare path literal, e.g. (/usr/bin) sugar handled at parse time.
type Path struct {
	Base
	Raw string
}

func (n *Path) exprNode() {}
func (n *Path) stmtNode() {}

// ---- References ------------------------------------------------------------

type Var struct {
	Base
	Name string
}

func (n *Var) exprNode() {}
func (n *Var) stmtNode() {}

// ---- Pass/control leaves ----------------------------------------------------

type Pass struct{ Base }

func (n *Pass) exprNode() {}
func (n *Pass) stmtNode() {}

// Skip is `skip` (a.k.a. continue), optionally targeting a named loop.
type Skip struct {
	Base
	Target string // "" = innermost loop
}

func (n *Skip) exprNode() {}
func (n *Skip) stmtNode() {}

// Stop is `stop` (a.k.a. break), optionally targeting a named loop.
type Stop struct {
	Base
	Target string
}

func (n *Stop) exprNode() {}
func (n *Stop) stmtNode() {}

// Return returns from the enclosing function, with an optional value.
type Return struct {
	Base
	Value Expr // nil for a bare `return`
}

func (n *Return) exprNode() {}
func (n *Return) stmtNode() {}

// Defer schedules Body to run at the enclosing scope's exit, LIFO (spec §5,
// §4.3 Control flow "defer").
type Defer struct {
	Base
	Body *Block
}

func (n *Defer) exprNode() {}
func (n *Defer) stmtNode() {}

// Assert checks Expr is truthy at runtime, with an optional message.
type Assert struct {
	Base
	Expr    Expr
	Message Expr // nil if absent
}

func (n *Assert) exprNode() {}
func (n *Assert) stmtNode() {}

// DocTest is a `>> expr = value` embedded test assertion (spec GLOSSARY).
type DocTest struct {
	Base
	Expr       Expr
	Expected   string // raw expected text, "" if none given (side-effect-only doctest)
	SkipSource bool   // true when the doctest should not echo the source expression
}

func (n *DocTest) exprNode() {}
func (n *DocTest) stmtNode() {}

// InlineCCode splices verbatim C text into the output (spec §3.2 Misc).
type InlineCCode struct {
	Base
	Chunks   []Expr // TextLiteral / embedded expression chunks, like TextJoin
	TypeHint Type
}

func (n *InlineCCode) exprNode() {}
func (n *InlineCCode) stmtNode() {}

// Deserialize parses a runtime value of the given type out of a binary blob.
type Deserialize struct {
	Base
	Value Expr
	Type  Type
}

func (n *Deserialize) exprNode() {}
func (n *Deserialize) stmtNode() {}

// ExplicitlyTyped is a checker-internal wrapper binding an already-checked
// AST node to a resolved type, used to thread promotions/rewrites through
// without re-deriving the type (spec §3.2 Misc: "internal checker use").
// The Type field is `any` (holding a types.Type) to avoid an import cycle;
// internal/checker provides typed constructors/accessors.
type ExplicitlyTyped struct {
	Base
	Inner Expr
	Type  any
}

func (n *ExplicitlyTyped) exprNode() {}
func (n *ExplicitlyTyped) stmtNode() {}
