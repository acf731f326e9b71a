package ast

import "github.com/tomo-lang/tomo/internal/span"

// Param is one parameter in a function/lambda's argument list:
// (name?, alias?, typeAst?, defaultValue?, span).
type Param struct {
	Sp      span.Span
	Name    string
	Alias   string // "" if absent
	TypeAST Type   // nil if omitted (inferred from Default)
	Default Expr   // nil if required
}

func (p *Param) Span() span.Span { return p.Sp }

// EnumTagDef is one `Name(fields...)` tag in an enum definition.
type EnumTagDef struct {
	Sp     span.Span
	Name   string
	Fields []Param // a tag's inner fields, same shape as function params
	Secret bool
}

func (e *EnumTagDef) Span() span.Span { return e.Sp }

// WhenClause is one `is Pattern then Body` arm of a `when` expression.
type WhenClause struct {
	Sp      span.Span
	Pattern *Pattern
	Body    *Block
}

// Pattern is what a `when` arm matches against: an enum tag name with
// optional bound field names, e.g. `Circle(r)`.
type Pattern struct {
	Sp    span.Span
	Tag   string
	Binds []string // bound field names, positional
}
