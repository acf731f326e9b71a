package parser_test

import (
	"testing"

	"github.com/tomo-lang/tomo/internal/ast"
	"github.com/tomo-lang/tomo/internal/diagnostics"
	"github.com/tomo-lang/tomo/internal/lexer"
	"github.com/tomo-lang/tomo/internal/parser"
	"github.com/tomo-lang/tomo/internal/span"
	"github.com/tomo-lang/tomo/internal/token"
)

func parse(t *testing.T, src string) *ast.Program {
	t.Helper()
	file := span.NewFile("<test>", src)
	sink := &diagnostics.CollectSink{}
	toks, comments := lexer.Lex(file, sink)
	prog := parser.Parse(file, toks, comments, sink)
	if len(sink.Diagnostics) != 0 {
		t.Fatalf("unexpected parse diagnostics: %v", sink.Diagnostics)
	}
	return prog
}

// TestOperatorPrecedence covers spec §8.1's "operator precedence idempotence"
// invariant: `2 + 3 * 4` parses as Plus(2, Multiply(3, 4)), not
// Multiply(Plus(2, 3), 4).
func TestOperatorPrecedence(t *testing.T) {
	prog := parse(t, "x := 2 + 3 * 4\n")
	if len(prog.Statements) != 1 {
		t.Fatalf("got %d statements, want 1", len(prog.Statements))
	}
	decl, ok := prog.Statements[0].(*ast.Declare)
	if !ok {
		t.Fatalf("statement is %T, want *ast.Declare", prog.Statements[0])
	}
	plus, ok := decl.Value.(*ast.Plus)
	if !ok {
		t.Fatalf("declared value is %T, want *ast.Plus", decl.Value)
	}
	if _, ok := plus.LHS.(*ast.Int); !ok {
		t.Fatalf("Plus.LHS is %T, want *ast.Int", plus.LHS)
	}
	mul, ok := plus.RHS.(*ast.Multiply)
	if !ok {
		t.Fatalf("Plus.RHS is %T, want *ast.Multiply (multiplication must bind tighter than addition)", plus.RHS)
	}
	if _, ok := mul.LHS.(*ast.Int); !ok {
		t.Fatalf("Multiply.LHS is %T, want *ast.Int", mul.LHS)
	}
	if _, ok := mul.RHS.(*ast.Int); !ok {
		t.Fatalf("Multiply.RHS is %T, want *ast.Int", mul.RHS)
	}
}

// TestSpanContainment covers spec §8.1's span-containment invariant: every
// child node's span lies entirely within its parent's.
func TestSpanContainment(t *testing.T) {
	prog := parse(t, "x := 2 + 3 * 4\n")
	decl := prog.Statements[0].(*ast.Declare)
	if !decl.Span().Contains(decl.Value.Span()) {
		t.Fatalf("Declare span %v does not contain Value span %v", decl.Span(), decl.Value.Span())
	}
	plus := decl.Value.(*ast.Plus)
	if !plus.Span().Contains(plus.LHS.Span()) || !plus.Span().Contains(plus.RHS.Span()) {
		t.Fatalf("Plus span %v does not contain both operand spans", plus.Span())
	}
}

// TestLexerRoundTrip covers spec §8.1's lexer round-trip invariant: every
// token's span text, concatenated in order, reproduces runs of the original
// source (modulo the synthetic INDENT/DEDENT/NEWLINE/EOF tokens the lexer
// inserts, which carry no source text of their own).
func TestLexerRoundTrip(t *testing.T) {
	src := "x := 2 + 3 * 4\n"
	file := span.NewFile("<test>", src)
	sink := &diagnostics.CollectSink{}
	toks, _ := lexer.Lex(file, sink)
	if len(sink.Diagnostics) != 0 {
		t.Fatalf("unexpected lex diagnostics: %v", sink.Diagnostics)
	}
	var b []byte
	for _, tok := range toks {
		switch tok.Type {
		case token.NEWLINE, token.INDENT, token.DEDENT, token.EOF:
			continue
		}
		b = append(b, src[tok.Start:tok.End]...)
	}
	got := string(b)
	want := "x:=2+3*4"
	if got != want {
		t.Errorf("concatenated token text = %q, want %q", got, want)
	}
}
