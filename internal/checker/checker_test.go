package checker_test

import (
	"testing"

	"github.com/tomo-lang/tomo/internal/ast"
	"github.com/tomo-lang/tomo/internal/checker"
	"github.com/tomo-lang/tomo/internal/diagnostics"
	"github.com/tomo-lang/tomo/internal/lexer"
	"github.com/tomo-lang/tomo/internal/parser"
	"github.com/tomo-lang/tomo/internal/span"
	"github.com/tomo-lang/tomo/internal/types"
)

// checkSource lexes, parses, and checks src in one root environment,
// collecting every diagnostic instead of aborting on the first one.
func checkSource(t *testing.T, src string) (*checker.Checker, *diagnostics.CollectSink) {
	t.Helper()
	file := span.NewFile("<test>", src)
	sink := &diagnostics.CollectSink{}
	toks, comments := lexer.Lex(file, sink)
	prog := parser.Parse(file, toks, comments, sink)
	c := checker.New(sink, nil)
	c.CheckProgram(prog)
	return c, sink
}

func codes(sink *diagnostics.CollectSink) []diagnostics.ErrorCode {
	var cs []diagnostics.ErrorCode
	for _, d := range sink.Diagnostics {
		cs = append(cs, d.Code)
	}
	return cs
}

// TestArithmeticDeclareType covers spec §8.2's "integer arithmetic" scenario:
// x := 2 + 3 * 4 should type as BigInt with no diagnostics.
func TestArithmeticDeclareType(t *testing.T) {
	c, sink := checkSource(t, "x := 2 + 3 * 4\n")
	if len(sink.Diagnostics) != 0 {
		t.Fatalf("unexpected diagnostics: %v", codes(sink))
	}
	var decl *ast.Declare
	for n := range c.Types {
		if d, ok := n.(*ast.Declare); ok {
			decl = d
		}
	}
	if decl == nil {
		t.Fatal("no Declare node was checked")
	}
	got := c.TypeOf(decl.Var)
	if !got.Equal(types.BigInt) {
		t.Errorf("x: got %s, want %s", got, types.BigInt)
	}
}

// TestEnumWhenExhaustive covers spec §8.2's enum-matching scenario: a when
// with a clause for every tag reports no non-exhaustiveness diagnostic.
func TestEnumWhenExhaustive(t *testing.T) {
	src := `enum Shape Circle(r: Num) | Square(s: Num)

func classify(shape: Shape) -> Int
    when shape
        is Circle(r) then
            return 1
        is Square(s) then
            return 2
`
	_, sink := checkSource(t, src)
	for _, code := range codes(sink) {
		if code == diagnostics.ErrTNonExhaustive {
			t.Fatalf("unexpected non-exhaustive diagnostic on an exhaustive when: %v", codes(sink))
		}
	}
}

// TestEnumWhenNonExhaustive covers the same scenario with a missing tag.
func TestEnumWhenNonExhaustive(t *testing.T) {
	src := `enum Shape Circle(r: Num) | Square(s: Num)

func classify(shape: Shape) -> Int
    when shape
        is Circle(r) then
            return 1
`
	_, sink := checkSource(t, src)
	found := false
	for _, code := range codes(sink) {
		if code == diagnostics.ErrTNonExhaustive {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected ErrTNonExhaustive, got %v", codes(sink))
	}
}

// TestDuplicateDeclareInScope covers spec §3.6's duplicate-binding diagnostic.
func TestDuplicateDeclareInScope(t *testing.T) {
	src := "x := 1\nx := 2\n"
	_, sink := checkSource(t, src)
	found := false
	for _, code := range codes(sink) {
		if code == diagnostics.ErrBDuplicate {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected ErrBDuplicate, got %v", codes(sink))
	}
}

// TestIntRangeComprehension covers spec §8.2.4's canonical scenario
// `squares := [x*x for x in 1.to(5)]`: `1.to(5)` must type-check to a
// Range whose item feeds the comprehension's loop variable with no
// diagnostics, and the comprehension itself must type as [BigInt].
func TestIntRangeComprehension(t *testing.T) {
	c, sink := checkSource(t, "squares := [x*x for x in 1.to(5)]\n")
	if len(sink.Diagnostics) != 0 {
		t.Fatalf("unexpected diagnostics: %v", codes(sink))
	}
	var decl *ast.Declare
	for n := range c.Types {
		if d, ok := n.(*ast.Declare); ok {
			decl = d
		}
	}
	if decl == nil {
		t.Fatal("no Declare node was checked")
	}
	got := c.TypeOf(decl.Var)
	want := types.List{Item: types.BigInt}
	if !got.Equal(want) {
		t.Errorf("squares: got %s, want %s", got, want)
	}
}

// TestIntRangeFor covers the counted-loop form (not a comprehension):
// `for i in 1.to(3)` binds i to BigInt with no diagnostics.
func TestIntRangeFor(t *testing.T) {
	src := "for i in 1.to(3)\n    say(\"hi\")\n"
	_, sink := checkSource(t, src)
	if len(sink.Diagnostics) != 0 {
		t.Fatalf("unexpected diagnostics: %v", codes(sink))
	}
}

// TestDeclaredTypeMismatch covers spec §4.2's declared-type/value-type check.
func TestDeclaredTypeMismatch(t *testing.T) {
	src := "x: Int = \"nope\"\n"
	_, sink := checkSource(t, src)
	found := false
	for _, code := range codes(sink) {
		if code == diagnostics.ErrTMismatch {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected ErrTMismatch, got %v", codes(sink))
	}
}
