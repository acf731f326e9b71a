package env_test

import (
	"testing"

	"github.com/tomo-lang/tomo/internal/env"
	"github.com/tomo-lang/tomo/internal/types"
)

func TestChildReadsThroughToParent(t *testing.T) {
	root := env.New()
	root.Define("x", &env.Binding{Type: types.Int64, Code: "x"})
	child := root.Child()
	b, ok := child.Lookup("x")
	if !ok || !b.Type.Equal(types.Int64) {
		t.Fatalf("child should see parent's binding for x, got %v, %v", b, ok)
	}
}

func TestChildWritesStayLocal(t *testing.T) {
	root := env.New()
	child := root.Child()
	child.Define("y", &env.Binding{Type: types.Bool, Code: "y"})
	if _, ok := root.Lookup("y"); ok {
		t.Fatal("a child's binding must not leak into its parent")
	}
}

func TestDefineRejectsRedefinitionInSameScope(t *testing.T) {
	root := env.New()
	if !root.Define("x", &env.Binding{Type: types.Int64}) {
		t.Fatal("first Define should succeed")
	}
	if root.Define("x", &env.Binding{Type: types.Int64}) {
		t.Fatal("redefining the same name in the same scope should fail")
	}
}

func TestLookupLocalDoesNotWalkOuter(t *testing.T) {
	root := env.New()
	root.Define("x", &env.Binding{Type: types.Int64})
	child := root.Child()
	if _, ok := child.LookupLocal("x"); ok {
		t.Fatal("LookupLocal must not see bindings from outer scopes")
	}
}

func TestChildLoopLinksOuterLoopContext(t *testing.T) {
	root := env.New()
	outer := root.ChildLoop("outer", "skip_outer", "stop_outer", nil)
	inner := outer.ChildLoop("inner", "skip_inner", "stop_inner", nil)
	// The inner loop's context links back to the outer one, and each
	// level's scope still resolves names defined in an enclosing loop.
	if inner.Loop() == nil || inner.Loop().Outer != outer.Loop() {
		t.Fatal("inner loop context should link to the outer loop context")
	}
	if inner.FindLoop("outer") != outer.Loop() {
		t.Fatal("FindLoop should reach the outer loop by name")
	}
	outer.Define("i", &env.Binding{Type: types.Int64})
	if _, ok := inner.Lookup("i"); !ok {
		t.Fatal("inner loop scope should see the outer loop's binding")
	}
}

func TestChildNamespaceExtendsPath(t *testing.T) {
	root := env.New()
	ns := root.ChildNamespace("Shapes")
	inner := ns.ChildNamespace("Circle")
	if got := inner.Namespace(); len(got) != 2 || got[0] != "Shapes" || got[1] != "Circle" {
		t.Fatalf("nested namespace path = %v, want [Shapes Circle]", got)
	}
	inner.Define("area", &env.Binding{Type: types.Num64})
	if _, ok := root.Lookup("area"); ok {
		t.Fatal("namespace children must not leak bindings to the root")
	}
}
