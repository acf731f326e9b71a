package emitter

import (
	"testing"

	"github.com/tomo-lang/tomo/internal/types"
)

func TestCTypeScalars(t *testing.T) {
	cases := []struct {
		in   types.Type
		want string
	}{
		{types.BigInt, "Int_t"},
		{types.Int64, "Int64_t"},
		{types.Num64, "Num_t"},
		{types.Num32t, "Num32_t"},
		{types.Bool, "Bool_t"},
		{types.Text{}, "Text_t"},
		{types.Void, "void"},
	}
	for _, c := range cases {
		if got := CType(c.in); got != c.want {
			t.Errorf("CType(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestCTypeStructAndEnumAreMangled(t *testing.T) {
	s := &types.Struct{Name: "Point"}
	if got, want := CType(s), "Point$$struct"; got != want {
		t.Errorf("CType(struct) = %q, want %q", got, want)
	}
	e := &types.Enum{Name: "Shape"}
	if got, want := CType(e), "Shape$$type"; got != want {
		t.Errorf("CType(enum) = %q, want %q", got, want)
	}
}

func TestCTypeOptionalSentinelVsWrapper(t *testing.T) {
	// Pointer has a spare null sentinel, so its optional reuses its own type.
	ptrOpt := types.Optional{Inner: types.Pointer{Pointed: types.Int64}}
	if got := CType(ptrOpt); got == "" {
		t.Fatal("expected a non-empty C type for Optional(Pointer)")
	}
	if types.HasSentinelNone(types.Pointer{Pointed: types.Int64}) {
		if got := CType(ptrOpt); got != CType(types.Pointer{Pointed: types.Int64}) {
			t.Errorf("sentinel-backed optional should reuse its inner C type, got %q", got)
		}
	}
}

func TestMangleJoinsNamespaceWithDollar(t *testing.T) {
	if got, want := Mangle([]string{"Shapes", "Circle"}, "area"), "Shapes$Circle$area"; got != want {
		t.Errorf("Mangle = %q, want %q", got, want)
	}
	if got, want := Mangle(nil, "area"), "area"; got != want {
		t.Errorf("Mangle with no namespace = %q, want %q", got, want)
	}
}
