package types_test

import (
	"testing"

	"github.com/tomo-lang/tomo/internal/types"
)

func TestStructSizeIsMultipleOfAlign(t *testing.T) {
	cases := []*types.Struct{
		{Name: "Pair", Fields: []types.Field{{Name: "a", Type: types.Int8}, {Name: "b", Type: types.Int64}}},
		{Name: "Flags", Fields: []types.Field{{Name: "a", Type: types.Bool}, {Name: "b", Type: types.Int32}}},
		{Name: "Empty"},
	}
	for _, s := range cases {
		size, align := types.Size(s), types.Align(s)
		if align != 1 && align != 2 && align != 4 && align != 8 {
			t.Errorf("%s: align %d not in {1,2,4,8}", s.Name, align)
		}
		if size%align != 0 && size != 0 {
			t.Errorf("%s: size %d is not a multiple of align %d", s.Name, size, align)
		}
	}
}

func TestFieldOffsetsRespectAlignment(t *testing.T) {
	s := &types.Struct{Name: "Mixed", Fields: []types.Field{
		{Name: "a", Type: types.Int8},
		{Name: "b", Type: types.Int64},
		{Name: "c", Type: types.Bool},
	}}
	offsets := types.FieldOffsets(s)
	for i, f := range s.Fields {
		a := types.Align(f.Type)
		if offsets[i]%a != 0 {
			t.Errorf("field %s at offset %d not aligned to %d", f.Name, offsets[i], a)
		}
	}
}

func TestPromoteNumericWidening(t *testing.T) {
	ok, rw := types.Promote(types.Int8, types.Int64)
	if !ok || rw != types.RewriteWidenNumeric {
		t.Fatalf("expected Int8->Int64 widening promotion, got ok=%v rw=%v", ok, rw)
	}
	ok, _ = types.Promote(types.Int64, types.Int8)
	if ok {
		t.Fatalf("narrowing Int64->Int8 must not auto-promote")
	}
}

func TestPromoteToOptional(t *testing.T) {
	needed := types.Optional{Inner: types.Int64}
	ok, rw := types.Promote(types.Int64, needed)
	if !ok || rw != types.RewriteToOptional {
		t.Fatalf("expected T -> T? promotion, got ok=%v rw=%v", ok, rw)
	}
}

func TestPromoteOptionalTruthiness(t *testing.T) {
	actual := types.Optional{Inner: types.Int64}
	ok, rw := types.Promote(actual, types.Bool)
	if !ok || rw != types.RewriteTruthiness {
		t.Fatalf("expected Optional -> Bool truthiness promotion, got ok=%v rw=%v", ok, rw)
	}
}

func TestIsOrderable(t *testing.T) {
	if !types.IsOrderable(types.Int64) {
		t.Error("Int64 should be orderable")
	}
	if types.IsOrderable(types.Function{Args: nil, Ret: types.Void}) {
		t.Error("Function should not be orderable")
	}
	if !types.IsOrderable(types.List{Item: types.Int64}) {
		t.Error("List of orderable items should be orderable")
	}
}

func TestOptionalBijectionEncodings(t *testing.T) {
	cases := map[string]types.Type{
		"pointer": types.Pointer{Pointed: types.Int64},
		"num":     types.Num64,
		"bool":    types.Bool,
		"int":     types.Int32,
		"list":    types.List{Item: types.Byte},
	}
	for name, ty := range cases {
		enc := types.EncodingFor(ty)
		if enc.String() == "?" {
			t.Errorf("%s: no encoding resolved", name)
		}
	}
}
