package emitter

import (
	"strconv"
	"strings"

	"github.com/tomo-lang/tomo/internal/types"
)

// CType lowers a semantic type to its C spelling (spec §4.3 "Types map as
// follows"). Struct/Enum map to a mangled `N$$struct`/`E$$type` name built
// from the type's own name only; the namespace path is not part of it, so
// two same-named types in different namespaces get the same C name.
func CType(t types.Type) string {
	switch tt := t.(type) {
	case nil:
		return "void"
	case types.Int:
		return "Int" + strconv.Itoa(tt.Bits) + "_t"
	case types.Num:
		if tt.Bits == 32 {
			return "Num32_t"
		}
		return "Num_t"
	case types.Text:
		if tt.Lang != "" {
			return mangleName(tt.Lang) + "_t"
		}
		return "Text_t"
	case types.List:
		return "List_t"
	case types.Set, types.Table:
		return "Table_t"
	case types.Function:
		return cFunctionPointerType(tt)
	case types.Closure:
		return "Closure_t"
	case types.Pointer:
		depth := CType(tt.Pointed)
		if tt.IsReadonly {
			return "const " + depth + "*"
		}
		return depth + "*"
	case *types.Struct:
		return mangleName(tt.Name) + "$$struct"
	case *types.Enum:
		return mangleName(tt.Name) + "$$type"
	case types.Optional:
		return cOptionalType(tt)
	case types.TypeInfo:
		return "TypeInfo_t"
	case types.Module:
		return "void" // modules have no runtime representation of their own
	case types.Mutexed:
		return "Mutexed$" + mangleName(CType(tt.Inner)) + "_t"
	}
	switch t {
	case types.Bool:
		return "Bool_t"
	case types.Byte:
		return "Byte_t"
	case types.BigInt:
		return "Int_t"
	case types.CString:
		return "char*"
	case types.Moment:
		return "Moment_t"
	case types.Memory:
		return "void*"
	case types.Void:
		return "void"
	case types.Abort:
		return "void"
	}
	return "void*"
}

// cOptionalType spells spec §3.5's in-band-vs-flagged representation: types
// with a spare sentinel value reuse their own C type, everything else gets a
// synthesized `$opt` wrapper struct the declaration emitter defines once.
func cOptionalType(o types.Optional) string {
	if types.HasSentinelNone(o.Inner) {
		return CType(o.Inner)
	}
	return mangleName(CType(o.Inner)) + "$opt_t"
}

func cFunctionPointerType(fn types.Function) string {
	var b strings.Builder
	b.WriteString(CType(fn.Ret))
	b.WriteString(" (*)(")
	for i, a := range fn.Args {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(CType(a))
	}
	if len(fn.Args) == 0 {
		b.WriteString("void")
	}
	b.WriteString(")")
	return b.String()
}

// mangleName strips characters C identifiers can't carry (the emitter only
// ever feeds this Tomo identifiers and already-built C type strings, so this
// just rewrites the `*`, space, parenthesis and comma characters that nested
// CType calls produce; `$` is left as is).
func mangleName(s string) string {
	r := strings.NewReplacer("*", "ptr", " ", "_", "(", "", ")", "", ",", "_")
	return r.Replace(s)
}

// Mangle joins a namespace path and a bare name with `$`, spec §4.3's name
// mangling rule ("concatenates namespace segments with $").
func Mangle(namespace []string, name string) string {
	if len(namespace) == 0 {
		return name
	}
	return strings.Join(namespace, "$") + "$" + name
}
