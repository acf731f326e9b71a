package types

// Promote implements spec §4.2's promote(actual, needed) predicate. It
// returns (ok, rewrite) where rewrite names the coercion the emitter must
// wrap the expression in (spec: "the checker returns a promotion flag
// consumed by the emitter"); rewrite is "" when actual already equals
// needed and no wrapping is required.
type Rewrite string

const (
	RewriteNone         Rewrite = ""
	RewriteWidenNumeric Rewrite = "widen"
	RewriteToOptional   Rewrite = "to_optional"
	RewriteTruthiness   Rewrite = "truthiness"
	RewriteFnToClosure  Rewrite = "fn_to_closure"
	RewriteDeref        Rewrite = "deref"
	RewriteTextToCStr   Rewrite = "text_to_cstring"
	RewriteSetToList    Rewrite = "set_to_list"
	RewriteEnumWrap     Rewrite = "enum_single_field_ctor"
)

// Promote mirrors the ordered rule list in spec §4.2 exactly; order matters
// since some rules are special cases of others (e.g. Optional(Bool)-as-Bool
// must be checked before generic Optional wrapping).
func Promote(actual, needed Type) (bool, Rewrite) {
	if actual == nil || needed == nil {
		return false, RewriteNone
	}
	if actual.Equal(needed) {
		return true, RewriteNone
	}
	if isNumeric(actual) && isNumeric(needed) && numericPrecision(needed) > numericPrecision(actual) && envelopeFits(actual, needed) {
		return true, RewriteWidenNumeric
	}
	if opt, ok := needed.(Optional); ok && actual.Equal(opt.Inner) {
		return true, RewriteToOptional
	}
	if _, ok := actual.(Optional); ok {
		if b, ok := needed.(simple); ok && b.kind == KBool {
			return true, RewriteTruthiness
		}
	}
	if fn, ok := actual.(Function); ok {
		if cl, ok := needed.(Closure); ok && fn.Equal(cl.Fn) {
			return true, RewriteFnToClosure
		}
	}
	if p, ok := actual.(Pointer); ok && p.Pointed.Equal(needed) {
		return true, RewriteDeref
	}
	if t, ok := actual.(Text); ok && t.Lang == "" {
		if _, ok := needed.(simple); ok && needed.(simple).kind == KCString {
			return true, RewriteTextToCStr
		}
	}
	if s, ok := actual.(Set); ok {
		if l, ok := needed.(List); ok && s.Item.Equal(l.Item) {
			return true, RewriteSetToList
		}
	}
	// Single-field user-defined enum constructor: handled by the checker,
	// which has access to the environment's constructor table; Promote
	// itself cannot see enum constructors (no env here), so it reports no
	// match for this case.
	return false, RewriteNone
}

func isNumeric(t Type) bool {
	switch t.(type) {
	case Int, Num:
		return true
	}
	if s, ok := t.(simple); ok {
		return s.kind == KBigInt || s.kind == KByte
	}
	return false
}

// numericPrecision orders numeric types by the envelope they can hold,
// loosely: Byte < Int8 < Int16 < Int32 < Int64 < BigInt < Num32 < Num.
func numericPrecision(t Type) int {
	switch tt := t.(type) {
	case simple:
		if tt.kind == KByte {
			return 1
		}
		if tt.kind == KBigInt {
			return 6
		}
	case Int:
		switch tt.Bits {
		case 8:
			return 2
		case 16:
			return 3
		case 32:
			return 4
		case 64:
			return 5
		}
	case Num:
		if tt.Bits == 32 {
			return 7
		}
		return 8
	}
	return 0
}

// envelopeFits is conservative: integer types always fit into a wider
// integer type or BigInt; BigInt does not automatically fit into a fixed
// Num (precision loss), so only Int-family -> BigInt/Num and Num32 -> Num
// are allowed without an explicit conversion.
func envelopeFits(actual, needed Type) bool {
	if _, ok := actual.(simple); ok {
		if needed.Equal(BigInt) {
			return true
		}
	}
	if ai, ok := actual.(Int); ok {
		if ni, ok := needed.(Int); ok {
			return ni.Bits > ai.Bits
		}
		if _, ok := needed.(Num); ok {
			return true
		}
		return needed.Equal(BigInt)
	}
	if an, ok := actual.(Num); ok {
		if nn, ok := needed.(Num); ok {
			return nn.Bits > an.Bits
		}
	}
	return false
}

// IsOrderable reports whether t supports <, <=, >, >=, <> (spec §4.2
// Comparisons). All packed-data scalars, Text, and any container/struct
// whose elements are themselves orderable qualify; Function, Closure, and
// Table are not ordered.
func IsOrderable(t Type) bool {
	switch tt := t.(type) {
	case simple:
		return tt.kind == KBool || tt.kind == KByte || tt.kind == KBigInt || tt.kind == KMoment
	case Int, Num, Text:
		return true
	case List:
		return IsOrderable(tt.Item)
	case Set:
		return IsOrderable(tt.Item)
	case Pointer:
		return true // pointer identity ordering
	case *Struct:
		for _, f := range tt.Fields {
			if !IsOrderable(f.Type) {
				return false
			}
		}
		return true
	case *Enum:
		for _, tag := range tt.Tags {
			if tag.Inner != nil && !IsOrderable(tag.Inner) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
