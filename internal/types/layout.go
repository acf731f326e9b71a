package types

// Layout concerns: size(t), align(t), and the structural invariants from
// spec §3.4 and §8.1 ("size(T) is a multiple of align(T); align(T) in
// {1,2,4,8}; offsetof(field) % align(field) == 0"). Target C ABI matches a
// typical LP64 platform: pointers are 8 bytes, doubles are 8-byte aligned.

// Size returns the size in bytes of t's C representation.
func Size(t Type) int {
	switch tt := t.(type) {
	case simple:
		switch tt.kind {
		case KVoid, KAbort:
			return 0
		case KBool, KByte:
			return 1
		case KMemory, KBigInt, KCString:
			return 8
		case KMoment:
			return 8
		default:
			return 8
		}
	case Int:
		return tt.Bits / 8
	case Num:
		return tt.Bits / 8
	case Text:
		return 24 // {length, data, free} rope-ish header, matches CORD-backed Text_t
	case List:
		return 24 // {length, data, stride}
	case Set, Table:
		return 32 // Table_t: {length, bucket data, entry size, default}
	case Function:
		return 8 // bare function pointer
	case Closure:
		return 16 // {fn, userdata}
	case Pointer:
		return 8
	case *Struct:
		return structSize(tt)
	case *Enum:
		return enumSize(tt)
	case Optional:
		return optionalSize(tt)
	case TypeInfo, Module:
		return 8
	case Mutexed:
		return align8(Size(tt.Inner)) + 40 // pthread_mutex_t is typically 40 bytes
	}
	return 8
}

// Align returns the alignment in bytes of t's C representation; always one
// of {1,2,4,8} per spec §8.1.
func Align(t Type) int {
	switch tt := t.(type) {
	case simple:
		switch tt.kind {
		case KVoid, KAbort:
			return 1
		case KBool, KByte:
			return 1
		default:
			return 8
		}
	case Int:
		if tt.Bits/8 > 8 {
			return 8
		}
		return tt.Bits / 8
	case Num:
		return tt.Bits / 8
	case *Struct:
		return structAlign(tt)
	case *Enum:
		return enumAlign(tt)
	case Optional:
		return Align(tt.Inner)
	case Mutexed:
		return 8
	default:
		return 8
	}
}

func align8(n int) int { return roundUp(n, 8) }

func roundUp(n, align int) int {
	if align <= 1 {
		return n
	}
	return (n + align - 1) / align * align
}

// FieldOffsets computes each field's byte offset under standard C struct
// layout rules: fields are laid out in declaration order, each at the next
// offset satisfying its own alignment (trailing padding to the struct's
// own alignment is added by structSize). When IsPacked is set, consecutive
// Bool fields are bit-packed eight to a byte per spec §3.4's "bit-field
// Bool fields... occupy 1 bit" note, and such a field's offset is the byte
// that holds its bit.
func FieldOffsets(s *Struct) []int {
	offsets := make([]int, len(s.Fields))
	offset := 0
	bitOffset := 0 // used only when s.IsPacked and consecutive fields are Bool
	for i, f := range s.Fields {
		if s.IsPacked && isBool(f.Type) {
			offsets[i] = offset // byte containing this bit; caller shifts by bitOffset
			bitOffset++
			if bitOffset == 8 {
				bitOffset = 0
				offset++
			}
			continue
		}
		if bitOffset != 0 {
			offset++
			bitOffset = 0
		}
		a := Align(f.Type)
		offset = roundUp(offset, a)
		offsets[i] = offset
		offset += Size(f.Type)
	}
	return offsets
}

func isBool(t Type) bool {
	s, ok := t.(simple)
	return ok && s.kind == KBool
}

func structSize(s *Struct) int {
	if len(s.Fields) == 0 {
		return 0
	}
	offsets := FieldOffsets(s)
	last := offsets[len(offsets)-1]
	lastSize := Size(s.Fields[len(s.Fields)-1].Type)
	total := last + lastSize
	return roundUp(total, structAlign(s))
}

func structAlign(s *Struct) int {
	maxAlign := 1
	for _, f := range s.Fields {
		if a := Align(f.Type); a > maxAlign {
			maxAlign = a
		}
	}
	return maxAlign
}

// enumSize: a tag word (4 bytes, matching a C `enum`) plus the widest tag
// payload, padded to the union's alignment.
func enumSize(e *Enum) int {
	maxPayload, maxAlign := 0, 1
	for _, tag := range e.Tags {
		if tag.Inner == nil {
			continue
		}
		if s := structSize(tag.Inner); s > maxPayload {
			maxPayload = s
		}
		if a := structAlign(tag.Inner); a > maxAlign {
			maxAlign = a
		}
	}
	tagWord := roundUp(4, maxAlign)
	return roundUp(tagWord+maxPayload, maxAlign)
}

func enumAlign(e *Enum) int {
	maxAlign := 4 // tag word's own alignment
	for _, tag := range e.Tags {
		if tag.Inner == nil {
			continue
		}
		if a := structAlign(tag.Inner); a > maxAlign {
			maxAlign = a
		}
	}
	return maxAlign
}

// optionalSize implements spec §3.5: most base types steal a sentinel and
// need no extra storage; Int8/16/32/64/Byte/Struct append an isNone:1 flag
// (rounded to the type's own alignment); Enum/pointer-ish/container types
// fit none in-band already.
func optionalSize(o Optional) int {
	if HasSentinelNone(o.Inner) {
		return Size(o.Inner)
	}
	// extra flag byte, padded out to the inner type's alignment so the
	// struct stays a multiple of its own alignment (spec §8.1).
	return roundUp(Size(o.Inner)+1, Align(o.Inner))
}

// HasSentinelNone reports whether t's own representation has a spare value
// usable as `none` with no extra storage (spec §3.5 table).
func HasSentinelNone(t Type) bool {
	switch tt := t.(type) {
	case Pointer, Closure, Function:
		return true
	case simple:
		return tt.kind == KBigInt || tt.kind == KCString || tt.kind == KMoment
	case Num:
		return true // NaN sentinel
	case List, Set, Table, Text:
		return true // length field = -1
	case *Enum:
		return true // tag 0 reserved
	}
	return false
}

// IsPackedData reports whether t has no padding/alignment requirements
// beyond 1, allowing byte-wise equality and hashing (spec §3.4).
func IsPackedData(t Type) bool {
	switch tt := t.(type) {
	case simple:
		return tt.kind == KBool || tt.kind == KByte
	case Int:
		return true
	case Num:
		return true
	case *Struct:
		if tt.IsPacked {
			return true
		}
		for _, f := range tt.Fields {
			if !IsPackedData(f.Type) {
				return false
			}
		}
		return Align(tt) == 1
	default:
		return false
	}
}
