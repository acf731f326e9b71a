// Package types implements Tomo's semantic type representation (type_t,
// spec §3.4): a tagged sum of about twenty variants, plus the structural
// operations (size/align, equality, orderability, promotion) the checker
// and emitter both depend on. It mirrors the organization of the teacher's
// internal/typesystem package (one Type interface, one struct per variant,
// split across files by concern) but the variant set and semantics follow
// Tomo's concrete, non-generic type system rather than funxy's
// Hindley-Milner one.
package types

import "fmt"

// Type is the interface every semantic type variant implements.
type Type interface {
	String() string
	// Equal reports structural equality (spec §4.2: "modulo name-irrelevant
	// struct shape" — two struct types are equal if their field lists match,
	// regardless of the nominal Name, which is used for mangling only).
	Equal(Type) bool
	isType()
}

// Pointer qualifiers (spec §3.4 Pointer row: "three-axis qualifiers" is the
// isStack/isReadonly pair plus the pointed-to type itself).

// Kind enumerates the ~20 type_t tags for switch dispatch and diagnostics.
type Kind int

const (
	KUnknown Kind = iota
	KAbort
	KVoid
	KMemory
	KBool
	KByte
	KBigInt
	KInt
	KNum
	KCString
	KText
	KMoment
	KList
	KTable
	KSet
	KFunction
	KClosure
	KPointer
	KStruct
	KEnum
	KOptional
	KTypeInfo
	KModule
	KMutexed
)

func (k Kind) String() string {
	names := [...]string{
		"Unknown", "Abort", "Void", "Memory", "Bool", "Byte", "BigInt", "Int",
		"Num", "CString", "Text", "Moment", "List", "Table", "Set", "Function",
		"Closure", "Pointer", "Struct", "Enum", "Optional", "TypeInfo", "Module", "Mutexed",
	}
	if int(k) < len(names) {
		return names[k]
	}
	return "?"
}

// ---- Leaf / parameterless types -------------------------------------------

type simple struct{ kind Kind }

func (s simple) isType() {}
func (s simple) String() string {
	return s.kind.String()
}
func (s simple) Equal(o Type) bool {
	os, ok := o.(simple)
	return ok && os.kind == s.kind
}
func (s simple) Kind() Kind { return s.kind }

var (
	Unknown Type = simple{KUnknown}
	Abort   Type = simple{KAbort} // never-returns
	Void    Type = simple{KVoid}
	Memory  Type = simple{KMemory} // raw bytes
	Bool    Type = simple{KBool}
	Byte    Type = simple{KByte}
	BigInt  Type = simple{KBigInt}
	CString Type = simple{KCString}
	Moment  Type = simple{KMoment}
)

// ---- Int / Num --------------------------------------------------------

// Int is a fixed-width signed integer of bits in {8,16,32,64}.
type Int struct{ Bits int }

func (t Int) isType()        {}
func (t Int) String() string { return fmt.Sprintf("Int%d", t.Bits) }
func (t Int) Equal(o Type) bool {
	ot, ok := o.(Int)
	return ok && ot.Bits == t.Bits
}

// Num is an IEEE-754 float of bits in {32,64}.
type Num struct{ Bits int }

func (t Num) isType() {}
func (t Num) String() string {
	if t.Bits == 32 {
		return "Num32"
	}
	return "Num"
}
func (t Num) Equal(o Type) bool {
	ot, ok := o.(Num)
	return ok && ot.Bits == t.Bits
}

var (
	Int64  = Int{64}
	Int32  = Int{32}
	Int16  = Int{16}
	Int8   = Int{8}
	Num64  = Num{64}
	Num32t = Num{32}
)

// ---- Text -----------------------------------------------------------------

// Text is a string value, optionally tagged with a user-defined sublanguage
// (spec §3.4 Text row: lang names e.g. Path, Pattern) and the environment
// that sublanguage's methods live in.
type Text struct {
	Lang string // "" = default/untagged text
	Env  any    // *env.Env of the lang's namespace; any to avoid an import cycle
}

func (t Text) isType() {}
func (t Text) String() string {
	if t.Lang == "" {
		return "Text"
	}
	return t.Lang
}
func (t Text) Equal(o Type) bool {
	ot, ok := o.(Text)
	return ok && ot.Lang == t.Lang
}

// ---- Containers -------------------------------------------------------------

type List struct{ Item Type }

func (t List) isType()        {}
func (t List) String() string { return fmt.Sprintf("[%s]", t.Item) }
func (t List) Equal(o Type) bool {
	ot, ok := o.(List)
	return ok && t.Item.Equal(ot.Item)
}

type Set struct{ Item Type }

func (t Set) isType()        {}
func (t Set) String() string { return fmt.Sprintf("{%s}", t.Item) }
func (t Set) Equal(o Type) bool {
	ot, ok := o.(Set)
	return ok && t.Item.Equal(ot.Item)
}

// Range is Int.to(...)'s result: a counted integer sequence with no backing
// List_t of its own, so the emitter can lower a `for` over one straight to a
// C counted loop instead of materializing a list (spec §4.3 "counted
// integer loop (specialized for Int.to(...))").
type Range struct{ Item Type }

func (t Range) isType()        {}
func (t Range) String() string { return fmt.Sprintf("Range(%s)", t.Item) }
func (t Range) Equal(o Type) bool {
	ot, ok := o.(Range)
	return ok && t.Item.Equal(ot.Item)
}

type Table struct {
	Key, Value   Type
	DefaultValue Type // nil if the table has no default
}

func (t Table) isType() {}
func (t Table) String() string {
	return fmt.Sprintf("{%s: %s}", t.Key, t.Value)
}
func (t Table) Equal(o Type) bool {
	ot, ok := o.(Table)
	if !ok || !t.Key.Equal(ot.Key) || !t.Value.Equal(ot.Value) {
		return false
	}
	if (t.DefaultValue == nil) != (ot.DefaultValue == nil) {
		return false
	}
	if t.DefaultValue != nil && !t.DefaultValue.Equal(ot.DefaultValue) {
		return false
	}
	return true
}

// ---- Function / Closure ----------------------------------------------------

type Function struct {
	Args []Type
	Ret  Type
}

func (t Function) isType() {}
func (t Function) String() string {
	s := "func("
	for i, a := range t.Args {
		if i > 0 {
			s += ", "
		}
		s += a.String()
	}
	return s + ") -> " + t.Ret.String()
}
func (t Function) Equal(o Type) bool {
	ot, ok := o.(Function)
	if !ok || len(t.Args) != len(ot.Args) || !t.Ret.Equal(ot.Ret) {
		return false
	}
	for i := range t.Args {
		if !t.Args[i].Equal(ot.Args[i]) {
			return false
		}
	}
	return true
}

// Closure wraps a Function type with a captured-environment pointer at
// runtime (spec §3.2 Closure, §4.3 lambda lowering).
type Closure struct{ Fn Function }

func (t Closure) isType()        {}
func (t Closure) String() string { return "Closure<" + t.Fn.String() + ">" }
func (t Closure) Equal(o Type) bool {
	ot, ok := o.(Closure)
	return ok && t.Fn.Equal(ot.Fn)
}

// ---- Pointer ----------------------------------------------------------------

// Pointer carries the three-axis qualifiers from spec §3.4: the pointed-to
// type, whether it is a stack reference (&T) vs heap (@T), and whether it
// is read-only.
type Pointer struct {
	Pointed    Type
	IsStack    bool
	IsReadonly bool
}

func (t Pointer) isType() {}
func (t Pointer) String() string {
	sigil := "@"
	if t.IsStack {
		sigil = "&"
	}
	if t.IsReadonly {
		return sigil + "(readonly " + t.Pointed.String() + ")"
	}
	return sigil + t.Pointed.String()
}
func (t Pointer) Equal(o Type) bool {
	ot, ok := o.(Pointer)
	return ok && t.IsStack == ot.IsStack && t.IsReadonly == ot.IsReadonly && t.Pointed.Equal(ot.Pointed)
}

// ---- Struct / Enum ----------------------------------------------------------

// Field is one struct field or one enum tag's inner field.
type Field struct {
	Name string
	Type Type
}

// Struct is a nominal record type. Env is the namespace holding its
// methods and nested definitions (any to avoid an import cycle on env).
type Struct struct {
	Name     string
	Fields   []Field
	Env      any
	IsOpaque bool
	IsPacked bool
	IsSecret bool
}

func (t *Struct) isType()        {}
func (t *Struct) String() string { return t.Name }
func (t *Struct) Equal(o Type) bool {
	ot, ok := o.(*Struct)
	if !ok || len(t.Fields) != len(ot.Fields) {
		return false
	}
	for i := range t.Fields {
		if t.Fields[i].Name != ot.Fields[i].Name || !t.Fields[i].Type.Equal(ot.Fields[i].Type) {
			return false
		}
	}
	return true
}

// EnumTag is one variant of an Enum: a name and an optional inner struct
// type (nil for a unit tag, e.g. `none`/`Done`).
type EnumTag struct {
	Name  string
	Inner *Struct // nil => unit tag
}

// Enum is a tagged union. Tag 0 is always reserved for `none` (spec §3.5).
type Enum struct {
	Name string
	Tags []EnumTag
	Env  any
}

func (t *Enum) isType()        {}
func (t *Enum) String() string { return t.Name }
func (t *Enum) Equal(o Type) bool {
	ot, ok := o.(*Enum)
	if !ok || len(t.Tags) != len(ot.Tags) {
		return false
	}
	for i := range t.Tags {
		if t.Tags[i].Name != ot.Tags[i].Name {
			return false
		}
		if (t.Tags[i].Inner == nil) != (ot.Tags[i].Inner == nil) {
			return false
		}
		if t.Tags[i].Inner != nil && !t.Tags[i].Inner.Equal(ot.Tags[i].Inner) {
			return false
		}
	}
	return true
}

// TagIndex returns the 1-based index of name within the enum (0 reserved
// for none), or -1 if no such tag exists.
func (t *Enum) TagIndex(name string) int {
	for i, tag := range t.Tags {
		if tag.Name == name {
			return i + 1
		}
	}
	return -1
}

// ---- Optional ---------------------------------------------------------------

type Optional struct{ Inner Type }

func (t Optional) isType()        {}
func (t Optional) String() string { return t.Inner.String() + "?" }
func (t Optional) Equal(o Type) bool {
	ot, ok := o.(Optional)
	return ok && t.Inner.Equal(ot.Inner)
}

// ---- TypeInfo / Module / Mutexed --------------------------------------------

// TypeInfo is the metatype of a named user type, used for namespaced
// lookups like `Struct.method` or `Enum.Tag`.
type TypeInfo struct {
	Name string
	Of   Type
	Env  any
}

func (t TypeInfo) isType()        {}
func (t TypeInfo) String() string { return t.Name + ".type" }
func (t TypeInfo) Equal(o Type) bool {
	ot, ok := o.(TypeInfo)
	return ok && t.Name == ot.Name
}

// Module is a used module's namespace.
type Module struct{ Name string }

func (t Module) isType()        {}
func (t Module) String() string { return "Module<" + t.Name + ">" }
func (t Module) Equal(o Type) bool {
	ot, ok := o.(Module)
	return ok && t.Name == ot.Name
}

// Mutexed is a mutex-guarded value (spec §9: implemented as a real variant,
// inference deliberately narrow — see SPEC_FULL.md item D.9).
type Mutexed struct{ Inner Type }

func (t Mutexed) isType()        {}
func (t Mutexed) String() string { return "Mutexed<" + t.Inner.String() + ">" }
func (t Mutexed) Equal(o Type) bool {
	ot, ok := o.(Mutexed)
	return ok && t.Inner.Equal(ot.Inner)
}
