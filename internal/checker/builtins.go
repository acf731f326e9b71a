package checker

import (
	"github.com/tomo-lang/tomo/internal/env"
	"github.com/tomo-lang/tomo/internal/types"
)

// registerBuiltins seeds the root scope with the handful of free functions
// every program can call without a `use` (spec §1: the runtime library
// beyond this is "an opaque set of named symbols" out of this module's
// scope, so only the always-available diagnostics/print surface is bound
// here).
func (c *Checker) registerBuiltins(root *env.Env) {
	say := types.Function{Args: []types.Type{types.Text{}}, Ret: types.Void}
	root.Define("say", &Binding{Type: say, Code: "tomo_say", IsConstant: true})

	exitFn := types.Function{Args: []types.Type{types.Int32}, Ret: types.Abort}
	root.Define("exit", &Binding{Type: exitFn, Code: "tomo_exit", IsConstant: true})

	failFn := types.Function{Args: []types.Type{types.Text{}}, Ret: types.Abort}
	root.Define("fail", &Binding{Type: failFn, Code: "tomo_fail", IsConstant: true})
}

// builtinMethod resolves the fixed set of methods the checker knows about
// for built-in container/text types (spec §4.2's "built-in methods" list is
// open-ended; this covers the operations the emitter (§4.3) knows how to
// lower, the rest is left to `extend`).
func builtinMethod(self types.Type, name string) (types.Function, bool) {
	switch t := self.(type) {
	case types.List:
		return listMethod(t, name)
	case types.Set:
		return setMethod(t, name)
	case types.Table:
		return tableMethod(t, name)
	case types.Text:
		return textMethod(name)
	case types.Optional:
		return optionalMethod(t, name)
	case types.Int:
		return intMethod(t, name)
	case interface{ Kind() types.Kind }:
		if t.Kind() == types.KBigInt {
			return intMethod(self, name)
		}
	}
	return types.Function{}, false
}

// intMethod covers Int/BigInt's method surface. `to` is the range former
// behind spec §4.3's counted-loop strategy: `1.to(5)` produces a
// types.Range rather than a List, so the emitter can special-case the loop
// instead of materializing every element.
func intMethod(self types.Type, name string) (types.Function, bool) {
	switch name {
	case "to":
		return types.Function{Args: []types.Type{self}, Ret: types.Range{Item: self}}, true
	}
	return types.Function{}, false
}

func listMethod(t types.List, name string) (types.Function, bool) {
	switch name {
	case "has":
		return types.Function{Args: []types.Type{t.Item}, Ret: types.Bool}, true
	case "insert":
		return types.Function{Args: []types.Type{t.Item}, Ret: types.Void}, true
	case "remove":
		return types.Function{Args: []types.Type{types.Int64}, Ret: types.Void}, true
	case "reversed":
		return types.Function{Ret: t}, true
	case "sorted":
		return types.Function{Ret: t}, true
	case "slice":
		return types.Function{Args: []types.Type{types.Int64, types.Int64}, Ret: t}, true
	}
	return types.Function{}, false
}

func setMethod(t types.Set, name string) (types.Function, bool) {
	switch name {
	case "has":
		return types.Function{Args: []types.Type{t.Item}, Ret: types.Bool}, true
	case "add":
		return types.Function{Args: []types.Type{t.Item}, Ret: types.Void}, true
	case "remove":
		return types.Function{Args: []types.Type{t.Item}, Ret: types.Void}, true
	case "with":
		return types.Function{Args: []types.Type{t}, Ret: t}, true
	case "without":
		return types.Function{Args: []types.Type{t}, Ret: t}, true
	}
	return types.Function{}, false
}

func tableMethod(t types.Table, name string) (types.Function, bool) {
	switch name {
	case "has":
		return types.Function{Args: []types.Type{t.Key}, Ret: types.Bool}, true
	case "set":
		return types.Function{Args: []types.Type{t.Key, t.Value}, Ret: types.Void}, true
	case "get":
		return types.Function{Args: []types.Type{t.Key}, Ret: types.Optional{Inner: t.Value}}, true
	case "remove":
		return types.Function{Args: []types.Type{t.Key}, Ret: types.Void}, true
	}
	return types.Function{}, false
}

func textMethod(name string) (types.Function, bool) {
	self := types.Text{}
	switch name {
	case "upper", "lower", "trimmed", "reversed":
		return types.Function{Ret: self}, true
	case "split":
		return types.Function{Args: []types.Type{self}, Ret: types.List{Item: self}}, true
	case "has":
		return types.Function{Args: []types.Type{self}, Ret: types.Bool}, true
	case "replace":
		return types.Function{Args: []types.Type{self, self}, Ret: self}, true
	}
	return types.Function{}, false
}

func optionalMethod(t types.Optional, name string) (types.Function, bool) {
	switch name {
	case "or_else":
		return types.Function{Args: []types.Type{t.Inner}, Ret: t.Inner}, true
	}
	return types.Function{}, false
}
