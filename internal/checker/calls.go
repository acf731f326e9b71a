package checker

import (
	"github.com/tomo-lang/tomo/internal/ast"
	"github.com/tomo-lang/tomo/internal/diagnostics"
	"github.com/tomo-lang/tomo/internal/env"
	"github.com/tomo-lang/tomo/internal/types"
)

// checkFieldAccess implements spec §4.2's FieldAccess rules: struct fields,
// enum tag-test booleans, namespace/type-info lookups, and the handful of
// built-in container fields (.length, .keys, .values, .fallback).
func (c *Checker) checkFieldAccess(e *env.Env, n *ast.FieldAccess) types.Type {
	objType := c.getType(e, n.Obj)

	switch t := objType.(type) {
	case *types.Struct:
		for _, f := range t.Fields {
			if f.Name == n.Name {
				return c.record(n, f.Type)
			}
		}
		if ns, ok := t.Env.(*env.Env); ok {
			if b, ok := ns.LookupLocal(n.Name); ok {
				return c.record(n, b.Type)
			}
		}
		c.sink.Fail(diagnostics.ErrTNoField, n.Span(), "%s has no field %q", t.Name, n.Name)
	case *types.Enum:
		for _, tag := range t.Tags {
			if tag.Name == n.Name {
				return c.record(n, types.Bool)
			}
		}
		if ns, ok := t.Env.(*env.Env); ok {
			if b, ok := ns.LookupLocal(n.Name); ok {
				return c.record(n, b.Type)
			}
		}
		c.sink.Fail(diagnostics.ErrTNoField, n.Span(), "%s has no tag or field %q", t.Name, n.Name)
	case types.List:
		switch n.Name {
		case "length":
			return c.record(n, types.Int64)
		}
	case types.Set:
		switch n.Name {
		case "length":
			return c.record(n, types.Int64)
		case "items":
			return c.record(n, types.List{Item: t.Item})
		}
	case types.Table:
		switch n.Name {
		case "length":
			return c.record(n, types.Int64)
		case "keys":
			return c.record(n, types.List{Item: t.Key})
		case "values":
			return c.record(n, types.List{Item: t.Value})
		case "fallback":
			return c.record(n, types.Optional{Inner: t})
		}
	case types.Text:
		switch n.Name {
		case "length":
			return c.record(n, types.Int64)
		}
	case types.Module:
		if imp, ok := e.LookupImport(t.Name); ok {
			if b, ok := imp.LookupLocal(n.Name); ok {
				return c.record(n, b.Type)
			}
		}
	case types.TypeInfo:
		if ns, ok := t.Env.(*env.Env); ok {
			if b, ok := ns.LookupLocal(n.Name); ok {
				return c.record(n, b.Type)
			}
		}
		if inner, ok := t.Of.(*types.Enum); ok {
			for _, tag := range inner.Tags {
				if tag.Name == n.Name {
					if tag.Inner == nil {
						return c.record(n, inner)
					}
					args := make([]types.Type, len(tag.Inner.Fields))
					for i, f := range tag.Inner.Fields {
						args[i] = f.Type
					}
					return c.record(n, types.Function{Args: args, Ret: inner})
				}
			}
		}
	}
	c.sink.Fail(diagnostics.ErrTNoField, n.Span(), "%s has no field %q", objType, n.Name)
	return c.record(n, types.Unknown)
}

// checkIndex implements spec §4.2's Index rules.
func (c *Checker) checkIndex(e *env.Env, n *ast.Index) types.Type {
	objType := c.getType(e, n.Obj)
	if n.Index == nil {
		if p, ok := objType.(types.Pointer); ok {
			return c.record(n, p.Pointed)
		}
		c.sink.Fail(diagnostics.ErrTMismatch, n.Span(), "%s cannot be dereferenced", objType)
		return c.record(n, types.Unknown)
	}
	idxType := c.getType(e, n.Index)
	switch t := objType.(type) {
	case types.List:
		if !isIntegerLike(idxType) {
			c.sink.Fail(diagnostics.ErrTMismatch, n.Index.Span(), "list index must be an integer, got %s", idxType)
		}
		return c.record(n, t.Item)
	case types.Table:
		if t.DefaultValue != nil {
			return c.record(n, t.Value)
		}
		return c.record(n, types.Optional{Inner: t.Value})
	}
	c.sink.Fail(diagnostics.ErrTMismatch, n.Span(), "%s cannot be indexed", objType)
	return c.record(n, types.Unknown)
}

// checkCall implements spec §4.2's FunctionCall: resolve the callee's
// function type then match arguments positionally/by-name, per the
// compileArguments contract the emitter also follows.
func (c *Checker) checkCall(e *env.Env, n *ast.FunctionCall) types.Type {
	fnType := c.getType(e, n.Fn)
	fn, ok := asFunction(fnType)
	if !ok {
		if named, isEnumCtor := c.tryEnumConstructor(e, n.Fn, n.Args); isEnumCtor {
			return c.record(n, named)
		}
		c.sink.Fail(diagnostics.ErrTMismatch, n.Span(), "%s is not callable", fnType)
		return c.record(n, types.Unknown)
	}
	c.checkArgs(n.Span(), fn.Args, n.Args, e)
	return c.record(n, fn.Ret)
}

func asFunction(t types.Type) (types.Function, bool) {
	switch tt := t.(type) {
	case types.Function:
		return tt, true
	case types.Closure:
		return tt.Fn, true
	}
	return types.Function{}, false
}

// tryEnumConstructor covers promote.go's documented gap: "a single-field
// user-defined enum constructor exists accepting actual" needs the
// environment, which Promote does not have.
func (c *Checker) tryEnumConstructor(e *env.Env, fnExpr ast.Expr, args []ast.Arg) (types.Type, bool) {
	fa, ok := fnExpr.(*ast.FieldAccess)
	if !ok {
		return nil, false
	}
	objType := c.getType(e, fa.Obj)
	ti, ok := objType.(types.TypeInfo)
	if !ok {
		return nil, false
	}
	enum, ok := ti.Of.(*types.Enum)
	if !ok {
		return nil, false
	}
	for _, tag := range enum.Tags {
		if tag.Name == fa.Name {
			if tag.Inner != nil {
				argExprs := make([]ast.Arg, len(args))
				copy(argExprs, args)
				fnArgs := make([]types.Type, len(tag.Inner.Fields))
				for i, f := range tag.Inner.Fields {
					fnArgs[i] = f.Type
				}
				c.checkArgs(fa.Span(), fnArgs, args, e)
			}
			return enum, true
		}
	}
	return nil, false
}

func (c *Checker) checkArgs(sp ast.Node, declared []types.Type, args []ast.Arg, e *env.Env) {
	if len(args) > len(declared) {
		c.sink.Fail(diagnostics.ErrTArity, sp.Span(), "too many arguments: got %d, expected at most %d", len(args), len(declared))
	}
	for i, a := range args {
		at := c.getType(e, a.Value)
		if i >= len(declared) {
			continue
		}
		need := declared[i]
		if need == types.Unknown {
			continue
		}
		if !at.Equal(need) {
			if ok, _ := types.Promote(at, need); !ok {
				c.sink.Fail(diagnostics.ErrTMismatch, a.Value.Span(), "argument %d: cannot use %s as %s", i+1, at, need)
			}
		}
	}
}

// checkMethodCall implements spec §4.2's MethodCall: look up Name in Self's
// type namespace (struct/enum method) or fall back to a built-in method
// table for List/Set/Table/Text (spec GLOSSARY built-in methods).
func (c *Checker) checkMethodCall(e *env.Env, n *ast.MethodCall) types.Type {
	selfType := c.getType(e, n.Self)
	if fn, ok := c.lookupMethod(selfType, n.Name); ok {
		c.checkArgs(n.Span(), fn.Args, n.Args, e)
		return c.record(n, fn.Ret)
	}
	if fn, ok := builtinMethod(selfType, n.Name); ok {
		c.checkArgs(n.Span(), fn.Args, n.Args, e)
		return c.record(n, fn.Ret)
	}
	c.sink.Fail(diagnostics.ErrTNoField, n.Span(), "%s has no method %q", selfType, n.Name)
	return c.record(n, types.Unknown)
}

func (c *Checker) lookupMethod(selfType types.Type, name string) (types.Function, bool) {
	var ns *env.Env
	switch t := selfType.(type) {
	case *types.Struct:
		ns, _ = t.Env.(*env.Env)
	case *types.Enum:
		ns, _ = t.Env.(*env.Env)
	case types.Pointer:
		return c.lookupMethod(t.Pointed, name)
	}
	if ns == nil {
		return types.Function{}, false
	}
	b, ok := ns.LookupLocal(name)
	if !ok {
		return types.Function{}, false
	}
	fn, ok := asFunction(b.Type)
	return fn, ok
}
