package checker

import (
	"github.com/tomo-lang/tomo/internal/ast"
	"github.com/tomo-lang/tomo/internal/diagnostics"
	"github.com/tomo-lang/tomo/internal/env"
	"github.com/tomo-lang/tomo/internal/types"
)

// checkBlock binds each statement into e and returns the type of the last
// statement, Void for an empty block (spec §4.2 "Block").
func (c *Checker) checkBlock(e *env.Env, b *ast.Block) types.Type {
	var last types.Type = types.Void
	for _, s := range b.Statements {
		last = c.checkStmt(e, s)
	}
	return c.record(b, last)
}

// checkStmt dispatches a Stmt to getType for the Expr-shaped forms, and
// handles the definition/control-flow statements that are not expressions.
func (c *Checker) checkStmt(e *env.Env, s ast.Stmt) types.Type {
	switch d := s.(type) {
	case *ast.Use:
		return c.checkUse(e, d)
	case ast.Expr:
		return c.getType(e, d)
	}
	c.sink.Fail(diagnostics.ErrSNotImplemented, s.Span(), "checker: unsupported statement %T", s)
	return types.Unknown
}

func (c *Checker) checkUse(e *env.Env, d *ast.Use) types.Type {
	name := d.Path
	if d.Var != nil {
		name = d.Var.Name
	}
	switch d.Kind {
	case ast.UseLocalFile, ast.UseModule:
		if c.Loader != nil {
			if m, err := c.Loader.Load(c.Loader.LibRoot, d.Path); err == nil {
				child := c.CheckModule(m)
				e.Import(d.Path, child)
				e.Define(name, &Binding{Type: types.Module{Name: name}, Code: name, IsConstant: true, Def: d})
			}
		}
	default:
		// C header/source/linker-flag uses only affect the emitter's build
		// recipe (spec §6.3); the checker has no symbols to bind for them.
	}
	return c.record(d, types.Void)
}

func (c *Checker) checkIf(e *env.Env, n *ast.If) types.Type {
	thenEnv := e.Child()
	if dec, ok := n.Cond.(*ast.Declare); ok {
		c.checkStmt(thenEnv, dec)
		// Narrow an Optional(T) condition variable to T in the then-branch
		// (spec §3.2 "If... narrows... in the then-branch").
		if b, ok := thenEnv.Lookup(dec.Var.Name); ok {
			if opt, ok := b.Type.(types.Optional); ok {
				thenEnv.Define(dec.Var.Name, &Binding{Type: opt.Inner, Code: b.Code, Def: dec})
			}
		}
	} else {
		c.getType(e, n.Cond)
	}
	thenType := c.checkBlock(thenEnv, n.Body)
	elseType := types.Type(types.Void)
	if n.Else != nil {
		elseType = c.checkStmt(e.Child(), n.Else)
	}
	return c.record(n, unifyBranches(thenType, elseType))
}

// unifyBranches implements spec §4.2's "a branch that is Abort or Return
// does not constrain the other".
func unifyBranches(a, b types.Type) types.Type {
	if a == types.Abort {
		return b
	}
	if b == types.Abort {
		return a
	}
	if a.Equal(b) {
		return a
	}
	if ok, _ := types.Promote(a, b); ok {
		return b
	}
	if ok, _ := types.Promote(b, a); ok {
		return a
	}
	return types.Optional{Inner: a}
}

func (c *Checker) checkWhen(e *env.Env, n *ast.When) types.Type {
	subjectType := c.getType(e, n.Subject)
	enum, isEnum := subjectType.(*types.Enum)

	seen := map[string]bool{}
	var result types.Type = types.Abort
	for _, clause := range n.Clauses {
		if seen[clause.Pattern.Tag] {
			c.sink.Fail(diagnostics.ErrTDuplicateTag, clause.Sp, "tag %q matched more than once", clause.Pattern.Tag)
		}
		seen[clause.Pattern.Tag] = true

		clauseEnv := e.Child()
		if isEnum {
			for _, tag := range enum.Tags {
				if tag.Name == clause.Pattern.Tag && tag.Inner != nil {
					for i, bindName := range clause.Pattern.Binds {
						if i < len(tag.Inner.Fields) {
							clauseEnv.Define(bindName, &Binding{Type: tag.Inner.Fields[i].Type, Code: bindName})
						}
					}
				}
			}
		}
		bt := c.checkBlock(clauseEnv, clause.Body)
		result = unifyBranches(result, bt)
	}

	if n.Else != nil {
		et := c.checkBlock(e.Child(), n.Else)
		result = unifyBranches(result, et)
	} else if isEnum {
		for _, tag := range enum.Tags {
			if !seen[tag.Name] {
				c.sink.Fail(diagnostics.ErrTNonExhaustive, n.Span(), "when is missing a case for tag %q", tag.Name)
			}
		}
	}
	return c.record(n, result)
}

func (c *Checker) checkFor(e *env.Env, n *ast.For) types.Type {
	iterType := c.getType(e, n.Iter)
	loopEnv := e.ChildLoop(n.Name, "skip_"+n.Name, "stop_"+n.Name, n.Vars)

	switch it := iterType.(type) {
	case types.List:
		bindForVars(loopEnv, n.Vars, types.Int64, it.Item)
	case types.Set:
		bindForVars(loopEnv, n.Vars, types.Int64, it.Item)
	case types.Table:
		bindForVars(loopEnv, n.Vars, it.Key, it.Value)
	case types.Range:
		// `for x in a.to(b)` (spec §4.3 counted-loop strategy): a single
		// loop var bound to the range's element type, no index var.
		if len(n.Vars) >= 1 {
			loopEnv.Define(n.Vars[0].Name, &Binding{Type: it.Item, Code: n.Vars[0].Name})
		}
	case interface{ Kind() types.Kind }:
		if it.Kind() == types.KBigInt {
			bindForVars(loopEnv, n.Vars, types.Int64, types.BigInt)
		} else {
			c.sink.Fail(diagnostics.ErrTMismatch, n.Iter.Span(), "%s is not iterable", iterType)
		}
	case types.Closure:
		// A `func() -> Enum{Done, Next(T)}` iterator source (spec §4.2
		// "For"): bind the loop variable to Next's inner field type.
		if done, ok := it.Fn.Ret.(*types.Enum); ok && len(n.Vars) >= 1 {
			for _, tag := range done.Tags {
				if tag.Name == "Next" && tag.Inner != nil && len(tag.Inner.Fields) > 0 {
					loopEnv.Define(n.Vars[0].Name, &Binding{Type: tag.Inner.Fields[0].Type, Code: n.Vars[0].Name})
				}
			}
		}
	default:
		c.sink.Fail(diagnostics.ErrTMismatch, n.Iter.Span(), "%s is not iterable", iterType)
	}

	bodyType := c.checkBlock(loopEnv, n.Body)
	result := types.Type(types.Void)
	if n.Empty != nil {
		emptyType := c.checkBlock(e.Child(), n.Empty)
		result = unifyBranches(bodyType, emptyType)
	}
	return c.record(n, result)
}

func bindForVars(e *env.Env, vars []*ast.Var, idxType, itemType types.Type) {
	if len(vars) == 2 {
		e.Define(vars[0].Name, &Binding{Type: idxType, Code: vars[0].Name})
		e.Define(vars[1].Name, &Binding{Type: itemType, Code: vars[1].Name})
	} else if len(vars) == 1 {
		e.Define(vars[0].Name, &Binding{Type: itemType, Code: vars[0].Name})
	}
}

func (c *Checker) checkLoop(e *env.Env, cond ast.Expr, body *ast.Block, name string) types.Type {
	loopEnv := e.ChildLoop(name, "skip_"+name, "stop_"+name, nil)
	if cond != nil {
		c.getType(e, cond)
	}
	c.checkBlock(loopEnv, body)
	return types.Void
}

func (c *Checker) checkLambda(e *env.Env, n *ast.Lambda) types.Type {
	args := make([]types.Type, len(n.Args))
	le := e.ChildFunction(types.Unknown)
	for i, p := range n.Args {
		var pt types.Type
		if p.TypeAST != nil {
			pt = c.resolveType(e, p.TypeAST)
		} else if p.Default != nil {
			pt = c.getType(le, p.Default)
		} else {
			pt = types.Unknown
		}
		args[i] = pt
		le.Define(p.Name, &Binding{Type: pt, Code: p.Name, Def: p})
	}
	ret := c.checkBlock(le, n.Body)
	if n.ReturnAST != nil {
		ret = c.resolveType(e, n.ReturnAST)
	}
	fn := types.Function{Args: args, Ret: ret}
	return c.record(n, types.Closure{Fn: fn})
}

func (c *Checker) checkList(e *env.Env, n *ast.List) types.Type {
	var item types.Type = types.Unknown
	for i, it := range n.Items {
		t := c.getType(e, it)
		if i == 0 {
			item = t
		} else if !item.Equal(t) {
			if ok, _ := types.Promote(t, item); !ok {
				if ok2, _ := types.Promote(item, t); ok2 {
					item = t
				}
			}
		}
	}
	return c.record(n, types.List{Item: item})
}

func (c *Checker) checkSet(e *env.Env, n *ast.Set) types.Type {
	var item types.Type = types.Unknown
	for i, it := range n.Items {
		t := c.getType(e, it)
		if i == 0 {
			item = t
		}
	}
	return c.record(n, types.Set{Item: item})
}

func (c *Checker) checkTable(e *env.Env, n *ast.Table) types.Type {
	var key, val types.Type = types.Unknown, types.Unknown
	for i, ent := range n.Entries {
		kt := c.getType(e, ent.Key)
		vt := c.getType(e, ent.Value)
		if i == 0 {
			key, val = kt, vt
		}
	}
	var defaultValue types.Type
	if n.Default != nil {
		val = c.getType(e, n.Default)
		defaultValue = val
	}
	if n.Fallback != nil {
		c.getType(e, n.Fallback)
	}
	return c.record(n, types.Table{Key: key, Value: val, DefaultValue: defaultValue})
}

func (c *Checker) checkComprehension(e *env.Env, n *ast.Comprehension) types.Type {
	iterType := c.getType(e, n.Iter)
	ce := e.Child()
	switch it := iterType.(type) {
	case types.List:
		bindForVars(ce, n.Vars, types.Int64, it.Item)
	case types.Set:
		bindForVars(ce, n.Vars, types.Int64, it.Item)
	case types.Table:
		bindForVars(ce, n.Vars, it.Key, it.Value)
	case types.Range:
		if len(n.Vars) >= 1 {
			ce.Define(n.Vars[0].Name, &Binding{Type: it.Item, Code: n.Vars[0].Name})
		}
	}
	if n.Filter != nil {
		c.getType(ce, n.Filter)
	}
	if ent, ok := n.Expr.(*ast.TableEntry); ok {
		kt := c.getType(ce, ent.Key)
		vt := c.getType(ce, ent.Value)
		return c.record(n, types.Table{Key: kt, Value: vt})
	}
	elemType := c.getType(ce, n.Expr)
	return c.record(n, types.List{Item: elemType})
}

func (c *Checker) checkReduction(e *env.Env, n *ast.Reduction) types.Type {
	iterType := c.getType(e, n.Iter)
	if n.Key != nil {
		// See checkBinOp's Min/Max note: a per-item field projection, not
		// checked against the enclosing scope.
	}
	switch it := iterType.(type) {
	case types.List:
		return c.record(n, types.Optional{Inner: it.Item})
	case types.Set:
		return c.record(n, types.Optional{Inner: it.Item})
	}
	c.sink.Fail(diagnostics.ErrTMismatch, n.Span(), "%s cannot be reduced", iterType)
	return c.record(n, types.Unknown)
}
