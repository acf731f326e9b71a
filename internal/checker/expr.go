package checker

import (
	"github.com/tomo-lang/tomo/internal/ast"
	"github.com/tomo-lang/tomo/internal/diagnostics"
	"github.com/tomo-lang/tomo/internal/env"
	"github.com/tomo-lang/tomo/internal/types"
)

// getType is spec §4.2's single top-down recursive function. It records
// every node's type in c.Types as it goes, for the emitter to read back.
func (c *Checker) getType(e *env.Env, n ast.Expr) types.Type {
	if n == nil {
		return types.Void
	}
	switch nn := n.(type) {
	case *ast.None:
		if nn.TypeHint == nil {
			c.sink.Fail(diagnostics.ErrTNoneNeedsHint, nn.Span(), "none needs a type hint in this context")
			return c.record(nn, types.Unknown)
		}
		return c.record(nn, types.Optional{Inner: c.resolveType(e, nn.TypeHint)})
	case *ast.Bool:
		return c.record(nn, types.Bool)
	case *ast.Int:
		return c.record(nn, types.BigInt)
	case *ast.Num:
		return c.record(nn, types.Num64)
	case *ast.TextLiteral:
		return c.record(nn, types.Text{})
	case *ast.TextJoin:
		for _, ch := range nn.Chunks {
			c.getType(e, ch)
		}
		return c.record(nn, types.Text{Lang: nn.Lang})
	case *ast.Path:
		return c.record(nn, types.Text{Lang: "Path"})
	case *ast.Var:
		b, ok := e.Lookup(nn.Name)
		if !ok {
			c.sink.Fail(diagnostics.ErrBUnknownName, nn.Span(), "unknown name %q", nn.Name)
			return c.record(nn, types.Unknown)
		}
		return c.record(nn, b.Type)
	case *ast.Pass:
		return c.record(nn, types.Void)
	case *ast.Skip:
		return c.checkLoopControl(e, nn, nn.Target, "skip")
	case *ast.Stop:
		return c.checkLoopControl(e, nn, nn.Target, "stop")
	case *ast.Return:
		return c.checkReturn(e, nn)
	case *ast.Defer:
		e.PushDefer(nn.Body)
		c.checkBlock(e.Child(), nn.Body)
		return c.record(nn, types.Void)
	case *ast.Assert:
		c.getType(e, nn.Expr)
		if nn.Message != nil {
			c.getType(e, nn.Message)
		}
		return c.record(nn, types.Void)
	case *ast.DocTest:
		return c.record(nn, c.getType(e, nn.Expr))
	case *ast.InlineCCode:
		for _, ch := range nn.Chunks {
			c.getType(e, ch)
		}
		return c.record(nn, c.resolveType(e, nn.TypeHint))
	case *ast.Deserialize:
		c.getType(e, nn.Value)
		return c.record(nn, c.resolveType(e, nn.Type))
	case *ast.ExplicitlyTyped:
		if t, ok := nn.Type.(types.Type); ok {
			return c.record(nn, t)
		}
		return c.record(nn, c.getType(e, nn.Inner))
	case *ast.Block:
		return c.checkBlock(e.Child(), nn)
	case *ast.If:
		return c.checkIf(e, nn)
	case *ast.When:
		return c.checkWhen(e, nn)
	case *ast.For:
		return c.checkFor(e, nn)
	case *ast.While:
		return c.checkLoop(e, nn.Cond, nn.Body, nn.Name)
	case *ast.Repeat:
		return c.checkLoop(e, nil, nn.Body, nn.Name)
	case *ast.Declare:
		return c.checkDeclare(e, nn)
	case *ast.Assign:
		return c.checkAssign(e, nn)
	case *ast.Lambda:
		return c.checkLambda(e, nn)
	case *ast.List:
		return c.checkList(e, nn)
	case *ast.Set:
		return c.checkSet(e, nn)
	case *ast.Table:
		return c.checkTable(e, nn)
	case *ast.Comprehension:
		return c.checkComprehension(e, nn)
	case *ast.FieldAccess:
		return c.checkFieldAccess(e, nn)
	case *ast.Index:
		return c.checkIndex(e, nn)
	case *ast.FunctionCall:
		return c.checkCall(e, nn)
	case *ast.MethodCall:
		return c.checkMethodCall(e, nn)
	case *ast.Reduction:
		return c.checkReduction(e, nn)
	case *ast.FunctionDef:
		if _, ok := e.LookupLocal(nn.Name); !ok {
			e.Define(nn.Name, &Binding{Type: fnType(c, e, nn), Code: nn.Name, Def: nn})
		}
		c.checkFunctionBody(e, nn)
		b, _ := e.Lookup(nn.Name)
		if b != nil {
			return c.record(nn, b.Type)
		}
		return c.record(nn, types.Void)
	case *ast.StructDef, *ast.EnumDef, *ast.LangDef, *ast.Extend, *ast.Extern, *ast.Use:
		return c.record(n, types.Void)
	}

	if bo, ok := n.(interface {
		Operands() (ast.Expr, ast.Expr)
		ast.Node
	}); ok {
		return c.checkBinOp(e, n, bo)
	}
	if uo, ok := n.(interface {
		UnaryOperand() ast.Expr
		ast.Node
	}); ok {
		return c.checkUnaryOp(e, n, uo)
	}
	c.sink.Fail(diagnostics.ErrSNotImplemented, n.Span(), "checker: unsupported node %T", n)
	return types.Unknown
}

func (c *Checker) checkLoopControl(e *env.Env, n ast.Node, target, word string) types.Type {
	if e.FindLoop(target) == nil {
		c.sink.Fail(diagnostics.ErrSLoopCtlOutside, n.Span(), "%s used outside a loop", word)
	}
	return c.record(n, types.Abort)
}

func (c *Checker) checkReturn(e *env.Env, n *ast.Return) types.Type {
	if e.ReturnType() == nil {
		c.sink.Fail(diagnostics.ErrSReturnOutsideFn, n.Span(), "return used outside a function")
		return c.record(n, types.Abort)
	}
	if n.Value != nil {
		c.getType(e, n.Value)
	}
	return c.record(n, types.Abort)
}

func (c *Checker) checkDeclare(e *env.Env, n *ast.Declare) types.Type {
	var t types.Type
	if n.TypeAST != nil {
		t = c.resolveType(e, n.TypeAST)
		if n.Value != nil {
			vt := c.getType(e, n.Value)
			if ok, _ := types.Promote(vt, t); !ok && !vt.Equal(t) {
				c.sink.Fail(diagnostics.ErrTMismatch, n.Value.Span(), "cannot assign %s to declared type %s", vt, t)
			}
		}
	} else if n.Value != nil {
		t = c.getType(e, n.Value)
	} else {
		t = types.Unknown
	}
	if _, exists := e.LookupLocal(n.Var.Name); exists {
		c.sink.Fail(diagnostics.ErrBDuplicate, n.Var.Span(), "%q is already declared in this scope", n.Var.Name)
	}
	e.Define(n.Var.Name, &Binding{Type: t, Code: n.Var.Name, Def: n})
	c.record(n.Var, t)
	return c.record(n, types.Void)
}

func (c *Checker) checkAssign(e *env.Env, n *ast.Assign) types.Type {
	if len(n.Targets) != len(n.Values) {
		c.sink.Fail(diagnostics.ErrTArity, n.Span(), "assignment has %d targets but %d values", len(n.Targets), len(n.Values))
	}
	for i, tgt := range n.Targets {
		tt := c.getType(e, tgt)
		if v, ok := tgt.(*ast.Var); ok {
			if b, ok := e.Lookup(v.Name); ok && b.IsConstant {
				c.sink.Fail(diagnostics.ErrSImmutableAssign, tgt.Span(), "cannot assign to constant %q", v.Name)
			}
		}
		if i < len(n.Values) {
			vt := c.getType(e, n.Values[i])
			if ok, _ := types.Promote(vt, tt); !ok && !vt.Equal(tt) && tt != types.Unknown {
				c.sink.Fail(diagnostics.ErrTMismatch, n.Values[i].Span(), "cannot assign %s to %s", vt, tt)
			}
		}
	}
	return c.record(n, types.Void)
}
