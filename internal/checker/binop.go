package checker

import (
	"github.com/tomo-lang/tomo/internal/ast"
	"github.com/tomo-lang/tomo/internal/diagnostics"
	"github.com/tomo-lang/tomo/internal/env"
	"github.com/tomo-lang/tomo/internal/types"
)

// arithmeticOps includes every operator whose result is the promoted common
// numeric type of its operands (spec §4.2 "Arithmetic BinaryOp").
var arithmeticOps = map[string]bool{
	"Plus": true, "Minus": true, "Multiply": true, "Divide": true,
	"Mod": true, "Mod1": true, "LeftShift": true, "RightShift": true,
	"UnsignedLeftShift": true, "UnsignedRightShift": true,
}

var comparisonOps = map[string]bool{
	"LessThan": true, "LessThanOrEquals": true, "GreaterThan": true,
	"GreaterThanOrEquals": true, "Compare": true, "Equals": true, "NotEquals": true,
}

var logicalOps = map[string]bool{"And": true, "Or": true, "Xor": true}
var minMaxOps = map[string]bool{"Min": true, "Max": true}

// typeName gets the bare Go type name (e.g. "Plus", "PlusUpdate") of a node
// for dispatch against the operator-name tables above.
func typeName(n ast.Expr) string {
	return typeOf(n)
}

func typeOf(n ast.Node) string {
	switch n.(type) {
	case *ast.Plus, *ast.PlusUpdate:
		return "Plus"
	case *ast.Minus, *ast.MinusUpdate:
		return "Minus"
	case *ast.Multiply, *ast.MultiplyUpdate:
		return "Multiply"
	case *ast.Divide, *ast.DivideUpdate:
		return "Divide"
	case *ast.Mod, *ast.ModUpdate:
		return "Mod"
	case *ast.Mod1, *ast.Mod1Update:
		return "Mod1"
	case *ast.Power, *ast.PowerUpdate:
		return "Power"
	case *ast.Concat, *ast.ConcatUpdate:
		return "Concat"
	case *ast.LeftShift, *ast.LeftShiftUpdate:
		return "LeftShift"
	case *ast.RightShift, *ast.RightShiftUpdate:
		return "RightShift"
	case *ast.UnsignedLeftShift, *ast.UnsignedLeftShiftUpdate:
		return "UnsignedLeftShift"
	case *ast.UnsignedRightShift, *ast.UnsignedRightShiftUpdate:
		return "UnsignedRightShift"
	case *ast.Equals:
		return "Equals"
	case *ast.NotEquals:
		return "NotEquals"
	case *ast.LessThan:
		return "LessThan"
	case *ast.LessThanOrEquals:
		return "LessThanOrEquals"
	case *ast.GreaterThan:
		return "GreaterThan"
	case *ast.GreaterThanOrEquals:
		return "GreaterThanOrEquals"
	case *ast.Compare:
		return "Compare"
	case *ast.And, *ast.AndUpdate:
		return "And"
	case *ast.Or, *ast.OrUpdate:
		return "Or"
	case *ast.Xor, *ast.XorUpdate:
		return "Xor"
	case *ast.Min, *ast.MinUpdate:
		return "Min"
	case *ast.Max, *ast.MaxUpdate:
		return "Max"
	}
	return ""
}

func (c *Checker) checkBinOp(e *env.Env, n ast.Expr, bo interface {
	Operands() (ast.Expr, ast.Expr)
	ast.Node
}) types.Type {
	op := typeName(n)
	lhs, rhs := bo.Operands()

	if ast.IsUpdateAssignment(n) {
		if !isLvalue(lhs) {
			c.sink.Fail(diagnostics.ErrTMismatch, lhs.Span(), "update-assignment target must be a variable, field, or index")
		}
		if b, ok := lhs.(*ast.Var); ok {
			if binding, ok := e.Lookup(b.Name); ok && binding.IsConstant {
				c.sink.Fail(diagnostics.ErrSImmutableAssign, lhs.Span(), "cannot update constant %q", b.Name)
			}
		}
	}

	lt := c.getType(e, lhs)
	rt := c.getType(e, rhs)

	switch {
	case op == "Power":
		c.getType(e, lhs)
		c.getType(e, rhs)
		return c.record(n, types.Num64)
	case op == "Concat":
		return c.record(n, c.checkConcat(n, lt, rt))
	case comparisonOps[op]:
		return c.record(n, c.checkComparison(n, op, lt, rt))
	case logicalOps[op]:
		return c.record(n, c.checkLogical(n, op, lt, rt))
	case minMaxOps[op]:
		// The optional `.field` key-expression (spec §4.1 "lhs _min_ .field
		// rhs") is a per-operand field projection, not a standalone
		// expression against the current scope, so it is not passed to
		// getType: its field name is resolved against lt/rt's own fields by
		// the emitter when it lowers the comparison.
		return c.record(n, c.commonNumericOrOrderable(n, lt, rt))
	case arithmeticOps[op]:
		return c.record(n, c.checkArithmetic(n, lt, rt))
	}
	c.sink.Fail(diagnostics.ErrSNotImplemented, n.Span(), "checker: unhandled operator %s", op)
	return c.record(n, types.Unknown)
}

func isLvalue(e ast.Expr) bool {
	switch e.(type) {
	case *ast.Var, *ast.FieldAccess, *ast.Index:
		return true
	}
	return false
}

func (c *Checker) checkArithmetic(n ast.Node, lt, rt types.Type) types.Type {
	if lt.Equal(rt) {
		return lt
	}
	if ok, _ := types.Promote(lt, rt); ok {
		return rt
	}
	if ok, _ := types.Promote(rt, lt); ok {
		return lt
	}
	c.sink.Fail(diagnostics.ErrTMismatch, n.Span(), "incompatible operand types %s and %s", lt, rt)
	return types.Unknown
}

func (c *Checker) commonNumericOrOrderable(n ast.Node, lt, rt types.Type) types.Type {
	if !types.IsOrderable(lt) || !types.IsOrderable(rt) {
		c.sink.Fail(diagnostics.ErrTNotOrderable, n.Span(), "%s and %s are not orderable", lt, rt)
		return types.Unknown
	}
	return c.checkArithmetic(n, lt, rt)
}

func (c *Checker) checkConcat(n ast.Node, lt, rt types.Type) types.Type {
	if ll, ok := lt.(types.List); ok {
		if rl, ok := rt.(types.List); ok && ll.Item.Equal(rl.Item) {
			return lt
		}
	}
	_, lIsText := lt.(types.Text)
	_, rIsText := rt.(types.Text)
	if lIsText && rIsText {
		return lt
	}
	c.sink.Fail(diagnostics.ErrTMismatch, n.Span(), "cannot concatenate %s and %s", lt, rt)
	return types.Unknown
}

func (c *Checker) checkComparison(n ast.Node, op string, lt, rt types.Type) types.Type {
	if op == "Equals" || op == "NotEquals" {
		return types.Bool
	}
	if !types.IsOrderable(lt) {
		c.sink.Fail(diagnostics.ErrTNotOrderable, n.Span(), "%s is not orderable", lt)
		return types.Bool
	}
	if !lt.Equal(rt) {
		ok1, _ := types.Promote(lt, rt)
		ok2, _ := types.Promote(rt, lt)
		if !ok1 && !ok2 {
			c.sink.Fail(diagnostics.ErrTMismatch, n.Span(), "cannot compare %s and %s", lt, rt)
		}
	}
	if op == "Compare" {
		return types.Int32
	}
	return types.Bool
}

// checkLogical implements spec §4.2's overloaded and/or/xor: Bool -> Bool,
// integer -> bitwise, Optional -> the "first non-none" / "both present"
// short-circuit pair.
func (c *Checker) checkLogical(n ast.Node, op string, lt, rt types.Type) types.Type {
	if lt.Equal(types.Bool) && rt.Equal(types.Bool) {
		return types.Bool
	}
	if isIntegerLike(lt) && isIntegerLike(rt) {
		return c.checkArithmetic(n, lt, rt)
	}
	if lo, ok := lt.(types.Optional); ok {
		inner := lo.Inner
		var other types.Type = rt
		if ro, ok := rt.(types.Optional); ok {
			other = ro.Inner
		}
		if !inner.Equal(other) {
			if ok1, _ := types.Promote(other, inner); !ok1 {
				c.sink.Fail(diagnostics.ErrTMismatch, n.Span(), "%s operands %s and %s are not compatible", op, lt, rt)
			}
		}
		if op == "Or" {
			return inner
		}
		return rt
	}
	c.sink.Fail(diagnostics.ErrTMismatch, n.Span(), "%s is not defined for %s and %s", op, lt, rt)
	return types.Unknown
}

func isIntegerLike(t types.Type) bool {
	switch tt := t.(type) {
	case types.Int:
		return true
	case interface{ Kind() types.Kind }:
		return tt.Kind() == types.KBigInt || tt.Kind() == types.KByte
	}
	return false
}

func (c *Checker) checkUnaryOp(e *env.Env, n ast.Expr, uo interface {
	UnaryOperand() ast.Expr
	ast.Node
}) types.Type {
	operand := uo.UnaryOperand()
	ot := c.getType(e, operand)
	switch n.(type) {
	case *ast.Not:
		return c.record(n, c.checkNot(n, ot))
	case *ast.Negative:
		return c.record(n, ot)
	case *ast.HeapAllocate:
		if _, ok := operand.(*ast.StackReference); ok {
			c.sink.Fail(diagnostics.ErrSStackEscape, n.Span(), "cannot heap-allocate a stack reference")
		}
		return c.record(n, types.Pointer{Pointed: ot, IsStack: false})
	case *ast.StackReference:
		isStack := false
		if _, ok := operand.(*ast.Var); ok {
			isStack = true
		}
		return c.record(n, types.Pointer{Pointed: ot, IsStack: isStack})
	case *ast.Optional:
		if opt, ok := ot.(types.Optional); ok {
			return c.record(n, opt)
		}
		return c.record(n, types.Optional{Inner: ot})
	case *ast.NonOptional:
		if opt, ok := ot.(types.Optional); ok {
			return c.record(n, opt.Inner)
		}
		return c.record(n, ot)
	}
	return c.record(n, types.Unknown)
}

func (c *Checker) checkNot(n ast.Node, ot types.Type) types.Type {
	if ot.Equal(types.Bool) {
		return types.Bool
	}
	if isIntegerLike(ot) {
		return ot
	}
	if opt, ok := ot.(types.Optional); ok {
		_ = opt
		return types.Bool
	}
	c.sink.Fail(diagnostics.ErrTMismatch, n.Span(), "not is not defined for %s", ot)
	return types.Unknown
}
