package emitter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tomo-lang/tomo/internal/ast"
	"github.com/tomo-lang/tomo/internal/env"
	"github.com/tomo-lang/tomo/internal/types"
)

// emitExpr lowers n to a C expression fragment. Every case reads n's
// resolved type back out of em.c.Types rather than re-inferring it, per
// spec §4.3's "translate a typed AST".
func (em *Emitter) emitExpr(s *scope, n ast.Expr) string {
	if n == nil {
		return ""
	}
	switch nn := n.(type) {
	case *ast.None:
		return noneLiteral(em.c.TypeOf(n))
	case *ast.Bool:
		if nn.Value {
			return "true"
		}
		return "false"
	case *ast.Int:
		return nn.Value.String()
	case *ast.Num:
		return strconv.FormatFloat(nn.Value, 'g', -1, 64)
	case *ast.TextLiteral:
		return fmt.Sprintf("Text(%q)", nn.Cooked)
	case *ast.TextJoin:
		return em.emitTextJoin(s, nn)
	case *ast.Path:
		return fmt.Sprintf("Text(%q)", nn.Raw)
	case *ast.Var:
		return s.resolve(nn.Name)
	case *ast.Pass:
		return "(void)0"
	case *ast.Skip:
		return em.emitSkip(s, nn)
	case *ast.Stop:
		return em.emitStop(s, nn)
	case *ast.Return:
		return em.emitReturn(s, nn)
	case *ast.Defer:
		s.pushDefer(nn.Body)
		return "(void)0"
	case *ast.Assert:
		cond := em.emitExpr(s, nn.Expr)
		msg := `"assertion failed"`
		if nn.Message != nil {
			msg = em.emitExpr(s, nn.Message)
		}
		return fmt.Sprintf("({ if (!(%s)) fail_source(%s); })", cond, msg)
	case *ast.DocTest:
		return em.emitDocTest(s, nn)
	case *ast.InlineCCode:
		return em.emitInlineC(s, nn)
	case *ast.Deserialize:
		val := em.emitExpr(s, nn.Value)
		t := em.resolveType(nn.Type)
		return fmt.Sprintf("deserialize(%s, &%s$$info)", val, mangleName(CType(t)))
	case *ast.ExplicitlyTyped:
		return em.emitExpr(s, nn.Inner)
	case *ast.Block:
		return em.emitBlockExpr(s, nn)
	case *ast.If:
		return em.emitIf(s, nn)
	case *ast.When:
		return em.emitWhen(s, nn)
	case *ast.For:
		return em.emitFor(s, nn)
	case *ast.While:
		return em.emitWhileRepeat(s, nn.Cond, nn.Body, nn.Name)
	case *ast.Repeat:
		return em.emitWhileRepeat(s, nil, nn.Body, nn.Name)
	case *ast.Declare:
		return em.emitDeclare(s, nn)
	case *ast.Assign:
		return em.emitAssign(s, nn)
	case *ast.Lambda:
		return em.emitLambda(s, nn)
	case *ast.List:
		return em.emitList(s, nn)
	case *ast.Set:
		return em.emitSet(s, nn)
	case *ast.Table:
		return em.emitTable(s, nn)
	case *ast.Comprehension:
		return em.emitComprehension(s, nn)
	case *ast.FieldAccess:
		return em.emitFieldAccess(s, nn)
	case *ast.Index:
		return em.emitIndex(s, nn)
	case *ast.FunctionCall:
		return em.emitCall(s, nn)
	case *ast.MethodCall:
		return em.emitMethodCall(s, nn)
	case *ast.Reduction:
		return em.emitReduction(s, nn)
	case *ast.FunctionDef:
		em.emitFunctionDef(s, nn)
		return "(void)0"
	case *ast.StructDef, *ast.EnumDef, *ast.LangDef, *ast.Extend, *ast.Extern, *ast.Use:
		em.emitTopLevel(s, n.(ast.Stmt))
		return "(void)0"
	}

	if bo, ok := n.(interface {
		Operands() (ast.Expr, ast.Expr)
		ast.Node
	}); ok {
		return em.emitBinOp(s, n, bo)
	}
	if uo, ok := n.(interface {
		UnaryOperand() ast.Expr
		ast.Node
	}); ok {
		return em.emitUnaryOp(s, n, uo)
	}
	return fmt.Sprintf("/* unsupported %T */ 0", n)
}

func noneLiteral(t types.Type) string {
	if opt, ok := t.(types.Optional); ok {
		switch types.EncodingFor(opt.Inner) {
		case types.NoneNullPointer:
			return "NULL"
		case types.NoneNaN:
			return "NAN"
		case types.NoneTagZero:
			return fmt.Sprintf("(%s){.tag=0}", CType(opt.Inner))
		}
	}
	return fmt.Sprintf("(%s){.is_none=true}", CType(t))
}

func (em *Emitter) emitTextJoin(s *scope, nn *ast.TextJoin) string {
	var parts []string
	for _, ch := range nn.Chunks {
		parts = append(parts, em.emitExpr(s, ch))
	}
	if nn.Lang != "" {
		return fmt.Sprintf("%s$concat(%s)", mangleName(nn.Lang), strings.Join(parts, ", "))
	}
	return fmt.Sprintf("Text$concat(%s)", strings.Join(parts, ", "))
}

func (em *Emitter) emitInlineC(s *scope, nn *ast.InlineCCode) string {
	var b strings.Builder
	for _, ch := range nn.Chunks {
		if lit, ok := ch.(*ast.TextLiteral); ok {
			b.WriteString(lit.Cooked)
			continue
		}
		b.WriteString(em.emitExpr(s, ch))
	}
	return b.String()
}

func (em *Emitter) emitDocTest(s *scope, nn *ast.DocTest) string {
	val := em.emitExpr(s, nn.Expr)
	t := em.c.TypeOf(nn.Expr)
	return fmt.Sprintf("test(%s, &%s$$info, %q, %d, %d)", val, mangleName(CType(t)), nn.Expected, nn.Span().Start, nn.Span().End)
}

// ---- Binary / unary operators ----------------------------------------------

var cOperator = map[string]string{
	"Plus": "+", "Minus": "-", "Multiply": "*", "Divide": "/",
	"LeftShift": "<<", "RightShift": ">>",
	"Equals": "==", "NotEquals": "!=", "LessThan": "<", "LessThanOrEquals": "<=",
	"GreaterThan": ">", "GreaterThanOrEquals": ">=", "And": "&&", "Or": "||", "Xor": "^",
}

func (em *Emitter) emitBinOp(s *scope, n ast.Expr, bo interface {
	Operands() (ast.Expr, ast.Expr)
	ast.Node
}) string {
	op := typeOf(n)
	lhs, rhs := bo.Operands()
	lt := em.c.TypeOf(lhs)

	if ast.IsUpdateAssignment(n) {
		target := em.emitExpr(s, lhs)
		return fmt.Sprintf("(%s = %s)", target, em.emitBinOpCode(s, op, lhs, rhs, lt))
	}
	return em.emitBinOpCode(s, op, lhs, rhs, lt)
}

func (em *Emitter) emitBinOpCode(s *scope, op string, lhs, rhs ast.Expr, lt types.Type) string {
	l := em.emitExpr(s, lhs)
	r := em.emitExpr(s, rhs)

	// User-defined overloads are checked first, by namespace lookup on the
	// LHS type (spec §4.3 "Binary operators"); struct/enum types mangle the
	// overload as `<Type>$<op_name>`.
	if ov, ok := overloadName(lt); ok {
		var ns *env.Env
		switch tt := lt.(type) {
		case *types.Struct:
			ns, _ = tt.Env.(*env.Env)
		case *types.Enum:
			ns, _ = tt.Env.(*env.Env)
		}
		if name, has := operatorOverload(op); has && ns != nil {
			if _, found := ns.LookupLocal(name); found {
				return fmt.Sprintf("%s$%s(%s, %s)", ov, name, l, r)
			}
		}
	}

	switch op {
	case "Mod", "Mod1":
		if isFloaty(lt) {
			return fmt.Sprintf("fmod(%s, %s)", l, r)
		}
		if op == "Mod1" {
			return fmt.Sprintf("(((%s - 1) %% %s) + 1)", l, r)
		}
		return fmt.Sprintf("(%s %% %s)", l, r)
	case "Power":
		return fmt.Sprintf("pow(%s, %s)", l, r)
	case "Concat":
		return em.emitConcat(lt, l, r)
	case "Compare":
		return fmt.Sprintf("generic_compare(&%s, &%s, &%s$$info)", l, r, mangleName(CType(lt)))
	case "UnsignedLeftShift":
		return fmt.Sprintf("((typeof(%s))((unsigned) (%s) << (%s)))", l, l, r)
	case "UnsignedRightShift":
		return fmt.Sprintf("((typeof(%s))((unsigned) (%s) >> (%s)))", l, l, r)
	case "Min", "Max":
		return em.emitMinMax(s, op, lhs, rhs, lt)
	}
	if c, ok := cOperator[op]; ok {
		return fmt.Sprintf("(%s %s %s)", l, c, r)
	}
	return fmt.Sprintf("/* unhandled op %s */ (%s)", op, l)
}

func isFloaty(t types.Type) bool {
	_, ok := t.(types.Num)
	return ok
}

func overloadName(t types.Type) (string, bool) {
	switch tt := t.(type) {
	case *types.Struct:
		return mangleName(tt.Name), true
	case *types.Enum:
		return mangleName(tt.Name), true
	}
	return "", false
}

func operatorOverload(op string) (string, bool) {
	names := map[string]string{
		"Plus": "plus", "Minus": "minus", "Multiply": "times", "Divide": "divided_by",
	}
	n, ok := names[op]
	return n, ok
}

func (em *Emitter) emitConcat(lt types.Type, l, r string) string {
	switch lt.(type) {
	case types.List:
		return fmt.Sprintf("List$concat(%s, %s)", l, r)
	case types.Text:
		return fmt.Sprintf("Text$concat(%s, %s)", l, r)
	}
	return fmt.Sprintf("/* concat */ (%s)", l)
}

// emitMinMax resolves the optional `.field` key-expression directly against
// the operand struct's field list (spec §4.3 Reductions "min/max... tracks a
// separate key expression"); the checker deliberately never type-checked
// this against the ambient scope, so this is the first and only place it is
// resolved.
func (em *Emitter) emitMinMax(s *scope, op string, lhs, rhs ast.Expr, lt types.Type) string {
	l := em.emitExpr(s, lhs)
	r := em.emitExpr(s, rhs)
	var key func(string) string
	if kx, ok := binOpKey(lhs, rhs); ok {
		fieldName := kx
		key = func(v string) string { return fmt.Sprintf("%s.%s", v, fieldName) }
	} else {
		key = func(v string) string { return v }
	}
	cmp := "<"
	if op == "Max" {
		cmp = ">"
	}
	_ = lt
	return fmt.Sprintf("({ typeof(%s) _a = %s, _b = %s; (%s %s %s) ? _a : _b; })", l, l, r, key(l), cmp, key(r))
}

// binOpKey reaches into the shared BinOp payload for its Key expression
// (only Min/Max ever populate it) and pulls out the field name it projects,
// per spec §4.1's `lhs _min_ .field rhs` grammar.
func binOpKey(lhs, rhs ast.Expr) (string, bool) {
	type keyed interface{ KeyExpr() ast.Expr }
	for _, n := range []ast.Expr{lhs, rhs} {
		if k, ok := n.(keyed); ok {
			if fa, ok := k.KeyExpr().(*ast.FieldAccess); ok {
				return fa.Name, true
			}
		}
	}
	return "", false
}

func (em *Emitter) emitUnaryOp(s *scope, n ast.Expr, uo interface {
	UnaryOperand() ast.Expr
	ast.Node
}) string {
	operand := uo.UnaryOperand()
	v := em.emitExpr(s, operand)
	switch n.(type) {
	case *ast.Not:
		ot := em.c.TypeOf(operand)
		if _, ok := ot.(types.Optional); ok {
			return fmt.Sprintf("(!(%s).is_none)", v)
		}
		return fmt.Sprintf("(!(%s))", v)
	case *ast.Negative:
		return fmt.Sprintf("(-(%s))", v)
	case *ast.HeapAllocate:
		t := em.c.TypeOf(operand)
		return fmt.Sprintf("GC_MALLOC_POINTER(%s, %s)", CType(t), v)
	case *ast.StackReference:
		return fmt.Sprintf("(&%s)", v)
	case *ast.Optional:
		return v
	case *ast.NonOptional:
		return fmt.Sprintf("({ if ((%s).is_none) fail_source(\"value is none\"); (%s).value; })", v, v)
	}
	return v
}

// ---- Containers -------------------------------------------------------------

func (em *Emitter) emitList(s *scope, nn *ast.List) string {
	var items []string
	for _, it := range nn.Items {
		items = append(items, em.emitExpr(s, it))
	}
	t := em.c.TypeOf(nn).(types.List)
	return fmt.Sprintf("List(%s, %s)", CType(t.Item), strings.Join(items, ", "))
}

func (em *Emitter) emitSet(s *scope, nn *ast.Set) string {
	var items []string
	for _, it := range nn.Items {
		items = append(items, em.emitExpr(s, it))
	}
	t := em.c.TypeOf(nn).(types.Set)
	return fmt.Sprintf("Set(%s, %s)", CType(t.Item), strings.Join(items, ", "))
}

func (em *Emitter) emitTable(s *scope, nn *ast.Table) string {
	var entries []string
	for _, ent := range nn.Entries {
		entries = append(entries, fmt.Sprintf("{%s, %s}", em.emitExpr(s, ent.Key), em.emitExpr(s, ent.Value)))
	}
	t := em.c.TypeOf(nn).(types.Table)
	defArg := "NULL"
	if nn.Default != nil {
		defArg = em.emitExpr(s, nn.Default)
	}
	fallbackArg := "NULL"
	if nn.Fallback != nil {
		fallbackArg = em.emitExpr(s, nn.Fallback)
	}
	return fmt.Sprintf("Table(%s, %s, .fallback=%s, .default=%s, %s)", CType(t.Key), CType(t.Value), fallbackArg, defArg, strings.Join(entries, ", "))
}

// emitComprehension desugars to a loop over a private accumulator (spec
// §4.3 "Comprehensions desugar to for over a private accumulator").
// emitComprehension lowers `[expr for vars in iter if filter]` to an
// accumulator loop. A `Range` iterator (spec §4.3 "counted integer loop
// (specialized for Int.to(...))") counts directly in the for-loop header
// with no backing List_t; every other iterable counts an index and binds
// the loop variable from it at the top of the body.
func (em *Emitter) emitComprehension(s *scope, nn *ast.Comprehension) string {
	acc := em.freshTemp("acc")
	t := em.c.TypeOf(nn)
	iterType := em.c.TypeOf(nn.Iter)
	ce := s.child()

	loopVar := "_it"
	if len(nn.Vars) >= 1 {
		loopVar = nn.Vars[len(nn.Vars)-1].Name
	}
	ce.define(loopVar, loopVar)

	var header, bind string
	if rt, ok := iterType.(types.Range); ok {
		call := nn.Iter.(*ast.MethodCall)
		start := em.emitExpr(s, call.Self)
		end := em.emitExpr(s, call.Args[0].Value)
		if isBigIntType(rt.Item) {
			header = fmt.Sprintf("Int_t %s = %s; Int$compare(%s, %s) <= 0; %s = Int$plus(%s, Int(1))",
				loopVar, start, loopVar, end, loopVar, loopVar)
		} else {
			header = fmt.Sprintf("%s %s = %s; %s <= %s; %s++", CType(rt.Item), loopVar, start, loopVar, end, loopVar)
		}
	} else {
		iter := em.emitExpr(s, nn.Iter)
		idx := em.freshTemp("i")
		var itemType types.Type
		switch it := iterType.(type) {
		case types.List:
			itemType = it.Item
		case types.Set:
			itemType = it.Item
		}
		if len(nn.Vars) == 2 {
			ce.define(nn.Vars[0].Name, idx)
		}
		bind = fmt.Sprintf("%s %s = %s.data[%s]; ", CType(itemType), loopVar, iter, idx)
		header = fmt.Sprintf("int64_t %s = 0; %s < (%s).length; %s++", idx, idx, iter, idx)
	}

	var body strings.Builder
	body.WriteString(bind)
	if nn.Filter != nil {
		fmt.Fprintf(&body, "if (!(%s)) continue; ", em.emitExpr(ce, nn.Filter))
	}
	switch t.(type) {
	case types.Table:
		ent := nn.Expr.(*ast.TableEntry)
		fmt.Fprintf(&body, "Table$set(&%s, %s, %s);", acc, em.emitExpr(ce, ent.Key), em.emitExpr(ce, ent.Value))
		return fmt.Sprintf("({ Table_t %s = {0}; for (%s) { %s } %s; })", acc, header, body.String(), acc)
	case types.List:
		fmt.Fprintf(&body, "List$insert(&%s, %s);", acc, em.emitExpr(ce, nn.Expr))
		return fmt.Sprintf("({ List_t %s = {0}; for (%s) { %s } %s; })", acc, header, body.String(), acc)
	}
	return fmt.Sprintf("/* comprehension */ %s", acc)
}

// ---- Access -----------------------------------------------------------------

func (em *Emitter) emitFieldAccess(s *scope, nn *ast.FieldAccess) string {
	objType := em.c.TypeOf(nn.Obj)
	obj := em.emitExpr(s, nn.Obj)
	switch t := objType.(type) {
	case *types.Enum:
		for _, tag := range t.Tags {
			if tag.Name == nn.Name {
				return fmt.Sprintf("((%s).tag == %d)", obj, t.TagIndex(nn.Name))
			}
		}
	case types.TypeInfo:
		switch inner := t.Of.(type) {
		case *types.Enum:
			for _, tag := range inner.Tags {
				if tag.Name == nn.Name {
					if tag.Inner == nil {
						return fmt.Sprintf("((%s){.tag=%d})", CType(inner), inner.TagIndex(nn.Name))
					}
					return fmt.Sprintf("%s$%s", mangleName(inner.Name), tag.Name)
				}
			}
		}
		return fmt.Sprintf("%s$%s", mangleName(t.Name), nn.Name)
	case types.List:
		if nn.Name == "length" {
			return fmt.Sprintf("(%s).length", obj)
		}
	case types.Set:
		if nn.Name == "length" {
			return fmt.Sprintf("(%s).length", obj)
		}
	case types.Table:
		switch nn.Name {
		case "length":
			return fmt.Sprintf("(%s).length", obj)
		case "keys":
			return fmt.Sprintf("Table$keys(%s)", obj)
		case "values":
			return fmt.Sprintf("Table$values(%s)", obj)
		}
	case types.Text:
		if nn.Name == "length" {
			return fmt.Sprintf("Text$length(%s)", obj)
		}
	case types.Module:
		return fmt.Sprintf("%s$%s", mangleName(t.Name), nn.Name)
	}
	return fmt.Sprintf("(%s).%s", obj, nn.Name)
}

func (em *Emitter) emitIndex(s *scope, nn *ast.Index) string {
	obj := em.emitExpr(s, nn.Obj)
	if nn.Index == nil {
		return fmt.Sprintf("(*%s)", obj)
	}
	idx := em.emitExpr(s, nn.Index)
	objType := em.c.TypeOf(nn.Obj)
	switch objType.(type) {
	case types.List:
		if nn.Unchecked {
			return fmt.Sprintf("List$get_unchecked(%s, %s)", obj, idx)
		}
		return fmt.Sprintf("List$get(%s, %s)", obj, idx)
	case types.Table:
		return fmt.Sprintf("Table$get(%s, %s)", obj, idx)
	}
	return fmt.Sprintf("%s[%s]", obj, idx)
}
