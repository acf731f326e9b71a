package emitter

import (
	"fmt"
	"strings"

	"github.com/tomo-lang/tomo/internal/ast"
	"github.com/tomo-lang/tomo/internal/env"
	"github.com/tomo-lang/tomo/internal/types"
)

// emitBlock renders every statement of b as a sequence of C statements
// (not an expression), followed by this scope's own deferred blocks run in
// reverse on normal fall-through (spec §5 "unwinds the stack... emitting
// each deferred block in reverse order").
func (em *Emitter) emitBlock(s *scope, b *ast.Block) string {
	inner := s.child()
	var out strings.Builder
	for _, st := range b.Statements {
		out.WriteString(em.emitStmt(inner, st))
		out.WriteString("\n")
	}
	out.WriteString(em.unwindDefers(inner, inner.deferred))
	return out.String()
}

// emitBlockExpr is for a Block used where an expression is expected
// (spec §4.3's statement-expression wrapping): the last statement's value
// becomes the GCC statement-expression's result.
func (em *Emitter) emitBlockExpr(s *scope, b *ast.Block) string {
	if len(b.Statements) == 0 {
		return "((void)0)"
	}
	inner := s.child()
	var out strings.Builder
	out.WriteString("({ ")
	for i, st := range b.Statements {
		if i == len(b.Statements)-1 {
			if ex, ok := st.(ast.Expr); ok {
				out.WriteString(em.emitExpr(inner, ex) + ";")
				continue
			}
		}
		out.WriteString(em.emitStmt(inner, st))
		out.WriteString(" ")
	}
	out.WriteString(em.unwindDefers(inner, inner.deferred))
	out.WriteString(" })")
	return out.String()
}

func (em *Emitter) emitStmt(s *scope, st ast.Stmt) string {
	if dec, ok := st.(*ast.Use); ok {
		em.emitUse(s, dec)
		return ""
	}
	if ex, ok := st.(ast.Expr); ok {
		return lineDirective(st) + em.emitExpr(s, ex) + ";"
	}
	return fmt.Sprintf("/* unsupported stmt %T */", st)
}

// unwindDefers renders defers in reverse declaration order (LIFO).
func (em *Emitter) unwindDefers(s *scope, defers []*ast.Block) string {
	var out strings.Builder
	for i := len(defers) - 1; i >= 0; i-- {
		out.WriteString(em.emitBlock(s, defers[i]))
	}
	return out.String()
}

// deferredSince collects every deferred block between s (inclusive) and
// boundary (exclusive), innermost first, for an early exit (return/skip/
// stop) that needs to unwind through more than one scope.
func deferredSince(s *scope, boundary *scope) []*ast.Block {
	var out []*ast.Block
	for p := s; p != nil && p != boundary; p = p.outer {
		for i := len(p.deferred) - 1; i >= 0; i-- {
			out = append(out, p.deferred[i])
		}
	}
	return out
}

func (em *Emitter) unwind(s *scope, boundary *scope) string {
	var out strings.Builder
	for _, d := range deferredSince(s, boundary) {
		out.WriteString(em.emitBlock(s, d))
	}
	return out.String()
}

func (em *Emitter) functionBoundary(s *scope) *scope {
	for p := s; p != nil; p = p.outer {
		if p.funcBoundary {
			return p
		}
	}
	return nil
}

func (em *Emitter) emitReturn(s *scope, nn *ast.Return) string {
	unwind := em.unwind(s, em.functionBoundary(s))
	if nn.Value == nil {
		return fmt.Sprintf("({ %s return; })", unwind)
	}
	v := em.emitExpr(s, nn.Value)
	return fmt.Sprintf("({ %s return %s; })", unwind, v)
}

func (em *Emitter) findLoopScope(s *scope, target string) *scope {
	for p := s; p != nil; p = p.outer {
		if p.stopLabel != "" {
			if target == "" || p.skipLabel == "skip_"+target || strings.HasSuffix(p.skipLabel, "_"+target) {
				return p
			}
		}
	}
	for p := s; p != nil; p = p.outer {
		if p.stopLabel != "" {
			return p
		}
	}
	return nil
}

func (em *Emitter) emitSkip(s *scope, nn *ast.Skip) string {
	loop := em.findLoopScope(s, nn.Target)
	if loop == nil {
		return "continue"
	}
	return fmt.Sprintf("({ %s goto %s; })", em.unwind(s, loop), loop.skipLabel)
}

func (em *Emitter) emitStop(s *scope, nn *ast.Stop) string {
	loop := em.findLoopScope(s, nn.Target)
	if loop == nil {
		return "break"
	}
	return fmt.Sprintf("({ %s goto %s; })", em.unwind(s, loop), loop.stopLabel)
}

// ---- Declare / Assign -------------------------------------------------------

func (em *Emitter) emitDeclare(s *scope, nn *ast.Declare) string {
	t := em.c.TypeOf(nn.Var)
	cName := em.freshLocalName(nn.Var.Name)
	s.define(nn.Var.Name, cName)
	if nn.Value == nil {
		return fmt.Sprintf("%s %s;", CType(t), cName)
	}
	val := em.emitExpr(s, nn.Value)
	return fmt.Sprintf("%s %s = %s;", CType(t), cName, val)
}

// freshLocalName keeps the Tomo name when it cannot collide (the common
// case); C's block scoping means shadowing across nested blocks is safe
// without renaming, so this is the identity in practice.
func (em *Emitter) freshLocalName(tomoName string) string { return tomoName }

func (em *Emitter) emitAssign(s *scope, nn *ast.Assign) string {
	var out strings.Builder
	out.WriteString("({ ")
	tmp := make([]string, len(nn.Values))
	for i, v := range nn.Values {
		tmp[i] = em.freshTemp("tmp")
		fmt.Fprintf(&out, "typeof(%s) %s = %s; ", em.emitExpr(s, v), tmp[i], em.emitExpr(s, v))
	}
	for i, tgt := range nn.Targets {
		fmt.Fprintf(&out, "%s = %s; ", em.emitExpr(s, tgt), tmp[i])
	}
	out.WriteString("})")
	return out.String()
}

// ---- If / When --------------------------------------------------------------

func (em *Emitter) emitIf(s *scope, nn *ast.If) string {
	thenScope := s.child()
	var cond string
	if dec, ok := nn.Cond.(*ast.Declare); ok {
		decCode := em.emitDeclare(thenScope, dec)
		cond = fmt.Sprintf("!(%s).is_none", thenScope.resolve(dec.Var.Name))
		body := em.emitBlock(thenScope, nn.Body)
		if nn.Else == nil {
			return fmt.Sprintf("{ %s if (%s) { %s } }", decCode, cond, body)
		}
		elseCode := em.emitElse(s, nn.Else)
		return fmt.Sprintf("{ %s if (%s) { %s } else { %s } }", decCode, cond, body, elseCode)
	}
	cond = em.emitExpr(s, nn.Cond)
	body := em.emitBlock(thenScope, nn.Body)
	if nn.Else == nil {
		return fmt.Sprintf("if (%s) { %s }", cond, body)
	}
	return fmt.Sprintf("if (%s) { %s } else { %s }", cond, body, em.emitElse(s, nn.Else))
}

func (em *Emitter) emitElse(s *scope, els ast.Stmt) string {
	if b, ok := els.(*ast.Block); ok {
		return em.emitBlock(s, b)
	}
	return em.emitStmt(s, els)
}

// emitWhen lowers to a tag switch with per-arm field destructuring (spec
// §4.3 "lowers to switch (x.tag) with per-arm field destructuring"); a
// non-enum subject instead chains `==` comparisons against a hoisted
// temporary.
func (em *Emitter) emitWhen(s *scope, nn *ast.When) string {
	subjectType := em.c.TypeOf(nn.Subject)
	enum, isEnum := subjectType.(*types.Enum)
	subjTmp := em.freshTemp("subj")
	subjExpr := em.emitExpr(s, nn.Subject)

	var out strings.Builder
	fmt.Fprintf(&out, "({ typeof(%s) %s = %s; ", subjExpr, subjTmp, subjExpr)

	if !isEnum {
		out.WriteString("if (0) {}")
		for _, clause := range nn.Clauses {
			ce := s.child()
			fmt.Fprintf(&out, " else if (%s == %s) { %s }", subjTmp, clause.Pattern.Tag, em.emitBlock(ce, clause.Body))
		}
		if nn.Else != nil {
			fmt.Fprintf(&out, " else { %s }", em.emitBlock(s.child(), nn.Else))
		}
		out.WriteString("; })")
		return out.String()
	}

	fmt.Fprintf(&out, "switch (%s.tag) {", subjTmp)
	for _, clause := range nn.Clauses {
		ce := s.child()
		var tagIdx int
		var inner *types.Struct
		for _, tag := range enum.Tags {
			if tag.Name == clause.Pattern.Tag {
				tagIdx = enum.TagIndex(tag.Name)
				inner = tag.Inner
			}
		}
		fmt.Fprintf(&out, " case %d: {", tagIdx)
		if inner != nil {
			for i, bindName := range clause.Pattern.Binds {
				if i < len(inner.Fields) {
					f := inner.Fields[i]
					fmt.Fprintf(&out, " %s %s = %s.payload.%s.%s;", CType(f.Type), bindName, subjTmp, clause.Pattern.Tag, f.Name)
					ce.define(bindName, bindName)
				}
			}
		}
		fmt.Fprintf(&out, " %s break; }", em.emitBlock(ce, clause.Body))
	}
	if nn.Else != nil {
		fmt.Fprintf(&out, " default: { %s break; }", em.emitBlock(s.child(), nn.Else))
	}
	out.WriteString(" }; })")
	return out.String()
}

// ---- For / While / Repeat ---------------------------------------------------

// emitFor picks one of five strategies by the iterable's type (spec §4.3
// "for x in iter chooses one of five strategies").
func (em *Emitter) emitFor(s *scope, nn *ast.For) string {
	iterType := em.c.TypeOf(nn.Iter)
	if rt, ok := iterType.(types.Range); ok {
		return em.emitRangeFor(s, nn, rt)
	}
	iter := em.emitExpr(s, nn.Iter)
	idxVar := em.freshTemp("i")
	loopName := nn.Name
	skipLabel, stopLabel := "skip_"+loopName, "stop_"+loopName
	body := s.childLoop(skipLabel, stopLabel)

	var bindings strings.Builder
	switch it := iterType.(type) {
	case types.List:
		if len(nn.Vars) == 2 {
			body.define(nn.Vars[0].Name, idxVar)
			fmt.Fprintf(&bindings, "%s %s = %s.data[%s];", CType(it.Item), nn.Vars[1].Name, iter, idxVar)
			body.define(nn.Vars[1].Name, nn.Vars[1].Name)
		} else if len(nn.Vars) == 1 {
			fmt.Fprintf(&bindings, "%s %s = %s.data[%s];", CType(it.Item), nn.Vars[0].Name, iter, idxVar)
			body.define(nn.Vars[0].Name, nn.Vars[0].Name)
		}
		bodyCode := em.emitBlock(body, nn.Body)
		loop := fmt.Sprintf("for (int64_t %s = 0; %s < (%s).length; %s++) { %s %s %s: ; }", idxVar, idxVar, iter, idxVar, bindings.String(), bodyCode, skipLabel)
		return em.wrapForEmpty(s, loop, iter, nn.Empty, stopLabel)
	case interface{ Kind() types.Kind }:
		if it.Kind() == types.KBigInt {
			if len(nn.Vars) >= 1 {
				body.define(nn.Vars[0].Name, nn.Vars[0].Name)
				fmt.Fprintf(&bindings, "Int_t %s = %s;", nn.Vars[0].Name, idxVar)
			}
			bodyCode := em.emitBlock(body, nn.Body)
			loop := fmt.Sprintf("for (Int_t %s = Int(0); Int$compare(%s, %s) < 0; %s = Int$plus(%s, Int(1))) { %s %s %s: ; }",
				idxVar, idxVar, iter, idxVar, idxVar, bindings.String(), bodyCode, skipLabel)
			return em.wrapLoop(loop, stopLabel)
		}
	case types.Set:
		if len(nn.Vars) == 2 {
			body.define(nn.Vars[0].Name, idxVar)
			body.define(nn.Vars[1].Name, fmt.Sprintf("%s.entries[%s].key", iter, idxVar))
		} else if len(nn.Vars) == 1 {
			body.define(nn.Vars[0].Name, fmt.Sprintf("%s.entries[%s].key", iter, idxVar))
		}
		bodyCode := em.emitBlock(body, nn.Body)
		loop := fmt.Sprintf("for (int64_t %s = 0; %s < (%s).length; %s++) { %s %s: ; }", idxVar, idxVar, iter, idxVar, bodyCode, skipLabel)
		return em.wrapForEmpty(s, loop, iter, nn.Empty, stopLabel)
	case types.Table:
		if len(nn.Vars) == 2 {
			body.define(nn.Vars[0].Name, fmt.Sprintf("%s.entries[%s].key", iter, idxVar))
			body.define(nn.Vars[1].Name, fmt.Sprintf("%s.entries[%s].value", iter, idxVar))
		}
		bodyCode := em.emitBlock(body, nn.Body)
		loop := fmt.Sprintf("for (int64_t %s = 0; %s < (%s).length; %s++) { %s %s: ; }", idxVar, idxVar, iter, idxVar, bodyCode, skipLabel)
		return em.wrapForEmpty(s, loop, iter, nn.Empty, stopLabel)
	case types.Closure:
		// Iterator-closure loop: call repeatedly until the Done tag.
		next := em.freshTemp("next")
		var bind string
		if done, ok := it.Fn.Ret.(*types.Enum); ok && len(nn.Vars) >= 1 {
			for _, tag := range done.Tags {
				if tag.Name == "Next" && tag.Inner != nil && len(tag.Inner.Fields) > 0 {
					body.define(nn.Vars[0].Name, nn.Vars[0].Name)
					bind = fmt.Sprintf("%s %s = %s.payload.Next.%s;", CType(tag.Inner.Fields[0].Type), nn.Vars[0].Name, next, tag.Inner.Fields[0].Name)
				}
			}
		}
		bodyCode := em.emitBlock(body, nn.Body)
		loop := fmt.Sprintf("for (;;) { typeof((%s).fn(NULL)) %s = (%s).fn((%s).userdata); if (%s.tag == 0) break; %s %s %s: ; }",
			iter, next, iter, iter, next, bind, bodyCode, skipLabel)
		return em.wrapLoop(loop, stopLabel)
	}
	bodyCode := em.emitBlock(body, nn.Body)
	return em.wrapLoop(fmt.Sprintf("for (int64_t %s = 0;;%s++) { %s %s: ; }", idxVar, idxVar, bodyCode, skipLabel), stopLabel)
}

// emitRangeFor lowers `for x in a.to(b)` to a direct C counted loop with no
// backing List_t (spec §4.3's "counted integer loop (specialized for
// Int.to(...))"). The range only ever arises from a `.to(...)` MethodCall,
// since types.Range has no literal syntax of its own.
func (em *Emitter) emitRangeFor(s *scope, nn *ast.For, rt types.Range) string {
	mc, ok := nn.Iter.(*ast.MethodCall)
	if !ok || mc.Name != "to" || len(mc.Args) != 1 {
		panic("emitRangeFor: iterable typed as a Range did not lower from a .to(...) call")
	}
	from := em.emitExpr(s, mc.Self)
	to := em.emitExpr(s, mc.Args[0].Value)

	loopName := nn.Name
	skipLabel, stopLabel := "skip_"+loopName, "stop_"+loopName
	body := s.childLoop(skipLabel, stopLabel)

	idxVar := em.freshTemp("i")
	if len(nn.Vars) >= 1 {
		body.define(nn.Vars[0].Name, idxVar)
	}
	bodyCode := em.emitBlock(body, nn.Body)

	var loop string
	if isBigIntType(rt.Item) {
		loop = fmt.Sprintf("for (Int_t %s = %s; Int$compare(%s, %s) <= 0; %s = Int$plus(%s, Int(1))) { %s %s: ; }",
			idxVar, from, idxVar, to, idxVar, idxVar, bodyCode, skipLabel)
	} else {
		ctype := CType(rt.Item)
		loop = fmt.Sprintf("for (%s %s = %s; %s <= %s; %s++) { %s %s: ; }",
			ctype, idxVar, from, idxVar, to, idxVar, bodyCode, skipLabel)
	}
	return em.wrapLoop(loop, stopLabel)
}

func (em *Emitter) wrapLoop(loop, stopLabel string) string {
	return fmt.Sprintf("{ %s %s: ; }", loop, stopLabel)
}

func (em *Emitter) wrapForEmpty(s *scope, loop, iter string, empty *ast.Block, stopLabel string) string {
	if empty == nil {
		return em.wrapLoop(loop, stopLabel)
	}
	emptyCode := em.emitBlock(s.child(), empty)
	return fmt.Sprintf("{ if ((%s).length == 0) { %s } else { %s } %s: ; }", iter, emptyCode, loop, stopLabel)
}

func (em *Emitter) emitWhileRepeat(s *scope, cond ast.Expr, body *ast.Block, name string) string {
	skipLabel, stopLabel := "skip_"+name, "stop_"+name
	inner := s.childLoop(skipLabel, stopLabel)
	condCode := "true"
	if cond != nil {
		condCode = em.emitExpr(s, cond)
	}
	bodyCode := em.emitBlock(inner, body)
	return fmt.Sprintf("{ while (%s) { %s %s: ; } %s: ; }", condCode, bodyCode, skipLabel, stopLabel)
}

// ---- Calls ------------------------------------------------------------------

func (em *Emitter) emitCall(s *scope, nn *ast.FunctionCall) string {
	fn := em.emitExpr(s, nn.Fn)
	var args []string
	for _, a := range nn.Args {
		args = append(args, em.emitExpr(s, a.Value))
	}
	return fmt.Sprintf("%s(%s)", fn, strings.Join(args, ", "))
}

func (em *Emitter) emitMethodCall(s *scope, nn *ast.MethodCall) string {
	selfType := em.c.TypeOf(nn.Self)
	self := em.emitExpr(s, nn.Self)
	var args []string
	for _, a := range nn.Args {
		args = append(args, em.emitExpr(s, a.Value))
	}
	argList := strings.Join(append([]string{self}, args...), ", ")

	switch t := selfType.(type) {
	case *types.Struct:
		return fmt.Sprintf("%s$%s(%s)", mangleName(t.Name), nn.Name, argList)
	case *types.Enum:
		return fmt.Sprintf("%s$%s(%s)", mangleName(t.Name), nn.Name, argList)
	case types.Pointer:
		return fmt.Sprintf("%s$%s(%s)", mangleName(CType(t.Pointed)), nn.Name, argList)
	}
	return fmt.Sprintf("%s$%s(%s)", mangleName(CType(selfType)), nn.Name, argList)
}

// emitReduction desugars `(op: iter)` to a fold loop (spec §4.3
// "Reductions... desugar to a loop that accumulates via op").
func (em *Emitter) emitReduction(s *scope, nn *ast.Reduction) string {
	iterType := em.c.TypeOf(nn.Iter)
	iter := em.emitExpr(s, nn.Iter)
	acc := em.freshTemp("fold")
	idx := em.freshTemp("i")
	var itemType types.Type
	switch it := iterType.(type) {
	case types.List:
		itemType = it.Item
	case types.Set:
		itemType = it.Item
	}
	item := fmt.Sprintf("%s.data[%s]", iter, idx)
	var combine string
	switch nn.Op {
	case "Min", "Max":
		// nn.Key (spec grammar `_min_ .field`) projects a field to compare on;
		// absent it, the item itself is the comparison key.
		keyOf := func(v string) string { return v }
		if nn.Key != nil {
			if fa, ok := nn.Key.(*ast.FieldAccess); ok {
				keyOf = func(v string) string { return fmt.Sprintf("%s.%s", v, fa.Name) }
			}
		}
		cmp := "<"
		if nn.Op == "Max" {
			cmp = ">"
		}
		combine = fmt.Sprintf("(%s %s %s) ? %s : %s", keyOf(acc), cmp, keyOf(item), acc, item)
	case "And":
		combine = fmt.Sprintf("((%s) ? (%s) : (%s))", acc, item, acc)
	case "Or":
		combine = fmt.Sprintf("((%s) ? (%s) : (%s))", acc, acc, item)
	default:
		opCode := cOperator[nn.Op]
		if ov, ok := overloadName(itemType); ok {
			if name, has := operatorOverload(nn.Op); has {
				combine = fmt.Sprintf("%s$%s(%s, %s)", ov, name, acc, item)
				break
			}
		}
		combine = fmt.Sprintf("(%s %s %s)", acc, opCode, item)
	}
	return fmt.Sprintf(
		"({ %s %s; bool _found = false; for (int64_t %s = 0; %s < (%s).length; %s++) { if (!_found) { %s = %s.data[%s]; _found = true; } else { %s = %s; } } _found ? optional_some(%s) : optional_none(%s); })",
		CType(itemType), acc, idx, idx, iter, idx, acc, iter, idx, acc, combine, acc, CType(itemType))
}

// ---- Struct/enum method & extend --------------------------------------------

func (em *Emitter) emitExtend(s *scope, d *ast.Extend) {
	target := em.resolveType(d.Target)
	ns := s.child()
	if st, ok := target.(*types.Struct); ok {
		if e, ok := st.Env.(*env.Env); ok {
			ns.lookupEnv = e
		}
		ns.namespace = append(append([]string{}, s.namespace...), st.Name)
	} else if en, ok := target.(*types.Enum); ok {
		if e, ok := en.Env.(*env.Env); ok {
			ns.lookupEnv = e
		}
		ns.namespace = append(append([]string{}, s.namespace...), en.Name)
	}
	for _, st := range d.Body.Statements {
		if fd, ok := st.(*ast.FunctionDef); ok {
			em.emitFunctionDef(ns, fd)
		}
		// Only FunctionDef children are emitted; a ConvertDef produces no
		// C output.
	}
}

// emitFunctionDef renders the prototype, body, and — if the function
// carries a cache spec — the memoizing wrapper (spec §4.3 "Function
// caching").
func (em *Emitter) emitFunctionDef(s *scope, d *ast.FunctionDef) {
	fn, ok := asFunctionBinding(s.lookupEnv, d.Name)
	if !ok {
		fn = types.Function{Ret: types.Void}
	}
	mangled := Mangle(s.namespace, d.Name)
	bodyName := mangled
	if d.Cache != nil {
		bodyName = mangled + "$uncached"
	}

	fe := s.childFunction()
	var paramDecls []string
	for i, p := range d.Args {
		var t types.Type = types.Unknown
		if i < len(fn.Args) {
			t = fn.Args[i]
		}
		paramDecls = append(paramDecls, fmt.Sprintf("%s %s", CType(t), p.Name))
		fe.define(p.Name, p.Name)
	}
	bodyCode := em.emitBlock(fe, d.Body)

	proto := fmt.Sprintf("%s %s(%s)", CType(fn.Ret), bodyName, strings.Join(paramDecls, ", "))
	em.funcProtos = append(em.funcProtos, proto+";")
	em.staticDefs = append(em.staticDefs, fmt.Sprintf("%s {\n%s\n}", proto, bodyCode))

	if d.Cache != nil {
		em.emitCacheWrapper(mangled, bodyName, d, fn)
	}
}

func asFunctionBinding(e *env.Env, name string) (types.Function, bool) {
	if e == nil {
		return types.Function{}, false
	}
	b, ok := e.LookupLocal(name)
	if !ok {
		return types.Function{}, false
	}
	fn, ok := b.Type.(types.Function)
	return fn, ok
}

// emitCacheWrapper generates a module-scope Table_t keyed on the packed
// argument tuple, evicting a random entry past the configured size (spec
// §4.3 "Function caching").
func (em *Emitter) emitCacheWrapper(mangled, uncachedName string, d *ast.FunctionDef, fn types.Function) {
	em.cacheCounter++
	tableName := fmt.Sprintf("%s$cache", mangled)
	keyStructName := fmt.Sprintf("%s$cache_key", mangled)

	var fields []string
	var argNames []string
	for i, p := range d.Args {
		var t types.Type = types.Unknown
		if i < len(fn.Args) {
			t = fn.Args[i]
		}
		fields = append(fields, fmt.Sprintf("    %s %s;", CType(t), p.Name))
		argNames = append(argNames, p.Name)
	}
	em.localTypedefs = append(em.localTypedefs, fmt.Sprintf("typedef struct {\n%s\n} %s;", strings.Join(fields, "\n"), keyStructName))
	em.staticDefs = append(em.staticDefs, fmt.Sprintf("static Table_t %s = {0};", tableName))

	var paramDecls []string
	for i, p := range d.Args {
		var t types.Type = types.Unknown
		if i < len(fn.Args) {
			t = fn.Args[i]
		}
		paramDecls = append(paramDecls, fmt.Sprintf("%s %s", CType(t), p.Name))
	}
	maxSize := "SIZE_MAX"
	if d.Cache.Size > 0 {
		maxSize = fmt.Sprintf("%d", d.Cache.Size)
	}
	var body strings.Builder
	fmt.Fprintf(&body, "%s _key = {%s};\n", keyStructName, strings.Join(argNames, ", "))
	fmt.Fprintf(&body, "    Optional_%s_t *_cached = Table$get(&%s, &_key);\n", mangleName(CType(fn.Ret)), tableName)
	body.WriteString("    if (_cached) return *_cached;\n")
	fmt.Fprintf(&body, "    %s _result = %s(%s);\n", CType(fn.Ret), uncachedName, strings.Join(argNames, ", "))
	fmt.Fprintf(&body, "    if (%s.length >= %s) Table$remove_random_entry(&%s);\n", tableName, maxSize, tableName)
	fmt.Fprintf(&body, "    Table$set(&%s, &_key, &_result);\n", tableName)
	body.WriteString("    return _result;")

	proto := fmt.Sprintf("%s %s(%s)", CType(fn.Ret), mangled, strings.Join(paramDecls, ", "))
	em.funcProtos = append(em.funcProtos, proto+";")
	em.staticDefs = append(em.staticDefs, fmt.Sprintf("%s {\n    %s\n}", proto, body.String()))
}

// ---- Lambda -----------------------------------------------------------------

// emitLambda lifts n to a static top-level function plus a synthesized
// user-data struct for captured variables (spec §4.3 "Lambdas are lifted to
// static top-level functions... the call site emits
// ((Closure_t){fn, &userdata})").
func (em *Emitter) emitLambda(s *scope, nn *ast.Lambda) string {
	em.lambdaCounter++
	// A counter is unique within one Emitter, but lambdas nested inside
	// loops/comprehensions inside functions that themselves get inlined or
	// duplicated by the C compiler's own expansion need a name that can't
	// collide across separately-compiled translation units either; a uuid
	// suffix gives that guarantee cheaply, the same role funxy's ext tests
	// reach for uuid.New() to mint collision-free identifiers.
	name := fmt.Sprintf("_lambda%d_%s", em.lambdaCounter, shortUUID())
	userDataName := name + "$env"

	captured := freeVarsInLambda(nn)
	var fields []string
	for _, v := range captured {
		if _, ok := s.vars[v]; !ok {
			continue
		}
		fields = append(fields, fmt.Sprintf("    void *%s;", v))
	}
	em.localTypedefs = append(em.localTypedefs, fmt.Sprintf("typedef struct {\n%s\n} %s;", strings.Join(fields, "\n"), userDataName))

	fnType, _ := em.c.TypeOf(nn).(types.Closure)
	fe := s.childFunction()
	var paramDecls []string
	paramDecls = append(paramDecls, fmt.Sprintf("%s *_env", userDataName))
	for i, p := range nn.Args {
		var t types.Type = types.Unknown
		if i < len(fnType.Fn.Args) {
			t = fnType.Fn.Args[i]
		}
		paramDecls = append(paramDecls, fmt.Sprintf("%s %s", CType(t), p.Name))
		fe.define(p.Name, p.Name)
	}
	bodyCode := em.emitBlock(fe, nn.Body)
	proto := fmt.Sprintf("static %s %s(%s)", CType(fnType.Fn.Ret), name, strings.Join(paramDecls, ", "))
	em.lambdaBodies = append(em.lambdaBodies, fmt.Sprintf("%s {\n%s\n}", proto, bodyCode))

	return fmt.Sprintf("((Closure_t){.fn=%s, .userdata=&(%s){0}})", name, userDataName)
}

// freeVarsInLambda collects Var names referenced in the lambda body, to
// decide which enclosing locals the synthesized userdata struct captures.
func freeVarsInLambda(n *ast.Lambda) []string {
	seen := map[string]bool{}
	var names []string
	var walk func(ast.Expr)
	walkStmt := func(s ast.Stmt) {
		if ex, ok := s.(ast.Expr); ok {
			walk(ex)
		}
	}
	walk = func(e ast.Expr) {
		if e == nil {
			return
		}
		if bo, ok := e.(interface{ Operands() (ast.Expr, ast.Expr) }); ok {
			l, r := bo.Operands()
			walk(l)
			walk(r)
			return
		}
		if uo, ok := e.(interface{ UnaryOperand() ast.Expr }); ok {
			walk(uo.UnaryOperand())
			return
		}
		switch nn := e.(type) {
		case *ast.Var:
			if !seen[nn.Name] {
				seen[nn.Name] = true
				names = append(names, nn.Name)
			}
		case *ast.FieldAccess:
			walk(nn.Obj)
		case *ast.Index:
			walk(nn.Obj)
			walk(nn.Index)
		case *ast.FunctionCall:
			walk(nn.Fn)
			for _, a := range nn.Args {
				walk(a.Value)
			}
		case *ast.MethodCall:
			walk(nn.Self)
			for _, a := range nn.Args {
				walk(a.Value)
			}
		case *ast.Block:
			for _, st := range nn.Statements {
				walkStmt(st)
			}
		}
	}
	for _, st := range n.Body.Statements {
		walkStmt(st)
	}
	return names
}
