package checker

import (
	"github.com/tomo-lang/tomo/internal/ast"
	"github.com/tomo-lang/tomo/internal/diagnostics"
	"github.com/tomo-lang/tomo/internal/env"
	"github.com/tomo-lang/tomo/internal/types"
)

// prebind is spec §4.2's pass 1: struct/enum/lang/extern/function names go
// into scope with their declared (or, for structs/enums, stub) types before
// any body is checked, so mutually recursive references resolve.
func (c *Checker) prebind(root *env.Env, stmts []ast.Stmt) {
	// Step 1: register named-type stubs so field/parameter types referring
	// forward or circularly to each other resolve in step 2.
	for _, s := range stmts {
		switch d := s.(type) {
		case *ast.StructDef:
			strct := &types.Struct{Name: d.Name, IsOpaque: d.IsOpaque, IsPacked: d.IsPacked, IsSecret: d.IsSecret}
			ns := root.ChildNamespace(d.Name)
			strct.Env = ns
			root.DefineType(d.Name, strct)
			root.Define(d.Name, &Binding{Type: types.TypeInfo{Name: d.Name, Of: strct, Env: ns}, Code: d.Name, IsConstant: true, Def: d})
		case *ast.EnumDef:
			enum := &types.Enum{Name: d.Name}
			ns := root.ChildNamespace(d.Name)
			enum.Env = ns
			root.DefineType(d.Name, enum)
			root.Define(d.Name, &Binding{Type: types.TypeInfo{Name: d.Name, Of: enum, Env: ns}, Code: d.Name, IsConstant: true, Def: d})
		case *ast.LangDef:
			root.DefineType(d.Name, types.Text{Lang: d.Name})
		}
	}

	// Step 2: fill in struct fields / enum tags now that every named type
	// stub exists.
	for _, s := range stmts {
		switch d := s.(type) {
		case *ast.StructDef:
			st, _ := root.LookupType(d.Name)
			strct := st.(*types.Struct)
			for _, fd := range d.Fields {
				strct.Fields = append(strct.Fields, types.Field{Name: fd.Name, Type: c.resolveType(root, fd.TypeAST)})
			}
		case *ast.EnumDef:
			et, _ := root.LookupType(d.Name)
			enum := et.(*types.Enum)
			for _, td := range d.Tags {
				var inner *types.Struct
				if len(td.Fields) > 0 {
					inner = &types.Struct{Name: d.Name + "." + td.Name}
					for _, f := range td.Fields {
						inner.Fields = append(inner.Fields, types.Field{Name: f.Name, Type: c.resolveType(root, f.TypeAST)})
					}
				}
				enum.Tags = append(enum.Tags, types.EnumTag{Name: td.Name, Inner: inner})
			}
		}
	}

	// Step 3: register function/extern names (not bodies) so calls made
	// from any top-level declaration resolve regardless of source order.
	for _, s := range stmts {
		switch d := s.(type) {
		case *ast.FunctionDef:
			root.Define(d.Name, &Binding{fnType(c, root, d), d.Name, false, d})
		case *ast.Extern:
			t := c.resolveType(root, d.Type)
			root.Define(d.Name, &Binding{t, d.Name, true, d})
		}
	}
}

// Binding mirrors env.Binding's shape; kept local so decl.go/expr.go can
// build one with named fields without importing env's unexported layout
// assumptions. Converts directly to *env.Binding.
type Binding = env.Binding

func fnType(c *Checker, e *env.Env, d *ast.FunctionDef) types.Type {
	args := make([]types.Type, len(d.Args))
	for i, p := range d.Args {
		if p.TypeAST != nil {
			args[i] = c.resolveType(e, p.TypeAST)
		} else {
			args[i] = types.Unknown // refined once the body is checked
		}
	}
	ret := types.Type(types.Unknown)
	if d.ReturnAST != nil {
		ret = c.resolveType(e, d.ReturnAST)
	}
	return types.Function{Args: args, Ret: ret}
}

// bindTopLevel is spec §4.2's pass 2: check every body, and for top-level
// value declarations walk them in dependency order, reporting a cycle
// between values (not types) as ErrBCycle.
func (c *Checker) bindTopLevel(root *env.Env, stmts []ast.Stmt) {
	declsByName := map[string]*ast.Declare{}
	var order []string
	for _, s := range stmts {
		if dec, ok := s.(*ast.Declare); ok && dec.Var != nil {
			if _, dup := declsByName[dec.Var.Name]; dup {
				c.sink.Fail(diagnostics.ErrBDuplicate, dec.Var.Span(), "%q is already declared in this scope", dec.Var.Name)
				continue
			}
			declsByName[dec.Var.Name] = dec
			order = append(order, dec.Var.Name)
		}
	}

	visiting := map[string]bool{}
	done := map[string]bool{}
	var visit func(name string)
	visit = func(name string) {
		dec, ok := declsByName[name]
		if !ok || done[name] {
			return
		}
		if visiting[name] {
			c.sink.Fail(diagnostics.ErrBCycle, dec.Span(), "cyclic initializer dependency involving %q", name)
			done[name] = true
			return
		}
		visiting[name] = true
		for _, dep := range freeVars(dec.Value) {
			if dep != name {
				visit(dep)
			}
		}
		visiting[name] = false
		done[name] = true
		c.checkStmt(root, dec)
	}
	for _, name := range order {
		visit(name)
	}

	// Bodies of structs/enums/langs/functions/externs, and every other
	// top-level statement (use, extend, bare calls), run after value
	// initializers are scheduled; their order relative to each other
	// follows source order since they do not participate in the value
	// dependency graph.
	for _, s := range stmts {
		switch d := s.(type) {
		case *ast.Declare:
			continue // already handled above
		case *ast.StructDef:
			c.checkStructBody(root, d)
		case *ast.EnumDef:
			c.checkEnumBody(root, d)
		case *ast.LangDef:
			c.checkLangBody(root, d)
		case *ast.FunctionDef:
			c.checkFunctionBody(root, d)
		case *ast.Extend:
			c.checkExtend(root, d)
		default:
			c.checkStmt(root, d)
		}
	}
}

func (c *Checker) checkStructBody(root *env.Env, d *ast.StructDef) {
	st, _ := root.LookupType(d.Name)
	strct := st.(*types.Struct)
	ns := strct.Env.(*env.Env)
	if d.Body != nil {
		c.checkBlock(ns, d.Body)
	}
}

func (c *Checker) checkEnumBody(root *env.Env, d *ast.EnumDef) {
	et, _ := root.LookupType(d.Name)
	enum := et.(*types.Enum)
	ns := enum.Env.(*env.Env)
	if d.Body != nil {
		c.checkBlock(ns, d.Body)
	}
}

func (c *Checker) checkLangBody(root *env.Env, d *ast.LangDef) {
	ns := root.ChildNamespace(d.Name)
	if d.Body != nil {
		c.checkBlock(ns, d.Body)
	}
}

// checkFunctionBody checks d's body in a fresh function scope and, if no
// return type was written, refines the prebound Function type's Ret from
// the body's computed type (spec §4.2 Lambda/FunctionDef: "return type is
// the body's type unless explicitly annotated").
func (c *Checker) checkFunctionBody(e *env.Env, d *ast.FunctionDef) {
	b, ok := e.Lookup(d.Name)
	if !ok {
		return
	}
	fn := b.Type.(types.Function)
	fe := e.ChildFunction(fn.Ret)
	for i, p := range d.Args {
		pt := fn.Args[i]
		if pt == types.Unknown && p.Default != nil {
			pt = c.getType(fe, p.Default)
			fn.Args[i] = pt
		}
		fe.Define(p.Name, &Binding{Type: pt, Code: p.Name, Def: p})
	}
	bodyType := c.checkBlock(fe, d.Body)
	if d.ReturnAST == nil {
		fn.Ret = bodyType
		b.Type = fn
	}
}

func (c *Checker) checkExtend(e *env.Env, d *ast.Extend) {
	target := c.resolveType(e, d.Target)
	ns := e.Child()
	// Narrow implementation (SPEC_FULL.md D.8): only FunctionDef/ConvertDef
	// children are accepted; everything else is "not yet implemented". New
	// methods are bound into the target type's own namespace scope when one
	// exists (struct/enum), falling back to a throwaway scope otherwise.
	if st, ok := target.(*types.Struct); ok {
		if env_, ok := st.Env.(*env.Env); ok {
			ns = env_
		}
	} else if en, ok := target.(*types.Enum); ok {
		if env_, ok := en.Env.(*env.Env); ok {
			ns = env_
		}
	}
	for _, s := range d.Body.Statements {
		switch fd := s.(type) {
		case *ast.FunctionDef:
			ns.Define(fd.Name, &Binding{Type: fnType(c, ns, fd), Code: fd.Name, Def: fd})
			c.checkFunctionBody(ns, fd)
		case *ast.ConvertDef:
			// Conversion functions are accepted here but are neither bound
			// in the namespace nor checked.
		default:
			c.sink.Fail(diagnostics.ErrSNotImplemented, s.Span(), "extend only supports function definitions")
		}
	}
}

// freeVars collects the Var names referenced anywhere inside e, for the
// top-level initializer dependency graph. It does not need to be precise
// about shadowing: over-approximating dependencies only delays an
// initializer, it never produces a wrong answer.
func freeVars(e ast.Expr) []string {
	var names []string
	var walk func(n ast.Expr)
	walkStmt := func(s ast.Stmt) {
		if ex, ok := s.(ast.Expr); ok {
			walk(ex)
		}
	}
	walk = func(n ast.Expr) {
		if n == nil {
			return
		}
		if bo, ok := n.(interface{ Operands() (ast.Expr, ast.Expr) }); ok {
			lhs, rhs := bo.Operands()
			walk(lhs)
			walk(rhs)
			return
		}
		if uo, ok := n.(interface{ UnaryOperand() ast.Expr }); ok {
			walk(uo.UnaryOperand())
			return
		}
		switch nn := n.(type) {
		case *ast.Var:
			names = append(names, nn.Name)
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
		case *ast.List:
			for _, it := range nn.Items {
				walk(it)
			}
		case *ast.Set:
			for _, it := range nn.Items {
				walk(it)
			}
		case *ast.Table:
			for _, ent := range nn.Entries {
				walk(ent.Key)
				walk(ent.Value)
			}
		case *ast.TextJoin:
			for _, ch := range nn.Chunks {
				walk(ch)
			}
		case *ast.Block:
			for _, st := range nn.Statements {
				walkStmt(st)
			}
		}
	}
	walk(e)
	return names
}
