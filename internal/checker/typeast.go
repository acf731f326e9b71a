package checker

import (
	"github.com/tomo-lang/tomo/internal/ast"
	"github.com/tomo-lang/tomo/internal/config"
	"github.com/tomo-lang/tomo/internal/diagnostics"
	"github.com/tomo-lang/tomo/internal/env"
	"github.com/tomo-lang/tomo/internal/types"
)

// resolveType turns a surface type AST (spec §3.3) into a semantic
// types.Type, looking up named types in e (spec §4.1 "parseType(string) ->
// typeAst" feeds this at the checker boundary).
func (c *Checker) resolveType(e *env.Env, t ast.Type) types.Type {
	if t == nil {
		return types.Unknown
	}
	switch tt := t.(type) {
	case *ast.VarTypeAST:
		return c.resolveNamed(e, tt)
	case *ast.PointerTypeAST:
		return types.Pointer{Pointed: c.resolveType(e, tt.Pointed), IsStack: tt.IsStack}
	case *ast.ListTypeAST:
		return types.List{Item: c.resolveType(e, tt.Item)}
	case *ast.SetTypeAST:
		return types.Set{Item: c.resolveType(e, tt.Item)}
	case *ast.TableTypeAST:
		tbl := types.Table{Key: c.resolveType(e, tt.Key), Value: c.resolveType(e, tt.Value)}
		if tt.DefaultExpr != nil {
			tbl.DefaultValue = c.getType(e, tt.DefaultExpr)
		}
		return tbl
	case *ast.FunctionTypeAST:
		args := make([]types.Type, len(tt.Args))
		for i, a := range tt.Args {
			args[i] = c.resolveType(e, a)
		}
		ret := types.Type(types.Void)
		if tt.Ret != nil {
			ret = c.resolveType(e, tt.Ret)
		}
		return types.Function{Args: args, Ret: ret}
	case *ast.OptionalTypeAST:
		inner := c.resolveType(e, tt.Inner)
		if opt, ok := inner.(types.Optional); ok {
			return opt
		}
		return types.Optional{Inner: inner}
	case *ast.EnumTypeAST:
		return c.buildEnumType(e, tt.Name, tt.Tags)
	case *ast.UnknownTypeAST:
		return types.Unknown
	}
	return types.Unknown
}

// resolveNamed resolves a bare identifier type, covering both user-defined
// names and Tomo's built-in generic-looking names (config.TypeNameList etc.
// only appear written out as `[T]`/`{T}` in source, so this path is plain
// lookups plus the handful of built-in scalar spellings).
func (c *Checker) resolveNamed(e *env.Env, t *ast.VarTypeAST) types.Type {
	switch t.Name {
	case config.TypeNameBool:
		return types.Bool
	case config.TypeNameInt:
		return types.Int64
	case config.TypeNameNum:
		return types.Num64
	case config.TypeNameText:
		return types.Text{}
	case config.TypeNameMoment:
		return types.Moment
	case config.TypeNameMemory:
		return types.Memory
	case "Int8":
		return types.Int8
	case "Int16":
		return types.Int16
	case "Int32":
		return types.Int32
	case "Int64":
		return types.Int64
	case "Num32":
		return types.Num32t
	case "Byte":
		return types.Byte
	case "Void":
		return types.Void
	case "CString":
		return types.CString
	case "Abort":
		return types.Abort
	}
	if named, ok := e.LookupType(t.Name); ok {
		return named
	}
	c.sink.Fail(diagnostics.ErrBUnknownName, t.Span(), "unknown type %q", t.Name)
	return types.Unknown
}

func (c *Checker) buildEnumType(e *env.Env, name string, tagDefs []*ast.EnumTagDef) *types.Enum {
	enum := &types.Enum{Name: name}
	for _, td := range tagDefs {
		var inner *types.Struct
		if len(td.Fields) > 0 {
			inner = &types.Struct{Name: td.Name}
			for _, f := range td.Fields {
				inner.Fields = append(inner.Fields, types.Field{Name: f.Name, Type: c.resolveType(e, f.TypeAST)})
			}
		}
		enum.Tags = append(enum.Tags, types.EnumTag{Name: td.Name, Inner: inner})
	}
	return enum
}
