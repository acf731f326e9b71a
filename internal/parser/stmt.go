package parser

import (
	"strings"

	"github.com/tomo-lang/tomo/internal/ast"
	"github.com/tomo-lang/tomo/internal/diagnostics"
	"github.com/tomo-lang/tomo/internal/span"
	"github.com/tomo-lang/tomo/internal/token"
)

// parseStatement parses one top-level-or-nested statement (spec §3.2).
func (p *parser) parseStatement() ast.Stmt {
	switch p.curType() {
	case token.KW_USE:
		return p.parseUse()
	case token.KW_STRUCT:
		return p.parseStructDef()
	case token.KW_ENUM:
		return p.parseEnumDef()
	case token.KW_LANG:
		return p.parseLangDef()
	case token.KW_EXTEND:
		return p.parseExtend()
	case token.KW_EXTERN:
		return p.parseExtern()
	case token.KW_FUNC:
		if isFunctionDefAhead(p) {
			return p.parseFunctionDef()
		}
	case token.KW_PASS:
		start := p.cur().Start
		p.advance()
		return &ast.Pass{Base: mkBase(p.spFrom(start))}
	case token.KW_SKIP:
		start := p.cur().Start
		p.advance()
		target := ""
		if p.at(token.IDENT) {
			target = p.advance().Lexeme
		}
		return &ast.Skip{Base: mkBase(p.spFrom(start)), Target: target}
	case token.KW_STOP:
		start := p.cur().Start
		p.advance()
		target := ""
		if p.at(token.IDENT) {
			target = p.advance().Lexeme
		}
		return &ast.Stop{Base: mkBase(p.spFrom(start)), Target: target}
	case token.KW_RETURN:
		start := p.cur().Start
		p.advance()
		var val ast.Expr
		if !p.at(token.NEWLINE) && !p.at(token.SEMICOLON) && !p.at(token.DEDENT) && !p.at(token.EOF) {
			val = p.parseExpr(0)
		}
		return &ast.Return{Base: mkBase(p.spFrom(start)), Value: val}
	case token.KW_DEFER:
		start := p.cur().Start
		p.advance()
		body := p.parseBlock()
		return &ast.Defer{Base: mkBase(p.spFrom(start)), Body: body}
	case token.KW_ASSERT:
		start := p.cur().Start
		p.advance()
		e := p.parseExpr(0)
		var msg ast.Expr
		if p.at(token.COMMA) {
			p.advance()
			msg = p.parseExpr(0)
		}
		return &ast.Assert{Base: mkBase(p.spFrom(start)), Expr: e, Message: msg}
	case token.KW_IF:
		return p.parseIf().(ast.Stmt)
	case token.KW_WHEN:
		return p.parseWhen().(ast.Stmt)
	case token.KW_UNLESS:
		return p.parseUnless()
	case token.KW_FOR:
		return p.parseFor()
	case token.KW_WHILE:
		return p.parseWhile()
	case token.KW_DO:
		return p.parseRepeat()
	}
	return p.parseExprOrAssignStatement()
}

// isFunctionDefAhead disambiguates `func` as a lambda expression vs a named
// function definition: `func name(...)` is a definition when followed by
// an IDENT then `(` (spec §4.1 grammar note: "`func` could be lambda or
// function type").
func isFunctionDefAhead(p *parser) bool {
	return p.peek(1).Type == token.IDENT && p.peek(2).Type == token.LPAREN
}

func (p *parser) parseFunctionDef() ast.Stmt {
	start := p.cur().Start
	p.advance() // func
	name := p.expect(token.IDENT).Lexeme
	params := p.parseParamList()
	var ret ast.Type
	if p.accept2(token.ARROW) {
		ret = p.parseType()
	}
	var cache *ast.CacheSpec
	for p.at(token.SEMICOLON) && (p.peek(1).Lexeme == "cache" || p.peek(1).Lexeme == "cache_size") {
		p.advance()
		mod := p.advance().Lexeme
		size := 0
		if p.accept2(token.ASSIGN) {
			if tok, ok := p.accept(token.INT); ok {
				_, _, v := parseIntLiteral(tok.Literal)
				size = int(v.Int64())
			}
		}
		cache = &ast.CacheSpec{Enabled: true, Size: size}
		_ = mod
	}
	body := p.parseBlock()
	return &ast.FunctionDef{
		Base: mkBase(p.spFrom(start)), Name: name, Args: params, ReturnAST: ret,
		Body: body, Cache: cache, IsPrivate: strings.HasPrefix(name, "_"),
	}
}

func (p *parser) parseUse() ast.Stmt {
	start := p.cur().Start
	p.advance() // use
	kind := ast.UseModule
	var path string
	switch {
	case p.at(token.LT):
		p.advance()
		var b strings.Builder
		for !p.at(token.GT) && !p.at(token.EOF) {
			b.WriteString(p.advance().Lexeme)
		}
		p.accept2(token.GT)
		path = b.String()
		kind = ast.UseCHeader
	case p.at(token.STRING_START):
		lit := p.parseTextLiteral()
		if tl, ok := lit.(*ast.TextLiteral); ok {
			path = tl.Cooked
		}
		kind = ast.UseCHeader
	case p.at(token.MINUS):
		p.advance()
		path = "-" + p.expect(token.IDENT).Lexeme
		kind = ast.UseLinkerFlag
	default:
		tok := p.advance()
		path = tok.Lexeme
		for p.at(token.SLASH) || p.at(token.DOT) {
			path += p.advance().Lexeme
			if p.at(token.IDENT) {
				path += p.advance().Lexeme
			}
		}
		if strings.HasPrefix(tok.Lexeme, ".") {
			kind = ast.UseLocalFile
		} else if strings.HasSuffix(path, ".c") || strings.HasSuffix(path, ".S") {
			kind = ast.UseCSource
		}
	}
	var alias *ast.Var
	if p.at(token.IDENT) && p.cur().Lexeme == "as" {
		p.advance()
		alias = p.parseVarName()
	}
	return &ast.Use{Base: mkBase(p.spFrom(start)), Var: alias, Path: path, Kind: kind}
}

func (p *parser) parseStructDef() ast.Stmt {
	start := p.cur().Start
	p.advance() // struct
	name := p.expect(token.IDENT).Lexeme
	opaque, packed, secret := false, false, false
	fields := p.parseFieldDefs()
	for p.at(token.SEMICOLON) {
		p.advance()
		switch p.cur().Lexeme {
		case "opaque":
			opaque = true
		case "packed":
			packed = true
		case "secret":
			secret = true
		}
		p.advance()
	}
	var body *ast.Block
	p.skipNewlines()
	if p.at(token.INDENT) {
		body = p.parseBlock()
	}
	return &ast.StructDef{
		Base: mkBase(p.spFrom(start)), Name: name, Fields: fields, Body: body,
		IsOpaque: opaque, IsPacked: packed, IsSecret: secret,
	}
}

func (p *parser) parseFieldDefs() []ast.FieldDef {
	if !p.accept2(token.LPAREN) {
		return nil
	}
	var fields []ast.FieldDef
	for !p.at(token.RPAREN) {
		secret := false
		name := p.expect(token.IDENT).Lexeme
		var typeAst ast.Type
		if p.accept2(token.COLON) {
			typeAst = p.parseType()
		}
		var def ast.Expr
		if p.accept2(token.ASSIGN) {
			def = p.parseExpr(0)
		}
		if p.at(token.SEMICOLON) && p.peek(1).Lexeme == "secret" {
			p.advance()
			p.advance()
			secret = true
		}
		fields = append(fields, ast.FieldDef{Name: name, TypeAST: typeAst, Default: def, Secret: secret})
		if !p.accept2(token.COMMA) {
			break
		}
	}
	p.expect(token.RPAREN)
	return fields
}

func (p *parser) parseEnumDef() ast.Stmt {
	start := p.cur().Start
	p.advance() // enum
	name := p.expect(token.IDENT).Lexeme
	var tags []*ast.EnumTagDef
	tags = append(tags, p.parseEnumTag())
	for p.accept2(token.PIPE) {
		tags = append(tags, p.parseEnumTag())
	}
	var body *ast.Block
	p.skipNewlines()
	if p.at(token.INDENT) {
		body = p.parseBlock()
	}
	return &ast.EnumDef{Base: mkBase(p.spFrom(start)), Name: name, Tags: tags, Body: body}
}

func (p *parser) parseEnumTag() *ast.EnumTagDef {
	start := p.cur().Start
	name := p.expect(token.IDENT).Lexeme
	var fields []ast.Param
	if p.at(token.LPAREN) {
		fields = p.parseFieldsAsParams()
	}
	return &ast.EnumTagDef{Sp: p.spFrom(start), Name: name, Fields: fields}
}

func (p *parser) parseFieldsAsParams() []ast.Param {
	fds := p.parseFieldDefs()
	params := make([]ast.Param, len(fds))
	for i, fd := range fds {
		params[i] = ast.Param{Name: fd.Name, TypeAST: fd.TypeAST, Default: fd.Default}
	}
	return params
}

func (p *parser) parseLangDef() ast.Stmt {
	start := p.cur().Start
	p.advance() // lang
	name := p.expect(token.IDENT).Lexeme
	var body *ast.Block
	p.skipNewlines()
	if p.at(token.INDENT) {
		body = p.parseBlock()
	}
	return &ast.LangDef{Base: mkBase(p.spFrom(start)), Name: name, Body: body}
}

func (p *parser) parseExtend() ast.Stmt {
	start := p.cur().Start
	p.advance() // extend
	target := p.parseType()
	body := p.parseBlock()
	return &ast.Extend{Base: mkBase(p.spFrom(start)), Target: target, Body: body}
}

func (p *parser) parseExtern() ast.Stmt {
	start := p.cur().Start
	p.advance() // extern
	name := p.expect(token.IDENT).Lexeme
	p.expect(token.COLON)
	ty := p.parseType()
	return &ast.Extern{Base: mkBase(p.spFrom(start)), Name: name, Type: ty}
}

func (p *parser) parseUnless() ast.Stmt {
	start := p.cur().Start
	p.advance() // unless
	cond := p.parseExpr(0)
	p.accept2(token.KW_THEN)
	body := p.parseBlock()
	negStart := cond.Span().Start
	notCond := &ast.Not{UnaryOp: ast.UnaryOp{Base: mkBase(span.Span{File: p.file, Start: negStart, End: cond.Span().End}), Operand: cond}}
	return &ast.If{Base: mkBase(p.spFrom(start)), Cond: notCond, Body: body}
}

func (p *parser) parseFor() ast.Stmt {
	start := p.cur().Start
	p.advance() // for
	var vars []*ast.Var
	vars = append(vars, p.parseVarName())
	for p.accept2(token.COMMA) {
		vars = append(vars, p.parseVarName())
	}
	p.expect(token.KW_IN)
	iter := p.parseExpr(0)
	body := p.parseBlock()
	var empty *ast.Block
	p.skipNewlines()
	if p.at(token.IDENT) && p.cur().Lexeme == "empty" {
		p.advance()
		empty = p.parseBlock()
	}
	return &ast.For{Base: mkBase(p.spFrom(start)), Vars: vars, Iter: iter, Body: body, Empty: empty}
}

func (p *parser) parseWhile() ast.Stmt {
	start := p.cur().Start
	p.advance() // while
	cond := p.parseExpr(0)
	body := p.parseBlock()
	return &ast.While{Base: mkBase(p.spFrom(start)), Cond: cond, Body: body}
}

func (p *parser) parseRepeat() ast.Stmt {
	start := p.cur().Start
	p.advance() // do
	body := p.parseBlock()
	return &ast.Repeat{Base: mkBase(p.spFrom(start)), Body: body}
}

// updateBuilders maps an update-assignment token to the BinOp constructor
// used for its desugared `x = x op rhs` read-modify-write form.
var updateBuilders map[token.Type]func(span.Span, ast.Expr, ast.Expr) ast.Expr

func init() {
	updateBuilders = map[token.Type]func(span.Span, ast.Expr, ast.Expr) ast.Expr{
		token.PLUS_EQ:    wrap(func(b ast.BinOp) ast.Expr { return &ast.PlusUpdate{BinOp: b} }),
		token.MINUS_EQ:   wrap(func(b ast.BinOp) ast.Expr { return &ast.MinusUpdate{BinOp: b} }),
		token.STAR_EQ:    wrap(func(b ast.BinOp) ast.Expr { return &ast.MultiplyUpdate{BinOp: b} }),
		token.SLASH_EQ:   wrap(func(b ast.BinOp) ast.Expr { return &ast.DivideUpdate{BinOp: b} }),
		token.PERCENT_EQ: wrap(func(b ast.BinOp) ast.Expr { return &ast.ModUpdate{BinOp: b} }),
		token.MOD1_EQ:    wrap(func(b ast.BinOp) ast.Expr { return &ast.Mod1Update{BinOp: b} }),
		token.CARET_EQ:   wrap(func(b ast.BinOp) ast.Expr { return &ast.PowerUpdate{BinOp: b} }),
		token.CONCAT_EQ:  wrap(func(b ast.BinOp) ast.Expr { return &ast.ConcatUpdate{BinOp: b} }),
		token.LSHIFT_EQ:  wrap(func(b ast.BinOp) ast.Expr { return &ast.LeftShiftUpdate{BinOp: b} }),
		token.RSHIFT_EQ:  wrap(func(b ast.BinOp) ast.Expr { return &ast.RightShiftUpdate{BinOp: b} }),
		token.ULSHIFT_EQ: wrap(func(b ast.BinOp) ast.Expr { return &ast.UnsignedLeftShiftUpdate{BinOp: b} }),
		token.URSHIFT_EQ: wrap(func(b ast.BinOp) ast.Expr { return &ast.UnsignedRightShiftUpdate{BinOp: b} }),
		token.AND_EQ:     wrap(func(b ast.BinOp) ast.Expr { return &ast.AndUpdate{BinOp: b} }),
		token.OR_EQ:      wrap(func(b ast.BinOp) ast.Expr { return &ast.OrUpdate{BinOp: b} }),
		token.XOR_EQ:     wrap(func(b ast.BinOp) ast.Expr { return &ast.XorUpdate{BinOp: b} }),
		token.MIN_EQ:     wrap(func(b ast.BinOp) ast.Expr { return &ast.MinUpdate{BinOp: b} }),
		token.MAX_EQ:     wrap(func(b ast.BinOp) ast.Expr { return &ast.MaxUpdate{BinOp: b} }),
	}
}

// parseExprOrAssignStatement covers plain expression statements, `x := v`
// declarations, `a, b = x, y` parallel assignment, and update-assignments.
func (p *parser) parseExprOrAssignStatement() ast.Stmt {
	start := p.cur().Start
	first := p.parseExpr(0)

	if p.at(token.DECLARE) {
		p.advance()
		val := p.parseExpr(0)
		v, _ := first.(*ast.Var)
		return &ast.Declare{Base: mkBase(p.spFrom(start)), Var: v, Value: val}
	}
	if p.at(token.COLON) && isLvalue(first) {
		p.advance()
		ty := p.parseType()
		var val ast.Expr
		if p.accept2(token.ASSIGN) {
			val = p.parseExpr(0)
		}
		v, _ := first.(*ast.Var)
		return &ast.Declare{Base: mkBase(p.spFrom(start)), Var: v, TypeAST: ty, Value: val}
	}
	if info, ok := updateBuilders[p.curType()]; ok {
		p.advance()
		rhs := p.parseExpr(0)
		return info(p.spFrom(start), first, rhs).(ast.Stmt)
	}

	targets := []ast.Expr{first}
	if isLvalue(first) {
		for p.at(token.COMMA) {
			p.advance()
			targets = append(targets, p.parseExpr(0))
		}
	}
	if p.at(token.ASSIGN) {
		p.advance()
		values := []ast.Expr{p.parseExpr(0)}
		for p.accept2(token.COMMA) {
			values = append(values, p.parseExpr(0))
		}
		return &ast.Assign{Base: mkBase(p.spFrom(start)), Targets: targets, Values: values}
	}
	return exprStatement(p, first, start)
}

// exprStatement returns first as a bare expression statement, recognizing
// a trailing `>> expected` doctest assertion (GLOSSARY "doctest").
func exprStatement(p *parser, first ast.Expr, start int) ast.Stmt {
	if p.at(token.RSHIFT) {
		p.advance()
		var expected strings.Builder
		for !p.at(token.NEWLINE) && !p.at(token.SEMICOLON) && !p.at(token.EOF) && !p.at(token.DEDENT) {
			expected.WriteString(p.advance().Lexeme)
			expected.WriteByte(' ')
		}
		return &ast.DocTest{Base: mkBase(p.spFrom(start)), Expr: first, Expected: strings.TrimSpace(expected.String())}
	}
	if e, ok := first.(ast.Stmt); ok {
		return e
	}
	p.sink.Fail(diagnostics.ErrPUnexpectedTok, first.Span(), "expression cannot be used as a statement")
	return &ast.Pass{Base: mkBase(p.spFrom(start))}
}

func isLvalue(e ast.Expr) bool {
	switch e.(type) {
	case *ast.Var, *ast.FieldAccess, *ast.Index:
		return true
	}
	return false
}
