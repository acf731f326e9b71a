package parser

import (
	"github.com/tomo-lang/tomo/internal/ast"
	"github.com/tomo-lang/tomo/internal/token"
)

// parseType parses a surface type AST (spec §3.3, §4.1 "parseType").
func (p *parser) parseType() ast.Type {
	start := p.cur().Start
	switch p.curType() {
	case token.AT:
		p.advance()
		inner := p.parseType()
		return &ast.PointerTypeAST{Base: mkBase(p.spFrom(start)), Pointed: inner, IsStack: false}
	case token.AMPERSAND:
		p.advance()
		inner := p.parseType()
		return &ast.PointerTypeAST{Base: mkBase(p.spFrom(start)), Pointed: inner, IsStack: true}
	case token.LBRACKET:
		p.advance()
		item := p.parseType()
		p.expect(token.RBRACKET)
		return &ast.ListTypeAST{Base: mkBase(p.spFrom(start)), Item: item}
	case token.LBRACE:
		p.advance()
		key := p.parseType()
		if p.accept2(token.COLON) {
			val := p.parseType()
			var def ast.Expr
			if p.at(token.SEMICOLON) && p.peek(1).Lexeme == "default" {
				p.advance()
				p.advance()
				p.expect(token.ASSIGN)
				def = p.parseExpr(0)
			}
			p.expect(token.RBRACE)
			return &ast.TableTypeAST{Base: mkBase(p.spFrom(start)), Key: key, Value: val, DefaultExpr: def}
		}
		p.expect(token.RBRACE)
		return &ast.SetTypeAST{Base: mkBase(p.spFrom(start)), Item: key}
	case token.KW_FUNC:
		p.advance()
		p.expect(token.LPAREN)
		var args []ast.Type
		for !p.at(token.RPAREN) {
			args = append(args, p.parseType())
			if !p.accept2(token.COMMA) {
				break
			}
		}
		p.expect(token.RPAREN)
		var ret ast.Type
		if p.accept2(token.ARROW) {
			ret = p.parseType()
		}
		return &ast.FunctionTypeAST{Base: mkBase(p.spFrom(start)), Args: args, Ret: ret}
	case token.IDENT:
		tok := p.advance()
		var t ast.Type = &ast.VarTypeAST{Base: mkBase(p.spFrom(start)), Name: tok.Lexeme}
		if p.accept2(token.QUESTION) {
			t = &ast.OptionalTypeAST{Base: mkBase(p.spFrom(start)), Inner: t}
		}
		return t
	}
	return &ast.UnknownTypeAST{Base: mkBase(p.spFrom(start))}
}

// parseParamList parses `(name: T = default, ...)`.
func (p *parser) parseParamList() []ast.Param {
	p.expect(token.LPAREN)
	var params []ast.Param
	for !p.at(token.RPAREN) {
		start := p.cur().Start
		name := p.expect(token.IDENT).Lexeme
		var typeAst ast.Type
		if p.accept2(token.COLON) {
			typeAst = p.parseType()
		}
		var def ast.Expr
		if p.accept2(token.ASSIGN) {
			def = p.parseExpr(0)
		}
		params = append(params, ast.Param{Sp: p.spFrom(start), Name: name, TypeAST: typeAst, Default: def})
		if !p.accept2(token.COMMA) {
			break
		}
	}
	p.expect(token.RPAREN)
	return params
}
