package parser

import (
	"github.com/tomo-lang/tomo/internal/ast"
	"github.com/tomo-lang/tomo/internal/diagnostics"
	"github.com/tomo-lang/tomo/internal/span"
	"github.com/tomo-lang/tomo/internal/token"
)

// opInfo describes one binary operator's precedence-climbing behavior
// (spec §4.1 "Operator precedence"). tightness follows the static table:
// 9=Power (right-assoc), 8=Multiply/Divide/Mod/Mod1, 7=Plus/Minus,
// 6=Concat, 5=shifts, 4=Min/Max, 3=Equals/NotEquals, 2=relational+Compare,
// 1=And/Or/Xor.
type opInfo struct {
	tightness   int
	rightAssoc  bool
	isCompare   bool // non-chaining group (spec: "non-chaining")
	build       func(sp span.Span, lhs, rhs ast.Expr) ast.Expr
	hasKey      bool // Min/Max's optional key-expression
}

var binOps map[token.Type]opInfo

func wrap(ctor func(ast.BinOp) ast.Expr) func(span.Span, ast.Expr, ast.Expr) ast.Expr {
	return func(sp span.Span, lhs, rhs ast.Expr) ast.Expr {
		return ctor(ast.BinOp{Base: mkBase(sp), LHS: lhs, RHS: rhs})
	}
}

func init() {
	binOps = map[token.Type]opInfo{
		token.CARET:   {tightness: 9, rightAssoc: true, build: wrap(func(b ast.BinOp) ast.Expr { return &ast.Power{BinOp: b} })},
		token.STAR:    {tightness: 8, build: wrap(func(b ast.BinOp) ast.Expr { return &ast.Multiply{BinOp: b} })},
		token.SLASH:   {tightness: 8, build: wrap(func(b ast.BinOp) ast.Expr { return &ast.Divide{BinOp: b} })},
		token.PERCENT: {tightness: 8, build: wrap(func(b ast.BinOp) ast.Expr { return &ast.Mod{BinOp: b} })},
		token.KW_MOD:  {tightness: 8, build: wrap(func(b ast.BinOp) ast.Expr { return &ast.Mod{BinOp: b} })},
		token.KW_MOD1: {tightness: 8, build: wrap(func(b ast.BinOp) ast.Expr { return &ast.Mod1{BinOp: b} })},
		token.PLUS:    {tightness: 7, build: wrap(func(b ast.BinOp) ast.Expr { return &ast.Plus{BinOp: b} })},
		token.MINUS:   {tightness: 7, build: wrap(func(b ast.BinOp) ast.Expr { return &ast.Minus{BinOp: b} })},
		token.CONCAT:  {tightness: 6, build: wrap(func(b ast.BinOp) ast.Expr { return &ast.Concat{BinOp: b} })},
		token.LSHIFT:  {tightness: 5, build: wrap(func(b ast.BinOp) ast.Expr { return &ast.LeftShift{BinOp: b} })},
		token.RSHIFT:  {tightness: 5, build: wrap(func(b ast.BinOp) ast.Expr { return &ast.RightShift{BinOp: b} })},
		token.ULSHIFT: {tightness: 5, build: wrap(func(b ast.BinOp) ast.Expr { return &ast.UnsignedLeftShift{BinOp: b} })},
		token.URSHIFT: {tightness: 5, build: wrap(func(b ast.BinOp) ast.Expr { return &ast.UnsignedRightShift{BinOp: b} })},
		token.KW_MIN:  {tightness: 4, hasKey: true, build: wrap(func(b ast.BinOp) ast.Expr { return &ast.Min{BinOp: b} })},
		token.KW_MAX:  {tightness: 4, hasKey: true, build: wrap(func(b ast.BinOp) ast.Expr { return &ast.Max{BinOp: b} })},
		token.EQ:      {tightness: 3, isCompare: true, build: wrap(func(b ast.BinOp) ast.Expr { return &ast.Equals{BinOp: b} })},
		token.NEQ:     {tightness: 3, isCompare: true, build: wrap(func(b ast.BinOp) ast.Expr { return &ast.NotEquals{BinOp: b} })},
		token.LT:      {tightness: 2, isCompare: true, build: wrap(func(b ast.BinOp) ast.Expr { return &ast.LessThan{BinOp: b} })},
		token.LTE:     {tightness: 2, isCompare: true, build: wrap(func(b ast.BinOp) ast.Expr { return &ast.LessThanOrEquals{BinOp: b} })},
		token.GT:      {tightness: 2, isCompare: true, build: wrap(func(b ast.BinOp) ast.Expr { return &ast.GreaterThan{BinOp: b} })},
		token.GTE:     {tightness: 2, isCompare: true, build: wrap(func(b ast.BinOp) ast.Expr { return &ast.GreaterThanOrEquals{BinOp: b} })},
		token.CMP:     {tightness: 2, isCompare: true, build: wrap(func(b ast.BinOp) ast.Expr { return &ast.Compare{BinOp: b} })},
		token.KW_AND:  {tightness: 1, build: wrap(func(b ast.BinOp) ast.Expr { return &ast.And{BinOp: b} })},
		token.KW_OR:   {tightness: 1, build: wrap(func(b ast.BinOp) ast.Expr { return &ast.Or{BinOp: b} })},
		token.KW_XOR:  {tightness: 1, build: wrap(func(b ast.BinOp) ast.Expr { return &ast.Xor{BinOp: b} })},
	}
}

// parseExpr implements precedence climbing: operators at or above min
// consume their RHS by recursing at tightness+1 (left-associative), except
// Power which recurses at its own tightness (right-associative).
func (p *parser) parseExpr(min int) ast.Expr {
	start := p.cur().Start
	lhs := p.parseUnary()

	lastCompareTightness := -1
	for {
		info, ok := binOps[p.curType()]
		if !ok || info.tightness < min {
			break
		}
		if info.isCompare && lastCompareTightness >= 0 {
			cur := p.cur()
			p.sink.Fail(diagnostics.ErrPChainedCmp,
				span.Span{File: p.file, Start: cur.Start, End: cur.End},
				"comparison operators do not chain; parenthesize")
			break
		}
		p.advance()
		var key ast.Expr
		if info.hasKey && p.at(token.DOT) {
			key = p.parsePostfix(p.parsePrimary())
		}
		nextMin := info.tightness + 1
		if info.rightAssoc {
			nextMin = info.tightness
		}
		rhs := p.parseExpr(nextMin)
		sp := p.spFrom(start)
		node := info.build(sp, lhs, rhs)
		if info.hasKey {
			switch n := node.(type) {
			case *ast.Min:
				n.Key = key
			case *ast.Max:
				n.Key = key
			}
		}
		lhs = node
		if info.isCompare {
			lastCompareTightness = info.tightness
		}
	}
	return lhs
}

func (p *parser) spFrom(start int) span.Span {
	end := p.toks[p.pos-1].End
	return span.Span{File: p.file, Start: start, End: end}
}

// parseUnary handles `not`, unary `-`, `@` (heap-allocate), `&` (stack
// reference), then falls through to postfix/primary.
func (p *parser) parseUnary() ast.Expr {
	start := p.cur().Start
	switch p.curType() {
	case token.KW_NOT:
		p.advance()
		operand := p.parseUnary()
		return &ast.Not{UnaryOp: ast.UnaryOp{Base: mkBase(p.spFrom(start)), Operand: operand}}
	case token.MINUS:
		p.advance()
		operand := p.parseUnary()
		return &ast.Negative{UnaryOp: ast.UnaryOp{Base: mkBase(p.spFrom(start)), Operand: operand}}
	case token.AT:
		p.advance()
		operand := p.parseUnary()
		return &ast.HeapAllocate{UnaryOp: ast.UnaryOp{Base: mkBase(p.spFrom(start)), Operand: operand}}
	case token.AMPERSAND:
		p.advance()
		operand := p.parseUnary()
		return &ast.StackReference{UnaryOp: ast.UnaryOp{Base: mkBase(p.spFrom(start)), Operand: operand}}
	}
	return p.parsePostfix(p.parsePrimary())
}

// parsePostfix attaches `.field`, `[index]`, `(args)`, `?`, `!` suffixes.
func (p *parser) parsePostfix(e ast.Expr) ast.Expr {
	start := e.Span().Start
	for {
		switch p.curType() {
		case token.DOT:
			p.advance()
			name := p.expect(token.IDENT).Lexeme
			if p.at(token.LPAREN) {
				args := p.parseArgs()
				e = &ast.MethodCall{Base: mkBase(p.spFrom(start)), Self: e, Name: name, Args: args}
			} else {
				e = &ast.FieldAccess{Base: mkBase(p.spFrom(start)), Obj: e, Name: name}
			}
		case token.LBRACKET:
			p.advance()
			var idx ast.Expr
			unchecked := false
			if !p.at(token.RBRACKET) {
				idx = p.parseExpr(0)
			}
			p.expect(token.RBRACKET)
			if p.at(token.SEMICOLON) && p.peek(1).Lexeme == "unchecked" {
				p.advance()
				p.advance()
				unchecked = true
			}
			e = &ast.Index{Base: mkBase(p.spFrom(start)), Obj: e, Index: idx, Unchecked: unchecked}
		case token.LPAREN:
			args := p.parseArgs()
			e = &ast.FunctionCall{Base: mkBase(p.spFrom(start)), Fn: e, Args: args}
		case token.QUESTION:
			p.advance()
			e = &ast.Optional{UnaryOp: ast.UnaryOp{Base: mkBase(p.spFrom(start)), Operand: e}}
		case token.BANG:
			p.advance()
			e = &ast.NonOptional{UnaryOp: ast.UnaryOp{Base: mkBase(p.spFrom(start)), Operand: e}}
		default:
			return e
		}
	}
}

func (p *parser) parseArgs() []ast.Arg {
	p.expect(token.LPAREN)
	var args []ast.Arg
	for !p.at(token.RPAREN) {
		name := ""
		if p.at(token.IDENT) && p.peek(1).Type == token.ASSIGN {
			name = p.advance().Lexeme
			p.advance() // =
		}
		args = append(args, ast.Arg{Name: name, Value: p.parseExpr(0)})
		if !p.accept2(token.COMMA) {
			break
		}
	}
	p.expect(token.RPAREN)
	return args
}

func (p *parser) accept2(t token.Type) bool {
	_, ok := p.accept(t)
	return ok
}

// parsePrimary parses literals, names, parenthesized expressions,
// containers, lambdas, and the other leaf/grouping forms.
func (p *parser) parsePrimary() ast.Expr {
	start := p.cur().Start
	switch p.curType() {
	case token.INT:
		tok := p.advance()
		digits, base, val := parseIntLiteral(tok.Literal)
		return &ast.Int{Base: mkBase(p.spFrom(start)), Digits: digits, NumBase: base, Value: val}
	case token.FLOAT:
		tok := p.advance()
		return &ast.Num{Base: mkBase(p.spFrom(start)), Value: parseFloatLiteral(tok.Literal)}
	case token.KW_YES:
		p.advance()
		return &ast.Bool{Base: mkBase(p.spFrom(start)), Value: true}
	case token.KW_NO:
		p.advance()
		return &ast.Bool{Base: mkBase(p.spFrom(start)), Value: false}
	case token.KW_NONE:
		p.advance()
		var hint ast.Type
		if p.at(token.COLON) {
			p.advance()
			hint = p.parseType()
		}
		return &ast.None{Base: mkBase(p.spFrom(start)), TypeHint: hint}
	case token.KW_PASS:
		p.advance()
		return &ast.Pass{Base: mkBase(p.spFrom(start))}
	case token.IDENT:
		tok := p.advance()
		return &ast.Var{Base: mkBase(p.spFrom(start)), Name: tok.Lexeme}
	case token.STRING_START:
		return p.parseTextLiteral()
	case token.LPAREN:
		p.advance()
		e := p.parseExpr(0)
		p.expect(token.RPAREN)
		return e
	case token.LBRACKET:
		return p.parseListOrComprehension(start)
	case token.LBRACE:
		return p.parseSetOrTable(start)
	case token.KW_FUNC:
		return p.parseLambda(start)
	case token.KW_IF:
		return p.parseIf()
	case token.KW_WHEN:
		return p.parseWhen()
	case token.KW_DESERIALIZE:
		p.advance()
		val := p.parseExpr(0)
		p.expect(token.COLON)
		ty := p.parseType()
		return &ast.Deserialize{Base: mkBase(p.spFrom(start)), Value: val, Type: ty}
	case token.KW_C_CODE:
		return p.parseInlineCCode(start)
	}
	tok := p.cur()
	p.sink.Fail(diagnostics.ErrPUnexpectedTok,
		span.Span{File: p.file, Start: tok.Start, End: tok.End},
		"unexpected token %s in expression", tok.Type)
	p.advance()
	return &ast.Pass{Base: mkBase(p.spFrom(start))}
}

func (p *parser) parseTextLiteral() ast.Expr {
	start := p.cur().Start
	p.advance() // STRING_START
	var chunks []ast.Expr
	for !p.at(token.TEXT_END) {
		switch p.curType() {
		case token.TEXT_LITERAL:
			tok := p.advance()
			chunks = append(chunks, &ast.TextLiteral{Base: mkBase(span.Span{File: p.file, Start: tok.Start, End: tok.End}), Cooked: tok.Literal})
		case token.FAT_ARROW: // `$` interpolation sentinel
			p.advance()
			p.expect(token.LPAREN)
			e := p.parseExpr(0)
			p.expect(token.RPAREN)
			chunks = append(chunks, e)
		default:
			p.advance()
		}
	}
	p.expect(token.TEXT_END)
	sp := p.spFrom(start)
	if len(chunks) == 1 {
		if lit, ok := chunks[0].(*ast.TextLiteral); ok {
			lit.Base = mkBase(sp)
			return lit
		}
	}
	if len(chunks) == 0 {
		return &ast.TextLiteral{Base: mkBase(sp), Cooked: ""}
	}
	return &ast.TextJoin{Base: mkBase(sp), Chunks: chunks}
}

func (p *parser) parseListOrComprehension(start int) ast.Expr {
	p.advance() // [
	if p.at(token.RBRACKET) {
		p.advance()
		return &ast.List{Base: mkBase(p.spFrom(start))}
	}
	first := p.parseExpr(0)
	if p.at(token.KW_FOR) {
		vars, iter, filter := p.parseComprehensionTail()
		p.expect(token.RBRACKET)
		return &ast.Comprehension{Base: mkBase(p.spFrom(start)), Expr: first, Vars: vars, Iter: iter, Filter: filter}
	}
	items := []ast.Expr{first}
	for p.accept2(token.COMMA) {
		if p.at(token.RBRACKET) {
			break
		}
		items = append(items, p.parseExpr(0))
	}
	p.expect(token.RBRACKET)
	return &ast.List{Base: mkBase(p.spFrom(start)), Items: items}
}

func (p *parser) parseComprehensionTail() (vars []*ast.Var, iter ast.Expr, filter ast.Expr) {
	p.expect(token.KW_FOR)
	vars = append(vars, p.parseVarName())
	for p.accept2(token.COMMA) {
		vars = append(vars, p.parseVarName())
	}
	p.expect(token.KW_IN)
	iter = p.parseExpr(0)
	if p.accept2(token.KW_IF) {
		filter = p.parseExpr(0)
	}
	return
}

func (p *parser) parseVarName() *ast.Var {
	start := p.cur().Start
	tok := p.expect(token.IDENT)
	return &ast.Var{Base: mkBase(p.spFrom(start)), Name: tok.Lexeme}
}

func (p *parser) parseSetOrTable(start int) ast.Expr {
	p.advance() // {
	if p.at(token.RBRACE) {
		p.advance()
		return &ast.Set{Base: mkBase(p.spFrom(start))}
	}
	first := p.parseExpr(0)
	if p.at(token.COLON) {
		p.advance()
		val := p.parseExpr(0)
		entries := []*ast.TableEntry{{Base: mkBase(first.Span()), Key: first, Value: val}}
		for p.accept2(token.COMMA) {
			if p.at(token.RBRACE) {
				break
			}
			k := p.parseExpr(0)
			p.expect(token.COLON)
			v := p.parseExpr(0)
			entries = append(entries, &ast.TableEntry{Base: mkBase(k.Span()), Key: k, Value: v})
		}
		var fallback, def ast.Expr
		for p.at(token.SEMICOLON) {
			p.advance()
			switch p.cur().Lexeme {
			case "fallback":
				p.advance()
				p.expect(token.ASSIGN)
				fallback = p.parseExpr(0)
			case "default":
				p.advance()
				p.expect(token.ASSIGN)
				def = p.parseExpr(0)
			}
		}
		p.expect(token.RBRACE)
		return &ast.Table{Base: mkBase(p.spFrom(start)), Entries: entries, Fallback: fallback, Default: def}
	}
	items := []ast.Expr{first}
	for p.accept2(token.COMMA) {
		if p.at(token.RBRACE) {
			break
		}
		items = append(items, p.parseExpr(0))
	}
	p.expect(token.RBRACE)
	return &ast.Set{Base: mkBase(p.spFrom(start)), Items: items}
}

func (p *parser) parseLambda(start int) ast.Expr {
	p.advance() // func
	params := p.parseParamList()
	var ret ast.Type
	if p.accept2(token.ARROW) {
		ret = p.parseType()
	}
	body := p.parseBlock()
	return &ast.Lambda{Base: mkBase(p.spFrom(start)), Args: params, ReturnAST: ret, Body: body}
}

func (p *parser) parseIf() ast.Expr {
	start := p.cur().Start
	p.advance() // if
	cond := p.parseExpr(0)
	p.accept2(token.KW_THEN)
	body := p.parseBlock()
	var elseStmt ast.Stmt
	p.skipNewlines()
	if p.accept2(token.KW_ELSE) {
		if p.at(token.KW_IF) {
			elseStmt = p.parseIf().(*ast.If)
		} else {
			elseStmt = p.parseBlock()
		}
	}
	return &ast.If{Base: mkBase(p.spFrom(start)), Cond: cond, Body: body, Else: elseStmt}
}

func (p *parser) parseWhen() ast.Expr {
	start := p.cur().Start
	p.advance() // when
	subject := p.parseExpr(0)
	p.expect(token.INDENT)
	var clauses []*ast.WhenClause
	var elseBlock *ast.Block
	p.skipNewlines()
	for p.at(token.IDENT) && p.cur().Lexeme == "is" {
		clauseStart := p.cur().Start
		p.advance() // is
		tag := p.expect(token.IDENT).Lexeme
		var binds []string
		if p.accept2(token.LPAREN) {
			for !p.at(token.RPAREN) {
				binds = append(binds, p.expect(token.IDENT).Lexeme)
				if !p.accept2(token.COMMA) {
					break
				}
			}
			p.expect(token.RPAREN)
		}
		p.accept2(token.KW_THEN)
		body := p.parseBlock()
		clauses = append(clauses, &ast.WhenClause{
			Sp:      p.spFrom(clauseStart),
			Pattern: &ast.Pattern{Sp: p.spFrom(clauseStart), Tag: tag, Binds: binds},
			Body:    body,
		})
		p.skipNewlines()
	}
	if p.accept2(token.KW_ELSE) {
		elseBlock = p.parseBlock()
	}
	p.expect(token.DEDENT)
	return &ast.When{Base: mkBase(p.spFrom(start)), Subject: subject, Clauses: clauses, Else: elseBlock}
}

func (p *parser) parseInlineCCode(start int) ast.Expr {
	p.advance() // C_code
	var chunks []ast.Expr
	if p.at(token.STRING_START) {
		lit := p.parseTextLiteral()
		if tj, ok := lit.(*ast.TextJoin); ok {
			chunks = tj.Chunks
		} else {
			chunks = []ast.Expr{lit}
		}
	}
	var hint ast.Type
	if p.accept2(token.COLON) {
		hint = p.parseType()
	}
	return &ast.InlineCCode{Base: mkBase(p.spFrom(start)), Chunks: chunks, TypeHint: hint}
}
