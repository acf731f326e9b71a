// Package parser implements Tomo's hand-written recursive-descent parser:
// indentation-sensitive block structure, Pratt-style binary operator
// precedence, and construction of internal/ast nodes with precise source
// spans, following the teacher's internal/parser package structure
// generalized from funxy's grammar to Tomo's (spec §4.1).
package parser

import (
	"math/big"
	"strconv"
	"strings"

	"github.com/tomo-lang/tomo/internal/ast"
	"github.com/tomo-lang/tomo/internal/diagnostics"
	"github.com/tomo-lang/tomo/internal/lexer"
	"github.com/tomo-lang/tomo/internal/span"
	"github.com/tomo-lang/tomo/internal/token"
)

type parser struct {
	file     *span.File
	toks     []token.Token
	pos      int
	sink     diagnostics.Sink
	comments *ast.CommentTable
}

// Parse consumes a pre-lexed token stream and produces the file's Program.
// Separated from parseFile so the module loader can share one lex pass
// across callers that want the raw tokens too.
func Parse(file *span.File, toks []token.Token, comments *ast.CommentTable, sink diagnostics.Sink) *ast.Program {
	p := &parser{file: file, toks: toks, sink: sink, comments: comments}
	stmts := p.parseStatements(token.EOF)
	return &ast.Program{
		Base:       ast.Base{Sp: span.Span{File: file, Start: 0, End: len(file.Text)}},
		File:       file,
		Statements: stmts,
	}
}

// ParseFile is the top-level entry point (spec §4.1 "parseFile(path,
// errorSink) → ast"): it lexes path's already-loaded bytes and parses them.
func ParseFile(file *span.File, sink diagnostics.Sink) (*ast.Program, *ast.CommentTable) {
	toks, comments := lexer.Lex(file, sink)
	return Parse(file, toks, comments, sink), comments
}

// ParseExpr parses a single expression from a string, for tooling/tests
// (spec §4.1 "parseExpr(string) → ast").
func ParseExpr(src string, sink diagnostics.Sink) ast.Expr {
	file := span.NewFile("<expr>", src)
	toks, _ := lexer.Lex(file, sink)
	p := &parser{file: file, toks: toks, sink: sink, comments: ast.NewCommentTable()}
	return p.parseExpr(0)
}

// ParseType parses a single type from a string, for tooling/tests
// (spec §4.1 "parseType(string) → typeAst").
func ParseType(src string, sink diagnostics.Sink) ast.Type {
	file := span.NewFile("<type>", src)
	toks, _ := lexer.Lex(file, sink)
	p := &parser{file: file, toks: toks, sink: sink, comments: ast.NewCommentTable()}
	return p.parseType()
}

// ---- token stream helpers ---------------------------------------------------

func (p *parser) cur() token.Token  { return p.toks[p.pos] }
func (p *parser) curType() token.Type { return p.toks[p.pos].Type }

func (p *parser) peek(n int) token.Token {
	i := p.pos + n
	if i >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[i]
}

func (p *parser) advance() token.Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) at(t token.Type) bool { return p.curType() == t }

func (p *parser) accept(t token.Type) (token.Token, bool) {
	if p.at(t) {
		return p.advance(), true
	}
	return token.Token{}, false
}

func (p *parser) expect(t token.Type) token.Token {
	if p.at(t) {
		return p.advance()
	}
	cur := p.cur()
	p.sink.Fail(diagnostics.ErrPUnexpectedTok,
		span.Span{File: p.file, Start: cur.Start, End: cur.End},
		"expected %s, got %s", t, cur.Type)
	return cur
}

// skipNewlines consumes any run of blank-line NEWLINEs, which carry no
// statement meaning at block level once the previous statement is parsed.
func (p *parser) skipNewlines() {
	for p.at(token.NEWLINE) {
		p.advance()
	}
}

func (p *parser) sp(start int) span.Span {
	return span.Span{File: p.file, Start: start, End: p.toks[p.pos].Start}
}

func (p *parser) spTo(start, endPos int) span.Span {
	return span.Span{File: p.file, Start: start, End: p.toks[endPos].End}
}

// ---- blocks and statement sequences -----------------------------------------

// parseStatements parses statements until `until` is seen (EOF or DEDENT),
// skipping blank lines and stray semicolons between them.
func (p *parser) parseStatements(until token.Type) []ast.Stmt {
	var stmts []ast.Stmt
	p.skipNewlines()
	for !p.at(until) && !p.at(token.EOF) {
		stmts = append(stmts, p.parseStatement())
		if p.at(token.SEMICOLON) {
			p.advance()
			continue
		}
		if p.at(token.NEWLINE) {
			p.skipNewlines()
			continue
		}
		if p.at(until) || p.at(token.EOF) {
			break
		}
	}
	return stmts
}

// parseBlock parses a header's body, either inline (`then stmt; stmt`) or
// indented (spec §4.1 "Indentation"). headerKeyword has already been
// consumed by the caller up through `then`/`:`/colon-equivalent.
func (p *parser) parseBlock() *ast.Block {
	start := p.cur().Start
	if tok, ok := p.accept(token.INDENT); ok {
		_ = tok
		stmts := p.parseStatements(token.DEDENT)
		end := p.cur().Start
		p.expect(token.DEDENT)
		return &ast.Block{Base: mkBase(span.Span{File: p.file, Start: start, End: end}), Statements: stmts}
	}
	// Inline block: one or more statements separated by `;` on this line.
	var stmts []ast.Stmt
	stmts = append(stmts, p.parseStatement())
	for p.at(token.SEMICOLON) {
		p.advance()
		if p.at(token.NEWLINE) || p.at(token.EOF) || p.at(token.DEDENT) {
			break
		}
		stmts = append(stmts, p.parseStatement())
	}
	return &ast.Block{Base: mkBase(p.sp(start)), Statements: stmts}
}

// mkBase wraps a span as an ast.Base embeddable field.
func mkBase(sp span.Span) ast.Base { return ast.Base{Sp: sp} }

// ---- numbers -----------------------------------------------------------------

func parseIntLiteral(lexeme string) (digits string, base int, value *big.Int) {
	s := strings.ReplaceAll(lexeme, "_", "")
	base = 10
	body := s
	switch {
	case strings.HasPrefix(s, "0x"):
		base = 16
		body = s[2:]
	case strings.HasPrefix(s, "0o"):
		base = 8
		body = s[2:]
	case strings.HasPrefix(s, "0b"):
		base = 2
		body = s[2:]
	}
	v := new(big.Int)
	v.SetString(body, base)
	return body, base, v
}

func parseFloatLiteral(lexeme string) float64 {
	s := strings.ReplaceAll(lexeme, "_", "")
	percent := strings.HasSuffix(s, "%")
	deg := strings.HasSuffix(s, "deg")
	s = strings.TrimSuffix(s, "%")
	s = strings.TrimSuffix(s, "deg")
	s = strings.TrimSuffix(s, "f")
	v, _ := strconv.ParseFloat(s, 64)
	if percent {
		v /= 100
	}
	if deg {
		v *= 3.141592653589793 / 180
	}
	return v
}
