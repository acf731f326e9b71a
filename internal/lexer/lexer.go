// Package lexer turns Tomo source text into a flat token stream plus a
// comment table, following the teacher's hand-rolled rune-at-a-time lexer
// (internal/lexer/lexer.go) generalized to Tomo's indentation-sensitive,
// text-interpolating grammar (spec §4.1).
package lexer

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/tomo-lang/tomo/internal/ast"
	"github.com/tomo-lang/tomo/internal/diagnostics"
	"github.com/tomo-lang/tomo/internal/span"
	"github.com/tomo-lang/tomo/internal/token"
)

type lexer struct {
	file    *span.File
	src     string
	pos     int // byte offset of ch
	readPos int
	ch      rune
	sink    diagnostics.Sink

	comments *ast.CommentTable
	toks     []token.Token

	indentStack []int // indent widths of currently open blocks, in columns (a tab counts as 4)
	atLineStart bool
	parenDepth  int // balanced-bracket nesting; newlines are ignored while > 0
}

// Lex tokenizes file's text, reporting lexical errors through sink, and
// returns the flat token stream alongside the comment table the parser and
// emitter consult for source-to-source fidelity (spec §4.1 "Comments").
func Lex(file *span.File, sink diagnostics.Sink) ([]token.Token, *ast.CommentTable) {
	l := &lexer{
		file:        file,
		src:         stripShebang(file.Text),
		sink:        sink,
		comments:    ast.NewCommentTable(),
		indentStack: []int{0},
		atLineStart: true,
	}
	l.readChar()
	l.run()
	return l.toks, l.comments
}

func stripShebang(src string) string {
	if strings.HasPrefix(src, "#!") {
		if i := strings.IndexByte(src, '\n'); i >= 0 {
			return src[i+1:]
		}
		return ""
	}
	return src
}

func (l *lexer) readChar() {
	if l.readPos >= len(l.src) {
		l.ch = 0
		l.pos = l.readPos
		return
	}
	r, w := utf8.DecodeRuneInString(l.src[l.readPos:])
	l.ch = r
	l.pos = l.readPos
	l.readPos += w
}

func (l *lexer) peekChar() rune {
	if l.readPos >= len(l.src) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.src[l.readPos:])
	return r
}

func (l *lexer) emit(typ token.Type, start int, lexeme string) {
	line, col := l.file.LineCol(start)
	l.toks = append(l.toks, token.Token{
		Type: typ, Lexeme: lexeme, Line: line, Column: col, Start: start, End: l.pos,
	})
}

func (l *lexer) emitLiteral(typ token.Type, start int, lexeme, literal string) {
	line, col := l.file.LineCol(start)
	l.toks = append(l.toks, token.Token{
		Type: typ, Lexeme: lexeme, Literal: literal, Line: line, Column: col, Start: start, End: l.pos,
	})
}

func (l *lexer) fail(start int, msg string) {
	l.sink.Fail(diagnostics.ErrLIllegalChar, span.Span{File: l.file, Start: start, End: l.pos}, msg)
}

func (l *lexer) run() {
	for {
		if l.atLineStart && l.parenDepth == 0 {
			if !l.handleIndent() {
				continue
			}
		}
		l.skipInlineSpace()
		if l.ch == '#' {
			l.lexComment()
			continue
		}
		if l.ch == 0 {
			break
		}
		if l.ch == '\n' {
			start := l.pos
			l.readChar()
			if l.parenDepth == 0 {
				l.emit(token.NEWLINE, start, "\n")
				l.atLineStart = true
			}
			continue
		}
		l.lexToken()
	}
	for len(l.indentStack) > 1 {
		l.indentStack = l.indentStack[:len(l.indentStack)-1]
		l.emit(token.DEDENT, l.pos, "")
	}
	l.emit(token.EOF, l.pos, "")
}

// handleIndent measures the current line's leading whitespace and emits
// INDENT/DEDENT tokens as needed (spec §4.1 "Indentation"). Returns false
// if the line was blank/comment-only and should be skipped entirely.
func (l *lexer) handleIndent() bool {
	start := l.pos
	units := 0
	sawSpace, sawTab := false, false
	for l.ch == ' ' || l.ch == '\t' {
		if l.ch == ' ' {
			sawSpace = true
			units++
		} else {
			sawTab = true
			units += 4 // one tab is one indent unit, the width of 4 spaces
		}
		l.readChar()
	}
	if sawSpace && sawTab {
		l.fail(start, "mixed tabs and spaces in indentation")
	}
	if l.ch == '\n' || l.ch == '#' || l.ch == 0 {
		l.atLineStart = false
		return l.ch != 0
	}
	if l.ch == '.' && l.peekChar() == '.' && units > l.indentStack[len(l.indentStack)-1] {
		l.readChar()
		l.readChar()
		l.atLineStart = false
		return true
	}
	cur := l.indentStack[len(l.indentStack)-1]
	switch {
	case units > cur:
		l.indentStack = append(l.indentStack, units)
		l.emit(token.INDENT, start, "")
	case units < cur:
		for len(l.indentStack) > 1 && units < l.indentStack[len(l.indentStack)-1] {
			l.indentStack = l.indentStack[:len(l.indentStack)-1]
			l.emit(token.DEDENT, start, "")
		}
		if l.indentStack[len(l.indentStack)-1] != units {
			l.fail(start, "inconsistent indentation")
		}
	}
	l.atLineStart = false
	return true
}

func (l *lexer) skipInlineSpace() {
	for l.ch == ' ' || l.ch == '\t' || (l.ch == '\n' && l.parenDepth > 0) {
		l.readChar()
	}
}

func (l *lexer) lexComment() {
	start := l.pos
	for l.ch != '\n' && l.ch != 0 {
		l.readChar()
	}
	l.comments.Add(&ast.Comment{
		Span: span.Span{File: l.file, Start: start, End: l.pos},
		Text: l.src[start:l.pos],
	})
}

func isIdentStart(r rune) bool { return unicode.IsLetter(r) || r == '_' }
func isIdentCont(r rune) bool  { return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' }
func isDigit(r rune) bool      { return r >= '0' && r <= '9' }

func (l *lexer) lexToken() {
	start := l.pos

	switch {
	case isIdentStart(l.ch):
		l.lexIdent(start)
		return
	case isDigit(l.ch):
		l.lexNumber(start)
		return
	case l.ch == '"' || l.ch == '\'' || l.ch == '`':
		l.lexText(start, l.ch, matchingCloser(l.ch))
		return
	}

	ch := l.ch
	switch ch {
	case '(':
		l.parenDepth++
		l.readChar()
		l.emit(token.LPAREN, start, "(")
	case ')':
		l.parenDepth--
		l.readChar()
		l.emit(token.RPAREN, start, ")")
	case '[':
		l.parenDepth++
		l.readChar()
		l.emit(token.LBRACKET, start, "[")
	case ']':
		l.parenDepth--
		l.readChar()
		l.emit(token.RBRACKET, start, "]")
	case '{':
		l.parenDepth++
		l.readChar()
		l.emit(token.LBRACE, start, "{")
	case '}':
		l.parenDepth--
		l.readChar()
		l.emit(token.RBRACE, start, "}")
	case ',':
		l.readChar()
		l.emit(token.COMMA, start, ",")
	case ';':
		l.readChar()
		l.emit(token.SEMICOLON, start, ";")
	case '?':
		l.readChar()
		l.emit(token.QUESTION, start, "?")
	case '!':
		l.readChar()
		if l.ch == '=' {
			l.readChar()
			l.emit(token.NEQ, start, "!=")
		} else {
			l.emit(token.BANG, start, "!")
		}
	case '@':
		l.readChar()
		l.emit(token.AT, start, "@")
	case '|':
		l.readChar()
		l.emit(token.PIPE, start, "|")
	case ':':
		l.readChar()
		if l.ch == '=' {
			l.readChar()
			l.emit(token.DECLARE, start, ":=")
		} else {
			l.emit(token.COLON, start, ":")
		}
	case '.':
		l.readChar()
		if l.ch == '.' {
			l.readChar()
			if l.ch == '.' {
				l.readChar()
				l.emit(token.ELLIPSIS, start, "...")
			} else {
				l.emit(token.DOT_DOT, start, "..")
			}
		} else {
			l.emit(token.DOT, start, ".")
		}
	case '&':
		l.readChar()
		l.emit(token.AMPERSAND, start, "&")
	case '=':
		l.readChar()
		if l.ch == '=' {
			l.readChar()
			l.emit(token.EQ, start, "==")
		} else if l.ch == '>' {
			l.readChar()
			l.emit(token.FAT_ARROW, start, "=>")
		} else {
			l.emit(token.ASSIGN, start, "=")
		}
	case '+':
		l.readChar()
		if l.ch == '+' {
			l.readChar()
			if l.ch == '=' {
				l.readChar()
				l.emit(token.CONCAT_EQ, start, "++=")
			} else {
				l.emit(token.CONCAT, start, "++")
			}
		} else if l.ch == '=' {
			l.readChar()
			l.emit(token.PLUS_EQ, start, "+=")
		} else {
			l.emit(token.PLUS, start, "+")
		}
	case '-':
		l.readChar()
		if l.ch == '=' {
			l.readChar()
			l.emit(token.MINUS_EQ, start, "-=")
		} else if l.ch == '>' {
			l.readChar()
			l.emit(token.ARROW, start, "->")
		} else {
			l.emit(token.MINUS, start, "-")
		}
	case '*':
		l.readChar()
		if l.ch == '=' {
			l.readChar()
			l.emit(token.STAR_EQ, start, "*=")
		} else {
			l.emit(token.STAR, start, "*")
		}
	case '/':
		l.readChar()
		if l.ch == '=' {
			l.readChar()
			l.emit(token.SLASH_EQ, start, "/=")
		} else {
			l.emit(token.SLASH, start, "/")
		}
	case '%':
		l.readChar()
		if l.ch == '=' {
			l.readChar()
			l.emit(token.PERCENT_EQ, start, "%=")
		} else {
			l.emit(token.PERCENT, start, "%")
		}
	case '^':
		l.readChar()
		if l.ch == '=' {
			l.readChar()
			l.emit(token.CARET_EQ, start, "^=")
		} else {
			l.emit(token.CARET, start, "^")
		}
	case '<':
		l.readChar()
		switch {
		case l.ch == '<':
			l.readChar()
			if l.ch == '<' {
				l.readChar()
				if l.ch == '=' {
					l.readChar()
					l.emit(token.ULSHIFT_EQ, start, "<<<=")
				} else {
					l.emit(token.ULSHIFT, start, "<<<")
				}
			} else if l.ch == '=' {
				l.readChar()
				l.emit(token.LSHIFT_EQ, start, "<<=")
			} else {
				l.emit(token.LSHIFT, start, "<<")
			}
		case l.ch == '=':
			l.readChar()
			l.emit(token.LTE, start, "<=")
		case l.ch == '>':
			l.readChar()
			l.emit(token.CMP, start, "<>")
		default:
			l.emit(token.LT, start, "<")
		}
	case '>':
		l.readChar()
		switch {
		case l.ch == '>':
			l.readChar()
			if l.ch == '>' {
				l.readChar()
				if l.ch == '=' {
					l.readChar()
					l.emit(token.URSHIFT_EQ, start, ">>>=")
				} else {
					l.emit(token.URSHIFT, start, ">>>")
				}
			} else if l.ch == '=' {
				l.readChar()
				l.emit(token.RSHIFT_EQ, start, ">>=")
			} else {
				l.emit(token.RSHIFT, start, ">>")
			}
		case l.ch == '=':
			l.readChar()
			l.emit(token.GTE, start, ">=")
		default:
			l.emit(token.GT, start, ">")
		}
	default:
		l.readChar()
		l.fail(start, "illegal character "+string(ch))
	}
}

func (l *lexer) lexIdent(start int) {
	for isIdentCont(l.ch) {
		l.readChar()
	}
	word := l.src[start:l.pos]
	if kw, ok := token.IsKeyword(word); ok {
		// `and=`, `or=`, `xor=`, `_min_=`, `_max_=` are update forms of
		// the corresponding logical/reduction keyword.
		if l.ch == '=' && l.peekChar() != '=' {
			switch kw {
			case token.KW_AND:
				l.readChar()
				l.emit(token.AND_EQ, start, word+"=")
				return
			case token.KW_OR:
				l.readChar()
				l.emit(token.OR_EQ, start, word+"=")
				return
			case token.KW_XOR:
				l.readChar()
				l.emit(token.XOR_EQ, start, word+"=")
				return
			case token.KW_MIN:
				l.readChar()
				l.emit(token.MIN_EQ, start, word+"=")
				return
			case token.KW_MAX:
				l.readChar()
				l.emit(token.MAX_EQ, start, word+"=")
				return
			}
		}
		l.emit(kw, start, word)
		return
	}
	l.emit(token.IDENT, start, word)
}

func (l *lexer) lexNumber(start int) {
	base := 10
	if l.ch == '0' && (l.peekChar() == 'x' || l.peekChar() == 'o' || l.peekChar() == 'b') {
		switch l.peekChar() {
		case 'x':
			base = 16
		case 'o':
			base = 8
		case 'b':
			base = 2
		}
		l.readChar()
		l.readChar()
	}
	isDigitForBase := func(r rune) bool {
		switch base {
		case 16:
			return isDigit(r) || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
		case 8:
			return r >= '0' && r <= '7'
		case 2:
			return r == '0' || r == '1'
		default:
			return isDigit(r)
		}
	}
	isFloat := false
	for isDigitForBase(l.ch) || l.ch == '_' {
		l.readChar()
	}
	if base == 10 && l.ch == '.' && isDigit(l.peekChar()) {
		isFloat = true
		l.readChar()
		for isDigit(l.ch) || l.ch == '_' {
			l.readChar()
		}
	}
	if base == 10 && (l.ch == 'e' || l.ch == 'E') {
		peekAhead := l.peekChar()
		if isDigit(peekAhead) || peekAhead == '+' || peekAhead == '-' {
			isFloat = true
			l.readChar()
			if l.ch == '+' || l.ch == '-' {
				l.readChar()
			}
			for isDigit(l.ch) {
				l.readChar()
			}
		}
	}
	// Unit suffixes: `%` (percent), `deg` (degrees), bare `f` forces Num.
	forcedNum := false
	if l.ch == '%' {
		forcedNum = true
		l.readChar()
	} else if l.ch == 'd' && strings.HasPrefix(l.src[l.pos:], "deg") {
		forcedNum = true
		l.readChar()
		l.readChar()
		l.readChar()
	} else if l.ch == 'f' && !isIdentCont(l.peekChar()) {
		forcedNum = true
		l.readChar()
	}
	lexeme := l.src[start:l.pos]
	if isFloat || forcedNum {
		l.emitLiteral(token.FLOAT, start, lexeme, lexeme)
	} else {
		l.emitLiteral(token.INT, start, lexeme, lexeme)
	}
}

func matchingCloser(opener rune) rune {
	switch opener {
	case '(':
		return ')'
	case '[':
		return ']'
	case '{':
		return '}'
	case '<':
		return '>'
	default:
		return opener
	}
}

// lexText scans a text literal body after its opening delimiter, emitting
// STRING_START, alternating TEXT_LITERAL/embedded-expression tokens, and
// TEXT_END (spec §4.1 "Text literals"). Backtick text disables escapes.
func (l *lexer) lexText(start int, opener, closer rune) {
	l.readChar()
	l.emit(token.STRING_START, start, string(opener))

	rawMode := opener == '`'
	depth := 1
	var chunk strings.Builder
	chunkStart := l.pos

	flush := func() {
		if chunk.Len() > 0 {
			l.emitLiteral(token.TEXT_LITERAL, chunkStart, chunk.String(), chunk.String())
			chunk.Reset()
		}
		chunkStart = l.pos
	}

	for {
		if l.ch == 0 {
			l.fail(l.pos, "unterminated text literal")
			flush()
			return
		}
		if l.ch == closer {
			depth--
			if depth == 0 {
				flush()
				end := l.pos
				l.readChar()
				l.emit(token.TEXT_END, end, string(closer))
				return
			}
			chunk.WriteRune(l.ch)
			l.readChar()
			continue
		}
		if opener != closer && l.ch == opener {
			depth++
			chunk.WriteRune(l.ch)
			l.readChar()
			continue
		}
		if !rawMode && l.ch == '\\' {
			flush()
			l.lexEscape(&chunk)
			chunkStart = l.pos
			continue
		}
		if !rawMode && l.ch == '$' {
			if l.peekChar() == '$' {
				chunk.WriteRune('$')
				l.readChar()
				l.readChar()
				continue
			}
			flush()
			l.lexInterpolation()
			chunkStart = l.pos
			continue
		}
		chunk.WriteRune(l.ch)
		l.readChar()
	}
}

// lexEscape decodes one `\` escape into chunk (spec §4.1 item 3).
func (l *lexer) lexEscape(chunk *strings.Builder) {
	start := l.pos
	l.readChar() // consume backslash
	switch l.ch {
	case 'n':
		chunk.WriteByte('\n')
		l.readChar()
	case 't':
		chunk.WriteByte('\t')
		l.readChar()
	case 'r':
		chunk.WriteByte('\r')
		l.readChar()
	case '\\':
		chunk.WriteByte('\\')
		l.readChar()
	case '"', '\'', '`', '$':
		chunk.WriteRune(l.ch)
		l.readChar()
	case 'x':
		l.readChar()
		v := l.takeHex(2)
		chunk.WriteRune(rune(v))
	case '[':
		l.readChar()
		for l.ch != 'm' && l.ch != 0 {
			l.readChar()
		}
		if l.ch == 'm' {
			l.readChar()
		}
	case '{':
		l.readChar()
		for l.ch != '}' && l.ch != 0 {
			l.readChar()
		}
		if l.ch == '}' {
			l.readChar()
		}
	default:
		if isDigit(l.ch) {
			v := l.takeOctal(3)
			chunk.WriteRune(rune(v))
		} else {
			l.fail(start, "bad escape sequence")
		}
	}
}

func (l *lexer) takeHex(n int) int {
	v := 0
	for i := 0; i < n && isHex(l.ch); i++ {
		v = v*16 + hexVal(l.ch)
		l.readChar()
	}
	return v
}

func (l *lexer) takeOctal(n int) int {
	v := 0
	for i := 0; i < n && l.ch >= '0' && l.ch <= '7'; i++ {
		v = v*8 + int(l.ch-'0')
		l.readChar()
	}
	return v
}

func isHex(r rune) bool {
	return isDigit(r) || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}
func hexVal(r rune) int {
	switch {
	case r >= '0' && r <= '9':
		return int(r - '0')
	case r >= 'a' && r <= 'f':
		return int(r-'a') + 10
	default:
		return int(r-'A') + 10
	}
}

// lexInterpolation lexes a single embedded term after `$`: either a bare
// name (`$x`, optionally with `.field`/`[index]`/`(call)` suffixes) or a
// parenthesized expression (`$(x+1)`), tokenized inline into the main
// stream wrapped in a synthetic LPAREN/RPAREN pair so the parser can
// always consume it as one parenthesized sub-expression (spec §4.1 item 4:
// "a single expression with field/index/call suffixes but no binary
// operators unless parenthesized").
func (l *lexer) lexInterpolation() {
	dollarStart := l.pos
	l.readChar() // consume $
	l.emit(token.FAT_ARROW, dollarStart, "$") // sentinel: embedded term follows
	l.emit(token.LPAREN, l.pos, "(")
	if l.ch == '(' {
		depth := 0
		for {
			start := l.pos
			switch l.ch {
			case '(':
				depth++
				l.readChar()
				l.emit(token.LPAREN, start, "(")
			case ')':
				depth--
				l.readChar()
				l.emit(token.RPAREN, start, ")")
				if depth == 0 {
					l.emit(token.RPAREN, l.pos, ")")
					return
				}
			case 0:
				l.fail(start, "unterminated interpolation")
				l.emit(token.RPAREN, l.pos, ")")
				return
			default:
				l.lexToken()
			}
		}
	}
	for isIdentStart(l.ch) {
		l.lexIdent(l.pos)
		for l.ch == '.' || l.ch == '(' || l.ch == '[' {
			switch l.ch {
			case '.':
				start := l.pos
				l.readChar()
				l.emit(token.DOT, start, ".")
				if isIdentStart(l.ch) {
					l.lexIdent(l.pos)
				}
			case '(', '[':
				opener := l.ch
				closer := matchingCloser(opener)
				start := l.pos
				l.readChar()
				l.emit(tokenFor(opener), start, string(opener))
				for l.ch != closer && l.ch != 0 {
					l.lexToken()
				}
				if l.ch == closer {
					end := l.pos
					l.readChar()
					l.emit(tokenFor(closer), end, string(closer))
				}
			}
		}
	}
	l.emit(token.RPAREN, l.pos, ")")
}

func tokenFor(delim rune) token.Type {
	switch delim {
	case '(':
		return token.LPAREN
	case ')':
		return token.RPAREN
	case '[':
		return token.LBRACKET
	case ']':
		return token.RBRACKET
	default:
		return token.ILLEGAL
	}
}
