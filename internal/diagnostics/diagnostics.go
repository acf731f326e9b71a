// Package diagnostics formats and routes compiler errors. It is the Go
// stand-in for the source compiler's longjmp error sink (spec §7): instead
// of a process-global jump buffer, a Sink is threaded explicitly through
// the parser/checker/emitter so the same core can either abort immediately
// (PanicSink, used by cmd/tomoc) or collect every diagnostic (CollectSink,
// used by tests and tooling that want more than the first error).
package diagnostics

import (
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/tomo-lang/tomo/internal/span"
)

// ErrorCode identifies a diagnostic's class, mirroring the teacher's
// "P001", "A003"-style codes so tests can assert on a stable code rather
// than matching message text.
type ErrorCode string

const (
	// Lex errors (L)
	ErrLBadEscape     ErrorCode = "L001" // malformed escape sequence
	ErrLUnterminated  ErrorCode = "L002" // unterminated text literal
	ErrLMixedIndent   ErrorCode = "L003" // tabs and spaces mixed on one line
	ErrLBadNumber     ErrorCode = "L004" // malformed numeric literal
	ErrLIllegalChar   ErrorCode = "L005" // unrecognized byte

	// Parse errors (P)
	ErrPUnexpectedTok ErrorCode = "P001" // unexpected token
	ErrPExpected      ErrorCode = "P002" // expected a specific token/construct
	ErrPChainedCmp    ErrorCode = "P003" // chained comparison without parens
	ErrPAmbiguousMinMax ErrorCode = "P004" // `a _min_ b < c` without parens
	ErrPBadIndent     ErrorCode = "P005" // indentation doesn't match block

	// Bind errors (B)
	ErrBUnknownName  ErrorCode = "B001"
	ErrBDuplicate    ErrorCode = "B002"
	ErrBCycle        ErrorCode = "B003"

	// Type errors (T)
	ErrTMismatch       ErrorCode = "T001"
	ErrTNotOrderable   ErrorCode = "T002"
	ErrTNoField        ErrorCode = "T003"
	ErrTArity          ErrorCode = "T004"
	ErrTNonExhaustive  ErrorCode = "T005"
	ErrTDuplicateTag   ErrorCode = "T006"
	ErrTNoneNeedsHint  ErrorCode = "T007"

	// Semantic errors (S)
	ErrSReturnOutsideFn  ErrorCode = "S001"
	ErrSLoopCtlOutside   ErrorCode = "S002"
	ErrSStackEscape      ErrorCode = "S003"
	ErrSImmutableAssign  ErrorCode = "S004"
	ErrSNotImplemented   ErrorCode = "S005"

	// I/O errors (I)
	ErrIRead ErrorCode = "I001"
)

// Diagnostic is one formatted compiler error, with enough information to
// render a caret-highlighted source excerpt (spec §7).
type Diagnostic struct {
	Code    ErrorCode
	Span    span.Span
	Message string
	Hint    string // optional suggested fix, e.g. "wrap in @ to heap-allocate"
}

func (d *Diagnostic) Error() string {
	return d.Format(false)
}

// Format renders the diagnostic the way the compiler prints to a terminal:
// "file:line:col: message", the offending source line, and a caret
// underline spanning the error's byte range. When color is true the
// message and carets are wrapped in ANSI red.
func (d *Diagnostic) Format(color bool) string {
	var b strings.Builder
	line, col := 1, 1
	lineText := ""
	path := "<input>"
	if d.Span.File != nil {
		line, col = d.Span.File.LineCol(d.Span.Start)
		lineText = d.Span.File.Line(d.Span.Start)
		path = d.Span.File.RelPath()
	}

	head := fmt.Sprintf("%s:%d:%d: %s", path, line, col, d.Message)
	if color {
		fmt.Fprintf(&b, "\x1b[1;31m%s\x1b[0m\n", head)
	} else {
		fmt.Fprintf(&b, "%s\n", head)
	}

	if lineText != "" {
		b.WriteString(lineText)
		b.WriteByte('\n')
		underlineLen := d.Span.End - d.Span.Start
		if underlineLen < 1 {
			underlineLen = 1
		}
		if col-1+underlineLen > len(lineText)+1 {
			underlineLen = len(lineText) - (col - 1)
			if underlineLen < 1 {
				underlineLen = 1
			}
		}
		caret := strings.Repeat(" ", col-1) + strings.Repeat("^", underlineLen)
		if color {
			fmt.Fprintf(&b, "\x1b[1;31m%s\x1b[0m", caret)
		} else {
			b.WriteString(caret)
		}
	}
	if d.Hint != "" {
		fmt.Fprintf(&b, "\nhint: %s", d.Hint)
	}
	return b.String()
}

// Sink receives diagnostics from every pass. Implementations decide whether
// to abort immediately or keep collecting; no pass recovers from an error
// on its own (spec §7: "There is no partial recovery").
type Sink interface {
	Fail(code ErrorCode, sp span.Span, format string, args ...any)
	FailHint(code ErrorCode, sp span.Span, hint string, format string, args ...any)
}

// aborted is the panic payload used by PanicSink so cmd/tomoc can recover
// it specifically (as opposed to an actual compiler bug panic).
type aborted struct{ D *Diagnostic }

// PanicSink reports the first diagnostic by panicking with it, the Go
// analog of the source compiler's longjmp sink. Recover it with Recover.
type PanicSink struct {
	UseColor bool
}

// NewPanicSink builds a PanicSink that colors output exactly when stderr is
// a terminal, matching the teacher's isatty gate in builtins_term.go.
func NewPanicSink() *PanicSink {
	return &PanicSink{UseColor: isatty.IsTerminal(os.Stderr.Fd())}
}

func (s *PanicSink) Fail(code ErrorCode, sp span.Span, format string, args ...any) {
	s.FailHint(code, sp, "", format, args...)
}

func (s *PanicSink) FailHint(code ErrorCode, sp span.Span, hint string, format string, args ...any) {
	panic(aborted{D: &Diagnostic{Code: code, Span: sp, Message: fmt.Sprintf(format, args...), Hint: hint}})
}

// Recover turns an in-flight PanicSink panic back into a (*Diagnostic, ok)
// pair. Call it in a deferred function at the top of each entry point.
func Recover(r any) (*Diagnostic, bool) {
	if a, ok := r.(aborted); ok {
		return a.D, true
	}
	return nil, false
}

// CollectSink gathers every diagnostic instead of aborting, for tests and
// tooling (e.g. a future LSP) that want all errors from a single pass.
type CollectSink struct {
	Diagnostics []*Diagnostic
}

func (s *CollectSink) Fail(code ErrorCode, sp span.Span, format string, args ...any) {
	s.FailHint(code, sp, "", format, args...)
}

func (s *CollectSink) FailHint(code ErrorCode, sp span.Span, hint string, format string, args ...any) {
	s.Diagnostics = append(s.Diagnostics, &Diagnostic{Code: code, Span: sp, Message: fmt.Sprintf(format, args...), Hint: hint})
}

// Trace writes a line to stderr when VERBOSE is set to any non-empty value,
// e.g. VERBOSE=1 (spec §6.2),
// mirroring the teacher's habit of a plain fmt.Fprintf rather than a
// logging framework for ambient, non-diagnostic narration.
func Trace(format string, args ...any) {
	if os.Getenv("VERBOSE") == "" {
		return
	}
	fmt.Fprintf(os.Stderr, "[tomo] "+format+"\n", args...)
}
