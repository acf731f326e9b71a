// Package span holds the source-file and byte-range types shared by every
// later compiler stage (ast, types, parser, checker, emitter, diagnostics).
package span

import "strings"

// File is a loaded source file. It owns the full text and a lazily-computed
// line-start index used to turn byte offsets into line/column pairs.
type File struct {
	Path       string
	Text       string
	lineStarts []int
}

// NewFile wraps source bytes already read from disk (or an in-memory string,
// for parseExpr/parseType callers and tests) as a File.
func NewFile(path, text string) *File {
	return &File{Path: path, Text: text}
}

func (f *File) ensureLineStarts() {
	if f.lineStarts != nil {
		return
	}
	starts := []int{0}
	for i := 0; i < len(f.Text); i++ {
		if f.Text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	f.lineStarts = starts
}

// LineCol converts a byte offset into a 1-based (line, column) pair.
func (f *File) LineCol(offset int) (line, col int) {
	f.ensureLineStarts()
	// binary search for the last line start <= offset
	lo, hi := 0, len(f.lineStarts)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if f.lineStarts[mid] <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	lineStart := f.lineStarts[lo]
	return lo + 1, offset - lineStart + 1
}

// Line returns the full text of the line containing offset, without its
// trailing newline.
func (f *File) Line(offset int) string {
	f.ensureLineStarts()
	line, _ := f.LineCol(offset)
	start := f.lineStarts[line-1]
	end := strings.IndexByte(f.Text[start:], '\n')
	if end < 0 {
		return f.Text[start:]
	}
	return f.Text[start : start+end]
}

// RelPath returns a filename suitable for diagnostics: the path as given,
// since the core does not know the invoking driver's working directory.
func (f *File) RelPath() string {
	return f.Path
}

// Span is a half-open byte range [Start, End) within File. Spans are
// immutable once produced; Start <= End and both lie within File.Text.
type Span struct {
	File  *File
	Start int
	End   int
}

// Contains reports whether inner lies entirely within s (allowing equal
// bounds), used to check the parent/child span-containment invariant.
func (s Span) Contains(inner Span) bool {
	return s.File == inner.File && s.Start <= inner.Start && inner.End <= s.End
}

// Join returns the smallest span covering both a and b; both must share a
// File. Used when a node's span is derived from its first and last token.
func Join(a, b Span) Span {
	start, end := a.Start, a.End
	if b.Start < start {
		start = b.Start
	}
	if b.End > end {
		end = b.End
	}
	return Span{File: a.File, Start: start, End: end}
}

// Text returns the source slice covered by s.
func (s Span) Text() string {
	if s.File == nil {
		return ""
	}
	return s.File.Text[s.Start:s.End]
}
