package imports

import (
	"bytes"
	"sort"
)

// SpanKind classifies a masked byte range.
type SpanKind int

const (
	SpanComment SpanKind = iota
	SpanString
)

func (k SpanKind) String() string {
	if k == SpanComment {
		return "comment"
	}
	return "string"
}

// Span is a masked byte range [Start, End) of the source. For strings,
// [ContentStart, ContentEnd) is the literal text between the delimiters;
// for comments the content is the whole span.
type Span struct {
	Start        int
	End          int
	ContentStart int
	ContentEnd   int
	Kind         SpanKind
}

const filler = '_'

// Masked is the result of the masking pass.
type Masked struct {
	Src   []byte
	View  []byte
	Spans []Span
	lines []int
}

// Mask scans src once and returns its masked spans and code view. The view
// has the same length as src: comment bytes become spaces, string content
// bytes become a filler, delimiters and newlines are kept.
func Mask(src []byte, lang *Language) *Masked {
	sc := &Scanner{src: src, lang: lang, lastPos: -1}
	if lang != nil {
		sc.ScanCode(0, false)
	}
	return newMasked(src, sc.spans)
}

func newMasked(src []byte, spans []Span) *Masked {
	view := make([]byte, len(src))
	copy(view, src)
	for _, sp := range spans {
		switch sp.Kind {
		case SpanComment:
			blank(view, sp.Start, sp.End, ' ')
		case SpanString:
			blank(view, sp.ContentStart, sp.ContentEnd, filler)
		}
	}

	lines := []int{0}
	for i, c := range src {
		if c == '\n' {
			lines = append(lines, i+1)
		}
	}
	return &Masked{Src: src, View: view, Spans: spans, lines: lines}
}

func blank(view []byte, start, end int, with byte) {
	for i := start; i < end && i < len(view); i++ {
		if view[i] != '\n' && view[i] != '\r' {
			view[i] = with
		}
	}
}

// Line returns the 1-based line number of a byte offset.
func (m *Masked) Line(off int) int {
	return sort.Search(len(m.lines), func(i int) bool { return m.lines[i] > off })
}

// StringAt returns the string span starting exactly at off.
func (m *Masked) StringAt(off int) (Span, bool) {
	i := sort.Search(len(m.Spans), func(i int) bool { return m.Spans[i].Start >= off })
	for ; i < len(m.Spans) && m.Spans[i].Start == off; i++ {
		if m.Spans[i].Kind == SpanString {
			return m.Spans[i], true
		}
	}
	return Span{}, false
}

// StringsWithin returns the string spans that start in [start, end).
func (m *Masked) StringsWithin(start, end int) []Span {
	var out []Span
	i := sort.Search(len(m.Spans), func(i int) bool { return m.Spans[i].Start >= start })
	for ; i < len(m.Spans) && m.Spans[i].Start < end; i++ {
		if m.Spans[i].Kind == SpanString {
			out = append(out, m.Spans[i])
		}
	}
	return out
}

// Literal returns the original content of a string span.
func (m *Masked) Literal(sp Span) string {
	return string(m.Src[sp.ContentStart:sp.ContentEnd])
}

// Covered reports whether off lies inside any masked span.
func (m *Masked) Covered(off int) bool {
	i := sort.Search(len(m.Spans), func(i int) bool { return m.Spans[i].Start > off })
	return i > 0 && m.Spans[i-1].End > off
}

// Scanner is the forward scanner behind Mask. Special scanners use it to
// read the source, record spans and recurse into embedded code.
type Scanner struct {
	src     []byte
	lang    *Language
	spans   []Span
	last    byte
	lastPos int
}

// Src returns the source being scanned.
func (sc *Scanner) Src() []byte {
	return sc.src
}

// Prev returns the last non-space code byte before the current position
// and its offset, or (0, -1) at the start of the file.
func (sc *Scanner) Prev() (byte, int) {
	return sc.last, sc.lastPos
}

// parenKeyword returns the identifier before the '(' that matches the ')'
// at end, or "" when there is none. Parens inside recorded spans are
// skipped.
func (sc *Scanner) parenKeyword(end int) string {
	depth := 0
	open := -1
	for k := end; k >= 0; k-- {
		if sc.inSpan(k) {
			continue
		}
		switch sc.src[k] {
		case ')':
			depth++
		case '(':
			depth--
		}
		if depth == 0 {
			open = k
			break
		}
	}
	if open < 0 {
		return ""
	}
	k := open - 1
	for k >= 0 && (isSpace(sc.src[k]) || sc.inSpan(k)) {
		k--
	}
	if k < 0 || !isIdentByte(sc.src[k]) {
		return ""
	}
	return wordEndingAt(sc.src, k)
}

func (sc *Scanner) inSpan(off int) bool {
	for _, sp := range sc.spans {
		if off >= sp.Start && off < sp.End {
			return true
		}
	}
	return false
}

// AddComment records a comment span.
func (sc *Scanner) AddComment(start, end int) {
	if end > start {
		sc.spans = append(sc.spans, Span{Start: start, End: end, ContentStart: start, ContentEnd: end, Kind: SpanComment})
	}
}

// AddString records a string span and its content bounds.
func (sc *Scanner) AddString(start, contentStart, contentEnd, end int) {
	if end <= start {
		return
	}
	if contentEnd < contentStart {
		contentEnd = contentStart
	}
	sc.spans = append(sc.spans, Span{Start: start, End: end, ContentStart: contentStart, ContentEnd: contentEnd, Kind: SpanString})
	sc.last, sc.lastPos = sc.src[end-1], end-1
}

// ScanCode scans code from i. With untilBrace it stops at the first
// unbalanced '}' and returns its offset; otherwise it runs to the end.
func (sc *Scanner) ScanCode(i int, untilBrace bool) int {
	src := sc.src
	n := len(src)
	depth := 0
next:
	for i < n {
		for _, special := range sc.lang.Specials {
			if end, ok := special(sc, i); ok && end > i {
				i = end
				continue next
			}
		}
		if end, ok := sc.comment(i); ok {
			i = end
			continue
		}
		if end, ok := sc.str(i); ok {
			i = end
			continue
		}

		c := src[i]
		if untilBrace {
			switch c {
			case '{':
				depth++
			case '}':
				if depth == 0 {
					return i
				}
				depth--
			}
		}
		if !isSpace(c) {
			sc.last, sc.lastPos = c, i
		}
		i++
	}
	return n
}

func (sc *Scanner) comment(i int) (int, bool) {
	src := sc.src
	for _, marker := range sc.lang.LineComments {
		if hasPrefixAt(src, i, marker) {
			end := lineEnd(src, i)
			sc.AddComment(i, end)
			return end, true
		}
	}
	for _, bc := range sc.lang.BlockComments {
		if hasPrefixAt(src, i, bc.Open) {
			end := blockEnd(src, i, bc)
			sc.AddComment(i, end)
			return end, true
		}
	}
	return 0, false
}

func (sc *Scanner) str(i int) (int, bool) {
	for _, d := range sc.lang.Strings {
		if !hasPrefixAt(sc.src, i, d.Quote) {
			continue
		}
		contentStart := i + len(d.Quote)
		contentEnd, end := scanQuoted(sc.src, contentStart, d)
		sc.AddString(i, contentStart, contentEnd, end)
		return end, true
	}
	return 0, false
}

// scanQuoted returns the content end and literal end for a string whose
// content starts at j.
func scanQuoted(src []byte, j int, d StringDelim) (contentEnd, end int) {
	n := len(src)
	for j < n {
		c := src[j]
		if d.Escape && c == '\\' {
			// Skip the escaped byte; an escaped newline continues the literal.
			j += 2
			continue
		}
		if hasPrefixAt(src, j, d.Quote) {
			return j, j + len(d.Quote)
		}
		if c == '\n' && !d.MultiLine {
			return j, j
		}
		j++
	}
	return n, n
}

func blockEnd(src []byte, i int, bc BlockComment) int {
	n := len(src)
	j := i + len(bc.Open)
	depth := 1
	for j < n {
		switch {
		case bc.Nested && hasPrefixAt(src, j, bc.Open):
			depth++
			j += len(bc.Open)
		case hasPrefixAt(src, j, bc.Close):
			depth--
			j += len(bc.Close)
			if depth == 0 {
				return j
			}
		default:
			j++
		}
	}
	return n
}

func hasPrefixAt(src []byte, i int, prefix string) bool {
	return len(prefix) > 0 && i+len(prefix) <= len(src) && string(src[i:i+len(prefix)]) == prefix
}

func lineEnd(src []byte, i int) int {
	if k := bytes.IndexByte(src[i:], '\n'); k >= 0 {
		return i + k
	}
	return len(src)
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}

func isIdentByte(c byte) bool {
	return c == '_' || c == '$' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c >= 0x80
}
