package imports

import (
	"bytes"
	"unicode/utf8"
)

// jsTemplate scans a template literal. Each literal chunk becomes its own
// string span; code inside ${...} is scanned recursively so strings and
// templates nested in substitutions are masked too.
func jsTemplate(sc *Scanner, i int) (int, bool) {
	src := sc.Src()
	if src[i] != '`' {
		return 0, false
	}
	n := len(src)
	chunk := i
	j := i + 1
	for j < n {
		switch {
		case src[j] == '\\':
			j += 2
		case src[j] == '`':
			sc.AddString(chunk, chunk+1, j, j+1)
			return j + 1, true
		case src[j] == '$' && j+1 < n && src[j+1] == '{':
			sc.AddString(chunk, chunk+1, j, j+2)
			brace := sc.ScanCode(j+2, true)
			if brace >= n {
				return n, true
			}
			chunk = brace
			j = brace + 1
		default:
			j++
		}
	}
	if j > n {
		j = n
	}
	sc.AddString(chunk, chunk+1, j, j)
	return n, true
}

var jsRegexKeywords = map[string]bool{
	"return": true, "typeof": true, "instanceof": true, "in": true, "of": true,
	"new": true, "delete": true, "void": true, "throw": true, "case": true,
	"do": true, "else": true, "yield": true, "await": true,
}

// jsRegex scans a regular expression literal. A slash opens a regex only
// where an expression may start: at the beginning of the file, after an
// operator or opening bracket, after a keyword such as return, or after the
// closing paren of a loop or if condition.
func jsRegex(sc *Scanner, i int) (int, bool) {
	src := sc.Src()
	n := len(src)
	if src[i] != '/' || i+1 >= n || src[i+1] == '/' || src[i+1] == '*' {
		return 0, false
	}
	if prev, pos := sc.Prev(); pos >= 0 {
		if isIdentByte(prev) {
			if !jsRegexKeywords[wordEndingAt(src, pos)] {
				return 0, false
			}
		} else if prev == ')' {
			if !jsRegexParenKeywords[sc.parenKeyword(pos)] {
				return 0, false
			}
		} else if bytes.IndexByte([]byte("]}.'\"`"), prev) >= 0 {
			return 0, false
		}
	}

	inClass := false
	j := i + 1
	for j < n {
		c := src[j]
		if c == '\n' {
			return 0, false
		}
		if c == '\\' {
			j += 2
			continue
		}
		if inClass {
			if c == ']' {
				inClass = false
			}
		} else if c == '[' {
			inClass = true
		} else if c == '/' {
			break
		}
		j++
	}
	if j >= n {
		return 0, false
	}
	contentEnd := j
	j++
	for j < n && isIdentByte(src[j]) {
		j++
	}
	sc.AddString(i, i+1, contentEnd, j)
	return j, true
}

// jsRegexParenKeywords head a parenthesised condition that a statement, and
// so a regex literal, may follow.
var jsRegexParenKeywords = map[string]bool{"if": true, "while": true, "for": true, "with": true}

func wordEndingAt(src []byte, pos int) string {
	start := pos
	for start > 0 && isIdentByte(src[start-1]) {
		start--
	}
	return string(src[start : pos+1])
}

// rustRawString scans r"...", r#"..."# and the byte forms br"..." and
// br#"..."#. Raw strings have no escapes.
func rustRawString(sc *Scanner, i int) (int, bool) {
	src := sc.Src()
	n := len(src)
	if i > 0 && isIdentByte(src[i-1]) {
		return 0, false
	}
	j := i
	if j < n && src[j] == 'b' {
		j++
	}
	if j >= n || src[j] != 'r' {
		return 0, false
	}
	j++
	hashes := 0
	for j < n && src[j] == '#' {
		hashes++
		j++
	}
	if j >= n || src[j] != '"' {
		return 0, false
	}
	contentStart := j + 1
	closer := append([]byte{'"'}, bytes.Repeat([]byte{'#'}, hashes)...)
	k := bytes.Index(src[contentStart:], closer)
	if k < 0 {
		sc.AddString(i, contentStart, n, n)
		return n, true
	}
	contentEnd := contentStart + k
	end := contentEnd + len(closer)
	sc.AddString(i, contentStart, contentEnd, end)
	return end, true
}

// rustChar scans a character literal and leaves lifetimes such as 'a as
// code.
func rustChar(sc *Scanner, i int) (int, bool) {
	src := sc.Src()
	n := len(src)
	if src[i] != '\'' || i+2 >= n {
		return 0, false
	}
	if src[i+1] == '\\' {
		for j := i + 3; j < n && j < i+14; j++ {
			if src[j] == '\n' {
				return 0, false
			}
			if src[j] == '\'' {
				sc.AddString(i, i+1, j, j+1)
				return j + 1, true
			}
		}
		return 0, false
	}
	_, size := utf8.DecodeRune(src[i+1:])
	if src[i+1] == '\n' || i+1+size >= n || src[i+1+size] != '\'' {
		return 0, false
	}
	sc.AddString(i, i+1, i+1+size, i+2+size)
	return i + 2 + size, true
}

// swiftRawString scans #"..."# and #"""..."""# with any number of hashes.
func swiftRawString(sc *Scanner, i int) (int, bool) {
	src := sc.Src()
	n := len(src)
	if src[i] != '#' {
		return 0, false
	}
	j := i
	for j < n && src[j] == '#' {
		j++
	}
	hashes := j - i
	if j >= n || src[j] != '"' {
		return 0, false
	}
	quote := []byte{'"'}
	if hasPrefixAt(src, j, `"""`) {
		quote = []byte(`"""`)
	}
	contentStart := j + len(quote)
	closer := append(append([]byte{}, quote...), bytes.Repeat([]byte{'#'}, hashes)...)
	k := bytes.Index(src[contentStart:], closer)
	if k < 0 {
		sc.AddString(i, contentStart, n, n)
		return n, true
	}
	contentEnd := contentStart + k
	end := contentEnd + len(closer)
	sc.AddString(i, contentStart, contentEnd, end)
	return end, true
}

// csVerbatimString scans @"...", $@"..." and @$"..." where a doubled quote
// is the only escape.
func csVerbatimString(sc *Scanner, i int) (int, bool) {
	src := sc.Src()
	n := len(src)
	var q int
	switch {
	case hasPrefixAt(src, i, `@"`):
		q = i + 1
	case hasPrefixAt(src, i, `$@"`), hasPrefixAt(src, i, `@$"`):
		q = i + 2
	default:
		return 0, false
	}
	j := q + 1
	for j < n {
		if src[j] == '"' {
			if j+1 < n && src[j+1] == '"' {
				j += 2
				continue
			}
			sc.AddString(i, q+1, j, j+1)
			return j + 1, true
		}
		j++
	}
	sc.AddString(i, q+1, n, n)
	return n, true
}

// csRawString scans raw literals opened by three or more quotes and closed
// by the same number.
func csRawString(sc *Scanner, i int) (int, bool) {
	src := sc.Src()
	n := len(src)
	j := i
	for j < n && src[j] == '"' {
		j++
	}
	count := j - i
	if count < 3 {
		return 0, false
	}
	closer := bytes.Repeat([]byte{'"'}, count)
	k := bytes.Index(src[j:], closer)
	if k < 0 {
		sc.AddString(i, j, n, n)
		return n, true
	}
	sc.AddString(i, j, j+k, j+k+count)
	return j + k + count, true
}

// phpAttribute keeps #[...] attributes as code so the # line comment rule
// does not swallow them.
func phpAttribute(sc *Scanner, i int) (int, bool) {
	if hasPrefixAt(sc.Src(), i, "#[") {
		return i + 2, true
	}
	return 0, false
}

// phpHeredoc scans <<<ID, <<<"ID" and <<<'ID' bodies up to the closing
// identifier line.
func phpHeredoc(sc *Scanner, i int) (int, bool) {
	src := sc.Src()
	if !hasPrefixAt(src, i, "<<<") {
		return 0, false
	}
	j := i + 3
	for j < len(src) && (src[j] == ' ' || src[j] == '\t') {
		j++
	}
	quoted := j < len(src) && (src[j] == '"' || src[j] == '\'')
	if quoted {
		j++
	}
	id, j := readIdent(src, j)
	if id == "" {
		return 0, false
	}
	if quoted {
		if j >= len(src) || (src[j] != '"' && src[j] != '\'') {
			return 0, false
		}
		j++
	}
	return heredocBody(sc, i, j, id, true)
}

// rubyHeredoc scans <<~ID, <<-ID and <<ID bodies. The bare form needs an
// upper-case or quoted identifier and must not follow an operand, so that
// shifts such as list << x stay code.
func rubyHeredoc(sc *Scanner, i int) (int, bool) {
	src := sc.Src()
	n := len(src)
	if !hasPrefixAt(src, i, "<<") || i+2 >= n {
		return 0, false
	}
	j := i + 2
	indented := src[j] == '~' || src[j] == '-'
	if indented {
		j++
	}
	quoted := j < n && (src[j] == '"' || src[j] == '\'' || src[j] == '`')
	if quoted {
		j++
	}
	id, j := readIdent(src, j)
	if id == "" {
		return 0, false
	}
	if !indented && !quoted {
		if id[0] < 'A' || id[0] > 'Z' {
			return 0, false
		}
		if prev, pos := sc.Prev(); pos >= 0 && (isIdentByte(prev) || prev == ')' || prev == ']') {
			return 0, false
		}
	}
	if quoted {
		if j >= n {
			return 0, false
		}
		j++
	}
	return heredocBody(sc, i, j, id, indented)
}

// heredocBody masks everything from the end of the opener through the
// terminator line. The rest of the opener line is treated as part of the
// literal.
func heredocBody(sc *Scanner, start, openerEnd int, id string, indented bool) (int, bool) {
	src := sc.Src()
	n := len(src)
	line := lineEnd(src, openerEnd)
	for line < n {
		lineStart := line + 1
		next := lineEnd(src, lineStart)
		text := src[lineStart:next]
		k := 0
		if indented {
			for k < len(text) && (text[k] == ' ' || text[k] == '\t') {
				k++
			}
		}
		if bytes.HasPrefix(text[k:], []byte(id)) {
			after := k + len(id)
			if after == len(text) || !isIdentByte(text[after]) {
				end := lineStart + after
				sc.AddString(start, openerEnd, lineStart, end)
				return end, true
			}
		}
		line = next
	}
	sc.AddString(start, openerEnd, n, n)
	return n, true
}

func readIdent(src []byte, j int) (string, int) {
	start := j
	for j < len(src) && (src[j] == '_' || src[j] >= 'a' && src[j] <= 'z' || src[j] >= 'A' && src[j] <= 'Z' || j > start && src[j] >= '0' && src[j] <= '9') {
		j++
	}
	return string(src[start:j]), j
}

// rubyBlockComment scans =begin ... =end at line starts.
func rubyBlockComment(sc *Scanner, i int) (int, bool) {
	src := sc.Src()
	if (i > 0 && src[i-1] != '\n') || !hasPrefixAt(src, i, "=begin") {
		return 0, false
	}
	if k := i + len("=begin"); k < len(src) && !isSpace(src[k]) {
		return 0, false
	}
	line := lineEnd(src, i)
	for line < len(src) {
		lineStart := line + 1
		next := lineEnd(src, lineStart)
		if hasPrefixAt(src, lineStart, "=end") {
			sc.AddComment(i, next)
			return next, true
		}
		line = next
	}
	sc.AddComment(i, len(src))
	return len(src), true
}

var percentPairs = map[byte]byte{'(': ')', '[': ']', '{': '}', '<': '>'}

// rubyPercentLiteral scans %q(...), %Q[...], %w{...}, %i<...>, %r{...}
// and friends. Bracket delimiters nest.
func rubyPercentLiteral(sc *Scanner, i int) (int, bool) {
	src := sc.Src()
	n := len(src)
	if src[i] != '%' || i+2 >= n {
		return 0, false
	}
	switch src[i+1] {
	case 'q', 'Q', 'w', 'W', 'i', 'I', 'r', 's', 'x':
	default:
		return 0, false
	}
	open := src[i+2]
	if isIdentByte(open) || isSpace(open) {
		return 0, false
	}
	closer, paired := percentPairs[open]
	if !paired {
		closer = open
	}
	depth := 0
	for j := i + 3; j < n; j++ {
		switch c := src[j]; {
		case c == '\\':
			j++
		case paired && c == open:
			depth++
		case c == closer:
			if depth == 0 {
				sc.AddString(i, i+3, j, j+1)
				return j + 1, true
			}
			depth--
		}
	}
	sc.AddString(i, i+3, n, n)
	return n, true
}

// cppRawString scans R"delim(...)delim" with the u8, u, U and L prefixes.
func cppRawString(sc *Scanner, i int) (int, bool) {
	src := sc.Src()
	n := len(src)
	if src[i] != 'R' || i+1 >= n || src[i+1] != '"' {
		return 0, false
	}
	start := i
	for start > 0 && isIdentByte(src[start-1]) {
		start--
	}
	switch string(src[start:i]) {
	case "", "u8", "u", "U", "L":
	default:
		return 0, false
	}
	j := i + 2
	for j < n && j < i+2+16 && src[j] != '(' {
		if src[j] == ')' || src[j] == '\\' || isSpace(src[j]) {
			return 0, false
		}
		j++
	}
	if j >= n || src[j] != '(' {
		return 0, false
	}
	delim := src[i+2 : j]
	closer := append(append([]byte{')'}, delim...), '"')
	contentStart := j + 1
	k := bytes.Index(src[contentStart:], closer)
	if k < 0 {
		sc.AddString(i, contentStart, n, n)
		return n, true
	}
	end := contentStart + k + len(closer)
	sc.AddString(i, contentStart, contentStart+k, end)
	return end, true
}
