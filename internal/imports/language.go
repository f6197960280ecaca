// Package imports extracts the import targets a source file declares.
//
// Extraction is lexical and runs in two passes. Mask walks the file once and
// records every comment and string literal as a masked span, producing a code
// view of the same length in which comment bytes are blanked and string
// contents are replaced by a filler. Extract then runs the language's import
// recognizers over the code view only, so import-like text inside comments or
// strings is never reported. String operands (JavaScript module specifiers,
// Go import paths) are recovered from the original bytes through the span
// table.
package imports

import (
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// Kind classifies how a target is imported.
type Kind string

const (
	KindStatic     Kind = "static"
	KindDynamic    Kind = "dynamic"
	KindSideEffect Kind = "sideEffect"
	KindTypeOnly   Kind = "typeOnly"
	KindReExport   Kind = "reExport"
)

// Record is a single import target found in a file.
type Record struct {
	Target string `json:"target"`
	Kind   Kind   `json:"kind"`
	Line   int    `json:"line"`
}

// BlockComment describes a delimited comment form. Nested comments track
// depth so that an inner close does not end the outer comment.
type BlockComment struct {
	Open   string
	Close  string
	Nested bool
}

// StringDelim describes a quoted literal whose open and close delimiters
// are the same.
type StringDelim struct {
	Quote string
	// Escape enables backslash escapes inside the literal.
	Escape bool
	// MultiLine lets the literal continue past a newline. Single-line
	// literals end at the newline even when unterminated.
	MultiLine bool
}

// SpecialScanner recognizes a literal or comment form that the generic
// delimiters cannot describe. It is tried at every code position before the
// generic rules and returns ok=false when its form does not start at i.
// On success it records any spans through the Scanner and returns the
// offset just past the form.
type SpecialScanner func(sc *Scanner, i int) (end int, ok bool)

// CaptureMode tells Extract how to read a recognizer's first group.
type CaptureMode int

const (
	// CaptureCode takes group 1 as target text from the code view.
	CaptureCode CaptureMode = iota
	// CaptureString expects group 1 to be the opening delimiter of a
	// string literal; the target is that literal's content.
	CaptureString
	// CaptureStrings takes every string literal that starts inside group 1.
	CaptureStrings
)

// Recognizer matches one import form in the code view.
type Recognizer struct {
	Pattern *regexp.Regexp
	Capture CaptureMode
	Kind    Kind
	// Classify, when set, refines Kind from the full matched text.
	Classify func(match []byte) Kind
	// Expand, when set, splits captured code text into several targets.
	Expand func(text string) []string
}

func (r *Recognizer) kindOf(match []byte) Kind {
	if r.Classify != nil {
		if k := r.Classify(match); k != "" {
			return k
		}
	}
	if r.Kind == "" {
		return KindStatic
	}
	return r.Kind
}

func (r *Recognizer) targets(text string) []string {
	if r.Expand != nil {
		return r.Expand(text)
	}
	return []string{text}
}

// Language is the lexical description of one source language.
type Language struct {
	Name          string
	Extensions    []string
	LineComments  []string
	BlockComments []BlockComment
	// Strings are tried in order, so longer delimiters come first.
	Strings     []StringDelim
	Specials    []SpecialScanner
	Recognizers []Recognizer
	// Cutoff, when set, ends the region searched for imports at its first
	// match in the code view.
	Cutoff *regexp.Regexp
}

var byExtension = func() map[string]*Language {
	m := make(map[string]*Language)
	for _, lang := range registry {
		for _, ext := range lang.Extensions {
			m[ext] = lang
		}
	}
	return m
}()

// Lookup returns the language for a file path by its extension, or nil.
func Lookup(path string) *Language {
	return byExtension[strings.ToLower(filepath.Ext(path))]
}

// Languages returns every registered language.
func Languages() []*Language {
	out := make([]*Language, len(registry))
	copy(out, registry)
	return out
}

// Extensions returns every supported file extension, sorted.
func Extensions() []string {
	exts := make([]string, 0, len(byExtension))
	for ext := range byExtension {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Supported reports whether path has a known source extension.
func Supported(path string) bool {
	return Lookup(path) != nil
}
