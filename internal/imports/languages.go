package imports

import (
	"bytes"
	"regexp"
)

var (
	cComments    = []BlockComment{{Open: "/*", Close: "*/"}}
	cNested      = []BlockComment{{Open: "/*", Close: "*/", Nested: true}}
	slashComment = []string{"//"}
)

func dq(escape, multiLine bool) StringDelim {
	return StringDelim{Quote: `"`, Escape: escape, MultiLine: multiLine}
}

func sq(escape, multiLine bool) StringDelim {
	return StringDelim{Quote: `'`, Escape: escape, MultiLine: multiLine}
}

var jsTypeOnly = regexp.MustCompile(`^import\s+type\b\s*(?:[{*]|[\w$]+\s*(?:,|from\b))`)

func classifyJSFrom(match []byte) Kind {
	match = bytes.TrimSpace(match)
	switch {
	case bytes.HasPrefix(match, []byte("export")):
		return KindReExport
	case jsTypeOnly.Match(match):
		return KindTypeOnly
	}
	return KindStatic
}

func classifyDart(match []byte) Kind {
	if bytes.HasPrefix(bytes.TrimSpace(match), []byte("export")) {
		return KindReExport
	}
	return KindStatic
}

var typeScript = &Language{
	Name:          "typescript",
	Extensions:    []string{".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs"},
	LineComments:  slashComment,
	BlockComments: cComments,
	Strings:       []StringDelim{sq(true, false), dq(true, false)},
	Specials:      []SpecialScanner{jsTemplate, jsRegex},
	Recognizers: []Recognizer{
		{
			Pattern:  regexp.MustCompile(`\b(?:import|export)(?:\s+type\b)?\s*[\w$\s{},*]*?\s*\bfrom\s*(['"])`),
			Capture:  CaptureString,
			Classify: classifyJSFrom,
		},
		{Pattern: regexp.MustCompile(`\bimport\s*(['"])`), Capture: CaptureString, Kind: KindSideEffect},
		{Pattern: regexp.MustCompile(`\brequire\s*\(\s*(['"])`), Capture: CaptureString, Kind: KindStatic},
		{Pattern: regexp.MustCompile(`\bimport\s*\(\s*(['"])`), Capture: CaptureString, Kind: KindDynamic},
	},
}

var python = &Language{
	Name:         "python",
	Extensions:   []string{".py", ".pyi"},
	LineComments: []string{"#"},
	Strings: []StringDelim{
		{Quote: `"""`, Escape: true, MultiLine: true},
		{Quote: `'''`, Escape: true, MultiLine: true},
		dq(true, false),
		sq(true, false),
	},
	Recognizers: []Recognizer{
		{Pattern: regexp.MustCompile(`(?m)^[ \t]*from[ \t]+(\.*[\w.]*)[ \t]+import\b`), Capture: CaptureCode},
		{
			Pattern: regexp.MustCompile(`(?m)^[ \t]*import[ \t]+([\w.]+(?:[ \t]+as[ \t]+\w+)?(?:[ \t]*,[ \t]*[\w.]+(?:[ \t]+as[ \t]+\w+)?)*)`),
			Capture: CaptureCode,
			Expand:  expandPythonImport,
		},
	},
}

var golang = &Language{
	Name:          "go",
	Extensions:    []string{".go"},
	LineComments:  slashComment,
	BlockComments: cComments,
	Strings: []StringDelim{
		dq(true, false),
		sq(true, false),
		{Quote: "`", MultiLine: true},
	},
	Recognizers: []Recognizer{
		{Pattern: regexp.MustCompile(`(?m)^[ \t]*import[ \t]*\(([^)]*)\)`), Capture: CaptureStrings},
		{Pattern: regexp.MustCompile("(?m)^[ \\t]*import[ \\t]+(?:[\\w.]+[ \\t]+)?([\"`])"), Capture: CaptureString},
	},
}

var rust = &Language{
	Name:          "rust",
	Extensions:    []string{".rs"},
	LineComments:  slashComment,
	BlockComments: cNested,
	Strings:       []StringDelim{dq(true, true)},
	Specials:      []SpecialScanner{rustRawString, rustChar},
	Recognizers: []Recognizer{
		{
			Pattern: regexp.MustCompile(`(?m)^[ \t]*(?:pub(?:\([^)]*\))?[ \t]+)?use[ \t]+([^;]+);`),
			Capture: CaptureCode,
			Expand:  expandRustUse,
		},
		{Pattern: regexp.MustCompile(`(?m)^[ \t]*extern[ \t]+crate[ \t]+(\w+)`), Capture: CaptureCode},
	},
}

var java = &Language{
	Name:          "java",
	Extensions:    []string{".java"},
	LineComments:  slashComment,
	BlockComments: cComments,
	Strings: []StringDelim{
		{Quote: `"""`, Escape: true, MultiLine: true},
		dq(true, false),
		sq(true, false),
	},
	Recognizers: []Recognizer{
		{Pattern: regexp.MustCompile(`(?m)^[ \t]*import[ \t]+(?:static[ \t]+)?((?:\w+\.)*(?:\w+|\*))[ \t]*;`), Capture: CaptureCode},
	},
}

var kotlin = &Language{
	Name:          "kotlin",
	Extensions:    []string{".kt", ".kts"},
	LineComments:  slashComment,
	BlockComments: cNested,
	Strings: []StringDelim{
		{Quote: `"""`, MultiLine: true},
		dq(true, false),
		sq(true, false),
	},
	Recognizers: []Recognizer{
		{Pattern: regexp.MustCompile(`(?m)^[ \t]*import[ \t]+((?:\w+\.)*(?:\w+|\*))`), Capture: CaptureCode},
	},
}

var dart = &Language{
	Name:          "dart",
	Extensions:    []string{".dart"},
	LineComments:  slashComment,
	BlockComments: cNested,
	Strings: []StringDelim{
		{Quote: `'''`, Escape: true, MultiLine: true},
		{Quote: `"""`, Escape: true, MultiLine: true},
		sq(true, false),
		dq(true, false),
	},
	Recognizers: []Recognizer{
		{
			Pattern:  regexp.MustCompile(`(?m)^[ \t]*(?:import|export|part)[ \t]+(['"])`),
			Capture:  CaptureString,
			Classify: classifyDart,
		},
	},
}

var swift = &Language{
	Name:          "swift",
	Extensions:    []string{".swift"},
	LineComments:  slashComment,
	BlockComments: cNested,
	Strings: []StringDelim{
		{Quote: `"""`, Escape: true, MultiLine: true},
		dq(true, false),
	},
	Specials: []SpecialScanner{swiftRawString},
	Recognizers: []Recognizer{
		{
			Pattern: regexp.MustCompile(`(?m)^[ \t]*(?:@testable[ \t]+)?import[ \t]+(?:(?:struct|class|enum|protocol|typealias|func|var|let)[ \t]+)?(\w+)`),
			Capture: CaptureCode,
		},
	},
}

var csharp = &Language{
	Name:          "csharp",
	Extensions:    []string{".cs"},
	LineComments:  slashComment,
	BlockComments: cComments,
	Strings:       []StringDelim{dq(true, false), sq(true, false)},
	Specials:      []SpecialScanner{csVerbatimString, csRawString},
	Recognizers: []Recognizer{
		{
			Pattern: regexp.MustCompile(`(?m)^[ \t]*(?:global[ \t]+)?using[ \t]+(?:static[ \t]+)?(?:\w+[ \t]*=[ \t]*)?(?:global::)?([\w.]+)[ \t]*;`),
			Capture: CaptureCode,
		},
	},
	Cutoff: regexp.MustCompile(`(?m)^[ \t]*(?:(?:public|internal|private|protected|static|sealed|abstract|partial|file|readonly|unsafe|ref)[ \t]+)*(?:namespace|class|struct|interface|enum|record)\b`),
}

var php = &Language{
	Name:          "php",
	Extensions:    []string{".php"},
	LineComments:  []string{"//", "#"},
	BlockComments: cComments,
	Strings:       []StringDelim{sq(true, true), dq(true, true)},
	Specials:      []SpecialScanner{phpAttribute, phpHeredoc},
	Recognizers: []Recognizer{
		{
			Pattern: regexp.MustCompile(`(?m)^[ \t]*use[ \t]+(?:(?:function|const)[ \t]+)?([\\\w]+[ \t]*\{[^}]*\}|[\\\w]+(?:[ \t]+as[ \t]+\w+)?(?:[ \t]*,[ \t]*[\\\w]+(?:[ \t]+as[ \t]+\w+)?)*)[ \t]*;`),
			Capture: CaptureCode,
			Expand:  expandPHPUse,
		},
		{
			Pattern: regexp.MustCompile(`\b(?:require_once|include_once|require|include)\b[ \t]*\(?[ \t]*(['"])`),
			Capture: CaptureString,
		},
	},
}

var ruby = &Language{
	Name:         "ruby",
	Extensions:   []string{".rb"},
	LineComments: []string{"#"},
	Strings: []StringDelim{
		sq(true, true),
		dq(true, true),
		{Quote: "`", Escape: true, MultiLine: true},
	},
	Specials: []SpecialScanner{rubyBlockComment, rubyHeredoc, rubyPercentLiteral},
	Recognizers: []Recognizer{
		{
			Pattern: regexp.MustCompile(`\b(?:require_relative|require_dependency|require|load)[ \t]*\(?[ \t]*(['"])`),
			Capture: CaptureString,
		},
		{
			Pattern: regexp.MustCompile(`\bautoload[ \t]*\(?[ \t]*:\w+[ \t]*,[ \t]*(['"])`),
			Capture: CaptureString,
		},
	},
}

var cFamily = &Language{
	Name:          "c",
	Extensions:    []string{".c", ".h", ".cc", ".cpp", ".hpp"},
	LineComments:  slashComment,
	BlockComments: cComments,
	Strings:       []StringDelim{dq(true, false), sq(true, false)},
	Specials:      []SpecialScanner{cppRawString},
	Recognizers: []Recognizer{
		{Pattern: regexp.MustCompile(`(?m)^[ \t]*#[ \t]*include[ \t]*(")`), Capture: CaptureString},
		{Pattern: regexp.MustCompile(`(?m)^[ \t]*#[ \t]*include[ \t]*<([^>\n]+)>`), Capture: CaptureCode},
	},
}

var scala = &Language{
	Name:          "scala",
	Extensions:    []string{".scala"},
	LineComments:  slashComment,
	BlockComments: cNested,
	Strings: []StringDelim{
		{Quote: `"""`, MultiLine: true},
		dq(true, false),
		sq(true, false),
	},
	Recognizers: []Recognizer{
		{
			Pattern: regexp.MustCompile(`(?m)^[ \t]*import[ \t]+((?:\w+\.)*(?:\w+|_|\*|\{[^}]*\}))`),
			Capture: CaptureCode,
			Expand:  expandScalaImport,
		},
	},
}

var registry = []*Language{
	typeScript, python, golang, rust, java, kotlin, dart,
	swift, csharp, php, ruby, cFamily, scala,
}
