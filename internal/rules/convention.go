package rules

import (
	"bytes"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

// Prober answers whether a repository-relative, slash-separated path names
// an existing file. Errors count as "not found".
type Prober interface {
	Exists(rel string) bool
}

// FSProber probes the filesystem under Root.
type FSProber struct {
	Root string
}

// Exists implements Prober.
func (p FSProber) Exists(rel string) bool {
	info, err := os.Stat(filepath.Join(p.Root, filepath.FromSlash(rel)))
	return err == nil && info.Mode().IsRegular()
}

var testFilePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\.(test|spec)\.`),
	regexp.MustCompile(`\.d\.ts$`),
	regexp.MustCompile(`(Test|Tests|IT|Spec)\.java$`),
	regexp.MustCompile(`_test\.(go|dart|rb|py)$`),
	regexp.MustCompile(`_spec\.rb$`),
	regexp.MustCompile(`(Test|Tests)\.kts?$`),
	regexp.MustCompile(`Tests\.swift$`),
	regexp.MustCompile(`(Tests|Test)\.cs$`),
	regexp.MustCompile(`Test\.php$`),
	regexp.MustCompile(`(^|/)test_[^/]*\.py$`),
}

var colocationExtensions = map[string]bool{
	".ts": true, ".tsx": true, ".js": true, ".jsx": true, ".mjs": true, ".cjs": true,
	".py": true, ".java": true, ".go": true, ".rs": true, ".dart": true,
	".kt": true, ".kts": true, ".swift": true, ".cs": true, ".php": true, ".rb": true,
}

// IsTestFile reports whether rel is itself a test file.
func IsTestFile(rel string) bool {
	for _, re := range testFilePatterns {
		if re.MatchString(rel) {
			return true
		}
	}
	return false
}

// HasColocatedTest reports whether the source file rel has a test next to
// it, in its language's mirrored test tree, or (for Rust) inside the file.
// Files that are not checked source files, and test files themselves,
// report true.
func HasColocatedTest(rel string, content []byte, p Prober) bool {
	rel = filepath.ToSlash(rel)
	ext := strings.ToLower(path.Ext(rel))
	if !colocationExtensions[ext] || IsTestFile(rel) {
		return true
	}

	base := strings.TrimSuffix(rel, path.Ext(rel))
	dir, name := path.Split(base)
	extNoDot := path.Ext(rel)[1:]

	if anyExists(p, base+".test."+extNoDot, base+".spec."+extNoDot) {
		return true
	}

	switch ext {
	case ".java":
		if anyExists(p, base+"Test.java", base+"Tests.java", base+"IT.java") {
			return true
		}
		if m, ok := mirror(base, "src/main/java/", "src/test/java/"); ok {
			return anyExists(p, m+"Test.java", m+"Tests.java", m+"IT.java")
		}
	case ".go":
		return p.Exists(base + "_test.go")
	case ".rs":
		if bytes.Contains(content, []byte("#[cfg(test)]")) {
			return true
		}
		return anyExists(p, "tests/"+name+".rs", "tests/test_"+name+".rs")
	case ".dart":
		if p.Exists(base + "_test.dart") {
			return true
		}
		if m, ok := mirror(base, "/lib/", "/test/"); ok {
			return p.Exists(m + "_test.dart")
		}
	case ".kt", ".kts":
		if anyExists(p, base+"Test.kt", base+"Tests.kt") {
			return true
		}
		if strings.Contains("/"+base, "/src/main/") {
			m := strings.ReplaceAll("/"+base, "src/main/kotlin", "src/test/kotlin")
			m = strings.ReplaceAll(m, "src/main/java", "src/test/java")
			m = m[1:]
			return anyExists(p, m+"Test.kt", m+"Tests.kt")
		}
	case ".swift":
		if p.Exists(base + "Tests.swift") {
			return true
		}
		if m, ok := mirror(base, "/Sources/", "/Tests/"); ok {
			return p.Exists(m + "Tests.swift")
		}
	case ".cs":
		return anyExists(p, base+"Tests.cs", base+"Test.cs")
	case ".php":
		if p.Exists(base + "Test.php") {
			return true
		}
		if m, ok := mirror(base, "/src/", "/tests/"); ok {
			return p.Exists(m + "Test.php")
		}
	case ".rb":
		if anyExists(p, base+"_test.rb", base+"_spec.rb") {
			return true
		}
		if t, ok := mirror(base, "/app/", "/test/"); ok {
			s, _ := mirror(base, "/app/", "/spec/")
			return anyExists(p, t+"_test.rb", s+"_spec.rb")
		}
	case ".py":
		return anyExists(p,
			dir+"test_"+name+".py", base+"_test.py",
			"tests/test_"+name+".py", "tests/"+name+"_test.py")
	}
	return false
}

// mirror swaps every occurrence of from for to in the slash path base,
// treating base as if it started with a slash so top-level directories
// count.
func mirror(base, from, to string) (string, bool) {
	rooted := "/" + base
	if !strings.Contains(rooted, from) {
		return "", false
	}
	return strings.ReplaceAll(rooted, from, to)[1:], true
}

func anyExists(p Prober, rels ...string) bool {
	for _, rel := range rels {
		if p.Exists(rel) {
			return true
		}
	}
	return false
}
