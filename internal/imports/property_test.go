//go:build property

package imports

import (
	"fmt"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestMaskProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	properties.Property("view keeps length and newlines for every language", prop.ForAll(
		func(s string) bool {
			src := []byte(s)
			for _, lang := range Languages() {
				m := Mask(src, lang)
				if len(m.View) != len(src) {
					return false
				}
				for i := range src {
					if (src[i] == '\n') != (m.View[i] == '\n') {
						return false
					}
				}
				Extract(src, lang)
			}
			return true
		},
		gen.AnyString(),
	))

	properties.Property("spans are ordered and disjoint", prop.ForAll(
		func(s string) bool {
			for _, lang := range Languages() {
				m := Mask([]byte(s), lang)
				prevEnd := 0
				for _, sp := range m.Spans {
					if sp.Start < prevEnd || sp.End < sp.Start {
						return false
					}
					if sp.ContentStart < sp.Start || sp.ContentEnd > sp.End {
						return false
					}
					prevEnd = sp.End
				}
			}
			return true
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}

func TestExtractProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("declared imports come back in order without duplicates", prop.ForAll(
		func(names []string) bool {
			var b strings.Builder
			var want []string
			seen := map[string]bool{}
			for _, n := range names {
				fmt.Fprintf(&b, "import %s from './%s';\n", n, n)
				if !seen["./"+n] {
					seen["./"+n] = true
					want = append(want, "./"+n)
				}
			}
			got := Targets(Extract([]byte(b.String()), Lookup("a.ts")))
			if len(got) != len(want) {
				return false
			}
			for i := range got {
				if got[i] != want[i] {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.Identifier()),
	))

	properties.Property("imports inside comments and strings are never reported", prop.ForAll(
		func(names []string) bool {
			var b strings.Builder
			for _, n := range names {
				fmt.Fprintf(&b, "// import %s from '%s';\n", n, n)
				fmt.Fprintf(&b, "/* require('%s') */\n", n)
				fmt.Fprintf(&b, "const s = \"import('%s')\";\n", n)
			}
			return len(Extract([]byte(b.String()), Lookup("a.js"))) == 0
		},
		gen.SliceOf(gen.Identifier()),
	))

	properties.Property("python comment lines are never reported", prop.ForAll(
		func(names []string) bool {
			var b strings.Builder
			for _, n := range names {
				fmt.Fprintf(&b, "# import %s\n# from %s import x\n", n, n)
			}
			return len(Extract([]byte(b.String()), Lookup("a.py"))) == 0
		},
		gen.SliceOf(gen.Identifier()),
	))

	properties.TestingRun(t)
}
