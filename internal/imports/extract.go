package imports

import (
	"os"
	"sort"
	"strings"
)

type candidate struct {
	off    int
	target string
	kind   Kind
}

// Extract returns the import targets declared in src, in order of first
// occurrence with duplicate targets dropped.
func Extract(src []byte, lang *Language) []Record {
	if lang == nil || len(src) == 0 {
		return nil
	}
	m := Mask(src, lang)
	view := m.View
	if lang.Cutoff != nil {
		if loc := lang.Cutoff.FindIndex(view); loc != nil {
			view = view[:loc[0]]
		}
	}

	var found []candidate
	for i := range lang.Recognizers {
		r := &lang.Recognizers[i]
		for _, loc := range r.Pattern.FindAllSubmatchIndex(view, -1) {
			if len(loc) < 4 || loc[2] < 0 || memberAccess(view, loc[0]) {
				continue
			}
			kind := r.kindOf(view[loc[0]:loc[1]])

			switch r.Capture {
			case CaptureCode:
				for _, t := range r.targets(string(view[loc[2]:loc[3]])) {
					found = append(found, candidate{off: loc[2], target: t, kind: kind})
				}
			case CaptureString:
				if sp, ok := m.StringAt(loc[2]); ok {
					found = append(found, candidate{off: sp.Start, target: m.Literal(sp), kind: kind})
				}
			case CaptureStrings:
				for _, sp := range m.StringsWithin(loc[2], loc[3]) {
					found = append(found, candidate{off: sp.Start, target: m.Literal(sp), kind: kind})
				}
			}
		}
	}

	sort.SliceStable(found, func(i, j int) bool { return found[i].off < found[j].off })

	var records []Record
	seen := make(map[string]bool, len(found))
	for _, c := range found {
		target := strings.TrimSpace(c.target)
		if target == "" || seen[target] {
			continue
		}
		seen[target] = true
		records = append(records, Record{Target: target, Kind: c.kind, Line: m.Line(c.off)})
	}
	return records
}

// ExtractFile reads path and extracts its imports. Unknown extensions and
// unreadable files yield nil.
func ExtractFile(path string) []Record {
	lang := Lookup(path)
	if lang == nil {
		return nil
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	return Extract(src, lang)
}

// ExtractPath extracts imports from content already in memory, choosing the
// language from path.
func ExtractPath(path string, content []byte) []Record {
	return Extract(content, Lookup(path))
}

// Targets returns just the target strings of records.
func Targets(records []Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Target
	}
	return out
}

// memberAccess reports whether the match at off is a member or qualified
// name such as obj.require or $x->load rather than a statement.
func memberAccess(view []byte, off int) bool {
	if off == 0 {
		return false
	}
	prev := view[off-1]
	switch {
	case prev == '.':
		return true
	case prev == '>' && off >= 2 && view[off-2] == '-':
		return true
	case prev == ':' && off >= 2 && view[off-2] == ':':
		return true
	}
	return isIdentByte(prev)
}
