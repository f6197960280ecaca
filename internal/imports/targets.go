package imports

import "strings"

// splitTopLevel splits s on sep outside of braces.
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
		case sep:
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

// stripAlias drops a trailing "<kw> name" and returns the remaining words
// joined without spaces.
func stripAlias(item, kw string) string {
	fields := strings.Fields(item)
	if len(fields) >= 3 && fields[len(fields)-2] == kw {
		fields = fields[:len(fields)-2]
	}
	return strings.Join(fields, "")
}

// expandPythonImport splits "a.b as c, d" into its dotted names.
func expandPythonImport(text string) []string {
	var out []string
	for _, item := range strings.Split(text, ",") {
		if name := stripAlias(item, "as"); name != "" {
			out = append(out, name)
		}
	}
	return out
}

// expandRustUse flattens a use tree. Groups are expanded recursively, a
// self entry stands for its prefix and aliases are dropped:
// a::{b, c::{d as e, self}} gives a::b, a::c::d and a::c.
func expandRustUse(text string) []string {
	return flattenUse("", text, nil)
}

func flattenUse(prefix, tree string, out []string) []string {
	tree = strings.TrimSpace(tree)
	if tree == "" {
		return out
	}
	if open := strings.IndexByte(tree, '{'); open >= 0 && strings.HasSuffix(tree, "}") {
		head := strings.Join(strings.Fields(tree[:open]), "")
		base := joinPath(prefix, strings.TrimSuffix(head, "::"), "::")
		for _, part := range splitTopLevel(tree[open+1:len(tree)-1], ',') {
			out = flattenUse(base, part, out)
		}
		return out
	}
	name := stripAlias(tree, "as")
	if name == "self" {
		if prefix != "" {
			out = append(out, prefix)
		}
		return out
	}
	return append(out, joinPath(prefix, name, "::"))
}

func joinPath(prefix, name, sep string) string {
	switch {
	case prefix == "":
		return name
	case name == "":
		return prefix
	}
	return prefix + sep + name
}

// expandPHPUse handles "A\B as C, D\E" and grouped "A\{B, function c, D as E}".
func expandPHPUse(text string) []string {
	var out []string
	if open := strings.IndexByte(text, '{'); open >= 0 {
		prefix := strings.TrimRight(strings.TrimSpace(text[:open]), `\`)
		body := strings.TrimSuffix(strings.TrimSpace(text[open+1:]), "}")
		for _, item := range splitTopLevel(body, ',') {
			if name := phpName(item); name != "" {
				out = append(out, strings.TrimLeft(joinPath(prefix, name, `\`), `\`))
			}
		}
		return out
	}
	for _, item := range strings.Split(text, ",") {
		if name := phpName(item); name != "" {
			out = append(out, name)
		}
	}
	return out
}

func phpName(item string) string {
	item = strings.TrimSpace(item)
	for _, kw := range []string{"function ", "const "} {
		if strings.HasPrefix(item, kw) {
			item = item[len(kw):]
			break
		}
	}
	return strings.TrimLeft(stripAlias(item, "as"), `\`)
}

// expandScalaImport handles a.b.C, a.b._ and grouped a.b.{C, D => E}.
func expandScalaImport(text string) []string {
	text = strings.TrimSpace(text)
	open := strings.IndexByte(text, '{')
	if open < 0 {
		return []string{text}
	}
	prefix := strings.TrimSuffix(text[:open], ".")
	body := strings.TrimSuffix(text[open+1:], "}")
	var out []string
	for _, item := range strings.Split(body, ",") {
		if arrow := strings.Index(item, "=>"); arrow >= 0 {
			item = item[:arrow]
		}
		if name := stripAlias(item, "as"); name != "" {
			out = append(out, prefix+"."+name)
		}
	}
	return out
}
