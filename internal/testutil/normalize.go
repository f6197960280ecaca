package testutil

import (
	"bytes"
	"encoding/json"
	"regexp"
	"sort"
	"strings"
	"testing"
)

var tempDirPattern = regexp.MustCompile(`(?:/tmp/|/var/folders/[^/]+/[^/]+/[^/]+/|C:\\Users\\[^\\]+\\|C:/Users/[^/]+/)[^/\\]+`)

// volatileFields change from run to run and are dropped before comparison.
var volatileFields = map[string]bool{
	"runId":     true,
	"startedAt": true,
	"duration":  true,
	"timestamp": true,
	"createdAt": true,
	"commit":    true,
}

// sortKeys order slices of objects: violations by file then rule, graph
// nodes by id, edges by endpoints.
var sortKeys = []string{"file", "ruleId", "line", "importTarget", "id", "from", "to"}

// MarshalNormalized renders data as indented JSON with volatile fields
// dropped, fixture paths replaced by <fixture>, and object slices sorted.
// Map keys come out sorted, so equal results give equal bytes.
func MarshalNormalized(t *testing.T, fixture *FixtureContext, data any) []byte {
	t.Helper()

	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	n := normalizer{root: fixture.Root}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(n.value(generic)); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

type normalizer struct {
	root string
}

func (n normalizer) value(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			if !volatileFields[k] {
				out[k] = n.value(item)
			}
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = n.value(item)
		}
		sort.SliceStable(out, func(i, j int) bool {
			mi, oki := out[i].(map[string]any)
			mj, okj := out[j].(map[string]any)
			return oki && okj && compareObjects(mi, mj) < 0
		})
		return out
	case string:
		return n.path(val)
	default:
		return v
	}
}

func (n normalizer) path(s string) string {
	if n.root != "" {
		s = strings.ReplaceAll(s, n.root, "<fixture>")
		s = strings.ReplaceAll(s, strings.ReplaceAll(n.root, "\\", "/"), "<fixture>")
	}
	s = tempDirPattern.ReplaceAllString(s, "<tempdir>")
	return strings.ReplaceAll(s, "\\", "/")
}

func compareObjects(a, b map[string]any) int {
	for _, key := range sortKeys {
		va, oka := a[key]
		vb, okb := b[key]
		switch {
		case oka && okb:
			if c := compareScalars(va, vb); c != 0 {
				return c
			}
		case oka:
			return -1
		case okb:
			return 1
		}
	}
	return 0
}

func compareScalars(a, b any) int {
	switch x := a.(type) {
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y)
		}
	case float64:
		if y, ok := b.(float64); ok {
			switch {
			case x < y:
				return -1
			case x > y:
				return 1
			}
			return 0
		}
	}
	ja, _ := json.Marshal(a)
	jb, _ := json.Marshal(b)
	return strings.Compare(string(ja), string(jb))
}
