package version

import (
	"encoding/json"
	"strings"
	"testing"
)

// withBuild sets the link-time variables for one test.
func withBuild(t *testing.T, version, commit, date string) {
	t.Helper()
	v, c, d := Version, Commit, BuildDate
	t.Cleanup(func() { Version, Commit, BuildDate = v, c, d })
	Version, Commit, BuildDate = version, commit, date
}

func TestInfo(t *testing.T) {
	tests := []struct {
		commit string
		want   string
	}{
		{"unknown", "0.9.0"},
		{"abc", "0.9.0"},
		{"1234567", "0.9.0"},
		{"12345678", "0.9.0 (1234567)"},
		{"deadbeefcafe", "0.9.0 (deadbee)"},
	}
	for _, tt := range tests {
		t.Run(tt.commit, func(t *testing.T) {
			withBuild(t, "0.9.0", tt.commit, "unknown")
			if got := Info(); got != tt.want {
				t.Errorf("Info() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFull(t *testing.T) {
	withBuild(t, "1.2.3", "abcdef123456", "2026-03-01")

	want := "thymus 1.2.3\ncommit: abcdef123456\nbuilt:  2026-03-01"
	if got := Full(); got != want {
		t.Errorf("Full() = %q, want %q", got, want)
	}
}

func TestGet_JSON(t *testing.T) {
	withBuild(t, "1.2.3", "feedface", "2026-03-01")

	data, err := json.Marshal(Get())
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	if m["version"] != "1.2.3" || m["commit"] != "feedface" || m["buildDate"] != "2026-03-01" {
		t.Errorf("Get() = %s", data)
	}
	if !strings.HasPrefix(m["goVersion"], "go") {
		t.Errorf("goVersion = %q", m["goVersion"])
	}
}

func TestDefaultVersionIsSemver(t *testing.T) {
	parts := strings.Split(Version, ".")
	if len(parts) != 3 {
		t.Errorf("Version %q is not MAJOR.MINOR.PATCH", Version)
	}
}
