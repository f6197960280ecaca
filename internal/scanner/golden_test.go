package scanner

import (
	"context"
	"testing"

	"thymus/internal/config"
	"thymus/internal/rulestore"
	"thymus/internal/testutil"
)

// TestGolden_Scan scans every sample project under testdata/fixtures with
// its own invariants file and compares the result with expected/scan.json.
func TestGolden_Scan(t *testing.T) {
	testutil.ForEachLanguage(t, func(t *testing.T, fixture *testutil.FixtureContext) {
		loaded, err := rulestore.Load(fixture.RulesPath)
		if err != nil {
			t.Fatalf("load rules: %v", err)
		}
		if len(loaded.Errors) > 0 {
			t.Fatalf("fixture rules do not compile: %v", loaded.Errors)
		}

		cfg := config.DefaultConfig().Scan
		cfg.Workers = 2
		result, err := newScanner(fixture.Root, cfg).Scan(context.Background(), loaded.Set, Options{})
		if err != nil {
			t.Fatalf("Scan: %v", err)
		}

		testutil.CompareGolden(t, fixture, "scan", result)
	})
}
