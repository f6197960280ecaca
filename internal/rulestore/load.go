package rulestore

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"thymus/internal/errors"
	"thymus/internal/paths"
	"thymus/internal/rules"
)

// Format is an invariants file encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// DefaultFiles are tried in order when no rules file is configured.
var DefaultFiles = []string{"invariants.yml", "invariants.yaml", "invariants.toml"}

// FormatOf picks the encoding from a file extension. Anything that is not
// .toml is read as YAML, which also covers JSON.
func FormatOf(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return FormatTOML
	}
	return FormatYAML
}

// ParseFormat accepts "yaml", "yml" or "toml".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "yaml", "yml":
		return FormatYAML, nil
	case "toml":
		return FormatTOML, nil
	}
	return "", fmt.Errorf("unknown rules format %q (want yaml or toml)", s)
}

// Result is a loaded invariants file.
type Result struct {
	Path     string
	Format   Format
	Document *Document
	// Set holds the rules that compiled; Errors has one entry per rule that
	// did not.
	Set      *rules.RuleSet
	Errors   []error
	Warnings []string
}

// Locate resolves the rules file for a project. A configured name that does
// not exist is reported as such; with no name the defaults are tried.
func Locate(repoRoot, name string) (string, error) {
	candidates := DefaultFiles
	if name != "" {
		candidates = []string{name}
	}
	for _, c := range candidates {
		p := paths.RulesPath(repoRoot, c)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, nil
		}
	}
	missing := paths.RulesPath(repoRoot, candidates[0])
	return "", errors.NewThymusError(errors.RulesNotFound,
		fmt.Sprintf("no invariants file at %s", missing), nil, errors.GetSuggestedFixes(errors.RulesNotFound))
}

// Load reads, validates and compiles an invariants file. A missing file is a
// RULES_NOT_FOUND error and a malformed document a CONFIG_ERROR; invalid
// individual rules are returned in Result.Errors.
func Load(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewThymusError(errors.RulesNotFound,
				fmt.Sprintf("no invariants file at %s", path), err, errors.GetSuggestedFixes(errors.RulesNotFound))
		}
		return nil, errors.NewFileReadError(path, err)
	}

	format := FormatOf(path)
	doc, warnings, err := Parse(data, format)
	if err != nil {
		return nil, errors.NewThymusError(errors.ConfigInvalid,
			fmt.Sprintf("invalid invariants file %s", path), err, errors.GetSuggestedFixes(errors.ConfigInvalid))
	}

	set, errs := rules.NewRuleSet(doc.Rules())
	return &Result{
		Path:     path,
		Format:   format,
		Document: doc,
		Set:      set,
		Errors:   errs,
		Warnings: warnings,
	}, nil
}

// Parse decodes and shape-checks a document.
func Parse(data []byte, format Format) (*Document, []string, error) {
	var generic interface{}
	var doc Document

	switch format {
	case FormatTOML:
		m := map[string]interface{}{}
		if _, err := toml.Decode(string(data), &m); err != nil {
			return nil, nil, err
		}
		generic = m
	default:
		if len(bytes.TrimSpace(data)) == 0 {
			return nil, nil, fmt.Errorf("document is empty")
		}
		if err := yaml.Unmarshal(data, &generic); err != nil {
			return nil, nil, err
		}
	}

	warnings, err := validateShape(generic)
	if err != nil {
		return nil, nil, err
	}

	switch format {
	case FormatTOML:
		if _, err := toml.Decode(string(data), &doc); err != nil {
			return nil, nil, err
		}
	default:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, nil, err
		}
	}
	return &doc, warnings, nil
}

// Encode writes doc in the given format, preceded by header lines written
// as comments.
func Encode(w io.Writer, doc *Document, format Format, header ...string) error {
	for _, line := range header {
		if _, err := fmt.Fprintf(w, "# %s\n", line); err != nil {
			return err
		}
	}
	switch format {
	case FormatTOML:
		return toml.NewEncoder(w).Encode(doc)
	default:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	}
}
