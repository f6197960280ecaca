package report

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"runtime"
	"strconv"

	"thymus/internal/rules"
)

// SARIF 2.1.0 schema types
// See: https://docs.oasis-open.org/sarif/sarif/v2.1.0/sarif-v2.1.0.html

const (
	sarifSchema  = "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/master/Schemata/sarif-schema-2.1.0.json"
	sarifVersion = "2.1.0"
)

// SARIFReport is the top-level SARIF document.
type SARIFReport struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []SARIFRun `json:"runs"`
}

// SARIFRun represents a single analysis run.
type SARIFRun struct {
	Tool        SARIFTool         `json:"tool"`
	Results     []SARIFResult     `json:"results"`
	Invocations []SARIFInvocation `json:"invocations,omitempty"`
}

// SARIFTool describes the analysis tool.
type SARIFTool struct {
	Driver SARIFDriver `json:"driver"`
}

// SARIFDriver describes the primary analysis component.
type SARIFDriver struct {
	Name            string      `json:"name"`
	Version         string      `json:"version,omitempty"`
	InformationURI  string      `json:"informationUri,omitempty"`
	Rules           []SARIFRule `json:"rules,omitempty"`
	SemanticVersion string      `json:"semanticVersion,omitempty"`
}

// SARIFRule describes an invariant that produced results.
type SARIFRule struct {
	ID                   string                  `json:"id"`
	Name                 string                  `json:"name,omitempty"`
	ShortDescription     *SARIFMessage           `json:"shortDescription,omitempty"`
	FullDescription      *SARIFMessage           `json:"fullDescription,omitempty"`
	DefaultConfiguration *SARIFRuleConfiguration `json:"defaultConfiguration,omitempty"`
	Properties           map[string]interface{}  `json:"properties,omitempty"`
}

// SARIFRuleConfiguration describes the default configuration for a rule.
type SARIFRuleConfiguration struct {
	Level string `json:"level,omitempty"` // error, warning, note, none
}

// SARIFResult represents a single violation.
type SARIFResult struct {
	RuleID       string                 `json:"ruleId"`
	RuleIndex    int                    `json:"ruleIndex"`
	Level        string                 `json:"level,omitempty"`
	Message      SARIFMessage           `json:"message"`
	Locations    []SARIFLocation        `json:"locations,omitempty"`
	Fingerprints map[string]string      `json:"fingerprints,omitempty"`
	Properties   map[string]interface{} `json:"properties,omitempty"`
}

// SARIFMessage contains text in various formats.
type SARIFMessage struct {
	Text     string `json:"text,omitempty"`
	Markdown string `json:"markdown,omitempty"`
}

// SARIFLocation describes where a result was found.
type SARIFLocation struct {
	PhysicalLocation *SARIFPhysicalLocation `json:"physicalLocation,omitempty"`
}

// SARIFPhysicalLocation identifies a file and region.
type SARIFPhysicalLocation struct {
	ArtifactLocation *SARIFArtifactLocation `json:"artifactLocation,omitempty"`
	Region           *SARIFRegion           `json:"region,omitempty"`
}

// SARIFArtifactLocation identifies a file.
type SARIFArtifactLocation struct {
	URI       string `json:"uri,omitempty"`
	URIBaseID string `json:"uriBaseId,omitempty"`
}

// SARIFRegion identifies a region within a file.
type SARIFRegion struct {
	StartLine int `json:"startLine,omitempty"`
}

// SARIFInvocation describes a single invocation of the tool.
type SARIFInvocation struct {
	ExecutionSuccessful bool                   `json:"executionSuccessful"`
	WorkingDirectory    *SARIFArtifactLocation `json:"workingDirectory,omitempty"`
	Machine             string                 `json:"machine,omitempty"`
}

// BuildSARIF converts a report into a SARIF document. Every rule of the
// rule set is listed in the driver, followed by any rule id seen only in the
// violations.
func BuildSARIF(r *Report) *SARIFReport {
	var sarifRules []SARIFRule
	ruleIndex := make(map[string]int)
	addRule := func(rule SARIFRule) {
		if _, ok := ruleIndex[rule.ID]; ok {
			return
		}
		ruleIndex[rule.ID] = len(sarifRules)
		sarifRules = append(sarifRules, rule)
	}
	if r.Rules != nil {
		for _, rule := range r.Rules.Rules() {
			addRule(sarifRuleFor(rule))
		}
	}

	violations := r.violations()
	results := make([]SARIFResult, 0, len(violations))
	for _, v := range violations {
		if _, ok := ruleIndex[v.RuleID]; !ok {
			addRule(SARIFRule{
				ID:                   v.RuleID,
				Name:                 v.RuleID,
				DefaultConfiguration: &SARIFRuleConfiguration{Level: severityToSARIFLevel(v.Severity)},
			})
		}

		text := v.Message
		if d := v.Detail(); d != "" {
			text += " " + d
		}
		loc := &SARIFPhysicalLocation{
			ArtifactLocation: &SARIFArtifactLocation{
				URI:       v.File,
				URIBaseID: "%SRCROOT%",
			},
		}
		if v.Line > 0 {
			loc.Region = &SARIFRegion{StartLine: v.Line}
		}

		res := SARIFResult{
			RuleID:    v.RuleID,
			RuleIndex: ruleIndex[v.RuleID],
			Level:     severityToSARIFLevel(v.Severity),
			Message:   SARIFMessage{Text: text},
			Locations: []SARIFLocation{{PhysicalLocation: loc}},
			Fingerprints: map[string]string{
				"thymus/v1": fingerprint(v),
			},
		}
		if v.ImportTarget != "" || v.PackageName != "" {
			res.Properties = make(map[string]interface{})
			if v.ImportTarget != "" {
				res.Properties["importTarget"] = v.ImportTarget
			}
			if v.PackageName != "" {
				res.Properties["packageName"] = v.PackageName
			}
		}
		results = append(results, res)
	}

	run := SARIFRun{
		Tool: SARIFTool{
			Driver: SARIFDriver{
				Name:            "thymus",
				Version:         r.Version,
				SemanticVersion: r.Version,
				Rules:           sarifRules,
			},
		},
		Results: results,
		Invocations: []SARIFInvocation{
			{
				ExecutionSuccessful: true,
				Machine:             runtime.GOOS + "/" + runtime.GOARCH,
			},
		},
	}
	if r.RepoRoot != "" {
		run.Invocations[0].WorkingDirectory = &SARIFArtifactLocation{URI: r.RepoRoot}
	}

	return &SARIFReport{
		Schema:  sarifSchema,
		Version: sarifVersion,
		Runs:    []SARIFRun{run},
	}
}

func sarifRuleFor(rule rules.Rule) SARIFRule {
	sr := SARIFRule{
		ID:   rule.ID,
		Name: rule.ID,
		DefaultConfiguration: &SARIFRuleConfiguration{
			Level: severityToSARIFLevel(rule.Severity),
		},
		Properties: map[string]interface{}{
			"tags": []string{"architecture", string(rule.Type)},
		},
	}
	if rule.Description != "" {
		sr.ShortDescription = &SARIFMessage{Text: rule.Description}
	}
	return sr
}

func writeSARIF(r *Report) ([]byte, error) {
	data, err := json.MarshalIndent(BuildSARIF(r), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal SARIF: %w", err)
	}
	return append(data, '\n'), nil
}

// severityToSARIFLevel converts a rule severity to a SARIF level.
func severityToSARIFLevel(s rules.Severity) string {
	switch s {
	case rules.SeverityError:
		return "error"
	case rules.SeverityInfo:
		return "note"
	default:
		return "warning"
	}
}

// fingerprint is stable across runs as long as the violation is; the line
// only counts when nothing else locates it.
func fingerprint(v rules.Violation) string {
	where := v.ImportTarget
	if where == "" {
		where = v.PackageName
	}
	if where == "" {
		where = strconv.Itoa(v.Line)
	}
	hash := sha256.Sum256([]byte(v.File + ":" + v.RuleID + ":" + where))
	return hex.EncodeToString(hash[:])[:16]
}
