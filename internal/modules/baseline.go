package modules

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// BaselineModule is one module recorded in the baseline.
type BaselineModule struct {
	ID        string   `json:"id"`
	Files     int      `json:"files"`
	DependsOn []string `json:"dependsOn,omitempty"`
}

// Baseline is the project snapshot written by `thymus baseline` and read
// at session start.
type Baseline struct {
	Version    int              `json:"version"`
	CreatedAt  time.Time        `json:"createdAt"`
	Commit     string           `json:"commit,omitempty"`
	Files      int              `json:"files"`
	Invariants int              `json:"invariants"`
	Modules    []BaselineModule `json:"modules"`
}

// LoadBaseline reads a baseline file. A missing file returns nil and no
// error.
func LoadBaseline(path string) (*Baseline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var b Baseline
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("invalid baseline %s: %w", path, err)
	}
	return &b, nil
}

// Write stores the baseline at path, creating parent directories.
func (b *Baseline) Write(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}
