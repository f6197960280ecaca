// Package diff finds the files changed in a git working tree.
package diff

import (
	"fmt"
	"strings"

	godiff "github.com/sourcegraph/go-diff/diff"
)

// ChangedFile is one file touched by a diff. Paths are repo-relative.
type ChangedFile struct {
	OldPath string `json:"oldPath,omitempty"`
	NewPath string `json:"newPath,omitempty"`
	IsNew   bool   `json:"isNew,omitempty"`
	Deleted bool   `json:"deleted,omitempty"`
	Renamed bool   `json:"renamed,omitempty"`
	Added   int    `json:"added"`
	Removed int    `json:"removed"`
}

// Path returns the path the file has after the change, or its old path
// when it was deleted.
func (cf ChangedFile) Path() string {
	if cf.Deleted {
		return cf.OldPath
	}
	return cf.NewPath
}

// Parse parses a unified multi-file git diff.
func Parse(diffContent string) ([]ChangedFile, error) {
	if strings.TrimSpace(diffContent) == "" {
		return nil, nil
	}

	fileDiffs, err := godiff.ParseMultiFileDiff([]byte(diffContent))
	if err != nil {
		return nil, fmt.Errorf("failed to parse diff: %w", err)
	}

	out := make([]ChangedFile, 0, len(fileDiffs))
	for _, fd := range fileDiffs {
		out = append(out, changedFile(fd))
	}
	return out, nil
}

func changedFile(fd *godiff.FileDiff) ChangedFile {
	cf := ChangedFile{
		OldPath: cleanPath(fd.OrigName),
		NewPath: cleanPath(fd.NewName),
	}

	if fd.OrigName == "/dev/null" || fd.OrigName == "" {
		cf.IsNew = true
		cf.OldPath = ""
	}
	if fd.NewName == "/dev/null" || fd.NewName == "" {
		cf.Deleted = true
		cf.NewPath = ""
	}
	if cf.OldPath != "" && cf.NewPath != "" && cf.OldPath != cf.NewPath {
		cf.Renamed = true
	}

	for _, h := range fd.Hunks {
		for _, line := range strings.Split(string(h.Body), "\n") {
			switch {
			case strings.HasPrefix(line, "+"):
				cf.Added++
			case strings.HasPrefix(line, "-"):
				cf.Removed++
			}
		}
	}
	return cf
}

// cleanPath removes the a/ or b/ prefix from git diff paths
func cleanPath(path string) string {
	if path == "" || path == "/dev/null" {
		return path
	}
	if strings.HasPrefix(path, "a/") || strings.HasPrefix(path, "b/") {
		return path[2:]
	}
	return path
}
