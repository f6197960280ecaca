// Package paths resolves the .thymus project layout and converts between
// absolute and repo-relative paths.
package paths

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// StateDirName is the per-project state directory.
const StateDirName = ".thymus"

// ErrNoProjectRoot is returned when no enclosing project can be found.
var ErrNoProjectRoot = errors.New("no .thymus or .git directory found")

// StateDir returns <repoRoot>/.thymus
func StateDir(repoRoot string) string {
	return filepath.Join(repoRoot, StateDirName)
}

// ConfigPath returns the config file location.
func ConfigPath(repoRoot string) string {
	return filepath.Join(StateDir(repoRoot), "config.json")
}

// RulesPath resolves a rules file name. Absolute names are kept, bare names
// live under .thymus/.
func RulesPath(repoRoot, name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(StateDir(repoRoot), name)
}

// DatabasePath returns the project database location.
func DatabasePath(repoRoot string) string {
	return filepath.Join(StateDir(repoRoot), "thymus.db")
}

// BaselinePath returns the module baseline location.
func BaselinePath(repoRoot string) string {
	return filepath.Join(StateDir(repoRoot), "baseline.json")
}

// LogsDir returns the log directory.
func LogsDir(repoRoot string) string {
	return filepath.Join(StateDir(repoRoot), "logs")
}

// LogPath returns the CLI log file location.
func LogPath(repoRoot string) string {
	return filepath.Join(LogsDir(repoRoot), "thymus.log")
}

// EnsureStateDir creates .thymus if needed and returns its path.
func EnsureStateDir(repoRoot string) (string, error) {
	dir := StateDir(repoRoot)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}

// FindProjectRoot walks up from start to the nearest directory holding
// .thymus or .git.
func FindProjectRoot(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}
	for {
		for _, marker := range []string{StateDirName, ".git"} {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return dir, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrNoProjectRoot
		}
		dir = parent
	}
}

// CanonicalizePath converts an absolute path to a repo-relative path with
// forward slashes. Symlinks are resolved when the target exists.
func CanonicalizePath(absolutePath string, repoRoot string) (string, error) {
	resolved, err := filepath.EvalSymlinks(absolutePath)
	if err != nil {
		if !os.IsNotExist(err) {
			return "", err
		}
		resolved = absolutePath
	}

	rootResolved, err := filepath.EvalSymlinks(repoRoot)
	if err != nil {
		if !os.IsNotExist(err) {
			return "", err
		}
		rootResolved = repoRoot
	}

	rel, err := filepath.Rel(rootResolved, resolved)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

// RelativeTo makes path repo-relative. Relative input is taken as relative to
// the root already.
func RelativeTo(path, repoRoot string) (string, error) {
	if !filepath.IsAbs(path) {
		return NormalizePath(filepath.Clean(path)), nil
	}
	return CanonicalizePath(path, repoRoot)
}

// IsWithinRepo checks if a path is within the repository root
func IsWithinRepo(path string, repoRoot string) bool {
	canonical, err := CanonicalizePath(path, repoRoot)
	if err != nil {
		return false
	}
	return canonical != ".." && !strings.HasPrefix(canonical, "../")
}

// NormalizePath converts backslashes to forward slashes
func NormalizePath(path string) string {
	return strings.ReplaceAll(filepath.ToSlash(path), "\\", "/")
}

// JoinRepoPath joins a repo root with a canonical path
func JoinRepoPath(repoRoot string, canonicalPath string) string {
	parts := strings.Split(NormalizePath(canonicalPath), "/")
	return filepath.Join(append([]string{repoRoot}, parts...)...)
}
