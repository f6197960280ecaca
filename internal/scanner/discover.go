package scanner

import (
	"bytes"
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"thymus/internal/paths"
)

// sniffSize is how much of a file is inspected for binary content.
const sniffSize = 8000

// Discover returns the sorted repo-relative paths of source files under
// scope (a repo-relative directory, empty for the whole repository).
func (s *Scanner) Discover(ctx context.Context, scope string) ([]string, error) {
	root := s.repoRoot
	if scope != "" {
		root = paths.JoinRepoPath(s.repoRoot, scope)
	}

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			s.logger.Debug("skipping unreadable path", "path", path, "error", err)
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if d.IsDir() {
			if path != root && s.ignoreDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			if !s.cfg.FollowSymlinks {
				return nil
			}
			info, err := os.Stat(path)
			if err != nil || !info.Mode().IsRegular() {
				return nil
			}
		} else if !d.Type().IsRegular() {
			return nil
		}

		if !s.extensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		rel, err := filepath.Rel(s.repoRoot, path)
		if err != nil {
			return nil
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

// ignoredPath reports whether any directory component of rel is ignored.
func (s *Scanner) ignoredPath(rel string) bool {
	parts := strings.Split(rel, "/")
	for _, p := range parts[:len(parts)-1] {
		if s.ignoreDirs[p] {
			return true
		}
	}
	return false
}

// Accepts reports whether rel would be picked up by Discover: a known
// source extension outside any ignored directory.
func (s *Scanner) Accepts(rel string) bool {
	rel = filepath.ToSlash(rel)
	return !s.ignoredPath(rel) && s.extensions[strings.ToLower(extOf(rel))]
}

// LooksBinary reports whether data contains a NUL byte in its first
// sniffSize bytes.
func LooksBinary(data []byte) bool {
	if len(data) > sniffSize {
		data = data[:sniffSize]
	}
	return bytes.IndexByte(data, 0) >= 0
}

// IsTextFile reports whether path is a regular file whose head has no NUL
// byte.
func IsTextFile(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	buf := make([]byte, sniffSize)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return false
	}
	return !LooksBinary(buf[:n])
}
