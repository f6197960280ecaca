package diff

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"thymus/internal/errors"
)

const gitTimeout = 10 * time.Second

// ChangedFiles returns the files that differ between base (HEAD when empty)
// and the working tree, deleted files excluded.
func ChangedFiles(ctx context.Context, repoRoot, base string) ([]ChangedFile, error) {
	if base == "" {
		base = "HEAD"
	}
	out, err := runGit(ctx, repoRoot, "diff", "--no-color", "--no-ext-diff", "-M", base, "--")
	if err != nil {
		return nil, err
	}
	files, err := Parse(out)
	if err != nil {
		return nil, err
	}

	kept := files[:0]
	for _, f := range files {
		if !f.Deleted {
			kept = append(kept, f)
		}
	}
	return kept, nil
}

// HeadCommit returns the abbreviated HEAD commit, or "unknown" outside a
// repository.
func HeadCommit(ctx context.Context, repoRoot string) string {
	out, err := runGit(ctx, repoRoot, "rev-parse", "--short", "HEAD")
	if err != nil {
		return "unknown"
	}
	if sha := strings.TrimSpace(out); sha != "" {
		return sha
	}
	return "unknown"
}

// IsRepo reports whether repoRoot is inside a git work tree.
func IsRepo(ctx context.Context, repoRoot string) bool {
	out, err := runGit(ctx, repoRoot, "rev-parse", "--is-inside-work-tree")
	return err == nil && strings.TrimSpace(out) == "true"
}

func runGit(ctx context.Context, repoRoot string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, gitTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = repoRoot
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", errors.NewThymusError(errors.GitUnavailable,
			fmt.Sprintf("git %s: %s", args[0], msg), err, errors.GetSuggestedFixes(errors.GitUnavailable))
	}
	return stdout.String(), nil
}
