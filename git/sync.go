// Package git provides a high-level wrapper over go-git.
// This file contains the merge and pull operations of the reconciliation
// pipeline. Both run through the git CLI: go-git's in-process merge is
// fast-forward only and has no strategy options, while the workflow needs
// unrelated-history merges and the "theirs" conflict policy.
package git

import (
	"context"
	"strings"
)

// Merge merges the commit rev resolves to into the current HEAD. When
// allowUnrelated is set the merge proceeds even if the two histories share
// no common ancestor, which is the normal case for a fork tracking a parent
// it was cut away from. Without the flag, git refuses such merges and the
// error is surfaced as ErrMergeConflict context.
func (r *Repo) Merge(ctx context.Context, rev string, allowUnrelated bool) error {
	if rev == "" {
		return WrapError(ErrInvalidRef, "merge revision cannot be empty")
	}

	args := []string{"merge", "--no-edit", "--no-progress"}
	if allowUnrelated {
		args = append(args, "--allow-unrelated-histories")
	}
	args = append(args, rev)

	result, err := r.runGit(ctx, args...)
	if err != nil {
		if result != nil && isConflictOutput(result.Stdout+result.Stderr) {
			return WrapErrorf(ErrMergeConflict, "merge %q", rev)
		}
		return WrapErrorf(err, "failed to merge %q", rev)
	}

	return nil
}

// PullTheirs pulls from the currently configured upstream with unrelated
// histories allowed and the "theirs" conflict policy: on any path-level
// conflict the incoming version wins unconditionally. Override files
// clobbered here are reapplied by the restore steps afterwards, so the final
// state does not depend on conflict outcomes.
func (r *Repo) PullTheirs(ctx context.Context) error {
	args := []string{
		"pull",
		"--no-edit",
		"--allow-unrelated-histories",
		"--no-progress",
		"-q",
		"-X", "theirs",
	}

	result, err := r.runGit(ctx, args...)
	if err != nil {
		if result != nil && isConflictOutput(result.Stdout+result.Stderr) {
			return WrapError(ErrMergeConflict, "pull with theirs policy")
		}
		return WrapError(err, "failed to pull from upstream")
	}

	return nil
}

// isConflictOutput reports whether git output describes a conflict the
// requested strategy could not resolve mechanically.
func isConflictOutput(output string) bool {
	return strings.Contains(output, "CONFLICT") ||
		strings.Contains(output, "Automatic merge failed")
}
