// Package git provides a high-level wrapper over go-git.
// This file contains worktree operations: staging, unstaging, hard reset,
// and the external clean.
package git

import (
	"context"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// AddAll stages every working-tree change (new, modified, and deleted paths)
// into the index, the equivalent of `git add -A`.
func (r *Repo) AddAll(ctx context.Context) error {
	if err := r.worktree.AddWithOptions(&gogit.AddOptions{All: true}); err != nil {
		return WrapError(err, "failed to stage working tree changes")
	}
	return nil
}

// Unstage resets the index entries for the given paths back to HEAD without
// modifying the worktree. Paths that are not staged are silently ignored.
func (r *Repo) Unstage(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}

	staged, err := r.filterStagedPaths(paths)
	if err != nil {
		return err
	}
	if len(staged) == 0 {
		return nil
	}

	head, err := r.repo.Head()
	if err != nil {
		return WrapError(err, "failed to get HEAD reference")
	}

	resetOpts := &gogit.ResetOptions{
		Commit: head.Hash(),
		Mode:   gogit.MixedReset,
		Files:  staged,
	}
	if err := r.worktree.Reset(resetOpts); err != nil {
		return WrapErrorf(err, "failed to unstage %v", staged)
	}

	return nil
}

// filterStagedPaths returns only the paths that are actually staged.
func (r *Repo) filterStagedPaths(paths []string) ([]string, error) {
	status, err := r.worktree.Status()
	if err != nil {
		return nil, WrapError(err, "failed to get worktree status")
	}

	var staged []string
	for _, path := range paths {
		fileStatus := status.File(path)
		if fileStatus.Staging != gogit.Untracked && fileStatus.Staging != gogit.Unmodified {
			staged = append(staged, path)
		}
	}

	return staged, nil
}

// ResetHard resets the working tree and index to the commit rev resolves to,
// discarding local modifications and any commits HEAD accumulated past it.
func (r *Repo) ResetHard(ctx context.Context, rev string) error {
	hash, err := r.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return WrapErrorf(ErrResolveFailed, "hard reset to %q", rev)
	}

	resetOpts := &gogit.ResetOptions{
		Commit: *hash,
		Mode:   gogit.HardReset,
	}
	if err := r.worktree.Reset(resetOpts); err != nil {
		return WrapErrorf(err, "failed to hard reset to %q", rev)
	}

	return nil
}

// Clean removes untracked and ignored files from the working tree. This is
// the external process-level operation (`git clean -dfx`); the workflow never
// deletes worktree entries by any other means.
func (r *Repo) Clean(ctx context.Context) error {
	if _, err := r.runGit(ctx, "clean", "-dfx"); err != nil {
		return WrapError(err, "failed to clean working tree")
	}
	return nil
}
