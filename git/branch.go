// Package git provides a high-level wrapper over go-git.
// This file contains the branch bookkeeping operations: reading the current
// branch, creating branches at HEAD, and moving HEAD between branches.
package git

import (
	"context"
	"errors"

	"github.com/go-git/go-git/v5/plumbing"
)

// CurrentBranch returns the name of the currently checked out branch.
// It returns an error if HEAD is in a detached state.
func (r *Repo) CurrentBranch(ctx context.Context) (string, error) {
	head, err := r.repo.Head()
	if err != nil {
		return "", WrapError(err, "failed to get HEAD reference")
	}

	if !head.Name().IsBranch() {
		return "", WrapError(ErrResolveFailed, "HEAD is detached")
	}

	return head.Name().Short(), nil
}

// CreateBranch creates a branch pointing at the commit HEAD references.
// Returns ErrBranchExists if the branch already exists.
func (r *Repo) CreateBranch(ctx context.Context, name string) error {
	if name == "" {
		return WrapError(ErrInvalidRef, "branch name cannot be empty")
	}

	head, err := r.repo.Head()
	if err != nil {
		return WrapError(err, "failed to get HEAD reference")
	}

	branchRef := plumbing.NewBranchReferenceName(name)
	if _, err := r.repo.Reference(branchRef, true); err == nil {
		return WrapErrorf(ErrBranchExists, "create branch %q", name)
	}

	newRef := plumbing.NewHashReference(branchRef, head.Hash())
	if err := r.repo.Storer.SetReference(newRef); err != nil {
		return WrapErrorf(err, "failed to create branch %q", name)
	}

	return nil
}

// SwitchBranch points HEAD at the named branch. The working tree is left
// untouched; the workflow's restore steps own file content.
// Returns ErrBranchMissing if the branch does not exist.
func (r *Repo) SwitchBranch(ctx context.Context, name string) error {
	if name == "" {
		return WrapError(ErrInvalidRef, "branch name cannot be empty")
	}

	branchRef := plumbing.NewBranchReferenceName(name)
	if _, err := r.repo.Reference(branchRef, true); err != nil {
		return WrapErrorf(ErrBranchMissing, "switch to branch %q", name)
	}

	symbolic := plumbing.NewSymbolicReference(plumbing.HEAD, branchRef)
	if err := r.repo.Storer.SetReference(symbolic); err != nil {
		return WrapErrorf(err, "failed to switch to branch %q", name)
	}

	return nil
}

// CreateAndSwitchBranch creates a branch at the current HEAD commit and
// points HEAD at it. A branch that already exists is reused unchanged, so
// re-running the bookkeeping sequence is safe.
func (r *Repo) CreateAndSwitchBranch(ctx context.Context, name string) error {
	err := r.CreateBranch(ctx, name)
	if err != nil && !errors.Is(err, ErrBranchExists) {
		return err
	}

	return r.SwitchBranch(ctx, name)
}
