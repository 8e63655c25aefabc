// Package git provides sentinel errors for the repository operations used by
// the fork-maintenance workflow. All errors can be checked using errors.Is()
// for programmatic handling.
package git

import (
	"errors"
	"fmt"
)

// Common sentinel errors that can be checked with errors.Is().
// These wrap underlying go-git and git CLI errors while providing a stable
// API for consumers.

// ErrRemoteExists is returned when adding a remote whose name is already taken.
var ErrRemoteExists = errors.New("remote already exists")

// ErrRemoteMissing is returned when operating on a remote that does not exist.
// Callers removing a possibly-absent remote may treat it as success.
var ErrRemoteMissing = errors.New("remote does not exist")

// ErrBranchMissing is returned when operating on a local branch that does not exist.
var ErrBranchMissing = errors.New("branch does not exist")

// ErrBranchExists is returned when creating a branch that already exists.
var ErrBranchExists = errors.New("branch already exists")

// ErrPathMissing is returned when a path cannot be found in the tree of the
// commit a revision resolves to.
var ErrPathMissing = errors.New("path not found in tree")

// ErrNotRegularFile is returned when a tree path resolves to a directory or
// other non-blob entry where a regular file was required.
var ErrNotRegularFile = errors.New("path is not a regular file")

// ErrFetch is returned when fetching from a remote fails (network, auth).
// Fetch failures are potentially transient and a caller may retry.
var ErrFetch = errors.New("fetch failed")

// ErrPush is returned when pushing to a remote fails (network, auth).
var ErrPush = errors.New("push failed")

// ErrMergeConflict is returned when a merge or pull leaves conflicts that the
// configured conflict policy could not resolve mechanically.
var ErrMergeConflict = errors.New("merge conflict")

// ErrAlreadyUpToDate is returned when fetch, pull, or push operations result
// in no changes because the local and remote states are already synchronized.
var ErrAlreadyUpToDate = errors.New("already up to date")

// ErrNotFastForward is returned when a push would overwrite remote history
// and force was not requested.
var ErrNotFastForward = errors.New("not a fast-forward")

// ErrInvalidRef is returned when a reference name or argument is malformed.
var ErrInvalidRef = errors.New("invalid reference")

// ErrResolveFailed is returned when a revision specification cannot be
// resolved to a commit (branch/tag doesn't exist, invalid SHA).
var ErrResolveFailed = errors.New("cannot resolve revision")

// WrapError wraps an error with additional context while preserving
// the ability to check against sentinel errors using errors.Is().
func WrapError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// WrapErrorf wraps an error with formatted additional context while preserving
// the ability to check against sentinel errors using errors.Is().
func WrapErrorf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
