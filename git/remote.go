// Package git provides a high-level wrapper over go-git.
// This file contains remote management: remote CRUD, upstream bindings,
// fetch (shallow and unshallow), and push.
package git

import (
	"context"
	"errors"
	"fmt"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
)

// trackedBranch is the only branch fetched from remotes; the workflow tracks
// upstream history through it alone.
const trackedBranch = "main"

// AddRemote creates a named remote pointing at url.
// Returns ErrRemoteExists if a remote with that name is already configured.
func (r *Repo) AddRemote(name, url string) error {
	if name == "" || url == "" {
		return WrapError(ErrInvalidRef, "remote name and url cannot be empty")
	}

	_, err := r.repo.CreateRemote(&config.RemoteConfig{
		Name: name,
		URLs: []string{url},
	})
	if err != nil {
		if errors.Is(err, gogit.ErrRemoteExists) {
			return WrapErrorf(ErrRemoteExists, "add remote %q", name)
		}
		return WrapErrorf(err, "failed to add remote %q", name)
	}

	return nil
}

// RemoveRemote deletes a named remote and its tracking configuration.
// Returns ErrRemoteMissing if no remote with that name exists; callers whose
// intent is idempotent removal treat that as success.
func (r *Repo) RemoveRemote(name string) error {
	if name == "" {
		return WrapError(ErrInvalidRef, "remote name cannot be empty")
	}

	if err := r.repo.DeleteRemote(name); err != nil {
		if errors.Is(err, gogit.ErrRemoteNotFound) {
			return WrapErrorf(ErrRemoteMissing, "remove remote %q", name)
		}
		return WrapErrorf(err, "failed to remove remote %q", name)
	}

	return nil
}

// SetRemoteURL retargets an existing remote at url.
// Returns ErrRemoteMissing if the remote does not exist.
func (r *Repo) SetRemoteURL(name, url string) error {
	if name == "" || url == "" {
		return WrapError(ErrInvalidRef, "remote name and url cannot be empty")
	}

	cfg, err := r.repo.Config()
	if err != nil {
		return WrapError(err, "failed to read repository configuration")
	}

	remote, ok := cfg.Remotes[name]
	if !ok {
		return WrapErrorf(ErrRemoteMissing, "set url of remote %q", name)
	}
	remote.URLs = []string{url}

	if err := r.repo.SetConfig(cfg); err != nil {
		return WrapErrorf(err, "failed to update url of remote %q", name)
	}

	return nil
}

// RemoteURL returns the first configured URL of a named remote.
// Returns ErrRemoteMissing if the remote does not exist.
func (r *Repo) RemoteURL(name string) (string, error) {
	remote, err := r.repo.Remote(name)
	if err != nil {
		if errors.Is(err, gogit.ErrRemoteNotFound) {
			return "", WrapErrorf(ErrRemoteMissing, "remote %q", name)
		}
		return "", WrapErrorf(err, "failed to look up remote %q", name)
	}

	urls := remote.Config().URLs
	if len(urls) == 0 {
		return "", WrapErrorf(ErrInvalidRef, "remote %q has no url", name)
	}
	return urls[0], nil
}

// SetUpstream binds a local branch's upstream tracking reference to
// remoteBranch on remote. Returns ErrBranchMissing if the local branch does
// not exist. The binding requires the remote-tracking side to be resolvable
// once fetched; it is recorded as branch.<name>.remote/merge configuration.
func (r *Repo) SetUpstream(localBranch, remote, remoteBranch string) error {
	if localBranch == "" || remote == "" || remoteBranch == "" {
		return WrapError(ErrInvalidRef, "branch and remote names cannot be empty")
	}

	branchRef := plumbing.NewBranchReferenceName(localBranch)
	if _, err := r.repo.Reference(branchRef, true); err != nil {
		return WrapErrorf(ErrBranchMissing, "set upstream of branch %q", localBranch)
	}

	cfg, err := r.repo.Config()
	if err != nil {
		return WrapError(err, "failed to read repository configuration")
	}

	if cfg.Branches == nil {
		cfg.Branches = make(map[string]*config.Branch)
	}
	cfg.Branches[localBranch] = &config.Branch{
		Name:   localBranch,
		Remote: remote,
		Merge:  plumbing.NewBranchReferenceName(remoteBranch),
	}

	if err := r.repo.SetConfig(cfg); err != nil {
		return WrapErrorf(err, "failed to bind upstream of branch %q", localBranch)
	}

	return nil
}

// Upstream reports the remote and merge ref a local branch tracks.
// Returns ErrBranchMissing when no tracking configuration exists.
func (r *Repo) Upstream(localBranch string) (remote, mergeRef string, err error) {
	cfg, err := r.repo.Config()
	if err != nil {
		return "", "", WrapError(err, "failed to read repository configuration")
	}

	branch, ok := cfg.Branches[localBranch]
	if !ok {
		return "", "", WrapErrorf(ErrBranchMissing, "branch %q has no upstream", localBranch)
	}
	return branch.Remote, branch.Merge.String(), nil
}

// Fetch retrieves history for the tracked branch from the named remote at
// the given depth, optionally suppressing tag download. Network and auth
// failures wrap ErrFetch; ErrAlreadyUpToDate reports a no-op fetch.
//
// Context timeout/cancellation is honored during the fetch operation.
func (r *Repo) Fetch(ctx context.Context, remote string, depth int, noTags bool) error {
	if remote == "" {
		return WrapError(ErrInvalidRef, "remote name cannot be empty")
	}

	fetchOpts := &gogit.FetchOptions{
		RemoteName: remote,
		Depth:      depth,
		RefSpecs: []config.RefSpec{
			config.RefSpec(fmt.Sprintf("+refs/heads/%s:refs/remotes/%s/%s", trackedBranch, remote, trackedBranch)),
		},
	}
	if noTags {
		fetchOpts.Tags = gogit.NoTags
	}

	err := r.repo.FetchContext(ctx, fetchOpts)
	if err != nil {
		if errors.Is(err, gogit.ErrRemoteNotFound) {
			return WrapErrorf(ErrRemoteMissing, "fetch from %q", remote)
		}
		if errors.Is(err, gogit.NoErrAlreadyUpToDate) {
			return ErrAlreadyUpToDate
		}
		return WrapErrorf(ErrFetch, "fetch from %q: %v", remote, err)
	}

	return nil
}

// FetchUnshallow converts a shallow clone of the named remote into a full
// one by fetching complete history with tags suppressed. Fetching an
// already-complete repository is a no-op. go-git cannot deepen an existing
// shallow clone in place, so this runs the git CLI.
func (r *Repo) FetchUnshallow(ctx context.Context, remote string) error {
	if remote == "" {
		return WrapError(ErrInvalidRef, "remote name cannot be empty")
	}

	result, err := r.runGit(ctx, "fetch", remote, "--no-tags", "--unshallow")
	if err != nil {
		if result != nil && strings.Contains(result.Stderr, "on a complete repository") {
			return nil
		}
		return WrapErrorf(ErrFetch, "unshallow fetch from %q", remote)
	}

	return nil
}

// PushRefSpec pushes a single refspec to the named remote.
// Returns ErrAlreadyUpToDate when there is nothing to push and
// ErrNotFastForward when the push would rewrite remote history.
//
// Context timeout/cancellation is honored during the push operation.
func (r *Repo) PushRefSpec(ctx context.Context, remote, refspec string) error {
	if remote == "" || refspec == "" {
		return WrapError(ErrInvalidRef, "remote name and refspec cannot be empty")
	}

	pushOpts := &gogit.PushOptions{
		RemoteName: remote,
		RefSpecs:   []config.RefSpec{config.RefSpec(refspec)},
	}

	err := r.repo.PushContext(ctx, pushOpts)
	if err != nil {
		if errors.Is(err, gogit.ErrRemoteNotFound) {
			return WrapErrorf(ErrRemoteMissing, "push to %q", remote)
		}
		if errors.Is(err, gogit.NoErrAlreadyUpToDate) {
			return ErrAlreadyUpToDate
		}
		if errors.Is(err, gogit.ErrNonFastForwardUpdate) {
			return WrapErrorf(ErrNotFastForward, "push %q to %q", refspec, remote)
		}
		return WrapErrorf(ErrPush, "push %q to %q: %v", refspec, remote, err)
	}

	return nil
}

// PushHEAD pushes the branch HEAD currently points at to the named remote
// under the same branch name.
func (r *Repo) PushHEAD(ctx context.Context, remote string) error {
	branch, err := r.CurrentBranch(ctx)
	if err != nil {
		return WrapError(err, "failed to resolve HEAD branch for push")
	}
	return r.PushRefSpec(ctx, remote, branchRefSpec(branch, false))
}

// PushSetUpstream pushes a branch to the named remote, optionally forced,
// and then binds the branch's upstream to the corresponding remote-tracking
// branch. An already up-to-date push still records the binding.
func (r *Repo) PushSetUpstream(ctx context.Context, remote, branch string, force bool) error {
	err := r.PushRefSpec(ctx, remote, branchRefSpec(branch, force))
	if err != nil && !errors.Is(err, ErrAlreadyUpToDate) {
		return err
	}
	return r.SetUpstream(branch, remote, branch)
}

// branchRefSpec builds the push refspec for a branch, prefixed with + when
// the update must be forced.
func branchRefSpec(branch string, force bool) string {
	refspec := fmt.Sprintf("refs/heads/%s:refs/heads/%s", branch, branch)
	if force {
		return "+" + refspec
	}
	return refspec
}
