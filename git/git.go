// Package git provides a high-level wrapper over go-git for the repository
// operations the fork-maintenance workflow needs: remote and branch
// bookkeeping, staging, historical file restores, and the merge/pull/push
// sequence. Operations that go-git cannot express (clean, unshallow fetch,
// conflict-policy pull, submodule registration) run through an external
// command runner against the same repository.
package git

import (
	"context"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/cache"
	"github.com/go-git/go-git/v5/storage/filesystem"

	"github.com/CodeEditorLand/DependencyLandMaintain/executor"
)

const (
	// DefaultStorerCacheSize is the default size for the LRU object cache.
	DefaultStorerCacheSize = 1000

	// ParentRemoteName is the read-only upstream remote.
	ParentRemoteName = "parent"

	// SourceRemoteName is the read-write fork remote that receives pushes.
	SourceRemoteName = "source"
)

// Options configures repository discovery and performance.
type Options struct {
	// Path is the on-disk repository root. It doubles as the working
	// directory for commands executed through Runner. Required unless
	// WorktreeFS is set.
	Path string

	// WorktreeFS overrides the filesystem holding the worktree root.
	// Defaults to an OS filesystem rooted at Path. Tests use an in-memory
	// filesystem here.
	WorktreeFS billy.Filesystem

	// Runner executes the git CLI for operations go-git does not implement.
	// Optional; those operations fail when it is absent.
	Runner executor.Runner

	// StorerCacheSize sets the LRU object cache entries.
	// Defaults to DefaultStorerCacheSize.
	StorerCacheSize int
}

// Validate checks that the Options are properly configured.
func (o *Options) Validate() error {
	if o.Path == "" && o.WorktreeFS == nil {
		return WrapError(ErrInvalidRef, "repository path is required")
	}

	if o.StorerCacheSize < 0 {
		return WrapError(ErrInvalidRef, "StorerCacheSize cannot be negative")
	}

	return nil
}

// applyDefaults sets default values for any unset fields in Options.
func (o *Options) applyDefaults() {
	if o.WorktreeFS == nil {
		o.WorktreeFS = osfs.New(o.Path)
	}

	if o.StorerCacheSize == 0 {
		o.StorerCacheSize = DefaultStorerCacheSize
	}
}

// Open opens the existing repository at Options.Path. The repository must
// already have a .git directory and worktree; this tool never initializes or
// clones.
//
// Context timeout/cancellation is honored during repository validation.
func Open(ctx context.Context, opts *Options) (*Repo, error) {
	if err := opts.Validate(); err != nil {
		return nil, WrapError(err, "invalid options")
	}

	opts.applyDefaults()

	dotGitFS, err := opts.WorktreeFS.Chroot(".git")
	if err != nil {
		return nil, WrapError(err, "failed to access .git directory")
	}

	storage := newStorage(dotGitFS, opts.StorerCacheSize)

	repo, err := gogit.Open(storage, opts.WorktreeFS)
	if err != nil {
		return nil, WrapError(err, "failed to open repository")
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return nil, WrapError(err, "failed to get worktree")
	}

	return &Repo{
		repo:     repo,
		worktree: worktree,
		fs:       opts.WorktreeFS,
		runner:   opts.Runner,
		options:  *opts,
	}, nil
}

// newStorage creates git object storage with an LRU cache on top of the
// given .git filesystem.
func newStorage(dotGitFS billy.Filesystem, cacheSize int) *filesystem.Storage {
	if cacheSize <= 0 {
		cacheSize = 100
	}
	return filesystem.NewStorage(dotGitFS, cache.NewObjectLRU(cache.FileSize(cacheSize)))
}

// Repo represents an open git repository and provides the high-level
// operations of the synchronization workflow.
type Repo struct {
	repo     *gogit.Repository
	worktree *gogit.Worktree
	fs       billy.Filesystem
	runner   executor.Runner
	options  Options
}

// FS returns the filesystem holding the worktree root. The override sweeper
// walks it directly.
func (r *Repo) FS() billy.Filesystem {
	return r.fs
}

// runGit executes the git CLI in the repository's working directory.
func (r *Repo) runGit(ctx context.Context, args ...string) (*executor.Result, error) {
	if r.runner == nil {
		return nil, WrapErrorf(ErrInvalidRef, "no command runner configured for git %v", args)
	}
	return r.runner.Run(ctx, "git", args, executor.WithWorkingDir(r.options.Path))
}
