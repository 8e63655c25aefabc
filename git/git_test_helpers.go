package git

import (
	"context"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"

	"github.com/CodeEditorLand/DependencyLandMaintain/executor"
)

// testRepo is a helper struct that contains a test repository and its filesystem
type testRepo struct {
	repo *Repo
	fs   billy.Filesystem
	ctx  context.Context
}

// setupTestRepo creates a new test repository on an in-memory filesystem
func setupTestRepo(t *testing.T) *testRepo {
	t.Helper()

	memFS := memfs.New()
	dotGitFS, err := memFS.Chroot(".git")
	require.NoError(t, err, "failed to chroot .git")

	storage := newStorage(dotGitFS, DefaultStorerCacheSize)
	repo, err := gogit.Init(storage, memFS)
	require.NoError(t, err, "failed to initialize test repository")

	worktree, err := repo.Worktree()
	require.NoError(t, err, "failed to get worktree")

	return &testRepo{
		repo: &Repo{
			repo:     repo,
			worktree: worktree,
			fs:       memFS,
			options:  Options{WorktreeFS: memFS},
		},
		fs:  memFS,
		ctx: context.Background(),
	}
}

// setupTestRepoWithCommit creates a test repository with one committed file
func setupTestRepoWithCommit(t *testing.T) *testRepo {
	t.Helper()

	tr := setupTestRepo(t)
	tr.writeFile(t, "README.md", "initial content\n")
	tr.commitAll(t, "initial commit")

	return tr
}

// withRunner installs a command runner on the test repository
func (tr *testRepo) withRunner(r executor.Runner) *testRepo {
	tr.repo.runner = r
	return tr
}

// writeFile writes content to a path in the test worktree
func (tr *testRepo) writeFile(t *testing.T, path, content string) {
	t.Helper()

	err := util.WriteFile(tr.fs, path, []byte(content), 0o644)
	require.NoError(t, err, "failed to write %s", path)
}

// commitAll stages everything and commits it, returning the commit hash
func (tr *testRepo) commitAll(t *testing.T, msg string) plumbing.Hash {
	t.Helper()

	err := tr.repo.worktree.AddWithOptions(&gogit.AddOptions{All: true})
	require.NoError(t, err, "failed to stage changes")

	hash, err := tr.repo.worktree.Commit(msg, &gogit.CommitOptions{
		Author: &object.Signature{
			Name:  "tester",
			Email: "tester@example.com",
			When:  time.Now(),
		},
	})
	require.NoError(t, err, "failed to commit")

	return hash
}

// createTestBranch creates a branch reference at HEAD
func (tr *testRepo) createTestBranch(t *testing.T, branchName string) {
	t.Helper()

	head, err := tr.repo.repo.Head()
	require.NoError(t, err, "failed to get HEAD")

	branchRef := plumbing.NewBranchReferenceName(branchName)
	err = tr.repo.repo.Storer.SetReference(plumbing.NewHashReference(branchRef, head.Hash()))
	require.NoError(t, err, "failed to create branch reference")
}

// createRemoteBranch creates a remote-tracking branch reference at a commit
func (tr *testRepo) createRemoteBranch(t *testing.T, remoteName, branchName string, hash plumbing.Hash) {
	t.Helper()

	remoteRef := plumbing.NewRemoteReferenceName(remoteName, branchName)
	err := tr.repo.repo.Storer.SetReference(plumbing.NewHashReference(remoteRef, hash))
	require.NoError(t, err, "failed to create remote branch reference")
}

// readFile returns the content of a worktree file
func (tr *testRepo) readFile(t *testing.T, path string) string {
	t.Helper()

	data, err := util.ReadFile(tr.fs, path)
	require.NoError(t, err, "failed to read %s", path)

	return string(data)
}
