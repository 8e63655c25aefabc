package git

import (
	"testing"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrentBranch(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(t *testing.T) *testRepo
		validate func(t *testing.T, branch string, err error)
	}{
		{
			name:  "default branch after commit",
			setup: setupTestRepoWithCommit,
			validate: func(t *testing.T, branch string, err error) {
				require.NoError(t, err)
				assert.Equal(t, "master", branch)
			},
		},
		{
			name: "detached HEAD state",
			setup: func(t *testing.T) *testRepo {
				tr := setupTestRepoWithCommit(t)

				head, err := tr.repo.repo.Head()
				require.NoError(t, err)

				err = tr.repo.repo.Storer.SetReference(plumbing.NewHashReference(plumbing.HEAD, head.Hash()))
				require.NoError(t, err)

				return tr
			},
			validate: func(t *testing.T, branch string, err error) {
				assert.ErrorIs(t, err, ErrResolveFailed)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := tt.setup(t)
			branch, err := tr.repo.CurrentBranch(tr.ctx)
			tt.validate(t, branch, err)
		})
	}
}

func TestCreateBranch(t *testing.T) {
	tests := []struct {
		name       string
		branchName string
		setup      func(t *testing.T) *testRepo
		wantErr    error
	}{
		{
			name:       "create branch at HEAD",
			branchName: "current",
			setup:      setupTestRepoWithCommit,
			wantErr:    nil,
		},
		{
			name:       "branch already exists",
			branchName: "current",
			setup: func(t *testing.T) *testRepo {
				tr := setupTestRepoWithCommit(t)
				tr.createTestBranch(t, "current")
				return tr
			},
			wantErr: ErrBranchExists,
		},
		{
			name:       "empty branch name",
			branchName: "",
			setup:      setupTestRepoWithCommit,
			wantErr:    ErrInvalidRef,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := tt.setup(t)
			err := tr.repo.CreateBranch(tr.ctx, tt.branchName)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)

			head, err := tr.repo.repo.Head()
			require.NoError(t, err)

			ref, err := tr.repo.repo.Reference(plumbing.NewBranchReferenceName(tt.branchName), true)
			require.NoError(t, err)
			assert.Equal(t, head.Hash(), ref.Hash(), "new branch should point at the HEAD commit")
		})
	}
}

func TestSwitchBranch(t *testing.T) {
	t.Run("moves HEAD to an existing branch", func(t *testing.T) {
		tr := setupTestRepoWithCommit(t)
		tr.createTestBranch(t, "previous")

		err := tr.repo.SwitchBranch(tr.ctx, "previous")
		require.NoError(t, err)

		branch, err := tr.repo.CurrentBranch(tr.ctx)
		require.NoError(t, err)
		assert.Equal(t, "previous", branch)
	})

	t.Run("missing branch", func(t *testing.T) {
		tr := setupTestRepoWithCommit(t)

		err := tr.repo.SwitchBranch(tr.ctx, "no-such-branch")
		assert.ErrorIs(t, err, ErrBranchMissing)
	})

	t.Run("leaves the worktree untouched", func(t *testing.T) {
		tr := setupTestRepoWithCommit(t)
		tr.createTestBranch(t, "previous")
		tr.writeFile(t, "README.md", "local edit\n")

		err := tr.repo.SwitchBranch(tr.ctx, "previous")
		require.NoError(t, err)
		assert.Equal(t, "local edit\n", tr.readFile(t, "README.md"))
	})
}

func TestCreateAndSwitchBranch(t *testing.T) {
	t.Run("creates the branch at HEAD and checks it out", func(t *testing.T) {
		tr := setupTestRepoWithCommit(t)
		head, err := tr.repo.repo.Head()
		require.NoError(t, err)

		err = tr.repo.CreateAndSwitchBranch(tr.ctx, "current")
		require.NoError(t, err)

		branch, err := tr.repo.CurrentBranch(tr.ctx)
		require.NoError(t, err)
		assert.Equal(t, "current", branch)

		ref, err := tr.repo.repo.Reference(plumbing.NewBranchReferenceName("current"), true)
		require.NoError(t, err)
		assert.Equal(t, head.Hash(), ref.Hash())
	})

	t.Run("reuses an existing branch without moving it", func(t *testing.T) {
		tr := setupTestRepoWithCommit(t)
		tr.createTestBranch(t, "current")

		before, err := tr.repo.repo.Reference(plumbing.NewBranchReferenceName("current"), true)
		require.NoError(t, err)

		tr.writeFile(t, "file.txt", "second\n")
		tr.commitAll(t, "second commit")

		err = tr.repo.CreateAndSwitchBranch(tr.ctx, "current")
		require.NoError(t, err)

		after, err := tr.repo.repo.Reference(plumbing.NewBranchReferenceName("current"), true)
		require.NoError(t, err)
		assert.Equal(t, before.Hash(), after.Hash(), "existing branch should not be moved")

		branch, err := tr.repo.CurrentBranch(tr.ctx)
		require.NoError(t, err)
		assert.Equal(t, "current", branch)
	})
}
