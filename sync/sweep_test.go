package sync

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CodeEditorLand/DependencyLandMaintain/git"
)

// setupSweepRepo builds an on-disk repository whose committed state is the
// canonical parent content, publishes it as the parent/main tracking ref,
// and then dirties the working tree the way a fork does between syncs.
func setupSweepRepo(t *testing.T) *git.Repo {
	t.Helper()

	dir := t.TempDir()
	plain, err := gogit.PlainInit(dir, false)
	require.NoError(t, err)

	writeSweepFile(t, dir, ".gitignore", "canonical root ignore\n")
	writeSweepFile(t, dir, "package.json", "{\"name\": \"canonical\"}\n")
	writeSweepFile(t, dir, "sub/.gitignore", "canonical sub ignore\n")

	worktree, err := plain.Worktree()
	require.NoError(t, err)
	require.NoError(t, worktree.AddWithOptions(&gogit.AddOptions{All: true}))

	hash, err := worktree.Commit("canonical content", &gogit.CommitOptions{
		Author: &object.Signature{Name: "tester", Email: "tester@example.com", When: time.Now()},
	})
	require.NoError(t, err)

	err = plain.Storer.SetReference(plumbing.NewHashReference(
		plumbing.NewRemoteReferenceName(git.ParentRemoteName, "main"), hash))
	require.NoError(t, err)

	// Local drift: edited overrides plus copies inside excluded subtrees
	writeSweepFile(t, dir, ".gitignore", "local edit\n")
	writeSweepFile(t, dir, "sub/.gitignore", "local sub edit\n")
	writeSweepFile(t, dir, "node_modules/pkg/.gitignore", "vendored ignore\n")
	writeSweepFile(t, dir, ".git/hooks/.gitignore", "hook ignore\n")

	repo, err := git.Open(context.Background(), &git.Options{Path: dir})
	require.NoError(t, err)

	return repo
}

func writeSweepFile(t *testing.T, root, rel, content string) {
	t.Helper()

	full := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func parentMainRef() string {
	return git.ParentRemoteName + "/main"
}

func TestRestoreAllMatching(t *testing.T) {
	repo := setupSweepRepo(t)
	sweeper := NewSweeper(repo, []string{".git", "node_modules"})
	ctx := context.Background()

	restored, err := sweeper.RestoreAllMatching(ctx, parentMainRef(), ".gitignore")
	require.NoError(t, err)
	assert.Equal(t, 2, restored, "both drifted copies outside excluded roots")

	read := func(rel string) string {
		data, err := os.ReadFile(filepath.Join(repo.FS().Root(), rel))
		require.NoError(t, err)
		return string(data)
	}

	assert.Equal(t, "canonical root ignore\n", read(".gitignore"))
	assert.Equal(t, "canonical sub ignore\n", read("sub/.gitignore"))
	assert.Equal(t, "vendored ignore\n", read("node_modules/pkg/.gitignore"),
		"excluded subtree must not be touched")
	assert.Equal(t, "hook ignore\n", read(".git/hooks/.gitignore"),
		"metadata directory must not be touched")
}

func TestRestoreAllMatchingIsIdempotent(t *testing.T) {
	repo := setupSweepRepo(t)
	sweeper := NewSweeper(repo, []string{".git", "node_modules"})
	ctx := context.Background()

	first, err := sweeper.RestoreAllMatching(ctx, parentMainRef(), ".gitignore")
	require.NoError(t, err)
	assert.Equal(t, 2, first)

	second, err := sweeper.RestoreAllMatching(ctx, parentMainRef(), ".gitignore")
	require.NoError(t, err)
	assert.Equal(t, 0, second, "unchanged tree should require no writes")
}

func TestRestoreAllMatchingUnmodifiedFileSkipped(t *testing.T) {
	repo := setupSweepRepo(t)
	sweeper := NewSweeper(repo, []string{".git", "node_modules"})

	restored, err := sweeper.RestoreAllMatching(context.Background(), parentMainRef(), "package.json")
	require.NoError(t, err)
	assert.Equal(t, 0, restored, "content already matches the ref")
}

func TestRestoreAllMatchingFailsOnRefMissingOccurrence(t *testing.T) {
	repo := setupSweepRepo(t)
	writeSweepFile(t, repo.FS().Root(), "extra/.gitignore", "fork addition\n")

	sweeper := NewSweeper(repo, []string{".git", "node_modules"})

	_, err := sweeper.RestoreAllMatching(context.Background(), parentMainRef(), ".gitignore")
	assert.ErrorIs(t, err, git.ErrPathMissing,
		"an occurrence absent from the ref is a hard failure, not a skip")
}
