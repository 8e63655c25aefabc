// Package git provides a high-level wrapper over go-git.
// This file contains the file restorer: resolving a path inside the tree of
// an arbitrary revision and writing its content back onto the working tree.
package git

import (
	"context"
	"io"
	"os"
	"path"

	"github.com/go-git/go-billy/v5/util"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// BlobBytes resolves rev to a commit, looks up treePath in its tree, and
// returns the blob's byte content. Returns ErrPathMissing when the path is
// absent from the tree and ErrNotRegularFile when it resolves to a directory
// or other non-blob entry.
func (r *Repo) BlobBytes(ctx context.Context, rev, treePath string) ([]byte, error) {
	entry, _, err := r.treeEntry(rev, treePath)
	if err != nil {
		return nil, err
	}

	if !isRegular(entry.Mode) {
		return nil, WrapErrorf(ErrNotRegularFile, "%q in %q", treePath, rev)
	}

	blob, err := r.repo.BlobObject(entry.Hash)
	if err != nil {
		return nil, WrapErrorf(err, "failed to read blob for %q in %q", treePath, rev)
	}

	reader, err := blob.Reader()
	if err != nil {
		return nil, WrapErrorf(err, "failed to open blob for %q in %q", treePath, rev)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, WrapErrorf(err, "failed to read blob for %q in %q", treePath, rev)
	}

	return data, nil
}

// RestorePath overwrites the working-tree file at treePath with the content
// that rev holds for the same path, creating parent directories as needed.
// The write is unconditional: staged or local modifications lose,
// last write wins.
func (r *Repo) RestorePath(ctx context.Context, rev, treePath string) error {
	entry, _, err := r.treeEntry(rev, treePath)
	if err != nil {
		return err
	}

	if !isRegular(entry.Mode) {
		return WrapErrorf(ErrNotRegularFile, "restore %q from %q", treePath, rev)
	}

	data, err := r.BlobBytes(ctx, rev, treePath)
	if err != nil {
		return err
	}

	return r.writeWorktreeFile(treePath, data, entry.Mode)
}

// RestoreTree recursively restores the directory at treePath from rev: every
// blob under that tree is written to the corresponding working-tree path. A
// treePath that resolves to a single blob is restored as a plain file, so
// callers need not know whether an override target is a file or a subtree.
func (r *Repo) RestoreTree(ctx context.Context, rev, treePath string) error {
	entry, tree, err := r.treeEntry(rev, treePath)
	if err != nil {
		return err
	}

	if isRegular(entry.Mode) {
		return r.RestorePath(ctx, rev, treePath)
	}
	if entry.Mode != filemode.Dir {
		return WrapErrorf(ErrNotRegularFile, "restore tree %q from %q", treePath, rev)
	}

	subtree, err := tree.Tree(treePath)
	if err != nil {
		return WrapErrorf(ErrPathMissing, "restore tree %q from %q", treePath, rev)
	}

	err = subtree.Files().ForEach(func(f *object.File) error {
		contents, readErr := f.Contents()
		if readErr != nil {
			return WrapErrorf(readErr, "failed to read %q under %q in %q", f.Name, treePath, rev)
		}
		return r.writeWorktreeFile(path.Join(treePath, f.Name), []byte(contents), f.Mode)
	})
	if err != nil {
		return err
	}

	return nil
}

// treeEntry resolves rev to its commit tree and looks up treePath in it.
func (r *Repo) treeEntry(rev, treePath string) (*object.TreeEntry, *object.Tree, error) {
	if rev == "" || treePath == "" {
		return nil, nil, WrapError(ErrInvalidRef, "revision and path cannot be empty")
	}

	hash, err := r.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return nil, nil, WrapErrorf(ErrResolveFailed, "resolve %q", rev)
	}

	commit, err := r.repo.CommitObject(*hash)
	if err != nil {
		return nil, nil, WrapErrorf(ErrResolveFailed, "commit for %q", rev)
	}

	tree, err := commit.Tree()
	if err != nil {
		return nil, nil, WrapErrorf(err, "failed to read tree of %q", rev)
	}

	entry, err := tree.FindEntry(treePath)
	if err != nil {
		return nil, nil, WrapErrorf(ErrPathMissing, "%q in %q", treePath, rev)
	}

	return entry, tree, nil
}

// writeWorktreeFile writes data to treePath in the worktree, creating parent
// directories and carrying over the executable bit.
func (r *Repo) writeWorktreeFile(treePath string, data []byte, mode filemode.FileMode) error {
	if dir := path.Dir(treePath); dir != "." {
		if err := r.fs.MkdirAll(dir, 0o755); err != nil {
			return WrapErrorf(err, "failed to create directories for %q", treePath)
		}
	}

	perm := os.FileMode(0o644)
	if mode == filemode.Executable {
		perm = 0o755
	}

	if err := util.WriteFile(r.fs, treePath, data, perm); err != nil {
		return WrapErrorf(err, "failed to write %q", treePath)
	}

	return nil
}

// isRegular reports whether a tree entry mode is a regular (or executable)
// file blob. Symlinks, gitlinks, and directories are not restorable as
// single files.
func isRegular(mode filemode.FileMode) bool {
	return mode == filemode.Regular || mode == filemode.Executable || mode == filemode.Deprecated
}
