// Package sync orchestrates the fork-synchronization workflow.
// This file contains the override sweeper: the recursive worktree walk that
// finds every occurrence of an override-managed filename and restores each
// from the parent branch tip.
package sync

import (
	"bytes"
	"context"
	"path"
	"sort"

	"github.com/go-git/go-billy/v5/util"

	"github.com/CodeEditorLand/DependencyLandMaintain/git"
)

// Sweeper restores every occurrence of an override-managed filename across
// the working tree from a historical ref. Directories named in exclude are
// pruned entirely at any depth; the sweep never descends into them.
type Sweeper struct {
	repo    *git.Repo
	exclude map[string]struct{}
}

// NewSweeper returns a Sweeper over the repository's worktree.
func NewSweeper(repo *git.Repo, exclude []string) *Sweeper {
	set := make(map[string]struct{}, len(exclude))
	for _, name := range exclude {
		set[name] = struct{}{}
	}
	return &Sweeper{repo: repo, exclude: set}
}

// RestoreAllMatching walks the working tree from the repository root and
// restores, from sourceRef, every visited file whose base name equals
// filename. Files whose content already matches the ref are skipped, so a
// second sweep against an unchanged tree performs no writes. The walk order
// is deterministic (sorted per directory). Returns the number of files
// actually rewritten.
func (s *Sweeper) RestoreAllMatching(ctx context.Context, sourceRef, filename string) (int, error) {
	matches, err := s.collect(".", filename)
	if err != nil {
		return 0, err
	}

	restored := 0
	for _, match := range matches {
		want, err := s.repo.BlobBytes(ctx, sourceRef, match)
		if err != nil {
			return restored, err
		}

		have, readErr := util.ReadFile(s.repo.FS(), match)
		if readErr == nil && bytes.Equal(have, want) {
			continue
		}

		if err := s.repo.RestorePath(ctx, sourceRef, match); err != nil {
			return restored, err
		}
		restored++
	}

	return restored, nil
}

// collect gathers, in sorted traversal order, every path under dir whose
// base name equals filename, pruning excluded directories.
func (s *Sweeper) collect(dir, filename string) ([]string, error) {
	entries, err := s.repo.FS().ReadDir(dir)
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var matches []string
	for _, entry := range entries {
		name := entry.Name()
		child := path.Join(dir, name)

		if entry.IsDir() {
			if _, pruned := s.exclude[name]; pruned {
				continue
			}
			sub, err := s.collect(child, filename)
			if err != nil {
				return nil, err
			}
			matches = append(matches, sub...)
			continue
		}

		if name == filename {
			matches = append(matches, child)
		}
	}

	return matches, nil
}
