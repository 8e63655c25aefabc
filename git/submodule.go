// Package git provides a high-level wrapper over go-git.
// This file registers nested repositories as submodules.
package git

import (
	"context"
	"fmt"
	"strings"
)

// AddSubmodule registers the repository at url as a tracked submodule at
// path, cloned shallow at the given depth. A submodule already registered at
// that path is left as is. go-git has no submodule-add support, so this runs
// the git CLI.
func (r *Repo) AddSubmodule(ctx context.Context, url, path string, depth int) error {
	if url == "" || path == "" {
		return WrapError(ErrInvalidRef, "submodule url and path cannot be empty")
	}

	args := []string{"submodule", "add"}
	if depth > 0 {
		args = append(args, fmt.Sprintf("--depth=%d", depth))
	}
	args = append(args, url, path)

	result, err := r.runGit(ctx, args...)
	if err != nil {
		if result != nil && strings.Contains(result.Stderr, "already exists in the index") {
			return nil
		}
		return WrapErrorf(err, "failed to add submodule %q at %q", url, path)
	}

	return nil
}
