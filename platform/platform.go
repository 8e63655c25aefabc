// Package platform queries the hosting platform through the gh CLI. Its only
// jobs are discovering the parent repository's default branch and binding
// the default repository for subsequent gh invocations; both are read-only
// text-in/JSON-out calls.
package platform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/CodeEditorLand/DependencyLandMaintain/executor"
)

// ErrPlatformQuery is returned when a hosting-platform query fails: non-zero
// exit, malformed JSON, or a response missing the expected fields.
var ErrPlatformQuery = errors.New("platform query failed")

// RepoID identifies a repository on the hosting platform.
type RepoID struct {
	Owner string
	Name  string
}

// String returns the owner/name form used by gh.
func (id RepoID) String() string {
	return id.Owner + "/" + id.Name
}

// parentView mirrors `gh repo view --json parent` output.
type parentView struct {
	Parent *struct {
		Owner struct {
			Login string `json:"login"`
		} `json:"owner"`
		Name string `json:"name"`
	} `json:"parent"`
}

// branchView mirrors `gh repo view --json defaultBranchRef` output.
type branchView struct {
	DefaultBranchRef *struct {
		Name string `json:"name"`
	} `json:"defaultBranchRef"`
}

// Resolver discovers the parent repository's default branch name. One
// resolver is created per orchestration run and handed to every step that
// needs the parent tip; it memoizes the answer so all steps of a run see the
// same value, while a fresh run re-queries.
type Resolver struct {
	runner executor.Runner

	branch string
	cached bool
}

// NewResolver returns a Resolver that queries through runner.
func NewResolver(runner executor.Runner) *Resolver {
	return &Resolver{runner: runner}
}

// DefaultBranch returns the default branch name of the current repository's
// declared parent. Returns ErrPlatformQuery when the repository has no
// parent registered or either query cannot be parsed.
func (r *Resolver) DefaultBranch(ctx context.Context) (string, error) {
	if r.cached {
		return r.branch, nil
	}

	parent, err := r.parentRepo(ctx)
	if err != nil {
		return "", err
	}

	branch, err := r.defaultBranchOf(ctx, parent)
	if err != nil {
		return "", err
	}

	r.branch = branch
	r.cached = true
	return branch, nil
}

// parentRepo queries the current repository's declared parent identity.
func (r *Resolver) parentRepo(ctx context.Context) (RepoID, error) {
	result, err := r.runner.Run(ctx, "gh", []string{"repo", "view", "--json", "parent"})
	if err != nil {
		return RepoID{}, WrapQueryError(err, "view repository parent")
	}

	var view parentView
	if err := json.Unmarshal([]byte(result.Stdout), &view); err != nil {
		return RepoID{}, WrapQueryError(err, "parse repository parent")
	}

	if view.Parent == nil || view.Parent.Owner.Login == "" || view.Parent.Name == "" {
		return RepoID{}, WrapQueryError(nil, "repository has no parent registered")
	}

	return RepoID{Owner: view.Parent.Owner.Login, Name: view.Parent.Name}, nil
}

// defaultBranchOf queries the default branch name of the given repository.
func (r *Resolver) defaultBranchOf(ctx context.Context, id RepoID) (string, error) {
	result, err := r.runner.Run(ctx, "gh", []string{
		"repo", "view", id.String(), "--json", "defaultBranchRef",
	})
	if err != nil {
		return "", WrapQueryError(err, fmt.Sprintf("view default branch of %s", id))
	}

	var view branchView
	if err := json.Unmarshal([]byte(result.Stdout), &view); err != nil {
		return "", WrapQueryError(err, fmt.Sprintf("parse default branch of %s", id))
	}

	if view.DefaultBranchRef == nil || view.DefaultBranchRef.Name == "" {
		return "", WrapQueryError(nil, fmt.Sprintf("%s has no default branch", id))
	}

	return view.DefaultBranchRef.Name, nil
}

// SetDefaultRepo binds the hosting platform's default repository for this
// working directory to the given URL.
func SetDefaultRepo(ctx context.Context, runner executor.Runner, url string) error {
	if url == "" {
		return WrapQueryError(nil, "default repository url cannot be empty")
	}

	if _, err := runner.Run(ctx, "gh", []string{"repo", "set-default", url}); err != nil {
		return WrapQueryError(err, fmt.Sprintf("set default repository to %s", url))
	}

	return nil
}

// WrapQueryError wraps a failure (or, for nil, a bare condition) as an
// ErrPlatformQuery while preserving errors.Is checks.
func WrapQueryError(err error, msg string) error {
	if err == nil {
		return fmt.Errorf("%s: %w", msg, ErrPlatformQuery)
	}
	return fmt.Errorf("%s: %v: %w", msg, err, ErrPlatformQuery)
}
