package platform

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CodeEditorLand/DependencyLandMaintain/executor"
)

// scriptedRunner replays canned gh results keyed on the joined argument
// list and records every invocation.
type scriptedRunner struct {
	responses map[string]*executor.Result
	errs      map[string]error
	calls     []string
}

func (s *scriptedRunner) Run(
	_ context.Context,
	program string,
	args []string,
	_ ...executor.Option,
) (*executor.Result, error) {
	key := program + " " + strings.Join(args, " ")
	s.calls = append(s.calls, key)

	if err, ok := s.errs[key]; ok {
		return &executor.Result{ExitCode: 1}, err
	}
	if result, ok := s.responses[key]; ok {
		return result, nil
	}

	return &executor.Result{ExitCode: 1}, errors.New("unexpected command: " + key)
}

const viewParentCmd = "gh repo view --json parent"

func parentResponse(owner, name string) *executor.Result {
	return &executor.Result{
		Stdout: `{"parent":{"owner":{"login":"` + owner + `"},"name":"` + name + `"}}`,
	}
}

func branchResponse(name string) *executor.Result {
	return &executor.Result{Stdout: `{"defaultBranchRef":{"name":"` + name + `"}}`}
}

func TestResolverDefaultBranch(t *testing.T) {
	tests := []struct {
		name     string
		runner   *scriptedRunner
		want     string
		wantErr  bool
		validate func(t *testing.T, runner *scriptedRunner)
	}{
		{
			name: "resolves through the declared parent",
			runner: &scriptedRunner{
				responses: map[string]*executor.Result{
					viewParentCmd: parentResponse("upstream-org", "upstream-repo"),
					"gh repo view upstream-org/upstream-repo --json defaultBranchRef": branchResponse("main"),
				},
			},
			want: "main",
			validate: func(t *testing.T, runner *scriptedRunner) {
				assert.Equal(t, []string{
					viewParentCmd,
					"gh repo view upstream-org/upstream-repo --json defaultBranchRef",
				}, runner.calls)
			},
		},
		{
			name: "no parent registered",
			runner: &scriptedRunner{
				responses: map[string]*executor.Result{
					viewParentCmd: {Stdout: `{"parent":null}`},
				},
			},
			wantErr: true,
		},
		{
			name: "malformed parent payload",
			runner: &scriptedRunner{
				responses: map[string]*executor.Result{
					viewParentCmd: {Stdout: `not json`},
				},
			},
			wantErr: true,
		},
		{
			name: "query failure",
			runner: &scriptedRunner{
				errs: map[string]error{
					viewParentCmd: errors.New("gh: not authenticated"),
				},
			},
			wantErr: true,
		},
		{
			name: "missing default branch ref",
			runner: &scriptedRunner{
				responses: map[string]*executor.Result{
					viewParentCmd: parentResponse("upstream-org", "upstream-repo"),
					"gh repo view upstream-org/upstream-repo --json defaultBranchRef": {
						Stdout: `{"defaultBranchRef":null}`,
					},
				},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver := NewResolver(tt.runner)
			branch, err := resolver.DefaultBranch(context.Background())

			if tt.wantErr {
				assert.ErrorIs(t, err, ErrPlatformQuery)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, branch)
			if tt.validate != nil {
				tt.validate(t, tt.runner)
			}
		})
	}
}

func TestResolverMemoizes(t *testing.T) {
	runner := &scriptedRunner{
		responses: map[string]*executor.Result{
			viewParentCmd: parentResponse("upstream-org", "upstream-repo"),
			"gh repo view upstream-org/upstream-repo --json defaultBranchRef": branchResponse("develop"),
		},
	}

	resolver := NewResolver(runner)

	first, err := resolver.DefaultBranch(context.Background())
	require.NoError(t, err)

	second, err := resolver.DefaultBranch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "develop", first)
	assert.Equal(t, first, second)
	assert.Len(t, runner.calls, 2, "memoized answer should not re-query")
}

func TestResolverFailureIsNotCached(t *testing.T) {
	runner := &scriptedRunner{
		errs: map[string]error{
			viewParentCmd: errors.New("transient network error"),
		},
	}

	resolver := NewResolver(runner)

	_, err := resolver.DefaultBranch(context.Background())
	require.Error(t, err)

	_, err = resolver.DefaultBranch(context.Background())
	require.Error(t, err)
	assert.Len(t, runner.calls, 2, "failures should be retried on the next call")
}

func TestSetDefaultRepo(t *testing.T) {
	t.Run("binds the default repository", func(t *testing.T) {
		runner := &scriptedRunner{
			responses: map[string]*executor.Result{
				"gh repo set-default https://github.com/fork-org/fork-repo": {},
			},
		}

		err := SetDefaultRepo(context.Background(), runner, "https://github.com/fork-org/fork-repo")
		require.NoError(t, err)
		assert.Equal(t, []string{"gh repo set-default https://github.com/fork-org/fork-repo"}, runner.calls)
	})

	t.Run("empty url", func(t *testing.T) {
		err := SetDefaultRepo(context.Background(), &scriptedRunner{}, "")
		assert.ErrorIs(t, err, ErrPlatformQuery)
	})

	t.Run("command failure", func(t *testing.T) {
		runner := &scriptedRunner{
			errs: map[string]error{
				"gh repo set-default https://github.com/fork-org/fork-repo": errors.New("exit status 1"),
			},
		}

		err := SetDefaultRepo(context.Background(), runner, "https://github.com/fork-org/fork-repo")
		assert.ErrorIs(t, err, ErrPlatformQuery)
	})
}

func TestRepoIDString(t *testing.T) {
	assert.Equal(t, "owner/name", RepoID{Owner: "owner", Name: "name"}.String())
}
