// Package sync orchestrates the fork-synchronization workflow.
// This file contains the orchestrator itself: the ordered step list and its
// sequential execution.
package sync

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/CodeEditorLand/DependencyLandMaintain/executor"
	"github.com/CodeEditorLand/DependencyLandMaintain/git"
	"github.com/CodeEditorLand/DependencyLandMaintain/platform"
)

// Step is one named stage of the reconciliation pipeline. The pipeline is a
// data structure so it can be listed, tested, and dry-run-logged
// independently of execution.
type Step struct {
	// Name identifies the step in logs and error chains.
	Name string

	// Tolerable marks a step whose known failure modes (missing branch or
	// remote, nothing to do) are logged and skipped instead of aborting
	// the run. First runs hit these before the bookkeeping steps have ever
	// created their targets.
	Tolerable bool

	// Run executes the step.
	Run func(ctx context.Context) error
}

// Syncer sequences the full reconciliation pipeline against one repository.
// Execution is strictly sequential: every step depends on the worktree and
// index state left by the previous one, and the repository is assumed to be
// exclusively held by this process.
type Syncer struct {
	cfg      Config
	repo     *git.Repo
	resolver *platform.Resolver
	runner   executor.Runner
	sweeper  *Sweeper
	log      zerolog.Logger
}

// New returns a Syncer for the repository. The resolver is created once per
// run by the caller and shared across every step that needs the parent tip.
func New(cfg Config, repo *git.Repo, resolver *platform.Resolver, runner executor.Runner, log zerolog.Logger) *Syncer {
	return &Syncer{
		cfg:      cfg,
		repo:     repo,
		resolver: resolver,
		runner:   runner,
		sweeper:  NewSweeper(repo, cfg.ExcludedDirs),
		log:      log,
	}
}

// parentTip returns the remote-tracking ref of the parent's default branch.
// A configured fallback stands in when the platform query fails; without
// one the failure is fatal.
func (s *Syncer) parentTip(ctx context.Context) (string, error) {
	branch, err := s.resolver.DefaultBranch(ctx)
	if err != nil {
		if s.cfg.DefaultBranchFallback == "" {
			return "", err
		}
		s.log.Warn().Err(err).
			Str("fallback", s.cfg.DefaultBranchFallback).
			Msg("parent branch query failed, using configured fallback")
		branch = s.cfg.DefaultBranchFallback
	}
	return git.ParentRemoteName + "/" + branch, nil
}

// sourceCurrentRef is the remote-tracking ref of the source bookkeeping branch.
func sourceCurrentRef() string {
	return git.SourceRemoteName + "/" + CurrentBranch
}

// Steps returns the ordered pipeline. No step is executed.
func (s *Syncer) Steps() []Step {
	return []Step{
		{Name: "restore-overrides", Run: s.stepRestoreOverrides},
		{Name: "set-default-repo", Run: s.stepSetDefaultRepo},
		{Name: "stage-all", Run: s.stepStageAll},
		{Name: "bind-upstreams", Tolerable: true, Run: s.stepBindUpstreams},
		{Name: "clean", Run: s.stepClean},
		{Name: "fetch-remotes", Run: s.stepFetchRemotes},
		{Name: "unshallow-parent", Run: s.stepUnshallowParent},
		{Name: "merge-parent", Run: s.stepMergeParent},
		{Name: "pull-theirs", Run: s.stepPullTheirs},
		{Name: "push-source", Run: s.stepPushSource},
		{Name: "remote-bookkeeping", Run: s.stepRemoteBookkeeping},
		{Name: "reset-and-restore", Run: s.stepResetAndRestore},
		{Name: "add-submodule", Run: s.stepAddSubmodule},
		{Name: "branch-bookkeeping", Run: s.stepBranchBookkeeping},
	}
}

// Run executes the pipeline in order, aborting on the first fatal failure.
// There is no checkpointing: recovery from a partial run is re-running from
// the start, which every step must survive against state it already produced.
func (s *Syncer) Run(ctx context.Context) error {
	return s.execute(ctx, s.Steps())
}

func (s *Syncer) execute(ctx context.Context, steps []Step) error {
	for _, step := range steps {
		s.log.Info().Str("step", step.Name).Msg("running step")

		err := step.Run(ctx)
		if err == nil {
			continue
		}

		if step.Tolerable && tolerableFailure(err) {
			s.log.Warn().Str("step", step.Name).Err(err).Msg("step failed, continuing")
			continue
		}

		return fmt.Errorf("step %s: %w", step.Name, err)
	}

	return nil
}

// tolerableFailure reports whether an error is one of the conditions a
// Tolerable step is allowed to shrug off.
func tolerableFailure(err error) bool {
	return errors.Is(err, git.ErrBranchMissing) ||
		errors.Is(err, git.ErrRemoteMissing) ||
		errors.Is(err, git.ErrAlreadyUpToDate)
}

// stepRestoreOverrides sweep-restores the ignore files, then the manifest
// files, from the parent branch tip, so local edits to either are overwritten
// by the parent's canonical versions before anything is staged.
func (s *Syncer) stepRestoreOverrides(ctx context.Context) error {
	tip, err := s.parentTip(ctx)
	if err != nil {
		return err
	}

	for _, filename := range []string{s.cfg.IgnoreFile, s.cfg.ManifestFile} {
		restored, err := s.sweeper.RestoreAllMatching(ctx, tip, filename)
		if err != nil {
			return fmt.Errorf("sweep %q from %s: %w", filename, tip, err)
		}
		s.log.Info().Str("file", filename).Int("restored", restored).Msg("override sweep complete")
	}

	return nil
}

// stepSetDefaultRepo binds the platform default repository to the source
// remote's URL.
func (s *Syncer) stepSetDefaultRepo(ctx context.Context) error {
	url, err := s.repo.RemoteURL(git.SourceRemoteName)
	if err != nil {
		return err
	}
	return platform.SetDefaultRepo(ctx, s.runner, url)
}

// stepStageAll stages every working-tree change into the index.
func (s *Syncer) stepStageAll(ctx context.Context) error {
	return s.repo.AddAll(ctx)
}

// stepBindUpstreams binds the bookkeeping branches to their source
// counterparts. On a first run the local branches do not exist yet (they are
// created by branch bookkeeping at the end), so this step is tolerable; the
// force-push step re-binds them once they do.
func (s *Syncer) stepBindUpstreams(ctx context.Context) error {
	if err := s.repo.SetUpstream(CurrentBranch, git.SourceRemoteName, CurrentBranch); err != nil {
		return err
	}
	return s.repo.SetUpstream(PreviousBranch, git.SourceRemoteName, PreviousBranch)
}

// stepClean removes untracked and ignored files via the external clean.
func (s *Syncer) stepClean(ctx context.Context) error {
	return s.repo.Clean(ctx)
}

// stepFetchRemotes shallow-fetches the tracked branch from parent, then
// source, with tags suppressed. An up-to-date remote is not a failure.
func (s *Syncer) stepFetchRemotes(ctx context.Context) error {
	for _, remote := range []string{git.ParentRemoteName, git.SourceRemoteName} {
		err := s.repo.Fetch(ctx, remote, s.cfg.FetchDepth, true)
		if err != nil && !errors.Is(err, git.ErrAlreadyUpToDate) {
			return err
		}
	}
	return nil
}

// stepUnshallowParent converts the parent fetch into full history.
func (s *Syncer) stepUnshallowParent(ctx context.Context) error {
	return s.repo.FetchUnshallow(ctx, git.ParentRemoteName)
}

// stepMergeParent merges the parent branch tip into HEAD. Fork and parent
// histories share no common ancestor in the tracked range, so unrelated
// histories are allowed.
func (s *Syncer) stepMergeParent(ctx context.Context) error {
	tip, err := s.parentTip(ctx)
	if err != nil {
		return err
	}
	return s.repo.Merge(ctx, tip, true)
}

// stepPullTheirs pulls from the configured upstream with the "theirs"
// conflict policy. Overrides clobbered here are reapplied by
// reset-and-restore, so the final state does not depend on conflict
// outcomes.
func (s *Syncer) stepPullTheirs(ctx context.Context) error {
	return s.repo.PullTheirs(ctx)
}

// stepPushSource pushes HEAD to the source remote, then force-pushes the
// working branch and binds its upstream.
func (s *Syncer) stepPushSource(ctx context.Context) error {
	err := s.repo.PushHEAD(ctx, git.SourceRemoteName)
	if err != nil && !errors.Is(err, git.ErrAlreadyUpToDate) {
		return err
	}

	err = s.repo.PushSetUpstream(ctx, git.SourceRemoteName, s.cfg.Branch, true)
	if err != nil && !errors.Is(err, git.ErrAlreadyUpToDate) {
		return err
	}

	return nil
}

// stepRemoteBookkeeping ensures the parent and source remotes exist at their
// configured URLs and drops a stray origin remote, tolerating its absence.
func (s *Syncer) stepRemoteBookkeeping(ctx context.Context) error {
	if err := s.ensureRemote(git.ParentRemoteName, s.cfg.ParentURL); err != nil {
		return err
	}
	if err := s.ensureRemote(git.SourceRemoteName, s.cfg.SourceURL); err != nil {
		return err
	}

	err := s.repo.RemoveRemote("origin")
	if err != nil && !errors.Is(err, git.ErrRemoteMissing) {
		return err
	}
	if errors.Is(err, git.ErrRemoteMissing) {
		s.log.Debug().Msg("no origin remote to remove")
	}

	return nil
}

// ensureRemote adds a remote or, when the name is already taken, retargets it.
func (s *Syncer) ensureRemote(name, url string) error {
	err := s.repo.AddRemote(name, url)
	if errors.Is(err, git.ErrRemoteExists) {
		return s.repo.SetRemoteURL(name, url)
	}
	return err
}

// stepResetAndRestore rebuilds the worktree from the parent tip and then
// cherries the override files back in ascending order of authority: parent
// tip, then the source bookkeeping branch for the manifest, then HEAD for
// the manifest. The last write wins.
func (s *Syncer) stepResetAndRestore(ctx context.Context) error {
	tip, err := s.parentTip(ctx)
	if err != nil {
		return err
	}

	if err := s.repo.ResetHard(ctx, tip); err != nil {
		return err
	}
	if err := s.repo.Unstage(ctx, s.cfg.ManifestFile); err != nil {
		return err
	}

	if err := s.repo.RestorePath(ctx, tip, s.cfg.ManifestFile); err != nil {
		return err
	}
	if err := s.repo.RestoreTree(ctx, tip, s.cfg.SourceDir); err != nil {
		return err
	}
	if err := s.repo.RestorePath(ctx, tip, s.cfg.BuildConfigFile); err != nil {
		return err
	}

	if err := s.repo.RestorePath(ctx, sourceCurrentRef(), s.cfg.ManifestFile); err != nil {
		return err
	}

	return s.repo.RestorePath(ctx, "HEAD", s.cfg.ManifestFile)
}

// stepAddSubmodule registers the nested dependency repository, shallow.
func (s *Syncer) stepAddSubmodule(ctx context.Context) error {
	if s.cfg.SubmoduleURL == "" || s.cfg.SubmodulePath == "" {
		s.log.Debug().Msg("no submodule configured, skipping")
		return nil
	}
	return s.repo.AddSubmodule(ctx, s.cfg.SubmoduleURL, s.cfg.SubmodulePath, 1)
}

// stepBranchBookkeeping creates and switches the working and bookkeeping
// branches from the current HEAD, finishing on the previous-tracking branch.
// Branches that already exist from earlier runs are reused.
func (s *Syncer) stepBranchBookkeeping(ctx context.Context) error {
	for _, name := range []string{s.cfg.Branch, CurrentBranch, PreviousBranch} {
		if err := s.repo.CreateAndSwitchBranch(ctx, name); err != nil {
			return err
		}
	}

	if err := s.repo.SwitchBranch(ctx, CurrentBranch); err != nil {
		return err
	}
	return s.repo.SwitchBranch(ctx, PreviousBranch)
}
