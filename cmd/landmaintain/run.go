package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/CodeEditorLand/DependencyLandMaintain/executor"
	"github.com/CodeEditorLand/DependencyLandMaintain/git"
	"github.com/CodeEditorLand/DependencyLandMaintain/platform"
	"github.com/CodeEditorLand/DependencyLandMaintain/sync"
)

type runOptions struct {
	configPath      string
	repoPath        string
	parentURL       string
	sourceURL       string
	branch          string
	fallbackBranch  string
	ignoreFile      string
	manifestFile    string
	sourceDir       string
	buildConfigFile string
	submoduleURL    string
	submodulePath   string
	fetchDepth      int
	dryRun          bool
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full synchronization pipeline",
		Long: `Run the ordered synchronization pipeline: restore override files from
the parent, stage and clean, fetch and merge upstream history, push to the
source remote, rebuild the working tree from the parent tip, and update the
bookkeeping branches.`,
		Example: `  landmaintain run --parent https://github.com/upstream/repo --source https://github.com/fork/repo
  landmaintain run --config landmaintain.json --dry-run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.configPath, "config", "landmaintain.json", "Path to the configuration file")
	cmd.Flags().StringVar(&opts.repoPath, "repo", "", "Repository root (defaults to the configured repo_path)")
	cmd.Flags().StringVar(&opts.parentURL, "parent", "", "Parent remote URL")
	cmd.Flags().StringVar(&opts.sourceURL, "source", "", "Source remote URL")
	cmd.Flags().StringVar(&opts.branch, "branch", "", "Working branch pushed to the source remote")
	cmd.Flags().StringVar(&opts.fallbackBranch, "fallback-branch", "", "Parent default branch used when the platform query fails")
	cmd.Flags().StringVar(&opts.ignoreFile, "ignore-file", "", "Override-managed ignore filename")
	cmd.Flags().StringVar(&opts.manifestFile, "manifest", "", "Override-managed manifest filename")
	cmd.Flags().StringVar(&opts.sourceDir, "source-dir", "", "Source tree restored from the parent tip")
	cmd.Flags().StringVar(&opts.buildConfigFile, "build-config", "", "Build configuration file restored from the parent tip")
	cmd.Flags().StringVar(&opts.submoduleURL, "submodule-url", "", "Nested dependency repository URL")
	cmd.Flags().StringVar(&opts.submodulePath, "submodule-path", "", "Path the dependency submodule is registered at")
	cmd.Flags().IntVar(&opts.fetchDepth, "fetch-depth", 0, "Shallow fetch depth before unshallowing")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Print the ordered step list without executing")

	return cmd
}

func runSync(ctx context.Context, out io.Writer, opts *runOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg, err := sync.LoadConfig(opts.configPath)
	if err != nil {
		return err
	}

	if opts.repoPath != "" {
		cfg.RepoPath = opts.repoPath
	}
	if opts.parentURL != "" {
		cfg.ParentURL = opts.parentURL
	}
	if opts.sourceURL != "" {
		cfg.SourceURL = opts.sourceURL
	}
	if opts.branch != "" {
		cfg.Branch = opts.branch
	}
	if opts.fallbackBranch != "" {
		cfg.DefaultBranchFallback = opts.fallbackBranch
	}
	if opts.ignoreFile != "" {
		cfg.IgnoreFile = opts.ignoreFile
	}
	if opts.manifestFile != "" {
		cfg.ManifestFile = opts.manifestFile
	}
	if opts.sourceDir != "" {
		cfg.SourceDir = opts.sourceDir
	}
	if opts.buildConfigFile != "" {
		cfg.BuildConfigFile = opts.buildConfigFile
	}
	if opts.submoduleURL != "" {
		cfg.SubmoduleURL = opts.submoduleURL
	}
	if opts.submodulePath != "" {
		cfg.SubmodulePath = opts.submodulePath
	}
	if opts.fetchDepth > 0 {
		cfg.FetchDepth = opts.fetchDepth
	}
	cfg.MergeDefaults()

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	runner := executor.NewLocal(executor.WithWorkingDir(cfg.RepoPath))

	repo, err := git.Open(ctx, &git.Options{Path: cfg.RepoPath, Runner: runner})
	if err != nil {
		return fmt.Errorf("open repository at %q: %w", cfg.RepoPath, err)
	}

	resolver := platform.NewResolver(runner)
	syncer := sync.New(*cfg, repo, resolver, runner, logger)

	if opts.dryRun {
		for i, step := range syncer.Steps() {
			fmt.Fprintf(out, "%2d. %s\n", i+1, step.Name)
		}
		return nil
	}

	if err := syncer.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("synchronization failed")
		return err
	}

	logger.Info().Msg("synchronization complete")
	return nil
}
