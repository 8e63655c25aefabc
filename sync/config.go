// Package sync orchestrates the fork-synchronization workflow: the ordered
// pipeline of remote, branch, merge, and restore operations that reconciles
// the working tree, the parent remote's default branch, and the source
// remote's tracked branches into one consistent repository state.
package sync

import (
	"encoding/json"
	"fmt"
	"os"
)

// Bookkeeping branch names tracked on the source remote.
const (
	CurrentBranch  = "current"
	PreviousBranch = "previous"
)

// Config represents the configuration for one synchronization run.
type Config struct {
	// RepoPath is the on-disk repository root. Defaults to ".".
	RepoPath string `json:"repo_path,omitempty"`

	// ParentURL and SourceURL are the remote URLs the run (re)binds the
	// parent and source remotes to.
	ParentURL string `json:"parent_url"`
	SourceURL string `json:"source_url"`

	// Branch is the working branch force-pushed to the source remote.
	Branch string `json:"branch"`

	// DefaultBranchFallback, when set, stands in for the parent's default
	// branch if the platform query fails. Empty keeps query failures fatal.
	DefaultBranchFallback string `json:"default_branch_fallback,omitempty"`

	// Override-managed files restored from the parent's history.
	IgnoreFile      string `json:"ignore_file,omitempty"`
	ManifestFile    string `json:"manifest_file,omitempty"`
	SourceDir       string `json:"source_dir,omitempty"`
	BuildConfigFile string `json:"build_config_file,omitempty"`

	// SubmoduleURL/SubmodulePath register a nested dependency repository.
	// Both empty skips the submodule step.
	SubmoduleURL  string `json:"submodule_url,omitempty"`
	SubmodulePath string `json:"submodule_path,omitempty"`

	// FetchDepth is the shallow fetch depth used before unshallowing.
	FetchDepth int `json:"fetch_depth,omitempty"`

	// ExcludedDirs are directory names the override sweep never descends
	// into, at any depth.
	ExcludedDirs []string `json:"excluded_dirs,omitempty"`
}

// DefaultConfig provides default configuration values.
func DefaultConfig() *Config {
	return &Config{
		RepoPath:        ".",
		Branch:          "main",
		IgnoreFile:      ".gitignore",
		ManifestFile:    "package.json",
		SourceDir:       "src",
		BuildConfigFile: "tsconfig.json",
		FetchDepth:      1,
		ExcludedDirs:    []string{".git", "node_modules"},
	}
}

// LoadConfig loads configuration from a file. A missing file yields the
// defaults; any present file must parse.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.MergeDefaults()
	return cfg, nil
}

// SaveConfig saves configuration to a file.
func SaveConfig(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeDefaults fills unset fields from the defaults.
func (c *Config) MergeDefaults() {
	def := DefaultConfig()

	if c.RepoPath == "" {
		c.RepoPath = def.RepoPath
	}
	if c.Branch == "" {
		c.Branch = def.Branch
	}
	if c.IgnoreFile == "" {
		c.IgnoreFile = def.IgnoreFile
	}
	if c.ManifestFile == "" {
		c.ManifestFile = def.ManifestFile
	}
	if c.SourceDir == "" {
		c.SourceDir = def.SourceDir
	}
	if c.BuildConfigFile == "" {
		c.BuildConfigFile = def.BuildConfigFile
	}
	if c.FetchDepth == 0 {
		c.FetchDepth = def.FetchDepth
	}
	if len(c.ExcludedDirs) == 0 {
		c.ExcludedDirs = append([]string(nil), def.ExcludedDirs...)
	}
}

// Validate checks that the fields a run cannot proceed without are present.
func (c *Config) Validate() error {
	if c.ParentURL == "" {
		return fmt.Errorf("parent_url is required")
	}
	if c.SourceURL == "" {
		return fmt.Errorf("source_url is required")
	}
	if c.Branch == "" {
		return fmt.Errorf("branch is required")
	}
	return nil
}
