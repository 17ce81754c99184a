// Package config provides configuration management for cat.
// Configuration is loaded from (highest to lowest priority):
// 1. Command-line flags
// 2. Environment variables (CAT_*)
// 3. Project config (.claude/cat/config.yaml in the main worktree)
// 4. Home config (~/.cat/config.yaml)
// 5. Defaults
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all cat configuration.
type Config struct {
	// Output controls the default output format (table, json, yaml).
	Output string `yaml:"output" json:"output"`

	// Verbose enables debug logging on stderr.
	Verbose bool `yaml:"verbose" json:"verbose"`

	Locks  LocksConfig  `yaml:"locks" json:"locks"`
	Commit CommitConfig `yaml:"commit" json:"commit"`
	Guard  GuardConfig  `yaml:"guard" json:"guard"`
	Merge  MergeConfig  `yaml:"merge" json:"merge"`
}

// LocksConfig holds lock file settings.
type LocksConfig struct {
	// Dir is the locks directory, relative to the project root.
	// Default: .claude/cat/locks
	Dir string `yaml:"dir" json:"dir"`

	// TTL is the age after which a lock is stale, as a Go duration.
	// Default: 4h
	TTL string `yaml:"ttl" json:"ttl"`
}

// CommitConfig holds commit guard settings.
type CommitConfig struct {
	// Prefixes mark commits that must be made inside the issue worktree.
	// Default: [bugfix:, feature:]
	Prefixes []string `yaml:"prefixes" json:"prefixes"`
}

// GuardConfig holds the tool names quoted in guard messages.
type GuardConfig struct {
	// ForceReleaseCommand releases a lock on behalf of an automated caller.
	// Default: issue-lock.sh force-release
	ForceReleaseCommand string `yaml:"force_release_command" json:"force_release_command"`

	// CleanupCommand is the user-facing cleanup command.
	// Default: /cat:cleanup
	CleanupCommand string `yaml:"cleanup_command" json:"cleanup_command"`
}

// MergeConfig holds merge settings.
type MergeConfig struct {
	// GitTimeout bounds each git invocation, as a Go duration.
	// Default: 2m
	GitTimeout string `yaml:"git_timeout" json:"git_timeout"`

	// DeleteBranch removes the issue branch after a successful merge.
	DeleteBranch bool `yaml:"delete_branch" json:"delete_branch"`
}

// Default config values (used in resolution and validation).
const (
	defaultOutput              = "table"
	defaultLocksDir            = ".claude/cat/locks"
	defaultLockTTL             = "4h"
	defaultForceReleaseCommand = "issue-lock.sh force-release"
	defaultCleanupCommand      = "/cat:cleanup"
	defaultGitTimeout          = "2m"
)

var defaultCommitPrefixes = []string{"bugfix:", "feature:"}

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid configuration")

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Output:  defaultOutput,
		Verbose: false,
		Locks: LocksConfig{
			Dir: defaultLocksDir,
			TTL: defaultLockTTL,
		},
		Commit: CommitConfig{
			Prefixes: append([]string(nil), defaultCommitPrefixes...),
		},
		Guard: GuardConfig{
			ForceReleaseCommand: defaultForceReleaseCommand,
			CleanupCommand:      defaultCleanupCommand,
		},
		Merge: MergeConfig{
			GitTimeout: defaultGitTimeout,
		},
	}
}

// Load loads configuration with proper precedence for the project rooted at
// projectDir. Priority: flags > env > project > home > defaults
func Load(projectDir string, flagOverrides *Config) (*Config, error) {
	cfg := Default()

	homeConfig, err := loadFromPath(homeConfigPath())
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("home config: %w", err)
	}
	if homeConfig != nil {
		cfg = merge(cfg, homeConfig)
	}

	projectConfig, err := loadFromPath(projectConfigPath(projectDir))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("project config: %w", err)
	}
	if projectConfig != nil {
		cfg = merge(cfg, projectConfig)
	}

	cfg = applyEnv(cfg)

	if flagOverrides != nil {
		cfg = merge(cfg, flagOverrides)
	}

	return cfg, cfg.Validate()
}

// Validate checks enumerations and durations.
func (c *Config) Validate() error {
	switch c.Output {
	case "table", "json", "yaml":
	default:
		return fmt.Errorf("%w: output %q (want table, json or yaml)", ErrInvalidConfig, c.Output)
	}
	if _, err := c.LockTTL(); err != nil {
		return err
	}
	if _, err := c.GitTimeout(); err != nil {
		return err
	}
	return nil
}

// LockTTL parses Locks.TTL.
func (c *Config) LockTTL() (time.Duration, error) {
	return parsePositiveDuration("locks.ttl", c.Locks.TTL)
}

// GitTimeout parses Merge.GitTimeout.
func (c *Config) GitTimeout() (time.Duration, error) {
	return parsePositiveDuration("merge.git_timeout", c.Merge.GitTimeout)
}

func parsePositiveDuration(key, value string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q: %v", ErrInvalidConfig, key, value, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w: %s must be positive, got %s", ErrInvalidConfig, key, value)
	}
	return d, nil
}

// LocksDir returns the absolute locks directory for projectDir.
func (c *Config) LocksDir(projectDir string) string {
	if filepath.IsAbs(c.Locks.Dir) {
		return c.Locks.Dir
	}
	return filepath.Join(projectDir, filepath.FromSlash(c.Locks.Dir))
}

// EnvVars lists the environment variables read by Load, in precedence
// documentation order.
var EnvVars = []string{
	"CAT_CONFIG",
	"CAT_OUTPUT",
	"CAT_VERBOSE",
	"CAT_LOCKS_DIR",
	"CAT_LOCK_TTL",
	"CAT_COMMIT_PREFIXES",
	"CAT_FORCE_RELEASE_COMMAND",
	"CAT_CLEANUP_COMMAND",
	"CAT_MERGE_GIT_TIMEOUT",
	"CAT_MERGE_DELETE_BRANCH",
}

// Files returns the home and project config paths Load reads for projectDir.
func Files(projectDir string) (home, project string) {
	return homeConfigPath(), projectConfigPath(projectDir)
}

// homeConfigPath returns the home config path.
func homeConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".cat", "config.yaml")
}

// projectConfigPath returns the project config path.
func projectConfigPath(projectDir string) string {
	if override := strings.TrimSpace(os.Getenv("CAT_CONFIG")); override != "" {
		return override
	}
	if projectDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return ""
		}
		projectDir = cwd
	}
	return filepath.Join(projectDir, ".claude", "cat", "config.yaml")
}

// loadFromPath loads config from a YAML file.
func loadFromPath(path string) (*Config, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return &cfg, nil
}

// applyEnv applies environment variable overrides.
func applyEnv(cfg *Config) *Config {
	if v := os.Getenv("CAT_OUTPUT"); v != "" {
		cfg.Output = v
	}
	if v, ok := getEnvBool("CAT_VERBOSE"); ok && v {
		cfg.Verbose = true
	}
	if v := os.Getenv("CAT_LOCKS_DIR"); v != "" {
		cfg.Locks.Dir = v
	}
	if v := os.Getenv("CAT_LOCK_TTL"); v != "" {
		cfg.Locks.TTL = v
	}
	if v := os.Getenv("CAT_COMMIT_PREFIXES"); v != "" {
		cfg.Commit.Prefixes = splitList(v)
	}
	if v := os.Getenv("CAT_FORCE_RELEASE_COMMAND"); v != "" {
		cfg.Guard.ForceReleaseCommand = v
	}
	if v := os.Getenv("CAT_CLEANUP_COMMAND"); v != "" {
		cfg.Guard.CleanupCommand = v
	}
	if v := os.Getenv("CAT_MERGE_GIT_TIMEOUT"); v != "" {
		cfg.Merge.GitTimeout = v
	}
	if v, ok := getEnvBool("CAT_MERGE_DELETE_BRANCH"); ok && v {
		cfg.Merge.DeleteBranch = true
	}
	return cfg
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// mergeStr overwrites dst with src when src is non-empty.
func mergeStr(dst *string, src string) {
	if src != "" {
		*dst = src
	}
}

// merge merges src into dst, with src values taking precedence.
// Booleans can only be switched on by a higher layer.
func merge(dst, src *Config) *Config {
	mergeStr(&dst.Output, src.Output)
	if src.Verbose {
		dst.Verbose = true
	}

	mergeStr(&dst.Locks.Dir, src.Locks.Dir)
	mergeStr(&dst.Locks.TTL, src.Locks.TTL)
	if len(src.Commit.Prefixes) > 0 {
		dst.Commit.Prefixes = append([]string(nil), src.Commit.Prefixes...)
	}
	mergeStr(&dst.Guard.ForceReleaseCommand, src.Guard.ForceReleaseCommand)
	mergeStr(&dst.Guard.CleanupCommand, src.Guard.CleanupCommand)
	mergeStr(&dst.Merge.GitTimeout, src.Merge.GitTimeout)
	if src.Merge.DeleteBranch {
		dst.Merge.DeleteBranch = true
	}

	return dst
}

// Source represents where a config value came from.
type Source string

const (
	SourceDefault Source = "default"
	SourceHome    Source = "~/.cat/config.yaml"
	SourceProject Source = ".claude/cat/config.yaml"
	SourceEnv     Source = "environment"
	SourceFlag    Source = "flag"
)

// getEnvString returns the value and whether the env var was set.
func getEnvString(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}

// getEnvBool returns the boolean value and whether it was truthy.
func getEnvBool(key string) (bool, bool) {
	v := os.Getenv(key)
	if v == "true" || v == "1" {
		return true, true
	}
	return false, false
}

// resolveStringField resolves a string through the precedence chain.
func resolveStringField(home, project, env, flag, def string) resolved {
	result := resolved{Value: def, Source: SourceDefault}
	if home != "" {
		result = resolved{Value: home, Source: SourceHome}
	}
	if project != "" {
		result = resolved{Value: project, Source: SourceProject}
	}
	if env != "" {
		result = resolved{Value: env, Source: SourceEnv}
	}
	if flag != "" {
		result = resolved{Value: flag, Source: SourceFlag}
	}
	return result
}

// resolveBoolField resolves a boolean with OR semantics through the chain.
func resolveBoolField(home, project, env, flag bool) resolved {
	result := resolved{Value: false, Source: SourceDefault}
	if home {
		result = resolved{Value: true, Source: SourceHome}
	}
	if project {
		result = resolved{Value: true, Source: SourceProject}
	}
	if env {
		result = resolved{Value: true, Source: SourceEnv}
	}
	if flag {
		result = resolved{Value: true, Source: SourceFlag}
	}
	return result
}

// ResolvedConfig shows config values with their sources.
type ResolvedConfig struct {
	Output              resolved `json:"output" yaml:"output"`
	Verbose             resolved `json:"verbose" yaml:"verbose"`
	LocksDir            resolved `json:"locks_dir" yaml:"locks_dir"`
	LockTTL             resolved `json:"lock_ttl" yaml:"lock_ttl"`
	CommitPrefixes      resolved `json:"commit_prefixes" yaml:"commit_prefixes"`
	ForceReleaseCommand resolved `json:"force_release_command" yaml:"force_release_command"`
	CleanupCommand      resolved `json:"cleanup_command" yaml:"cleanup_command"`
	MergeGitTimeout     resolved `json:"merge_git_timeout" yaml:"merge_git_timeout"`
	MergeDeleteBranch   resolved `json:"merge_delete_branch" yaml:"merge_delete_branch"`
}

type resolved struct {
	Value  interface{} `json:"value" yaml:"value"`
	Source Source      `json:"source" yaml:"source"`
}

// Resolve returns configuration with source tracking.
// Uses precedence chain: flags > env > project > home > defaults.
func Resolve(projectDir, flagOutput string, flagVerbose bool) *ResolvedConfig {
	home, _ := loadFromPath(homeConfigPath())
	if home == nil {
		home = &Config{}
	}
	project, _ := loadFromPath(projectConfigPath(projectDir))
	if project == nil {
		project = &Config{}
	}

	envOutput, _ := getEnvString("CAT_OUTPUT")
	envVerbose, _ := getEnvBool("CAT_VERBOSE")
	envLocksDir, _ := getEnvString("CAT_LOCKS_DIR")
	envLockTTL, _ := getEnvString("CAT_LOCK_TTL")
	envPrefixes, _ := getEnvString("CAT_COMMIT_PREFIXES")
	envForceRelease, _ := getEnvString("CAT_FORCE_RELEASE_COMMAND")
	envCleanup, _ := getEnvString("CAT_CLEANUP_COMMAND")
	envGitTimeout, _ := getEnvString("CAT_MERGE_GIT_TIMEOUT")
	envDeleteBranch, _ := getEnvBool("CAT_MERGE_DELETE_BRANCH")

	prefixes := resolveStringField(
		strings.Join(home.Commit.Prefixes, ","),
		strings.Join(project.Commit.Prefixes, ","),
		strings.Join(splitList(envPrefixes), ","),
		"",
		strings.Join(defaultCommitPrefixes, ","),
	)
	prefixes.Value = splitList(prefixes.Value.(string))

	return &ResolvedConfig{
		Output:              resolveStringField(home.Output, project.Output, envOutput, flagOutput, defaultOutput),
		Verbose:             resolveBoolField(home.Verbose, project.Verbose, envVerbose, flagVerbose),
		LocksDir:            resolveStringField(home.Locks.Dir, project.Locks.Dir, envLocksDir, "", defaultLocksDir),
		LockTTL:             resolveStringField(home.Locks.TTL, project.Locks.TTL, envLockTTL, "", defaultLockTTL),
		CommitPrefixes:      prefixes,
		ForceReleaseCommand: resolveStringField(home.Guard.ForceReleaseCommand, project.Guard.ForceReleaseCommand, envForceRelease, "", defaultForceReleaseCommand),
		CleanupCommand:      resolveStringField(home.Guard.CleanupCommand, project.Guard.CleanupCommand, envCleanup, "", defaultCleanupCommand),
		MergeGitTimeout:     resolveStringField(home.Merge.GitTimeout, project.Merge.GitTimeout, envGitTimeout, "", defaultGitTimeout),
		MergeDeleteBranch:   resolveBoolField(home.Merge.DeleteBranch, project.Merge.DeleteBranch, envDeleteBranch, false),
	}
}
