package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cowwoc/claude-code-cat-sub001/internal/config"
	"github.com/cowwoc/claude-code-cat-sub001/internal/formatter"
)

func newConfigCommand(a *app) *cobra.Command {
	var show bool
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long: `View cat configuration.

Configuration priority (highest to lowest):
  1. Command-line flags
  2. Environment variables (CAT_*)
  3. Project config (.claude/cat/config.yaml in the main worktree)
  4. Home config (~/.cat/config.yaml)
  5. Defaults

Environment variables:
  CAT_CONFIG                 - Explicit project config file path
  CAT_OUTPUT                 - Default output format (table, json, yaml)
  CAT_VERBOSE                - Enable debug logging (true/1)
  CAT_LOCKS_DIR              - Locks directory, relative to the project
  CAT_LOCK_TTL               - Age after which a lock is stale (default: 4h)
  CAT_COMMIT_PREFIXES        - Comma-separated issue commit prefixes
  CAT_FORCE_RELEASE_COMMAND  - Lock release command quoted in guard messages
  CAT_CLEANUP_COMMAND        - Cleanup command quoted in guard messages
  CAT_MERGE_GIT_TIMEOUT      - Timeout per git invocation during merge (default: 2m)
  CAT_MERGE_DELETE_BRANCH    - Delete issue branches after merging (true/1)

Examples:
  cat config --show           # Show resolved configuration
  cat config --show -o json   # Output as JSON`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !show {
				return cmd.Help()
			}
			wd, err := os.Getwd()
			if err != nil {
				return err
			}
			if err := a.setup(wd); err != nil {
				return err
			}
			return a.showConfig()
		},
	}
	cmd.Flags().BoolVar(&show, "show", false, "Show resolved configuration with sources")
	return cmd
}

//nolint:errcheck // terminal output
func (a *app) showConfig() error {
	resolved := config.Resolve(a.projectDir, a.output, a.verbose)
	if format := a.format(); format != formatter.FormatTable {
		return formatter.Encode(a.stdout, format, resolved)
	}

	w := a.stdout
	fmt.Fprintln(w, "cat Configuration")
	fmt.Fprintln(w, "=================")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Config files:")
	home, project := config.Files(a.projectDir)
	fmt.Fprintln(w, "  Home:    "+describeFile(home))
	fmt.Fprintln(w, "  Project: "+describeFile(project))

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Resolved values:")
	tbl := formatter.NewTable(w, "KEY", "VALUE", "SOURCE")
	for _, row := range []struct {
		key   string
		value any
		src   config.Source
	}{
		{"output", resolved.Output.Value, resolved.Output.Source},
		{"verbose", resolved.Verbose.Value, resolved.Verbose.Source},
		{"locks.dir", resolved.LocksDir.Value, resolved.LocksDir.Source},
		{"locks.ttl", resolved.LockTTL.Value, resolved.LockTTL.Source},
		{"commit.prefixes", resolved.CommitPrefixes.Value, resolved.CommitPrefixes.Source},
		{"guard.force_release_command", resolved.ForceReleaseCommand.Value, resolved.ForceReleaseCommand.Source},
		{"guard.cleanup_command", resolved.CleanupCommand.Value, resolved.CleanupCommand.Source},
		{"merge.git_timeout", resolved.MergeGitTimeout.Value, resolved.MergeGitTimeout.Source},
		{"merge.delete_branch", resolved.MergeDeleteBranch.Value, resolved.MergeDeleteBranch.Source},
	} {
		tbl.AddRow(row.key, fmt.Sprint(row.value), string(row.src))
	}
	if err := tbl.Render(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment variables (if set):")
	anySet := false
	for _, env := range config.EnvVars {
		if v := os.Getenv(env); v != "" {
			fmt.Fprintf(w, "  %s=%s\n", env, v)
			anySet = true
		}
	}
	if !anySet {
		fmt.Fprintln(w, "  (none set)")
	}
	return nil
}

func describeFile(path string) string {
	if path == "" {
		return "(unavailable)"
	}
	if _, err := os.Stat(path); err != nil {
		return path + " (not found)"
	}
	return path
}
