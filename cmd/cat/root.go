package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/cowwoc/claude-code-cat-sub001/internal/config"
	"github.com/cowwoc/claude-code-cat-sub001/internal/formatter"
	"github.com/cowwoc/claude-code-cat-sub001/internal/layout"
	"github.com/cowwoc/claude-code-cat-sub001/internal/lock"
	"github.com/cowwoc/claude-code-cat-sub001/internal/merge"
	"github.com/cowwoc/claude-code-cat-sub001/internal/safety"
)

// Exit codes. A blocked guard check exits with exitBlocked so hook runners
// surface stderr to the agent.
const (
	exitOK      = 0
	exitError   = 1
	exitBlocked = 2
)

// errBlocked is returned by guard commands after the block message has been
// written.
var errBlocked = errors.New("blocked")

// app carries the streams, global flags and lazily loaded configuration
// shared by every command.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	// Global flags
	output  string
	verbose bool
	project string

	projectDir string
	cfg        *config.Config
	logger     *slog.Logger
	clock      lock.Clock
}

func newApp(stdin io.Reader, stdout, stderr io.Writer) *app {
	return &app{stdin: stdin, stdout: stdout, stderr: stderr, clock: lock.SystemClock}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	return newApp(stdin, stdout, stderr).execute(ctx, args)
}

// execute runs one command line and maps its outcome to an exit code.
func (a *app) execute(ctx context.Context, args []string) int {
	root := newRootCommand(a)
	root.SetArgs(args)
	root.SetIn(a.stdin)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	err := root.ExecuteContext(ctx)
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errBlocked):
		return exitBlocked
	default:
		fmt.Fprintln(a.stderr, "Error:", err) //nolint:errcheck
		return exitError
	}
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "cat",
		Short: "Worktree safety guards and issue merging",
		Long: `cat keeps concurrent agent sessions from destroying each other's work.

Guards (run as pre-tool hooks):
  guard bash    Block shell commands that would delete protected directories
  guard write   Block file writes outside the session's issue worktree
  guard commit  Block issue commits made outside the session's worktree

Issues:
  merge         Rebase an issue branch onto its base and fast-forward the base
  locks         Inspect and release issue locks

Exit codes: 0 allowed or success, 1 error, 2 blocked.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&a.output, "output", "o", "", "Output format (table, json, yaml)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging on stderr")
	root.PersistentFlags().StringVar(&a.project, "project", "", "Main worktree of the project (default: detected from the working directory)")

	root.AddCommand(
		newGuardCommand(a),
		newMergeCommand(a),
		newLocksCommand(a),
		newConfigCommand(a),
		newVersionCommand(a),
		newCompletionCommand(a),
	)
	return root
}

// setup resolves the project from start and loads its configuration. It is
// idempotent.
func (a *app) setup(start string) error {
	if a.cfg != nil {
		return nil
	}
	a.projectDir = a.resolveProject(start)

	cfg, err := config.Load(a.projectDir, &config.Config{Output: a.output, Verbose: a.verbose})
	if err != nil {
		return err
	}
	a.cfg = cfg

	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: level}))
	a.logger.Debug("configuration loaded", "project", a.projectDir, "locks", cfg.LocksDir(a.projectDir))
	return nil
}

func (a *app) resolveProject(start string) string {
	if a.project != "" {
		return layout.RealPath(a.project)
	}
	if start == "" {
		start, _ = os.Getwd()
	}
	if root, err := layout.FindMainRoot(start); err == nil {
		return root
	}
	return layout.RealPath(start)
}

func (a *app) format() string {
	if a.cfg == nil || a.cfg.Output == "" {
		return formatter.FormatTable
	}
	return a.cfg.Output
}

func (a *app) store() *lock.FileStore {
	return lock.NewFileStore(a.projectDir,
		lock.WithDir(a.cfg.LocksDir(a.projectDir)),
		lock.WithLogger(a.logger),
	)
}

func (a *app) lockTTL() time.Duration {
	// Validated by config.Load.
	ttl, _ := a.cfg.LockTTL() //nolint:errcheck
	return ttl
}

func (a *app) guard() *safety.Guard {
	return safety.New(a.projectDir, a.store(),
		safety.WithClock(a.clock),
		safety.WithTTL(a.lockTTL()),
		safety.WithCommitPrefixes(a.cfg.Commit.Prefixes),
		safety.WithToolNames(a.cfg.Guard.ForceReleaseCommand, a.cfg.Guard.CleanupCommand),
		safety.WithLogger(a.logger),
	)
}

func (a *app) orchestrator() *merge.Orchestrator {
	timeout, _ := a.cfg.GitTimeout() //nolint:errcheck
	return merge.New(a.projectDir, a.store(),
		merge.WithGitTimeout(timeout),
		merge.WithClock(a.clock),
		merge.WithTTL(a.lockTTL()),
		merge.WithLogger(a.logger),
	)
}
