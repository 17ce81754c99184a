// Package gitx is the git plumbing shared by the merge orchestrator and the
// CLI. Mutations go through the git executable; read-only history questions
// are answered with go-git against the main repository.
package gitx

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// DefaultTimeout bounds a single git invocation.
const DefaultTimeout = 2 * time.Minute

// ErrTimeout is returned when a git invocation exceeds the runner's timeout.
var ErrTimeout = errors.New("git timed out")

// Runner executes git subcommands with a per-invocation timeout.
type Runner struct {
	Timeout time.Duration
	Logger  *slog.Logger
}

// NewRunner returns a runner. A non-positive timeout means DefaultTimeout.
func NewRunner(timeout time.Duration, logger *slog.Logger) Runner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return Runner{Timeout: timeout, Logger: logger}
}

// Run executes git in dir and returns its combined output. On failure the
// error carries git's output verbatim.
func (r Runner) Run(ctx context.Context, dir string, args ...string) (string, error) {
	return r.exec(ctx, dir, true, args...)
}

// Output executes git in dir and returns its trimmed standard output.
func (r Runner) Output(ctx context.Context, dir string, args ...string) (string, error) {
	out, err := r.exec(ctx, dir, false, args...)
	return strings.TrimSpace(out), err
}

func (r Runner) exec(ctx context.Context, dir string, combined bool, args ...string) (string, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	if combined {
		cmd.Stderr = &stdout
	} else {
		cmd.Stderr = &stderr
	}
	if r.Logger != nil {
		r.Logger.Debug("git", "dir", dir, "args", args)
	}
	err := cmd.Run()
	if err == nil {
		return stdout.String(), nil
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return stdout.String(), fmt.Errorf("%w: git %s after %s", ErrTimeout, subcommand(args), timeout)
	}
	output := stdout.String()
	if !combined {
		output = stderr.String()
	}
	return stdout.String(), fmt.Errorf("git %s: %w (output: %s)", subcommand(args), err, strings.TrimSpace(output))
}

func subcommand(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

// CurrentBranch returns the branch checked out in dir.
func (r Runner) CurrentBranch(ctx context.Context, dir string) (string, error) {
	branch, err := r.Output(ctx, dir, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", fmt.Errorf("get current branch: %w", err)
	}
	if branch == "HEAD" {
		return "", ErrDetachedHEAD
	}
	return branch, nil
}

// IsClean reports whether dir has no staged, unstaged or untracked changes.
func (r Runner) IsClean(ctx context.Context, dir string) (bool, error) {
	out, err := r.Output(ctx, dir, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return out == "", nil
}

// Worktree is one entry of "git worktree list".
type Worktree struct {
	Path   string
	Head   string
	Branch string
	Bare   bool
}

// Worktrees lists the worktrees of the repository containing dir.
func (r Runner) Worktrees(ctx context.Context, dir string) ([]Worktree, error) {
	out, err := r.Output(ctx, dir, "worktree", "list", "--porcelain")
	if err != nil {
		return nil, err
	}
	return ParseWorktreeList(out), nil
}

// ParseWorktreeList parses "git worktree list --porcelain" output.
func ParseWorktreeList(out string) []Worktree {
	var (
		list []Worktree
		cur  *Worktree
	)
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		line := sc.Text()
		key, value, _ := strings.Cut(line, " ")
		switch key {
		case "worktree":
			list = append(list, Worktree{Path: value})
			cur = &list[len(list)-1]
		case "HEAD":
			if cur != nil {
				cur.Head = value
			}
		case "branch":
			if cur != nil {
				cur.Branch = strings.TrimPrefix(value, "refs/heads/")
			}
		case "bare":
			if cur != nil {
				cur.Bare = true
			}
		}
	}
	return list
}

// CheckoutOf returns the worktree that has branch checked out.
func CheckoutOf(list []Worktree, branch string) (Worktree, bool) {
	for _, wt := range list {
		if wt.Branch == branch && !wt.Bare {
			return wt, true
		}
	}
	return Worktree{}, false
}
