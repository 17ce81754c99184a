// Package merge folds a finished issue branch into its base branch with a
// linear history and reclaims the issue's worktree and lock.
package merge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/cowwoc/claude-code-cat-sub001/internal/gitx"
	"github.com/cowwoc/claude-code-cat-sub001/internal/layout"
	"github.com/cowwoc/claude-code-cat-sub001/internal/lock"
)

// StatusSuccess is the Result status of a completed merge.
const StatusSuccess = "success"

// Request names the issue to merge.
type Request struct {
	IssueID   string
	SessionID string

	// BaseBranch overrides the worktree's cat-base marker.
	BaseBranch string

	// Worktree overrides the worktree recorded in the lock.
	Worktree string

	// DeleteBranch removes the issue branch after the merge.
	DeleteBranch bool
}

// Result is the payload reported after a successful merge.
type Result struct {
	Status       string `json:"status" yaml:"status"`
	IssueID      string `json:"issue_id" yaml:"issue_id"`
	Branch       string `json:"branch" yaml:"branch"`
	BaseBranch   string `json:"base_branch" yaml:"base_branch"`
	Worktree     string `json:"worktree" yaml:"worktree"`
	IssueCommits int    `json:"issue_commits" yaml:"issue_commits"`
	Divergence   int    `json:"divergence" yaml:"divergence"`
	Rebased      bool   `json:"rebased" yaml:"rebased"`
	Head         string `json:"head" yaml:"head"`

	WorktreeRemoved bool     `json:"worktree_removed" yaml:"worktree_removed"`
	LockRemoved     bool     `json:"lock_removed" yaml:"lock_removed"`
	BranchDeleted   bool     `json:"branch_deleted,omitempty" yaml:"branch_deleted,omitempty"`
	Warnings        []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// Orchestrator merges issues of one project.
type Orchestrator struct {
	root   string
	store  lock.Store
	git    gitx.Runner
	clock  lock.Clock
	ttl    time.Duration
	logger *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithGitTimeout bounds each git invocation.
func WithGitTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.git.Timeout = d }
}

// WithClock sets the clock used to judge lock staleness.
func WithClock(c lock.Clock) Option {
	return func(o *Orchestrator) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithTTL sets the lock staleness threshold.
func WithTTL(ttl time.Duration) Option {
	return func(o *Orchestrator) {
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}

// WithLogger sets the logger for merge steps.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
			o.git.Logger = logger
		}
	}
}

// New returns an orchestrator for the main worktree at root. A nil store
// reads the project's default locks directory.
func New(root string, store lock.Store, opts ...Option) *Orchestrator {
	if store == nil {
		store = lock.NewFileStore(root)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	o := &Orchestrator{
		root:   root,
		store:  store,
		git:    gitx.NewRunner(gitx.DefaultTimeout, logger),
		clock:  lock.SystemClock,
		ttl:    lock.DefaultTTL,
		logger: logger,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Merge rebases the issue branch onto its base when the base has moved,
// fast-forwards the base, then removes the worktree and the lock. Every step
// aborts on the first git failure; cleanup only runs after the base branch
// has been updated.
func (o *Orchestrator) Merge(ctx context.Context, req Request) (Result, error) {
	if err := lock.ValidateIssueID(req.IssueID); err != nil {
		return Result{}, err
	}
	if err := lock.ValidateSessionID(req.SessionID); err != nil {
		return Result{}, err
	}

	l, locked, err := o.store.Get(req.IssueID)
	if err != nil {
		return Result{}, err
	}
	if locked && !lock.IsOwnedBySession(l, req.SessionID) && !lock.IsStale(l, o.clock.Now(), o.ttl) {
		return Result{}, fmt.Errorf("%w: %s held by session %s", ErrLockHeldByOtherSession, req.IssueID, l.SessionID)
	}

	worktree := o.worktreeFor(req, l, locked)
	if !layout.IsDir(worktree) {
		return Result{}, fmt.Errorf("%w: %s", ErrWorktreeNotFound, worktree)
	}

	branch, err := o.git.CurrentBranch(ctx, worktree)
	if err != nil {
		return Result{}, err
	}
	base, err := resolveBase(req.BaseBranch, worktree)
	if err != nil {
		return Result{}, err
	}
	if branch == base {
		return Result{}, fmt.Errorf("%w: %s", ErrSameBranch, branch)
	}

	clean, err := o.git.IsClean(ctx, worktree)
	if err != nil {
		return Result{}, err
	}
	if !clean {
		return Result{}, fmt.Errorf("%w: %s", ErrWorktreeDirty, worktree)
	}

	res := Result{IssueID: req.IssueID, Branch: branch, BaseBranch: base, Worktree: worktree}
	o.logger.Info("merging issue", "issue", req.IssueID, "branch", branch, "base", base)

	if err := o.integrate(ctx, &res); err != nil {
		return Result{}, err
	}

	o.cleanup(ctx, req, &res)
	res.Status = StatusSuccess
	o.logger.Info("merge complete", "issue", req.IssueID, "head", res.Head, "rebased", res.Rebased)
	return res, nil
}

func (o *Orchestrator) worktreeFor(req Request, l lock.Lock, locked bool) string {
	switch {
	case req.Worktree != "":
		return layout.Resolve(o.root, req.Worktree)
	case locked && l.Worktree != "":
		return layout.RealPath(l.Worktree)
	default:
		return layout.WorktreePath(o.root, req.IssueID)
	}
}

func resolveBase(explicit, worktree string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	base, err := layout.ReadBaseBranch(worktree)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBaseBranchUnknown, err)
	}
	return base, nil
}

// integrate performs the divergence check, the rebase and the fast-forward.
func (o *Orchestrator) integrate(ctx context.Context, res *Result) error {
	repo, err := gitx.Open(o.root)
	if err != nil {
		return err
	}
	res.Divergence, err = repo.CountExclusive(res.BaseBranch, res.Branch)
	if err != nil {
		return err
	}

	if res.Divergence > 0 {
		mergeBase, err := repo.MergeBase(res.BaseBranch, res.Branch)
		if err != nil {
			return err
		}
		o.logger.Info("base moved, rebasing", "commits", res.Divergence, "merge_base", mergeBase.String())
		if _, err := o.git.Run(ctx, res.Worktree, "rebase", "--onto", res.BaseBranch, mergeBase.String(), res.Branch); err != nil {
			_, _ = o.git.Run(context.WithoutCancel(ctx), res.Worktree, "rebase", "--abort") //nolint:errcheck
			return fmt.Errorf("%w: %w", ErrRebaseFailed, err)
		}
		res.Rebased = true
		if repo, err = gitx.Open(o.root); err != nil {
			return err
		}
	}

	res.IssueCommits, err = repo.CountExclusive(res.Branch, res.BaseBranch)
	if err != nil {
		return err
	}
	if err := o.fastForward(ctx, repo, res); err != nil {
		return err
	}
	res.Head, err = o.git.Output(ctx, o.root, "rev-parse", "refs/heads/"+res.BaseBranch)
	return err
}

// fastForward advances the base branch to the issue branch. When the base is
// checked out somewhere, that checkout is updated with "merge --ff-only";
// otherwise the ref is moved with a compare-and-swap update-ref.
func (o *Orchestrator) fastForward(ctx context.Context, repo *gitx.Repo, res *Result) error {
	ok, err := repo.IsAncestor(res.BaseBranch, res.Branch)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s is not an ancestor of %s", ErrNotFastForward, res.BaseBranch, res.Branch)
	}

	worktrees, err := o.git.Worktrees(ctx, o.root)
	if err != nil {
		return err
	}
	if checkout, found := gitx.CheckoutOf(worktrees, res.BaseBranch); found {
		o.logger.Info("fast-forwarding checkout", "dir", checkout.Path, "base", res.BaseBranch)
		if _, err := o.git.Run(ctx, checkout.Path, "merge", "--ff-only", res.Branch); err != nil {
			return fmt.Errorf("%w: %w", ErrNotFastForward, err)
		}
		return nil
	}

	oldHash, err := repo.BranchHash(res.BaseBranch)
	if err != nil {
		return err
	}
	newHash, err := repo.BranchHash(res.Branch)
	if err != nil {
		return err
	}
	o.logger.Info("updating base ref", "base", res.BaseBranch, "from", oldHash.String(), "to", newHash.String())
	msg := fmt.Sprintf("cat merge %s: fast-forward", res.IssueID)
	if _, err := o.git.Run(ctx, o.root, "update-ref", "-m", msg, "refs/heads/"+res.BaseBranch, newHash.String(), oldHash.String()); err != nil {
		return fmt.Errorf("%w: %w", ErrNotFastForward, err)
	}
	return nil
}

// cleanup removes the worktree, the lock and optionally the branch. Each
// step is idempotent; failures are reported as warnings because the merge
// itself has already landed.
func (o *Orchestrator) cleanup(ctx context.Context, req Request, res *Result) {
	if _, err := o.git.Run(ctx, o.root, "worktree", "remove", "--force", res.Worktree); err != nil {
		o.logger.Debug("git worktree remove failed, deleting directory", "error", err)
		if rmErr := os.RemoveAll(res.Worktree); rmErr != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("remove worktree %s: %v", res.Worktree, rmErr))
		}
	}
	if _, err := o.git.Run(ctx, o.root, "worktree", "prune"); err != nil {
		res.Warnings = append(res.Warnings, err.Error())
	}
	_, statErr := os.Stat(res.Worktree)
	res.WorktreeRemoved = errors.Is(statErr, os.ErrNotExist)

	if err := o.store.Remove(req.IssueID); err != nil {
		res.Warnings = append(res.Warnings, err.Error())
	} else {
		res.LockRemoved = true
	}

	if req.DeleteBranch {
		if _, err := o.git.Run(ctx, o.root, "branch", "-d", res.Branch); err != nil {
			res.Warnings = append(res.Warnings, err.Error())
		} else {
			res.BranchDeleted = true
		}
	}
}
