package merge

import "errors"

// Sentinel errors for the merge package. Callers match with errors.Is; git
// failures wrap these with the git output attached.
var (
	// ErrLockHeldByOtherSession is returned when a fresh lock for the issue
	// belongs to a different session.
	ErrLockHeldByOtherSession = errors.New("issue is locked by another session")

	// ErrWorktreeNotFound is returned when the issue's worktree directory does not exist.
	ErrWorktreeNotFound = errors.New("issue worktree not found")

	// ErrWorktreeDirty is returned when the worktree has uncommitted changes.
	ErrWorktreeDirty = errors.New("worktree has uncommitted changes: commit or stash before merge")

	// ErrBaseBranchUnknown is returned when no base branch was given and the
	// worktree carries no cat-base marker.
	ErrBaseBranchUnknown = errors.New("base branch unknown: pass one explicitly or restore the cat-base marker")

	// ErrSameBranch is returned when the issue branch is the base branch.
	ErrSameBranch = errors.New("issue branch and base branch are the same")

	// ErrRebaseFailed is returned when rebasing the issue onto the base fails.
	// The rebase is aborted and the worktree left as it was.
	ErrRebaseFailed = errors.New("rebase onto base branch failed")

	// ErrNotFastForward is returned when the base cannot be fast-forwarded to
	// the issue branch. The merge never falls back to a merge commit.
	ErrNotFastForward = errors.New("base branch cannot be fast-forwarded to the issue branch")
)
