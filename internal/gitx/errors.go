package gitx

import "errors"

var (
	// ErrDetachedHEAD is returned when an operation needs a named branch but
	// the worktree has a detached HEAD.
	ErrDetachedHEAD = errors.New("detached HEAD: worktree requires a named branch")

	// ErrBranchNotFound is returned when a local branch does not exist.
	ErrBranchNotFound = errors.New("branch not found")

	// ErrUnrelatedHistories is returned when two branches share no ancestor.
	ErrUnrelatedHistories = errors.New("branches have no common ancestor")
)
