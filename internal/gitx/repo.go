package gitx

import (
	"errors"
	"fmt"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Repo answers read-only history questions for a repository. Open it on the
// main worktree root: branches and objects are shared by every linked
// worktree, and go-git's linked-worktree support is incomplete.
type Repo struct {
	root string
	repo *git.Repository
}

// Open opens the repository at root. The handle reads the refs current at
// the time of each call, but callers that mutate history through the git
// executable should open a fresh Repo afterwards.
func Open(root string) (*Repo, error) {
	repo, err := git.PlainOpenWithOptions(root, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("open repository %s: %w", root, err)
	}
	return &Repo{root: root, repo: repo}, nil
}

// Root returns the directory the repository was opened from.
func (r *Repo) Root() string { return r.root }

// BranchHash returns the commit a local branch points at.
func (r *Repo) BranchHash(branch string) (plumbing.Hash, error) {
	ref, err := r.repo.Reference(plumbing.NewBranchReferenceName(branch), true)
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return plumbing.ZeroHash, fmt.Errorf("%w: %s", ErrBranchNotFound, branch)
		}
		return plumbing.ZeroHash, fmt.Errorf("resolve branch %s: %w", branch, err)
	}
	return ref.Hash(), nil
}

func (r *Repo) branchCommit(branch string) (*object.Commit, error) {
	hash, err := r.BranchHash(branch)
	if err != nil {
		return nil, err
	}
	c, err := r.repo.CommitObject(hash)
	if err != nil {
		return nil, fmt.Errorf("read commit %s (%s): %w", hash, branch, err)
	}
	return c, nil
}

// MergeBase returns the best common ancestor of two branches.
func (r *Repo) MergeBase(a, b string) (plumbing.Hash, error) {
	ca, err := r.branchCommit(a)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	cb, err := r.branchCommit(b)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	bases, err := ca.MergeBase(cb)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("merge-base %s %s: %w", a, b, err)
	}
	if len(bases) == 0 {
		return plumbing.ZeroHash, fmt.Errorf("%w: %s and %s", ErrUnrelatedHistories, a, b)
	}
	return bases[0].Hash, nil
}

// CountExclusive returns the number of commits reachable from include but not
// from exclude, like "git rev-list --count exclude..include".
func (r *Repo) CountExclusive(include, exclude string) (int, error) {
	ci, err := r.branchCommit(include)
	if err != nil {
		return 0, err
	}
	ce, err := r.branchCommit(exclude)
	if err != nil {
		return 0, err
	}
	excluded := make(map[plumbing.Hash]bool)
	if err := object.NewCommitPreorderIter(ce, nil, nil).ForEach(func(c *object.Commit) error {
		excluded[c.Hash] = true
		return nil
	}); err != nil {
		return 0, fmt.Errorf("walk %s: %w", exclude, err)
	}
	count := 0
	err = object.NewCommitPreorderIter(ci, excluded, nil).ForEach(func(*object.Commit) error {
		count++
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("walk %s: %w", include, err)
	}
	return count, nil
}

// IsAncestor reports whether branch ancestor is reachable from descendant.
// A branch is its own ancestor.
func (r *Repo) IsAncestor(ancestor, descendant string) (bool, error) {
	ca, err := r.branchCommit(ancestor)
	if err != nil {
		return false, err
	}
	cd, err := r.branchCommit(descendant)
	if err != nil {
		return false, err
	}
	ok, err := ca.IsAncestor(cd)
	if err != nil {
		return false, fmt.Errorf("is-ancestor %s %s: %w", ancestor, descendant, err)
	}
	return ok, nil
}
