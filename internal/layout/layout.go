// Package layout knows where cat keeps its coordination artifacts inside a
// repository and how to compare paths once symlinks are resolved.
package layout

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// CatDir is the project-relative directory holding cat state.
	CatDir = ".claude/cat"

	// LocksDir is the project-relative directory holding one lock file per issue.
	LocksDir = CatDir + "/locks"

	// WorktreesDir is the project-relative directory where issue worktrees are provisioned.
	WorktreesDir = CatDir + "/worktrees"

	// LockExt is the extension of lock files.
	LockExt = ".lock"

	// BaseMarker is the file inside a worktree's git metadata directory that
	// names the branch the worktree merges into.
	BaseMarker = "cat-base"
)

// ErrNotInRepository is returned when no main worktree root is found above a directory.
var ErrNotInRepository = errors.New("not inside a git repository")

// LocksPath returns the absolute locks directory for a project root.
func LocksPath(projectDir string) string {
	return filepath.Join(projectDir, filepath.FromSlash(LocksDir))
}

// LockFile returns the lock file path for an issue.
func LockFile(locksDir, issueID string) string {
	return filepath.Join(locksDir, issueID+LockExt)
}

// WorktreePath returns the default worktree location for an issue.
func WorktreePath(projectDir, issueID string) string {
	return filepath.Join(projectDir, filepath.FromSlash(WorktreesDir), issueID)
}

// RealPath returns the absolute, symlink-free form of path. Components that
// do not exist yet are appended to the resolved form of the deepest existing
// ancestor, so paths about to be created still compare correctly.
func RealPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = filepath.Clean(path)
	}
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		return real
	}
	var missing []string
	cur := abs
	for {
		parent := filepath.Dir(cur)
		missing = append(missing, filepath.Base(cur))
		if parent == cur {
			return abs
		}
		cur = parent
		if real, err := filepath.EvalSymlinks(cur); err == nil {
			for i := len(missing) - 1; i >= 0; i-- {
				real = filepath.Join(real, missing[i])
			}
			return real
		}
	}
}

// Resolve joins a possibly relative path onto base and returns its RealPath.
// A leading "~" is expanded by the caller.
func Resolve(base, path string) string {
	if !filepath.IsAbs(path) && base != "" {
		path = filepath.Join(base, path)
	}
	return RealPath(path)
}

// Within reports whether path equals dir or lies beneath it. Both arguments
// must already be cleaned absolute paths.
func Within(path, dir string) bool {
	if path == dir {
		return true
	}
	if dir == string(filepath.Separator) {
		return strings.HasPrefix(path, dir)
	}
	return strings.HasPrefix(path, dir+string(filepath.Separator))
}

// IsDir reports whether path exists and is a directory.
func IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// FindMainRoot walks upward from start until it finds a directory whose .git
// entry is a directory, which marks the main worktree. Linked worktrees carry
// a .git file instead; when the walk runs out, the .git file nearest to start
// is followed through its commondir to the main repository.
func FindMainRoot(start string) (string, error) {
	dir := RealPath(start)
	firstLinked := ""
	for {
		info, err := os.Stat(filepath.Join(dir, ".git"))
		if err == nil {
			if info.IsDir() {
				return dir, nil
			}
			if firstLinked == "" {
				firstLinked = dir
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	if firstLinked != "" {
		if root, err := mainRootFromLinked(firstLinked); err == nil {
			return root, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotInRepository, start)
}

func mainRootFromLinked(worktree string) (string, error) {
	gitDir, err := GitDir(worktree)
	if err != nil {
		return "", err
	}
	common := gitDir
	if data, err := os.ReadFile(filepath.Join(gitDir, "commondir")); err == nil {
		c := strings.TrimSpace(string(data))
		if !filepath.IsAbs(c) {
			c = filepath.Join(gitDir, c)
		}
		common = filepath.Clean(c)
	}
	if filepath.Base(common) != ".git" {
		return "", fmt.Errorf("%w: bare or unusual common dir %s", ErrNotInRepository, common)
	}
	return RealPath(filepath.Dir(common)), nil
}

// GitDir returns the git metadata directory of a worktree: the .git
// directory itself, or the target of a "gitdir:" .git file.
func GitDir(worktree string) (string, error) {
	dotGit := filepath.Join(worktree, ".git")
	info, err := os.Stat(dotGit)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return dotGit, nil
	}
	data, err := os.ReadFile(dotGit)
	if err != nil {
		return "", err
	}
	line := strings.TrimSpace(string(data))
	if !strings.HasPrefix(line, "gitdir:") {
		return "", fmt.Errorf("malformed .git file in %s", worktree)
	}
	dir := strings.TrimSpace(strings.TrimPrefix(line, "gitdir:"))
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(worktree, dir)
	}
	return filepath.Clean(dir), nil
}

// ReadBaseBranch returns the branch named by the worktree's cat-base marker.
func ReadBaseBranch(worktree string) (string, error) {
	gitDir, err := GitDir(worktree)
	if err != nil {
		return "", fmt.Errorf("locate git dir for %s: %w", worktree, err)
	}
	data, err := os.ReadFile(filepath.Join(gitDir, BaseMarker))
	if err != nil {
		return "", fmt.Errorf("read %s marker: %w", BaseMarker, err)
	}
	branch := strings.TrimSpace(string(data))
	if branch == "" {
		return "", fmt.Errorf("%s marker in %s is empty", BaseMarker, gitDir)
	}
	return branch, nil
}
