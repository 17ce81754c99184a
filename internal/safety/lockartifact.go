package safety

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/cowwoc/claude-code-cat-sub001/internal/command"
	"github.com/cowwoc/claude-code-cat-sub001/internal/layout"
)

// checkLockArtifact blocks operands that resolve inside the locks directory
// or to the directory itself, ignoring case. With ancestors set, operands that contain the
// locks directory are blocked too; that only matters for removals able to
// delete whole trees.
func (g *Guard) checkLockArtifact(cwd, operand string, ancestors bool) Decision {
	operand = command.ExpandHome(operand)
	if operand == "" {
		return Allow()
	}
	locksDir := layout.RealPath(g.store.Dir())

	if hasGlobMeta(operand) {
		pattern := strings.ToLower(globPattern(cwd, operand))
		for _, candidate := range lockCandidates(locksDir, ancestors) {
			name := strings.ToLower(filepath.ToSlash(candidate))
			if ok, err := doublestar.Match(pattern, name); err == nil && ok {
				return g.lockArtifactBlock(operand, candidate)
			}
		}
		return Allow()
	}

	target := layout.Resolve(cwd, operand)
	if withinFold(target, locksDir) {
		return g.lockArtifactBlock(target, target)
	}
	if ancestors && layout.Within(locksDir, target) {
		return g.lockArtifactBlock(target, locksDir)
	}
	return Allow()
}

func (g *Guard) lockArtifactBlock(target, protected string) Decision {
	issue := "<issue-id>"
	if strings.HasSuffix(strings.ToLower(protected), strings.ToLower(layout.LockExt)) {
		issue = strings.TrimSuffix(filepath.Base(protected), filepath.Ext(protected))
	}
	msg := fmt.Sprintf(`BLOCKED: %s is a lock artifact.
Lock files record which session owns an issue and are never deleted by hand.
Protected: %s
To release a lock held by an abandoned session, run: %s %s
To review and clean up abandoned locks and worktrees, ask the user to run: %s`,
		target, protected, g.forceReleaseCmd, issue, g.cleanupCmd)
	return block(target, ProtectedPath{Path: protected, Reason: ReasonLockArtifact}, msg)
}

// lockCandidates lists the paths a glob operand is matched against: the locks
// directory, its entries and, when requested, its ancestors.
func lockCandidates(locksDir string, ancestors bool) []string {
	out := []string{locksDir}
	if entries, err := os.ReadDir(locksDir); err == nil {
		for _, e := range entries {
			out = append(out, filepath.Join(locksDir, e.Name()))
		}
	}
	// Catches patterns such as "locks/*.lock" while the directory is empty.
	out = append(out, filepath.Join(locksDir, "*"+layout.LockExt))
	if ancestors {
		for dir := filepath.Dir(locksDir); ; dir = filepath.Dir(dir) {
			out = append(out, dir)
			if dir == filepath.Dir(dir) {
				break
			}
		}
	}
	return out
}

// globPattern makes operand absolute against cwd and resolves symlinks in its
// literal leading directories, leaving the wildcard part untouched.
func globPattern(cwd, operand string) string {
	if !filepath.IsAbs(operand) {
		operand = filepath.Join(cwd, operand)
	}
	parts := strings.Split(filepath.ToSlash(operand), "/")
	split := len(parts)
	for i, p := range parts {
		if hasGlobMeta(p) {
			split = i
			break
		}
	}
	base := "/" + strings.Join(parts[:split], "/")
	base = filepath.ToSlash(layout.RealPath(base))
	rest := strings.Join(parts[split:], "/")
	if rest == "" {
		return base
	}
	return strings.TrimSuffix(base, "/") + "/" + rest
}

func hasGlobMeta(s string) bool {
	return strings.ContainsAny(s, "*?[{")
}

// withinFold is layout.Within ignoring case, so case-insensitive filesystems
// cannot be used to sidestep the check.
func withinFold(path, dir string) bool {
	return layout.Within(strings.ToLower(path), strings.ToLower(dir))
}
