package safety

import (
	"fmt"
	"time"

	"github.com/cowwoc/claude-code-cat-sub001/internal/command"
	"github.com/cowwoc/claude-code-cat-sub001/internal/layout"
	"github.com/cowwoc/claude-code-cat-sub001/internal/lock"
)

// ProtectedPaths returns every path a directory removal issued from cwd on
// behalf of sessionID must not reach: cwd itself, the main worktree root and
// the worktrees of fresh locks held by other sessions.
func (g *Guard) ProtectedPaths(sessionID, cwd string) []ProtectedPath {
	cwdReal := layout.RealPath(cwd)
	paths := []ProtectedPath{{Path: cwdReal, Reason: ReasonCwdAncestor}}
	if root := g.mainRoot(cwdReal); root != "" {
		paths = append(paths, ProtectedPath{Path: root, Reason: ReasonMainWorktreeRoot})
	}
	now := g.clock.Now()
	for _, l := range g.store.List() {
		if l.Worktree == "" || lock.IsOwnedBySession(l, sessionID) || lock.IsStale(l, now, g.ttl) {
			continue
		}
		paths = append(paths, ProtectedPath{
			Path:      layout.RealPath(l.Worktree),
			Reason:    ReasonInUseWorktree,
			IssueID:   l.IssueID,
			SessionID: l.SessionID,
		})
	}
	return paths
}

// checkProtected blocks a directory removal whose resolved target is, or
// contains, a protected path.
func (g *Guard) checkProtected(sessionID, cwd, operand string) Decision {
	operand = command.ExpandHome(operand)
	if operand == "" {
		return Allow()
	}
	target := layout.Resolve(cwd, operand)
	for _, p := range g.ProtectedPaths(sessionID, cwd) {
		if !layout.Within(p.Path, target) {
			continue
		}
		return block(target, p, g.unsafeMessage(target, p))
	}
	return Allow()
}

func (g *Guard) unsafeMessage(target string, p ProtectedPath) string {
	var what string
	switch p.Reason {
	case ReasonCwdAncestor:
		what = "the current working directory; the shell would be left in a deleted directory"
	case ReasonMainWorktreeRoot:
		what = "the main worktree, shared by every session"
	case ReasonInUseWorktree:
		what = fmt.Sprintf("the worktree of issue %s, locked by session %s", p.IssueID, p.SessionID)
		if l, ok, err := g.store.Get(p.IssueID); err == nil && ok {
			what += fmt.Sprintf(" %s ago", l.Age(g.clock.Now()).Truncate(time.Minute))
		}
	}
	msg := fmt.Sprintf("UNSAFE: removing %s would delete %s.\nProtected: %s", target, what, p.Path)
	if p.Reason == ReasonCwdAncestor {
		msg += "\ncd to a directory outside the target first."
	}
	return msg
}
