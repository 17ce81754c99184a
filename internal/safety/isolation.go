package safety

import (
	"fmt"
	"path/filepath"

	"github.com/cowwoc/claude-code-cat-sub001/internal/command"
	"github.com/cowwoc/claude-code-cat-sub001/internal/layout"
	"github.com/cowwoc/claude-code-cat-sub001/internal/lock"
)

// WriteRequest is a file write about to happen on behalf of a session.
type WriteRequest struct {
	FilePath   string
	WorkingDir string
	SessionID  string
}

// CheckWrite confines writes to the caller's worktree. Sessions without a
// lock, and sessions whose worktree has not been created yet, are
// unconstrained. A blocked write into another issue's worktree names that
// issue and its session.
func (g *Guard) CheckWrite(req WriteRequest) (Decision, error) {
	if err := lock.ValidateSessionID(req.SessionID); err != nil {
		return Decision{}, fmt.Errorf("check write: %w", err)
	}
	if req.FilePath == "" {
		return Allow(), nil
	}
	l, worktree, ok, err := g.boundWorktree(req.SessionID)
	if err != nil || !ok {
		return Allow(), err
	}
	target := layout.Resolve(req.WorkingDir, command.ExpandHome(req.FilePath))
	if layout.Within(target, worktree) {
		return Allow(), nil
	}
	msg := g.isolationMessage("write to", target, worktree, l)
	if owner, ok := g.store.FindForPath(target); ok && owner.IssueID != l.IssueID {
		msg += fmt.Sprintf("\nTarget belongs to issue %s (session %s).", owner.IssueID, owner.SessionID)
	}
	d := block(target, isolationPath(l, worktree), msg)
	g.logger.Debug("write blocked", "session", req.SessionID, "target", target, "worktree", worktree)
	return d, nil
}

// boundWorktree returns the caller's lock and its resolved worktree when the
// worktree directory exists.
func (g *Guard) boundWorktree(sessionID string) (lock.Lock, string, bool, error) {
	l, ok, err := g.store.FindForSession(sessionID)
	if err != nil || !ok || l.Worktree == "" {
		return lock.Lock{}, "", false, err
	}
	worktree := layout.RealPath(l.Worktree)
	if !layout.IsDir(worktree) {
		g.logger.Debug("worktree not provisioned yet", "issue", l.IssueID, "worktree", worktree)
		return lock.Lock{}, "", false, nil
	}
	return l, worktree, true, nil
}

func isolationPath(l lock.Lock, worktree string) ProtectedPath {
	return ProtectedPath{Path: worktree, Reason: ReasonIsolation, IssueID: l.IssueID, SessionID: l.SessionID}
}

func (g *Guard) isolationMessage(action, target, worktree string, l lock.Lock) string {
	msg := fmt.Sprintf(`Worktree isolation violation: refusing to %s %s.
This session holds the lock for issue %s and must stay inside its worktree.
Worktree: %s
Attempted: %s`, action, target, l.IssueID, worktree, target)
	if alt, ok := g.insideWorktree(target, worktree); ok {
		msg += "\nUse the worktree path instead: " + alt
	}
	return msg
}

// insideWorktree maps a path in the main tree to the same relative path in
// worktree.
func (g *Guard) insideWorktree(target, worktree string) (string, bool) {
	root := g.mainRoot(worktree)
	if root == "" || !layout.Within(target, root) {
		return "", false
	}
	rel, err := filepath.Rel(root, target)
	if err != nil || rel == "." {
		return worktree, true
	}
	return filepath.Join(worktree, rel), true
}
