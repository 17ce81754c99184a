package safety

import (
	"fmt"
	"strings"

	"github.com/cowwoc/claude-code-cat-sub001/internal/command"
	"github.com/cowwoc/claude-code-cat-sub001/internal/layout"
	"github.com/cowwoc/claude-code-cat-sub001/internal/lock"
)

// CheckCommit blocks issue commits and amends that a worktree-bound session
// runs outside its worktree. Other commits pass.
func (g *Guard) CheckCommit(req Request) (Decision, error) {
	if err := lock.ValidateSessionID(req.SessionID); err != nil {
		return Decision{}, fmt.Errorf("check commit: %w", err)
	}
	if command.Classify(req.Command) == command.KindOther {
		return Allow(), nil
	}
	commits := command.ExtractCommits(req.Command)
	if len(commits) == 0 {
		return Allow(), nil
	}
	l, worktree, ok, err := g.boundWorktree(req.SessionID)
	if err != nil || !ok {
		return Allow(), err
	}
	cwd := layout.Resolve(req.WorkingDir, command.ExpandHome(command.ExtractCdChain(req.Command, req.WorkingDir)))
	for _, c := range commits {
		if !c.Amend && !(c.HasMessage && command.IsBugfixOrFeatureCommit(c.Message, g.prefixes)) {
			continue
		}
		dir := cwd
		if c.Dir != "" {
			dir = layout.Resolve(cwd, command.ExpandHome(c.Dir))
		}
		if layout.Within(dir, worktree) {
			continue
		}
		action := "commit in"
		if c.Amend {
			action = "amend a commit in"
		} else if subject := firstLine(c.Message); subject != "" {
			action = fmt.Sprintf("commit %q in", subject)
		}
		g.logger.Debug("commit blocked", "session", req.SessionID, "dir", dir, "worktree", worktree)
		return block(dir, isolationPath(l, worktree), g.isolationMessage(action, dir, worktree, l)), nil
	}
	return Allow(), nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
