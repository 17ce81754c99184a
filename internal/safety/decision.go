package safety

// Reason tags why a path is protected.
type Reason string

const (
	ReasonMainWorktreeRoot Reason = "main-worktree-root"
	ReasonInUseWorktree    Reason = "in-use-worktree"
	ReasonCwdAncestor      Reason = "cwd-ancestor"
	ReasonLockArtifact     Reason = "lock-artifact"
	ReasonIsolation        Reason = "worktree-isolation"
)

// ProtectedPath is a resolved, symlink-free absolute path and the reason it
// may not be touched.
type ProtectedPath struct {
	Path   string `json:"path" yaml:"path"`
	Reason Reason `json:"reason" yaml:"reason"`

	// IssueID and SessionID identify the owning lock for in-use worktrees
	// and isolation boundaries.
	IssueID   string `json:"issue_id,omitempty" yaml:"issue_id,omitempty"`
	SessionID string `json:"session_id,omitempty" yaml:"session_id,omitempty"`
}

// Decision is the outcome of a guard check.
type Decision struct {
	Blocked bool `json:"blocked" yaml:"blocked"`

	// Message is the human-readable explanation shown to the caller when
	// Blocked is set.
	Message string `json:"message,omitempty" yaml:"message,omitempty"`

	// Target is the resolved path the decision is about.
	Target string `json:"target,omitempty" yaml:"target,omitempty"`

	Protected *ProtectedPath `json:"protected,omitempty" yaml:"protected,omitempty"`
}

// Allow is the zero decision.
func Allow() Decision { return Decision{} }

func block(target string, p ProtectedPath, message string) Decision {
	return Decision{
		Blocked:   true,
		Message:   message,
		Target:    target,
		Protected: &p,
	}
}
