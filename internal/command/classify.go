package command

// Kind is the coarse classification of a command.
type Kind int

const (
	KindOther Kind = iota
	KindRemoval
	KindWorktreeRemoval
	KindCommit
)

func (k Kind) String() string {
	switch k {
	case KindRemoval:
		return "removal"
	case KindWorktreeRemoval:
		return "worktree-removal"
	case KindCommit:
		return "commit"
	default:
		return "other"
	}
}

// Classify returns the most destructive kind found in command:
// worktree removal, then file removal, then commit.
func Classify(command string) Kind {
	kind := KindOther
	for _, seg := range Segments(command) {
		switch {
		case isWorktreeRemoval(seg):
			return KindWorktreeRemoval
		case isRemoval(seg):
			kind = KindRemoval
		case kind == KindOther && isCommit(seg):
			kind = KindCommit
		}
	}
	return kind
}

func isWorktreeRemoval(seg Segment) bool {
	_, ok := worktreeRemovalFromSegment(seg)
	return ok
}

func isRemoval(seg Segment) bool {
	_, ok := removalFromSegment(seg)
	return ok
}

func isCommit(seg Segment) bool {
	if seg.Program() != "git" {
		return false
	}
	sub, _, _ := gitSubcommand(seg.Args())
	return sub == "commit"
}
