package command

import "strings"

// Removal describes one file-removal invocation found in a command.
type Removal struct {
	// Program is the removal program: "rm", "rmdir", "unlink" or "git rm".
	Program string

	// Targets are the path operands in source order, unexpanded.
	Targets []string

	// Recursive reports an "r"/"R" short flag or "--recursive".
	Recursive bool

	// Force reports an "f" short flag or "--force".
	Force bool

	// Piped holds the operands of the pipeline stage feeding an xargs
	// removal. They may reach the program as further targets.
	Piped []string
}

// DeletesDirectories reports whether the invocation can remove a non-empty
// directory. Only recursive rm qualifies; a plain rm never does.
func (r Removal) DeletesDirectories() bool {
	return r.Recursive && (r.Program == "rm" || r.Program == "git rm")
}

// WorktreeRemoval describes a "git worktree remove" invocation.
type WorktreeRemoval struct {
	// Path is the worktree operand as written.
	Path string

	// Dir is the directory given with "git -C", or "" when absent.
	// Path is relative to Dir when both are relative.
	Dir string

	// Force reports "-f" or "--force".
	Force bool
}

// ExtractRemovalTargets returns every removal invocation in command.
func ExtractRemovalTargets(command string) []Removal {
	var out []Removal
	for _, seg := range Segments(command) {
		if r, ok := removalFromSegment(seg); ok {
			out = append(out, r)
		}
	}
	return out
}

func removalFromSegment(seg Segment) (Removal, bool) {
	r, ok := removalArgs(seg)
	if ok && seg.Xargs {
		r.Piped = upstreamOperands(seg.Upstream)
	}
	return r, ok
}

func removalArgs(seg Segment) (Removal, bool) {
	switch prog := seg.Program(); prog {
	case "rm", "rmdir", "unlink":
		r := parseRemovalArgs(seg.Args())
		r.Program = prog
		return r, true
	case "git":
		sub, args, _ := gitSubcommand(seg.Args())
		if sub != "rm" {
			return Removal{}, false
		}
		if hasFlag(args, "--cached") || hasFlag(args, "-n") || hasFlag(args, "--dry-run") {
			return Removal{}, false
		}
		r := parseRemovalArgs(args)
		r.Program = "git rm"
		return r, true
	}
	return Removal{}, false
}

// upstreamOperands returns the words of a pipeline stage that are neither its
// program, a flag nor a redirection.
func upstreamOperands(words []string) []string {
	if len(words) < 2 {
		return nil
	}
	var out []string
	for _, w := range dropRedirections(words[1:]) {
		if !strings.HasPrefix(w, "-") {
			out = append(out, w)
		}
	}
	return out
}

// parseRemovalArgs classifies args into flags and operands. Unknown flags
// and redirections are ignored.
func parseRemovalArgs(args []string) Removal {
	var r Removal
	endOfFlags := false
	for _, arg := range dropRedirections(args) {
		switch {
		case endOfFlags, arg == "-", !strings.HasPrefix(arg, "-"):
			r.Targets = append(r.Targets, arg)
		case arg == "--":
			endOfFlags = true
		case strings.HasPrefix(arg, "--"):
			switch strings.ToLower(strings.SplitN(arg, "=", 2)[0]) {
			case "--recursive":
				r.Recursive = true
			case "--force":
				r.Force = true
			}
		default:
			for _, c := range arg[1:] {
				switch c {
				case 'r', 'R':
					r.Recursive = true
				case 'f':
					r.Force = true
				}
			}
		}
	}
	return r
}

// ExtractWorktreeRemovals returns every "git worktree remove" in command.
func ExtractWorktreeRemovals(command string) []WorktreeRemoval {
	var out []WorktreeRemoval
	for _, seg := range Segments(command) {
		if wr, ok := worktreeRemovalFromSegment(seg); ok {
			out = append(out, wr)
		}
	}
	return out
}

// ExtractWorktreeRemovalPath returns the path operand of the first
// "git worktree remove [-f|--force] <path>" in command.
func ExtractWorktreeRemovalPath(command string) (string, bool) {
	removals := ExtractWorktreeRemovals(command)
	if len(removals) == 0 {
		return "", false
	}
	return removals[0].Path, true
}

func worktreeRemovalFromSegment(seg Segment) (WorktreeRemoval, bool) {
	if seg.Program() != "git" {
		return WorktreeRemoval{}, false
	}
	sub, args, dir := gitSubcommand(seg.Args())
	if sub != "worktree" || len(args) == 0 || args[0] != "remove" {
		return WorktreeRemoval{}, false
	}
	wr := WorktreeRemoval{Dir: dir}
	endOfFlags := false
	for _, arg := range dropRedirections(args[1:]) {
		switch {
		case endOfFlags || !strings.HasPrefix(arg, "-"):
			if wr.Path == "" {
				wr.Path = arg
			}
		case arg == "--":
			endOfFlags = true
		case arg == "--force":
			wr.Force = true
		case !strings.HasPrefix(arg, "--") && strings.ContainsRune(arg[1:], 'f'):
			wr.Force = true
		}
	}
	if wr.Path == "" {
		return WorktreeRemoval{}, false
	}
	return wr, true
}

// Redirection operators, longest first.
var redirectionOps = []string{"&>>", "&>", ">>", ">&", ">|", "<<<", "<<", "<>", "<&", ">", "<"}

// redirection reports whether word is a redirection such as "2>&1", ">out" or
// ">", and whether its target is the following word.
func redirection(word string) (redir, takesNext bool) {
	rest := strings.TrimLeft(word, "0123456789")
	for _, op := range redirectionOps {
		if strings.HasPrefix(rest, op) {
			return true, rest == op
		}
	}
	return false, false
}

// dropRedirections returns args without redirections and their targets.
func dropRedirections(args []string) []string {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		if redir, takesNext := redirection(args[i]); redir {
			if takesNext {
				i++
			}
			continue
		}
		out = append(out, args[i])
	}
	return out
}

// gitSubcommand skips git's global options and returns the subcommand, its
// arguments and the directory accumulated from "-C" options.
func gitSubcommand(args []string) (sub string, rest []string, dir string) {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "-C":
			if i+1 < len(args) {
				dir = joinDir(dir, args[i+1])
				i++
			}
		case arg == "-c", arg == "--git-dir", arg == "--work-tree", arg == "--namespace", arg == "--exec-path":
			i++
		case strings.HasPrefix(arg, "-"):
		default:
			return arg, args[i+1:], dir
		}
	}
	return "", nil, dir
}

func joinDir(base, next string) string {
	if base == "" || strings.HasPrefix(next, "/") {
		return next
	}
	return strings.TrimSuffix(base, "/") + "/" + next
}

func hasFlag(args []string, flag string) bool {
	for _, a := range args {
		if a == "--" {
			return false
		}
		if a == flag {
			return true
		}
	}
	return false
}
