package command

import "strings"

// DefaultCommitPrefixes are the message prefixes that mark a commit as issue
// work which must happen inside the issue's worktree.
var DefaultCommitPrefixes = []string{"bugfix:", "feature:"}

// Commit describes one "git commit" invocation.
type Commit struct {
	// Message is the commit message assembled from -m/--message options,
	// paragraphs joined by a blank line as git does. Empty when the message
	// comes from an editor or a file.
	Message string

	// HasMessage reports whether any -m/--message option was present.
	HasMessage bool

	// Amend reports "--amend".
	Amend bool

	// Dir is the directory given with "git -C", or "".
	Dir string
}

// ExtractCommits returns every "git commit" in command.
func ExtractCommits(command string) []Commit {
	var out []Commit
	for _, seg := range Segments(command) {
		if seg.Program() != "git" {
			continue
		}
		sub, args, dir := gitSubcommand(seg.Args())
		if sub != "commit" {
			continue
		}
		c := parseCommitArgs(args)
		c.Dir = dir
		out = append(out, c)
	}
	return out
}

// ExtractCommitMessage returns the message of the first commit in command
// that carries one.
func ExtractCommitMessage(command string) (string, bool) {
	for _, c := range ExtractCommits(command) {
		if c.HasMessage {
			return c.Message, true
		}
	}
	return "", false
}

// IsAmend reports whether any commit in command uses --amend.
func IsAmend(command string) bool {
	for _, c := range ExtractCommits(command) {
		if c.Amend {
			return true
		}
	}
	return false
}

// IsBugfixOrFeatureCommit reports whether message starts with one of
// prefixes. A nil prefixes slice means DefaultCommitPrefixes.
func IsBugfixOrFeatureCommit(message string, prefixes []string) bool {
	if prefixes == nil {
		prefixes = DefaultCommitPrefixes
	}
	message = strings.TrimSpace(message)
	for _, p := range prefixes {
		p = strings.TrimSpace(p)
		if p != "" && strings.HasPrefix(message, p) {
			return true
		}
	}
	return false
}

// commit options that consume the following word when given separately.
var commitValueFlags = map[rune]bool{'m': true, 'F': true, 'c': true, 'C': true, 't': true}

func parseCommitArgs(args []string) Commit {
	var (
		c     Commit
		paras []string
	)
	addMessage := func(m string) {
		c.HasMessage = true
		paras = append(paras, heredocBody(m))
	}
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--":
			i = len(args)
		case arg == "--amend":
			c.Amend = true
		case arg == "--message":
			if i+1 < len(args) {
				addMessage(args[i+1])
				i++
			}
		case strings.HasPrefix(arg, "--message="):
			addMessage(strings.TrimPrefix(arg, "--message="))
		case strings.HasPrefix(arg, "--"):
		case strings.HasPrefix(arg, "-") && len(arg) > 1:
			flags := []rune(arg[1:])
			for j, f := range flags {
				if !commitValueFlags[f] {
					continue
				}
				value := string(flags[j+1:])
				if value == "" && i+1 < len(args) {
					value = args[i+1]
					i++
				}
				if f == 'm' {
					addMessage(value)
				}
				break
			}
		}
	}
	c.Message = strings.Join(paras, "\n\n")
	return c
}

// heredocBody unwraps the common "$(cat <<'EOF' ... EOF)" message idiom and
// returns the here-document body. Other messages are returned unchanged.
func heredocBody(msg string) string {
	trimmed := strings.TrimSpace(msg)
	if !strings.HasPrefix(trimmed, "$(") || !strings.Contains(trimmed, "<<") {
		return msg
	}
	lines := strings.Split(trimmed, "\n")
	if len(lines) < 2 {
		return msg
	}
	src := []rune(lines[0])
	idx := strings.Index(lines[0], "<<")
	if idx < 0 {
		return msg
	}
	hd, _, ok := parseHeredocStart(src, len([]rune(lines[0][:idx])))
	if !ok {
		return msg
	}
	var body []string
	for _, line := range lines[1:] {
		check := line
		if hd.strip {
			check = strings.TrimLeft(check, "\t")
		}
		if check == hd.delim {
			break
		}
		body = append(body, line)
	}
	return strings.Join(body, "\n")
}
