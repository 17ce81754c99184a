package command

import (
	"path/filepath"
	"strings"

	"github.com/google/shlex"
)

// Segment is one simple command between control operators.
type Segment struct {
	// Raw is the trimmed source text of the segment.
	Raw string

	// Words are the shell words with assignments, reserved words and
	// wrappers removed. Words[0] is the program as written (possibly with a
	// path prefix).
	Words []string

	// Xargs reports that the program runs under xargs and takes further
	// operands from its standard input.
	Xargs bool

	// Upstream holds the words of the pipeline stage that feeds an xargs
	// segment.
	Upstream []string

	// Substituted marks segments taken from a "$(...)" or backtick body.
	// They run in a subshell and cannot change the caller's directory.
	Substituted bool
}

// Program returns the lower-cased base name of the segment's program, or ""
// for an empty segment.
func (s Segment) Program() string {
	if len(s.Words) == 0 {
		return ""
	}
	return programName(s.Words[0])
}

// Args returns the words after the program.
func (s Segment) Args() []string {
	if len(s.Words) < 2 {
		return nil
	}
	return s.Words[1:]
}

func programName(word string) string {
	return strings.ToLower(filepath.Base(word))
}

// Segments splits command into simple-command segments in source order. The
// bodies of command substitutions precede the segment that contains them.
func Segments(command string) []Segment {
	var (
		out  []Segment
		prev []string
	)
	for _, raw := range splitSegments(command) {
		for _, body := range substitutions(raw.text) {
			for _, seg := range Segments(body) {
				seg.Substituted = true
				out = append(out, seg)
			}
		}
		words, xargs := stripPrelude(splitWords(raw.text))
		if len(words) == 0 {
			prev = nil
			continue
		}
		seg := Segment{Raw: raw.text, Words: words, Xargs: xargs}
		if xargs && raw.piped {
			seg.Upstream = prev
		}
		prev = words
		out = append(out, seg)
		if script, ok := inlineScript(seg); ok {
			out = append(out, Segments(script)...)
		}
	}
	return out
}

func splitWords(raw string) []string {
	words, err := shlex.Split(raw)
	if err != nil {
		return strings.Fields(raw)
	}
	return words
}

// inlineScript returns the script passed to "sh -c", "bash -c" or "zsh -c".
func inlineScript(seg Segment) (string, bool) {
	switch seg.Program() {
	case "sh", "bash", "zsh":
	default:
		return "", false
	}
	args := seg.Args()
	for i, arg := range args {
		if !strings.HasPrefix(arg, "-") || strings.HasPrefix(arg, "--") {
			continue
		}
		if strings.Contains(arg[1:], "c") && i+1 < len(args) {
			return args[i+1], true
		}
	}
	return "", false
}

// stripPrelude drops leading variable assignments, reserved words and command
// wrappers. It reports whether xargs was among the wrappers.
func stripPrelude(words []string) ([]string, bool) {
	xargs := false
	for len(words) > 0 {
		w := words[0]
		if isAssignment(w) {
			words = words[1:]
			continue
		}
		switch programName(w) {
		case "if", "then", "elif", "else", "fi", "do", "done", "while", "until", "!", "{", "}", "esac":
			words = words[1:]
		case "command", "exec", "nohup", "time", "builtin":
			words = words[1:]
		case "xargs":
			xargs = true
			words = skipXargsFlags(words[1:])
		case "env":
			words = words[1:]
			for len(words) > 0 && (isAssignment(words[0]) || strings.HasPrefix(words[0], "-")) {
				words = words[1:]
			}
		case "sudo", "doas":
			words = skipSudoFlags(words[1:])
		default:
			return words, xargs
		}
	}
	return words, xargs
}

func skipSudoFlags(words []string) []string {
	for len(words) > 0 && strings.HasPrefix(words[0], "-") {
		flag := words[0]
		words = words[1:]
		switch flag {
		case "-u", "-g", "-C", "-h", "-p", "-U", "-D", "-r", "-t":
			if len(words) > 0 {
				words = words[1:]
			}
		case "--":
			return words
		}
	}
	return words
}

// xargs options that consume the following word when given separately.
var xargsValueFlags = map[string]bool{
	"-I": true, "-n": true, "-P": true, "-L": true, "-d": true, "-E": true, "-s": true, "-a": true,
	"--arg-file": true, "--delimiter": true, "--max-args": true, "--max-procs": true,
	"--max-chars": true, "--process-slot-var": true,
}

func skipXargsFlags(words []string) []string {
	for len(words) > 0 && strings.HasPrefix(words[0], "-") {
		flag := words[0]
		words = words[1:]
		if flag == "--" {
			return words
		}
		if xargsValueFlags[flag] && len(words) > 0 {
			words = words[1:]
		}
	}
	return words
}

func isAssignment(word string) bool {
	eq := strings.IndexByte(word, '=')
	if eq <= 0 {
		return false
	}
	for i, r := range word[:eq] {
		switch {
		case r == '_' || (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z'):
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

type scanContext int

const (
	ctxSingle scanContext = iota
	ctxDouble
	ctxSubst
	ctxBacktick
)

// rawSegment is the source text of one segment. Piped is set when the
// segment reads the output of the previous one through "|".
type rawSegment struct {
	text  string
	piped bool
}

// splitSegments scans command once, splitting on control operators that
// appear outside quotes, substitutions and here-document bodies.
func splitSegments(command string) []rawSegment {
	var (
		segments []rawSegment
		cur      strings.Builder
		stack    []scanContext
		heredocs []heredoc
		piped    bool
	)
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			segments = append(segments, rawSegment{text: s, piped: piped})
			piped = false
		}
		cur.Reset()
	}
	top := func() (scanContext, bool) {
		if len(stack) == 0 {
			return 0, false
		}
		return stack[len(stack)-1], true
	}
	pop := func() { stack = stack[:len(stack)-1] }

	src := []rune(command)
	for i := 0; i < len(src); i++ {
		r := src[i]
		ctx, nested := top()

		if nested && ctx == ctxSingle {
			cur.WriteRune(r)
			if r == '\'' {
				pop()
			}
			continue
		}
		if r == '\\' && i+1 < len(src) {
			cur.WriteRune(r)
			cur.WriteRune(src[i+1])
			i++
			continue
		}
		if r == '\n' && len(heredocs) > 0 && (!nested || ctx == ctxSubst) {
			cur.WriteRune(r)
			i = consumeHeredocs(src, i+1, heredocs, &cur) - 1
			heredocs = nil
			if !nested {
				flush()
			}
			continue
		}
		if r == '<' && i+1 < len(src) && src[i+1] == '<' && (!nested || ctx == ctxSubst) {
			if hd, end, ok := parseHeredocStart(src, i); ok {
				heredocs = append(heredocs, hd)
				cur.WriteString(string(src[i:end]))
				i = end - 1
				continue
			}
		}

		if nested {
			cur.WriteRune(r)
			switch ctx {
			case ctxDouble:
				switch {
				case r == '"':
					pop()
				case r == '$' && i+1 < len(src) && src[i+1] == '(':
					cur.WriteRune('(')
					i++
					stack = append(stack, ctxSubst)
				case r == '`':
					stack = append(stack, ctxBacktick)
				}
			case ctxSubst:
				switch r {
				case ')':
					pop()
				case '(':
					stack = append(stack, ctxSubst)
				case '"':
					stack = append(stack, ctxDouble)
				case '\'':
					stack = append(stack, ctxSingle)
				case '`':
					stack = append(stack, ctxBacktick)
				}
			case ctxBacktick:
				if r == '`' {
					pop()
				}
			}
			continue
		}

		switch {
		case r == '\'':
			cur.WriteRune(r)
			stack = append(stack, ctxSingle)
		case r == '"':
			cur.WriteRune(r)
			stack = append(stack, ctxDouble)
		case r == '`':
			cur.WriteRune(r)
			stack = append(stack, ctxBacktick)
		case r == '$' && i+1 < len(src) && src[i+1] == '(':
			cur.WriteString("$(")
			i++
			stack = append(stack, ctxSubst)
		case r == '(' || r == ')':
			cur.WriteRune(' ')
		case r == ';' || r == '\n':
			flush()
		case r == '&' || r == '|':
			double := i+1 < len(src) && src[i+1] == r
			if double {
				i++
			} else if r == '&' && i > 0 && (src[i-1] == '>' || src[i-1] == '<') {
				// Redirections such as 2>&1 are not operators.
				cur.WriteRune(r)
				continue
			} else if r == '&' && i+1 < len(src) && src[i+1] == '>' {
				cur.WriteRune(r)
				continue
			}
			flush()
			piped = r == '|' && !double
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return segments
}

type heredoc struct {
	delim  string
	strip  bool
	quoted bool
}

// parseHeredocStart recognises "<<WORD", "<<-WORD", "<<'WORD'" and "<<\"WORD\""
// starting at src[i]. It returns the exclusive end index of the operator.
func parseHeredocStart(src []rune, i int) (heredoc, int, bool) {
	j := i + 2
	if (j < len(src) && src[j] == '<') || (i > 0 && src[i-1] == '<') {
		return heredoc{}, 0, false
	}
	hd := heredoc{}
	if j < len(src) && src[j] == '-' {
		hd.strip = true
		j++
	}
	for j < len(src) && (src[j] == ' ' || src[j] == '\t') {
		j++
	}
	var quote rune
	if j < len(src) && (src[j] == '\'' || src[j] == '"') {
		quote = src[j]
		j++
	}
	start := j
	for j < len(src) {
		r := src[j]
		if quote != 0 && r == quote {
			break
		}
		if quote == 0 && !isDelimRune(r) {
			break
		}
		j++
	}
	hd.delim = string(src[start:j])
	if hd.delim == "" {
		return heredoc{}, 0, false
	}
	if quote != 0 {
		if j >= len(src) {
			return heredoc{}, 0, false
		}
		hd.quoted = true
		j++
	}
	return hd, j, true
}

func isDelimRune(r rune) bool {
	return r == '_' || r == '-' || r == '.' ||
		(r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
}

// consumeHeredocs copies here-document bodies starting at src[i] into cur and
// returns the index just past the last terminator line.
func consumeHeredocs(src []rune, i int, docs []heredoc, cur *strings.Builder) int {
	for _, hd := range docs {
		for i < len(src) {
			end := i
			for end < len(src) && src[end] != '\n' {
				end++
			}
			line := string(src[i:end])
			if end < len(src) {
				end++
			}
			cur.WriteString(string(src[i:end]))
			i = end
			check := line
			if hd.strip {
				check = strings.TrimLeft(check, "\t")
			}
			if check == hd.delim {
				break
			}
		}
	}
	return i
}

// substitutions returns the bodies of the outermost "$(...)" and backtick
// substitutions in raw. Single-quoted text and the bodies of quoted
// here-documents are never expanded by the shell and are skipped.
func substitutions(raw string) []string {
	var (
		out      []string
		pending  []heredoc
		inDouble bool
	)
	src := []rune(raw)
	for i := 0; i < len(src); i++ {
		switch r := src[i]; {
		case r == '\\':
			i++
		case r == '\'' && !inDouble:
			i = closing(src, i+1, '\'')
		case r == '"':
			inDouble = !inDouble
		case r == '$' && i+1 < len(src) && src[i+1] == '(':
			end := matchParen(src, i+2)
			out = append(out, string(src[i+2:end]))
			i = end
		case r == '`':
			end := closing(src, i+1, '`')
			out = append(out, string(src[i+1:end]))
			i = end
		case r == '<' && !inDouble && i+1 < len(src) && src[i+1] == '<':
			if hd, end, ok := parseHeredocStart(src, i); ok {
				pending = append(pending, hd)
				i = end - 1
			}
		case r == '\n' && len(pending) > 0:
			if allQuoted(pending) {
				var skipped strings.Builder
				i = consumeHeredocs(src, i+1, pending, &skipped) - 1
			}
			pending = nil
		}
	}
	return out
}

// closing returns the index of the quote q that closes the text starting at
// src[i], or len(src) when it is unterminated.
func closing(src []rune, i int, q rune) int {
	for ; i < len(src); i++ {
		if src[i] == '\\' && q != '\'' {
			i++
			continue
		}
		if src[i] == q {
			return i
		}
	}
	return len(src)
}

// matchParen returns the index of the ")" closing a substitution whose body
// starts at src[i], or len(src) when it is unterminated. Here-document bodies
// are skipped, so an apostrophe in a commit message does not open a quote.
func matchParen(src []rune, i int) int {
	var pending []heredoc
	depth := 1
	for ; i < len(src); i++ {
		switch src[i] {
		case '\\':
			i++
		case '\'', '"', '`':
			i = closing(src, i+1, src[i])
		case '<':
			if i+1 >= len(src) || src[i+1] != '<' {
				continue
			}
			if hd, end, ok := parseHeredocStart(src, i); ok {
				pending = append(pending, hd)
				i = end - 1
			}
		case '\n':
			if len(pending) > 0 {
				var skipped strings.Builder
				i = consumeHeredocs(src, i+1, pending, &skipped) - 1
				pending = nil
			}
		case '(':
			depth++
		case ')':
			if depth--; depth == 0 {
				return i
			}
		}
	}
	return len(src)
}

func allQuoted(docs []heredoc) bool {
	for _, hd := range docs {
		if !hd.quoted {
			return false
		}
	}
	return true
}
