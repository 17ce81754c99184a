// Package command turns raw shell-command text into structured facts without
// executing anything.
//
// Hook callers hand us the exact string an agent is about to run. The guards in
// package safety need to know which paths it removes, which directory it runs
// in, and what commit it creates. A full shell parser is out of reach, so this
// package implements a small grammar that covers the shapes agents actually
// produce and fails toward "more removal operands" rather than fewer.
//
// # Grammar
//
//	command   = segment { operator segment }
//	operator  = "&&" | "||" | ";" | "|" | "&" | newline
//	segment   = { assignment | reserved | wrapper } program { word }
//	reserved  = "if" | "then" | "elif" | "else" | "fi" | "do" | "done" |
//	            "while" | "until" | "!" | "{" | "}" | "esac"
//	wrapper   = "sudo" [flags] | "command" | "env" [assignments] | "exec" |
//	            "nohup" | "time" | "xargs" [flags]
//
// Reserved words only open or close a compound command, so
// "if true; then rm -f x; fi" yields the segments "true" and "rm -f x".
// "for NAME in WORDS" stays a segment of its own and its body follows "do".
//
// The body of every "$(...)" and backtick substitution is split again and its
// segments come before the segment that contains it, so "echo $(rm -f x)"
// yields "rm -f x" and then the echo. Substitutions inside single quotes or
// quoted here-documents ("<<'EOF'") are literal text and are skipped. A "cd"
// inside a substitution does not move the working directory.
//
// A segment run under xargs records the words of the pipeline stage feeding
// it, so "ls x.lock | xargs rm" can be checked against "x.lock".
//
// Operators are only recognised outside quotes, command substitutions
// ("$(...)" and backticks) and here-document bodies. A bare "(" or ")" at the
// top level groups a subshell and is treated as whitespace, so
// "(cd a && rm -rf b)" yields the segments "cd a" and "rm -rf b".
// Here-documents ("<<EOF", "<<-EOF", "<<'EOF'") are kept verbatim inside the
// segment that opened them, including any quote characters in the body.
//
// Words within a segment are split with github.com/google/shlex. When shlex
// rejects a segment (unterminated quote) the segment falls back to whitespace
// splitting so a malformed command still surfaces its operands.
//
// A segment whose program is sh, bash or zsh invoked with "-c <script>" is
// followed by the segments of <script>.
//
// # Flags
//
// Removal programs accept grouped short flags ("-rf", "-Rf", "-fr"), long flags
// ("--recursive", "--force") and flags before, after or between operands.
// "--" ends flag parsing. Redirections ("2>&1", "> out", ">>log") are not
// operands. Every other token is a path operand. Both "r" and "R" mean
// recursive.
package command
