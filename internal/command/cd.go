package command

import (
	"os"
	"path/filepath"
	"strings"
)

// CdTargets returns the operands of every "cd" (or "pushd") segment in
// source order, exactly as written. A bare "cd" yields "~". A "cd" inside a
// command substitution is ignored.
func CdTargets(command string) []string {
	var out []string
	for _, seg := range Segments(command) {
		if seg.Substituted {
			continue
		}
		switch seg.Program() {
		case "cd", "pushd":
		default:
			continue
		}
		target := "~"
		for _, arg := range seg.Args() {
			if arg == "-P" || arg == "-L" || arg == "-e" || arg == "--" {
				continue
			}
			target = arg
			break
		}
		if target == "-" {
			continue
		}
		out = append(out, target)
	}
	return out
}

// ExtractCdChain returns the effective working directory after every "cd" in
// command has run, starting from fallback. Relative targets compose with the
// directory established before them. With no "cd", fallback is returned.
func ExtractCdChain(command, fallback string) string {
	dir := fallback
	for _, target := range CdTargets(command) {
		target = ExpandHome(target)
		if filepath.IsAbs(target) || dir == "" {
			dir = filepath.Clean(target)
			continue
		}
		dir = filepath.Join(dir, target)
	}
	return dir
}

// ExpandHome replaces a leading "~", "$HOME" or "${HOME}" with the user's
// home directory. Other variables are left untouched.
func ExpandHome(path string) string {
	var rest string
	switch {
	case path == "~" || strings.HasPrefix(path, "~/"):
		rest = path[1:]
	case path == "$HOME" || strings.HasPrefix(path, "$HOME/"):
		rest = path[len("$HOME"):]
	case path == "${HOME}" || strings.HasPrefix(path, "${HOME}/"):
		rest = path[len("${HOME}"):]
	default:
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return path
	}
	return home + rest
}
