package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractRemovalTargets_Flags(t *testing.T) {
	tests := []struct {
		name      string
		command   string
		targets   []string
		recursive bool
		force     bool
	}{
		{"grouped rf", "rm -rf build", []string{"build"}, true, true},
		{"grouped Rf", "rm -Rf build", []string{"build"}, true, true},
		{"grouped fr", "rm -fr build", []string{"build"}, true, true},
		{"separate flags", "rm -r -f build", []string{"build"}, true, true},
		{"long flags", "rm --recursive --force build", []string{"build"}, true, true},
		{"flags after operand", "rm build -rf", []string{"build"}, true, true},
		{"interleaved", "rm a -r b --force c", []string{"a", "b", "c"}, true, true},
		{"no recursive", "rm -f file.txt", []string{"file.txt"}, false, true},
		{"plain", "rm file.txt", []string{"file.txt"}, false, false},
		{"double dash ends flags", "rm -r -- -weird", []string{"-weird"}, true, false},
		{"quoted operand with spaces", `rm -rf "my dir" 'other dir'`, []string{"my dir", "other dir"}, true, true},
		{"absolute program path", "/bin/rm -rf /tmp/x", []string{"/tmp/x"}, true, true},
		{"upper case program", "RM -RF out", []string{"out"}, true, false},
		{"sudo wrapper", "sudo -u root rm -rf /srv/data", []string{"/srv/data"}, true, true},
		{"env assignment", "FOO=1 rm -rf out", []string{"out"}, true, true},
		{"extra long flag ignored", "rm --no-preserve-root -rf /", []string{"/"}, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			removals := ExtractRemovalTargets(tt.command)
			require.Len(t, removals, 1)
			r := removals[0]
			assert.Equal(t, tt.targets, r.Targets)
			assert.Equal(t, tt.recursive, r.Recursive, "recursive")
			assert.Equal(t, tt.force, r.Force, "force")
		})
	}
}

func TestExtractRemovalTargets_MultipleSegments(t *testing.T) {
	removals := ExtractRemovalTargets("cd /tmp && rm -rf a; echo done || rm b | cat")
	require.Len(t, removals, 2)
	assert.Equal(t, []string{"a"}, removals[0].Targets)
	assert.True(t, removals[0].Recursive)
	assert.Equal(t, []string{"b"}, removals[1].Targets)
	assert.False(t, removals[1].Recursive)
}

func TestExtractRemovalTargets_OtherPrograms(t *testing.T) {
	removals := ExtractRemovalTargets("rmdir empty && unlink f.lock && git rm -r src")
	require.Len(t, removals, 3)
	assert.Equal(t, "rmdir", removals[0].Program)
	assert.Equal(t, "unlink", removals[1].Program)
	assert.Equal(t, "git rm", removals[2].Program)
	assert.True(t, removals[2].DeletesDirectories())
	assert.False(t, removals[0].DeletesDirectories())
}

func TestExtractRemovalTargets_GitRmCachedIsNotRemoval(t *testing.T) {
	assert.Empty(t, ExtractRemovalTargets("git rm -r --cached vendor"))
	assert.Empty(t, ExtractRemovalTargets("git rm -n file"))
}

func TestExtractRemovalTargets_InlineShellScript(t *testing.T) {
	removals := ExtractRemovalTargets(`bash -c "rm -rf /tmp/work"`)
	require.Len(t, removals, 1)
	assert.Equal(t, []string{"/tmp/work"}, removals[0].Targets)
}

func TestExtractRemovalTargets_Subshell(t *testing.T) {
	removals := ExtractRemovalTargets("(cd sub && rm -rf out)")
	require.Len(t, removals, 1)
	assert.Equal(t, []string{"out"}, removals[0].Targets)
}

func TestExtractRemovalTargets_OperatorsInsideQuotesIgnored(t *testing.T) {
	removals := ExtractRemovalTargets(`echo "a && rm -rf /" ; rm -rf 'x;y'`)
	require.Len(t, removals, 1)
	assert.Equal(t, []string{"x;y"}, removals[0].Targets)
}

func TestExtractRemovalTargets_Redirections(t *testing.T) {
	tests := []struct {
		command string
		targets []string
	}{
		{"rm -rf out 2>&1", []string{"out"}},
		{"rm -rf out > log.lock", []string{"out"}},
		{"rm -rf out >> log 2> err", []string{"out"}},
		{"rm -rf out >log 2>/dev/null", []string{"out"}},
		{"rm -f a < in b", []string{"a", "b"}},
		{"rm -rf out &>/dev/null", []string{"out"}},
		{"rm -rf -- out 1>&2", []string{"out"}},
	}
	for _, tt := range tests {
		removals := ExtractRemovalTargets(tt.command)
		require.Len(t, removals, 1, tt.command)
		assert.Equal(t, tt.targets, removals[0].Targets, tt.command)
	}
}

func TestExtractRemovalTargets_CompoundCommands(t *testing.T) {
	tests := []struct {
		name    string
		command string
		targets []string
	}{
		{"if body", "if true; then rm -f a.lock; fi", []string{"a.lock"}},
		{"if condition", "if rm -f a.lock; then echo ok; fi", []string{"a.lock"}},
		{"else branch", "if false; then :; else rm -rf wt; fi", []string{"wt"}},
		{"elif branch", "if false; then :; elif true; then rm -rf wt; fi", []string{"wt"}},
		{"for loop", "for f in x; do rm -f a.lock; done", []string{"a.lock"}},
		{"while loop", "while true; do rm -f a.lock; break; done", []string{"a.lock"}},
		{"until loop", "until false; do rm -f a.lock; done", []string{"a.lock"}},
		{"brace group", "{ rm -f a.lock; }", []string{"a.lock"}},
		{"negation", "! rm -f a.lock", []string{"a.lock"}},
		{"command substitution", "echo $(rm -f a.lock)", []string{"a.lock"}},
		{"quoted substitution", `echo "$(rm -f a.lock)"`, []string{"a.lock"}},
		{"backticks", "echo `rm -f a.lock`", []string{"a.lock"}},
		{"nested substitution", "echo $(echo $(rm -f a.lock))", []string{"a.lock"}},
		{"xargs", "ls a.lock | xargs rm -f", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			removals := ExtractRemovalTargets(tt.command)
			require.Len(t, removals, 1)
			assert.Equal(t, tt.targets, removals[0].Targets)
		})
	}
}

func TestExtractRemovalTargets_SingleQuotedSubstitutionIsText(t *testing.T) {
	assert.Empty(t, ExtractRemovalTargets(`echo '$(rm -f a.lock)'`))
}

func TestExtractRemovalTargets_XargsUpstream(t *testing.T) {
	removals := ExtractRemovalTargets("ls -1 a.lock b.lock 2>/dev/null | xargs -I{} rm -f {}")
	require.Len(t, removals, 1)
	r := removals[0]
	assert.Equal(t, []string{"{}"}, r.Targets)
	assert.Equal(t, []string{"a.lock", "b.lock"}, r.Piped)

	removals = ExtractRemovalTargets("ls a.lock | rm -f b")
	require.Len(t, removals, 1)
	assert.Nil(t, removals[0].Piped)
}

func TestRemoval_DeletesDirectories(t *testing.T) {
	assert.False(t, Removal{Program: "rm"}.DeletesDirectories())
	assert.True(t, Removal{Program: "rm", Recursive: true}.DeletesDirectories())
	assert.False(t, Removal{Program: "rmdir", Recursive: true}.DeletesDirectories())
}

func TestExtractWorktreeRemovalPath(t *testing.T) {
	tests := []struct {
		name    string
		command string
		path    string
		force   bool
	}{
		{"plain", "git worktree remove ../wt", "../wt", false},
		{"force before", "git worktree remove --force /w/task-1", "/w/task-1", true},
		{"short force", "git worktree remove -f /w/task-1", "/w/task-1", true},
		{"force after", "git worktree remove /w/task-1 --force", "/w/task-1", true},
		{"double force", "git worktree remove -f -f /w/task-1", "/w/task-1", true},
		{"after cd", "cd /repo && git worktree remove --force .claude/cat/worktrees/x", ".claude/cat/worktrees/x", true},
		{"redirected", "git worktree remove > out --force wt 2>&1", "wt", true},
		{"inside if", "if [ -d wt ]; then git worktree remove wt; fi", "wt", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, ok := ExtractWorktreeRemovalPath(tt.command)
			require.True(t, ok)
			assert.Equal(t, tt.path, path)
			removals := ExtractWorktreeRemovals(tt.command)
			require.Len(t, removals, 1)
			assert.Equal(t, tt.force, removals[0].Force)
		})
	}
}

func TestExtractWorktreeRemoval_GitDirOption(t *testing.T) {
	removals := ExtractWorktreeRemovals("git -C /repo worktree remove wt")
	require.Len(t, removals, 1)
	assert.Equal(t, "/repo", removals[0].Dir)
	assert.Equal(t, "wt", removals[0].Path)
}

func TestExtractWorktreeRemovalPath_NotRemoval(t *testing.T) {
	for _, cmd := range []string{"git worktree list", "git worktree add ../x", "git worktree remove", "echo git worktree remove x"} {
		_, ok := ExtractWorktreeRemovalPath(cmd)
		assert.False(t, ok, cmd)
	}
}
