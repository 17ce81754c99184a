package safety

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cowwoc/claude-code-cat-sub001/internal/layout"
	"github.com/cowwoc/claude-code-cat-sub001/internal/lock"
	"github.com/cowwoc/claude-code-cat-sub001/internal/testutil"
)

func (f *fixture) write(t *testing.T, path, cwd, session string) Decision {
	t.Helper()
	d, err := f.guard.CheckWrite(WriteRequest{FilePath: path, WorkingDir: cwd, SessionID: session})
	require.NoError(t, err)
	return d
}

func TestCheckWrite_Unconstrained(t *testing.T) {
	f := newFixture(t)

	// No lock for the session.
	assert.False(t, f.write(t, filepath.Join(f.root, "main.go"), f.root, "me").Blocked)

	// Lock acquired, worktree not provisioned yet.
	f.lock(t, "task", "me", time.Minute)
	assert.False(t, f.write(t, filepath.Join(f.root, "main.go"), f.root, "me").Blocked)

	// Empty target.
	f.worktree(t, "task")
	assert.False(t, f.write(t, "", f.root, "me").Blocked)
}

func TestCheckWrite_InsideWorktree(t *testing.T) {
	f := newFixture(t)
	wt := f.worktree(t, "task")
	f.lock(t, "task", "me", time.Minute)

	for _, tc := range []struct{ path, cwd string }{
		{filepath.Join(wt, "main.go"), f.root},
		{filepath.Join(wt, "new", "dir", "file.go"), f.root},
		{"pkg/file.go", wt},
		{wt, f.root},
		{"./a/../b.go", wt},
	} {
		assert.False(t, f.write(t, tc.path, tc.cwd, "me").Blocked, "%s from %s", tc.path, tc.cwd)
	}
}

func TestCheckWrite_OutsideWorktreeBlocked(t *testing.T) {
	f := newFixture(t)
	wt := f.worktree(t, "task")
	f.lock(t, "task", "me", time.Minute)
	target := filepath.Join(f.root, "internal", "main.go")

	d := f.write(t, target, wt, "me")

	require.True(t, d.Blocked)
	assert.Contains(t, d.Message, "Worktree isolation violation")
	assert.Contains(t, d.Message, "Worktree: "+wt)
	assert.Contains(t, d.Message, "Attempted: "+target)
	assert.Contains(t, d.Message, filepath.Join(wt, "internal", "main.go"))
	assert.Equal(t, target, d.Target)
	require.NotNil(t, d.Protected)
	assert.Equal(t, ReasonIsolation, d.Protected.Reason)
	assert.Equal(t, "task", d.Protected.IssueID)
}

func TestCheckWrite_NamesOwnerOfTarget(t *testing.T) {
	f := newFixture(t)
	wt := f.worktree(t, "task")
	f.lock(t, "task", "me", time.Minute)
	theirs := f.worktree(t, "other-task")
	f.lock(t, "other-task", "other", time.Minute)

	d := f.write(t, filepath.Join(theirs, "main.go"), wt, "me")
	require.True(t, d.Blocked)
	assert.Contains(t, d.Message, "Target belongs to issue other-task (session other).")

	d = f.write(t, filepath.Join(f.root, "main.go"), wt, "me")
	require.True(t, d.Blocked)
	assert.NotContains(t, d.Message, "Target belongs to")
}

func TestCheckWrite_EscapesBlocked(t *testing.T) {
	f := newFixture(t)
	wt := f.worktree(t, "task")
	sibling := f.worktree(t, "task2")
	f.lock(t, "task", "me", time.Minute)

	outside := testutil.TempDir(t)
	link := filepath.Join(wt, "escape")
	require.NoError(t, os.Symlink(outside, link))

	for _, tc := range []struct{ path, cwd string }{
		{"../task2/file.go", wt},
		{filepath.Join(sibling, "file.go"), wt},
		{filepath.Join(link, "file.go"), wt},
		{"/etc/passwd", wt},
		{filepath.Join(wt, "..", "task", "..", "task2", "x"), f.root},
	} {
		d := f.write(t, tc.path, tc.cwd, "me")
		assert.True(t, d.Blocked, "%s from %s", tc.path, tc.cwd)
	}
}

func TestCheckWrite_SymlinkIntoWorktreeAllowed(t *testing.T) {
	f := newFixture(t)
	wt := f.worktree(t, "task")
	f.lock(t, "task", "me", time.Minute)
	link := filepath.Join(testutil.TempDir(t), "wt")
	require.NoError(t, os.Symlink(wt, link))

	assert.False(t, f.write(t, filepath.Join(link, "file.go"), f.root, "me").Blocked)
}

func TestCheckWrite_OtherSessionsLockIgnored(t *testing.T) {
	f := newFixture(t)
	f.worktree(t, "task")
	f.lock(t, "task", "other", time.Minute)
	assert.False(t, f.write(t, filepath.Join(f.root, "x.go"), f.root, "me").Blocked)
}

func TestCheckWrite_BlankSession(t *testing.T) {
	f := newFixture(t)
	_, err := f.guard.CheckWrite(WriteRequest{FilePath: "x"})
	assert.ErrorIs(t, err, lock.ErrSessionIDRequired)
}

// Writes are allowed exactly when the resolved path lies at or below the
// resolved worktree.
func TestCheckWrite_PrefixIsPathBoundary(t *testing.T) {
	f := newFixture(t)
	wt := f.worktree(t, "task")
	f.lock(t, "task", "me", time.Minute)
	testutil.MkdirAll(t, wt+"-other")

	paths := map[string]bool{
		wt:                                 false,
		wt + "/":                           false,
		wt + "-other/x":                    true,
		wt + "x":                           true,
		filepath.Join(wt, "deep/er/f"):     false,
		layout.WorktreePath(f.root, "tas"): true,
	}
	for path, blocked := range paths {
		assert.Equal(t, blocked, f.write(t, path, f.root, "me").Blocked, path)
	}
}
