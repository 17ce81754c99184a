package lock

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cowwoc/claude-code-cat-sub001/internal/layout"
	"github.com/cowwoc/claude-code-cat-sub001/internal/testutil"
)

var created = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestFileStore_FindForSession(t *testing.T) {
	project := testutil.TempDir(t)
	testutil.WriteLock(t, project, "task-1", testutil.NewLockFile("s-1", filepath.Join(project, "wt1"), created))
	testutil.WriteLock(t, project, "task-2", testutil.NewLockFile("s-2", filepath.Join(project, "wt2"), created))

	store := NewFileStore(project)

	l, ok, err := store.FindForSession("s-2")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "task-2", l.IssueID)
	assert.Equal(t, created.Unix(), l.CreatedAt)
	assert.Equal(t, filepath.Join(project, "wt2"), l.Worktree)

	_, ok, err = store.FindForSession("s-3")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileStore_FindForSession_FirstByIssueID(t *testing.T) {
	project := testutil.TempDir(t)
	testutil.WriteLock(t, project, "b", testutil.NewLockFile("s", "/wb", created))
	testutil.WriteLock(t, project, "a", testutil.NewLockFile("s", "/wa", created))

	l, ok, err := NewFileStore(project).FindForSession("s")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "a", l.IssueID)
}

func TestFileStore_BlankSessionIsValidationError(t *testing.T) {
	_, _, err := NewFileStore(testutil.TempDir(t)).FindForSession("  ")
	assert.ErrorIs(t, err, ErrSessionIDRequired)
}

func TestFileStore_CorruptFilesSkipped(t *testing.T) {
	project := testutil.TempDir(t)
	testutil.WriteRawLock(t, project, "bad-json", []byte("{not json"))
	testutil.WriteRawLock(t, project, "no-session", []byte(`{"created_at": 1}`))
	testutil.WriteLock(t, project, "good", testutil.NewLockFile("s", "/w", created))
	testutil.MkdirAll(t, filepath.Join(layout.LocksPath(project), "dir.lock"))
	require.NoError(t, os.WriteFile(filepath.Join(layout.LocksPath(project), "notes.txt"), []byte("x"), 0o644))

	store := NewFileStore(project)
	locks := store.List()
	require.Len(t, locks, 1)
	assert.Equal(t, "good", locks[0].IssueID)

	_, ok, err := store.Get("bad-json")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileStore_MissingDirectoryIsEmpty(t *testing.T) {
	store := NewFileStore(testutil.TempDir(t))
	assert.Empty(t, store.List())
	_, ok := store.FindForPath("/anything")
	assert.False(t, ok)
}

func TestFileStore_RelativeWorktreeResolvedAgainstProject(t *testing.T) {
	project := testutil.TempDir(t)
	testutil.WriteLock(t, project, "t", testutil.NewLockFile("s", ".claude/cat/worktrees/t", created))

	l, ok, err := NewFileStore(project).Get("t")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, layout.WorktreePath(project, "t"), l.Worktree)
}

func TestFileStore_FindForPath(t *testing.T) {
	project := testutil.TempDir(t)
	outer := testutil.MkdirAll(t, filepath.Join(project, "wt"))
	inner := testutil.MkdirAll(t, filepath.Join(outer, "nested"))
	testutil.WriteLock(t, project, "outer", testutil.NewLockFile("s1", outer, created))
	testutil.WriteLock(t, project, "inner", testutil.NewLockFile("s2", inner, created))
	store := NewFileStore(project)

	l, ok := store.FindForPath(filepath.Join(inner, "src", "main.go"))
	require.True(t, ok)
	assert.Equal(t, "inner", l.IssueID)

	l, ok = store.FindForPath(filepath.Join(outer, "file"))
	require.True(t, ok)
	assert.Equal(t, "outer", l.IssueID)

	_, ok = store.FindForPath(filepath.Join(project, "wtx"))
	assert.False(t, ok)
}

func TestFileStore_FindForPath_ThroughSymlink(t *testing.T) {
	project := testutil.TempDir(t)
	wt := testutil.MkdirAll(t, filepath.Join(project, "wt"))
	link := filepath.Join(project, "link")
	require.NoError(t, os.Symlink(wt, link))
	testutil.WriteLock(t, project, "x", testutil.NewLockFile("s", link, created))

	l, ok := NewFileStore(project).FindForPath(filepath.Join(wt, "a"))
	require.True(t, ok)
	assert.Equal(t, "x", l.IssueID)
}

func TestFileStore_RemoveIsIdempotent(t *testing.T) {
	project := testutil.TempDir(t)
	path := testutil.WriteLock(t, project, "task", testutil.NewLockFile("s", "/w", created))
	store := NewFileStore(project)

	require.NoError(t, store.Remove("task"))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	require.NoError(t, store.Remove("task"))
}

func TestFileStore_RejectsTraversal(t *testing.T) {
	store := NewFileStore(testutil.TempDir(t))
	assert.ErrorIs(t, store.Remove("../x"), ErrInvalidIssueID)
	assert.ErrorIs(t, store.Remove(""), ErrIssueIDRequired)
	_, _, err := store.Get("a/b")
	assert.ErrorIs(t, err, ErrInvalidIssueID)
}

func TestFileStore_WithDir(t *testing.T) {
	project := testutil.TempDir(t)
	store := NewFileStore(project, WithDir("custom/locks"))
	assert.Equal(t, filepath.Join(project, "custom", "locks"), store.Dir())
	store = NewFileStore(project, WithDir("/abs/locks"))
	assert.Equal(t, "/abs/locks", store.Dir())
}

func TestMemStore(t *testing.T) {
	m := NewMemStore("/p/.claude/cat/locks")
	m.Put(Lock{IssueID: "b", SessionID: "s2", Worktree: "/p/wt/b"})
	m.Put(Lock{IssueID: "a", SessionID: "s1", Worktree: "/p/wt/a"})

	locks := m.List()
	require.Len(t, locks, 2)
	assert.Equal(t, "a", locks[0].IssueID)

	l, ok, err := m.FindForSession("s2")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "b", l.IssueID)

	l, ok = m.FindForPath("/p/wt/a/x")
	require.True(t, ok)
	assert.Equal(t, "a", l.IssueID)

	require.NoError(t, m.Remove("a"))
	require.NoError(t, m.Remove("a"))
	_, ok, _ = m.Get("a")
	assert.False(t, ok)
}

func TestIsStale(t *testing.T) {
	l := Lock{CreatedAt: created.Unix()}
	tests := []struct {
		name    string
		elapsed time.Duration
		want    bool
	}{
		{"fresh", time.Hour, false},
		{"just under", 4*time.Hour - time.Second, false},
		{"exactly ttl", 4 * time.Hour, false},
		{"just over", 4*time.Hour + time.Second, true},
		{"long gone", 72 * time.Hour, true},
		{"clock skew", -time.Hour, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now := FixedClock(created.Add(tt.elapsed)).Now()
			assert.Equal(t, tt.want, IsStale(l, now, DefaultTTL))
		})
	}
}

func TestIsStale_CustomTTL(t *testing.T) {
	l := Lock{CreatedAt: created.Unix()}
	assert.True(t, IsStale(l, created.Add(31*time.Minute), 30*time.Minute))
	assert.False(t, IsStale(l, created.Add(31*time.Minute), 0))
}

func TestIsOwnedBySession(t *testing.T) {
	l := Lock{SessionID: "abc"}
	assert.True(t, IsOwnedBySession(l, "abc"))
	assert.False(t, IsOwnedBySession(l, "ABC"))
	assert.False(t, IsOwnedBySession(l, "abc "))
}
