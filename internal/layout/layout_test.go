package layout

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRealPath_ResolvesSymlinks(t *testing.T) {
	root := RealPath(t.TempDir())
	target := filepath.Join(root, "target")
	require.NoError(t, os.Mkdir(target, 0o755))
	link := filepath.Join(root, "link")
	require.NoError(t, os.Symlink(target, link))

	assert.Equal(t, target, RealPath(link))
	assert.Equal(t, filepath.Join(target, "missing", "file"), RealPath(filepath.Join(link, "missing", "file")))
}

func TestResolve_Relative(t *testing.T) {
	root := RealPath(t.TempDir())
	assert.Equal(t, filepath.Join(root, "a", "b"), Resolve(root, "a/./b"))
	assert.Equal(t, root, Resolve(root, "a/.."))
	assert.Equal(t, "/abs", Resolve(root, "/abs"))
}

func TestWithin(t *testing.T) {
	assert.True(t, Within("/a/b", "/a/b"))
	assert.True(t, Within("/a/b/c", "/a/b"))
	assert.False(t, Within("/a/bc", "/a/b"))
	assert.False(t, Within("/a", "/a/b"))
	assert.True(t, Within("/anything", "/"))
}

func TestFindMainRoot(t *testing.T) {
	root := RealPath(t.TempDir())
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))
	deep := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(deep, 0o755))

	got, err := FindMainRoot(deep)
	require.NoError(t, err)
	assert.Equal(t, root, got)
}

func TestFindMainRoot_SkipsLinkedWorktreeGitFile(t *testing.T) {
	root := RealPath(t.TempDir())
	gitDir := filepath.Join(root, ".git")
	require.NoError(t, os.Mkdir(gitDir, 0o755))
	wt := WorktreePath(root, "task-1")
	require.NoError(t, os.MkdirAll(wt, 0o755))
	meta := filepath.Join(gitDir, "worktrees", "task-1")
	require.NoError(t, os.MkdirAll(meta, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(wt, ".git"), []byte("gitdir: "+meta+"\n"), 0o644))

	got, err := FindMainRoot(wt)
	require.NoError(t, err)
	assert.Equal(t, root, got)
}

func TestFindMainRoot_FollowsCommondirOutsideRepo(t *testing.T) {
	root := RealPath(t.TempDir())
	gitDir := filepath.Join(root, "repo", ".git")
	meta := filepath.Join(gitDir, "worktrees", "x")
	require.NoError(t, os.MkdirAll(meta, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(meta, "commondir"), []byte("../..\n"), 0o644))

	wt := filepath.Join(root, "elsewhere", "x")
	require.NoError(t, os.MkdirAll(wt, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(wt, ".git"), []byte("gitdir: "+meta), 0o644))

	got, err := FindMainRoot(wt)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "repo"), got)
}

func TestFindMainRoot_NotInRepository(t *testing.T) {
	_, err := FindMainRoot(t.TempDir())
	assert.ErrorIs(t, err, ErrNotInRepository)
}

func TestReadBaseBranch(t *testing.T) {
	root := RealPath(t.TempDir())
	meta := filepath.Join(root, ".git", "worktrees", "t")
	require.NoError(t, os.MkdirAll(meta, 0o755))
	wt := filepath.Join(root, "wt")
	require.NoError(t, os.Mkdir(wt, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(wt, ".git"), []byte("gitdir: "+meta), 0o644))

	_, err := ReadBaseBranch(wt)
	require.Error(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(meta, BaseMarker), []byte("v2.1\n"), 0o644))
	branch, err := ReadBaseBranch(wt)
	require.NoError(t, err)
	assert.Equal(t, "v2.1", branch)
}

func TestPaths(t *testing.T) {
	assert.Equal(t, filepath.Join("/p", ".claude", "cat", "locks"), LocksPath("/p"))
	assert.Equal(t, filepath.Join("/p", ".claude", "cat", "locks", "x.lock"), LockFile(LocksPath("/p"), "x"))
	assert.Equal(t, filepath.Join("/p", ".claude", "cat", "worktrees", "x"), WorktreePath("/p", "x"))
}
