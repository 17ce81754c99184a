// Package testutil holds fixtures shared by package tests: lock files and
// throwaway git repositories.
package testutil

import (
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cowwoc/claude-code-cat-sub001/internal/layout"
)

// LockFile is the on-disk shape of a lock, written verbatim by WriteLock.
type LockFile struct {
	SessionID  string `json:"session_id"`
	CreatedAt  int64  `json:"created_at"`
	Worktree   string `json:"worktree"`
	CreatedISO string `json:"created_iso"`
}

// NewLockFile returns a lock body created at the given time.
func NewLockFile(sessionID, worktree string, created time.Time) LockFile {
	return LockFile{
		SessionID:  sessionID,
		CreatedAt:  created.Unix(),
		Worktree:   worktree,
		CreatedISO: created.UTC().Format(time.RFC3339),
	}
}

// WriteLock writes <projectDir>/.claude/cat/locks/<issueID>.lock and returns its path.
func WriteLock(t *testing.T, projectDir, issueID string, body LockFile) string {
	t.Helper()
	dir := layout.LocksPath(projectDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	path := layout.LockFile(dir, issueID)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// WriteRawLock writes arbitrary bytes as a lock file.
func WriteRawLock(t *testing.T, projectDir, issueID string, data []byte) string {
	t.Helper()
	dir := layout.LocksPath(projectDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := layout.LockFile(dir, issueID)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// TempDir returns a symlink-free temporary directory.
func TempDir(t *testing.T) string {
	t.Helper()
	return layout.RealPath(t.TempDir())
}

// FakeRepo creates a directory with an empty .git directory, enough for
// main-root detection without invoking git.
func FakeRepo(t *testing.T) string {
	t.Helper()
	root := TempDir(t)
	if err := os.Mkdir(filepath.Join(root, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}
	return root
}

// MkdirAll creates path and fails the test on error.
func MkdirAll(t *testing.T, path string) string {
	t.Helper()
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

// InitGitRepo creates a repository on branch main with one commit.
func InitGitRepo(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	dir := TempDir(t)
	RunGit(t, dir, "init", "-b", "main")
	RunGit(t, dir, "config", "user.email", "test@example.com")
	RunGit(t, dir, "config", "user.name", "Test")
	RunGit(t, dir, "config", "commit.gpgsign", "false")
	CommitFile(t, dir, "README.md", "# test\n", "initial")
	return dir
}

// CommitFile writes content to name inside dir and commits it.
func CommitFile(t *testing.T, dir, name, content, message string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	RunGit(t, dir, "add", name)
	RunGit(t, dir, "commit", "-m", message)
}

// RunGit runs git in cwd and fails the test on error.
func RunGit(t *testing.T, cwd string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = cwd
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git %s failed: %v\n%s", strings.Join(args, " "), err, string(out))
	}
}

// RunGitOutput runs git in cwd and returns trimmed stdout.
func RunGitOutput(t *testing.T, cwd string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = cwd
	out, err := cmd.Output()
	if err != nil {
		t.Fatalf("git %s output failed: %v", strings.Join(args, " "), err)
	}
	return strings.TrimSpace(string(out))
}
