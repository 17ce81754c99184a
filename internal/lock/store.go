package lock

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/cowwoc/claude-code-cat-sub001/internal/layout"
)

// Store is the lock registry consulted by the guards and the merge
// orchestrator. Lookups never fail on environment problems; they report the
// lock as absent instead. Errors are reserved for invalid arguments and for
// Remove.
type Store interface {
	// Dir returns the locks directory the store reads.
	Dir() string

	// List returns every readable lock, ordered by issue id.
	List() []Lock

	// Get returns the lock for issueID.
	Get(issueID string) (Lock, bool, error)

	// FindForSession returns the first lock, by issue id, owned by sessionID.
	FindForSession(sessionID string) (Lock, bool, error)

	// FindForPath returns the lock whose worktree contains path. When
	// worktrees nest, the deepest one wins.
	FindForPath(path string) (Lock, bool)

	// Remove deletes the lock for issueID. Removing an absent lock succeeds.
	Remove(issueID string) error
}

// FileStore implements Store over <project>/.claude/cat/locks/<issue>.lock.
type FileStore struct {
	root   string
	dir    string
	logger *slog.Logger
}

// FileStoreOption configures a FileStore.
type FileStoreOption func(*FileStore)

// WithDir overrides the locks directory. Relative values are resolved
// against the project root.
func WithDir(dir string) FileStoreOption {
	return func(s *FileStore) {
		if dir == "" {
			return
		}
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(s.root, dir)
		}
		s.dir = dir
	}
}

// WithLogger sets the logger used for skipped lock files.
func WithLogger(logger *slog.Logger) FileStoreOption {
	return func(s *FileStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewFileStore returns a store for the project rooted at projectDir.
func NewFileStore(projectDir string, opts ...FileStoreOption) *FileStore {
	s := &FileStore{
		root:   projectDir,
		dir:    layout.LocksPath(projectDir),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dir returns the locks directory.
func (s *FileStore) Dir() string { return s.dir }

// List reads every lock file in the directory.
func (s *FileStore) List() []Lock {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Debug("locks directory unreadable", "dir", s.dir, "error", err)
		}
		return nil
	}
	var locks []Lock
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, layout.LockExt) {
			continue
		}
		issueID := strings.TrimSuffix(name, layout.LockExt)
		l, err := s.read(issueID)
		if err != nil {
			s.logger.Debug("skipping lock file", "issue", issueID, "error", err)
			continue
		}
		locks = append(locks, l)
	}
	return locks
}

// Get reads the lock for issueID.
func (s *FileStore) Get(issueID string) (Lock, bool, error) {
	if err := ValidateIssueID(issueID); err != nil {
		return Lock{}, false, err
	}
	l, err := s.read(issueID)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Debug("lock unreadable, treating as absent", "issue", issueID, "error", err)
		}
		return Lock{}, false, nil
	}
	return l, true, nil
}

// FindForSession scans for the first lock owned by sessionID.
func (s *FileStore) FindForSession(sessionID string) (Lock, bool, error) {
	return findForSession(s.List(), sessionID)
}

// FindForPath returns the lock whose worktree contains path.
func (s *FileStore) FindForPath(path string) (Lock, bool) {
	return findForPath(s.List(), path)
}

// Remove deletes the lock file for issueID.
func (s *FileStore) Remove(issueID string) error {
	if err := ValidateIssueID(issueID); err != nil {
		return err
	}
	if err := os.Remove(layout.LockFile(s.dir, issueID)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove lock %s: %w", issueID, err)
	}
	return nil
}

func (s *FileStore) read(issueID string) (Lock, error) {
	data, err := os.ReadFile(layout.LockFile(s.dir, issueID))
	if err != nil {
		return Lock{}, err
	}
	l, err := Decode(data)
	if err != nil {
		return Lock{}, err
	}
	l.IssueID = issueID
	if l.Worktree != "" && !filepath.IsAbs(l.Worktree) {
		l.Worktree = filepath.Join(s.root, l.Worktree)
	}
	return l, nil
}

// Decode parses a lock file body.
func Decode(data []byte) (Lock, error) {
	var l Lock
	if err := json.Unmarshal(data, &l); err != nil {
		return Lock{}, fmt.Errorf("parse lock: %w", err)
	}
	if strings.TrimSpace(l.SessionID) == "" {
		return Lock{}, fmt.Errorf("parse lock: %w", ErrSessionIDRequired)
	}
	return l, nil
}

func findForSession(locks []Lock, sessionID string) (Lock, bool, error) {
	if err := ValidateSessionID(sessionID); err != nil {
		return Lock{}, false, err
	}
	for _, l := range locks {
		if IsOwnedBySession(l, sessionID) {
			return l, true, nil
		}
	}
	return Lock{}, false, nil
}

func findForPath(locks []Lock, path string) (Lock, bool) {
	if path == "" {
		return Lock{}, false
	}
	target := layout.RealPath(path)
	var (
		best    Lock
		bestLen = -1
	)
	for _, l := range locks {
		if l.Worktree == "" {
			continue
		}
		wt := layout.RealPath(l.Worktree)
		if layout.Within(target, wt) && len(wt) > bestLen {
			best, bestLen = l, len(wt)
		}
	}
	return best, bestLen >= 0
}

// MemStore is an in-memory Store for tests and embedding.
type MemStore struct {
	mu    sync.Mutex
	dir   string
	locks map[string]Lock
}

// NewMemStore returns an empty store that claims dir as its locks directory.
func NewMemStore(dir string) *MemStore {
	return &MemStore{dir: dir, locks: make(map[string]Lock)}
}

// Put stores l under its issue id.
func (m *MemStore) Put(l Lock) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locks[l.IssueID] = l
}

// Dir returns the claimed locks directory.
func (m *MemStore) Dir() string { return m.dir }

// List returns the stored locks ordered by issue id.
func (m *MemStore) List() []Lock {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Lock, 0, len(m.locks))
	for _, l := range m.locks {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IssueID < out[j].IssueID })
	return out
}

// Get returns the lock for issueID.
func (m *MemStore) Get(issueID string) (Lock, bool, error) {
	if err := ValidateIssueID(issueID); err != nil {
		return Lock{}, false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[issueID]
	return l, ok, nil
}

// FindForSession returns the first lock owned by sessionID.
func (m *MemStore) FindForSession(sessionID string) (Lock, bool, error) {
	return findForSession(m.List(), sessionID)
}

// FindForPath returns the lock whose worktree contains path.
func (m *MemStore) FindForPath(path string) (Lock, bool) {
	return findForPath(m.List(), path)
}

// Remove deletes the lock for issueID.
func (m *MemStore) Remove(issueID string) error {
	if err := ValidateIssueID(issueID); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, issueID)
	return nil
}
