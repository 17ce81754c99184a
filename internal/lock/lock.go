// Package lock is a read-mostly view of the per-issue lock files that record
// which session owns an issue's worktree.
//
// Lock files are written by other processes at any moment, so nothing here
// caches: every lookup re-reads the directory. Unreadable or corrupt files are
// treated as absent, which keeps the guards built on top of this package
// permissive when the coordination state itself is damaged.
package lock

import (
	"strings"
	"time"
)

// DefaultTTL is the age after which a lock is considered abandoned.
const DefaultTTL = 4 * time.Hour

// Lock is one advisory lease on an issue's worktree.
type Lock struct {
	// IssueID is the lock key, taken from the file name.
	IssueID string `json:"-"`

	// SessionID identifies the owning session.
	SessionID string `json:"session_id"`

	// CreatedAt is the acquisition time in unix seconds.
	CreatedAt int64 `json:"created_at"`

	// Worktree is the worktree directory. Relative values are resolved
	// against the project root when the lock is loaded.
	Worktree string `json:"worktree"`

	// CreatedISO is CreatedAt in ISO-8601, for humans.
	CreatedISO string `json:"created_iso"`
}

// Created returns CreatedAt as a time.
func (l Lock) Created() time.Time {
	return time.Unix(l.CreatedAt, 0)
}

// Age returns how long the lock has been held at now.
func (l Lock) Age(now time.Time) time.Duration {
	return now.Sub(l.Created())
}

// IsStale reports whether the lock is older than ttl at now. A lock exactly
// ttl old is still fresh. A non-positive ttl means DefaultTTL.
func IsStale(l Lock, now time.Time, ttl time.Duration) bool {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return l.Age(now) > ttl
}

// IsOwnedBySession reports whether sessionID owns the lock. Session ids are
// opaque and compared exactly.
func IsOwnedBySession(l Lock, sessionID string) bool {
	return l.SessionID == sessionID
}

// ValidateSessionID rejects blank session ids.
func ValidateSessionID(sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return ErrSessionIDRequired
	}
	return nil
}

// ValidateIssueID rejects blank ids and ids that would escape the locks
// directory.
func ValidateIssueID(issueID string) error {
	if strings.TrimSpace(issueID) == "" {
		return ErrIssueIDRequired
	}
	if issueID == "." || issueID == ".." || strings.ContainsAny(issueID, `/\`) || strings.ContainsRune(issueID, 0) {
		return ErrInvalidIssueID
	}
	return nil
}
