package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/cowwoc/claude-code-cat-sub001/internal/formatter"
	"github.com/cowwoc/claude-code-cat-sub001/internal/lock"
)

var errLockNotFound = errors.New("no lock held")

// lockView is the printable form of a lock.
type lockView struct {
	IssueID   string `json:"issue_id" yaml:"issue_id"`
	SessionID string `json:"session_id" yaml:"session_id"`
	Worktree  string `json:"worktree" yaml:"worktree"`
	Created   string `json:"created" yaml:"created"`
	Age       string `json:"age" yaml:"age"`
	Stale     bool   `json:"stale" yaml:"stale"`
}

func newLockView(l lock.Lock, now time.Time, ttl time.Duration) lockView {
	return lockView{
		IssueID:   l.IssueID,
		SessionID: l.SessionID,
		Worktree:  l.Worktree,
		Created:   l.Created().UTC().Format(time.RFC3339),
		Age:       l.Age(now).Truncate(time.Second).String(),
		Stale:     lock.IsStale(l, now, ttl),
	}
}

func (v lockView) state() string {
	if v.Stale {
		return "stale"
	}
	return "fresh"
}

func newLocksCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "locks",
		Short: "Inspect and release issue locks",
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			wd, err := os.Getwd()
			if err != nil {
				return err
			}
			return a.setup(wd)
		},
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List issue locks",
			Args:  cobra.NoArgs,
			RunE: func(_ *cobra.Command, _ []string) error {
				return a.listLocks()
			},
		},
		&cobra.Command{
			Use:   "show <issue-id>",
			Short: "Show one issue lock",
			Args:  cobra.ExactArgs(1),
			RunE: func(_ *cobra.Command, args []string) error {
				return a.showLock(args[0])
			},
		},
		&cobra.Command{
			Use:   "force-release <issue-id>",
			Short: "Delete an issue lock regardless of its owner",
			Long: `Delete an issue lock regardless of its owner.

The worktree is left in place. Use this only for locks whose session is
known to be gone; a live session loses its protection immediately.`,
			Args: cobra.ExactArgs(1),
			RunE: func(_ *cobra.Command, args []string) error {
				return a.forceRelease(args[0])
			},
		},
	)
	return cmd
}

func (a *app) listLocks() error {
	now, ttl := a.clock.Now(), a.lockTTL()
	views := []lockView{}
	for _, l := range a.store().List() {
		views = append(views, newLockView(l, now, ttl))
	}

	if format := a.format(); format != formatter.FormatTable {
		return formatter.Encode(a.stdout, format, views)
	}
	if len(views) == 0 {
		fmt.Fprintln(a.stdout, "No locks held.") //nolint:errcheck
		return nil
	}
	tbl := formatter.NewTable(a.stdout, "ISSUE", "SESSION", "AGE", "STATE", "WORKTREE")
	tbl.SetMaxWidth(1, 36)
	for _, v := range views {
		tbl.AddRow(v.IssueID, v.SessionID, v.Age, v.state(), v.Worktree)
	}
	return tbl.Render()
}

func (a *app) showLock(issueID string) error {
	l, ok, err := a.store().Get(issueID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", errLockNotFound, issueID)
	}
	v := newLockView(l, a.clock.Now(), a.lockTTL())

	if format := a.format(); format != formatter.FormatTable {
		return formatter.Encode(a.stdout, format, v)
	}
	//nolint:errcheck
	fmt.Fprintf(a.stdout, "Issue:    %s\nSession:  %s\nWorktree: %s\nCreated:  %s\nAge:      %s (%s)\n",
		v.IssueID, v.SessionID, v.Worktree, v.Created, v.Age, v.state())
	return nil
}

func (a *app) forceRelease(issueID string) error {
	store := a.store()
	l, ok, err := store.Get(issueID)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintf(a.stdout, "No lock held for %s.\n", issueID) //nolint:errcheck
		return nil
	}
	if err := store.Remove(issueID); err != nil {
		return err
	}
	a.logger.Info("lock force-released", "issue", issueID, "session", l.SessionID)
	fmt.Fprintf(a.stdout, "Released lock for %s (held by session %s).\n", issueID, l.SessionID) //nolint:errcheck
	return nil
}
