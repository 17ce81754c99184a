package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/cowwoc/claude-code-cat-sub001/internal/formatter"
	"github.com/cowwoc/claude-code-cat-sub001/internal/merge"
)

func newMergeCommand(a *app) *cobra.Command {
	var req merge.Request
	cmd := &cobra.Command{
		Use:   "merge <issue-id>",
		Short: "Merge an issue branch into its base with a linear history",
		Long: `Merge an issue branch into its base with a linear history.

When the base branch has moved since the issue branched off, the issue
commits are rebased onto it first. The base is then fast-forwarded, and the
issue worktree and lock are removed. Any git failure aborts the merge and
leaves the worktree, branch and lock in place.

The base branch is read from the worktree's cat-base marker unless --base is
given. On success the result is printed as JSON (or YAML with -o yaml).`,
		Example: `  cat merge task-1 --session "$SESSION_ID"
  cat merge task-1 --session "$SESSION_ID" --base release --delete-branch`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wd, err := os.Getwd()
			if err != nil {
				return err
			}
			if err := a.setup(wd); err != nil {
				return err
			}
			req.IssueID = args[0]
			if !cmd.Flags().Changed("delete-branch") {
				req.DeleteBranch = a.cfg.Merge.DeleteBranch
			}

			res, err := a.orchestrator().Merge(cmd.Context(), req)
			if err != nil {
				return err
			}
			format := a.format()
			if format == formatter.FormatTable {
				format = formatter.FormatJSON
			}
			return formatter.Encode(a.stdout, format, res)
		},
	}
	cmd.Flags().StringVar(&req.SessionID, "session", "", "Session id of the caller")
	cmd.Flags().StringVar(&req.BaseBranch, "base", "", "Base branch (default: the worktree's cat-base marker)")
	cmd.Flags().StringVar(&req.Worktree, "worktree", "", "Issue worktree (default: the lock's worktree)")
	cmd.Flags().BoolVar(&req.DeleteBranch, "delete-branch", false, "Delete the issue branch after merging")
	return cmd
}
