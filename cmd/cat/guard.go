package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/cowwoc/claude-code-cat-sub001/internal/command"
	"github.com/cowwoc/claude-code-cat-sub001/internal/formatter"
	"github.com/cowwoc/claude-code-cat-sub001/internal/safety"
)

// maxHookStdinBytes caps the hook payload read from stdin.
const maxHookStdinBytes = 1 << 20

// hookInput is the subset of the pre-tool hook payload the guards read.
type hookInput struct {
	CWD       string `json:"cwd"`
	SessionID string `json:"session_id"`
	ToolName  string `json:"tool_name"`
	ToolInput struct {
		Command      string `json:"command"`
		FilePath     string `json:"file_path"`
		NotebookPath string `json:"notebook_path"`
	} `json:"tool_input"`
}

type guardFlags struct {
	command string
	file    string
	cwd     string
	session string
	hook    bool
}

func newGuardCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "guard",
		Short: "Check a pending tool call against the worktree safety rules",
		Long: `Check a pending tool call against the worktree safety rules.

Each subcommand exits 0 when the call is allowed and 2 when it is blocked,
with the reason on stderr. With --hook the call is read from the pre-tool
hook JSON on stdin; explicit flags override payload fields.`,
	}
	cmd.AddCommand(
		newGuardBashCommand(a),
		newGuardWriteCommand(a),
		newGuardCommitCommand(a),
	)
	return cmd
}

func addGuardFlags(cmd *cobra.Command, f *guardFlags) {
	cmd.Flags().StringVar(&f.cwd, "cwd", "", "Working directory of the call (default: current directory)")
	cmd.Flags().StringVar(&f.session, "session", "", "Session id of the caller")
	cmd.Flags().BoolVar(&f.hook, "hook", false, "Read the call from hook JSON on stdin")
}

func newGuardBashCommand(a *app) *cobra.Command {
	var f guardFlags
	cmd := &cobra.Command{
		Use:   "bash",
		Short: "Check a shell command for protected-path deletions",
		Example: `  cat guard bash --session s1 --command 'rm -rf .claude/cat/worktrees/task-1'
  cat guard bash --hook < payload.json`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			req, err := a.guardRequest(&f)
			if err != nil {
				return err
			}
			d, err := a.guard().CheckCommand(req)
			if err != nil {
				return err
			}
			return a.report(d)
		},
	}
	cmd.Flags().StringVar(&f.command, "command", "", "Shell command to check")
	addGuardFlags(cmd, &f)
	return cmd
}

func newGuardWriteCommand(a *app) *cobra.Command {
	var f guardFlags
	cmd := &cobra.Command{
		Use:   "write",
		Short: "Check a file write against the session's worktree",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			req, err := a.guardRequest(&f)
			if err != nil {
				return err
			}
			d, err := a.guard().CheckWrite(safety.WriteRequest{
				FilePath:   f.file,
				WorkingDir: req.WorkingDir,
				SessionID:  req.SessionID,
			})
			if err != nil {
				return err
			}
			return a.report(d)
		},
	}
	cmd.Flags().StringVar(&f.file, "file", "", "Path the call writes")
	addGuardFlags(cmd, &f)
	return cmd
}

func newGuardCommitCommand(a *app) *cobra.Command {
	var f guardFlags
	cmd := &cobra.Command{
		Use:   "commit",
		Short: "Check that issue commits run inside the session's worktree",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			req, err := a.guardRequest(&f)
			if err != nil {
				return err
			}
			msg, _ := command.ExtractCommitMessage(req.Command)
			a.logger.Debug("checking commit", "message", msg, "amend", command.IsAmend(req.Command))
			d, err := a.guard().CheckCommit(req)
			if err != nil {
				return err
			}
			return a.report(d)
		},
	}
	cmd.Flags().StringVar(&f.command, "command", "", "Shell command containing the commit")
	addGuardFlags(cmd, &f)
	return cmd
}

// guardRequest merges the hook payload with explicit flags, then loads the
// configuration of the project the call runs in.
func (a *app) guardRequest(f *guardFlags) (safety.Request, error) {
	if f.hook {
		in, err := readHookInput(a.stdin)
		if err != nil {
			return safety.Request{}, err
		}
		fillEmpty(&f.cwd, in.CWD)
		fillEmpty(&f.session, in.SessionID)
		fillEmpty(&f.command, in.ToolInput.Command)
		fillEmpty(&f.file, in.ToolInput.FilePath)
		fillEmpty(&f.file, in.ToolInput.NotebookPath)
	}
	if f.cwd == "" {
		wd, err := os.Getwd()
		if err != nil {
			return safety.Request{}, fmt.Errorf("working directory: %w", err)
		}
		f.cwd = wd
	}
	if err := a.setup(f.cwd); err != nil {
		return safety.Request{}, err
	}
	return safety.Request{Command: f.command, WorkingDir: f.cwd, SessionID: f.session}, nil
}

func readHookInput(r io.Reader) (hookInput, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxHookStdinBytes))
	if err != nil {
		return hookInput{}, fmt.Errorf("read hook input: %w", err)
	}
	var in hookInput
	if err := json.Unmarshal(data, &in); err != nil {
		return hookInput{}, fmt.Errorf("parse hook input: %w", err)
	}
	return in, nil
}

func fillEmpty(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}

// report prints the decision. Blocks always go to stderr; structured output
// formats also print the decision on stdout.
func (a *app) report(d safety.Decision) error {
	if format := a.format(); format != formatter.FormatTable {
		if err := formatter.Encode(a.stdout, format, d); err != nil {
			return err
		}
	}
	if !d.Blocked {
		return nil
	}
	fmt.Fprintln(a.stderr, d.Message) //nolint:errcheck
	return errBlocked
}
