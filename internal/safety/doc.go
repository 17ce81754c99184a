// Package safety decides whether a command or file write issued by an agent
// session may proceed while other sessions work in sibling worktrees of the
// same repository.
//
// Every check is a pure function of the request, the lock files on disk and
// the clock. Nothing is cached between calls: lock files are written by other
// processes at any moment, and the hook that calls into this package runs
// immediately before each action.
//
// # Threat Model
//
// T1 - Self-Deletion: a recursive removal whose target contains the shell's
// working directory leaves the session stranded in a deleted directory.
// Mitigation: the effective directory after every "cd" in the command is
// computed and protected (reason cwd-ancestor).
//
// T2 - Repository Destruction: removing the main worktree root, or any
// directory containing it, destroys every session's shared git metadata.
// Mitigation: the main root is found by walking upward to a .git directory and
// protected unconditionally (reason main-worktree-root).
//
// T3 - Cross-Session Interference: one session removing the worktree another
// session is using. Mitigation: worktrees named by fresh locks of other
// sessions are protected (reason in-use-worktree). A stale lock, or the
// caller's own lock, lifts the protection.
//
// T4 - Coordination Tampering: deleting lock files by hand silently hands an
// issue to whichever session asks next. Mitigation: any removal touching the
// locks directory is blocked regardless of flags or session (reason
// lock-artifact); locks are released through the dedicated force-release tool.
//
// T5 - Isolation Escape: a session bound to a worktree writing into the main
// tree or a sibling worktree. Mitigation: writes, issue commits and amends
// must target the caller's worktree once its directory exists.
//
// # Design Principles
//
// Fail open on existence: a missing, unreadable or corrupt lock file, or a
// worktree that has not been provisioned yet, means no constraint applies.
//
// Fail closed on identity: once a protected path or isolation boundary has
// been identified, any doubt about the target blocks.
//
// Blocks are results, not errors: every check returns a Decision. Errors are
// reserved for invalid requests such as a blank session id.
package safety
